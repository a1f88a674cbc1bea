// Package fingerprint derives deterministic hashes used to collapse duplicate records
// and to identify identical attribution runs
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

// GenerateFrom fingerprints any value that marshals to JSON. Map keys are sorted,
// so two values with equal content produce equal fingerprints.
func GenerateFrom(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", err
	}
	return hash(canonicalize(generic)), nil
}

// Parts fingerprints an ordered list of strings. Parts are length-prefixed so that
// ("ab", "c") and ("a", "bc") differ.
func Parts(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(lengthPrefix(p))
		b.WriteString(p)
	}
	return hash(b.String())
}

func lengthPrefix(s string) string {
	l, _ := json.Marshal(len(s))
	return string(l) + ":"
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// canonicalize creates a deterministic string representation by sorting map keys
// and recursively processing nested structures
func canonicalize(data any) string {
	switch v := data.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var b strings.Builder
		b.WriteString("{")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(",")
			}
			keyJSON, _ := json.Marshal(k)
			b.Write(keyJSON)
			b.WriteString(":")
			b.WriteString(canonicalize(v[k]))
		}
		b.WriteString("}")
		return b.String()
	case []any:
		var b strings.Builder
		b.WriteString("[")
		for i, item := range v {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(canonicalize(item))
		}
		b.WriteString("]")
		return b.String()
	default:
		out, _ := json.Marshal(v)
		return string(out)
	}
}

// HasChanged reports whether a newly computed fingerprint differs from the previous one
func HasChanged(oldFingerprint, newFingerprint string) bool {
	return oldFingerprint != newFingerprint
}
