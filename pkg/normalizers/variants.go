package normalizers

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// VariantBlocklist holds short tokens that collide with unrelated channel names
// and must never be used as a matching variant
var VariantBlocklist = []string{"gm", "tr", "bc", "co", "io", "ai", "hq", "us", "ok", "dm"}

var variantBlocklistSet = toSet(VariantBlocklist)

// alternateSeparators are used to re-join the normalized form
var alternateSeparators = []string{"_", " ", "."}

// suffixSeparators may precede a trailing business suffix in a raw name
var suffixSeparators = []string{" ", "-", "_", "."}

// minAcronymSourceLength is the raw length a name needs before an acronym is generated
const minAcronymSourceLength = 6

// GenerateVariants returns the sorted, de-duplicated set of surface forms a name
// may appear under in channel names, meeting titles and CRM records
func GenerateVariants(name string) []string {
	raw := strings.TrimSpace(name)
	if raw == "" {
		return nil
	}

	set := make(map[string]struct{})
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" || variantBlocklistSet[v] {
			return
		}
		set[v] = struct{}{}
	}

	lower := strings.ToLower(raw)
	normalized := NormalizeCompanyName(raw)

	add(raw)
	add(lower)
	add(normalized)
	add(strings.ReplaceAll(normalized, "-", ""))

	for _, stripped := range suffixStrippedForms(lower) {
		add(stripped)
		add(NormalizeCompanyName(stripped))
	}

	if strings.Contains(normalized, "-") {
		for _, sep := range alternateSeparators {
			add(strings.ReplaceAll(normalized, "-", sep))
		}
	}

	if acronym := Acronym(raw); acronym != "" {
		add(acronym)
	}

	variants := make([]string, 0, len(set))
	for v := range set {
		variants = append(variants, v)
	}
	sort.Strings(variants)
	return variants
}

// suffixStrippedForms peels trailing business suffixes off a lowercased name one at a time,
// returning every intermediate form
func suffixStrippedForms(lower string) []string {
	var forms []string
	current := lower
	for {
		next, ok := trimOneSuffix(current)
		if !ok {
			return forms
		}
		current = next
		forms = append(forms, current)
	}
}

func trimOneSuffix(s string) (string, bool) {
	for _, suffix := range BusinessSuffixes {
		for _, sep := range suffixSeparators {
			if !strings.HasSuffix(s, sep+suffix) {
				continue
			}
			trimmed := strings.TrimRight(s[:len(s)-len(sep+suffix)], " -_.,")
			if trimmed == "" {
				return s, false
			}
			return trimmed, true
		}
	}
	return s, false
}

// Acronym returns the initials of a multi-word name ("International Business Machines" -> "ibm").
// Trailing business suffixes are ignored. Names of six characters or fewer and acronyms
// shorter than three letters yield "".
func Acronym(name string) string {
	raw := strings.TrimSpace(name)
	if utf8.RuneCountInString(raw) <= minAcronymSourceLength {
		return ""
	}

	tokens := Tokens(raw)
	for len(tokens) > 1 && businessSuffixSet[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}
	if len(tokens) < 2 {
		return ""
	}

	var b strings.Builder
	for _, t := range tokens {
		r, _ := utf8.DecodeRuneInString(t)
		b.WriteRune(r)
	}
	if utf8.RuneCountInString(b.String()) < 3 {
		return ""
	}
	return b.String()
}
