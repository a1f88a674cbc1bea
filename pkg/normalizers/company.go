package normalizers

import (
	"strings"
	"unicode"
)

// LeadingWords are dropped from the front of a company name
var LeadingWords = []string{"the", "a", "an", "new", "global", "international"}

// BusinessSuffixes are dropped from the end of a company name.
// Order matters for variant generation: longer forms come before their abbreviations.
var BusinessSuffixes = []string{
	"incorporated", "inc",
	"llc", "ltd", "limited",
	"corporation", "corp",
	"company", "co",
	"gmbh", "plc",
	"holdings", "group",
	"foundation", "labs",
	"network", "protocol", "dao",
	"minter", "mainnet", "validator", "bitsafe",
}

var (
	leadingWordSet    = toSet(LeadingWords)
	businessSuffixSet = toSet(BusinessSuffixes)
)

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

// IsBusinessSuffix reports whether token is a recognised trailing suffix
func IsBusinessSuffix(token string) bool {
	return businessSuffixSet[token]
}

// Tokens splits a name into lowercase, accent-folded word tokens.
// Apostrophes are removed, every other non alphanumeric rune separates tokens,
// and the connective "and" is dropped.
func Tokens(name string) []string {
	name = strings.ToLower(FoldAccents(name))
	name = strings.NewReplacer("'", "", "’", "").Replace(name)

	fields := strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == "and" {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// StripTokens removes leading words and trailing suffixes until neither applies.
// The last remaining token is never removed.
func StripTokens(tokens []string) []string {
	for len(tokens) > 1 {
		switch {
		case leadingWordSet[tokens[0]]:
			tokens = tokens[1:]
		case businessSuffixSet[tokens[len(tokens)-1]]:
			tokens = tokens[:len(tokens)-1]
		default:
			return tokens
		}
	}
	return tokens
}

// NormalizeCompanyName reduces a company or channel name to a canonical hyphenated form.
//
//	"The Acme Corp."        -> "acme"
//	"acme_corp-bitsafe"     -> "acme"
//	"Smith & Wesson Labs"   -> "smith-wesson"
//
// NormalizeCompanyName(NormalizeCompanyName(x)) == NormalizeCompanyName(x) for every x.
func NormalizeCompanyName(name string) string {
	return strings.Join(StripTokens(Tokens(name)), "-")
}
