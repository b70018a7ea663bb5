// Package match compares company names reported by the classifier against
// the employer recorded on an introduction.
package match

import (
	"strings"
	"unicode"
)

// legalSuffixes are dropped during normalization so "Acme Corp" and "Acme"
// compare equal. Order does not matter; comparison is token-set based.
var legalSuffixes = map[string]bool{
	"inc":          true,
	"incorporated": true,
	"llc":          true,
	"llp":          true,
	"ltd":          true,
	"limited":      true,
	"corp":         true,
	"corporation":  true,
	"co":           true,
	"company":      true,
	"gmbh":         true,
	"plc":          true,
	"sa":           true,
	"ag":           true,
	"group":        true,
	"holdings":     true,
	"the":          true,
}

// Normalize lowercases a company name, strips punctuation and legal-entity
// suffixes, and returns the remaining tokens.
func Normalize(name string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	var tokens []string
	for _, tok := range strings.Fields(b.String()) {
		if legalSuffixes[tok] {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// Companies reports whether two company names refer to the same employer.
// The names match when the Jaccard overlap of their normalized token sets is
// at least 0.5. This is deliberately stricter than substring containment:
// "Acme" matches "Acme Corp" but not "Acme Staffing Partners of Nevada".
func Companies(a, b string) bool {
	ta, tb := Normalize(a), Normalize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return false
	}
	sa := toSet(ta)
	sb := toSet(tb)
	inter := 0
	for tok := range sa {
		if sb[tok] {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return union > 0 && float64(inter)/float64(union) >= 0.5
}

func toSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}
