// Package normalize reduces merchant labels to stable grouping keys.
package normalize

import "strings"

// webTails are domain fragments banks commonly append to merchant names.
var webTails = []string{".com", ".co.uk", ".net", ".org", ".io", ".tv"}

// legalSuffixes are entity-type words that carry no grouping information.
var legalSuffixes = map[string]bool{
	"ltd":     true,
	"limited": true,
	"plc":     true,
	"inc":     true,
	"corp":    true,
	"llc":     true,
	"gmbh":    true,
	"co":      true,
}

// Merchant reduces a raw description or merchant name to a stable grouping
// key: "Netflix.com" and "NETFLIX INC" both become "netflix". Pure and
// total; unknown input degrades to whatever alphanumerics remain.
func Merchant(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "www.")

	for _, tail := range webTails {
		s = strings.ReplaceAll(s, tail, "")
	}

	words := strings.Fields(s)
	for len(words) > 1 && legalSuffixes[trimPunct(words[len(words)-1])] {
		words = words[:len(words)-1]
	}
	s = strings.Join(words, " ")

	var b strings.Builder
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func trimPunct(w string) string {
	return strings.Trim(w, ".,;:-")
}
