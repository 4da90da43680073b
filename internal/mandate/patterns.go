package mandate

import (
	"log"
	"regexp"
	"strings"
)

// Matcher classifies transaction descriptions against a marker pattern set.
// Patterns are data (config-supplied regular expressions), not control flow,
// so the set can be extended without touching detection logic.
type Matcher struct {
	patterns []*regexp.Regexp
}

// NewMatcher compiles case-insensitive patterns. Invalid patterns are logged
// and skipped rather than failing the detector.
func NewMatcher(patterns []string) *Matcher {
	m := &Matcher{}
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			log.Printf("[WARN] mandate: invalid marker pattern %q: %v", p, err)
			continue
		}
		m.patterns = append(m.patterns, re)
	}
	return m
}

// Match reports whether the description carries any of the markers, and
// returns the matched fragment for reference extraction.
func (m *Matcher) Match(description string) (string, bool) {
	for _, re := range m.patterns {
		if loc := re.FindString(description); loc != "" {
			return loc, true
		}
	}
	return "", false
}

// ExtractReference pulls the mandate reference out of a description: the
// text after the matched marker, trimmed of separators. Best effort; an
// empty reference is fine.
func ExtractReference(description, marker string) string {
	idx := strings.Index(strings.ToLower(description), strings.ToLower(marker))
	if idx < 0 {
		return ""
	}
	ref := description[idx+len(marker):]
	ref = strings.Trim(ref, " -:/*.")
	if len(ref) > 40 {
		ref = ref[:40]
	}
	return ref
}
