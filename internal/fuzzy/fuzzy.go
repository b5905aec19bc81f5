// Package fuzzy provides grapheme-aware edit distance for argument suggestions.
// Used by argtree for "did you mean" hints and short-form expansion.
package fuzzy

import (
	"github.com/agext/levenshtein"
	"github.com/apparentlymart/go-textseg/v15/textseg"
)

// Clusters splits s into user-perceived characters (extended grapheme clusters).
// Invalid UTF-8 falls back to one cluster per byte sequence the scanner yields.
func Clusters(s string) []string {
	if s == "" {
		return nil
	}

	tokens, err := textseg.AllTokens([]byte(s), textseg.ScanGraphemeClusters)
	if err != nil {
		// The scanner only fails on malformed input; treat each rune as a cluster
		out := make([]string, 0, len(s))
		for _, r := range s {
			out = append(out, string(r))
		}
		return out
	}

	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = string(tok)
	}
	return out
}

// Count returns the number of grapheme clusters in s.
func Count(s string) int {
	if s == "" {
		return 0
	}
	n, err := textseg.TokenCount([]byte(s), textseg.ScanGraphemeClusters)
	if err != nil {
		return len([]rune(s))
	}
	return n
}

// Distance returns the Levenshtein distance between a and b where every
// grapheme cluster counts as a single symbol.
func Distance(a, b string) int {
	ra, rb := clusterRunes(a, b)
	dist, _, _ := levenshtein.Calculate(ra, rb, 0, 1, 1, 1)
	return dist
}

// clusterRunes maps every distinct cluster of a and b onto a private-use rune
// so the rune-based calculator compares whole clusters.
func clusterRunes(a, b string) ([]rune, []rune) {
	ids := make(map[string]rune)
	next := rune(0xF0000)

	encode := func(s string) []rune {
		cs := Clusters(s)
		out := make([]rune, len(cs))
		for i, c := range cs {
			id, ok := ids[c]
			if !ok {
				id = next
				next++
				ids[c] = id
			}
			out[i] = id
		}
		return out
	}

	return encode(a), encode(b)
}

// Matcher tracks the closest candidate seen so far. Ties keep the first
// candidate offered.
type Matcher struct {
	input    string
	best     any
	distance int
	found    bool
}

// NewMatcher creates a matcher for the given input text.
func NewMatcher(input string) *Matcher {
	return &Matcher{input: input}
}

// Offer compares name against the input and records value when it is strictly
// closer than anything seen before.
func (m *Matcher) Offer(name string, value any) {
	if name == "" {
		return
	}
	d := Distance(m.input, name)
	if !m.found || d < m.distance {
		m.best = value
		m.distance = d
		m.found = true
	}
}

// Best returns the closest value and its distance. ok is false when nothing
// was offered.
func (m *Matcher) Best() (value any, distance int, ok bool) {
	return m.best, m.distance, m.found
}
