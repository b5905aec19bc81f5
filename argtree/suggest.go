package argtree

import (
	"slices"

	"github.com/dzonerzy/go-argtree/internal/fuzzy"
)

// unknownArgument builds the error for tok, adding the closest name reachable
// from mode when there is one.
func unknownArgument(mode *Node, tok Token) error {
	path := Suggest(mode, tok)
	if path == nil {
		return NewParseError(KindUnknownArgument, tok)
	}
	return NewParseError(KindUnknownArgumentWithSuggestion, append([]Token{tok}, path...)...)
}

// Suggest finds the enabled name below from that is closest to tok by
// grapheme edit distance. The result lists the named modes leading to the
// match followed by the matching name; nil means no candidate exists. The
// walk is pre-order and the first of equally close names wins.
func Suggest(from *Node, tok Token) []Token {
	m := fuzzy.NewMatcher(tok.Name)

	var walk func(n *Node, path []Token)
	walk = func(n *Node, path []Token) {
		for _, c := range n.children {
			if !c.enabled {
				continue
			}
			for _, name := range c.names() {
				m.Offer(name.Name, append(slices.Clip(path), name))
			}
			next := path
			if c.isMode() && c.noneName != "" {
				next = append(slices.Clip(path), Token{Prefix: PrefixNone, Name: c.noneName})
			}
			walk(c, next)
		}
	}
	walk(from, nil)

	best, _, ok := m.Best()
	if !ok {
		return nil
	}
	return best.([]Token)
}

// names lists the node's name forms as tokens: long, short, then none.
func (n *Node) names() []Token {
	var out []Token
	if n.longName != "" {
		out = append(out, Token{Prefix: PrefixLong, Name: n.longName})
	}
	if n.shortName != "" {
		out = append(out, Token{Prefix: PrefixShort, Name: n.shortName})
	}
	if n.noneName != "" {
		out = append(out, Token{Prefix: PrefixNone, Name: n.noneName})
	}
	return out
}
