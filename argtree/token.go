package argtree

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dzonerzy/go-argtree/internal/intern"
	"github.com/dzonerzy/go-argtree/internal/pool"
)

// Prefix classifies how a token was written on the command line.
type Prefix int

const (
	// PrefixNone is a bare word: a value, a positional, or a mode name.
	PrefixNone Prefix = iota
	// PrefixLong is a double-dash label such as --verbose.
	PrefixLong
	// PrefixShort is a single-dash label such as -v.
	PrefixShort
)

func (p Prefix) String() string {
	switch p {
	case PrefixLong:
		return "--"
	case PrefixShort:
		return "-"
	case PrefixNone:
		return ""
	}
	return ""
}

// Token is a classified unit of input.
type Token struct {
	Prefix Prefix
	Name   string
}

// String renders the token the way it appeared on the command line.
func (t Token) String() string {
	return t.Prefix.String() + t.Name
}

// Raw returns an unclassified token holding s verbatim.
func Raw(s string) Token {
	return Token{Prefix: PrefixNone, Name: s}
}

// ClassifyToken derives the prefix of s. A lone "-" or "--" stays
// unprefixed.
func ClassifyToken(s string) Token {
	switch {
	case len(s) > 2 && strings.HasPrefix(s, "--"):
		return Token{Prefix: PrefixLong, Name: intern.Intern(s[2:])}
	case len(s) > 1 && s[0] == '-' && s != "--":
		return Token{Prefix: PrefixShort, Name: intern.Intern(s[1:])}
	}
	return Token{Prefix: PrefixNone, Name: s}
}

// Reclassify turns a deferred (unprefixed) token into its classified form.
// Tokens that already carry a prefix are returned unchanged.
func (t Token) Reclassify() Token {
	if t.Prefix != PrefixNone {
		return t
	}
	return ClassifyToken(t.Name)
}

func joinTokens(tokens []Token) string {
	parts := make([]string, len(tokens))
	for i, tok := range tokens {
		parts[i] = tok.String()
	}
	return strings.Join(parts, ", ")
}

var tokenSlices = pool.NewSlicePool[Token](16, 256)

// TokenStream is the input of one parse call split into a processed region
// (already consumed) followed by a pending region.
type TokenStream struct {
	tokens    []Token
	processed int
	borrowed  *[]Token
}

// NewTokenStream wraps args as unclassified pending tokens.
func NewTokenStream(args []string) *TokenStream {
	tokens := make([]Token, len(args))
	for i, a := range args {
		tokens[i] = Raw(a)
	}
	return &TokenStream{tokens: tokens}
}

// Len returns the total number of tokens, processed and pending.
func (s *TokenStream) Len() int { return len(s.tokens) }

// ProcessedLen returns the size of the processed region.
func (s *TokenStream) ProcessedLen() int { return s.processed }

// PendingLen returns the size of the pending region.
func (s *TokenStream) PendingLen() int { return len(s.tokens) - s.processed }

// Processed returns a read-only view of the processed region.
func (s *TokenStream) Processed() []Token { return s.tokens[:s.processed:s.processed] }

// Pending returns a read-only view of the pending region.
func (s *TokenStream) Pending() []Token { return s.tokens[s.processed:] }

// At reads index i of processed followed by pending.
func (s *TokenStream) At(i int) Token { return s.tokens[i] }

// Transfer moves the first n pending tokens into the processed region.
func (s *TokenStream) Transfer(n int) error {
	if n < 0 || n > s.PendingLen() {
		return fmt.Errorf("argtree: cannot transfer %d tokens, %d pending", n, s.PendingLen())
	}
	s.processed += n
	return nil
}

// ReplaceAt overwrites token i of the whole stream.
func (s *TokenStream) ReplaceAt(i int, tok Token) {
	s.tokens[i] = tok
}

// Insert places toks at index i of the pending region.
func (s *TokenStream) Insert(i int, toks ...Token) {
	at := s.processed + i
	if at < s.processed || at > len(s.tokens) {
		panic(fmt.Sprintf("argtree: insert index %d outside pending region", i))
	}
	s.tokens = slices.Insert(s.tokens, at, toks...)
}

// Erase removes processed tokens in [from, to).
func (s *TokenStream) Erase(from, to int) {
	if from < 0 || to > s.processed || from > to {
		panic(fmt.Sprintf("argtree: erase range [%d,%d) outside processed region", from, to))
	}
	s.tokens = slices.Delete(s.tokens, from, to)
	s.processed -= to - from
}

// fork copies the stream into a pooled buffer so a child can match
// speculatively. Call commit or release on the fork exactly once.
func (s *TokenStream) fork() *TokenStream {
	buf := tokenSlices.Get()
	*buf = append(*buf, s.tokens...)
	return &TokenStream{tokens: *buf, processed: s.processed, borrowed: buf}
}

// commit copies the fork back into dst and releases it.
func (s *TokenStream) commit(dst *TokenStream) {
	dst.tokens = append(dst.tokens[:0:0], s.tokens...)
	dst.processed = s.processed
	s.release()
}

func (s *TokenStream) release() {
	if s.borrowed == nil {
		return
	}
	*s.borrowed = s.tokens[:0]
	tokenSlices.Put(s.borrowed)
	s.borrowed = nil
	s.tokens = nil
}
