package argtree

import (
	"cmp"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strings"

	"github.com/dzonerzy/go-argtree/internal/fuzzy"
	"github.com/dzonerzy/go-argtree/internal/intern"
)

// structuralCheck is implemented by capabilities with construction-time
// constraints on their owner.
type structuralCheck interface {
	check(owner *Node) error
}

// labelMatcher is attached to every argument-like node. It recognises the
// node's label (or, for positionals, a bare value) and collects the value
// tokens that follow.
type labelMatcher struct{}

func (labelMatcher) Priority() int { return PriorityLabel }

func (labelMatcher) PreParse(ctx *PreParseContext) (PreParseResult, error) {
	n, s := ctx.Node(), ctx.Stream
	if s.PendingLen() == 0 {
		return NotMatched, nil
	}

	start := s.ProcessedLen()
	first := s.At(start).Reclassify()

	if n.isPositional() {
		if first.Prefix != PrefixNone {
			return NotMatched, nil
		}
		ctx.Target.label = n.label()
	} else {
		if !n.matchesLabel(first) {
			return NotMatched, nil
		}
		s.ReplaceAt(start, first)
		if err := s.Transfer(1); err != nil {
			return NotMatched, err
		}
		ctx.Target.label = first
	}

	values, err := collectValues(s, n, ctx.Target.label)
	if err != nil {
		return NotMatched, err
	}
	ctx.Target.tokens = values
	return Matched, nil
}

func collectValues(s *TokenStream, n *Node, label Token) ([]Token, error) {
	pending := s.Pending()

	if n.kind == kindForwarding {
		values := slices.Clone(pending)
		return values, s.Transfer(len(pending))
	}

	if n.endMarker != "" {
		idx := slices.IndexFunc(pending, func(t Token) bool { return t.Name == n.endMarker })
		if idx < 0 {
			return nil, NewParseError(KindMissingTokenEndMarker, label)
		}
		values := slices.Clone(pending[:idx])
		if len(values) < n.minCount {
			return nil, NewParseError(KindMinimumCountNotReached, label)
		}
		if n.maxCount != unbounded && len(values) > n.maxCount {
			return nil, NewParseError(KindMaximumCountExceeded, label)
		}
		return values, s.Transfer(idx + 1)
	}

	if n.kind == kindFlag || n.kind == kindCountingFlag {
		return nil, nil
	}

	var values []Token
	for i, tok := range pending {
		if n.maxCount != unbounded && i >= n.maxCount {
			break
		}
		// tokens beyond the minimum stop at anything that looks like a label
		if i >= n.minCount && tok.Reclassify().Prefix != PrefixNone {
			break
		}
		values = append(values, tok)
	}

	if len(values) < n.minCount {
		if n.aliasCap() != nil {
			return nil, NewParseError(KindTooFewValuesForAlias, label)
		}
		return nil, NewParseError(KindMinimumCountNotReached, label)
	}
	return values, s.Transfer(len(values))
}

type requiredCap struct{}

func (requiredCap) Priority() int { return 0 }

func (requiredCap) Missing(ancestors []*Node) (any, error) {
	return nil, NewParseError(KindMissingRequiredArgument, ancestors[0].label())
}

// Required makes absence of the node a parse error.
func Required() Option {
	return With(requiredCap{})
}

type defaultCap struct {
	value any
}

func (defaultCap) Priority() int { return 0 }

func (d defaultCap) Missing([]*Node) (any, error) {
	return d.value, nil
}

func (d defaultCap) check(owner *Node) error {
	t := owner.ValueType()
	if t == nil || d.value == nil {
		return nil
	}
	if !reflect.TypeOf(d.value).AssignableTo(t) && !reflect.TypeOf(d.value).ConvertibleTo(t) {
		return buildErrorf(owner, "default value of type %T does not fit %s", d.value, t)
	}
	return nil
}

// DefaultValue supplies v when the node does not appear.
func DefaultValue(v any) Option {
	return With(defaultCap{value: v})
}

type parserFunc struct {
	fn func(string) (any, error)
}

func (parserFunc) Priority() int { return 0 }

func (p parserFunc) Parse(text string, _ *Node) (any, error) {
	return p.fn(text)
}

// CustomParser converts value tokens with fn instead of the registry. For
// slice-valued nodes fn parses a single element.
func CustomParser[T any](fn func(string) (T, error)) Option {
	return With(parserFunc{fn: func(s string) (any, error) {
		v, err := fn(s)
		if err != nil {
			return nil, err
		}
		return v, nil
	}})
}

type valueRange[T cmp.Ordered] struct {
	minimum, maximum       T
	hasMinimum, hasMaximum bool
}

func (valueRange[T]) Priority() int { return 0 }

func (r valueRange[T]) Validate(value any, ancestors []*Node) error {
	check := func(v T) error {
		if r.hasMinimum && v < r.minimum {
			return NewParseError(KindMinimumValueNotReached, ancestors[0].label())
		}
		if r.hasMaximum && v > r.maximum {
			return NewParseError(KindMaximumValueExceeded, ancestors[0].label())
		}
		return nil
	}

	switch v := value.(type) {
	case T:
		return check(v)
	case []T:
		for _, e := range v {
			if err := check(e); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r valueRange[T]) check(owner *Node) error {
	if r.hasMinimum && r.hasMaximum && r.minimum > r.maximum {
		return buildErrorf(owner, "minimum value %v greater than maximum %v", r.minimum, r.maximum)
	}
	if et := owner.elementType(); et != nil && et != reflect.TypeFor[T]() {
		return buildErrorf(owner, "value range of %s used on %s", reflect.TypeFor[T](), owner.ValueType())
	}
	return nil
}

// MinMaxValue bounds the parsed value (each element for slices).
func MinMaxValue[T cmp.Ordered](minimum, maximum T) Option {
	return With(valueRange[T]{minimum: minimum, maximum: maximum, hasMinimum: true, hasMaximum: true})
}

// MinValue sets a lower bound on the parsed value.
func MinValue[T cmp.Ordered](minimum T) Option {
	return With(valueRange[T]{minimum: minimum, hasMinimum: true})
}

// MaxValue sets an upper bound on the parsed value.
func MaxValue[T cmp.Ordered](maximum T) Option {
	return With(valueRange[T]{maximum: maximum, hasMaximum: true})
}

type validatorFunc[T any] struct {
	fn func(T) error
}

func (validatorFunc[T]) Priority() int { return 0 }

func (v validatorFunc[T]) Validate(value any, _ []*Node) error {
	typed, ok := value.(T)
	if !ok {
		return fmt.Errorf("unexpected value type %T", value)
	}
	return v.fn(typed)
}

// Validate runs fn on the parsed value. Errors other than *ParseError are
// reported as KindValidationFailed.
func Validate[T any](fn func(T) error) Option {
	return With(validatorFunc[T]{fn: fn})
}

// AllowedValues restricts the parsed value to the given set.
func AllowedValues[T comparable](values ...T) Option {
	return Validate(func(v T) error {
		if slices.Contains(values, v) {
			return nil
		}
		return fmt.Errorf("value must be one of: %v", values)
	})
}

type regexCap struct {
	pattern string
	re      *regexp.Regexp
	err     error
}

func (regexCap) Priority() int { return 0 }

func (r regexCap) Validate(value any, _ []*Node) error {
	s, ok := value.(string)
	if !ok {
		return nil
	}
	if !r.re.MatchString(s) {
		return fmt.Errorf("value %q does not match pattern %s", s, r.pattern)
	}
	return nil
}

func (r regexCap) check(owner *Node) error {
	if r.err != nil {
		return buildErrorf(owner, "invalid pattern %q: %v", r.pattern, r.err)
	}
	return nil
}

// MatchRegex requires string values to match pattern.
func MatchRegex(pattern string) Option {
	re, err := regexp.Compile(pattern)
	return With(regexCap{pattern: pattern, re: re, err: err})
}

type valueSeparator struct {
	sep string
}

func (valueSeparator) Priority() int { return PriorityValueSeparator }

func (v valueSeparator) PreParse(ctx *PreParseContext) (PreParseResult, error) {
	s := ctx.Stream
	if s.PendingLen() == 0 {
		return Matched, nil
	}
	start := s.ProcessedLen()
	raw := s.At(start)
	tok := raw.Reclassify()
	if tok.Prefix == PrefixNone {
		return Matched, nil
	}

	idx := strings.Index(tok.Name, v.sep)
	if idx < 0 {
		return Matched, nil
	}
	label := Token{Prefix: tok.Prefix, Name: intern.Intern(tok.Name[:idx])}
	if !ctx.Node().matchesLabel(label) {
		return NotMatched, nil
	}

	value := tok.Name[idx+len(v.sep):]
	if value == "" {
		return NotMatched, NewParseError(KindMissingValueSeparator, tok)
	}
	s.ReplaceAt(start, label)
	s.Insert(1, Raw(value))
	return Matched, nil
}

func (v valueSeparator) check(owner *Node) error {
	if owner.minCount != 1 || owner.maxCount != 1 {
		return buildErrorf(owner, "value separator requires a fixed count of 1")
	}
	if owner.longName == "" && owner.shortName == "" {
		return buildErrorf(owner, "value separator requires a long or short name")
	}
	if v.sep == "" || strings.TrimSpace(v.sep) != v.sep {
		return buildErrorf(owner, "value separator must not be empty or whitespace")
	}
	return nil
}

// ValueSeparator accepts --name<sep>value. An empty sep means "=".
func ValueSeparator(sep string) Option {
	if sep == "" {
		sep = "="
	}
	return With(valueSeparator{sep: sep})
}

type shortFormExpander struct{}

func (shortFormExpander) Priority() int { return PriorityShortFormExpander }

func (shortFormExpander) PreParse(ctx *PreParseContext) (PreParseResult, error) {
	s := ctx.Stream
	if s.PendingLen() == 0 {
		return Matched, nil
	}
	start := s.ProcessedLen()
	tok := s.At(start).Reclassify()
	if tok.Prefix != PrefixShort {
		return Matched, nil
	}

	clusters := fuzzy.Clusters(tok.Name)
	if len(clusters) < 2 {
		return Matched, nil
	}

	s.ReplaceAt(start, Token{Prefix: PrefixShort, Name: intern.Intern(clusters[0])})
	rest := make([]Token, 0, len(clusters)-1)
	for _, c := range clusters[1:] {
		rest = append(rest, Token{Prefix: PrefixShort, Name: intern.Intern(c)})
	}
	s.Insert(1, rest...)
	return Matched, nil
}

func (shortFormExpander) check(owner *Node) error {
	if owner.shortName == "" {
		return buildErrorf(owner, "short-form expansion requires a short name")
	}
	if fuzzy.Count(owner.shortName) != 1 {
		return buildErrorf(owner, "short name must be a single character for short-form expansion")
	}
	return nil
}

// ShortFormExpander lets the node's short name appear inside bundled short
// flags such as -abc.
func ShortFormExpander() Option {
	return With(shortFormExpander{})
}

type runtimeEnable struct {
	enabled bool
}

func (runtimeEnable) Priority() int { return PriorityRuntimeEnable }

func (r runtimeEnable) PreParse(*PreParseContext) (PreParseResult, error) {
	if !r.enabled {
		return NotMatched, nil
	}
	return Matched, nil
}

// runtimeEnableRequired adds the missing phase to runtimeEnable.
type runtimeEnableRequired struct {
	runtimeEnable
	fallback any
}

func (r runtimeEnableRequired) Missing(ancestors []*Node) (any, error) {
	if r.enabled {
		return nil, NewParseError(KindMissingRequiredArgument, ancestors[0].label())
	}
	return r.fallback, nil
}

func (r runtimeEnableRequired) check(owner *Node) error {
	return defaultCap{value: r.fallback}.check(owner)
}

// RuntimeEnable turns the node on or off for every parse of the tree. A
// disabled node never matches and is left out of suggestions.
func RuntimeEnable(enabled bool) Option {
	return func(n *Node) {
		n.enabled = enabled
		n.caps = append(n.caps, runtimeEnable{enabled: enabled})
	}
}

// RuntimeEnableRequired is RuntimeEnable for a node that is required while
// enabled. When disabled, fallback is routed instead.
func RuntimeEnableRequired(enabled bool, fallback any) Option {
	return func(n *Node) {
		n.enabled = enabled
		n.caps = append(n.caps, runtimeEnableRequired{runtimeEnable: runtimeEnable{enabled: enabled}, fallback: fallback})
	}
}

type dependent struct {
	names []string
	nodes []*Node
}

func (*dependent) Priority() int { return PriorityDependent }

func (d *dependent) PreParse(ctx *PreParseContext) (PreParseResult, error) {
	for _, dep := range d.nodes {
		if !ctx.Matched(dep) {
			return NotMatched, NewParseError(KindDependentArgumentMissing, ctx.Target.label)
		}
	}
	return Matched, nil
}

func (d *dependent) check(owner *Node) error {
	mode := owner.nearestMode()
	d.nodes = d.nodes[:0]
	for _, name := range d.names {
		target, err := findByName(mode, ClassifyToken(name))
		if err != nil {
			return buildErrorf(owner, "dependency %s: %v", name, err)
		}
		if target == owner {
			return buildErrorf(owner, "node cannot depend on itself")
		}
		d.nodes = append(d.nodes, target)
	}
	return nil
}

// Dependent requires the named nodes (e.g. "--input") to appear before this
// one on the command line.
func Dependent(names ...string) Option {
	return func(n *Node) {
		n.caps = append(n.caps, &dependent{names: slices.Clone(names)})
	}
}
