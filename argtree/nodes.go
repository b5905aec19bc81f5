package argtree

import (
	"reflect"
)

// Flag is a zero-arity boolean switch. It defaults to false unless Required
// or another missing-phase capability is attached.
func Flag(opts ...Option) *Node {
	n := leaf(kindFlag, reflect.TypeFor[bool](), 0, 0, opts)
	n.setImplicitDefault(false)
	return n
}

// CountingFlag is a flag whose repeated use adds up, e.g. -vvv routes 3.
// MaxCount limits the number of occurrences.
func CountingFlag(opts ...Option) *Node {
	n := leaf(kindCountingFlag, reflect.TypeFor[int](), 0, unbounded, opts)
	n.setImplicitDefault(0)
	return n
}

// Arg is a named argument followed by exactly one value token.
func Arg[T any](opts ...Option) *Node {
	return leaf(kindArg, reflect.TypeFor[T](), 1, 1, opts)
}

// MultiArg is a named argument collecting several values into a slice. The
// default count is one or more values.
func MultiArg[T any](opts ...Option) *Node {
	return leaf(kindMultiArg, reflect.TypeFor[[]T](), 1, unbounded, opts)
}

// PositionalArg is an unnamed value identified by its position in the mode.
// A scalar T takes exactly one token; use PositionalList for several.
func PositionalArg[T any](opts ...Option) *Node {
	return leaf(kindPositional, reflect.TypeFor[T](), 1, 1, opts)
}

// PositionalList collects any number of unnamed values into a slice. With a
// minimum count of zero it routes an empty slice when nothing matched.
func PositionalList[T any](opts ...Option) *Node {
	n := leaf(kindPositional, reflect.TypeFor[[]T](), 0, unbounded, opts)
	if n.minCount == 0 {
		n.setImplicitDefault([]T{})
	}
	return n
}

// ForwardingArg routes every token following its label verbatim as a
// []string. Absent, it routes an empty slice.
func ForwardingArg(opts ...Option) *Node {
	n := leaf(kindForwarding, reflect.TypeFor[[]string](), 0, unbounded, opts)
	n.setImplicitDefault([]string{})
	return n
}

// Mode groups arguments under a router. Nested modes are selected by their
// NoneName.
func Mode(items ...Item) *Node {
	return newNode(kindMode, nil, items)
}

// OneOf makes its children mutually exclusive contributors to a single
// value. With several distinct child types the routed value is a Variant.
func OneOf(items ...Item) *Node {
	return newNode(kindOneOf, nil, items)
}

// AliasGroup presents same-typed children as alternative spellings of one
// value.
func AliasGroup(items ...Item) *Node {
	return newNode(kindAliasGroup, nil, items)
}

// Variant is the value routed for a OneOf whose children differ in type.
type Variant struct {
	// Index is the position of the matched alternative among the children.
	Index int
	Value any
}

func (n *Node) setImplicitDefault(v any) {
	n.implicitDefault = v
	n.hasImplicit = true
}

func leaf(kind nodeKind, t reflect.Type, minimum, maximum int, opts []Option) *Node {
	n := &Node{kind: kind, valueType: t, enabled: true, minCount: minimum, maxCount: maximum}
	for _, o := range opts {
		if o != nil {
			o(n)
		}
	}
	return n
}

// LongName sets the double-dash name.
func LongName(name string) Option {
	return func(n *Node) { n.longName = name }
}

// ShortName sets the single-dash name.
func ShortName(name string) Option {
	return func(n *Node) { n.shortName = name }
}

// NoneName sets the bare label used to select a mode.
func NoneName(name string) Option {
	return func(n *Node) { n.noneName = name }
}

// DisplayName sets the name used for positional nodes in messages.
func DisplayName(name string) Option {
	return func(n *Node) { n.displayName = name }
}

// Description sets help text.
func Description(text string) Option {
	return func(n *Node) { n.description = text }
}

// MinMaxCount bounds the number of value tokens (or occurrences for a
// CountingFlag). Use -1 as max for no limit.
func MinMaxCount(minimum, maximum int) Option {
	return func(n *Node) {
		n.minCount, n.maxCount = minimum, maximum
	}
}

// FixedCount requires exactly count value tokens.
func FixedCount(count int) Option {
	return MinMaxCount(count, count)
}

// MinCount sets the lower bound on value tokens.
func MinCount(minimum int) Option {
	return func(n *Node) { n.minCount = minimum }
}

// MaxCount sets the upper bound on value tokens.
func MaxCount(maximum int) Option {
	return func(n *Node) { n.maxCount = maximum }
}

// TokenEndMarker makes a multi-value node stop at marker. The marker itself
// is consumed and must be present.
func TokenEndMarker(marker string) Option {
	return func(n *Node) { n.endMarker = marker }
}

// With attaches custom capabilities.
func With(caps ...Capability) Option {
	return func(n *Node) { n.caps = append(n.caps, caps...) }
}
