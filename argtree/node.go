package argtree

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
)

type nodeKind int

const (
	kindRoot nodeKind = iota
	kindMode
	kindFlag
	kindCountingFlag
	kindArg
	kindMultiArg
	kindPositional
	kindForwarding
	kindOneOf
	kindAliasGroup
)

var kindNames = map[nodeKind]string{
	kindRoot:         "root",
	kindMode:         "mode",
	kindFlag:         "flag",
	kindCountingFlag: "counting flag",
	kindArg:          "arg",
	kindMultiArg:     "multi arg",
	kindPositional:   "positional arg",
	kindForwarding:   "forwarding arg",
	kindOneOf:        "one of",
	kindAliasGroup:   "alias group",
}

const unbounded = -1

// Item is anything accepted by a node constructor: child nodes and options.
type Item interface {
	applyTo(n *Node)
}

// Option configures the node it is passed to.
type Option func(n *Node)

func (o Option) applyTo(n *Node) { o(n) }

func (n *Node) applyTo(parent *Node) {
	parent.children = append(parent.children, n)
}

// Node is an element of the parse tree. Nodes are assembled with the
// constructors in this package and become read-only once New succeeds.
type Node struct {
	kind nodeKind

	longName    string
	shortName   string
	noneName    string
	displayName string
	description string

	valueType reflect.Type
	minCount  int
	maxCount  int
	endMarker string
	enabled   bool

	caps     []Capability
	children []*Node
	parent   *Node

	implicitDefault any
	hasImplicit     bool
	logger          *slog.Logger
	registry        *Registry

	// filled by the structural pass
	preParsers []PreParser
	parser     Parser
	validators []Validator
	missing    MissingHandler
	router     RoutingPhase
	mode       *modeLayout
	variant    bool
}

func newNode(kind nodeKind, t reflect.Type, items []Item) *Node {
	n := &Node{kind: kind, valueType: t, enabled: true}
	for _, it := range items {
		if it != nil {
			it.applyTo(n)
		}
	}
	return n
}

// LongName returns the double-dash name, or "".
func (n *Node) LongName() string { return n.longName }

// ShortName returns the single-dash name, or "".
func (n *Node) ShortName() string { return n.shortName }

// NoneName returns the bare label (mode names), or "".
func (n *Node) NoneName() string { return n.noneName }

// DisplayName returns the name shown for positional nodes, or "".
func (n *Node) DisplayName() string { return n.displayName }

// Description returns the help text.
func (n *Node) Description() string { return n.description }

// Children returns the child nodes in declaration order.
func (n *Node) Children() []*Node { return append([]*Node(nil), n.children...) }

// Enabled reports the runtime enable state.
func (n *Node) Enabled() bool { return n.enabled }

// ValueType returns the type of the value routed for this node. Modes report
// nil.
func (n *Node) ValueType() reflect.Type { return n.valueType }

// Kind returns a readable name of the node type.
func (n *Node) Kind() string { return kindNames[n.kind] }

// Capabilities returns the attached capabilities.
func (n *Node) Capabilities() []Capability { return append([]Capability(nil), n.caps...) }

// IsNamed reports whether the node carries any name form.
func (n *Node) IsNamed() bool {
	return n.longName != "" || n.shortName != "" || n.noneName != ""
}

// MinCount and MaxCount bound the number of value tokens. MaxCount is -1
// when unbounded.
func (n *Node) MinCount() int { return n.minCount }

func (n *Node) MaxCount() int { return n.maxCount }

func (n *Node) isMode() bool { return n.kind == kindMode || n.kind == kindRoot }

func (n *Node) isGroup() bool { return n.kind == kindOneOf || n.kind == kindAliasGroup }

func (n *Node) isPositional() bool { return n.kind == kindPositional }

func (n *Node) multiStage() bool { return n.kind == kindCountingFlag }

// countingGroup reports an alias group made only of counting flags, whose
// occurrences add up whichever alternative is used.
func (n *Node) countingGroup() bool {
	if n.kind != kindAliasGroup {
		return false
	}
	for _, c := range n.children {
		if !c.multiStage() {
			return false
		}
	}
	return true
}

func (n *Node) fixedCount() bool { return n.minCount == n.maxCount }

// label is the canonical token naming the node in messages.
func (n *Node) label() Token {
	switch {
	case n.isGroup():
		return Token{Prefix: PrefixNone, Name: n.groupLabel()}
	case n.longName != "":
		return Token{Prefix: PrefixLong, Name: n.longName}
	case n.shortName != "":
		return Token{Prefix: PrefixShort, Name: n.shortName}
	case n.displayName != "":
		return Token{Prefix: PrefixNone, Name: n.displayName}
	case n.noneName != "":
		return Token{Prefix: PrefixNone, Name: n.noneName}
	}
	return Token{Prefix: PrefixNone, Name: n.Kind()}
}

func (n *Node) groupLabel() string {
	names := make([]string, len(n.children))
	for i, c := range n.children {
		names[i] = c.label().String()
	}
	title := "One of"
	if n.kind == kindAliasGroup {
		title = "Alias Group"
	}
	return title + ": " + strings.Join(names, ",")
}

// String returns the node label.
func (n *Node) String() string { return n.label().String() }

// matchesLabel reports whether a classified token names n.
func (n *Node) matchesLabel(tok Token) bool {
	switch tok.Prefix {
	case PrefixLong:
		return n.longName != "" && tok.Name == n.longName
	case PrefixShort:
		return n.shortName != "" && tok.Name == n.shortName
	case PrefixNone:
		return n.noneName != "" && tok.Name == n.noneName
	}
	return false
}

func (n *Node) nearestMode() *Node {
	for p := n.parent; p != nil; p = p.parent {
		if p.isMode() {
			return p
		}
	}
	return nil
}

func (n *Node) ancestry() []*Node {
	var out []*Node
	for p := n; p != nil; p = p.parent {
		out = append(out, p)
	}
	return out
}

func (n *Node) effectiveRegistry() *Registry {
	for p := n; p != nil; p = p.parent {
		if p.registry != nil {
			return p.registry
		}
	}
	return DefaultRegistry
}

func (n *Node) effectiveLogger() *slog.Logger {
	for p := n; p != nil; p = p.parent {
		if p.logger != nil {
			return p.logger
		}
	}
	return discardLogger
}

func (n *Node) elementType() reflect.Type {
	if n.valueType != nil && n.valueType.Kind() == reflect.Slice {
		return n.valueType.Elem()
	}
	return n.valueType
}

// resolve runs the parse and validate phases for a matched target.
func (n *Node) resolve(inv *invocation, t *ParseTarget) (any, error) {
	var value any
	switch n.kind {
	case kindFlag:
		value = true
	case kindCountingFlag:
		value = 1
	default:
		v, err := n.parseTokens(t.tokens)
		if err != nil {
			return nil, err
		}
		value = v
	}

	ancestors := n.ancestry()
	for _, v := range n.validators {
		if err := v.Validate(value, ancestors); err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				return nil, err
			}
			return nil, NewParseError(KindValidationFailed, t.label).WithCause(err)
		}
	}

	inv.logger.Debug("argtree: resolved", "node", n.String(), "value", value)
	return value, nil
}

func (n *Node) parseTokens(tokens []Token) (any, error) {
	if n.valueType.Kind() != reflect.Slice {
		if len(tokens) != 1 {
			return nil, NewParseError(KindFailedToParse, tokens...)
		}
		return n.parseOne(n.valueType, tokens[0].Name)
	}

	out := reflect.MakeSlice(n.valueType, 0, len(tokens))
	for _, tok := range tokens {
		v, err := n.parseOne(n.valueType.Elem(), tok.Name)
		if err != nil {
			return nil, err
		}
		out = reflect.Append(out, valueOf(v, n.valueType.Elem()))
	}
	return out.Interface(), nil
}

func (n *Node) parseOne(t reflect.Type, text string) (any, error) {
	var (
		v   any
		err error
	)
	if n.parser != nil {
		v, err = n.parser.Parse(text, n)
	} else {
		v, err = n.effectiveRegistry().Convert(t, text)
	}
	if err == nil {
		return v, nil
	}

	var pe *ParseError
	switch {
	case errors.As(err, &pe):
		return nil, err
	case errors.Is(err, ErrOutOfRange):
		return nil, NewParseError(KindValueOutOfRange, Raw(text)).WithCause(err)
	}
	return nil, NewParseError(KindFailedToParse, Raw(text)).WithCause(err)
}

// valueOf converts v to t for reflective assembly; nil becomes the zero value.
func valueOf(v any, t reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(t)
	}
	rv := reflect.ValueOf(v)
	if rv.Type() != t && rv.Type().ConvertibleTo(t) {
		return rv.Convert(t)
	}
	return rv
}

func (n *Node) describe() string {
	return fmt.Sprintf("%s %s", n.Kind(), n.label())
}
