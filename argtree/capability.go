package argtree

import (
	"cmp"
	"slices"
)

// Capability is a unit of behaviour attached to a node. A capability takes
// part in parsing by also implementing one or more of PreParser, Parser,
// Validator, MissingHandler and RoutingPhase.
type Capability interface {
	// Priority orders pre-parse execution; higher runs first.
	Priority() int
}

// Built-in pre-parse priorities.
const (
	PriorityValueSeparator    = 1000
	PriorityShortFormExpander = 900
	PriorityRuntimeEnable     = 800
	PriorityLabel             = 500
	PriorityDependent         = 400
	PriorityAlias             = 100
)

// PreParseResult is the outcome of a pre-parse hook.
type PreParseResult int

const (
	// NotMatched skips the node for the current leading tokens.
	NotMatched PreParseResult = iota
	// Matched accepts the node; its own value is parsed from the target.
	Matched
	// MatchedDeferred accepts the node but only its sub-targets produce values.
	MatchedDeferred
)

func (r PreParseResult) String() string {
	switch r {
	case Matched:
		return "matched"
	case MatchedDeferred:
		return "matched_deferred"
	case NotMatched:
		return "not_matched"
	}
	return "unknown"
}

// PreParseContext is handed to every pre-parse hook of a node.
type PreParseContext struct {
	// Stream is a speculative copy of the invocation's tokens. Mutations are
	// kept only if the node ends up matching.
	Stream *TokenStream
	// Ancestors starts with the owning node and ends at the root.
	Ancestors []*Node
	// Target collects what the node consumed.
	Target *ParseTarget

	inv *invocation
}

// Node returns the node owning the hook.
func (c *PreParseContext) Node() *Node { return c.Ancestors[0] }

// Matched reports whether n already produced a value earlier in the same
// parse call.
func (c *PreParseContext) Matched(n *Node) bool { return c.inv.matched[n] }

// PreParser inspects and may rewrite the leading pending tokens.
type PreParser interface {
	Capability
	PreParse(ctx *PreParseContext) (PreParseResult, error)
}

// Parser converts one token of text into a value. For slice-valued nodes it
// is called once per element.
type Parser interface {
	Capability
	Parse(text string, owner *Node) (any, error)
}

// Validator checks a parsed value. ancestors starts with the owning node.
type Validator interface {
	Capability
	Validate(value any, ancestors []*Node) error
}

// MissingHandler supplies a value for a node that never matched.
type MissingHandler interface {
	Capability
	Missing(ancestors []*Node) (any, error)
}

// RoutingPhase receives the resolved values of a mode in declaration order.
// ancestors starts with the mode.
type RoutingPhase interface {
	Capability
	Route(values []any, ancestors []*Node) error
}

// runPreParse executes the hooks by descending priority. The first
// NotMatched wins; MatchedDeferred survives later Matched results.
func runPreParse(ctx *PreParseContext, hooks []PreParser) (PreParseResult, error) {
	result := Matched
	for _, h := range hooks {
		r, err := h.PreParse(ctx)
		if err != nil {
			return NotMatched, err
		}
		switch r {
		case NotMatched:
			return NotMatched, nil
		case MatchedDeferred:
			result = MatchedDeferred
		case Matched:
		}
	}
	return result, nil
}

func sortByPriority(hooks []PreParser) {
	slices.SortStableFunc(hooks, func(a, b PreParser) int {
		return cmp.Compare(b.Priority(), a.Priority())
	})
}
