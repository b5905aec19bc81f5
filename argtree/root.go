package argtree

import (
	"io"
	"log/slog"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Root is a built, immutable parse tree. A Root may be shared by concurrent
// Parse calls.
type Root struct {
	node *Node
}

// New assembles the root mode from items and runs the structural checks.
// Every problem found is reported in the returned error.
func New(items ...Item) (*Root, error) {
	n := newNode(kindRoot, nil, items)
	if err := build(n); err != nil {
		return nil, err
	}
	return &Root{node: n}, nil
}

// MustNew is New that panics on a malformed tree. Intended for package level
// variables and tests.
func MustNew(items ...Item) *Root {
	r, err := New(items...)
	if err != nil {
		panic(err)
	}
	return r
}

// Parse matches args (without the program name) against the tree and calls
// the router of the selected mode. Parse errors are *ParseError; router
// errors are returned unchanged.
func (r *Root) Parse(args []string) error {
	logger := r.node.effectiveLogger()
	inv := newInvocation(logger)
	s := NewTokenStream(args)
	logger.Debug("argtree: parse", "args", len(args))
	return inv.parseMode(r.node, s, []*Node{r.node})
}

// Node returns the root node for introspection.
func (r *Root) Node() *Node { return r.node }

// Walk visits every node in pre-order. Returning false from fn skips the
// node's children.
func (r *Root) Walk(fn func(n *Node, depth int) bool) {
	var visit func(n *Node, depth int)
	visit = func(n *Node, depth int) {
		if !fn(n, depth) {
			return
		}
		for _, c := range n.children {
			visit(c, depth+1)
		}
	}
	visit(r.node, 0)
}

// Parent returns the enclosing node, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// WithLogger sets the logger used by the node and everything below it.
// Parsing logs at debug level only.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Node) {
		n.logger = logger
	}
}

// WithRegistry sets the converters used by the node and everything below it.
func WithRegistry(r *Registry) Option {
	return func(n *Node) {
		n.registry = r
	}
}
