package argtree

import "slices"

// ParseTarget binds a node to the value tokens it consumed. Sub-targets let
// one match feed other nodes (see Alias). A target is invoked at most once.
type ParseTarget struct {
	node       *Node
	label      Token
	tokens     []Token
	subTargets []*ParseTarget
	deferred   bool
	invoked    bool
}

func newTarget(n *Node, label Token) *ParseTarget {
	return &ParseTarget{node: n, label: label}
}

// Node returns the node the target resolves.
func (t *ParseTarget) Node() *Node { return t.node }

// Label returns the token that selected the node.
func (t *ParseTarget) Label() Token { return t.label }

// Tokens returns a copy of the consumed value tokens.
func (t *ParseTarget) Tokens() []Token { return slices.Clone(t.tokens) }

// SetTokens replaces the value tokens.
func (t *ParseTarget) SetTokens(tokens []Token) { t.tokens = slices.Clone(tokens) }

// SubTargets returns the delegated targets.
func (t *ParseTarget) SubTargets() []*ParseTarget { return slices.Clone(t.subTargets) }

// AddSubTarget delegates tokens to n.
func (t *ParseTarget) AddSubTarget(n *Node, tokens []Token) *ParseTarget {
	sub := newTarget(n, n.label())
	sub.tokens = slices.Clone(tokens)
	t.subTargets = append(t.subTargets, sub)
	return sub
}

// Invoked reports whether the target already ran.
func (t *ParseTarget) Invoked() bool { return t.invoked }

// invoke parses and records the target's value, then its sub-targets.
// Repeated calls do nothing.
func (t *ParseTarget) invoke(inv *invocation, ms *modeState) error {
	if t.invoked {
		return nil
	}
	t.invoked = true

	if !t.deferred {
		value, err := t.node.resolve(inv, t)
		if err != nil {
			return err
		}
		if err := ms.record(inv, t.node, value, t.label); err != nil {
			return err
		}
	}

	for _, sub := range t.subTargets {
		if err := sub.invoke(inv, ms); err != nil {
			return err
		}
	}
	return nil
}
