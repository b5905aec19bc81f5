package argtree

import (
	"fmt"
	"slices"
)

// aliasCap redirects a node's match to other nodes in the same mode. The
// source itself never produces a routed value.
type aliasCap struct {
	names   []string
	targets []*Node
}

func (*aliasCap) Priority() int { return PriorityAlias }

func (a *aliasCap) PreParse(ctx *PreParseContext) (PreParseResult, error) {
	s := ctx.Stream
	values := ctx.Target.tokens

	expandAlias(ctx.Target, a, values)

	labelIdx := s.ProcessedLen() - len(values) - 1
	if labelIdx >= 0 {
		s.Erase(labelIdx, labelIdx+1)
	}
	return MatchedDeferred, nil
}

func expandAlias(t *ParseTarget, a *aliasCap, values []Token) {
	for _, target := range a.targets {
		sub := t.AddSubTarget(target, values)
		if nested := target.aliasCap(); nested != nil {
			sub.deferred = true
			expandAlias(sub, nested, values)
		}
	}
}

func (a *aliasCap) check(owner *Node) error {
	if !owner.fixedCount() {
		return buildErrorf(owner, "alias requires a fixed value count")
	}
	if owner.endMarker != "" {
		return buildErrorf(owner, "alias cannot be combined with a token end marker")
	}
	if len(a.names) == 0 {
		return buildErrorf(owner, "alias needs at least one target")
	}

	mode := owner.nearestMode()
	seen := make(map[*Node]bool, len(a.names))
	a.targets = a.targets[:0]
	for _, name := range a.names {
		target, err := findByName(mode, ClassifyToken(name))
		if err != nil {
			return buildErrorf(owner, "alias target %s: %v", name, err)
		}
		if target == owner {
			return buildErrorf(owner, "alias cannot target itself")
		}
		if seen[target] {
			return buildErrorf(owner, "duplicate alias target %s", target)
		}
		seen[target] = true

		if !target.fixedCount() || target.minCount != owner.minCount {
			return buildErrorf(owner, "alias target %s value count differs from source", target)
		}
		a.targets = append(a.targets, target)
	}
	return nil
}

// Alias makes the node stand in for the named nodes of the same mode, e.g.
// Alias("--flag1", "-f"). Values following the alias label are handed to
// every target.
func Alias(names ...string) Option {
	// each node gets its own capability: targets are resolved per mode
	return func(n *Node) {
		n.caps = append(n.caps, &aliasCap{names: slices.Clone(names)})
	}
}

func (n *Node) aliasCap() *aliasCap {
	for _, c := range n.caps {
		if a, ok := c.(*aliasCap); ok {
			return a
		}
	}
	return nil
}

// findByName returns the single argument-like node of mode labelled tok.
// Nested modes are not searched.
func findByName(mode *Node, tok Token) (*Node, error) {
	var found []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		for _, c := range n.children {
			if c.isMode() {
				continue
			}
			if c.matchesLabel(tok) {
				found = append(found, c)
			}
			if c.isGroup() {
				walk(c)
			}
		}
	}
	if mode != nil {
		walk(mode)
	}

	switch len(found) {
	case 0:
		return nil, fmt.Errorf("no argument named %s", tok)
	case 1:
		return found[0], nil
	}
	return nil, fmt.Errorf("name %s is ambiguous", tok)
}

// checkAliasCycles rejects alias chains that lead back to a node already on
// the chain.
func checkAliasCycles(nodes []*Node) error {
	const (
		_ = iota
		visiting
		done
	)
	state := make(map[*Node]int)

	var visit func(n *Node) error
	visit = func(n *Node) error {
		switch state[n] {
		case visiting:
			return buildErrorf(n, "cyclic alias")
		case done:
			return nil
		}
		state[n] = visiting
		if a := n.aliasCap(); a != nil {
			for _, t := range a.targets {
				if err := visit(t); err != nil {
					return err
				}
			}
		}
		state[n] = done
		return nil
	}

	for _, n := range nodes {
		if err := visit(n); err != nil {
			return err
		}
	}
	return nil
}
