package argtree

import (
	"fmt"
	"log/slog"
	"slices"
)

// modeLayout is the precomputed view of a mode's children.
type modeLayout struct {
	// scan lists argument-like children in declaration order.
	scan []*Node
	// routed lists the children that own a value slot.
	routed []*Node
	// slotOf maps routed children and group alternatives to their slot.
	slotOf map[*Node]int
	// altOf maps group alternatives to their index inside the group.
	altOf    map[*Node]int
	subModes []*Node
}

func layoutMode(m *Node) *modeLayout {
	l := &modeLayout{
		slotOf: make(map[*Node]int),
		altOf:  make(map[*Node]int),
	}
	for _, c := range m.children {
		if c.isMode() {
			l.subModes = append(l.subModes, c)
			continue
		}
		l.scan = append(l.scan, c)
		if c.aliasCap() != nil {
			continue
		}
		idx := len(l.routed)
		l.routed = append(l.routed, c)
		l.slotOf[c] = idx
		if c.isGroup() {
			for i, alt := range c.children {
				l.slotOf[alt] = idx
				l.altOf[alt] = i
			}
		}
	}
	return l
}

type slot struct {
	set   bool
	value any
}

// modeState holds the slots of one mode for one parse call.
type modeState struct {
	mode   *Node
	layout *modeLayout
	slots  []slot
}

func (ms *modeState) filled(n *Node) bool {
	idx, ok := ms.layout.slotOf[n]
	return ok && ms.slots[idx].set
}

// unsetRemains reports whether a child of the mode still has no value.
func (ms *modeState) unsetRemains() bool {
	for i := range ms.slots {
		if !ms.slots[i].set {
			return true
		}
	}
	return false
}

// record stores value for node, enforcing single assignment and one-of
// exclusivity.
func (ms *modeState) record(inv *invocation, n *Node, value any, label Token) error {
	idx, ok := ms.layout.slotOf[n]
	if !ok {
		return fmt.Errorf("argtree: %s has no value slot in %s", n, ms.mode)
	}
	owner := ms.layout.routed[idx]
	sl := &ms.slots[idx]

	if owner.isGroup() {
		first, seen := inv.firstAlt[owner]
		if seen && first != n && owner.kind == kindOneOf {
			return NewParseError(KindOneOfTypeMismatch, label)
		}
		if !seen {
			inv.firstAlt[owner] = n
		}
		if owner.variant {
			value = Variant{Index: ms.layout.altOf[n], Value: value}
		}
	}

	if sl.set {
		if n.multiStage() && (owner == n || inv.firstAlt[owner] == n || owner.countingGroup()) {
			inv.matched[n] = true
			return addCount(sl, n, value, label)
		}
		return NewParseError(KindArgumentAlreadySet, label)
	}

	sl.set = true
	sl.value = value
	inv.matched[n] = true
	return nil
}

// addCount sums a repeated counting flag into its slot. Counts held by a
// variant keep the variant's index.
func addCount(sl *slot, n *Node, value any, label Token) error {
	prev, add := sl.value, value
	v, variant := prev.(Variant)
	if variant {
		prev = v.Value
	}
	if a, ok := add.(Variant); ok {
		add = a.Value
	}

	total := prev.(int) + add.(int)
	if n.maxCount != unbounded && total > n.maxCount {
		return NewParseError(KindMaximumCountExceeded, label)
	}
	if variant {
		sl.value = Variant{Index: v.Index, Value: total}
		return nil
	}
	sl.value = total
	return nil
}

// invocation is the state of a single Parse call. The tree itself is never
// written to, so one tree can serve concurrent parses.
type invocation struct {
	logger   *slog.Logger
	matched  map[*Node]bool
	firstAlt map[*Node]*Node
}

func newInvocation(logger *slog.Logger) *invocation {
	return &invocation{
		logger:   logger,
		matched:  make(map[*Node]bool),
		firstAlt: make(map[*Node]*Node),
	}
}

func prepend(n *Node, rest []*Node) []*Node {
	out := make([]*Node, 0, len(rest)+1)
	out = append(out, n)
	return append(out, rest...)
}

// parseMode drives matching for mode. ancestors starts with mode.
func (inv *invocation) parseMode(mode *Node, s *TokenStream, ancestors []*Node) error {
	layout := mode.mode

	if s.PendingLen() > 0 {
		first := s.At(s.ProcessedLen()).Reclassify()
		for _, sub := range layout.subModes {
			if !sub.enabled || !sub.matchesLabel(first) {
				continue
			}
			s.ReplaceAt(s.ProcessedLen(), first)
			if err := s.Transfer(1); err != nil {
				return err
			}
			inv.logger.Debug("argtree: entering mode", "mode", sub.noneName)
			return inv.parseMode(sub, s, prepend(sub, ancestors))
		}
	}

	if mode.router == nil {
		if s.PendingLen() == 0 {
			if mode.kind == kindRoot {
				return NewParseError(KindNoArgumentsPassed)
			}
			return NewParseError(KindModeRequiresArguments, mode.label())
		}
		return unknownArgument(mode, s.At(s.ProcessedLen()).Reclassify())
	}

	ms := &modeState{mode: mode, layout: layout, slots: make([]slot, len(layout.routed))}
	start := s.ProcessedLen()

	for s.PendingLen() > 0 {
		target, err := inv.matchChild(ms, s, ancestors)
		if err != nil {
			return err
		}
		if target == nil {
			break
		}
		if err := target.invoke(inv, ms); err != nil {
			return err
		}
	}

	if s.PendingLen() > 0 {
		// leftovers are unhandled only once every child holds a value
		first := s.At(s.ProcessedLen()).Reclassify()
		if ms.unsetRemains() || (len(layout.subModes) > 0 && s.ProcessedLen() == start) {
			return unknownArgument(mode, first)
		}
		return NewParseError(KindUnhandledArguments, slices.Clone(s.Pending())...)
	}

	values := make([]any, len(layout.routed))
	for i, n := range layout.routed {
		if ms.slots[i].set {
			values[i] = ms.slots[i].value
			continue
		}
		if n.missing == nil {
			return NewParseError(KindMissingRequiredArgument, n.label())
		}
		v, err := n.missing.Missing(n.ancestry())
		if err != nil {
			return err
		}
		if v != nil && n.valueType != nil {
			v = valueOf(v, n.valueType).Interface()
		}
		inv.logger.Debug("argtree: missing phase", "node", n.String(), "value", v)
		values[i] = v
	}

	inv.logger.Debug("argtree: routing", "mode", mode.String(), "values", len(values))
	return mode.router.Route(values, ancestors)
}

// matchChild returns the target of the first child accepting the leading
// tokens, or nil when none does.
func (inv *invocation) matchChild(ms *modeState, s *TokenStream, ancestors []*Node) (*ParseTarget, error) {
	for _, child := range ms.layout.scan {
		if child.isGroup() {
			groupAncestors := prepend(child, ancestors)
			for _, alt := range child.children {
				target, err := inv.tryNode(alt, s, prepend(alt, groupAncestors))
				if err != nil || target != nil {
					return target, err
				}
			}
			continue
		}

		if child.isPositional() && ms.filled(child) {
			continue
		}
		target, err := inv.tryNode(child, s, prepend(child, ancestors))
		if err != nil || target != nil {
			return target, err
		}
	}
	return nil, nil
}

// tryNode runs n's pre-parse hooks against a fork of s and keeps the fork
// only if n matched.
func (inv *invocation) tryNode(n *Node, s *TokenStream, ancestors []*Node) (*ParseTarget, error) {
	fork := s.fork()
	target := newTarget(n, n.label())
	ctx := &PreParseContext{Stream: fork, Ancestors: ancestors, Target: target, inv: inv}

	res, err := runPreParse(ctx, n.preParsers)
	if err != nil || res == NotMatched {
		fork.release()
		return nil, err
	}

	fork.commit(s)
	target.deferred = res == MatchedDeferred
	inv.logger.Debug("argtree: matched", "node", n.String(), "result", res.String(), "tokens", len(target.tokens))
	return target, nil
}
