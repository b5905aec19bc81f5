package argtree

import (
	"errors"
	"reflect"
)

// build links parents, resolves capabilities and runs every structural check
// once. All problems found are returned together.
func build(root *Node) error {
	link(root, nil)

	var errs []error
	var modes []*Node
	var visit func(n *Node)
	visit = func(n *Node) {
		errs = append(errs, checkNode(n)...)
		if n.isMode() {
			modes = append(modes, n)
		}
		for _, c := range n.children {
			visit(c)
		}
	}
	visit(root)
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	for _, m := range modes {
		m.mode = layoutMode(m)
		errs = append(errs, checkMode(m)...)
	}
	return errors.Join(errs...)
}

func link(n, parent *Node) {
	n.parent = parent
	for _, c := range n.children {
		link(c, n)
	}
}

type binder interface {
	bind(owner *Node, types []reflect.Type) error
}

func checkNode(n *Node) []error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, buildErrorf(n, format, args...))
	}

	if n.isGroup() {
		if err := resolveGroupType(n); err != nil {
			errs = append(errs, err)
		}
	}

	var parsers, missings, routers int
	var required, runtimeGate bool
	n.preParsers, n.validators = nil, nil
	n.parser, n.missing, n.router = nil, nil, nil

	for _, c := range n.caps {
		if c == nil {
			fail("nil capability")
			continue
		}
		if pp, ok := c.(PreParser); ok {
			n.preParsers = append(n.preParsers, pp)
		}
		if p, ok := c.(Parser); ok {
			n.parser = p
			parsers++
		}
		if v, ok := c.(Validator); ok {
			n.validators = append(n.validators, v)
		}
		if m, ok := c.(MissingHandler); ok {
			n.missing = m
			missings++
		}
		if r, ok := c.(RoutingPhase); ok {
			n.router = r
			routers++
		}
		switch c.(type) {
		case requiredCap:
			required = true
		case runtimeEnable:
			runtimeGate = true
		}
		if sc, ok := c.(structuralCheck); ok {
			if err := sc.check(n); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if parsers > 1 {
		fail("more than one parse-phase capability")
	}
	if missings > 1 {
		fail("more than one missing-phase capability (default value and required cannot be combined)")
	}
	if routers > 1 {
		fail("more than one routing capability")
	}
	if required && runtimeGate {
		fail("runtime enable cannot be combined with required, use RuntimeEnableRequired")
	}
	if missings == 0 && n.hasImplicit {
		n.missing = defaultCap{value: n.implicitDefault}
	}

	switch {
	case n.kind == kindRoot:
		if n.IsNamed() {
			fail("the root cannot be named")
		}
		errs = append(errs, checkModeCaps(n)...)
	case n.kind == kindMode:
		if n.noneName == "" || n.longName != "" || n.shortName != "" {
			fail("a nested mode needs a none name and nothing else")
		}
		if n.parent == nil || !n.parent.isMode() {
			fail("modes can only be children of modes")
		}
		errs = append(errs, checkModeCaps(n)...)
	case n.isGroup():
		errs = append(errs, checkGroup(n)...)
	default:
		errs = append(errs, checkLeaf(n)...)
		n.preParsers = append(n.preParsers, labelMatcher{})
	}

	sortByPriority(n.preParsers)
	return errs
}

func checkModeCaps(n *Node) []error {
	var errs []error
	if n.parser != nil || n.missing != nil || len(n.validators) > 0 {
		errs = append(errs, buildErrorf(n, "modes only accept routing and pre-parse capabilities"))
	}
	if n.router == nil {
		onlyModes := len(n.children) > 0
		for _, c := range n.children {
			if !c.isMode() {
				onlyModes = false
			}
		}
		if !onlyModes {
			errs = append(errs, buildErrorf(n, "a mode needs a router unless all its children are modes"))
		}
	}
	return errs
}

func resolveGroupType(n *Node) error {
	var types []reflect.Type
	for _, c := range n.children {
		if c.valueType == nil {
			continue
		}
		dup := false
		for _, t := range types {
			if t == c.valueType {
				dup = true
			}
		}
		if !dup {
			types = append(types, c.valueType)
		}
	}

	switch {
	case len(types) == 1:
		n.valueType = types[0]
		n.variant = false
	case len(types) > 1 && n.kind == kindAliasGroup:
		return buildErrorf(n, "alias group children must share one value type")
	case len(types) > 1:
		n.valueType = reflect.TypeFor[Variant]()
		n.variant = true
	}
	return nil
}

func checkGroup(n *Node) []error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, buildErrorf(n, format, args...))
	}

	if len(n.children) < 2 {
		fail("%s needs at least two children", n.Kind())
	}
	if n.IsNamed() || n.displayName != "" {
		fail("%s cannot be named", n.Kind())
	}
	if n.parent == nil || !n.parent.isMode() {
		fail("%s must be a direct child of a mode", n.Kind())
	}
	if n.missing == nil {
		fail("%s needs Required or DefaultValue", n.Kind())
	}
	if len(n.preParsers) > 0 || n.parser != nil || len(n.validators) > 0 || n.router != nil {
		fail("%s only accepts missing-phase capabilities", n.Kind())
	}
	for _, c := range n.children {
		switch {
		case c.isMode() || c.isGroup() || c.isPositional():
			fail("%s cannot contain a %s", n.Kind(), c.Kind())
		case !c.IsNamed():
			fail("%s children must be named", n.Kind())
		case c.aliasCap() != nil:
			fail("%s children cannot carry an alias", n.Kind())
		case c.multiStage() && hasValidator(c):
			fail("counting %s children cannot carry validators", n.Kind())
		}
	}
	return errs
}

// hasValidator looks at the raw capabilities since children are checked
// after their group.
func hasValidator(n *Node) bool {
	for _, c := range n.caps {
		if _, ok := c.(Validator); ok {
			return true
		}
	}
	return false
}

func checkLeaf(n *Node) []error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, buildErrorf(n, format, args...))
	}

	if n.router != nil {
		fail("only modes can route")
	}
	if n.parent == nil {
		fail("argument used outside a mode")
	}

	if n.isPositional() {
		if n.IsNamed() {
			fail("positional arguments cannot have long, short or none names")
		}
		if n.parent != nil && !n.parent.isMode() {
			fail("positional arguments must be direct children of a mode")
		}
	} else if n.longName == "" && n.shortName == "" && n.noneName == "" {
		fail("%s requires a long, short or none name", n.Kind())
	}

	if n.minCount < 0 || (n.maxCount != unbounded && n.maxCount < n.minCount) {
		fail("invalid value count %d..%d", n.minCount, n.maxCount)
	}

	switch n.kind {
	case kindArg, kindMultiArg, kindPositional, kindForwarding:
		if n.valueType.Kind() != reflect.Slice && n.maxCount != 1 {
			fail("value type %s cannot hold more than one value", n.valueType)
		}
		if n.maxCount == 0 {
			fail("%s must accept at least one value", n.Kind())
		}
		if n.parser == nil && n.aliasCap() == nil && !n.effectiveRegistry().Supports(n.valueType) {
			fail("no converter for %s", n.valueType)
		}
	case kindFlag, kindCountingFlag:
		if n.parser != nil {
			fail("flags take no value to parse")
		}
		if n.endMarker != "" {
			fail("flags cannot use a token end marker")
		}
	}
	return errs
}

// checkMode validates what can only be known once the whole mode is laid
// out: name clashes, alias cycles and the router signature.
func checkMode(m *Node) []error {
	var errs []error
	l := m.mode

	seen := make(map[Token]*Node)
	claim := func(n *Node) {
		for _, name := range n.names() {
			if other, ok := seen[name]; ok && other != n {
				errs = append(errs, buildErrorf(n, "name %s already used by %s", name, other.describe()))
				continue
			}
			seen[name] = n
		}
	}
	for _, c := range l.scan {
		claim(c)
		if c.isGroup() {
			for _, alt := range c.children {
				claim(alt)
			}
		}
	}
	for _, sub := range l.subModes {
		claim(sub)
	}

	var sources []*Node
	for _, c := range l.scan {
		if c.aliasCap() != nil {
			sources = append(sources, c)
		}
	}
	if err := checkAliasCycles(sources); err != nil {
		errs = append(errs, err)
	}

	if b, ok := m.router.(binder); ok {
		types := make([]reflect.Type, len(l.routed))
		for i, n := range l.routed {
			types[i] = n.valueType
		}
		if err := b.bind(m, types); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
