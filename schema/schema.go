// Package schema builds argtree parse trees from HCL documents.
//
// A document lists argument blocks in the order they are routed:
//
//	flag "force" {
//	  short = "f"
//	}
//
//	mode "copy" {
//	  router = "copy"
//
//	  positional "source" {}
//	  positional "destination" {}
//	}
//
// Router names are resolved against the Bindings passed to Load.
package schema

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/dzonerzy/go-argtree/argtree"
	"github.com/dzonerzy/go-argtree/middleware"
)

// Bindings maps router names used in a document to Go functions. A value is
// either a typed router accepted by argtree.Router or a func([]any) error.
type Bindings map[string]any

// Option configures Load.
type Option func(*loader)

// WithMiddleware wraps every bound router with mws.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(l *loader) { l.middleware = append(l.middleware, mws...) }
}

// WithLogger sets the logger of the resulting tree.
func WithLogger(logger *slog.Logger) Option {
	return func(l *loader) { l.logger = logger }
}

// WithRegistry sets the registry used for string defaults and for parsing.
func WithRegistry(r *argtree.Registry) Option {
	return func(l *loader) { l.registry = r }
}

// Load parses src as HCL and builds the tree it describes. Problems in the
// document are returned as hcl.Diagnostics.
func Load(filename string, src []byte, bindings Bindings, opts ...Option) (*argtree.Root, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diags
	}
	return newLoader(bindings, opts).load(file)
}

// LoadFile is Load for a document on disk.
func LoadFile(path string, bindings Bindings, opts ...Option) (*argtree.Root, error) {
	file, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, diags
	}
	return newLoader(bindings, opts).load(file)
}

var childSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "flag", LabelNames: []string{"name"}},
		{Type: "counting_flag", LabelNames: []string{"name"}},
		{Type: "arg", LabelNames: []string{"name"}},
		{Type: "multi_arg", LabelNames: []string{"name"}},
		{Type: "positional", LabelNames: []string{"name"}},
		{Type: "forwarding", LabelNames: []string{"name"}},
		{Type: "one_of"},
		{Type: "alias_group"},
		{Type: "mode", LabelNames: []string{"name"}},
	},
}

type modeAttrs struct {
	Description string   `hcl:"description,optional"`
	Router      string   `hcl:"router,optional"`
	Enabled     *bool    `hcl:"enabled,optional"`
	Remain      hcl.Body `hcl:",remain"`
}

type groupAttrs struct {
	Required bool       `hcl:"required,optional"`
	Default  *cty.Value `hcl:"default,optional"`
	Remain   hcl.Body   `hcl:",remain"`
}

type leafAttrs struct {
	Short       string     `hcl:"short,optional"`
	Type        string     `hcl:"type,optional"`
	Description string     `hcl:"description,optional"`
	Required    bool       `hcl:"required,optional"`
	Default     *cty.Value `hcl:"default,optional"`
	MinCount    *int       `hcl:"min_count,optional"`
	MaxCount    *int       `hcl:"max_count,optional"`
	Min         *cty.Value `hcl:"min,optional"`
	Max         *cty.Value `hcl:"max,optional"`
	Allowed     *cty.Value `hcl:"allowed,optional"`
	Pattern     string     `hcl:"pattern,optional"`
	Separator   string     `hcl:"separator,optional"`
	Expand      bool       `hcl:"expand,optional"`
	EndMarker   string     `hcl:"end_marker,optional"`
	Alias       []string   `hcl:"alias,optional"`
	DependsOn   []string   `hcl:"depends_on,optional"`
	Enabled     *bool      `hcl:"enabled,optional"`
}

type loader struct {
	bindings   Bindings
	middleware []middleware.Middleware
	logger     *slog.Logger
	registry   *argtree.Registry
	diags      hcl.Diagnostics
}

func newLoader(bindings Bindings, opts []Option) *loader {
	l := &loader{bindings: bindings, registry: argtree.DefaultRegistry}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *loader) load(file *hcl.File) (*argtree.Root, error) {
	var attrs modeAttrs
	if !l.decode(file.Body, &attrs) {
		return nil, l.diags
	}

	items := l.children(attrs.Remain)
	if attrs.Description != "" {
		items = append(items, argtree.Description(attrs.Description))
	}
	if attrs.Router != "" {
		if r := l.router(attrs.Router, file.Body.MissingItemRange()); r != nil {
			items = append(items, r)
		}
	}
	if l.logger != nil {
		items = append(items, argtree.WithLogger(l.logger))
	}
	items = append(items, argtree.WithRegistry(l.registry))

	if l.diags.HasErrors() {
		return nil, l.diags
	}

	root, err := argtree.New(items...)
	if err != nil {
		var buildErr *argtree.BuildError
		summary := "Invalid argument tree"
		if !errors.As(err, &buildErr) {
			summary = "Failed to build argument tree"
		}
		l.diags = append(l.diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  summary,
			Detail:   err.Error(),
			Subject:  file.Body.MissingItemRange().Ptr(),
		})
		return nil, l.diags
	}
	return root, nil
}

func (l *loader) decode(body hcl.Body, val any) bool {
	diags := gohcl.DecodeBody(body, nil, val)
	l.diags = append(l.diags, diags...)
	return !diags.HasErrors()
}

func (l *loader) errorf(rng hcl.Range, summary, format string, args ...any) {
	l.diags = append(l.diags, &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  summary,
		Detail:   fmt.Sprintf(format, args...),
		Subject:  rng.Ptr(),
	})
}

// children builds the nested blocks of body in source order, which is also
// the order their values reach the router.
func (l *loader) children(body hcl.Body) []argtree.Item {
	if body == nil {
		return nil
	}
	content, diags := body.Content(childSchema)
	l.diags = append(l.diags, diags...)
	if content == nil {
		return nil
	}

	var items []argtree.Item
	for _, block := range content.Blocks {
		var n *argtree.Node
		switch block.Type {
		case "mode":
			n = l.mode(block)
		case "one_of", "alias_group":
			n = l.group(block)
		default:
			n = l.leaf(block)
		}
		if n != nil {
			items = append(items, n)
		}
	}
	return items
}

func (l *loader) mode(block *hcl.Block) *argtree.Node {
	var attrs modeAttrs
	if !l.decode(block.Body, &attrs) {
		return nil
	}

	items := []argtree.Item{argtree.NoneName(block.Labels[0])}
	items = append(items, l.children(attrs.Remain)...)
	if attrs.Description != "" {
		items = append(items, argtree.Description(attrs.Description))
	}
	if attrs.Enabled != nil {
		items = append(items, argtree.RuntimeEnable(*attrs.Enabled))
	}
	if attrs.Router != "" {
		if r := l.router(attrs.Router, block.DefRange); r != nil {
			items = append(items, r)
		}
	}
	return argtree.Mode(items...)
}

func (l *loader) group(block *hcl.Block) *argtree.Node {
	var attrs groupAttrs
	if !l.decode(block.Body, &attrs) {
		return nil
	}

	items := l.children(attrs.Remain)
	if attrs.Required {
		items = append(items, argtree.Required())
	}
	if attrs.Default != nil {
		t := sharedType(items)
		if t == nil {
			l.errorf(block.DefRange, "Unsupported default", "A %s default needs children of a single value type.", block.Type)
			return nil
		}
		v, err := l.toGo(*attrs.Default, t)
		if err != nil {
			l.errorf(block.DefRange, "Invalid default", "Cannot use default as %s: %s.", t, err)
			return nil
		}
		items = append(items, argtree.DefaultValue(v))
	}

	if block.Type == "one_of" {
		return argtree.OneOf(items...)
	}
	return argtree.AliasGroup(items...)
}

func sharedType(items []argtree.Item) reflect.Type {
	var t reflect.Type
	for _, it := range items {
		n, ok := it.(*argtree.Node)
		if !ok {
			continue
		}
		switch {
		case t == nil:
			t = n.ValueType()
		case t != n.ValueType():
			return nil
		}
	}
	return t
}

var (
	boolType      = reflect.TypeFor[bool]()
	intType       = reflect.TypeFor[int]()
	stringsType   = reflect.TypeFor[[]string]()
	fixedTypeName = map[string]string{
		"flag":          "bool",
		"counting_flag": "int",
		"forwarding":    "[]string",
	}
)

func (l *loader) leaf(block *hcl.Block) *argtree.Node {
	var attrs leafAttrs
	if !l.decode(block.Body, &attrs) {
		return nil
	}
	label := block.Labels[0]
	rng := block.DefRange

	var opts []argtree.Option
	if block.Type == "positional" {
		opts = append(opts, argtree.DisplayName(label))
	} else {
		opts = append(opts, nameOption(label))
	}

	// Flags, counting flags and forwarding arguments have a fixed type.
	var kind *valueKind
	var slice bool
	var goType reflect.Type
	if fixed, ok := fixedTypeName[block.Type]; ok {
		if attrs.Type != "" && attrs.Type != fixed {
			l.errorf(rng, "Unsupported type", "A %s always holds %s.", block.Type, fixed)
			return nil
		}
		if attrs.Min != nil || attrs.Max != nil || attrs.Allowed != nil {
			l.errorf(rng, "Unsupported attribute", "A %s does not accept min, max or allowed.", block.Type)
			return nil
		}
		goType = map[string]reflect.Type{"bool": boolType, "int": intType, "[]string": stringsType}[fixed]
	} else {
		var ok bool
		kind, slice, ok = lookupType(attrs.Type)
		if !ok {
			l.errorf(rng, "Unsupported type", "Type %q is not one of %s, optionally prefixed with [].", attrs.Type, typeNames())
			return nil
		}
		if block.Type == "multi_arg" {
			slice = true
		}
		goType = kind.elem
		if slice {
			goType = reflect.SliceOf(kind.elem)
		}
	}

	if attrs.Short != "" {
		opts = append(opts, argtree.ShortName(attrs.Short))
	}
	if attrs.Description != "" {
		opts = append(opts, argtree.Description(attrs.Description))
	}
	if attrs.MinCount != nil {
		opts = append(opts, argtree.MinCount(*attrs.MinCount))
	}
	if attrs.MaxCount != nil {
		opts = append(opts, argtree.MaxCount(*attrs.MaxCount))
	}

	var fallback any
	if attrs.Default != nil {
		v, err := l.toGo(*attrs.Default, goType)
		if err != nil {
			l.errorf(rng, "Invalid default", "Cannot use default as %s: %s.", goType, err)
			return nil
		}
		fallback = v
	}
	switch {
	case attrs.Enabled != nil && attrs.Required:
		opts = append(opts, argtree.RuntimeEnableRequired(*attrs.Enabled, fallback))
	case attrs.Enabled != nil:
		opts = append(opts, argtree.RuntimeEnable(*attrs.Enabled))
		if attrs.Default != nil {
			opts = append(opts, argtree.DefaultValue(fallback))
		}
	case attrs.Required:
		opts = append(opts, argtree.Required())
		if attrs.Default != nil {
			// rejected by the build with a clearer message
			opts = append(opts, argtree.DefaultValue(fallback))
		}
	case attrs.Default != nil:
		opts = append(opts, argtree.DefaultValue(fallback))
	}

	if attrs.Min != nil || attrs.Max != nil {
		if kind.ranged == nil {
			l.errorf(rng, "Unsupported attribute", "Type %s has no ordering for min and max.", kind.elem)
			return nil
		}
		lo, hi, ok := l.bounds(rng, attrs.Min, attrs.Max, kind.elem)
		if !ok {
			return nil
		}
		opts = append(opts, kind.ranged(lo, hi))
	}
	if attrs.Allowed != nil {
		if slice {
			l.errorf(rng, "Unsupported attribute", "Allowed values only apply to single values.")
			return nil
		}
		values, err := l.toGo(*attrs.Allowed, reflect.SliceOf(kind.elem))
		if err != nil {
			l.errorf(rng, "Invalid allowed values", "Cannot use allowed as %s: %s.", reflect.SliceOf(kind.elem), err)
			return nil
		}
		rv := reflect.ValueOf(values)
		list := make([]any, rv.Len())
		for i := range list {
			list[i] = rv.Index(i).Interface()
		}
		opts = append(opts, kind.allowed(list))
	}
	if attrs.Pattern != "" {
		opts = append(opts, argtree.MatchRegex(attrs.Pattern))
	}
	if attrs.Separator != "" {
		opts = append(opts, argtree.ValueSeparator(attrs.Separator))
	}
	if attrs.Expand {
		opts = append(opts, argtree.ShortFormExpander())
	}
	if attrs.EndMarker != "" {
		opts = append(opts, argtree.TokenEndMarker(attrs.EndMarker))
	}
	if len(attrs.Alias) > 0 {
		opts = append(opts, argtree.Alias(attrs.Alias...))
	}
	if len(attrs.DependsOn) > 0 {
		opts = append(opts, argtree.Dependent(attrs.DependsOn...))
	}

	switch block.Type {
	case "flag":
		return argtree.Flag(opts...)
	case "counting_flag":
		return argtree.CountingFlag(opts...)
	case "forwarding":
		return argtree.ForwardingArg(opts...)
	case "positional":
		if slice {
			return kind.list(opts...)
		}
		return kind.single(opts...)
	}
	if slice {
		return kind.multi(opts...)
	}
	return kind.arg(opts...)
}

func (l *loader) bounds(rng hcl.Range, lo, hi *cty.Value, t reflect.Type) (any, any, bool) {
	var out [2]any
	for i, v := range []*cty.Value{lo, hi} {
		if v == nil {
			continue
		}
		converted, err := l.toGo(*v, t)
		if err != nil {
			l.errorf(rng, "Invalid bound", "Cannot use bound as %s: %s.", t, err)
			return nil, nil, false
		}
		out[i] = converted
	}
	return out[0], out[1], true
}

// nameOption turns a block label into a name. Prefixed labels keep their
// form; a bare word becomes the long name except for "-" and "--".
func nameOption(label string) argtree.Option {
	tok := argtree.ClassifyToken(label)
	switch {
	case tok.Prefix == argtree.PrefixShort:
		return argtree.ShortName(tok.Name)
	case tok.Prefix == argtree.PrefixLong:
		return argtree.LongName(tok.Name)
	case label == "-" || label == "--":
		return argtree.NoneName(label)
	}
	return argtree.LongName(label)
}

func (l *loader) router(name string, rng hcl.Range) argtree.Option {
	fn, ok := l.bindings[name]
	if !ok || fn == nil {
		l.errorf(rng, "Unknown router", "No function is bound to router %q.", name)
		return nil
	}
	if values, ok := fn.(func([]any) error); ok {
		return argtree.RouteValues(values, l.middleware...)
	}
	return argtree.Router(fn, l.middleware...)
}

// toGo converts v to t. Strings for non-string types go through the
// registry so durations and custom types can be written as text.
func (l *loader) toGo(v cty.Value, t reflect.Type) (any, error) {
	if v.IsNull() {
		return nil, errors.New("value is null")
	}
	if !v.IsWhollyKnown() {
		return nil, errors.New("value is not known")
	}

	vt := v.Type()
	if t.Kind() == reflect.Slice && (vt.IsTupleType() || vt.IsListType() || vt.IsSetType()) {
		out := reflect.MakeSlice(t, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			e, err := l.toGo(ev, t.Elem())
			if err != nil {
				return nil, err
			}
			out = reflect.Append(out, reflect.ValueOf(e))
		}
		return out.Interface(), nil
	}
	if vt == cty.String && t.Kind() != reflect.String {
		return l.registry.Convert(t, v.AsString())
	}

	ptr := reflect.New(t)
	if err := gocty.FromCtyValue(v, ptr.Interface()); err != nil {
		return nil, err
	}
	return ptr.Elem().Interface(), nil
}
