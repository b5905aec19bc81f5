package argtree

import (
	"log/slog"
	"reflect"

	"github.com/dzonerzy/go-argtree/middleware"
)

var errorType = reflect.TypeFor[error]()

// routerCap calls a user function with a mode's values. Either fn (typed,
// checked against the mode's children at build time) or raw is set.
type routerCap struct {
	fn    reflect.Value
	raw   func(values []any) error
	chain middleware.MiddlewareChain
}

func (*routerCap) Priority() int { return 0 }

func (r *routerCap) bind(owner *Node, types []reflect.Type) error {
	if r.raw != nil {
		return nil
	}
	if !r.fn.IsValid() || r.fn.Kind() != reflect.Func || r.fn.IsNil() {
		return buildErrorf(owner, "router must be a function")
	}

	ft := r.fn.Type()
	if ft.IsVariadic() {
		return buildErrorf(owner, "router cannot be variadic")
	}
	if ft.NumIn() != len(types) {
		return buildErrorf(owner, "router takes %d parameters, mode routes %d values", ft.NumIn(), len(types))
	}
	for i, t := range types {
		in := ft.In(i)
		if !t.AssignableTo(in) && (t.Kind() != in.Kind() || !t.ConvertibleTo(in)) {
			return buildErrorf(owner, "router parameter %d is %s, value is %s", i, in, t)
		}
	}
	switch {
	case ft.NumOut() == 0:
	case ft.NumOut() == 1 && ft.Out(0) == errorType:
	default:
		return buildErrorf(owner, "router may only return an error")
	}
	return nil
}

func (r *routerCap) Route(values []any, ancestors []*Node) error {
	ctx := &routeContext{mode: ancestors[0], values: values}
	return r.chain.Apply(r.call)(ctx)
}

func (r *routerCap) call(ctx middleware.Context) error {
	values := ctx.Values()
	if r.raw != nil {
		return r.raw(values)
	}

	ft := r.fn.Type()
	in := make([]reflect.Value, len(values))
	for i, v := range values {
		in[i] = valueOf(v, ft.In(i))
	}
	out := r.fn.Call(in)
	if len(out) == 1 && !out[0].IsNil() {
		return out[0].Interface().(error)
	}
	return nil
}

// Router routes the mode's values to fn, whose parameters follow the
// routed children in declaration order:
//
//	argtree.Mode(argtree.NoneName("copy"),
//	    argtree.Flag(argtree.LongName("force")),
//	    argtree.PositionalList[string](argtree.MinCount(2)),
//	    argtree.Router(func(force bool, paths []string) error { ... }))
//
// fn may return nothing or an error. The middleware wraps the call with the
// first one outermost.
func Router(fn any, mws ...middleware.Middleware) Option {
	return With(&routerCap{fn: reflect.ValueOf(fn), chain: middleware.Chain(mws...)})
}

// RouteValues routes the mode's values to fn without type checking.
func RouteValues(fn func(values []any) error, mws ...middleware.Middleware) Option {
	return With(&routerCap{raw: fn, chain: middleware.Chain(mws...)})
}

// routeContext is the middleware.Context of one router call.
type routeContext struct {
	mode     *Node
	values   []any
	metadata map[string]any
}

func (c *routeContext) Mode() string {
	if c.mode.kind == kindRoot {
		return "root"
	}
	return c.mode.noneName
}

func (c *routeContext) Values() []any { return c.values }

func (c *routeContext) Lookup(name string) (any, bool) {
	want := ClassifyToken(name).Name
	for i, n := range c.mode.mode.routed {
		if i >= len(c.values) {
			break
		}
		if n.longName == want || n.shortName == want || n.noneName == want || n.displayName == want {
			return c.values[i], true
		}
	}
	return nil, false
}

func (c *routeContext) Logger() *slog.Logger { return c.mode.effectiveLogger() }

func (c *routeContext) Set(key string, value any) {
	if c.metadata == nil {
		c.metadata = make(map[string]any)
	}
	c.metadata[key] = value
}

func (c *routeContext) Get(key string) any { return c.metadata[key] }

