package schema

import (
	"cmp"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/dzonerzy/go-argtree/argtree"
)

// valueKind bundles the generic constructors for one element type so the
// loader can pick them by name.
type valueKind struct {
	elem    reflect.Type
	arg     func(...argtree.Option) *argtree.Node
	multi   func(...argtree.Option) *argtree.Node
	single  func(...argtree.Option) *argtree.Node
	list    func(...argtree.Option) *argtree.Node
	ranged  func(lo, hi any) argtree.Option
	allowed func(values []any) argtree.Option
}

func basic[T comparable]() *valueKind {
	return &valueKind{
		elem:   reflect.TypeFor[T](),
		arg:    argtree.Arg[T],
		multi:  argtree.MultiArg[T],
		single: argtree.PositionalArg[T],
		list:   argtree.PositionalList[T],
		allowed: func(values []any) argtree.Option {
			typed := make([]T, len(values))
			for i, v := range values {
				typed[i] = v.(T)
			}
			return argtree.AllowedValues(typed...)
		},
	}
}

func ordered[T cmp.Ordered]() *valueKind {
	k := basic[T]()
	k.ranged = func(lo, hi any) argtree.Option {
		switch {
		case lo != nil && hi != nil:
			return argtree.MinMaxValue(lo.(T), hi.(T))
		case lo != nil:
			return argtree.MinValue(lo.(T))
		}
		return argtree.MaxValue(hi.(T))
	}
	return k
}

var valueKinds = map[string]*valueKind{
	"string":   ordered[string](),
	"int":      ordered[int](),
	"int64":    ordered[int64](),
	"uint":     ordered[uint](),
	"float64":  ordered[float64](),
	"duration": ordered[time.Duration](),
	"bool":     basic[bool](),
}

// lookupType resolves names such as "int" or "[]string".
func lookupType(name string) (kind *valueKind, slice bool, ok bool) {
	if name == "" {
		name = "string"
	}
	elem, slice := strings.CutPrefix(name, "[]")
	kind, ok = valueKinds[elem]
	return kind, slice, ok
}

func typeNames() string {
	names := make([]string, 0, len(valueKinds))
	for name := range valueKinds {
		names = append(names, name)
	}
	slices.Sort(names)
	return strings.Join(names, ", ")
}
