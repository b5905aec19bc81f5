package argtree

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ConvertFunc turns one token of text into a value of a specific type.
type ConvertFunc func(text string) (any, error)

// ErrOutOfRange is returned (wrapped) by converters when text is well formed
// but does not fit the target type.
var ErrOutOfRange = errors.New("value out of range")

// Registry maps value types to converters. The zero value is not usable; use
// NewRegistry.
type Registry struct {
	mu         sync.RWMutex
	converters map[reflect.Type]ConvertFunc
}

// NewRegistry returns a registry preloaded with the built-in converters.
func NewRegistry() *Registry {
	r := &Registry{converters: make(map[reflect.Type]ConvertFunc)}
	registerBuiltins(r)
	return r
}

// DefaultRegistry is used by trees built without WithRegistry.
var DefaultRegistry = NewRegistry()

// Register sets the converter for t, replacing any previous one.
func (r *Registry) Register(t reflect.Type, fn ConvertFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.converters[t] = fn
}

// RegisterConverter registers a typed converter for T.
func RegisterConverter[T any](r *Registry, fn func(string) (T, error)) {
	r.Register(reflect.TypeFor[T](), func(text string) (any, error) {
		v, err := fn(text)
		if err != nil {
			return nil, err
		}
		return v, nil
	})
}

// Supports reports whether values of t can be converted, either directly or
// as a slice of a supported element type.
func (r *Registry) Supports(t reflect.Type) bool {
	if r.lookup(t) != nil {
		return true
	}
	return t.Kind() == reflect.Slice && r.lookup(t.Elem()) != nil
}

func (r *Registry) lookup(t reflect.Type) ConvertFunc {
	r.mu.RLock()
	fn := r.converters[t]
	r.mu.RUnlock()
	if fn != nil {
		return fn
	}
	// named types fall back on their underlying kind
	if base, ok := kindTypes[t.Kind()]; ok && base != t {
		r.mu.RLock()
		fn = r.converters[base]
		r.mu.RUnlock()
		if fn != nil {
			return func(text string) (any, error) {
				v, err := fn(text)
				if err != nil {
					return nil, err
				}
				return reflect.ValueOf(v).Convert(t).Interface(), nil
			}
		}
	}
	return nil
}

// Convert converts a single token of text into a value of type t.
func (r *Registry) Convert(t reflect.Type, text string) (any, error) {
	fn := r.lookup(t)
	if fn == nil {
		return nil, fmt.Errorf("no converter registered for %s", t)
	}
	return fn(text)
}

// ConvertList converts every text into an element of slice type t. The first
// failing element aborts the conversion.
func (r *Registry) ConvertList(t reflect.Type, texts []string) (any, error) {
	if t.Kind() != reflect.Slice {
		return nil, fmt.Errorf("%s is not a slice type", t)
	}
	out := reflect.MakeSlice(t, 0, len(texts))
	for _, text := range texts {
		v, err := r.Convert(t.Elem(), text)
		if err != nil {
			return nil, err
		}
		out = reflect.Append(out, reflect.ValueOf(v))
	}
	return out.Interface(), nil
}

var kindTypes = map[reflect.Kind]reflect.Type{
	reflect.Int:     reflect.TypeFor[int](),
	reflect.Int8:    reflect.TypeFor[int8](),
	reflect.Int16:   reflect.TypeFor[int16](),
	reflect.Int32:   reflect.TypeFor[int32](),
	reflect.Int64:   reflect.TypeFor[int64](),
	reflect.Uint:    reflect.TypeFor[uint](),
	reflect.Uint8:   reflect.TypeFor[uint8](),
	reflect.Uint16:  reflect.TypeFor[uint16](),
	reflect.Uint32:  reflect.TypeFor[uint32](),
	reflect.Uint64:  reflect.TypeFor[uint64](),
	reflect.Float32: reflect.TypeFor[float32](),
	reflect.Float64: reflect.TypeFor[float64](),
	reflect.Bool:    reflect.TypeFor[bool](),
	reflect.String:  reflect.TypeFor[string](),
}

func registerBuiltins(r *Registry) {
	registerSigned[int](r, strconv.IntSize)
	registerSigned[int8](r, 8)
	registerSigned[int16](r, 16)
	registerSigned[int32](r, 32)
	registerSigned[int64](r, 64)
	registerUnsigned[uint](r, strconv.IntSize)
	registerUnsigned[uint8](r, 8)
	registerUnsigned[uint16](r, 16)
	registerUnsigned[uint32](r, 32)
	registerUnsigned[uint64](r, 64)
	registerFloat[float32](r, 32)
	registerFloat[float64](r, 64)

	RegisterConverter(r, ParseBool)
	RegisterConverter(r, func(s string) (string, error) { return s, nil })
	RegisterConverter(r, func(s string) (time.Duration, error) {
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return d, nil
	})
}

func registerSigned[T ~int | ~int8 | ~int16 | ~int32 | ~int64](r *Registry, bits int) {
	RegisterConverter(r, func(s string) (T, error) {
		body, base := numberBase(s)
		v, err := strconv.ParseInt(body, base, bits)
		if err != nil {
			return 0, numError(err)
		}
		return T(v), nil
	})
}

func registerUnsigned[T ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64](r *Registry, bits int) {
	RegisterConverter(r, func(s string) (T, error) {
		body, base := numberBase(s)
		v, err := strconv.ParseUint(body, base, bits)
		if err != nil {
			return 0, numError(err)
		}
		return T(v), nil
	})
}

func registerFloat[T ~float32 | ~float64](r *Registry, bits int) {
	RegisterConverter(r, func(s string) (T, error) {
		v, err := strconv.ParseFloat(strings.TrimPrefix(s, "+"), bits)
		if err != nil {
			return 0, numError(err)
		}
		return T(v), nil
	})
}

// numberBase strips an optional leading '+' and a 0x/0X prefix.
func numberBase(s string) (string, int) {
	neg := false
	switch {
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	}
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
	}
	if neg {
		s = "-" + s
	}
	return s, base
}

func numError(err error) error {
	var ne *strconv.NumError
	if errors.As(err, &ne) && errors.Is(ne.Err, strconv.ErrRange) {
		return fmt.Errorf("%w: %s", ErrOutOfRange, ne.Num)
	}
	return err
}

// ParseBool accepts true/yes/y/on/1/enable and false/no/n/off/0/disable,
// case-insensitively.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "yes", "y", "on", "1", "enable":
		return true, nil
	case "false", "no", "n", "off", "0", "disable":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}
