// Package middleware provides built-in middleware for argtree routers.
// Focused on 3 essential middleware: Logger, Recovery and Validator.
package middleware

import (
	"fmt"
	"log/slog"
)

// This package defines middleware using interfaces to avoid import cycles.
// The argtree package imports this package and its route context satisfies
// Context.

// Context describes what a router invocation exposes to middleware. It is
// implemented by the argtree route context.
type Context interface {
	// Mode returns the label of the mode being routed. The root mode is
	// reported as "root".
	Mode() string

	// Values returns the routed values in declaration order, after the
	// missing phase has filled in defaults. The slice is read-only.
	Values() []any

	// Lookup returns the value routed for the child of the mode with the
	// given name. Long, short, none and display names are accepted, with or
	// without their prefix.
	Lookup(name string) (any, bool)

	// Logger returns the logger configured on the tree.
	Logger() *slog.Logger

	// Set stores a key/value pair for later middleware. Keys should be
	// namespaced to avoid collisions (e.g., "logger.start").
	Set(key string, value any)

	// Get retrieves a value previously stored via Set, or nil.
	Get(key string) any
}

// RouteFunc is the final handler a router chain wraps.
type RouteFunc func(ctx Context) error

// Middleware defines the middleware function signature
type Middleware func(next RouteFunc) RouteFunc

// MiddlewareChain represents a chain of middleware functions
type MiddlewareChain []Middleware

// Apply wraps route with the chain. The first middleware is the outermost.
func (chain MiddlewareChain) Apply(route RouteFunc) RouteFunc {
	for i := len(chain) - 1; i >= 0; i-- {
		if chain[i] == nil {
			continue
		}
		route = chain[i](route)
	}
	return route
}

// Use returns a new chain with the provided middleware appended.
func (chain MiddlewareChain) Use(middleware ...Middleware) MiddlewareChain {
	out := make(MiddlewareChain, 0, len(chain)+len(middleware))
	out = append(out, chain...)
	return append(out, middleware...)
}

// Chain creates a new middleware chain from the provided middleware, preserving
// order.
func Chain(middleware ...Middleware) MiddlewareChain {
	return MiddlewareChain(middleware)
}

// Error types for middleware

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Value   any
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error { return e.Cause }

// RecoveryError represents a panic recovered from a router
type RecoveryError struct {
	Panic any
	Mode  string
	Stack []byte
}

func (e *RecoveryError) Error() string {
	return "mode '" + e.Mode + "' panicked: " + toString(e.Panic)
}

// Configuration types

// MiddlewareConfig contains configuration for middleware behavior
type MiddlewareConfig struct {
	// Level is the slog level successful routes are logged at. Failures are
	// always logged at slog.LevelError.
	Level            slog.Level
	Disabled         bool
	IncludeValues    bool
	PrintStack       bool
	StackSize        int
	CustomValidators map[string]ValidatorFunc
}

// Configuration options

type MiddlewareOption func(config *MiddlewareConfig)

func DefaultConfig() *MiddlewareConfig {
	return &MiddlewareConfig{
		Level:            slog.LevelInfo,
		IncludeValues:    true,
		PrintStack:       true,
		StackSize:        4096,
		CustomValidators: make(map[string]ValidatorFunc),
	}
}

func newConfig(options []MiddlewareOption) *MiddlewareConfig {
	config := DefaultConfig()
	for _, option := range options {
		option(config)
	}
	return config
}

func WithLogLevel(level slog.Level) MiddlewareOption {
	return func(config *MiddlewareConfig) {
		config.Level = level
	}
}

// WithoutLogging turns Logger into a pass-through.
func WithoutLogging() MiddlewareOption {
	return func(config *MiddlewareConfig) {
		config.Disabled = true
	}
}

func WithValues(enabled bool) MiddlewareOption {
	return func(config *MiddlewareConfig) {
		config.IncludeValues = enabled
	}
}

func WithStackTrace(enabled bool) MiddlewareOption {
	return func(config *MiddlewareConfig) {
		config.PrintStack = enabled
	}
}

func WithStackSize(size int) MiddlewareOption {
	return func(config *MiddlewareConfig) {
		if size > 0 {
			config.StackSize = size
		}
	}
}

// WithValidator registers a named check for Validator.
func WithValidator(name string, fn ValidatorFunc) MiddlewareOption {
	return func(config *MiddlewareConfig) {
		if name != "" && fn != nil {
			config.CustomValidators[name] = fn
		}
	}
}

// Utility functions

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return "<nil>"
	case string:
		return t
	case error:
		return t.Error()
	}
	return fmt.Sprint(v)
}

func modeName(ctx Context) string {
	if name := ctx.Mode(); name != "" {
		return name
	}
	return "unknown"
}

func loggerOf(ctx Context) *slog.Logger {
	if l := ctx.Logger(); l != nil {
		return l
	}
	return slog.Default()
}
