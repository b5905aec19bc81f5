package middleware

import (
	"os"
	"runtime"
	"sync"
)

// Recovery creates a middleware that recovers from panics in the router and
// returns them as a *RecoveryError.
func Recovery(options ...MiddlewareOption) Middleware {
	return RecoveryWithHandler(func(r any, mode string, stack []byte) error {
		return &RecoveryError{Panic: r, Mode: mode, Stack: stack}
	}, options...)
}

// RecoveryWithHandler creates a recovery middleware with a custom panic handler
func RecoveryWithHandler(
	handler func(panicVal any, mode string, stack []byte) error,
	options ...MiddlewareOption,
) Middleware {
	config := newConfig(options)

	return func(next RouteFunc) RouteFunc {
		return func(ctx Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					stack := captureStack(config)
					if len(stack) > 0 {
						loggerOf(ctx).Error("panic in router",
							"mode", modeName(ctx), "panic", toString(r), "stack", string(stack))
					}
					err = handler(r, modeName(ctx), stack)
				}
			}()

			return next(ctx)
		}
	}
}

func captureStack(config *MiddlewareConfig) []byte {
	if !config.PrintStack {
		return nil
	}
	stack := make([]byte, config.StackSize)
	return stack[:runtime.Stack(stack, false)]
}

// RecoveryToError creates a recovery middleware that converts panics to regular errors
// without capturing stack traces (useful for production)
func RecoveryToError() Middleware {
	return Recovery(WithStackTrace(false))
}

// RecoveryWithStack creates a recovery middleware that always logs stack traces
// (useful for development)
func RecoveryWithStack() Middleware {
	return Recovery(WithStackTrace(true))
}

// NoopRecovery creates a recovery middleware that doesn't actually recover
// (useful for development when you want panics to crash the program)
func NoopRecovery() Middleware {
	return func(next RouteFunc) RouteFunc {
		return next
	}
}

// MustRecover picks RecoveryWithStack in development environments and
// RecoveryToError otherwise.
func MustRecover() Middleware {
	isDev := os.Getenv("GO_ENV") == "development" ||
		os.Getenv("ENV") == "dev" ||
		os.Getenv("ENVIRONMENT") == "development"

	if isDev {
		return RecoveryWithStack()
	}
	return RecoveryToError()
}

// RecoveryStats tracks recovery statistics. It is safe for concurrent use
// since one tree may serve several parses at once.
type RecoveryStats struct {
	mu         sync.Mutex
	total      int
	modePanics map[string]int
	last       *RecoveryError
}

// NewRecoveryStats creates a new recovery statistics tracker
func NewRecoveryStats() *RecoveryStats {
	return &RecoveryStats{modePanics: make(map[string]int)}
}

// Total returns the number of panics recovered so far.
func (s *RecoveryStats) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// ForMode returns the number of panics recovered in mode.
func (s *RecoveryStats) ForMode(mode string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modePanics[mode]
}

// Last returns the most recent recovered panic, or nil.
func (s *RecoveryStats) Last() *RecoveryError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *RecoveryStats) record(e *RecoveryError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	s.modePanics[e.Mode]++
	s.last = e
}

// RecoveryWithStats creates a recovery middleware that tracks statistics
func RecoveryWithStats(stats *RecoveryStats, options ...MiddlewareOption) Middleware {
	return RecoveryWithHandler(func(r any, mode string, stack []byte) error {
		e := &RecoveryError{Panic: r, Mode: mode, Stack: stack}
		stats.record(e)
		return e
	}, options...)
}
