package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/dzonerzy/go-argtree/internal/pool"
)

// attrPool recycles the attribute slices built for each log record.
var attrPool = pool.NewSlicePool[slog.Attr](8, 64)

// Logger creates a middleware that logs each routed invocation through the
// tree's logger.
func Logger(options ...MiddlewareOption) Middleware {
	config := newConfig(options)
	return func(next RouteFunc) RouteFunc {
		return func(ctx Context) error {
			if config.Disabled {
				return next(ctx)
			}
			return logRoute(loggerOf(ctx), config, ctx, next)
		}
	}
}

// LoggerWith creates a logger middleware that writes to logger instead of the
// tree's logger.
func LoggerWith(logger *slog.Logger, options ...MiddlewareOption) Middleware {
	config := newConfig(options)
	return func(next RouteFunc) RouteFunc {
		return func(ctx Context) error {
			if config.Disabled || logger == nil {
				return next(ctx)
			}
			return logRoute(logger, config, ctx, next)
		}
	}
}

func logRoute(logger *slog.Logger, config *MiddlewareConfig, ctx Context, next RouteFunc) error {
	start := time.Now()
	ctx.Set("logger.start", start)
	logger.Debug("route start", "mode", modeName(ctx))

	err := next(ctx)

	buf := attrPool.Get()
	defer attrPool.Put(buf)

	attrs := append(*buf,
		slog.String("mode", modeName(ctx)),
		slog.Duration("duration", time.Since(start)),
	)
	if config.IncludeValues {
		attrs = append(attrs, slog.Any("values", ctx.Values()))
	}

	level := config.Level
	msg := "route done"
	if err != nil {
		level = slog.LevelError
		msg = "route failed"
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	logger.LogAttrs(context.Background(), level, msg, attrs...)
	*buf = attrs
	return err
}
