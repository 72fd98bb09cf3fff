package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/lampnode/internal/logging"
)

// HTTPLoggingMiddleware logs HTTP requests with appropriate log levels based on status codes.
func HTTPLoggingMiddleware(ctx huma.Context, next func(huma.Context)) {
	start := time.Now()
	logger := logging.GetLogger("http")

	method := ctx.Method()
	logAttrs := []slog.Attr{
		slog.String("method", method),
		slog.String("path", ctx.URL().Path),
		slog.String("remote_addr", ctx.RemoteAddr()),
	}
	if query := ctx.URL().RawQuery; query != "" {
		logAttrs = append(logAttrs, slog.String("query", query))
	}
	if userAgent := ctx.Header("User-Agent"); userAgent != "" {
		logAttrs = append(logAttrs, slog.String("user_agent", userAgent))
	}

	next(ctx)

	status := ctx.Status()
	logAttrs = append(logAttrs,
		slog.Int("status", status),
		slog.Duration("duration", time.Since(start)),
	)

	message := "HTTP request completed"
	switch {
	case method == http.MethodOptions:
		logger.LogAttrs(ctx.Context(), slog.LevelDebug, message, logAttrs...)
	case status >= 500:
		logger.LogAttrs(ctx.Context(), slog.LevelError, message, logAttrs...)
	case status >= 400:
		logger.LogAttrs(ctx.Context(), slog.LevelWarn, message, logAttrs...)
	default:
		logger.LogAttrs(ctx.Context(), slog.LevelInfo, message, logAttrs...)
	}
}

// ActivityMiddleware pulses busy for the duration of each request.
func ActivityMiddleware(busy Busy) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if busy == nil {
			next(ctx)
			return
		}
		busy.Begin()
		defer busy.End()
		next(ctx)
	}
}

// ExactRootMiddleware makes the "/" operation match only "/". ServeMux treats
// the pattern "GET /" as a catch-all.
func ExactRootMiddleware(ctx huma.Context, next func(huma.Context)) {
	if op := ctx.Operation(); op != nil && op.Path == "/" && ctx.URL().Path != "/" {
		ctx.SetHeader("Content-Type", textPlain)
		ctx.SetStatus(http.StatusNotFound)
		_, _ = ctx.BodyWriter().Write([]byte("Not found\n"))
		return
	}
	next(ctx)
}
