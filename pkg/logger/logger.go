// Package logger provides a structured, levelled logger built on log/slog.
//
// Handlers and services log through WithCtx so every line carries the
// request id injected by the Logger middleware:
//
//	log := logger.WithCtx(r.Context())
//	log.Info("order created", "order_id", order.ID)
//	// → time=... level=INFO msg="order created" request_id=a1b2c3d4 order_id=42
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/kumarketplace/marketplace/config"
)

var L *slog.Logger

func init() {
	L = slog.New(consoleHandler(os.Stdout, config.IsProduction()))
	slog.SetDefault(L)
}

func consoleHandler(w io.Writer, production bool) slog.Handler {
	if production {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}) // structured JSON for log aggregators
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
}

// Setup rebuilds the base logger. extra handlers (e.g. a MongoHandler) receive
// every record alongside the console output.
func Setup(production bool, extra ...slog.Handler) {
	var h slog.Handler = consoleHandler(os.Stdout, production)
	if len(extra) > 0 {
		h = NewMultiHandler(append([]slog.Handler{h}, extra...)...)
	}
	L = slog.New(h)
	slog.SetDefault(L)
}

// ─────────────────────────────────────────────
// Context-aware logger
// ─────────────────────────────────────────────

type ctxKey struct{}

// WithCtx returns the request-scoped logger stored by the Logger middleware,
// or the base logger when there is none.
func WithCtx(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return L
	}
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

// InjectLogger stores a *slog.Logger (pre-tagged with request_id) into ctx.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// Debug logs at DEBUG level.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs at INFO level.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs at WARN level.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs at ERROR level.
func Error(msg string, args ...any) { L.Error(msg, args...) }
