// Package logging builds the slog loggers used by both services and carries
// request-scoped loggers through context.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	loggerKey
)

// New returns a logger writing to stdout.
func New(level, format string) *slog.Logger {
	return NewWithWriter(os.Stdout, level, format)
}

// NewWithWriter returns a logger writing to w in "json" or "text" format.
// Records logged with a context that carries a request ID get a request_id
// attribute even when the caller did not go through L.
func NewWithWriter(w io.Writer, level, format string) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{Level: lvl, AddSource: lvl <= slog.LevelDebug}

	var h slog.Handler = slog.NewTextHandler(w, opts)
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(requestIDHandler{Handler: h})
}

// ParseLevel maps LOG_LEVEL values onto slog levels. Anything unknown is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// ForService tags every record with the emitting service.
func ForService(logger *slog.Logger, service string) *slog.Logger {
	return logger.With(slog.String("service", service))
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the ID stored by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored by WithLogger, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// L returns the request's logger with its request ID bound, for call sites
// that log without passing ctx along.
func L(ctx context.Context) *slog.Logger {
	logger := FromContext(ctx)
	id := RequestID(ctx)
	if id == "" {
		return logger
	}
	if h, ok := logger.Handler().(requestIDHandler); ok {
		if h.bound {
			return logger
		}
		return slog.New(requestIDHandler{Handler: h.Handler.WithAttrs([]slog.Attr{slog.String("request_id", id)}), bound: true})
	}
	return logger.With(slog.String("request_id", id))
}

// requestIDHandler adds request_id from the record's context unless one
// was already bound by L.
type requestIDHandler struct {
	slog.Handler
	bound bool
}

func (h requestIDHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.bound {
		if id := RequestID(ctx); id != "" {
			r.AddAttrs(slog.String("request_id", id))
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h requestIDHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return requestIDHandler{Handler: h.Handler.WithAttrs(attrs), bound: h.bound}
}

func (h requestIDHandler) WithGroup(name string) slog.Handler {
	return requestIDHandler{Handler: h.Handler.WithGroup(name), bound: h.bound}
}
