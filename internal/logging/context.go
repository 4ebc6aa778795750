package logging

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/portfolio/internal/logfields"
)

// LogContext holds the request-scoped logging fields.
type LogContext struct {
	RequestID string
	Stage     string
	Slug      string
}

type logContextKeyType string

const logContextKey logContextKeyType = "log-context"

// WithRequestID adds a request id to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	lc := FromContext(ctx)
	lc.RequestID = id
	return context.WithValue(ctx, logContextKey, lc)
}

// WithStage adds a build stage name to the context.
func WithStage(ctx context.Context, stage string) context.Context {
	lc := FromContext(ctx)
	lc.Stage = stage
	return context.WithValue(ctx, logContextKey, lc)
}

// WithSlug adds the post slug being worked on to the context.
func WithSlug(ctx context.Context, slug string) context.Context {
	lc := FromContext(ctx)
	lc.Slug = slug
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext returns the logging fields carried by ctx.
func FromContext(ctx context.Context) LogContext {
	if ctx == nil {
		return LogContext{}
	}
	if lc, ok := ctx.Value(logContextKey).(LogContext); ok {
		return lc
	}
	return LogContext{}
}

func (lc LogContext) attrs() []slog.Attr {
	var attrs []slog.Attr
	if lc.RequestID != "" {
		attrs = append(attrs, logfields.RequestID(lc.RequestID))
	}
	if lc.Stage != "" {
		attrs = append(attrs, logfields.Stage(lc.Stage))
	}
	if lc.Slug != "" {
		attrs = append(attrs, logfields.Slug(lc.Slug))
	}
	return attrs
}

// ContextHandler decorates records with the LogContext of the logging call.
type ContextHandler struct {
	inner slog.Handler
}

// NewContextHandler wraps h.
func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{inner: h}
}

func (h *ContextHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.inner.Enabled(ctx, l)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs := FromContext(ctx).attrs(); len(attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{inner: h.inner.WithGroup(name)}
}
