package logging

import (
	"context"
	"log/slog"
)

// Handler decorates another slog.Handler with context fields and
// redaction.
type Handler struct {
	inner    slog.Handler
	redactor *Redactor
}

// NewHandler wraps inner. A nil redactor disables redaction.
func NewHandler(inner slog.Handler, redactor *Redactor) *Handler {
	return &Handler{inner: inner, redactor: redactor}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle adds context fields the record does not already carry and redacts
// every attribute before passing the record on.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	seen := make(map[string]bool, r.NumAttrs())
	attrs := make([]slog.Attr, 0, r.NumAttrs()+4)
	r.Attrs(func(a slog.Attr) bool {
		seen[a.Key] = true
		attrs = append(attrs, h.redact(a))
		return true
	})

	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	for _, a := range contextAttrs(ctx) {
		if !seen[a.Key] {
			out.AddAttrs(a)
		}
	}
	out.AddAttrs(attrs...)
	return h.inner.Handle(ctx, out)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redact(a)
	}
	return &Handler{inner: h.inner.WithAttrs(redacted), redactor: h.redactor}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{inner: h.inner.WithGroup(name), redactor: h.redactor}
}

func (h *Handler) redact(a slog.Attr) slog.Attr {
	if h.redactor == nil {
		return a
	}
	return h.redactor.RedactAttr(a)
}
