package logging

import (
	"context"
	"log/slog"
)

// contextHandler decorates records with context fields and redacts
// credentials before passing them to the wrapped handler.
type contextHandler struct {
	next     slog.Handler
	redactor *Redactor
}

func newContextHandler(next slog.Handler, redactor *Redactor) *contextHandler {
	return &contextHandler{next: next, redactor: redactor}
}

// Enabled implements slog.Handler.
func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	out.Add(extractContextFields(ctx)...)

	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redactor.RedactAttr(a))
		return true
	})

	return h.next.Handle(ctx, out)
}

// WithAttrs implements slog.Handler.
func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redactor.RedactAttr(a)
	}
	return newContextHandler(h.next.WithAttrs(redacted), h.redactor)
}

// WithGroup implements slog.Handler.
func (h *contextHandler) WithGroup(name string) slog.Handler {
	return newContextHandler(h.next.WithGroup(name), h.redactor)
}
