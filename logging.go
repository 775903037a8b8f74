package tandem

import (
	"context"
	"log/slog"
)

// discardHandler is a slog.Handler that drops every record. Components use
// it as the default so logging is strictly opt-in.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// NopLogger returns a logger that discards all output.
func NopLogger() *slog.Logger {
	return slog.New(discardHandler{})
}
