package graphics

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards every record. Enabled reports false so callers skip
// formatting altogether.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger shared by graphics, the Vulkan backend and
// the renderer. Nothing is logged until SetLogger is called. Passing nil
// restores the silent default.
//
// Levels:
//   - [slog.LevelDebug]: native object creation and destruction
//   - [slog.LevelInfo]: lifecycle events (device selected, renderer started)
//   - [slog.LevelWarn]: contract violations that are ignored, such as a
//     second Initialize
//   - [slog.LevelError]: failures, including skipped descriptor bindings
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger. Safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
