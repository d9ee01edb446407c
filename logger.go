package camview

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/camview/internal/frameloop"
	"github.com/gogpu/camview/internal/gpu"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for camview and its internal packages,
// including the wgpu HAL. By default camview produces no log output.
// Pass nil to restore silence.
//
// Log levels used by camview:
//   - [slog.LevelDebug]: per-frame detail (texture reallocation, skipped frames)
//   - [slog.LevelInfo]: lifecycle events (context negotiated, loop started)
//   - [slog.LevelWarn]: absorbed per-frame failures (upload, present)
//   - [slog.LevelError]: initialization failures and recovered panics
//
// Example:
//
//	camview.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	gpu.SetLogger(l)
	frameloop.SetLogger(l)
}

// Logger returns the current logger used by camview.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
