package splat

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
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

// SetLogger configures the logger for splat and its sub-packages.
// By default, splat produces no log output. Pass nil to restore silence.
//
// Log levels used by splat:
//   - [slog.LevelDebug]: per-frame diagnostics (splat counts, sort passes, buffer sizes)
//   - [slog.LevelInfo]: lifecycle events (GPU adapter selected, sorter registered)
//   - [slog.LevelWarn]: non-fatal issues (CPU fallback, resource release errors)
//
// Example:
//
//	splat.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	sorterMu.RLock()
	s := registered
	sorterMu.RUnlock()
	if s != nil {
		propagateLogger(s, l)
	}
}

// Logger returns the current logger used by splat.
// Sub-packages (gpu/) call this to share the same logger configuration
// without introducing import cycles.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by sorters that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// propagateLogger passes the logger to a sorter if it implements
// loggerSetter. Called from both SetLogger and RegisterSorter.
func propagateLogger(s Sorter, l *slog.Logger) {
	if ls, ok := s.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}
