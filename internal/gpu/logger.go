package gpu

import (
	"log/slog"
	"sync/atomic"
)

// pkgLogger is shared by every Backend in the process. It discards output
// until the root package hands over its logger.
var pkgLogger atomic.Pointer[slog.Logger]

func init() {
	pkgLogger.Store(slog.New(slog.DiscardHandler))
}

func slogger() *slog.Logger { return pkgLogger.Load() }

// setLogger tags l with the backend name and installs it.
// nil restores the discarding logger.
func setLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	} else {
		l = l.With("backend", BackendName)
	}
	pkgLogger.Store(l)
}
