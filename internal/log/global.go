package log

import "sync"

var (
	globalMu     sync.RWMutex
	globalLogger *Logger
)

// SetGlobal installs the process-wide logger used by code without an
// injected logger.
func SetGlobal(logger *Logger) {
	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()
}

// Global returns the process-wide logger, initializing it lazily with
// defaults when nothing was installed.
func Global() *Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l != nil {
		return l
	}

	l = Default()
	SetGlobal(l)
	return l
}
