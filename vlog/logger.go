// Package vlog provides the structured logger shared by the dispatch table
// builder's components. It defaults to a no-op logger; embedders that want
// build diagnostics call SetLogger once before Build.
package vlog

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
	mu         sync.RWMutex
)

// Logger returns the package-wide logger. It uses a no-op logger until
// SetLogger is called.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		mu.Lock()
		if logger == nil {
			logger = zap.NewNop()
		}
		mu.Unlock()
	})
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// SetLogger replaces the package-wide logger. Call before Build to capture
// per-phase diagnostics.
func SetLogger(l *zap.Logger) {
	loggerOnce.Do(func() {})
	mu.Lock()
	logger = l
	mu.Unlock()
}
