package controller

import (
	"log/slog"
	"sync"

	"golddust/internal/health"
)

// lease counts the requests using a source. A retired source is closed once
// its last request releases it.
type lease struct {
	src    health.Source
	logger *slog.Logger

	mu      sync.Mutex
	refs    int
	retired bool
}

func newLease(src health.Source, logger *slog.Logger) *lease {
	return &lease{src: src, logger: logger}
}

func (l *lease) acquire() {
	l.mu.Lock()
	l.refs++
	l.mu.Unlock()
}

func (l *lease) release() {
	l.mu.Lock()
	l.refs--
	closeNow := l.retired && l.refs == 0
	l.mu.Unlock()
	if closeNow {
		l.close()
	}
}

func (l *lease) retire() {
	l.mu.Lock()
	if l.retired {
		l.mu.Unlock()
		return
	}
	l.retired = true
	closeNow := l.refs == 0
	l.mu.Unlock()
	if closeNow {
		l.close()
	}
}

func (l *lease) close() {
	if l.src == nil {
		return
	}
	if err := health.Close(l.src); err != nil {
		l.logger.Warn("closing retired source failed", "source", l.src.Name(), "error", err)
	}
}
