package main

import (
	"context"
	"sync"
)

// service is the running daemon.
type service interface {
	run(ctx context.Context)
	stop()
}

// lifecycle builds the service on start and tears it down on stop.
type lifecycle struct {
	build func() service

	mu      sync.Mutex
	current service
	stopped bool
}

func newLifecycle(build func() service) *lifecycle {
	return &lifecycle{build: build}
}

// start builds the service and runs it until ctx is done. After stop it
// returns without building anything.
func (l *lifecycle) start(ctx context.Context) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	svc := l.build()
	l.current = svc
	l.mu.Unlock()

	svc.run(ctx)
}

// stop tears down the service once. A build in progress finishes first.
func (l *lifecycle) stop() {
	l.mu.Lock()
	l.stopped = true
	svc := l.current
	l.current = nil
	l.mu.Unlock()

	if svc != nil {
		svc.stop()
	}
}
