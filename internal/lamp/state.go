// Package lamp holds the process-wide commanded color and the transition
// that paints it.
package lamp

import (
	"sync"
	"time"

	"github.com/smazurov/lampnode/internal/color"
	"github.com/smazurov/lampnode/internal/events"
	"github.com/smazurov/lampnode/internal/transition"
)

// Transitioner starts a transition, superseding any running one.
type Transitioner interface {
	Start(target color.Color) *transition.Handle
}

// State is the shared color state. The zero value is not usable; call NewState.
type State struct {
	mu      sync.RWMutex
	current color.Color
	runner  Transitioner
	bus     *events.Bus
}

// NewState creates a State starting at initial.
func NewState(initial color.Color, runner Transitioner, bus *events.Bus) *State {
	return &State{
		current: initial,
		runner:  runner,
		bus:     bus,
	}
}

// Color returns the currently commanded color.
func (s *State) Color() color.Color {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// SetColor stores c and restarts the transition toward it. The store and the
// cancel-then-spawn of the transition happen under one lock, so concurrent
// callers are applied one at a time.
func (s *State) SetColor(c color.Color) *transition.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.current
	s.current = c
	h := s.runner.Start(c)

	s.bus.Publish(events.ColorChangedEvent{
		Color:     c.String(),
		Previous:  previous.String(),
		Timestamp: time.Now().Format(time.RFC3339),
	})
	return h
}
