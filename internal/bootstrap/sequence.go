// Package bootstrap runs the lamp's one-time startup sequence.
//
// Steps run strictly in order and are never retried. A failing step is
// logged and skipped unless it is marked fatal, in which case the sequence
// stops with an error wrapping ErrHalted.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrHalted reports that a fatal step failed and startup stopped.
var ErrHalted = errors.New("bootstrap halted")

// Step is one named startup action.
type Step struct {
	Name  string
	Fatal bool
	Run   func(ctx context.Context) error
}

// Sequence is an ordered list of steps.
type Sequence struct {
	steps  []Step
	logger *slog.Logger
}

// NewSequence creates an empty sequence.
func NewSequence(logger *slog.Logger) *Sequence {
	return &Sequence{logger: logger}
}

// Add appends a step.
func (s *Sequence) Add(name string, fatal bool, run func(ctx context.Context) error) *Sequence {
	s.steps = append(s.steps, Step{Name: name, Fatal: fatal, Run: run})
	return s
}

// Names lists the steps in execution order.
func (s *Sequence) Names() []string {
	names := make([]string, len(s.steps))
	for i, step := range s.steps {
		names[i] = step.Name
	}
	return names
}

// Run executes the steps in order. It returns ctx.Err() if ctx ends between
// steps and an ErrHalted-wrapped error if a fatal step fails.
func (s *Sequence) Run(ctx context.Context) error {
	for _, step := range s.steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		start := time.Now()
		s.logger.Debug("Bootstrap step starting", "step", step.Name)

		err := step.Run(ctx)
		switch {
		case err == nil:
			s.logger.Debug("Bootstrap step finished", "step", step.Name, "duration", time.Since(start).Round(time.Millisecond))
		case ctx.Err() != nil:
			return ctx.Err()
		case step.Fatal:
			s.logger.Error("Bootstrap step failed, halting", "step", step.Name, "error", err)
			return fmt.Errorf("%w: %s: %w", ErrHalted, step.Name, err)
		default:
			s.logger.Warn("Bootstrap step failed, continuing", "step", step.Name, "error", err)
		}
	}
	return nil
}
