// Package collectors feeds lamp metrics from the event bus and from the
// kernel's wireless statistics.
package collectors

import (
	"sync"

	"github.com/smazurov/lampnode/internal/color"
	"github.com/smazurov/lampnode/internal/events"
	"github.com/smazurov/lampnode/internal/led"
	"github.com/smazurov/lampnode/internal/logging"
	"github.com/smazurov/lampnode/internal/metrics"
)

// EventCollector mirrors bus events into Prometheus metrics.
type EventCollector struct {
	bus    *events.Bus
	logger logging.Logger

	mu     sync.Mutex
	unsubs []func()
}

// NewEventCollector creates a collector for bus.
func NewEventCollector(bus *events.Bus) *EventCollector {
	return &EventCollector{
		bus:    bus,
		logger: logging.GetLogger("metrics"),
	}
}

// Start subscribes to the bus.
func (c *EventCollector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.unsubs != nil {
		return
	}

	states := make([]string, len(led.States))
	for i, s := range led.States {
		states[i] = s.String()
	}

	c.unsubs = []func(){
		c.bus.Subscribe(func(e events.ColorChangedEvent) {
			metrics.IncColorUpdates()
			parsed, err := color.Parse(e.Color)
			if err != nil {
				c.logger.Debug("Ignoring unparsable color in event", "color", e.Color)
				return
			}
			metrics.SetColor(uint32(parsed))
		}),
		c.bus.Subscribe(func(e events.TransitionFinishedEvent) {
			metrics.IncTransitions(e.Completed)
		}),
		c.bus.Subscribe(func(e events.ConnectivityChangedEvent) {
			metrics.SetConnectivity(e.State, states)
		}),
		c.bus.Subscribe(func(events.BadRequestEvent) {
			metrics.IncBadRequests()
		}),
	}
	c.logger.Debug("Event collector started")
}

// Stop unsubscribes from the bus.
func (c *EventCollector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, unsub := range c.unsubs {
		unsub()
	}
	c.unsubs = nil
}
