package led

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/smazurov/lampnode/internal/events"
)

// LinkProbe reports whether the network link is associated.
type LinkProbe interface {
	LinkUp() bool
}

// TunnelProbe reports whether the tunnel session is active.
type TunnelProbe interface {
	IsInitialized() bool
}

// IndicatorConfig names the two status LEDs and the tick period.
type IndicatorConfig struct {
	ReadyLED string
	FaultLED string
	Period   time.Duration
}

// Indicator is the status task: every tick it classifies link/tunnel state
// and renders the pattern on the ready and fault LEDs. It is the only writer
// of those two LEDs.
type Indicator struct {
	controller Controller
	link       LinkProbe
	tunnel     TunnelProbe
	config     IndicatorConfig
	bus        *events.Bus
	logger     *slog.Logger

	halted  atomic.Bool
	current atomic.Int32
}

// NewIndicator creates the status task. It does nothing until Run is called.
func NewIndicator(controller Controller, link LinkProbe, tunnel TunnelProbe, config IndicatorConfig, bus *events.Bus, logger *slog.Logger) *Indicator {
	if config.Period <= 0 {
		config.Period = time.Second
	}
	i := &Indicator{
		controller: controller,
		link:       link,
		tunnel:     tunnel,
		config:     config,
		bus:        bus,
		logger:     logger,
	}
	i.current.Store(-1)
	return i
}

// Run ticks until ctx is done.
func (i *Indicator) Run(ctx context.Context) {
	ticker := time.NewTicker(i.config.Period)
	defer ticker.Stop()

	i.logger.Info("Status indicator started", "period", i.config.Period)

	phase := false
	for {
		phase = !phase
		i.tick(phase)

		select {
		case <-ctx.Done():
			i.logger.Debug("Status indicator stopped")
			return
		case <-ticker.C:
		}
	}
}

// Halt switches to the halted pattern permanently.
func (i *Indicator) Halt() {
	i.halted.Store(true)
}

// Current returns the state rendered on the last tick.
// Before the first tick it reports Offline.
func (i *Indicator) Current() Connectivity {
	v := i.current.Load()
	if v < 0 {
		return Offline
	}
	return Connectivity(v)
}

func (i *Indicator) classify() Connectivity {
	if i.halted.Load() {
		return Halted
	}
	linkUp := i.link != nil && i.link.LinkUp()
	tunnelUp := linkUp && i.tunnel != nil && i.tunnel.IsInitialized()
	return Classify(linkUp, tunnelUp)
}

func (i *Indicator) tick(phase bool) {
	state := i.classify()

	previous := i.current.Swap(int32(state))
	if previous != int32(state) {
		prevName := "none"
		if previous >= 0 {
			prevName = Connectivity(previous).String()
		}
		i.logger.Info("Connectivity changed", "state", state.String(), "previous", prevName)
		i.bus.Publish(events.ConnectivityChangedEvent{
			State:     state.String(),
			Previous:  prevName,
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}

	lights := Pattern(state, phase)
	if err := i.controller.Set(i.config.ReadyLED, lights.Ready); err != nil {
		i.logger.Debug("Failed to set ready LED", "led", i.config.ReadyLED, "error", err)
	}
	if err := i.controller.Set(i.config.FaultLED, lights.Fault); err != nil {
		i.logger.Debug("Failed to set fault LED", "led", i.config.FaultLED, "error", err)
	}
}
