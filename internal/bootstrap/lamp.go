package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/smazurov/lampnode/internal/color"
	"github.com/smazurov/lampnode/internal/timesync"
	"github.com/smazurov/lampnode/internal/tunnel"
)

// LEDs switches named status LEDs.
type LEDs interface {
	Set(name string, on bool) error
}

// Strip is cleared at startup.
type Strip interface {
	Fill(c color.Color)
	Show() error
}

// Runner is a long-lived task started in the background.
type Runner interface {
	Run(ctx context.Context)
}

// Indicator renders connectivity and can be switched to the halted pattern.
type Indicator interface {
	Runner
	Halt()
}

// Network joins the wireless network.
type Network interface {
	AutoConnect(ctx context.Context, label string) error
}

// Clock synchronizes time.
type Clock interface {
	Sync(ctx context.Context) (timesync.Result, error)
}

// Tunnel brings up the encrypted overlay link.
type Tunnel interface {
	Begin(ctx context.Context, cfg tunnel.Config) error
}

// Server is the command server.
type Server interface {
	Listen(addr string) error
	Serve() error
}

// Notifier reports progress to the service manager.
type Notifier interface {
	Ready()
	Status(status string)
	Halted(reason error)
}

// Components are the collaborators wired into the startup sequence.
type Components struct {
	LEDs       LEDs
	StatusLEDs []string
	Strip      Strip
	Flusher    Runner
	Indicator  Indicator
	Network    Network
	SSIDLabel  string
	Clock      Clock

	// Tunnel is nil when the tunnel is disabled.
	Tunnel       Tunnel
	TunnelConfig tunnel.Config
	LocalAddress string

	Server   Server
	Addr     string
	Notifier Notifier
}

// Lamp is the lamp's startup sequence.
type Lamp struct {
	c      Components
	seq    *Sequence
	logger *slog.Logger
}

// NewLamp builds the startup sequence:
//
//  1. clear status LEDs and strip, start the flusher
//  2. start the status indicator
//  3. join the network
//  4. synchronize time (best effort)
//  5. parse the tunnel address (fatal)
//  6. bring up the tunnel
//  7. start the command server
func NewLamp(c Components, logger *slog.Logger) *Lamp {
	l := &Lamp{c: c, logger: logger}
	cfg := c.TunnelConfig

	seq := NewSequence(logger).
		Add("outputs", false, l.initOutputs).
		Add("status-indicator", false, func(ctx context.Context) error {
			go c.Indicator.Run(ctx)
			return nil
		}).
		Add("network", false, func(ctx context.Context) error {
			l.status("joining network")
			return c.Network.AutoConnect(ctx, c.SSIDLabel)
		}).
		Add("time", false, func(ctx context.Context) error {
			if _, err := c.Clock.Sync(ctx); err != nil {
				l.logger.Warn("Failed to obtain time", "error", err)
			}
			return nil
		})

	if c.Tunnel != nil {
		seq.
			Add("tunnel-address", true, func(context.Context) error {
				addr, err := tunnel.ParseAddress(c.LocalAddress)
				if err != nil {
					return err
				}
				cfg.LocalAddress = addr
				return nil
			}).
			Add("tunnel", false, func(ctx context.Context) error {
				l.status("starting tunnel")
				return c.Tunnel.Begin(ctx, cfg)
			})
	} else {
		logger.Info("Tunnel disabled, serving on all interfaces")
	}

	seq.Add("server", true, l.startServer)

	l.seq = seq
	return l
}

// Steps lists the step names in order.
func (l *Lamp) Steps() []string {
	return l.seq.Names()
}

// Run executes the sequence. On a fatal error the indicator switches to the
// halted pattern and the error is returned; the caller keeps the process up.
func (l *Lamp) Run(ctx context.Context) error {
	l.logger.Info("Starting lamp")

	err := l.seq.Run(ctx)
	switch {
	case err == nil:
		l.logger.Info("Lamp ready", "addr", l.c.Addr)
		if l.c.Notifier != nil {
			l.c.Notifier.Ready()
		}
		l.status("serving")
	case errors.Is(err, ErrHalted):
		l.c.Indicator.Halt()
		if l.c.Notifier != nil {
			l.c.Notifier.Halted(err)
		}
	}
	return err
}

func (l *Lamp) initOutputs(ctx context.Context) error {
	var errs []error
	for _, name := range l.c.StatusLEDs {
		if name == "" {
			continue
		}
		if err := l.c.LEDs.Set(name, false); err != nil {
			errs = append(errs, fmt.Errorf("led %s: %w", name, err))
		}
	}

	l.c.Strip.Fill(color.Black)
	if err := l.c.Strip.Show(); err != nil {
		errs = append(errs, fmt.Errorf("strip: %w", err))
	}

	if l.c.Flusher != nil {
		go l.c.Flusher.Run(ctx)
	}
	return errors.Join(errs...)
}

func (l *Lamp) startServer(context.Context) error {
	if err := l.c.Server.Listen(l.c.Addr); err != nil {
		return err
	}
	go func() {
		if err := l.c.Server.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.logger.Error("HTTP server stopped", "error", err)
		}
	}()
	return nil
}

func (l *Lamp) status(s string) {
	if l.c.Notifier != nil {
		l.c.Notifier.Status(s)
	}
}
