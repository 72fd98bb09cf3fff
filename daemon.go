package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/smazurov/lampnode/internal/api"
	"github.com/smazurov/lampnode/internal/bootstrap"
	"github.com/smazurov/lampnode/internal/color"
	"github.com/smazurov/lampnode/internal/config"
	"github.com/smazurov/lampnode/internal/events"
	"github.com/smazurov/lampnode/internal/lamp"
	"github.com/smazurov/lampnode/internal/led"
	"github.com/smazurov/lampnode/internal/logging"
	"github.com/smazurov/lampnode/internal/metrics/collectors"
	"github.com/smazurov/lampnode/internal/metrics/exporters"
	"github.com/smazurov/lampnode/internal/mqtt"
	"github.com/smazurov/lampnode/internal/network"
	"github.com/smazurov/lampnode/internal/strip"
	"github.com/smazurov/lampnode/internal/systemd"
	"github.com/smazurov/lampnode/internal/timesync"
	"github.com/smazurov/lampnode/internal/transition"
	"github.com/smazurov/lampnode/internal/tunnel"
)

// unavailableTunnel stands in when the WireGuard control interface cannot
// be opened. The address is still validated; Begin reports the open error.
type unavailableTunnel struct{ err error }

func (u unavailableTunnel) Begin(context.Context, tunnel.Config) error { return u.err }

func newStrip(opts *Options, logger *slog.Logger) (*strip.Strip, error) {
	encoder := strip.NewEncoder()
	if order, err := strip.ParseOrder(opts.StripOrder); err != nil {
		logger.Warn("Invalid channel order, using default", "order", opts.StripOrder, "error", err)
	} else {
		encoder.Order = order
	}
	encoder.Brightness = uint8(max(0, min(255, opts.StripBrightness)))
	encoder.Correction = strip.TypicalSMD5050
	if correction, err := color.Parse(opts.StripCorrection); err != nil {
		logger.Warn("Invalid color correction, using SMD5050", "correction", opts.StripCorrection, "error", err)
	} else {
		encoder.Correction = correction
	}

	var sink strip.Sink = strip.Discard
	if opts.StripDevice != "" {
		device, err := strip.OpenDevice(opts.StripDevice)
		if err != nil {
			logger.Warn("Failed to open strip device, frames are discarded", "device", opts.StripDevice, "error", err)
		} else {
			sink = device
		}
	}

	return strip.New(opts.StripCount, encoder, sink)
}

// newLEDController prefers GPIO lines when a chip is configured and falls
// back to sysfs LEDs.
func newLEDController(opts *Options, logger *slog.Logger) (led.Controller, func() error) {
	if opts.StatusGpioChip != "" {
		lines, err := led.ParseLines(opts.StatusGpioLines)
		if err == nil {
			var gpio *led.GPIO
			if gpio, err = led.NewGPIO(opts.StatusGpioChip, lines, logger); err == nil {
				return gpio, gpio.Close
			}
		}
		logger.Warn("GPIO LEDs unavailable, falling back to sysfs", "chip", opts.StatusGpioChip, "error", err)
	}
	return led.New(logger, opts.StatusReadyLed, opts.StatusFaultLed, opts.StatusActivityLed), func() error { return nil }
}

// daemon owns every device and task of a running lamp.
type daemon struct {
	opts   *Options
	logger *slog.Logger

	closeLEDs func() error
	activity  *led.Activity
	pixels    *strip.Strip
	runner    *transition.Runner
	wireguard *tunnel.WireGuard

	eventCollector    *collectors.EventCollector
	wirelessCollector *collectors.WirelessCollector

	server   *api.Server
	bridge   *mqtt.Bridge
	notifier *systemd.Notifier
	sequence *bootstrap.Lamp
	watcher  *config.Watcher[logging.Config]
}

func newDaemon(opts *Options) *daemon {
	d := &daemon{opts: opts, logger: logging.GetLogger("main")}
	eventBus := events.New()

	// Status LEDs
	statusLogger := logging.GetLogger("status")
	var ledController led.Controller
	ledController, d.closeLEDs = newLEDController(opts, statusLogger)
	if opts.StatusActivityLed != "" {
		d.activity = led.NewActivity(ledController, opts.StatusActivityLed, statusLogger)
	}

	// Strip and color state
	stripLogger := logging.GetLogger("strip")
	pixels, err := newStrip(opts, stripLogger)
	if err != nil {
		d.logger.Error("Invalid strip configuration", "error", err)
		pixels, _ = strip.New(1, strip.NewEncoder(), strip.Discard)
	}
	d.pixels = pixels
	flusher := strip.NewFlusher(pixels, config.Duration(opts.StripFlushInterval, 20*time.Millisecond), stripLogger)
	d.runner = transition.NewRunner(pixels, config.Duration(opts.StripStepDelay, 200*time.Millisecond), eventBus, logging.GetLogger("transition"))
	state := lamp.NewState(color.Black, d.runner, eventBus)

	// Connectivity
	networkLogger := logging.GetLogger("network")
	link := network.NewLink(opts.NetworkInterface, nil)
	joiner := network.NewJoiner(link, config.Duration(opts.NetworkPoll, 500*time.Millisecond), networkLogger)

	var tunnelStarter bootstrap.Tunnel
	var tunnelProbe led.TunnelProbe = tunnel.Static(true)
	if opts.TunnelEnabled {
		tunnelLogger := logging.GetLogger("tunnel")
		d.wireguard, err = tunnel.Open(tunnelLogger)
		if err != nil {
			tunnelLogger.Warn("WireGuard control unavailable", "error", err)
			tunnelStarter = unavailableTunnel{err: err}
			tunnelProbe = tunnel.Static(false)
		} else {
			tunnelStarter = d.wireguard
			tunnelProbe = d.wireguard
		}
	}

	indicator := led.NewIndicator(ledController, link, tunnelProbe, led.IndicatorConfig{
		ReadyLED: opts.StatusReadyLed,
		FaultLED: opts.StatusFaultLed,
		Period:   config.Duration(opts.StatusTick, time.Second),
	}, eventBus, statusLogger)

	clock := timesync.New(timesync.Config{
		Servers:  splitList(opts.TimeServers),
		Timezone: opts.TimeTimezone,
		Timeout:  config.Duration(opts.TimeTimeout, 5*time.Second),
	}, nil, logging.GetLogger("timesync"))

	// Metrics
	apiOpts := &api.Options{
		Lamp:     state,
		EventBus: eventBus,
		Activity: d.activity,
		LEDs:     ledController,
	}
	if opts.MetricsEnabled {
		d.eventCollector = collectors.NewEventCollector(eventBus)
		d.wirelessCollector = collectors.NewWirelessCollector(opts.NetworkInterface)
		apiOpts.PrometheusHandler = exporters.HTTPHandler()
	}

	d.server = api.NewServer(apiOpts)

	if opts.MqttBroker != "" {
		d.bridge = mqtt.NewBridge(mqtt.Config{
			Broker:      opts.MqttBroker,
			Username:    opts.MqttUsername,
			Password:    opts.MqttPassword,
			ClientID:    opts.MqttClient,
			TopicPrefix: opts.MqttTopicPrefix,
		}, state, indicator, eventBus, nil, logging.GetLogger("mqtt"))
	}
	d.notifier = systemd.NewNotifier()

	d.sequence = bootstrap.NewLamp(bootstrap.Components{
		LEDs:         ledController,
		StatusLEDs:   []string{opts.StatusReadyLed, opts.StatusFaultLed, opts.StatusActivityLed},
		Strip:        pixels,
		Flusher:      flusher,
		Indicator:    indicator,
		Network:      joiner,
		SSIDLabel:    opts.NetworkSsidLabel,
		Clock:        clock,
		Tunnel:       tunnelStarter,
		TunnelConfig: opts.tunnelConfig(),
		LocalAddress: opts.TunnelLocalAddress,
		Server:       d.server,
		Addr:         opts.Port,
		Notifier:     d.notifier,
	}, logging.GetLogger("bootstrap"))

	d.watcher = config.NewConfigWatcher(opts.Config, config.ReadLoggingConfig, logging.GetLogger("config"),
		config.WithErrorHandler[logging.Config](func(err error) {
			d.logger.Warn("Config reload failed", "error", err)
		}))
	d.watcher.OnReload(func(cfg logging.Config) {
		logging.SetLevels(cfg)
		d.logger.Info("Logging levels reloaded", "level", cfg.Level)
	})

	return d
}

// run starts the lamp and blocks until ctx is done, whether the lamp is
// serving or halted.
func (d *daemon) run(ctx context.Context) {
	if err := d.watcher.Start(ctx); err != nil {
		d.logger.Warn("Config watcher not started", "path", d.opts.Config, "error", err)
	}

	if d.eventCollector != nil {
		d.eventCollector.Start()
	}
	if d.wirelessCollector != nil {
		if err := d.wirelessCollector.Start(ctx); err != nil {
			d.logger.Info("Wireless metrics unavailable", "error", err)
		}
	}

	err := d.sequence.Run(ctx)
	switch {
	case err == nil:
		d.activity.Idle()
		if d.bridge != nil {
			if startErr := d.bridge.Start(); startErr != nil {
				d.logger.Warn("MQTT bridge not started", "error", startErr)
			}
		}
	case errors.Is(err, bootstrap.ErrHalted):
		d.logger.Error("Lamp halted, waiting for restart", "error", err)
	default:
		d.logger.Info("Startup interrupted", "error", err)
	}

	<-ctx.Done()
}

// stop releases every device. The caller cancels the run context.
func (d *daemon) stop() {
	d.logger.Info("Shutting down lamp")
	d.notifier.Stopping()

	if err := d.server.Stop(); err != nil {
		d.logger.Error("Error stopping HTTP server", "error", err)
	}
	if d.bridge != nil {
		d.bridge.Stop()
	}
	d.runner.Stop()

	if err := d.watcher.Stop(); err != nil {
		d.logger.Warn("Error stopping config watcher", "error", err)
	}
	if d.eventCollector != nil {
		d.eventCollector.Stop()
	}
	if d.wirelessCollector != nil {
		_ = d.wirelessCollector.Stop()
	}
	if d.wireguard != nil {
		if err := d.wireguard.Close(); err != nil {
			d.logger.Warn("Error closing tunnel control", "error", err)
		}
	}
	if err := d.pixels.Close(); err != nil {
		d.logger.Warn("Error closing strip", "error", err)
	}
	if err := d.closeLEDs(); err != nil {
		d.logger.Warn("Error releasing LEDs", "error", err)
	}
}
