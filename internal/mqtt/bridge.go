package mqtt

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/smazurov/lampnode/internal/color"
	"github.com/smazurov/lampnode/internal/events"
	"github.com/smazurov/lampnode/internal/led"
	"github.com/smazurov/lampnode/internal/transition"
)

// Lamp is the color state commands are applied to.
type Lamp interface {
	Color() color.Color
	SetColor(c color.Color) *transition.Handle
}

// Status reports the connectivity state the status LEDs currently show.
type Status interface {
	Current() led.Connectivity
}

// Bridge publishes lamp state to the broker and applies color commands.
type Bridge struct {
	config Config
	lamp   Lamp
	status Status
	bus    *events.Bus
	dial   DialFunc
	logger *slog.Logger

	mu           sync.Mutex
	conn         Conn
	unsubs       []func()
	connectivity string
}

// NewBridge creates a bridge. A nil dial uses Dial. status may be nil, in
// which case connectivity is only known from events seen after Start.
func NewBridge(config Config, lamp Lamp, status Status, bus *events.Bus, dial DialFunc, logger *slog.Logger) *Bridge {
	if dial == nil {
		dial = Dial
	}
	if config.TopicPrefix == "" {
		config.TopicPrefix = "lampnode"
	}
	config.TopicPrefix = strings.TrimRight(config.TopicPrefix, "/")
	return &Bridge{
		config: config,
		lamp:   lamp,
		status: status,
		bus:    bus,
		dial:   dial,
		logger: logger.With("component", "mqtt-bridge"),
	}
}

func (b *Bridge) topic(suffix string) string {
	return b.config.TopicPrefix + "/" + suffix
}

// Start connects and begins mirroring bus events.
func (b *Bridge) Start() error {
	conn, err := b.dial(b.config, b.topic("status"), b.onConnect, b.logger)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.conn = conn
	b.unsubs = []func(){
		b.bus.Subscribe(func(e events.ColorChangedEvent) {
			b.publish("color", e.Color)
		}),
		b.bus.Subscribe(func(e events.ConnectivityChangedEvent) {
			b.mu.Lock()
			b.connectivity = e.State
			b.mu.Unlock()
			b.publish("connectivity", e.State)
		}),
	}
	b.logger.Info("MQTT bridge started", "broker", b.config.Broker, "prefix", b.config.TopicPrefix)
	return nil
}

// onConnect announces availability, republishes retained state and
// (re)subscribes to commands. It runs on every reconnect.
func (b *Bridge) onConnect(conn Conn) {
	if err := conn.Subscribe(b.topic("color/set"), b.handleSetColor); err != nil {
		b.logger.Warn("Failed to subscribe to color commands", "error", err)
	}
	b.publishOn(conn, "status", "online")
	b.publishOn(conn, "color", b.lamp.Color().String())

	if connectivity := b.currentConnectivity(); connectivity != "" {
		b.publishOn(conn, "connectivity", connectivity)
	}
}

func (b *Bridge) currentConnectivity() string {
	if b.status != nil {
		return b.status.Current().String()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connectivity
}

func (b *Bridge) handleSetColor(payload []byte) {
	raw := strings.TrimSpace(string(payload))
	c, err := color.Parse(raw)
	if err != nil {
		b.logger.Warn("Rejected MQTT color command", "payload", raw, "error", err)
		b.bus.Publish(events.BadRequestEvent{
			Operation: "mqtt-set-color",
			Reason:    err.Error(),
			Timestamp: time.Now().Format(time.RFC3339),
		})
		return
	}
	b.logger.Debug("MQTT color command", "color", c.String())
	b.lamp.SetColor(c)
}

func (b *Bridge) publish(suffix, payload string) {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn != nil {
		b.publishOn(conn, suffix, payload)
	}
}

func (b *Bridge) publishOn(conn Conn, suffix, payload string) {
	if err := conn.Publish(b.topic(suffix), true, payload); err != nil {
		b.logger.Warn("MQTT publish failed", "topic", b.topic(suffix), "error", err)
	}
}

// Stop publishes offline and disconnects.
func (b *Bridge) Stop() {
	b.mu.Lock()
	conn := b.conn
	unsubs := b.unsubs
	b.conn = nil
	b.unsubs = nil
	b.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	if conn == nil {
		return
	}
	b.publishOn(conn, "status", "offline")
	conn.Disconnect()
	b.logger.Info("MQTT bridge stopped")
}
