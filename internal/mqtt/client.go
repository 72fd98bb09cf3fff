package mqtt

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Config holds broker settings.
type Config struct {
	Broker      string
	Username    string
	Password    string
	ClientID    string
	TopicPrefix string
	Timeout     time.Duration
}

// Conn is the subset of an MQTT session the bridge needs.
type Conn interface {
	Publish(topic string, retained bool, payload string) error
	Subscribe(topic string, handler func(payload []byte)) error
	Disconnect()
}

// DialFunc connects to the broker. onConnect runs after every (re)connect.
type DialFunc func(cfg Config, will string, onConnect func(Conn), logger *slog.Logger) (Conn, error)

var errTimeout = errors.New("mqtt operation timed out")

type pahoConn struct {
	client  paho.Client
	timeout time.Duration
}

func wait(token paho.Token, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return errTimeout
	}
	return token.Error()
}

func (c *pahoConn) Publish(topic string, retained bool, payload string) error {
	return wait(c.client.Publish(topic, 0, retained, payload), c.timeout)
}

func (c *pahoConn) Subscribe(topic string, handler func(payload []byte)) error {
	return wait(c.client.Subscribe(topic, 0, func(_ paho.Client, msg paho.Message) {
		handler(msg.Payload())
	}), c.timeout)
}

func (c *pahoConn) Disconnect() {
	c.client.Disconnect(uint(c.timeout.Milliseconds()))
}

// Dial connects with paho. The will publishes "offline" on will retained.
func Dial(cfg Config, will string, onConnect func(Conn), logger *slog.Logger) (Conn, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(cfg.Timeout)
	opts.SetWill(will, "offline", 0, true)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logger.Warn("MQTT connection lost", "error", err)
	})
	opts.SetOnConnectHandler(func(c paho.Client) {
		logger.Info("Connected to MQTT", "broker", cfg.Broker)
		onConnect(&pahoConn{client: c, timeout: cfg.Timeout})
	})

	client := paho.NewClient(opts)
	if err := wait(client.Connect(), cfg.Timeout); err != nil {
		return nil, fmt.Errorf("MQTT connection failed: %w", err)
	}
	return &pahoConn{client: client, timeout: cfg.Timeout}, nil
}
