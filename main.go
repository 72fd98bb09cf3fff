package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/lampnode/cmd"
	"github.com/smazurov/lampnode/internal/config"
	"github.com/smazurov/lampnode/internal/logging"
	"github.com/smazurov/lampnode/internal/tunnel"
	"github.com/smazurov/lampnode/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":80" toml:"server.port" env:"SERVER_PORT"`

	// Strip settings
	StripCount         int    `help:"Number of pixels" default:"6" toml:"strip.count" env:"STRIP_COUNT"`
	StripDevice        string `help:"Device file frames are written to (empty discards)" default:"" toml:"strip.device" env:"STRIP_DEVICE"`
	StripOrder         string `help:"Channel order (rgb, grb, brg)" default:"grb" toml:"strip.order" env:"STRIP_ORDER"`
	StripBrightness    int    `help:"Global brightness 0-255" default:"100" toml:"strip.brightness" env:"STRIP_BRIGHTNESS"`
	StripCorrection    string `help:"Color correction as 6 hex digits" default:"ffb0f0" toml:"strip.correction" env:"STRIP_CORRECTION"`
	StripStepDelay     string `help:"Delay between pixels during a transition" default:"200ms" toml:"strip.step_delay" env:"STRIP_STEP_DELAY"`
	StripFlushInterval string `help:"Interval between strip flushes" default:"20ms" toml:"strip.flush_interval" env:"STRIP_FLUSH_INTERVAL"`

	// Status LED settings
	StatusReadyLed    string `help:"Ready LED name under /sys/class/leds" default:"green" toml:"status.ready_led" env:"STATUS_READY_LED"`
	StatusFaultLed    string `help:"Fault LED name under /sys/class/leds" default:"red" toml:"status.fault_led" env:"STATUS_FAULT_LED"`
	StatusActivityLed string `help:"Busy LED name (empty disables)" default:"" toml:"status.activity_led" env:"STATUS_ACTIVITY_LED"`
	StatusTick        string `help:"Status indicator period" default:"1s" toml:"status.tick" env:"STATUS_TICK"`
	StatusGpioChip    string `help:"GPIO chip driving the LEDs (empty uses sysfs)" default:"" toml:"status.gpio_chip" env:"STATUS_GPIO_CHIP"`
	StatusGpioLines   string `help:"LED to line offset map, e.g. green=17,red=27" default:"" toml:"status.gpio_lines" env:"STATUS_GPIO_LINES"`

	// Network settings
	NetworkInterface string `help:"Wireless interface" default:"wlan0" toml:"network.interface" env:"NETWORK_INTERFACE"`
	NetworkSsidLabel string `help:"Label shown by the provisioning portal" default:"lampnode" toml:"network.ssid_label" env:"NETWORK_SSID_LABEL"`
	NetworkPoll      string `help:"Link poll interval while joining" default:"500ms" toml:"network.poll" env:"NETWORK_POLL"`

	// Time settings
	TimeServers  string `help:"NTP servers, comma separated, tried in order" default:"0.asia.pool.ntp.org,pool.ntp.org,time.google.com" toml:"time.servers" env:"TIME_SERVERS"`
	TimeTimezone string `help:"Timezone for the reported time" default:"Asia/Jerusalem" toml:"time.timezone" env:"TIME_TIMEZONE"`
	TimeTimeout  string `help:"Per-server NTP timeout" default:"5s" toml:"time.timeout" env:"TIME_TIMEOUT"`

	// Tunnel settings
	TunnelEnabled           bool   `help:"Bring up the WireGuard tunnel" default:"true" toml:"tunnel.enabled" env:"TUNNEL_ENABLED"`
	TunnelInterface         string `help:"WireGuard interface" default:"wg0" toml:"tunnel.interface" env:"TUNNEL_INTERFACE"`
	TunnelLocalAddress      string `help:"Local tunnel address" default:"" toml:"tunnel.local_address" env:"TUNNEL_LOCAL_ADDRESS"`
	TunnelPrefixLength      int    `help:"Prefix length of the local tunnel address" default:"24" toml:"tunnel.prefix_length" env:"TUNNEL_PREFIX_LENGTH"`
	TunnelPrivateKey        string `help:"Local private key (base64)" default:"" toml:"tunnel.private_key" env:"TUNNEL_PRIVATE_KEY"`
	TunnelEndpointHost      string `help:"Peer host" default:"" toml:"tunnel.endpoint_host" env:"TUNNEL_ENDPOINT_HOST"`
	TunnelEndpointPublicKey string `help:"Peer public key (base64)" default:"" toml:"tunnel.endpoint_public_key" env:"TUNNEL_ENDPOINT_PUBLIC_KEY"`
	TunnelEndpointPort      int    `help:"Peer port" default:"3000" toml:"tunnel.endpoint_port" env:"TUNNEL_ENDPOINT_PORT"`
	TunnelKeepalive         string `help:"Persistent keepalive interval" default:"25s" toml:"tunnel.keepalive" env:"TUNNEL_KEEPALIVE"`
	TunnelAllowedNetworks   string `help:"Allowed IPs, comma separated" default:"0.0.0.0/0" toml:"tunnel.allowed_ips" env:"TUNNEL_ALLOWED_IPS"`

	// MQTT settings
	MqttBroker      string `help:"MQTT broker URL (empty disables the bridge)" default:"" toml:"mqtt.broker" env:"MQTT_BROKER"`
	MqttUsername    string `help:"MQTT username" default:"" toml:"mqtt.username" env:"MQTT_USERNAME"`
	MqttPassword    string `help:"MQTT password" default:"" toml:"mqtt.password" env:"MQTT_PASSWORD"`
	MqttClient      string `help:"MQTT client id" default:"lampnode" toml:"mqtt.client_id" env:"MQTT_CLIENT_ID"`
	MqttTopicPrefix string `help:"MQTT topic prefix" default:"lampnode" toml:"mqtt.topic_prefix" env:"MQTT_TOPIC_PREFIX"`

	// Metrics settings
	MetricsEnabled bool `help:"Serve Prometheus metrics on /metrics" default:"true" toml:"metrics.enabled" env:"METRICS_ENABLED"`

	// Logging settings
	LoggingLevel      string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat     string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingBootstrap  string `help:"Bootstrap logging level" default:"" toml:"logging.bootstrap" env:"LOGGING_BOOTSTRAP"`
	LoggingStatus     string `help:"Status indicator logging level" default:"" toml:"logging.status" env:"LOGGING_STATUS"`
	LoggingTransition string `help:"Transition logging level" default:"" toml:"logging.transition" env:"LOGGING_TRANSITION"`
	LoggingTunnel     string `help:"Tunnel logging level" default:"" toml:"logging.tunnel" env:"LOGGING_TUNNEL"`
	LoggingHttp       string `help:"HTTP request logging level" default:"" toml:"logging.http" env:"LOGGING_HTTP"`
}

// loggingConfig merges the [logging] table with the explicit per-module options.
func (o *Options) loggingConfig() logging.Config {
	cfg := config.LoadLoggingConfig(o.Config)
	cfg.Level = o.LoggingLevel
	cfg.Format = o.LoggingFormat
	for module, level := range map[string]string{
		"bootstrap":  o.LoggingBootstrap,
		"status":     o.LoggingStatus,
		"transition": o.LoggingTransition,
		"tunnel":     o.LoggingTunnel,
		"http":       o.LoggingHttp,
	} {
		if level != "" {
			cfg.Modules[module] = level
		}
	}
	return cfg
}

func (o *Options) tunnelConfig() tunnel.Config {
	return tunnel.Config{
		Interface:         o.TunnelInterface,
		PrefixLength:      o.TunnelPrefixLength,
		PrivateKey:        o.TunnelPrivateKey,
		EndpointHost:      o.TunnelEndpointHost,
		EndpointPublicKey: o.TunnelEndpointPublicKey,
		EndpointPort:      o.TunnelEndpointPort,
		Keepalive:         config.Duration(o.TunnelKeepalive, 25*time.Second),
		AllowedIPs:        splitList(o.TunnelAllowedNetworks),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(opts.loggingConfig())

		// Subcommands run after this callback without OnStart, so devices
		// are only opened once the daemon actually starts.
		svc := newLifecycle(func() service {
			return newDaemon(opts)
		})
		ctx, cancel := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			logging.GetLogger("main").Info("lampnode", "version", version.String())
			svc.start(ctx)
		})

		hooks.OnStop(func() {
			cancel()
			svc.stop()
		})
	})

	cli.Root().AddCommand(cmd.CreateLampCmd())

	cli.Root().Version = version.String()

	// Run the CLI
	cli.Run()
}
