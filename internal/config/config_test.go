package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

// deviceOptions mirrors the shape of the daemon's flag struct.
type deviceOptions struct {
	Config string `help:"Config file path"`

	Port           string   `toml:"server.port" env:"SERVER_PORT"`
	StripCount     int      `toml:"strip.count" env:"STRIP_COUNT"`
	StripStepDelay string   `toml:"strip.step_delay" env:"STRIP_STEP_DELAY"`
	TunnelEnabled  bool     `toml:"tunnel.enabled" env:"TUNNEL_ENABLED"`
	TimeServers    []string `toml:"time.servers" env:"TIME_SERVERS"`
	LoggingAPI     string   `toml:"logging.api" env:"LOGGING_API"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigFromTOML(t *testing.T) {
	path := writeConfig(t, `
[server]
port = ":8080"

[strip]
count = 12
step_delay = "50ms"

[tunnel]
enabled = true

[time]
servers = ["a.example", "b.example"]

[logging]
api = "debug"
`)

	opts := &deviceOptions{Config: path, StripCount: 6}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	want := &deviceOptions{
		Config:         path,
		Port:           ":8080",
		StripCount:     12,
		StripStepDelay: "50ms",
		TunnelEnabled:  true,
		TimeServers:    []string{"a.example", "b.example"},
		LoggingAPI:     "debug",
	}
	if !reflect.DeepEqual(opts, want) {
		t.Errorf("got %+v\nwant %+v", opts, want)
	}
}

func TestLoadConfigFromEnvVars(t *testing.T) {
	t.Setenv("LAMPNODE_SERVER_PORT", ":9090")
	t.Setenv("LAMPNODE_STRIP_COUNT", "3")
	t.Setenv("LAMPNODE_TUNNEL_ENABLED", "true")
	t.Setenv("LAMPNODE_TIME_SERVERS", " a.example , ,b.example ")

	opts := &deviceOptions{}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.Port != ":9090" {
		t.Errorf("Port = %q, want :9090", opts.Port)
	}
	if opts.StripCount != 3 {
		t.Errorf("StripCount = %d, want 3", opts.StripCount)
	}
	if !opts.TunnelEnabled {
		t.Error("TunnelEnabled = false, want true")
	}
	if want := []string{"a.example", "b.example"}; !reflect.DeepEqual(opts.TimeServers, want) {
		t.Errorf("TimeServers = %v, want %v", opts.TimeServers, want)
	}
}

func TestLoadConfigPrecedence(t *testing.T) {
	path := writeConfig(t, `
[server]
port = ":8080"

[strip]
count = 12
step_delay = "50ms"
`)
	t.Setenv("LAMPNODE_SERVER_PORT", ":9090")
	t.Setenv("LAMPNODE_STRIP_COUNT", "24")

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().Int("strip-count", 6, "")
	if err := cmd.Flags().Set("strip-count", "8"); err != nil {
		t.Fatal(err)
	}

	opts := &deviceOptions{Config: path, StripCount: 8}
	if err := LoadConfig(opts, cmd); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.Port != ":9090" {
		t.Errorf("Port = %q, env should override TOML", opts.Port)
	}
	if opts.StripCount != 8 {
		t.Errorf("StripCount = %d, CLI flag should win", opts.StripCount)
	}
	if opts.StripStepDelay != "50ms" {
		t.Errorf("StripStepDelay = %q, want TOML value", opts.StripStepDelay)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	opts := &deviceOptions{Config: filepath.Join(t.TempDir(), "missing.toml"), Port: ":80"}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig should not fail for missing file: %v", err)
	}
	if opts.Port != ":80" {
		t.Errorf("Port = %q, defaults should be kept", opts.Port)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	path := writeConfig(t, "[strip\ncount = ")
	if err := LoadConfig(&deviceOptions{Config: path}, nil); err == nil {
		t.Fatal("LoadConfig should fail for invalid TOML")
	}
}

func TestLoadConfigRejectsNonPointer(t *testing.T) {
	if err := LoadConfig(deviceOptions{}, nil); err == nil {
		t.Fatal("LoadConfig should reject a non-pointer")
	}
}

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"level1": map[string]any{
			"level2": map[string]any{"value": "nested_value"},
			"simple": "simple_value",
		},
		"root": "root_value",
	}

	tests := []struct {
		path     string
		expected any
	}{
		{"root", "root_value"},
		{"level1.simple", "simple_value"},
		{"level1.level2.value", "nested_value"},
		{"nonexistent", nil},
		{"root.child", nil},
	}

	for _, test := range tests {
		if result := getNestedValue(data, test.path); result != test.expected {
			t.Errorf("getNestedValue(%q) = %v, expected %v", test.path, result, test.expected)
		}
	}
}

func TestSetFieldValueNumericPort(t *testing.T) {
	s := &struct{ Port string }{}
	setFieldValue(reflect.ValueOf(s).Elem().Field(0), int64(8080))
	if s.Port != "8080" {
		t.Errorf("Port = %q, want 8080", s.Port)
	}
}

func TestSetFieldValueArrayIntoString(t *testing.T) {
	s := &struct{ Servers string }{}
	setFieldValue(reflect.ValueOf(s).Elem().Field(0), []any{"pool.ntp.org", int64(3), "time.google.com"})
	if s.Servers != "pool.ntp.org,time.google.com" {
		t.Errorf("Servers = %q", s.Servers)
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"200ms", 200 * time.Millisecond},
		{"1s", time.Second},
		{"", 5 * time.Second},
		{"soon", 5 * time.Second},
		{"-1s", 5 * time.Second},
	}
	for _, tt := range tests {
		if got := Duration(tt.in, 5*time.Second); got != tt.want {
			t.Errorf("Duration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestReadLoggingConfig(t *testing.T) {
	path := writeConfig(t, `
[logging]
level = "warn"
format = "json"
transition = "debug"
api = "error"
`)

	cfg, err := ReadLoggingConfig(path)
	if err != nil {
		t.Fatalf("ReadLoggingConfig failed: %v", err)
	}
	if cfg.Level != "warn" || cfg.Format != "json" {
		t.Errorf("Level/Format = %q/%q", cfg.Level, cfg.Format)
	}
	want := map[string]string{"transition": "debug", "api": "error"}
	if !reflect.DeepEqual(cfg.Modules, want) {
		t.Errorf("Modules = %v, want %v", cfg.Modules, want)
	}

	if _, err := ReadLoggingConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("ReadLoggingConfig should fail for a missing file")
	}
	if got := LoadLoggingConfig(""); got.Level != "info" || got.Format != "text" {
		t.Errorf("LoadLoggingConfig(\"\") = %+v, want defaults", got)
	}
}
