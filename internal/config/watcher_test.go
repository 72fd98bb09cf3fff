package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smazurov/lampnode/internal/logging"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func startWatcher(t *testing.T, w *Watcher[logging.Config]) {
	t.Helper()
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := w.Stop(); err != nil {
			t.Errorf("watcher.Stop failed: %v", err)
		}
	})
	// Give the watcher a moment to register
	time.Sleep(50 * time.Millisecond)
}

func TestConfigWatcher_ReloadsLoggingLevels(t *testing.T) {
	path := writeConfig(t, "[logging]\nlevel = \"info\"\n")

	received := make(chan logging.Config, 1)
	w := NewConfigWatcher(path, ReadLoggingConfig, newTestLogger(), WithDebounce[logging.Config](30*time.Millisecond))
	w.OnReload(func(cfg logging.Config) { received <- cfg })
	startWatcher(t, w)

	if err := os.WriteFile(path, []byte("[logging]\nlevel = \"debug\"\ntunnel = \"warn\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-received:
		if cfg.Level != "debug" || cfg.Modules["tunnel"] != "warn" {
			t.Errorf("got %+v", cfg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for config reload")
	}
}

func TestConfigWatcher_SeesRenameReplace(t *testing.T) {
	path := writeConfig(t, "[logging]\nlevel = \"info\"\n")

	received := make(chan logging.Config, 1)
	w := NewConfigWatcher(path, ReadLoggingConfig, newTestLogger(), WithDebounce[logging.Config](30*time.Millisecond))
	w.OnReload(func(cfg logging.Config) {
		select {
		case received <- cfg:
		default:
		}
	})
	startWatcher(t, w)

	tmp := filepath.Join(filepath.Dir(path), ".config.toml.tmp")
	if err := os.WriteFile(tmp, []byte("[logging]\nlevel = \"error\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-received:
		if cfg.Level != "error" {
			t.Errorf("Level = %q, want error", cfg.Level)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload after rename")
	}
}

func TestConfigWatcher_IgnoresSiblingFiles(t *testing.T) {
	path := writeConfig(t, "[logging]\nlevel = \"info\"\n")

	var count atomic.Int32
	w := NewConfigWatcher(path, ReadLoggingConfig, newTestLogger(), WithDebounce[logging.Config](20*time.Millisecond))
	w.OnReload(func(logging.Config) { count.Add(1) })
	startWatcher(t, w)

	if err := os.WriteFile(filepath.Join(filepath.Dir(path), "other.toml"), []byte("x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(150 * time.Millisecond)

	if got := count.Load(); got != 0 {
		t.Errorf("expected 0 reloads, got %d", got)
	}
}

func TestConfigWatcher_Unsubscribe(t *testing.T) {
	path := writeConfig(t, "[logging]\nlevel = \"info\"\n")

	var count1, count2 atomic.Int32
	w := NewConfigWatcher(path, ReadLoggingConfig, newTestLogger(), WithDebounce[logging.Config](30*time.Millisecond))
	w.OnReload(func(logging.Config) { count1.Add(1) })
	unsub := w.OnReload(func(logging.Config) { count2.Add(1) })
	startWatcher(t, w)

	if err := os.WriteFile(path, []byte("[logging]\nlevel = \"warn\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)

	unsub()

	if err := os.WriteFile(path, []byte("[logging]\nlevel = \"debug\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)

	if got := count1.Load(); got != 2 {
		t.Errorf("handler1: expected 2 calls, got %d", got)
	}
	if got := count2.Load(); got != 1 {
		t.Errorf("handler2: expected 1 call, got %d", got)
	}
}

func TestConfigWatcher_ErrorHandler(t *testing.T) {
	path := writeConfig(t, "[logging]\nlevel = \"info\"\n")

	errorReceived := make(chan error, 1)
	configReceived := make(chan logging.Config, 1)
	w := NewConfigWatcher(
		path,
		ReadLoggingConfig,
		newTestLogger(),
		WithDebounce[logging.Config](30*time.Millisecond),
		WithErrorHandler[logging.Config](func(err error) { errorReceived <- err }),
	)
	w.OnReload(func(cfg logging.Config) { configReceived <- cfg })
	startWatcher(t, w)

	if err := os.WriteFile(path, []byte("invalid toml [[["), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-errorReceived:
	case <-configReceived:
		t.Fatal("config handler should not be called on error")
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error handler")
	}
}

func TestConfigWatcher_Debounce(t *testing.T) {
	path := writeConfig(t, "[logging]\nlevel = \"info\"\n")

	var count atomic.Int32
	var last atomic.Value
	w := NewConfigWatcher(path, ReadLoggingConfig, newTestLogger(), WithDebounce[logging.Config](200*time.Millisecond))
	w.OnReload(func(cfg logging.Config) {
		count.Add(1)
		last.Store(cfg.Modules["api"])
	})
	startWatcher(t, w)

	for i := 1; i <= 5; i++ {
		content := fmt.Sprintf("[logging]\napi = \"level%d\"\n", i)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(30 * time.Millisecond)
	}
	time.Sleep(500 * time.Millisecond)

	if got := count.Load(); got != 1 {
		t.Errorf("expected 1 debounced call, got %d", got)
	}
	if got, _ := last.Load().(string); got != "level5" {
		t.Errorf("expected final value level5, got %q", got)
	}
}

func TestConfigWatcher_ContextCancelStops(t *testing.T) {
	path := writeConfig(t, "[logging]\nlevel = \"info\"\n")

	var count atomic.Int32
	w := NewConfigWatcher(path, ReadLoggingConfig, newTestLogger(), WithDebounce[logging.Config](20*time.Millisecond))
	w.OnReload(func(logging.Config) { count.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()
	<-w.done

	if err := os.WriteFile(path, []byte("[logging]\nlevel = \"debug\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(150 * time.Millisecond)

	if got := count.Load(); got != 0 {
		t.Errorf("expected 0 calls after cancel, got %d", got)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop after cancel: %v", err)
	}
}
