package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/lampnode/internal/color"
	"github.com/smazurov/lampnode/internal/timesync"
	"github.com/smazurov/lampnode/internal/tunnel"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// recorder collects calls from every fake in order.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type fakeLEDs struct{ r *recorder }

func (f fakeLEDs) Set(name string, on bool) error {
	if on {
		f.r.add("led " + name + " on")
	} else {
		f.r.add("led " + name + " off")
	}
	return nil
}

type fakeStrip struct {
	r       *recorder
	filled  color.Color
	showErr error
}

func (f *fakeStrip) Fill(c color.Color) {
	f.filled = c
	f.r.add("strip fill " + c.String())
}

func (f *fakeStrip) Show() error {
	f.r.add("strip show")
	return f.showErr
}

type fakeRunner struct {
	r       *recorder
	name    string
	started chan struct{}
}

func newFakeRunner(r *recorder, name string) *fakeRunner {
	return &fakeRunner{r: r, name: name, started: make(chan struct{})}
}

func (f *fakeRunner) Run(ctx context.Context) {
	close(f.started)
	<-ctx.Done()
}

type fakeIndicator struct {
	*fakeRunner
	mu     sync.Mutex
	halted bool
}

func (f *fakeIndicator) Halt() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.halted = true
	f.r.add("indicator halt")
}

func (f *fakeIndicator) isHalted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.halted
}

type fakeNetwork struct {
	r         *recorder
	indicator *fakeIndicator
	block     bool
}

func (f *fakeNetwork) AutoConnect(ctx context.Context, label string) error {
	// The indicator must already be running when the join begins.
	select {
	case <-f.indicator.started:
		f.r.add("indicator running")
	case <-time.After(time.Second):
		f.r.add("indicator not running")
	}
	f.r.add("network " + label)
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

type fakeClock struct {
	r   *recorder
	err error
}

func (f fakeClock) Sync(context.Context) (timesync.Result, error) {
	f.r.add("time")
	return timesync.Result{Location: time.UTC}, f.err
}

type fakeTunnel struct {
	r   *recorder
	cfg tunnel.Config
	err error
}

func (f *fakeTunnel) Begin(_ context.Context, cfg tunnel.Config) error {
	f.cfg = cfg
	f.r.add("tunnel begin " + cfg.LocalAddress.String())
	return f.err
}

type fakeServer struct {
	r         *recorder
	listenErr error
	serving   chan struct{}
}

func (f *fakeServer) Listen(addr string) error {
	f.r.add("listen " + addr)
	return f.listenErr
}

func (f *fakeServer) Serve() error {
	close(f.serving)
	return http.ErrServerClosed
}

type fakeNotifier struct {
	r *recorder
}

func (f fakeNotifier) Ready()           { f.r.add("notify ready") }
func (f fakeNotifier) Status(s string)  { f.r.add("notify status " + s) }
func (f fakeNotifier) Halted(err error) { f.r.add("notify halted") }

type harness struct {
	r         *recorder
	strip     *fakeStrip
	indicator *fakeIndicator
	network   *fakeNetwork
	tunnel    *fakeTunnel
	server    *fakeServer
	flusher   *fakeRunner
}

func newHarness() (*harness, Components) {
	r := &recorder{}
	h := &harness{
		r:         r,
		strip:     &fakeStrip{r: r, filled: 0xffffff},
		indicator: &fakeIndicator{fakeRunner: newFakeRunner(r, "indicator")},
		tunnel:    &fakeTunnel{r: r},
		server:    &fakeServer{r: r, serving: make(chan struct{})},
		flusher:   newFakeRunner(r, "flusher"),
	}
	h.network = &fakeNetwork{r: r, indicator: h.indicator}

	c := Components{
		LEDs:         fakeLEDs{r: r},
		StatusLEDs:   []string{"green", "red", ""},
		Strip:        h.strip,
		Flusher:      h.flusher,
		Indicator:    h.indicator,
		Network:      h.network,
		SSIDLabel:    "lampnode",
		Clock:        fakeClock{r: r},
		Tunnel:       h.tunnel,
		TunnelConfig: tunnel.Config{Interface: "wg0", EndpointHost: "vpn.example", EndpointPort: 3000},
		LocalAddress: "10.0.0.7",
		Server:       h.server,
		Addr:         ":80",
		Notifier:     fakeNotifier{r: r},
	}
	return h, c
}

func TestLampRunsStepsInOrder(t *testing.T) {
	h, c := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLamp(c, testLogger())
	wantSteps := []string{"outputs", "status-indicator", "network", "time", "tunnel-address", "tunnel", "server"}
	if !reflect.DeepEqual(l.Steps(), wantSteps) {
		t.Fatalf("Steps() = %v, want %v", l.Steps(), wantSteps)
	}

	if err := l.Run(ctx); err != nil {
		t.Fatalf("Run() = %v", err)
	}

	want := []string{
		"led green off",
		"led red off",
		"strip fill 000000",
		"strip show",
		"notify status joining network",
		"indicator running",
		"network lampnode",
		"time",
		"notify status starting tunnel",
		"tunnel begin 10.0.0.7",
		"listen :80",
		"notify ready",
		"notify status serving",
	}
	if got := h.r.list(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls:\n got %v\nwant %v", got, want)
	}

	if h.tunnel.cfg.EndpointHost != "vpn.example" || h.tunnel.cfg.EndpointPort != 3000 {
		t.Errorf("tunnel config not passed through: %+v", h.tunnel.cfg)
	}

	select {
	case <-h.server.serving:
	case <-time.After(time.Second):
		t.Error("server never served")
	}
	select {
	case <-h.flusher.started:
	case <-time.After(time.Second):
		t.Error("flusher never started")
	}
}

func TestLampHaltsOnBadTunnelAddress(t *testing.T) {
	h, c := newHarness()
	c.LocalAddress = "10.0.0"

	err := NewLamp(c, testLogger()).Run(context.Background())
	if !errors.Is(err, ErrHalted) {
		t.Fatalf("Run() = %v, want ErrHalted", err)
	}
	if !errors.Is(err, tunnel.ErrInvalidAddress) {
		t.Errorf("Run() = %v, want it to wrap ErrInvalidAddress", err)
	}
	if !h.indicator.isHalted() {
		t.Error("indicator not halted")
	}

	for _, call := range h.r.list() {
		switch {
		case call == "notify ready",
			len(call) >= 6 && call[:6] == "listen",
			len(call) >= 12 && call[:12] == "tunnel begin":
			t.Errorf("unexpected call after halt: %q", call)
		}
	}
}

func TestLampContinuesAfterNonFatalFailures(t *testing.T) {
	h, c := newHarness()
	h.strip.showErr = errors.New("no device")
	h.tunnel.err = errors.New("handshake refused")
	c.Clock = fakeClock{r: h.r, err: errors.New("all servers failed")}

	if err := NewLamp(c, testLogger()).Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}

	calls := h.r.list()
	if calls[len(calls)-2] != "notify ready" {
		t.Errorf("lamp did not become ready: %v", calls)
	}
}

func TestLampHaltsWhenPortUnavailable(t *testing.T) {
	h, c := newHarness()
	h.server.listenErr = errors.New("address in use")

	err := NewLamp(c, testLogger()).Run(context.Background())
	if !errors.Is(err, ErrHalted) {
		t.Fatalf("Run() = %v, want ErrHalted", err)
	}
	if !h.indicator.isHalted() {
		t.Error("indicator not halted")
	}
}

func TestLampWithoutTunnel(t *testing.T) {
	h, c := newHarness()
	c.Tunnel = nil
	c.LocalAddress = "not an address"

	l := NewLamp(c, testLogger())
	want := []string{"outputs", "status-indicator", "network", "time", "server"}
	if !reflect.DeepEqual(l.Steps(), want) {
		t.Errorf("Steps() = %v, want %v", l.Steps(), want)
	}
	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if h.indicator.isHalted() {
		t.Error("indicator halted without a tunnel")
	}
}

func TestLampStopsWhenCancelledDuringJoin(t *testing.T) {
	h, c := newHarness()
	h.network.block = true

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewLamp(c, testLogger()).Run(ctx) }()

	<-h.indicator.started
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if h.indicator.isHalted() {
		t.Error("cancellation must not halt the indicator")
	}
}

func TestSequenceSkipsRemainingStepsAfterFatal(t *testing.T) {
	var ran []string
	seq := NewSequence(testLogger()).
		Add("a", false, func(context.Context) error { ran = append(ran, "a"); return errors.New("soft") }).
		Add("b", true, func(context.Context) error { ran = append(ran, "b"); return errors.New("hard") }).
		Add("c", false, func(context.Context) error { ran = append(ran, "c"); return nil })

	err := seq.Run(context.Background())
	if !errors.Is(err, ErrHalted) {
		t.Fatalf("Run() = %v, want ErrHalted", err)
	}
	if !reflect.DeepEqual(ran, []string{"a", "b"}) {
		t.Errorf("ran %v, want [a b]", ran)
	}
}
