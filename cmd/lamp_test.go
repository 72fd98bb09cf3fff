package cmd

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/lampnode/internal/color"
)

// fakeLamp serves /status and /update like a device.
type fakeLamp struct {
	mu      sync.Mutex
	current string
	updates []string
	status  int
}

func (f *fakeLamp) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		io.WriteString(w, f.current+"\n")
	})
	mux.HandleFunc("POST /update", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if f.status != 0 {
			w.WriteHeader(f.status)
			return
		}
		c := r.PostForm.Get("color")
		f.updates = append(f.updates, c)
		f.current = strings.ToLower(c)
		io.WriteString(w, "OK\n")
	})
	return mux
}

func newLamp(t *testing.T, current string) (*fakeLamp, *httptest.Server) {
	t.Helper()
	f := &fakeLamp{current: current}
	ts := httptest.NewServer(f.handler())
	t.Cleanup(ts.Close)
	return f, ts
}

func TestClientGet(t *testing.T) {
	_, ts := newLamp(t, "ff00aa")

	got, err := NewClient(ts.URL, time.Second).Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got != 0xff00aa {
		t.Errorf("Get() = %s, want ff00aa", got)
	}
}

func TestClientHostWithoutScheme(t *testing.T) {
	_, ts := newLamp(t, "000000")
	host := strings.TrimPrefix(ts.URL, "http://")

	if _, err := NewClient(host+"/", time.Second).Get(context.Background()); err != nil {
		t.Errorf("Get() via bare host: %v", err)
	}
}

func TestClientSetSendsForm(t *testing.T) {
	f, ts := newLamp(t, "000000")

	if err := NewClient(ts.URL, time.Second).Set(context.Background(), 0x00ff00); err != nil {
		t.Fatal(err)
	}
	if len(f.updates) != 1 || f.updates[0] != "00ff00" {
		t.Errorf("updates = %v", f.updates)
	}
}

func TestClientSetReportsStatus(t *testing.T) {
	f, ts := newLamp(t, "000000")
	f.status = http.StatusBadRequest

	err := NewClient(ts.URL, time.Second).Set(context.Background(), 0x00ff00)
	if err == nil || err.Error() != "got 400 code from update endpoint" {
		t.Errorf("Set() error = %v", err)
	}
}

func TestClientSync(t *testing.T) {
	f, ts := newLamp(t, "123456")
	client := NewClient(ts.URL, time.Second)

	changed, err := client.Sync(context.Background(), 0x123456)
	if err != nil || changed {
		t.Fatalf("Sync(same) = %v, %v; want false, nil", changed, err)
	}
	if len(f.updates) != 0 {
		t.Errorf("Sync sent an update for an unchanged color: %v", f.updates)
	}

	changed, err = client.Sync(context.Background(), 0xabcdef)
	if err != nil || !changed {
		t.Fatalf("Sync(different) = %v, %v; want true, nil", changed, err)
	}
	if len(f.updates) != 1 || f.updates[0] != "abcdef" {
		t.Errorf("updates = %v", f.updates)
	}
}

func TestClientGetRejectsGarbage(t *testing.T) {
	_, ts := newLamp(t, "not-a-color")

	if _, err := NewClient(ts.URL, time.Second).Get(context.Background()); err == nil {
		t.Error("Get() should fail on an invalid body")
	}
}

func runLamp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := CreateLampCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLampCommandSetAndGet(t *testing.T) {
	_, ts := newLamp(t, "000000")

	if _, err := runLamp(t, "set", "--host", ts.URL, "FF00AA"); err != nil {
		t.Fatal(err)
	}

	out, err := runLamp(t, "get", "--host", ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "ff00aa") {
		t.Errorf("get output = %q", out)
	}
}

func TestLampCommandRejectsInvalidColor(t *testing.T) {
	f, ts := newLamp(t, "000000")

	if _, err := runLamp(t, "set", "--host", ts.URL, "12345Z"); err == nil {
		t.Error("set with invalid color should fail")
	}
	if len(f.updates) != 0 {
		t.Errorf("invalid color was sent: %v", f.updates)
	}
}

func TestLampCommandSync(t *testing.T) {
	_, ts := newLamp(t, "00ff00")

	out, err := runLamp(t, "sync", "--host", ts.URL, "00ff00")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "in sync") {
		t.Errorf("sync output = %q", out)
	}
}

func TestSwatchIncludesHex(t *testing.T) {
	if got := swatch(color.RGB(1, 2, 3)); !strings.HasSuffix(got, "010203") {
		t.Errorf("swatch() = %q", got)
	}
}
