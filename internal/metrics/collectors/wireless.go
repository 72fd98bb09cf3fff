package collectors

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/smazurov/lampnode/internal/logging"
	"github.com/smazurov/lampnode/internal/metrics"
)

// WirelessCollector samples /proc/net/wireless for one interface.
type WirelessCollector struct {
	logger   logging.Logger
	procPath string
	iface    string
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewWirelessCollector creates a collector for iface.
func NewWirelessCollector(iface string) *WirelessCollector {
	return &WirelessCollector{
		logger:   logging.GetLogger("metrics"),
		procPath: "/proc/net/wireless",
		iface:    iface,
		interval: 10 * time.Second,
	}
}

// Start begins sampling.
func (w *WirelessCollector) Start(ctx context.Context) error {
	if _, err := os.Stat(w.procPath); err != nil {
		return fmt.Errorf("wireless statistics unavailable: %w", err)
	}
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.run()
	return nil
}

// Stop stops sampling and removes the interface's series.
func (w *WirelessCollector) Stop() error {
	if w.cancel != nil {
		w.cancel()
		<-w.done
	}
	metrics.DeleteWiFi(w.iface)
	return nil
}

func (w *WirelessCollector) run() {
	defer close(w.done)

	w.logger.Info("Starting WiFi metrics collection", "interface", w.iface, "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.collect()
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.collect()
		}
	}
}

func (w *WirelessCollector) collect() {
	file, err := os.Open(w.procPath)
	if err != nil {
		w.logger.Warn("Failed to open wireless proc file", "error", err)
		return
	}
	defer file.Close()

	stats, err := parseWireless(file)
	if err != nil {
		w.logger.Warn("Failed to parse wireless statistics", "error", err)
		return
	}

	s, ok := stats[w.iface]
	if !ok {
		// Interface is not associated
		metrics.DeleteWiFi(w.iface)
		return
	}
	metrics.SetWiFi(w.iface, s.Quality, s.Signal)
}

type wirelessStats struct {
	Quality float64
	Signal  float64
}

// parseWireless reads the /proc/net/wireless table. The first two lines are
// headers.
func parseWireless(r io.Reader) (map[string]wirelessStats, error) {
	result := make(map[string]wirelessStats)
	scanner := bufio.NewScanner(r)

	line := 0
	for scanner.Scan() {
		line++
		if line <= 2 {
			continue
		}
		name, s, err := parseWirelessLine(scanner.Text())
		if err != nil {
			continue
		}
		result[name] = s
	}
	return result, scanner.Err()
}

func parseWirelessLine(line string) (string, wirelessStats, error) {
	fields := strings.Fields(line)
	if len(fields) < 4 || !strings.HasSuffix(fields[0], ":") {
		return "", wirelessStats{}, fmt.Errorf("malformed line")
	}

	quality, err := strconv.ParseFloat(strings.TrimSuffix(fields[2], "."), 64)
	if err != nil {
		return "", wirelessStats{}, err
	}
	signal, err := strconv.ParseFloat(strings.TrimSuffix(fields[3], "."), 64)
	if err != nil {
		return "", wirelessStats{}, err
	}

	return strings.TrimSuffix(fields[0], ":"), wirelessStats{Quality: quality, Signal: signal}, nil
}
