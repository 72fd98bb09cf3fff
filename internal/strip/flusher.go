package strip

import (
	"context"
	"log/slog"
	"time"
)

// Flusher periodically pushes the pixel buffer to hardware. It is the only
// caller of Show in steady state.
type Flusher struct {
	driver   Driver
	interval time.Duration
	logger   *slog.Logger
}

// NewFlusher creates a flusher for driver.
func NewFlusher(driver Driver, interval time.Duration, logger *slog.Logger) *Flusher {
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	return &Flusher{
		driver:   driver,
		interval: interval,
		logger:   logger,
	}
}

// Run flushes until ctx is done. A final flush is attempted on exit.
func (f *Flusher) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	failing := false
	for {
		select {
		case <-ctx.Done():
			if err := f.driver.Show(); err != nil {
				f.logger.Warn("Final strip flush failed", "error", err)
			}
			return
		case <-ticker.C:
			err := f.driver.Show()
			// Log once per failure streak.
			if err != nil && !failing {
				f.logger.Warn("Strip flush failed", "error", err)
			} else if err == nil && failing {
				f.logger.Info("Strip flush recovered")
			}
			failing = err != nil
		}
	}
}
