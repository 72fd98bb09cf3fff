// Package timesync performs the one-shot NTP check at startup.
package timesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	_ "time/tzdata" // zone database for devices without /usr/share/zoneinfo

	"github.com/beevik/ntp"
)

// DisplayLayout is the layout used when logging the synchronized time.
const DisplayLayout = "Monday, January 02 2006 15:04:05 zone MST -0700"

// ErrNoServers is returned when no server is configured.
var ErrNoServers = errors.New("no NTP servers configured")

// QueryFunc queries one NTP server. Replaced in tests.
type QueryFunc func(host string, opts ntp.QueryOptions) (*ntp.Response, error)

// Config lists the servers to try in order and the zone to display.
type Config struct {
	Servers  []string
	Timezone string
	Timeout  time.Duration
}

// Result is the outcome of a successful sync.
type Result struct {
	Server   string
	Offset   time.Duration
	Location *time.Location
}

// Now returns the corrected current time in the configured zone.
func (r Result) Now() time.Time {
	return time.Now().Add(r.Offset).In(r.Location)
}

// Syncer runs the sync.
type Syncer struct {
	config Config
	query  QueryFunc
	logger *slog.Logger
}

// New creates a Syncer. A nil query uses ntp.QueryWithOptions.
func New(config Config, query QueryFunc, logger *slog.Logger) *Syncer {
	if query == nil {
		query = ntp.QueryWithOptions
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	return &Syncer{config: config, query: query, logger: logger}
}

// Sync queries the servers in order and returns the first valid answer.
func (s *Syncer) Sync(ctx context.Context) (Result, error) {
	s.logger.Info("Setting up time", "servers", s.config.Servers)

	loc, err := loadLocation(s.config.Timezone)
	if err != nil {
		s.logger.Warn("Unknown timezone, using UTC", "timezone", s.config.Timezone, "error", err)
		loc = time.UTC
	} else {
		s.logger.Info("Setting timezone", "timezone", loc.String())
	}

	if len(s.config.Servers) == 0 {
		return Result{Location: loc}, ErrNoServers
	}

	var errs []error
	for _, server := range s.config.Servers {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		resp, qErr := s.query(server, ntp.QueryOptions{Timeout: s.config.Timeout})
		if qErr == nil {
			qErr = resp.Validate()
		}
		if qErr != nil {
			s.logger.Debug("NTP query failed", "server", server, "error", qErr)
			errs = append(errs, fmt.Errorf("%s: %w", server, qErr))
			continue
		}

		result := Result{Server: server, Offset: resp.ClockOffset, Location: loc}
		s.logger.Info("Got the time from NTP",
			"server", server,
			"offset", resp.ClockOffset,
			"current_time", result.Now().Format(DisplayLayout))
		return result, nil
	}

	return Result{Location: loc}, fmt.Errorf("failed to obtain time: %w", errors.Join(errs...))
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}
