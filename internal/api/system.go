package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/lampnode/internal/logging"
	"github.com/smazurov/lampnode/internal/version"
)

// VersionResponse wraps build metadata.
type VersionResponse struct {
	Body version.Info
}

// LogsInput selects how much history to return.
type LogsInput struct {
	Limit  int    `query:"limit" minimum:"0" maximum:"500" default:"100" doc:"Most recent entries to return, 0 for all"`
	Module string `query:"module" doc:"Only entries from this module"`
}

// LEDsResponse lists the status LEDs found on the board.
type LEDsResponse struct {
	Body struct {
		Available []string `json:"available" doc:"LED names present under /sys/class/leds"`
	}
}

func (s *Server) registerSystemRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get firmware version information",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*VersionResponse, error) {
		return &VersionResponse{Body: version.Get()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Recent Logs",
		Description: "Recent log lines kept in memory, oldest first",
		Tags:        []string{"system"},
	}, func(_ context.Context, input *LogsInput) (*TextResponse, error) {
		entries := logging.Recent().Tail(input.Limit, input.Module)

		var sb strings.Builder
		for _, e := range entries {
			sb.WriteString(e.String())
			sb.WriteByte('\n')
		}
		return text(http.StatusOK, sb.String()), nil
	})

	if s.options.LEDs == nil {
		s.logger.Debug("LED controller not available, skipping LED routes")
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "get-leds",
		Method:      http.MethodGet,
		Path:        "/api/leds",
		Summary:     "Status LEDs",
		Description: "List the status LEDs this board exposes",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*LEDsResponse, error) {
		resp := &LEDsResponse{}
		resp.Body.Available = s.options.LEDs.Available()
		if resp.Body.Available == nil {
			resp.Body.Available = []string{}
		}
		return resp, nil
	})
}
