package api

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/lampnode/internal/color"
	"github.com/smazurov/lampnode/internal/events"
)

const (
	okBody         = "OK\n"
	badRequestBody = "Bad request\n"
	textPlain      = "text/plain"
	formType       = "application/x-www-form-urlencoded"

	maxFormBytes = 4 << 10
)

// TextResponse is a plain-text body with an explicit status.
type TextResponse struct {
	Status      int
	ContentType string `header:"Content-Type"`
	Body        []byte
}

func text(status int, body string) *TextResponse {
	return &TextResponse{Status: status, ContentType: textPlain, Body: []byte(body)}
}

// UpdateInput carries a color update. The color comes from the
// form-encoded body, or from the query string when the form has none.
type UpdateInput struct {
	Color string `query:"color" doc:"Color as 6 hex digits, used when the form has none"`

	form url.Values
}

// Resolve reads the optional form body. An empty or unreadable body leaves
// the query parameter as the only source.
func (in *UpdateInput) Resolve(ctx huma.Context) []error {
	body, err := io.ReadAll(io.LimitReader(ctx.BodyReader(), maxFormBytes))
	if err != nil || len(body) == 0 {
		return nil
	}
	if values, err := url.ParseQuery(string(body)); err == nil {
		in.form = values
	}
	return nil
}

// formColor returns the color field of the form body, then the query string.
func (in *UpdateInput) formColor() (string, bool) {
	if v, ok := in.form["color"]; ok && len(v) > 0 {
		return v[0], true
	}
	if in.Color != "" {
		return in.Color, true
	}
	return "", false
}

// updateBody documents the form body as optional. Declaring it on the
// operation keeps huma from reading or requiring the body itself.
func updateBody() *huma.RequestBody {
	return &huma.RequestBody{
		Required: false,
		Content: map[string]*huma.MediaType{
			formType: {
				Schema: &huma.Schema{
					Type: huma.TypeObject,
					Properties: map[string]*huma.Schema{
						"color": {Type: huma.TypeString, Pattern: "^[0-9a-fA-F]{6}$"},
					},
				},
			},
		},
	}
}

func (s *Server) registerLampRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/",
		Summary:     "Health",
		Description: "Returns OK while the lamp is serving",
		Tags:        []string{"lamp"},
	}, func(_ context.Context, _ *struct{}) (*TextResponse, error) {
		return text(http.StatusOK, okBody), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-color",
		Method:      http.MethodPost,
		Path:        "/update",
		Summary:     "Set Color",
		Description: "Store a new color and restart the transition toward it. The color must be exactly 6 hex digits.",
		Tags:        []string{"lamp"},
		RequestBody: updateBody(),
	}, func(_ context.Context, input *UpdateInput) (*TextResponse, error) {
		raw, ok := input.formColor()
		if !ok {
			s.rejectColor("missing color")
			return text(http.StatusBadRequest, badRequestBody), nil
		}

		c, err := color.Parse(raw)
		if err != nil {
			s.rejectColor(err.Error())
			return text(http.StatusBadRequest, badRequestBody), nil
		}

		s.options.Lamp.SetColor(c)
		return text(http.StatusOK, okBody), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-color",
		Method:      http.MethodGet,
		Path:        "/status",
		Summary:     "Get Color",
		Description: "Current color as 6 lowercase hex digits followed by a newline",
		Tags:        []string{"lamp"},
	}, func(_ context.Context, _ *struct{}) (*TextResponse, error) {
		return text(http.StatusOK, s.options.Lamp.Color().String()+"\n"), nil
	})
}

func (s *Server) rejectColor(reason string) {
	s.logger.Debug("Rejected color update", "reason", reason)
	s.options.EventBus.Publish(events.BadRequestEvent{
		Operation: "set-color",
		Reason:    reason,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}
