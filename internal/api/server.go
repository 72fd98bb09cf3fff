package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/smazurov/lampnode/internal/color"
	"github.com/smazurov/lampnode/internal/events"
	"github.com/smazurov/lampnode/internal/logging"
	"github.com/smazurov/lampnode/internal/transition"
)

// Lamp is the color state the command routes read and write.
type Lamp interface {
	Color() color.Color
	SetColor(c color.Color) *transition.Handle
}

// Busy is pulsed around every request.
type Busy interface {
	Begin()
	End()
}

// LEDLister reports the status LEDs present on the board.
type LEDLister interface {
	Available() []string
}

// Options holds the server's collaborators.
type Options struct {
	Lamp              Lamp
	EventBus          *events.Bus
	Activity          Busy         // Optional busy indicator
	LEDs              LEDLister    // Optional, enables /api/leds
	PrometheusHandler http.Handler // Optional Prometheus metrics handler
}

// Server is the lamp's HTTP command server.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	options    *Options
	logger     *slog.Logger
	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
}

// NewServer creates the server and registers every route.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	AddCORSHandler(mux, corsConfig)

	config := huma.DefaultConfig("LampNode API", "1.0.0")
	config.Info.Description = "Color control for a network attached LED lamp"
	// Empty servers list makes OpenAPI use relative paths
	config.Servers = []*huma.Server{}

	api := humago.New(mux, config)

	server := &Server{
		api:     api,
		mux:     mux,
		options: opts,
		logger:  logging.GetLogger("api"),
	}

	api.UseMiddleware(NewCORSMiddleware(corsConfig))
	api.UseMiddleware(HTTPLoggingMiddleware)
	api.UseMiddleware(ActivityMiddleware(opts.Activity))
	api.UseMiddleware(ExactRootMiddleware)

	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	server.registerLampRoutes()
	server.registerSystemRoutes()

	return server
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// GetAPI returns the Huma API instance.
func (s *Server) GetAPI() huma.API {
	return s.api
}

// Listen binds addr without serving. Binding separately lets startup
// report an unusable port before the server goroutine starts.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = ln
	s.httpServer = &http.Server{Handler: s.mux}
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve blocks serving requests on the listener bound by Listen.
func (s *Server) Serve() error {
	s.mu.Lock()
	srv, ln := s.httpServer, s.listener
	s.mu.Unlock()

	if srv == nil {
		return errors.New("server is not listening")
	}

	s.logger.Info("Starting LampNode API server", "addr", ln.Addr().String())
	s.logger.Debug("OpenAPI documentation available", "url", "http://"+ln.Addr().String()+"/docs")
	return srv.Serve(ln)
}

// Start listens on addr and serves until Stop.
func (s *Server) Start(addr string) error {
	if err := s.Listen(addr); err != nil {
		return err
	}
	return s.Serve()
}

// Stop closes the listener and every open connection.
func (s *Server) Stop() error {
	s.mu.Lock()
	srv, ln := s.httpServer, s.listener
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	s.logger.Info("Stopping API server")
	err := srv.Close()
	// Close does not own a listener that never reached Serve
	_ = ln.Close()
	return err
}
