package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/command"
	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/device"
	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/infrastructure/config"
	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/infrastructure/logging"
	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/keycard"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Commander publishes device settings. *command.Publisher satisfies it.
type Commander interface {
	PublishFan(t command.Target, s command.FanSettings) *command.Ack
	PublishThresholds(t command.Target, s command.TemperatureThresholds) *command.Ack
	PublishLock(t command.Target, s command.LockState) *command.Ack
	PublishAssignment(deviceID string, a command.Assignment) *command.Ack
	LastIntended(kind device.Kind, deviceID string) (command.IntendedState, bool)
}

// HealthCheck is one component reported by GET /health. Optional
// components are reported but do not make the service unhealthy.
type HealthCheck struct {
	Name     string
	Check    func(ctx context.Context) error
	Optional bool
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	WS        config.WebSocketConfig
	Security  config.SecurityConfig
	Logger    *logging.Logger
	Devices   device.Repository
	Telemetry device.TelemetryRepository
	Keycards  keycard.Repository
	Commands  Commander
	Hub       *Hub         // If set, the server uses this hub instead of creating its own
	Metrics   http.Handler // Served on /metrics when set
	Health    []HealthCheck
	Version   string
}

// Server is the HTTP API server.
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	secCfg    config.SecurityConfig
	logger    *logging.Logger
	devices   device.Repository
	telemetry device.TelemetryRepository
	keycards  keycard.Repository
	commands  Commander
	metrics   http.Handler
	health    []HealthCheck
	version   string
	validate  *validator.Validate
	server    *http.Server
	hub       *Hub
	cancel    context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Config, logger, repositories and the command publisher are
//     required, as is a JWT secret in deps.Security
//
// Returns:
//   - *Server: Configured server
//   - error: If a required dependency is missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Devices == nil || deps.Telemetry == nil {
		return nil, fmt.Errorf("device repositories are required")
	}
	if deps.Keycards == nil {
		return nil, fmt.Errorf("keycard repository is required")
	}
	if deps.Commands == nil {
		return nil, fmt.Errorf("command publisher is required")
	}
	if deps.Security.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	return &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		secCfg:    deps.Security,
		logger:    deps.Logger,
		devices:   deps.Devices,
		telemetry: deps.Telemetry,
		keycards:  deps.Keycards,
		commands:  deps.Commands,
		metrics:   deps.Metrics,
		health:    deps.Health,
		version:   deps.Version,
		validate:  newValidator(),
		hub:       deps.Hub,
	}, nil
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
		go s.hub.Run(srvCtx)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server, waiting up to 10 seconds for
// in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// Hub returns the WebSocket hub, which is nil before Start unless one was
// injected.
func (s *Server) Hub() *Hub {
	return s.hub
}
