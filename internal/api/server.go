package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/parkpilot/parkpilot-core/internal/auth"
	"github.com/parkpilot/parkpilot-core/internal/carbon"
	"github.com/parkpilot/parkpilot-core/internal/events"
	"github.com/parkpilot/parkpilot-core/internal/infrastructure/config"
	"github.com/parkpilot/parkpilot-core/internal/infrastructure/logging"
	"github.com/parkpilot/parkpilot-core/internal/occupancy"
	"github.com/parkpilot/parkpilot-core/internal/parking"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	WS        config.WebSocketConfig
	SSE       config.SSEConfig
	Security  config.SecurityConfig
	Logger    *logging.Logger
	Parking   *parking.Service
	Occupancy occupancy.Repository
	Carbon    *carbon.Service
	Users     auth.UserRepository
	Bus       *events.Bus
	DB        *sql.DB // optional: connection pool stats for /metrics
	Version   string
}

// Server is the HTTP API server for ParkPilot Core.
//
// It manages the HTTP listener, routes, middleware, the WebSocket hub and
// the SSE event streams. The server is created with New() and started with
// Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	sseCfg    config.SSEConfig
	secCfg    config.SecurityConfig
	logger    *logging.Logger
	parking   *parking.Service
	occupancy occupancy.Repository
	carbon    *carbon.Service
	users     auth.UserRepository
	bus       *events.Bus
	db        *sql.DB
	version   string
	startTime time.Time
	server    *http.Server
	hub       *Hub
	cancel    context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, parking service, bus)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Parking == nil {
		return nil, fmt.Errorf("parking service is required")
	}
	if deps.Bus == nil {
		return nil, fmt.Errorf("event bus is required")
	}
	// Users is optional — without it auth endpoints return 503-style errors
	// but the read-only parking surface still functions.

	return &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		sseCfg:    deps.SSE,
		secCfg:    deps.Security,
		logger:    deps.Logger,
		parking:   deps.Parking,
		occupancy: deps.Occupancy,
		carbon:    deps.Carbon,
		users:     deps.Users,
		bus:       deps.Bus,
		db:        deps.DB,
		version:   deps.Version,
		startTime: time.Now(),
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, attaches the hub to the
// event bus for real-time broadcast, and launches the HTTP listener in a
// background goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(srvCtx)

	// Relay spot status updates from the event bus to WebSocket clients
	go s.relayStatusUpdates(srvCtx)

	// Start periodic ticket cleanup to prevent memory leaks
	go s.cleanTicketsLoop(srvCtx)

	// Build router
	router := s.buildRouter()

	// Create HTTP server
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		// WriteTimeout would sever long-lived SSE streams; per-handler
		// deadlines cover the plain JSON endpoints instead.
		IdleTimeout: time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	// Start listening in background
	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// relayStatusUpdates forwards event bus updates to the WebSocket hub until
// the context is cancelled. SSE streams subscribe to the bus directly.
func (s *Server) relayStatusUpdates(ctx context.Context) {
	sub := s.bus.Subscribe(nil)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-sub.C():
			if !ok {
				return
			}
			s.hub.Broadcast(ChannelSpotStatus, update)
		}
	}
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub, bus relay, ticket cleanup)
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

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
