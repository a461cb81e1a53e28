package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/gray-hearth/internal/audit"
	"github.com/nerrad567/gray-hearth/internal/infrastructure/config"
	"github.com/nerrad567/gray-hearth/internal/infrastructure/logging"
	"github.com/nerrad567/gray-hearth/internal/recipe"
	"github.com/nerrad567/gray-hearth/internal/stove"
	"github.com/nerrad567/gray-hearth/internal/world"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Executor runs functions on the goroutine that owns the stoves.
// scheduler.Scheduler implements it.
type Executor interface {
	Do(ctx context.Context, fn func()) error
	Removed(stoveID string)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Registry *stove.Registry
	Catalog  *recipe.Catalog
	World    *world.World
	Blocks   world.BlockRepository // optional: block edits are not persisted without it
	Audit    audit.Repository      // optional: mutations are not recorded without it
	Executor Executor
	Hub      *Hub // if set, the server uses this hub instead of creating its own

	// ReadOnly rejects mutating routes; presentation replicas set it.
	ReadOnly bool
	Version  string
}

// Server is the HTTP API server.
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	secCfg   config.SecurityConfig
	logger   *logging.Logger
	registry *stove.Registry
	catalog  *recipe.Catalog
	world    *world.World
	blocks   world.BlockRepository
	audit    audit.Repository
	exec     Executor
	readOnly bool
	version  string
	server   *http.Server
	hub      *Hub
	cancel   context.CancelFunc
}

// New creates an API server. It is not listening until Start is called.
func New(deps Deps) (*Server, error) {
	switch {
	case deps.Logger == nil:
		return nil, fmt.Errorf("logger is required")
	case deps.Registry == nil:
		return nil, fmt.Errorf("stove registry is required")
	case deps.Catalog == nil:
		return nil, fmt.Errorf("recipe catalog is required")
	case deps.World == nil:
		return nil, fmt.Errorf("world is required")
	case deps.Executor == nil:
		return nil, fmt.Errorf("executor is required")
	}

	return &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		secCfg:   deps.Security,
		logger:   deps.Logger,
		registry: deps.Registry,
		catalog:  deps.Catalog,
		world:    deps.World,
		blocks:   deps.Blocks,
		audit:    deps.Audit,
		exec:     deps.Executor,
		hub:      deps.Hub,
		readOnly: deps.ReadOnly,
		version:  deps.Version,
	}, nil
}

// Hub returns the WebSocket hub, creating it if needed. The scheduler
// broadcasts through it.
func (s *Server) Hub() *Hub {
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	return s.hub
}

// Start launches the hub and the HTTP listener in the background.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.Hub().Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS", "address", s.server.Addr, "cert", s.cfg.TLS.CertFile)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close waits up to gracefulShutdownTimeout for in-flight requests, then
// closes remaining connections.
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

// HealthCheck reports whether the server has been started.
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
