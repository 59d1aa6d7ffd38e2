// Package api provides the HTTP REST API for accounthub.
//
// It exposes registration, login/logout, password management, email
// verification, role administration, and the audit trail to web and
// mobile clients.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/accounthub/internal/audit"
	"github.com/nerrad567/accounthub/internal/auth"
	"github.com/nerrad567/accounthub/internal/infrastructure/config"
	"github.com/nerrad567/accounthub/internal/infrastructure/influxdb"
	"github.com/nerrad567/accounthub/internal/infrastructure/logging"
	"github.com/nerrad567/accounthub/internal/mail"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Security config.SecurityConfig
	Service  config.ServiceConfig
	Logger   *logging.Logger
	Users    auth.UserRepository
	Roles    auth.RoleRepository
	Tokens   *auth.OneTimeTokens
	Mailer   mail.Mailer
	Audit    audit.Repository
	Metrics  *influxdb.Client // optional: nil runs without a metrics sink
	Version  string
}

// Server is the HTTP API server for accounthub.
//
// It manages the HTTP listener, routes, and middleware. The server is
// created with New() and started with Start().
type Server struct {
	cfg        config.APIConfig
	secCfg     config.SecurityConfig
	svcCfg     config.ServiceConfig
	logger     *logging.Logger
	users      auth.UserRepository
	roles      auth.RoleRepository
	tokens     *auth.OneTimeTokens
	mailer     mail.Mailer
	links      *mail.Links
	auditRepo  audit.Repository
	metrics    *influxdb.Client
	version    string
	server     *http.Server
	sessionTTL time.Duration
	tokenTTL   time.Duration
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if deps.Roles == nil {
		return nil, fmt.Errorf("role repository is required")
	}
	if deps.Tokens == nil {
		return nil, fmt.Errorf("one-time token workflow is required")
	}
	if deps.Mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	if deps.Audit == nil {
		return nil, fmt.Errorf("audit repository is required")
	}
	// Metrics are optional — the service runs fine without a sink

	return &Server{
		cfg:        deps.Config,
		secCfg:     deps.Security,
		svcCfg:     deps.Service,
		logger:     deps.Logger,
		users:      deps.Users,
		roles:      deps.Roles,
		tokens:     deps.Tokens,
		mailer:     deps.Mailer,
		links:      mail.NewLinks(deps.Service.BaseURL),
		auditRepo:  deps.Audit,
		metrics:    deps.Metrics,
		version:    deps.Version,
		sessionTTL: time.Duration(deps.Security.SessionTTL) * time.Second,
		tokenTTL:   time.Duration(deps.Security.OneTimeTokenTTL) * time.Second,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It builds the router and launches the HTTP listener in a background
// goroutine. The server can be stopped with Close().
func (s *Server) Start(_ context.Context) error {
	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
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
