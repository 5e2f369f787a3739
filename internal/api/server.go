package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/nerrad567/fimp2ha/internal/bridge"
	"github.com/nerrad567/fimp2ha/internal/entity"
	"github.com/nerrad567/fimp2ha/internal/infrastructure/config"
	"github.com/nerrad567/fimp2ha/internal/infrastructure/logging"
	"github.com/nerrad567/fimp2ha/internal/infrastructure/metrics"
)

// drainTimeout bounds how long Close waits for in-flight requests.
const drainTimeout = 10 * time.Second

// BridgeController runs discovery on demand and reports lifecycle counters.
// It is satisfied by *bridge.Bridge.
type BridgeController interface {
	Trigger() (bool, error)
	Metrics() bridge.Metrics
}

// HealthChecker is implemented by *mqtt.Client.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Database is implemented by *database.DB.
type Database interface {
	HealthCheck(ctx context.Context) error
	Stats() sql.DBStats
}

// PendingCounter is implemented by *correlator.Correlator.
type PendingCounter interface {
	Pending() int
}

// Deps is everything the API reads from. Only Logger is required; a nil
// dependency disables the routes or fields that need it.
type Deps struct {
	Config  config.APIConfig
	Logger  *logging.Logger
	Version string

	Bridge     BridgeController
	Entities   entity.Repository
	MQTT       HealthChecker
	Database   Database
	Correlator PendingCounter
	Metrics    *metrics.Metrics
}

// Server serves the status API.
type Server struct {
	Deps

	started time.Time
	http    *http.Server
	addr    net.Addr
}

// New returns an unstarted Server.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, errors.New("api: logger is required")
	}
	return &Server{Deps: deps, started: time.Now()}, nil
}

// Handler returns the router. Start serves the same handler.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start binds the listener, so a port clash fails here, then serves in
// the background.
func (s *Server) Start(_ context.Context) error {
	addr := net.JoinHostPort(s.Config.Host, strconv.Itoa(s.Config.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("api: listen %s: %w", addr, err)
	}
	s.addr = ln.Addr()

	t := s.Config.Timeouts
	s.http = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       seconds(t.Read),
		ReadHeaderTimeout: seconds(t.Read),
		WriteTimeout:      seconds(t.Write),
		IdleTimeout:       seconds(t.Idle),
	}

	s.Logger.Info("status API listening", "address", s.addr.String())
	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Error("status API stopped", "error", err)
		}
	}()
	return nil
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// Addr is the bound address, nil before Start.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// Close drains in-flight requests for up to drainTimeout.
func (s *Server) Close() error {
	if s.http == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	s.Logger.Info("status API shutting down")
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("api: shutdown: %w", err)
	}
	return nil
}

// HealthCheck fails until Start has succeeded.
func (s *Server) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("api health check: %w", err)
	}
	if s.http == nil {
		return errors.New("api: not started")
	}
	return nil
}
