package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/yigit/saffron/internal/bootstrap"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Server is the HTTP API bound to its repositories
type Server struct {
	http    *http.Server
	release func()
	logger  zerolog.Logger
}

// NewServer loads configPath, opens the configured store, seeds the superuser and builds the router
func NewServer(configPath string) (*Server, error) {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	repos, release, err := bootstrap.OpenRepositories(ctx, cfg, lgr)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	deps, err := bootstrap.BuildDependencies(cfg, repos, lgr)
	if err != nil {
		release()
		return nil, fmt.Errorf("failed to build dependencies: %w", err)
	}

	// A missing superuser does not stop the API from serving members
	if err := bootstrap.SeedData(ctx, cfg, deps); err != nil {
		lgr.Error().Err(err).Msg("Seeding failed")
	}

	router, err := bootstrap.SetupRouter(cfg, deps, lgr)
	if err != nil {
		release()
		return nil, err
	}

	return &Server{
		http: &http.Server{
			Addr:              ":" + cfg.Server.Port,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		release: release,
		logger:  lgr,
	}, nil
}

// Run serves until ctx is cancelled or the listener fails, then shuts down
func (s *Server) Run(ctx context.Context) error {
	listenErr := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.http.Addr).Msg("HTTP server listening")
		listenErr <- s.http.ListenAndServe()
	}()

	select {
	case err := <-listenErr:
		s.release()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
		s.logger.Info().Msg("Shutdown requested")
	}
	return s.Shutdown()
}

// Shutdown drains in-flight requests, then releases the store
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := s.http.Shutdown(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("HTTP shutdown incomplete")
		err = fmt.Errorf("shutdown: %w", err)
	}
	s.release()
	s.logger.Info().Msg("Server stopped")
	return err
}
