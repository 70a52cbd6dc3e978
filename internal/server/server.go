package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yigit/machzor/internal/bootstrap"
	"github.com/yigit/machzor/internal/config"
	"github.com/yigit/machzor/internal/db"
)

// Server wires configuration, database and router into a runnable HTTP service.
type Server struct {
	config   *config.Config
	database *db.PostgresDB
	logger   zerolog.Logger
	http     *http.Server
}

// NewServer builds a fully wired server. It fails fast when configuration,
// database or dependency setup is broken.
func NewServer() (*Server, error) {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to load config or setup logger: %w", err)
	}

	database, err := bootstrap.SetupDatabase(cfg, lgr)
	if err != nil {
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}

	deps, err := bootstrap.BuildDependencies(cfg, database, lgr)
	if err != nil {
		database.Pool.Close()
		return nil, fmt.Errorf("failed to setup dependencies: %w", err)
	}

	router := bootstrap.SetupRouter(cfg, deps, lgr)

	// Archived roster files are served back for run inspection.
	serveArchivedUploads(router, cfg.Server.StoragePath, lgr)

	return &Server{
		config:   cfg,
		database: database,
		logger:   lgr,
		http: &http.Server{
			Addr:         ":" + cfg.Server.Port,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}, nil
}

func serveArchivedUploads(router *gin.Engine, dir string, lgr zerolog.Logger) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		lgr.Error().Err(err).Str("path", dir).Msg("Failed to create uploads directory")
		return
	}
	router.Static("/uploads", dir)
	lgr.Info().Str("path", dir).Msg("Serving archived uploads")
}

// Run starts the listener and blocks until the process is signalled or the
// listener fails, then shuts down gracefully.
func (s *Server) Run() error {
	s.logger.Info().Str("port", s.config.Server.Port).Msg("Starting server...")

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.http.Addr).Msg("HTTP server listening")
		serverErrors <- s.http.ListenAndServe()
	}()

	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error starting server: %w", err)
		}
	case sig := <-osSignals:
		s.logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	return s.shutdown()
}

// shutdown drains in-flight requests within a deadline, then closes the pool.
func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := s.http.Shutdown(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		s.logger.Info().Msg("HTTP server gracefully stopped")
	}

	s.database.Pool.Close()
	s.logger.Info().Msg("Database connection pool closed")

	if err != nil {
		return fmt.Errorf("shutdown incomplete: %w", err)
	}
	return nil
}
