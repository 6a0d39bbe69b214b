package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/gamesync/internal/config"
	"github.com/jonesrussell/gamesync/internal/logger"
)

const readHeaderTimeout = 10 * time.Second

// Server wraps the ops HTTP server lifecycle.
type Server struct {
	srv *http.Server
	log logger.Interface
}

// NewServer creates an ops server around the given router.
func NewServer(cfg *config.ServerConfig, router *gin.Engine, log logger.Interface) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              cfg.Address,
			Handler:           router,
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		log: log,
	}
}

// Start serves until Shutdown is called. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.log.Info("Starting ops server", "address", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ops server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Stopping ops server")
	return s.srv.Shutdown(ctx)
}
