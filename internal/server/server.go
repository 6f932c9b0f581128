// Package server exposes a small read-only HTTP surface for operators:
// liveness and the outcome of the most recent consolidation cycle.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Burnwood-ccdocs/consolidator-app/internal/consolidate"
)

// StatusSource reports the latest cycle summary. The consolidator implements
// it; the server never mutates engine state.
type StatusSource interface {
	LastSummary() *consolidate.CycleSummary
}

type Server struct {
	src StatusSource
	log zerolog.Logger
}

func NewServer(src StatusSource, log zerolog.Logger) *Server {
	return &Server{src: src, log: log}
}

func (s *Server) SetupRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.Health)
	r.GET("/status", s.Status)

	return r
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Status(c *gin.Context) {
	last := s.src.LastSummary()
	if last == nil {
		c.JSON(http.StatusOK, gin.H{"status": "waiting", "last_cycle": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "last_cycle": last})
}

// Start serves the router on addr in a background goroutine. Failures are
// logged, not fatal: the status surface is an extra, the engine is the job.
func (s *Server) Start(addr string) {
	r := s.SetupRouter()
	go func() {
		if err := r.Run(addr); err != nil {
			s.log.Error().Err(err).Str("addr", addr).Msg("status server stopped")
		}
	}()
}
