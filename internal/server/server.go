package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/liamashdown/whalewatch/internal/alerts"
	"github.com/liamashdown/whalewatch/internal/history"
	"github.com/liamashdown/whalewatch/internal/metrics"
	"github.com/liamashdown/whalewatch/internal/monitor"
	"github.com/liamashdown/whalewatch/internal/trade"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

// StatusProvider reports the monitor's current state
type StatusProvider interface {
	Status() monitor.Status
}

// ReadyCheck returns an error while a dependency is unavailable
type ReadyCheck func(ctx context.Context) error

// Server exposes health, readiness, metrics, status and alert history over HTTP
type Server struct {
	engine *gin.Engine
	srv    *http.Server
	status StatusProvider
	sink   history.Sink
	checks []ReadyCheck
	log    *logrus.Logger
}

// New builds the router. sink may be nil, in which case /history returns 503.
func New(port int, status StatusProvider, sink history.Sink, log *logrus.Logger, checks ...ReadyCheck) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine: engine,
		status: status,
		sink:   sink,
		checks: checks,
		log:    log,
	}

	engine.GET("/health", s.health)
	engine.GET("/ready", s.ready)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/status", s.statusHandler)
	engine.GET("/history", s.historyHandler)

	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      engine,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	return s
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe blocks until the server stops. A graceful Shutdown is not an error.
func (s *Server) ListenAndServe() error {
	s.log.WithField("addr", s.srv.Addr).Info("Starting HTTP server (health + metrics)")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	metrics.RecordHealthCheck(true)
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	for _, check := range s.checks {
		if err := check(ctx); err != nil {
			metrics.RecordHealthCheck(false)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
			return
		}
	}

	metrics.RecordHealthCheck(true)
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) statusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.status.Status())
}

func (s *Server) historyHandler(c *gin.Context) {
	if s.sink == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "alert history is disabled"})
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	platform := strings.ToLower(strings.TrimSpace(c.DefaultQuery("platform", "all")))
	if platform != "all" {
		if _, err := trade.ParseSource(platform); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	recs, err := s.sink.Query(c.Request.Context(), history.Filter{Platform: platform, Limit: limit})
	if err != nil {
		s.log.WithError(err).Warn("Failed to query alert history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history query failed"})
		return
	}

	if recs == nil {
		recs = []*alerts.AlertRecord{}
	}

	c.JSON(http.StatusOK, gin.H{
		"count":  len(recs),
		"alerts": recs,
	})
}
