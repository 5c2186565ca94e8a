package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"kucoin-signal-bot/config"
	"kucoin-signal-bot/internal/engine"
	"kucoin-signal-bot/internal/logging"
	"kucoin-signal-bot/internal/tracker"
)

// Server exposes read-only JSON views of the engine and tracker state.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     config.ServerConfig
	tracker    *tracker.Tracker
	engine     *engine.Engine
	archive    *tracker.PostgresArchive // optional
	logger     *logging.Logger
}

// NewServer creates the status API server. The archive may be nil.
func NewServer(cfg config.ServerConfig, trk *tracker.Tracker, eng *engine.Engine, archive *tracker.PostgresArchive) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if cfg.AllowedOrigins == "*" || cfg.AllowedOrigins == "" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(cfg.AllowedOrigins, ",")
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:  router,
		config:  cfg,
		tracker: trk,
		engine:  eng,
		archive: archive,
		logger:  logging.WithComponent("api"),
	}
	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	if s.config.AuthEnabled {
		s.router.POST("/api/login", s.handleLogin)
		api.Use(s.authMiddleware())
	}

	api.GET("/signals/active", s.handleActiveSignals)
	api.GET("/signals/history", s.handleHistory)
	api.GET("/stats", s.handleStats)
	api.GET("/performance", s.handlePerformance)
}

// Start runs the HTTP server in the background.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		s.logger.WithField("addr", addr).Info("status API listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("status API server failed")
		}
	}()
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleActiveSignals(c *gin.Context) {
	signals := s.tracker.ActiveSignals()
	c.JSON(http.StatusOK, gin.H{
		"count":   len(signals),
		"signals": signals,
	})
}

func (s *Server) handleHistory(c *gin.Context) {
	history, err := s.tracker.History()
	if err != nil {
		s.logger.WithError(err).Error("loading signal history failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(history),
		"signals": history,
	})
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Stats())
}

func (s *Server) handlePerformance(c *gin.Context) {
	if s.archive == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "long-term archive not configured"})
		return
	}

	days := 30
	if raw := c.Query("days"); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &days); err != nil || days <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid days parameter"})
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	summary, err := s.archive.Summary(ctx, time.Now().AddDate(0, 0, -days))
	if err != nil {
		s.logger.WithError(err).Error("performance summary query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute summary"})
		return
	}
	c.JSON(http.StatusOK, summary)
}
