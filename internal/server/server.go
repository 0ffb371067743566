// Package server is the HTTP transport: request parsing, route registration
// and response serialization around the message pipeline.
package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KemboiK/evolve-bot/internal/gate"
	"github.com/KemboiK/evolve-bot/internal/pipeline"
	"github.com/KemboiK/evolve-bot/internal/store"
)

// Server exposes the pipeline over HTTP.
type Server struct {
	pipe       *pipeline.Pipeline
	gate       *gate.Gate
	sessions   *gate.Sessions
	store      store.Store
	adminToken string
	logger     *zap.Logger
}

// New creates a server. An empty adminToken leaves /admin/messages
// unprotected; only do that in local development.
func New(pipe *pipeline.Pipeline, g *gate.Gate, sessions *gate.Sessions, st store.Store, adminToken string, logger *zap.Logger) *Server {
	return &Server{
		pipe:       pipe,
		gate:       g,
		sessions:   sessions,
		store:      st,
		adminToken: adminToken,
		logger:     logger,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())

	r.GET("/", s.handleHome)
	r.POST("/message", s.handleMessage)
	r.POST("/verify_age", s.handleVerifyAge)
	r.GET("/admin/messages", s.handleAdminMessages)

	return r
}

// Run starts the HTTP server on addr.
func (s *Server) Run(addr string) error {
	return s.Router().Run(addr)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}

func (s *Server) handleHome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "evolve bot running"})
}

type messageRequest struct {
	UserID     string `json:"user_id" binding:"required"`
	Text       string `json:"text" binding:"required"`
	ClaimedAge *int   `json:"claimed_age"`
	Name       string `json:"name"`
	Role       string `json:"role"`
}

func (s *Server) handleMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and text are required"})
		return
	}

	sess := s.sessions.Get(req.UserID)
	out, err := s.pipe.Process(c.Request.Context(), sess, pipeline.Request{
		Text:  req.Text,
		Name:  req.Name,
		Claim: gate.Claim{Age: req.ClaimedAge, Role: req.Role},
	})
	if err != nil {
		s.logger.Error("pipeline failed", zap.String("user_id", req.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	if out.Rejected {
		c.JSON(http.StatusForbidden, gin.H{"error": out.Reason})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reply": out.Reply})
}

type verifyRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Age    *int   `json:"age"`
	Role   string `json:"role"`
}

func (s *Server) handleVerifyAge(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	sess := s.sessions.Get(req.UserID)
	decision := s.gate.Check(sess, gate.Claim{Age: req.Age, Role: req.Role})
	if !decision.Eligible {
		c.JSON(http.StatusForbidden, gin.H{"eligible": false, "error": decision.Reason})
		return
	}

	c.JSON(http.StatusOK, gin.H{"eligible": true})
}

func (s *Server) handleAdminMessages(c *gin.Context) {
	if s.adminToken != "" && c.GetHeader("X-Admin-Token") != s.adminToken {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = n
	}

	records, err := s.store.ListRecent(c.Request.Context(), limit, c.Query("user_id"))
	if err != nil {
		s.logger.Error("failed to list records", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": records})
}
