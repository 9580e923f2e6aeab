// Package server exposes the task API over HTTP.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/live"
	"github.com/taskdeck/taskdeck/internal/mail"
	"github.com/taskdeck/taskdeck/internal/storage/sqlite"
	"github.com/taskdeck/taskdeck/internal/types"
)

// ChatAgent handles one assistant turn. Implemented by agent.Agent; tests
// substitute a scripted one.
type ChatAgent interface {
	HandleMessage(ctx context.Context, userID string, history []types.Message, text string) (string, []types.ToolCall, error)
}

// Config holds server wiring.
type Config struct {
	Store  *sqlite.Store
	Auth   *auth.Manager
	Agent  ChatAgent // nil disables /chat/chat
	Hub    *live.Hub // nil disables live broadcasts
	Mail   mail.Sender
	Logger *log.Logger

	// CategorySeedPath optionally seeds a new user's categories from a
	// YAML file.
	CategorySeedPath string

	// VerifyBaseURL is the link base for verification emails.
	VerifyBaseURL string
}

// Server routes API requests onto the store.
type Server struct {
	store    *sqlite.Store
	auth     *auth.Manager
	agent    ChatAgent
	hub      *live.Hub
	mail     mail.Sender
	logger   *log.Logger
	router   *gin.Engine
	seedPath string
	verify   string
}

// New creates the server and registers all routes.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	sender := cfg.Mail
	if sender == nil {
		sender = &mail.LogSender{Logger: logger}
	}

	s := &Server{
		store:    cfg.Store,
		auth:     cfg.Auth,
		agent:    cfg.Agent,
		hub:      cfg.Hub,
		mail:     sender,
		logger:   logger,
		router:   gin.New(),
		seedPath: cfg.CategorySeedPath,
		verify:   cfg.VerifyBaseURL,
	}
	s.router.Use(gin.Recovery())
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	authn := s.auth.Middleware()

	authRoutes := s.router.Group("/api/auth")
	{
		authRoutes.POST("/register", s.handleRegister)
		authRoutes.POST("/login", s.handleLogin)
		authRoutes.POST("/verify-email", s.handleVerifyEmail)
		authRoutes.POST("/resend-verification", s.handleResendVerification)
		authRoutes.GET("/me", authn, s.handleMe)
		authRoutes.POST("/change-password", authn, s.handleChangePassword)
	}

	api := s.router.Group("/api", authn)
	{
		api.GET("/:user_id/tasks", s.handleListTasks)
		api.POST("/:user_id/tasks", s.handleCreateTask)
		api.PUT("/:user_id/tasks/:id", s.handleUpdateTask)
		api.PATCH("/:user_id/tasks/:id/complete", s.handleToggleTask)
		api.DELETE("/:user_id/tasks/:id", s.handleDeleteTask)

		api.GET("/tasks/today", s.handleTodayTasks)
		api.GET("/tasks/stats", s.handleTaskStats)
		api.GET("/tasks/stats/categories", s.handleCategoryStats)

		api.GET("/categories", s.handleListCategories)
		api.POST("/categories", s.handleCreateCategory)
		api.PUT("/categories/:id", s.handleUpdateCategory)
		api.DELETE("/categories/:id", s.handleDeleteCategory)

		api.GET("/user/preferences", s.handleGetPreferences)
		api.PUT("/user/preferences", s.handleUpdatePreferences)
		api.PUT("/user/profile", s.handleUpdateProfile)
	}

	chat := s.router.Group("/chat", authn)
	{
		chat.GET("/conversations", s.handleListConversations)
		chat.POST("/conversations", s.handleCreateConversation)
		chat.DELETE("/conversations/:id", s.handleDeleteConversation)
		chat.PATCH("/conversations/:id", s.handleRenameConversation)
		chat.GET("/conversations/:id/messages", s.handleListMessages)
		chat.POST("/chat", s.handleChat)
	}
}

// Handler returns the router for tests and custom listeners.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts serving on addr.
func (s *Server) Run(addr string) error {
	s.logger.Printf("API server listening on %s", addr)
	return s.router.Run(addr)
}

// respondStoreError maps store sentinels onto HTTP statuses.
func respondStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, sqlite.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, sqlite.ErrVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Task was modified by another user."})
	case errors.Is(err, sqlite.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// requireOwner checks that the path user matches the token subject.
func requireOwner(c *gin.Context) (string, bool) {
	userID := auth.UserID(c)
	if c.Param("user_id") != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return "", false
	}
	return userID, true
}
