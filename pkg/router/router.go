package router

import (
	"crm-inbox-demo/backend/internal/api"
	"crm-inbox-demo/backend/pkg/config"
	"crm-inbox-demo/backend/pkg/di"
	"crm-inbox-demo/backend/pkg/errors"
	"crm-inbox-demo/backend/pkg/health"
	"crm-inbox-demo/backend/pkg/jwt"
	"crm-inbox-demo/backend/pkg/logger"
	"crm-inbox-demo/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config
	Health    *health.Checker
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	// Use the container's logger
	logger.SetGlobal(container.Logger)

	cfg := container.Config

	// Configure Gin mode based on environment
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Gin router
	engine := gin.New()

	// Use the logger middleware first to capture all requests
	engine.Use(logger.Middleware(container.Logger))

	// Request id propagation for log correlation
	engine.Use(middleware.RequestIDMiddleware())

	// Add custom error handler middleware
	engine.Use(errors.ErrorHandler())

	// Add custom recovery middleware with structured logging instead of default
	engine.Use(errors.RecoveryWithLogger())

	// Create rate limiter with default options
	rateLimiter := middleware.NewRateLimiter(container.Logger)

	// Apply rate limiting to all routes
	engine.Use(rateLimiter.Middleware())

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	// Add CORS middleware
	r.Engine.Use(corsMiddleware())

	// Create JWT auth middleware
	jwtAuth := middleware.JWTAuthMiddleware(r.Container.JWTService, r.Logger)
	managerOnly := middleware.RequireRole(jwt.RoleManager)

	// Initialize handlers
	authHandler := api.NewAuthHandler(r.Container.UserService, r.Container.JWTService, r.Logger)
	conversationHandler := api.NewConversationHandler(r.Container.Engine, r.Logger)
	contactHandler := api.NewContactHandler(r.Container.ContactService, r.Logger)
	teamHandler := api.NewTeamHandler(r.Container.UserService, r.Logger)
	knowledgeHandler := api.NewKnowledgeHandler(r.Container.Knowledge, r.Logger)

	// API version 1 routes
	v1 := r.Engine.Group("/api/v1")

	// Public routes (no auth required)
	publicRoutes := v1.Group("/")
	{
		// Health check endpoint
		if r.Health != nil {
			publicRoutes.GET("/health", gin.WrapF(r.Health.HTTPHandler()))
		}

		// Auth routes
		authRoutes := publicRoutes.Group("/auth")
		{
			authRoutes.POST("/signup", authHandler.Signup)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.GET("/me", jwtAuth, authHandler.Me)
		}

		// Channel webhook. The external chat channel posts customer
		// messages here; it authenticates with a shared key, not a JWT.
		publicRoutes.POST("/channel/messages", conversationHandler.Inbound)
	}

	// Protected routes (require authentication)
	protectedRoutes := v1.Group("/")
	protectedRoutes.Use(jwtAuth)
	{
		conversationRoutes := protectedRoutes.Group("/conversations")
		{
			conversationRoutes.GET("", conversationHandler.List)
			conversationRoutes.POST("", conversationHandler.Start)
			conversationRoutes.GET("/:id", conversationHandler.Get)
			conversationRoutes.GET("/:id/messages", conversationHandler.Messages)
			conversationRoutes.POST("/:id/messages", conversationHandler.Send)
			conversationRoutes.POST("/:id/takeover", conversationHandler.TakeOver)
			conversationRoutes.POST("/:id/return", conversationHandler.ReturnToBot)
			conversationRoutes.POST("/:id/read", conversationHandler.MarkRead)
		}

		contactRoutes := protectedRoutes.Group("/contacts")
		{
			contactRoutes.GET("", contactHandler.List)
			contactRoutes.GET("/:id", contactHandler.Get)
			contactRoutes.PUT("/:id", contactHandler.Update)
			contactRoutes.DELETE("/:id", managerOnly, contactHandler.Delete)
			contactRoutes.GET("/:id/activities", contactHandler.Activities)
			contactRoutes.POST("/:id/activities", contactHandler.AddActivity)
		}

		teamRoutes := protectedRoutes.Group("/team")
		{
			teamRoutes.GET("", teamHandler.List)
			teamRoutes.PUT("/:id/role", managerOnly, teamHandler.UpdateRole)
		}

		knowledgeRoutes := protectedRoutes.Group("/knowledge")
		{
			knowledgeRoutes.GET("", knowledgeHandler.List)
			knowledgeRoutes.POST("", managerOnly, knowledgeHandler.Create)
			knowledgeRoutes.DELETE("/:id", managerOnly, knowledgeHandler.Delete)
		}
	}

	// Prometheus metrics
	r.Engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
		r.Container.Registry,
		promhttp.HandlerOpts{},
	)))

	// WebSocket route for dashboard event streaming
	r.Engine.GET("/ws", r.Container.Hub.Serve)
}

// Enhance CORS middleware to explicitly allow WebSocket-specific headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		if origin != "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, X-CSRF-Token, Authorization, Origin, Upgrade, Connection, Cache-Control")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Upgrade, Connection")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
