package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crm-inbox-demo/backend/internal/models"
	"crm-inbox-demo/backend/pkg/config"
	"crm-inbox-demo/backend/pkg/di"
	"crm-inbox-demo/backend/pkg/health"
	"crm-inbox-demo/backend/pkg/logger"
	"crm-inbox-demo/backend/pkg/router"
	"crm-inbox-demo/backend/pkg/secrets"
	"crm-inbox-demo/backend/shared/observability"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		stdlog.Println("No .env file found")
	}

	cfg := config.New()

	// Initialize structured logger
	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"

	log := logger.New(logConfig)
	logger.SetGlobal(log)

	log.Info("Starting application", "version", os.Getenv("APP_VERSION"))

	// Tracing
	shutdownTracing := observability.SetupTracing("crm-inbox")
	defer shutdownTracing()

	// Resolve sensitive values through Vault when configured, falling back
	// to the environment-provided config otherwise.
	if sm, err := secrets.NewVaultManager(log); err != nil {
		log.Warn("Vault unavailable, using environment secrets", "error", err.Error())
	} else {
		secretsCtx, cancelSecrets := context.WithTimeout(context.Background(), 10*time.Second)
		cfg.JWT.Secret = sm.GetSecretWithDefault(secretsCtx, "jwt_secret", cfg.JWT.Secret)
		cfg.Responder.APIKey = sm.GetSecretWithDefault(secretsCtx, "responder_api_key", cfg.Responder.APIKey)
		cancelSecrets()
	}

	// Initialize database
	db, err := config.NewDB()
	if err != nil {
		log.LogError(err, "Failed to initialize database")
		os.Exit(1)
	}

	// Auto-migrate the schema
	if err := db.AutoMigrate(
		&models.Conversation{},
		&models.Message{},
		&models.Contact{},
		&models.Activity{},
		&models.User{},
		&models.KnowledgeEntry{},
	); err != nil {
		log.LogError(err, "Failed to migrate database")
		os.Exit(1)
	}

	// Create indexes for better query performance
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_messages_conversation_ts ON messages(conversation_id, timestamp)").Error; err != nil {
		log.LogError(err, "Failed to create message index", "index", "idx_messages_conversation_ts")
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_conversations_handled_by ON conversations(handled_by)").Error; err != nil {
		log.LogError(err, "Failed to create conversation index", "index", "idx_conversations_handled_by")
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_activities_contact ON activities(contact_id)").Error; err != nil {
		log.LogError(err, "Failed to create activity index", "index", "idx_activities_contact")
	}

	// Initialize dependency injection container
	container, err := di.New(db, cfg, log)
	if err != nil {
		log.LogError(err, "Failed to initialize dependency container")
		os.Exit(1)
	}

	// Run the contact reconciler until shutdown. The boot nudge picks up
	// conversations left contact-less by a crash mid-pass.
	reconcilerCtx, stopReconciler := context.WithCancel(context.Background())
	defer stopReconciler()
	go container.Provisioner.Run(reconcilerCtx)
	container.Provisioner.Nudge()

	// Health checks
	checker := health.NewChecker(log, 30*time.Second)
	checker.RegisterDatabaseCheck(func() error {
		return config.TestConnection(db)
	})
	checker.RegisterAPICheck("responder", cfg.Responder.URL+"/health", &http.Client{Timeout: 5 * time.Second})
	checker.Start()

	// Initialize and setup router
	r := router.New(container)
	r.Health = checker
	r.SetupRoutes()

	// Add OpenAPI validation if schema file is available
	schemaPath := os.Getenv("OPENAPI_SCHEMA_PATH")
	if schemaPath != "" {
		r.AddOpenAPIValidation(schemaPath)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r.Engine,
	}

	// Start the server in a goroutine
	go func() {
		log.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogError(err, "Server failed to start")
			os.Exit(1)
		}
	}()

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Block until we receive a signal
	<-quit
	log.Info("Shutting down server...")

	// Stop feeding the reconciler before closing the server
	stopReconciler()

	// Create a deadline to wait for
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown the server
	if err := srv.Shutdown(ctx); err != nil {
		log.LogError(err, "Server forced to shutdown")
	}

	log.Info("Server exited gracefully")
}
