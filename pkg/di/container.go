package di

import (
	"crm-inbox-demo/backend/ai"
	"crm-inbox-demo/backend/internal/repository"
	"crm-inbox-demo/backend/internal/service"
	"crm-inbox-demo/backend/internal/ws"
	"crm-inbox-demo/backend/pkg/config"
	"crm-inbox-demo/backend/pkg/jwt"
	"crm-inbox-demo/backend/pkg/logger"
	"crm-inbox-demo/backend/pkg/resilience"
	"crm-inbox-demo/backend/shared/redis"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// Container holds all the dependencies for the application
type Container struct {
	DB     *gorm.DB
	Logger *logger.Logger
	Config *config.Config

	Conversations repository.ConversationRepository
	Messages      repository.MessageRepository
	Contacts      repository.ContactRepository
	Users         repository.UserRepository
	Knowledge     repository.KnowledgeRepository

	JWTService     *jwt.Service
	UserService    *service.UserService
	ContactService *service.ContactService
	Engine         *service.Engine
	Provisioner    *service.Provisioner
	Metrics        *service.Metrics
	Hub            *ws.Hub
	Redis          *redis.RedisClient

	Registry *prometheus.Registry
}

// New wires the application graph: repositories over the database, the
// routing engine over the repositories, and the contact reconciler
// listening for engine mutations.
func New(db *gorm.DB, cfg *config.Config, log *logger.Logger) (*Container, error) {
	if cfg == nil {
		cfg = config.Get()
	}
	if log == nil {
		log = logger.GetGlobal()
	}

	c := &Container{
		DB:     db,
		Logger: log,
		Config: cfg,
	}

	// Repositories
	c.Conversations = repository.NewGormConversationRepository(db)
	c.Messages = repository.NewGormMessageRepository(db)
	c.Contacts = repository.NewGormContactRepository(db)
	c.Users = repository.NewGormUserRepository(db)
	c.Knowledge = repository.NewGormKnowledgeRepository(db)

	// Metrics registry
	c.Registry = prometheus.NewRegistry()
	c.Metrics = service.NewMetrics(c.Registry)

	// Core services
	c.JWTService = jwt.NewService(cfg.JWT.Secret, cfg.JWT.ExpiryHours)
	c.UserService = service.NewUserService(c.Users, c.JWTService)
	c.Hub = ws.NewHub(log)

	// Responder gateway behind a circuit breaker
	responder, err := ai.NewHTTPResponder(cfg.Responder.URL, cfg.Responder.APIKey, cfg.Routing.GatewayTimeout)
	if err != nil {
		return nil, err
	}
	breaker := resilience.NewCircuitBreaker(
		resilience.DefaultCircuitBreakerConfig("responder-gateway"),
		log,
	)

	// Optional cross-instance provisioning guard
	var guard service.ProvisionGuard
	if cfg.Redis.Enabled {
		c.Redis = redis.NewRedisClient(cfg.Redis.Addr)
		guard = c.Redis
	}

	// Contact reconciler
	c.Provisioner = service.NewProvisioner(
		c.Conversations,
		c.Contacts,
		c.UserService,
		guard,
		c.Hub,
		c.Metrics,
		service.ProvisionerConfig{
			DefaultOwnerID:   cfg.Routing.DefaultOwnerID,
			NextActionOffset: cfg.Routing.NextActionOffset,
			Debounce:         cfg.Routing.ReconcileDebounce,
			LeadSource:       cfg.Routing.LeadSource,
		},
		log,
	)

	// Routing engine
	c.Engine = service.NewEngine(
		service.EngineDeps{
			Conversations: c.Conversations,
			Messages:      c.Messages,
			Contacts:      c.Contacts,
			Knowledge:     c.Knowledge,
			Team:          c.UserService,
			Responder:     responder,
			Breaker:       breaker,
			Events:        c.Hub,
			Metrics:       c.Metrics,
			Logger:        log,
			OnMutation:    c.Provisioner.Nudge,
		},
		service.RoutingConfig{
			EscalationUserID: cfg.Routing.EscalationUserID,
			ToneDescriptor:   cfg.Routing.ToneDescriptor,
			GatewayTimeout:   cfg.Routing.GatewayTimeout,
		},
	)

	c.ContactService = service.NewContactService(c.Contacts, c.Conversations, c.Hub, log)

	return c, nil
}
