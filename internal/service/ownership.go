package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"crm-inbox-demo/backend/ai"
	"crm-inbox-demo/backend/internal/models"
	"crm-inbox-demo/backend/internal/repository"
	"crm-inbox-demo/backend/pkg/logger"
	"crm-inbox-demo/backend/pkg/resilience"

	"github.com/google/uuid"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrContactNotFound      = errors.New("contact not found")
	ErrUnknownHandler       = errors.New("handler is not a known team member")
)

// RoutingConfig carries the engine's assignment defaults.
type RoutingConfig struct {
	// EscalationUserID receives conversations the bot hands off. Resolved
	// against the team registry; falls back to any manager when unset.
	EscalationUserID string
	// ToneDescriptor is passed to the responder gateway verbatim.
	ToneDescriptor string
	// GatewayTimeout bounds one responder evaluation. After it the call is
	// treated as failed and the conversation keeps its current owner.
	GatewayTimeout time.Duration
}

// Engine decides who answers each conversation: the automated responder or a
// specific team member. All ownership transitions and message appends go
// through it, serialized per conversation.
type Engine struct {
	convs     repository.ConversationRepository
	msgs      repository.MessageRepository
	contacts  repository.ContactRepository
	knowledge repository.KnowledgeRepository
	team      *UserService
	responder ai.Responder
	breaker   *resilience.CircuitBreaker
	events    EventPublisher
	metrics   *Metrics
	cfg       RoutingConfig
	log       *logger.Logger

	locks sync.Map // conversation id -> *sync.Mutex

	// onMutation nudges the contact reconciler after registry changes.
	onMutation func()
}

// EngineDeps bundles the engine's collaborators.
type EngineDeps struct {
	Conversations repository.ConversationRepository
	Messages      repository.MessageRepository
	Contacts      repository.ContactRepository
	Knowledge     repository.KnowledgeRepository
	Team          *UserService
	Responder     ai.Responder
	Breaker       *resilience.CircuitBreaker
	Events        EventPublisher
	Metrics       *Metrics
	Logger        *logger.Logger
	OnMutation    func()
}

// NewEngine creates a routing engine.
func NewEngine(deps EngineDeps, cfg RoutingConfig) *Engine {
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 15 * time.Second
	}
	if deps.Events == nil {
		deps.Events = NopPublisher{}
	}
	if deps.Logger == nil {
		deps.Logger = logger.GetGlobal()
	}
	if deps.OnMutation == nil {
		deps.OnMutation = func() {}
	}

	return &Engine{
		convs:      deps.Conversations,
		msgs:       deps.Messages,
		contacts:   deps.Contacts,
		knowledge:  deps.Knowledge,
		team:       deps.Team,
		responder:  deps.Responder,
		breaker:    deps.Breaker,
		events:     deps.Events,
		metrics:    deps.Metrics,
		cfg:        cfg,
		log:        deps.Logger,
		onMutation: deps.OnMutation,
	}
}

// lockFor returns the mutex serializing all evaluation for one conversation.
// Other conversations proceed in parallel.
func (e *Engine) lockFor(conversationID string) *sync.Mutex {
	mu, _ := e.locks.LoadOrStore(conversationID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// HandleInbound ingests a customer message. It creates the conversation on
// first contact, appends the message atomically with the unread/last-message
// update, and, when the bot owns the conversation, runs one serialized
// responder evaluation. Gateway failures are absorbed: the message stays
// appended, ownership does not change, and the same message may be
// re-evaluated later.
func (e *Engine) HandleInbound(ctx context.Context, req models.InboundMessageRequest) (*models.Conversation, error) {
	conv, err := e.convs.GetByContactID(ctx, req.ExternalID)
	if errors.Is(err, repository.ErrNotFound) {
		conv, err = e.createInboundConversation(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	mu := e.lockFor(conv.ID)
	mu.Lock()
	defer mu.Unlock()

	// Re-read under the lock; a concurrent evaluation may have changed the
	// owner while we waited.
	conv, err = e.convs.GetByID(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	prior, err := e.msgs.CountBySender(ctx, conv.ID, req.ExternalID)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		Sender:         req.ExternalID,
		Content:        req.Content,
		Type:           models.MessageTypeCustomer,
		Status:         models.DeliveryDelivered,
		Timestamp:      time.Now(),
	}

	if err := e.convs.AppendMessage(ctx, msg, repository.AppendOptions{
		CacheLast:       true,
		IncrementUnread: true,
	}); err != nil {
		return nil, err
	}
	e.events.Publish(Event{Type: EventMessageCreated, Payload: msg})

	if conv.BotHandled() {
		e.evaluate(ctx, conv, req.Content, prior == 0)
	}

	conv, err = e.convs.GetByID(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	e.events.Publish(Event{Type: EventConversationUpdated, Payload: conv})
	return conv, nil
}

func (e *Engine) createInboundConversation(ctx context.Context, req models.InboundMessageRequest) (*models.Conversation, error) {
	name := req.DisplayName
	if name == "" {
		name = req.ExternalID
	}

	conv := &models.Conversation{
		ID:        uuid.New().String(),
		ContactID: req.ExternalID,
		Name:      name,
		HandledBy: models.HandledByBot,
		CreatedAt: time.Now(),
	}
	if err := e.convs.Create(ctx, conv); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Another instance inserted between our lookup and this
			// create. Use its conversation and continue the append.
			return e.convs.GetByContactID(ctx, req.ExternalID)
		}
		return nil, err
	}

	e.log.Info("conversation created from inbound message",
		"conversation_id", conv.ID,
		"contact_id", conv.ContactID,
	)
	e.onMutation()
	return conv, nil
}

// evaluate runs one responder-gateway call for an inbound message. Called
// with the conversation lock held so at most one evaluation is in flight per
// conversation; a second inbound message waits for this one's transition.
func (e *Engine) evaluate(ctx context.Context, conv *models.Conversation, messageText string, firstInteraction bool) {
	entries, err := e.knowledge.List(ctx)
	if err != nil {
		e.log.Warn("knowledge base unavailable, evaluating without context", "error", err.Error())
	}
	qa := make([]ai.QA, 0, len(entries))
	for _, entry := range entries {
		qa = append(qa, ai.QA{Question: entry.Question, Answer: entry.Answer})
	}

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.GatewayTimeout)
	defer cancel()

	if e.metrics != nil {
		e.metrics.GatewayCalls.Inc()
	}

	var reply ai.ResponderReply
	call := func() error {
		var callErr error
		reply, callErr = e.responder.Respond(callCtx, ai.ResponderRequest{
			MessageText:        messageText,
			KnowledgeContext:   qa,
			ToneDescriptor:     e.cfg.ToneDescriptor,
			IsFirstInteraction: firstInteraction,
		})
		return callErr
	}

	if e.breaker != nil {
		err = e.breaker.Execute(call)
	} else {
		err = call()
	}
	if err != nil {
		// Recoverable: no reply, no transition. The next inbound message
		// triggers a fresh evaluation.
		if e.metrics != nil {
			e.metrics.GatewayFailures.Inc()
		}
		e.log.Warn("responder gateway call failed",
			"conversation_id", conv.ID,
			"error", err.Error(),
		)
		return
	}

	replyMsg := &models.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		Sender:         models.SenderBot,
		Content:        reply.ReplyText,
		Type:           models.MessageTypeCustomer,
		Status:         models.DeliverySent,
		Timestamp:      time.Now(),
	}

	opts := repository.AppendOptions{CacheLast: true}
	if reply.RequiresHandoff {
		target := e.team.ResolveAssignee(ctx, e.cfg.EscalationUserID)
		if target == "" {
			e.log.Error("handoff requested but no team member available",
				"conversation_id", conv.ID,
			)
		} else {
			opts.HandledBy = &target
		}
	}

	if err := e.convs.AppendMessage(ctx, replyMsg, opts); err != nil {
		e.log.LogError(err, "failed to append automated reply", "conversation_id", conv.ID)
		return
	}
	e.events.Publish(Event{Type: EventMessageCreated, Payload: replyMsg})

	if opts.HandledBy != nil {
		if e.metrics != nil {
			e.metrics.Handoffs.Inc()
		}
		e.log.Info("conversation handed off",
			"conversation_id", conv.ID,
			"assigned_to", *opts.HandledBy,
		)
	}
}

// SendMessage appends a human-authored message. A human writing into a
// bot-owned conversation takes ownership in the same step as the append, and
// the responder never replies to that message.
func (e *Engine) SendMessage(ctx context.Context, conversationID, senderID string, req models.SendMessageRequest) (*models.Message, error) {
	if !e.team.Exists(ctx, senderID) {
		return nil, ErrUnknownHandler
	}

	msgType := req.Type
	if msgType == "" {
		msgType = models.MessageTypeCustomer
	}

	mu := e.lockFor(conversationID)
	mu.Lock()
	defer mu.Unlock()

	conv, err := e.convs.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}

	msg := &models.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Sender:         senderID,
		Content:        req.Content,
		Type:           msgType,
		Timestamp:      time.Now(),
	}
	if msgType == models.MessageTypeCustomer {
		msg.Status = models.DeliverySent
	}

	opts := repository.AppendOptions{
		// Internal notes never reach the customer and stay out of the
		// conversation-list preview.
		CacheLast: msgType == models.MessageTypeCustomer,
	}
	if conv.BotHandled() {
		opts.HandledBy = &senderID
	}

	if err := e.convs.AppendMessage(ctx, msg, opts); err != nil {
		return nil, err
	}

	if opts.HandledBy != nil {
		if e.metrics != nil {
			e.metrics.Takeovers.Inc()
		}
		e.log.Info("human took over conversation by replying",
			"conversation_id", conversationID,
			"user_id", senderID,
		)
	}

	e.events.Publish(Event{Type: EventMessageCreated, Payload: msg})
	e.publishConversation(ctx, conversationID)
	return msg, nil
}

// TakeOver forces ownership to the given team member without a message.
// Also used for reassignment between humans.
func (e *Engine) TakeOver(ctx context.Context, conversationID, userID string) (*models.Conversation, error) {
	if !e.team.Exists(ctx, userID) {
		return nil, ErrUnknownHandler
	}

	mu := e.lockFor(conversationID)
	mu.Lock()
	defer mu.Unlock()

	if err := e.convs.SetHandledBy(ctx, conversationID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.Takeovers.Inc()
	}
	e.log.Info("conversation taken over",
		"conversation_id", conversationID,
		"user_id", userID,
	)

	conv, err := e.convs.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	e.events.Publish(Event{Type: EventConversationUpdated, Payload: conv})
	return conv, nil
}

// ReturnToBot hands the conversation back to the automated responder.
func (e *Engine) ReturnToBot(ctx context.Context, conversationID string) (*models.Conversation, error) {
	mu := e.lockFor(conversationID)
	mu.Lock()
	defer mu.Unlock()

	if err := e.convs.SetHandledBy(ctx, conversationID, models.HandledByBot); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}

	conv, err := e.convs.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	e.events.Publish(Event{Type: EventConversationUpdated, Payload: conv})
	return conv, nil
}

// StartConversation creates a human-owned conversation with an existing
// contact, or returns the one that already exists.
func (e *Engine) StartConversation(ctx context.Context, contactID, userID string) (*models.Conversation, error) {
	if !e.team.Exists(ctx, userID) {
		return nil, ErrUnknownHandler
	}

	contact, err := e.contacts.GetByID(ctx, contactID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrContactNotFound
		}
		return nil, err
	}

	if existing, err := e.convs.GetByContactID(ctx, contactID); err == nil {
		return existing, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	conv := &models.Conversation{
		ID:        uuid.New().String(),
		ContactID: contact.ID,
		Name:      contact.Name,
		AvatarURL: contact.AvatarURL,
		HandledBy: userID,
		CreatedAt: time.Now(),
	}
	if err := e.convs.Create(ctx, conv); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return e.convs.GetByContactID(ctx, contactID)
		}
		return nil, err
	}

	e.log.Info("conversation started by team member",
		"conversation_id", conv.ID,
		"contact_id", contactID,
		"user_id", userID,
	)
	e.onMutation()
	e.events.Publish(Event{Type: EventConversationUpdated, Payload: conv})
	return conv, nil
}

// MarkRead zeroes the unread counter when a human views the conversation and
// flips the customer's messages to read.
func (e *Engine) MarkRead(ctx context.Context, conversationID string) error {
	if err := e.convs.MarkRead(ctx, conversationID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrConversationNotFound
		}
		return err
	}
	e.publishConversation(ctx, conversationID)
	return nil
}

func (e *Engine) publishConversation(ctx context.Context, conversationID string) {
	conv, err := e.convs.GetByID(ctx, conversationID)
	if err != nil {
		return
	}
	e.events.Publish(Event{Type: EventConversationUpdated, Payload: conv})
}
