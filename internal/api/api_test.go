package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"crm-inbox-demo/backend/ai"
	"crm-inbox-demo/backend/internal/models"
	"crm-inbox-demo/backend/internal/repository"
	"crm-inbox-demo/backend/internal/service"
	"crm-inbox-demo/backend/pkg/jwt"
	"crm-inbox-demo/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResponder struct {
	reply ai.ResponderReply
}

func (s stubResponder) Respond(ctx context.Context, req ai.ResponderRequest) (ai.ResponderReply, error) {
	return s.reply, nil
}

type fixture struct {
	router *gin.Engine
	store  *repository.MemoryStore
	engine *service.Engine
}

// asUser injects claims the way the auth middleware would.
func asUser(id string, role jwt.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("claims", &jwt.JWTClaims{UserID: id, Email: id + "@example.com", Role: role})
		c.Set("userID", id)
		c.Next()
	}
}

func newFixture(t *testing.T, id string, role jwt.Role) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repository.NewMemoryStore()
	logCfg := logger.DefaultConfig()
	logCfg.Level = "error"
	logCfg.JSON = false
	log := logger.New(logCfg)

	team := service.NewUserService(store.Users(), jwt.NewService("test-secret", time.Hour))
	engine := service.NewEngine(service.EngineDeps{
		Conversations: store.Conversations(),
		Messages:      store.Messages(),
		Contacts:      store.Contacts(),
		Knowledge:     store.Knowledge(),
		Team:          team,
		Responder:     stubResponder{reply: ai.ResponderReply{ReplyText: "hello"}},
		Logger:        log,
	}, service.RoutingConfig{})
	contacts := service.NewContactService(store.Contacts(), store.Conversations(), nil, log)

	require.NoError(t, store.Users().Create(context.Background(), &models.User{
		ID: "agent-1", Name: "Agent", Email: "agent@example.com", Role: "agent",
	}))
	require.NoError(t, store.Users().Create(context.Background(), &models.User{
		ID: "mgr-1", Name: "Manager", Email: "mgr@example.com", Role: "manager",
	}))

	convHandler := NewConversationHandler(engine, log)
	contactHandler := NewContactHandler(contacts, log)

	r := gin.New()
	r.POST("/channel/messages", convHandler.Inbound)

	authed := r.Group("/", asUser(id, role))
	authed.GET("/conversations", convHandler.List)
	authed.GET("/conversations/:id/messages", convHandler.Messages)
	authed.POST("/conversations/:id/messages", convHandler.Send)
	authed.POST("/conversations/:id/takeover", convHandler.TakeOver)
	authed.GET("/contacts", contactHandler.List)
	authed.DELETE("/contacts/:id", contactHandler.Delete)

	return &fixture{router: r, store: store, engine: engine}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestInboundWebhookCreatesConversation(t *testing.T) {
	f := newFixture(t, "agent-1", jwt.RoleAgent)

	w := f.do(t, http.MethodPost, "/channel/messages", models.InboundMessageRequest{
		ExternalID: "cust-1", DisplayName: "Maria", Content: "hi",
	})
	assert.Equal(t, http.StatusAccepted, w.Code)

	var conv models.Conversation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conv))
	assert.True(t, conv.BotHandled())
	assert.Equal(t, "Maria", conv.Name)
}

func TestSendMessageEndpointTakesOver(t *testing.T) {
	f := newFixture(t, "agent-1", jwt.RoleAgent)

	conv, err := f.engine.HandleInbound(context.Background(), models.InboundMessageRequest{
		ExternalID: "cust-1", Content: "hi",
	})
	require.NoError(t, err)

	w := f.do(t, http.MethodPost, "/conversations/"+conv.ID+"/messages", models.SendMessageRequest{
		Content: "I'll take it from here",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	updated, err := f.store.Conversations().GetByID(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "agent-1", updated.HandledBy)
}

func TestSendMessageMissingConversation(t *testing.T) {
	f := newFixture(t, "agent-1", jwt.RoleAgent)

	w := f.do(t, http.MethodPost, "/conversations/nope/messages", models.SendMessageRequest{
		Content: "hello",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTakeOverUnknownAssignee(t *testing.T) {
	f := newFixture(t, "agent-1", jwt.RoleAgent)

	conv, err := f.engine.HandleInbound(context.Background(), models.InboundMessageRequest{
		ExternalID: "cust-1", Content: "hi",
	})
	require.NoError(t, err)

	w := f.do(t, http.MethodPost, "/conversations/"+conv.ID+"/takeover", models.TakeOverRequest{
		UserID: "ghost",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConversationListFiltersByViewer(t *testing.T) {
	f := newFixture(t, "agent-1", jwt.RoleAgent)

	botConv, err := f.engine.HandleInbound(context.Background(), models.InboundMessageRequest{
		ExternalID: "cust-1", Content: "hi",
	})
	require.NoError(t, err)
	_ = botConv

	other, err := f.engine.HandleInbound(context.Background(), models.InboundMessageRequest{
		ExternalID: "cust-2", Content: "oi",
	})
	require.NoError(t, err)
	_, err = f.engine.TakeOver(context.Background(), other.ID, "mgr-1")
	require.NoError(t, err)

	w := f.do(t, http.MethodGet, "/conversations", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var convs []models.Conversation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &convs))
	require.Len(t, convs, 1)
	assert.True(t, convs[0].BotHandled())
}

func TestDeleteContactForbiddenForAgent(t *testing.T) {
	f := newFixture(t, "agent-1", jwt.RoleAgent)
	_, err := f.store.Contacts().CreateIfAbsent(context.Background(), &models.Contact{
		ID: "p1", Name: "Maria", OwnerID: "agent-1",
	})
	require.NoError(t, err)

	w := f.do(t, http.MethodDelete, "/contacts/p1", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	_, err = f.store.Contacts().GetByID(context.Background(), "p1")
	assert.NoError(t, err)
}

func TestDeleteContactAsManager(t *testing.T) {
	f := newFixture(t, "mgr-1", jwt.RoleManager)
	_, err := f.store.Contacts().CreateIfAbsent(context.Background(), &models.Contact{
		ID: "p1", Name: "Maria", OwnerID: "agent-1",
	})
	require.NoError(t, err)

	w := f.do(t, http.MethodDelete, "/contacts/p1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	_, err = f.store.Contacts().GetByID(context.Background(), "p1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMessagesEndpointPreservesOrder(t *testing.T) {
	f := newFixture(t, "mgr-1", jwt.RoleManager)

	conv, err := f.engine.HandleInbound(context.Background(), models.InboundMessageRequest{
		ExternalID: "cust-1", Content: "first",
	})
	require.NoError(t, err)
	_, err = f.engine.HandleInbound(context.Background(), models.InboundMessageRequest{
		ExternalID: "cust-1", Content: "second",
	})
	require.NoError(t, err)

	w := f.do(t, http.MethodGet, "/conversations/"+conv.ID+"/messages", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var msgs []models.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msgs))
	require.Len(t, msgs, 4)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "second", msgs[2].Content)
}
