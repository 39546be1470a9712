package api

import (
	"net/http"

	"crm-inbox-demo/backend/internal/models"
	"crm-inbox-demo/backend/internal/service"
	"crm-inbox-demo/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ConversationHandler exposes the inbox and the ownership commands
type ConversationHandler struct {
	engine *service.Engine
	logger *logger.Logger
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(engine *service.Engine, logger *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		engine: engine,
		logger: logger,
	}
}

// List returns the conversations visible to the authenticated user
func (h *ConversationHandler) List(c *gin.Context) {
	convs, err := h.engine.ListConversations(c.Request.Context(), requestViewer(c))
	if err != nil {
		h.logger.Error("Error listing conversations", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list conversations"})
		return
	}

	c.JSON(http.StatusOK, convs)
}

// Get returns a single conversation
func (h *ConversationHandler) Get(c *gin.Context) {
	conv, err := h.engine.GetConversation(c.Request.Context(), c.Param("id"), requestViewer(c))
	if err != nil {
		switch err {
		case service.ErrConversationNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		default:
			h.logger.Error("Error getting conversation", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve conversation"})
		}
		return
	}

	c.JSON(http.StatusOK, conv)
}

// Messages returns the conversation's messages in append order
func (h *ConversationHandler) Messages(c *gin.Context) {
	messages, err := h.engine.ListMessages(c.Request.Context(), c.Param("id"), requestViewer(c))
	if err != nil {
		switch err {
		case service.ErrConversationNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		default:
			h.logger.Error("Error listing messages", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list messages"})
		}
		return
	}

	c.JSON(http.StatusOK, messages)
}

// Send appends an agent message or internal note to the conversation.
// Sending a customer-visible message into a bot-handled conversation
// reassigns it to the sender.
func (h *ConversationHandler) Send(c *gin.Context) {
	claims := requestClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Error binding JSON for send", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	msg, err := h.engine.SendMessage(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		switch err {
		case service.ErrConversationNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		case service.ErrUnknownHandler:
			c.JSON(http.StatusForbidden, gin.H{"error": "Sender is not a known team member"})
		default:
			h.logger.Error("Error sending message", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		}
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// TakeOver assigns the conversation to a human agent
func (h *ConversationHandler) TakeOver(c *gin.Context) {
	var req models.TakeOverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Error binding JSON for takeover", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	conv, err := h.engine.TakeOver(c.Request.Context(), c.Param("id"), req.UserID)
	if err != nil {
		switch err {
		case service.ErrConversationNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		case service.ErrUnknownHandler:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Assignee is not a known team member"})
		default:
			h.logger.Error("Error taking over conversation", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to take over conversation"})
		}
		return
	}

	c.JSON(http.StatusOK, conv)
}

// ReturnToBot hands the conversation back to the automated responder
func (h *ConversationHandler) ReturnToBot(c *gin.Context) {
	conv, err := h.engine.ReturnToBot(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch err {
		case service.ErrConversationNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		default:
			h.logger.Error("Error returning conversation to bot", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to return conversation"})
		}
		return
	}

	c.JSON(http.StatusOK, conv)
}

// MarkRead clears the conversation's unread counter
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	if err := h.engine.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		switch err {
		case service.ErrConversationNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		default:
			h.logger.Error("Error marking conversation read", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark conversation read"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Start opens (or returns) the conversation for an existing contact,
// owned by the requesting agent
func (h *ConversationHandler) Start(c *gin.Context) {
	claims := requestClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req models.StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Error binding JSON for start", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	conv, err := h.engine.StartConversation(c.Request.Context(), req.ContactID, claims.UserID)
	if err != nil {
		switch err {
		case service.ErrContactNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
		case service.ErrUnknownHandler:
			c.JSON(http.StatusForbidden, gin.H{"error": "Sender is not a known team member"})
		default:
			h.logger.Error("Error starting conversation", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start conversation"})
		}
		return
	}

	c.JSON(http.StatusCreated, conv)
}

// Inbound ingests a message from the external chat channel. This endpoint
// is called by the channel webhook, not by agents.
func (h *ConversationHandler) Inbound(c *gin.Context) {
	var req models.InboundMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Error binding JSON for inbound message", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	conv, err := h.engine.HandleInbound(c.Request.Context(), req)
	if err != nil {
		h.logger.Error("Error handling inbound message", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to ingest message"})
		return
	}

	c.JSON(http.StatusAccepted, conv)
}
