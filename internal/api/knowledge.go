package api

import (
	"net/http"
	"strconv"

	"crm-inbox-demo/backend/internal/models"
	"crm-inbox-demo/backend/internal/repository"
	"crm-inbox-demo/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// KnowledgeHandler manages the FAQ entries fed to the automated responder
type KnowledgeHandler struct {
	repo   repository.KnowledgeRepository
	logger *logger.Logger
}

// NewKnowledgeHandler creates a new knowledge handler
func NewKnowledgeHandler(repo repository.KnowledgeRepository, logger *logger.Logger) *KnowledgeHandler {
	return &KnowledgeHandler{
		repo:   repo,
		logger: logger,
	}
}

// List returns all knowledge base entries
func (h *KnowledgeHandler) List(c *gin.Context) {
	entries, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Error listing knowledge entries", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list knowledge entries"})
		return
	}

	c.JSON(http.StatusOK, entries)
}

// Create adds a knowledge base entry
func (h *KnowledgeHandler) Create(c *gin.Context) {
	var req models.KnowledgeEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	entry := models.KnowledgeEntry{
		Question: req.Question,
		Answer:   req.Answer,
	}
	if err := h.repo.Create(c.Request.Context(), &entry); err != nil {
		h.logger.Error("Error creating knowledge entry", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create knowledge entry"})
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// Delete removes a knowledge base entry
func (h *KnowledgeHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid entry id"})
		return
	}

	if err := h.repo.Delete(c.Request.Context(), uint(id)); err != nil {
		h.logger.Error("Error deleting knowledge entry", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete knowledge entry"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
