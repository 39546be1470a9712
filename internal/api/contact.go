package api

import (
	"net/http"

	"crm-inbox-demo/backend/internal/models"
	"crm-inbox-demo/backend/internal/service"
	"crm-inbox-demo/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ContactHandler exposes the CRM contact book
type ContactHandler struct {
	service *service.ContactService
	logger  *logger.Logger
}

// NewContactHandler creates a new contact handler
func NewContactHandler(service *service.ContactService, logger *logger.Logger) *ContactHandler {
	return &ContactHandler{
		service: service,
		logger:  logger,
	}
}

// List returns the contacts visible to the authenticated user
func (h *ContactHandler) List(c *gin.Context) {
	contacts, err := h.service.ListContacts(c.Request.Context(), requestViewer(c))
	if err != nil {
		h.logger.Error("Error listing contacts", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list contacts"})
		return
	}

	c.JSON(http.StatusOK, contacts)
}

// Get returns a single contact
func (h *ContactHandler) Get(c *gin.Context) {
	contact, err := h.service.GetContact(c.Request.Context(), c.Param("id"), requestViewer(c))
	if err != nil {
		switch err {
		case service.ErrContactNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
		default:
			h.logger.Error("Error getting contact", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve contact"})
		}
		return
	}

	c.JSON(http.StatusOK, contact)
}

// Update applies a partial edit to the contact's CRM fields
func (h *ContactHandler) Update(c *gin.Context) {
	claims := requestClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req models.UpdateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Error binding JSON for contact update", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	contact, err := h.service.UpdateContact(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		switch err {
		case service.ErrContactNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
		case service.ErrInvalidStage:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown pipeline stage"})
		default:
			h.logger.Error("Error updating contact", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update contact"})
		}
		return
	}

	c.JSON(http.StatusOK, contact)
}

// Delete removes a contact and its conversation history. Managers only.
func (h *ContactHandler) Delete(c *gin.Context) {
	claims := requestClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	if err := h.service.DeleteContact(c.Request.Context(), c.Param("id"), claims); err != nil {
		switch err {
		case service.ErrElevatedOnly:
			c.JSON(http.StatusForbidden, gin.H{"error": "Only managers can delete contacts"})
		case service.ErrContactNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
		default:
			h.logger.Error("Error deleting contact", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete contact"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// Activities returns the contact's activity log
func (h *ContactHandler) Activities(c *gin.Context) {
	activities, err := h.service.ListActivities(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch err {
		case service.ErrContactNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
		default:
			h.logger.Error("Error listing activities", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list activities"})
		}
		return
	}

	c.JSON(http.StatusOK, activities)
}

// AddActivity appends a note or email record to the contact's activity log
func (h *ContactHandler) AddActivity(c *gin.Context) {
	claims := requestClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req models.AddActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Error binding JSON for activity", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	activity, err := h.service.AddActivity(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		switch err {
		case service.ErrContactNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
		default:
			h.logger.Error("Error adding activity", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add activity"})
		}
		return
	}

	c.JSON(http.StatusCreated, activity)
}
