package api

import (
	"net/http"

	"crm-inbox-demo/backend/internal/models"
	"crm-inbox-demo/backend/internal/service"
	"crm-inbox-demo/backend/pkg/jwt"
	"crm-inbox-demo/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// TeamHandler exposes the team registry
type TeamHandler struct {
	service *service.UserService
	logger  *logger.Logger
}

// NewTeamHandler creates a new team handler
func NewTeamHandler(service *service.UserService, logger *logger.Logger) *TeamHandler {
	return &TeamHandler{
		service: service,
		logger:  logger,
	}
}

// List returns all team members
func (h *TeamHandler) List(c *gin.Context) {
	users, err := h.service.ListUsers(c.Request.Context())
	if err != nil {
		h.logger.Error("Error listing users", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list team members"})
		return
	}

	responses := make([]models.UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, users[i].ToResponse())
	}

	c.JSON(http.StatusOK, responses)
}

// UpdateRole changes a team member's role. Managers only.
func (h *TeamHandler) UpdateRole(c *gin.Context) {
	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	err := h.service.UpdateUserRole(c.Request.Context(), c.Param("id"), jwt.Role(req.Role))
	if err != nil {
		switch err {
		case service.ErrInvalidRole:
			c.JSON(http.StatusBadRequest, gin.H{"error": "The provided role is invalid"})
		case service.ErrUserNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		default:
			h.logger.Error("Error updating role", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update role"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
