package provisioning

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"internship-hub/project-portal/project-portal-backend/internal/apperrors"
)

// Handler handles HTTP requests that drive provisioning sessions
type Handler struct {
	manager *Manager
	logger  *zap.Logger
}

// NewHandler creates a new provisioning handler
func NewHandler(manager *Manager, logger *zap.Logger) *Handler {
	return &Handler{
		manager: manager,
		logger:  logger,
	}
}

// RegisterRoutes registers provisioning routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/projects/:id/provisioning", h.startSession)

	sessions := router.Group("/provisioning")
	{
		sessions.GET("/:sessionId", h.getSession)
		sessions.POST("/:sessionId/events", h.handleEvent)
		sessions.DELETE("/:sessionId", h.deleteSession)
	}
}

// startSession handles POST /api/v1/projects/:id/provisioning
func (h *Handler) startSession(c *gin.Context) {
	projectID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || projectID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	session, err := h.manager.Start(c.Request.Context(), projectID)
	if err != nil {
		h.fail(c, "Failed to start provisioning", err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// getSession handles GET /api/v1/provisioning/:sessionId
func (h *Handler) getSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	session, err := h.manager.Get(id)
	if err != nil {
		h.fail(c, "Failed to get provisioning session", err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// handleEvent handles POST /api/v1/provisioning/:sessionId/events.
// Rejected forms answer 200: the session view carries the validation errors.
func (h *Handler) handleEvent(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var event Event
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.manager.Handle(c.Request.Context(), id, event)
	if err != nil {
		h.fail(c, "Failed to handle provisioning event", err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// deleteSession handles DELETE /api/v1/provisioning/:sessionId
func (h *Handler) deleteSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	h.manager.Remove(id)
	c.Status(http.StatusNoContent)
}

func (h *Handler) fail(c *gin.Context, msg string, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err))
	}
	c.JSON(status, apperrors.ToResponse(err))
}

func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return uuid.Nil, false
	}
	return id, true
}
