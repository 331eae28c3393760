package remediation

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"internship-hub/project-portal/project-portal-backend/internal/apperrors"
)

// Handler handles HTTP requests for suspended project remediation
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new remediation handler
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers remediation routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/projects/:id/remediation", h.listCandidates)
	router.POST("/projects/:id/remediation", h.apply)
}

// listCandidates handles GET /api/v1/projects/:id/remediation
func (h *Handler) listCandidates(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}

	candidates, err := h.service.Candidates(c.Request.Context(), projectID)
	if err != nil {
		h.fail(c, "Failed to list remediation candidates", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"candidates": candidates,
		"actions":    []Action{ActionWithdrawPosition, ActionAdjustVacancies, ActionModifySchedule},
	})
}

// apply handles POST /api/v1/projects/:id/remediation
func (h *Handler) apply(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Apply(c.Request.Context(), projectID, req)
	if err != nil {
		h.fail(c, "Failed to apply remediation", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) fail(c *gin.Context, msg string, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err))
	}
	c.JSON(status, apperrors.ToResponse(err))
}

func projectIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return 0, false
	}
	return id, true
}
