package projects

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"internship-hub/project-portal/project-portal-backend/internal/apperrors"
	"internship-hub/project-portal/project-portal-backend/internal/validation"
)

// Handler handles HTTP requests for projects and their lifecycle
type Handler struct {
	service    ProjectService
	controller *Controller
	logger     *zap.Logger
}

// NewHandler creates a new projects handler
func NewHandler(service ProjectService, controller *Controller, logger *zap.Logger) *Handler {
	return &Handler{
		service:    service,
		controller: controller,
		logger:     logger,
	}
}

// TransitionRequest asks for a lifecycle action
type TransitionRequest struct {
	Action Action `json:"action" binding:"required"`
}

// RegisterRoutes registers project routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	projects := router.Group("/projects")
	{
		projects.POST("", h.createProject)
		projects.GET("", h.listProjects)
		projects.GET("/:id", h.getProject)
		projects.PUT("/:id", h.updateProject)

		// Lifecycle
		projects.GET("/:id/actions", h.getAllowedActions)
		projects.POST("/:id/transitions", h.requestTransition)

		// Positions
		projects.GET("/:id/positions", h.listPositions)
		projects.POST("/:id/positions/:positionId/withdraw", h.withdrawPosition)
	}
}

// createProject handles POST /api/v1/projects
func (h *Handler) createProject(c *gin.Context) {
	var form validation.ProjectForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := h.service.CreateProject(c.Request.Context(), form)
	if err != nil {
		h.fail(c, "Failed to create project", err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

// listProjects handles GET /api/v1/projects
func (h *Handler) listProjects(c *gin.Context) {
	var filter ProjectFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	projects, err := h.service.ListProjects(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, "Failed to list projects", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects, "count": len(projects)})
}

// getProject handles GET /api/v1/projects/:id
func (h *Handler) getProject(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	detail, err := h.service.GetProject(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Failed to get project", err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// updateProject handles PUT /api/v1/projects/:id
func (h *Handler) updateProject(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var form validation.ProjectForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := h.service.UpdateProject(c.Request.Context(), id, form)
	if err != nil {
		h.fail(c, "Failed to update project", err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// getAllowedActions handles GET /api/v1/projects/:id/actions
func (h *Handler) getAllowedActions(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	detail, err := h.service.GetProject(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Failed to get allowed actions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  detail.Project.Status,
		"actions": detail.AllowedActions,
	})
}

// requestTransition handles POST /api/v1/projects/:id/transitions.
// A blocked transition answers 409 with the outcome so the reason can be shown.
func (h *Handler) requestTransition(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.controller.RequestTransition(c.Request.Context(), id, req.Action)
	if err != nil {
		h.fail(c, "Failed to transition project", err)
		return
	}
	if !outcome.Applied() {
		c.JSON(http.StatusConflict, outcome)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// listPositions handles GET /api/v1/projects/:id/positions
func (h *Handler) listPositions(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	includeWithdrawn := c.Query("include_withdrawn") == "true"

	positions, err := h.service.ListPositions(c.Request.Context(), id, includeWithdrawn)
	if err != nil {
		h.fail(c, "Failed to list positions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions, "count": len(positions)})
}

// withdrawPosition handles POST /api/v1/projects/:id/positions/:positionId/withdraw
func (h *Handler) withdrawPosition(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	positionID, ok := idParam(c, "positionId")
	if !ok {
		return
	}

	position, err := h.service.WithdrawPosition(c.Request.Context(), id, positionID)
	if err != nil {
		h.fail(c, "Failed to withdraw position", err)
		return
	}
	c.JSON(http.StatusOK, position)
}

func (h *Handler) fail(c *gin.Context, msg string, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err))
	}
	c.JSON(status, apperrors.ToResponse(err))
}

// idParam parses a positive int64 path parameter, answering 400 when it is not one.
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}
