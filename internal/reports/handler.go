package reports

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"internship-hub/project-portal/project-portal-backend/internal/apperrors"
	"internship-hub/project-portal/project-portal-backend/internal/reports/export"
)

// Handler handles HTTP requests for project sheet exports
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new reports handler
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers export routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/projects/:id/export", h.exportProject)
	router.POST("/projects/:id/exports", h.archiveProject)
	router.GET("/projects/:id/exports", h.listArchives)
}

// exportProject handles GET /api/v1/projects/:id/export?format=xlsx|pdf|csv
func (h *Handler) exportProject(c *gin.Context) {
	id, format, ok := h.params(c)
	if !ok {
		return
	}

	doc, err := h.service.Render(c.Request.Context(), id, format)
	if err != nil {
		h.fail(c, "Failed to export project", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}

// archiveProject handles POST /api/v1/projects/:id/exports?format=
func (h *Handler) archiveProject(c *gin.Context) {
	id, format, ok := h.params(c)
	if !ok {
		return
	}

	archived, err := h.service.Archive(c.Request.Context(), id, format)
	if err != nil {
		h.fail(c, "Failed to archive project export", err)
		return
	}
	c.JSON(http.StatusCreated, archived)
}

// listArchives handles GET /api/v1/projects/:id/exports
func (h *Handler) listArchives(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	exports, err := h.service.ListArchives(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Failed to list project exports", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exports": exports, "total": len(exports)})
}

func (h *Handler) params(c *gin.Context) (int64, export.Format, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return 0, "", false
	}
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return 0, "", false
	}
	return id, format, true
}

func (h *Handler) fail(c *gin.Context, msg string, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err))
	}
	c.JSON(status, apperrors.ToResponse(err))
}
