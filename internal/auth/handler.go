package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// RegisterRoutes registers auth routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	authGroup := rg.Group("/auth")
	{
		authGroup.GET("/me", h.Me)
	}
}

// Me returns the operator the request is authenticated as
func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"subject": SubjectFrom(c.Request.Context())})
}
