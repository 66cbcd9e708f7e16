package mining

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"afx-market/internal/server/middleware"
)

// Handler exposes mining endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates the mining handlers.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetStatus handles GET /v1/mining/status.
func (h *Handler) GetStatus(c *gin.Context) {
	userID, ok := middleware.RequireUser(c)
	if !ok {
		return
	}

	status, err := h.service.Status(c.Request.Context(), userID)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Claim handles POST /v1/mining/claim.
func (h *Handler) Claim(c *gin.Context) {
	userID, ok := middleware.RequireUser(c)
	if !ok {
		return
	}

	result, err := h.service.Claim(c.Request.Context(), userID)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
