// Package trades — handlers.go exposes trade initiation and history.
package trades

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"afx-market/internal/common"
	"afx-market/internal/server/middleware"
)

// Handler serves trade endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates the trades handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type initiateRequest struct {
	AdID          string          `json:"ad_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
}

// Initiate handles POST /v1/trades.
func (h *Handler) Initiate(c *gin.Context) {
	userID, ok := middleware.RequireUser(c)
	if !ok {
		return
	}

	var req initiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, common.Validationf("invalid request body"))
		return
	}
	adID, err := uuid.Parse(req.AdID)
	if err != nil {
		middleware.RespondError(c, common.Validationf("invalid ad id"))
		return
	}

	trade, err := h.service.Initiate(c.Request.Context(), adID, userID, req.Amount, req.PaymentMethod)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, trade)
}

// List handles GET /v1/trades?limit=.
func (h *Handler) List(c *gin.Context) {
	userID, ok := middleware.RequireUser(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	list, err := h.service.History(c.Request.Context(), userID, limit)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": list})
}
