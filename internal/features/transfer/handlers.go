package transfer

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"afx-market/internal/common"
	"afx-market/internal/server/middleware"
)

// Handler exposes transfer endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates the transfer handlers.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type transferRequest struct {
	Recipient      string          `json:"recipient"`
	Amount         decimal.Decimal `json:"amount"`
	IdempotencyKey string          `json:"idempotency_key"`
}

// Send handles POST /v1/transfers.
func (h *Handler) Send(c *gin.Context) {
	senderID, ok := middleware.RequireUser(c)
	if !ok {
		return
	}

	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, common.Validationf("invalid request body: %v", err))
		return
	}
	if req.Recipient == "" {
		middleware.RespondError(c, common.Validationf("recipient is required"))
		return
	}

	recipient, err := h.service.Transfer(c.Request.Context(), senderID, req.Recipient, req.Amount, req.IdempotencyKey)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "sent",
		"recipient": recipient.Username,
		"amount":    req.Amount,
	})
}

// GetEligibility handles GET /v1/transfers/eligibility.
func (h *Handler) GetEligibility(c *gin.Context) {
	userID, ok := middleware.RequireUser(c)
	if !ok {
		return
	}

	eligibility, err := h.service.CheckEligibility(c.Request.Context(), userID)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, eligibility)
}
