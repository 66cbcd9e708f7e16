// Package wallet — handlers.go serves the balance display reads the UI
// polls every few seconds. These are snapshots, never gating input.
package wallet

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"afx-market/internal/server/middleware"
)

// Handler serves wallet reads.
type Handler struct {
	service *Service
}

// NewHandler creates the wallet handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetOverview handles GET /v1/wallet — all balance partitions.
func (h *Handler) GetOverview(c *gin.Context) {
	userID, ok := middleware.RequireUser(c)
	if !ok {
		return
	}

	balances, err := h.service.Overview(c.Request.Context(), userID)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balances": balances})
}

// GetTransactions handles GET /v1/wallet/transactions?limit=.
func (h *Handler) GetTransactions(c *gin.Context) {
	userID, ok := middleware.RequireUser(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	txs, err := h.service.History(c.Request.Context(), userID, limit)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}
