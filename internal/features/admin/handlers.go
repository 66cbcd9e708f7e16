package admin

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"afx-market/internal/common"
	"afx-market/internal/server/middleware"
)

// RewardConfig adjusts the mining reward.
type RewardConfig interface {
	SetReward(ctx context.Context, reward decimal.Decimal) error
	RemainingSupply(ctx context.Context) (decimal.Decimal, error)
}

// RateRecorder pins a manual reference price for a country.
type RateRecorder interface {
	RecordRate(ctx context.Context, countryCode string, price decimal.Decimal) error
}

// Handler exposes operator endpoints. Every route passes through
// RequireToken first.
type Handler struct {
	service *Service
	mining  RewardConfig
	rates   RateRecorder
}

// NewHandler creates the admin handlers.
func NewHandler(service *Service, mining RewardConfig, rateRecorder RateRecorder) *Handler {
	return &Handler{service: service, mining: mining, rates: rateRecorder}
}

// RequireToken verifies the X-Admin-Token header before any operator route.
func (h *Handler) RequireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("X-Admin-Token")
		if token == "" {
			middleware.RespondError(c, common.ErrUnauthenticated)
			return
		}
		if err := h.service.VerifyToken(c.Request.Context(), c.ClientIP(), token); err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.Next()
	}
}

type rewardRequest struct {
	Reward decimal.Decimal `json:"reward"`
}

// SetMiningReward handles PUT /v1/admin/mining-reward.
func (h *Handler) SetMiningReward(c *gin.Context) {
	var req rewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, common.Validationf("invalid request body: %v", err))
		return
	}

	if err := h.mining.SetReward(c.Request.Context(), req.Reward); err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reward": req.Reward})
}

type rateRequest struct {
	Price decimal.Decimal `json:"price"`
}

// RecordCountryRate handles POST /v1/admin/rates/:country.
func (h *Handler) RecordCountryRate(c *gin.Context) {
	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, common.Validationf("invalid request body: %v", err))
		return
	}

	country := c.Param("country")
	if err := h.rates.RecordRate(c.Request.Context(), country, req.Price); err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"country": country, "price": req.Price})
}

// GetSupply handles GET /v1/admin/supply.
func (h *Handler) GetSupply(c *gin.Context) {
	remaining, err := h.mining.RemainingSupply(c.Request.Context())
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"remaining_supply": remaining})
}
