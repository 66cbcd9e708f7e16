package ads

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"afx-market/internal/common"
	"afx-market/internal/server/middleware"
)

// Handler exposes ad endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates the ads handlers.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// PostAd handles POST /v1/ads.
func (h *Handler) PostAd(c *gin.Context) {
	userID, ok := middleware.RequireUser(c)
	if !ok {
		return
	}

	var input PostAdInput
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.RespondError(c, common.Validationf("invalid request body: %v", err))
		return
	}

	ad, err := h.service.PostAd(c.Request.Context(), userID, input)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ad)
}

// ListActive handles GET /v1/ads?side=&payment_method=&price_min=&price_max=&min_amount=.
func (h *Handler) ListActive(c *gin.Context) {
	side := c.DefaultQuery("side", SideSell)

	var filters ListFilters
	if methods, ok := c.GetQueryArray("payment_method"); ok {
		filters.PaymentMethods = methods
	}
	var err error
	if filters.PriceMin, err = parseDecimalQuery(c, "price_min"); err != nil {
		middleware.RespondError(c, err)
		return
	}
	if filters.PriceMax, err = parseDecimalQuery(c, "price_max"); err != nil {
		middleware.RespondError(c, err)
		return
	}
	if filters.MinTradeable, err = parseDecimalQuery(c, "min_amount"); err != nil {
		middleware.RespondError(c, err)
		return
	}

	list, err := h.service.ListActive(c.Request.Context(), side, filters)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ads": list})
}

// Get handles GET /v1/ads/:id — the detail view with poster stats.
func (h *Handler) Get(c *gin.Context) {
	adID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		middleware.RespondError(c, common.Validationf("invalid ad id"))
		return
	}

	ad, err := h.service.GetAd(c.Request.Context(), adID)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ad)
}

// ListMine handles GET /v1/ads/mine.
func (h *Handler) ListMine(c *gin.Context) {
	userID, ok := middleware.RequireUser(c)
	if !ok {
		return
	}

	list, err := h.service.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ads": list})
}

// Cancel handles DELETE /v1/ads/:id.
func (h *Handler) Cancel(c *gin.Context) {
	userID, ok := middleware.RequireUser(c)
	if !ok {
		return
	}

	adID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		middleware.RespondError(c, common.Validationf("invalid ad id"))
		return
	}

	if err := h.service.Cancel(c.Request.Context(), adID, userID); err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

func parseDecimalQuery(c *gin.Context, name string) (*decimal.Decimal, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, common.Validationf("invalid %s value", name)
	}
	return &d, nil
}
