// Package rates — handlers.go exposes the resolver over HTTP.
package rates

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Handler serves rate queries.
type Handler struct {
	service *Service
}

// NewHandler creates the rates handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetRates handles GET /v1/rates — the full USD-based basket with provenance.
func (h *Handler) GetRates(c *gin.Context) {
	snap := h.service.Resolve(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"rates":     snap.Rates,
		"source":    snap.Source,
		"cached":    snap.Cached,
		"fallback":  snap.Source == SourceFallback,
		"timestamp": snap.FetchedAt,
	})
}

// GetCountryRate handles GET /v1/rates/:country — one country's AFX price.
func (h *Handler) GetCountryRate(c *gin.Context) {
	country := strings.ToUpper(c.Param("country"))
	rate := h.service.CountryPrice(c.Request.Context(), country)
	c.JSON(http.StatusOK, rate)
}
