// Package server assembles the gin engine: middleware chain, versioned
// routes and the operator group.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"afx-market/internal/config"
	"afx-market/internal/features/admin"
	"afx-market/internal/features/ads"
	"afx-market/internal/features/mining"
	"afx-market/internal/features/rates"
	"afx-market/internal/features/trades"
	"afx-market/internal/features/transfer"
	"afx-market/internal/features/wallet"
	"afx-market/internal/server/middleware"
)

// Handlers collects every feature's HTTP surface.
type Handlers struct {
	Rates    *rates.Handler
	Ads      *ads.Handler
	Trades   *trades.Handler
	Mining   *mining.Handler
	Transfer *transfer.Handler
	Wallet   *wallet.Handler
	Admin    *admin.Handler
}

// Server is the HTTP front of the marketplace.
type Server struct {
	httpServer *http.Server
	limiter    *middleware.RateLimiter
}

// New builds the engine and mounts all routes.
func New(cfg *config.Config, h Handlers) *Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	engine.Use(
		middleware.Recovery(),
		middleware.Identity(),
		middleware.RequestLogger(),
		limiter.Middleware(),
	)

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := engine.Group("/v1")
	{
		v1.GET("/rates", h.Rates.GetRates)
		v1.GET("/rates/:country", h.Rates.GetCountryRate)

		v1.POST("/ads", h.Ads.PostAd)
		v1.GET("/ads", h.Ads.ListActive)
		v1.GET("/ads/mine", h.Ads.ListMine)
		v1.GET("/ads/:id", h.Ads.Get)
		v1.DELETE("/ads/:id", h.Ads.Cancel)

		v1.POST("/trades", h.Trades.Initiate)
		v1.GET("/trades", h.Trades.List)

		v1.GET("/mining/status", h.Mining.GetStatus)
		v1.POST("/mining/claim", h.Mining.Claim)

		v1.GET("/transfers/eligibility", h.Transfer.GetEligibility)
		v1.POST("/transfers", h.Transfer.Send)

		v1.GET("/wallet", h.Wallet.GetOverview)
		v1.GET("/wallet/transactions", h.Wallet.GetTransactions)

		adminGroup := v1.Group("/admin", h.Admin.RequireToken())
		{
			adminGroup.PUT("/mining-reward", h.Admin.SetMiningReward)
			adminGroup.POST("/rates/:country", h.Admin.RecordCountryRate)
			adminGroup.GET("/supply", h.Admin.GetSupply)
		}
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		limiter: limiter,
	}
}

// Start serves until Shutdown. Blocks.
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Close()
	return s.httpServer.Shutdown(ctx)
}
