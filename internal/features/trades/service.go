// Package trades — service.go is the trade-initiation validator.
// Client-side checks run first for responsiveness, but the atomic store
// operation re-validates everything shared state can invalidate; its
// failures surface verbatim and nothing needs compensating, since the
// validator mutates nothing locally.
package trades

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"afx-market/internal/common"
	"afx-market/internal/config"
)

// Store is the persistence surface the validator needs.
type Store interface {
	AdSummary(ctx context.Context, adID uuid.UUID) (*AdSummary, error)
	InitiateTrade(ctx context.Context, adID, initiatorID uuid.UUID, amount decimal.Decimal, paymentMethod string, now time.Time) (*Trade, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]*Trade, error)
	CompletedCount(ctx context.Context, userID uuid.UUID) (int64, error)
	BatchTraderStats(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]TraderStats, error)
}

// Service validates and initiates trades.
type Service struct {
	store Store
	cfg   *config.Config
	now   func() time.Time
}

// NewService creates the trade service.
func NewService(store Store, cfg *config.Config) *Service {
	return &Service{store: store, cfg: cfg, now: time.Now}
}

// Initiate validates a trade request against an ad and delegates to the
// atomic initiation operation.
//
// Validation order: self-trade, effective amount resolution (requested if
// positive, else the ad's minimum), absolute floor, remaining bound.
func (s *Service) Initiate(ctx context.Context, adID, initiatorID uuid.UUID, requested decimal.Decimal, paymentMethod string) (*Trade, error) {
	ad, err := s.store.AdSummary(ctx, adID)
	if err != nil {
		return nil, err
	}

	if ad.OwnerID == initiatorID {
		return nil, common.ErrSelfTrade
	}

	amount := requested
	if !amount.IsPositive() {
		amount = ad.MinAmount
	}

	floor := decimal.NewFromInt(s.cfg.TradeMinAmount)
	if amount.LessThan(floor) {
		return nil, common.Validationf("minimum trade amount is %s AFX", floor.StringFixed(0))
	}
	if amount.GreaterThan(ad.RemainingAmount) {
		return nil, common.Validationf("maximum available amount is %s AFX", ad.RemainingAmount.StringFixed(2))
	}

	trade, err := s.store.InitiateTrade(ctx, adID, initiatorID, amount, paymentMethod, s.now())
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"trade_id": trade.ID,
		"ad_id":    adID,
		"amount":   amount.String(),
	}).Info("Trade initiated")
	return trade, nil
}

// History returns the user's trades, newest first.
func (s *Service) History(ctx context.Context, userID uuid.UUID, limit int) ([]*Trade, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.store.ListForUser(ctx, userID, limit)
}

// CompletedCount exposes the authoritative aggregate for the transfer gate.
func (s *Service) CompletedCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.store.CompletedCount(ctx, userID)
}

// BatchTraderStats exposes the batched aggregates for ad listings.
func (s *Service) BatchTraderStats(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]TraderStats, error) {
	return s.store.BatchTraderStats(ctx, userIDs)
}
