// Package ads — service.go holds the posting validation chain and the
// listing with batched poster stats.
package ads

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"afx-market/internal/common"
	"afx-market/internal/config"
	"afx-market/internal/features/rates"
	"afx-market/internal/features/trades"
)

// Store is the persistence surface for ads.
type Store interface {
	Create(ctx context.Context, ad *Ad) error
	Delete(ctx context.Context, adID uuid.UUID) error
	GetByID(ctx context.Context, adID uuid.UUID) (*Ad, error)
	ListActive(ctx context.Context, side string, filters ListFilters, now time.Time) ([]*Ad, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Ad, error)
	Cancel(ctx context.Context, adID, ownerID uuid.UUID) error
}

// CollateralLedger is the slice of the wallet the poster check needs.
type CollateralLedger interface {
	AvailableGeneral(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	DeductCollateral(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error
}

// RateSource supplies the reference price for the band check.
type RateSource interface {
	CountryPrice(ctx context.Context, countryCode string) rates.CountryRate
}

// StatsSource supplies batched poster aggregates for listings.
type StatsSource interface {
	BatchTraderStats(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]trades.TraderStats, error)
}

// AdWithStats is a listing row: the ad plus its poster's aggregates.
type AdWithStats struct {
	*Ad
	Poster *trades.TraderStats `json:"poster_stats,omitempty"`
}

// Service manages the advertisement lifecycle.
type Service struct {
	store  Store
	ledger CollateralLedger
	rates  RateSource
	stats  StatsSource
	cfg    *config.Config
	now    func() time.Time
}

// NewService creates the ads service.
func NewService(store Store, ledger CollateralLedger, rateSource RateSource, stats StatsSource, cfg *config.Config) *Service {
	return &Service{
		store:  store,
		ledger: ledger,
		rates:  rateSource,
		stats:  stats,
		cfg:    cfg,
		now:    time.Now,
	}
}

// PostAd validates and creates an advertisement.
//
// Validation order: total floor, min/max bounds, price band against the
// live reference price, payment-method completeness (sell), collateral
// balance (sell). The ad row is created first; the collateral debit then
// runs as its own atomic ledger operation, and a failed debit deletes the
// ad rather than leaving it orphaned.
func (s *Service) PostAd(ctx context.Context, userID uuid.UUID, input PostAdInput) (*Ad, error) {
	if input.Side != SideBuy && input.Side != SideSell {
		return nil, common.Validationf("side must be %q or %q", SideBuy, SideSell)
	}

	minTotal := decimal.NewFromInt(s.cfg.AdMinTotalAmount)
	if input.TotalAmount.LessThan(minTotal) {
		return nil, common.Validationf("minimum AFX amount is %s", minTotal.StringFixed(0))
	}
	if input.MinAmount.LessThan(decimal.NewFromInt(1)) {
		return nil, common.Validationf("minimum amount must be at least 1 AFX")
	}
	if input.MinAmount.GreaterThan(input.MaxAmount) {
		return nil, common.Validationf("min amount cannot be greater than max amount")
	}
	if input.MaxAmount.GreaterThan(input.TotalAmount) {
		return nil, common.Validationf("max amount cannot exceed total AFX amount")
	}

	country := input.CountryCode
	if country == "" {
		country = "KE"
	}
	ref := s.rates.CountryPrice(ctx, country)
	bandMin, bandMax := s.priceBand(ref.Price)
	if input.PricePerCoin.LessThan(bandMin) || input.PricePerCoin.GreaterThan(bandMax) {
		return nil, common.Validationf("price must be between %s and %s %s",
			bandMin.StringFixed(2), bandMax.StringFixed(2), ref.CurrencyCode)
	}

	if input.Side == SideSell {
		if err := validatePaymentMethods(input.PaymentMethods); err != nil {
			return nil, err
		}

		collateral := decimal.NewFromInt(s.cfg.AdPostingCollateral)
		available, err := s.ledger.AvailableGeneral(ctx, userID)
		if err != nil {
			return nil, err
		}
		if available.LessThan(collateral) {
			return nil, common.Validationf("you need at least %s AFX to create a sell ad, you have %s",
				collateral.StringFixed(0), available.StringFixed(2))
		}
	}

	now := s.now()
	ad := &Ad{
		ID:              uuid.New(),
		UserID:          userID,
		Side:            input.Side,
		TotalAmount:     input.TotalAmount,
		RemainingAmount: input.TotalAmount,
		MinAmount:       input.MinAmount,
		MaxAmount:       input.MaxAmount,
		PricePerCoin:    input.PricePerCoin,
		CurrencyCode:    ref.CurrencyCode,
		PaymentMethods:  input.PaymentMethods,
		Terms:           input.Terms,
		Status:          StatusActive,
		CreatedAt:       now,
		ExpiresAt:       now.Add(s.cfg.AdLifetime),
	}
	if err := s.store.Create(ctx, ad); err != nil {
		return nil, err
	}

	if input.Side == SideSell {
		collateral := decimal.NewFromInt(s.cfg.AdPostingCollateral)
		if err := s.ledger.DeductCollateral(ctx, userID, collateral); err != nil {
			// The ad must not outlive a failed debit.
			if delErr := s.store.Delete(ctx, ad.ID); delErr != nil {
				log.WithError(delErr).WithField("ad_id", ad.ID).Error("Failed to roll back ad after collateral failure")
			}
			return nil, err
		}
	}

	log.WithFields(log.Fields{
		"ad_id":  ad.ID,
		"side":   ad.Side,
		"amount": ad.TotalAmount.String(),
	}).Info("Ad posted")
	return ad, nil
}

// ListActive returns active, unexpired ads for a side, newest first, each
// annotated with its poster's aggregates from ONE batched stats lookup.
func (s *Service) ListActive(ctx context.Context, side string, filters ListFilters) ([]*AdWithStats, error) {
	if side != SideBuy && side != SideSell {
		return nil, common.Validationf("side must be %q or %q", SideBuy, SideSell)
	}

	list, err := s.store.ListActive(ctx, side, filters, s.now())
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return []*AdWithStats{}, nil
	}

	seen := make(map[uuid.UUID]struct{}, len(list))
	var posterIDs []uuid.UUID
	for _, ad := range list {
		if _, ok := seen[ad.UserID]; !ok {
			seen[ad.UserID] = struct{}{}
			posterIDs = append(posterIDs, ad.UserID)
		}
	}

	stats, err := s.stats.BatchTraderStats(ctx, posterIDs)
	if err != nil {
		// Stats are annotation, not truth: the listing still serves.
		log.WithError(err).Warn("Failed to load poster stats for listing")
		stats = map[uuid.UUID]trades.TraderStats{}
	}

	out := make([]*AdWithStats, 0, len(list))
	for _, ad := range list {
		row := &AdWithStats{Ad: ad}
		if st, ok := stats[ad.UserID]; ok {
			stCopy := st
			row.Poster = &stCopy
		}
		out = append(out, row)
	}
	return out, nil
}

// GetAd returns one ad with its poster's aggregates, for the detail view
// a buyer opens before initiating a trade.
func (s *Service) GetAd(ctx context.Context, adID uuid.UUID) (*AdWithStats, error) {
	ad, err := s.store.GetByID(ctx, adID)
	if err != nil {
		return nil, err
	}

	row := &AdWithStats{Ad: ad}
	stats, err := s.stats.BatchTraderStats(ctx, []uuid.UUID{ad.UserID})
	if err != nil {
		log.WithError(err).Warn("Failed to load poster stats for ad detail")
		return row, nil
	}
	if st, ok := stats[ad.UserID]; ok {
		row.Poster = &st
	}
	return row, nil
}

// ListByOwner returns the caller's own ads regardless of status.
func (s *Service) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Ad, error) {
	return s.store.ListByOwner(ctx, ownerID)
}

// Cancel transitions the caller's active ad to cancelled.
func (s *Service) Cancel(ctx context.Context, adID, ownerID uuid.UUID) error {
	return s.store.Cancel(ctx, adID, ownerID)
}

// priceBand computes the allowed [min, max] around the reference price.
func (s *Service) priceBand(reference decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	band := decimal.NewFromInt(s.cfg.AdPriceBandPercent).Div(decimal.NewFromInt(100))
	delta := reference.Mul(band)
	return reference.Sub(delta), reference.Add(delta)
}

// validatePaymentMethods requires at least one known method with every
// required detail field populated.
func validatePaymentMethods(methods []PaymentMethod) error {
	if len(methods) == 0 {
		return common.Validationf("select at least one payment method")
	}
	for _, m := range methods {
		required, ok := paymentMethodFields[m.Code]
		if !ok {
			return common.Validationf("unknown payment method %q, supported: %s",
				m.Code, strings.Join(KnownPaymentMethods(), ", "))
		}
		for _, field := range required {
			if m.Details[field] == "" {
				return common.Validationf("payment method %q is missing the %q field", m.Code, field)
			}
		}
	}
	return nil
}
