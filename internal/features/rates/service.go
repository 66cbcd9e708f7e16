// Package rates — service.go holds the resolver itself: the source chain,
// the 1-hour basket cache and the 5-minute per-country price cache.
//
// Resolution never returns an error to the caller. The worst case is the
// static table tagged as fallback, so dependants (price banding, display
// widgets) can always proceed and merely warn the user.
package rates

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"afx-market/internal/common"
	"afx-market/internal/config"
)

var errInvalidPrice = common.Validationf("price must be greater than 0")

// ErrNoLiveRate — the basket resolved through the static fallback, so
// there is no genuinely fresh price to capture.
var ErrNoLiveRate = errors.New("no live rate available")

// Store is the persisted country-rate table the service reads through.
type Store interface {
	LatestCountryRate(ctx context.Context, countryCode string) (*CountryRate, error)
	RecordCountryRate(ctx context.Context, countryCode, currencyCode string, price decimal.Decimal, at time.Time) error
}

type countryCacheEntry struct {
	rate     CountryRate
	cachedAt time.Time
}

// Service resolves reference prices with caching and fallback.
type Service struct {
	store      Store
	sources    []source
	basketTTL  time.Duration
	countryTTL time.Duration
	anchorUSD  decimal.Decimal
	now        func() time.Time

	mu       sync.Mutex
	snapshot *Snapshot

	countryMu    sync.Mutex
	countryCache map[string]countryCacheEntry
}

// NewService builds the resolver with the primary → backup → static chain.
func NewService(store Store, cfg *config.Config) *Service {
	client := &http.Client{Timeout: cfg.RatesSourceTimeout}
	return &Service{
		store: store,
		sources: []source{
			newPrimarySource(cfg.RatesPrimaryURL, cfg.RatesPrimaryAppID, client),
			newBackupSource(cfg.RatesBackupURL, client),
			staticSource{},
		},
		basketTTL:    cfg.RatesCacheTTL,
		countryTTL:   cfg.CountryRateTTL,
		anchorUSD:    decimal.RequireFromString(cfg.RatesAFXAnchorUSD),
		now:          time.Now,
		countryCache: make(map[string]countryCacheEntry),
	}
}

// Resolve returns the USD-based currency basket.
//
// A call inside the cache window returns the cached snapshot without any
// network attempt, annotated Cached=true. Otherwise the source chain is
// tried in order; the terminal static source guarantees a result.
func (s *Service) Resolve(ctx context.Context) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.snapshot != nil && now.Sub(s.snapshot.FetchedAt) < s.basketTTL {
		cached := *s.snapshot
		cached.Cached = true
		return cached
	}

	for _, src := range s.sources {
		basket, err := src.Fetch(ctx)
		if err != nil {
			log.WithError(err).WithField("source", src.Name()).Warn("Rate source failed, trying next")
			continue
		}
		snap := Snapshot{
			Rates:     basket,
			Source:    src.Name(),
			FetchedAt: now,
		}
		s.snapshot = &snap
		log.WithField("source", src.Name()).Debug("Rate basket resolved")
		return snap
	}

	// Unreachable: the static source never fails. Kept so a future chain
	// change cannot silently produce an empty snapshot.
	snap := Snapshot{Rates: StaticRates(), Source: SourceFallback, FetchedAt: now}
	s.snapshot = &snap
	return snap
}

// CountryPrice returns the AFX unit price for a country's currency.
//
// Resolution order: per-country cache (5 minutes) → latest persisted row →
// static constant tagged as fallback. Never errors.
func (s *Service) CountryPrice(ctx context.Context, countryCode string) CountryRate {
	s.countryMu.Lock()
	defer s.countryMu.Unlock()

	now := s.now()
	if entry, ok := s.countryCache[countryCode]; ok && now.Sub(entry.cachedAt) < s.countryTTL {
		return entry.rate
	}

	rate, err := s.store.LatestCountryRate(ctx, countryCode)
	if err != nil {
		if err != ErrNoRecordedRate {
			log.WithError(err).WithField("country", countryCode).Warn("Country rate lookup failed, using fallback")
		}
		fb := CountryRate{
			CountryCode:  countryCode,
			CurrencyCode: currencyFor(countryCode),
			Price:        StaticCountryPrice(countryCode),
			Fallback:     true,
			RecordedAt:   now,
		}
		// Fallback values are not cached: the next call should retry the table.
		return fb
	}

	s.countryCache[countryCode] = countryCacheEntry{rate: *rate, cachedAt: now}
	return *rate
}

// CaptureCountryRate derives a fresh AFX price for a country from the live
// currency basket and the AFX/USD anchor, then records it. The persisted
// rate history only ever receives operator pins and these captures: a
// basket that fell through to the static constants records nothing and
// returns ErrNoLiveRate.
func (s *Service) CaptureCountryRate(ctx context.Context, countryCode string) (CountryRate, error) {
	snap := s.Resolve(ctx)
	if snap.Source == SourceFallback {
		return CountryRate{}, ErrNoLiveRate
	}

	currency := currencyFor(countryCode)
	fiat, ok := snap.Rates[currency]
	if !ok || !fiat.IsPositive() {
		return CountryRate{}, ErrNoLiveRate
	}

	price := fiat.Mul(s.anchorUSD)
	if err := s.RecordRate(ctx, countryCode, price); err != nil {
		return CountryRate{}, err
	}
	return CountryRate{
		CountryCode:  countryCode,
		CurrencyCode: currency,
		Price:        price,
		RecordedAt:   s.now(),
	}, nil
}

// RecordRate persists a new country AFX price and invalidates its cache
// entry immediately, so the next read sees the fresh value.
func (s *Service) RecordRate(ctx context.Context, countryCode string, price decimal.Decimal) error {
	if !price.IsPositive() {
		return errInvalidPrice
	}
	if err := s.store.RecordCountryRate(ctx, countryCode, currencyFor(countryCode), price, s.now()); err != nil {
		return err
	}

	s.countryMu.Lock()
	delete(s.countryCache, countryCode)
	s.countryMu.Unlock()

	log.WithFields(log.Fields{
		"country": countryCode,
		"price":   price.String(),
	}).Info("Country AFX rate recorded")
	return nil
}

func currencyFor(countryCode string) string {
	if cur, ok := countryCurrency[countryCode]; ok {
		return cur
	}
	return "KES"
}
