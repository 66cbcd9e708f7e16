// Package rates — repository.go reads and writes the persisted
// afx_exchange_rates table (one append-only row per recording).
package rates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrNoRecordedRate — no row exists yet for the country.
var ErrNoRecordedRate = errors.New("no recorded rate for country")

// Repository persists country AFX prices.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates the rates repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// LatestCountryRate returns the most recently recorded AFX price for a country.
func (r *Repository) LatestCountryRate(ctx context.Context, countryCode string) (*CountryRate, error) {
	query := `
		SELECT country_code, currency_code, afx_price, recorded_at
		FROM afx_exchange_rates
		WHERE country_code = $1
		ORDER BY recorded_at DESC
		LIMIT 1
	`
	var cr CountryRate
	err := r.db.QueryRow(ctx, query, countryCode).Scan(
		&cr.CountryCode, &cr.CurrencyCode, &cr.Price, &cr.RecordedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoRecordedRate
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read country rate: %w", err)
	}
	return &cr, nil
}

// RecordCountryRate appends a new AFX price row for a country.
func (r *Repository) RecordCountryRate(ctx context.Context, countryCode, currencyCode string, price decimal.Decimal, at time.Time) error {
	query := `
		INSERT INTO afx_exchange_rates (country_code, currency_code, afx_price, recorded_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Exec(ctx, query, countryCode, currencyCode, price, at)
	if err != nil {
		return fmt.Errorf("failed to record country rate: %w", err)
	}
	return nil
}
