// Package ads — repository.go performs all operations on the p2p_ads table.
// The remaining-amount decrement is NOT here: it happens inside the trade
// initiation transaction (trades package), which is the sole arbiter of
// concurrent amount reservations.
package ads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"afx-market/internal/common"
)

// Repository works with the p2p_ads table.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates the ads repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const adColumns = `
	id, user_id, side, total_amount, remaining_amount, min_amount, max_amount,
	price_per_coin, currency_code, payment_methods, terms, status, created_at, expires_at
`

// Create inserts a new ad row. The row is the durable anchor for the
// collateral debit that follows; Delete rolls it back if the debit fails.
func (r *Repository) Create(ctx context.Context, ad *Ad) error {
	query := `
		INSERT INTO p2p_ads (
			id, user_id, side, total_amount, remaining_amount, min_amount, max_amount,
			price_per_coin, currency_code, payment_methods, terms, status, created_at, expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	methods, err := json.Marshal(ad.PaymentMethods)
	if err != nil {
		return fmt.Errorf("failed to encode payment methods: %w", err)
	}
	_, err = r.db.Exec(ctx, query,
		ad.ID, ad.UserID, ad.Side, ad.TotalAmount, ad.RemainingAmount,
		ad.MinAmount, ad.MaxAmount, ad.PricePerCoin, ad.CurrencyCode,
		methods, ad.Terms, ad.Status, ad.CreatedAt, ad.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create ad: %w", err)
	}
	return nil
}

// Delete removes an ad. Only used to roll back a failed collateral debit.
func (r *Repository) Delete(ctx context.Context, adID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM p2p_ads WHERE id = $1`, adID)
	if err != nil {
		return fmt.Errorf("failed to delete ad: %w", err)
	}
	return nil
}

// GetByID returns one ad regardless of status.
func (r *Repository) GetByID(ctx context.Context, adID uuid.UUID) (*Ad, error) {
	query := `SELECT ` + adColumns + ` FROM p2p_ads WHERE id = $1`
	ad, err := scanAd(r.db.QueryRow(ctx, query, adID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrAdNotFound
	}
	return ad, err
}

// ListActive returns active, unexpired ads for one side, newest first.
// Expiry is enforced here by the predicate, not by a background sweep.
func (r *Repository) ListActive(ctx context.Context, side string, filters ListFilters, now time.Time) ([]*Ad, error) {
	query := `SELECT ` + adColumns + `
		FROM p2p_ads
		WHERE side = $1 AND status = $2 AND expires_at > $3
	`
	args := []any{side, StatusActive, now}

	if len(filters.PaymentMethods) > 0 {
		args = append(args, filters.PaymentMethods)
		query += fmt.Sprintf(` AND EXISTS (
			SELECT 1 FROM jsonb_array_elements(payment_methods) pm
			WHERE pm->>'code' = ANY($%d)
		)`, len(args))
	}
	if filters.PriceMin != nil {
		args = append(args, *filters.PriceMin)
		query += fmt.Sprintf(` AND price_per_coin >= $%d`, len(args))
	}
	if filters.PriceMax != nil {
		args = append(args, *filters.PriceMax)
		query += fmt.Sprintf(` AND price_per_coin <= $%d`, len(args))
	}
	if filters.MinTradeable != nil {
		args = append(args, *filters.MinTradeable)
		query += fmt.Sprintf(` AND remaining_amount >= $%d`, len(args))
	}

	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ads: %w", err)
	}
	defer rows.Close()

	return collectAds(rows)
}

// ListByOwner returns all ads posted by one user, newest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Ad, error) {
	query := `SELECT ` + adColumns + `
		FROM p2p_ads
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list own ads: %w", err)
	}
	defer rows.Close()

	return collectAds(rows)
}

// Cancel transitions an ad to cancelled. Only the owner may cancel, and
// only while the ad is still active.
func (r *Repository) Cancel(ctx context.Context, adID, ownerID uuid.UUID) error {
	res, err := r.db.Exec(ctx, `
		UPDATE p2p_ads
		SET status = $3
		WHERE id = $1 AND user_id = $2 AND status = $4
	`, adID, ownerID, StatusCancelled, StatusActive)
	if err != nil {
		return fmt.Errorf("failed to cancel ad: %w", err)
	}
	if res.RowsAffected() == 0 {
		// Distinguish "not yours" from "not there".
		var exists bool
		if err := r.db.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM p2p_ads WHERE id = $1 AND status = $2)`,
			adID, StatusActive,
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check ad: %w", err)
		}
		if exists {
			return common.ErrNotAdOwner
		}
		return common.ErrAdNotFound
	}
	return nil
}

func scanAd(row pgx.Row) (*Ad, error) {
	var ad Ad
	var methods []byte
	err := row.Scan(
		&ad.ID, &ad.UserID, &ad.Side, &ad.TotalAmount, &ad.RemainingAmount,
		&ad.MinAmount, &ad.MaxAmount, &ad.PricePerCoin, &ad.CurrencyCode,
		&methods, &ad.Terms, &ad.Status, &ad.CreatedAt, &ad.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	if len(methods) > 0 {
		if err := json.Unmarshal(methods, &ad.PaymentMethods); err != nil {
			return nil, fmt.Errorf("failed to decode payment methods: %w", err)
		}
	}
	return &ad, nil
}

func collectAds(rows pgx.Rows) ([]*Ad, error) {
	var list []*Ad
	for rows.Next() {
		ad, err := scanAd(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ad: %w", err)
		}
		list = append(list, ad)
	}
	return list, rows.Err()
}
