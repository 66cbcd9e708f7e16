// Package trades — repository.go holds the atomic trade-initiation
// operation and the aggregate queries over p2p_trades and p2p_ratings.
//
// InitiateTrade serializes on the advertisement row: the FOR UPDATE lock
// plus the in-transaction re-check make the database the sole arbiter of
// concurrent reservations against one ad.
package trades

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"afx-market/internal/common"
)

// Repository works with the p2p_trades and p2p_ratings tables.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates the trades repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// AdSummary reads the validator's view of an ad. Unlocked: this feeds the
// fast pre-checks only, the transaction below re-validates everything that
// concurrent trades can change.
func (r *Repository) AdSummary(ctx context.Context, adID uuid.UUID) (*AdSummary, error) {
	query := `
		SELECT id, user_id, side, min_amount, remaining_amount, price_per_coin,
		       currency_code, status, expires_at
		FROM p2p_ads
		WHERE id = $1
	`
	var s AdSummary
	err := r.db.QueryRow(ctx, query, adID).Scan(
		&s.ID, &s.OwnerID, &s.Side, &s.MinAmount, &s.RemainingAmount,
		&s.PricePerCoin, &s.CurrencyCode, &s.Status, &s.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrAdNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ad: %w", err)
	}
	return &s, nil
}

// InitiateTrade reserves amount against the ad and creates the pending
// trade, all in one transaction:
//
//  1. lock the ad row (FOR UPDATE)
//  2. re-check status, expiry and remaining amount under the lock
//  3. decrement remaining_amount, flip to exhausted at zero
//  4. insert the trade in pending status
//
// Two concurrent initiations whose amounts together exceed the remaining
// amount cannot both pass step 2.
func (r *Repository) InitiateTrade(ctx context.Context, adID, initiatorID uuid.UUID, amount decimal.Decimal, paymentMethod string, now time.Time) (*Trade, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin trade tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		ownerID      uuid.UUID
		side         string
		remaining    decimal.Decimal
		pricePerCoin decimal.Decimal
		currencyCode string
		status       string
		expiresAt    time.Time
	)
	err = tx.QueryRow(ctx, `
		SELECT user_id, side, remaining_amount, price_per_coin, currency_code, status, expires_at
		FROM p2p_ads
		WHERE id = $1
		FOR UPDATE
	`, adID).Scan(&ownerID, &side, &remaining, &pricePerCoin, &currencyCode, &status, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrAdNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock ad: %w", err)
	}

	if status != "active" || !expiresAt.After(now) {
		return nil, common.ErrAdNotFound
	}
	if remaining.IsZero() {
		return nil, common.ErrAdExhausted
	}
	if amount.GreaterThan(remaining) {
		return nil, common.Conflictf("only %s AFX remaining on this ad", remaining.StringFixed(2))
	}

	newRemaining := remaining.Sub(amount)
	newStatus := "active"
	if newRemaining.IsZero() {
		newStatus = "exhausted"
	}
	_, err = tx.Exec(ctx, `
		UPDATE p2p_ads
		SET remaining_amount = $2, status = $3
		WHERE id = $1
	`, adID, newRemaining, newStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve amount: %w", err)
	}

	// For a sell ad the poster is the seller; for a buy ad the initiator is.
	buyerID, sellerID := initiatorID, ownerID
	if side == "buy" {
		buyerID, sellerID = ownerID, initiatorID
	}

	trade := &Trade{
		ID:            uuid.New(),
		AdID:          adID,
		BuyerID:       buyerID,
		SellerID:      sellerID,
		Amount:        amount,
		TotalPrice:    amount.Mul(pricePerCoin),
		CurrencyCode:  currencyCode,
		PaymentMethod: paymentMethod,
		Status:        StatusPending,
		CreatedAt:     now,
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO p2p_trades (
			id, ad_id, buyer_id, seller_id, amount, total_price,
			currency_code, payment_method, status, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, trade.ID, trade.AdID, trade.BuyerID, trade.SellerID, trade.Amount,
		trade.TotalPrice, trade.CurrencyCode, trade.PaymentMethod, trade.Status, trade.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create trade: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit trade: %w", err)
	}
	return trade, nil
}

// ListForUser returns trades where the user is buyer or seller, newest first.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]*Trade, error) {
	query := `
		SELECT id, ad_id, buyer_id, seller_id, amount, total_price,
		       currency_code, payment_method, status, created_at
		FROM p2p_trades
		WHERE buyer_id = $1 OR seller_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	defer rows.Close()

	var list []*Trade
	for rows.Next() {
		var t Trade
		if err := rows.Scan(
			&t.ID, &t.AdID, &t.BuyerID, &t.SellerID, &t.Amount, &t.TotalPrice,
			&t.CurrencyCode, &t.PaymentMethod, &t.Status, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}

// CompletedCount is the authoritative aggregate the transfer gate uses.
// Row-by-row counting client-side is informational only and never gates.
func (r *Repository) CompletedCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM p2p_trades
		WHERE (buyer_id = $1 OR seller_id = $1) AND status = $2
	`, userID, StatusCompleted).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed trades: %w", err)
	}
	return count, nil
}

// BatchTraderStats aggregates trade and rating figures for a set of users
// in ONE query — listings must never fan out to a lookup per ad.
func (r *Repository) BatchTraderStats(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]TraderStats, error) {
	if len(userIDs) == 0 {
		return map[uuid.UUID]TraderStats{}, nil
	}

	query := `
		SELECT u.id,
		       COUNT(t.id) AS total_trades,
		       COUNT(t.id) FILTER (WHERE t.status = 'completed') AS completed_trades,
		       COALESCE(rt.avg_rating, 0) AS average_rating,
		       COALESCE(rt.rating_count, 0) AS rating_count
		FROM unnest($1::uuid[]) AS u(id)
		LEFT JOIN p2p_trades t ON t.buyer_id = u.id OR t.seller_id = u.id
		LEFT JOIN LATERAL (
			SELECT AVG(rating)::float8 AS avg_rating, COUNT(*) AS rating_count
			FROM p2p_ratings
			WHERE rated_user_id = u.id
		) rt ON TRUE
		GROUP BY u.id, rt.avg_rating, rt.rating_count
	`
	rows, err := r.db.Query(ctx, query, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to batch trader stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[uuid.UUID]TraderStats, len(userIDs))
	for rows.Next() {
		var s TraderStats
		if err := rows.Scan(&s.UserID, &s.TotalTrades, &s.CompletedTrades, &s.AverageRating, &s.RatingCount); err != nil {
			return nil, fmt.Errorf("failed to scan trader stats: %w", err)
		}
		if s.TotalTrades > 0 {
			s.CompletionRate = float64(s.CompletedTrades) / float64(s.TotalTrades) * 100
		}
		stats[s.UserID] = s
	}
	return stats, rows.Err()
}
