// Package trades validates trade initiation and owns the p2p_trades table.
// models.go defines the trade structures and the aggregate trader stats
// consumed by ad listings and the transfer gate.
package trades

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Trade statuses. A trade is created pending by the atomic initiation
// operation; later transitions belong to the external settlement process.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusDisputed  = "disputed"
)

// Trade is one initiated exchange against an ad.
// Invariant: Amount never exceeded the ad's remaining amount at the moment
// the initiation transaction committed; Buyer ≠ Seller.
type Trade struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	AdID          uuid.UUID       `db:"ad_id" json:"ad_id"`
	BuyerID       uuid.UUID       `db:"buyer_id" json:"buyer_id"`
	SellerID      uuid.UUID       `db:"seller_id" json:"seller_id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	TotalPrice    decimal.Decimal `db:"total_price" json:"total_price"`
	CurrencyCode  string          `db:"currency_code" json:"currency_code"`
	PaymentMethod string          `db:"payment_method" json:"payment_method"`
	Status        string          `db:"status" json:"status"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// AdSummary is the slice of an ad the validator needs for its pre-checks.
// The authoritative re-check happens inside the initiation transaction.
type AdSummary struct {
	ID              uuid.UUID
	OwnerID         uuid.UUID
	Side            string
	MinAmount       decimal.Decimal
	RemainingAmount decimal.Decimal
	PricePerCoin    decimal.Decimal
	CurrencyCode    string
	Status          string
	ExpiresAt       time.Time
}

// TraderStats are read-only aggregates over a user's trades and ratings.
type TraderStats struct {
	UserID          uuid.UUID `json:"user_id"`
	TotalTrades     int       `json:"total_trades"`
	CompletedTrades int       `json:"completed_trades"`
	CompletionRate  float64   `json:"completion_rate"`
	AverageRating   float64   `json:"average_rating"`
	RatingCount     int       `json:"rating_count"`
}
