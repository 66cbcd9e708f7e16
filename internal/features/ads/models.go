// Package ads owns the advertisement lifecycle: posting with collateral,
// live remaining-amount tracking, expiry and price-band validation.
// models.go defines the ad structures and payment-method variants.
package ads

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ad sides
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Lifecycle statuses. An ad becomes exhausted when remaining_amount hits
// zero (inside the trade-initiation transaction) and expired when the
// listing predicate sees expires_at in the past.
const (
	StatusActive    = "active"
	StatusExpired   = "expired"
	StatusCancelled = "cancelled"
	StatusExhausted = "exhausted"
)

// PaymentMethod is one accepted settlement method with its detail fields.
// Stored as JSONB on the ad row.
type PaymentMethod struct {
	Code    string            `json:"code"`
	Details map[string]string `json:"details"`
}

// paymentMethodFields lists the required detail fields per method code.
// A sell ad must carry at least one method with every field populated.
var paymentMethodFields = map[string][]string{
	"mpesa":         {"phone"},
	"mpesa_paybill": {"paybill", "account"},
	"bank_transfer": {"bank", "account", "name"},
	"airtel_money":  {"phone"},
}

// KnownPaymentMethods returns the supported method codes, sorted.
func KnownPaymentMethods() []string {
	codes := make([]string, 0, len(paymentMethodFields))
	for code := range paymentMethodFields {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Ad is a standing offer to buy or sell AFX at a fixed unit price.
// Invariants: 0 ≤ RemainingAmount ≤ TotalAmount;
// MinAmount ≤ MaxAmount ≤ TotalAmount.
type Ad struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	UserID          uuid.UUID       `db:"user_id" json:"user_id"`
	Side            string          `db:"side" json:"side"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
	RemainingAmount decimal.Decimal `db:"remaining_amount" json:"remaining_amount"`
	MinAmount       decimal.Decimal `db:"min_amount" json:"min_amount"`
	MaxAmount       decimal.Decimal `db:"max_amount" json:"max_amount"`
	PricePerCoin    decimal.Decimal `db:"price_per_coin" json:"price_per_coin"`
	CurrencyCode    string          `db:"currency_code" json:"currency_code"`
	PaymentMethods  []PaymentMethod `db:"payment_methods" json:"payment_methods"`
	Terms           string          `db:"terms" json:"terms"`
	Status          string          `db:"status" json:"status"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	ExpiresAt       time.Time       `db:"expires_at" json:"expires_at"`
}

// PostAdInput is the caller's ad specification.
type PostAdInput struct {
	Side           string          `json:"side"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	MinAmount      decimal.Decimal `json:"min_amount"`
	MaxAmount      decimal.Decimal `json:"max_amount"`
	PricePerCoin   decimal.Decimal `json:"price_per_coin"`
	CountryCode    string          `json:"country_code"`
	PaymentMethods []PaymentMethod `json:"payment_methods"`
	Terms          string          `json:"terms"`
}

// ListFilters narrows an active-ads listing.
type ListFilters struct {
	PaymentMethods []string
	PriceMin       *decimal.Decimal
	PriceMax       *decimal.Decimal
	MinTradeable   *decimal.Decimal
}
