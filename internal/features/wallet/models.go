// Package wallet owns the shared balance ledger: user records, per-context
// balance partitions and the transaction journal. Every AFX movement in the
// system goes through an atomic operation in this package or through a
// feature repository that mutates balances inside a single database
// transaction — never through client-side arithmetic written back.
package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Balance contexts. The sum of all partitions for a user equals the
// ledger's recorded total for that user.
const (
	ContextGeneral = "general" // dashboard holding
	ContextTrade   = "trade"   // marketplace escrow holding
)

// User is a marketplace participant. Identity issuance is external; this
// table mirrors the profile data the core needs (handle resolution, stats).
type User struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Balance is one partition of a user's holdings.
// Invariant: available and locked are never negative.
type Balance struct {
	ID        int64           `db:"id" json:"-"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Context   string          `db:"context" json:"context"`
	Available decimal.Decimal `db:"available" json:"available"`
	Locked    decimal.Decimal `db:"locked" json:"locked"`
	CreatedAt time.Time       `db:"created_at" json:"-"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// Transaction is one journal entry. Every balance mutation writes one.
type Transaction struct {
	ID              int64           `db:"id" json:"id"`
	FromUserID      *uuid.UUID      `db:"from_user_id" json:"from_user_id,omitempty"`
	ToUserID        *uuid.UUID      `db:"to_user_id" json:"to_user_id,omitempty"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	TransactionType string          `db:"transaction_type" json:"transaction_type"`
	Description     string          `db:"description" json:"description"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// Journal transaction types
const (
	TxTypeTransfer     = "transfer"      // direct user-to-user transfer
	TxTypeAdCollateral = "ad_collateral" // sell-ad posting collateral
	TxTypeMiningReward = "mining_reward" // cooldown-gated claim credit
)
