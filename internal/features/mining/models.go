// Package mining owns the claim state machine: a per-user cooldown gate
// in front of a fixed-reward credit, with a global supply counter that is
// decremented best-effort after each successful claim.
package mining

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Profile is one user's mining record. Both timestamps are nil until the
// first claim.
type Profile struct {
	UserID         uuid.UUID       `db:"user_id" json:"user_id"`
	LastMineAt     *time.Time      `db:"last_mine_at" json:"last_mine_at,omitempty"`
	NextEligibleAt *time.Time      `db:"next_eligible_at" json:"next_eligible_at,omitempty"`
	TotalMined     decimal.Decimal `db:"total_mined" json:"total_mined"`
}

// Status is the caller-facing eligibility view.
type Status struct {
	Eligible         bool            `json:"eligible"`
	RemainingSeconds int64           `json:"remaining_seconds"`
	Countdown        string          `json:"countdown,omitempty"`
	NextEligibleAt   *time.Time      `json:"next_eligible_at,omitempty"`
	Reward           decimal.Decimal `json:"reward"`
	TotalMined       decimal.Decimal `json:"total_mined"`
}

// ClaimResult reports a granted claim.
type ClaimResult struct {
	Reward         decimal.Decimal `json:"reward"`
	TotalMined     decimal.Decimal `json:"total_mined"`
	NextEligibleAt time.Time       `json:"next_eligible_at"`
}

// Eligible reports whether a profile may claim at the given instant.
// A never-mined profile (nil NextEligibleAt) is always eligible.
func (p *Profile) Eligible(now time.Time) bool {
	if p == nil || p.NextEligibleAt == nil {
		return true
	}
	return !p.NextEligibleAt.After(now)
}
