// Package mining — repository.go performs the atomic claim and the
// profile/config reads on mining_profiles, mining_config and
// global_supply.
package mining

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"afx-market/internal/common"
)

const txTypeMiningReward = "mining_reward"

// Repository persists mining state.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates the mining repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetProfile returns the user's mining record, or nil if they never mined.
func (r *Repository) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	query := `
		SELECT user_id, last_mine_at, next_eligible_at, total_mined
		FROM mining_profiles
		WHERE user_id = $1
	`
	var p Profile
	err := r.db.QueryRow(ctx, query, userID).Scan(&p.UserID, &p.LastMineAt, &p.NextEligibleAt, &p.TotalMined)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read mining profile: %w", err)
	}
	return &p, nil
}

// CurrentReward returns the configured per-claim reward, or the given
// default when no configuration row exists.
func (r *Repository) CurrentReward(ctx context.Context, defaultReward decimal.Decimal) (decimal.Decimal, error) {
	var reward decimal.Decimal
	err := r.db.QueryRow(ctx, `SELECT reward FROM mining_config WHERE id = 1`).Scan(&reward)
	if errors.Is(err, pgx.ErrNoRows) {
		return defaultReward, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read mining config: %w", err)
	}
	return reward, nil
}

// Claim grants one mining reward if the cooldown has elapsed.
//
// The profile row is created (or locked) first, so concurrent claims by the
// same user serialize; the cooldown is re-checked under the lock and a
// second claimer gets common.ErrMiningCooldown. Reward lookup, balance
// credit, journal entry and timestamp update commit together. The global
// supply decrement runs after commit and is best-effort: a failure there
// never claws back a granted reward.
func (r *Repository) Claim(ctx context.Context, userID uuid.UUID, cooldown time.Duration, defaultReward decimal.Decimal, now time.Time) (*ClaimResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin claim tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO mining_profiles (user_id, total_mined)
		VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure mining profile: %w", err)
	}

	var p Profile
	err = tx.QueryRow(ctx, `
		SELECT user_id, last_mine_at, next_eligible_at, total_mined
		FROM mining_profiles
		WHERE user_id = $1
		FOR UPDATE
	`, userID).Scan(&p.UserID, &p.LastMineAt, &p.NextEligibleAt, &p.TotalMined)
	if err != nil {
		return nil, fmt.Errorf("failed to lock mining profile: %w", err)
	}

	if !p.Eligible(now) {
		return nil, common.ErrMiningCooldown
	}

	var reward decimal.Decimal
	err = tx.QueryRow(ctx, `SELECT reward FROM mining_config WHERE id = 1`).Scan(&reward)
	if errors.Is(err, pgx.ErrNoRows) {
		reward = defaultReward
	} else if err != nil {
		return nil, fmt.Errorf("failed to read mining config: %w", err)
	}

	next := now.Add(cooldown)
	totalMined := p.TotalMined.Add(reward)
	_, err = tx.Exec(ctx, `
		UPDATE mining_profiles
		SET last_mine_at = $2, next_eligible_at = $3, total_mined = $4
		WHERE user_id = $1
	`, userID, now, next, totalMined)
	if err != nil {
		return nil, fmt.Errorf("failed to stamp mining profile: %w", err)
	}

	res, err := tx.Exec(ctx, `
		UPDATE coin_balances
		SET available = available + $3, updated_at = NOW()
		WHERE user_id = $1 AND context = $2
	`, userID, "general", reward)
	if err != nil {
		return nil, fmt.Errorf("failed to credit reward: %w", err)
	}
	if res.RowsAffected() == 0 {
		_, err = tx.Exec(ctx, `
			INSERT INTO coin_balances (user_id, context, available, locked)
			VALUES ($1, $2, $3, 0)
		`, userID, "general", reward)
		if err != nil {
			return nil, fmt.Errorf("failed to create balance row: %w", err)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO transactions (to_user_id, amount, transaction_type, description)
		VALUES ($1, $2, $3, $4)
	`, userID, reward, txTypeMiningReward,
		fmt.Sprintf("Mining reward of %s AFX", reward.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to journal reward: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}

	if _, err := r.db.Exec(ctx, `
		UPDATE global_supply
		SET remaining = remaining - $1, updated_at = NOW()
		WHERE id = 1 AND remaining >= $1
	`, reward); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Failed to decrement global supply")
	}

	return &ClaimResult{
		Reward:         reward,
		TotalMined:     totalMined,
		NextEligibleAt: next,
	}, nil
}

// SetReward updates the configured per-claim reward (admin operation).
func (r *Repository) SetReward(ctx context.Context, reward decimal.Decimal) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO mining_config (id, reward)
		VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET reward = EXCLUDED.reward, updated_at = NOW()
	`, reward)
	if err != nil {
		return fmt.Errorf("failed to set mining reward: %w", err)
	}
	return nil
}

// RemainingSupply returns the undistributed supply counter.
func (r *Repository) RemainingSupply(ctx context.Context) (decimal.Decimal, error) {
	var remaining decimal.Decimal
	err := r.db.QueryRow(ctx, `SELECT remaining FROM global_supply WHERE id = 1`).Scan(&remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read global supply: %w", err)
	}
	return remaining, nil
}
