package mining

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"afx-market/internal/common"
	"afx-market/internal/config"
)

// Store is the persistence surface for mining.
type Store interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)
	CurrentReward(ctx context.Context, defaultReward decimal.Decimal) (decimal.Decimal, error)
	Claim(ctx context.Context, userID uuid.UUID, cooldown time.Duration, defaultReward decimal.Decimal, now time.Time) (*ClaimResult, error)
	SetReward(ctx context.Context, reward decimal.Decimal) error
	RemainingSupply(ctx context.Context) (decimal.Decimal, error)
}

// Service exposes the mining state machine.
type Service struct {
	store         Store
	cooldown      time.Duration
	defaultReward decimal.Decimal
	now           func() time.Time
}

// NewService creates the mining service.
func NewService(store Store, cfg *config.Config) *Service {
	return &Service{
		store:         store,
		cooldown:      cfg.MiningCooldown,
		defaultReward: decimal.RequireFromString(cfg.MiningDefaultReward),
		now:           time.Now,
	}
}

// Status returns the caller's eligibility, countdown and lifetime total.
func (s *Service) Status(ctx context.Context, userID uuid.UUID) (*Status, error) {
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	reward, err := s.store.CurrentReward(ctx, s.defaultReward)
	if err != nil {
		return nil, err
	}

	status := &Status{Reward: reward}
	if profile != nil {
		status.TotalMined = profile.TotalMined
	}

	now := s.now()
	if profile.Eligible(now) {
		status.Eligible = true
		return status, nil
	}

	status.NextEligibleAt = profile.NextEligibleAt
	status.RemainingSeconds = common.SecondsUntil(now, *profile.NextEligibleAt)
	status.Countdown = common.FormatCountdown(status.RemainingSeconds)
	return status, nil
}

// Claim grants a reward if the cooldown has elapsed.
func (s *Service) Claim(ctx context.Context, userID uuid.UUID) (*ClaimResult, error) {
	result, err := s.store.Claim(ctx, userID, s.cooldown, s.defaultReward, s.now())
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"reward":  result.Reward.String(),
	}).Info("Mining reward claimed")
	return result, nil
}

// SetReward updates the configured per-claim reward.
func (s *Service) SetReward(ctx context.Context, reward decimal.Decimal) error {
	if !reward.IsPositive() {
		return common.Validationf("reward must be greater than 0")
	}
	return s.store.SetReward(ctx, reward)
}

// RemainingSupply returns the undistributed supply counter.
func (s *Service) RemainingSupply(ctx context.Context) (decimal.Decimal, error) {
	return s.store.RemainingSupply(ctx)
}
