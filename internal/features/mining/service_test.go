package mining

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"afx-market/internal/common"
	"afx-market/internal/config"
)

type fakeMiningStore struct {
	profile   *Profile
	reward    decimal.Decimal
	claimErr  error
	claimedAt []time.Time
}

func (f *fakeMiningStore) GetProfile(context.Context, uuid.UUID) (*Profile, error) {
	return f.profile, nil
}

func (f *fakeMiningStore) CurrentReward(_ context.Context, defaultReward decimal.Decimal) (decimal.Decimal, error) {
	if f.reward.IsZero() {
		return defaultReward, nil
	}
	return f.reward, nil
}

func (f *fakeMiningStore) Claim(_ context.Context, _ uuid.UUID, cooldown time.Duration, defaultReward decimal.Decimal, now time.Time) (*ClaimResult, error) {
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	f.claimedAt = append(f.claimedAt, now)
	return &ClaimResult{
		Reward:         defaultReward,
		TotalMined:     defaultReward,
		NextEligibleAt: now.Add(cooldown),
	}, nil
}

func (f *fakeMiningStore) SetReward(_ context.Context, reward decimal.Decimal) error {
	f.reward = reward
	return nil
}

func (f *fakeMiningStore) RemainingSupply(context.Context) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

// gatedMiningStore implements Claim as a real check-and-set on the next
// eligibility timestamp, the way the locked database operation does.
type gatedMiningStore struct {
	fakeMiningStore
	nextEligibleAt *time.Time
	credits        int
}

func (f *gatedMiningStore) Claim(_ context.Context, _ uuid.UUID, cooldown time.Duration, defaultReward decimal.Decimal, now time.Time) (*ClaimResult, error) {
	if f.nextEligibleAt != nil && f.nextEligibleAt.After(now) {
		return nil, common.ErrMiningCooldown
	}
	next := now.Add(cooldown)
	f.nextEligibleAt = &next
	f.credits++
	return &ClaimResult{
		Reward:         defaultReward,
		TotalMined:     defaultReward.Mul(decimal.NewFromInt(int64(f.credits))),
		NextEligibleAt: next,
	}, nil
}

func miningTestConfig() *config.Config {
	return &config.Config{
		MiningCooldown:      4 * time.Hour,
		MiningDefaultReward: "0.25",
	}
}

func newMiningService(store Store, now time.Time) *Service {
	svc := NewService(store, miningTestConfig())
	svc.now = func() time.Time { return now }
	return svc
}

func TestProfileEligible(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Second)
	future := now.Add(time.Second)

	testCases := []struct {
		name    string
		profile *Profile
		want    bool
	}{
		{"never mined", nil, true},
		{"no next timestamp", &Profile{}, true},
		{"cooldown elapsed", &Profile{NextEligibleAt: &past}, true},
		{"exactly at boundary", &Profile{NextEligibleAt: &now}, true},
		{"still cooling down", &Profile{NextEligibleAt: &future}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.profile.Eligible(now))
		})
	}
}

func TestStatusForNewMiner(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newMiningService(&fakeMiningStore{}, now)

	status, err := svc.Status(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.True(t, status.Eligible)
	assert.Zero(t, status.RemainingSeconds)
	assert.True(t, status.Reward.Equal(decimal.RequireFromString("0.25")))
}

func TestStatusCountdownIsExact(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	next := now.Add(2*time.Hour + 2*time.Minute + 5*time.Second)
	store := &fakeMiningStore{profile: &Profile{NextEligibleAt: &next, TotalMined: decimal.NewFromInt(5)}}
	svc := newMiningService(store, now)

	status, err := svc.Status(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.False(t, status.Eligible)
	assert.Equal(t, int64(7325), status.RemainingSeconds)
	assert.Equal(t, "2h 2m 5s", status.Countdown)
	assert.True(t, status.TotalMined.Equal(decimal.NewFromInt(5)))
}

func TestClaimStampsCooldown(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeMiningStore{}
	svc := newMiningService(store, now)

	result, err := svc.Claim(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.True(t, result.Reward.Equal(decimal.RequireFromString("0.25")))
	assert.Equal(t, now.Add(4*time.Hour), result.NextEligibleAt)
	require.Len(t, store.claimedAt, 1)
	assert.Equal(t, now, store.claimedAt[0])
}

func TestClaimCreditsOncePerWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &gatedMiningStore{}
	svc := newMiningService(store, now)
	userID := uuid.New()

	// Two claims inside one window: exactly one credit.
	first, err := svc.Claim(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, now.Add(4*time.Hour), first.NextEligibleAt)

	_, err = svc.Claim(context.Background(), userID)
	assert.ErrorIs(t, err, common.ErrMiningCooldown)
	assert.Equal(t, 1, store.credits)

	// A third at the window boundary succeeds again.
	svc.now = func() time.Time { return now.Add(4 * time.Hour) }
	second, err := svc.Claim(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 2, store.credits)
	assert.True(t, second.TotalMined.Equal(decimal.RequireFromString("0.5")))
}

func TestClaimSurfacesCooldownConflict(t *testing.T) {
	store := &fakeMiningStore{claimErr: common.ErrMiningCooldown}
	svc := newMiningService(store, time.Now())

	_, err := svc.Claim(context.Background(), uuid.New())
	assert.ErrorIs(t, err, common.ErrMiningCooldown)
}

func TestSetRewardRejectsNonPositive(t *testing.T) {
	svc := newMiningService(&fakeMiningStore{}, time.Now())

	assert.Error(t, svc.SetReward(context.Background(), decimal.Zero))
	assert.Error(t, svc.SetReward(context.Background(), decimal.RequireFromString("-1")))
	assert.NoError(t, svc.SetReward(context.Background(), decimal.RequireFromString("0.5")))
}
