package trades

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

type fakeTradeStore struct {
	ad          *AdSummary
	adErr       error
	initiated   []decimal.Decimal
	initiateErr error
}

func (f *fakeTradeStore) AdSummary(context.Context, uuid.UUID) (*AdSummary, error) {
	return f.ad, f.adErr
}

func (f *fakeTradeStore) InitiateTrade(_ context.Context, adID, initiatorID uuid.UUID, amount decimal.Decimal, paymentMethod string, now time.Time) (*Trade, error) {
	if f.initiateErr != nil {
		return nil, f.initiateErr
	}
	f.initiated = append(f.initiated, amount)
	return &Trade{
		ID:      uuid.New(),
		AdID:    adID,
		Amount:  amount,
		Status:  StatusPending,
		BuyerID: initiatorID,
	}, nil
}

func (f *fakeTradeStore) ListForUser(context.Context, uuid.UUID, int) ([]*Trade, error) {
	return nil, nil
}

func (f *fakeTradeStore) CompletedCount(context.Context, uuid.UUID) (int64, error) {
	return 0, nil
}

func (f *fakeTradeStore) BatchTraderStats(context.Context, []uuid.UUID) (map[uuid.UUID]TraderStats, error) {
	return nil, nil
}

// reservingTradeStore mimics the atomic initiation: the authoritative
// remaining amount is re-checked and decremented inside InitiateTrade
// itself, while AdSummary keeps serving the snapshot the first reader saw.
// That is exactly the situation of two racing initiations whose pre-checks
// both passed.
type reservingTradeStore struct {
	fakeTradeStore
	remaining decimal.Decimal
}

func (f *reservingTradeStore) InitiateTrade(_ context.Context, adID, initiatorID uuid.UUID, amount decimal.Decimal, _ string, _ time.Time) (*Trade, error) {
	if f.remaining.IsZero() {
		return nil, common.ErrAdExhausted
	}
	if amount.GreaterThan(f.remaining) {
		return nil, common.Conflictf("only %s AFX remaining on this ad", f.remaining.StringFixed(2))
	}
	f.remaining = f.remaining.Sub(amount)
	f.initiated = append(f.initiated, amount)
	return &Trade{ID: uuid.New(), AdID: adID, Amount: amount, Status: StatusPending, BuyerID: initiatorID}, nil
}

func testAd(owner uuid.UUID) *AdSummary {
	return &AdSummary{
		ID:              uuid.New(),
		OwnerID:         owner,
		Side:            "sell",
		MinAmount:       decimal.NewFromInt(3),
		RemainingAmount: decimal.NewFromInt(10),
		PricePerCoin:    decimal.RequireFromString("230"),
		CurrencyCode:    "KES",
		Status:          "active",
		ExpiresAt:       time.Now().Add(24 * time.Hour),
	}
}

func tradeTestConfig() *config.Config {
	return &config.Config{TradeMinAmount: 2}
}

func TestInitiateRejectsSelfTrade(t *testing.T) {
	owner := uuid.New()
	store := &fakeTradeStore{ad: testAd(owner)}
	svc := NewService(store, tradeTestConfig())

	_, err := svc.Initiate(context.Background(), store.ad.ID, owner, decimal.NewFromInt(5), "mpesa")
	assert.ErrorIs(t, err, common.ErrSelfTrade)
	assert.Empty(t, store.initiated)
}

func TestInitiateDefaultsToAdMinimum(t *testing.T) {
	store := &fakeTradeStore{ad: testAd(uuid.New())}
	svc := NewService(store, tradeTestConfig())

	_, err := svc.Initiate(context.Background(), store.ad.ID, uuid.New(), decimal.Zero, "mpesa")
	require.NoError(t, err)
	require.Len(t, store.initiated, 1)
	assert.True(t, store.initiated[0].Equal(store.ad.MinAmount))
}

func TestInitiateEnforcesFloor(t *testing.T) {
	store := &fakeTradeStore{ad: testAd(uuid.New())}
	svc := NewService(store, tradeTestConfig())

	_, err := svc.Initiate(context.Background(), store.ad.ID, uuid.New(), decimal.NewFromInt(1), "mpesa")
	require.Error(t, err)
	assert.Equal(t, common.CategoryValidation, common.CategoryOf(err))
	assert.Empty(t, store.initiated)
}

func TestInitiateEnforcesRemainingBound(t *testing.T) {
	store := &fakeTradeStore{ad: testAd(uuid.New())}
	svc := NewService(store, tradeTestConfig())

	_, err := svc.Initiate(context.Background(), store.ad.ID, uuid.New(), decimal.NewFromInt(11), "mpesa")
	require.Error(t, err)
	assert.Equal(t, common.CategoryValidation, common.CategoryOf(err))
}

func TestInitiateSequentialReservations(t *testing.T) {
	// Ad with 10 AFX: a 3 AFX trade leaves 7, so a following 8 AFX trade
	// must fail at the authoritative re-check even though its pre-check
	// still saw the full 10.
	store := &reservingTradeStore{
		fakeTradeStore: fakeTradeStore{ad: testAd(uuid.New())},
		remaining:      decimal.NewFromInt(10),
	}
	svc := NewService(store, tradeTestConfig())

	first, err := svc.Initiate(context.Background(), store.ad.ID, uuid.New(), decimal.NewFromInt(3), "mpesa")
	require.NoError(t, err)
	assert.True(t, first.Amount.Equal(decimal.NewFromInt(3)))
	assert.True(t, store.remaining.Equal(decimal.NewFromInt(7)))

	_, err = svc.Initiate(context.Background(), store.ad.ID, uuid.New(), decimal.NewFromInt(8), "mpesa")
	require.Error(t, err)
	assert.Equal(t, common.CategoryConflict, common.CategoryOf(err))
	assert.True(t, store.remaining.Equal(decimal.NewFromInt(7)))
	assert.Len(t, store.initiated, 1)

	// The rest still sells down to zero, and zero reads as exhausted.
	_, err = svc.Initiate(context.Background(), store.ad.ID, uuid.New(), decimal.NewFromInt(7), "mpesa")
	require.NoError(t, err)
	_, err = svc.Initiate(context.Background(), store.ad.ID, uuid.New(), decimal.NewFromInt(2), "mpesa")
	assert.ErrorIs(t, err, common.ErrAdExhausted)
}

func TestInitiateSurfacesStoreConflict(t *testing.T) {
	// The atomic operation re-validates under lock; its conflicts pass
	// through untouched so the caller sees the real reason.
	store := &fakeTradeStore{ad: testAd(uuid.New()), initiateErr: common.ErrAdExhausted}
	svc := NewService(store, tradeTestConfig())

	_, err := svc.Initiate(context.Background(), store.ad.ID, uuid.New(), decimal.NewFromInt(5), "mpesa")
	assert.ErrorIs(t, err, common.ErrAdExhausted)
}

func TestInitiateAcceptsValidRequest(t *testing.T) {
	store := &fakeTradeStore{ad: testAd(uuid.New())}
	svc := NewService(store, tradeTestConfig())

	trade, err := svc.Initiate(context.Background(), store.ad.ID, uuid.New(), decimal.NewFromInt(8), "mpesa")
	require.NoError(t, err)
	assert.True(t, trade.Amount.Equal(decimal.NewFromInt(8)))
	assert.Equal(t, StatusPending, trade.Status)
}
