package wallet

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"afx-market/internal/common"
)

type fakeWalletStore struct {
	ensured      []uuid.UUID
	historyLimit int
	debits       []decimal.Decimal
	transfers    []decimal.Decimal
}

func (f *fakeWalletStore) GetUserByUsername(context.Context, string) (*User, error) {
	return nil, common.ErrUserNotFound
}

func (f *fakeWalletStore) EnsureBalances(_ context.Context, userID uuid.UUID) error {
	f.ensured = append(f.ensured, userID)
	return nil
}

func (f *fakeWalletStore) AvailableBalance(context.Context, uuid.UUID, string) (decimal.Decimal, error) {
	return decimal.NewFromInt(50), nil
}

func (f *fakeWalletStore) Balances(context.Context, uuid.UUID) ([]*Balance, error) {
	return []*Balance{{Context: ContextGeneral}, {Context: ContextTrade}}, nil
}

func (f *fakeWalletStore) DeductCollateral(_ context.Context, _ uuid.UUID, amount decimal.Decimal) error {
	f.debits = append(f.debits, amount)
	return nil
}

func (f *fakeWalletStore) TransferBalance(_ context.Context, _, _ uuid.UUID, amount decimal.Decimal, _ string) error {
	f.transfers = append(f.transfers, amount)
	return nil
}

func (f *fakeWalletStore) GetTransactions(_ context.Context, _ uuid.UUID, limit int) ([]*Transaction, error) {
	f.historyLimit = limit
	return nil, nil
}

func TestOverviewEnsuresBothContexts(t *testing.T) {
	store := &fakeWalletStore{}
	svc := NewService(store)
	userID := uuid.New()

	balances, err := svc.Overview(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{userID}, store.ensured)
	assert.Len(t, balances, 2)
}

func TestHistoryClampsLimit(t *testing.T) {
	store := &fakeWalletStore{}
	svc := NewService(store)

	testCases := []struct {
		given int
		want  int
	}{
		{0, 20},
		{-3, 20},
		{101, 20},
		{50, 50},
	}
	for _, tc := range testCases {
		_, err := svc.History(context.Background(), uuid.New(), tc.given)
		require.NoError(t, err)
		assert.Equal(t, tc.want, store.historyLimit)
	}
}

func TestMutationsRejectNonPositiveAmounts(t *testing.T) {
	store := &fakeWalletStore{}
	svc := NewService(store)

	err := svc.DeductCollateral(context.Background(), uuid.New(), decimal.Zero)
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	err = svc.TransferBalance(context.Background(), uuid.New(), uuid.New(), decimal.RequireFromString("-1"), "")
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	assert.Empty(t, store.debits)
	assert.Empty(t, store.transfers)
}
