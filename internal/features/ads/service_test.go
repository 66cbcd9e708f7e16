package ads

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
	"afx-market/internal/features/rates"
	"afx-market/internal/features/trades"
)

type fakeAdStore struct {
	created []*Ad
	deleted []uuid.UUID
	active  []*Ad
	byID    *Ad
}

func (f *fakeAdStore) Create(_ context.Context, ad *Ad) error {
	f.created = append(f.created, ad)
	return nil
}

func (f *fakeAdStore) Delete(_ context.Context, adID uuid.UUID) error {
	f.deleted = append(f.deleted, adID)
	return nil
}

func (f *fakeAdStore) GetByID(context.Context, uuid.UUID) (*Ad, error) {
	if f.byID == nil {
		return nil, common.ErrAdNotFound
	}
	return f.byID, nil
}

func (f *fakeAdStore) ListActive(context.Context, string, ListFilters, time.Time) ([]*Ad, error) {
	return f.active, nil
}

func (f *fakeAdStore) ListByOwner(context.Context, uuid.UUID) ([]*Ad, error) { return nil, nil }

func (f *fakeAdStore) Cancel(context.Context, uuid.UUID, uuid.UUID) error { return nil }

type fakeLedger struct {
	available decimal.Decimal
	debits    []decimal.Decimal
	debitErr  error
}

func (f *fakeLedger) AvailableGeneral(context.Context, uuid.UUID) (decimal.Decimal, error) {
	return f.available, nil
}

func (f *fakeLedger) DeductCollateral(_ context.Context, _ uuid.UUID, amount decimal.Decimal) error {
	if f.debitErr != nil {
		return f.debitErr
	}
	f.debits = append(f.debits, amount)
	return nil
}

type fakeRates struct {
	price decimal.Decimal
}

func (f *fakeRates) CountryPrice(_ context.Context, countryCode string) rates.CountryRate {
	return rates.CountryRate{
		CountryCode:  countryCode,
		CurrencyCode: "KES",
		Price:        f.price,
		RecordedAt:   time.Now(),
	}
}

type fakeStats struct {
	calls int
	stats map[uuid.UUID]trades.TraderStats
	err   error
}

func (f *fakeStats) BatchTraderStats(_ context.Context, userIDs []uuid.UUID) (map[uuid.UUID]trades.TraderStats, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.stats, nil
}

func adTestConfig() *config.Config {
	return &config.Config{
		AdMinTotalAmount:    5,
		AdPostingCollateral: 10,
		AdPriceBandPercent:  4,
		AdLifetime:          720 * time.Hour,
	}
}

func validInput() PostAdInput {
	return PostAdInput{
		Side:         SideSell,
		TotalAmount:  decimal.NewFromInt(20),
		MinAmount:    decimal.NewFromInt(2),
		MaxAmount:    decimal.NewFromInt(10),
		PricePerCoin: decimal.RequireFromString("230"),
		CountryCode:  "KE",
		PaymentMethods: []PaymentMethod{
			{Code: "mpesa", Details: map[string]string{"phone": "+254700000000"}},
		},
	}
}

func newTestService(store *fakeAdStore, ledger *fakeLedger, reference string, stats *fakeStats) *Service {
	return NewService(store, ledger, &fakeRates{price: decimal.RequireFromString(reference)}, stats, adTestConfig())
}

func TestPostAdValidation(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*PostAdInput)
	}{
		{"unknown side", func(in *PostAdInput) { in.Side = "short" }},
		{"total below floor", func(in *PostAdInput) { in.TotalAmount = decimal.NewFromInt(4) }},
		{"min below one", func(in *PostAdInput) { in.MinAmount = decimal.RequireFromString("0.5") }},
		{"min above max", func(in *PostAdInput) {
			in.MinAmount = decimal.NewFromInt(8)
			in.MaxAmount = decimal.NewFromInt(6)
		}},
		{"max above total", func(in *PostAdInput) { in.MaxAmount = decimal.NewFromInt(25) }},
		{"price below band", func(in *PostAdInput) { in.PricePerCoin = decimal.RequireFromString("220.7") }},
		{"price above band", func(in *PostAdInput) { in.PricePerCoin = decimal.RequireFromString("239.3") }},
		{"sell without payment methods", func(in *PostAdInput) { in.PaymentMethods = nil }},
		{"unknown payment method", func(in *PostAdInput) {
			in.PaymentMethods = []PaymentMethod{{Code: "cash_mail", Details: map[string]string{}}}
		}},
		{"payment method missing field", func(in *PostAdInput) {
			in.PaymentMethods = []PaymentMethod{{Code: "bank_transfer", Details: map[string]string{"bank": "KCB"}}}
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeAdStore{}
			ledger := &fakeLedger{available: decimal.NewFromInt(100)}
			svc := newTestService(store, ledger, "230", &fakeStats{})

			input := validInput()
			tc.mutate(&input)

			_, err := svc.PostAd(context.Background(), uuid.New(), input)
			require.Error(t, err)
			assert.Equal(t, common.CategoryValidation, common.CategoryOf(err))
			assert.Empty(t, store.created, "no ad row may exist after a validation failure")
			assert.Empty(t, ledger.debits)
		})
	}
}

func TestPostAdAcceptsBandEdges(t *testing.T) {
	// Reference 230, 4% band: [220.8, 239.2] inclusive.
	for _, price := range []string{"220.8", "239.2"} {
		store := &fakeAdStore{}
		ledger := &fakeLedger{available: decimal.NewFromInt(100)}
		svc := newTestService(store, ledger, "230", &fakeStats{})

		input := validInput()
		input.PricePerCoin = decimal.RequireFromString(price)

		_, err := svc.PostAd(context.Background(), uuid.New(), input)
		assert.NoErrorf(t, err, "price %s is on the band edge and must be accepted", price)
	}
}

func TestPostAdSellRequiresCollateralBalance(t *testing.T) {
	store := &fakeAdStore{}
	ledger := &fakeLedger{available: decimal.RequireFromString("9.99")}
	svc := newTestService(store, ledger, "230", &fakeStats{})

	_, err := svc.PostAd(context.Background(), uuid.New(), validInput())
	require.Error(t, err)
	assert.Equal(t, common.CategoryValidation, common.CategoryOf(err))
	assert.Empty(t, store.created)
}

func TestPostAdDebitsCollateralAfterCreate(t *testing.T) {
	store := &fakeAdStore{}
	ledger := &fakeLedger{available: decimal.NewFromInt(100)}
	svc := newTestService(store, ledger, "230", &fakeStats{})

	ad, err := svc.PostAd(context.Background(), uuid.New(), validInput())
	require.NoError(t, err)

	require.Len(t, store.created, 1)
	require.Len(t, ledger.debits, 1)
	assert.True(t, ledger.debits[0].Equal(decimal.NewFromInt(10)))
	assert.Equal(t, StatusActive, ad.Status)
	assert.True(t, ad.RemainingAmount.Equal(ad.TotalAmount))
	assert.Equal(t, "KES", ad.CurrencyCode)
}

func TestPostAdRollsBackOnDebitFailure(t *testing.T) {
	store := &fakeAdStore{}
	ledger := &fakeLedger{available: decimal.NewFromInt(100), debitErr: common.ErrInsufficientBalance}
	svc := newTestService(store, ledger, "230", &fakeStats{})

	_, err := svc.PostAd(context.Background(), uuid.New(), validInput())
	require.ErrorIs(t, err, common.ErrInsufficientBalance)

	require.Len(t, store.created, 1)
	require.Len(t, store.deleted, 1)
	assert.Equal(t, store.created[0].ID, store.deleted[0], "the created ad must be deleted when the debit fails")
}

func TestPostAdBuySkipsCollateral(t *testing.T) {
	store := &fakeAdStore{}
	ledger := &fakeLedger{available: decimal.Zero}
	svc := newTestService(store, ledger, "230", &fakeStats{})

	input := validInput()
	input.Side = SideBuy
	input.PaymentMethods = nil

	_, err := svc.PostAd(context.Background(), uuid.New(), input)
	require.NoError(t, err)
	assert.Empty(t, ledger.debits)
}

func TestListActiveBatchesStats(t *testing.T) {
	poster := uuid.New()
	store := &fakeAdStore{active: []*Ad{
		{ID: uuid.New(), UserID: poster},
		{ID: uuid.New(), UserID: poster},
		{ID: uuid.New(), UserID: uuid.New()},
	}}
	stats := &fakeStats{stats: map[uuid.UUID]trades.TraderStats{
		poster: {UserID: poster, TotalTrades: 10, CompletedTrades: 9, CompletionRate: 90},
	}}
	svc := newTestService(store, &fakeLedger{}, "230", stats)

	list, err := svc.ListActive(context.Background(), SideSell, ListFilters{})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.calls, "poster stats must come from one batched call")
	require.Len(t, list, 3)
	require.NotNil(t, list[0].Poster)
	assert.Equal(t, 90.0, list[0].Poster.CompletionRate)
	assert.Nil(t, list[2].Poster, "posters without stats stay unannotated")
}

func TestListActiveSurvivesStatsFailure(t *testing.T) {
	store := &fakeAdStore{active: []*Ad{{ID: uuid.New(), UserID: uuid.New()}}}
	stats := &fakeStats{err: context.DeadlineExceeded}
	svc := newTestService(store, &fakeLedger{}, "230", stats)

	list, err := svc.ListActive(context.Background(), SideSell, ListFilters{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].Poster)
}

func TestGetAdAnnotatesPoster(t *testing.T) {
	poster := uuid.New()
	ad := &Ad{ID: uuid.New(), UserID: poster, Status: StatusActive}
	stats := &fakeStats{stats: map[uuid.UUID]trades.TraderStats{
		poster: {UserID: poster, TotalTrades: 4, CompletedTrades: 4, CompletionRate: 100},
	}}
	svc := newTestService(&fakeAdStore{byID: ad}, &fakeLedger{}, "230", stats)

	got, err := svc.GetAd(context.Background(), ad.ID)
	require.NoError(t, err)

	assert.Equal(t, ad.ID, got.ID)
	require.NotNil(t, got.Poster)
	assert.Equal(t, 100.0, got.Poster.CompletionRate)
}

func TestGetAdUnknownID(t *testing.T) {
	svc := newTestService(&fakeAdStore{}, &fakeLedger{}, "230", &fakeStats{})

	_, err := svc.GetAd(context.Background(), uuid.New())
	assert.ErrorIs(t, err, common.ErrAdNotFound)
}

func TestListActiveRejectsUnknownSide(t *testing.T) {
	svc := newTestService(&fakeAdStore{}, &fakeLedger{}, "230", &fakeStats{})

	_, err := svc.ListActive(context.Background(), "margin", ListFilters{})
	require.Error(t, err)
	assert.Equal(t, common.CategoryValidation, common.CategoryOf(err))
}
