// Package wallet — service.go wraps the ledger for display reads and the
// collateral operation consumed by the ads module.
package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"afx-market/internal/common"
)

// Store is the ledger surface the service needs.
type Store interface {
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	EnsureBalances(ctx context.Context, userID uuid.UUID) error
	AvailableBalance(ctx context.Context, userID uuid.UUID, balanceContext string) (decimal.Decimal, error)
	Balances(ctx context.Context, userID uuid.UUID) ([]*Balance, error)
	DeductCollateral(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error
	TransferBalance(ctx context.Context, senderID, recipientID uuid.UUID, amount decimal.Decimal, idempotencyKey string) error
	GetTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]*Transaction, error)
}

// Service exposes ledger reads and the collateral debit.
type Service struct {
	store Store
}

// NewService creates the wallet service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// AvailableGeneral returns the user's available general-context balance.
func (s *Service) AvailableGeneral(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	return s.store.AvailableBalance(ctx, userID, ContextGeneral)
}

// Overview returns all balance partitions for display polling.
func (s *Service) Overview(ctx context.Context, userID uuid.UUID) ([]*Balance, error) {
	if err := s.store.EnsureBalances(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.Balances(ctx, userID)
}

// DeductCollateral debits the fixed posting collateral.
// Amount validity is the caller's concern; positivity is re-checked here.
func (s *Service) DeductCollateral(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return common.ErrInvalidAmount
	}
	return s.store.DeductCollateral(ctx, userID, amount)
}

// TransferBalance moves AFX between users atomically. The sufficiency
// check runs inside the ledger transaction, not here.
func (s *Service) TransferBalance(ctx context.Context, senderID, recipientID uuid.UUID, amount decimal.Decimal, idempotencyKey string) error {
	if !amount.IsPositive() {
		return common.ErrInvalidAmount
	}
	return s.store.TransferBalance(ctx, senderID, recipientID, amount, idempotencyKey)
}

// ResolveUser resolves a handle to a user, case-insensitively.
func (s *Service) ResolveUser(ctx context.Context, username string) (*User, error) {
	return s.store.GetUserByUsername(ctx, username)
}

// History returns the user's recent journal entries.
func (s *Service) History(ctx context.Context, userID uuid.UUID, limit int) ([]*Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.store.GetTransactions(ctx, userID, limit)
}
