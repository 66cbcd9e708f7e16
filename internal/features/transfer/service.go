// Package transfer gates peer-to-peer balance movement behind a trading
// track record and delegates the atomic move to the wallet ledger.
package transfer

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"afx-market/internal/common"
	"afx-market/internal/config"
	"afx-market/internal/features/wallet"
)

// Ledger is the slice of the wallet the transfer flow needs.
type Ledger interface {
	ResolveUser(ctx context.Context, username string) (*wallet.User, error)
	AvailableGeneral(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	TransferBalance(ctx context.Context, senderID, recipientID uuid.UUID, amount decimal.Decimal, idempotencyKey string) error
}

// TradeRecord supplies the sender's completed-trade count.
type TradeRecord interface {
	CompletedCount(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Eligibility is the caller-facing gate view.
type Eligibility struct {
	Eligible        bool  `json:"eligible"`
	CompletedTrades int64 `json:"completed_trades"`
	RequiredTrades  int64 `json:"required_trades"`
}

// Service gates and executes transfers.
type Service struct {
	ledger Ledger
	trades TradeRecord
	cfg    *config.Config
}

// NewService creates the transfer service.
func NewService(ledger Ledger, trades TradeRecord, cfg *config.Config) *Service {
	return &Service{ledger: ledger, trades: trades, cfg: cfg}
}

// CheckEligibility reports whether the user has completed enough trades
// to send. The count comes from the trades aggregate, never a cached
// counter.
func (s *Service) CheckEligibility(ctx context.Context, userID uuid.UUID) (*Eligibility, error) {
	completed, err := s.trades.CompletedCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Eligibility{
		Eligible:        completed >= s.cfg.TransferTradesThreshold,
		CompletedTrades: completed,
		RequiredTrades:  s.cfg.TransferTradesThreshold,
	}, nil
}

// Transfer validates and executes a send to a recipient handle.
//
// The recipient lookup is case-insensitive. All checks here are advisory;
// the authoritative sufficiency check re-runs inside the ledger
// transaction under a row lock.
func (s *Service) Transfer(ctx context.Context, senderID uuid.UUID, recipientUsername string, amount decimal.Decimal, idempotencyKey string) (*wallet.User, error) {
	recipient, err := s.ledger.ResolveUser(ctx, recipientUsername)
	if err != nil {
		return nil, err
	}
	if recipient.ID == senderID {
		return nil, common.ErrSelfTransfer
	}

	if !amount.IsPositive() {
		return nil, common.ErrInvalidAmount
	}
	minAmount := decimal.NewFromInt(s.cfg.TransferMinAmount)
	if amount.LessThan(minAmount) {
		return nil, common.Validationf("minimum transfer is %s AFX", minAmount.StringFixed(0))
	}

	available, err := s.ledger.AvailableGeneral(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if available.LessThan(amount) {
		return nil, common.ErrInsufficientBalance
	}

	eligibility, err := s.CheckEligibility(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if !eligibility.Eligible {
		return nil, common.Validationf("you need %d completed trades to send AFX, you have %d",
			eligibility.RequiredTrades, eligibility.CompletedTrades)
	}

	if err := s.ledger.TransferBalance(ctx, senderID, recipient.ID, amount, idempotencyKey); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"sender_id":    senderID,
		"recipient_id": recipient.ID,
		"amount":       amount.String(),
	}).Info("Transfer completed")
	return recipient, nil
}
