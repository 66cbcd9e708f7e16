// Package wallet — repository.go performs all operations on the users,
// coin_balances, transactions and transfer_keys tables.
// Money mutations run inside database transactions with row locks so
// concurrent flows cannot produce lost updates or partial application.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"afx-market/internal/common"
)

// Repository provides ledger and user lookups.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates the wallet repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetUserByUsername resolves a handle case-insensitively.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	query := `
		SELECT id, username, created_at
		FROM users
		WHERE LOWER(username) = LOWER($1)
	`
	var u User
	err := r.db.QueryRow(ctx, query, strings.TrimSpace(username)).Scan(&u.ID, &u.Username, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return &u, nil
}

// EnsureBalances creates zero balance rows for both contexts if missing.
// Called when a user first touches the marketplace.
func (r *Repository) EnsureBalances(ctx context.Context, userID uuid.UUID) error {
	query := `
		INSERT INTO coin_balances (user_id, context, available, locked)
		VALUES ($1, $2, 0, 0)
		ON CONFLICT (user_id, context) DO NOTHING
	`
	for _, balanceContext := range []string{ContextGeneral, ContextTrade} {
		if _, err := r.db.Exec(ctx, query, userID, balanceContext); err != nil {
			return fmt.Errorf("failed to create %s balance: %w", balanceContext, err)
		}
	}
	return nil
}

// AvailableBalance returns the available amount in one context.
// A missing row reads as zero.
func (r *Repository) AvailableBalance(ctx context.Context, userID uuid.UUID, balanceContext string) (decimal.Decimal, error) {
	query := `SELECT available FROM coin_balances WHERE user_id = $1 AND context = $2`
	var available decimal.Decimal
	err := r.db.QueryRow(ctx, query, userID, balanceContext).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read balance: %w", err)
	}
	return available, nil
}

// Balances returns all partitions for a user (display read).
func (r *Repository) Balances(ctx context.Context, userID uuid.UUID) ([]*Balance, error) {
	query := `
		SELECT id, user_id, context, available, locked, created_at, updated_at
		FROM coin_balances
		WHERE user_id = $1
		ORDER BY context
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read balances: %w", err)
	}
	defer rows.Close()

	var balances []*Balance
	for rows.Next() {
		var b Balance
		if err := rows.Scan(&b.ID, &b.UserID, &b.Context, &b.Available, &b.Locked, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		balances = append(balances, &b)
	}
	return balances, rows.Err()
}

// DeductCollateral atomically debits the poster's general available balance
// for a sell-ad posting. The row is locked, the sufficiency check and the
// decrement commit together, and a journal entry is written.
func (r *Repository) DeductCollateral(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin collateral tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var available decimal.Decimal
	err = tx.QueryRow(ctx, `
		SELECT available FROM coin_balances
		WHERE user_id = $1 AND context = $2
		FOR UPDATE
	`, userID, ContextGeneral).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return common.ErrInsufficientBalance
	}
	if err != nil {
		return fmt.Errorf("failed to lock balance: %w", err)
	}

	if available.LessThan(amount) {
		return common.ErrInsufficientBalance
	}

	_, err = tx.Exec(ctx, `
		UPDATE coin_balances
		SET available = available - $3, updated_at = NOW()
		WHERE user_id = $1 AND context = $2
	`, userID, ContextGeneral, amount)
	if err != nil {
		return fmt.Errorf("failed to debit collateral: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO transactions (from_user_id, amount, transaction_type, description)
		VALUES ($1, $2, $3, $4)
	`, userID, amount, TxTypeAdCollateral, "Sell-ad posting collateral")
	if err != nil {
		return fmt.Errorf("failed to journal collateral: %w", err)
	}

	return tx.Commit(ctx)
}

// TransferBalance atomically moves AFX from sender to recipient.
// Both rows are locked in deterministic order (smaller uuid first) to avoid
// deadlocks; debit, credit, idempotency-key record and journal entry commit
// together or not at all.
func (r *Repository) TransferBalance(ctx context.Context, senderID, recipientID uuid.UUID, amount decimal.Decimal, idempotencyKey string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transfer tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// A replayed key aborts before anything moves.
	if idempotencyKey != "" {
		_, err = tx.Exec(ctx, `
			INSERT INTO transfer_keys (idempotency_key, sender_id)
			VALUES ($1, $2)
		`, idempotencyKey, senderID)
		if isUniqueViolation(err) {
			return common.ErrDuplicateTransfer
		}
		if err != nil {
			return fmt.Errorf("failed to record idempotency key: %w", err)
		}
	}

	first, second := senderID, recipientID
	if second.String() < first.String() {
		first, second = second, first
	}
	for _, id := range []uuid.UUID{first, second} {
		if _, err := tx.Exec(ctx, `
			SELECT 1 FROM coin_balances
			WHERE user_id = $1 AND context = $2
			FOR UPDATE
		`, id, ContextGeneral); err != nil {
			return fmt.Errorf("failed to lock balance row: %w", err)
		}
	}

	var senderAvailable decimal.Decimal
	err = tx.QueryRow(ctx, `
		SELECT available FROM coin_balances WHERE user_id = $1 AND context = $2
	`, senderID, ContextGeneral).Scan(&senderAvailable)
	if errors.Is(err, pgx.ErrNoRows) {
		return common.ErrInsufficientBalance
	}
	if err != nil {
		return fmt.Errorf("failed to read sender balance: %w", err)
	}
	if senderAvailable.LessThan(amount) {
		return common.ErrInsufficientBalance
	}

	_, err = tx.Exec(ctx, `
		UPDATE coin_balances
		SET available = available - $3, updated_at = NOW()
		WHERE user_id = $1 AND context = $2
	`, senderID, ContextGeneral, amount)
	if err != nil {
		return fmt.Errorf("failed to debit sender: %w", err)
	}

	res, err := tx.Exec(ctx, `
		UPDATE coin_balances
		SET available = available + $3, updated_at = NOW()
		WHERE user_id = $1 AND context = $2
	`, recipientID, ContextGeneral, amount)
	if err != nil {
		return fmt.Errorf("failed to credit recipient: %w", err)
	}
	if res.RowsAffected() == 0 {
		// Recipient had no balance row yet.
		_, err = tx.Exec(ctx, `
			INSERT INTO coin_balances (user_id, context, available, locked)
			VALUES ($1, $2, $3, 0)
		`, recipientID, ContextGeneral, amount)
		if err != nil {
			return fmt.Errorf("failed to create recipient balance: %w", err)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO transactions (from_user_id, to_user_id, amount, transaction_type, description)
		VALUES ($1, $2, $3, $4, $5)
	`, senderID, recipientID, amount, TxTypeTransfer,
		fmt.Sprintf("Transfer of %s AFX", amount.StringFixed(2)))
	if err != nil {
		return fmt.Errorf("failed to journal transfer: %w", err)
	}

	return tx.Commit(ctx)
}

// GetTransactions returns the latest journal entries touching a user.
func (r *Repository) GetTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]*Transaction, error) {
	query := `
		SELECT id, from_user_id, to_user_id, amount, transaction_type, description, created_at
		FROM transactions
		WHERE from_user_id = $1 OR to_user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}
	defer rows.Close()

	var txs []*Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.FromUserID, &t.ToUserID, &t.Amount, &t.TransactionType, &t.Description, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, &t)
	}
	return txs, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
