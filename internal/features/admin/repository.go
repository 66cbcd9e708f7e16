// Package admin — repository.go works with the admin_login_attempts table.
package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository tracks operator login attempts.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates the admin repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// LogAttempt records a token verification attempt.
func (r *Repository) LogAttempt(ctx context.Context, clientKey string, success bool) error {
	query := `INSERT INTO admin_login_attempts (client_key, success) VALUES ($1, $2)`
	_, err := r.db.Exec(ctx, query, clientKey, success)
	if err != nil {
		return fmt.Errorf("failed to log attempt: %w", err)
	}
	return nil
}

// PruneAttempts deletes attempt rows older than the given age and returns
// the number removed.
func (r *Repository) PruneAttempts(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res, err := r.db.Exec(ctx, `DELETE FROM admin_login_attempts WHERE attempt_time < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune attempts: %w", err)
	}
	return res.RowsAffected(), nil
}

// GetRecentAttempts counts failed attempts from a client within the period.
func (r *Repository) GetRecentAttempts(ctx context.Context, clientKey string, period time.Duration) (int, error) {
	since := time.Now().Add(-period)
	query := `
		SELECT COUNT(*) FROM admin_login_attempts
		WHERE client_key = $1 AND success = FALSE AND attempt_time >= $2
	`
	var count int
	err := r.db.QueryRow(ctx, query, clientKey, since).Scan(&count)
	return count, err
}
