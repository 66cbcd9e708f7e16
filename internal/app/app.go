// Package app initializes all application components.
// app.go is the assembly point: it creates the DB pool, repositories,
// services and handlers, and wires everything into one App.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"afx-market/internal/config"
	"afx-market/internal/db/postgres"
	"afx-market/internal/features/admin"
	"afx-market/internal/features/ads"
	"afx-market/internal/features/mining"
	"afx-market/internal/features/rates"
	"afx-market/internal/features/trades"
	"afx-market/internal/features/transfer"
	"afx-market/internal/features/wallet"
	"afx-market/internal/jobs"
	"afx-market/internal/server"
)

// App holds all application components.
type App struct {
	Server    *server.Server
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool
}

// New creates and initializes the application.
// The initialization order matters — components depend on each other.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. Database ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// === 2. Repositories ===
	rateRepo := rates.NewRepository(pool)
	walletRepo := wallet.NewRepository(pool)
	adRepo := ads.NewRepository(pool)
	tradeRepo := trades.NewRepository(pool)
	miningRepo := mining.NewRepository(pool)
	adminRepo := admin.NewRepository(pool)

	// === 3. Services ===
	rateService := rates.NewService(rateRepo, cfg)
	walletService := wallet.NewService(walletRepo)
	tradeService := trades.NewService(tradeRepo, cfg)
	adService := ads.NewService(adRepo, walletService, rateService, tradeService, cfg)
	miningService := mining.NewService(miningRepo, cfg)
	transferService := transfer.NewService(walletService, tradeService, cfg)
	adminService := admin.NewService(adminRepo, cfg)

	// === 4. Handlers ===
	handlers := server.Handlers{
		Rates:    rates.NewHandler(rateService),
		Ads:      ads.NewHandler(adService),
		Trades:   trades.NewHandler(tradeService),
		Mining:   mining.NewHandler(miningService),
		Transfer: transfer.NewHandler(transferService),
		Wallet:   wallet.NewHandler(walletService),
		Admin:    admin.NewHandler(adminService, miningService, rateService),
	}

	// === 5. HTTP server ===
	srv := server.New(cfg, handlers)

	// === 6. Task scheduler ===
	scheduler := jobs.NewScheduler(rateService, adminRepo)

	return &App{
		Server:    srv,
		Scheduler: scheduler,
		DB:        pool,
	}, nil
}

// runMigrations applies all SQL migrations.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if err := postgres.EnsureMigrationsTable(ctx, pool); err != nil {
		return err
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001Users},
		{2, migration002Ledger},
		{3, migration003Marketplace},
		{4, migration004Mining},
		{5, migration005Rates},
		{6, migration006Admin},
	}

	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("migration %d: %w", m.version, err)
		}
		log.Infof("Migration %d applied", m.version)
	}

	return nil
}

// SQL migrations are embedded in the binary to keep deployment simple.

var migration001Users = `
CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY,
    username VARCHAR(255) UNIQUE NOT NULL,
    created_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_users_username_lower ON users(LOWER(username));
`

var migration002Ledger = `
CREATE TABLE IF NOT EXISTS coin_balances (
    id BIGSERIAL PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users(id),
    context VARCHAR(20) NOT NULL,
    available NUMERIC(20,8) NOT NULL DEFAULT 0,
    locked NUMERIC(20,8) NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ DEFAULT NOW(),
    updated_at TIMESTAMPTZ DEFAULT NOW(),
    UNIQUE (user_id, context)
);
CREATE TABLE IF NOT EXISTS transactions (
    id BIGSERIAL PRIMARY KEY,
    from_user_id UUID REFERENCES users(id),
    to_user_id UUID REFERENCES users(id),
    amount NUMERIC(20,8) NOT NULL,
    transaction_type VARCHAR(50) NOT NULL,
    description TEXT,
    created_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_transactions_from_user ON transactions(from_user_id);
CREATE INDEX IF NOT EXISTS idx_transactions_to_user ON transactions(to_user_id);
CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at DESC);
CREATE TABLE IF NOT EXISTS transfer_keys (
    idempotency_key VARCHAR(255) PRIMARY KEY,
    sender_id UUID NOT NULL REFERENCES users(id),
    created_at TIMESTAMPTZ DEFAULT NOW()
);
`

var migration003Marketplace = `
CREATE TABLE IF NOT EXISTS p2p_ads (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users(id),
    side VARCHAR(10) NOT NULL,
    total_amount NUMERIC(20,8) NOT NULL,
    remaining_amount NUMERIC(20,8) NOT NULL,
    min_amount NUMERIC(20,8) NOT NULL,
    max_amount NUMERIC(20,8) NOT NULL,
    price_per_coin NUMERIC(20,8) NOT NULL,
    currency_code VARCHAR(10) NOT NULL,
    payment_methods JSONB NOT NULL DEFAULT '[]',
    terms TEXT DEFAULT '',
    status VARCHAR(20) NOT NULL DEFAULT 'active',
    created_at TIMESTAMPTZ DEFAULT NOW(),
    expires_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_p2p_ads_listing ON p2p_ads(side, status, expires_at);
CREATE INDEX IF NOT EXISTS idx_p2p_ads_user ON p2p_ads(user_id);
CREATE TABLE IF NOT EXISTS p2p_trades (
    id UUID PRIMARY KEY,
    ad_id UUID NOT NULL REFERENCES p2p_ads(id),
    buyer_id UUID NOT NULL REFERENCES users(id),
    seller_id UUID NOT NULL REFERENCES users(id),
    amount NUMERIC(20,8) NOT NULL,
    total_price NUMERIC(20,8) NOT NULL,
    currency_code VARCHAR(10) NOT NULL,
    payment_method VARCHAR(50),
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    created_at TIMESTAMPTZ DEFAULT NOW(),
    updated_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_p2p_trades_buyer ON p2p_trades(buyer_id);
CREATE INDEX IF NOT EXISTS idx_p2p_trades_seller ON p2p_trades(seller_id);
CREATE TABLE IF NOT EXISTS p2p_ratings (
    id BIGSERIAL PRIMARY KEY,
    trade_id UUID NOT NULL REFERENCES p2p_trades(id),
    rater_id UUID NOT NULL REFERENCES users(id),
    rated_user_id UUID NOT NULL REFERENCES users(id),
    rating SMALLINT NOT NULL CHECK (rating BETWEEN 1 AND 5),
    created_at TIMESTAMPTZ DEFAULT NOW(),
    UNIQUE (trade_id, rater_id)
);
CREATE INDEX IF NOT EXISTS idx_p2p_ratings_rated ON p2p_ratings(rated_user_id);
`

var migration004Mining = `
CREATE TABLE IF NOT EXISTS mining_profiles (
    user_id UUID PRIMARY KEY REFERENCES users(id),
    last_mine_at TIMESTAMPTZ,
    next_eligible_at TIMESTAMPTZ,
    total_mined NUMERIC(20,8) NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS mining_config (
    id SMALLINT PRIMARY KEY DEFAULT 1,
    reward NUMERIC(20,8) NOT NULL,
    updated_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS global_supply (
    id SMALLINT PRIMARY KEY DEFAULT 1,
    remaining NUMERIC(24,8) NOT NULL,
    updated_at TIMESTAMPTZ DEFAULT NOW()
);
INSERT INTO mining_config (id, reward) VALUES (1, 0.25) ON CONFLICT (id) DO NOTHING;
INSERT INTO global_supply (id, remaining) VALUES (1, 21000000) ON CONFLICT (id) DO NOTHING;
`

var migration005Rates = `
CREATE TABLE IF NOT EXISTS afx_exchange_rates (
    id BIGSERIAL PRIMARY KEY,
    country_code VARCHAR(5) NOT NULL,
    currency_code VARCHAR(10) NOT NULL,
    afx_price NUMERIC(20,8) NOT NULL,
    recorded_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_afx_rates_country ON afx_exchange_rates(country_code, recorded_at DESC);
`

var migration006Admin = `
CREATE TABLE IF NOT EXISTS admin_login_attempts (
    id BIGSERIAL PRIMARY KEY,
    client_key VARCHAR(255) NOT NULL,
    attempt_time TIMESTAMPTZ DEFAULT NOW(),
    success BOOLEAN DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_admin_attempts_client ON admin_login_attempts(client_key, attempt_time DESC);
`
