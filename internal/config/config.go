// Package config loads the service configuration from environment variables.
// envconfig maps environment variables onto the struct fields.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds ALL settings of the service.
type Config struct {
	// --- HTTP server ---
	HTTPAddr            string        `envconfig:"HTTP_ADDR" default:":8080"`
	HTTPShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`

	// --- Database ---
	// Inside Docker "localhost" is almost always wrong. The default is the
	// docker-compose service name; override DB_HOST=localhost for local runs.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"afxmarket"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"afx_market"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`

	// --- Rate resolver ---
	RatesPrimaryURL    string        `envconfig:"RATES_PRIMARY_URL" default:"https://openexchangerates.org/api/latest.json"`
	RatesPrimaryAppID  string        `envconfig:"RATES_PRIMARY_APP_ID" default:"demo"`
	RatesBackupURL     string        `envconfig:"RATES_BACKUP_URL" default:"https://api.exchangerate-api.com/v4/latest/USD"`
	RatesSourceTimeout time.Duration `envconfig:"RATES_SOURCE_TIMEOUT" default:"10s"`
	RatesCacheTTL      time.Duration `envconfig:"RATES_CACHE_TTL" default:"1h"`
	CountryRateTTL     time.Duration `envconfig:"COUNTRY_RATE_TTL" default:"5m"`
	// AFX price in USD. The hourly capture multiplies it by the live fiat
	// rate to derive each country's reference price.
	RatesAFXAnchorUSD string `envconfig:"RATES_AFX_ANCHOR_USD" default:"0.1"`

	// --- Marketplace ---
	AdMinTotalAmount    int64         `envconfig:"AD_MIN_TOTAL_AMOUNT" default:"5"`
	AdPostingCollateral int64         `envconfig:"AD_POSTING_COLLATERAL" default:"10"`
	AdPriceBandPercent  int64         `envconfig:"AD_PRICE_BAND_PERCENT" default:"4"`
	AdLifetime          time.Duration `envconfig:"AD_LIFETIME" default:"720h"` // 30 days
	TradeMinAmount      int64         `envconfig:"TRADE_MIN_AMOUNT" default:"2"`

	// --- Mining ---
	MiningCooldown      time.Duration `envconfig:"MINING_COOLDOWN" default:"4h"`
	MiningDefaultReward string        `envconfig:"MINING_DEFAULT_REWARD" default:"0.25"`

	// --- Transfer ---
	TransferMinAmount       int64 `envconfig:"TRANSFER_MIN_AMOUNT" default:"10"`
	TransferTradesThreshold int64 `envconfig:"TRANSFER_TRADES_THRESHOLD" default:"5"`

	// --- Rate limiting ---
	RateLimitRPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"5"`
	RateLimitBurst int     `envconfig:"RATE_LIMIT_BURST" default:"10"`

	// --- Operator (admin endpoints) ---
	AdminTokenHash string `envconfig:"ADMIN_TOKEN_HASH" required:"true"`
}

// DatabaseDSN returns the PostgreSQL connection string.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) Validate() error {
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("invalid DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.AdPriceBandPercent <= 0 || c.AdPriceBandPercent >= 100 {
		return fmt.Errorf("AD_PRICE_BAND_PERCENT must be between 1 and 99")
	}
	if c.MiningCooldown <= 0 {
		return fmt.Errorf("MINING_COOLDOWN must be > 0")
	}
	if c.TradeMinAmount <= 0 || c.TransferMinAmount <= 0 || c.AdMinTotalAmount <= 0 {
		return fmt.Errorf("amount floors must be > 0")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("invalid RATE_LIMIT_RPS/RATE_LIMIT_BURST")
	}
	return nil
}

// Load reads environment variables into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
