// Package rates resolves AFX and fiat reference prices.
// models.go defines the snapshot types and the static fallback tables.
package rates

import (
	"time"

	"github.com/shopspring/decimal"
)

// Provenance tags where a snapshot's values came from. Tracked explicitly
// through the fallback chain instead of being inferred from magnitudes.
type Provenance string

const (
	SourcePrimary  Provenance = "primary"
	SourceBackup   Provenance = "backup"
	SourceFallback Provenance = "fallback"
)

// Snapshot is one resolution of the USD-based currency basket.
// A snapshot is fresh for the configured cache window and stale past it.
type Snapshot struct {
	Rates     map[string]decimal.Decimal `json:"rates"`
	Source    Provenance                 `json:"source"`
	Cached    bool                       `json:"cached"`
	FetchedAt time.Time                  `json:"timestamp"`
}

// CountryRate is the AFX unit price in one country's currency.
type CountryRate struct {
	CountryCode  string          `json:"country_code"`
	CurrencyCode string          `json:"currency_code"`
	Price        decimal.Decimal `json:"price"`
	Fallback     bool            `json:"fallback"`
	RecordedAt   time.Time       `json:"recorded_at"`
}

// SupportedCurrencies is the fixed basket resolved against a USD base.
var SupportedCurrencies = []string{
	"KES", "UGX", "TZS", "GHS", "NGN", "ZAR", "ZMW", "XOF", "BWP", "ZWL", "USD",
}

// staticRates is the last-resort table. Every supported currency has an
// entry here, so a total source outage never yields an undefined rate.
var staticRates = map[string]decimal.Decimal{
	"KES": decimal.RequireFromString("135.5"),
	"UGX": decimal.RequireFromString("3850"),
	"TZS": decimal.RequireFromString("2650"),
	"GHS": decimal.RequireFromString("16.5"),
	"NGN": decimal.RequireFromString("1580"),
	"ZAR": decimal.RequireFromString("18.2"),
	"ZMW": decimal.RequireFromString("30"),
	"XOF": decimal.RequireFromString("655"),
	"BWP": decimal.RequireFromString("13.8"),
	"ZWL": decimal.RequireFromString("6500"),
	"USD": decimal.RequireFromString("1"),
}

// staticCountryPrices is the last-resort AFX price per country.
var staticCountryPrices = map[string]decimal.Decimal{
	"KE": decimal.RequireFromString("13.50"),
	"UG": decimal.RequireFromString("53.20"),
	"TZ": decimal.RequireFromString("8050.00"),
	"GH": decimal.RequireFromString("114.50"),
	"NG": decimal.RequireFromString("2084.00"),
	"ZA": decimal.RequireFromString("51.80"),
	"ZM": decimal.RequireFromString("0.33"),
	"BJ": decimal.RequireFromString("74.30"),
}

// countryCurrency maps country codes to their currency codes.
var countryCurrency = map[string]string{
	"KE": "KES", "UG": "UGX", "TZ": "TZS", "GH": "GHS",
	"NG": "NGN", "ZA": "ZAR", "ZM": "ZMW", "BJ": "XOF",
}

// StaticRates returns a copy of the fallback basket.
func StaticRates() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(staticRates))
	for code, rate := range staticRates {
		out[code] = rate
	}
	return out
}

// StaticCountryPrice returns the fallback AFX price for a country.
// Unknown countries get the Kenyan price, the primary market.
func StaticCountryPrice(countryCode string) decimal.Decimal {
	if p, ok := staticCountryPrices[countryCode]; ok {
		return p
	}
	return staticCountryPrices["KE"]
}
