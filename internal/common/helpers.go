// Package common contains shared utilities used across the project:
// countdown formatting, AFX amount formatting, time helpers.
package common

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// FormatCountdown renders a remaining-seconds value as "Xh Ym Zs".
// Used for the mining cooldown countdown.
//
// Examples:
//
//	FormatCountdown(0)     → "0h 0m 0s"
//	FormatCountdown(7325)  → "2h 2m 5s"
func FormatCountdown(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// FormatAFX renders an AFX amount with two decimal places and the unit suffix.
// Example: FormatAFX(decimal.NewFromFloat(12.5)) → "12.50 AFX"
func FormatAFX(amount decimal.Decimal) string {
	return amount.StringFixed(2) + " AFX"
}

// SecondsUntil returns the whole seconds from now until t, rounded up,
// never negative. Mirrors the countdown shown to users.
func SecondsUntil(now, t time.Time) int64 {
	d := t.Sub(now)
	if d <= 0 {
		return 0
	}
	secs := int64(d / time.Second)
	if d%time.Second > 0 {
		secs++
	}
	return secs
}