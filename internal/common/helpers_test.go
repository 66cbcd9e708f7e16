package common

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatCountdown(t *testing.T) {
	testCases := []struct {
		seconds int64
		want    string
	}{
		{0, "0h 0m 0s"},
		{59, "0h 0m 59s"},
		{60, "0h 1m 0s"},
		{7325, "2h 2m 5s"},
		{14400, "4h 0m 0s"},
		{-5, "0h 0m 0s"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, FormatCountdown(tc.seconds))
	}
}

func TestSecondsUntil(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name string
		t    time.Time
		want int64
	}{
		{"exact seconds", now.Add(90 * time.Second), 90},
		{"rounds partial second up", now.Add(90*time.Second + 300*time.Millisecond), 91},
		{"past is zero", now.Add(-10 * time.Second), 0},
		{"same instant is zero", now, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SecondsUntil(now, tc.t))
		})
	}
}

func TestFormatAFX(t *testing.T) {
	assert.Equal(t, "12.50 AFX", FormatAFX(decimal.RequireFromString("12.5")))
	assert.Equal(t, "0.25 AFX", FormatAFX(decimal.RequireFromString("0.25")))
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, CategoryValidation, CategoryOf(Validationf("bad input")))
	assert.Equal(t, CategoryConflict, CategoryOf(ErrMiningCooldown))
	assert.Equal(t, CategoryAuth, CategoryOf(ErrUnauthenticated))
	assert.Equal(t, CategoryUnexpected, CategoryOf(errors.New("plain")))
}
