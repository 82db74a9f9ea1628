/**
 * @description
 * Money helpers for the subscription ledger.
 *
 * @notes
 * - Every amount in the system is an `int64` in paise (1/100 rupee), mirroring how
 *   the database stores it. Text amounts only exist at the edges (SMS bodies,
 *   admin input, bot messages) and are converted here.
 */

package domain

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned when a text amount cannot be represented in paise.
var ErrInvalidAmount = errors.New("invalid amount")

var hundred = decimal.NewFromInt(100)

// FormatPaise renders an amount in paise as rupees with exactly two decimals ("100.37").
func FormatPaise(paise int64) string {
	return decimal.New(paise, -2).StringFixed(2)
}

// ParseAmount converts a rupee string such as "1,250.50" into paise.
// Thousands separators are stripped. More than two fractional digits is rejected
// so that a reconciliation key is never silently rounded onto a different intent.
func ParseAmount(raw string) (int64, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if clean == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if d.Exponent() < -2 && !d.Equal(d.Round(2)) {
		return 0, ErrInvalidAmount
	}
	if d.IsNegative() {
		return 0, ErrInvalidAmount
	}
	return d.Shift(2).Round(0).IntPart(), nil
}

// RupeesToPaise converts a whole rupee amount to paise.
func RupeesToPaise(rupees int64) int64 {
	return rupees * 100
}

// SplitCommission returns the platform commission and the owner's net share for a
// gross price. commission = price × percent / 100, rounded half-up to the paisa,
// and net = price − commission so the two always add back up to the gross.
func SplitCommission(pricePaise int64, percent float64) (commission int64, net int64) {
	if pricePaise <= 0 || percent <= 0 {
		return 0, pricePaise
	}
	c := decimal.NewFromInt(pricePaise).
		Mul(decimal.NewFromFloat(percent)).
		Div(hundred).
		Round(0).
		IntPart()
	if c > pricePaise {
		c = pricePaise
	}
	return c, pricePaise - c
}
