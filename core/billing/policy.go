// Package billing prices tuition charges: due dates, overdue status, late fees
// and the single-class / multi-class payment shape.
package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/studio/core"
)

// DueDay is the calendar day of the month on which every class charge falls due.
const DueDay = 10

var (
	// LateFeeRate is applied once to a batch base amount when any charge is overdue.
	LateFeeRate = decimal.RequireFromString("0.15")

	NowFunc = time.Now // mockable
)

// DateOf returns the calendar date of t (in t's location) as midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DueDateFor returns the due date of the billing period containing ref: the DueDay of ref's month.
func DueDateFor(ref time.Time) time.Time {
	y, m, _ := ref.Date()
	return time.Date(y, m, DueDay, 0, 0, 0, 0, time.UTC)
}

// IsOverdue reports whether paymentDate falls strictly after due (calendar dates).
func IsOverdue(due, paymentDate time.Time) bool {
	return DateOf(paymentDate).After(DateOf(due))
}

// DaysOverdue returns the whole days elapsed between due and asOf, 0 when not overdue.
func DaysOverdue(due, asOf time.Time) int {
	if !IsOverdue(due, asOf) {
		return 0
	}
	return int(DateOf(asOf).Sub(DateOf(due)).Hours() / 24)
}

// MonthOf returns the `YYYY-MM` billing month of t.
func MonthOf(t time.Time) string {
	return t.Format(core.MonthLayout)
}

// ParseDate parses a `YYYY-MM-DD` calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(core.DateLayout, s)
}

// ParseMonth parses a `YYYY-MM` month into its first day.
func ParseMonth(s string) (time.Time, error) {
	return time.Parse(core.MonthLayout, s)
}

// Today returns the current calendar date.
func Today() time.Time {
	return DateOf(NowFunc())
}

// ToWire converts an amount to the wire representation: a number with one fractional digit.
func ToWire(d decimal.Decimal) float64 {
	return d.Round(1).InexactFloat64()
}

// FromWire converts a wire amount back to a decimal, rounded to one fractional digit.
func FromWire(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(1)
}
