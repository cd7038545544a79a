package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Shape selects the backend request used to record a payment.
type Shape int

const (
	SingleClass Shape = iota + 1
	MultiClass
)

func (s Shape) String() string {
	switch s {
	case SingleClass:
		return "single_class"
	case MultiClass:
		return "multi_class"
	default:
		return "unknown"
	}
}

// Line is a priced charge of a Quote.
type Line struct {
	ClassID   string
	ClassName string
	Amount    decimal.Decimal
	DueDate   time.Time
	Overdue   bool
}

// Quote is the priced, classified total of a batch of charges.
type Quote struct {
	Lines             []Line
	BaseAmount        decimal.Decimal
	LateFee           decimal.Decimal
	Total             decimal.Decimal
	HasOverdueCharges bool
	Shape             Shape
}

// ClassIDs returns the class IDs of the quoted lines.
func (q Quote) ClassIDs() []string {
	ids := make([]string, 0, len(q.Lines))
	for _, l := range q.Lines {
		ids = append(ids, l.ClassID)
	}
	return ids
}

// Calculate prices charges as of paymentDate.
// Amounts are not validated: a zero or negative override still yields a quote.
func Calculate(charges []PendingCharge, paymentDate time.Time) Quote {
	q := Quote{
		Lines:      make([]Line, 0, len(charges)),
		BaseAmount: decimal.Zero,
		LateFee:    decimal.Zero,
		Shape:      MultiClass,
	}
	for _, c := range charges {
		overdue := c.IsOverdue(paymentDate)
		q.Lines = append(q.Lines, Line{
			ClassID:   c.ClassID,
			ClassName: c.ClassName,
			Amount:    c.Amount(),
			DueDate:   c.DueDate,
			Overdue:   overdue,
		})
		q.BaseAmount = q.BaseAmount.Add(c.Amount())
		q.HasOverdueCharges = q.HasOverdueCharges || overdue
	}
	if q.HasOverdueCharges {
		q.LateFee = LateFee(q.BaseAmount)
	}
	q.Total = q.BaseAmount.Add(q.LateFee)
	if len(charges) == 1 {
		q.Shape = SingleClass
	}
	return q
}

// LateFee returns the surcharge on base, rounded to the whole currency unit.
func LateFee(base decimal.Decimal) decimal.Decimal {
	return base.Mul(LateFeeRate).Round(0)
}
