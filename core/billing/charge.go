package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/studio/core/roster"
)

// PendingCharge is an unpaid billing line for one student, class & period.
// It is derived on every calculation and never persisted.
type PendingCharge struct {
	StudentID string
	ClassID   string
	ClassName string
	Price     decimal.Decimal  // class monthly price
	Override  *decimal.Decimal // amount typed in by staff, if any
	DueDate   time.Time
}

// NewCharge returns the charge of class for the billing period containing ref.
func NewCharge(studentID string, class roster.Class, ref time.Time) PendingCharge {
	return PendingCharge{
		StudentID: studentID,
		ClassID:   class.ID,
		ClassName: class.Name,
		Price:     class.MonthlyPrice,
		DueDate:   DueDateFor(ref),
	}
}

// ChargesFor returns one charge per class the student is enrolled in, in enrollment order.
// Classes missing from `classes` are skipped.
func ChargesFor(student roster.Student, classes map[string]roster.Class, ref time.Time) []PendingCharge {
	charges := make([]PendingCharge, 0, len(student.ClassIDs))
	for _, id := range student.ClassIDs {
		if class, ok := classes[id]; ok {
			charges = append(charges, NewCharge(student.ID, class, ref))
		}
	}
	return charges
}

// Amount is the override when set, the class price otherwise.
func (c PendingCharge) Amount() decimal.Decimal {
	if c.Override != nil {
		return *c.Override
	}
	return c.Price
}

// SetAmount overrides the charged amount. It is not validated here.
func (c *PendingCharge) SetAmount(amount decimal.Decimal) {
	c.Override = &amount
}

// ResetAmount drops the override.
func (c *PendingCharge) ResetAmount() {
	c.Override = nil
}

func (c PendingCharge) IsOverdue(paymentDate time.Time) bool {
	return IsOverdue(c.DueDate, paymentDate)
}

// Overrides applies amounts keyed by class ID to matching charges.
func Overrides(charges []PendingCharge, amounts map[string]decimal.Decimal) []PendingCharge {
	out := make([]PendingCharge, len(charges))
	copy(out, charges)
	for i := range out {
		if amount, ok := amounts[out[i].ClassID]; ok {
			out[i].SetAmount(amount)
		}
	}
	return out
}
