package billing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/studio/core/roster"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func charge(classID, price string, due time.Time) PendingCharge {
	return PendingCharge{StudentID: "s1", ClassID: classID, ClassName: "Class " + classID, Price: dec(price), DueDate: due}
}

func TestCalculate(t *testing.T) {
	march := date(2024, time.March, 10)
	april := date(2024, time.April, 10)

	overridden := charge("c3", "500", march)
	overridden.SetAmount(dec("450"))

	zero := charge("c4", "500", march)
	zero.SetAmount(decimal.Zero)

	tests := []struct {
		name        string
		charges     []PendingCharge
		paymentDate time.Time
		wantBase    string
		wantLateFee string
		wantTotal   string
		wantOverdue bool
		wantShape   Shape
	}{
		{
			name:        "two overdue classes",
			charges:     []PendingCharge{charge("c1", "800", march), charge("c2", "700", march)},
			paymentDate: date(2024, time.March, 15),
			wantBase:    "1500", wantLateFee: "225", wantTotal: "1725", wantOverdue: true, wantShape: MultiClass,
		},
		{
			name:        "single class before due date",
			charges:     []PendingCharge{charge("c1", "600", march)},
			paymentDate: date(2024, time.March, 5),
			wantBase:    "600", wantLateFee: "0", wantTotal: "600", wantShape: SingleClass,
		},
		{
			name:        "paid on the due date",
			charges:     []PendingCharge{charge("c1", "600", march)},
			paymentDate: march,
			wantBase:    "600", wantLateFee: "0", wantTotal: "600", wantShape: SingleClass,
		},
		{
			name:        "one overdue line applies the fee once on the whole batch",
			charges:     []PendingCharge{charge("c1", "800", march), charge("c2", "700", april)},
			paymentDate: date(2024, time.March, 11),
			wantBase:    "1500", wantLateFee: "225", wantTotal: "1725", wantOverdue: true, wantShape: MultiClass,
		},
		{
			name:        "fee rounds to the whole unit",
			charges:     []PendingCharge{charge("c1", "333", march)},
			paymentDate: date(2024, time.March, 11),
			wantBase:    "333", wantLateFee: "50", wantTotal: "383", wantOverdue: true, wantShape: SingleClass,
		},
		{
			name:        "fee rounds half up",
			charges:     []PendingCharge{charge("c1", "110", march)},
			paymentDate: date(2024, time.March, 11),
			wantBase:    "110", wantLateFee: "17", wantTotal: "127", wantOverdue: true, wantShape: SingleClass,
		},
		{
			name:        "override replaces the price",
			charges:     []PendingCharge{overridden, charge("c1", "600", march)},
			paymentDate: date(2024, time.March, 1),
			wantBase:    "1050", wantLateFee: "0", wantTotal: "1050", wantShape: MultiClass,
		},
		{
			name:        "zero override still quotes",
			charges:     []PendingCharge{zero},
			paymentDate: date(2024, time.March, 1),
			wantBase:    "0", wantLateFee: "0", wantTotal: "0", wantShape: SingleClass,
		},
		{
			name:        "no charges",
			paymentDate: date(2024, time.March, 20),
			wantBase:    "0", wantLateFee: "0", wantTotal: "0", wantShape: MultiClass,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Calculate(tt.charges, tt.paymentDate)
			assert.True(t, q.BaseAmount.Equal(dec(tt.wantBase)), "BaseAmount = %v, want %v", q.BaseAmount, tt.wantBase)
			assert.True(t, q.LateFee.Equal(dec(tt.wantLateFee)), "LateFee = %v, want %v", q.LateFee, tt.wantLateFee)
			assert.True(t, q.Total.Equal(dec(tt.wantTotal)), "Total = %v, want %v", q.Total, tt.wantTotal)
			assert.Equal(t, tt.wantOverdue, q.HasOverdueCharges)
			assert.Equal(t, tt.wantShape, q.Shape)
			assert.Len(t, q.Lines, len(tt.charges))
		})
	}
}

func TestCalculate_noOverdueMeansNoFee(t *testing.T) {
	due := date(2024, time.May, 10)
	for n := 1; n <= 6; n++ {
		charges := make([]PendingCharge, 0, n)
		for i := 0; i < n; i++ {
			charges = append(charges, charge(string(rune('a'+i)), decimal.NewFromInt(int64(100*(i+1))).String(), due))
		}
		for _, day := range []int{1, 5, 10} {
			q := Calculate(charges, date(2024, time.May, day))
			if !q.LateFee.IsZero() || !q.Total.Equal(q.BaseAmount) {
				t.Errorf("n=%d day=%d: LateFee = %v, Total = %v, BaseAmount = %v", n, day, q.LateFee, q.Total, q.BaseAmount)
			}
			wantShape := MultiClass
			if n == 1 {
				wantShape = SingleClass
			}
			if q.Shape != wantShape {
				t.Errorf("n=%d: Shape = %v, want %v", n, q.Shape, wantShape)
			}
		}
	}
}

func TestChargesFor(t *testing.T) {
	ref := date(2024, time.June, 3)
	classes := map[string]roster.Class{
		"c1": {ID: "c1", Name: "Ballet", MonthlyPrice: dec("800")},
		"c2": {ID: "c2", Name: "Jazz", MonthlyPrice: dec("700")},
	}
	student := roster.Student{ID: "s1", ClassIDs: []string{"c2", "gone", "c1"}}

	charges := ChargesFor(student, classes, ref)
	if assert.Len(t, charges, 2) {
		assert.Equal(t, "c2", charges[0].ClassID)
		assert.Equal(t, "Jazz", charges[0].ClassName)
		assert.True(t, charges[0].Amount().Equal(dec("700")))
		assert.Equal(t, date(2024, time.June, 10), charges[0].DueDate)
		assert.Equal(t, "c1", charges[1].ClassID)
	}

	overridden := Overrides(charges, map[string]decimal.Decimal{"c1": dec("650")})
	assert.True(t, overridden[1].Amount().Equal(dec("650")))
	assert.True(t, charges[1].Amount().Equal(dec("800")), "Overrides must not mutate its input")

	overridden[1].ResetAmount()
	assert.True(t, overridden[1].Amount().Equal(dec("800")))
}

func TestWireAmounts(t *testing.T) {
	assert.Equal(t, 1725.0, ToWire(dec("1725")))
	assert.Equal(t, 12.3, ToWire(dec("12.34")))
	assert.True(t, FromWire(99.95).Equal(dec("100")))
}
