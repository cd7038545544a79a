package outstanding

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/studio/core/billing"
	"github.com/trezcool/studio/core/roster"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func charges(due time.Time, prices ...int64) []billing.PendingCharge {
	out := make([]billing.PendingCharge, 0, len(prices))
	for i, p := range prices {
		out = append(out, billing.PendingCharge{
			ClassID:   string(rune('a' + i)),
			ClassName: "Class",
			Price:     decimal.NewFromInt(p),
			DueDate:   due,
		})
	}
	return out
}

func TestSeverityOf(t *testing.T) {
	tests := []struct {
		days int
		want Severity
	}{
		{0, Recent},
		{9, Recent},
		{10, Urgent},
		{19, Urgent},
		{20, Critical},
		{45, Critical},
	}
	for _, tt := range tests {
		if got := SeverityOf(tt.days); got != tt.want {
			t.Errorf("SeverityOf(%d) = %v, want %v", tt.days, got, tt.want)
		}
	}
}

func TestParseSeverity(t *testing.T) {
	s, err := ParseSeverity(" Urgent ")
	assert.NoError(t, err)
	assert.Equal(t, Urgent, s)

	_, err = ParseSeverity("panic")
	assert.Error(t, err)
}

func TestAggregate(t *testing.T) {
	now := date(2024, time.March, 30)
	march := date(2024, time.March, 10)

	students := []StudentCharges{
		{Student: roster.Student{ID: "s2", Name: "Bea"}, Charges: charges(march, 800, 700)},
		{Student: roster.Student{ID: "s1", Name: "Ada"}, Charges: charges(date(2024, time.March, 20), 600)},
		{Student: roster.Student{ID: "s3", Name: "Cid"}},
		{Student: roster.Student{ID: "s4", Name: "Dan"}, Charges: charges(date(2024, time.April, 10), 500)},
	}

	w := Aggregate(students, now)

	if assert.Len(t, w.Entries, 3, "students without charges are left out") {
		assert.Equal(t, []string{"s2", "s1", "s4"}, []string{w.Entries[0].StudentID, w.Entries[1].StudentID, w.Entries[2].StudentID})

		bea := w.Entries[0]
		assert.Equal(t, 20, bea.DaysOverdue)
		assert.Equal(t, Critical, bea.Severity)
		assert.True(t, bea.TotalOwed.Equal(decimal.NewFromInt(1500)))
		assert.True(t, bea.LateFeeOwed.Equal(decimal.NewFromInt(225)))
		assert.True(t, bea.TotalDue().Equal(decimal.NewFromInt(1725)))

		ada := w.Entries[1]
		assert.Equal(t, 10, ada.DaysOverdue)
		assert.Equal(t, Urgent, ada.Severity)
		assert.True(t, ada.LateFeeOwed.Equal(decimal.NewFromInt(90)))

		dan := w.Entries[2]
		assert.Equal(t, 0, dan.DaysOverdue)
		assert.Equal(t, Recent, dan.Severity)
		assert.True(t, dan.LateFeeOwed.IsZero())
	}

	assert.Equal(t, 3, w.Totals.Students)
	assert.True(t, w.Totals.TotalOwed.Equal(decimal.NewFromInt(2600)))
	assert.True(t, w.Totals.LateFeeOwed.Equal(decimal.NewFromInt(315)))
	assert.Equal(t, date(2024, time.March, 30), w.AsOf)
}

func TestAggregate_earliestDueDate(t *testing.T) {
	cs := append(charges(date(2024, time.March, 10), 100), charges(date(2024, time.February, 10), 100)...)
	w := Aggregate([]StudentCharges{{Student: roster.Student{ID: "s1"}, Charges: cs}}, date(2024, time.March, 1))
	assert.Equal(t, 20, w.Entries[0].DaysOverdue)
	assert.Equal(t, Critical, w.Entries[0].Severity)
}

func TestWorklist_Filter(t *testing.T) {
	now := date(2024, time.March, 30)
	w := Aggregate([]StudentCharges{
		{Student: roster.Student{ID: "s1"}, Charges: charges(date(2024, time.March, 10), 800)},
		{Student: roster.Student{ID: "s2"}, Charges: charges(date(2024, time.March, 20), 600)},
		{Student: roster.Student{ID: "s3"}, Charges: charges(date(2024, time.March, 25), 400)},
	}, now)

	tests := []struct {
		floor     Severity
		wantCount int
		wantOwed  int64
	}{
		{Recent, 3, 1800},
		{Urgent, 2, 1400},
		{Critical, 1, 800},
	}
	for _, tt := range tests {
		t.Run(tt.floor.String(), func(t *testing.T) {
			got := w.Filter(tt.floor)
			assert.Len(t, got.Entries, tt.wantCount)
			assert.Equal(t, tt.wantCount, got.Totals.Students)
			assert.True(t, got.Totals.TotalOwed.Equal(decimal.NewFromInt(tt.wantOwed)))
		})
	}
}
