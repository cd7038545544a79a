// Package outstanding builds the collections worklist of unpaid tuition.
package outstanding

import (
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/studio/core/billing"
	"github.com/trezcool/studio/core/roster"
)

// Severity buckets students by how long their oldest charge is overdue.
type Severity int

const (
	Recent Severity = iota
	Urgent
	Critical
)

const (
	UrgentDays   = 10
	CriticalDays = 20
)

var severityNames = []string{"recent", "urgent", "critical"}

func (s Severity) String() string {
	if s < Recent || s > Critical {
		return "unknown"
	}
	return severityNames[s]
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseSeverity parses a severity name, case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range severityNames {
		if name == s {
			return Severity(i), nil
		}
	}
	return Recent, errors.Errorf("unknown severity %q", s)
}

// SeverityOf classifies days overdue.
func SeverityOf(daysOverdue int) Severity {
	switch {
	case daysOverdue >= CriticalDays:
		return Critical
	case daysOverdue >= UrgentDays:
		return Urgent
	default:
		return Recent
	}
}

// StudentCharges are the unresolved charges of one student.
type StudentCharges struct {
	Student roster.Student
	Charges []billing.PendingCharge
}

type (
	Entry struct {
		StudentID   string
		StudentName string
		Email       string
		Charges     []billing.PendingCharge
		TotalOwed   decimal.Decimal
		LateFeeOwed decimal.Decimal
		DaysOverdue int
		Severity    Severity
	}

	Totals struct {
		TotalOwed   decimal.Decimal
		LateFeeOwed decimal.Decimal
		Students    int
	}

	Worklist struct {
		Entries []Entry
		Totals  Totals
		AsOf    time.Time
	}
)

// TotalDue is the owed amount plus the late fee.
func (e Entry) TotalDue() decimal.Decimal {
	return e.TotalOwed.Add(e.LateFeeOwed)
}

// Aggregate builds the worklist as of now. Students without charges are left out.
// Entries are sorted by days overdue, most overdue first.
func Aggregate(students []StudentCharges, now time.Time) Worklist {
	entries := make([]Entry, 0, len(students))
	for _, sc := range students {
		if len(sc.Charges) == 0 {
			continue
		}
		quote := billing.Calculate(sc.Charges, now)
		earliest := sc.Charges[0].DueDate
		for _, c := range sc.Charges[1:] {
			if c.DueDate.Before(earliest) {
				earliest = c.DueDate
			}
		}
		days := billing.DaysOverdue(earliest, now)
		entries = append(entries, Entry{
			StudentID:   sc.Student.ID,
			StudentName: sc.Student.Name,
			Email:       sc.Student.Email,
			Charges:     sc.Charges,
			TotalOwed:   quote.BaseAmount,
			LateFeeOwed: quote.LateFee,
			DaysOverdue: days,
			Severity:    SeverityOf(days),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].DaysOverdue != entries[j].DaysOverdue {
			return entries[i].DaysOverdue > entries[j].DaysOverdue
		}
		return entries[i].StudentID < entries[j].StudentID
	})
	return Worklist{Entries: entries, Totals: totals(entries), AsOf: billing.DateOf(now)}
}

// Filter keeps the entries at or above floor. Totals are recomputed.
func (w Worklist) Filter(floor Severity) Worklist {
	entries := make([]Entry, 0, len(w.Entries))
	for _, e := range w.Entries {
		if e.Severity >= floor {
			entries = append(entries, e)
		}
	}
	return Worklist{Entries: entries, Totals: totals(entries), AsOf: w.AsOf}
}

func totals(entries []Entry) Totals {
	t := Totals{TotalOwed: decimal.Zero, LateFeeOwed: decimal.Zero, Students: len(entries)}
	for _, e := range entries {
		t.TotalOwed = t.TotalOwed.Add(e.TotalOwed)
		t.LateFeeOwed = t.LateFeeOwed.Add(e.LateFeeOwed)
	}
	return t
}
