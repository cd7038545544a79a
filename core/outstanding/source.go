package outstanding

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/studio/core"
	"github.com/trezcool/studio/core/billing"
	"github.com/trezcool/studio/core/payment"
	"github.com/trezcool/studio/core/roster"
)

// PaymentLister lists recorded payments; payment.Gateway & payment.Ledger satisfy it.
type PaymentLister interface {
	ListPayments(ctx context.Context, filter payment.Filter) ([]payment.Record, error)
}

// Source derives unresolved charges from enrollments & class prices, minus recorded payments.
type Source struct {
	directory roster.Directory
	payments  PaymentLister
}

func NewSource(directory roster.Directory, payments PaymentLister) *Source {
	return &Source{directory: directory, payments: payments}
}

// PendingCharges returns every unpaid charge of the student for the month of ref, in enrollment order.
func (src *Source) PendingCharges(ctx context.Context, studentID string, ref time.Time) ([]billing.PendingCharge, error) {
	student, err := src.directory.GetStudentByID(ctx, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "getting student")
	}
	classes := make(map[string]roster.Class, len(student.ClassIDs))
	for _, id := range student.ClassIDs {
		class, err := src.directory.GetClassByID(ctx, id)
		if err != nil {
			if errors.Cause(err) == roster.ErrClassNotFound {
				continue
			}
			return nil, errors.Wrap(err, "getting class")
		}
		classes[id] = class
	}

	month := billing.MonthOf(ref)
	records, err := src.payments.ListPayments(ctx, payment.Filter{StudentID: studentID, Month: month})
	if err != nil {
		return nil, errors.Wrap(err, "listing payments")
	}
	return unpaid(student, classes, records, ref), nil
}

// Collect returns the unresolved charges of every student for the month of ref.
func (src *Source) Collect(ctx context.Context, ref time.Time) ([]StudentCharges, error) {
	students, err := src.directory.QueryStudents(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	classes, err := src.directory.QueryClasses(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	records, err := src.payments.ListPayments(ctx, payment.Filter{Month: billing.MonthOf(ref)})
	if err != nil {
		return nil, errors.Wrap(err, "listing payments")
	}

	byStudent := make(map[string][]payment.Record)
	for _, r := range records {
		byStudent[r.StudentID] = append(byStudent[r.StudentID], r)
	}
	classMap := roster.ClassMap(classes)

	out := make([]StudentCharges, 0, len(students))
	for _, s := range students {
		charges := unpaid(s, classMap, byStudent[s.ID], ref)
		if len(charges) > 0 {
			out = append(out, StudentCharges{Student: s, Charges: charges})
		}
	}
	return out, nil
}

// unpaid keeps the charges of classes whose record lists the student & that no record pays.
func unpaid(student roster.Student, classes map[string]roster.Class, records []payment.Record, ref time.Time) []billing.PendingCharge {
	month := billing.MonthOf(ref)
	var paid []string
	for _, r := range records {
		if r.Month == month {
			paid = append(paid, r.ClassIDs...)
		}
	}

	charges := billing.ChargesFor(student, classes, ref)
	out := charges[:0]
	for _, c := range charges {
		if !classes[c.ClassID].HasStudent(student.ID) || core.ContainsID(paid, c.ClassID) {
			continue
		}
		out = append(out, c)
	}
	return out
}
