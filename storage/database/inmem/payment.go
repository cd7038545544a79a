package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/studio/core"
	"github.com/trezcool/studio/core/payment"
)

type paymentRepository struct {
	db *DB
}

var _ payment.Repository = (*paymentRepository)(nil)

func NewPaymentRepository(db *DB) payment.Repository {
	return &paymentRepository{db: db}
}

func (repo *paymentRepository) CreatePayment(_ context.Context, rec payment.Record) (payment.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, p := range repo.db.payments {
		if p.StudentID != rec.StudentID {
			continue
		}
		for _, id := range rec.ClassIDs {
			if p.Covers(id, rec.Month) {
				return payment.Record{}, payment.ErrDuplicate
			}
		}
	}
	rec.ClassIDs = copyIDs(rec.ClassIDs)
	repo.db.payments[rec.ID] = &rec
	return rec, nil
}

func (repo *paymentRepository) GetPaymentByID(_ context.Context, id string) (payment.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if p, ok := repo.db.payments[id]; ok {
		rec := *p
		rec.ClassIDs = copyIDs(p.ClassIDs)
		return rec, nil
	}
	return payment.Record{}, payment.ErrNotFound
}

func (repo *paymentRepository) FilterPayments(_ context.Context, filter payment.Filter) ([]payment.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	records := make([]payment.Record, 0)
	for _, p := range repo.db.payments {
		if filter.Match(*p) {
			rec := *p
			rec.ClassIDs = copyIDs(p.ClassIDs)
			records = append(records, rec)
		}
	}
	sortRecords(records, filter.Ordering)
	return records, nil
}

func (repo *paymentRepository) DeletePayment(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.payments[id]; !ok {
		return payment.ErrNotFound
	}
	delete(repo.db.payments, id)
	return nil
}

// sortRecords orders by the given fields, then by creation time & ID.
func sortRecords(records []payment.Record, ordering []core.DBOrdering) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		for _, ord := range ordering {
			cmp := compare(a, b, ord.Field)
			if cmp == 0 {
				continue
			}
			if ord.Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func compare(a, b payment.Record, field string) int {
	switch field {
	case "payment_date":
		return compareTimes(a.PaymentDate.Unix(), b.PaymentDate.Unix())
	case "created_at":
		return compareTimes(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano())
	case "student_id":
		return compareStrings(a.StudentID, b.StudentID)
	case "total_amount":
		return a.TotalAmount.Cmp(b.TotalAmount)
	default:
		return 0
	}
}

func compareTimes(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
