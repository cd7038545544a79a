package boltdb

import (
	"context"
	"sort"

	"go.etcd.io/bbolt"

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
	err := repo.db.bolt.Update(func(tx *bbolt.Tx) error {
		records, err := all[payment.Record](tx, paymentsBucket)
		if err != nil {
			return err
		}
		for _, p := range records {
			if p.StudentID != rec.StudentID {
				continue
			}
			for _, id := range rec.ClassIDs {
				if p.Covers(id, rec.Month) {
					return payment.ErrDuplicate
				}
			}
		}
		return insert(tx, paymentsBucket, rec.ID, rec, payment.ErrDuplicate)
	})
	if err != nil {
		return payment.Record{}, err
	}
	return rec, nil
}

func (repo *paymentRepository) GetPaymentByID(_ context.Context, id string) (payment.Record, error) {
	var rec payment.Record
	err := repo.db.bolt.View(func(tx *bbolt.Tx) error {
		e, err := get[payment.Record](tx, paymentsBucket, id)
		if err == errMissingKey {
			return payment.ErrNotFound
		}
		rec = e.Value
		return err
	})
	return rec, err
}

func (repo *paymentRepository) FilterPayments(_ context.Context, filter payment.Filter) ([]payment.Record, error) {
	var records []payment.Record
	err := repo.db.bolt.View(func(tx *bbolt.Tx) error {
		stored, err := all[payment.Record](tx, paymentsBucket)
		if err != nil {
			return err
		}
		records = make([]payment.Record, 0, len(stored))
		for _, r := range stored {
			if filter.Match(r) {
				records = append(records, r)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// stored order is creation order: only explicit orderings need sorting
	for i := len(filter.Ordering) - 1; i >= 0; i-- {
		ord := filter.Ordering[i]
		sort.SliceStable(records, func(a, b int) bool {
			less, ok := lessBy(records[a], records[b], ord.Field)
			if !ok {
				return false
			}
			if ord.Ascending {
				return less
			}
			more, _ := lessBy(records[b], records[a], ord.Field)
			return more
		})
	}
	return records, nil
}

func (repo *paymentRepository) DeletePayment(_ context.Context, id string) error {
	return repo.db.bolt.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(paymentsBucket)
		if b.Get([]byte(id)) == nil {
			return payment.ErrNotFound
		}
		return b.Delete([]byte(id))
	})
}

func lessBy(a, b payment.Record, field string) (bool, bool) {
	switch field {
	case "payment_date":
		return a.PaymentDate.Before(b.PaymentDate), true
	case "created_at":
		return a.CreatedAt.Before(b.CreatedAt), true
	case "student_id":
		return a.StudentID < b.StudentID, true
	case "total_amount":
		return a.TotalAmount.LessThan(b.TotalAmount), true
	default:
		return false, false
	}
}
