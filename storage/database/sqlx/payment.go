package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/studio/core"
	"github.com/trezcool/studio/core/payment"
	"github.com/trezcool/studio/core/roster"
)

const selectPayments = `
SELECT p.id, p.student_id, p.total_amount, p.month, p.payment_date, p.payment_method, p.notes, p.multi_class, p.created_at,
       ARRAY(SELECT pc.class_id FROM payment_classes pc WHERE pc.payment_id = p.id ORDER BY pc.position) AS class_ids
FROM payments p`

var orderingColumns = map[string]string{
	"payment_date": "p.payment_date",
	"created_at":   "p.created_at",
	"student_id":   "p.student_id",
	"total_amount": "p.total_amount",
}

type paymentRow struct {
	ID          string          `db:"id"`
	StudentID   string          `db:"student_id"`
	TotalAmount decimal.Decimal `db:"total_amount"`
	Month       string          `db:"month"`
	PaymentDate time.Time       `db:"payment_date"`
	Method      string          `db:"payment_method"`
	Notes       null.String     `db:"notes"`
	MultiClass  bool            `db:"multi_class"`
	CreatedAt   time.Time       `db:"created_at"`
	ClassIDs    pq.StringArray  `db:"class_ids"`
}

func (r paymentRow) record() payment.Record {
	return payment.Record{
		ID:          r.ID,
		StudentID:   r.StudentID,
		ClassIDs:    append([]string{}, r.ClassIDs...),
		TotalAmount: r.TotalAmount,
		Month:       r.Month,
		PaymentDate: r.PaymentDate.UTC(),
		Method:      payment.Method(r.Method),
		Notes:       r.Notes.String,
		MultiClass:  r.MultiClass,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

type paymentRepository struct {
	db *sqlx.DB
}

var _ payment.Repository = (*paymentRepository)(nil)

func NewPaymentRepository(db *sqlx.DB) payment.Repository {
	return &paymentRepository{db: db}
}

// CreatePayment inserts the payment & one payment_classes row per class;
// the (student_id, class_id, month) unique key rejects duplicates.
func (repo *paymentRepository) CreatePayment(ctx context.Context, rec payment.Record) (payment.Record, error) {
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO payments (id, student_id, total_amount, month, payment_date, payment_method, notes, multi_class, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			rec.ID, rec.StudentID, rec.TotalAmount, rec.Month, rec.PaymentDate.Format(core.DateLayout),
			string(rec.Method), null.NewString(rec.Notes, rec.Notes != ""), rec.MultiClass, rec.CreatedAt,
		)
		if err != nil {
			if pqCode(err) == foreignKeyViolation {
				return roster.ErrStudentNotFound
			}
			return errors.Wrap(err, "inserting payment")
		}

		for i, classID := range rec.ClassIDs {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO payment_classes (payment_id, student_id, class_id, month, position) VALUES ($1, $2, $3, $4, $5)`,
				rec.ID, rec.StudentID, classID, rec.Month, i,
			)
			if err != nil {
				if pqCode(err) == uniqueViolation {
					return payment.ErrDuplicate
				}
				return errors.Wrap(err, "inserting payment class")
			}
		}
		return nil
	})
	if err != nil {
		return payment.Record{}, err
	}
	return repo.GetPaymentByID(ctx, rec.ID)
}

func (repo *paymentRepository) GetPaymentByID(ctx context.Context, id string) (payment.Record, error) {
	var row paymentRow
	if err := repo.db.GetContext(ctx, &row, selectPayments+` WHERE p.id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return payment.Record{}, payment.ErrNotFound
		}
		return payment.Record{}, errors.Wrap(err, "selecting payment")
	}
	return row.record(), nil
}

func (repo *paymentRepository) FilterPayments(ctx context.Context, filter payment.Filter) ([]payment.Record, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if filter.StudentID != "" {
		conds = append(conds, "p.student_id = "+arg(filter.StudentID))
	}
	if filter.Month != "" {
		conds = append(conds, "p.month = "+arg(filter.Month))
	}
	if filter.ClassID != "" {
		conds = append(conds, "EXISTS (SELECT 1 FROM payment_classes pc WHERE pc.payment_id = p.id AND pc.class_id = "+arg(filter.ClassID)+")")
	}

	query := selectPayments
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY " + orderBy(filter.Ordering)

	var rows []paymentRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "selecting payments")
	}
	records := make([]payment.Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.record())
	}
	return records, nil
}

func (repo *paymentRepository) DeletePayment(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting payment")
	}
	return checkAffected(res, payment.ErrNotFound)
}

func orderBy(ordering []core.DBOrdering) string {
	terms := make([]string, 0, len(ordering)+2)
	for _, ord := range ordering {
		if col, ok := orderingColumns[ord.Field]; ok {
			terms = append(terms, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	return strings.Join(append(terms, "p.created_at ASC", "p.id ASC"), ", ")
}
