package payment

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/studio/core"
	"github.com/trezcool/studio/core/billing"
	"github.com/trezcool/studio/core/roster"
)

var (
	// errors
	ErrNotFound  = errors.New("payment not found")
	ErrDuplicate = errors.New("payment already recorded for this class and month")

	// DefaultMaxAmount bounds a single payment.
	DefaultMaxAmount = decimal.NewFromInt(1000000)

	NowFunc = time.Now // mockable
)

// Repository persists payment records.
type Repository interface {
	// CreatePayment fails with ErrDuplicate when a (student, class, month) of the record is already paid.
	CreatePayment(ctx context.Context, rec Record) (Record, error)
	GetPaymentByID(ctx context.Context, id string) (Record, error)
	FilterPayments(ctx context.Context, filter Filter) ([]Record, error)
	DeletePayment(ctx context.Context, id string) error
}

// Ledger is the server side Gateway: it enforces the payment business rules over a Repository.
type Ledger struct {
	repo      Repository
	directory roster.Directory
	logger    core.Logger
	MaxAmount decimal.Decimal

	mu sync.Mutex // serializes the duplicate check & the insert
}

var _ Gateway = (*Ledger)(nil)

func NewLedger(repo Repository, directory roster.Directory, logger core.Logger) *Ledger {
	return &Ledger{
		repo:      repo,
		directory: directory,
		logger:    logger,
		MaxAmount: DefaultMaxAmount,
	}
}

func (l *Ledger) CreatePayment(ctx context.Context, req SingleClassRequest) (Record, error) {
	req.Clean()
	date, err := checkDates(req.PaymentMonth, req.PaymentDate)
	if err != nil {
		return Record{}, err
	}
	if !req.PaymentMethod.IsValid() {
		return Record{}, NewError(KindValidation, "unknown payment method")
	}

	student, err := l.student(ctx, req.StudentID)
	if err != nil {
		return Record{}, err
	}
	class, err := l.directory.GetClassByID(ctx, req.ClassID)
	if err != nil {
		if errors.Cause(err) == roster.ErrClassNotFound {
			return Record{}, NewError(KindClassNotFound, "class "+req.ClassID+" not found")
		}
		return Record{}, errors.Wrap(err, "getting class")
	}
	if !class.HasStudent(student.ID) {
		return Record{}, NewError(KindStudentNotEnrolled, "student is not enrolled in "+class.Name)
	}

	amount := billing.FromWire(req.Amount)
	if err = l.checkAmount(amount); err != nil {
		return Record{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	paid, err := l.paidClasses(ctx, student.ID, req.PaymentMonth)
	if err != nil {
		return Record{}, err
	}
	if core.ContainsID(paid, class.ID) {
		return Record{}, NewError(KindDuplicatePayment, class.Name+" is already paid for "+req.PaymentMonth)
	}

	return l.create(ctx, Record{
		StudentID:   student.ID,
		ClassIDs:    []string{class.ID},
		TotalAmount: amount,
		Month:       req.PaymentMonth,
		PaymentDate: date,
		Method:      req.PaymentMethod,
		Notes:       req.Notes,
	})
}

// CreateMultiClassPayment records a payment of the requested classes, or of every class
// the student is enrolled in & that has not been paid yet for the month when none is requested.
func (l *Ledger) CreateMultiClassPayment(ctx context.Context, req MultiClassRequest) (Record, error) {
	req.Clean()
	date, err := checkDates(req.PaymentMonth, req.PaymentDate)
	if err != nil {
		return Record{}, err
	}
	if !req.PaymentMethod.IsValid() {
		return Record{}, NewError(KindValidation, "unknown payment method")
	}

	student, err := l.student(ctx, req.StudentID)
	if err != nil {
		return Record{}, err
	}
	enrolled, err := l.enrolledClasses(ctx, student)
	if err != nil {
		return Record{}, err
	}
	if len(enrolled) == 0 {
		return Record{}, NewError(KindStudentNotEnrolled, "student is not enrolled in any class")
	}
	for _, id := range req.ClassIDs {
		if !core.ContainsID(enrolled, id) {
			return Record{}, NewError(KindStudentNotEnrolled, "student is not enrolled in class "+id)
		}
	}

	amount := billing.FromWire(req.TotalAmount)
	if err = l.checkAmount(amount); err != nil {
		return Record{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	paid, err := l.paidClasses(ctx, student.ID, req.PaymentMonth)
	if err != nil {
		return Record{}, err
	}
	pending := make([]string, 0, len(enrolled))
	if len(req.ClassIDs) > 0 {
		for _, id := range req.ClassIDs {
			if core.ContainsID(paid, id) {
				return Record{}, NewError(KindDuplicatePayment, "class "+id+" is already paid for "+req.PaymentMonth)
			}
		}
		pending = append(pending, req.ClassIDs...)
	} else {
		for _, id := range enrolled {
			if !core.ContainsID(paid, id) {
				pending = append(pending, id)
			}
		}
	}
	if len(pending) == 0 {
		return Record{}, NewError(KindDuplicatePayment, "every class is already paid for "+req.PaymentMonth)
	}

	return l.create(ctx, Record{
		StudentID:   student.ID,
		ClassIDs:    pending,
		TotalAmount: amount,
		Month:       req.PaymentMonth,
		PaymentDate: date,
		Method:      req.PaymentMethod,
		Notes:       req.Notes,
		MultiClass:  true,
	})
}

func (l *Ledger) DeletePayment(ctx context.Context, paymentID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.repo.DeletePayment(ctx, paymentID); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return PaymentNotFound(paymentID)
		}
		return errors.Wrap(err, "deleting payment")
	}
	l.logger.Info("payment deleted", map[string]interface{}{"paymentId": paymentID})
	return nil
}

func (l *Ledger) ListPayments(ctx context.Context, filter Filter) ([]Record, error) {
	records, err := l.repo.FilterPayments(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "filtering payments")
	}
	return records, nil
}

func (l *Ledger) GetPayment(ctx context.Context, paymentID string) (Record, error) {
	rec, err := l.repo.GetPaymentByID(ctx, paymentID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Record{}, PaymentNotFound(paymentID)
		}
		return Record{}, errors.Wrap(err, "getting payment")
	}
	return rec, nil
}

func (l *Ledger) create(ctx context.Context, rec Record) (Record, error) {
	rec.ID = uuid.NewString()
	rec.CreatedAt = NowFunc().UTC()
	rec, err := l.repo.CreatePayment(ctx, rec)
	if err != nil {
		if errors.Cause(err) == ErrDuplicate {
			return Record{}, NewError(KindDuplicatePayment, err.Error())
		}
		return Record{}, errors.Wrap(err, "creating payment")
	}
	l.logger.Info("payment recorded", map[string]interface{}{
		"paymentId": rec.ID,
		"studentId": rec.StudentID,
		"classIds":  rec.ClassIDs,
		"month":     rec.Month,
		"amount":    rec.TotalAmount.String(),
	})
	return rec, nil
}

func (l *Ledger) student(ctx context.Context, studentID string) (roster.Student, error) {
	if studentID == "" {
		return roster.Student{}, NewError(KindValidation, "studentId is required")
	}
	student, err := l.directory.GetStudentByID(ctx, studentID)
	if err != nil {
		if errors.Cause(err) == roster.ErrStudentNotFound {
			return roster.Student{}, NewError(KindStudentNotFound, "student "+studentID+" not found")
		}
		return roster.Student{}, errors.Wrap(err, "getting student")
	}
	return student, nil
}

// enrolledClasses returns the classes whose record lists the student, in enrollment order.
func (l *Ledger) enrolledClasses(ctx context.Context, student roster.Student) ([]string, error) {
	ids := make([]string, 0, len(student.ClassIDs))
	for _, id := range student.ClassIDs {
		class, err := l.directory.GetClassByID(ctx, id)
		if err != nil {
			if errors.Cause(err) == roster.ErrClassNotFound {
				continue
			}
			return nil, errors.Wrap(err, "getting class")
		}
		if class.HasStudent(student.ID) {
			ids = append(ids, class.ID)
		}
	}
	return ids, nil
}

func (l *Ledger) paidClasses(ctx context.Context, studentID, month string) ([]string, error) {
	records, err := l.repo.FilterPayments(ctx, Filter{StudentID: studentID, Month: month})
	if err != nil {
		return nil, errors.Wrap(err, "filtering payments")
	}
	var ids []string
	for _, r := range records {
		ids = append(ids, r.ClassIDs...)
	}
	return ids, nil
}

func (l *Ledger) checkAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return NewError(KindInvalidAmount, "amount must be greater than 0")
	}
	if amount.GreaterThan(l.MaxAmount) {
		return NewError(KindInvalidAmount, "amount must not exceed "+l.MaxAmount.String())
	}
	return nil
}

func checkDates(month, date string) (time.Time, error) {
	if _, err := billing.ParseMonth(month); err != nil {
		return time.Time{}, NewError(KindValidation, "paymentMonth must be a month formatted as YYYY-MM")
	}
	d, err := billing.ParseDate(date)
	if err != nil {
		return time.Time{}, NewError(KindValidation, "paymentDate must be a date formatted as YYYY-MM-DD")
	}
	return d, nil
}
