// Package payment records tuition payments and classifies their failures.
package payment

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/studio/core"
	"github.com/trezcool/studio/core/billing"
)

type Method string

const (
	Cash         Method = "cash"
	BankTransfer Method = "bank_transfer"
	Card         Method = "card"
)

var Methods = []Method{Cash, BankTransfer, Card}

func (m Method) IsValid() bool {
	for _, valid := range Methods {
		if m == valid {
			return true
		}
	}
	return false
}

// ParseMethod accepts "bank_transfer", "BankTransfer" & "bank-transfer" alike.
func ParseMethod(s string) (Method, bool) {
	norm := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(s))
	for _, m := range Methods {
		if strings.ReplaceAll(string(m), "_", "") == norm {
			return m, true
		}
	}
	return "", false
}

// Record is an accepted payment. It is immutable & deletable as a whole.
type Record struct {
	ID          string
	StudentID   string
	ClassIDs    []string
	TotalAmount decimal.Decimal
	Month       string // YYYY-MM
	PaymentDate time.Time
	Method      Method
	Notes       string
	MultiClass  bool
	CreatedAt   time.Time
}

// Covers reports whether the record pays for classID in month.
func (r Record) Covers(classID, month string) bool {
	return r.Month == month && core.ContainsID(r.ClassIDs, classID)
}

func (r Record) DTO() RecordDTO {
	return RecordDTO{
		ID:            r.ID,
		StudentID:     r.StudentID,
		ClassIDs:      r.ClassIDs,
		TotalAmount:   billing.ToWire(r.TotalAmount),
		PaymentMonth:  r.Month,
		PaymentDate:   r.PaymentDate.Format(core.DateLayout),
		PaymentMethod: r.Method,
		Notes:         r.Notes,
		MultiClass:    r.MultiClass,
		CreatedAt:     r.CreatedAt,
	}
}

type (
	// SingleClassRequest is the wire body of createPayment.
	SingleClassRequest struct {
		StudentID     string  `json:"studentId" validate:"required"`
		ClassID       string  `json:"classId" validate:"required"`
		Amount        float64 `json:"amount"`
		PaymentMonth  string  `json:"paymentMonth" validate:"required,yearmonth"`
		PaymentDate   string  `json:"paymentDate" validate:"required,isodate"`
		PaymentMethod Method  `json:"paymentMethod" validate:"required,paymentmethod"`
		Notes         string  `json:"notes"`
	}

	// MultiClassRequest is the wire body of createMultiClassPayment.
	// The per-class split is not transmitted. ClassIDs narrows the payment to those classes;
	// when empty every unpaid enrolled class of the month is paid.
	MultiClassRequest struct {
		StudentID     string   `json:"studentId" validate:"required"`
		ClassIDs      []string `json:"classIds,omitempty"`
		TotalAmount   float64  `json:"totalAmount"`
		PaymentMonth  string   `json:"paymentMonth" validate:"required,yearmonth"`
		PaymentDate   string   `json:"paymentDate" validate:"required,isodate"`
		PaymentMethod Method   `json:"paymentMethod" validate:"required,paymentmethod"`
		Notes         string   `json:"notes"`
	}

	RecordDTO struct {
		ID            string    `json:"id"`
		StudentID     string    `json:"studentId"`
		ClassIDs      []string  `json:"classIds"`
		TotalAmount   float64   `json:"totalAmount"`
		PaymentMonth  string    `json:"paymentMonth"`
		PaymentDate   string    `json:"paymentDate"`
		PaymentMethod Method    `json:"paymentMethod"`
		Notes         string    `json:"notes,omitempty"`
		MultiClass    bool      `json:"multiClass"`
		CreatedAt     time.Time `json:"createdAt"`
	}

	ErrorBody struct {
		ErrorType string            `json:"errorType"`
		Message   string            `json:"message"`
		Fields    map[string]string `json:"fields,omitempty"`
	}
)

func (req *SingleClassRequest) Clean() {
	req.StudentID = core.CleanString(req.StudentID)
	req.ClassID = core.CleanString(req.ClassID)
	req.PaymentMonth = core.CleanString(req.PaymentMonth)
	req.PaymentDate = core.CleanString(req.PaymentDate)
	req.Notes = core.CleanString(req.Notes)
}

func (req *MultiClassRequest) Clean() {
	req.StudentID = core.CleanString(req.StudentID)
	if len(req.ClassIDs) > 0 {
		req.ClassIDs = core.CleanIDs(req.ClassIDs)
	}
	req.PaymentMonth = core.CleanString(req.PaymentMonth)
	req.PaymentDate = core.CleanString(req.PaymentDate)
	req.Notes = core.CleanString(req.Notes)
}

func (dto RecordDTO) Record() (Record, error) {
	date, err := billing.ParseDate(dto.PaymentDate)
	if err != nil {
		return Record{}, errors.Wrap(err, "parsing paymentDate")
	}
	return Record{
		ID:          dto.ID,
		StudentID:   dto.StudentID,
		ClassIDs:    dto.ClassIDs,
		TotalAmount: billing.FromWire(dto.TotalAmount),
		Month:       dto.PaymentMonth,
		PaymentDate: date,
		Method:      dto.PaymentMethod,
		Notes:       dto.Notes,
		MultiClass:  dto.MultiClass,
		CreatedAt:   dto.CreatedAt,
	}, nil
}

// Filter selects payments; empty fields match everything.
type Filter struct {
	StudentID string
	ClassID   string
	Month     string
	Ordering  []core.DBOrdering
}

// OrderingFields are the fields payments can be ordered by.
var OrderingFields = []string{"payment_date", "created_at", "student_id", "total_amount"}

func (f Filter) Match(r Record) bool {
	if f.StudentID != "" && r.StudentID != f.StudentID {
		return false
	}
	if f.Month != "" && r.Month != f.Month {
		return false
	}
	if f.ClassID != "" && !core.ContainsID(r.ClassIDs, f.ClassID) {
		return false
	}
	return true
}

// Gateway records payments on the backend.
type Gateway interface {
	CreatePayment(ctx context.Context, req SingleClassRequest) (Record, error)
	CreateMultiClassPayment(ctx context.Context, req MultiClassRequest) (Record, error)
	DeletePayment(ctx context.Context, paymentID string) error
	ListPayments(ctx context.Context, filter Filter) ([]Record, error)
}
