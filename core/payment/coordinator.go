package payment

import (
	"context"
	"sync"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/studio/core"
	"github.com/trezcool/studio/core/billing"
)

// Submission is a candidate payment of one or more pending charges.
type Submission struct {
	StudentID   string                  `json:"studentId" validate:"required"`
	Charges     []billing.PendingCharge `json:"charges" validate:"min=1"`
	PaymentDate string                  `json:"paymentDate" validate:"required,isodate"`
	Method      Method                  `json:"paymentMethod" validate:"required,paymentmethod"`
	Notes       string                  `json:"notes"`
}

func (sub *Submission) Clean() {
	sub.StudentID = core.CleanString(sub.StudentID)
	sub.PaymentDate = core.CleanString(sub.PaymentDate)
	sub.Notes = core.CleanString(sub.Notes)
	if m, ok := ParseMethod(string(sub.Method)); ok {
		sub.Method = m
	}
}

// Validate returns a KindValidation *Error listing every invalid field.
func (sub Submission) Validate(validate *validator.Validate, translator ut.Translator) error {
	return ValidateRequest(validate, translator, sub)
}

// Coordinator validates, shapes & submits payments.
type Coordinator struct {
	gateway    Gateway
	validate   *validator.Validate
	translator ut.Translator

	mu       sync.Mutex
	inFlight map[string]struct{} // by student ID
}

func NewCoordinator(gateway Gateway, validate *validator.Validate, translator ut.Translator) *Coordinator {
	return &Coordinator{
		gateway:    gateway,
		validate:   validate,
		translator: translator,
		inFlight:   make(map[string]struct{}),
	}
}

// Preview prices the submission without validating it.
func (c *Coordinator) Preview(sub Submission) (billing.Quote, error) {
	date, err := billing.ParseDate(core.CleanString(sub.PaymentDate))
	if err != nil {
		return billing.Quote{}, NewError(KindValidation, "paymentDate must be a date formatted as YYYY-MM-DD")
	}
	return billing.Calculate(sub.Charges, date), nil
}

// Submit validates the submission & records it through the gateway.
// Invalid submissions never reach the gateway. Failures are returned as *Error.
func (c *Coordinator) Submit(ctx context.Context, sub Submission) (Record, error) {
	sub.Clean()
	if err := sub.Validate(c.validate, c.translator); err != nil {
		return Record{}, err
	}
	paymentDate, err := billing.ParseDate(sub.PaymentDate)
	if err != nil {
		return Record{}, &Error{Kind: KindValidation, Tag: KindValidation.WireTag(), Err: err}
	}

	if !c.acquire(sub.StudentID) {
		return Record{}, NewError(KindInFlight, "")
	}
	defer c.release(sub.StudentID)

	quote := billing.Calculate(sub.Charges, paymentDate)
	month := billing.MonthOf(paymentDate)

	var rec Record
	switch quote.Shape {
	case billing.SingleClass:
		rec, err = c.gateway.CreatePayment(ctx, SingleClassRequest{
			StudentID:     sub.StudentID,
			ClassID:       quote.Lines[0].ClassID,
			Amount:        billing.ToWire(quote.Total),
			PaymentMonth:  month,
			PaymentDate:   sub.PaymentDate,
			PaymentMethod: sub.Method,
			Notes:         sub.Notes,
		})
	default:
		rec, err = c.gateway.CreateMultiClassPayment(ctx, MultiClassRequest{
			StudentID:     sub.StudentID,
			ClassIDs:      quote.ClassIDs(),
			TotalAmount:   billing.ToWire(quote.Total),
			PaymentMonth:  month,
			PaymentDate:   sub.PaymentDate,
			PaymentMethod: sub.Method,
			Notes:         sub.Notes,
		})
	}
	if err != nil {
		return Record{}, Classify(err)
	}
	return rec, nil
}

func (c *Coordinator) Delete(ctx context.Context, paymentID string) error {
	paymentID = core.CleanString(paymentID)
	if paymentID == "" {
		return NewError(KindValidation, "paymentId is required")
	}
	if err := c.gateway.DeletePayment(ctx, paymentID); err != nil {
		return Classify(err)
	}
	return nil
}

func (c *Coordinator) List(ctx context.Context, filter Filter) ([]Record, error) {
	records, err := c.gateway.ListPayments(ctx, filter)
	if err != nil {
		return nil, Classify(err)
	}
	return records, nil
}

// InFlight reports whether a submission for the student is pending.
func (c *Coordinator) InFlight(studentID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inFlight[studentID]
	return ok
}

func (c *Coordinator) acquire(studentID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.inFlight[studentID]; ok {
		return false
	}
	c.inFlight[studentID] = struct{}{}
	return true
}

func (c *Coordinator) release(studentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, studentID)
}
