package payment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studio/core/billing"
)

type gatewayMock struct {
	mu     sync.Mutex
	single []SingleClassRequest
	multi  []MultiClassRequest
	err    error
	block  chan struct{} // when set, create calls wait on it
}

var _ Gateway = (*gatewayMock)(nil)

func (g *gatewayMock) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.single) + len(g.multi)
}

func (g *gatewayMock) CreatePayment(_ context.Context, req SingleClassRequest) (Record, error) {
	if g.block != nil {
		<-g.block
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.single = append(g.single, req)
	if g.err != nil {
		return Record{}, g.err
	}
	return Record{ID: "p1", StudentID: req.StudentID, ClassIDs: []string{req.ClassID}, TotalAmount: billing.FromWire(req.Amount)}, nil
}

func (g *gatewayMock) CreateMultiClassPayment(_ context.Context, req MultiClassRequest) (Record, error) {
	if g.block != nil {
		<-g.block
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.multi = append(g.multi, req)
	if g.err != nil {
		return Record{}, g.err
	}
	return Record{ID: "p2", StudentID: req.StudentID, TotalAmount: billing.FromWire(req.TotalAmount), MultiClass: true}, nil
}

func (g *gatewayMock) DeletePayment(context.Context, string) error {
	return g.err
}

func (g *gatewayMock) ListPayments(context.Context, Filter) ([]Record, error) {
	return nil, g.err
}

func newCoordinator(g Gateway) *Coordinator {
	validate, translator := NewValidator()
	return NewCoordinator(g, validate, translator)
}

func pending(classID, price string) billing.PendingCharge {
	return billing.PendingCharge{
		StudentID: "s1",
		ClassID:   classID,
		ClassName: "Class " + classID,
		Price:     decimal.RequireFromString(price),
		DueDate:   time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestCoordinator_Submit_shapes(t *testing.T) {
	ctx := context.Background()

	t.Run("two overdue classes go multi-class", func(t *testing.T) {
		g := &gatewayMock{}
		rec, err := newCoordinator(g).Submit(ctx, Submission{
			StudentID:   "s1",
			Charges:     []billing.PendingCharge{pending("c1", "800"), pending("c2", "700")},
			PaymentDate: "2024-03-15",
			Method:      Cash,
		})
		require.NoError(t, err)
		assert.Equal(t, "p2", rec.ID)
		require.Len(t, g.multi, 1)
		assert.Empty(t, g.single)
		assert.Equal(t, MultiClassRequest{
			StudentID:     "s1",
			ClassIDs:      []string{"c1", "c2"},
			TotalAmount:   1725,
			PaymentMonth:  "2024-03",
			PaymentDate:   "2024-03-15",
			PaymentMethod: Cash,
		}, g.multi[0])
	})

	t.Run("one class before due date goes single-class", func(t *testing.T) {
		g := &gatewayMock{}
		rec, err := newCoordinator(g).Submit(ctx, Submission{
			StudentID:   " s1 ",
			Charges:     []billing.PendingCharge{pending("c1", "600")},
			PaymentDate: "2024-03-05",
			Method:      "BankTransfer",
			Notes:       "  march  ",
		})
		require.NoError(t, err)
		assert.True(t, rec.TotalAmount.Equal(decimal.NewFromInt(600)))
		require.Len(t, g.single, 1)
		assert.Equal(t, SingleClassRequest{
			StudentID:     "s1",
			ClassID:       "c1",
			Amount:        600,
			PaymentMonth:  "2024-03",
			PaymentDate:   "2024-03-05",
			PaymentMethod: BankTransfer,
			Notes:         "march",
		}, g.single[0])
	})
}

func TestCoordinator_Submit_validation(t *testing.T) {
	zero := pending("c1", "600")
	zero.SetAmount(decimal.Zero)
	negative := pending("c2", "600")
	negative.SetAmount(decimal.NewFromInt(-5))

	valid := func() Submission {
		return Submission{
			StudentID:   "s1",
			Charges:     []billing.PendingCharge{pending("c1", "600")},
			PaymentDate: "2024-03-05",
			Method:      Card,
		}
	}

	tests := []struct {
		name      string
		mutate    func(*Submission)
		wantField string
	}{
		{name: "zero override", mutate: func(s *Submission) { s.Charges = []billing.PendingCharge{zero} }, wantField: "charges[0].amount"},
		{name: "negative override", mutate: func(s *Submission) { s.Charges = append(s.Charges, negative) }, wantField: "charges[1].amount"},
		{name: "no charges", mutate: func(s *Submission) { s.Charges = nil }, wantField: "charges"},
		{name: "missing student", mutate: func(s *Submission) { s.StudentID = "  " }, wantField: "studentId"},
		{name: "missing date", mutate: func(s *Submission) { s.PaymentDate = "" }, wantField: "paymentDate"},
		{name: "unparseable date", mutate: func(s *Submission) { s.PaymentDate = "05/03/2024" }, wantField: "paymentDate"},
		{name: "missing method", mutate: func(s *Submission) { s.Method = "" }, wantField: "paymentMethod"},
		{name: "unknown method", mutate: func(s *Submission) { s.Method = "cheque" }, wantField: "paymentMethod"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &gatewayMock{}
			sub := valid()
			tt.mutate(&sub)

			_, err := newCoordinator(g).Submit(context.Background(), sub)

			var pErr *Error
			require.True(t, errors.As(err, &pErr))
			assert.Equal(t, KindValidation, pErr.Kind)
			assert.Contains(t, pErr.Fields, tt.wantField)
			assert.Equal(t, 0, g.calls(), "invalid submissions must not reach the gateway")
		})
	}
}

func TestCoordinator_Submit_backendErrors(t *testing.T) {
	tests := []struct {
		name        string
		gatewayErr  error
		wantKind    Kind
		wantMessage string
	}{
		{
			name:        "duplicate payment",
			gatewayErr:  FromWire("DUPLICATE_PAYMENT", "already paid"),
			wantKind:    KindDuplicatePayment,
			wantMessage: userMessages[KindDuplicatePayment],
		},
		{
			name:        "student not enrolled",
			gatewayErr:  FromWire("STUDENT_NOT_ENROLLED", "not enrolled"),
			wantKind:    KindStudentNotEnrolled,
			wantMessage: userMessages[KindStudentNotEnrolled],
		},
		{
			name:        "unmapped tag keeps the backend message",
			gatewayErr:  FromWire("LEDGER_LOCKED", "The ledger is closed for audit"),
			wantKind:    KindUnknown,
			wantMessage: "The ledger is closed for audit",
		},
		{
			name:        "unstructured error is a transport error",
			gatewayErr:  errors.New("read tcp: connection reset by peer"),
			wantKind:    KindTransport,
			wantMessage: userMessages[KindTransport],
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &gatewayMock{err: tt.gatewayErr}
			c := newCoordinator(g)
			sub := Submission{
				StudentID:   "s1",
				Charges:     []billing.PendingCharge{pending("c1", "600")},
				PaymentDate: "2024-03-05",
				Method:      Cash,
			}

			_, err := c.Submit(context.Background(), sub)

			pErr := Classify(err)
			require.NotNil(t, pErr)
			assert.Equal(t, tt.wantKind, pErr.Kind)
			assert.Equal(t, tt.wantMessage, pErr.UserMessage())
			assert.Equal(t, 1, g.calls(), "no retries")
			assert.False(t, c.InFlight("s1"))
		})
	}
}

func TestCoordinator_Submit_inFlight(t *testing.T) {
	g := &gatewayMock{block: make(chan struct{})}
	c := newCoordinator(g)
	sub := Submission{
		StudentID:   "s1",
		Charges:     []billing.PendingCharge{pending("c1", "600")},
		PaymentDate: "2024-03-05",
		Method:      Cash,
	}

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), sub)
		done <- err
	}()
	require.Eventually(t, func() bool { return c.InFlight("s1") }, time.Second, time.Millisecond)

	_, err := c.Submit(context.Background(), sub)
	assert.Equal(t, KindInFlight, KindOf(err))

	close(g.block)
	require.NoError(t, <-done)
	assert.False(t, c.InFlight("s1"))
	assert.Equal(t, 1, g.calls())
}

func TestCoordinator_Preview(t *testing.T) {
	zero := pending("c1", "600")
	zero.SetAmount(decimal.Zero)

	q, err := newCoordinator(&gatewayMock{}).Preview(Submission{
		Charges:     []billing.PendingCharge{zero, pending("c2", "700")},
		PaymentDate: "2024-03-11",
	})
	require.NoError(t, err)
	assert.True(t, q.BaseAmount.Equal(decimal.NewFromInt(700)))
	assert.True(t, q.Total.Equal(decimal.NewFromInt(805)))
}

func TestError_Body(t *testing.T) {
	body := NewError(KindDuplicatePayment, "").Body()
	assert.Equal(t, "DUPLICATE_PAYMENT", body.ErrorType)
	assert.Equal(t, userMessages[KindDuplicatePayment], body.Message)

	body = PaymentNotFound("p9").Body()
	assert.Equal(t, TagPaymentNotFound, body.ErrorType)
	assert.Equal(t, "payment p9 not found", body.Message)

	assert.Equal(t, KindUnknown, FromWire(TagPaymentNotFound, "gone").Kind)
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		in     string
		want   Method
		wantOk bool
	}{
		{"cash", Cash, true},
		{"Card", Card, true},
		{"bank_transfer", BankTransfer, true},
		{"BankTransfer", BankTransfer, true},
		{"bank-transfer", BankTransfer, true},
		{"cheque", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseMethod(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOk, ok)
		})
	}
}
