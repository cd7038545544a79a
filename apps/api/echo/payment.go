package echoapi

import (
	"net/http"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/studio/core"
	"github.com/trezcool/studio/core/billing"
	"github.com/trezcool/studio/core/outstanding"
	"github.com/trezcool/studio/core/payment"
)

type paymentApi struct {
	ledger      *payment.Ledger
	coordinator *payment.Coordinator
	source      *outstanding.Source
	validate    *validator.Validate
	translator  ut.Translator
}

func registerPaymentAPI(
	g *echo.Group,
	ledger *payment.Ledger,
	coordinator *payment.Coordinator,
	source *outstanding.Source,
	validate *validator.Validate,
	translator ut.Translator,
) {
	api := paymentApi{
		ledger:      ledger,
		coordinator: coordinator,
		source:      source,
		validate:    validate,
		translator:  translator,
	}

	pg := g.Group("/payments")
	pg.POST("", api.create)
	pg.POST("/multi-class", api.createMultiClass)
	pg.GET("", api.query)
	pg.GET("/:paymentId", api.retrieve)
	pg.DELETE("/:paymentId", api.destroy, roleMiddleware(RoleAdmin))

	sg := g.Group("/students/:studentId")
	sg.GET("/quote", api.quote)
	sg.POST("/checkout", api.checkout)
}

type (
	QuoteLine struct {
		ClassID   string  `json:"classId"`
		ClassName string  `json:"className"`
		Amount    float64 `json:"amount"`
		DueDate   string  `json:"dueDate"`
		Overdue   bool    `json:"overdue"`
	}

	QuoteResponse struct {
		StudentID         string      `json:"studentId"`
		PaymentDate       string      `json:"paymentDate"`
		Lines             []QuoteLine `json:"lines"`
		BaseAmount        float64     `json:"baseAmount"`
		LateFee           float64     `json:"lateFee"`
		Total             float64     `json:"total"`
		HasOverdueCharges bool        `json:"hasOverdueCharges"`
		Shape             string      `json:"shape"`
	}

	// CheckoutRequest pays the pending charges of a student.
	// Every pending charge is paid unless ClassIDs narrows the selection.
	CheckoutRequest struct {
		PaymentDate   string             `json:"paymentDate"`
		PaymentMethod string             `json:"paymentMethod"`
		Notes         string             `json:"notes"`
		ClassIDs      []string           `json:"classIds"`
		Overrides     map[string]float64 `json:"overrides"`
	}
)

func newQuoteResponse(studentID string, date time.Time, q billing.Quote) QuoteResponse {
	lines := make([]QuoteLine, 0, len(q.Lines))
	for _, l := range q.Lines {
		lines = append(lines, QuoteLine{
			ClassID:   l.ClassID,
			ClassName: l.ClassName,
			Amount:    billing.ToWire(l.Amount),
			DueDate:   l.DueDate.Format(core.DateLayout),
			Overdue:   l.Overdue,
		})
	}
	shape := q.Shape.String()
	if len(q.Lines) == 0 {
		shape = ""
	}
	return QuoteResponse{
		StudentID:         studentID,
		PaymentDate:       date.Format(core.DateLayout),
		Lines:             lines,
		BaseAmount:        billing.ToWire(q.BaseAmount),
		LateFee:           billing.ToWire(q.LateFee),
		Total:             billing.ToWire(q.Total),
		HasOverdueCharges: q.HasOverdueCharges,
		Shape:             shape,
	}
}

// Handlers

func (api *paymentApi) create(ctx echo.Context) error {
	var data payment.SingleClassRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SingleClassRequest")
	}
	data.Clean()
	if err := payment.ValidateRequest(api.validate, api.translator, data); err != nil {
		return err
	}
	rec, err := api.ledger.CreatePayment(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating payment")
	}
	return ctx.JSON(http.StatusCreated, rec.DTO())
}

func (api *paymentApi) createMultiClass(ctx echo.Context) error {
	var data payment.MultiClassRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MultiClassRequest")
	}
	data.Clean()
	if err := payment.ValidateRequest(api.validate, api.translator, data); err != nil {
		return err
	}
	rec, err := api.ledger.CreateMultiClassPayment(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating multi-class payment")
	}
	return ctx.JSON(http.StatusCreated, rec.DTO())
}

func (api *paymentApi) query(ctx echo.Context) error {
	filter, err := bindPaymentFilter(ctx)
	if err != nil {
		return err
	}
	records, err := api.ledger.ListPayments(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "listing payments")
	}
	dtos := make([]payment.RecordDTO, 0, len(records))
	for _, r := range records {
		dtos = append(dtos, r.DTO())
	}
	return ctx.JSON(http.StatusOK, dtos)
}

func (api *paymentApi) retrieve(ctx echo.Context) error {
	rec, err := api.ledger.GetPayment(ctx.Request().Context(), ctx.Param("paymentId"))
	if err != nil {
		return errors.Wrap(err, "finding payment by ID")
	}
	return ctx.JSON(http.StatusOK, rec.DTO())
}

func (api *paymentApi) destroy(ctx echo.Context) error {
	if err := api.ledger.DeletePayment(ctx.Request().Context(), ctx.Param("paymentId")); err != nil {
		return errors.Wrap(err, "deleting payment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *paymentApi) quote(ctx echo.Context) error {
	date, err := bindDate(ctx, "paymentDate")
	if err != nil {
		return err
	}
	overrides, err := bindOverrides(ctx)
	if err != nil {
		return err
	}
	studentID := ctx.Param("studentId")
	charges, err := api.source.PendingCharges(ctx.Request().Context(), studentID, date)
	if err != nil {
		return errors.Wrap(err, "getting pending charges")
	}
	q := billing.Calculate(billing.Overrides(charges, overrides), date)
	return ctx.JSON(http.StatusOK, newQuoteResponse(studentID, date, q))
}

func (api *paymentApi) checkout(ctx echo.Context) error {
	var data CheckoutRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CheckoutRequest")
	}
	data.PaymentDate = core.CleanString(data.PaymentDate)
	date := billing.Today()
	if data.PaymentDate != "" {
		var err error
		if date, err = billing.ParseDate(data.PaymentDate); err != nil {
			return fieldError("paymentDate", "paymentDate must be a date formatted as YYYY-MM-DD")
		}
	} else {
		data.PaymentDate = date.Format(core.DateLayout)
	}

	studentID := ctx.Param("studentId")
	charges, err := api.source.PendingCharges(ctx.Request().Context(), studentID, date)
	if err != nil {
		return errors.Wrap(err, "getting pending charges")
	}
	if classIDs := core.CleanIDs(data.ClassIDs); len(classIDs) > 0 {
		selected := charges[:0]
		for _, c := range charges {
			if core.ContainsID(classIDs, c.ClassID) {
				selected = append(selected, c)
			}
		}
		charges = selected
	}
	overrides := make(map[string]decimal.Decimal, len(data.Overrides))
	for classID, amount := range data.Overrides {
		overrides[classID] = billing.FromWire(amount)
	}

	rec, err := api.coordinator.Submit(ctx.Request().Context(), payment.Submission{
		StudentID:   studentID,
		Charges:     billing.Overrides(charges, overrides),
		PaymentDate: data.PaymentDate,
		Method:      payment.Method(data.PaymentMethod),
		Notes:       data.Notes,
	})
	if err != nil {
		return errors.Wrap(err, "submitting payment")
	}
	return ctx.JSON(http.StatusCreated, rec.DTO())
}
