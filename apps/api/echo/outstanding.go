package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studio/core"
	"github.com/trezcool/studio/core/billing"
	"github.com/trezcool/studio/core/outstanding"
)

type outstandingApi struct {
	source          *outstanding.Source
	reminder        *outstanding.Reminder
	defaultSeverity outstanding.Severity
}

func registerOutstandingAPI(
	g *echo.Group,
	source *outstanding.Source,
	reminder *outstanding.Reminder,
	defaultSeverity outstanding.Severity,
) {
	api := outstandingApi{source: source, reminder: reminder, defaultSeverity: defaultSeverity}

	og := g.Group("/outstanding")
	og.GET("", api.query)
	og.POST("/reminders", api.remind, roleMiddleware(RoleAdmin))
}

type (
	OutstandingCharge struct {
		ClassID   string  `json:"classId"`
		ClassName string  `json:"className"`
		Amount    float64 `json:"amount"`
		DueDate   string  `json:"dueDate"`
	}

	OutstandingEntry struct {
		StudentID   string               `json:"studentId"`
		StudentName string               `json:"studentName"`
		Email       string               `json:"email,omitempty"`
		Charges     []OutstandingCharge  `json:"charges"`
		TotalOwed   float64              `json:"totalOwed"`
		LateFeeOwed float64              `json:"lateFeeOwed"`
		TotalDue    float64              `json:"totalDue"`
		DaysOverdue int                  `json:"daysOverdue"`
		Severity    outstanding.Severity `json:"severity"`
	}

	WorklistResponse struct {
		Month       string             `json:"month"`
		AsOf        string             `json:"asOf"`
		Entries     []OutstandingEntry `json:"entries"`
		TotalOwed   float64            `json:"totalOwed"`
		LateFeeOwed float64            `json:"lateFeeOwed"`
		Students    int                `json:"students"`
	}

	RemindersResponse struct {
		Month    string `json:"month"`
		Severity string `json:"severity"`
		Queued   int    `json:"queued"`
	}
)

func newWorklistResponse(month string, w outstanding.Worklist) WorklistResponse {
	entries := make([]OutstandingEntry, 0, len(w.Entries))
	for _, e := range w.Entries {
		charges := make([]OutstandingCharge, 0, len(e.Charges))
		for _, c := range e.Charges {
			charges = append(charges, OutstandingCharge{
				ClassID:   c.ClassID,
				ClassName: c.ClassName,
				Amount:    billing.ToWire(c.Amount()),
				DueDate:   c.DueDate.Format(core.DateLayout),
			})
		}
		entries = append(entries, OutstandingEntry{
			StudentID:   e.StudentID,
			StudentName: e.StudentName,
			Email:       e.Email,
			Charges:     charges,
			TotalOwed:   billing.ToWire(e.TotalOwed),
			LateFeeOwed: billing.ToWire(e.LateFeeOwed),
			TotalDue:    billing.ToWire(e.TotalDue()),
			DaysOverdue: e.DaysOverdue,
			Severity:    e.Severity,
		})
	}
	return WorklistResponse{
		Month:       month,
		AsOf:        w.AsOf.Format(core.DateLayout),
		Entries:     entries,
		TotalOwed:   billing.ToWire(w.Totals.TotalOwed),
		LateFeeOwed: billing.ToWire(w.Totals.LateFeeOwed),
		Students:    w.Totals.Students,
	}
}

// worklist reads `?month=&severity=` & builds the filtered worklist as of today.
func (api *outstandingApi) worklist(ctx echo.Context, defaultSeverity outstanding.Severity) (string, outstanding.Severity, outstanding.Worklist, error) {
	month, ref, err := bindMonth(ctx, "month")
	if err != nil {
		return "", 0, outstanding.Worklist{}, err
	}
	severity := defaultSeverity
	if raw := ctx.QueryParam("severity"); raw != "" {
		if severity, err = outstanding.ParseSeverity(raw); err != nil {
			return "", 0, outstanding.Worklist{}, fieldError("severity", "severity must be one of recent, urgent, critical")
		}
	}
	students, err := api.source.Collect(ctx.Request().Context(), ref)
	if err != nil {
		return "", 0, outstanding.Worklist{}, errors.Wrap(err, "collecting pending charges")
	}
	w := outstanding.Aggregate(students, billing.Today()).Filter(severity)
	return month, severity, w, nil
}

// Handlers

func (api *outstandingApi) query(ctx echo.Context) error {
	month, _, w, err := api.worklist(ctx, outstanding.Recent)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newWorklistResponse(month, w))
}

func (api *outstandingApi) remind(ctx echo.Context) error {
	month, severity, w, err := api.worklist(ctx, api.defaultSeverity)
	if err != nil {
		return err
	}
	queued := api.reminder.Send(w, month, severity)
	return ctx.JSON(http.StatusAccepted, RemindersResponse{Month: month, Severity: severity.String(), Queued: queued})
}
