package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/studio/core"
	"github.com/trezcool/studio/core/billing"
	"github.com/trezcool/studio/core/payment"
)

const (
	orderingParam = "ordering"
	overrideParam = "override"
)

// bindPaymentFilter reads `?studentId=&classId=&month=&ordering=`.
func bindPaymentFilter(ctx echo.Context) (payment.Filter, error) {
	filter := payment.Filter{
		StudentID: core.CleanString(ctx.QueryParam("studentId")),
		ClassID:   core.CleanString(ctx.QueryParam("classId")),
		Month:     core.CleanString(ctx.QueryParam("month")),
		Ordering:  core.ParseOrdering(ctx.QueryParam(orderingParam), payment.OrderingFields...),
	}
	if filter.Month != "" {
		if _, err := billing.ParseMonth(filter.Month); err != nil {
			return payment.Filter{}, fieldError("month", "month must be a month formatted as YYYY-MM")
		}
	}
	return filter, nil
}

// bindOverrides reads `override[<classId>]=<amount>` query params.
func bindOverrides(ctx echo.Context) (map[string]decimal.Decimal, error) {
	amounts := make(map[string]decimal.Decimal)
	for key, vals := range ctx.QueryParams() {
		if !strings.HasPrefix(key, overrideParam+"[") || !strings.HasSuffix(key, "]") || len(vals) == 0 {
			continue
		}
		classID := key[len(overrideParam)+1 : len(key)-1]
		amount, err := strconv.ParseFloat(core.CleanString(vals[0]), 64)
		if err != nil {
			return nil, fieldError(key, key+" must be a number")
		}
		amounts[classID] = billing.FromWire(amount)
	}
	return amounts, nil
}

// bindDate reads a `YYYY-MM-DD` query param, today when absent.
func bindDate(ctx echo.Context, param string) (time.Time, error) {
	raw := core.CleanString(ctx.QueryParam(param))
	if raw == "" {
		return billing.Today(), nil
	}
	date, err := billing.ParseDate(raw)
	if err != nil {
		return time.Time{}, fieldError(param, param+" must be a date formatted as YYYY-MM-DD")
	}
	return date, nil
}

// bindMonth reads a `YYYY-MM` query param, the current month when absent.
func bindMonth(ctx echo.Context, param string) (string, time.Time, error) {
	raw := core.CleanString(ctx.QueryParam(param))
	if raw == "" {
		today := billing.Today()
		return billing.MonthOf(today), today, nil
	}
	ref, err := billing.ParseMonth(raw)
	if err != nil {
		return "", time.Time{}, fieldError(param, param+" must be a month formatted as YYYY-MM")
	}
	return raw, ref, nil
}

func fieldError(field, msg string) error {
	return errors.WithStack(core.NewValidationError(nil, core.FieldError{Field: field, Error: msg}))
}
