package echoapi

import (
	"fmt"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/studio/core"
	"github.com/trezcool/studio/core/payment"
	"github.com/trezcool/studio/core/roster"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "staff member not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errHTTPForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHTTPNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

const (
	tagHTTPError     = "HTTP_ERROR"
	tagInternalError = "INTERNAL_ERROR"
)

var (
	paymentStatuses = map[payment.Kind]int{
		payment.KindValidation:         http.StatusBadRequest,
		payment.KindDuplicatePayment:   http.StatusConflict,
		payment.KindStudentNotFound:    http.StatusNotFound,
		payment.KindClassNotFound:      http.StatusNotFound,
		payment.KindStudentNotEnrolled: http.StatusUnprocessableEntity,
		payment.KindInvalidAmount:      http.StatusUnprocessableEntity,
		payment.KindPermissionDenied:   http.StatusForbidden,
		payment.KindUnauthenticated:    http.StatusUnauthorized,
		payment.KindInFlight:           http.StatusConflict,
	}

	rosterStatuses = map[error]int{
		roster.ErrConflict:        http.StatusConflict,
		roster.ErrNotFound:        http.StatusNotFound,
		roster.ErrClassNotFound:   http.StatusNotFound,
		roster.ErrStudentNotFound: http.StatusNotFound,
		roster.ErrTeacherNotFound: http.StatusNotFound,
		roster.ErrClassFull:       http.StatusUnprocessableEntity,
	}

	httpTags = map[int]string{
		http.StatusBadRequest:   payment.KindValidation.WireTag(),
		http.StatusUnauthorized: payment.KindUnauthenticated.WireTag(),
		http.StatusForbidden:    payment.KindPermissionDenied.WireTag(),
		http.StatusNotFound:     roster.ErrorType(roster.ErrNotFound),
	}
)

func validationBody(message string, fields []core.FieldError) payment.ErrorBody {
	vErr := core.ValidationError{Fields: fields}
	if message == "" {
		message = vErr.Error()
	}
	return payment.ErrorBody{
		ErrorType: payment.KindValidation.WireTag(),
		Message:   message,
		Fields:    vErr.FieldMap(),
	}
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler writing `{"errorType", "message"}` bodies.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var body payment.ErrorBody

		var pErr *payment.Error
		cause := errors.Cause(err)
		switch {
		case errors.As(err, &pErr) && pErr.Kind != payment.KindTransport:
			code = http.StatusInternalServerError
			if status, ok := paymentStatuses[pErr.Kind]; ok {
				code = status
			} else if pErr.Tag == payment.TagPaymentNotFound {
				code = http.StatusNotFound
			}
			body = pErr.Body()
		case roster.ErrorType(cause) != "":
			code = rosterStatuses[cause]
			body = payment.ErrorBody{ErrorType: roster.ErrorType(cause), Message: cause.Error()}
		default:
			switch origErr := cause.(type) {
			case *echo.HTTPError:
				if origErr == middleware.ErrJWTMissing {
					origErr = echo.NewHTTPError(http.StatusUnauthorized, origErr.Message)
				}
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
				code = origErr.Code
				tag, ok := httpTags[code]
				if !ok {
					tag = tagHTTPError
				}
				body = payment.ErrorBody{ErrorType: tag, Message: fmt.Sprint(origErr.Message)}
			case validator.ValidationErrors:
				flds, _ := core.TranslateErrors(origErr, translator)
				code = http.StatusBadRequest
				body = validationBody("", flds)
			case *core.ValidationError:
				code = http.StatusBadRequest
				body = validationBody(origErr.Error(), origErr.Fields)
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				body = payment.ErrorBody{ErrorType: tagInternalError, Message: msg}
				if ctx.Echo().Debug {
					body.Message = err.Error()
				}
				logger.Error(msg, errors.Wrap(err, msg), contextStaff(ctx))
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, body)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
