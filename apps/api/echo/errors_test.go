package echoapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studio/core/payment"
	"github.com/trezcool/studio/core/roster"
	"github.com/trezcool/studio/testutil"
)

func TestAppHTTPErrorHandler(t *testing.T) {
	_, translator := payment.NewValidator()

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantTag  string
		wantLogs int
	}{
		{
			name:     "unexpected error",
			err:      errors.Wrap(errors.New("disk on fire"), "saving payment"),
			wantCode: http.StatusInternalServerError,
			wantTag:  tagInternalError,
			wantLogs: 1,
		},
		{
			name:     "payment error",
			err:      errors.Wrap(payment.NewError(payment.KindDuplicatePayment, "Ballet is already paid for 2024-03"), "submitting payment"),
			wantCode: http.StatusConflict,
			wantTag:  payment.KindDuplicatePayment.WireTag(),
		},
		{
			name:     "roster error",
			err:      errors.Wrap(roster.ErrClassFull, "enrolling student"),
			wantCode: http.StatusUnprocessableEntity,
			wantTag:  roster.ErrorType(roster.ErrClassFull),
		},
		{
			name:     "http error",
			err:      errHTTPForbidden,
			wantCode: http.StatusForbidden,
			wantTag:  payment.KindPermissionDenied.WireTag(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &testutil.Logger{}
			handler := newAppHTTPErrorHandler(logger, translator)

			e := echo.New()
			rec := httptest.NewRecorder()
			handler(tt.err, e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/payments", nil), rec))

			require.Equal(t, tt.wantCode, rec.Code)
			var body payment.ErrorBody
			decode(t, rec, &body)
			assert.Equal(t, tt.wantTag, body.ErrorType)
			assert.Len(t, logger.Entries, tt.wantLogs)
		})
	}
}

func TestServer_keepsServingAfterInternalError(t *testing.T) {
	app := setup(t)
	app.app.GET("/v1/boom", func(echo.Context) error {
		return errors.New("integrity check failed")
	})

	app.run(t, []httpTest{
		{name: "failing route", path: "/v1/boom", token: app.token, wantCode: http.StatusInternalServerError, wantErr: tagInternalError},
		{name: "next request", path: "/v1/classes", token: app.token, wantCode: http.StatusOK},
	})
}
