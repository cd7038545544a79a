package echoapi

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// roleMiddleware only lets through staff holding one of roles.
func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if _, err := getContextClaims(ctx); err != nil {
				return err
			}
			if contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHTTPForbidden
		}
	}
}

// requestIDMiddleware tags every request & response with an X-Request-ID.
func requestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		rid := ctx.Request().Header.Get(echo.HeaderXRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		ctx.Response().Header().Set(echo.HeaderXRequestID, rid)
		return next(ctx)
	}
}
