package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// RequestTimeout bounds every request by d. Only the request context carries
// the deadline: it rides into pgx so an overrunning query is cancelled
// server-side, and the handler itself always runs to completion on the
// request goroutine. The WebSocket upgrade is exempt because its handler
// lives as long as the socket.
func RequestTimeout(d time.Duration) echo.MiddlewareFunc {
	if d <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return echomw.ContextTimeoutWithConfig(echomw.ContextTimeoutConfig{
		Timeout: d,
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/ws"
		},
		ErrorHandler: timeoutError,
	})
}

// timeoutError reports 504 when the handler failed because its deadline
// passed, whatever the handler mapped the error to.
func timeoutError(err error, c echo.Context) error {
	expired := errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(c.Request().Context().Err(), context.DeadlineExceeded)
	if !expired || c.Response().Committed {
		return err
	}
	return echo.NewHTTPError(http.StatusGatewayTimeout, "request timed out").SetInternal(err)
}
