package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ErrorResponse is the JSON body for every error the API returns.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// HTTPErrorHandler renders errors as JSON. 4xx messages are written by
// handlers for the end user and are always shown. 5xx messages are replaced
// with a generic text unless verbose is set (development).
func HTTPErrorHandler(logger zerolog.Logger, verbose bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		msg := http.StatusText(code)

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			} else {
				msg = http.StatusText(code)
			}
		}

		rid, _ := c.Get("request_id").(string)
		if code >= http.StatusInternalServerError {
			internal := err
			if he != nil && he.Internal != nil {
				internal = he.Internal
			}
			logger.Error().Err(internal).Str("request_id", rid).Str("path", c.Request().URL.Path).Msg("request failed")
			if verbose {
				msg = internal.Error()
			} else {
				msg = "internal server error"
			}
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(code)
		} else {
			writeErr = c.JSON(code, ErrorResponse{Error: msg, RequestID: rid})
		}
		if writeErr != nil {
			logger.Error().Err(writeErr).Msg("write error response")
		}
	}
}
