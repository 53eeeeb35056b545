package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/shorouk/radiology/internal/platform/metrics"
)

// Metrics records request counts and latency by route template, so
// /admin/patients/:ssn is one series rather than one per patient.
func Metrics(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.ObserveRequest(c.Request().Method, route, status, time.Since(start).Seconds())
			return err
		}
	}
}
