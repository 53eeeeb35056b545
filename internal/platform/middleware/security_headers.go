package middleware

import (
	"github.com/labstack/echo/v4"
)

// SecurityHeaders sets response headers for pages and JSON that carry PHI.
// The CSP permits same-origin scripts and data: images because signature
// pads render captured signatures as data URLs.
func SecurityHeaders(hsts bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-XSS-Protection", "0")
			h.Set("Content-Security-Policy",
				"default-src 'self'; img-src 'self' data:; connect-src 'self' ws: wss:; frame-ancestors 'none'; form-action 'self'")
			if hsts {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			h.Set("Referrer-Policy", "same-origin")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			// Responses may contain PHI.
			h.Set("Cache-Control", "no-store")

			return next(c)
		}
	}
}
