package middleware

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// formPaths accept signature images and therefore get the larger limit.
var formPaths = map[string]bool{
	"/submit-nurse-form":            true,
	"/submit-radiology-form":        true,
	"/signatures/me":                true,
	"/api/v1/submit-nurse-form":     true,
	"/api/v1/submit-radiology-form": true,
	"/api/v1/signatures/me":         true,
}

// BodyLimit caps request bodies at defaultLimit, or formLimit for the form
// submission endpoints. Limits are strings such as "512K", "1M" or "5MB".
func BodyLimit(defaultLimit, formLimit string) echo.MiddlewareFunc {
	defaultBytes := parseLimit(defaultLimit)
	formBytes := parseLimit(formLimit)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}

			limit := defaultBytes
			if formPaths[req.URL.Path] {
				limit = formBytes
			}

			if req.ContentLength > limit {
				return tooLarge(limit)
			}

			req.Body = &limitedReadCloser{ReadCloser: req.Body, remaining: limit, limit: limit}
			return next(c)
		}
	}
}

// limitedReadCloser enforces the limit when Content-Length is absent or wrong.
type limitedReadCloser struct {
	io.ReadCloser
	remaining int64
	limit     int64
	exceeded  bool
}

func (r *limitedReadCloser) Read(p []byte) (int, error) {
	if r.exceeded {
		return 0, tooLarge(r.limit)
	}

	if int64(len(p)) > r.remaining+1 {
		p = p[:r.remaining+1]
	}
	n, err := r.ReadCloser.Read(p)
	r.remaining -= int64(n)

	if r.remaining < 0 {
		r.exceeded = true
		return 0, tooLarge(r.limit)
	}
	return n, err
}

func tooLarge(limit int64) error {
	return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
		fmt.Sprintf("request body exceeds maximum allowed size of %d bytes", limit))
}

// parseLimit defaults to 1 MB when s is empty or malformed.
func parseLimit(s string) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 1 << 20
	}
	s = strings.TrimSuffix(s, "B")

	var multiplier int64 = 1
	switch {
	case strings.HasSuffix(s, "G"):
		multiplier = 1 << 30
	case strings.HasSuffix(s, "M"):
		multiplier = 1 << 20
	case strings.HasSuffix(s, "K"):
		multiplier = 1 << 10
	}
	s = strings.TrimRight(s, "GMK")

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 1 << 20
	}
	return n * multiplier
}
