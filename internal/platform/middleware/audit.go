package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/shorouk/radiology/internal/platform/auth"
)

// AuditEntry is one PHI access: who touched which record, how, and the result.
type AuditEntry struct {
	Timestamp  time.Time
	RequestID  string
	UserID     string
	Role       string
	Resource   string
	Action     string
	PatientSSN string
	VisitID    string
	Method     string
	Path       string
	IPAddress  string
	UserAgent  string
	StatusCode int
}

// Audit logs every request that reaches patient data as a type=phi_audit
// event. It runs after authentication so the caller is known. The SSN is
// logged masked.
func Audit(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			resource := resourceForPath(req.URL.Path)
			if resource == "" {
				return next(c)
			}

			err := next(c)

			entry := AuditEntry{
				Timestamp:  time.Now().UTC(),
				UserID:     auth.UserIDFromContext(req.Context()),
				Resource:   resource,
				Action:     httpMethodToAction(req.Method),
				PatientSSN: extractPatientSSN(c),
				VisitID:    extractVisitID(c),
				Method:     req.Method,
				Path:       req.URL.Path,
				IPAddress:  c.RealIP(),
				UserAgent:  req.UserAgent(),
				StatusCode: c.Response().Status,
			}
			if he, ok := err.(*echo.HTTPError); ok {
				entry.StatusCode = he.Code
			}
			if roles := auth.RolesFromContext(req.Context()); len(roles) > 0 {
				entry.Role = roles[0]
			}
			entry.RequestID, _ = c.Get("request_id").(string)

			evt := logger.Info()
			if entry.StatusCode == http.StatusForbidden || entry.StatusCode == http.StatusUnauthorized {
				evt = logger.Warn()
			}
			evt.
				Str("type", "phi_audit").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Str("role", entry.Role).
				Str("resource", entry.Resource).
				Str("action", entry.Action).
				Str("patient_ssn", maskSSN(entry.PatientSSN)).
				Str("visit_id", entry.VisitID).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("phi_access")

			return err
		}
	}
}

// resourceForPath classifies a request path. An empty result means the path
// does not expose patient data and is not audited.
func resourceForPath(path string) string {
	p := strings.TrimPrefix(path, "/api/v1")
	switch {
	case strings.Contains(p, "patient"):
		return "patient"
	case strings.Contains(p, "radiology"):
		return "radiology_assessment"
	case strings.Contains(p, "nurse-form"), strings.HasPrefix(p, "/nurse/assessment"), strings.HasPrefix(p, "/admin/assessments"):
		return "nursing_assessment"
	case strings.Contains(p, "visits"):
		return "visit"
	case strings.HasPrefix(p, "/signatures"):
		return "signature"
	case p == "/nurse" || p == "/doctor" || strings.HasPrefix(p, "/nurse/") || strings.HasPrefix(p, "/doctor/"):
		return "worklist"
	default:
		return ""
	}
}

func httpMethodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

func extractPatientSSN(c echo.Context) string {
	if ssn := c.Param("ssn"); ssn != "" {
		return ssn
	}
	return c.QueryParam("ssn")
}

func extractVisitID(c echo.Context) string {
	if id := c.Param("visitId"); id != "" {
		return id
	}
	return c.QueryParam("visit_id")
}

func maskSSN(ssn string) string {
	if len(ssn) <= 4 {
		return ssn
	}
	return strings.Repeat("*", len(ssn)-4) + ssn[len(ssn)-4:]
}
