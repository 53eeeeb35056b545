package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/shorouk/radiology/internal/platform/auth"
)

func TestAudit_LogsPatientAccess(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/admin/patients/29901011234567", nil)
	p := &auth.Principal{UserID: "u-1", Username: "admin", Role: auth.RoleAdmin}
	req = req.WithContext(auth.WithPrincipal(req.Context(), p))
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("ssn")
	c.SetParamValues("29901011234567")

	err := Audit(zerolog.New(&buf))(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode audit line: %v", err)
	}
	if entry["type"] != "phi_audit" {
		t.Errorf("expected type phi_audit, got %v", entry["type"])
	}
	if entry["resource"] != "patient" || entry["action"] != "read" {
		t.Errorf("unexpected resource/action: %v/%v", entry["resource"], entry["action"])
	}
	if entry["patient_ssn"] != "**********4567" {
		t.Errorf("expected masked ssn, got %v", entry["patient_ssn"])
	}
	if entry["user_id"] != "u-1" || entry["role"] != "admin" {
		t.Errorf("expected caller in audit entry, got %v/%v", entry["user_id"], entry["role"])
	}
}

func TestAudit_SkipsNonPHIPaths(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), httptest.NewRecorder())

	_ = Audit(zerolog.New(&buf))(func(c echo.Context) error { return nil })(c)

	if buf.Len() != 0 {
		t.Errorf("expected no audit entry, got %s", buf.String())
	}
}

func TestAudit_WarnsOnDenied(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/submit-radiology-form", nil)
	req = req.WithContext(context.WithValue(req.Context(), auth.UserIDKey, "u-2"))
	c := e.NewContext(req, httptest.NewRecorder())

	_ = Audit(zerolog.New(&buf))(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusForbidden, "required role: physician")
	})(c)

	var entry map[string]interface{}
	_ = json.Unmarshal(buf.Bytes(), &entry)
	if entry["level"] != "warn" || entry["status"] != float64(403) {
		t.Errorf("expected warn entry with 403, got %v", entry)
	}
	if entry["resource"] != "radiology_assessment" || entry["action"] != "create" {
		t.Errorf("unexpected resource/action: %v/%v", entry["resource"], entry["action"])
	}
}

func TestResourceForPath(t *testing.T) {
	tests := map[string]string{
		"/admin/patients":            "patient",
		"/api/v1/patients/123":       "patient",
		"/submit-radiology-form":     "radiology_assessment",
		"/doctor/radiology/visit-1":  "radiology_assessment",
		"/submit-nurse-form":         "nursing_assessment",
		"/nurse/assessment/visit-1":  "nursing_assessment",
		"/admin/assessments/nurse-1": "nursing_assessment",
		"/admin/visits":              "visit",
		"/signatures/me":             "signature",
		"/nurse":                     "worklist",
		"/doctor":                    "worklist",
		"/health":                    "",
		"/login":                     "",
		"/metrics":                   "",
	}
	for path, want := range tests {
		if got := resourceForPath(path); got != want {
			t.Errorf("resourceForPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestMaskSSN(t *testing.T) {
	if got := maskSSN("12345678901234"); got != "**********1234" {
		t.Errorf("maskSSN = %q", got)
	}
	if got := maskSSN("123"); got != "123" {
		t.Errorf("short ssn should be unchanged, got %q", got)
	}
	if got := maskSSN(""); got != "" {
		t.Errorf("empty ssn should stay empty, got %q", got)
	}
}

func TestHTTPMethodToAction(t *testing.T) {
	tests := map[string]string{
		http.MethodGet:    "read",
		http.MethodPost:   "create",
		http.MethodPut:    "update",
		http.MethodPatch:  "update",
		http.MethodDelete: "delete",
	}
	for m, want := range tests {
		if got := httpMethodToAction(m); got != want {
			t.Errorf("httpMethodToAction(%s) = %s, want %s", m, got, want)
		}
	}
}
