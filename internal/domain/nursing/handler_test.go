package nursing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/shorouk/radiology/internal/domain/signature"
	"github.com/shorouk/radiology/internal/platform/auth"
)

func nurseRequest(method, target, contentType, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	return req.WithContext(auth.WithPrincipal(req.Context(), &auth.Principal{UserID: "nurse-1", Role: auth.RoleNurse}))
}

func statusOf(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return 0
}

func TestHandler_SubmitFormPost(t *testing.T) {
	fx := newFixture()
	h, e := NewHandler(fx.svc), echo.New()

	form := url.Values{}
	form.Set("visit_id", "visit-1")
	form.Set("action", "draft")
	form.Set("chief_complaint", "Back pain")
	form.Set("pulse_bpm", "")
	form.Set("has_allergies", "on")
	form.Set("morse_ambulatory_aid", "15")
	rec := httptest.NewRecorder()
	req := nurseRequest(http.MethodPost, "/submit-nurse-form", echo.MIMEApplicationForm, form.Encode())

	if err := h.Submit(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "Draft saved successfully") {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
	stored := fx.repo.byVisit["visit-1"]
	if !stored.HasAllergies || stored.PulseBPM != nil || stored.MorseTotalScore != 15 {
		t.Errorf("unexpected stored assessment %+v", stored)
	}
}

func TestHandler_SubmitErrors(t *testing.T) {
	fx := newFixture()
	h, e := NewHandler(fx.svc), echo.New()
	if _, err := fx.svc.Submit(context.Background(), "nurse-1", finalForm()); err != nil {
		t.Fatal(err)
	}

	body := `{"visit_id":"visit-1","chief_complaint":"Updated complaint","nurse_signature":"` + testSignature + `"}`
	err := h.Submit(e.NewContext(nurseRequest(http.MethodPost, "/", echo.MIMEApplicationJSON, body), httptest.NewRecorder()))
	if statusOf(err) != http.StatusForbidden {
		t.Errorf("expected 403 for locked assessment, got %v", err)
	}
	if he := err.(*echo.HTTPError); !strings.Contains(he.Message.(string), "cannot be modified") {
		t.Errorf("unexpected message %v", he.Message)
	}

	tests := []struct {
		err  error
		code int
	}{
		{ErrSignatureRequired, http.StatusBadRequest},
		{ErrVisitNotFound, http.StatusNotFound},
		{signature.ErrInvalidData, http.StatusBadRequest},
	}
	for _, tt := range tests {
		if got := statusOf(mapError(tt.err)); got != tt.code {
			t.Errorf("mapError(%v) = %d, want %d", tt.err, got, tt.code)
		}
	}
}

func TestHandler_Resume(t *testing.T) {
	fx := newFixture()
	h, e := NewHandler(fx.svc), echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(nurseRequest(http.MethodGet, "/", "", ""), rec)
	c.SetParamNames("visitId")
	c.SetParamValues("visit-1")
	if err := h.Resume(c); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"assessment":null`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}

	c = e.NewContext(nurseRequest(http.MethodGet, "/", "", ""), httptest.NewRecorder())
	c.SetParamNames("visitId")
	c.SetParamValues("visit-404")
	if got := statusOf(h.Resume(c)); got != http.StatusNotFound {
		t.Errorf("expected 404, got %d", got)
	}
}

func TestHandler_ListMine(t *testing.T) {
	fx := newFixture()
	h, e := NewHandler(fx.svc), echo.New()

	rec := httptest.NewRecorder()
	if err := h.ListMine(e.NewContext(nurseRequest(http.MethodGet, "/", "", ""), rec)); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected empty array, got %s", rec.Body.String())
	}
}
