package signature

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/shorouk/radiology/internal/platform/auth"
)

func authedContext(e *echo.Echo, method, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, "/signatures/me", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(auth.WithPrincipal(req.Context(), &auth.Principal{UserID: "nurse-1", Role: auth.RoleNurse}))
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_SaveAndGetMine(t *testing.T) {
	h := NewHandler(NewService(newMockRepo(), nil))
	e := echo.New()

	c, _ := authedContext(e, http.MethodGet, "")
	var he *echo.HTTPError
	if err := h.GetMine(c); !errors.As(err, &he) || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before saving, got %v", err)
	}

	c, rec := authedContext(e, http.MethodPut, `{"signature_data":"`+sigA+`"}`)
	if err := h.SaveMine(c); err != nil {
		t.Fatalf("SaveMine: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"signature_id":"sig-`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}

	c, rec = authedContext(e, http.MethodGet, "")
	if err := h.GetMine(c); err != nil {
		t.Fatalf("GetMine: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "iVBORw0KGgo") {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_SaveMine_Invalid(t *testing.T) {
	h := NewHandler(NewService(newMockRepo(), nil))
	c, _ := authedContext(echo.New(), http.MethodPut, `{"signature_data":"scribble"}`)
	var he *echo.HTTPError
	if err := h.SaveMine(c); !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}
