package account

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/shorouk/radiology/internal/platform/auth"
)

func statusOf(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return 0
}

func TestSessionHandler_LoginSetsCookie(t *testing.T) {
	f := newFixture(t)
	sessions := auth.NewSessionManager(auth.NewMemorySessionStore(), "cookie-secret", 8*time.Hour, false)
	h, e := NewSessionHandler(f.svc, sessions), echo.New()

	form := url.Values{"username": {"sara"}, "password": {"secret1"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	if err := h.Login(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !strings.Contains(rec.Header().Get("Set-Cookie"), auth.SessionCookieName+"=") {
		t.Errorf("no session cookie in %q", rec.Header().Get("Set-Cookie"))
	}
	if !strings.Contains(rec.Body.String(), `"redirect":"/nurse"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"sara","password":"nope"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if err := h.Login(e.NewContext(req, httptest.NewRecorder())); statusOf(err) != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestTokenHandler_LoginAndRefresh(t *testing.T) {
	f := newFixture(t)
	h, e := NewTokenHandler(f.svc), echo.New()

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"sara","password":"secret1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.Login(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Login: %v", err)
	}
	var body struct {
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.RefreshToken == "" || body.TokenType != "Bearer" {
		t.Fatalf("unexpected login response %s", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/auth/refresh", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if err := h.Refresh(e.NewContext(req, httptest.NewRecorder())); statusOf(err) != http.StatusBadRequest {
		t.Errorf("expected 400 for missing token, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/auth/refresh", strings.NewReader(`{"refresh_token":"garbage"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if err := h.Refresh(e.NewContext(req, httptest.NewRecorder())); statusOf(err) != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad token, got %v", err)
	}
}

func TestTokenHandler_ChangePassword(t *testing.T) {
	f := newFixture(t)
	h, e := NewTokenHandler(f.svc), echo.New()
	id := f.users.nurse().ID.String()

	call := func(body string) error {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/change-password", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req = req.WithContext(auth.WithPrincipal(req.Context(), &auth.Principal{UserID: id, Role: auth.RoleNurse}))
		return h.ChangePassword(e.NewContext(req, httptest.NewRecorder()))
	}

	if err := call(`{"current_password":"bad","new_password":"another1"}`); statusOf(err) != http.StatusBadRequest {
		t.Errorf("expected 400 for wrong password, got %v", err)
	}
	if err := call(`{"current_password":"secret1"}`); statusOf(err) != http.StatusBadRequest {
		t.Errorf("expected 400 for missing new password, got %v", err)
	}
	if err := call(`{"current_password":"secret1","new_password":"another1"}`); err != nil {
		t.Fatal(err)
	}
	if f.users.changed[id] != "another1" {
		t.Error("password not changed")
	}
}
