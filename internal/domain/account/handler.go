package account

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shorouk/radiology/internal/domain/user"
	"github.com/shorouk/radiology/internal/platform/auth"
)

type credentials struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type passwordChange struct {
	CurrentPassword string `json:"current_password" form:"current_password"`
	NewPassword     string `json:"new_password" form:"new_password"`
}

func mapError(err error) error {
	if errors.Is(err, ErrInvalidRefresh) {
		return echo.NewHTTPError(http.StatusUnauthorized, ErrInvalidRefresh.Error())
	}
	return user.MapError(err)
}

// SessionHandler is the cookie-session adapter used by the browser.
type SessionHandler struct {
	svc      *Service
	sessions *auth.SessionManager
}

func NewSessionHandler(svc *Service, sessions *auth.SessionManager) *SessionHandler {
	return &SessionHandler{svc: svc, sessions: sessions}
}

// RegisterRoutes mounts /login and /logout on e, which need no session, and
// /me on the session-protected group.
func (h *SessionHandler) RegisterRoutes(e *echo.Echo, web *echo.Group) {
	e.POST("/login", h.Login)
	e.POST("/logout", h.Logout)
	web.GET("/me", h.Me)
}

func (h *SessionHandler) Login(c echo.Context) error {
	var in credentials
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	u, err := h.svc.Login(c.Request().Context(), AdapterSession, in.Username, in.Password)
	if err != nil {
		return mapError(err)
	}
	if _, err := h.sessions.Start(c, u.Principal()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":  true,
		"user":     user.NewView(u),
		"redirect": auth.HomePath(u.Role),
	})
}

func (h *SessionHandler) Logout(c echo.Context) error {
	if err := h.sessions.End(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "redirect": "/login"})
}

func (h *SessionHandler) Me(c echo.Context) error {
	ctx := c.Request().Context()
	u, err := h.svc.Profile(ctx, auth.UserIDFromContext(ctx))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, user.NewView(u))
}

// TokenHandler is the bearer adapter under /api/auth.
type TokenHandler struct {
	svc *Service
}

func NewTokenHandler(svc *Service) *TokenHandler {
	return &TokenHandler{svc: svc}
}

// RegisterRoutes mounts login and refresh openly and the rest behind
// requireToken.
func (h *TokenHandler) RegisterRoutes(g *echo.Group, requireToken echo.MiddlewareFunc) {
	g.POST("/login", h.Login)
	g.POST("/refresh", h.Refresh)
	g.POST("/logout", h.Logout, requireToken)
	g.GET("/profile", h.Profile, requireToken)
	g.POST("/change-password", h.ChangePassword, requireToken)
}

func (h *TokenHandler) Login(c echo.Context) error {
	var in credentials
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	pair, u, err := h.svc.LoginTokens(c.Request().Context(), in.Username, in.Password)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"token_type":    pair.TokenType,
		"expires_in":    pair.ExpiresIn,
		"user":          user.NewView(u),
	})
}

func (h *TokenHandler) Refresh(c echo.Context) error {
	var body struct {
		RefreshToken string `json:"refresh_token" form:"refresh_token"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if body.RefreshToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "refresh_token is required")
	}
	pair, err := h.svc.Refresh(c.Request().Context(), body.RefreshToken)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, pair)
}

func (h *TokenHandler) Logout(c echo.Context) error {
	var body struct {
		RefreshToken string `json:"refresh_token" form:"refresh_token"`
	}
	_ = c.Bind(&body)
	if err := h.svc.Logout(c.Request().Context(), auth.ClaimsFromContext(c), body.RefreshToken); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *TokenHandler) Profile(c echo.Context) error {
	ctx := c.Request().Context()
	u, err := h.svc.Profile(ctx, auth.UserIDFromContext(ctx))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, user.NewView(u))
}

func (h *TokenHandler) ChangePassword(c echo.Context) error {
	var in passwordChange
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if in.CurrentPassword == "" || in.NewPassword == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "current_password and new_password are required")
	}
	ctx := c.Request().Context()
	if err := h.svc.ChangePassword(ctx, auth.UserIDFromContext(ctx), in.CurrentPassword, in.NewPassword); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "message": "Password changed successfully"})
}
