package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserRolesKey contextKey = "user_roles"
	PrincipalKey contextKey = "principal"
)

const (
	RoleAdmin     = "admin"
	RoleNurse     = "nurse"
	RolePhysician = "physician"
)

// Principal is the authenticated caller, whichever adapter produced it.
type Principal struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// WithPrincipal stores p on ctx. Both the session and the bearer adapter call
// this so handlers and RequireRole never know which one ran.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	ctx = context.WithValue(ctx, PrincipalKey, p)
	ctx = context.WithValue(ctx, UserIDKey, p.UserID)
	ctx = context.WithValue(ctx, UserRolesKey, []string{p.Role})
	return ctx
}

func setPrincipal(c echo.Context, p *Principal) {
	c.SetRequest(c.Request().WithContext(WithPrincipal(c.Request().Context(), p)))
	c.Set("user_id", p.UserID)
	c.Set("role", p.Role)
}

// JWTConfig configures the bearer adapter.
type JWTConfig struct {
	Tokens  *TokenIssuer
	Revoked RevocationStore
	// Skipper lets public paths through without a token.
	Skipper func(c echo.Context) bool
}

// JWTMiddleware authenticates "Authorization: Bearer <access token>". Refresh
// tokens and revoked tokens are rejected with 401.
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			tokenStr, err := bearerToken(c.Request())
			if err != nil {
				return err
			}

			claims, err := cfg.Tokens.Parse(tokenStr, TokenTypeAccess)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			if cfg.Revoked != nil {
				revoked, err := cfg.Revoked.IsRevoked(c.Request().Context(), claims.ID)
				if err != nil {
					return echo.NewHTTPError(http.StatusServiceUnavailable, "token check unavailable")
				}
				if revoked {
					return echo.NewHTTPError(http.StatusUnauthorized, "token has been revoked")
				}
			}

			setPrincipal(c, claims.Principal())
			c.Set("jwt_claims", claims)
			return next(c)
		}
	}
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
	}
	return strings.TrimSpace(parts[1]), nil
}

// ClaimsFromContext returns the parsed access token claims set by JWTMiddleware.
func ClaimsFromContext(c echo.Context) *Claims {
	claims, _ := c.Get("jwt_claims").(*Claims)
	return claims
}

func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(PrincipalKey).(*Principal)
	return p
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(UserRolesKey).([]string)
	return roles
}
