package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireRole allows the request through only when the caller's role is in
// roles. There is no implicit superuser: admin routes list admin explicitly.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRoles := RolesFromContext(c.Request().Context())
			if len(userRoles) == 0 {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			for _, has := range userRoles {
				if allowed[has] {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

// DisplayRole is the human label shown on dashboards.
func DisplayRole(role string) string {
	switch role {
	case RoleAdmin:
		return "Administrator"
	case RoleNurse:
		return "Nurse"
	case RolePhysician:
		return "Physician"
	default:
		return role
	}
}

func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleNurse || role == RolePhysician
}

// HomePath is where a freshly logged-in user lands.
func HomePath(role string) string {
	switch role {
	case RoleAdmin:
		return "/admin"
	case RoleNurse:
		return "/nurse"
	case RolePhysician:
		return "/doctor"
	default:
		return "/login"
	}
}
