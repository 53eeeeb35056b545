package dashboard

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shorouk/radiology/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/nurse", h.Nurse, auth.RequireRole(auth.RoleNurse))
	g.GET("/doctor", h.Doctor, auth.RequireRole(auth.RolePhysician))
	g.GET("/admin", h.Admin, auth.RequireRole(auth.RoleAdmin))
}

func (h *Handler) Nurse(c echo.Context) error {
	ctx := c.Request().Context()
	d, err := h.svc.Nurse(ctx, auth.UserIDFromContext(ctx))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Doctor(c echo.Context) error {
	d, err := h.svc.RadiologyQueue(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Admin(c echo.Context) error {
	st, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}
