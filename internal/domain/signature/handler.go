package signature

import (
	"errors"
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
	mine := g.Group("/signatures/me", auth.RequireRole(auth.RoleNurse, auth.RolePhysician))
	mine.GET("", h.GetMine)
	mine.PUT("", h.SaveMine)
}

func (h *Handler) GetMine(c echo.Context) error {
	ctx := c.Request().Context()
	sig, err := h.svc.GetUserSignature(ctx, auth.UserIDFromContext(ctx))
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "No signature on file")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sig)
}

func (h *Handler) SaveMine(c echo.Context) error {
	var req struct {
		Data string `json:"signature_data" form:"signature_data"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	id, err := h.svc.SaveUserSignature(ctx, auth.UserIDFromContext(ctx), req.Data)
	if errors.Is(err, ErrInvalidData) {
		return echo.NewHTTPError(http.StatusBadRequest, ErrInvalidData.Error())
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"signature_id": id})
}
