package assessment

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shorouk/radiology/internal/domain/visit"
	"github.com/shorouk/radiology/internal/platform/auth"
	"github.com/shorouk/radiology/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	admin := auth.RequireRole(auth.RoleAdmin)
	g.GET("/admin/assessments", h.List, admin)
	g.GET("/admin/assessments/:id", h.Get, admin)
	g.DELETE("/admin/assessments/:id", h.Delete, admin)
	g.GET("/admin/visits/:visitId/print", h.Print, admin)
}

func mapError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Assessment not found")
	}
	return visit.MapError(err)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := ListFilter{
		Kind:   c.QueryParam("type"),
		Status: c.QueryParam("status"),
		Search: c.QueryParam("search"),
	}
	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) Get(c echo.Context) error {
	d, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Delete(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Print(c echo.Context) error {
	rec, err := h.svc.GetForPrint(c.Request().Context(), c.Param("visitId"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, rec)
}
