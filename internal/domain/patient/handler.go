package patient

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/shorouk/radiology/internal/platform/apperr"
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
	nurse := g.Group("/nurse", auth.RequireRole(auth.RoleNurse))
	nurse.POST("/search-patient", h.Lookup)
	nurse.POST("/add-patient", h.Create)

	admin := g.Group("/admin/patients", auth.RequireRole(auth.RoleAdmin))
	admin.GET("", h.List)
	admin.POST("", h.Create)
	admin.GET("/:ssn", h.Get)
	admin.PUT("/:ssn", h.Update)
	admin.DELETE("/:ssn", h.Delete)

	g.GET("/patients/search", h.Search, auth.RequireRole(auth.RoleAdmin, auth.RoleNurse, auth.RolePhysician))
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Patient not found")
	case errors.Is(err, ErrExists):
		return echo.NewHTTPError(http.StatusConflict, "Patient with this SSN or medical number already exists")
	case errors.Is(err, ErrBadSSN):
		return echo.NewHTTPError(http.StatusBadRequest, ErrBadSSN.Error())
	case errors.Is(err, apperr.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return err
}

// Lookup finds a patient by the SSN posted from the intake search box.
func (h *Handler) Lookup(c echo.Context) error {
	var req struct {
		SSN string `json:"ssn" form:"ssn"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.GetBySSN(c.Request().Context(), req.SSN)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, NewView(p, h.svc.Now()))
}

func (h *Handler) Get(c echo.Context) error {
	p, err := h.svc.GetBySSN(c.Request().Context(), c.Param("ssn"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, NewView(p, h.svc.Now()))
}

func (h *Handler) Create(c echo.Context) error {
	var in Input
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, NewView(p, h.svc.Now()))
}

func (h *Handler) Update(c echo.Context) error {
	var in Input
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.Update(c.Request().Context(), c.Param("ssn"), in)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, NewView(p, h.svc.Now()))
}

func (h *Handler) Delete(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), c.Param("ssn")); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := ListFilter{
		Search: c.QueryParam("search"),
		Gender: c.QueryParam("gender"),
	}
	var err error
	if f.DateFrom, err = parseDate(c.QueryParam("date_from")); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date_from must be YYYY-MM-DD")
	}
	if f.DateTo, err = parseDate(c.QueryParam("date_to")); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date_to must be YYYY-MM-DD")
	}

	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	now := h.svc.Now()
	views := make([]View, 0, len(items))
	for _, p := range items {
		views = append(views, NewView(p, now))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(views, total, pg))
}

func (h *Handler) Search(c echo.Context) error {
	items, err := h.svc.Search(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
