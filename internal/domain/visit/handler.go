package visit

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/shorouk/radiology/internal/domain/patient"
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
	g.POST("/nurse/visits", h.Create, auth.RequireRole(auth.RoleNurse))
	g.POST("/doctor/search-patient", h.DoctorSearch, auth.RequireRole(auth.RolePhysician))

	admin := g.Group("/admin/visits", auth.RequireRole(auth.RoleAdmin))
	admin.GET("", h.List)
	admin.POST("", h.Create)
	admin.GET("/:visitId", h.Get)
	admin.PUT("/:visitId", h.Update)
	admin.DELETE("/:visitId", h.Delete)
}

// MapError is shared with the packages that look visits up on the way to
// their own work.
func MapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Visit not found")
	case errors.Is(err, ErrPatientNotFound), errors.Is(err, patient.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Patient not found")
	case errors.Is(err, patient.ErrBadSSN):
		return echo.NewHTTPError(http.StatusBadRequest, patient.ErrBadSSN.Error())
	case errors.Is(err, ErrInvalidStatus):
		return echo.NewHTTPError(http.StatusBadRequest, ErrInvalidStatus.Error())
	case errors.Is(err, apperr.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return err
}

func (h *Handler) Create(c echo.Context) error {
	var in Input
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	v, err := h.svc.Create(ctx, auth.UserIDFromContext(ctx), in)
	if err != nil {
		return MapError(err)
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) Get(c echo.Context) error {
	v, err := h.svc.Get(c.Request().Context(), c.Param("visitId"))
	if err != nil {
		return MapError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) Update(c echo.Context) error {
	var in Input
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	v, err := h.svc.Update(c.Request().Context(), c.Param("visitId"), in)
	if err != nil {
		return MapError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) Delete(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), c.Param("visitId")); err != nil {
		return MapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := ListFilter{
		Search:     c.QueryParam("search"),
		Status:     c.QueryParam("status"),
		Department: c.QueryParam("department"),
	}
	for param, dst := range map[string]**time.Time{"date_from": &f.DateFrom, "date_to": &f.DateTo} {
		if raw := c.QueryParam(param); raw != "" {
			t, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, param+" must be YYYY-MM-DD")
			}
			*dst = &t
		}
	}

	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Visit{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

type doctorSearchResponse struct {
	Patient patient.View `json:"patient"`
	Visit   *Visit       `json:"visit"`
	Created bool         `json:"visit_created"`
	FormURL string       `json:"radiology_form_url"`
}

// DoctorSearch resolves a patient and their current visit for the
// physician, opening a visit when the patient has none.
func (h *Handler) DoctorSearch(c echo.Context) error {
	var req struct {
		SSN string `json:"ssn" form:"ssn"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	p, v, created, err := h.svc.Resolve(ctx, req.SSN, auth.UserIDFromContext(ctx))
	if err != nil {
		return MapError(err)
	}
	return c.JSON(http.StatusOK, doctorSearchResponse{
		Patient: patient.NewView(p, h.svc.Now()),
		Visit:   v,
		Created: created,
		FormURL: "/radiology-form/" + v.VisitID,
	})
}
