package user

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shorouk/radiology/internal/domain/signature"
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
	admin := g.Group("/admin/users", auth.RequireRole(auth.RoleAdmin))
	admin.GET("", h.List)
	admin.POST("", h.Create)
	admin.GET("/:id", h.Get)
	admin.PUT("/:id", h.Update)
	admin.DELETE("/:id", h.Delete)
}

// MapError translates user errors into HTTP errors. The account handlers
// share it.
func MapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	case errors.Is(err, ErrDuplicate):
		return echo.NewHTTPError(http.StatusConflict, "Username or email already exists")
	case errors.Is(err, ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, ErrInvalidCredentials.Error())
	case errors.Is(err, ErrInactive):
		return echo.NewHTTPError(http.StatusForbidden, ErrInactive.Error())
	case errors.Is(err, ErrWrongPassword):
		return echo.NewHTTPError(http.StatusBadRequest, ErrWrongPassword.Error())
	case errors.Is(err, ErrSelfDelete):
		return echo.NewHTTPError(http.StatusBadRequest, ErrSelfDelete.Error())
	case errors.Is(err, ErrReferenced):
		return echo.NewHTTPError(http.StatusConflict, ErrReferenced.Error())
	case errors.Is(err, signature.ErrInvalidData):
		return echo.NewHTTPError(http.StatusBadRequest, "Signature must be a base64 image data URL")
	case errors.Is(err, apperr.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, "User is referenced by clinical records")
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
	u, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return MapError(err)
	}
	return c.JSON(http.StatusCreated, NewView(u))
}

func (h *Handler) Get(c echo.Context) error {
	u, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return MapError(err)
	}
	return c.JSON(http.StatusOK, NewView(u))
}

func (h *Handler) Update(c echo.Context) error {
	var in Input
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	u, err := h.svc.Update(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return MapError(err)
	}
	return c.JSON(http.StatusOK, NewView(u))
}

func (h *Handler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.svc.Delete(ctx, auth.UserIDFromContext(ctx), c.Param("id")); err != nil {
		return MapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := ListFilter{
		Search: c.QueryParam("search"),
		Role:   c.QueryParam("role"),
		Status: c.QueryParam("status"),
	}
	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	views := make([]View, 0, len(items))
	for _, u := range items {
		views = append(views, NewView(u))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(views, total, pg))
}
