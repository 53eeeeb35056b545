package nursing

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shorouk/radiology/internal/domain/signature"
	"github.com/shorouk/radiology/internal/platform/apperr"
	"github.com/shorouk/radiology/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	nurse := auth.RequireRole(auth.RoleNurse)
	g.GET("/nurse/assessment/:visitId", h.Resume, nurse)
	g.GET("/nurse/my-assessments", h.ListMine, nurse)
	g.POST("/submit-nurse-form", h.Submit, nurse)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrAssessmentLocked):
		return echo.NewHTTPError(http.StatusForbidden, ErrAssessmentLocked.Error())
	case errors.Is(err, ErrSignatureRequired):
		return echo.NewHTTPError(http.StatusBadRequest, ErrSignatureRequired.Error())
	case errors.Is(err, ErrVisitRequired):
		return echo.NewHTTPError(http.StatusBadRequest, ErrVisitRequired.Error())
	case errors.Is(err, ErrVisitNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Visit not found")
	case errors.Is(err, signature.ErrInvalidData):
		return echo.NewHTTPError(http.StatusBadRequest, signature.ErrInvalidData.Error())
	case errors.Is(err, apperr.ErrDuplicate):
		return echo.NewHTTPError(http.StatusConflict, "This assessment was saved from another session. Reload and try again.")
	case errors.Is(err, apperr.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return err
}

func (h *Handler) Submit(c echo.Context) error {
	var f Form
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	res, err := h.svc.Submit(ctx, auth.UserIDFromContext(ctx), f)
	if err != nil {
		return mapError(err)
	}

	message := "Assessment submitted successfully"
	if res.Status == StatusDraft {
		message = "Draft saved successfully"
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":  true,
		"message":  message,
		"result":   res,
		"redirect": "/nurse",
	})
}

func (h *Handler) Resume(c echo.Context) error {
	d, err := h.svc.GetByVisit(c.Request().Context(), c.Param("visitId"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListMine(c echo.Context) error {
	ctx := c.Request().Context()
	items, err := h.svc.ListByNurse(ctx, auth.UserIDFromContext(ctx))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}
