package radiology

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shorouk/radiology/internal/domain/patient"
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
	physician := auth.RequireRole(auth.RolePhysician)
	g.POST("/doctor/start-radiology/:visitId", h.Start, physician)
	g.GET("/radiology-form/:visitId", h.Form, physician)
	g.POST("/submit-radiology-form", h.Submit, physician)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrVisitRequired),
		errors.Is(err, ErrPhysicianSignatureRequired),
		errors.Is(err, ErrPatientSignatureRequired),
		errors.Is(err, signature.ErrInvalidData),
		errors.Is(err, apperr.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrVisitNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Visit not found")
	case errors.Is(err, patient.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Patient not found")
	case errors.Is(err, ErrAlreadySubmitted):
		return echo.NewHTTPError(http.StatusConflict, ErrAlreadySubmitted.Error())
	}
	return err
}

func (h *Handler) Start(c echo.Context) error {
	v, err := h.svc.Start(c.Request().Context(), c.Param("visitId"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":  true,
		"visit":    v,
		"redirect": "/radiology-form/" + v.VisitID,
	})
}

func (h *Handler) Form(c echo.Context) error {
	ctx := c.Request().Context()
	fc, err := h.svc.FormContext(ctx, c.Param("visitId"), auth.UserIDFromContext(ctx))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, fc)
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
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":  true,
		"message":  "Radiology assessment submitted successfully",
		"result":   res,
		"redirect": "/doctor",
	})
}
