package clinicalnote

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/revivehealth/clinic/internal/domain/visit"
	"github.com/revivehealth/clinic/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/consultations", auth.RequireRole(auth.RoleDoctor))
	g.POST("", h.Record)
	g.GET("/:id", h.Get)
	g.GET("/visit/:visit_id", h.History)
}

func (h *Handler) Record(c echo.Context) error {
	var req ConsultationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if userID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context())); err == nil {
		req.DoctorID = userID
	}

	n, v, err := h.svc.Record(c.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, visit.ErrStaleVisit):
			return echo.NewHTTPError(http.StatusConflict, "visit changed, re-fetch and retry")
		case errors.Is(err, visit.ErrInvalidTransition):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{"note": n, "visit": v})
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	n, err := h.svc.GetNote(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "note not found")
	}
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) History(c echo.Context) error {
	visitID, err := uuid.Parse(c.Param("visit_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid visit id")
	}
	notes, err := h.svc.History(c.Request().Context(), visitID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, notes)
}
