package casualty

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/revivehealth/clinic/internal/domain/visit"
	"github.com/revivehealth/clinic/internal/platform/auth"
	"github.com/revivehealth/clinic/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/casualty", auth.RequireRole(auth.RoleCasualty))
	g.POST("/refer", h.Refer)
	g.GET("/log", h.List)
	g.GET("/log/:visit_id", h.Log)
}

func (h *Handler) Refer(c echo.Context) error {
	var req ReferralRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if userID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context())); err == nil {
		req.CreatedBy = &userID
	}

	rec, v, err := h.svc.Refer(c.Request().Context(), req)
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
	return c.JSON(http.StatusCreated, echo.Map{"record": rec, "visit": v})
}

func (h *Handler) Log(c echo.Context) error {
	visitID, err := uuid.Parse(c.Param("visit_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid visit id")
	}
	records, err := h.svc.Log(c.Request().Context(), visitID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, records)
}

func (h *Handler) List(c echo.Context) error {
	params := pagination.FromContext(c)
	records, total, err := h.svc.List(c.Request().Context(), params.Limit, params.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(records, total, params.Limit, params.Offset))
}
