package visit

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

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
	anyDept := auth.RequireRole(auth.RoleReception, auth.RoleDoctor, auth.RoleLab,
		auth.RolePharmacy, auth.RoleCasualty)

	g := api.Group("/visits")
	g.POST("", h.Create, auth.RequireRole(auth.RoleReception))
	g.GET("", h.Queue, anyDept)
	g.GET("/:id", h.Get, anyDept)
	g.POST("/:id/transition", h.Transition, anyDept)
	g.PATCH("/:id/vitals", h.UpdateVitals, anyDept)
}

type createRequest struct {
	PatientID    uuid.UUID         `json:"patient_id"`
	AssignedRole Role              `json:"assigned_role"`
	DoctorID     *uuid.UUID        `json:"doctor_id"`
	Vitals       map[string]string `json:"vitals"`
}

func (h *Handler) Create(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	v := &Visit{
		PatientID:    req.PatientID,
		AssignedRole: req.AssignedRole,
		DoctorID:     req.DoctorID,
		Vitals:       req.Vitals,
	}
	if v.DoctorID != nil && v.AssignedRole == "" {
		v.AssignedRole = RoleDoctor
	}
	if err := h.svc.CreateVisit(c.Request().Context(), v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	v, err := h.svc.GetVisit(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "visit not found")
	}
	return c.JSON(http.StatusOK, v)
}

// Queue serves the pull-based department worklist:
// GET /visits?assigned_role=LAB&status=OPEN,IN_PROGRESS
func (h *Handler) Queue(c echo.Context) error {
	role := Role(c.QueryParam("assigned_role"))
	var statuses []Status
	if raw := c.QueryParam("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			statuses = append(statuses, Status(strings.TrimSpace(s)))
		}
	}
	params := pagination.FromContext(c)
	visits, total, err := h.svc.Queue(c.Request().Context(), role, statuses, params.Limit, params.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(visits, total, params.Limit, params.Offset))
}

type transitionRequest struct {
	ExpectedVersion int      `json:"expected_version"`
	Decision        Decision `json:"decision"`
}

func (h *Handler) Transition(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req transitionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	v, err := h.svc.Apply(c.Request().Context(), id, req.ExpectedVersion, req.Decision)
	if err != nil {
		switch {
		case errors.Is(err, ErrStaleVisit):
			return echo.NewHTTPError(http.StatusConflict, "visit changed, re-fetch and retry")
		case errors.Is(err, ErrInvalidTransition):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return c.JSON(http.StatusOK, v)
}

type vitalsRequest struct {
	ExpectedVersion    int               `json:"expected_version"`
	Vitals             map[string]string `json:"vitals"`
	LabReferralDetails *string           `json:"lab_referral_details"`
}

func (h *Handler) UpdateVitals(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req vitalsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	v, err := h.svc.UpdateVitals(c.Request().Context(), id, req.ExpectedVersion, req.Vitals, req.LabReferralDetails)
	if err != nil {
		switch {
		case errors.Is(err, ErrStaleVisit):
			return echo.NewHTTPError(http.StatusConflict, "visit changed, re-fetch and retry")
		case errors.Is(err, ErrInvalidTransition):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return c.JSON(http.StatusOK, v)
}
