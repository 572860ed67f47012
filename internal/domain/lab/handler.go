package lab

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
	g := api.Group("/lab", auth.RequireRole(auth.RoleLab))
	g.POST("/visits/:visit_id/start", h.StartTests)
	g.POST("/charges", h.AddCharge)
	g.GET("/charges", h.Worklist)
	g.GET("/charges/visit/:visit_id", h.ChargesByVisit)
	g.POST("/charges/:id/complete", h.Complete)
	g.POST("/charges/:id/cancel", h.Cancel)

	g.POST("/inventory", h.AddInventoryItem)
	g.GET("/inventory", h.ListInventory)
	g.GET("/inventory/low-stock", h.LowStock)
	g.POST("/inventory/:id/adjust", h.AdjustInventory)
}

type startRequest struct {
	ExpectedVersion int `json:"expected_version"`
}

func (h *Handler) StartTests(c echo.Context) error {
	visitID, err := uuid.Parse(c.Param("visit_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid visit id")
	}
	var req startRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	v, err := h.svc.StartTests(c.Request().Context(), visitID, req.ExpectedVersion)
	if err != nil {
		return transitionError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) AddCharge(c echo.Context) error {
	var req ChargeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ch, v, err := h.svc.AddCharge(c.Request().Context(), req)
	if err != nil {
		return transitionError(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"charge": ch, "visit": v})
}

func (h *Handler) Worklist(c echo.Context) error {
	status := ChargeStatus(c.QueryParam("status"))
	if status == "" {
		status = ChargePending
	}
	params := pagination.FromContext(c)
	charges, total, err := h.svc.Worklist(c.Request().Context(), status, params.Limit, params.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(charges, total, params.Limit, params.Offset))
}

func (h *Handler) ChargesByVisit(c echo.Context) error {
	visitID, err := uuid.Parse(c.Param("visit_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid visit id")
	}
	charges, err := h.svc.ChargesByVisit(c.Request().Context(), visitID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, charges)
}

type completeRequest struct {
	Technician string      `json:"technician"`
	Results    []ResultRow `json:"results"`
}

func (h *Handler) Complete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req completeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ch, err := h.svc.Complete(c.Request().Context(), id, req.Technician, req.Results)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return c.JSON(http.StatusOK, ch)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ch, err := h.svc.Cancel(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return c.JSON(http.StatusOK, ch)
}

func (h *Handler) AddInventoryItem(c echo.Context) error {
	var item InventoryItem
	if err := c.Bind(&item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.AddInventoryItem(c.Request().Context(), &item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *Handler) ListInventory(c echo.Context) error {
	params := pagination.FromContext(c)
	items, total, err := h.svc.ListInventory(c.Request().Context(), params.Limit, params.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, params.Limit, params.Offset))
}

func (h *Handler) LowStock(c echo.Context) error {
	items, err := h.svc.LowStock(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

type adjustRequest struct {
	Delta int `json:"delta"`
}

func (h *Handler) AdjustInventory(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req adjustRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	item, err := h.svc.AdjustInventory(c.Request().Context(), id, req.Delta)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return c.JSON(http.StatusOK, item)
}

func transitionError(err error) error {
	switch {
	case errors.Is(err, visit.ErrStaleVisit):
		return echo.NewHTTPError(http.StatusConflict, "visit changed, re-fetch and retry")
	case errors.Is(err, visit.ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}
