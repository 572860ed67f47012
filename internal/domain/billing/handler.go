package billing

import (
	"errors"
	"net/http"

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
	g := api.Group("/billing", auth.RequireRole(auth.RoleReception))
	g.GET("/pending", h.PendingVisits)
	g.GET("/stats", h.DailyStats)
	g.POST("/visits/:visit_id/draft", h.BuildDraft)
	g.POST("/visits/:visit_id/invoice", h.CreateInvoice)
	g.GET("/invoices", h.ListInvoices)
	g.GET("/invoices/:id", h.GetInvoice)
	g.GET("/invoices/visit/:visit_id", h.InvoiceByVisit)
	g.POST("/invoices/:id/rebuild", h.Rebuild)
	g.PUT("/invoices/:id/items", h.UpdateItems)
	g.POST("/invoices/:id/pay", h.MarkPaid)
}

type draftRequest struct {
	Manual []Candidate `json:"manual,omitempty"`
}

func (h *Handler) BuildDraft(c echo.Context) error {
	visitID, err := uuid.Parse(c.Param("visit_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid visit id")
	}
	var req draftRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	draft, err := h.svc.BuildDraft(c.Request().Context(), visitID, req.Manual)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, draft)
}

func (h *Handler) CreateInvoice(c echo.Context) error {
	visitID, err := uuid.Parse(c.Param("visit_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid visit id")
	}
	var req draftRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	inv, err := h.svc.CreateInvoice(c.Request().Context(), visitID, req.Manual)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, inv)
}

func (h *Handler) ListInvoices(c echo.Context) error {
	status := PaymentStatus(c.QueryParam("status"))
	if status == "" {
		status = PaymentPending
	}
	params := pagination.FromContext(c)
	invoices, total, err := h.svc.ListInvoices(c.Request().Context(), status, params.Limit, params.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(invoices, total, params.Limit, params.Offset))
}

func (h *Handler) GetInvoice(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	inv, err := h.svc.GetInvoice(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "invoice not found")
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) InvoiceByVisit(c echo.Context) error {
	visitID, err := uuid.Parse(c.Param("visit_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid visit id")
	}
	inv, err := h.svc.InvoiceByVisit(c.Request().Context(), visitID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "no invoice for visit")
	}
	return c.JSON(http.StatusOK, inv)
}

type versionedRequest struct {
	ExpectedVersion int `json:"expected_version"`
}

func (h *Handler) Rebuild(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req versionedRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	inv, err := h.svc.Rebuild(c.Request().Context(), id, req.ExpectedVersion)
	if err != nil {
		return invoiceError(err)
	}
	return c.JSON(http.StatusOK, inv)
}

type updateItemsRequest struct {
	ExpectedVersion int         `json:"expected_version"`
	Items           []Candidate `json:"items"`
}

func (h *Handler) UpdateItems(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req updateItemsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	inv, err := h.svc.UpdateItems(c.Request().Context(), id, req.ExpectedVersion, req.Items)
	if err != nil {
		return invoiceError(err)
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) MarkPaid(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req versionedRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	inv, err := h.svc.MarkPaid(c.Request().Context(), id, req.ExpectedVersion)
	if err != nil {
		return invoiceError(err)
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) PendingVisits(c echo.Context) error {
	params := pagination.FromContext(c)
	pending, total, err := h.svc.PendingVisits(c.Request().Context(), params.Limit, params.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(pending, total, params.Limit, params.Offset))
}

func (h *Handler) DailyStats(c echo.Context) error {
	stats, err := h.svc.DailyStats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}

func invoiceError(err error) error {
	switch {
	case errors.Is(err, ErrInvoicePaid):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrStaleInvoice):
		return echo.NewHTTPError(http.StatusConflict, "invoice changed, re-fetch and retry")
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}
