package pharmacy

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
	g := api.Group("/pharmacy", auth.RequireRole(auth.RolePharmacy))
	g.POST("/suppliers", h.CreateSupplier)
	g.GET("/suppliers", h.ListSuppliers)

	g.POST("/purchases", h.RecordPurchase)
	g.GET("/purchases", h.ListPurchases)
	g.GET("/purchases/:id", h.GetPurchase)

	g.GET("/stock", h.ListStock)
	g.GET("/stock/search", h.SearchStock)
	g.GET("/stock/scan/:barcode", h.ScanBarcode)

	g.POST("/sales", h.Checkout)
	g.GET("/sales/:id", h.GetSale)
	g.GET("/sales/visit/:visit_id", h.SalesByVisit)
}

func (h *Handler) CreateSupplier(c echo.Context) error {
	var sup Supplier
	if err := c.Bind(&sup); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateSupplier(c.Request().Context(), &sup); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, sup)
}

func (h *Handler) ListSuppliers(c echo.Context) error {
	params := pagination.FromContext(c)
	suppliers, total, err := h.svc.ListSuppliers(c.Request().Context(), params.Limit, params.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(suppliers, total, params.Limit, params.Offset))
}

func (h *Handler) RecordPurchase(c echo.Context) error {
	var inv PurchaseInvoice
	if err := c.Bind(&inv); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.RecordPurchase(c.Request().Context(), &inv); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, inv)
}

func (h *Handler) ListPurchases(c echo.Context) error {
	params := pagination.FromContext(c)
	purchases, total, err := h.svc.ListPurchases(c.Request().Context(), params.Limit, params.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(purchases, total, params.Limit, params.Offset))
}

func (h *Handler) GetPurchase(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	inv, err := h.svc.GetPurchase(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "purchase not found")
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) ListStock(c echo.Context) error {
	params := pagination.FromContext(c)
	items, total, err := h.svc.ListStock(c.Request().Context(), params.Limit, params.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, params.Limit, params.Offset))
}

func (h *Handler) SearchStock(c echo.Context) error {
	params := pagination.FromContext(c)
	items, total, err := h.svc.SearchStock(c.Request().Context(), c.QueryParam("name"), params.Limit, params.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, params.Limit, params.Offset))
}

func (h *Handler) ScanBarcode(c echo.Context) error {
	item, err := h.svc.ScanBarcode(c.Request().Context(), c.Param("barcode"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) Checkout(c echo.Context) error {
	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sale, err := h.svc.Checkout(c.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInsufficientStock):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, visit.ErrStaleVisit):
			return echo.NewHTTPError(http.StatusConflict, "visit changed, re-fetch and retry")
		case errors.Is(err, visit.ErrInvalidTransition):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return c.JSON(http.StatusCreated, sale)
}

func (h *Handler) GetSale(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sale, err := h.svc.GetSale(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "sale not found")
	}
	return c.JSON(http.StatusOK, sale)
}

func (h *Handler) SalesByVisit(c echo.Context) error {
	visitID, err := uuid.Parse(c.Param("visit_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid visit id")
	}
	sales, err := h.svc.SalesByVisit(c.Request().Context(), visitID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sales)
}
