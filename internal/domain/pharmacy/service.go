package pharmacy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/revivehealth/clinic/internal/domain/visit"
	"github.com/revivehealth/clinic/internal/platform/db"
)

type Service struct {
	suppliers SupplierRepository
	stock     StockRepository
	purchases PurchaseRepository
	sales     SaleRepository
	visits    *visit.Service
	tx        db.TxRunner
	now       func() time.Time
}

func NewService(suppliers SupplierRepository, stock StockRepository,
	purchases PurchaseRepository, sales SaleRepository,
	visits *visit.Service, tx db.TxRunner) *Service {
	return &Service{
		suppliers: suppliers,
		stock:     stock,
		purchases: purchases,
		sales:     sales,
		visits:    visits,
		tx:        tx,
		now:       time.Now,
	}
}

func (s *Service) CreateSupplier(ctx context.Context, sup *Supplier) error {
	if strings.TrimSpace(sup.Name) == "" {
		return fmt.Errorf("name is required")
	}
	sup.Name = strings.TrimSpace(sup.Name)
	return s.suppliers.Create(ctx, sup)
}

func (s *Service) ListSuppliers(ctx context.Context, limit, offset int) ([]*Supplier, int, error) {
	return s.suppliers.List(ctx, limit, offset)
}

// RecordPurchase books a supplier invoice and tops up stock. A received line
// lands on the existing batch when name, batch, expiry and supplier all
// match; otherwise it opens a new batch.
func (s *Service) RecordPurchase(ctx context.Context, inv *PurchaseInvoice) error {
	if inv.SupplierID == uuid.Nil {
		return fmt.Errorf("supplier_id is required")
	}
	if strings.TrimSpace(inv.InvoiceNumber) == "" {
		return fmt.Errorf("invoice_number is required")
	}
	if len(inv.Items) == 0 {
		return fmt.Errorf("purchase has no items")
	}
	if inv.PurchaseDate.IsZero() {
		inv.PurchaseDate = s.now()
	}

	total := decimal.Zero
	for _, item := range inv.Items {
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("item name is required")
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("item %q: quantity must be positive", item.Name)
		}
		if item.ExpiryDate.IsZero() {
			return fmt.Errorf("item %q: expiry_date is required", item.Name)
		}
		item.Name = strings.TrimSpace(item.Name)
		total = total.Add(item.UnitCost.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	inv.Total = total

	return s.tx(ctx, func(ctx context.Context) error {
		if _, err := s.suppliers.GetByID(ctx, inv.SupplierID); err != nil {
			return fmt.Errorf("supplier not found: %w", err)
		}
		if err := s.purchases.Create(ctx, inv); err != nil {
			return fmt.Errorf("write purchase: %w", err)
		}
		for _, item := range inv.Items {
			existing, err := s.stock.FindBatch(ctx, item.Name, item.Batch, item.ExpiryDate, inv.SupplierID)
			switch {
			case err == nil:
				if err := s.stock.AddQuantity(ctx, existing.ID, item.Quantity); err != nil {
					return err
				}
			case errors.Is(err, pgx.ErrNoRows):
				err := s.stock.Create(ctx, &StockItem{
					Name:       item.Name,
					Batch:      item.Batch,
					Barcode:    item.Barcode,
					Quantity:   item.Quantity,
					UnitPrice:  item.UnitPrice,
					GSTPercent: item.GSTPercent,
					HSNCode:    item.HSNCode,
					ExpiryDate: item.ExpiryDate,
					SupplierID: &inv.SupplierID,
				})
				if err != nil {
					return err
				}
			default:
				return err
			}
		}
		return nil
	})
}

func (s *Service) GetPurchase(ctx context.Context, id uuid.UUID) (*PurchaseInvoice, error) {
	return s.purchases.GetByID(ctx, id)
}

func (s *Service) ListPurchases(ctx context.Context, limit, offset int) ([]*PurchaseInvoice, int, error) {
	return s.purchases.List(ctx, limit, offset)
}

// ScanBarcode picks the batch to dispense for a scanned code: soonest
// unexpired expiry with stock remaining.
func (s *Service) ScanBarcode(ctx context.Context, barcode string) (*StockItem, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, fmt.Errorf("barcode is required")
	}
	item, err := s.stock.NearestExpiry(ctx, barcode, s.now())
	if err != nil {
		return nil, fmt.Errorf("no dispensable stock for barcode %q: %w", barcode, err)
	}
	return item, nil
}

// StockByName resolves a prescription drug name to a dispensable batch, or
// an error when the pharmacy carries nothing under that name.
func (s *Service) StockByName(ctx context.Context, name string) (*StockItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	return s.stock.FindByName(ctx, name)
}

func (s *Service) SearchStock(ctx context.Context, name string, limit, offset int) ([]*StockItem, int, error) {
	return s.stock.Search(ctx, name, limit, offset)
}

func (s *Service) ListStock(ctx context.Context, limit, offset int) ([]*StockItem, int, error) {
	return s.stock.List(ctx, limit, offset)
}

// CheckoutLine is one dispensed batch in a checkout.
type CheckoutLine struct {
	StockItemID uuid.UUID `json:"stock_item_id"`
	Quantity    int       `json:"quantity"`
}

// CheckoutRequest dispenses medicines, optionally against a visit. When a
// visit is given, the checkout also records the billing activity on it.
type CheckoutRequest struct {
	VisitID         *uuid.UUID     `json:"visit_id,omitempty"`
	ExpectedVersion int            `json:"expected_version,omitempty"`
	Items           []CheckoutLine `json:"items"`
}

// Checkout deducts stock and writes the sale in a single transaction. Any
// failed deduction, expired batch or stale visit voids the whole sale.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*Sale, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("checkout has no items")
	}
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("quantity must be positive")
		}
	}

	sale := &Sale{VisitID: req.VisitID}
	err := s.tx(ctx, func(ctx context.Context) error {
		now := s.now()
		total := decimal.Zero
		for _, line := range req.Items {
			stock, err := s.stock.GetByID(ctx, line.StockItemID)
			if err != nil {
				return fmt.Errorf("stock item not found: %w", err)
			}
			if stock.Expired(now) {
				return fmt.Errorf("batch %s of %s expired on %s", stock.Batch, stock.Name,
					stock.ExpiryDate.Format("2006-01-02"))
			}
			if err := s.stock.Deduct(ctx, stock.ID, line.Quantity); err != nil {
				if errors.Is(err, ErrInsufficientStock) {
					return fmt.Errorf("%w: %s batch %s has %d, need %d",
						ErrInsufficientStock, stock.Name, stock.Batch, stock.Quantity, line.Quantity)
				}
				return err
			}

			amount := stock.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
			total = total.Add(amount)
			sale.Items = append(sale.Items, &SaleItem{
				StockItemID: stock.ID,
				Name:        stock.Name,
				Batch:       stock.Batch,
				Quantity:    line.Quantity,
				UnitPrice:   stock.UnitPrice,
				Amount:      amount,
			})
		}
		sale.Total = total

		if err := s.sales.Create(ctx, sale); err != nil {
			return fmt.Errorf("write sale: %w", err)
		}
		if req.VisitID != nil {
			if _, err := s.visits.Apply(ctx, *req.VisitID, req.ExpectedVersion, visit.AddCharge()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

func (s *Service) GetSale(ctx context.Context, id uuid.UUID) (*Sale, error) {
	return s.sales.GetByID(ctx, id)
}

func (s *Service) SalesByVisit(ctx context.Context, visitID uuid.UUID) ([]*Sale, error) {
	return s.sales.ListByVisit(ctx, visitID)
}
