package pharmacy

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInsufficientStock is returned when a sale asks for more units than a
// batch holds. The whole checkout fails, nothing is deducted.
var ErrInsufficientStock = errors.New("insufficient stock")

type SupplierRepository interface {
	Create(ctx context.Context, s *Supplier) error
	GetByID(ctx context.Context, id uuid.UUID) (*Supplier, error)
	List(ctx context.Context, limit, offset int) ([]*Supplier, int, error)
}

type StockRepository interface {
	Create(ctx context.Context, item *StockItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*StockItem, error)
	// FindBatch locates the batch a purchase line tops up: same name, batch,
	// expiry and supplier. Returns pgx.ErrNoRows when no such batch exists.
	FindBatch(ctx context.Context, name, batch string, expiry time.Time, supplierID uuid.UUID) (*StockItem, error)
	// AddQuantity increments a batch's quantity.
	AddQuantity(ctx context.Context, id uuid.UUID, qty int) error
	// Deduct atomically removes qty units, failing with ErrInsufficientStock
	// if the batch holds fewer.
	Deduct(ctx context.Context, id uuid.UUID, qty int) error
	// Search matches medicine names case-insensitively.
	Search(ctx context.Context, name string, limit, offset int) ([]*StockItem, int, error)
	// NearestExpiry returns the unexpired batch with the given barcode that
	// expires soonest and still has stock.
	NearestExpiry(ctx context.Context, barcode string, now time.Time) (*StockItem, error)
	// FindByName resolves a medicine name to the batch that would be
	// dispensed next: exact name match (case-insensitive), soonest expiry,
	// stock remaining. Returns pgx.ErrNoRows when nothing matches.
	FindByName(ctx context.Context, name string) (*StockItem, error)
	List(ctx context.Context, limit, offset int) ([]*StockItem, int, error)
}

type PurchaseRepository interface {
	Create(ctx context.Context, inv *PurchaseInvoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*PurchaseInvoice, error)
	List(ctx context.Context, limit, offset int) ([]*PurchaseInvoice, int, error)
}

type SaleRepository interface {
	Create(ctx context.Context, sale *Sale) error
	GetByID(ctx context.Context, id uuid.UUID) (*Sale, error)
	ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*Sale, error)
}
