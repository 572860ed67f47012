package pharmacy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/revivehealth/clinic/internal/domain/visit"
)

type mockSupplierRepo struct {
	suppliers map[uuid.UUID]*Supplier
}

func (m *mockSupplierRepo) Create(ctx context.Context, s *Supplier) error {
	s.ID = uuid.New()
	cp := *s
	m.suppliers[s.ID] = &cp
	return nil
}

func (m *mockSupplierRepo) GetByID(ctx context.Context, id uuid.UUID) (*Supplier, error) {
	s, ok := m.suppliers[id]
	if !ok {
		return nil, fmt.Errorf("supplier %s not found", id)
	}
	return s, nil
}

func (m *mockSupplierRepo) List(ctx context.Context, limit, offset int) ([]*Supplier, int, error) {
	var out []*Supplier
	for _, s := range m.suppliers {
		out = append(out, s)
	}
	return out, len(out), nil
}

type mockStockRepo struct {
	items map[uuid.UUID]*StockItem
}

func (m *mockStockRepo) Create(ctx context.Context, item *StockItem) error {
	item.ID = uuid.New()
	cp := *item
	m.items[item.ID] = &cp
	return nil
}

func (m *mockStockRepo) GetByID(ctx context.Context, id uuid.UUID) (*StockItem, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("stock item %s not found", id)
	}
	cp := *item
	return &cp, nil
}

func (m *mockStockRepo) FindBatch(ctx context.Context, name, batch string, expiry time.Time, supplierID uuid.UUID) (*StockItem, error) {
	for _, item := range m.items {
		if item.Name == name && item.Batch == batch && item.ExpiryDate.Equal(expiry) &&
			item.SupplierID != nil && *item.SupplierID == supplierID {
			cp := *item
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStockRepo) AddQuantity(ctx context.Context, id uuid.UUID, qty int) error {
	item, ok := m.items[id]
	if !ok {
		return fmt.Errorf("stock item %s not found", id)
	}
	item.Quantity += qty
	return nil
}

func (m *mockStockRepo) Deduct(ctx context.Context, id uuid.UUID, qty int) error {
	item, ok := m.items[id]
	if !ok || item.Quantity < qty {
		return ErrInsufficientStock
	}
	item.Quantity -= qty
	return nil
}

func (m *mockStockRepo) Search(ctx context.Context, name string, limit, offset int) ([]*StockItem, int, error) {
	return nil, 0, nil
}

func (m *mockStockRepo) FindByName(ctx context.Context, name string) (*StockItem, error) {
	var best *StockItem
	for _, item := range m.items {
		if !strings.EqualFold(item.Name, name) || item.Quantity == 0 {
			continue
		}
		if best == nil || item.ExpiryDate.Before(best.ExpiryDate) {
			best = item
		}
	}
	if best == nil {
		return nil, pgx.ErrNoRows
	}
	cp := *best
	return &cp, nil
}

func (m *mockStockRepo) NearestExpiry(ctx context.Context, barcode string, now time.Time) (*StockItem, error) {
	var best *StockItem
	for _, item := range m.items {
		if item.Barcode == nil || *item.Barcode != barcode {
			continue
		}
		if item.Quantity == 0 || item.ExpiryDate.Before(now) {
			continue
		}
		if best == nil || item.ExpiryDate.Before(best.ExpiryDate) {
			best = item
		}
	}
	if best == nil {
		return nil, pgx.ErrNoRows
	}
	cp := *best
	return &cp, nil
}

func (m *mockStockRepo) List(ctx context.Context, limit, offset int) ([]*StockItem, int, error) {
	return nil, 0, nil
}

type mockPurchaseRepo struct {
	purchases map[uuid.UUID]*PurchaseInvoice
}

func (m *mockPurchaseRepo) Create(ctx context.Context, inv *PurchaseInvoice) error {
	inv.ID = uuid.New()
	m.purchases[inv.ID] = inv
	return nil
}

func (m *mockPurchaseRepo) GetByID(ctx context.Context, id uuid.UUID) (*PurchaseInvoice, error) {
	inv, ok := m.purchases[id]
	if !ok {
		return nil, fmt.Errorf("purchase %s not found", id)
	}
	return inv, nil
}

func (m *mockPurchaseRepo) List(ctx context.Context, limit, offset int) ([]*PurchaseInvoice, int, error) {
	return nil, 0, nil
}

type mockSaleRepo struct {
	sales map[uuid.UUID]*Sale
}

func (m *mockSaleRepo) Create(ctx context.Context, sale *Sale) error {
	sale.ID = uuid.New()
	m.sales[sale.ID] = sale
	return nil
}

func (m *mockSaleRepo) GetByID(ctx context.Context, id uuid.UUID) (*Sale, error) {
	sale, ok := m.sales[id]
	if !ok {
		return nil, fmt.Errorf("sale %s not found", id)
	}
	return sale, nil
}

func (m *mockSaleRepo) ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*Sale, error) {
	var out []*Sale
	for _, sale := range m.sales {
		if sale.VisitID != nil && *sale.VisitID == visitID {
			out = append(out, sale)
		}
	}
	return out, nil
}

type mockVisitRepo struct {
	visits map[uuid.UUID]*visit.Visit
}

func (m *mockVisitRepo) Create(ctx context.Context, v *visit.Visit) error {
	v.Version = 1
	m.visits[v.ID] = v
	return nil
}

func (m *mockVisitRepo) GetByID(ctx context.Context, id uuid.UUID) (*visit.Visit, error) {
	v, ok := m.visits[id]
	if !ok {
		return nil, fmt.Errorf("visit %s not found", id)
	}
	cp := *v
	return &cp, nil
}

func (m *mockVisitRepo) Update(ctx context.Context, v *visit.Visit, expectedVersion int) error {
	stored, ok := m.visits[v.ID]
	if !ok || stored.Version != expectedVersion {
		return visit.ErrStaleVisit
	}
	v.Version = expectedVersion + 1
	cp := *v
	m.visits[v.ID] = &cp
	return nil
}

func (m *mockVisitRepo) ListQueue(ctx context.Context, role visit.Role, statuses []visit.Status, limit, offset int) ([]*visit.Visit, int, error) {
	return nil, 0, nil
}

func (m *mockVisitRepo) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*visit.Visit, int, error) {
	return nil, 0, nil
}

type fixture struct {
	svc       *Service
	suppliers *mockSupplierRepo
	stock     *mockStockRepo
	purchases *mockPurchaseRepo
	sales     *mockSaleRepo
	visits    *mockVisitRepo
}

// passthroughTx snapshots the mutable mocks so a failed fn observes the
// rollback the real transaction would give it.
func (f *fixture) passthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	stockBefore := make(map[uuid.UUID]StockItem, len(f.stock.items))
	for id, item := range f.stock.items {
		stockBefore[id] = *item
	}
	salesBefore := len(f.sales.sales)
	purchasesBefore := len(f.purchases.purchases)

	if err := fn(ctx); err != nil {
		f.stock.items = make(map[uuid.UUID]*StockItem, len(stockBefore))
		for id := range stockBefore {
			item := stockBefore[id]
			f.stock.items[id] = &item
		}
		if len(f.sales.sales) != salesBefore {
			f.sales.sales = make(map[uuid.UUID]*Sale)
		}
		if len(f.purchases.purchases) != purchasesBefore {
			f.purchases.purchases = make(map[uuid.UUID]*PurchaseInvoice)
		}
		return err
	}
	return nil
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		suppliers: &mockSupplierRepo{suppliers: make(map[uuid.UUID]*Supplier)},
		stock:     &mockStockRepo{items: make(map[uuid.UUID]*StockItem)},
		purchases: &mockPurchaseRepo{purchases: make(map[uuid.UUID]*PurchaseInvoice)},
		sales:     &mockSaleRepo{sales: make(map[uuid.UUID]*Sale)},
		visits:    &mockVisitRepo{visits: make(map[uuid.UUID]*visit.Visit)},
	}
	f.svc = NewService(f.suppliers, f.stock, f.purchases, f.sales,
		visit.NewService(f.visits), f.passthroughTx)
	return f
}

func (f *fixture) seedSupplier(t *testing.T) *Supplier {
	t.Helper()
	s := &Supplier{Name: "MedSupply Co"}
	if err := f.suppliers.Create(context.Background(), s); err != nil {
		t.Fatalf("seed supplier: %v", err)
	}
	return s
}

func (f *fixture) seedStock(t *testing.T, name, batch, barcode string, qty int, price string, expiry time.Time, supplierID *uuid.UUID) *StockItem {
	t.Helper()
	item := &StockItem{
		Name:       name,
		Batch:      batch,
		Quantity:   qty,
		UnitPrice:  decimal.RequireFromString(price),
		ExpiryDate: expiry,
		SupplierID: supplierID,
	}
	if barcode != "" {
		item.Barcode = &barcode
	}
	if err := f.stock.Create(context.Background(), item); err != nil {
		t.Fatalf("seed stock: %v", err)
	}
	return item
}

func (f *fixture) seedVisit(t *testing.T) *visit.Visit {
	t.Helper()
	v := &visit.Visit{
		ID:           uuid.New(),
		PatientID:    uuid.New(),
		Status:       visit.StatusOpen,
		AssignedRole: visit.RolePharmacy,
	}
	if err := f.visits.Create(context.Background(), v); err != nil {
		t.Fatalf("seed visit: %v", err)
	}
	return v
}

func future(days int) time.Time {
	return time.Now().AddDate(0, 0, days)
}

func TestRecordPurchase_NewBatch(t *testing.T) {
	f := newFixture(t)
	sup := f.seedSupplier(t)

	inv := &PurchaseInvoice{
		SupplierID:    sup.ID,
		InvoiceNumber: "PI-1001",
		Items: []*PurchaseItem{
			{Name: "Paracetamol 500mg", Batch: "B42", Quantity: 100,
				UnitCost:   decimal.RequireFromString("1.20"),
				UnitPrice:  decimal.RequireFromString("2.00"),
				ExpiryDate: future(365)},
		},
	}
	if err := f.svc.RecordPurchase(context.Background(), inv); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !inv.Total.Equal(decimal.RequireFromString("120.00")) {
		t.Errorf("expected total 120.00, got %s", inv.Total)
	}
	if len(f.stock.items) != 1 {
		t.Fatalf("expected one stock batch, got %d", len(f.stock.items))
	}
	for _, item := range f.stock.items {
		if item.Quantity != 100 {
			t.Errorf("expected quantity 100, got %d", item.Quantity)
		}
	}
}

func TestRecordPurchase_TopsUpMatchingBatch(t *testing.T) {
	f := newFixture(t)
	sup := f.seedSupplier(t)
	expiry := future(365)
	existing := f.seedStock(t, "Paracetamol 500mg", "B42", "", 30, "2.00", expiry, &sup.ID)

	inv := &PurchaseInvoice{
		SupplierID:    sup.ID,
		InvoiceNumber: "PI-1002",
		Items: []*PurchaseItem{
			{Name: "Paracetamol 500mg", Batch: "B42", Quantity: 70,
				UnitCost: decimal.RequireFromString("1.20"), ExpiryDate: expiry},
		},
	}
	if err := f.svc.RecordPurchase(context.Background(), inv); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.stock.items) != 1 {
		t.Fatalf("expected top-up, not a new batch; have %d batches", len(f.stock.items))
	}
	if got := f.stock.items[existing.ID].Quantity; got != 100 {
		t.Errorf("expected quantity 100 after top-up, got %d", got)
	}
}

func TestRecordPurchase_DifferentExpiryOpensNewBatch(t *testing.T) {
	f := newFixture(t)
	sup := f.seedSupplier(t)
	f.seedStock(t, "Paracetamol 500mg", "B42", "", 30, "2.00", future(100), &sup.ID)

	inv := &PurchaseInvoice{
		SupplierID:    sup.ID,
		InvoiceNumber: "PI-1003",
		Items: []*PurchaseItem{
			{Name: "Paracetamol 500mg", Batch: "B42", Quantity: 70,
				UnitCost: decimal.RequireFromString("1.20"), ExpiryDate: future(400)},
		},
	}
	if err := f.svc.RecordPurchase(context.Background(), inv); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.stock.items) != 2 {
		t.Errorf("expected a second batch, have %d", len(f.stock.items))
	}
}

func TestCheckout_DeductsAndTotals(t *testing.T) {
	f := newFixture(t)
	a := f.seedStock(t, "Paracetamol 500mg", "B42", "", 50, "2.00", future(365), nil)
	b := f.seedStock(t, "Pantoprazole 40mg", "P11", "", 20, "13.20", future(365), nil)
	v := f.seedVisit(t)

	sale, err := f.svc.Checkout(context.Background(), CheckoutRequest{
		VisitID:         &v.ID,
		ExpectedVersion: 1,
		Items: []CheckoutLine{
			{StockItemID: a.ID, Quantity: 10},
			{StockItemID: b.ID, Quantity: 8},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sale.Total.Equal(decimal.RequireFromString("125.60")) {
		t.Errorf("expected total 125.60, got %s", sale.Total)
	}
	if f.stock.items[a.ID].Quantity != 40 || f.stock.items[b.ID].Quantity != 12 {
		t.Error("stock not deducted")
	}
	updated, _ := f.visits.GetByID(context.Background(), v.ID)
	if updated.Status != visit.StatusInProgress {
		t.Errorf("expected visit IN_PROGRESS, got %s", updated.Status)
	}
}

func TestCheckout_InsufficientStockVoidsSale(t *testing.T) {
	f := newFixture(t)
	a := f.seedStock(t, "Paracetamol 500mg", "B42", "", 50, "2.00", future(365), nil)
	b := f.seedStock(t, "Pantoprazole 40mg", "P11", "", 5, "13.20", future(365), nil)

	_, err := f.svc.Checkout(context.Background(), CheckoutRequest{
		Items: []CheckoutLine{
			{StockItemID: a.ID, Quantity: 10},
			{StockItemID: b.ID, Quantity: 8},
		},
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if f.stock.items[a.ID].Quantity != 50 {
		t.Error("partial deduction survived a failed checkout")
	}
	if len(f.sales.sales) != 0 {
		t.Error("failed checkout must not record a sale")
	}
}

func TestCheckout_RejectsExpiredBatch(t *testing.T) {
	f := newFixture(t)
	expired := f.seedStock(t, "Amoxicillin 500mg", "A07", "", 50, "4.50", future(-1), nil)

	_, err := f.svc.Checkout(context.Background(), CheckoutRequest{
		Items: []CheckoutLine{{StockItemID: expired.ID, Quantity: 2}},
	})
	if err == nil {
		t.Fatal("expected error dispensing an expired batch")
	}
	if f.stock.items[expired.ID].Quantity != 50 {
		t.Error("expired batch must not be deducted")
	}
}

func TestCheckout_StaleVisitVoidsSale(t *testing.T) {
	f := newFixture(t)
	a := f.seedStock(t, "Paracetamol 500mg", "B42", "", 50, "2.00", future(365), nil)
	v := f.seedVisit(t)

	_, err := f.svc.Checkout(context.Background(), CheckoutRequest{
		VisitID:         &v.ID,
		ExpectedVersion: 9,
		Items:           []CheckoutLine{{StockItemID: a.ID, Quantity: 10}},
	})
	if !errors.Is(err, visit.ErrStaleVisit) {
		t.Fatalf("expected ErrStaleVisit, got %v", err)
	}
	if f.stock.items[a.ID].Quantity != 50 {
		t.Error("stale visit must roll the deduction back")
	}
	if len(f.sales.sales) != 0 {
		t.Error("stale visit must roll the sale back")
	}
}

func TestScanBarcode_NearestExpiry(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, "Cetirizine 10mg", "C01", "8901234", 10, "1.50", future(300), nil)
	near := f.seedStock(t, "Cetirizine 10mg", "C02", "8901234", 10, "1.50", future(60), nil)
	f.seedStock(t, "Cetirizine 10mg", "C03", "8901234", 0, "1.50", future(10), nil)  // empty
	f.seedStock(t, "Cetirizine 10mg", "C04", "8901234", 10, "1.50", future(-5), nil) // expired

	item, err := f.svc.ScanBarcode(context.Background(), "8901234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.ID != near.ID {
		t.Errorf("expected batch %s, got %s", near.Batch, item.Batch)
	}
}

func TestScanBarcode_NoStock(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.ScanBarcode(context.Background(), "0000000"); err == nil {
		t.Error("expected error for unknown barcode")
	}
}
