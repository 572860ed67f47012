package pharmacy

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Supplier struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Email     *string   `db:"email" json:"email,omitempty"`
	Address   *string   `db:"address" json:"address,omitempty"`
	GSTIN     *string   `db:"gstin" json:"gstin,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// StockItem is one batch of one medicine. The same medicine appears once
// per batch/expiry/supplier combination, so expiry-aware dispensing can pick
// between batches.
type StockItem struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	Name       string          `db:"name" json:"name"`
	Batch      string          `db:"batch" json:"batch"`
	Barcode    *string         `db:"barcode" json:"barcode,omitempty"`
	Quantity   int             `db:"quantity" json:"quantity"`
	UnitPrice  decimal.Decimal `db:"unit_price" json:"unit_price"`
	GSTPercent decimal.Decimal `db:"gst_percent" json:"gst_percent"`
	HSNCode    *string         `db:"hsn_code" json:"hsn_code,omitempty"`
	ExpiryDate time.Time       `db:"expiry_date" json:"expiry_date"`
	SupplierID *uuid.UUID      `db:"supplier_id" json:"supplier_id,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

func (s *StockItem) Expired(now time.Time) bool {
	return s.ExpiryDate.Before(now)
}

type PurchaseItem struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	PurchaseID uuid.UUID       `db:"purchase_id" json:"purchase_id"`
	Name       string          `db:"name" json:"name"`
	Batch      string          `db:"batch" json:"batch"`
	Quantity   int             `db:"quantity" json:"quantity"`
	UnitCost   decimal.Decimal `db:"unit_cost" json:"unit_cost"`
	UnitPrice  decimal.Decimal `db:"unit_price" json:"unit_price"`
	GSTPercent decimal.Decimal `db:"gst_percent" json:"gst_percent"`
	HSNCode    *string         `db:"hsn_code" json:"hsn_code,omitempty"`
	Barcode    *string         `db:"barcode" json:"barcode,omitempty"`
	ExpiryDate time.Time       `db:"expiry_date" json:"expiry_date"`
}

// PurchaseInvoice records goods received from a supplier. Booking a purchase
// also tops up the matching stock batches.
type PurchaseInvoice struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	SupplierID    uuid.UUID       `db:"supplier_id" json:"supplier_id"`
	InvoiceNumber string          `db:"invoice_number" json:"invoice_number"`
	PurchaseDate  time.Time       `db:"purchase_date" json:"purchase_date"`
	Total         decimal.Decimal `db:"total" json:"total"`
	Items         []*PurchaseItem `db:"-" json:"items"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

type SaleItem struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	SaleID      uuid.UUID       `db:"sale_id" json:"sale_id"`
	StockItemID uuid.UUID       `db:"stock_item_id" json:"stock_item_id"`
	Name        string          `db:"name" json:"name"`
	Batch       string          `db:"batch" json:"batch"`
	Quantity    int             `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
}

// Sale is a completed pharmacy checkout. Items on a sale have already been
// deducted from stock.
type Sale struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	VisitID   *uuid.UUID      `db:"visit_id" json:"visit_id,omitempty"`
	Total     decimal.Decimal `db:"total" json:"total"`
	Items     []*SaleItem     `db:"-" json:"items"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
