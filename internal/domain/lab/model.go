package lab

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ChargeStatus string

const (
	ChargePending   ChargeStatus = "PENDING"
	ChargeCompleted ChargeStatus = "COMPLETED"
	ChargeCancelled ChargeStatus = "CANCELLED"
)

// ResultRow is one measured parameter on a completed test.
type ResultRow struct {
	Parameter      string `json:"parameter"`
	Value          string `json:"value"`
	Unit           string `json:"unit,omitempty"`
	ReferenceRange string `json:"reference_range,omitempty"`
}

// Charge is a lab test billed against a visit. Cancelled charges stay on
// record but are excluded from invoicing.
type Charge struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	VisitID    uuid.UUID       `db:"visit_id" json:"visit_id"`
	TestName   string          `db:"test_name" json:"test_name"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	Status     ChargeStatus    `db:"status" json:"status"`
	Results    []ResultRow     `db:"results" json:"results,omitempty"`
	Technician string          `db:"technician" json:"technician,omitempty"`
	ReportedAt *time.Time      `db:"reported_at" json:"reported_at,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

type InventoryCategory string

const (
	CategoryReagent InventoryCategory = "REAGENT"
	CategoryKit     InventoryCategory = "KIT"
)

func (c InventoryCategory) Valid() bool {
	return c == CategoryReagent || c == CategoryKit
}

// InventoryItem tracks lab consumables. An item is low on stock when its
// quantity is at or below its reorder level.
type InventoryItem struct {
	ID           uuid.UUID         `db:"id" json:"id"`
	Name         string            `db:"name" json:"name"`
	Category     InventoryCategory `db:"category" json:"category"`
	Quantity     int               `db:"quantity" json:"quantity"`
	Unit         string            `db:"unit" json:"unit,omitempty"`
	ReorderLevel int               `db:"reorder_level" json:"reorder_level"`
	ExpiryDate   *time.Time        `db:"expiry_date" json:"expiry_date,omitempty"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time         `db:"updated_at" json:"updated_at"`
}

func (i *InventoryItem) LowStock() bool {
	return i.Quantity <= i.ReorderLevel
}
