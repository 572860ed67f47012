package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
)

// Provenance says where a line item came from. Reconciliation is a match
// over this tag: only SUGGESTED items are ever removed, and only REAL
// pharmacy sales can remove them. MANUAL entries are a billing clerk's
// explicit work and are left alone.
type Provenance string

const (
	Suggested Provenance = "SUGGESTED"
	Real      Provenance = "REAL"
	Manual    Provenance = "MANUAL"
)

const (
	DeptConsultation = "CONSULTATION"
	DeptLab          = "LAB"
	DeptPharmacy     = "PHARMACY"
	DeptOther        = "OTHER"
)

// LineItem is one row on an invoice. NeedsPricing marks a prescription
// suggestion that matched no stock record, kept at zero price for the clerk
// to fill in rather than silently dropped.
type LineItem struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	InvoiceID    uuid.UUID       `db:"invoice_id" json:"invoice_id"`
	Description  string          `db:"description" json:"description"`
	Dept         string          `db:"dept" json:"dept"`
	Provenance   Provenance      `db:"provenance" json:"provenance"`
	Qty          int             `db:"qty" json:"qty"`
	UnitPrice    decimal.Decimal `db:"unit_price" json:"unit_price"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	Batch        *string         `db:"batch" json:"batch,omitempty"`
	HSNCode      *string         `db:"hsn_code" json:"hsn_code,omitempty"`
	GSTPercent   decimal.Decimal `db:"gst_percent" json:"gst_percent"`
	Dosage       *string         `db:"dosage" json:"dosage,omitempty"`
	Duration     *string         `db:"duration" json:"duration,omitempty"`
	NeedsPricing bool            `db:"needs_pricing" json:"needs_pricing"`
	Position     int             `db:"line_no" json:"position"`
}

// Invoice is the bill for one visit. Subtotal is the exact 2-decimal sum of
// line amounts; AmountDue is the subtotal ceiling-rounded to a whole
// currency unit for cash handling.
type Invoice struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	VisitID       uuid.UUID       `db:"visit_id" json:"visit_id"`
	PatientName   string          `db:"patient_name" json:"patient_name"`
	PaymentStatus PaymentStatus   `db:"payment_status" json:"payment_status"`
	Subtotal      decimal.Decimal `db:"subtotal" json:"subtotal"`
	AmountDue     decimal.Decimal `db:"amount_due" json:"amount_due"`
	Items         []*LineItem     `db:"-" json:"items"`
	Version       int             `db:"version" json:"version"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}
