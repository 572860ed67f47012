package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrStaleInvoice is returned when an invoice write loses a concurrent
// update race. The caller must re-fetch and retry.
var ErrStaleInvoice = errors.New("stale invoice state")

// PendingVisit is a closed visit that has no invoice yet.
type PendingVisit struct {
	VisitID     uuid.UUID `db:"visit_id" json:"visit_id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	PatientName string    `db:"patient_name" json:"patient_name"`
	ClosedAt    time.Time `db:"closed_at" json:"closed_at"`
}

// Stats is the billing desk's daily dashboard.
type Stats struct {
	RevenueToday  decimal.Decimal `json:"revenue_today"`
	PendingAmount decimal.Decimal `json:"pending_amount"`
	InvoicesToday int             `json:"invoices_today"`
}

type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	// GetByVisit returns the visit's invoice, or pgx.ErrNoRows.
	GetByVisit(ctx context.Context, visitID uuid.UUID) (*Invoice, error)
	// Update replaces the invoice and its items only if the stored version
	// still equals expectedVersion. ErrStaleInvoice otherwise.
	Update(ctx context.Context, inv *Invoice, expectedVersion int) error
	List(ctx context.Context, status PaymentStatus, limit, offset int) ([]*Invoice, int, error)
	// ListPendingVisits finds CLOSED visits with no invoice.
	ListPendingVisits(ctx context.Context, limit, offset int) ([]*PendingVisit, int, error)
	Stats(ctx context.Context, dayStart, dayEnd time.Time) (*Stats, error)
}
