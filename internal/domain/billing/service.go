package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/revivehealth/clinic/internal/domain/clinicalnote"
	"github.com/revivehealth/clinic/internal/domain/lab"
	"github.com/revivehealth/clinic/internal/domain/patient"
	"github.com/revivehealth/clinic/internal/domain/pharmacy"
	"github.com/revivehealth/clinic/internal/domain/visit"
	"github.com/revivehealth/clinic/internal/platform/db"
)

// ErrInvoicePaid guards paid invoices: once payment is taken the bill is
// final and every further edit is rejected.
var ErrInvoicePaid = errors.New("invoice is paid and can no longer change")

// Department sources the reconciler pulls candidates from.
type VisitSource interface {
	GetVisit(ctx context.Context, id uuid.UUID) (*visit.Visit, error)
}

type PatientSource interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type NoteSource interface {
	History(ctx context.Context, visitID uuid.UUID) ([]*clinicalnote.ClinicalNote, error)
}

type LabSource interface {
	ChargesByVisit(ctx context.Context, visitID uuid.UUID) ([]*lab.Charge, error)
}

type SaleSource interface {
	SalesByVisit(ctx context.Context, visitID uuid.UUID) ([]*pharmacy.Sale, error)
}

type StockSource interface {
	StockByName(ctx context.Context, name string) (*pharmacy.StockItem, error)
}

type Service struct {
	repo     Repository
	visits   VisitSource
	patients PatientSource
	notes    NoteSource
	labs     LabSource
	sales    SaleSource
	stock    StockSource
	tx       db.TxRunner

	consultationFee decimal.Decimal
	now             func() time.Time
}

func NewService(repo Repository, visits VisitSource, patients PatientSource,
	notes NoteSource, labs LabSource, sales SaleSource, stock StockSource,
	tx db.TxRunner, consultationFee decimal.Decimal) *Service {
	return &Service{
		repo:            repo,
		visits:          visits,
		patients:        patients,
		notes:           notes,
		labs:            labs,
		sales:           sales,
		stock:           stock,
		tx:              tx,
		consultationFee: consultationFee,
		now:             time.Now,
	}
}

// Draft is a reconciled bill that has not been persisted. Billing reviews
// it, adds manual items and saves it as an invoice.
type Draft struct {
	VisitID     uuid.UUID       `json:"visit_id"`
	PatientName string          `json:"patient_name"`
	Items       []LineItem      `json:"items"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	AmountDue   decimal.Decimal `json:"amount_due"`
}

// BuildDraft gathers candidates from every department that touched the
// visit and reconciles them. manual carries the clerk's own items, kept
// verbatim at the end of the bill.
func (s *Service) BuildDraft(ctx context.Context, visitID uuid.UUID, manual []Candidate) (*Draft, error) {
	v, err := s.visits.GetVisit(ctx, visitID)
	if err != nil {
		return nil, fmt.Errorf("visit not found: %w", err)
	}
	p, err := s.patients.GetPatient(ctx, v.PatientID)
	if err != nil {
		return nil, fmt.Errorf("patient not found: %w", err)
	}

	in := ReconcileInput{Manual: manual}

	// A consultation is billable only when a doctor actually saw the patient.
	if v.DoctorID != nil {
		in.Consultation = &Candidate{
			Description: "General Consultation Fee",
			Dept:        DeptConsultation,
			Qty:         1,
			UnitPrice:   s.consultationFee,
			Amount:      s.consultationFee,
		}
	}

	charges, err := s.labs.ChargesByVisit(ctx, visitID)
	if err != nil {
		return nil, fmt.Errorf("load lab charges: %w", err)
	}
	for _, ch := range charges {
		if ch.Status == lab.ChargeCancelled {
			continue
		}
		in.LabItems = append(in.LabItems, Candidate{
			Description: ch.TestName,
			Dept:        DeptLab,
			Qty:         1,
			UnitPrice:   ch.Amount,
			Amount:      ch.Amount,
		})
	}

	sales, err := s.sales.SalesByVisit(ctx, visitID)
	if err != nil {
		return nil, fmt.Errorf("load pharmacy sales: %w", err)
	}
	for _, sale := range sales {
		for _, item := range sale.Items {
			batch := item.Batch
			in.SaleItems = append(in.SaleItems, Candidate{
				Description: item.Name,
				Dept:        DeptPharmacy,
				Qty:         item.Quantity,
				UnitPrice:   item.UnitPrice,
				Amount:      item.Amount,
				Batch:       &batch,
			})
		}
	}

	notes, err := s.notes.History(ctx, visitID)
	if err != nil {
		return nil, fmt.Errorf("load clinical notes: %w", err)
	}
	for _, note := range notes {
		for _, line := range note.Prescription {
			in.Suggestions = append(in.Suggestions, s.suggestionFor(ctx, line))
		}
	}

	rec := Reconcile(in)
	return &Draft{
		VisitID:     visitID,
		PatientName: p.FullName,
		Items:       rec.Items,
		Subtotal:    rec.Subtotal,
		AmountDue:   rec.AmountDue,
	}, nil
}

// suggestionFor prices a prescription line from current stock. An unmatched
// drug name still yields a candidate, at zero price and flagged for the
// clerk, so a prescription line is never silently dropped from the bill.
func (s *Service) suggestionFor(ctx context.Context, line clinicalnote.PrescriptionLine) Candidate {
	c := Candidate{
		Description: line.Medicine,
		Dept:        DeptPharmacy,
		Qty:         line.Quantity,
	}
	if line.Dosage != "" {
		dosage := line.Dosage
		c.Dosage = &dosage
	}
	if line.Duration != "" {
		duration := line.Duration
		c.Duration = &duration
	}

	stock, err := s.stock.StockByName(ctx, line.Medicine)
	if err != nil {
		c.NeedsPricing = true
		return c
	}
	c.UnitPrice = stock.UnitPrice
	c.GSTPercent = stock.GSTPercent
	batch := stock.Batch
	c.Batch = &batch
	c.HSNCode = stock.HSNCode
	return c
}

// CreateInvoice persists the reconciled draft as the visit's invoice.
func (s *Service) CreateInvoice(ctx context.Context, visitID uuid.UUID, manual []Candidate) (*Invoice, error) {
	if _, err := s.repo.GetByVisit(ctx, visitID); err == nil {
		return nil, fmt.Errorf("visit already has an invoice")
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	draft, err := s.BuildDraft(ctx, visitID, manual)
	if err != nil {
		return nil, err
	}

	inv := &Invoice{
		VisitID:       visitID,
		PatientName:   draft.PatientName,
		PaymentStatus: PaymentPending,
		Subtotal:      draft.Subtotal,
		AmountDue:     draft.AmountDue,
	}
	for i := range draft.Items {
		item := draft.Items[i]
		inv.Items = append(inv.Items, &item)
	}

	if err := s.tx(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, inv)
	}); err != nil {
		return nil, err
	}
	return inv, nil
}

// Rebuild re-runs reconciliation for an existing pending invoice, carrying
// its manual items through untouched. Used when departments added charges
// after the draft was first cut.
func (s *Service) Rebuild(ctx context.Context, invoiceID uuid.UUID, expectedVersion int) (*Invoice, error) {
	inv, err := s.repo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("invoice not found: %w", err)
	}
	if inv.PaymentStatus == PaymentPaid {
		return nil, ErrInvoicePaid
	}

	var manual []Candidate
	for _, item := range inv.Items {
		if item.Provenance != Manual {
			continue
		}
		manual = append(manual, Candidate{
			Description:  item.Description,
			Dept:         item.Dept,
			Qty:          item.Qty,
			UnitPrice:    item.UnitPrice,
			Amount:       item.Amount,
			Batch:        item.Batch,
			HSNCode:      item.HSNCode,
			GSTPercent:   item.GSTPercent,
			Dosage:       item.Dosage,
			Duration:     item.Duration,
			NeedsPricing: item.NeedsPricing,
		})
	}

	draft, err := s.BuildDraft(ctx, inv.VisitID, manual)
	if err != nil {
		return nil, err
	}

	inv.Items = nil
	for i := range draft.Items {
		item := draft.Items[i]
		inv.Items = append(inv.Items, &item)
	}
	inv.Subtotal = draft.Subtotal
	inv.AmountDue = draft.AmountDue

	if err := s.tx(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, inv, expectedVersion)
	}); err != nil {
		return nil, err
	}
	return inv, nil
}

// UpdateItems replaces a pending invoice's line items with the clerk's
// edited list and recomputes totals.
func (s *Service) UpdateItems(ctx context.Context, invoiceID uuid.UUID, expectedVersion int, items []Candidate) (*Invoice, error) {
	inv, err := s.repo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("invoice not found: %w", err)
	}
	if inv.PaymentStatus == PaymentPaid {
		return nil, ErrInvoicePaid
	}

	rec := Reconcile(ReconcileInput{Manual: items})
	inv.Items = nil
	for i := range rec.Items {
		item := rec.Items[i]
		inv.Items = append(inv.Items, &item)
	}
	inv.Subtotal = rec.Subtotal
	inv.AmountDue = rec.AmountDue

	if err := s.tx(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, inv, expectedVersion)
	}); err != nil {
		return nil, err
	}
	return inv, nil
}

// MarkPaid finalizes the invoice. There is no way back to PENDING.
func (s *Service) MarkPaid(ctx context.Context, invoiceID uuid.UUID, expectedVersion int) (*Invoice, error) {
	inv, err := s.repo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("invoice not found: %w", err)
	}
	if inv.PaymentStatus == PaymentPaid {
		return nil, ErrInvoicePaid
	}

	inv.PaymentStatus = PaymentPaid
	if err := s.tx(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, inv, expectedVersion)
	}); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) InvoiceByVisit(ctx context.Context, visitID uuid.UUID) (*Invoice, error) {
	return s.repo.GetByVisit(ctx, visitID)
}

func (s *Service) ListInvoices(ctx context.Context, status PaymentStatus, limit, offset int) ([]*Invoice, int, error) {
	switch status {
	case PaymentPending, PaymentPaid:
	default:
		return nil, 0, fmt.Errorf("unknown payment status %q", status)
	}
	return s.repo.List(ctx, status, limit, offset)
}

// PendingVisits lists discharged patients still waiting for a bill.
func (s *Service) PendingVisits(ctx context.Context, limit, offset int) ([]*PendingVisit, int, error) {
	return s.repo.ListPendingVisits(ctx, limit, offset)
}

// DailyStats reports today's takings and backlog.
func (s *Service) DailyStats(ctx context.Context) (*Stats, error) {
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return s.repo.Stats(ctx, dayStart, dayStart.AddDate(0, 0, 1))
}
