package lab

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/revivehealth/clinic/internal/domain/visit"
	"github.com/revivehealth/clinic/internal/platform/db"
)

type Service struct {
	charges   ChargeRepository
	inventory InventoryRepository
	visits    *visit.Service
	tx        db.TxRunner
}

func NewService(charges ChargeRepository, inventory InventoryRepository, visits *visit.Service, tx db.TxRunner) *Service {
	return &Service{charges: charges, inventory: inventory, visits: visits, tx: tx}
}

// StartTests marks the visit as being worked on by the lab.
func (s *Service) StartTests(ctx context.Context, visitID uuid.UUID, expectedVersion int) (*visit.Visit, error) {
	return s.visits.Apply(ctx, visitID, expectedVersion, visit.StartTest())
}

// ChargeRequest bills one test against a visit on the lab queue.
type ChargeRequest struct {
	VisitID         uuid.UUID       `json:"visit_id"`
	ExpectedVersion int             `json:"expected_version"`
	TestName        string          `json:"test_name"`
	Amount          decimal.Decimal `json:"amount"`
}

// AddCharge records the test charge and keeps the visit IN_PROGRESS, in one
// transaction. A rejected transition rolls the charge back.
func (s *Service) AddCharge(ctx context.Context, req ChargeRequest) (*Charge, *visit.Visit, error) {
	if strings.TrimSpace(req.TestName) == "" {
		return nil, nil, fmt.Errorf("test_name is required")
	}
	if req.Amount.IsNegative() {
		return nil, nil, fmt.Errorf("amount must not be negative")
	}

	ch := &Charge{
		VisitID:  req.VisitID,
		TestName: strings.TrimSpace(req.TestName),
		Amount:   req.Amount,
		Status:   ChargePending,
	}

	var updated *visit.Visit
	err := s.tx(ctx, func(ctx context.Context) error {
		if err := s.charges.Create(ctx, ch); err != nil {
			return fmt.Errorf("write lab charge: %w", err)
		}
		v, err := s.visits.Apply(ctx, req.VisitID, req.ExpectedVersion, visit.AddCharge())
		if err != nil {
			return err
		}
		updated = v
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return ch, updated, nil
}

// Complete attaches results to a pending charge and marks it done, stamping
// the report with the technician and publication time.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, technician string, results []ResultRow) (*Charge, error) {
	ch, err := s.charges.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("charge not found: %w", err)
	}
	if ch.Status != ChargePending {
		return nil, fmt.Errorf("charge is %s, only PENDING charges can be completed", ch.Status)
	}
	now := time.Now()
	ch.Status = ChargeCompleted
	ch.Results = results
	ch.Technician = strings.TrimSpace(technician)
	ch.ReportedAt = &now
	if err := s.charges.Update(ctx, ch); err != nil {
		return nil, err
	}
	return ch, nil
}

// Cancel voids a pending charge. Cancelled charges never reach the invoice.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Charge, error) {
	ch, err := s.charges.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("charge not found: %w", err)
	}
	if ch.Status != ChargePending {
		return nil, fmt.Errorf("charge is %s, only PENDING charges can be cancelled", ch.Status)
	}
	ch.Status = ChargeCancelled
	if err := s.charges.Update(ctx, ch); err != nil {
		return nil, err
	}
	return ch, nil
}

func (s *Service) ChargesByVisit(ctx context.Context, visitID uuid.UUID) ([]*Charge, error) {
	return s.charges.ListByVisit(ctx, visitID)
}

func (s *Service) Worklist(ctx context.Context, status ChargeStatus, limit, offset int) ([]*Charge, int, error) {
	switch status {
	case ChargePending, ChargeCompleted, ChargeCancelled:
	default:
		return nil, 0, fmt.Errorf("unknown charge status %q", status)
	}
	return s.charges.ListByStatus(ctx, status, limit, offset)
}

// AddInventoryItem registers a reagent or kit.
func (s *Service) AddInventoryItem(ctx context.Context, item *InventoryItem) error {
	if strings.TrimSpace(item.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if !item.Category.Valid() {
		return fmt.Errorf("category must be REAGENT or KIT")
	}
	if item.Quantity < 0 || item.ReorderLevel < 0 {
		return fmt.Errorf("quantity and reorder_level must not be negative")
	}
	item.Name = strings.TrimSpace(item.Name)
	return s.inventory.Create(ctx, item)
}

// AdjustInventory applies a delta to an item's quantity, e.g. -2 when two
// kits are consumed.
func (s *Service) AdjustInventory(ctx context.Context, id uuid.UUID, delta int) (*InventoryItem, error) {
	item, err := s.inventory.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("inventory item not found: %w", err)
	}
	if item.Quantity+delta < 0 {
		return nil, fmt.Errorf("insufficient stock: have %d, adjusting by %d", item.Quantity, delta)
	}
	item.Quantity += delta
	if err := s.inventory.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) ListInventory(ctx context.Context, limit, offset int) ([]*InventoryItem, int, error) {
	return s.inventory.List(ctx, limit, offset)
}

func (s *Service) LowStock(ctx context.Context) ([]*InventoryItem, error) {
	return s.inventory.ListLowStock(ctx)
}
