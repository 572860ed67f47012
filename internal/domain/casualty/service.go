package casualty

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/revivehealth/clinic/internal/domain/visit"
	"github.com/revivehealth/clinic/internal/platform/db"
)

type Service struct {
	repo   Repository
	visits *visit.Service
	tx     db.TxRunner
}

func NewService(repo Repository, visits *visit.Service, tx db.TxRunner) *Service {
	return &Service{repo: repo, visits: visits, tx: tx}
}

// ReferralRequest captures a casualty disposition for a visit currently on
// the CASUALTY queue.
type ReferralRequest struct {
	VisitID         uuid.UUID  `json:"visit_id"`
	ExpectedVersion int        `json:"expected_version"`
	Complaint       string     `json:"complaint"`
	Notes           *string    `json:"notes,omitempty"`
	Action          Action     `json:"action"`
	DoctorID        *uuid.UUID `json:"doctor_id,omitempty"`
	CreatedBy       *uuid.UUID `json:"-"`
}

// Refer writes the triage log entry and routes the visit in one transaction.
// A stale visit rolls the log entry back with the referral, so the log only
// ever records dispositions that actually happened.
func (s *Service) Refer(ctx context.Context, req ReferralRequest) (*TriageRecord, *visit.Visit, error) {
	if strings.TrimSpace(req.Complaint) == "" {
		return nil, nil, fmt.Errorf("complaint is required")
	}
	if !req.Action.Valid() {
		return nil, nil, fmt.Errorf("unknown action %q", req.Action)
	}

	var decision visit.Decision
	switch req.Action {
	case ActionReferDoctor:
		decision = visit.ReferTo(visit.RoleDoctor, req.DoctorID)
	case ActionReferLab:
		decision = visit.ReferTo(visit.RoleLab, nil)
	}

	rec := &TriageRecord{
		VisitID:   req.VisitID,
		Complaint: strings.TrimSpace(req.Complaint),
		Notes:     req.Notes,
		Action:    req.Action,
		DoctorID:  req.DoctorID,
		CreatedBy: req.CreatedBy,
	}

	var updated *visit.Visit
	err := s.tx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, rec); err != nil {
			return fmt.Errorf("write triage record: %w", err)
		}
		v, err := s.visits.Apply(ctx, req.VisitID, req.ExpectedVersion, decision)
		if err != nil {
			return err
		}
		updated = v
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return rec, updated, nil
}

// Log lists triage records for a visit in the order they were written.
func (s *Service) Log(ctx context.Context, visitID uuid.UUID) ([]*TriageRecord, error) {
	return s.repo.ListByVisit(ctx, visitID)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*TriageRecord, int, error) {
	return s.repo.List(ctx, limit, offset)
}
