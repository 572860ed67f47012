package clinicalnote

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

// ConsultationRequest is what the doctor submits when finishing with a
// patient: findings plus where the visit goes next.
type ConsultationRequest struct {
	VisitID         uuid.UUID          `json:"visit_id"`
	ExpectedVersion int                `json:"expected_version"`
	Symptoms        *string            `json:"symptoms,omitempty"`
	Diagnosis       string             `json:"diagnosis"`
	Notes           *string            `json:"notes,omitempty"`
	Prescription    []PrescriptionLine `json:"prescription,omitempty"`
	LabTests        []string           `json:"lab_tests,omitempty"`
	NextStep        NextStep           `json:"next_step"`
	DoctorID        uuid.UUID          `json:"-"`
}

// Record writes the consultation note and moves the visit in one
// transaction. The visit must be on the doctor's queue with a matching
// version, otherwise nothing is written.
func (s *Service) Record(ctx context.Context, req ConsultationRequest) (*ClinicalNote, *visit.Visit, error) {
	if strings.TrimSpace(req.Diagnosis) == "" {
		return nil, nil, fmt.Errorf("diagnosis is required")
	}
	if !req.NextStep.Valid() {
		return nil, nil, fmt.Errorf("unknown next step %q", req.NextStep)
	}
	if req.DoctorID == uuid.Nil {
		return nil, nil, fmt.Errorf("doctor is required")
	}

	var decision visit.Decision
	switch req.NextStep {
	case StepDischarge:
		decision = visit.Discharge()
	case StepReferLab:
		decision = visit.ReferTo(visit.RoleLab, nil)
	case StepReferPharmacy:
		decision = visit.ReferTo(visit.RolePharmacy, nil)
	}

	n := &ClinicalNote{
		VisitID:      req.VisitID,
		DoctorID:     req.DoctorID,
		Symptoms:     req.Symptoms,
		Diagnosis:    strings.TrimSpace(req.Diagnosis),
		Notes:        req.Notes,
		Prescription: req.Prescription,
		LabTests:     req.LabTests,
		NextStep:     req.NextStep,
	}

	var updated *visit.Visit
	err := s.tx(ctx, func(ctx context.Context) error {
		v, err := s.visits.GetVisit(ctx, req.VisitID)
		if err != nil {
			return fmt.Errorf("visit not found: %w", err)
		}
		if v.AssignedRole != visit.RoleDoctor {
			return fmt.Errorf("%w: visit is on the %s queue", visit.ErrInvalidTransition, v.AssignedRole)
		}
		if err := s.repo.Create(ctx, n); err != nil {
			return fmt.Errorf("write clinical note: %w", err)
		}
		updated, err = s.visits.Apply(ctx, req.VisitID, req.ExpectedVersion, decision)
		if err != nil {
			return err
		}
		// A lab referral carries the requested tests on the visit so the
		// lab queue shows what to run without opening the note.
		if req.NextStep == StepReferLab && len(req.LabTests) > 0 {
			details := strings.Join(req.LabTests, ", ")
			updated, err = s.visits.UpdateVitals(ctx, req.VisitID, updated.Version, nil, &details)
		}
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return n, updated, nil
}

func (s *Service) GetNote(ctx context.Context, id uuid.UUID) (*ClinicalNote, error) {
	return s.repo.GetByID(ctx, id)
}

// History lists a visit's notes oldest first.
func (s *Service) History(ctx context.Context, visitID uuid.UUID) ([]*ClinicalNote, error) {
	return s.repo.ListByVisit(ctx, visitID)
}
