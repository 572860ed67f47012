package visit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateVisit registers a new clinical episode. Reception opens visits either
// on its own queue or directly on the doctor queue.
func (s *Service) CreateVisit(ctx context.Context, v *Visit) error {
	if v.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if v.AssignedRole == "" {
		v.AssignedRole = RoleReception
	}
	if v.AssignedRole != RoleReception && v.AssignedRole != RoleDoctor {
		return fmt.Errorf("visits open on the RECEPTION or DOCTOR queue, not %s", v.AssignedRole)
	}
	if v.DoctorID != nil && v.AssignedRole != RoleDoctor {
		return fmt.Errorf("a doctor can only be attached when assigning to DOCTOR")
	}
	v.Status = StatusOpen
	return s.repo.Create(ctx, v)
}

func (s *Service) GetVisit(ctx context.Context, id uuid.UUID) (*Visit, error) {
	return s.repo.GetByID(ctx, id)
}

// Apply runs a department decision against the visit identified by id,
// persisting the routing outcome with an optimistic version check.
// expectedVersion is the version of the visit as the department last read
// it; ErrStaleVisit means another department moved the visit first.
func (s *Service) Apply(ctx context.Context, id uuid.UUID, expectedVersion int, d Decision) (*Visit, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("visit not found: %w", err)
	}
	if v.Version != expectedVersion {
		return nil, ErrStaleVisit
	}

	out, err := Transition(v, d)
	if err != nil {
		return nil, err
	}

	v.Status = out.Status
	v.AssignedRole = out.AssignedRole
	v.DoctorID = out.DoctorID
	if err := s.repo.Update(ctx, v, expectedVersion); err != nil {
		return nil, err
	}
	return v, nil
}

// UpdateVitals records vitals and an optional lab referral note on a working
// visit without moving it between queues.
func (s *Service) UpdateVitals(ctx context.Context, id uuid.UUID, expectedVersion int, vitals map[string]string, labReferral *string) (*Visit, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("visit not found: %w", err)
	}
	if !v.Working() {
		return nil, fmt.Errorf("%w: visit is closed", ErrInvalidTransition)
	}
	if vitals != nil {
		v.Vitals = vitals
	}
	if labReferral != nil {
		v.LabReferralDetails = labReferral
	}
	if err := s.repo.Update(ctx, v, expectedVersion); err != nil {
		return nil, err
	}
	return v, nil
}

// Queue lists the visits a department is currently responsible for.
func (s *Service) Queue(ctx context.Context, role Role, statuses []Status, limit, offset int) ([]*Visit, int, error) {
	if !role.Valid() {
		return nil, 0, fmt.Errorf("unknown department %q", role)
	}
	for _, st := range statuses {
		if !st.Valid() {
			return nil, 0, fmt.Errorf("unknown status %q", st)
		}
	}
	return s.repo.ListQueue(ctx, role, statuses, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}
