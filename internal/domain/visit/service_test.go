package visit

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
)

type mockRepo struct {
	visits map[uuid.UUID]*Visit
}

func newMockRepo() *mockRepo {
	return &mockRepo{visits: make(map[uuid.UUID]*Visit)}
}

func (m *mockRepo) Create(ctx context.Context, v *Visit) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	v.Version = 1
	cp := *v
	m.visits[v.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Visit, error) {
	v, ok := m.visits[id]
	if !ok {
		return nil, fmt.Errorf("visit %s not found", id)
	}
	cp := *v
	return &cp, nil
}

func (m *mockRepo) Update(ctx context.Context, v *Visit, expectedVersion int) error {
	stored, ok := m.visits[v.ID]
	if !ok || stored.Version != expectedVersion {
		return ErrStaleVisit
	}
	v.Version = expectedVersion + 1
	cp := *v
	m.visits[v.ID] = &cp
	return nil
}

func (m *mockRepo) ListQueue(ctx context.Context, role Role, statuses []Status, limit, offset int) ([]*Visit, int, error) {
	var out []*Visit
	for _, v := range m.visits {
		if v.AssignedRole != role {
			continue
		}
		if len(statuses) > 0 {
			match := false
			for _, st := range statuses {
				if v.Status == st {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		cp := *v
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *mockRepo) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	var out []*Visit
	for _, v := range m.visits {
		if v.PatientID == patientID {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func seedVisit(t *testing.T, repo *mockRepo, status Status, role Role) *Visit {
	t.Helper()
	v := &Visit{PatientID: uuid.New(), Status: status, AssignedRole: role}
	if err := repo.Create(context.Background(), v); err != nil {
		t.Fatalf("seed visit: %v", err)
	}
	return v
}

func TestCreateVisit_DefaultsToReception(t *testing.T) {
	svc := NewService(newMockRepo())

	v := &Visit{PatientID: uuid.New()}
	if err := svc.CreateVisit(context.Background(), v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Status != StatusOpen {
		t.Errorf("expected OPEN, got %s", v.Status)
	}
	if v.AssignedRole != RoleReception {
		t.Errorf("expected RECEPTION, got %s", v.AssignedRole)
	}
	if v.Version != 1 {
		t.Errorf("expected version 1, got %d", v.Version)
	}
}

func TestCreateVisit_RejectsDepartmentQueues(t *testing.T) {
	svc := NewService(newMockRepo())

	for _, role := range []Role{RoleLab, RolePharmacy, RoleCasualty} {
		v := &Visit{PatientID: uuid.New(), AssignedRole: role}
		if err := svc.CreateVisit(context.Background(), v); err == nil {
			t.Errorf("expected error creating visit directly in %s", role)
		}
	}
}

func TestCreateVisit_RequiresPatient(t *testing.T) {
	svc := NewService(newMockRepo())
	if err := svc.CreateVisit(context.Background(), &Visit{}); err == nil {
		t.Error("expected error for missing patient")
	}
}

func TestApply_ReferralMovesQueue(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	v := seedVisit(t, repo, StatusOpen, RoleReception)

	updated, err := svc.Apply(context.Background(), v.ID, 1, ReferTo(RoleDoctor, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.AssignedRole != RoleDoctor || updated.Status != StatusOpen {
		t.Errorf("expected OPEN/DOCTOR, got %s/%s", updated.Status, updated.AssignedRole)
	}
	if updated.Version != 2 {
		t.Errorf("expected version 2 after update, got %d", updated.Version)
	}
}

func TestApply_StaleVersion(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	v := seedVisit(t, repo, StatusOpen, RoleReception)

	if _, err := svc.Apply(context.Background(), v.ID, 1, ReferTo(RoleDoctor, nil)); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	_, err := svc.Apply(context.Background(), v.ID, 1, ReferTo(RoleLab, nil))
	if !errors.Is(err, ErrStaleVisit) {
		t.Errorf("expected ErrStaleVisit on replay, got %v", err)
	}
}

func TestApply_InvalidDecisionLeavesVisitUntouched(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	v := seedVisit(t, repo, StatusOpen, RoleReception)

	if _, err := svc.Apply(context.Background(), v.ID, 1, Discharge()); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	stored, _ := repo.GetByID(context.Background(), v.ID)
	if stored.Version != 1 || stored.AssignedRole != RoleReception {
		t.Error("rejected decision must not modify the visit")
	}
}

func TestApply_DischargeClosesVisit(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	v := seedVisit(t, repo, StatusInProgress, RoleDoctor)

	updated, err := svc.Apply(context.Background(), v.ID, 1, Discharge())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != StatusClosed {
		t.Errorf("expected CLOSED, got %s", updated.Status)
	}

	_, err = svc.Apply(context.Background(), v.ID, 2, AddCharge())
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected closed visit to reject further decisions, got %v", err)
	}
}

func TestUpdateVitals(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	v := seedVisit(t, repo, StatusOpen, RoleReception)

	vitals := map[string]string{"bp": "120/80", "temp": "98.6"}
	updated, err := svc.UpdateVitals(context.Background(), v.ID, 1, vitals, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Vitals["bp"] != "120/80" {
		t.Errorf("vitals not recorded: %v", updated.Vitals)
	}
	if updated.Version != 2 {
		t.Errorf("expected version bump, got %d", updated.Version)
	}
}

func TestUpdateVitals_ClosedVisit(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	v := seedVisit(t, repo, StatusClosed, RoleDoctor)

	_, err := svc.UpdateVitals(context.Background(), v.ID, 1, map[string]string{"bp": "130/85"}, nil)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition on closed visit, got %v", err)
	}
}

func TestQueue_ValidatesRole(t *testing.T) {
	svc := NewService(newMockRepo())
	if _, _, err := svc.Queue(context.Background(), "XRAY", nil, 20, 0); err == nil {
		t.Error("expected error for unknown department")
	}
	if _, _, err := svc.Queue(context.Background(), RoleLab, []Status{"ARCHIVED"}, 20, 0); err == nil {
		t.Error("expected error for unknown status")
	}
}
