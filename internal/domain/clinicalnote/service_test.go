package clinicalnote

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/revivehealth/clinic/internal/domain/visit"
)

type mockRepo struct {
	notes []*ClinicalNote
}

func (m *mockRepo) Create(ctx context.Context, n *ClinicalNote) error {
	n.ID = uuid.New()
	cp := *n
	m.notes = append(m.notes, &cp)
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*ClinicalNote, error) {
	for _, n := range m.notes {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, fmt.Errorf("note %s not found", id)
}

func (m *mockRepo) ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*ClinicalNote, error) {
	var out []*ClinicalNote
	for _, n := range m.notes {
		if n.VisitID == visitID {
			out = append(out, n)
		}
	}
	return out, nil
}

type mockVisitRepo struct {
	visits map[uuid.UUID]*visit.Visit
}

func (m *mockVisitRepo) Create(ctx context.Context, v *visit.Visit) error {
	v.Version = 1
	m.visits[v.ID] = v
	return nil
}

func (m *mockVisitRepo) GetByID(ctx context.Context, id uuid.UUID) (*visit.Visit, error) {
	v, ok := m.visits[id]
	if !ok {
		return nil, fmt.Errorf("visit %s not found", id)
	}
	cp := *v
	return &cp, nil
}

func (m *mockVisitRepo) Update(ctx context.Context, v *visit.Visit, expectedVersion int) error {
	stored, ok := m.visits[v.ID]
	if !ok || stored.Version != expectedVersion {
		return visit.ErrStaleVisit
	}
	v.Version = expectedVersion + 1
	cp := *v
	m.visits[v.ID] = &cp
	return nil
}

func (m *mockVisitRepo) ListQueue(ctx context.Context, role visit.Role, statuses []visit.Status, limit, offset int) ([]*visit.Visit, int, error) {
	return nil, 0, nil
}

func (m *mockVisitRepo) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*visit.Visit, int, error) {
	return nil, 0, nil
}

func passthroughTx(repo *mockRepo) func(ctx context.Context, fn func(ctx context.Context) error) error {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		before := len(repo.notes)
		if err := fn(ctx); err != nil {
			repo.notes = repo.notes[:before]
			return err
		}
		return nil
	}
}

func newTestService(t *testing.T, role visit.Role) (*Service, *mockRepo, *visit.Visit) {
	t.Helper()
	vrepo := &mockVisitRepo{visits: make(map[uuid.UUID]*visit.Visit)}
	docID := uuid.New()
	v := &visit.Visit{
		ID:           uuid.New(),
		PatientID:    uuid.New(),
		Status:       visit.StatusInProgress,
		AssignedRole: role,
		DoctorID:     &docID,
	}
	if err := vrepo.Create(context.Background(), v); err != nil {
		t.Fatalf("seed visit: %v", err)
	}
	repo := &mockRepo{}
	svc := NewService(repo, visit.NewService(vrepo), passthroughTx(repo))
	return svc, repo, v
}

func TestRecord_DischargeClosesVisit(t *testing.T) {
	svc, repo, v := newTestService(t, visit.RoleDoctor)

	n, updated, err := svc.Record(context.Background(), ConsultationRequest{
		VisitID:         v.ID,
		ExpectedVersion: 1,
		Diagnosis:       "viral fever",
		NextStep:        StepDischarge,
		DoctorID:        *v.DoctorID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != visit.StatusClosed {
		t.Errorf("expected CLOSED, got %s", updated.Status)
	}
	if n.Diagnosis != "viral fever" {
		t.Errorf("unexpected diagnosis %q", n.Diagnosis)
	}
	if len(repo.notes) != 1 {
		t.Errorf("expected one note, got %d", len(repo.notes))
	}
}

func TestRecord_ReferPharmacyKeepsDoctor(t *testing.T) {
	svc, _, v := newTestService(t, visit.RoleDoctor)

	_, updated, err := svc.Record(context.Background(), ConsultationRequest{
		VisitID:         v.ID,
		ExpectedVersion: 1,
		Diagnosis:       "bacterial infection",
		Prescription: []PrescriptionLine{
			{Medicine: "Amoxicillin 500mg", Dosage: "1-0-1", Duration: "5 days"},
		},
		NextStep: StepReferPharmacy,
		DoctorID: *v.DoctorID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.AssignedRole != visit.RolePharmacy || updated.Status != visit.StatusOpen {
		t.Errorf("expected OPEN/PHARMACY, got %s/%s", updated.Status, updated.AssignedRole)
	}
	if updated.DoctorID == nil || *updated.DoctorID != *v.DoctorID {
		t.Error("expected consulting doctor kept on referral")
	}
}

func TestRecord_ReferLabCarriesTestsOnVisit(t *testing.T) {
	svc, _, v := newTestService(t, visit.RoleDoctor)

	_, updated, err := svc.Record(context.Background(), ConsultationRequest{
		VisitID:         v.ID,
		ExpectedVersion: 1,
		Diagnosis:       "suspected dengue",
		LabTests:        []string{"CBC", "NS1 Antigen"},
		NextStep:        StepReferLab,
		DoctorID:        *v.DoctorID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.AssignedRole != visit.RoleLab || updated.Status != visit.StatusOpen {
		t.Errorf("expected OPEN/LAB, got %s/%s", updated.Status, updated.AssignedRole)
	}
	if updated.LabReferralDetails == nil || *updated.LabReferralDetails != "CBC, NS1 Antigen" {
		t.Errorf("lab referral details not carried on the visit: %v", updated.LabReferralDetails)
	}
	// version reflects the referral write as well as the transition
	if updated.Version != 3 {
		t.Errorf("expected version 3, got %d", updated.Version)
	}
}

func TestRecord_RejectedOffDoctorQueue(t *testing.T) {
	svc, repo, v := newTestService(t, visit.RoleLab)

	_, _, err := svc.Record(context.Background(), ConsultationRequest{
		VisitID:         v.ID,
		ExpectedVersion: 1,
		Diagnosis:       "anything",
		NextStep:        StepDischarge,
		DoctorID:        uuid.New(),
	})
	if !errors.Is(err, visit.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if len(repo.notes) != 0 {
		t.Error("rejected consultation must not leave a note behind")
	}
}

func TestRecord_StaleVisitRollsBackNote(t *testing.T) {
	svc, repo, v := newTestService(t, visit.RoleDoctor)

	_, _, err := svc.Record(context.Background(), ConsultationRequest{
		VisitID:         v.ID,
		ExpectedVersion: 9,
		Diagnosis:       "viral fever",
		NextStep:        StepDischarge,
		DoctorID:        *v.DoctorID,
	})
	if !errors.Is(err, visit.ErrStaleVisit) {
		t.Fatalf("expected ErrStaleVisit, got %v", err)
	}
	if len(repo.notes) != 0 {
		t.Error("failed consultation must not leave a note behind")
	}
}

func TestRecord_Validation(t *testing.T) {
	svc, _, v := newTestService(t, visit.RoleDoctor)

	cases := []struct {
		name string
		req  ConsultationRequest
	}{
		{"blank diagnosis", ConsultationRequest{VisitID: v.ID, ExpectedVersion: 1, Diagnosis: " ", NextStep: StepDischarge, DoctorID: uuid.New()}},
		{"unknown next step", ConsultationRequest{VisitID: v.ID, ExpectedVersion: 1, Diagnosis: "flu", NextStep: "REFER_XRAY", DoctorID: uuid.New()}},
		{"missing doctor", ConsultationRequest{VisitID: v.ID, ExpectedVersion: 1, Diagnosis: "flu", NextStep: StepDischarge}},
	}
	for _, tc := range cases {
		if _, _, err := svc.Record(context.Background(), tc.req); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}
