package visit

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func workingVisit(status Status, role Role) *Visit {
	return &Visit{
		ID:           uuid.New(),
		PatientID:    uuid.New(),
		Status:       status,
		AssignedRole: role,
		Version:      1,
	}
}

func TestTransition_DischargeFromDoctor(t *testing.T) {
	docID := uuid.New()
	v := workingVisit(StatusInProgress, RoleDoctor)
	v.DoctorID = &docID

	out, err := Transition(v, Discharge())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != StatusClosed {
		t.Errorf("expected CLOSED, got %s", out.Status)
	}
	if out.AssignedRole != RoleDoctor {
		t.Errorf("expected role kept as DOCTOR, got %s", out.AssignedRole)
	}
	if out.DoctorID == nil || *out.DoctorID != docID {
		t.Error("expected doctor preserved on discharge")
	}
}

func TestTransition_DischargeOnlyFromDoctor(t *testing.T) {
	for _, role := range []Role{RoleReception, RoleLab, RolePharmacy, RoleCasualty} {
		v := workingVisit(StatusOpen, role)
		_, err := Transition(v, Discharge())
		if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("DISCHARGE from %s: expected ErrInvalidTransition, got %v", role, err)
		}
	}
}

func TestTransition_ClosedIsTerminal(t *testing.T) {
	v := workingVisit(StatusClosed, RoleDoctor)
	decisions := []Decision{Discharge(), ReferTo(RoleLab, nil), StartTest(), AddCharge()}
	for _, d := range decisions {
		if _, err := Transition(v, d); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s on closed visit: expected ErrInvalidTransition, got %v", d.Kind, err)
		}
	}
}

func TestTransition_UnknownStateAlwaysFails(t *testing.T) {
	cases := []*Visit{
		workingVisit("ARCHIVED", RoleDoctor),
		workingVisit(StatusOpen, "RADIOLOGY"),
		workingVisit("", ""),
	}
	for _, v := range cases {
		if _, err := Transition(v, ReferTo(RoleLab, nil)); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("state %s/%s: expected ErrInvalidTransition, got %v", v.Status, v.AssignedRole, err)
		}
	}
}

func TestTransition_ReferToReopens(t *testing.T) {
	v := workingVisit(StatusInProgress, RoleCasualty)

	out, err := Transition(v, ReferTo(RoleLab, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != StatusOpen {
		t.Errorf("expected OPEN after referral, got %s", out.Status)
	}
	if out.AssignedRole != RoleLab {
		t.Errorf("expected LAB, got %s", out.AssignedRole)
	}
}

func TestTransition_ReferToDoctorSetsPhysician(t *testing.T) {
	docID := uuid.New()
	v := workingVisit(StatusOpen, RoleCasualty)

	out, err := Transition(v, ReferTo(RoleDoctor, &docID))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.DoctorID == nil || *out.DoctorID != docID {
		t.Error("expected chosen physician on referral")
	}
}

func TestTransition_ReferToDoctorUnassignedPool(t *testing.T) {
	v := workingVisit(StatusOpen, RoleReception)

	out, err := Transition(v, ReferTo(RoleDoctor, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.DoctorID != nil {
		t.Error("expected nil doctor for the unassigned pool")
	}
}

func TestTransition_ReferToKeepsDoctorForOtherDepartments(t *testing.T) {
	docID := uuid.New()
	v := workingVisit(StatusInProgress, RoleDoctor)
	v.DoctorID = &docID

	out, err := Transition(v, ReferTo(RoleLab, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.DoctorID == nil || *out.DoctorID != docID {
		t.Error("expected referring doctor kept on a LAB referral")
	}
}

func TestTransition_ReferToUnknownRole(t *testing.T) {
	v := workingVisit(StatusOpen, RoleDoctor)
	if _, err := Transition(v, ReferTo("XRAY", nil)); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition for unknown department, got %v", err)
	}
}

func TestTransition_StartTest(t *testing.T) {
	for _, role := range []Role{RoleLab, RoleCasualty} {
		v := workingVisit(StatusOpen, role)
		out, err := Transition(v, StartTest())
		if err != nil {
			t.Fatalf("START_TEST from %s: unexpected error: %v", role, err)
		}
		if out.Status != StatusInProgress {
			t.Errorf("expected IN_PROGRESS, got %s", out.Status)
		}
		if out.AssignedRole != role {
			t.Errorf("expected role unchanged, got %s", out.AssignedRole)
		}
	}
}

func TestTransition_StartTestRejectedElsewhere(t *testing.T) {
	for _, role := range []Role{RoleReception, RoleDoctor, RolePharmacy} {
		v := workingVisit(StatusOpen, role)
		if _, err := Transition(v, StartTest()); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("START_TEST from %s: expected ErrInvalidTransition, got %v", role, err)
		}
	}
}

func TestTransition_AddCharge(t *testing.T) {
	v := workingVisit(StatusOpen, RolePharmacy)
	out, err := Transition(v, AddCharge())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != StatusInProgress || out.AssignedRole != RolePharmacy {
		t.Errorf("expected IN_PROGRESS/PHARMACY, got %s/%s", out.Status, out.AssignedRole)
	}
}

func TestTransition_UnknownDecision(t *testing.T) {
	v := workingVisit(StatusOpen, RoleDoctor)
	if _, err := Transition(v, Decision{Kind: "ESCALATE"}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition for unknown decision, got %v", err)
	}
}
