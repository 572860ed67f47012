package visit

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInvalidTransition is returned when a decision is not permitted from the
// visit's current (status, assigned_role) state.
var ErrInvalidTransition = errors.New("invalid transition")

// DecisionKind enumerates the actions a department can take on a visit.
type DecisionKind string

const (
	DecisionDischarge DecisionKind = "DISCHARGE"
	DecisionReferTo   DecisionKind = "REFER_TO"
	DecisionStartTest DecisionKind = "START_TEST"
	DecisionAddCharge DecisionKind = "ADD_CHARGE"
)

// Decision is a department's routing choice for a visit it owns.
type Decision struct {
	Kind   DecisionKind `json:"kind"`
	Target Role         `json:"target,omitempty"`    // REFER_TO only
	Doctor *uuid.UUID   `json:"doctor_id,omitempty"` // REFER_TO DOCTOR only; nil leaves the visit in the unassigned pool
}

func Discharge() Decision {
	return Decision{Kind: DecisionDischarge}
}

func ReferTo(target Role, doctor *uuid.UUID) Decision {
	return Decision{Kind: DecisionReferTo, Target: target, Doctor: doctor}
}

func StartTest() Decision {
	return Decision{Kind: DecisionStartTest}
}

func AddCharge() Decision {
	return Decision{Kind: DecisionAddCharge}
}

// Outcome is the new routing tuple computed by Transition. The caller
// persists it; Transition itself has no side effects.
type Outcome struct {
	Status       Status
	AssignedRole Role
	DoctorID     *uuid.UUID
}

// Transition computes the visit's next (status, assigned_role, doctor) from
// a department decision.
//
//   - DISCHARGE: only from DOCTOR; closes the visit, role kept for the record.
//   - REFER_TO: from any working state; reopens the visit under the target
//     queue. Referring to DOCTOR may name a physician or leave it null.
//   - START_TEST: LAB or CASUALTY marking work begun; visit goes IN_PROGRESS.
//   - ADD_CHARGE: billable work recorded by the owning department; visit goes
//     IN_PROGRESS.
//
// A closed visit accepts no decision.
func Transition(v *Visit, d Decision) (Outcome, error) {
	if !v.Status.Valid() || !v.AssignedRole.Valid() {
		return Outcome{}, fmt.Errorf("%w: unknown state %s/%s", ErrInvalidTransition, v.Status, v.AssignedRole)
	}
	if !v.Working() {
		return Outcome{}, fmt.Errorf("%w: visit is closed", ErrInvalidTransition)
	}

	switch d.Kind {
	case DecisionDischarge:
		if v.AssignedRole != RoleDoctor {
			return Outcome{}, fmt.Errorf("%w: DISCHARGE from %s", ErrInvalidTransition, v.AssignedRole)
		}
		return Outcome{Status: StatusClosed, AssignedRole: v.AssignedRole, DoctorID: v.DoctorID}, nil

	case DecisionReferTo:
		if !d.Target.Valid() {
			return Outcome{}, fmt.Errorf("%w: unknown department %q", ErrInvalidTransition, d.Target)
		}
		doctor := v.DoctorID
		if d.Target == RoleDoctor {
			doctor = d.Doctor
		}
		return Outcome{Status: StatusOpen, AssignedRole: d.Target, DoctorID: doctor}, nil

	case DecisionStartTest:
		if v.AssignedRole != RoleLab && v.AssignedRole != RoleCasualty {
			return Outcome{}, fmt.Errorf("%w: START_TEST from %s", ErrInvalidTransition, v.AssignedRole)
		}
		return Outcome{Status: StatusInProgress, AssignedRole: v.AssignedRole, DoctorID: v.DoctorID}, nil

	case DecisionAddCharge:
		return Outcome{Status: StatusInProgress, AssignedRole: v.AssignedRole, DoctorID: v.DoctorID}, nil
	}

	return Outcome{}, fmt.Errorf("%w: unknown decision %q", ErrInvalidTransition, d.Kind)
}
