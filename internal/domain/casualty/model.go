package casualty

import (
	"time"

	"github.com/google/uuid"
)

// Action is the disposition the casualty desk chose for a patient.
type Action string

const (
	ActionReferDoctor Action = "REFER_DOCTOR"
	ActionReferLab    Action = "REFER_LAB"
)

func (a Action) Valid() bool {
	return a == ActionReferDoctor || a == ActionReferLab
}

// TriageRecord is an append-only entry in the casualty log. Records are
// written in the same transaction as the referral they describe and are
// never updated afterwards.
type TriageRecord struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	VisitID   uuid.UUID  `db:"visit_id" json:"visit_id"`
	Complaint string     `db:"complaint" json:"complaint"`
	Notes     *string    `db:"notes" json:"notes,omitempty"`
	Action    Action     `db:"action" json:"action"`
	DoctorID  *uuid.UUID `db:"doctor_id" json:"doctor_id,omitempty"`
	CreatedBy *uuid.UUID `db:"created_by" json:"created_by,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
