package visit

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a visit.
type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusClosed     Status = "CLOSED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusClosed:
		return true
	}
	return false
}

// Role is the department queue currently responsible for a visit.
type Role string

const (
	RoleReception Role = "RECEPTION"
	RoleDoctor    Role = "DOCTOR"
	RoleLab       Role = "LAB"
	RolePharmacy  Role = "PHARMACY"
	RoleCasualty  Role = "CASUALTY"
)

func (r Role) Valid() bool {
	switch r {
	case RoleReception, RoleDoctor, RoleLab, RolePharmacy, RoleCasualty:
		return true
	}
	return false
}

// Visit maps to the visits table: one clinical episode from intake to
// discharge. Exactly one department owns the visit at any time, named by
// AssignedRole. Version backs the optimistic write check.
type Visit struct {
	ID                 uuid.UUID         `db:"id" json:"id"`
	PatientID          uuid.UUID         `db:"patient_id" json:"patient_id"`
	Status             Status            `db:"status" json:"status"`
	AssignedRole       Role              `db:"assigned_role" json:"assigned_role"`
	DoctorID           *uuid.UUID        `db:"doctor_id" json:"doctor_id,omitempty"`
	Vitals             map[string]string `db:"vitals" json:"vitals,omitempty"`
	LabReferralDetails *string           `db:"lab_referral_details" json:"lab_referral_details,omitempty"`
	Version            int               `db:"version" json:"version"`
	CreatedAt          time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time         `db:"updated_at" json:"updated_at"`
}

// Working reports whether the visit is still in flight.
func (v *Visit) Working() bool {
	return v.Status == StatusOpen || v.Status == StatusInProgress
}
