package clinicalnote

import (
	"time"

	"github.com/google/uuid"
)

// PrescriptionLine is one medicine on the doctor's prescription. Lines feed
// the pharmacy queue and surface as suggested invoice items until pharmacy
// dispenses the real thing.
type PrescriptionLine struct {
	Medicine string `json:"medicine"`
	Dosage   string `json:"dosage,omitempty"`
	Duration string `json:"duration,omitempty"`
	Quantity int    `json:"quantity,omitempty"`
}

// NextStep is what the doctor decided at the end of the consultation.
type NextStep string

const (
	StepDischarge     NextStep = "DISCHARGE"
	StepReferLab      NextStep = "REFER_LAB"
	StepReferPharmacy NextStep = "REFER_PHARMACY"
)

func (s NextStep) Valid() bool {
	return s == StepDischarge || s == StepReferLab || s == StepReferPharmacy
}

// ClinicalNote records a consultation. Notes are append-only: corrections
// are made by writing a new note, never by editing an old one.
type ClinicalNote struct {
	ID           uuid.UUID          `db:"id" json:"id"`
	VisitID      uuid.UUID          `db:"visit_id" json:"visit_id"`
	DoctorID     uuid.UUID          `db:"doctor_id" json:"doctor_id"`
	Symptoms     *string            `db:"symptoms" json:"symptoms,omitempty"`
	Diagnosis    string             `db:"diagnosis" json:"diagnosis"`
	Notes        *string            `db:"notes" json:"notes,omitempty"`
	Prescription []PrescriptionLine `db:"prescription" json:"prescription"`
	LabTests     []string           `db:"lab_tests" json:"lab_tests,omitempty"`
	NextStep     NextStep           `db:"next_step" json:"next_step"`
	CreatedAt    time.Time          `db:"created_at" json:"created_at"`
}
