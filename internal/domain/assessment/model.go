// Package assessment is the admin view across both forms: nursing
// submissions and radiology assessments listed, opened and deleted as one
// collection, plus the printable visit record.
package assessment

import (
	"time"

	"github.com/shorouk/radiology/internal/domain/nursing"
	"github.com/shorouk/radiology/internal/domain/radiology"
	"github.com/shorouk/radiology/internal/domain/visit"
)

const (
	KindNursing   = "nursing"
	KindRadiology = "radiology"
)

// Summary is one row of the combined list. ID is the submission id for
// nursing forms and the assessment id for radiology.
type Summary struct {
	ID               string     `json:"id"`
	VisitID          string     `json:"visit_id"`
	FormID           string     `json:"form_id"`
	Kind             string     `json:"assessment_type"`
	SubmissionStatus string     `json:"submission_status"`
	SubmittedAt      *time.Time `json:"submitted_at"`
	SignatureID      *string    `json:"signature_id,omitempty"`
	PatientSSN       string     `json:"patient_ssn"`
	VisitDate        time.Time  `json:"visit_date"`
	VisitStatus      string     `json:"visit_status"`
	PatientName      string     `json:"patient_name"`
	MedicalNumber    string     `json:"medical_number"`
	ClinicianName    *string    `json:"clinician_name,omitempty"`
}

type Detail struct {
	*Summary
	Nursing   *nursing.Assessment   `json:"nursing,omitempty"`
	Radiology *radiology.Assessment `json:"radiology,omitempty"`
}

type ListFilter struct {
	Kind   string
	Status string
	Search string
}

// VisitRecord is the printable record of a visit with whichever forms have
// been filled in.
type VisitRecord struct {
	Visit         *visit.Visit          `json:"visit"`
	Nursing       *nursing.Assessment   `json:"nursing_assessment"`
	NurseName     *string               `json:"nurse_name,omitempty"`
	Radiology     *radiology.Assessment `json:"radiology_assessment"`
	PhysicianName *string               `json:"physician_name,omitempty"`
}
