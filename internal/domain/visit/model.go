package visit

import (
	"strings"
	"time"

	"github.com/shorouk/radiology/internal/platform/apperr"
)

const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

var (
	statuses    = []string{StatusOpen, StatusInProgress, StatusCompleted, StatusCancelled}
	visitTypes  = []string{"Emergency", "Scheduled", "Follow-up", "Consultation"}
	departments = []string{"Emergency", "Outpatient", "Inpatient", "Radiology", "Surgery"}
)

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func ValidStatus(s string) bool { return contains(statuses, s) }

// Visit maps to patient_visits. The trailing fields are joined in by the
// read queries and are never written.
type Visit struct {
	VisitID            string     `json:"visit_id"`
	PatientSSN         string     `json:"patient_ssn"`
	VisitDate          time.Time  `json:"visit_date"`
	VisitStatus        string     `json:"visit_status"`
	VisitType          *string    `json:"visit_type,omitempty"`
	Department         *string    `json:"department,omitempty"`
	PrimaryDiagnosis   *string    `json:"primary_diagnosis,omitempty"`
	SecondaryDiagnosis *string    `json:"secondary_diagnosis,omitempty"`
	DiagnosisCode      *string    `json:"diagnosis_code,omitempty"`
	CreatedBy          *string    `json:"created_by,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`

	PatientName     string  `json:"patient_name,omitempty"`
	MedicalNumber   string  `json:"medical_number,omitempty"`
	CreatedByName   *string `json:"created_by_name,omitempty"`
	AssessmentCount int     `json:"assessment_count"`
}

// NurseVisit is a row of the nurse worklist.
type NurseVisit struct {
	Visit
	IsDraft          bool    `json:"is_draft"`
	AssessmentID     *string `json:"assessment_id,omitempty"`
	TotalAssessments int     `json:"total_assessments"`
}

// Input is the create/update payload. VisitStatus is ignored on create.
type Input struct {
	PatientSSN         string `json:"patient_ssn" form:"patient_ssn"`
	VisitDate          string `json:"visit_date" form:"visit_date"`
	VisitStatus        string `json:"visit_status" form:"visit_status"`
	VisitType          string `json:"visit_type" form:"visit_type"`
	Department         string `json:"department" form:"department"`
	PrimaryDiagnosis   string `json:"primary_diagnosis" form:"primary_diagnosis"`
	SecondaryDiagnosis string `json:"secondary_diagnosis" form:"secondary_diagnosis"`
	DiagnosisCode      string `json:"diagnosis_code" form:"diagnosis_code"`
}

// apply validates the input and copies it onto v. An empty visit_date keeps
// the current value, or now for a new visit.
func (in Input) apply(v *Visit, now time.Time) error {
	var problems []string

	if in.VisitDate = strings.TrimSpace(in.VisitDate); in.VisitDate != "" {
		d, err := parseDate(in.VisitDate)
		if err != nil {
			problems = append(problems, "Visit date must be YYYY-MM-DD or RFC 3339")
		}
		v.VisitDate = d
	} else if v.VisitDate.IsZero() {
		v.VisitDate = now
	}
	if in.VisitType != "" && !contains(visitTypes, in.VisitType) {
		problems = append(problems, "Visit type must be one of "+strings.Join(visitTypes, ", "))
	}
	if in.Department != "" && !contains(departments, in.Department) {
		problems = append(problems, "Department must be one of "+strings.Join(departments, ", "))
	}
	if len(problems) > 0 {
		return apperr.Validation("%s", strings.Join(problems, "; "))
	}

	v.VisitType = optional(in.VisitType)
	v.Department = optional(in.Department)
	v.PrimaryDiagnosis = optional(in.PrimaryDiagnosis)
	v.SecondaryDiagnosis = optional(in.SecondaryDiagnosis)
	v.DiagnosisCode = optional(in.DiagnosisCode)
	return nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

type ListFilter struct {
	Search     string
	Status     string
	Department string
	DateFrom   *time.Time
	DateTo     *time.Time
}
