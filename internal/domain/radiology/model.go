package radiology

import (
	"strings"
	"time"

	"github.com/shorouk/radiology/internal/platform/apperr"
	"github.com/shorouk/radiology/pkg/formfield"
)

const FormID = "radiology-form"

// Assessment maps to radiology_assessments. Fields behind a yes/no gate are
// nil whenever the gate is off.
type Assessment struct {
	AssessmentID    string  `json:"assessment_id"`
	VisitID         string  `json:"visit_id"`
	SubmissionID    *string `json:"submission_id,omitempty"`
	PatientConsent  string  `json:"patient_consent"`
	ExaminationType string  `json:"examination_type"`
	ClinicalHistory string  `json:"clinical_history"`

	Swelling             bool    `json:"swelling"`
	SwellingLocation     *string `json:"swelling_location"`
	TumorHistory         bool    `json:"tumor_history"`
	TumorLocationType    *string `json:"tumor_location_type"`
	HasChemotherapy      bool    `json:"has_chemotherapy"`
	ChemoType            *string `json:"chemo_type"`
	ChemoSessions        *int    `json:"chemo_sessions"`
	HasRadiotherapy      bool    `json:"has_radiotherapy"`
	RadiotherapySite     *string `json:"radiotherapy_site"`
	RadiotherapySessions *int    `json:"radiotherapy_sessions"`
	PainNumbness         string  `json:"pain_numbness"`
	PainNumbnessLocation *string `json:"pain_numbness_location"`

	ChiefComplaint       string    `json:"chief_complaint"`
	AdditionalNotes      string    `json:"additional_notes"`
	PhysicianSignatureID string    `json:"physician_signature_id"`
	PatientSignatureID   string    `json:"patient_signature_id"`
	PhysicianID          *string   `json:"physician_id,omitempty"`
	CreatedDate          time.Time `json:"created_date"`
}

// Form is the radiology consent and history form. VisitID names the visit
// explicitly; nothing is taken from the caller's session.
type Form struct {
	VisitID         string `json:"visit_id" form:"visit_id"`
	PatientConsent  string `json:"patient_consent" form:"patient_consent"`
	ExaminationType string `json:"examination_type" form:"examination_type"`
	ClinicalHistory string `json:"clinical_history" form:"clinical_history"`

	Swelling             formfield.Flag   `json:"swelling" form:"swelling"`
	SwellingLocation     string           `json:"swelling_location" form:"swelling_location"`
	TumorHistory         formfield.Flag   `json:"tumor_history" form:"tumor_history"`
	TumorLocationType    string           `json:"tumor_location_type" form:"tumor_location_type"`
	HasChemotherapy      formfield.Flag   `json:"has_chemotherapy" form:"has_chemotherapy"`
	ChemoType            string           `json:"chemo_type" form:"chemo_type"`
	ChemoSessions        formfield.Number `json:"chemo_sessions" form:"chemo_sessions"`
	HasRadiotherapy      formfield.Flag   `json:"has_radiotherapy" form:"has_radiotherapy"`
	RadiotherapySite     string           `json:"radiotherapy_site" form:"radiotherapy_site"`
	RadiotherapySessions formfield.Number `json:"radiotherapy_sessions" form:"radiotherapy_sessions"`
	PainNumbness         string           `json:"pain_numbness" form:"pain_numbness"`
	PainNumbnessLocation string           `json:"pain_numbness_location" form:"pain_numbness_location"`

	ChiefComplaint  string `json:"chief_complaint" form:"chief_complaint"`
	AdditionalNotes string `json:"additional_notes" form:"additional_notes"`

	PhysicianSignature string `json:"physician_signature" form:"physician_signature"`
	PatientSignature   string `json:"patient_signature" form:"patient_signature"`
}

// Assessment converts the form, dropping every dependent field whose gate
// is off regardless of what was sent.
func (f *Form) Assessment() *Assessment {
	a := &Assessment{
		VisitID:         strings.TrimSpace(f.VisitID),
		PatientConsent:  strings.TrimSpace(f.PatientConsent),
		ExaminationType: strings.TrimSpace(f.ExaminationType),
		ClinicalHistory: strings.TrimSpace(f.ClinicalHistory),
		Swelling:        bool(f.Swelling),
		TumorHistory:    bool(f.TumorHistory),
		HasChemotherapy: bool(f.HasChemotherapy),
		HasRadiotherapy: bool(f.HasRadiotherapy),
		PainNumbness:    strings.TrimSpace(f.PainNumbness),
		ChiefComplaint:  strings.TrimSpace(f.ChiefComplaint),
		AdditionalNotes: strings.TrimSpace(f.AdditionalNotes),
	}
	if a.Swelling {
		a.SwellingLocation = optional(f.SwellingLocation)
	}
	if a.TumorHistory {
		a.TumorLocationType = optional(f.TumorLocationType)
	}
	if a.HasChemotherapy {
		a.ChemoType = optional(f.ChemoType)
		a.ChemoSessions = f.ChemoSessions.Int()
	}
	if a.HasRadiotherapy {
		a.RadiotherapySite = optional(f.RadiotherapySite)
		a.RadiotherapySessions = f.RadiotherapySessions.Int()
	}
	if a.PainNumbness != "" {
		a.PainNumbnessLocation = optional(f.PainNumbnessLocation)
	}
	return a
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func (a *Assessment) validate() error {
	var problems []string
	if len([]rune(a.ExaminationType)) < 3 {
		problems = append(problems, "Examination type must be at least 3 characters long")
	}
	if len([]rune(a.ClinicalHistory)) < 10 {
		problems = append(problems, "Clinical history must be at least 10 characters long")
	}
	if len([]rune(a.PatientConsent)) < 5 {
		problems = append(problems, "Patient consent must be at least 5 characters long")
	}
	if n := a.ChemoSessions; n != nil && *n < 0 {
		problems = append(problems, "Chemotherapy sessions cannot be negative")
	}
	if n := a.RadiotherapySessions; n != nil && *n < 0 {
		problems = append(problems, "Radiotherapy sessions cannot be negative")
	}
	if len(problems) > 0 {
		return apperr.Validation("%s", strings.Join(problems, "; "))
	}
	return nil
}
