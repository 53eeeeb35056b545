package nursing

import (
	"strings"
	"time"

	"github.com/shorouk/radiology/internal/platform/apperr"
	"github.com/shorouk/radiology/pkg/formfield"
)

const (
	FormID = "form-05-uuid"

	StatusDraft     = "draft"
	StatusSubmitted = "submitted"

	defaultRiskLevel = "Low Risk"
)

// Allowed points per Morse fall scale item.
var morseWeights = map[string][]int{
	"history of falling":  {0, 25},
	"secondary diagnosis": {0, 15},
	"ambulatory aid":      {0, 15, 30},
	"IV therapy":          {0, 20},
	"gait":                {0, 10, 20},
	"mental status":       {0, 15},
}

var morseOrder = []string{"history of falling", "secondary diagnosis", "ambulatory aid", "IV therapy", "gait", "mental status"}

// MorseScale is stored as JSONB next to the flattened total and risk level.
type MorseScale struct {
	HistoryFalling     int    `json:"history_falling"`
	SecondaryDiagnosis int    `json:"secondary_diagnosis"`
	AmbulatoryAid      int    `json:"ambulatory_aid"`
	IVTherapy          int    `json:"iv_therapy"`
	Gait               int    `json:"gait"`
	MentalStatus       int    `json:"mental_status"`
	TotalScore         int    `json:"total_score"`
	RiskLevel          string `json:"risk_level"`
}

// Total is the sum of the six items.
func (m MorseScale) Total() int {
	return m.HistoryFalling + m.SecondaryDiagnosis + m.AmbulatoryAid + m.IVTherapy + m.Gait + m.MentalStatus
}

func (m MorseScale) items() map[string]int {
	return map[string]int{
		"history of falling":  m.HistoryFalling,
		"secondary diagnosis": m.SecondaryDiagnosis,
		"ambulatory aid":      m.AmbulatoryAid,
		"IV therapy":          m.IVTherapy,
		"gait":                m.Gait,
		"mental status":       m.MentalStatus,
	}
}

// Assessment is a nursing_assessments row joined with its form submission.
// Measurements that were not taken are nil.
type Assessment struct {
	AssessmentID     string `json:"assessment_id"`
	SubmissionID     string `json:"submission_id"`
	VisitID          string `json:"visit_id"`
	SubmissionStatus string `json:"submission_status"`

	ModeOfArrival  string `json:"mode_of_arrival"`
	Age            int    `json:"age"`
	ChiefComplaint string `json:"chief_complaint"`
	AccompaniedBy  string `json:"accompanied_by"`
	LanguageSpoken string `json:"language_spoken"`

	TemperatureCelsius      *float64 `json:"temperature_celsius"`
	PulseBPM                *int     `json:"pulse_bpm"`
	BloodPressureSystolic   *int     `json:"blood_pressure_systolic"`
	BloodPressureDiastolic  *int     `json:"blood_pressure_diastolic"`
	RespiratoryRatePerMin   *int     `json:"respiratory_rate_per_min"`
	OxygenSaturationPercent *float64 `json:"oxygen_saturation_percent"`
	BloodSugarMgDl          *int     `json:"blood_sugar_mg_dl"`
	WeightKg                *float64 `json:"weight_kg"`
	HeightCm                *int     `json:"height_cm"`

	PsychologicalProblem string `json:"psychological_problem"`
	IsSmoker             bool   `json:"is_smoker"`
	HasAllergies         bool   `json:"has_allergies"`
	MedicationAllergies  string `json:"medication_allergies"`
	FoodAllergies        string `json:"food_allergies"`
	OtherAllergies       string `json:"other_allergies"`
	DietType             string `json:"diet_type"`
	Appetite             string `json:"appetite"`
	GeneralCondition     string `json:"general_condition"`

	MorseTotalScore int        `json:"morse_total_score"`
	MorseRiskLevel  string     `json:"morse_risk_level"`
	MorseScale      MorseScale `json:"morse_scale"`

	NurseSignatureID *string   `json:"nurse_signature_id,omitempty"`
	AssessedBy       *string   `json:"assessed_by,omitempty"`
	AssessedAt       time.Time `json:"assessed_at"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (a *Assessment) Locked() bool {
	return a.SubmissionStatus == StatusSubmitted
}

// Form is the nurse intake form as posted by the browser or an API client.
type Form struct {
	VisitID string `json:"visit_id" form:"visit_id"`
	// Action "draft" saves without signing; anything else is a final submit.
	Action string `json:"action" form:"action"`

	ModeOfArrival  string           `json:"mode_of_arrival" form:"mode_of_arrival"`
	Age            formfield.Number `json:"age" form:"age"`
	ChiefComplaint string           `json:"chief_complaint" form:"chief_complaint"`
	AccompaniedBy  string           `json:"accompanied_by" form:"accompanied_by"`
	LanguageSpoken string           `json:"language_spoken" form:"language_spoken"`

	TemperatureCelsius      formfield.Number `json:"temperature_celsius" form:"temperature_celsius"`
	PulseBPM                formfield.Number `json:"pulse_bpm" form:"pulse_bpm"`
	BloodPressureSystolic   formfield.Number `json:"blood_pressure_systolic" form:"blood_pressure_systolic"`
	BloodPressureDiastolic  formfield.Number `json:"blood_pressure_diastolic" form:"blood_pressure_diastolic"`
	RespiratoryRatePerMin   formfield.Number `json:"respiratory_rate_per_min" form:"respiratory_rate_per_min"`
	OxygenSaturationPercent formfield.Number `json:"oxygen_saturation_percent" form:"oxygen_saturation_percent"`
	BloodSugarMgDl          formfield.Number `json:"blood_sugar_mg_dl" form:"blood_sugar_mg_dl"`
	WeightKg                formfield.Number `json:"weight_kg" form:"weight_kg"`
	HeightCm                formfield.Number `json:"height_cm" form:"height_cm"`

	PsychologicalProblem string         `json:"psychological_problem" form:"psychological_problem"`
	IsSmoker             formfield.Flag `json:"is_smoker" form:"is_smoker"`
	HasAllergies         formfield.Flag `json:"has_allergies" form:"has_allergies"`
	MedicationAllergies  string         `json:"medication_allergies" form:"medication_allergies"`
	FoodAllergies        string         `json:"food_allergies" form:"food_allergies"`
	OtherAllergies       string         `json:"other_allergies" form:"other_allergies"`
	DietType             string         `json:"diet_type" form:"diet_type"`
	Appetite             string         `json:"appetite" form:"appetite"`
	GeneralCondition     string         `json:"general_condition" form:"general_condition"`

	MorseHistoryFalling     formfield.Number `json:"morse_history_falling" form:"morse_history_falling"`
	MorseSecondaryDiagnosis formfield.Number `json:"morse_secondary_diagnosis" form:"morse_secondary_diagnosis"`
	MorseAmbulatoryAid      formfield.Number `json:"morse_ambulatory_aid" form:"morse_ambulatory_aid"`
	MorseIVTherapy          formfield.Number `json:"morse_iv_therapy" form:"morse_iv_therapy"`
	MorseGait               formfield.Number `json:"morse_gait" form:"morse_gait"`
	MorseMentalStatus       formfield.Number `json:"morse_mental_status" form:"morse_mental_status"`
	MorseRiskLevel          string           `json:"morse_risk_level" form:"morse_risk_level"`

	NurseSignature string `json:"nurse_signature" form:"nurse_signature"`
}

func (f *Form) IsDraft() bool {
	return strings.EqualFold(strings.TrimSpace(f.Action), "draft")
}

// Morse builds the fall scale. The total is always recomputed here; the risk
// label is the one chosen on the form.
func (f *Form) Morse() MorseScale {
	m := MorseScale{
		HistoryFalling:     f.MorseHistoryFalling.IntOr(0),
		SecondaryDiagnosis: f.MorseSecondaryDiagnosis.IntOr(0),
		AmbulatoryAid:      f.MorseAmbulatoryAid.IntOr(0),
		IVTherapy:          f.MorseIVTherapy.IntOr(0),
		Gait:               f.MorseGait.IntOr(0),
		MentalStatus:       f.MorseMentalStatus.IntOr(0),
		RiskLevel:          strings.TrimSpace(f.MorseRiskLevel),
	}
	m.TotalScore = m.Total()
	if m.RiskLevel == "" {
		m.RiskLevel = defaultRiskLevel
	}
	return m
}

// apply copies the form onto a. Identity and workflow columns are left to
// the caller.
func (f *Form) apply(a *Assessment) {
	a.ModeOfArrival = strings.TrimSpace(f.ModeOfArrival)
	a.Age = f.Age.IntOr(0)
	a.ChiefComplaint = strings.TrimSpace(f.ChiefComplaint)
	a.AccompaniedBy = strings.TrimSpace(f.AccompaniedBy)
	a.LanguageSpoken = strings.TrimSpace(f.LanguageSpoken)

	a.TemperatureCelsius = f.TemperatureCelsius.Float()
	a.PulseBPM = f.PulseBPM.Int()
	a.BloodPressureSystolic = f.BloodPressureSystolic.Int()
	a.BloodPressureDiastolic = f.BloodPressureDiastolic.Int()
	a.RespiratoryRatePerMin = f.RespiratoryRatePerMin.Int()
	a.OxygenSaturationPercent = f.OxygenSaturationPercent.Float()
	a.BloodSugarMgDl = f.BloodSugarMgDl.Int()
	a.WeightKg = f.WeightKg.Float()
	a.HeightCm = f.HeightCm.Int()

	a.PsychologicalProblem = strings.TrimSpace(f.PsychologicalProblem)
	a.IsSmoker = bool(f.IsSmoker)
	a.HasAllergies = bool(f.HasAllergies)
	a.MedicationAllergies = strings.TrimSpace(f.MedicationAllergies)
	a.FoodAllergies = strings.TrimSpace(f.FoodAllergies)
	a.OtherAllergies = strings.TrimSpace(f.OtherAllergies)
	a.DietType = strings.TrimSpace(f.DietType)
	a.Appetite = strings.TrimSpace(f.Appetite)
	a.GeneralCondition = strings.TrimSpace(f.GeneralCondition)

	a.MorseScale = f.Morse()
	a.MorseTotalScore = a.MorseScale.TotalScore
	a.MorseRiskLevel = a.MorseScale.RiskLevel
}

// validateFinal checks the ranges a signed assessment must satisfy. Vitals
// that were not measured are not checked.
func validateFinal(a *Assessment) error {
	var problems []string
	if len([]rune(a.ChiefComplaint)) < 5 {
		problems = append(problems, "Chief complaint must be at least 5 characters long")
	}
	if a.Age < 0 || a.Age > 120 {
		problems = append(problems, "Age must be between 0 and 120")
	}
	if t := a.TemperatureCelsius; t != nil && (*t < 30 || *t > 45) {
		problems = append(problems, "Temperature must be between 30 and 45 °C")
	}
	if p := a.PulseBPM; p != nil && (*p < 40 || *p > 200) {
		problems = append(problems, "Pulse must be between 40 and 200 bpm")
	}
	if s := a.BloodPressureSystolic; s != nil && (*s < 60 || *s > 300) {
		problems = append(problems, "Systolic blood pressure must be between 60 and 300")
	}
	if d := a.BloodPressureDiastolic; d != nil && (*d < 30 || *d > 200) {
		problems = append(problems, "Diastolic blood pressure must be between 30 and 200")
	}
	scores := a.MorseScale.items()
	for _, name := range morseOrder {
		if !allowed(morseWeights[name], scores[name]) {
			problems = append(problems, "Invalid Morse score for "+name)
		}
	}
	if len(problems) > 0 {
		return apperr.Validation("%s", strings.Join(problems, "; "))
	}
	return nil
}

func allowed(set []int, v int) bool {
	for _, w := range set {
		if w == v {
			return true
		}
	}
	return false
}

// Summary is a row of the nurse's own assessment history.
type Summary struct {
	AssessmentID     string    `json:"assessment_id"`
	SubmissionID     string    `json:"submission_id"`
	VisitID          string    `json:"visit_id"`
	SubmissionStatus string    `json:"submission_status"`
	PatientSSN       string    `json:"patient_ssn"`
	PatientName      string    `json:"patient_name"`
	ChiefComplaint   string    `json:"chief_complaint"`
	MorseTotalScore  int       `json:"morse_total_score"`
	MorseRiskLevel   string    `json:"morse_risk_level"`
	AssessedAt       time.Time `json:"assessed_at"`
}
