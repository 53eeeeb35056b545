package dashboard

import (
	"time"

	"github.com/shorouk/radiology/internal/domain/user"
	"github.com/shorouk/radiology/internal/domain/visit"
)

// QueueItem is a visit whose nursing assessment has been submitted and is
// waiting for the radiology form.
type QueueItem struct {
	AssessmentID     string    `json:"assessment_id"`
	VisitID          string    `json:"visit_id"`
	PatientName      string    `json:"patient_name"`
	PatientSSN       string    `json:"ssn"`
	MedicalNumber    string    `json:"medical_number"`
	VisitDate        time.Time `json:"visit_date"`
	ChiefComplaint   string    `json:"chief_complaint"`
	PrimaryDiagnosis *string   `json:"primary_diagnosis,omitempty"`
	AssessedAt       time.Time `json:"assessed_at"`
	NurseName        *string   `json:"nurse_name,omitempty"`
}

type NurseDashboard struct {
	Visits []*visit.NurseVisit `json:"visits"`
}

type DoctorDashboard struct {
	Queue []*QueueItem `json:"pending_assessments"`
}

type Stats struct {
	Patients       int            `json:"patients"`
	Users          int            `json:"users"`
	Visits         int            `json:"visits"`
	VisitsToday    int            `json:"visits_today"`
	Assessments    int            `json:"assessments"`
	VisitsByStatus map[string]int `json:"visits_by_status"`
	UsersByRole    map[string]int `json:"users_by_role"`
	RecentUsers    []user.View    `json:"recent_users"`
	GeneratedAt    time.Time      `json:"generated_at"`
}
