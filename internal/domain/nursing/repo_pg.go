package nursing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shorouk/radiology/internal/platform/apperr"
	"github.com/shorouk/radiology/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const assessmentCols = `na.assessment_id, na.submission_id, fs.visit_id, fs.submission_status,
	COALESCE(na.mode_of_arrival, ''), COALESCE(na.age, 0), COALESCE(na.chief_complaint, ''),
	COALESCE(na.accompanied_by, ''), COALESCE(na.language_spoken, ''),
	na.temperature_celsius, na.pulse_bpm, na.blood_pressure_systolic, na.blood_pressure_diastolic,
	na.respiratory_rate_per_min, na.oxygen_saturation_percent, na.blood_sugar_mg_dl, na.weight_kg, na.height_cm,
	COALESCE(na.psychological_problem, ''), na.is_smoker, na.has_allergies,
	COALESCE(na.medication_allergies, ''), COALESCE(na.food_allergies, ''), COALESCE(na.other_allergies, ''),
	COALESCE(na.diet_type, ''), COALESCE(na.appetite, ''), COALESCE(na.general_condition, ''),
	na.morse_total_score, na.morse_risk_level, na.morse_scale,
	na.nurse_signature_id, na.assessed_by::text, na.assessed_at, na.created_at, na.updated_at`

// ScanAssessment reads a row selected with AssessmentColumns.
func ScanAssessment(row pgx.Row) (*Assessment, error) {
	var a Assessment
	var morse *MorseScale
	err := row.Scan(&a.AssessmentID, &a.SubmissionID, &a.VisitID, &a.SubmissionStatus,
		&a.ModeOfArrival, &a.Age, &a.ChiefComplaint, &a.AccompaniedBy, &a.LanguageSpoken,
		&a.TemperatureCelsius, &a.PulseBPM, &a.BloodPressureSystolic, &a.BloodPressureDiastolic,
		&a.RespiratoryRatePerMin, &a.OxygenSaturationPercent, &a.BloodSugarMgDl, &a.WeightKg, &a.HeightCm,
		&a.PsychologicalProblem, &a.IsSmoker, &a.HasAllergies,
		&a.MedicationAllergies, &a.FoodAllergies, &a.OtherAllergies,
		&a.DietType, &a.Appetite, &a.GeneralCondition,
		&a.MorseTotalScore, &a.MorseRiskLevel, &morse,
		&a.NurseSignatureID, &a.AssessedBy, &a.AssessedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if morse != nil {
		a.MorseScale = *morse
	}
	return &a, nil
}

// AssessmentColumns and AssessmentFrom let the admin read model reuse the
// same projection.
const (
	AssessmentColumns = assessmentCols
	AssessmentFrom    = ` FROM nursing_assessments na JOIN form_submissions fs ON fs.submission_id = na.submission_id`
)

func (r *repoPG) GetByVisit(ctx context.Context, visitID string, lock bool) (*Assessment, error) {
	query := `SELECT ` + assessmentCols + AssessmentFrom + ` WHERE fs.visit_id = $1 AND fs.form_id = '` + FormID + `'`
	if lock {
		query += ` FOR UPDATE`
	}
	a, err := ScanAssessment(r.conn(ctx).QueryRow(ctx, query, visitID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func (r *repoPG) Insert(ctx context.Context, a *Assessment) error {
	q := r.conn(ctx)
	_, err := q.Exec(ctx, `
		INSERT INTO form_submissions (submission_id, visit_id, form_id, submission_status, nurse_signature_id, submitted_by, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, CASE WHEN $7::boolean THEN NOW() END)`,
		a.SubmissionID, a.VisitID, FormID, a.SubmissionStatus, a.NurseSignatureID, a.AssessedBy, a.Locked())
	if err != nil {
		return apperr.FromPG(err)
	}

	err = q.QueryRow(ctx, `
		INSERT INTO nursing_assessments (
			assessment_id, submission_id, mode_of_arrival, age, chief_complaint, accompanied_by, language_spoken,
			temperature_celsius, pulse_bpm, blood_pressure_systolic, blood_pressure_diastolic,
			respiratory_rate_per_min, oxygen_saturation_percent, blood_sugar_mg_dl, weight_kg, height_cm,
			psychological_problem, is_smoker, has_allergies, medication_allergies, food_allergies, other_allergies,
			diet_type, appetite, general_condition, morse_total_score, morse_risk_level, morse_scale,
			nurse_signature_id, assessed_by, assessed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31)
		RETURNING created_at, updated_at`,
		a.AssessmentID, a.SubmissionID, a.ModeOfArrival, a.Age, a.ChiefComplaint, a.AccompaniedBy, a.LanguageSpoken,
		a.TemperatureCelsius, a.PulseBPM, a.BloodPressureSystolic, a.BloodPressureDiastolic,
		a.RespiratoryRatePerMin, a.OxygenSaturationPercent, a.BloodSugarMgDl, a.WeightKg, a.HeightCm,
		a.PsychologicalProblem, a.IsSmoker, a.HasAllergies, a.MedicationAllergies, a.FoodAllergies, a.OtherAllergies,
		a.DietType, a.Appetite, a.GeneralCondition, a.MorseTotalScore, a.MorseRiskLevel, a.MorseScale,
		a.NurseSignatureID, a.AssessedBy, a.AssessedAt,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	return apperr.FromPG(err)
}

func (r *repoPG) Update(ctx context.Context, a *Assessment) error {
	q := r.conn(ctx)
	err := q.QueryRow(ctx, `
		UPDATE nursing_assessments SET
			mode_of_arrival=$2, age=$3, chief_complaint=$4, accompanied_by=$5, language_spoken=$6,
			temperature_celsius=$7, pulse_bpm=$8, blood_pressure_systolic=$9, blood_pressure_diastolic=$10,
			respiratory_rate_per_min=$11, oxygen_saturation_percent=$12, blood_sugar_mg_dl=$13, weight_kg=$14,
			height_cm=$15, psychological_problem=$16, is_smoker=$17, has_allergies=$18, medication_allergies=$19,
			food_allergies=$20, other_allergies=$21, diet_type=$22, appetite=$23, general_condition=$24,
			morse_total_score=$25, morse_risk_level=$26, morse_scale=$27, nurse_signature_id=$28,
			assessed_by=$29, assessed_at=$30, updated_at=NOW()
		WHERE assessment_id = $1
		RETURNING updated_at`,
		a.AssessmentID, a.ModeOfArrival, a.Age, a.ChiefComplaint, a.AccompaniedBy, a.LanguageSpoken,
		a.TemperatureCelsius, a.PulseBPM, a.BloodPressureSystolic, a.BloodPressureDiastolic,
		a.RespiratoryRatePerMin, a.OxygenSaturationPercent, a.BloodSugarMgDl, a.WeightKg,
		a.HeightCm, a.PsychologicalProblem, a.IsSmoker, a.HasAllergies, a.MedicationAllergies,
		a.FoodAllergies, a.OtherAllergies, a.DietType, a.Appetite, a.GeneralCondition,
		a.MorseTotalScore, a.MorseRiskLevel, a.MorseScale, a.NurseSignatureID,
		a.AssessedBy, a.AssessedAt,
	).Scan(&a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, `
		UPDATE form_submissions SET submission_status=$2, nurse_signature_id=$3, submitted_by=$4,
			submitted_at = CASE WHEN $5::boolean THEN COALESCE(submitted_at, NOW()) END, updated_at=NOW()
		WHERE submission_id = $1`,
		a.SubmissionID, a.SubmissionStatus, a.NurseSignatureID, a.AssessedBy, a.Locked())
	return apperr.FromPG(err)
}

func (r *repoPG) ListByNurse(ctx context.Context, userID string, limit int) ([]*Summary, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT na.assessment_id, na.submission_id, fs.visit_id, fs.submission_status, v.patient_ssn, p.full_name,
			COALESCE(na.chief_complaint, ''), na.morse_total_score, na.morse_risk_level, na.assessed_at
		`+AssessmentFrom+`
		JOIN patient_visits v ON v.visit_id = fs.visit_id
		JOIN patients p ON p.ssn = v.patient_ssn
		WHERE na.assessed_by = $1
		ORDER BY na.assessed_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.AssessmentID, &s.SubmissionID, &s.VisitID, &s.SubmissionStatus, &s.PatientSSN,
			&s.PatientName, &s.ChiefComplaint, &s.MorseTotalScore, &s.MorseRiskLevel, &s.AssessedAt); err != nil {
			return nil, err
		}
		items = append(items, &s)
	}
	return items, rows.Err()
}
