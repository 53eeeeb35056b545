package radiology

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

// AssessmentColumns is the projection ScanAssessment expects, aliased on ra.
const AssessmentColumns = `ra.assessment_id, ra.visit_id, ra.submission_id,
	COALESCE(ra.patient_consent, ''), COALESCE(ra.examination_type, ''), COALESCE(ra.clinical_history, ''),
	ra.swelling, ra.swelling_location, ra.tumor_history, ra.tumor_location_type,
	ra.has_chemotherapy, ra.chemo_type, ra.chemo_sessions,
	ra.has_radiotherapy, ra.radiotherapy_site, ra.radiotherapy_sessions,
	COALESCE(ra.pain_numbness, ''), ra.pain_numbness_location,
	COALESCE(ra.chief_complaint, ''), COALESCE(ra.additional_notes, ''),
	ra.physician_signature_id, ra.patient_signature_id, ra.physician_id::text, ra.created_date`

func ScanAssessment(row pgx.Row) (*Assessment, error) {
	var a Assessment
	err := row.Scan(&a.AssessmentID, &a.VisitID, &a.SubmissionID,
		&a.PatientConsent, &a.ExaminationType, &a.ClinicalHistory,
		&a.Swelling, &a.SwellingLocation, &a.TumorHistory, &a.TumorLocationType,
		&a.HasChemotherapy, &a.ChemoType, &a.ChemoSessions,
		&a.HasRadiotherapy, &a.RadiotherapySite, &a.RadiotherapySessions,
		&a.PainNumbness, &a.PainNumbnessLocation,
		&a.ChiefComplaint, &a.AdditionalNotes,
		&a.PhysicianSignatureID, &a.PatientSignatureID, &a.PhysicianID, &a.CreatedDate)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repoPG) Insert(ctx context.Context, a *Assessment) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO radiology_assessments (
			assessment_id, visit_id, submission_id, patient_consent, examination_type, clinical_history,
			swelling, swelling_location, tumor_history, tumor_location_type,
			has_chemotherapy, chemo_type, chemo_sessions, has_radiotherapy, radiotherapy_site, radiotherapy_sessions,
			pain_numbness, pain_numbness_location, chief_complaint, additional_notes,
			physician_signature_id, patient_signature_id, physician_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23)
		RETURNING created_date`,
		a.AssessmentID, a.VisitID, a.SubmissionID, a.PatientConsent, a.ExaminationType, a.ClinicalHistory,
		a.Swelling, a.SwellingLocation, a.TumorHistory, a.TumorLocationType,
		a.HasChemotherapy, a.ChemoType, a.ChemoSessions, a.HasRadiotherapy, a.RadiotherapySite, a.RadiotherapySessions,
		a.PainNumbness, a.PainNumbnessLocation, a.ChiefComplaint, a.AdditionalNotes,
		a.PhysicianSignatureID, a.PatientSignatureID, a.PhysicianID,
	).Scan(&a.CreatedDate)
	if apperr.IsUniqueViolation(err) {
		return ErrAlreadySubmitted
	}
	return apperr.FromPG(err)
}

func (r *repoPG) GetByVisit(ctx context.Context, visitID string) (*Assessment, error) {
	a, err := ScanAssessment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+AssessmentColumns+` FROM radiology_assessments ra WHERE ra.visit_id = $1`, visitID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func (r *repoPG) RecordSubmission(ctx context.Context, submissionID, visitID, signatureID, userID string) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO form_submissions (submission_id, visit_id, form_id, submission_status, nurse_signature_id, submitted_by, submitted_at)
		VALUES ($1, $2, $3, 'submitted', $4, $5, NOW())
		ON CONFLICT (visit_id, form_id) DO UPDATE SET
			submission_status = 'submitted', nurse_signature_id = EXCLUDED.nurse_signature_id,
			submitted_by = EXCLUDED.submitted_by, submitted_at = COALESCE(form_submissions.submitted_at, NOW()),
			updated_at = NOW()`,
		submissionID, visitID, FormID, signatureID, userID)
	return apperr.FromPG(err)
}
