package dashboard

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shorouk/radiology/internal/domain/nursing"
	"github.com/shorouk/radiology/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

// queueSQL anti-joins on radiology_assessments itself: a visit leaves the
// queue the moment its radiology assessment commits, whether or not the
// follow-up submission row was written.
const queueSQL = `
	SELECT na.assessment_id, pv.visit_id, p.full_name, p.ssn, p.medical_number, pv.visit_date,
		COALESCE(na.chief_complaint, ''), pv.primary_diagnosis, na.assessed_at, u.full_name
	FROM nursing_assessments na
	JOIN form_submissions fs ON fs.submission_id = na.submission_id
	JOIN patient_visits pv ON pv.visit_id = fs.visit_id
	JOIN patients p ON p.ssn = pv.patient_ssn
	LEFT JOIN users u ON u.user_id = na.assessed_by
	WHERE fs.form_id = $1 AND fs.submission_status = $2
		AND NOT EXISTS (SELECT 1 FROM radiology_assessments ra WHERE ra.visit_id = pv.visit_id)
	ORDER BY na.assessed_at ASC
	LIMIT $3`

func (r *repoPG) RadiologyQueue(ctx context.Context, limit int) ([]*QueueItem, error) {
	rows, err := r.conn(ctx).Query(ctx, queueSQL, nursing.FormID, nursing.StatusSubmitted, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*QueueItem{}
	for rows.Next() {
		var q QueueItem
		if err := rows.Scan(&q.AssessmentID, &q.VisitID, &q.PatientName, &q.PatientSSN, &q.MedicalNumber,
			&q.VisitDate, &q.ChiefComplaint, &q.PrimaryDiagnosis, &q.AssessedAt, &q.NurseName); err != nil {
			return nil, err
		}
		items = append(items, &q)
	}
	return items, rows.Err()
}
