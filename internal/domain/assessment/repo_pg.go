package assessment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shorouk/radiology/internal/domain/nursing"
	"github.com/shorouk/radiology/internal/domain/radiology"
	"github.com/shorouk/radiology/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

// combined selects both kinds with identical columns so the list can be
// filtered, counted and paged as a single relation.
const combined = `(
	SELECT fs.submission_id AS id, fs.visit_id, fs.form_id, '` + KindNursing + `' AS kind,
		fs.submission_status, fs.submitted_at, fs.nurse_signature_id AS signature_id,
		pv.patient_ssn, pv.visit_date, pv.visit_status, p.full_name AS patient_name, p.medical_number,
		u.full_name AS clinician_name
	FROM form_submissions fs
	JOIN patient_visits pv ON pv.visit_id = fs.visit_id
	JOIN patients p ON p.ssn = pv.patient_ssn
	LEFT JOIN users u ON u.user_id = fs.submitted_by
	WHERE fs.form_id = '` + nursing.FormID + `'
	UNION ALL
	SELECT ra.assessment_id, ra.visit_id, '` + radiology.FormID + `', '` + KindRadiology + `',
		'submitted', ra.created_date, ra.physician_signature_id,
		pv.patient_ssn, pv.visit_date, pv.visit_status, p.full_name, p.medical_number,
		u.full_name
	FROM radiology_assessments ra
	JOIN patient_visits pv ON pv.visit_id = ra.visit_id
	JOIN patients p ON p.ssn = pv.patient_ssn
	LEFT JOIN users u ON u.user_id = ra.physician_id
) a`

const summaryCols = `a.id, a.visit_id, a.form_id, a.kind, a.submission_status, a.submitted_at, a.signature_id,
	a.patient_ssn, a.visit_date, a.visit_status, a.patient_name, a.medical_number, a.clinician_name`

func scanSummary(row pgx.Row) (*Summary, error) {
	var s Summary
	err := row.Scan(&s.ID, &s.VisitID, &s.FormID, &s.Kind, &s.SubmissionStatus, &s.SubmittedAt, &s.SignatureID,
		&s.PatientSSN, &s.VisitDate, &s.VisitStatus, &s.PatientName, &s.MedicalNumber, &s.ClinicianName)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Summary, int, error) {
	var clauses []string
	var args []interface{}
	idx := 1

	if f.Kind != "" && f.Kind != "all" {
		clauses = append(clauses, fmt.Sprintf("a.kind = $%d", idx))
		args = append(args, f.Kind)
		idx++
	}
	if f.Status != "" && f.Status != "all" {
		clauses = append(clauses, fmt.Sprintf("a.submission_status = $%d", idx))
		args = append(args, f.Status)
		idx++
	}
	if f.Search != "" {
		clauses = append(clauses, fmt.Sprintf("(a.patient_name ILIKE $%d OR a.patient_ssn LIKE $%d OR a.medical_number ILIKE $%d)", idx, idx, idx))
		args = append(args, "%"+f.Search+"%")
		idx++
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM `+combined+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY a.submitted_at DESC NULLS LAST, a.id LIMIT $%d OFFSET $%d`,
		summaryCols, combined, where, idx, idx+1)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Summary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}

// Summary looks the id up among nursing submissions first, then radiology
// assessments.
func (r *repoPG) Summary(ctx context.Context, id string) (*Summary, error) {
	s, err := scanSummary(r.conn(ctx).QueryRow(ctx,
		`SELECT `+summaryCols+` FROM `+combined+` WHERE a.id = $1 ORDER BY a.kind = '`+KindNursing+`' DESC LIMIT 1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

func (r *repoPG) Nursing(ctx context.Context, submissionID string) (*nursing.Assessment, error) {
	a, err := nursing.ScanAssessment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+nursing.AssessmentColumns+nursing.AssessmentFrom+` WHERE fs.submission_id = $1`, submissionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func (r *repoPG) Radiology(ctx context.Context, assessmentID string) (*radiology.Assessment, error) {
	a, err := radiology.ScanAssessment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+radiology.AssessmentColumns+` FROM radiology_assessments ra WHERE ra.assessment_id = $1`, assessmentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func (r *repoPG) NursingForVisit(ctx context.Context, visitID string) (*nursing.Assessment, error) {
	a, err := nursing.ScanAssessment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+nursing.AssessmentColumns+nursing.AssessmentFrom+
			` WHERE fs.visit_id = $1 AND fs.form_id = '`+nursing.FormID+`'`, visitID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func (r *repoPG) RadiologyForVisit(ctx context.Context, visitID string) (*radiology.Assessment, error) {
	a, err := radiology.ScanAssessment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+radiology.AssessmentColumns+` FROM radiology_assessments ra WHERE ra.visit_id = $1`, visitID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func (r *repoPG) UserName(ctx context.Context, userID string) (*string, error) {
	var name string
	err := r.conn(ctx).QueryRow(ctx, `SELECT full_name FROM users WHERE user_id::text = $1`, userID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &name, nil
}

// DeleteNursing removes the nursing assessment and its submission row.
func (r *repoPG) DeleteNursing(ctx context.Context, submissionID string) (bool, error) {
	q := r.conn(ctx)
	if _, err := q.Exec(ctx, `DELETE FROM nursing_assessments WHERE submission_id = $1`, submissionID); err != nil {
		return false, err
	}
	tag, err := q.Exec(ctx, `DELETE FROM form_submissions WHERE submission_id = $1 AND form_id = $2`,
		submissionID, nursing.FormID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteRadiology removes the radiology assessment and the bookkeeping
// submission row written alongside it.
func (r *repoPG) DeleteRadiology(ctx context.Context, assessmentID string) (bool, error) {
	q := r.conn(ctx)
	var visitID string
	err := q.QueryRow(ctx, `DELETE FROM radiology_assessments WHERE assessment_id = $1 RETURNING visit_id`,
		assessmentID).Scan(&visitID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	_, err = q.Exec(ctx, `DELETE FROM form_submissions WHERE visit_id = $1 AND form_id = $2`, visitID, radiology.FormID)
	return err == nil, err
}

func (r *repoPG) Count(ctx context.Context) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM nursing_assessments) + (SELECT COUNT(*) FROM radiology_assessments)`).Scan(&n)
	return n, err
}
