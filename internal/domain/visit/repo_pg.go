package visit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

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

const visitCols = `v.visit_id, v.patient_ssn, v.visit_date, v.visit_status, v.visit_type, v.department,
	v.primary_diagnosis, v.secondary_diagnosis, v.diagnosis_code, v.created_by::text, v.created_at,
	v.updated_at, v.completed_at, p.full_name, p.medical_number, u.full_name,
	(SELECT COUNT(*) FROM form_submissions fs WHERE fs.visit_id = v.visit_id)`

const visitFrom = ` FROM patient_visits v
	JOIN patients p ON p.ssn = v.patient_ssn
	LEFT JOIN users u ON u.user_id = v.created_by`

func scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	err := row.Scan(&v.VisitID, &v.PatientSSN, &v.VisitDate, &v.VisitStatus, &v.VisitType, &v.Department,
		&v.PrimaryDiagnosis, &v.SecondaryDiagnosis, &v.DiagnosisCode, &v.CreatedBy, &v.CreatedAt,
		&v.UpdatedAt, &v.CompletedAt, &v.PatientName, &v.MedicalNumber, &v.CreatedByName, &v.AssessmentCount)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *repoPG) Create(ctx context.Context, v *Visit) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient_visits (visit_id, patient_ssn, visit_date, visit_status, visit_type, department,
			primary_diagnosis, secondary_diagnosis, diagnosis_code, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		v.VisitID, v.PatientSSN, v.VisitDate, v.VisitStatus, v.VisitType, v.Department,
		v.PrimaryDiagnosis, v.SecondaryDiagnosis, v.DiagnosisCode, v.CreatedBy,
	).Scan(&v.CreatedAt, &v.UpdatedAt)
	if errors.Is(apperr.FromPG(err), apperr.ErrConflict) {
		return ErrPatientNotFound
	}
	return err
}

func (r *repoPG) Get(ctx context.Context, id string) (*Visit, error) {
	v, err := scanVisit(r.conn(ctx).QueryRow(ctx, `SELECT `+visitCols+visitFrom+` WHERE v.visit_id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return v, err
}

func (r *repoPG) Update(ctx context.Context, v *Visit) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient_visits SET visit_date=$2, visit_status=$3, visit_type=$4, department=$5,
			primary_diagnosis=$6, secondary_diagnosis=$7, diagnosis_code=$8, completed_at=$9, updated_at=NOW()
		WHERE visit_id = $1`,
		v.VisitID, v.VisitDate, v.VisitStatus, v.VisitType, v.Department,
		v.PrimaryDiagnosis, v.SecondaryDiagnosis, v.DiagnosisCode, v.CompletedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Transition(ctx context.Context, id, from, to string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient_visits SET visit_status = $3, updated_at = NOW()
		WHERE visit_id = $1 AND visit_status = $2`, id, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) Delete(ctx context.Context, id string) error {
	q := r.conn(ctx)
	stmts := []string{
		`DELETE FROM radiology_assessments WHERE visit_id = $1`,
		`DELETE FROM nursing_assessments WHERE submission_id IN
			(SELECT submission_id FROM form_submissions WHERE visit_id = $1)`,
		`DELETE FROM form_submissions WHERE visit_id = $1`,
	}
	for _, stmt := range stmts {
		if _, err := q.Exec(ctx, stmt, id); err != nil {
			return err
		}
	}
	tag, err := q.Exec(ctx, `DELETE FROM patient_visits WHERE visit_id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Visit, int, error) {
	var clauses []string
	var args []interface{}
	idx := 1

	if f.Search != "" {
		clauses = append(clauses, fmt.Sprintf("(p.full_name ILIKE $%d OR v.patient_ssn LIKE $%d OR v.visit_id ILIKE $%d)", idx, idx, idx))
		args = append(args, "%"+f.Search+"%")
		idx++
	}
	if f.Status != "" && f.Status != "all" {
		clauses = append(clauses, fmt.Sprintf("v.visit_status = $%d", idx))
		args = append(args, f.Status)
		idx++
	}
	if f.Department != "" && f.Department != "all" {
		clauses = append(clauses, fmt.Sprintf("v.department = $%d", idx))
		args = append(args, f.Department)
		idx++
	}
	if f.DateFrom != nil {
		clauses = append(clauses, fmt.Sprintf("v.visit_date::date >= $%d", idx))
		args = append(args, *f.DateFrom)
		idx++
	}
	if f.DateTo != nil {
		clauses = append(clauses, fmt.Sprintf("v.visit_date::date <= $%d", idx))
		args = append(args, *f.DateTo)
		idx++
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*)`+visitFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s%s%s ORDER BY v.visit_date DESC, v.created_at DESC LIMIT $%d OFFSET $%d`,
		visitCols, visitFrom, where, idx, idx+1)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, v)
	}
	return items, total, rows.Err()
}

func (r *repoPG) LatestForPatient(ctx context.Context, ssn string) (*Visit, error) {
	v, err := scanVisit(r.conn(ctx).QueryRow(ctx, `SELECT `+visitCols+visitFrom+`
		WHERE v.patient_ssn = $1
		ORDER BY v.visit_date DESC, v.created_at DESC
		LIMIT 1`, ssn))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return v, err
}

func (r *repoPG) ListForNurse(ctx context.Context, nurseID string, limit int) ([]*NurseVisit, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+visitCols+`,
			COALESCE(ns.submission_status = 'draft', FALSE),
			na.assessment_id,
			(SELECT COUNT(*) FROM form_submissions f WHERE f.visit_id = v.visit_id)`+visitFrom+`
		LEFT JOIN form_submissions ns ON ns.visit_id = v.visit_id AND ns.form_id = 'form-05-uuid'
		LEFT JOIN nursing_assessments na ON na.submission_id = ns.submission_id
		WHERE v.created_by = $1 AND v.visit_status IN ('open', 'in_progress')
		ORDER BY v.visit_date DESC, v.created_at DESC
		LIMIT $2`, nurseID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*NurseVisit
	for rows.Next() {
		var nv NurseVisit
		v := &nv.Visit
		if err := rows.Scan(&v.VisitID, &v.PatientSSN, &v.VisitDate, &v.VisitStatus, &v.VisitType, &v.Department,
			&v.PrimaryDiagnosis, &v.SecondaryDiagnosis, &v.DiagnosisCode, &v.CreatedBy, &v.CreatedAt,
			&v.UpdatedAt, &v.CompletedAt, &v.PatientName, &v.MedicalNumber, &v.CreatedByName, &v.AssessmentCount,
			&nv.IsDraft, &nv.AssessmentID, &nv.TotalAssessments); err != nil {
			return nil, err
		}
		items = append(items, &nv)
	}
	return items, rows.Err()
}

func (r *repoPG) Count(ctx context.Context) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient_visits`).Scan(&n)
	return n, err
}

func (r *repoPG) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient_visits WHERE visit_date >= $1`, since).Scan(&n)
	return n, err
}

func (r *repoPG) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT visit_status, COUNT(*) FROM patient_visits GROUP BY visit_status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int, len(statuses))
	for _, s := range statuses {
		counts[s] = 0
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
