package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

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

const patientCols = `ssn, full_name, mobile_number, medical_number, date_of_birth, gender, address,
	emergency_contact_name, emergency_contact_phone, emergency_contact_relation, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.SSN, &p.FullName, &p.MobileNumber, &p.MedicalNumber, &p.DateOfBirth, &p.Gender,
		&p.Address, &p.EmergencyContactName, &p.EmergencyContactPhone, &p.EmergencyContactRelation,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (ssn, full_name, mobile_number, medical_number, date_of_birth, gender, address,
			emergency_contact_name, emergency_contact_phone, emergency_contact_relation)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at`,
		p.SSN, p.FullName, p.MobileNumber, p.MedicalNumber, p.DateOfBirth, p.Gender, p.Address,
		p.EmergencyContactName, p.EmergencyContactPhone, p.EmergencyContactRelation,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if apperr.IsUniqueViolation(err) {
		return ErrExists
	}
	return err
}

func (r *repoPG) GetBySSN(ctx context.Context, ssn string) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE ssn = $1`, ssn))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET full_name=$2, mobile_number=$3, medical_number=$4, date_of_birth=$5, gender=$6,
			address=$7, emergency_contact_name=$8, emergency_contact_phone=$9, emergency_contact_relation=$10,
			updated_at=NOW()
		WHERE ssn = $1`,
		p.SSN, p.FullName, p.MobileNumber, p.MedicalNumber, p.DateOfBirth, p.Gender, p.Address,
		p.EmergencyContactName, p.EmergencyContactPhone, p.EmergencyContactRelation)
	if apperr.IsUniqueViolation(err) {
		return ErrExists
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, ssn string) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patients WHERE ssn = $1`, ssn)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Patient, int, error) {
	where, args := listWhere(f)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM patients%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		patientCols, where, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func listWhere(f ListFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	idx := 1

	if f.Search != "" {
		clauses = append(clauses, fmt.Sprintf("(full_name ILIKE $%d OR medical_number ILIKE $%d OR ssn LIKE $%d)", idx, idx, idx))
		args = append(args, "%"+f.Search+"%")
		idx++
	}
	if f.Gender != "" && f.Gender != "all" {
		clauses = append(clauses, fmt.Sprintf("gender = $%d", idx))
		args = append(args, f.Gender)
		idx++
	}
	if f.DateFrom != nil {
		clauses = append(clauses, fmt.Sprintf("created_at::date >= $%d", idx))
		args = append(args, *f.DateFrom)
		idx++
	}
	if f.DateTo != nil {
		clauses = append(clauses, fmt.Sprintf("created_at::date <= $%d", idx))
		args = append(args, *f.DateTo)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (r *repoPG) Search(ctx context.Context, q string, limit int) ([]*Summary, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT ssn, full_name, medical_number FROM patients
		WHERE full_name ILIKE $1 OR medical_number ILIKE $1 OR ssn LIKE $1
		ORDER BY full_name
		LIMIT $2`, "%"+q+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.SSN, &s.FullName, &s.MedicalNumber); err != nil {
			return nil, err
		}
		items = append(items, &s)
	}
	return items, rows.Err()
}

func (r *repoPG) Count(ctx context.Context) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&n)
	return n, err
}
