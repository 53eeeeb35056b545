package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
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

const userCols = `user_id, username, email, full_name, role, password_hash, is_active, last_login, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.Role, &u.PasswordHash,
		&u.IsActive, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func notFound(u *User, err error) (*User, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

func (r *repoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO users (user_id, username, email, full_name, role, password_hash, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		u.ID, u.Username, u.Email, u.FullName, u.Role, u.PasswordHash, u.IsActive,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if apperr.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return notFound(scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE user_id = $1`, id)))
}

func (r *repoPG) GetByLogin(ctx context.Context, login string) (*User, error) {
	return notFound(scanUser(r.conn(ctx).QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE LOWER(username) = LOWER($1) OR LOWER(email) = LOWER($1)`, login)))
}

func (r *repoPG) Update(ctx context.Context, u *User) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE users SET username=$2, email=$3, full_name=$4, role=$5, password_hash=$6, is_active=$7, updated_at=NOW()
		WHERE user_id = $1
		RETURNING updated_at`,
		u.ID, u.Username, u.Email, u.FullName, u.Role, u.PasswordHash, u.IsActive,
	).Scan(&u.UpdatedAt)
	if apperr.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *repoPG) SetPassword(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE users SET password_hash=$2, updated_at=NOW() WHERE user_id = $1`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) TouchLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE users SET last_login=$2 WHERE user_id = $1`, id, at)
	return err
}

// Delete removes the user and their stored signature. Signatures referenced
// by a form are protected by ON DELETE RESTRICT, which surfaces here as
// ErrReferenced. Run it inside a transaction so a refused delete keeps the
// signature.
func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	q := r.conn(ctx)
	if _, err := q.Exec(ctx, `DELETE FROM user_signatures WHERE user_id = $1`, id); err != nil {
		return deleteError(err)
	}
	tag, err := q.Exec(ctx, `DELETE FROM users WHERE user_id = $1`, id)
	if err != nil {
		return deleteError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func deleteError(err error) error {
	err = apperr.FromPG(err)
	if errors.Is(err, apperr.ErrConflict) {
		return ErrReferenced
	}
	return err
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*User, int, error) {
	var clauses []string
	var args []interface{}
	idx := 1
	if f.Search != "" {
		clauses = append(clauses, fmt.Sprintf("(username ILIKE $%d OR email ILIKE $%d OR full_name ILIKE $%d)", idx, idx, idx))
		args = append(args, "%"+f.Search+"%")
		idx++
	}
	if f.Role != "" && f.Role != "all" {
		clauses = append(clauses, fmt.Sprintf("role = $%d", idx))
		args = append(args, f.Role)
		idx++
	}
	switch f.Status {
	case "active":
		clauses = append(clauses, "is_active")
	case "inactive":
		clauses = append(clauses, "NOT is_active")
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		userCols, where, idx, idx+1)
	items, err := r.query(ctx, query, append(args, limit, offset)...)
	return items, total, err
}

func (r *repoPG) Recent(ctx context.Context, limit int) ([]*User, error) {
	return r.query(ctx, `SELECT `+userCols+` FROM users ORDER BY created_at DESC LIMIT $1`, limit)
}

func (r *repoPG) query(ctx context.Context, sql string, args ...interface{}) ([]*User, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	return items, rows.Err()
}

func (r *repoPG) Count(ctx context.Context) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (r *repoPG) CountByRole(ctx context.Context) (map[string]int, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var role string
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			return nil, err
		}
		counts[role] = n
	}
	return counts, rows.Err()
}
