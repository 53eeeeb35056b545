package signature

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shorouk/radiology/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG returns a repository that joins the caller's transaction when
// one is on the context.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

func (r *repoPG) UpsertUser(ctx context.Context, newID, userID, data string) (string, error) {
	var id string
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO user_signatures (signature_id, user_id, signature_data)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
			SET signature_data = EXCLUDED.signature_data, updated_at = NOW()
		RETURNING signature_id`,
		newID, userID, data,
	).Scan(&id)
	return id, err
}

func (r *repoPG) GetByUser(ctx context.Context, userID string) (*UserSignature, error) {
	var s UserSignature
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT signature_id, user_id, signature_data, created_at, updated_at
		FROM user_signatures WHERE user_id = $1`, userID,
	).Scan(&s.SignatureID, &s.UserID, &s.Data, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) InsertPatient(ctx context.Context, id, data string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO patient_signatures (signature_id, signature_data) VALUES ($1, $2)`, id, data)
	return err
}

func (r *repoPG) GetPatient(ctx context.Context, id string) (*PatientSignature, error) {
	var s PatientSignature
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT signature_id, signature_data, created_at FROM patient_signatures WHERE signature_id = $1`, id,
	).Scan(&s.SignatureID, &s.Data, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
