package user

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	// GetByLogin matches username or email, case-insensitively.
	GetByLogin(ctx context.Context, login string) (*User, error)
	Update(ctx context.Context, u *User) error
	SetPassword(ctx context.Context, id uuid.UUID, hash string) error
	TouchLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*User, int, error)
	Recent(ctx context.Context, limit int) ([]*User, error)
	Count(ctx context.Context) (int, error)
	CountByRole(ctx context.Context) (map[string]int, error)
}
