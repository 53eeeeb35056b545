package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shorouk/radiology/internal/platform/apperr"
	"github.com/shorouk/radiology/internal/platform/auth"
	"github.com/shorouk/radiology/internal/platform/db"
)

// SignatureSaver stores a user's signature image. Writes join the
// transaction on ctx.
type SignatureSaver interface {
	SaveUserSignature(ctx context.Context, userID, data string) (string, error)
}

type Service struct {
	repo   Repository
	sigs   SignatureSaver
	tx     db.TxRunner
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, sigs SignatureSaver, tx db.TxRunner, logger zerolog.Logger) *Service {
	if tx == nil {
		tx = db.NoTx{}
	}
	return &Service{repo: repo, sigs: sigs, tx: tx, logger: logger, now: time.Now}
}

func parseID(id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, ErrNotFound
	}
	return uid, nil
}

func (s *Service) Create(ctx context.Context, in Input) (*User, error) {
	in.normalize()
	if err := in.validate(true); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &User{
		Username:     in.Username,
		Email:        in.Email,
		FullName:     in.FullName,
		Role:         in.Role,
		PasswordHash: hash,
		IsActive:     in.IsActive.Or(true),
	}
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, u); err != nil {
			return err
		}
		return s.saveSignature(ctx, u.ID, in.SignatureData)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) saveSignature(ctx context.Context, id uuid.UUID, data string) error {
	if data == "" {
		return nil
	}
	if s.sigs == nil {
		return apperr.Validation("Signature storage is not configured")
	}
	_, err := s.sigs.SaveUserSignature(ctx, id.String(), data)
	return err
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, uid)
}

func (s *Service) GetByLogin(ctx context.Context, login string) (*User, error) {
	return s.repo.GetByLogin(ctx, strings.TrimSpace(login))
}

// Update replaces the profile fields. The password hash changes only when a
// new password is supplied.
func (s *Service) Update(ctx context.Context, id string, in Input) (*User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	in.normalize()
	if err := in.validate(false); err != nil {
		return nil, err
	}
	u.Username = in.Username
	u.Email = in.Email
	u.FullName = in.FullName
	u.Role = in.Role
	u.IsActive = in.IsActive.Or(u.IsActive)
	if in.Password != "" {
		if u.PasswordHash, err = auth.HashPassword(in.Password); err != nil {
			return nil, err
		}
	}
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, u); err != nil {
			return err
		}
		return s.saveSignature(ctx, u.ID, in.SignatureData)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Delete removes a user. actorID is the caller; deleting yourself is refused.
// Users who have signed forms are refused with ErrReferenced and should be
// deactivated instead.
func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return ErrSelfDelete
	}
	uid, err := parseID(id)
	if err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		return s.repo.Delete(ctx, uid)
	})
}

// SessionPrincipal reloads the identity behind a browser session, so a role
// change or deactivation applies on the caller's next request. Missing and
// inactive users also match auth.ErrPrincipalRevoked.
func (s *Service) SessionPrincipal(ctx context.Context, userID string) (*auth.Principal, error) {
	u, err := s.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", auth.ErrPrincipalRevoked, err)
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, fmt.Errorf("%w: %w", auth.ErrPrincipalRevoked, ErrInactive)
	}
	return u.Principal(), nil
}

func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*User, int, error) {
	f.Search = strings.TrimSpace(f.Search)
	return s.repo.List(ctx, f, limit, offset)
}

func (s *Service) Recent(ctx context.Context, limit int) ([]*User, error) {
	return s.repo.Recent(ctx, limit)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

func (s *Service) CountByRole(ctx context.Context) (map[string]int, error) {
	return s.repo.CountByRole(ctx)
}

// Authenticate checks a username-or-email and password pair. Unknown users
// and wrong passwords share one error. Hashes made with older cost
// parameters are upgraded in place.
func (s *Service) Authenticate(ctx context.Context, login, password string) (*User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, apperr.Validation("Username and password are required")
	}
	u, err := s.repo.GetByLogin(ctx, login)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := auth.VerifyPassword(u.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrInactive
	}

	now := s.now()
	if err := s.repo.TouchLogin(ctx, u.ID, now); err != nil {
		s.logger.Warn().Err(err).Str("user_id", u.ID.String()).Msg("failed to stamp last login")
	} else {
		u.LastLogin = &now
	}
	if auth.NeedsRehash(u.PasswordHash) {
		if hash, err := auth.HashPassword(password); err == nil {
			if err := s.repo.SetPassword(ctx, u.ID, hash); err != nil {
				s.logger.Warn().Err(err).Str("user_id", u.ID.String()).Msg("failed to upgrade password hash")
			}
		}
	}
	return u, nil
}

func (s *Service) ChangePassword(ctx context.Context, id, current, next string) error {
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.VerifyPassword(u.PasswordHash, current); err != nil {
		return ErrWrongPassword
	}
	if len(next) < minPasswordLen {
		return apperr.Validation("New password must be at least 6 characters long")
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	return s.repo.SetPassword(ctx, u.ID, hash)
}
