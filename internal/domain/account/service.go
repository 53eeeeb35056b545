// Package account signs users in and out. The browser adapter keeps a
// server-side session behind a cookie; the API adapter hands out bearer
// tokens. Both end up calling the same user service.
package account

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/shorouk/radiology/internal/domain/user"
	"github.com/shorouk/radiology/internal/platform/auth"
	"github.com/shorouk/radiology/internal/platform/metrics"
)

const (
	AdapterSession = "session"
	AdapterBearer  = "bearer"
)

var ErrInvalidRefresh = errors.New("invalid or expired refresh token")

type Users interface {
	Authenticate(ctx context.Context, login, password string) (*user.User, error)
	Get(ctx context.Context, id string) (*user.User, error)
	ChangePassword(ctx context.Context, id, current, next string) error
}

type Service struct {
	users   Users
	tokens  *auth.TokenIssuer
	revoked auth.RevocationStore
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewService(users Users, tokens *auth.TokenIssuer, revoked auth.RevocationStore, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{users: users, tokens: tokens, revoked: revoked, metrics: m, logger: logger}
}

// Login checks credentials and records the attempt under adapter.
func (s *Service) Login(ctx context.Context, adapter, login, password string) (*user.User, error) {
	u, err := s.users.Authenticate(ctx, login, password)
	s.metrics.Login(adapter, err == nil)
	if err != nil {
		s.logger.Info().Str("adapter", adapter).Str("login", login).Err(err).Msg("login rejected")
		return nil, err
	}
	s.logger.Info().Str("adapter", adapter).Str("user_id", u.ID.String()).Str("role", u.Role).Msg("login")
	return u, nil
}

// LoginTokens is the bearer flavour of Login.
func (s *Service) LoginTokens(ctx context.Context, login, password string) (*auth.TokenPair, *user.User, error) {
	u, err := s.Login(ctx, AdapterBearer, login, password)
	if err != nil {
		return nil, nil, err
	}
	pair, err := s.tokens.Issue(u.Principal())
	if err != nil {
		return nil, nil, err
	}
	return pair, u, nil
}

// Refresh trades a refresh token for a new pair. The presented token is
// consumed atomically before anything else, so each refresh token works once
// even when two requests race with it.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.tokens.Parse(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return nil, ErrInvalidRefresh
	}
	first, err := s.revoked.RevokeOnce(ctx, claims.ID, auth.ExpiresAt(claims))
	if err != nil {
		return nil, err
	}
	if !first {
		return nil, ErrInvalidRefresh
	}

	u, err := s.users.Get(ctx, claims.Subject)
	if errors.Is(err, user.ErrNotFound) {
		return nil, ErrInvalidRefresh
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, user.ErrInactive
	}
	return s.tokens.Issue(u.Principal())
}

// Logout revokes the access token in use and, when one is supplied and
// belongs to the same user, its refresh token.
func (s *Service) Logout(ctx context.Context, access *auth.Claims, refreshToken string) error {
	if access != nil {
		if err := s.revoked.Revoke(ctx, access.ID, auth.ExpiresAt(access)); err != nil {
			return err
		}
	}
	if refreshToken == "" {
		return nil
	}
	claims, err := s.tokens.Parse(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return nil
	}
	if access != nil && claims.Subject != access.Subject {
		return nil
	}
	return s.revoked.Revoke(ctx, claims.ID, auth.ExpiresAt(claims))
}

func (s *Service) Profile(ctx context.Context, userID string) (*user.User, error) {
	return s.users.Get(ctx, userID)
}

func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	if err := s.users.ChangePassword(ctx, userID, current, next); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", userID).Msg("password changed")
	return nil
}
