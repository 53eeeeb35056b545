// Package apperr holds the error kinds shared by every domain package and the
// translation from PostgreSQL errors into them.
package apperr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrDuplicate  = errors.New("already exists")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// Validation wraps ErrValidation with a message meant for the end user.
func Validation(format string, args ...interface{}) error {
	return &validationError{msg: fmt.Sprintf(format, args...)}
}

type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func (e *validationError) Unwrap() error { return ErrValidation }

// FromPG maps driver errors onto the shared kinds. Errors it does not
// recognise are returned unchanged.
func FromPG(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return &ConstraintError{Kind: ErrDuplicate, Constraint: pgErr.ConstraintName, err: err}
		case pgForeignKeyViolation:
			return &ConstraintError{Kind: ErrConflict, Constraint: pgErr.ConstraintName, err: err}
		case pgCheckViolation:
			return &ConstraintError{Kind: ErrValidation, Constraint: pgErr.ConstraintName, err: err}
		}
	}
	return err
}

// ConstraintError is a constraint violation translated to a shared kind. Its
// message is the kind's alone: constraint names are schema details and stay
// out of responses. Constraint is kept for logs and callers that branch on it.
type ConstraintError struct {
	Kind       error
	Constraint string
	err        error
}

func (e *ConstraintError) Error() string { return e.Kind.Error() }

func (e *ConstraintError) Is(target error) bool { return target == e.Kind }

func (e *ConstraintError) Unwrap() error { return e.err }

// ConstraintName returns the violated constraint when err came from FromPG.
func ConstraintName(err error) string {
	var ce *ConstraintError
	if errors.As(err, &ce) {
		return ce.Constraint
	}
	return ""
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
