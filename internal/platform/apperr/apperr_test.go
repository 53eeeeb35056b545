package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestFromPG(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", pgx.ErrNoRows, ErrNotFound},
		{"wrapped no rows", fmt.Errorf("get: %w", pgx.ErrNoRows), ErrNotFound},
		{"unique", &pgconn.PgError{Code: "23505", ConstraintName: "patients_pkey"}, ErrDuplicate},
		{"foreign key", &pgconn.PgError{Code: "23503"}, ErrConflict},
		{"check", &pgconn.PgError{Code: "23514"}, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromPG(tt.in); !errors.Is(got, tt.want) {
				t.Errorf("FromPG(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFromPG_HidesConstraintName(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23514", ConstraintName: "form_submissions_signed"}
	err := FromPG(fmt.Errorf("update: %w", pgErr))
	if err.Error() != ErrValidation.Error() {
		t.Errorf("message leaks schema details: %q", err.Error())
	}
	if ConstraintName(err) != "form_submissions_signed" {
		t.Errorf("ConstraintName = %q", ConstraintName(err))
	}
	var got *pgconn.PgError
	if !errors.As(err, &got) || got != pgErr {
		t.Error("expected the driver error to stay reachable")
	}
	if ConstraintName(errors.New("other")) != "" {
		t.Error("expected no constraint for a plain error")
	}
}

func TestFromPG_PassThrough(t *testing.T) {
	if FromPG(nil) != nil {
		t.Error("expected nil for nil")
	}
	other := errors.New("connection reset")
	if got := FromPG(other); got != other {
		t.Errorf("expected unchanged error, got %v", got)
	}
}

func TestValidation(t *testing.T) {
	err := Validation("SSN must be exactly %d digits", 14)
	if !errors.Is(err, ErrValidation) {
		t.Error("expected validation error to wrap ErrValidation")
	}
	if err.Error() != "SSN must be exactly 14 digits" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})) {
		t.Error("expected unique violation")
	}
	if IsUniqueViolation(errors.New("other")) {
		t.Error("expected false for plain error")
	}
}
