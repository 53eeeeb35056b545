package visit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shorouk/radiology/internal/domain/patient"
	"github.com/shorouk/radiology/internal/platform/db"
)

// nurseWorklistSize caps the nurse dashboard list.
const nurseWorklistSize = 5

// PatientFinder is the slice of the patient service visits need.
type PatientFinder interface {
	GetBySSN(ctx context.Context, ssn string) (*patient.Patient, error)
}

type Service struct {
	repo     Repository
	patients PatientFinder
	tx       db.TxRunner
	now      func() time.Time
}

func NewService(repo Repository, patients PatientFinder, tx db.TxRunner) *Service {
	return &Service{repo: repo, patients: patients, tx: tx, now: time.Now}
}

// Create opens a new visit for an existing patient on behalf of userID.
func (s *Service) Create(ctx context.Context, userID string, in Input) (*Visit, error) {
	p, err := s.patients.GetBySSN(ctx, in.PatientSSN)
	if err != nil {
		if errors.Is(err, patient.ErrNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	v := &Visit{
		VisitID:     "visit-" + uuid.NewString(),
		PatientSSN:  p.SSN,
		VisitStatus: StatusOpen,
	}
	if userID != "" {
		v.CreatedBy = &userID
	}
	if err := in.apply(v, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, v); err != nil {
		return nil, err
	}
	v.PatientName = p.FullName
	v.MedicalNumber = p.MedicalNumber
	return v, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Visit, error) {
	return s.repo.Get(ctx, strings.TrimSpace(id))
}

// Update edits a visit. Moving into completed stamps completed_at; leaving
// completed clears it.
func (s *Service) Update(ctx context.Context, id string, in Input) (*Visit, error) {
	v, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.VisitStatus != "" {
		if !ValidStatus(in.VisitStatus) {
			return nil, ErrInvalidStatus
		}
		now := s.now()
		switch {
		case in.VisitStatus == StatusCompleted && v.VisitStatus != StatusCompleted:
			v.CompletedAt = &now
		case in.VisitStatus != StatusCompleted:
			v.CompletedAt = nil
		}
		v.VisitStatus = in.VisitStatus
	}
	if err := in.apply(v, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, v); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes the visit together with its submissions and assessments,
// all or nothing.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		return s.repo.Delete(ctx, id)
	})
}

func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Visit, int, error) {
	f.Search = strings.TrimSpace(f.Search)
	return s.repo.List(ctx, f, limit, offset)
}

// GetOrCreateForPatient returns the patient's latest visit, opening a new
// one for userID when the patient has none. The bool reports creation.
func (s *Service) GetOrCreateForPatient(ctx context.Context, ssn, userID string) (*Visit, bool, error) {
	v, err := s.repo.LatestForPatient(ctx, ssn)
	if err == nil {
		return v, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	v, err = s.Create(ctx, userID, Input{PatientSSN: ssn})
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// MarkInProgress moves an open visit to in_progress. Visits in any other
// status are left alone and reported as false.
func (s *Service) MarkInProgress(ctx context.Context, id string) (bool, error) {
	return s.repo.Transition(ctx, id, StatusOpen, StatusInProgress)
}

// ListForNurse is the nurse worklist: the nurse's own open and in-progress
// visits, newest first.
func (s *Service) ListForNurse(ctx context.Context, nurseID string) ([]*NurseVisit, error) {
	return s.repo.ListForNurse(ctx, nurseID, nurseWorklistSize)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

func (s *Service) CountByStatus(ctx context.Context) (map[string]int, error) {
	return s.repo.CountByStatus(ctx)
}

// CountToday counts visits dated from local midnight onwards.
func (s *Service) CountToday(ctx context.Context) (int, error) {
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return s.repo.CountSince(ctx, midnight)
}

// Resolve looks a patient up by SSN and returns them with their current
// visit, opening one when needed. This backs the physician search box.
func (s *Service) Resolve(ctx context.Context, ssn, userID string) (*patient.Patient, *Visit, bool, error) {
	p, err := s.patients.GetBySSN(ctx, ssn)
	if err != nil {
		return nil, nil, false, err
	}
	v, created, err := s.GetOrCreateForPatient(ctx, p.SSN, userID)
	if err != nil {
		return nil, nil, false, err
	}
	return p, v, created, nil
}

func (s *Service) Now() time.Time { return s.now() }
