package assessment

import (
	"context"
	"errors"

	"github.com/shorouk/radiology/internal/domain/visit"
	"github.com/shorouk/radiology/internal/platform/db"
)

type VisitFinder interface {
	Get(ctx context.Context, id string) (*visit.Visit, error)
}

type Service struct {
	repo   Repository
	visits VisitFinder
	tx     db.TxRunner
}

func NewService(repo Repository, visits VisitFinder, tx db.TxRunner) *Service {
	return &Service{repo: repo, visits: visits, tx: tx}
}

func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Summary, int, error) {
	items, total, err := s.repo.List(ctx, f, limit, offset)
	if items == nil {
		items = []*Summary{}
	}
	return items, total, err
}

func (s *Service) Get(ctx context.Context, id string) (*Detail, error) {
	sum, err := s.repo.Summary(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &Detail{Summary: sum}
	switch sum.Kind {
	case KindNursing:
		d.Nursing, err = s.repo.Nursing(ctx, id)
	case KindRadiology:
		d.Radiology, err = s.repo.Radiology(ctx, id)
	}
	// A nursing submission without its assessment row still lists; show it
	// without detail.
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return d, nil
}

// Delete removes a nursing submission by submission id or, failing that, a
// radiology assessment by assessment id.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		ok, err := s.repo.DeleteNursing(ctx, id)
		if err != nil || ok {
			return err
		}
		ok, err = s.repo.DeleteRadiology(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		return nil
	})
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// GetForPrint gathers a visit and both of its forms for the print view.
func (s *Service) GetForPrint(ctx context.Context, visitID string) (*VisitRecord, error) {
	v, err := s.visits.Get(ctx, visitID)
	if err != nil {
		return nil, err
	}
	rec := &VisitRecord{Visit: v}

	if rec.Nursing, err = s.repo.NursingForVisit(ctx, visitID); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if rec.Nursing != nil && rec.Nursing.AssessedBy != nil {
		if rec.NurseName, err = s.repo.UserName(ctx, *rec.Nursing.AssessedBy); err != nil {
			return nil, err
		}
	}

	if rec.Radiology, err = s.repo.RadiologyForVisit(ctx, visitID); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if rec.Radiology != nil && rec.Radiology.PhysicianID != nil {
		if rec.PhysicianName, err = s.repo.UserName(ctx, *rec.Radiology.PhysicianID); err != nil {
			return nil, err
		}
	}
	return rec, nil
}
