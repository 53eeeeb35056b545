package patient

import (
	"context"
	"strings"
	"time"
)

const searchLimit = 10

type Service struct {
	repo   Repository
	region string
	now    func() time.Time
}

// NewService creates the patient service. region is the default phone
// region (ISO 3166 code) used to normalise numbers entered without a country
// prefix.
func NewService(repo Repository, region string) *Service {
	return &Service{repo: repo, region: region, now: time.Now}
}

func (s *Service) Now() time.Time { return s.now() }

func (s *Service) GetBySSN(ctx context.Context, ssn string) (*Patient, error) {
	ssn = strings.TrimSpace(ssn)
	if !ValidSSN(ssn) {
		return nil, ErrBadSSN
	}
	return s.repo.GetBySSN(ctx, ssn)
}

func (s *Service) Create(ctx context.Context, in Input) (*Patient, error) {
	p, err := in.ToPatient(s.now(), s.region)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update replaces the demographic fields. The SSN in the path wins over any
// SSN in the body.
func (s *Service) Update(ctx context.Context, ssn string, in Input) (*Patient, error) {
	if !ValidSSN(ssn) {
		return nil, ErrBadSSN
	}
	in.SSN = ssn
	p, err := in.ToPatient(s.now(), s.region)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return s.repo.GetBySSN(ctx, ssn)
}

func (s *Service) Delete(ctx context.Context, ssn string) error {
	if !ValidSSN(ssn) {
		return ErrBadSSN
	}
	return s.repo.Delete(ctx, ssn)
}

func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Patient, int, error) {
	f.Search = strings.TrimSpace(f.Search)
	return s.repo.List(ctx, f, limit, offset)
}

// Search is the typeahead lookup: at most ten matches ordered by name.
func (s *Service) Search(ctx context.Context, q string) ([]*Summary, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []*Summary{}, nil
	}
	return s.repo.Search(ctx, q, searchLimit)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
