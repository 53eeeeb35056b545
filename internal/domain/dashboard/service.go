package dashboard

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shorouk/radiology/internal/domain/user"
	"github.com/shorouk/radiology/internal/domain/visit"
)

const (
	queueSize   = 20
	recentUsers = 10
)

type VisitStats interface {
	ListForNurse(ctx context.Context, nurseID string) ([]*visit.NurseVisit, error)
	Count(ctx context.Context) (int, error)
	CountToday(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
}

type UserStats interface {
	Count(ctx context.Context) (int, error)
	CountByRole(ctx context.Context) (map[string]int, error)
	Recent(ctx context.Context, limit int) ([]*user.User, error)
}

// Counter is satisfied by the patient and assessment services.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

type Service struct {
	repo        Repository
	visits      VisitStats
	users       UserStats
	patients    Counter
	assessments Counter
	now         func() time.Time
}

func NewService(repo Repository, visits VisitStats, users UserStats, patients, assessments Counter) *Service {
	return &Service{
		repo:        repo,
		visits:      visits,
		users:       users,
		patients:    patients,
		assessments: assessments,
		now:         time.Now,
	}
}

func (s *Service) Nurse(ctx context.Context, nurseID string) (*NurseDashboard, error) {
	visits, err := s.visits.ListForNurse(ctx, nurseID)
	if err != nil {
		return nil, err
	}
	if visits == nil {
		visits = []*visit.NurseVisit{}
	}
	return &NurseDashboard{Visits: visits}, nil
}

// RadiologyQueue lists the oldest submitted nursing assessments that still
// have no radiology assessment.
func (s *Service) RadiologyQueue(ctx context.Context) (*DoctorDashboard, error) {
	items, err := s.repo.RadiologyQueue(ctx, queueSize)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*QueueItem{}
	}
	return &DoctorDashboard{Queue: items}, nil
}

// Stats runs the admin counters concurrently; the first failure cancels the
// rest.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{GeneratedAt: s.now()}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) { st.Patients, err = s.patients.Count(ctx); return })
	g.Go(func() (err error) { st.Users, err = s.users.Count(ctx); return })
	g.Go(func() (err error) { st.Visits, err = s.visits.Count(ctx); return })
	g.Go(func() (err error) { st.VisitsToday, err = s.visits.CountToday(ctx); return })
	g.Go(func() (err error) { st.Assessments, err = s.assessments.Count(ctx); return })
	g.Go(func() (err error) { st.VisitsByStatus, err = s.visits.CountByStatus(ctx); return })
	g.Go(func() (err error) { st.UsersByRole, err = s.users.CountByRole(ctx); return })
	g.Go(func() error {
		users, err := s.users.Recent(ctx, recentUsers)
		if err != nil {
			return err
		}
		st.RecentUsers = make([]user.View, 0, len(users))
		for _, u := range users {
			st.RecentUsers = append(st.RecentUsers, user.NewView(u))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return st, nil
}
