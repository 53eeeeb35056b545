package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/shorouk/radiology/internal/domain/user"
	"github.com/shorouk/radiology/internal/domain/visit"
	"github.com/shorouk/radiology/internal/platform/auth"
)

// memRepo models the three tables the queue reads: submitted nursing
// assessments, their submission status and the radiology assessments.
type memRepo struct {
	nursing   []*QueueItem
	status    map[string]string
	radiology map[string]bool
}

func (m *memRepo) RadiologyQueue(_ context.Context, limit int) ([]*QueueItem, error) {
	var out []*QueueItem
	for _, q := range m.nursing {
		if m.status[q.VisitID] == "submitted" && !m.radiology[q.VisitID] {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssessedAt.Before(out[j].AssessedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func TestService_RadiologyQueueExcludesAssessedVisits(t *testing.T) {
	base := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	repo := &memRepo{
		nursing: []*QueueItem{
			{VisitID: "v-late", AssessedAt: base.Add(2 * time.Hour)},
			{VisitID: "v-done", AssessedAt: base},
			{VisitID: "v-early", AssessedAt: base.Add(time.Hour)},
			{VisitID: "v-draft", AssessedAt: base.Add(-time.Hour)},
		},
		status:    map[string]string{"v-late": "submitted", "v-done": "submitted", "v-early": "submitted", "v-draft": "draft"},
		radiology: map[string]bool{"v-done": true},
	}
	svc := NewService(repo, nil, nil, nil, nil)

	d, err := svc.RadiologyQueue(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, q := range d.Queue {
		got = append(got, q.VisitID)
	}
	if strings.Join(got, ",") != "v-early,v-late" {
		t.Errorf("queue = %v, want [v-early v-late]", got)
	}
}

func TestQueueSQL_AntiJoinsOnAssessments(t *testing.T) {
	if !strings.Contains(queueSQL, "NOT EXISTS (SELECT 1 FROM radiology_assessments ra WHERE ra.visit_id = pv.visit_id)") {
		t.Error("queue must exclude visits that have a radiology assessment row")
	}
	if !strings.Contains(queueSQL, "ORDER BY na.assessed_at ASC") {
		t.Error("queue must list the oldest assessments first")
	}
}

type stubVisits struct {
	err error
}

func (s stubVisits) ListForNurse(_ context.Context, nurseID string) ([]*visit.NurseVisit, error) {
	if nurseID == "nurse-1" {
		return []*visit.NurseVisit{{Visit: visit.Visit{VisitID: "visit-1"}, IsDraft: true}}, nil
	}
	return nil, nil
}
func (s stubVisits) Count(context.Context) (int, error)      { return 12, s.err }
func (s stubVisits) CountToday(context.Context) (int, error) { return 3, nil }
func (s stubVisits) CountByStatus(context.Context) (map[string]int, error) {
	return map[string]int{visit.StatusOpen: 9, visit.StatusCompleted: 3}, nil
}

type stubUsers struct{}

func (stubUsers) Count(context.Context) (int, error) { return 4, nil }
func (stubUsers) CountByRole(context.Context) (map[string]int, error) {
	return map[string]int{auth.RoleNurse: 2, auth.RolePhysician: 1, auth.RoleAdmin: 1}, nil
}
func (stubUsers) Recent(_ context.Context, limit int) ([]*user.User, error) {
	return []*user.User{{ID: uuid.New(), Username: "sara", Role: auth.RoleNurse}}, nil
}

type count int

func (c count) Count(context.Context) (int, error) { return int(c), nil }

func TestService_Stats(t *testing.T) {
	svc := NewService(&memRepo{}, stubVisits{}, stubUsers{}, count(40), count(7))
	st, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.Patients != 40 || st.Users != 4 || st.Visits != 12 || st.VisitsToday != 3 || st.Assessments != 7 {
		t.Errorf("unexpected counts %+v", st)
	}
	if st.VisitsByStatus[visit.StatusOpen] != 9 || st.UsersByRole[auth.RoleNurse] != 2 {
		t.Errorf("unexpected breakdowns %+v %+v", st.VisitsByStatus, st.UsersByRole)
	}
	if len(st.RecentUsers) != 1 || st.RecentUsers[0].RoleLabel != "Nurse" {
		t.Errorf("unexpected recent users %+v", st.RecentUsers)
	}

	boom := errors.New("db down")
	svc = NewService(&memRepo{}, stubVisits{err: boom}, stubUsers{}, count(40), count(7))
	if _, err := svc.Stats(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected db error, got %v", err)
	}
}

func TestHandler_Nurse(t *testing.T) {
	svc := NewService(&memRepo{}, stubVisits{}, stubUsers{}, count(0), count(0))
	h, e := NewHandler(svc), echo.New()

	req := httptest.NewRequest(http.MethodGet, "/nurse", nil)
	req = req.WithContext(auth.WithPrincipal(req.Context(), &auth.Principal{UserID: "nurse-2", Role: auth.RoleNurse}))
	rec := httptest.NewRecorder()
	if err := h.Nurse(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(rec.Body.String(), `"visits":[]`) {
		t.Errorf("expected empty list, got %s", rec.Body.String())
	}
}
