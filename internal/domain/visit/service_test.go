package visit

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/shorouk/radiology/internal/domain/patient"
	"github.com/shorouk/radiology/internal/platform/apperr"
	"github.com/shorouk/radiology/internal/platform/db"
)

var testNow = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

type mockRepo struct {
	store   map[string]*Visit
	drafts  map[string]bool
	deleted []string
	seq     int
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[string]*Visit), drafts: make(map[string]bool)}
}

func (m *mockRepo) Create(_ context.Context, v *Visit) error {
	m.seq++
	v.CreatedAt = testNow.Add(time.Duration(m.seq) * time.Second)
	v.UpdatedAt = v.CreatedAt
	cp := *v
	m.store[v.VisitID] = &cp
	return nil
}

func (m *mockRepo) Get(_ context.Context, id string) (*Visit, error) {
	v, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, v *Visit) error {
	if _, ok := m.store[v.VisitID]; !ok {
		return ErrNotFound
	}
	cp := *v
	m.store[v.VisitID] = &cp
	return nil
}

func (m *mockRepo) Transition(_ context.Context, id, from, to string) (bool, error) {
	v, ok := m.store[id]
	if !ok || v.VisitStatus != from {
		return false, nil
	}
	v.VisitStatus = to
	return true, nil
}

func (m *mockRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockRepo) ordered() []*Visit {
	var all []*Visit
	for _, v := range m.store {
		all = append(all, v)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].VisitDate.Equal(all[j].VisitDate) {
			return all[i].VisitDate.After(all[j].VisitDate)
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return all
}

func (m *mockRepo) List(_ context.Context, f ListFilter, limit, offset int) ([]*Visit, int, error) {
	var out []*Visit
	for _, v := range m.ordered() {
		if f.Status != "" && v.VisitStatus != f.Status {
			continue
		}
		if f.Search != "" && !strings.Contains(v.PatientSSN, f.Search) {
			continue
		}
		out = append(out, v)
	}
	return out, len(out), nil
}

func (m *mockRepo) LatestForPatient(_ context.Context, ssn string) (*Visit, error) {
	for _, v := range m.ordered() {
		if v.PatientSSN == ssn {
			return v, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) ListForNurse(_ context.Context, nurseID string, limit int) ([]*NurseVisit, error) {
	var out []*NurseVisit
	for _, v := range m.ordered() {
		if v.CreatedBy == nil || *v.CreatedBy != nurseID {
			continue
		}
		if v.VisitStatus != StatusOpen && v.VisitStatus != StatusInProgress {
			continue
		}
		out = append(out, &NurseVisit{Visit: *v, IsDraft: m.drafts[v.VisitID]})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockRepo) Count(_ context.Context) (int, error) { return len(m.store), nil }

func (m *mockRepo) CountByStatus(_ context.Context) (map[string]int, error) {
	counts := map[string]int{}
	for _, v := range m.store {
		counts[v.VisitStatus]++
	}
	return counts, nil
}

func (m *mockRepo) CountSince(_ context.Context, since time.Time) (int, error) {
	n := 0
	for _, v := range m.store {
		if !v.VisitDate.Before(since) {
			n++
		}
	}
	return n, nil
}

type mockPatients map[string]*patient.Patient

func (m mockPatients) GetBySSN(_ context.Context, ssn string) (*patient.Patient, error) {
	if !patient.ValidSSN(ssn) {
		return nil, patient.ErrBadSSN
	}
	p, ok := m[ssn]
	if !ok {
		return nil, patient.ErrNotFound
	}
	return p, nil
}

const testSSN = "29001011234567"

// recordingTx counts how often the service asks for a transaction.
type recordingTx struct {
	calls int
}

func (r *recordingTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.calls++
	return db.NoTx{}.InTx(ctx, fn)
}

func newTestService() (*Service, *mockRepo, *recordingTx) {
	repo := newMockRepo()
	patients := mockPatients{testSSN: {SSN: testSSN, FullName: "Mona Adel", MedicalNumber: "MRN-1"}}
	tx := &recordingTx{}
	svc := NewService(repo, patients, tx)
	svc.now = func() time.Time { return testNow }
	return svc, repo, tx
}

func TestService_Create(t *testing.T) {
	svc, _, _ := newTestService()
	v, err := svc.Create(context.Background(), "nurse-1", Input{PatientSSN: testSSN, VisitType: "Emergency"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.HasPrefix(v.VisitID, "visit-") {
		t.Errorf("VisitID = %q", v.VisitID)
	}
	if v.VisitStatus != StatusOpen {
		t.Errorf("VisitStatus = %q", v.VisitStatus)
	}
	if !v.VisitDate.Equal(testNow) {
		t.Errorf("expected visit date to default to now, got %v", v.VisitDate)
	}
	if v.CreatedBy == nil || *v.CreatedBy != "nurse-1" || v.PatientName != "Mona Adel" {
		t.Errorf("unexpected visit %+v", v)
	}
}

func TestService_CreateErrors(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, "n", Input{PatientSSN: "29001011234568"}); !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("expected ErrPatientNotFound, got %v", err)
	}
	if _, err := svc.Create(ctx, "n", Input{PatientSSN: testSSN, Department: "Cardiology"}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for department, got %v", err)
	}
	if _, err := svc.Create(ctx, "n", Input{PatientSSN: testSSN, VisitDate: "18/10/2026"}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for date, got %v", err)
	}
}

func TestService_UpdateCompletion(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	v, _ := svc.Create(ctx, "n", Input{PatientSSN: testSSN})

	done, err := svc.Update(ctx, v.VisitID, Input{VisitStatus: StatusCompleted, PrimaryDiagnosis: "Fracture"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if done.CompletedAt == nil || !done.CompletedAt.Equal(testNow) {
		t.Errorf("expected completed_at stamped, got %v", done.CompletedAt)
	}
	if done.PrimaryDiagnosis == nil || *done.PrimaryDiagnosis != "Fracture" {
		t.Errorf("PrimaryDiagnosis = %v", done.PrimaryDiagnosis)
	}
	if !done.VisitDate.Equal(v.VisitDate) {
		t.Error("visit date should be kept when not supplied")
	}

	reopened, _ := svc.Update(ctx, v.VisitID, Input{VisitStatus: StatusOpen})
	if reopened.CompletedAt != nil {
		t.Error("expected completed_at cleared when leaving completed")
	}

	if _, err := svc.Update(ctx, v.VisitID, Input{VisitStatus: "archived"}); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestService_DeleteRunsInTransaction(t *testing.T) {
	svc, repo, tx := newTestService()
	ctx := context.Background()
	v, _ := svc.Create(ctx, "n", Input{PatientSSN: testSSN})

	if err := svc.Delete(ctx, v.VisitID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if tx.calls != 1 || len(repo.deleted) != 1 {
		t.Errorf("expected one transactional delete, got tx=%d deleted=%v", tx.calls, repo.deleted)
	}
	if err := svc.Delete(ctx, v.VisitID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_GetOrCreateForPatient(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	first, created, err := svc.GetOrCreateForPatient(ctx, testSSN, "doc-1")
	if err != nil || !created {
		t.Fatalf("expected a new visit, got created=%v err=%v", created, err)
	}
	again, created, err := svc.GetOrCreateForPatient(ctx, testSSN, "doc-1")
	if err != nil || created {
		t.Fatalf("expected the existing visit, got created=%v err=%v", created, err)
	}
	if again.VisitID != first.VisitID || len(repo.store) != 1 {
		t.Errorf("expected one visit, got %d", len(repo.store))
	}
}

func TestService_Resolve(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, _, _, err := svc.Resolve(ctx, "123", "doc"); !errors.Is(err, patient.ErrBadSSN) {
		t.Errorf("expected ErrBadSSN, got %v", err)
	}
	p, v, created, err := svc.Resolve(ctx, testSSN, "doc")
	if err != nil || !created || p.FullName != "Mona Adel" || v.PatientSSN != testSSN {
		t.Errorf("unexpected resolve result %v %v %v %v", p, v, created, err)
	}
}

func TestService_MarkInProgress(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	v, _ := svc.Create(ctx, "n", Input{PatientSSN: testSSN})

	moved, err := svc.MarkInProgress(ctx, v.VisitID)
	if err != nil || !moved {
		t.Fatalf("expected open visit to move, got %v %v", moved, err)
	}
	moved, _ = svc.MarkInProgress(ctx, v.VisitID)
	if moved {
		t.Error("in_progress visit should not move again")
	}
}

func TestService_ListForNurse(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		day := testNow.AddDate(0, 0, -i).Format("2006-01-02")
		if _, err := svc.Create(ctx, "nurse-1", Input{PatientSSN: testSSN, VisitDate: day}); err != nil {
			t.Fatal(err)
		}
	}
	other, _ := svc.Create(ctx, "nurse-2", Input{PatientSSN: testSSN})
	closed, _ := svc.Create(ctx, "nurse-1", Input{PatientSSN: testSSN, VisitDate: "2026-10-19"})
	repo.store[closed.VisitID].VisitStatus = StatusCompleted

	items, err := svc.ListForNurse(ctx, "nurse-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != nurseWorklistSize {
		t.Fatalf("expected %d visits, got %d", nurseWorklistSize, len(items))
	}
	for i, item := range items {
		if item.VisitID == other.VisitID || item.VisitID == closed.VisitID {
			t.Errorf("unexpected visit %s in worklist", item.VisitID)
		}
		if i > 0 && item.VisitDate.After(items[i-1].VisitDate) {
			t.Error("worklist not ordered newest first")
		}
	}
}

func TestService_Counts(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	svc.Create(ctx, "n", Input{PatientSSN: testSSN})
	svc.Create(ctx, "n", Input{PatientSSN: testSSN, VisitDate: "2026-10-01"})

	if n, _ := svc.Count(ctx); n != 2 {
		t.Errorf("Count = %d", n)
	}
	if n, _ := svc.CountToday(ctx); n != 1 {
		t.Errorf("CountToday = %d", n)
	}
	counts, _ := svc.CountByStatus(ctx)
	if counts[StatusOpen] != 2 {
		t.Errorf("CountByStatus = %v", counts)
	}
}
