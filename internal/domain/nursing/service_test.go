package nursing

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/shorouk/radiology/internal/domain/visit"
	"github.com/shorouk/radiology/internal/platform/apperr"
	"github.com/shorouk/radiology/internal/platform/db"
	"github.com/shorouk/radiology/internal/platform/metrics"
	"github.com/shorouk/radiology/internal/platform/websocket"
)

const testSignature = "data:image/png;base64,iVBORw0KGgo="

var testNow = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

type mockRepo struct {
	byVisit map[string]*Assessment
	writes  int
}

func newMockRepo() *mockRepo {
	return &mockRepo{byVisit: make(map[string]*Assessment)}
}

func (m *mockRepo) GetByVisit(_ context.Context, visitID string, _ bool) (*Assessment, error) {
	a, ok := m.byVisit[visitID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) Insert(_ context.Context, a *Assessment) error {
	if _, ok := m.byVisit[a.VisitID]; ok {
		return apperr.ErrDuplicate
	}
	m.writes++
	cp := *a
	m.byVisit[a.VisitID] = &cp
	return nil
}

func (m *mockRepo) Update(_ context.Context, a *Assessment) error {
	if _, ok := m.byVisit[a.VisitID]; !ok {
		return ErrNotFound
	}
	m.writes++
	cp := *a
	m.byVisit[a.VisitID] = &cp
	return nil
}

func (m *mockRepo) ListByNurse(_ context.Context, userID string, limit int) ([]*Summary, error) {
	var out []*Summary
	for _, a := range m.byVisit {
		if a.AssessedBy != nil && *a.AssessedBy == userID {
			out = append(out, &Summary{AssessmentID: a.AssessmentID, VisitID: a.VisitID, SubmissionStatus: a.SubmissionStatus})
		}
	}
	return out, nil
}

type mockVisits map[string]*visit.Visit

func (m mockVisits) Get(_ context.Context, id string) (*visit.Visit, error) {
	v, ok := m[id]
	if !ok {
		return nil, visit.ErrNotFound
	}
	return v, nil
}

type mockSignatures struct {
	byUser map[string]string
	saves  int
}

func (m *mockSignatures) SaveUserSignature(_ context.Context, userID, data string) (string, error) {
	m.saves++
	if id, ok := m.byUser[userID]; ok {
		return id, nil
	}
	id := "sig-" + userID
	m.byUser[userID] = id
	return id, nil
}

type recordingPublisher struct {
	events []websocket.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e websocket.Event) error {
	p.events = append(p.events, e)
	return nil
}

type fixture struct {
	svc     *Service
	repo    *mockRepo
	sigs    *mockSignatures
	events  *recordingPublisher
	metrics *metrics.Metrics
}

func newFixture() *fixture {
	f := &fixture{
		repo:    newMockRepo(),
		sigs:    &mockSignatures{byUser: make(map[string]string)},
		events:  &recordingPublisher{},
		metrics: metrics.New(prometheus.NewRegistry()),
	}
	visits := mockVisits{"visit-1": {VisitID: "visit-1", PatientSSN: "29001011234567", PatientName: "Mona Adel"}}
	f.svc = NewService(f.repo, visits, f.sigs, db.NoTx{}, f.events, f.metrics, zerolog.New(io.Discard))
	f.svc.now = func() time.Time { return testNow }
	return f
}

func finalForm() Form {
	return Form{
		VisitID:             "visit-1",
		ChiefComplaint:      "Chest pain since morning",
		Age:                 "52",
		TemperatureCelsius:  "37.1",
		PulseBPM:            "90",
		MorseHistoryFalling: "25",
		MorseGait:           "10",
		NurseSignature:      testSignature,
	}
}

func TestService_DraftThenFinalSubmit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	draft := Form{VisitID: "visit-1", Action: "draft", ChiefComplaint: "Chest"}
	first, err := f.svc.Submit(ctx, "nurse-1", draft)
	if err != nil {
		t.Fatalf("draft: %v", err)
	}
	if first.Status != StatusDraft || !strings.HasPrefix(first.SubmissionID, "sub-") || !strings.HasPrefix(first.AssessmentID, "nurse-") {
		t.Errorf("unexpected draft result %+v", first)
	}
	if f.sigs.saves != 0 {
		t.Error("drafts must not store a signature")
	}
	if stored := f.repo.byVisit["visit-1"]; stored.NurseSignatureID != nil {
		t.Error("draft should have no signature reference")
	}

	final, err := f.svc.Submit(ctx, "nurse-1", finalForm())
	if err != nil {
		t.Fatalf("final: %v", err)
	}
	if final.SubmissionID != first.SubmissionID || final.AssessmentID != first.AssessmentID {
		t.Errorf("final submit should reuse ids: %+v vs %+v", final, first)
	}
	stored := f.repo.byVisit["visit-1"]
	if stored.SubmissionStatus != StatusSubmitted {
		t.Errorf("status = %q", stored.SubmissionStatus)
	}
	if stored.NurseSignatureID == nil || *stored.NurseSignatureID != "sig-nurse-1" {
		t.Errorf("signature id = %v", stored.NurseSignatureID)
	}
	if stored.MorseTotalScore != 35 || stored.MorseScale.RiskLevel != "Low Risk" {
		t.Errorf("unexpected morse %+v", stored.MorseScale)
	}
	if stored.AssessedBy == nil || *stored.AssessedBy != "nurse-1" || !stored.AssessedAt.Equal(testNow) {
		t.Errorf("unexpected assessor %v at %v", stored.AssessedBy, stored.AssessedAt)
	}

	if len(f.events.events) != 1 {
		t.Fatalf("expected one event, got %d", len(f.events.events))
	}
	ev := f.events.events[0]
	if ev.Type != websocket.EventNursingSubmitted || ev.Channel != websocket.ChannelNursing {
		t.Errorf("unexpected event %+v", ev)
	}
	if got := testutil.ToFloat64(f.metrics.NursingSubmissions.WithLabelValues(StatusDraft)); got != 1 {
		t.Errorf("draft counter = %v", got)
	}
	if got := testutil.ToFloat64(f.metrics.NursingSubmissions.WithLabelValues(StatusSubmitted)); got != 1 {
		t.Errorf("submitted counter = %v", got)
	}
}

func TestService_SubmittedIsReadOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.svc.Submit(ctx, "nurse-1", finalForm()); err != nil {
		t.Fatal(err)
	}
	before := *f.repo.byVisit["visit-1"]
	writes := f.repo.writes

	for _, action := range []string{"draft", "submit"} {
		form := finalForm()
		form.Action = action
		form.ChiefComplaint = "Changed my mind entirely"
		_, err := f.svc.Submit(ctx, "nurse-2", form)
		if !errors.Is(err, ErrAssessmentLocked) {
			t.Errorf("%s: expected ErrAssessmentLocked, got %v", action, err)
		}
	}
	if f.repo.writes != writes {
		t.Error("locked assessment was written")
	}
	after := f.repo.byVisit["visit-1"]
	if after.ChiefComplaint != before.ChiefComplaint || *after.AssessedBy != "nurse-1" {
		t.Error("locked assessment changed")
	}
	if f.sigs.saves != 1 {
		t.Errorf("signature saved %d times, want 1", f.sigs.saves)
	}
}

func TestService_FinalRequiresSignature(t *testing.T) {
	f := newFixture()
	form := finalForm()
	form.NurseSignature = "  "
	if _, err := f.svc.Submit(context.Background(), "nurse-1", form); !errors.Is(err, ErrSignatureRequired) {
		t.Errorf("expected ErrSignatureRequired, got %v", err)
	}
	if len(f.repo.byVisit) != 0 {
		t.Error("nothing should be written without a signature")
	}
}

func TestService_FinalValidation(t *testing.T) {
	f := newFixture()
	form := finalForm()
	form.PulseBPM = "250"
	_, err := f.svc.Submit(context.Background(), "nurse-1", form)
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.sigs.saves != 0 || len(f.repo.byVisit) != 0 {
		t.Error("validation failure must not write")
	}

	// The same values are fine in a draft.
	form.Action = "draft"
	if _, err := f.svc.Submit(context.Background(), "nurse-1", form); err != nil {
		t.Errorf("draft should skip range checks, got %v", err)
	}
}

func TestService_VisitChecks(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.svc.Submit(ctx, "n", Form{Action: "draft"}); !errors.Is(err, ErrVisitRequired) {
		t.Errorf("expected ErrVisitRequired, got %v", err)
	}
	if _, err := f.svc.Submit(ctx, "n", Form{VisitID: "visit-x", Action: "draft"}); !errors.Is(err, ErrVisitNotFound) {
		t.Errorf("expected ErrVisitNotFound, got %v", err)
	}
}

func TestService_GetByVisit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	d, err := f.svc.GetByVisit(ctx, "visit-1")
	if err != nil {
		t.Fatal(err)
	}
	if d.Assessment != nil || d.Locked {
		t.Errorf("expected empty draft, got %+v", d)
	}

	f.svc.Submit(ctx, "nurse-1", finalForm())
	d, _ = f.svc.GetByVisit(ctx, "visit-1")
	if d.Assessment == nil || !d.Locked || d.Visit.PatientName != "Mona Adel" {
		t.Errorf("unexpected draft %+v", d)
	}

	if _, err := f.svc.GetByVisit(ctx, "visit-x"); !errors.Is(err, ErrVisitNotFound) {
		t.Errorf("expected ErrVisitNotFound, got %v", err)
	}
}

func TestService_ListByNurse(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	empty, err := f.svc.ListByNurse(ctx, "nurse-1")
	if err != nil || empty == nil {
		t.Fatalf("expected empty list, got %v %v", empty, err)
	}
	f.svc.Submit(ctx, "nurse-1", Form{VisitID: "visit-1", Action: "draft"})
	items, _ := f.svc.ListByNurse(ctx, "nurse-1")
	if len(items) != 1 || items[0].SubmissionStatus != StatusDraft {
		t.Errorf("unexpected history %+v", items)
	}
}
