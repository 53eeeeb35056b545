package patient

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/shorouk/radiology/internal/platform/apperr"
)

type mockRepo struct {
	store map[string]*Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[string]*Patient)}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	if _, ok := m.store[p.SSN]; ok {
		return ErrExists
	}
	for _, existing := range m.store {
		if existing.MedicalNumber == p.MedicalNumber {
			return ErrExists
		}
	}
	p.CreatedAt = testNow
	p.UpdatedAt = testNow
	cp := *p
	m.store[p.SSN] = &cp
	return nil
}

func (m *mockRepo) GetBySSN(_ context.Context, ssn string) (*Patient, error) {
	p, ok := m.store[ssn]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	existing, ok := m.store[p.SSN]
	if !ok {
		return ErrNotFound
	}
	p.CreatedAt = existing.CreatedAt
	cp := *p
	m.store[p.SSN] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, ssn string) error {
	if _, ok := m.store[ssn]; !ok {
		return ErrNotFound
	}
	delete(m.store, ssn)
	return nil
}

func (m *mockRepo) List(_ context.Context, f ListFilter, limit, offset int) ([]*Patient, int, error) {
	var all []*Patient
	for _, p := range m.store {
		if f.Search != "" && !strings.Contains(strings.ToLower(p.FullName), strings.ToLower(f.Search)) {
			continue
		}
		if f.Gender != "" && p.Gender != f.Gender {
			continue
		}
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].SSN < all[j].SSN })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *mockRepo) Search(_ context.Context, q string, limit int) ([]*Summary, error) {
	var out []*Summary
	for _, p := range m.store {
		if strings.Contains(strings.ToLower(p.FullName), strings.ToLower(q)) || strings.Contains(p.SSN, q) {
			out = append(out, &Summary{SSN: p.SSN, FullName: p.FullName, MedicalNumber: p.MedicalNumber})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockRepo) Count(_ context.Context) (int, error) {
	return len(m.store), nil
}

func newTestService() *Service {
	svc := NewService(newMockRepo(), "EG")
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestService_CreateThenGet(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	in := validInput()
	in.Address = "  12 Nile St  "
	created, err := svc.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := svc.GetBySSN(ctx, in.SSN)
	if err != nil {
		t.Fatalf("GetBySSN: %v", err)
	}
	if got.FullName != created.FullName || got.MedicalNumber != created.MedicalNumber {
		t.Errorf("round trip mismatch: %+v vs %+v", got, created)
	}
	if !got.DateOfBirth.Equal(time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("DateOfBirth = %v", got.DateOfBirth)
	}
	if got.Address == nil || *got.Address != "12 Nile St" {
		t.Errorf("Address = %v", got.Address)
	}
}

func TestService_CreateDuplicate(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	if _, err := svc.Create(ctx, validInput()); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, validInput()); !errors.Is(err, ErrExists) {
		t.Errorf("expected ErrExists, got %v", err)
	}
}

func TestService_GetBySSN_Invalid(t *testing.T) {
	svc := newTestService()
	if _, err := svc.GetBySSN(context.Background(), "12345"); !errors.Is(err, ErrBadSSN) {
		t.Errorf("expected ErrBadSSN, got %v", err)
	}
	if _, err := svc.GetBySSN(context.Background(), "29001011234567"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_UpdateKeepsPathSSN(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	if _, err := svc.Create(ctx, validInput()); err != nil {
		t.Fatal(err)
	}

	in := validInput()
	in.SSN = "11111111111111"
	in.FullName = "Mona Adel Hassan"
	p, err := svc.Update(ctx, "29001011234567", in)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if p.SSN != "29001011234567" || p.FullName != "Mona Adel Hassan" {
		t.Errorf("unexpected patient %+v", p)
	}
	if n, _ := svc.Count(ctx); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}

func TestService_UpdateValidation(t *testing.T) {
	svc := newTestService()
	in := validInput()
	in.FullName = ""
	_, err := svc.Update(context.Background(), in.SSN, in)
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestService_Delete(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	if _, err := svc.Create(ctx, validInput()); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, "29001011234567"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, "29001011234567"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestService_Search(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	empty, err := svc.Search(ctx, "   ")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil result, got %v %v", empty, err)
	}

	for i, name := range []string{"Omar Ali", "Mona Adel", "Ali Hassan"} {
		in := validInput()
		in.SSN = "2900101123456" + string(rune('0'+i))
		in.MedicalNumber = "MRN-" + string(rune('A'+i)) + "00"
		in.FullName = name
		if _, err := svc.Create(ctx, in); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}

	got, err := svc.Search(ctx, "ali")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].FullName != "Ali Hassan" {
		t.Errorf("unexpected search result %+v", got)
	}
}
