package db

import (
	"testing"
	"testing/fstest"
	"time"

	"github.com/shorouk/radiology/migrations"
)

func TestLoadMigrations(t *testing.T) {
	files := fstest.MapFS{
		"001_core.sql":     {Data: []byte("CREATE TABLE users (id SERIAL PRIMARY KEY);\n-- +down\nDROP TABLE users;")},
		"002_visits.sql":   {Data: []byte("CREATE TABLE visits (id SERIAL PRIMARY KEY);")},
		"003_indexes.sql":  {Data: []byte("CREATE INDEX idx ON visits (id);")},
		"readme.sql":       {Data: []byte("-- no version prefix")},
		"abc_invalid.sql":  {Data: []byte("-- non-numeric prefix")},
		"notes.txt":        {Data: []byte("not sql")},
		"sub/004_skip.sql": {Data: []byte("SELECT 1;")},
	}

	migrator := NewMigrator(nil, files, "")
	migs, err := migrator.LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migs) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migs))
	}
	if migs[0].Version != 1 || migs[0].Name != "001_core.sql" {
		t.Errorf("unexpected first migration %+v", migs[0])
	}
	if migs[0].SQL != "CREATE TABLE users (id SERIAL PRIMARY KEY);" {
		t.Errorf("unexpected up SQL: %q", migs[0].SQL)
	}
	if migs[0].DownSQL != "DROP TABLE users;" {
		t.Errorf("unexpected down SQL: %q", migs[0].DownSQL)
	}
	if migs[1].DownSQL != "" {
		t.Errorf("expected no down SQL, got %q", migs[1].DownSQL)
	}
	if migs[2].Version != 3 {
		t.Errorf("expected version 3, got %d", migs[2].Version)
	}
}

func TestLoadMigrations_SortOrder(t *testing.T) {
	files := fstest.MapFS{
		"010_tables.sql": {Data: []byte("SELECT 10;")},
		"002_second.sql": {Data: []byte("SELECT 2;")},
		"001_first.sql":  {Data: []byte("SELECT 1;")},
		"005_middle.sql": {Data: []byte("SELECT 5;")},
	}

	migs, err := NewMigrator(nil, files, "").LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	want := []int{1, 2, 5, 10}
	for i, v := range want {
		if migs[i].Version != v {
			t.Errorf("migration[%d]: expected version %d, got %d", i, v, migs[i].Version)
		}
	}
}

func TestLoadMigrations_Embedded(t *testing.T) {
	migs, err := NewMigrator(nil, migrations.FS, "").LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migs) < 2 {
		t.Fatalf("expected embedded migrations, got %d", len(migs))
	}
	for _, m := range migs {
		if m.DownSQL == "" {
			t.Errorf("embedded migration %s has no down section", m.Name)
		}
	}
}

func TestPendingAndRollbackOrder(t *testing.T) {
	migs := []Migration{{Version: 1}, {Version: 2}, {Version: 3}}
	applied := map[int]time.Time{1: time.Now(), 2: time.Now()}

	p := pending(migs, applied)
	if len(p) != 1 || p[0].Version != 3 {
		t.Errorf("expected only version 3 pending, got %+v", p)
	}

	r := rollbackOrder(migs, applied, 5)
	if len(r) != 2 || r[0].Version != 2 || r[1].Version != 1 {
		t.Errorf("expected rollback 2 then 1, got %+v", r)
	}

	r = rollbackOrder(migs, applied, 1)
	if len(r) != 1 || r[0].Version != 2 {
		t.Errorf("expected rollback of version 2 only, got %+v", r)
	}
}

func TestBuildStatus(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	migs := []Migration{{Version: 1, Name: "001_core.sql"}, {Version: 2, Name: "002_idx.sql"}}

	statuses := buildStatus(migs, map[int]time.Time{1: at})
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if !statuses[0].Applied || statuses[0].AppliedAt == nil || !statuses[0].AppliedAt.Equal(at) {
		t.Errorf("expected migration 001 applied at %v, got %+v", at, statuses[0])
	}
	if statuses[1].Applied || statuses[1].AppliedAt != nil {
		t.Errorf("expected migration 002 pending, got %+v", statuses[1])
	}
}

func TestNewMigrator_DefaultSchema(t *testing.T) {
	m := NewMigrator(nil, fstest.MapFS{}, "")
	if m.schema != "public" {
		t.Errorf("expected public schema, got %s", m.schema)
	}
}
