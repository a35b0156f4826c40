package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func testSQLiteStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	cfg := DefaultSQLiteConfig()
	cfg.Path = filepath.Join(t.TempDir(), "audit.db")
	s, err := NewSQLiteStorage(cfg, nil)
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreAndQuery(t *testing.T) {
	ctx := context.Background()
	s := testSQLiteStorage(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := NewRecord(EventDecision)
	r.Time = base
	r.Entity = "Invoice"
	r.Operation = "update"
	r.Principal = "u1"
	r.Persona = "clerk"
	r.Outcome = "deny"
	r.Rule = "no-update-archived"
	r.Detail = "forbid matched"
	if err := s.Store(ctx, r); err != nil {
		t.Fatalf("Store: %v", err)
	}

	bypass := NewRecord(EventDecision)
	bypass.Time = base.Add(time.Minute)
	bypass.Entity = "Invoice"
	bypass.Principal = "root"
	bypass.Outcome = "allow"
	bypass.Bypass = true
	if err := s.Store(ctx, bypass); err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, err := s.Query(ctx, &Filter{Entity: "Invoice"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Query = %d records, want 2", len(got))
	}
	// Newest first, round-tripped intact.
	if got[0].Principal != "root" || !got[0].Bypass {
		t.Errorf("first record = %+v, want the bypass decision", got[0])
	}
	if got[1].Rule != "no-update-archived" || got[1].Detail != "forbid matched" {
		t.Errorf("second record = %+v", got[1])
	}
	if !got[1].Time.Equal(base) {
		t.Errorf("time = %v, want %v", got[1].Time, base)
	}
}

func TestSQLiteQueryFilters(t *testing.T) {
	ctx := context.Background()
	s := testSQLiteStorage(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, ev := range []EventKind{EventDecision, EventDecision, EventInvariantViolation} {
		r := NewRecord(ev)
		r.Time = base.Add(time.Duration(i) * time.Minute)
		r.Entity = "Order"
		r.Principal = "u1"
		r.Outcome = "deny"
		if err := s.Store(ctx, r); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}

	got, err := s.Query(ctx, &Filter{Event: EventInvariantViolation})
	if err != nil || len(got) != 1 {
		t.Errorf("by event: %d records, %v, want 1", len(got), err)
	}
	got, err = s.Query(ctx, &Filter{Since: base.Add(time.Minute)})
	if err != nil || len(got) != 2 {
		t.Errorf("since: %d records, %v, want 2", len(got), err)
	}
	got, err = s.Query(ctx, &Filter{Until: base.Add(time.Minute)})
	if err != nil || len(got) != 1 {
		t.Errorf("until: %d records, %v, want 1", len(got), err)
	}
	got, err = s.Query(ctx, &Filter{Limit: 2})
	if err != nil || len(got) != 2 {
		t.Errorf("limit: %d records, %v, want 2", len(got), err)
	}
}

func TestSQLiteDeleteBefore(t *testing.T) {
	ctx := context.Background()
	s := testSQLiteStorage(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		r := NewRecord(EventDecision)
		r.Time = base.Add(time.Duration(i) * time.Hour)
		r.Entity = "Order"
		r.Outcome = "allow"
		if err := s.Store(ctx, r); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}

	deleted, err := s.DeleteBefore(ctx, base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}
	n, err := s.Count(ctx)
	if err != nil || n != 2 {
		t.Errorf("Count = %d, %v, want 2", n, err)
	}
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultSQLiteConfig()
	cfg.Path = filepath.Join(t.TempDir(), "audit.db")

	s, err := NewSQLiteStorage(cfg, nil)
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	r := NewRecord(EventGuardRejection)
	r.Entity = "Order"
	r.Outcome = "guard_failed"
	if err := s.Store(ctx, r); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = NewSQLiteStorage(cfg, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	n, err := s.Count(ctx)
	if err != nil || n != 1 {
		t.Errorf("Count after reopen = %d, %v, want 1", n, err)
	}
}
