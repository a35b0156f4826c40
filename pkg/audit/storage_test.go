package audit

import (
	"context"
	"testing"
	"time"
)

func decisionRecord(entity, principal, outcome string, at time.Time) *Record {
	r := NewRecord(EventDecision)
	r.Time = at
	r.Entity = entity
	r.Operation = "read"
	r.Principal = principal
	r.Outcome = outcome
	return r
}

func TestMemoryStorageStoreAndQuery(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	defer s.Close()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []*Record{
		decisionRecord("Invoice", "u1", "allow", base),
		decisionRecord("Invoice", "u2", "deny", base.Add(time.Minute)),
		decisionRecord("Order", "u1", "allow", base.Add(2*time.Minute)),
	}
	for _, r := range records {
		if err := s.Store(ctx, r); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}

	n, err := s.Count(ctx)
	if err != nil || n != 3 {
		t.Fatalf("Count = %d, %v, want 3", n, err)
	}

	got, err := s.Query(ctx, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Query returned %d records", len(got))
	}
	// Newest first.
	if got[0].Entity != "Order" || got[2].Principal != "u1" {
		t.Errorf("records not sorted newest first: %v, %v", got[0], got[2])
	}
}

func TestMemoryStorageQueryFilter(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	defer s.Close()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, r := range []*Record{
		decisionRecord("Invoice", "u1", "allow", base),
		decisionRecord("Invoice", "u2", "deny", base.Add(time.Minute)),
		decisionRecord("Order", "u1", "allow", base.Add(2*time.Minute)),
	} {
		if err := s.Store(ctx, r); err != nil {
			t.Fatalf("Store %d: %v", i, err)
		}
	}
	violation := NewRecord(EventInvariantViolation)
	violation.Entity = "Invoice"
	violation.Time = base.Add(3 * time.Minute)
	if err := s.Store(ctx, violation); err != nil {
		t.Fatalf("Store violation: %v", err)
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"by entity", Filter{Entity: "Invoice"}, 3},
		{"by event", Filter{Event: EventInvariantViolation}, 1},
		{"by principal", Filter{Principal: "u1"}, 2},
		{"since is inclusive", Filter{Since: base.Add(time.Minute)}, 3},
		{"until is exclusive", Filter{Until: base.Add(time.Minute)}, 1},
		{"limit", Filter{Limit: 2}, 2},
		{"combined", Filter{Entity: "Invoice", Event: EventDecision, Principal: "u2"}, 1},
		{"no match", Filter{Entity: "Shipment"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Query(ctx, &tt.filter)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("Query = %d records, want %d", len(got), tt.want)
			}
		})
	}
}

func TestMemoryStorageCopiesRecords(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	defer s.Close()

	r := decisionRecord("Invoice", "u1", "allow", time.Now().UTC())
	if err := s.Store(ctx, r); err != nil {
		t.Fatalf("Store: %v", err)
	}
	r.Outcome = "mutated"

	got, err := s.Query(ctx, nil)
	if err != nil || len(got) != 1 {
		t.Fatalf("Query: %v", err)
	}
	if got[0].Outcome != "allow" {
		t.Errorf("stored record shares memory with caller's record")
	}
}

func TestMemoryStorageDeleteBefore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	defer s.Close()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if err := s.Store(ctx, decisionRecord("Invoice", "u1", "allow", base.Add(time.Duration(i)*time.Hour))); err != nil {
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
	n, _ := s.Count(ctx)
	if n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}
}

func TestNewRecord(t *testing.T) {
	a := NewRecord(EventDecision)
	b := NewRecord(EventDecision)

	if a.ID == "" || a.ID == b.ID {
		t.Errorf("IDs must be unique and non-empty: %q, %q", a.ID, b.ID)
	}
	if a.Time.IsZero() {
		t.Errorf("time not set")
	}
	if a.Time.Location() != time.UTC {
		t.Errorf("time not UTC")
	}
	if a.Event != EventDecision {
		t.Errorf("event = %q", a.Event)
	}
}
