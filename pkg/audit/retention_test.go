package audit

import (
	"context"
	"testing"
	"time"
)

func TestPrunerPrune(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	defer s.Close()

	now := time.Now().UTC()
	ages := []time.Duration{
		100 * 24 * time.Hour, // past retention
		95 * 24 * time.Hour,  // past retention
		10 * 24 * time.Hour,
		time.Hour,
	}
	for _, age := range ages {
		r := NewRecord(EventDecision)
		r.Time = now.Add(-age)
		if err := s.Store(ctx, r); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}

	p := NewPruner(s, &RetentionConfig{RetentionDays: 90}, nil)
	deleted, err := p.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}
	n, _ := s.Count(ctx)
	if n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}
}

func TestPrunerDisabled(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	defer s.Close()

	r := NewRecord(EventDecision)
	r.Time = time.Now().UTC().AddDate(-1, 0, 0)
	if err := s.Store(ctx, r); err != nil {
		t.Fatalf("Store: %v", err)
	}

	p := NewPruner(s, &RetentionConfig{RetentionDays: 0}, nil)
	deleted, err := p.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if deleted != 0 {
		t.Errorf("pruning should be disabled with zero retention")
	}
	n, _ := s.Count(ctx)
	if n != 1 {
		t.Errorf("record deleted despite disabled retention")
	}
}

func TestSchedulerStartStop(t *testing.T) {
	p := NewPruner(NewMemoryStorage(), DefaultRetentionConfig(), nil)
	s := NewScheduler(p)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !s.IsRunning() {
		t.Errorf("scheduler should be running")
	}
	if s.NextRun() == nil {
		t.Errorf("next run should be scheduled")
	}

	s.Stop()
	if s.IsRunning() {
		t.Errorf("scheduler should be stopped")
	}
}

func TestSchedulerInvalidSchedule(t *testing.T) {
	p := NewPruner(NewMemoryStorage(), &RetentionConfig{RetentionDays: 90, PruneSchedule: "not a schedule"}, nil)
	s := NewScheduler(p)

	if err := s.Start(context.Background()); err == nil {
		t.Errorf("invalid cron schedule should be rejected")
	}
}

func TestSchedulerNoSchedule(t *testing.T) {
	p := NewPruner(NewMemoryStorage(), &RetentionConfig{RetentionDays: 90}, nil)
	s := NewScheduler(p)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.IsRunning() {
		t.Errorf("scheduler should not run without a schedule")
	}
}
