package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordDecision(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(nil, reg)

	m.RecordDecision("Invoice", "update", "deny", "forbid", 50*time.Microsecond)
	m.RecordDecision("Invoice", "update", "deny", "forbid", 30*time.Microsecond)
	m.RecordDecision("Invoice", "read", "allow", "permit", 10*time.Microsecond)

	got := testutil.ToFloat64(m.decisionsTotal.WithLabelValues("Invoice", "update", "deny", "forbid"))
	if got != 2 {
		t.Errorf("decisions_total{deny,forbid} = %v, want 2", got)
	}
	got = testutil.ToFloat64(m.decisionsTotal.WithLabelValues("Invoice", "read", "allow", "permit"))
	if got != 1 {
		t.Errorf("decisions_total{allow,permit} = %v, want 1", got)
	}
}

func TestRecordViolationsAndRejections(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(nil, reg)

	m.RecordInvariantViolation("Invoice", "positive-amount")
	m.RecordGuardRejection("Order", "guard_failed")
	m.RecordGuardRejection("Order", "invalid_transition")
	m.RecordReload("ok")
	m.RecordReload("error")

	if got := testutil.ToFloat64(m.invariantViolations.WithLabelValues("Invoice", "positive-amount")); got != 1 {
		t.Errorf("invariant_violations_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.guardRejections.WithLabelValues("Order", "guard_failed")); got != 1 {
		t.Errorf("guard_rejections_total{guard_failed} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.reloadsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("reloads_total{error} = %v, want 1", got)
	}
}

func TestNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(&Config{Namespace: "custom"}, reg)
	m.RecordReload("ok")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "custom_reloads_total" {
			found = true
		}
	}
	if !found {
		t.Errorf("custom_reloads_total not registered")
	}
}
