package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cpathways/cprules/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:         true,
		Namespace:       "test",
		Subsystem:       "rules",
		DurationBuckets: []float64{0.0001, 0.001, 0.01},
	}
}

func TestCollector_NewCollector(t *testing.T) {
	cfg := &config.MetricsConfig{Enabled: true}
	registry := prometheus.NewRegistry()

	collector := NewCollector(cfg, registry)

	if collector.Registry() != registry {
		t.Error("collector registry not set correctly")
	}
	if cfg.Namespace != "cprules" || cfg.Subsystem != "rules" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if len(cfg.DurationBuckets) == 0 {
		t.Error("duration buckets not defaulted")
	}

	// A nil registry gets a private one, so two collectors coexist.
	a := NewCollector(testConfig(), nil)
	b := NewCollector(testConfig(), nil)
	if a.Registry() == b.Registry() {
		t.Error("expected distinct registries")
	}
}

func TestCollector_RecordEvaluation(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordEvaluation("connection.create", "qualified", 50*time.Microsecond)
	collector.RecordEvaluation("connection.create", "qualified", 70*time.Microsecond)
	collector.RecordEvaluation("shape.create", "deny", 10*time.Microsecond)

	got := testutil.ToFloat64(collector.rules.evaluationsTotal.WithLabelValues("connection.create", "qualified"))
	if got != 2 {
		t.Errorf("evaluations = %v, want 2", got)
	}
	got = testutil.ToFloat64(collector.rules.evaluationsTotal.WithLabelValues("shape.create", "deny"))
	if got != 1 {
		t.Errorf("deny evaluations = %v, want 1", got)
	}

	if n := testutil.CollectAndCount(collector.rules.evaluationDuration); n != 2 {
		t.Errorf("duration series = %d, want 2", n)
	}
}

func TestCollector_FallbackAndFault(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordFallback("elements.move")
	collector.RecordFault("shape.create")
	collector.RecordFault("shape.create")

	if got := testutil.ToFloat64(collector.rules.fallbacksTotal.WithLabelValues("elements.move")); got != 1 {
		t.Errorf("fallbacks = %v", got)
	}
	if got := testutil.ToFloat64(collector.rules.faultsTotal.WithLabelValues("shape.create")); got != 2 {
		t.Errorf("faults = %v", got)
	}
}

func TestCollector_Audit(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordAuditDropped()
	collector.RecordAuditPruned("age", 5)
	collector.RecordAuditPruned("count", 0)

	if got := testutil.ToFloat64(collector.audit.droppedTotal); got != 1 {
		t.Errorf("dropped = %v", got)
	}
	if got := testutil.ToFloat64(collector.audit.prunedTotal.WithLabelValues("age")); got != 5 {
		t.Errorf("pruned = %v", got)
	}
	if n := testutil.CollectAndCount(collector.audit.prunedTotal); n != 1 {
		t.Errorf("zero-count prune should not create a series, got %d", n)
	}
}

func TestCollector_HTTPAndScenarios(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordHTTPRequest("/v1/evaluate", "POST", 200, time.Millisecond)
	collector.RecordHTTPRequest("", "GET", 404, time.Millisecond)
	collector.RecordScenarioRun(10, 2)
	collector.RecordScenarioRun(12, 0)

	if got := testutil.ToFloat64(collector.http.requestsTotal.WithLabelValues("/v1/evaluate", "POST", "200")); got != 1 {
		t.Errorf("http requests = %v", got)
	}
	if got := testutil.ToFloat64(collector.http.requestsTotal.WithLabelValues("unmatched", "GET", "404")); got != 1 {
		t.Errorf("unmatched requests = %v", got)
	}
	if got := testutil.ToFloat64(collector.scenario.runsTotal); got != 2 {
		t.Errorf("runs = %v", got)
	}
	if got := testutil.ToFloat64(collector.scenario.lastFailed); got != 0 {
		t.Errorf("last failed = %v", got)
	}
	if got := testutil.ToFloat64(collector.scenario.failuresTotal); got != 2 {
		t.Errorf("failures = %v", got)
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	collector := NewCollector(cfg, nil)

	collector.RecordEvaluation("shape.create", "allow", time.Microsecond)
	collector.RecordAuditDropped()

	if n := testutil.CollectAndCount(collector.rules.evaluationsTotal); n != 0 {
		t.Errorf("disabled collector recorded %d series", n)
	}
	if got := testutil.ToFloat64(collector.audit.droppedTotal); got != 0 {
		t.Errorf("disabled collector counted drops: %v", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.RecordEvaluation("connection.reconnectEnd", "allow", time.Microsecond)

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(string(body), "test_rules_evaluations_total") {
		t.Errorf("metrics output missing evaluations counter:\n%s", body)
	}
}
