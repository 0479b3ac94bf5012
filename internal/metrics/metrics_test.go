package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/unklstewy/flightwatch/pkg/eta"
	"github.com/unklstewy/flightwatch/pkg/flight"
)

func TestCollectorRecordsPhaseAndTicks(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	collector.RecordPhase(flight.PhaseInFlight)
	collector.RecordTick()
	collector.RecordTick()

	if got := testutil.ToFloat64(collector.FlightPhase); got != 1 {
		t.Errorf("flightwatch_phase = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.TicksTotal); got != 2 {
		t.Errorf("flightwatch_ticks_total = %v, want 2", got)
	}
}

func TestCollectorRecordsResults(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	collector.RecordResult(eta.Result{
		TargetID:       "kavl",
		DistanceMeters: 150000.0,
		ETASeconds:     1943.8,
		Mode:           flight.ModeEstimated,
		ComputedAt:     time.Now(),
	})

	if got := testutil.ToFloat64(collector.ETASeconds.WithLabelValues("kavl", "ESTIMATED")); got != 1943.8 {
		t.Errorf("flightwatch_eta_seconds = %v, want 1943.8", got)
	}
	if got := testutil.ToFloat64(collector.DistanceMeters.WithLabelValues("kavl", "ESTIMATED")); got != 150000.0 {
		t.Errorf("flightwatch_distance_meters = %v, want 150000", got)
	}
}

func TestCollectorAdvancesCacheCountersByDelta(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	collector.RecordCacheStats(eta.Stats{}, eta.Stats{Hits: 3, Misses: 1, LiveEntries: 2})
	collector.RecordCacheStats(eta.Stats{Hits: 3, Misses: 1}, eta.Stats{Hits: 7, Misses: 2, LiveEntries: 1})

	if got := testutil.ToFloat64(collector.CacheHits); got != 7 {
		t.Errorf("flightwatch_eta_cache_hits_total = %v, want 7", got)
	}
	if got := testutil.ToFloat64(collector.CacheMisses); got != 2 {
		t.Errorf("flightwatch_eta_cache_misses_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.CacheEntries); got != 1 {
		t.Errorf("flightwatch_eta_cache_entries = %v, want 1", got)
	}
}

func TestCollectorReregistrationReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	second, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector (again): %v", err)
	}

	first.RecordTick()
	second.RecordTick()

	if got := testutil.ToFloat64(second.TicksTotal); got != 2 {
		t.Errorf("Expected shared counter at 2, got %v", got)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	collector.RecordPhase(flight.PhasePostArrival)

	srv := httptest.NewServer(collector.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "flightwatch_phase 2") {
		t.Errorf("Expected flightwatch_phase 2 in exposition, got:\n%s", body)
	}
}
