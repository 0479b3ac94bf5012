package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/unklstewy/flightwatch/pkg/eta"
	"github.com/unklstewy/flightwatch/pkg/flight"
	"github.com/unklstewy/flightwatch/pkg/route"
	"github.com/unklstewy/flightwatch/pkg/telemetry"
)

var monStart = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

func newTestMonitor(targets ...eta.Target) *Monitor {
	cfg := flight.DefaultConfig()
	tracker := flight.NewTracker(cfg, nil)
	calc := eta.NewCalculator(cfg, nil)
	cache := eta.NewCache(cfg.CacheTTL)
	return New(tracker, calc, cache, nil, targets, nil)
}

// TestTick tests one pass of the single-writer loop.
func TestTick(t *testing.T) {
	t.Run("Produces a result per destination", func(t *testing.T) {
		m := newTestMonitor(
			eta.Target{ID: "a", Latitude: 1.0, Longitude: -80.0},
			eta.Target{ID: "b", Latitude: 2.0, Longitude: -80.0},
		)

		m.Tick(telemetry.Telemetry{Latitude: 0.0, Longitude: -80.0, Speed: 10.0, Timestamp: monStart}, monStart)

		snap := m.Snapshot()
		if len(snap.Results) != 2 {
			t.Fatalf("Expected 2 results, got %d", len(snap.Results))
		}
		if snap.TickCount != 1 {
			t.Errorf("Expected tick count 1, got %d", snap.TickCount)
		}
		for _, r := range snap.Results {
			if r.Mode != flight.ModeAnticipated {
				t.Errorf("Expected ANTICIPATED results pre-departure, got %s", r.Mode)
			}
		}
	})

	t.Run("Results flip to estimated after departure", func(t *testing.T) {
		m := newTestMonitor(eta.Target{ID: "a", Latitude: 1.0, Longitude: -80.0})

		for s := 0; s <= 11; s++ {
			at := monStart.Add(time.Duration(s) * time.Second)
			m.Tick(telemetry.Telemetry{Latitude: 0.0, Longitude: -80.0, Speed: 80.0, Timestamp: at}, at)
		}

		snap := m.Snapshot()
		if snap.Status.Phase != flight.PhaseInFlight {
			t.Fatalf("Expected IN_FLIGHT, got %s", snap.Status.Phase)
		}
		if len(snap.Results) != 1 || snap.Results[0].Mode != flight.ModeEstimated {
			t.Errorf("Expected ESTIMATED result, got %+v", snap.Results)
		}
	})

	t.Run("Repeated ticks within the TTL hit the cache", func(t *testing.T) {
		m := newTestMonitor(eta.Target{ID: "a", Latitude: 1.0, Longitude: -80.0})

		for s := 0; s < 5; s++ {
			at := monStart.Add(time.Duration(s) * 100 * time.Millisecond)
			m.Tick(telemetry.Telemetry{Latitude: 0.0, Longitude: -80.0, Speed: 10.0, Timestamp: at}, at)
		}

		stats := m.CacheStats()
		if stats.Hits < 3 {
			t.Errorf("Expected cache hits across sub-TTL ticks, got %+v", stats)
		}
	})

	t.Run("Invalid target is skipped, not fatal", func(t *testing.T) {
		m := newTestMonitor(
			eta.Target{ID: "", Latitude: 1.0, Longitude: -80.0},
			eta.Target{ID: "ok", Latitude: 2.0, Longitude: -80.0},
		)

		m.Tick(telemetry.Telemetry{Latitude: 0.0, Longitude: -80.0, Speed: 10.0, Timestamp: monStart}, monStart)

		snap := m.Snapshot()
		if len(snap.Results) != 1 || snap.Results[0].TargetID != "ok" {
			t.Errorf("Expected only the valid target, got %+v", snap.Results)
		}
	})
}

// TestUseProfile tests route installation.
func TestUseProfile(t *testing.T) {
	m := newTestMonitor(eta.Target{ID: "end", Latitude: 0.0, Longitude: -78.0, Waypoint: "END"})

	r := &route.Route{
		ID:               "test",
		CruiseSpeedKnots: 150.0,
		Waypoints: []route.Waypoint{
			{Name: "START", Latitude: 0.0, Longitude: -80.0, Sequence: 0},
			{Name: "END", Latitude: 0.0, Longitude: -78.0, Sequence: 1, ArrivalOffsetSeconds: 2880},
		},
	}
	profile, err := route.NewTimingProfile(r)
	if err != nil {
		t.Fatalf("Failed to build profile: %v", err)
	}

	m.UseProfile(profile)

	if got := m.Status().ActiveRouteID; got != "test" {
		t.Errorf("Expected active route test, got %s", got)
	}
}

// TestConcurrentReaders tests snapshot consistency under a live writer.
func TestConcurrentReaders(t *testing.T) {
	m := newTestMonitor(eta.Target{ID: "a", Latitude: 1.0, Longitude: -80.0})

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := m.Snapshot()
				if snap.Status.Phase == flight.PhaseInFlight && snap.Status.ActualDepartureTime == nil {
					t.Error("Observed IN_FLIGHT without a departure time")
					return
				}
			}
		}()
	}

	for s := 0; s <= 15; s++ {
		at := monStart.Add(time.Duration(s) * time.Second)
		m.Tick(telemetry.Telemetry{Latitude: 0.0, Longitude: -80.0, Speed: 80.0, Timestamp: at}, at)
	}
	close(stop)
	wg.Wait()
}

// TestRun tests the rate-limited loop shutdown.
func TestRun(t *testing.T) {
	m := newTestMonitor(eta.Target{ID: "a", Latitude: 1.0, Longitude: -80.0})

	r := &route.Route{
		ID:               "run-test",
		CruiseSpeedKnots: 150.0,
		Waypoints: []route.Waypoint{
			{Name: "START", Latitude: 0.0, Longitude: -80.0, Sequence: 0},
			{Name: "END", Latitude: 0.0, Longitude: -78.0, Sequence: 1, ArrivalOffsetSeconds: 2880},
		},
	}
	profile, err := route.NewTimingProfile(r)
	if err != nil {
		t.Fatalf("Failed to build profile: %v", err)
	}
	sim := telemetry.NewSimulator(profile, time.Now().UTC())

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if err := m.Run(ctx, sim, 50.0); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if m.Snapshot().TickCount == 0 {
		t.Error("Expected at least one tick before shutdown")
	}
}
