package eta

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/unklstewy/flightwatch/pkg/coordinates"
	"github.com/unklstewy/flightwatch/pkg/flight"
	"github.com/unklstewy/flightwatch/pkg/route"
)

var computeAt = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

// TestComputeDirect tests the direct-distance path.
func TestComputeDirect(t *testing.T) {
	calc := NewCalculator(flight.DefaultConfig(), nil)
	origin := coordinates.Geographic{Latitude: 0.0, Longitude: -80.0}

	t.Run("150 km at 150 kn is about 1943 seconds", func(t *testing.T) {
		// Place the target exactly 150,000 m due east
		pos := coordinates.PointAtBearing(origin, 90.0, 150000.0)
		target := Target{ID: "dest", Latitude: pos.Latitude, Longitude: pos.Longitude}

		result, err := calc.Compute(target, origin, 150.0, flight.ModeEstimated, computeAt)
		if err != nil {
			t.Fatalf("Compute failed: %v", err)
		}

		if math.Abs(result.ETASeconds-1943.0) > 1.5 {
			t.Errorf("Expected ETA ~1943 s, got %f", result.ETASeconds)
		}
		if math.Abs(result.DistanceMeters-150000.0) > 100.0 {
			t.Errorf("Expected ~150000 m, got %f", result.DistanceMeters)
		}
	})

	t.Run("Anticipated mode at zero speed uses the cruise fallback", func(t *testing.T) {
		target := Target{ID: "dest", Latitude: 1.0, Longitude: -80.0}

		result, err := calc.Compute(target, origin, 0.0, flight.ModeAnticipated, computeAt)
		if err != nil {
			t.Fatalf("Compute failed: %v", err)
		}

		if result.ETASeconds <= 0 {
			t.Errorf("Expected positive ETA from cruise fallback, got %f", result.ETASeconds)
		}
		if result.Stationary {
			t.Error("Anticipated mode must never report stationary")
		}
		// ~111 km at 150 kn
		expected := 111200.0 / (150.0 * coordinates.KnotsToMetersPerSecond)
		if math.Abs(result.ETASeconds-expected) > 30.0 {
			t.Errorf("Expected ETA ~%f s, got %f", expected, result.ETASeconds)
		}
	})

	t.Run("Estimated mode at zero speed returns the sentinel", func(t *testing.T) {
		target := Target{ID: "dest", Latitude: 1.0, Longitude: -80.0}

		result, err := calc.Compute(target, origin, 0.0, flight.ModeEstimated, computeAt)
		if err != nil {
			t.Fatalf("Compute failed: %v", err)
		}

		if result.ETASeconds != -1 {
			t.Errorf("Expected -1 sentinel, got %f", result.ETASeconds)
		}
		if !result.Stationary {
			t.Error("Expected stationary flag with the sentinel")
		}
		// Distance and bearing remain valid alongside the sentinel
		if result.DistanceMeters <= 0 {
			t.Errorf("Expected positive distance, got %f", result.DistanceMeters)
		}
	})

	t.Run("Bearing points at the target", func(t *testing.T) {
		target := Target{ID: "north", Latitude: 1.0, Longitude: -80.0}

		result, err := calc.Compute(target, origin, 100.0, flight.ModeEstimated, computeAt)
		if err != nil {
			t.Fatalf("Compute failed: %v", err)
		}

		if math.Abs(result.BearingDegrees) > 0.5 {
			t.Errorf("Expected bearing ~0 (north), got %f", result.BearingDegrees)
		}
	})

	t.Run("Determinism across repeated calls", func(t *testing.T) {
		target := Target{ID: "dest", Latitude: 1.0, Longitude: -80.0}

		r1, err1 := calc.Compute(target, origin, 120.0, flight.ModeEstimated, computeAt)
		r2, err2 := calc.Compute(target, origin, 120.0, flight.ModeEstimated, computeAt)

		if err1 != nil || err2 != nil {
			t.Fatalf("Compute failed: %v / %v", err1, err2)
		}
		if r1 != r2 {
			t.Errorf("Expected identical results, got %+v vs %+v", r1, r2)
		}
	})
}

// TestComputeInvalidTarget tests target validation.
func TestComputeInvalidTarget(t *testing.T) {
	calc := NewCalculator(flight.DefaultConfig(), nil)
	origin := coordinates.Geographic{Latitude: 0.0, Longitude: -80.0}

	tests := []struct {
		name   string
		target Target
	}{
		{"Empty ID", Target{Latitude: 1.0, Longitude: -80.0}},
		{"NaN latitude", Target{ID: "x", Latitude: math.NaN(), Longitude: -80.0}},
		{"Out-of-range longitude", Target{ID: "x", Latitude: 1.0, Longitude: -500.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := calc.Compute(tt.target, origin, 100.0, flight.ModeEstimated, computeAt)
			if !errors.Is(err, ErrInvalidTarget) {
				t.Errorf("Expected ErrInvalidTarget, got %v", err)
			}
		})
	}
}

func routeProfile(t *testing.T) *route.TimingProfile {
	t.Helper()
	r := &route.Route{
		ID:               "eta-test",
		CruiseSpeedKnots: 150.0,
		Waypoints: []route.Waypoint{
			{Name: "START", Latitude: 0.0, Longitude: -80.0, Sequence: 0},
			{Name: "MID", Latitude: 0.0, Longitude: -79.0, Sequence: 1, ArrivalOffsetSeconds: 1440, SpeedKnots: 100.0},
			{Name: "END", Latitude: 0.0, Longitude: -78.0, Sequence: 2, ArrivalOffsetSeconds: 2880, SpeedKnots: 200.0},
		},
	}
	p, err := route.NewTimingProfile(r)
	if err != nil {
		t.Fatalf("Failed to build profile: %v", err)
	}
	return p
}

// TestComputeRouteAware tests the route-projection path.
func TestComputeRouteAware(t *testing.T) {
	t.Run("Anticipated mode uses planned segment speeds unmodified", func(t *testing.T) {
		calc := NewCalculator(flight.DefaultConfig(), nil)
		profile := routeProfile(t)
		calc.SetProfile(profile)

		// At the route start, heading for END: segment 0 at 100 kn,
		// segment 1 at 200 kn.
		start := coordinates.Geographic{Latitude: 0.0, Longitude: -80.0}
		target := Target{ID: "end", Latitude: 0.0, Longitude: -78.0, Waypoint: "END"}

		result, err := calc.Compute(target, start, 0.0, flight.ModeAnticipated, computeAt)
		if err != nil {
			t.Fatalf("Compute failed: %v", err)
		}

		expected := profile.SegmentLengthMeters(0)/(100.0*coordinates.KnotsToMetersPerSecond) +
			profile.SegmentLengthMeters(1)/(200.0*coordinates.KnotsToMetersPerSecond)
		if math.Abs(result.ETASeconds-expected) > 1.0 {
			t.Errorf("Expected ETA %f s, got %f", expected, result.ETASeconds)
		}
	})

	t.Run("Estimated mode blends live and planned speed", func(t *testing.T) {
		calc := NewCalculator(flight.DefaultConfig(), nil)
		profile := routeProfile(t)
		calc.SetProfile(profile)

		// Midway along segment 0 (100 kn planned) flying at 200 kn live:
		// blended 150 kn over the remaining half of segment 0.
		mid := coordinates.Geographic{Latitude: 0.0, Longitude: -79.5}
		target := Target{ID: "mid", Latitude: 0.0, Longitude: -79.0, Waypoint: "MID"}

		result, err := calc.Compute(target, mid, 200.0, flight.ModeEstimated, computeAt)
		if err != nil {
			t.Fatalf("Compute failed: %v", err)
		}

		expected := (profile.SegmentLengthMeters(0) / 2) / (150.0 * coordinates.KnotsToMetersPerSecond)
		if math.Abs(result.ETASeconds-expected) > 5.0 {
			t.Errorf("Expected ETA ~%f s, got %f", expected, result.ETASeconds)
		}
	})

	t.Run("Target matched to waypoint by position", func(t *testing.T) {
		calc := NewCalculator(flight.DefaultConfig(), nil)
		calc.SetProfile(routeProfile(t))

		start := coordinates.Geographic{Latitude: 0.0, Longitude: -80.0}
		// Same position as END, but no waypoint name
		target := Target{ID: "dest", Latitude: 0.0, Longitude: -78.0}

		withName, err := calc.Compute(Target{ID: "dest", Latitude: 0.0, Longitude: -78.0, Waypoint: "END"}, start, 0.0, flight.ModeAnticipated, computeAt)
		if err != nil {
			t.Fatalf("Compute failed: %v", err)
		}
		byPosition, err := calc.Compute(target, start, 0.0, flight.ModeAnticipated, computeAt)
		if err != nil {
			t.Fatalf("Compute failed: %v", err)
		}

		if math.Abs(withName.ETASeconds-byPosition.ETASeconds) > 0.001 {
			t.Errorf("Expected same ETA by name and by position, got %f vs %f", withName.ETASeconds, byPosition.ETASeconds)
		}
	})

	t.Run("Off-route platform falls back to the direct path", func(t *testing.T) {
		calc := NewCalculator(flight.DefaultConfig(), nil)
		calc.SetProfile(routeProfile(t))

		// 1° of latitude (~60 NM) off the route line
		offTrack := coordinates.Geographic{Latitude: 1.0, Longitude: -79.5}
		target := Target{ID: "end", Latitude: 0.0, Longitude: -78.0, Waypoint: "END"}

		result, err := calc.Compute(target, offTrack, 150.0, flight.ModeEstimated, computeAt)
		if err != nil {
			t.Fatalf("Compute failed: %v", err)
		}

		expected := result.DistanceMeters / (150.0 * coordinates.KnotsToMetersPerSecond)
		if math.Abs(result.ETASeconds-expected) > 1.0 {
			t.Errorf("Expected direct-path ETA %f s, got %f", expected, result.ETASeconds)
		}
	})

	t.Run("Target not on route falls back to the direct path", func(t *testing.T) {
		calc := NewCalculator(flight.DefaultConfig(), nil)
		calc.SetProfile(routeProfile(t))

		start := coordinates.Geographic{Latitude: 0.0, Longitude: -80.0}
		target := Target{ID: "elsewhere", Latitude: 2.0, Longitude: -77.0}

		result, err := calc.Compute(target, start, 150.0, flight.ModeEstimated, computeAt)
		if err != nil {
			t.Fatalf("Compute failed: %v", err)
		}

		expected := result.DistanceMeters / (150.0 * coordinates.KnotsToMetersPerSecond)
		if math.Abs(result.ETASeconds-expected) > 1.0 {
			t.Errorf("Expected direct-path ETA %f s, got %f", expected, result.ETASeconds)
		}
	})

	t.Run("No profile falls back to the direct path", func(t *testing.T) {
		calc := NewCalculator(flight.DefaultConfig(), nil)

		start := coordinates.Geographic{Latitude: 0.0, Longitude: -80.0}
		target := Target{ID: "end", Latitude: 0.0, Longitude: -78.0, Waypoint: "END"}

		if _, err := calc.Compute(target, start, 150.0, flight.ModeEstimated, computeAt); err != nil {
			t.Errorf("Expected direct fallback without a profile, got %v", err)
		}
	})
}
