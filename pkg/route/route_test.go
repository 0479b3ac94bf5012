package route

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testRoute() *Route {
	return &Route{
		ID:               "kclt-kavl",
		Name:             "Charlotte to Asheville",
		CruiseSpeedKnots: 150.0,
		Waypoints: []Waypoint{
			{Name: "KCLT", Latitude: 35.2140, Longitude: -80.9431, Sequence: 0, ArrivalOffsetSeconds: 0},
			{Name: "MIDPT", Latitude: 35.3500, Longitude: -81.8000, Sequence: 1, ArrivalOffsetSeconds: 1200, SpeedKnots: 180.0},
			{Name: "KAVL", Latitude: 35.4362, Longitude: -82.5418, Sequence: 2, ArrivalOffsetSeconds: 2400},
		},
	}
}

// TestRouteValidate tests route structural validation.
func TestRouteValidate(t *testing.T) {
	t.Run("Valid route passes", func(t *testing.T) {
		if err := testRoute().Validate(); err != nil {
			t.Errorf("Expected valid route, got error: %v", err)
		}
	})

	t.Run("Route without ID fails", func(t *testing.T) {
		r := testRoute()
		r.ID = ""

		if err := r.Validate(); err == nil {
			t.Error("Expected error for missing ID")
		}
	})

	t.Run("Single waypoint fails", func(t *testing.T) {
		r := testRoute()
		r.Waypoints = r.Waypoints[:1]

		if err := r.Validate(); err == nil {
			t.Error("Expected error for single-waypoint route")
		}
	})

	t.Run("Non-monotonic offsets fail", func(t *testing.T) {
		r := testRoute()
		r.Waypoints[2].ArrivalOffsetSeconds = 600

		if err := r.Validate(); err == nil {
			t.Error("Expected error for decreasing arrival offsets")
		}
	})
}

// TestTimingProfile tests the precomputed route timing view.
func TestTimingProfile(t *testing.T) {
	t.Run("Segments carry lengths and speeds", func(t *testing.T) {
		p, err := NewTimingProfile(testRoute())
		if err != nil {
			t.Fatalf("Failed to build profile: %v", err)
		}

		if p.NumWaypoints() != 3 {
			t.Errorf("Expected 3 waypoints, got %d", p.NumWaypoints())
		}
		if p.NumSegments() != 2 {
			t.Errorf("Expected 2 segments, got %d", p.NumSegments())
		}
		if p.SegmentLengthMeters(0) <= 0 {
			t.Errorf("Expected positive segment length, got %f", p.SegmentLengthMeters(0))
		}
		// Waypoint speed overrides the cruise speed on segment 0
		if p.SegmentSpeedKnots(0) != 180.0 {
			t.Errorf("Expected 180 kn on segment 0, got %f", p.SegmentSpeedKnots(0))
		}
		// Final waypoint has no speed; segment 1 falls back to cruise
		if p.SegmentSpeedKnots(1) != 150.0 {
			t.Errorf("Expected 150 kn cruise fallback on segment 1, got %f", p.SegmentSpeedKnots(1))
		}
	})

	t.Run("Waypoints sorted by sequence", func(t *testing.T) {
		r := testRoute()
		// Shuffle the file order but keep offsets monotonic in file order;
		// the profile must still order waypoints by sequence.
		r.Waypoints[0], r.Waypoints[2] = r.Waypoints[2], r.Waypoints[0]
		r.Waypoints[0].ArrivalOffsetSeconds = 0
		r.Waypoints[2].ArrivalOffsetSeconds = 2400

		p, err := NewTimingProfile(r)
		if err != nil {
			t.Fatalf("Failed to build profile: %v", err)
		}

		if p.WaypointAt(0).Name != "KCLT" {
			t.Errorf("Expected KCLT first, got %s", p.WaypointAt(0).Name)
		}
		if p.Destination().Name != "KAVL" {
			t.Errorf("Expected KAVL destination, got %s", p.Destination().Name)
		}
	})

	t.Run("Planned duration comes from final offset", func(t *testing.T) {
		p, err := NewTimingProfile(testRoute())
		if err != nil {
			t.Fatalf("Failed to build profile: %v", err)
		}

		if math.Abs(p.PlannedDurationSeconds()-2400.0) > 0.001 {
			t.Errorf("Expected 2400 s planned duration, got %f", p.PlannedDurationSeconds())
		}
	})

	t.Run("Waypoint lookup by name", func(t *testing.T) {
		p, err := NewTimingProfile(testRoute())
		if err != nil {
			t.Fatalf("Failed to build profile: %v", err)
		}

		if idx := p.WaypointIndex("MIDPT"); idx != 1 {
			t.Errorf("Expected index 1 for MIDPT, got %d", idx)
		}
		if idx := p.WaypointIndex("NOPE"); idx != -1 {
			t.Errorf("Expected -1 for unknown waypoint, got %d", idx)
		}
	})
}

// TestLoad tests single route file loading.
func TestLoad(t *testing.T) {
	t.Run("Loads a valid route file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "test-route.json")
		data := `{
			"name": "Test Route",
			"cruise_speed_knots": 140,
			"waypoints": [
				{"name": "A", "latitude": 35.0, "longitude": -80.0, "sequence": 0, "arrival_offset_seconds": 0},
				{"name": "B", "latitude": 36.0, "longitude": -80.0, "sequence": 1, "arrival_offset_seconds": 1800}
			]
		}`
		if err := os.WriteFile(path, []byte(data), 0644); err != nil {
			t.Fatalf("Failed to write test file: %v", err)
		}

		r, err := Load(path)
		if err != nil {
			t.Fatalf("Failed to load route: %v", err)
		}

		// ID defaults to the file stem
		if r.ID != "test-route" {
			t.Errorf("Expected ID test-route, got %s", r.ID)
		}
		if len(r.Waypoints) != 2 {
			t.Errorf("Expected 2 waypoints, got %d", len(r.Waypoints))
		}
	})

	t.Run("Missing file returns error", func(t *testing.T) {
		if _, err := Load("/nonexistent/route.json"); err == nil {
			t.Error("Expected error for missing file")
		}
	})

	t.Run("Malformed JSON returns error", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "bad.json")
		if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
			t.Fatalf("Failed to write test file: %v", err)
		}

		if _, err := Load(path); err == nil {
			t.Error("Expected parse error")
		}
	})
}

// TestLoadDir tests directory scanning.
func TestLoadDir(t *testing.T) {
	t.Run("Loads all routes sorted by ID", func(t *testing.T) {
		dir := t.TempDir()
		routeJSON := `{
			"waypoints": [
				{"name": "A", "latitude": 35.0, "longitude": -80.0, "sequence": 0},
				{"name": "B", "latitude": 36.0, "longitude": -80.0, "sequence": 1, "arrival_offset_seconds": 1800}
			]
		}`
		for _, name := range []string{"zulu.json", "alpha.json", "notes.txt"} {
			if err := os.WriteFile(filepath.Join(dir, name), []byte(routeJSON), 0644); err != nil {
				t.Fatalf("Failed to write %s: %v", name, err)
			}
		}

		routes, err := LoadDir(dir)
		if err != nil {
			t.Fatalf("Failed to load directory: %v", err)
		}

		if len(routes) != 2 {
			t.Fatalf("Expected 2 routes, got %d", len(routes))
		}
		if routes[0].ID != "alpha" || routes[1].ID != "zulu" {
			t.Errorf("Expected sorted IDs [alpha zulu], got [%s %s]", routes[0].ID, routes[1].ID)
		}
	})

	t.Run("Empty directory returns no routes", func(t *testing.T) {
		routes, err := LoadDir(t.TempDir())
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(routes) != 0 {
			t.Errorf("Expected no routes, got %d", len(routes))
		}
	})
}

// TestWatcher tests hot reloading of route files.
func TestWatcher(t *testing.T) {
	t.Run("Reloads on file write", func(t *testing.T) {
		dir := t.TempDir()
		reloaded := make(chan *Route, 1)

		w, err := NewWatcher(dir, func(r *Route) {
			select {
			case reloaded <- r:
			default:
			}
		}, nil)
		if err != nil {
			t.Fatalf("Failed to start watcher: %v", err)
		}
		defer w.Close()

		routeJSON := `{
			"waypoints": [
				{"name": "A", "latitude": 35.0, "longitude": -80.0, "sequence": 0},
				{"name": "B", "latitude": 36.0, "longitude": -80.0, "sequence": 1, "arrival_offset_seconds": 1800}
			]
		}`
		if err := os.WriteFile(filepath.Join(dir, "hot.json"), []byte(routeJSON), 0644); err != nil {
			t.Fatalf("Failed to write route: %v", err)
		}

		select {
		case r := <-reloaded:
			if r.ID != "hot" {
				t.Errorf("Expected route ID hot, got %s", r.ID)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Timed out waiting for reload")
		}
	})

	t.Run("Invalid file reports an error without reload", func(t *testing.T) {
		dir := t.TempDir()
		reloaded := make(chan *Route, 1)
		errs := make(chan error, 1)

		w, err := NewWatcher(dir, func(r *Route) {
			select {
			case reloaded <- r:
			default:
			}
		}, func(err error) {
			select {
			case errs <- err:
			default:
			}
		})
		if err != nil {
			t.Fatalf("Failed to start watcher: %v", err)
		}
		defer w.Close()

		if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{oops"), 0644); err != nil {
			t.Fatalf("Failed to write file: %v", err)
		}

		select {
		case <-errs:
			// expected
		case r := <-reloaded:
			t.Errorf("Unexpected reload of broken file: %v", r)
		case <-time.After(5 * time.Second):
			t.Fatal("Timed out waiting for error callback")
		}
	})

	t.Run("Non-JSON files are ignored", func(t *testing.T) {
		dir := t.TempDir()
		reloaded := make(chan *Route, 1)

		w, err := NewWatcher(dir, func(r *Route) {
			select {
			case reloaded <- r:
			default:
			}
		}, nil)
		if err != nil {
			t.Fatalf("Failed to start watcher: %v", err)
		}
		defer w.Close()

		if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0644); err != nil {
			t.Fatalf("Failed to write file: %v", err)
		}

		select {
		case r := <-reloaded:
			t.Errorf("Unexpected reload for non-JSON file: %v", r)
		case <-time.After(1 * time.Second):
			// expected: nothing happens
		}
	})
}
