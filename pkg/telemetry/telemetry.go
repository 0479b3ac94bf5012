// Package telemetry defines the positional telemetry record pushed into the
// monitoring core once per tick, plus a deterministic simulated source used by
// the demo binaries and the test harness.
package telemetry

import (
	"math"
	"time"

	"github.com/unklstewy/flightwatch/pkg/coordinates"
)

// Telemetry is a single positional report for the monitored platform.
// Records are transient: they are evaluated once per tick and never stored.
type Telemetry struct {
	// Latitude in decimal degrees (-90 to +90)
	Latitude float64 `json:"latitude"`

	// Longitude in decimal degrees (-180 to +180)
	Longitude float64 `json:"longitude"`

	// Altitude in meters above mean sea level (MSL)
	Altitude float64 `json:"altitude"`

	// Speed is ground speed in knots
	Speed float64 `json:"speed"`

	// Heading is the ground track in degrees (0-360, 0 = North)
	Heading float64 `json:"heading"`

	// Timestamp is when this report was measured (UTC)
	Timestamp time.Time `json:"timestamp"`
}

// Position returns the report's location as a Geographic point.
func (t Telemetry) Position() coordinates.Geographic {
	return coordinates.Geographic{
		Latitude:  t.Latitude,
		Longitude: t.Longitude,
		Altitude:  t.Altitude,
	}
}

// Normalize returns a copy of the report with malformed fields replaced by
// safe defaults, and reports whether any repair was needed. A NaN, infinite,
// or negative speed degrades to 0 rather than failing; a zero timestamp is
// stamped with the supplied fallback; the heading is wrapped into [0, 360).
//
// This is the only defense the core applies to incoming telemetry — a bad
// tick must never take the state machine down.
func (t Telemetry) Normalize(fallback time.Time) (Telemetry, bool) {
	repaired := false

	if math.IsNaN(t.Speed) || math.IsInf(t.Speed, 0) || t.Speed < 0 {
		t.Speed = 0
		repaired = true
	}
	if math.IsNaN(t.Latitude) || math.IsInf(t.Latitude, 0) ||
		math.IsNaN(t.Longitude) || math.IsInf(t.Longitude, 0) {
		// A report with no usable position still counts for speed-based
		// detection; pin it to the origin so geometry stays finite.
		t.Latitude = 0
		t.Longitude = 0
		repaired = true
	}
	if math.IsNaN(t.Heading) || math.IsInf(t.Heading, 0) {
		t.Heading = 0
		repaired = true
	} else if t.Heading < 0 || t.Heading >= 360 {
		t.Heading = coordinates.NormalizeAzimuth(t.Heading)
		repaired = true
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = fallback
		repaired = true
	}

	return t, repaired
}

// Source produces telemetry reports at the caller's cadence. Implementations
// may be backed by a simulator, a local receiver, or an online feed; the core
// makes no assumption beyond the field shapes of Telemetry.
type Source interface {
	// Sample returns the report valid at the given instant.
	Sample(now time.Time) Telemetry
}
