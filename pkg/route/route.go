// Package route models planned flight routes: ordered waypoints with expected
// timing, and the read-only timing profile the ETA calculator consumes.
// Routes are loaded from JSON files owned by an external planning tool; this
// package only reads them.
package route

import (
	"fmt"
	"sort"

	"github.com/unklstewy/flightwatch/pkg/coordinates"
)

// Waypoint represents a navigation waypoint from a planned route.
type Waypoint struct {
	// Name is the waypoint identifier (e.g., "KDEP", "MIDPT")
	Name string `json:"name"`

	// Latitude in decimal degrees
	Latitude float64 `json:"latitude"`

	// Longitude in decimal degrees
	Longitude float64 `json:"longitude"`

	// Sequence orders waypoints along the route (ascending)
	Sequence int `json:"sequence"`

	// ArrivalOffsetSeconds is the expected cumulative time from departure
	// to this waypoint, per the plan
	ArrivalOffsetSeconds float64 `json:"arrival_offset_seconds"`

	// SpeedKnots is the expected ground speed on the segment that ends at
	// this waypoint. Zero means "use the route's cruise speed".
	SpeedKnots float64 `json:"speed_knots"`
}

// Position returns the waypoint location as a Geographic point.
func (w Waypoint) Position() coordinates.Geographic {
	return coordinates.Geographic{Latitude: w.Latitude, Longitude: w.Longitude}
}

// Route is a planned flight route.
type Route struct {
	// ID uniquely identifies the route (typically the file stem)
	ID string `json:"id"`

	// Name is a human-friendly route name
	Name string `json:"name"`

	// CruiseSpeedKnots is the fallback planned speed for segments whose
	// waypoints don't carry their own
	CruiseSpeedKnots float64 `json:"cruise_speed_knots"`

	// Waypoints in sequence order
	Waypoints []Waypoint `json:"waypoints"`
}

// Validate checks structural soundness: at least two waypoints with finite
// coordinates and non-decreasing arrival offsets.
func (r *Route) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("route has no id")
	}
	if len(r.Waypoints) < 2 {
		return fmt.Errorf("route %s: need at least 2 waypoints, got %d", r.ID, len(r.Waypoints))
	}
	for i := 1; i < len(r.Waypoints); i++ {
		if r.Waypoints[i].ArrivalOffsetSeconds < r.Waypoints[i-1].ArrivalOffsetSeconds {
			return fmt.Errorf("route %s: arrival offsets not monotonic at waypoint %d", r.ID, i)
		}
	}
	return nil
}

// TimingProfile is the read-only view of a route the ETA calculator works
// against: waypoint positions plus per-segment planned speeds and lengths.
// Segment i runs from waypoint i to waypoint i+1.
type TimingProfile struct {
	routeID   string
	waypoints []Waypoint
	segLenM   []float64
	segSpeed  []float64
}

// NewTimingProfile builds a profile from a validated route. Waypoints are
// sorted by sequence; segment lengths are precomputed so repeated ETA
// queries stay O(route length) in the worst case and O(1) per segment.
func NewTimingProfile(r *Route) (*TimingProfile, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	wps := make([]Waypoint, len(r.Waypoints))
	copy(wps, r.Waypoints)
	sort.SliceStable(wps, func(i, j int) bool { return wps[i].Sequence < wps[j].Sequence })

	p := &TimingProfile{
		routeID:   r.ID,
		waypoints: wps,
		segLenM:   make([]float64, len(wps)-1),
		segSpeed:  make([]float64, len(wps)-1),
	}
	for i := 0; i < len(wps)-1; i++ {
		p.segLenM[i] = coordinates.DistanceMeters(wps[i].Position(), wps[i+1].Position())
		speed := wps[i+1].SpeedKnots
		if speed <= 0 {
			speed = r.CruiseSpeedKnots
		}
		p.segSpeed[i] = speed
	}
	return p, nil
}

// RouteID returns the identifier of the underlying route.
func (p *TimingProfile) RouteID() string { return p.routeID }

// NumWaypoints returns the number of waypoints on the route.
func (p *TimingProfile) NumWaypoints() int { return len(p.waypoints) }

// NumSegments returns the number of route segments.
func (p *TimingProfile) NumSegments() int { return len(p.segLenM) }

// WaypointAt returns the waypoint at the given index.
func (p *TimingProfile) WaypointAt(i int) Waypoint { return p.waypoints[i] }

// SegmentLengthMeters returns the great-circle length of segment i.
func (p *TimingProfile) SegmentLengthMeters(i int) float64 { return p.segLenM[i] }

// SegmentSpeedKnots returns the planned ground speed for segment i.
func (p *TimingProfile) SegmentSpeedKnots(i int) float64 { return p.segSpeed[i] }

// Destination returns the final waypoint of the route.
func (p *TimingProfile) Destination() Waypoint {
	return p.waypoints[len(p.waypoints)-1]
}

// PlannedDurationSeconds returns the plan's expected total journey time,
// derived from the final waypoint's cumulative arrival offset.
func (p *TimingProfile) PlannedDurationSeconds() float64 {
	return p.waypoints[len(p.waypoints)-1].ArrivalOffsetSeconds
}

// WaypointIndex returns the index of the waypoint with the given name,
// or -1 when the route doesn't contain it.
func (p *TimingProfile) WaypointIndex(name string) int {
	for i, wp := range p.waypoints {
		if wp.Name == name {
			return i
		}
	}
	return -1
}
