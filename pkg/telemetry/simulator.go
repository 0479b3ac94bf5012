package telemetry

import (
	"time"

	"github.com/unklstewy/flightwatch/pkg/coordinates"
	"github.com/unklstewy/flightwatch/pkg/route"
)

// Simulator is a deterministic Source that flies a planned route: it holds at
// the first waypoint until the scheduled departure, travels each segment at
// that segment's planned speed, and dwells at the destination afterwards.
// The same (profile, departure, instant) always yields the same report, which
// makes the demo binaries and the monitor tests repeatable.
type Simulator struct {
	profile   *route.TimingProfile
	departure time.Time

	// segStart[i] is the elapsed travel time in seconds at which segment i
	// begins; segStart[n] is the total travel time.
	segStart []float64
}

// NewSimulator creates a simulator flying the given profile, departing at the
// scheduled time. Segment durations derive from segment length and planned
// speed, not from the plan's arrival offsets, so the simulated flight is
// kinematically consistent.
func NewSimulator(profile *route.TimingProfile, departure time.Time) *Simulator {
	n := profile.NumSegments()
	segStart := make([]float64, n+1)
	for i := 0; i < n; i++ {
		speedMS := profile.SegmentSpeedKnots(i) * coordinates.KnotsToMetersPerSecond
		dur := 0.0
		if speedMS > 0 {
			dur = profile.SegmentLengthMeters(i) / speedMS
		}
		segStart[i+1] = segStart[i] + dur
	}
	return &Simulator{
		profile:   profile,
		departure: departure,
		segStart:  segStart,
	}
}

// TotalDuration returns the simulated time from departure to arrival.
func (s *Simulator) TotalDuration() time.Duration {
	return time.Duration(s.segStart[len(s.segStart)-1] * float64(time.Second))
}

// Sample returns the simulated report for the given instant.
func (s *Simulator) Sample(now time.Time) Telemetry {
	elapsed := now.Sub(s.departure).Seconds()

	// Holding at the origin before departure
	if elapsed <= 0 {
		origin := s.profile.WaypointAt(0)
		return s.report(origin.Position(), 0, s.initialHeading(), now)
	}

	total := s.segStart[len(s.segStart)-1]
	if elapsed >= total {
		// Dwelling at the destination
		dest := s.profile.Destination()
		return s.report(dest.Position(), 0, s.finalHeading(), now)
	}

	// Find the active segment and interpolate along it
	seg := 0
	for seg < s.profile.NumSegments()-1 && elapsed >= s.segStart[seg+1] {
		seg++
	}
	segDur := s.segStart[seg+1] - s.segStart[seg]
	frac := 0.0
	if segDur > 0 {
		frac = (elapsed - s.segStart[seg]) / segDur
	}

	from := s.profile.WaypointAt(seg).Position()
	to := s.profile.WaypointAt(seg + 1).Position()
	pos := coordinates.InterpolateGreatCircle(from, to, frac)
	heading := coordinates.Bearing(pos, to)

	return s.report(pos, s.profile.SegmentSpeedKnots(seg), heading, now)
}

func (s *Simulator) report(pos coordinates.Geographic, speedKnots, heading float64, now time.Time) Telemetry {
	return Telemetry{
		Latitude:  pos.Latitude,
		Longitude: pos.Longitude,
		Altitude:  pos.Altitude,
		Speed:     speedKnots,
		Heading:   heading,
		Timestamp: now,
	}
}

func (s *Simulator) initialHeading() float64 {
	return coordinates.Bearing(s.profile.WaypointAt(0).Position(), s.profile.WaypointAt(1).Position())
}

func (s *Simulator) finalHeading() float64 {
	n := s.profile.NumWaypoints()
	return coordinates.Bearing(s.profile.WaypointAt(n-2).Position(), s.profile.WaypointAt(n-1).Position())
}
