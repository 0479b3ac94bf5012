// Package eta computes distance, bearing, and time-to-arrival estimates for
// named destinations, and provides the short-TTL cache that sits between the
// calculator and high-frequency callers.
package eta

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/unklstewy/flightwatch/pkg/coordinates"
	"github.com/unklstewy/flightwatch/pkg/flight"
	"github.com/unklstewy/flightwatch/pkg/route"
)

// ErrInvalidTarget is returned for targets with no usable coordinates.
var ErrInvalidTarget = errors.New("eta target has no usable coordinates")

// offRouteThresholdNM is the cross-track distance beyond which the platform
// is considered off the planned route and ETAs fall back to the direct path.
const offRouteThresholdNM = 10.0

// waypointMatchMeters is how close a target must be to a route waypoint to be
// matched to it by position when it carries no waypoint name.
const waypointMatchMeters = 500.0

// Target is a named destination ETAs are computed against.
type Target struct {
	// ID uniquely identifies the destination
	ID string `json:"id"`

	// Latitude in decimal degrees
	Latitude float64 `json:"latitude"`

	// Longitude in decimal degrees
	Longitude float64 `json:"longitude"`

	// Waypoint optionally names the route waypoint this target corresponds
	// to, enabling route-aware estimates without positional matching
	Waypoint string `json:"waypoint,omitempty"`
}

// Position returns the target location as a Geographic point.
func (t Target) Position() coordinates.Geographic {
	return coordinates.Geographic{Latitude: t.Latitude, Longitude: t.Longitude}
}

// validate rejects structurally unusable targets.
func (t Target) validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidTarget)
	}
	if math.IsNaN(t.Latitude) || math.IsInf(t.Latitude, 0) ||
		math.IsNaN(t.Longitude) || math.IsInf(t.Longitude, 0) {
		return fmt.Errorf("%w: %s", ErrInvalidTarget, t.ID)
	}
	if t.Latitude < -90 || t.Latitude > 90 || t.Longitude < -180 || t.Longitude > 180 {
		return fmt.Errorf("%w: %s out of range", ErrInvalidTarget, t.ID)
	}
	return nil
}

// Result is a single computed estimate. Value type, safe to copy and
// serialize directly.
type Result struct {
	TargetID       string        `json:"target_id"`
	DistanceMeters float64       `json:"distance_meters"`
	// ETASeconds is -1 when the platform is stationary in ESTIMATED mode
	// and no meaningful estimate exists
	ETASeconds     float64       `json:"eta_seconds"`
	BearingDegrees float64       `json:"bearing_degrees"`
	Mode           flight.ETAMode `json:"mode"`
	// Stationary mirrors the -1 sentinel explicitly so callers don't have
	// to compare floats to interpret it
	Stationary bool      `json:"stationary"`
	ComputedAt time.Time `json:"computed_at"`
}

// Calculator produces estimates from current position/speed to a target,
// respecting the active ETA mode. An optional route timing profile enables
// route-aware estimates; without one, or when off route, the calculator uses
// the direct great-circle path.
type Calculator struct {
	cfg flight.Config
	log *zap.Logger

	mu      sync.RWMutex
	profile *route.TimingProfile
}

// NewCalculator creates a calculator with the given thresholds. Zero-valued
// config fields take the documented defaults.
func NewCalculator(cfg flight.Config, log *zap.Logger) *Calculator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Calculator{cfg: defaulted(cfg), log: log}
}

// defaulted mirrors flight's internal default fill for the fields this
// package reads.
func defaulted(c flight.Config) flight.Config {
	d := flight.DefaultConfig()
	if c.StationarySpeedKnots <= 0 {
		c.StationarySpeedKnots = d.StationarySpeedKnots
	}
	if c.DefaultCruiseSpeedKnots <= 0 {
		c.DefaultCruiseSpeedKnots = d.DefaultCruiseSpeedKnots
	}
	return c
}

// SetProfile installs (or clears, with nil) the active route timing profile.
func (c *Calculator) SetProfile(p *route.TimingProfile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profile = p
}

// Profile returns the active route timing profile, or nil.
func (c *Calculator) Profile() *route.TimingProfile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.profile
}

// Compute produces the estimate for one target. Identical inputs always
// produce identical outputs; the supplied instant is stamped into the result
// but never influences the numbers.
//
// Absence of a route, absence of a timing profile, and an off-route target
// are not errors: they select the direct-distance path. Only structurally
// invalid targets are rejected.
func (c *Calculator) Compute(target Target, position coordinates.Geographic, speedKnots float64, mode flight.ETAMode, now time.Time) (Result, error) {
	if err := target.validate(); err != nil {
		return Result{}, err
	}

	result := Result{
		TargetID:       target.ID,
		DistanceMeters: coordinates.DistanceMeters(position, target.Position()),
		BearingDegrees: coordinates.Bearing(position, target.Position()),
		Mode:           mode,
		ComputedAt:     now,
	}

	// A stationary platform in ESTIMATED mode has no meaningful ETA;
	// report the sentinel instead of a near-infinite value.
	if mode == flight.ModeEstimated && speedKnots < c.cfg.StationarySpeedKnots {
		result.ETASeconds = -1
		result.Stationary = true
		return result, nil
	}

	if eta, ok := c.routeAwareETA(target, position, speedKnots, mode); ok {
		result.ETASeconds = eta
		return result, nil
	}

	result.ETASeconds = c.directETA(result.DistanceMeters, speedKnots, mode)
	return result, nil
}

// routeAwareETA sums the remaining per-segment durations from the current
// position's projection onto the route up to the target's waypoint. Returns
// ok=false when the target is not on the route or the platform is too far off
// track, selecting the direct fallback.
func (c *Calculator) routeAwareETA(target Target, position coordinates.Geographic, speedKnots float64, mode flight.ETAMode) (float64, bool) {
	c.mu.RLock()
	profile := c.profile
	c.mu.RUnlock()
	if profile == nil {
		return 0, false
	}

	targetIdx := c.resolveWaypoint(profile, target)
	if targetIdx < 1 {
		return 0, false
	}

	seg, frac, crossTrackNM := projectOntoRoute(profile, position, targetIdx)
	if seg < 0 || crossTrackNM > offRouteThresholdNM {
		return 0, false
	}

	// Remaining portion of the active segment, then the full segments up
	// to the target waypoint.
	eta := 0.0
	remaining := (1 - frac) * profile.SegmentLengthMeters(seg)
	eta += segmentDuration(remaining, c.effectiveSpeed(profile.SegmentSpeedKnots(seg), speedKnots, mode))
	for i := seg + 1; i < targetIdx; i++ {
		eta += segmentDuration(profile.SegmentLengthMeters(i), c.effectiveSpeed(profile.SegmentSpeedKnots(i), speedKnots, mode))
	}
	return eta, true
}

// resolveWaypoint maps a target to a route waypoint index: by name when the
// target carries one, by proximity otherwise. Returns -1 when the target is
// not on the route.
func (c *Calculator) resolveWaypoint(profile *route.TimingProfile, target Target) int {
	if target.Waypoint != "" {
		return profile.WaypointIndex(target.Waypoint)
	}
	for i := 0; i < profile.NumWaypoints(); i++ {
		if coordinates.DistanceMeters(target.Position(), profile.WaypointAt(i).Position()) <= waypointMatchMeters {
			return i
		}
	}
	return -1
}

// projectOntoRoute finds the segment (before the target waypoint) whose
// great-circle path passes closest to the current position, and the position's
// along-track fraction on it.
func projectOntoRoute(profile *route.TimingProfile, position coordinates.Geographic, targetIdx int) (seg int, frac, crossTrackNM float64) {
	seg = -1
	crossTrackNM = math.MaxFloat64
	for i := 0; i < targetIdx; i++ {
		from := profile.WaypointAt(i).Position()
		to := profile.WaypointAt(i + 1).Position()
		f := coordinates.AlongTrackFraction(position, from, to)
		if f < 0 || f > 1 {
			continue
		}
		xt := coordinates.CrossTrackDistanceNM(position, from, to)
		if xt < crossTrackNM {
			seg, frac, crossTrackNM = i, f, xt
		}
	}
	return seg, frac, crossTrackNM
}

// effectiveSpeed selects the speed an ETA is computed with, in knots.
// ANTICIPATED prefers the plan; ESTIMATED blends the plan with live speed.
func (c *Calculator) effectiveSpeed(plannedKnots, liveKnots float64, mode flight.ETAMode) float64 {
	switch mode {
	case flight.ModeAnticipated:
		if plannedKnots > 0 {
			return plannedKnots
		}
		return c.cfg.DefaultCruiseSpeedKnots
	default:
		return coordinates.BlendSpeed(liveKnots, plannedKnots)
	}
}

// directETA is the straight-line fallback: great-circle distance over the
// mode's effective speed, with no planned segment speed available.
func (c *Calculator) directETA(distanceMeters, speedKnots float64, mode flight.ETAMode) float64 {
	speed := c.effectiveSpeed(0, speedKnots, mode)
	return segmentDuration(distanceMeters, speed)
}

// segmentDuration converts a distance and a speed in knots to seconds.
func segmentDuration(distanceMeters, speedKnots float64) float64 {
	ms := speedKnots * coordinates.KnotsToMetersPerSecond
	if ms <= 0 {
		return 0
	}
	return distanceMeters / ms
}
