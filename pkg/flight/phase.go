// Package flight owns the journey lifecycle: the phase state machine, the
// derived ETA mode, and the noise-resistant departure/arrival detection that
// advances them from raw telemetry.
package flight

import (
	"errors"
	"time"
)

// Phase identifies where the platform is in its journey lifecycle.
// Phases are strictly ordered; a valid lifecycle only moves forward,
// except for an explicit Reset.
type Phase string

const (
	// PhasePreDeparture: on the ground, before the flight begins
	PhasePreDeparture Phase = "PRE_DEPARTURE"

	// PhaseInFlight: airborne, en route to the destination
	PhaseInFlight Phase = "IN_FLIGHT"

	// PhasePostArrival: arrived; automatic transitions are frozen
	PhasePostArrival Phase = "POST_ARRIVAL"
)

// String returns the phase name.
func (p Phase) String() string { return string(p) }

// Valid reports whether p is one of the defined phases.
func (p Phase) Valid() bool {
	switch p {
	case PhasePreDeparture, PhaseInFlight, PhasePostArrival:
		return true
	}
	return false
}

// ETAMode selects how ETAs are computed for the current phase.
type ETAMode string

const (
	// ModeAnticipated: plan-driven estimates, used before departure
	ModeAnticipated ETAMode = "ANTICIPATED"

	// ModeEstimated: telemetry-driven estimates, used once airborne
	ModeEstimated ETAMode = "ESTIMATED"
)

// String returns the mode name.
func (m ETAMode) String() string { return string(m) }

// ErrInvalidTransition is returned when a manual phase change would move the
// lifecycle backward or skip a phase.
var ErrInvalidTransition = errors.New("invalid flight phase transition")

// Status is the authoritative flight lifecycle record. It is owned by the
// Tracker and handed to readers only as a copy.
type Status struct {
	Phase   Phase   `json:"phase"`
	ETAMode ETAMode `json:"eta_mode"`

	ScheduledDepartureTime *time.Time `json:"scheduled_departure_time,omitempty"`
	ActualDepartureTime    *time.Time `json:"actual_departure_time,omitempty"`
	ScheduledArrivalTime   *time.Time `json:"scheduled_arrival_time,omitempty"`
	ActualArrivalTime      *time.Time `json:"actual_arrival_time,omitempty"`

	ActiveRouteID string `json:"active_route_id,omitempty"`
}

// clone returns a deep copy so readers never share timestamp pointers with
// the tracker's mutable record.
func (s Status) clone() Status {
	out := s
	out.ScheduledDepartureTime = copyTime(s.ScheduledDepartureTime)
	out.ActualDepartureTime = copyTime(s.ActualDepartureTime)
	out.ScheduledArrivalTime = copyTime(s.ScheduledArrivalTime)
	out.ActualArrivalTime = copyTime(s.ActualArrivalTime)
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
