package flight

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/unklstewy/flightwatch/pkg/coordinates"
	"github.com/unklstewy/flightwatch/pkg/telemetry"
)

// State machine events. Departure and arrival only move forward; reset is the
// single backward edge.
const (
	eventDepart = "depart"
	eventArrive = "arrive"
	eventReset  = "reset"
)

// Tracker maintains the authoritative FlightStatus and applies the
// noise-resistant transition logic. One periodic writer feeds telemetry in via
// Update; any number of concurrent readers take snapshots via Status.
type Tracker struct {
	mu  sync.RWMutex
	cfg Config
	log *zap.Logger

	machine *fsm.FSM
	status  Status

	// destination drives arrival detection; nil disables it
	destination *coordinates.Geographic

	// start of the sustained window currently being evaluated, nil when
	// the triggering condition is not holding
	departureWindowStart *time.Time
	arrivalWindowStart   *time.Time
}

// NewTracker creates a tracker in PRE_DEPARTURE with the given thresholds.
// Zero-valued config fields take the documented defaults; a nil logger
// disables logging.
func NewTracker(cfg Config, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}

	t := &Tracker{
		cfg: cfg.withDefaults(),
		log: log,
		status: Status{
			Phase:   PhasePreDeparture,
			ETAMode: ModeAnticipated,
		},
	}

	events := fsm.Events{
		{Name: eventDepart, Src: []string{string(PhasePreDeparture)}, Dst: string(PhaseInFlight)},
		{Name: eventArrive, Src: []string{string(PhaseInFlight)}, Dst: string(PhasePostArrival)},
		{Name: eventReset, Src: []string{string(PhaseInFlight), string(PhasePostArrival)}, Dst: string(PhasePreDeparture)},
	}

	// Side-effects fire on entering a state; the caller passes the
	// effective timestamp as the event argument. All callbacks run under
	// the tracker's lock, inside the Event call.
	callbacks := fsm.Callbacks{
		"enter_" + string(PhaseInFlight):    t.actionEnterInFlight,
		"enter_" + string(PhasePostArrival): t.actionEnterPostArrival,
		"enter_" + string(PhasePreDeparture): func(_ context.Context, e *fsm.Event) {
			t.actionEnterPreDeparture()
		},
	}

	t.machine = fsm.NewFSM(string(PhasePreDeparture), events, callbacks)
	return t
}

func (t *Tracker) actionEnterInFlight(_ context.Context, e *fsm.Event) {
	ts := eventTime(e)
	t.status.ActualDepartureTime = &ts
	t.status.ETAMode = ModeEstimated
	t.log.Info("departure detected",
		zap.Time("actual_departure_time", ts),
		zap.String("trigger", e.Event))
}

func (t *Tracker) actionEnterPostArrival(_ context.Context, e *fsm.Event) {
	ts := eventTime(e)
	t.status.ActualArrivalTime = &ts
	// Mode stays frozen at its last value; no further recomputation.
	t.log.Info("arrival detected",
		zap.Time("actual_arrival_time", ts),
		zap.String("trigger", e.Event))
}

func (t *Tracker) actionEnterPreDeparture() {
	t.status = Status{
		Phase:         PhasePreDeparture,
		ETAMode:       ModeAnticipated,
		ActiveRouteID: t.status.ActiveRouteID,
	}
	t.departureWindowStart = nil
	t.arrivalWindowStart = nil
	t.log.Info("flight state reset")
}

// eventTime extracts the effective timestamp passed with a transition event.
func eventTime(e *fsm.Event) time.Time {
	if len(e.Args) > 0 {
		if ts, ok := e.Args[0].(time.Time); ok {
			return ts
		}
	}
	return time.Now().UTC()
}

// SetDestination sets the point arrival detection measures against.
func (t *Tracker) SetDestination(dest coordinates.Geographic) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d := dest
	t.destination = &d
}

// SetActiveRoute records the route the flight is being tracked against.
func (t *Tracker) SetActiveRoute(routeID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.ActiveRouteID = routeID
}

// SetSchedule records the planned departure and arrival times.
func (t *Tracker) SetSchedule(departure, arrival time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !departure.IsZero() {
		d := departure
		t.status.ScheduledDepartureTime = &d
	}
	if !arrival.IsZero() {
		a := arrival
		t.status.ScheduledArrivalTime = &a
	}
}

// Update advances the detection windows with one telemetry tick. It never
// fails: malformed fields degrade to safe defaults and are logged.
func (t *Tracker) Update(tel telemetry.Telemetry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	norm, repaired := tel.Normalize(time.Now().UTC())
	if repaired {
		t.log.Warn("malformed telemetry repaired",
			zap.Float64("speed", norm.Speed),
			zap.Time("timestamp", norm.Timestamp))
	}

	switch Phase(t.machine.Current()) {
	case PhasePreDeparture:
		t.detectDeparture(norm)
	case PhaseInFlight:
		t.detectArrival(norm)
	case PhasePostArrival:
		// Frozen: no automatic transitions after arrival.
	}
}

// detectDeparture advances the sustained-speed window. The window start is
// remembered so the recorded departure time is when the platform actually
// began moving, not when the window completed.
func (t *Tracker) detectDeparture(norm telemetry.Telemetry) {
	if norm.Speed < t.cfg.DepartureSpeedKnots {
		// A dip below threshold restarts the window: a brief spike must
		// never declare departure.
		t.departureWindowStart = nil
		return
	}

	if t.departureWindowStart == nil {
		ts := norm.Timestamp
		t.departureWindowStart = &ts
		return
	}

	if norm.Timestamp.Sub(*t.departureWindowStart) >= t.cfg.DeparturePersistence {
		start := *t.departureWindowStart
		if err := t.fire(eventDepart, start); err != nil {
			t.log.Error("departure transition failed", zap.Error(err))
			return
		}
		t.departureWindowStart = nil
	}
}

// detectArrival advances the sustained-proximity window against the
// configured destination.
func (t *Tracker) detectArrival(norm telemetry.Telemetry) {
	if t.destination == nil {
		return
	}

	dist := coordinates.DistanceMeters(norm.Position(), *t.destination)
	if dist > t.cfg.ArrivalProximityMeters {
		t.arrivalWindowStart = nil
		return
	}

	if t.arrivalWindowStart == nil {
		ts := norm.Timestamp
		t.arrivalWindowStart = &ts
		return
	}

	if norm.Timestamp.Sub(*t.arrivalWindowStart) >= t.cfg.ArrivalDwell {
		if err := t.fire(eventArrive, norm.Timestamp); err != nil {
			t.log.Error("arrival transition failed", zap.Error(err))
			return
		}
		t.arrivalWindowStart = nil
	}
}

// TriggerDeparture manually declares departure. Calling it while already
// IN_FLIGHT is a no-op; calling it after arrival is an invalid transition.
func (t *Tracker) TriggerDeparture(at time.Time) error {
	return t.manual(PhaseInFlight, eventDepart, at)
}

// TriggerArrival manually declares arrival. Calling it while already
// POST_ARRIVAL is a no-op; calling it before departure is an invalid
// transition.
func (t *Tracker) TriggerArrival(at time.Time) error {
	return t.manual(PhasePostArrival, eventArrive, at)
}

// Transition is the generalized manual phase change, bound by the same
// monotonicity rule as the triggers. Moving backward requires Reset.
func (t *Tracker) Transition(target Phase) error {
	if !target.Valid() {
		return fmt.Errorf("%w: unknown phase %q", ErrInvalidTransition, target)
	}
	switch target {
	case PhaseInFlight:
		return t.TriggerDeparture(time.Now().UTC())
	case PhasePostArrival:
		return t.TriggerArrival(time.Now().UTC())
	default:
		return fmt.Errorf("%w: cannot move backward to %s, use Reset", ErrInvalidTransition, target)
	}
}

func (t *Tracker) manual(target Phase, event string, at time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if Phase(t.machine.Current()) == target {
		return nil
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return t.fire(event, at)
}

// fire runs a state machine event and maps its failures onto the tracker's
// error taxonomy. Caller must hold the lock.
func (t *Tracker) fire(event string, at time.Time) error {
	err := t.machine.Event(context.Background(), event, at)
	if err != nil {
		var invalid fsm.InvalidEventError
		if errors.As(err, &invalid) {
			return fmt.Errorf("%w: cannot %s from %s", ErrInvalidTransition, event, invalid.State)
		}
		return fmt.Errorf("flight state transition %s failed: %w", event, err)
	}
	t.status.Phase = Phase(t.machine.Current())
	return nil
}

// Reset returns the tracker to PRE_DEPARTURE with all timestamps cleared.
// This is the only backward move in the lifecycle.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if Phase(t.machine.Current()) == PhasePreDeparture {
		// Already in the initial phase; still clear any partial windows
		// and timestamps.
		t.actionEnterPreDeparture()
		return
	}
	if err := t.fire(eventReset, time.Time{}); err != nil {
		t.log.Error("reset transition failed", zap.Error(err))
	}
}

// Status returns a consistent snapshot of the flight lifecycle record.
func (t *Tracker) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status.clone()
}

// Phase returns the current phase.
func (t *Tracker) Phase() Phase {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status.Phase
}

// Mode returns the currently authoritative ETA mode.
func (t *Tracker) Mode() ETAMode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status.ETAMode
}
