package db

import (
	"context"
	"fmt"
	"time"

	"github.com/unklstewy/flightwatch/pkg/flight"
)

// Trigger sources recorded with each flight event.
const (
	TriggerAutomatic = "automatic"
	TriggerManual    = "manual"
	TriggerReset     = "reset"
)

// FlightEvent is one phase transition in the append-only event log.
type FlightEvent struct {
	ID         int          `json:"id"`
	RouteID    string       `json:"route_id"`
	Phase      flight.Phase `json:"phase"`
	Trigger    string       `json:"trigger"`
	OccurredAt time.Time    `json:"occurred_at"`
	RecordedAt time.Time    `json:"recorded_at"`
}

// FlightEventRepository handles flight event database operations.
type FlightEventRepository struct {
	db *DB
}

// NewFlightEventRepository creates a new flight event repository.
func NewFlightEventRepository(db *DB) *FlightEventRepository {
	return &FlightEventRepository{db: db}
}

// Record appends a phase transition to the event log.
func (r *FlightEventRepository) Record(ctx context.Context, event *FlightEvent) error {
	query := `
		INSERT INTO flight_events (route_id, phase, trigger_source, occurred_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, recorded_at
	`

	err := r.db.QueryRowContext(ctx, query,
		event.RouteID,
		string(event.Phase),
		event.Trigger,
		event.OccurredAt,
	).Scan(&event.ID, &event.RecordedAt)

	if err != nil {
		return fmt.Errorf("failed to record flight event: %w", err)
	}

	return nil
}

// ListRecent returns the most recent events, newest first.
func (r *FlightEventRepository) ListRecent(ctx context.Context, limit int) ([]*FlightEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, route_id, phase, trigger_source, occurred_at, recorded_at
		FROM flight_events
		ORDER BY occurred_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list flight events: %w", err)
	}
	defer rows.Close()

	var events []*FlightEvent
	for rows.Next() {
		event := &FlightEvent{}
		var phase string
		err := rows.Scan(
			&event.ID,
			&event.RouteID,
			&phase,
			&event.Trigger,
			&event.OccurredAt,
			&event.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flight event: %w", err)
		}
		event.Phase = flight.Phase(phase)
		events = append(events, event)
	}

	return events, rows.Err()
}

// ListByRoute returns events for one route within a time window.
func (r *FlightEventRepository) ListByRoute(ctx context.Context, routeID string, since time.Time) ([]*FlightEvent, error) {
	query := `
		SELECT id, route_id, phase, trigger_source, occurred_at, recorded_at
		FROM flight_events
		WHERE route_id = $1 AND occurred_at >= $2
		ORDER BY occurred_at
	`

	rows, err := r.db.QueryContext(ctx, query, routeID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list flight events: %w", err)
	}
	defer rows.Close()

	var events []*FlightEvent
	for rows.Next() {
		event := &FlightEvent{}
		var phase string
		err := rows.Scan(
			&event.ID,
			&event.RouteID,
			&phase,
			&event.Trigger,
			&event.OccurredAt,
			&event.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flight event: %w", err)
		}
		event.Phase = flight.Phase(phase)
		events = append(events, event)
	}

	return events, rows.Err()
}
