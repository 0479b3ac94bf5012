package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/unklstewy/flightwatch/pkg/coordinates"
)

// PointOfInterest represents a named destination ETAs are computed against.
// Waypoint, when set, pins the point to a route waypoint by name so the
// calculator can use the route-aware path.
type PointOfInterest struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Name      string    `json:"name"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Waypoint  string    `json:"waypoint"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Position returns the point's geographic location.
func (p *PointOfInterest) Position() coordinates.Geographic {
	return coordinates.Geographic{Latitude: p.Latitude, Longitude: p.Longitude}
}

// POIRepository handles point of interest database operations.
type POIRepository struct {
	db *DB
}

// NewPOIRepository creates a new point of interest repository.
func NewPOIRepository(db *DB) *POIRepository {
	return &POIRepository{db: db}
}

// Create inserts a new point of interest.
func (r *POIRepository) Create(ctx context.Context, poi *PointOfInterest) error {
	query := `
		INSERT INTO points_of_interest (user_id, name, latitude, longitude, waypoint, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		poi.UserID,
		poi.Name,
		poi.Latitude,
		poi.Longitude,
		poi.Waypoint,
		poi.IsActive,
	).Scan(&poi.ID, &poi.CreatedAt, &poi.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create point of interest: %w", err)
	}

	return nil
}

// GetByID retrieves a point of interest by its ID.
func (r *POIRepository) GetByID(ctx context.Context, id int) (*PointOfInterest, error) {
	query := `
		SELECT id, user_id, name, latitude, longitude, waypoint, is_active, created_at, updated_at
		FROM points_of_interest
		WHERE id = $1
	`

	poi := &PointOfInterest{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&poi.ID,
		&poi.UserID,
		&poi.Name,
		&poi.Latitude,
		&poi.Longitude,
		&poi.Waypoint,
		&poi.IsActive,
		&poi.CreatedAt,
		&poi.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("point of interest not found: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get point of interest: %w", err)
	}

	return poi, nil
}

// ListByUser retrieves all points of interest for a user.
func (r *POIRepository) ListByUser(ctx context.Context, userID int) ([]*PointOfInterest, error) {
	query := `
		SELECT id, user_id, name, latitude, longitude, waypoint, is_active, created_at, updated_at
		FROM points_of_interest
		WHERE user_id = $1
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list points of interest: %w", err)
	}
	defer rows.Close()

	var points []*PointOfInterest
	for rows.Next() {
		poi := &PointOfInterest{}
		err := rows.Scan(
			&poi.ID,
			&poi.UserID,
			&poi.Name,
			&poi.Latitude,
			&poi.Longitude,
			&poi.Waypoint,
			&poi.IsActive,
			&poi.CreatedAt,
			&poi.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan point of interest: %w", err)
		}
		points = append(points, poi)
	}

	return points, rows.Err()
}

// GetActive returns the user's active destination, if any.
func (r *POIRepository) GetActive(ctx context.Context, userID int) (*PointOfInterest, error) {
	query := `
		SELECT id, user_id, name, latitude, longitude, waypoint, is_active, created_at, updated_at
		FROM points_of_interest
		WHERE user_id = $1 AND is_active = TRUE
		LIMIT 1
	`

	poi := &PointOfInterest{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&poi.ID,
		&poi.UserID,
		&poi.Name,
		&poi.Latitude,
		&poi.Longitude,
		&poi.Waypoint,
		&poi.IsActive,
		&poi.CreatedAt,
		&poi.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active point of interest: %w", err)
	}

	return poi, nil
}

// Update modifies an existing point of interest.
func (r *POIRepository) Update(ctx context.Context, poi *PointOfInterest) error {
	query := `
		UPDATE points_of_interest
		SET name = $1, latitude = $2, longitude = $3, waypoint = $4, updated_at = NOW()
		WHERE id = $5
	`

	result, err := r.db.ExecContext(ctx, query,
		poi.Name,
		poi.Latitude,
		poi.Longitude,
		poi.Waypoint,
		poi.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update point of interest: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("point of interest not found: %d", poi.ID)
	}

	return nil
}

// SetActive marks one point as the user's active destination, clearing any
// previously active point in the same transaction.
func (r *POIRepository) SetActive(ctx context.Context, userID, poiID int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE points_of_interest SET is_active = FALSE, updated_at = NOW() WHERE user_id = $1 AND is_active = TRUE`,
		userID,
	); err != nil {
		return fmt.Errorf("failed to clear active point: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE points_of_interest SET is_active = TRUE, updated_at = NOW() WHERE id = $1 AND user_id = $2`,
		poiID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to set active point: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("point of interest not found: %d", poiID)
	}

	return tx.Commit()
}

// Delete removes a point of interest.
func (r *POIRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM points_of_interest WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete point of interest: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("point of interest not found: %d", id)
	}

	return nil
}
