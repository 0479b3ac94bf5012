package flight

import "time"

// Config consolidates the detection thresholds and estimation defaults for
// the monitoring core. Every field has a documented default; zero values are
// replaced by those defaults when a Tracker or calculator is constructed.
type Config struct {
	// DepartureSpeedKnots is the ground speed at or above which the
	// platform is considered to be departing. Default 50 kn.
	DepartureSpeedKnots float64 `json:"departure_speed_knots"`

	// DeparturePersistence is how long the departure speed must be
	// sustained before the phase advances. Default 10s.
	DeparturePersistence time.Duration `json:"departure_persistence"`

	// ArrivalProximityMeters is the distance to the destination at or
	// below which the platform is considered to be arriving. Default 100m.
	ArrivalProximityMeters float64 `json:"arrival_proximity_meters"`

	// ArrivalDwell is how long the platform must stay inside the arrival
	// proximity before the phase advances. Default 60s.
	ArrivalDwell time.Duration `json:"arrival_dwell"`

	// StationarySpeedKnots is the live speed below which estimated-mode
	// ETAs are not applicable. Default 0.5 kn.
	StationarySpeedKnots float64 `json:"stationary_speed_knots"`

	// DefaultCruiseSpeedKnots is the planned-speed fallback used for
	// anticipated-mode ETAs when no timing profile exists. Default 150 kn.
	DefaultCruiseSpeedKnots float64 `json:"default_cruise_speed_knots"`

	// CacheTTL is how long a computed ETA result may be served from the
	// cache before it must be recomputed. Default 5s.
	CacheTTL time.Duration `json:"cache_ttl"`
}

// DefaultConfig returns the documented default thresholds.
func DefaultConfig() Config {
	return Config{
		DepartureSpeedKnots:     50.0,
		DeparturePersistence:    10 * time.Second,
		ArrivalProximityMeters:  100.0,
		ArrivalDwell:            60 * time.Second,
		StationarySpeedKnots:    0.5,
		DefaultCruiseSpeedKnots: 150.0,
		CacheTTL:                5 * time.Second,
	}
}

// withDefaults fills zero-valued fields from the documented defaults.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DepartureSpeedKnots <= 0 {
		c.DepartureSpeedKnots = d.DepartureSpeedKnots
	}
	if c.DeparturePersistence <= 0 {
		c.DeparturePersistence = d.DeparturePersistence
	}
	if c.ArrivalProximityMeters <= 0 {
		c.ArrivalProximityMeters = d.ArrivalProximityMeters
	}
	if c.ArrivalDwell <= 0 {
		c.ArrivalDwell = d.ArrivalDwell
	}
	if c.StationarySpeedKnots <= 0 {
		c.StationarySpeedKnots = d.StationarySpeedKnots
	}
	if c.DefaultCruiseSpeedKnots <= 0 {
		c.DefaultCruiseSpeedKnots = d.DefaultCruiseSpeedKnots
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = d.CacheTTL
	}
	return c
}
