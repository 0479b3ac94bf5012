package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/unklstewy/flightwatch/pkg/flight"
)

// Config represents the complete application configuration.
// Configuration is loaded from a JSON file with environment overrides for
// sensitive values.
type Config struct {
	Server       ServerConfig       `json:"server"`
	Database     DatabaseConfig     `json:"database"`
	Auth         AuthConfig         `json:"auth"`
	Flight       FlightConfig       `json:"flight"`
	Routes       RoutesConfig       `json:"routes"`
	Telemetry    TelemetryConfig    `json:"telemetry"`
	Destinations []Destination      `json:"destinations"`
	Logging      LoggingConfig      `json:"logging"`
	Metrics      MetricsConfig      `json:"metrics"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// Port is the HTTP server port (default: 8080)
	Port string `json:"port"`

	// Host is the server bind address (default: "0.0.0.0")
	Host string `json:"host"`

	// TLSEnabled determines if HTTPS should be used
	TLSEnabled bool `json:"tls_enabled"`

	// TLSCertFile is the path to the TLS certificate
	TLSCertFile string `json:"tls_cert_file"`

	// TLSKeyFile is the path to the TLS private key
	TLSKeyFile string `json:"tls_key_file"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	// Driver is the database driver (postgres)
	Driver string `json:"driver"`

	// Host is the database server hostname
	Host string `json:"host"`

	// Port is the database server port
	Port int `json:"port"`

	// Database is the database name
	Database string `json:"database"`

	// Username for database authentication
	Username string `json:"username"`

	// Password for database authentication (should be loaded from environment)
	Password string `json:"password"`

	// SSLMode for PostgreSQL connections (disable, require, verify-ca, verify-full)
	SSLMode string `json:"ssl_mode"`

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int `json:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int `json:"max_idle_conns"`
}

// AuthConfig contains API authentication settings.
type AuthConfig struct {
	// JWTSecret signs API tokens (should be loaded from environment)
	JWTSecret string `json:"jwt_secret"`

	// TokenLifetimeMinutes is how long issued tokens stay valid
	TokenLifetimeMinutes int `json:"token_lifetime_minutes"`
}

// FlightConfig contains the phase-detection thresholds and estimation
// defaults, in plain units for the config file.
type FlightConfig struct {
	// DepartureSpeedKnots is the speed threshold for departure detection
	DepartureSpeedKnots float64 `json:"departure_speed_knots"`

	// DeparturePersistenceSeconds is how long the departure speed must hold
	DeparturePersistenceSeconds float64 `json:"departure_persistence_seconds"`

	// ArrivalProximityMeters is the arrival-detection distance threshold
	ArrivalProximityMeters float64 `json:"arrival_proximity_meters"`

	// ArrivalDwellSeconds is how long the platform must stay in proximity
	ArrivalDwellSeconds float64 `json:"arrival_dwell_seconds"`

	// StationarySpeedKnots is the speed below which estimated ETAs are
	// not applicable
	StationarySpeedKnots float64 `json:"stationary_speed_knots"`

	// DefaultCruiseSpeedKnots is the planned-speed fallback for
	// anticipated ETAs
	DefaultCruiseSpeedKnots float64 `json:"default_cruise_speed_knots"`

	// CacheTTLSeconds is how long computed ETAs may be served from cache
	CacheTTLSeconds float64 `json:"cache_ttl_seconds"`
}

// ToFlightConfig converts the file representation into the core's config.
func (f FlightConfig) ToFlightConfig() flight.Config {
	return flight.Config{
		DepartureSpeedKnots:     f.DepartureSpeedKnots,
		DeparturePersistence:    secondsToDuration(f.DeparturePersistenceSeconds),
		ArrivalProximityMeters:  f.ArrivalProximityMeters,
		ArrivalDwell:            secondsToDuration(f.ArrivalDwellSeconds),
		StationarySpeedKnots:    f.StationarySpeedKnots,
		DefaultCruiseSpeedKnots: f.DefaultCruiseSpeedKnots,
		CacheTTL:                secondsToDuration(f.CacheTTLSeconds),
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// RoutesConfig contains route-file settings.
type RoutesConfig struct {
	// Directory holds the planned route JSON files
	Directory string `json:"directory"`

	// ActiveRoute is the ID of the route to track against
	ActiveRoute string `json:"active_route"`

	// WatchEnabled determines if route files are hot-reloaded on change
	WatchEnabled bool `json:"watch_enabled"`
}

// TelemetryConfig contains the telemetry ingest settings.
type TelemetryConfig struct {
	// TickRateHz is how many telemetry ticks are processed per second
	TickRateHz float64 `json:"tick_rate_hz"`

	// Source selects the telemetry source: "simulator" or "none"
	Source string `json:"source"`

	// SimulatorDepartureDelaySeconds is how long the simulated flight
	// holds at the origin before departing
	SimulatorDepartureDelaySeconds float64 `json:"simulator_departure_delay_seconds"`
}

// Destination is a named point ETAs are computed against.
type Destination struct {
	// ID uniquely identifies the destination
	ID string `json:"id"`

	// Latitude in decimal degrees
	Latitude float64 `json:"latitude"`

	// Longitude in decimal degrees
	Longitude float64 `json:"longitude"`

	// Waypoint optionally names the route waypoint this destination
	// corresponds to
	Waypoint string `json:"waypoint,omitempty"`
}

// LoggingConfig contains structured-logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error
	Level string `json:"level"`

	// Format is "json" or "console"
	Format string `json:"format"`
}

// MetricsConfig contains Prometheus exporter settings.
type MetricsConfig struct {
	// Enabled determines if the /metrics endpoint is served
	Enabled bool `json:"enabled"`

	// Path is the metrics endpoint path (default: "/metrics")
	Path string `json:"path"`
}

// Load reads configuration from a JSON file.
// If the file doesn't exist, returns a default configuration.
func Load(path string) (*Config, error) {
	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvironmentOverrides()

	return &cfg, nil
}

// Save writes the configuration to a JSON file.
func (c *Config) Save(path string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Marshal to JSON with indentation
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	flightDefaults := flight.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Port:       "8080",
			Host:       "0.0.0.0",
			TLSEnabled: false,
		},
		Database: DatabaseConfig{
			Driver:       "postgres",
			Host:         "localhost",
			Port:         5432,
			Database:     "flightwatch",
			Username:     "flightwatch",
			SSLMode:      "disable",
			MaxOpenConns: 25,
			MaxIdleConns: 5,
		},
		Auth: AuthConfig{
			TokenLifetimeMinutes: 60,
		},
		Flight: FlightConfig{
			DepartureSpeedKnots:         flightDefaults.DepartureSpeedKnots,
			DeparturePersistenceSeconds: flightDefaults.DeparturePersistence.Seconds(),
			ArrivalProximityMeters:      flightDefaults.ArrivalProximityMeters,
			ArrivalDwellSeconds:         flightDefaults.ArrivalDwell.Seconds(),
			StationarySpeedKnots:        flightDefaults.StationarySpeedKnots,
			DefaultCruiseSpeedKnots:     flightDefaults.DefaultCruiseSpeedKnots,
			CacheTTLSeconds:             flightDefaults.CacheTTL.Seconds(),
		},
		Routes: RoutesConfig{
			Directory:    "routes",
			WatchEnabled: true,
		},
		Telemetry: TelemetryConfig{
			TickRateHz:                     10.0,
			Source:                         "simulator",
			SimulatorDepartureDelaySeconds: 30.0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
// This allows sensitive data like passwords to be kept out of config files.
func (c *Config) applyEnvironmentOverrides() {
	if port := os.Getenv("FLIGHTWATCH_PORT"); port != "" {
		c.Server.Port = port
	}
	if dbPassword := os.Getenv("FLIGHTWATCH_DB_PASSWORD"); dbPassword != "" {
		c.Database.Password = dbPassword
	}
	if secret := os.Getenv("FLIGHTWATCH_JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
	if dir := os.Getenv("FLIGHTWATCH_ROUTES_DIR"); dir != "" {
		c.Routes.Directory = dir
	}
	if level := os.Getenv("FLIGHTWATCH_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}
