package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/unklstewy/flightwatch/internal/monitor"
	"github.com/unklstewy/flightwatch/pkg/config"
	"github.com/unklstewy/flightwatch/pkg/eta"
	"github.com/unklstewy/flightwatch/pkg/flight"
	"github.com/unklstewy/flightwatch/pkg/route"
	"github.com/unklstewy/flightwatch/pkg/telemetry"
)

// main implements a complete flight monitoring demonstration.
// This shows the full integration of:
// - Route loading and timing profiles
// - Simulated telemetry generation
// - Automatic phase detection (departure and arrival hysteresis)
// - Dual-mode ETA calculation (anticipated vs estimated)
// - Short-TTL ETA caching
func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	routeID := flag.String("route", "", "Route ID to fly (default: active route from config)")
	speedup := flag.Float64("speedup", 60.0, "Simulation time acceleration factor")
	duration := flag.Int("duration", 120, "Maximum wall-clock runtime in seconds")
	flag.Parse()

	log.Println("===========================================")
	log.Println("  Flightwatch - Simulated Flight Demo")
	log.Println("===========================================")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	id := *routeID
	if id == "" {
		id = cfg.Routes.ActiveRoute
	}
	if id == "" {
		log.Fatal("Error: No route specified (--route) and no active route configured")
	}

	routes, err := route.LoadDir(cfg.Routes.Directory)
	if err != nil {
		log.Fatalf("Failed to load routes from %s: %v", cfg.Routes.Directory, err)
	}

	var selected *route.Route
	for _, r := range routes {
		if r.ID == id {
			selected = r
			break
		}
	}
	if selected == nil {
		log.Fatalf("Route %q not found in %s (%d routes available)", id, cfg.Routes.Directory, len(routes))
	}

	profile, err := route.NewTimingProfile(selected)
	if err != nil {
		log.Fatalf("Route %q is invalid: %v", id, err)
	}

	dest := profile.Destination()
	log.Printf("Route: %s (%d waypoints, destination %s)", selected.ID, profile.NumWaypoints(), dest.Name)
	log.Printf("Planned duration: %s at %.0fkn cruise",
		time.Duration(profile.PlannedDurationSeconds()*float64(time.Second)).Round(time.Second),
		selected.CruiseSpeedKnots)
	log.Printf("Time acceleration: %.0fx", *speedup)

	// Assemble the monitoring core
	flightCfg := cfg.Flight.ToFlightConfig()
	tracker := flight.NewTracker(flightCfg, nil)
	calc := eta.NewCalculator(flightCfg, nil)
	cache := eta.NewCache(flightCfg.CacheTTL)

	targets := make([]eta.Target, 0, len(cfg.Destinations))
	for _, d := range cfg.Destinations {
		targets = append(targets, eta.Target{
			ID:        d.ID,
			Latitude:  d.Latitude,
			Longitude: d.Longitude,
			Waypoint:  d.Waypoint,
		})
	}
	if len(targets) == 0 {
		// Fall back to the route destination
		targets = append(targets, eta.Target{
			ID:        dest.Name,
			Latitude:  dest.Latitude,
			Longitude: dest.Longitude,
			Waypoint:  dest.Name,
		})
	}

	mon := monitor.New(tracker, calc, cache, nil, targets, nil)
	mon.UseProfile(profile)

	// The simulator flies in simulated time; ticks sample it through the
	// acceleration factor so a long flight replays in seconds.
	start := time.Now().UTC()
	delay := time.Duration(cfg.Telemetry.SimulatorDepartureDelaySeconds * float64(time.Second))
	sim := telemetry.NewSimulator(profile, start.Add(delay))

	log.Println("\nStarting flight...")
	log.Println("-------------------------------------------")

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	deadline := start.Add(time.Duration(*duration) * time.Second)

	lastPhase := flight.PhasePreDeparture
	lastPrint := time.Time{}

	for now := range ticker.C {
		if now.After(deadline) {
			log.Printf("\n⏱  Demo time limit reached (%ds)", *duration)
			break
		}

		// Warp wall-clock elapsed time into simulated flight time
		simNow := start.Add(time.Duration(float64(now.Sub(start)) * *speedup))
		mon.Tick(sim.Sample(simNow), simNow)

		snap := mon.Snapshot()

		if snap.Status.Phase != lastPhase {
			lastPhase = snap.Status.Phase
			switch lastPhase {
			case flight.PhaseInFlight:
				log.Printf("🛫 DEPARTED at %s (speed %.0fkn)",
					snap.Status.ActualDepartureTime.Format("15:04:05"), snap.Telemetry.Speed)
			case flight.PhasePostArrival:
				log.Printf("🛬 ARRIVED at %s",
					snap.Status.ActualArrivalTime.Format("15:04:05"))
			}
		}

		if now.Sub(lastPrint) >= 2*time.Second {
			lastPrint = now
			printStatus(snap)
		}

		if snap.Status.Phase == flight.PhasePostArrival {
			break
		}
	}

	log.Println("-------------------------------------------")
	stats := mon.CacheStats()
	log.Printf("Cache: %d hits / %d misses (%.0f%% hit rate), avg compute %s",
		stats.Hits, stats.Misses, stats.HitRate*100, stats.AvgComputeLatency)
	log.Println("✅ Demo complete")
}

func printStatus(snap monitor.Snapshot) {
	line := fmt.Sprintf("[%s/%s] pos %.4f,%.4f @ %.0fkn",
		snap.Status.Phase, snap.Status.ETAMode,
		snap.Telemetry.Latitude, snap.Telemetry.Longitude, snap.Telemetry.Speed)

	for _, r := range snap.Results {
		if r.Stationary {
			line += fmt.Sprintf(" | %s: %.1fnm, ETA n/a (stationary)", r.TargetID, r.DistanceMeters/1852.0)
			continue
		}
		line += fmt.Sprintf(" | %s: %.1fnm, ETA %s",
			r.TargetID, r.DistanceMeters/1852.0,
			time.Duration(r.ETASeconds*float64(time.Second)).Round(time.Second))
	}

	log.Println(line)
}
