package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/unklstewy/flightwatch/internal/monitor"
	"github.com/unklstewy/flightwatch/pkg/config"
	"github.com/unklstewy/flightwatch/pkg/eta"
	"github.com/unklstewy/flightwatch/pkg/flight"
	"github.com/unklstewy/flightwatch/pkg/route"
)

// flight-deck is an interactive terminal dashboard over the monitoring core.
// It flies a simulated route, renders live phase/ETA state, and exposes the
// manual phase controls on keyboard shortcuts.
func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	routeID := flag.String("route", "", "Route ID to fly (default: active route from config)")
	speedup := flag.Float64("speedup", 60.0, "Simulation time acceleration factor")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	id := *routeID
	if id == "" {
		id = cfg.Routes.ActiveRoute
	}
	if id == "" {
		fmt.Fprintln(os.Stderr, "No route specified (--route) and no active route configured")
		os.Exit(1)
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
		log.Fatalf("Route %q not found in %s", id, cfg.Routes.Directory)
	}

	profile, err := route.NewTimingProfile(selected)
	if err != nil {
		log.Fatalf("Route %q is invalid: %v", id, err)
	}

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
		dest := profile.Destination()
		targets = append(targets, eta.Target{
			ID:        dest.Name,
			Latitude:  dest.Latitude,
			Longitude: dest.Longitude,
			Waypoint:  dest.Name,
		})
	}

	mon := monitor.New(tracker, calc, cache, nil, targets, nil)
	mon.UseProfile(profile)

	app := NewApp(&AppConfig{
		Config:  cfg,
		Monitor: mon,
		Profile: profile,
		Speedup: *speedup,
		RouteID: id,
	})

	if err := app.Run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}
