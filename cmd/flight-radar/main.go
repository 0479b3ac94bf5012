package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/unklstewy/flightwatch/internal/monitor"
	"github.com/unklstewy/flightwatch/pkg/config"
	"github.com/unklstewy/flightwatch/pkg/coordinates"
	"github.com/unklstewy/flightwatch/pkg/eta"
	"github.com/unklstewy/flightwatch/pkg/flight"
	"github.com/unklstewy/flightwatch/pkg/route"
	"github.com/unklstewy/flightwatch/pkg/telemetry"
)

type model struct {
	cfg     *config.Config
	monitor *monitor.Monitor
	profile *route.TimingProfile
	routeID string

	// Simulation clock
	sim      *telemetry.Simulator
	simStart time.Time
	speedup  float64
	paused   bool

	// Display state
	snap        monitor.Snapshot
	width       int
	height      int
	radarCenter coordinates.Geographic
	radarRadius float64 // Nautical miles
	err         error
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if m.err != nil {
			m.err = nil
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
		case "d":
			if err := m.monitor.Tracker().TriggerDeparture(time.Now().UTC()); err != nil {
				m.err = err
			}
		case "a":
			if err := m.monitor.Tracker().TriggerArrival(time.Now().UTC()); err != nil {
				m.err = err
			}
		case "r":
			m.monitor.Tracker().Reset()
			m.simStart = time.Now().UTC()
			delay := time.Duration(m.cfg.Telemetry.SimulatorDepartureDelaySeconds * float64(time.Second))
			m.sim = telemetry.NewSimulator(m.profile, m.simStart.Add(delay))
		case "+", "=":
			if m.radarRadius < 2500 {
				m.radarRadius *= 1.5
				if m.radarRadius > 2500 {
					m.radarRadius = 2500
				}
			}
		case "-", "_":
			if m.radarRadius > 10 {
				m.radarRadius /= 1.5
				if m.radarRadius < 10 {
					m.radarRadius = 10
				}
			}
		}

	case tickMsg:
		if !m.paused {
			simNow := m.simStart.Add(time.Duration(float64(time.Since(m.simStart)) * m.speedup))
			m.monitor.Tick(m.sim.Sample(simNow), simNow)
		}
		m.snap = m.monitor.Snapshot()
		return m, tick()
	}

	return m, nil
}

func (m model) View() string {
	radar := m.renderRadar()
	info := m.renderInfo()

	view := lipgloss.JoinHorizontal(lipgloss.Top, radar, "  ", info)

	if m.err != nil {
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
		view += "\n" + errStyle.Render(fmt.Sprintf("Error: %v (press any key)", m.err))
	}

	return view
}

// renderInfo renders the flight status panel beside the radar.
func (m model) renderInfo() string {
	var info strings.Builder

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	info.WriteString(headerStyle.Render("FLIGHT RADAR"))
	info.WriteString("\n\n")

	phaseStyle := lipgloss.NewStyle().Bold(true)
	switch m.snap.Status.Phase {
	case flight.PhaseInFlight:
		phaseStyle = phaseStyle.Foreground(lipgloss.Color("46"))
	case flight.PhasePostArrival:
		phaseStyle = phaseStyle.Foreground(lipgloss.Color("75"))
	default:
		phaseStyle = phaseStyle.Foreground(lipgloss.Color("226"))
	}

	info.WriteString(fmt.Sprintf("Route:  %s\n", m.routeID))
	info.WriteString(fmt.Sprintf("Phase:  %s\n", phaseStyle.Render(string(m.snap.Status.Phase))))
	info.WriteString(fmt.Sprintf("Mode:   %s\n", m.snap.Status.ETAMode))
	info.WriteString(fmt.Sprintf("Radius: %.0f NM\n", m.radarRadius))
	info.WriteString("\n")

	info.WriteString(fmt.Sprintf("Pos: %.4f°, %.4f°\n", m.snap.Telemetry.Latitude, m.snap.Telemetry.Longitude))
	info.WriteString(fmt.Sprintf("Spd: %.0f kn  Hdg: %.0f°\n", m.snap.Telemetry.Speed, m.snap.Telemetry.Heading))
	info.WriteString("\n")

	for _, r := range m.snap.Results {
		info.WriteString(fmt.Sprintf("%s\n", r.TargetID))
		info.WriteString(fmt.Sprintf("  %.1f NM", r.DistanceMeters/1852.0))
		if r.Stationary {
			info.WriteString("  ETA n/a\n")
		} else {
			info.WriteString(fmt.Sprintf("  ETA %s\n",
				time.Duration(r.ETASeconds*float64(time.Second)).Round(time.Second)))
		}
	}
	info.WriteString("\n")

	info.WriteString(fmt.Sprintf("Cache: %d/%d (%.0f%%)\n",
		m.snap.Cache.Hits, m.snap.Cache.Hits+m.snap.Cache.Misses, m.snap.Cache.HitRate*100))
	info.WriteString(fmt.Sprintf("Ticks: %d\n", m.snap.TickCount))
	info.WriteString("\n")

	if m.paused {
		info.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Render("⏸ PAUSED\n"))
	}

	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	info.WriteString(helpStyle.Render("d: Depart  a: Arrive  r: Reset\n"))
	info.WriteString(helpStyle.Render("SPACE: Pause  +/-: Radius  q: Quit"))

	return info.String()
}

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	routeID := flag.String("route", "", "Route ID to fly (default: active route from config)")
	speedup := flag.Float64("speedup", 60.0, "Simulation time acceleration factor")
	radius := flag.Float64("radius", 100.0, "Initial radar radius in nautical miles")
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
	dest := profile.Destination()
	if len(targets) == 0 {
		targets = append(targets, eta.Target{
			ID:        dest.Name,
			Latitude:  dest.Latitude,
			Longitude: dest.Longitude,
			Waypoint:  dest.Name,
		})
	}

	mon := monitor.New(tracker, calc, cache, nil, targets, nil)
	mon.UseProfile(profile)

	start := time.Now().UTC()
	delay := time.Duration(cfg.Telemetry.SimulatorDepartureDelaySeconds * float64(time.Second))

	m := model{
		cfg:         cfg,
		monitor:     mon,
		profile:     profile,
		routeID:     id,
		sim:         telemetry.NewSimulator(profile, start.Add(delay)),
		simStart:    start,
		speedup:     *speedup,
		radarCenter: dest.Position(),
		radarRadius: *radius,
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}
}
