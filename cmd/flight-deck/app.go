package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/unklstewy/flightwatch/internal/monitor"
	"github.com/unklstewy/flightwatch/pkg/config"
	"github.com/unklstewy/flightwatch/pkg/flight"
	"github.com/unklstewy/flightwatch/pkg/route"
	"github.com/unklstewy/flightwatch/pkg/telemetry"
)

// AppConfig holds the application configuration
type AppConfig struct {
	Config  *config.Config
	Monitor *monitor.Monitor
	Profile *route.TimingProfile
	Speedup float64
	RouteID string
}

// App represents the main application
type App struct {
	config  *config.Config
	monitor *monitor.Monitor
	profile *route.TimingProfile
	routeID string

	// UI components
	tviewApp   *tview.Application
	flightView *tview.TextView
	etaPanel   *tview.TextView
	controls   *tview.TextView
	logs       *tview.TextView
	rootLayout *tview.Flex

	// Simulation state
	speedup   float64
	simStart  time.Time
	sim       *telemetry.Simulator
	paused    bool
	lastPhase flight.Phase

	mu        sync.RWMutex
	tickTimer *time.Ticker
	drawTimer *time.Ticker
	stopChan  chan struct{}
	stopOnce  sync.Once
}

// NewApp creates a new application instance
func NewApp(cfg *AppConfig) *App {
	start := time.Now().UTC()
	delay := time.Duration(cfg.Config.Telemetry.SimulatorDepartureDelaySeconds * float64(time.Second))

	app := &App{
		config:    cfg.Config,
		monitor:   cfg.Monitor,
		profile:   cfg.Profile,
		routeID:   cfg.RouteID,
		speedup:   cfg.Speedup,
		simStart:  start,
		sim:       telemetry.NewSimulator(cfg.Profile, start.Add(delay)),
		lastPhase: flight.PhasePreDeparture,
		stopChan:  make(chan struct{}),
	}

	app.setupUI()
	return app
}

// setupUI initializes the user interface
func (a *App) setupUI() {
	a.tviewApp = tview.NewApplication()

	a.createFlightView()
	a.createETAPanel()
	a.createControlsPanel()
	a.createLogsPanel()
	a.createLayout()

	a.tviewApp.SetInputCapture(a.handleKeyboard)
}

// createFlightView creates the main route progress view
func (a *App) createFlightView() {
	a.flightView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	a.flightView.SetBorder(true).SetTitle(" Flight ")
}

// createETAPanel creates the per-destination ETA panel
func (a *App) createETAPanel() {
	a.etaPanel = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	a.etaPanel.SetBorder(true).SetTitle(" Estimates ")
}

// createControlsPanel creates the controls/shortcuts panel
func (a *App) createControlsPanel() {
	a.controls = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	a.controls.SetBorder(true).SetTitle(" Controls ")

	controlsText := `[yellow]PHASE[-]
  [white]d[-]         Manual depart
  [white]a[-]         Manual arrive
  [white]r[-]         Reset flight

[yellow]SIMULATION[-]
  [white]SPACE[-]     Pause/resume
  [white]+/-[-]       Time factor

[yellow]CONTROL[-]
  [white]q[-]         Quit`

	a.controls.SetText(controlsText)
}

// createLogsPanel creates the log viewer panel
func (a *App) createLogsPanel() {
	a.logs = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetMaxLines(100)
	a.logs.SetBorder(true).SetTitle(" Logs ")

	a.addLog("INFO", fmt.Sprintf("Flying route %s at %.0fx", a.routeID, a.speedup))
}

// createLayout creates the main layout
func (a *App) createLayout() {
	sidebar := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.etaPanel, 0, 4, false).
		AddItem(a.controls, 0, 3, false).
		AddItem(a.logs, 0, 3, false)

	a.rootLayout = tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(a.flightView, 0, 7, true).
		AddItem(sidebar, 0, 3, false)

	a.tviewApp.SetRoot(a.rootLayout, true)
}

// handleKeyboard handles keyboard input
func (a *App) handleKeyboard(event *tcell.EventKey) *tcell.EventKey {
	key := event.Key()
	r := event.Rune()

	switch {
	case key == tcell.KeyEscape || r == 'q':
		a.Stop()
		return nil

	case r == 'd':
		a.manualDepart()
		return nil
	case r == 'a':
		a.manualArrive()
		return nil
	case r == 'r':
		a.resetFlight()
		return nil

	case r == ' ':
		a.togglePause()
		return nil
	case r == '+' || r == '=':
		a.adjustSpeedup(2.0)
		return nil
	case r == '-':
		a.adjustSpeedup(0.5)
		return nil
	}

	return event
}

// manualDepart fires a manual departure transition
func (a *App) manualDepart() {
	if err := a.monitor.Tracker().TriggerDeparture(time.Now().UTC()); err != nil {
		a.addLog("WARN", fmt.Sprintf("Depart rejected: %v", err))
		return
	}
	a.addLog("INFO", "Manual departure")
}

// manualArrive fires a manual arrival transition
func (a *App) manualArrive() {
	if err := a.monitor.Tracker().TriggerArrival(time.Now().UTC()); err != nil {
		a.addLog("WARN", fmt.Sprintf("Arrive rejected: %v", err))
		return
	}
	a.addLog("INFO", "Manual arrival")
}

// resetFlight resets the lifecycle and restarts the simulated flight
func (a *App) resetFlight() {
	a.monitor.Tracker().Reset()

	a.mu.Lock()
	a.simStart = time.Now().UTC()
	delay := time.Duration(a.config.Telemetry.SimulatorDepartureDelaySeconds * float64(time.Second))
	a.sim = telemetry.NewSimulator(a.profile, a.simStart.Add(delay))
	a.lastPhase = flight.PhasePreDeparture
	a.mu.Unlock()

	a.addLog("INFO", "Flight reset")
}

// togglePause pauses or resumes the simulation clock
func (a *App) togglePause() {
	a.mu.Lock()
	a.paused = !a.paused
	paused := a.paused
	a.mu.Unlock()

	if paused {
		a.addLog("INFO", "Simulation paused")
	} else {
		a.addLog("INFO", "Simulation resumed")
	}
}

// adjustSpeedup scales the time acceleration factor
func (a *App) adjustSpeedup(factor float64) {
	a.mu.Lock()
	a.speedup *= factor
	if a.speedup < 1.0 {
		a.speedup = 1.0
	}
	if a.speedup > 1920.0 {
		a.speedup = 1920.0
	}
	speedup := a.speedup
	a.mu.Unlock()

	a.addLog("DEBUG", fmt.Sprintf("Time factor: %.0fx", speedup))
}

// addLog adds a log message to the log panel
func (a *App) addLog(level, message string) {
	timestamp := time.Now().Format("15:04:05")
	var color string
	switch level {
	case "ERROR":
		color = "red"
	case "WARN":
		color = "yellow"
	case "INFO":
		color = "white"
	case "DEBUG":
		color = "gray"
	default:
		color = "white"
	}

	logLine := fmt.Sprintf("[gray]%s[-] [%s]%-5s[-] %s\n", timestamp, color, level, message)
	fmt.Fprint(a.logs, logLine)
}

// Run starts the application
func (a *App) Run() error {
	a.tickTimer = time.NewTicker(100 * time.Millisecond)
	a.drawTimer = time.NewTicker(500 * time.Millisecond)
	go a.tickLoop()
	go a.drawLoop()

	return a.tviewApp.Run()
}

// tickLoop feeds simulated telemetry into the monitor
func (a *App) tickLoop() {
	for {
		select {
		case <-a.tickTimer.C:
			a.mu.RLock()
			paused := a.paused
			speedup := a.speedup
			start := a.simStart
			sim := a.sim
			a.mu.RUnlock()

			if paused {
				continue
			}

			simNow := start.Add(time.Duration(float64(time.Since(start)) * speedup))
			a.monitor.Tick(sim.Sample(simNow), simNow)

			phase := a.monitor.Status().Phase
			a.mu.Lock()
			changed := phase != a.lastPhase
			a.lastPhase = phase
			a.mu.Unlock()
			if changed {
				a.addLog("INFO", fmt.Sprintf("Phase: %s", phase))
			}
		case <-a.stopChan:
			return
		}
	}
}

// drawLoop refreshes the UI panels
func (a *App) drawLoop() {
	for {
		select {
		case <-a.drawTimer.C:
			snap := a.monitor.Snapshot()
			a.tviewApp.QueueUpdateDraw(func() {
				a.renderFlight(snap)
				a.renderETAs(snap)
			})
		case <-a.stopChan:
			return
		}
	}
}

// renderFlight renders the main route progress view
func (a *App) renderFlight(snap monitor.Snapshot) {
	var b strings.Builder

	phaseColor := "white"
	switch snap.Status.Phase {
	case flight.PhaseInFlight:
		phaseColor = "green"
	case flight.PhasePostArrival:
		phaseColor = "blue"
	}

	fmt.Fprintf(&b, "[yellow]ROUTE:[-] [white]%s[-]\n", a.routeID)
	fmt.Fprintf(&b, "[yellow]PHASE:[-] [%s]%s[-]   [yellow]MODE:[-] [white]%s[-]\n\n",
		phaseColor, snap.Status.Phase, snap.Status.ETAMode)

	fmt.Fprintf(&b, "[gray]Pos:[-]  [white]%.4f°, %.4f°[-]\n", snap.Telemetry.Latitude, snap.Telemetry.Longitude)
	fmt.Fprintf(&b, "[gray]Spd:[-]  [white]%.0f kn[-]   [gray]Hdg:[-] [white]%.0f°[-]\n\n",
		snap.Telemetry.Speed, snap.Telemetry.Heading)

	if snap.Status.ActualDepartureTime != nil {
		fmt.Fprintf(&b, "[gray]Departed:[-] [white]%s[-]\n", snap.Status.ActualDepartureTime.Format("15:04:05"))
	} else {
		fmt.Fprintf(&b, "[gray]Departed:[-] [white]---[-]\n")
	}
	if snap.Status.ActualArrivalTime != nil {
		fmt.Fprintf(&b, "[gray]Arrived:[-]  [white]%s[-]\n", snap.Status.ActualArrivalTime.Format("15:04:05"))
	} else {
		fmt.Fprintf(&b, "[gray]Arrived:[-]  [white]---[-]\n")
	}

	// Waypoint list
	fmt.Fprintf(&b, "\n[yellow]WAYPOINTS[-]\n")
	for i := 0; i < a.profile.NumWaypoints(); i++ {
		wp := a.profile.WaypointAt(i)
		fmt.Fprintf(&b, "  [white]%-12s[-] [gray]%.4f°, %.4f°[-]\n", wp.Name, wp.Latitude, wp.Longitude)
	}

	fmt.Fprintf(&b, "\n[gray]Ticks:[-] [white]%d[-]\n", snap.TickCount)

	a.flightView.SetText(b.String())
}

// renderETAs renders the per-destination estimate panel
func (a *App) renderETAs(snap monitor.Snapshot) {
	var b strings.Builder

	if len(snap.Results) == 0 {
		b.WriteString("[gray]No destinations configured[-]\n")
	}

	for _, r := range snap.Results {
		fmt.Fprintf(&b, "[yellow]%s[-]\n", r.TargetID)
		fmt.Fprintf(&b, "  [gray]Dist:[-] [white]%.1f nm[-]\n", r.DistanceMeters/1852.0)
		if r.Stationary {
			fmt.Fprintf(&b, "  [gray]ETA:[-]  [red]n/a (stationary)[-]\n")
		} else {
			fmt.Fprintf(&b, "  [gray]ETA:[-]  [white]%s[-] [gray](%s)[-]\n",
				time.Duration(r.ETASeconds*float64(time.Second)).Round(time.Second), r.Mode)
		}
	}

	fmt.Fprintf(&b, "\n[yellow]CACHE[-]\n")
	fmt.Fprintf(&b, "  [gray]Hits:[-]    [white]%d[-]\n", snap.Cache.Hits)
	fmt.Fprintf(&b, "  [gray]Misses:[-]  [white]%d[-]\n", snap.Cache.Misses)
	fmt.Fprintf(&b, "  [gray]Rate:[-]    [white]%.0f%%[-]\n", snap.Cache.HitRate*100)
	fmt.Fprintf(&b, "  [gray]Entries:[-] [white]%d[-]\n", snap.Cache.LiveEntries)

	a.etaPanel.SetText(b.String())
}

// Stop stops the application
func (a *App) Stop() {
	a.stopOnce.Do(func() {
		if a.tickTimer != nil {
			a.tickTimer.Stop()
		}
		if a.drawTimer != nil {
			a.drawTimer.Stop()
		}
		close(a.stopChan)
		a.tviewApp.Stop()
	})
}
