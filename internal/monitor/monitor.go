// Package monitor composes the tracker, calculator, and cache into the
// single-writer tick loop that drives the monitoring core.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/unklstewy/flightwatch/internal/metrics"
	"github.com/unklstewy/flightwatch/pkg/eta"
	"github.com/unklstewy/flightwatch/pkg/flight"
	"github.com/unklstewy/flightwatch/pkg/route"
	"github.com/unklstewy/flightwatch/pkg/telemetry"
)

// Snapshot is the consistent read model handed to API handlers and
// dashboards: the lifecycle status, the latest per-destination estimates, the
// last telemetry report, and cache statistics.
type Snapshot struct {
	Status    flight.Status       `json:"status"`
	Results   []eta.Result        `json:"results"`
	Telemetry telemetry.Telemetry `json:"telemetry"`
	Cache     eta.Stats           `json:"cache"`
	TickCount uint64              `json:"tick_count"`
}

// Monitor owns the telemetry tick path. Exactly one goroutine calls Tick (or
// Run); any number of goroutines may call the read methods concurrently.
type Monitor struct {
	tracker   *flight.Tracker
	calc      *eta.Calculator
	cache     *eta.Cache
	collector *metrics.Collector
	log       *zap.Logger

	targets []eta.Target

	// read model, written only by Tick
	mu        sync.RWMutex
	latest    telemetry.Telemetry
	results   map[string]eta.Result
	tickCount uint64
	lastStats eta.Stats
}

// New assembles a monitor. The collector may be nil when metrics are
// disabled; a nil logger disables logging.
func New(tracker *flight.Tracker, calc *eta.Calculator, cache *eta.Cache, collector *metrics.Collector, targets []eta.Target, log *zap.Logger) *Monitor {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Monitor{
		tracker:   tracker,
		calc:      calc,
		cache:     cache,
		collector: collector,
		log:       log,
		targets:   append([]eta.Target(nil), targets...),
		results:   make(map[string]eta.Result),
	}
	return m
}

// UseProfile installs a route timing profile and points arrival detection at
// its destination. Called at startup and by the route watcher on hot reload.
func (m *Monitor) UseProfile(p *route.TimingProfile) {
	m.calc.SetProfile(p)
	if p != nil {
		m.tracker.SetActiveRoute(p.RouteID())
		m.tracker.SetDestination(p.Destination().Position())
	}
}

// Targets returns the destination set ETAs are computed for.
func (m *Monitor) Targets() []eta.Target {
	return append([]eta.Target(nil), m.targets...)
}

// Tick processes one telemetry report: advances the phase state machine,
// then refreshes every destination's estimate through the cache under the
// now-current mode.
func (m *Monitor) Tick(tel telemetry.Telemetry, now time.Time) {
	m.tracker.Update(tel)
	status := m.tracker.Status()

	norm, _ := tel.Normalize(now)
	position := norm.Position()

	results := make(map[string]eta.Result, len(m.targets))
	for _, target := range m.targets {
		tgt := target
		result, err := m.cache.GetOrCompute(tgt, status.ETAMode, func() (eta.Result, error) {
			start := time.Now()
			r, err := m.calc.Compute(tgt, position, norm.Speed, status.ETAMode, now)
			if err == nil && m.collector != nil {
				m.collector.ObserveCompute(time.Since(start).Seconds())
			}
			return r, err
		})
		if err != nil {
			m.log.Warn("eta computation failed",
				zap.String("target", tgt.ID),
				zap.Error(err))
			continue
		}
		results[tgt.ID] = result
		if m.collector != nil {
			m.collector.RecordResult(result)
		}
	}

	stats := m.cache.Stats()

	m.mu.Lock()
	m.latest = norm
	m.results = results
	m.tickCount++
	prev := m.lastStats
	m.lastStats = stats
	m.mu.Unlock()

	if m.collector != nil {
		m.collector.RecordTick()
		m.collector.RecordPhase(status.Phase)
		m.collector.RecordCacheStats(prev, stats)
	}
}

// Snapshot returns a consistent copy of the read model.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	results := make([]eta.Result, 0, len(m.results))
	for _, r := range m.results {
		results = append(results, r)
	}
	latest := m.latest
	ticks := m.tickCount
	stats := m.lastStats
	m.mu.RUnlock()

	return Snapshot{
		Status:    m.tracker.Status(),
		Results:   results,
		Telemetry: latest,
		Cache:     stats,
		TickCount: ticks,
	}
}

// Status returns the current lifecycle record.
func (m *Monitor) Status() flight.Status {
	return m.tracker.Status()
}

// Tracker exposes the manual control surface (triggers, reset).
func (m *Monitor) Tracker() *flight.Tracker {
	return m.tracker
}

// CacheStats returns the cache observability snapshot.
func (m *Monitor) CacheStats() eta.Stats {
	return m.cache.Stats()
}

// Run drives the tick loop from a telemetry source at the given rate until
// the context is cancelled. The rate limiter keeps the cadence steady even
// when individual ticks are cheap.
func (m *Monitor) Run(ctx context.Context, source telemetry.Source, tickRateHz float64) error {
	if tickRateHz <= 0 {
		tickRateHz = 10.0
	}
	limiter := rate.NewLimiter(rate.Limit(tickRateHz), 1)

	// Sweep expired cache entries in the background for the life of the run.
	go m.cache.RunSweeper(ctx, 0)

	for {
		if err := limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("tick limiter: %w", err)
		}
		now := time.Now().UTC()
		m.Tick(source.Sample(now), now)
	}
}
