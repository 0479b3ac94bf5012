// Package metrics bundles the Prometheus collectors for the monitoring core
// and exposes a ready-to-use /metrics handler.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/unklstewy/flightwatch/pkg/eta"
	"github.com/unklstewy/flightwatch/pkg/flight"
)

// phaseValue maps phases to a stable numeric encoding for the phase gauge.
var phaseValue = map[flight.Phase]float64{
	flight.PhasePreDeparture: 0,
	flight.PhaseInFlight:     1,
	flight.PhasePostArrival:  2,
}

// Collector bundles the flight-monitoring Prometheus metrics.
type Collector struct {
	gatherer prometheus.Gatherer

	FlightPhase prometheus.Gauge
	TicksTotal  prometheus.Counter

	ETASeconds     *prometheus.GaugeVec
	DistanceMeters *prometheus.GaugeVec

	CacheHits         prometheus.Counter
	CacheMisses       prometheus.Counter
	CacheEntries      prometheus.Gauge
	ComputeDurations  prometheus.Histogram
}

// NewCollector registers the flight metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	phase, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flightwatch_phase",
		Help: "Current flight phase (0 = pre-departure, 1 = in flight, 2 = post-arrival).",
	}), "flightwatch_phase")
	if err != nil {
		return nil, err
	}

	ticks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flightwatch_ticks_total",
		Help: "Total number of telemetry ticks processed.",
	}), "flightwatch_ticks_total")
	if err != nil {
		return nil, err
	}

	etaGauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "flightwatch_eta_seconds",
		Help: "Current ETA per destination in seconds (-1 when stationary).",
	}, []string{"destination", "mode"})
	etaGauge, err = registerGaugeVec(reg, etaGauge, "flightwatch_eta_seconds")
	if err != nil {
		return nil, err
	}

	distGauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "flightwatch_distance_meters",
		Help: "Current great-circle distance per destination in meters.",
	}, []string{"destination", "mode"})
	distGauge, err = registerGaugeVec(reg, distGauge, "flightwatch_distance_meters")
	if err != nil {
		return nil, err
	}

	hits, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flightwatch_eta_cache_hits_total",
		Help: "Total ETA cache hits.",
	}), "flightwatch_eta_cache_hits_total")
	if err != nil {
		return nil, err
	}
	misses, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flightwatch_eta_cache_misses_total",
		Help: "Total ETA cache misses.",
	}), "flightwatch_eta_cache_misses_total")
	if err != nil {
		return nil, err
	}
	entries, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flightwatch_eta_cache_entries",
		Help: "Live entries in the ETA cache.",
	}), "flightwatch_eta_cache_entries")
	if err != nil {
		return nil, err
	}

	durations := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "flightwatch_eta_compute_duration_seconds",
		Help:    "ETA computation latency in seconds.",
		Buckets: []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01},
	})
	durations, err = registerHistogram(reg, durations, "flightwatch_eta_compute_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:         gatherer,
		FlightPhase:      phase,
		TicksTotal:       ticks,
		ETASeconds:       etaGauge,
		DistanceMeters:   distGauge,
		CacheHits:        hits,
		CacheMisses:      misses,
		CacheEntries:     entries,
		ComputeDurations: durations,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// RecordPhase publishes the current phase.
func (c *Collector) RecordPhase(phase flight.Phase) {
	if c == nil || c.FlightPhase == nil {
		return
	}
	c.FlightPhase.Set(phaseValue[phase])
}

// RecordTick counts one processed telemetry tick.
func (c *Collector) RecordTick() {
	if c == nil || c.TicksTotal == nil {
		return
	}
	c.TicksTotal.Inc()
}

// RecordResult publishes one destination's ETA and distance.
func (c *Collector) RecordResult(result eta.Result) {
	if c == nil {
		return
	}
	mode := string(result.Mode)
	if c.ETASeconds != nil {
		c.ETASeconds.WithLabelValues(result.TargetID, mode).Set(result.ETASeconds)
	}
	if c.DistanceMeters != nil {
		c.DistanceMeters.WithLabelValues(result.TargetID, mode).Set(result.DistanceMeters)
	}
}

// RecordCacheStats publishes the cache's observability snapshot. Hit/miss
// counters in the snapshot are cumulative; the collector advances its own
// counters by the delta since the previous call.
func (c *Collector) RecordCacheStats(prev, cur eta.Stats) {
	if c == nil {
		return
	}
	if c.CacheHits != nil && cur.Hits >= prev.Hits {
		c.CacheHits.Add(float64(cur.Hits - prev.Hits))
	}
	if c.CacheMisses != nil && cur.Misses >= prev.Misses {
		c.CacheMisses.Add(float64(cur.Misses - prev.Misses))
	}
	if c.CacheEntries != nil {
		c.CacheEntries.Set(float64(cur.LiveEntries))
	}
}

// ObserveCompute records one calculator invocation's latency.
func (c *Collector) ObserveCompute(seconds float64) {
	if c == nil || c.ComputeDurations == nil {
		return
	}
	c.ComputeDurations.Observe(seconds)
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}
