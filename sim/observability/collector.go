// Package observability exports run metrics as Prometheus series so parameter
// sweeps can be scraped through the node_exporter textfile collector.
package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gepon-sim/gepon-sim/sim"
)

// RunCollector bundles the Prometheus metrics describing one simulation run.
type RunCollector struct {
	gatherer prometheus.Gatherer

	PacketsIn     prometheus.Counter
	PacketsOut    prometheus.Counter
	WakeUps       prometheus.Counter
	AbortedSleeps prometheus.Counter
	PhaseSeconds  *prometheus.GaugeVec
	SleepRatio    prometheus.Gauge
	PeakQueueBits prometheus.Gauge
	MeanQueueBits prometheus.Gauge
	SleepPeriods  prometheus.Histogram
}

// NewRunCollector registers run metrics against reg, defaulting to the global
// registry when nil. constLabels are attached to every series, typically the
// swept parameters of the run.
func NewRunCollector(reg prometheus.Registerer, constLabels prometheus.Labels) (*RunCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &RunCollector{
		gatherer: gatherer,
		PacketsIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "onu_packets_enqueued_total", Help: "Packets that arrived at the endpoint queue.", ConstLabels: constLabels,
		}),
		PacketsOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "onu_packets_transmitted_total", Help: "Packets transmitted upstream.", ConstLabels: constLabels,
		}),
		WakeUps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "onu_wakeups_total", Help: "Transitions from sleeping to waking.", ConstLabels: constLabels,
		}),
		AbortedSleeps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "onu_aborted_sleeps_total", Help: "Quiescing periods that resumed transmission instead of sleeping.", ConstLabels: constLabels,
		}),
		PhaseSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "onu_phase_seconds", Help: "Simulated time spent in each phase.", ConstLabels: constLabels,
		}, []string{"phase"}),
		SleepRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "onu_sleep_ratio", Help: "Fraction of simulated time with the transmitter off.", ConstLabels: constLabels,
		}),
		PeakQueueBits: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "onu_queue_peak_bits", Help: "Largest queue occupancy observed.", ConstLabels: constLabels,
		}),
		MeanQueueBits: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "onu_queue_mean_bits", Help: "Time-weighted mean queue occupancy.", ConstLabels: constLabels,
		}),
		SleepPeriods: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "onu_sleep_period_seconds",
			Help:        "Duration of completed sleep periods.",
			ConstLabels: constLabels,
			Buckets:     []float64{0.002, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1},
		}),
	}

	for name, col := range map[string]prometheus.Collector{
		"onu_packets_enqueued_total":    c.PacketsIn,
		"onu_packets_transmitted_total": c.PacketsOut,
		"onu_wakeups_total":             c.WakeUps,
		"onu_aborted_sleeps_total":      c.AbortedSleeps,
		"onu_phase_seconds":             c.PhaseSeconds,
		"onu_sleep_ratio":               c.SleepRatio,
		"onu_queue_peak_bits":           c.PeakQueueBits,
		"onu_queue_mean_bits":           c.MeanQueueBits,
		"onu_sleep_period_seconds":      c.SleepPeriods,
	} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("register %s: %w", name, err)
		}
	}
	return c, nil
}

// Gatherer returns the gatherer backing the registerer used at construction.
func (c *RunCollector) Gatherer() prometheus.Gatherer {
	return c.gatherer
}

// Observe copies the final metrics of a run into the collector.
func (c *RunCollector) Observe(m *sim.Metrics) {
	c.PacketsIn.Add(float64(m.PacketsIn))
	c.PacketsOut.Add(float64(m.PacketsOut))
	c.WakeUps.Add(float64(m.WakeUps))
	c.AbortedSleeps.Add(float64(m.AbortedSleeps))
	for _, p := range sim.Phases() {
		c.PhaseSeconds.WithLabelValues(p.String()).Set(m.PhaseTime[p])
	}
	c.SleepRatio.Set(m.SleepRatio())
	c.PeakQueueBits.Set(float64(m.PeakQueueBits))
	c.MeanQueueBits.Set(m.MeanQueueBits())
	for _, d := range m.SleepPeriods {
		c.SleepPeriods.Observe(d)
	}
}

// WriteTextfile writes every gathered series to path in the text exposition format.
func (c *RunCollector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.gatherer); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
