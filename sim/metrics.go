// Tracks run-wide metrics of the endpoint: time spent in each phase,
// sleep periods, traffic volume and queue occupancy.

package sim

import (
	"fmt"
	"io"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/gepon-sim/gepon-sim/sim/trace"
)

// Metrics aggregates statistics about the simulation for final reporting.
// It observes the trace stream, so it can be attached to any run as a trace.Sink.
type Metrics struct {
	PacketsIn     int   // packets enqueued
	PacketsOut    int   // packets transmitted
	BitsIn        int64 // bits enqueued
	BitsOut       int64 // bits transmitted
	PeakQueueBits int64 // max occupancy seen

	PhaseTime     [4]float64 // seconds spent per Phase, indexed by Phase
	WakeUps       int        // Sleeping → Waking transitions
	AbortedSleeps int        // Quiescing → Active transitions
	SleepPeriods  []float64  // duration of each completed sleep period (s)

	SimEndedTime float64 // time at which accounting stopped

	phase      Phase
	lastChange float64
	lastQueue  float64 // time of the last occupancy change
	occupancy  int64
	occValues  []float64 // occupancy (bits) held over each interval
	occWeights []float64 // interval lengths (s)
}

// NewMetrics creates metrics for a run starting in Sleeping at time 0.
func NewMetrics() *Metrics {
	return &Metrics{phase: Sleeping}
}

// Record implements trace.Sink.
func (m *Metrics) Record(r trace.Record) {
	switch r.Kind {
	case trace.KindInsert:
		m.PacketsIn++
		m.BitsIn += r.Size
		m.observeOccupancy(r)
	case trace.KindDeparture:
		m.PacketsOut++
		m.BitsOut += r.Size
		m.observeOccupancy(r)
	case trace.KindTransition:
		to, ok := ParsePhase(r.To)
		if !ok {
			return
		}
		spent := math.Max(0, r.Time-m.lastChange)
		m.PhaseTime[m.phase] += spent
		switch {
		case m.phase == Sleeping && to == Waking:
			m.WakeUps++
			m.SleepPeriods = append(m.SleepPeriods, spent)
		case m.phase == Quiescing && to == Active:
			m.AbortedSleeps++
		}
		m.phase = to
		m.lastChange = math.Max(m.lastChange, r.Time)
	}
}

func (m *Metrics) observeOccupancy(r trace.Record) {
	if dt := r.Time - m.lastQueue; dt > 0 {
		m.occValues = append(m.occValues, float64(m.occupancy))
		m.occWeights = append(m.occWeights, dt)
		m.lastQueue = r.Time
	}
	m.occupancy = r.Occupancy
	m.PeakQueueBits = max(m.PeakQueueBits, r.Occupancy)
}

// Finish closes the accounting at time end (normally the horizon).
func (m *Metrics) Finish(end float64) {
	if math.IsInf(end, 0) || math.IsNaN(end) {
		end = m.lastChange
	}
	m.SimEndedTime = math.Max(end, m.lastChange)
	m.PhaseTime[m.phase] += m.SimEndedTime - m.lastChange
	m.lastChange = m.SimEndedTime
	if dt := m.SimEndedTime - m.lastQueue; dt > 0 {
		m.occValues = append(m.occValues, float64(m.occupancy))
		m.occWeights = append(m.occWeights, dt)
		m.lastQueue = m.SimEndedTime
	}
}

// SleepRatio is the fraction of simulated time the transmitter was off.
func (m *Metrics) SleepRatio() float64 {
	if m.SimEndedTime <= 0 {
		return 0
	}
	return m.PhaseTime[Sleeping] / m.SimEndedTime
}

// MeanQueueBits is the time-weighted mean occupancy.
func (m *Metrics) MeanQueueBits() float64 {
	if len(m.occValues) == 0 {
		return 0
	}
	return stat.Mean(m.occValues, m.occWeights)
}

// SleepStats returns mean, standard deviation and 95th percentile of the sleep periods.
func (m *Metrics) SleepStats() (mean, stdDev, p95 float64) {
	switch len(m.SleepPeriods) {
	case 0:
		return 0, 0, 0
	case 1:
		return m.SleepPeriods[0], 0, m.SleepPeriods[0]
	}
	mean, stdDev = stat.MeanStdDev(m.SleepPeriods, nil)
	sorted := append([]float64(nil), m.SleepPeriods...)
	sort.Float64s(sorted)
	p95 = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	return mean, stdDev, p95
}

// Print writes the aggregated metrics to w.
func (m *Metrics) Print(w io.Writer) {
	mean, sd, p95 := m.SleepStats()
	fmt.Fprintln(w, "=== Simulation Metrics ===")
	fmt.Fprintf(w, "Simulated Time       : %.6f s\n", m.SimEndedTime)
	fmt.Fprintf(w, "Packets In / Out     : %d / %d\n", m.PacketsIn, m.PacketsOut)
	fmt.Fprintf(w, "Peak Queue           : %d bits\n", m.PeakQueueBits)
	fmt.Fprintf(w, "Mean Queue           : %.2f bits\n", m.MeanQueueBits())
	for _, p := range Phases() {
		fmt.Fprintf(w, "Time in %-4s         : %.6f s\n", p, m.PhaseTime[p])
	}
	fmt.Fprintf(w, "Sleep Ratio          : %.4f\n", m.SleepRatio())
	fmt.Fprintf(w, "Wake-ups             : %d\n", m.WakeUps)
	fmt.Fprintf(w, "Aborted Sleeps       : %d\n", m.AbortedSleeps)
	if len(m.SleepPeriods) > 0 {
		fmt.Fprintf(w, "Sleep Period         : mean %.6f s, stddev %.6f s, p95 %.6f s\n", mean, sd, p95)
	}
}
