// sim/simulator.go
package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/gepon-sim/gepon-sim/sim/trace"
)

// Simulator is the driver: it owns one Machine and dispatches to the handler of
// its current phase until the clock reaches the horizon.
type Simulator struct {
	Params  Params
	Machine *Machine
	Metrics *Metrics

	feed ArrivalFeed
	sink trace.Sink
}

// NewSimulator wires a machine to its feed, deviates and trace sink.
// Metrics are collected alongside the caller's sink.
func NewSimulator(p Params, feed ArrivalFeed, rng DeviateSource, sink trace.Sink) *Simulator {
	if sink == nil {
		sink = trace.Discard
	}
	metrics := NewMetrics()
	tee := trace.Tee{sink, metrics}
	return &Simulator{
		Params:  p,
		Machine: NewMachine(p, feed, rng, tee),
		Metrics: metrics,
		feed:    feed,
		sink:    sink,
	}
}

// Run executes the simulation until the clock meets or exceeds the horizon.
// It returns an error if the trace could not be written or the arrival feed failed.
func (sim *Simulator) Run() error {
	logrus.Infof("[t=%.9f] Simulation started (horizon=%vs)", sim.Machine.Clock(), sim.Params.Horizon)
	steps := 0
	for sim.Machine.Clock() < sim.Params.Horizon {
		sim.Machine.Step()
		steps++
	}
	sim.Metrics.Finish(sim.Params.Horizon)
	logrus.Infof("[t=%.9f] Simulation ended after %d handler calls in phase %v", sim.Machine.Clock(), steps, sim.Machine.Phase())

	if f, ok := sim.sink.(trace.Flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("writing trace: %w", err)
		}
	}
	if e, ok := sim.feed.(interface{ Err() error }); ok {
		if err := e.Err(); err != nil {
			return fmt.Errorf("reading arrivals: %w", err)
		}
	}
	return nil
}
