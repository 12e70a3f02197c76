package sim

import (
	"math"

	"github.com/gepon-sim/gepon-sim/sim/internal/testutil"
	"github.com/gepon-sim/gepon-sim/sim/trace"
)

// testParams returns round numbers that keep hand-computed traces readable:
// one packet takes 1ms, a cycle is 10ms, the allocation is 5 packets per cycle.
func testParams() Params {
	return Params{
		PacketBits:     1000,
		CapacityBps:    1e6,
		AllocatedBps:   5e5,
		WatermarkBits:  3000,
		CycleLen:       0.01,
		WakeupLen:      0.002,
		RefreshTimeout: 0.05,
		Horizon:        1,
		Seed:           7,
	}
}

// fixedSource hands out scripted deviates per subsystem; unknown subsystems get 0.5.
type fixedSource map[string]*testutil.SequenceDeviates

func (f fixedSource) ForSubsystem(name string) Deviates {
	if d, ok := f[name]; ok {
		return d
	}
	d := &testutil.SequenceDeviates{Values: []float64{0.5}}
	f[name] = d
	return d
}

// sliceFeed is a minimal in-package ArrivalFeed.
type sliceFeed struct {
	times []float64
}

func (f *sliceFeed) Next() (float64, bool) {
	if len(f.times) == 0 {
		return 0, false
	}
	t := f.times[0]
	f.times = f.times[1:]
	return t, true
}

func newTestMachine(p Params, arrivals ...float64) (*Machine, *trace.SimulationTrace) {
	st := trace.NewSimulationTrace()
	return NewMachine(p, &sliceFeed{times: arrivals}, fixedSource{}, st), st
}

func transitions(st *trace.SimulationTrace) []string {
	var out []string
	for _, r := range st.OfKind(trace.KindTransition) {
		out = append(out, r.From+"→"+r.To)
	}
	return out
}

func posInf() float64 { return math.Inf(1) }
