package sim

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gepon-sim/gepon-sim/sim/trace"
)

// poissonArrivals returns n arrival times with exponential gaps of the given mean.
func poissonArrivals(seed int64, n int, meanGap float64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	t := 0.0
	for i := range out {
		t += rng.ExpFloat64() * meanGap
		out[i] = t
	}
	return out
}

func runTrace(t *testing.T, p Params, arrivals []float64) (*Simulator, *trace.SimulationTrace) {
	t.Helper()
	st := trace.NewSimulationTrace()
	s := NewSimulator(p, &sliceFeed{times: arrivals}, NewPartitionedRNG(NewSimulationKey(p.Seed)), st)
	require.NoError(t, s.Run())
	return s, st
}

func TestSimulator_EmptyFeed_StaysAsleepSilently(t *testing.T) {
	// GIVEN no arrivals and a horizon of one cycle
	p := testParams()
	p.Horizon = p.CycleLen

	// WHEN run
	s, st := runTrace(t, p, nil)

	// THEN nothing is recorded and the machine never left Sleeping
	assert.Empty(t, st.Records)
	assert.Equal(t, Sleeping, s.Machine.Phase())
	assert.Equal(t, 0, s.Metrics.WakeUps)
}

func TestSimulator_WatermarkArrivals_SingleWakeUp(t *testing.T) {
	// GIVEN exactly a watermark's worth of arrivals inside the first cycle
	p := testParams()
	p.Horizon = p.CycleLen
	arrivals := []float64{0.001, 0.002, 0.003}

	// WHEN run
	_, st := runTrace(t, p, arrivals)

	// THEN exactly one sleeping → waking transition happens, once the watermark is reached
	var wakes []trace.Record
	for _, r := range st.OfKind(trace.KindTransition) {
		if r.From == "OFF" && r.To == "TON" {
			wakes = append(wakes, r)
		}
	}
	require.Len(t, wakes, 1)
	inserts := st.OfKind(trace.KindInsert)
	require.Len(t, inserts, 3)
	assert.Equal(t, p.WatermarkBits, inserts[2].Occupancy)
	assert.GreaterOrEqual(t, wakes[0].Time, inserts[2].Time)
}

func TestSimulator_RandomTraffic_Invariants(t *testing.T) {
	// GIVEN a second of Poisson traffic at 40% of the allocated rate
	p := testParams()
	arrivals := poissonArrivals(11, 400, 1.0/200)

	// WHEN run
	_, st := runTrace(t, p, arrivals)

	// THEN occupancy is never negative and bits are conserved
	summary := trace.Summarize(st)
	assert.GreaterOrEqual(t, summary.MinOccupancy, int64(0))
	assert.True(t, summary.Balanced(), "inserted %d - departed %d != final %d",
		summary.InsertedBits, summary.DepartedBits, summary.FinalOccupancy)
	assert.Greater(t, summary.Departures, 0)

	// THEN every departure is exactly one packet
	for _, d := range st.OfKind(trace.KindDeparture) {
		assert.Equal(t, p.PacketBits, d.Size)
	}

	// THEN every transition is legal and chained from the previous phase
	prev := Sleeping
	for _, r := range st.OfKind(trace.KindTransition) {
		from, ok := ParsePhase(r.From)
		require.True(t, ok)
		to, ok := ParsePhase(r.To)
		require.True(t, ok)
		assert.Equal(t, prev, from)
		assert.True(t, CanTransition(from, to), "%v → %v", from, to)
		prev = to
	}
}

func TestSimulator_HeavyTraffic_AbortsSleep(t *testing.T) {
	// GIVEN traffic close to the allocated rate
	p := testParams()
	arrivals := poissonArrivals(5, 2000, 1.0/450)

	// WHEN run
	s, st := runTrace(t, p, arrivals)

	// THEN the run still conserves bits and ends past the horizon
	assert.True(t, trace.Summarize(st).Balanced())
	assert.GreaterOrEqual(t, s.Machine.Clock(), p.Horizon)
	assert.Greater(t, s.Metrics.PacketsOut, 0)
}

func TestSimulator_SameSeedSameFeed_ByteIdenticalTrace(t *testing.T) {
	p := testParams()
	arrivals := poissonArrivals(21, 300, 1.0/150)

	run := func(seed int64) string {
		var buf bytes.Buffer
		w := trace.NewWriter(&buf)
		feed := &sliceFeed{times: append([]float64(nil), arrivals...)}
		s := NewSimulator(p, feed, NewPartitionedRNG(NewSimulationKey(seed)), w)
		require.NoError(t, s.Run())
		return buf.String()
	}

	first := run(42)
	assert.NotEmpty(t, first)
	assert.Equal(t, first, run(42))
	assert.NotEqual(t, first, run(43))
}

type failingFeed struct {
	sliceFeed
	err error
}

func (f *failingFeed) Err() error { return f.err }

func TestSimulator_FeedError_Returned(t *testing.T) {
	p := testParams()
	feed := &failingFeed{err: assert.AnError}
	s := NewSimulator(p, feed, fixedSource{}, nil)
	err := s.Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestSimulator_Metrics_SleepDominatesLightLoad(t *testing.T) {
	p := testParams()
	arrivals := poissonArrivals(9, 100, 1.0/50)

	s, _ := runTrace(t, p, arrivals)

	m := s.Metrics
	assert.Greater(t, m.PacketsIn, 0)
	assert.Greater(t, m.WakeUps, 0)
	assert.Greater(t, m.SleepRatio(), 0.3)
	total := 0.0
	for _, pt := range m.PhaseTime {
		total += pt
	}
	assert.InDelta(t, m.SimEndedTime, total, 1e-9)
}
