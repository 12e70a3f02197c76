// Package testutil provides shared test infrastructure for the simulator.
// It consolidates deterministic deviate sources and float assertion helpers
// used across sim/ test packages.
package testutil

import (
	"math"
	"testing"
)

// SequenceDeviates returns the given values in order, cycling when exhausted.
// It satisfies the simulator's Deviates interface.
type SequenceDeviates struct {
	Values []float64
	pos    int
}

// Float64 returns the next value of the sequence.
func (s *SequenceDeviates) Float64() float64 {
	if len(s.Values) == 0 {
		return 0.5
	}
	v := s.Values[s.pos%len(s.Values)]
	s.pos++
	return v
}

// Calls returns how many values have been drawn.
func (s *SequenceDeviates) Calls() int {
	return s.pos
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
