package sim

import (
	"fmt"
	"math"
)

// cycleEpsilon keeps a clock sitting exactly on a cycle boundary from being
// rounded into the previous cycle.
const cycleEpsilon = 1e-9

// CycleClock is pure arithmetic over the allocation-cycle grid.
type CycleClock struct {
	CycleLen     float64 // seconds
	WakeupLen    float64 // seconds
	CapacityBps  float64
	AllocatedBps float64
}

// NewCycleClock builds the cycle grid for p.
func NewCycleClock(p Params) CycleClock {
	return CycleClock{
		CycleLen:     p.CycleLen,
		WakeupLen:    p.WakeupLen,
		CapacityBps:  p.CapacityBps,
		AllocatedBps: p.AllocatedBps,
	}
}

// NextStart returns the start of the first cycle strictly after now.
func (c CycleClock) NextStart(now float64) float64 {
	completed := math.Floor((now + cycleEpsilon) / c.CycleLen)
	return (completed + 1) * c.CycleLen
}

// CurrentStart returns the start of the cycle containing now.
func (c CycleClock) CurrentStart(now float64) float64 {
	return c.NextStart(now) - c.CycleLen
}

// Slack is the part of a cycle not needed to send one cycle's allocation at full rate.
func (c CycleClock) Slack() float64 {
	needed := c.AllocatedBps * c.CycleLen / c.CapacityBps
	return c.CycleLen - needed
}

// TransmitOffset picks the instant in the current cycle at which transmission starts,
// uniformly within the cycle's slack. It must be called at the top of a cycle's
// transmission logic, once per cycle; a start that is not after now panics.
func (c CycleClock) TransmitOffset(now float64, u Deviates) float64 {
	slack := c.Slack()
	base := c.CurrentStart(now)
	if base < now && now-base <= cycleEpsilon {
		// now is on the boundary; base differs only by grid rounding
		base = now
	}
	start := base + u.Float64()*slack
	if start < now || (start == now && slack > 0) {
		panic(fmt.Sprintf("TransmitOffset: start %v is not after clock %v (cycle %v, slack %v)", start, now, c.CycleLen, slack))
	}
	return start
}

// WakeTarget returns when the wake-up transition must begin so the transmitter is
// ready at the next cycle start. If now is already past that point the target
// moves one cycle later.
func (c CycleClock) WakeTarget(now float64) float64 {
	target := c.NextStart(now) - c.WakeupLen
	if now > target {
		target += c.CycleLen
	}
	return target
}
