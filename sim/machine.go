// Implements the power-state machine of the endpoint: one handler per phase,
// each running until its phase's exit condition is met.

package sim

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/gepon-sim/gepon-sim/sim/trace"
)

// ArrivalFeed supplies packet arrival timestamps (seconds) in non-decreasing order.
// ok is false once the feed is exhausted.
type ArrivalFeed interface {
	Next() (t float64, ok bool)
}

// pendingTime is an optional instant.
type pendingTime struct {
	at  float64
	set bool
}

func (p *pendingTime) put(t float64) { p.at, p.set = t, true }
func (p *pendingTime) clear()        { *p = pendingTime{} }

// Machine owns the complete state of one simulated endpoint.
// Not safe for concurrent use.
type Machine struct {
	params Params
	cycle  CycleClock
	queue  *Queue
	feed   ArrivalFeed
	sink   trace.Sink

	transmitRNG Deviates
	quiesceRNG  Deviates

	phase       Phase
	clock       float64
	nextArrival pendingTime // not yet fetched from the feed when unset
	refreshDue  pendingTime // not armed when unset
	exhausted   bool
}

// NewMachine creates a machine in the Sleeping phase at time 0 with an empty queue.
func NewMachine(p Params, feed ArrivalFeed, rng DeviateSource, sink trace.Sink) *Machine {
	if sink == nil {
		sink = trace.Discard
	}
	return &Machine{
		params:      p,
		cycle:       NewCycleClock(p),
		queue:       NewQueue(p.PacketBits, p.CapacityBps, sink),
		feed:        feed,
		sink:        sink,
		transmitRNG: rng.ForSubsystem(SubsystemTransmit),
		quiesceRNG:  rng.ForSubsystem(SubsystemQuiesce),
		phase:       Sleeping,
	}
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase { return m.phase }

// Clock returns the current simulation time in seconds.
func (m *Machine) Clock() float64 { return m.clock }

// QueueBits returns the current queue occupancy in bits.
func (m *Machine) QueueBits() int64 { return m.queue.Bits() }

// Step runs the handler of the current phase once.
func (m *Machine) Step() {
	switch m.phase {
	case Sleeping:
		m.sleep()
	case Waking:
		m.wake()
	case Active:
		m.transmit()
	case Quiescing:
		m.quiesce()
	default:
		panic(fmt.Sprintf("Step: unknown phase %v", m.phase))
	}
}

func (m *Machine) changePhase(to Phase) {
	if !CanTransition(m.phase, to) {
		panic(fmt.Sprintf("changePhase: illegal transition %v → %v at %v", m.phase, to, m.clock))
	}
	logrus.Debugf("[t=%.9f] %v → %v (queue=%d bits)", m.clock, m.phase, to, m.queue.Bits())
	m.sink.Record(trace.Transition(m.phase.String(), to.String(), m.clock))
	m.phase = to
}

// peekArrival returns the pending arrival, pulling it from the feed if unknown.
// An exhausted feed yields +Inf, which never satisfies any arrival bound.
func (m *Machine) peekArrival() float64 {
	if !m.nextArrival.set {
		t, ok := m.feed.Next()
		if !ok {
			if !m.exhausted {
				logrus.Infof("[t=%.9f] arrival feed exhausted", m.clock)
				m.exhausted = true
			}
			t = math.Inf(1)
		}
		m.nextArrival.put(t)
	}
	return m.nextArrival.at
}

func (m *Machine) enqueuePacket() {
	m.queue.Enqueue(m.params.PacketBits, m.clock)
}

// absorbUntil enqueues, at the current clock, every arrival strictly before bound.
func (m *Machine) absorbUntil(bound float64) {
	for m.peekArrival() < bound {
		m.enqueuePacket()
		m.nextArrival.clear()
	}
}

// absorbThrough enqueues, at the current clock, every arrival at or before bound.
func (m *Machine) absorbThrough(bound float64) {
	for m.peekArrival() <= bound {
		m.enqueuePacket()
		m.nextArrival.clear()
	}
}

// sleep handles one arrival while the transmitter is off.
func (m *Machine) sleep() {
	if !m.refreshDue.set {
		m.refreshDue.put(m.clock + m.params.MaxOff())
	}

	at := m.peekArrival()
	if math.IsInf(at, 1) {
		// nothing will ever arrive again
		m.clock = at
		return
	}
	m.clock = at
	m.enqueuePacket()
	m.nextArrival.clear()

	if m.queue.Bits() < m.params.WatermarkBits && m.clock < m.refreshDue.at-m.params.CycleLen {
		return
	}

	target := m.cycle.WakeTarget(m.clock)
	m.absorbThrough(target)
	m.clock = target
	m.refreshDue.clear()
	m.changePhase(Waking)
}

// wake covers the wake-up latency and the report/grant cycle.
func (m *Machine) wake() {
	exit := m.clock + m.params.WakeupLen + m.params.CycleLen
	m.absorbThrough(exit)
	m.clock = exit
	m.changePhase(Active)
}

// transmit drains the queue one allocation window per cycle until it is empty.
func (m *Machine) transmit() {
	budget := m.params.CycleBudgetBits()
	txTime := m.params.AllocatedBps * m.params.CycleLen / m.params.CapacityBps

	if m.queue.Bits() == 0 {
		m.changePhase(Quiescing)
		return
	}
	for m.queue.Bits() > 0 {
		m.peekArrival()
		m.clock = m.cycle.TransmitOffset(m.clock, m.transmitRNG)
		m.absorbUntil(m.clock + txTime)
		m.clock = m.queue.Drain(budget, m.clock)

		if m.queue.Bits() == 0 {
			m.changePhase(Quiescing)
			return
		}
		m.clock = m.cycle.NextStart(m.clock)
		m.absorbUntil(m.clock)
	}
}

// quiesce waits for the report in the first half of the next cycle and decides
// whether to power down.
func (m *Machine) quiesce() {
	next := m.cycle.NextStart(m.clock)
	confirm := next + m.quiesceRNG.Float64()*m.params.CycleLen/2

	for at := m.peekArrival(); at < confirm; at = m.peekArrival() {
		m.clock = math.Max(m.clock, at)
		m.enqueuePacket()
		m.nextArrival.clear()
	}
	m.clock = confirm

	if m.queue.Bits() < m.params.WatermarkBits {
		m.changePhase(Sleeping)
		return
	}
	// sleep abandoned: resume at the top of the cycle rather than mid-cycle
	m.clock = next
	m.changePhase(Active)
}
