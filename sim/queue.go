// Implements the endpoint's byte queue. Occupancy is tracked in bits and
// drained one whole packet at a time.

package sim

import (
	"fmt"

	"github.com/gepon-sim/gepon-sim/sim/trace"
)

// Queue models the upstream queue of the endpoint.
// Drains are packet-granular: credit that does not buy a whole queued packet
// is carried over to the next Drain call as the pending remainder.
type Queue struct {
	packetBits  int64
	capacityBps float64
	occupancy   int64 // bits
	remainder   int64 // bits of drain credit not yet used
	sink        trace.Sink
}

// NewQueue creates an empty queue.
func NewQueue(packetBits int64, capacityBps float64, sink trace.Sink) *Queue {
	if packetBits <= 0 {
		panic(fmt.Sprintf("NewQueue: packetBits must be > 0, got %d", packetBits))
	}
	if sink == nil {
		sink = trace.Discard
	}
	return &Queue{packetBits: packetBits, capacityBps: capacityBps, sink: sink}
}

// Bits returns the current occupancy in bits.
func (q *Queue) Bits() int64 {
	return q.occupancy
}

// Remainder returns the carried drain credit in bits.
func (q *Queue) Remainder() int64 {
	return q.remainder
}

// Enqueue adds size bits at time now.
func (q *Queue) Enqueue(size int64, now float64) {
	if size < 0 {
		panic(fmt.Sprintf("Enqueue: negative size %d", size))
	}
	q.occupancy += size
	q.sink.Record(trace.Insert(size, q.occupancy, now))
}

// Drain spends bits of transmission credit starting at time now and returns the
// time after the last departure. Each whole packet takes packetBits/capacity
// seconds and is recorded as its own departure. Credit left once fewer than a
// packet's worth of credit or backlog remains, including whole packets of grant
// the backlog could not use, is carried into the next call.
func (q *Queue) Drain(bits int64, now float64) float64 {
	if bits < 0 {
		panic(fmt.Sprintf("Drain: negative credit %d", bits))
	}
	bits += q.remainder
	q.sink.Record(trace.Drain(bits, q.occupancy, now))

	txTime := float64(q.packetBits) / q.capacityBps
	for bits >= q.packetBits && q.occupancy >= q.packetBits {
		now += txTime
		q.occupancy -= q.packetBits
		bits -= q.packetBits
		q.sink.Record(trace.Departure(q.packetBits, q.occupancy, now))
	}
	q.remainder = bits
	return now
}
