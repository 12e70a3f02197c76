// Package sim provides the discrete-event engine that models upstream sleep
// mode for a single ONU under a cyclic DBA.
//
// # Reading Guide
//
// Start with these files to understand the engine:
//   - phase.go: the four phases (OFF, TON, ON, TOFF) and the legal transition table
//   - machine.go: per-phase handlers that advance the clock and drive the queue
//   - simulator.go: the run loop, sink flushing and feed error reporting
//
// # Architecture
//
// The engine is single-threaded. A Simulator owns one Machine, which owns its
// clock, Queue, pending arrival and refresh deadline. Supporting pieces:
//   - cycle.go: DBA cycle arithmetic (next start, transmit offset, wake target)
//   - queue.go: packet-granular drain with a carried remainder
//   - rng.go: per-subsystem uniform deviates (math/rand or MRG32k3a)
//   - metrics.go: run aggregates computed from the record stream
//
// Sub-packages:
//   - sim/trace/: trace records, the text writer and in-memory collection
//   - sim/workload/: arrival feeds (text reader, in-memory slice)
//   - sim/observability/: Prometheus export of run metrics
package sim
