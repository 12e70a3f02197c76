// Package trace provides the event-trace records emitted by the simulation engine
// and the sinks that consume them.
// This package has no dependencies on sim/ and stores pure data types.
package trace

// Kind identifies the record type. Its value is the leading token of the text line.
type Kind byte

const (
	KindInsert     Kind = 'I' // packet enqueued
	KindDrain      Kind = 'D' // drain request against the queue
	KindDeparture  Kind = 'L' // one packet left the queue
	KindTransition Kind = 'C' // phase change
)

// Record is a single trace event.
// Size and Occupancy are in bits. From/To are only set for KindTransition.
type Record struct {
	Kind      Kind
	Size      int64
	Occupancy int64
	From      string
	To        string
	Time      float64 // seconds
}

// Insert builds an insert record.
func Insert(size, occupancy int64, t float64) Record {
	return Record{Kind: KindInsert, Size: size, Occupancy: occupancy, Time: t}
}

// Drain builds a drain-request record.
func Drain(bits, occupancy int64, t float64) Record {
	return Record{Kind: KindDrain, Size: bits, Occupancy: occupancy, Time: t}
}

// Departure builds a departure record.
func Departure(size, occupancy int64, t float64) Record {
	return Record{Kind: KindDeparture, Size: size, Occupancy: occupancy, Time: t}
}

// Transition builds a phase-change record.
func Transition(from, to string, t float64) Record {
	return Record{Kind: KindTransition, From: from, To: to, Time: t}
}
