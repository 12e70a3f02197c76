package trace

import (
	"bufio"
	"io"
	"strconv"
)

// Sink consumes trace records in emission order.
type Sink interface {
	Record(r Record)
}

// Flusher is implemented by sinks that buffer output.
type Flusher interface {
	Flush() error
}

// Writer renders records as text lines:
//
//	I <size> <occupancy> @ <time>
//	D <bits> <occupancy> @ <time>
//	L <size> <occupancy> @ <time>
//	C <from> → <to> @ <time>
//
// Times use the shortest decimal that round-trips, so equal runs give equal bytes.
// The first write error is kept and returned by Flush; later records are dropped.
type Writer struct {
	w   *bufio.Writer
	buf []byte
	err error
}

// NewWriter creates a Writer on top of w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w), buf: make([]byte, 0, 64)}
}

// Record appends one line.
func (tw *Writer) Record(r Record) {
	if tw.err != nil {
		return
	}
	tw.buf = AppendLine(tw.buf[:0], r)
	_, tw.err = tw.w.Write(tw.buf)
}

// Flush writes any buffered lines to the underlying writer.
func (tw *Writer) Flush() error {
	if tw.err != nil {
		return tw.err
	}
	return tw.w.Flush()
}

// AppendLine appends the text form of r, including the trailing newline, to dst.
func AppendLine(dst []byte, r Record) []byte {
	dst = append(dst, byte(r.Kind), ' ')
	if r.Kind == KindTransition {
		dst = append(dst, r.From...)
		dst = append(dst, " → "...)
		dst = append(dst, r.To...)
	} else {
		dst = strconv.AppendInt(dst, r.Size, 10)
		dst = append(dst, ' ')
		dst = strconv.AppendInt(dst, r.Occupancy, 10)
	}
	dst = append(dst, " @ "...)
	dst = strconv.AppendFloat(dst, r.Time, 'g', -1, 64)
	return append(dst, '\n')
}

// SimulationTrace collects records in memory.
type SimulationTrace struct {
	Records []Record
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace() *SimulationTrace {
	return &SimulationTrace{Records: make([]Record, 0)}
}

// Record appends a record.
func (st *SimulationTrace) Record(r Record) {
	st.Records = append(st.Records, r)
}

// OfKind returns the records of the given kind, in order.
func (st *SimulationTrace) OfKind(k Kind) []Record {
	var out []Record
	for _, r := range st.Records {
		if r.Kind == k {
			out = append(out, r)
		}
	}
	return out
}

// Tee fans every record out to all sinks, in argument order.
type Tee []Sink

// Record forwards r to each sink.
func (t Tee) Record(r Record) {
	for _, s := range t {
		s.Record(r)
	}
}

// Flush flushes every sink that buffers, returning the first error.
func (t Tee) Flush() error {
	var first error
	for _, s := range t {
		if f, ok := s.(Flusher); ok {
			if err := f.Flush(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

// Discard drops every record.
var Discard Sink = discard{}

type discard struct{}

func (discard) Record(Record) {}
