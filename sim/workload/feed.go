// Package workload provides arrival feeds: ordered packet arrival timestamps
// consumed by the simulator.
package workload

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/sirupsen/logrus"
)

// TextFeed reads whitespace-separated arrival timestamps (seconds) from a reader.
// Timestamps must be non-negative and non-decreasing. A malformed or out-of-order
// value ends the feed; Err reports it.
type TextFeed struct {
	scanner *bufio.Scanner
	last    float64
	count   int
	err     error
}

// NewTextFeed creates a TextFeed over r.
func NewTextFeed(r io.Reader) *TextFeed {
	s := bufio.NewScanner(r)
	s.Split(bufio.ScanWords)
	return &TextFeed{scanner: s}
}

// Next returns the next arrival. ok is false once the input is exhausted or invalid.
func (f *TextFeed) Next() (float64, bool) {
	if f.err != nil {
		return 0, false
	}
	if !f.scanner.Scan() {
		if err := f.scanner.Err(); err != nil {
			f.err = fmt.Errorf("arrival %d: %w", f.count+1, err)
		}
		return 0, false
	}
	tok := f.scanner.Text()
	t, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		f.err = fmt.Errorf("arrival %d: malformed timestamp %q", f.count+1, tok)
		return 0, false
	}
	if err := f.check(t); err != nil {
		f.err = err
		return 0, false
	}
	f.last = t
	f.count++
	return t, true
}

func (f *TextFeed) check(t float64) error {
	switch {
	case math.IsNaN(t) || math.IsInf(t, 0):
		return fmt.Errorf("arrival %d: timestamp %v is not finite", f.count+1, t)
	case t < 0:
		return fmt.Errorf("arrival %d: negative timestamp %v", f.count+1, t)
	case t < f.last:
		return fmt.Errorf("arrival %d: timestamp %v is before previous arrival %v", f.count+1, t, f.last)
	}
	return nil
}

// Count returns the number of arrivals delivered so far.
func (f *TextFeed) Count() int {
	return f.count
}

// Err returns the first error that ended the feed, if any.
func (f *TextFeed) Err() error {
	if f.err != nil {
		logrus.Debugf("arrival feed stopped after %d arrivals: %v", f.count, f.err)
	}
	return f.err
}

// SliceFeed replays timestamps held in memory.
type SliceFeed struct {
	times []float64
	pos   int
}

// NewSliceFeed creates a feed over times, which must already be non-decreasing.
func NewSliceFeed(times ...float64) *SliceFeed {
	return &SliceFeed{times: times}
}

// Next returns the next arrival.
func (f *SliceFeed) Next() (float64, bool) {
	if f.pos >= len(f.times) {
		return 0, false
	}
	t := f.times[f.pos]
	f.pos++
	return t, true
}

// Remaining returns the number of arrivals not yet consumed.
func (f *SliceFeed) Remaining() int {
	return len(f.times) - f.pos
}
