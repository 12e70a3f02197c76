package workload

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(f interface{ Next() (float64, bool) }) []float64 {
	var out []float64
	for {
		t, ok := f.Next()
		if !ok {
			return out
		}
		out = append(out, t)
	}
}

func TestTextFeed_MixedWhitespace_ReadsAllTimestamps(t *testing.T) {
	// GIVEN timestamps separated by spaces, tabs and newlines
	f := NewTextFeed(strings.NewReader("0.001 0.002\n0.002\t1e-2\n\n"))

	// WHEN the feed is drained
	got := drain(f)

	// THEN every value is returned in order and the feed ended cleanly
	assert.Equal(t, []float64{0.001, 0.002, 0.002, 0.01}, got)
	assert.NoError(t, f.Err())
	assert.Equal(t, 4, f.Count())
}

func TestTextFeed_Empty_ExhaustedWithoutError(t *testing.T) {
	f := NewTextFeed(strings.NewReader(""))
	_, ok := f.Next()
	assert.False(t, ok)
	assert.NoError(t, f.Err())
}

func TestTextFeed_InvalidInput_StopsWithError(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []float64
		err   string
	}{
		{"malformed", "0.1 abc 0.3", []float64{0.1}, `arrival 2: malformed timestamp "abc"`},
		{"decreasing", "0.1 0.3 0.2", []float64{0.1, 0.3}, "arrival 3: timestamp 0.2 is before previous arrival 0.3"},
		{"negative", "-1", nil, "arrival 1: negative timestamp -1"},
		{"infinite", "0.5 Inf", []float64{0.5}, "arrival 2: timestamp +Inf is not finite"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := NewTextFeed(strings.NewReader(tc.input))
			got := drain(f)
			assert.Equal(t, tc.want, got)
			require.Error(t, f.Err())
			assert.EqualError(t, f.Err(), tc.err)

			// the feed stays exhausted after an error
			_, ok := f.Next()
			assert.False(t, ok)
		})
	}
}

func TestSliceFeed_ReplaysInOrder(t *testing.T) {
	f := NewSliceFeed(1, 2, 3)
	assert.Equal(t, 3, f.Remaining())
	assert.Equal(t, []float64{1, 2, 3}, drain(f))
	assert.Equal(t, 0, f.Remaining())
}
