// Package timestamp stamps the buffers of one branch with presentation
// time, duration and sequence offsets.
package timestamp

import (
	"time"

	"github.com/smazurov/camerasrc/internal/device"
)

// Clock reports the current pipeline clock time.
type Clock interface {
	Now() time.Duration
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Duration

// Now implements Clock.
func (f ClockFunc) Now() time.Duration { return f() }

// MonotonicClock counts from the moment it is created.
func MonotonicClock() Clock {
	start := time.Now()
	return ClockFunc(func() time.Duration { return time.Since(start) })
}

// Timestamper holds the running clock state of one branch. Stamp calls for
// a branch are sequential; a Timestamper is not safe for concurrent use.
type Timestamper struct {
	clock    Clock
	baseTime time.Duration

	latched   bool
	timeStart time.Duration
	timeEnd   time.Duration
}

// New creates a timestamper. clock may be nil, in which case presentation
// times stay unset.
func New(clock Clock, baseTime time.Duration) *Timestamper {
	return &Timestamper{clock: clock, baseTime: baseTime}
}

// Stamp sets the timing fields of buf. index is the pool's acquire index
// for buf. A buffer without a valid incoming timestamp is left untouched
// and Stamp returns false.
func (t *Timestamper) Stamp(buf *device.Buffer, index uint64) bool {
	if buf.PTS == device.NoTimestamp {
		return false
	}

	if !t.latched {
		t.timeStart = t.baseTime
		t.timeEnd = t.baseTime
		t.latched = true
	}

	buf.Duration = t.timeEnd - t.timeStart

	prevEnd := t.timeEnd
	if t.clock != nil {
		now := t.clock.Now()
		buf.PTS = now - t.baseTime
		t.timeEnd = now
	} else {
		buf.PTS = device.NoTimestamp
	}

	buf.Offset = index
	buf.OffsetEnd = index + 1

	t.timeStart = prevEnd
	return true
}
