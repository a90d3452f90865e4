// Package clock gates the sequential half of a simulation step. Parts whose
// state depends on sampling a control line only update on clock edges, at a
// fixed cadence that is independent of how often propagation runs.
package clock

import (
	"time"

	"github.com/nvandessel/wirelogic/internal/circuit"
)

// DefaultInterval is the tick cadence used when none is configured.
const DefaultInterval = 100 * time.Millisecond

// IntervalElapsed reports whether at least one interval has passed between
// last and now. A zero last means no tick has happened yet.
func IntervalElapsed(last, now time.Time, interval time.Duration) bool {
	if last.IsZero() {
		return true
	}
	return now.Sub(last) >= interval
}

// Clock remembers the last edge. It owns no timer; callers supply the time.
type Clock struct {
	interval time.Duration
	last     time.Time
}

// New creates a clock with the given interval. Non-positive intervals fall
// back to DefaultInterval.
func New(interval time.Duration) *Clock {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Clock{interval: interval}
}

// Interval returns the tick cadence.
func (c *Clock) Interval() time.Duration { return c.interval }

// Last returns the time of the most recent edge.
func (c *Clock) Last() time.Time { return c.last }

// Due reports whether an edge has elapsed at now and, if so, records it.
// Edges stay aligned to the first one: after a long gap the clock fires once
// and skips the missed boundaries instead of drifting.
func (c *Clock) Due(now time.Time) bool {
	if !IntervalElapsed(c.last, now, c.interval) {
		return false
	}
	if c.last.IsZero() {
		c.last = now
		return true
	}
	missed := now.Sub(c.last) / c.interval
	c.last = c.last.Add(missed * c.interval)
	return true
}

// Reset forgets the last edge so the next Due call fires.
func (c *Clock) Reset() { c.last = time.Time{} }

// Tick runs the sequential update of every part for an edge at now. Control
// lines are sampled from the previous propagation pass, so Tick must run
// before the step's Evaluate. It returns how many parts changed state.
func Tick(parts []*circuit.Part, now time.Time) int {
	changed := 0
	for _, p := range parts {
		if p.Tick(now) {
			changed++
		}
	}
	return changed
}
