package service

import (
	"context"
	"sync"
	"time"
)

// JitterFunc returns the number of seconds to add to the wall clock before
// sampling it, so two daemons don't all hit the authoritative store on the
// exact same wall-clock second every minute. Called once when Ticker.Run
// starts and again after every fired tick.
type JitterFunc func() int

// ConstantJitter reproduces the original daemon's own placeholder
// calcJitterCorrectionOffset, which always returns a fixed offset — the
// jitter-smoothing itself was left as a TODO upstream and is out of scope
// here, but the hook it plugs into is preserved.
func ConstantJitter(seconds int) JitterFunc {
	return func() int { return seconds }
}

// TickFunc processes one fired minute: forTime is the jitter-corrected
// instant sampled when the minute edge was detected, plannedTime is that
// instant truncated to the minute.
type TickFunc func(ctx context.Context, forTime, plannedTime time.Time)

// Ticker detects minute edges on the wall clock by polling, rather than
// relying on a fixed-interval timer, so that a paused process (VM suspend,
// debugger stop) or a backward clock step is tolerated the same way the
// original daemon tolerates it: the next poll after resuming simply
// observes that a field has advanced and fires once, not N times.
type Ticker struct {
	jitter    JitterFunc
	tick      TickFunc
	pollEvery time.Duration

	mu       sync.Mutex
	lastTick time.Time
}

func NewTicker(jitter JitterFunc, tick TickFunc) *Ticker {
	if jitter == nil {
		jitter = ConstantJitter(1)
	}
	return &Ticker{jitter: jitter, tick: tick, pollEvery: 100 * time.Millisecond}
}

// Run polls until ctx is cancelled. The very first minute-edge it observes
// only fires if the sampled second lands within the jitter-offset window of
// :59 — otherwise it's suppressed, since the daemon has no way to know
// whether it started mid-minute after jobs for that minute were already
// due. Every subsequent edge always fires.
func (t *Ticker) Run(ctx context.Context) {
	var lastTime time.Time
	firstLoop := true
	jitterOffset := t.jitter()

	for {
		if ctx.Err() != nil {
			return
		}

		now := time.Now().Add(time.Duration(jitterOffset) * time.Second)

		if advanced(now, lastTime) {
			lastTime = now

			if !firstLoop || now.Second() == 59-jitterOffset {
				planned := now.Truncate(time.Minute)
				t.tick(ctx, now, planned)
				t.mu.Lock()
				t.lastTick = planned
				t.mu.Unlock()
				jitterOffset = t.jitter()
			}
			firstLoop = false
		} else {
			select {
			case <-ctx.Done():
				return
			case <-time.After(t.pollEvery):
			}
		}
	}
}

// LastTick returns the planned minute of the most recently fired tick, or
// the zero time if none has fired yet.
func (t *Ticker) LastTick() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastTick
}

// advanced reports whether any field of now is greater than the
// corresponding field of last, checked independently — mirroring the
// original daemon's struct-tm field comparison exactly rather than
// comparing now and last as single instants.
func advanced(now, last time.Time) bool {
	return now.Minute() > last.Minute() ||
		now.Hour() > last.Hour() ||
		now.Day() > last.Day() ||
		int(now.Month()) > int(last.Month()) ||
		now.Year() > last.Year()
}
