// Package bucket implements a token-bucket rate limiter over wall-clock
// microseconds, shared by the generator and the transmitter.
package bucket

import (
	"math"
	"time"

	"github.com/jonboulle/clockwork"
)

const refillPause = 100 * time.Microsecond

// Bucket limits a stream of events to a configured rate. A zero-capacity
// bucket is unbounded: Consume never sleeps and Take always succeeds.
type Bucket struct {
	capacity   float64
	tokens     float64
	lastRefill time.Time
	clock      clockwork.Clock
}

// New creates a Bucket with the given rate in events per second. If rate is
// 0, the bucket is unbounded.
func New(rate uint64, clock clockwork.Clock) *Bucket {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Bucket{
		capacity:   float64(rate),
		lastRefill: clock.Now(),
		clock:      clock,
	}
}

// Consume refills the bucket based on elapsed wall-clock time and, if fewer
// than one token is available, sleeps briefly to avoid a busy loop. Callers
// drain tokens with Take after each Consume.
func (b *Bucket) Consume() {
	if b.capacity == 0 {
		return
	}

	now := b.clock.Now()
	elapsedUs := float64(now.Sub(b.lastRefill).Microseconds())
	b.lastRefill = now

	b.tokens = math.Min(b.capacity, b.tokens+elapsedUs*b.capacity/1_000_000)

	if b.tokens < 1.0 {
		b.clock.Sleep(refillPause)
	}
}

// Take consumes one token if available and reports whether it did. An
// unbounded bucket (capacity 0) always succeeds.
func (b *Bucket) Take() bool {
	if b.capacity == 0 {
		return true
	}
	if b.tokens < 1.0 {
		return false
	}
	b.tokens--
	return true
}

// Tokens reports the current token count, for tests and diagnostics.
func (b *Bucket) Tokens() float64 { return b.tokens }
