package store

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// RateCounter counts outbound calls per rolling minute against a soft cap.
// It never blocks: crossing the cap or calling faster than minGap only logs.
type RateCounter struct {
	mu sync.Mutex

	limit  int
	window time.Duration
	minGap time.Duration
	now    func() time.Time

	count    int
	resetAt  time.Time
	lastCall time.Time
}

// NewRateCounter creates a counter with a one-minute window.
func NewRateCounter(limit int, minGap time.Duration) *RateCounter {
	return &RateCounter{
		limit:  limit,
		window: time.Minute,
		minGap: minGap,
		now:    time.Now,
	}
}

// WithClock replaces the counter's time source. It returns r for chaining.
func (r *RateCounter) WithClock(now func() time.Time) *RateCounter {
	r.now = now
	return r
}

// Record counts one call for op and returns the count in the current window.
func (r *RateCounter) Record(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if r.resetAt.IsZero() || now.After(r.resetAt) {
		r.count = 0
		r.resetAt = now.Add(r.window)
	}

	if !r.lastCall.IsZero() && r.minGap > 0 && now.Sub(r.lastCall) < r.minGap {
		log.Debug().Str("op", op).Dur("gap", now.Sub(r.lastCall)).Msg("calls closer than minimum gap")
	}

	r.count++
	r.lastCall = now

	if r.limit > 0 && r.count > r.limit {
		log.Warn().
			Str("op", op).
			Int("count", r.count).
			Int("limit", r.limit).
			Msg("api call limit reached; continuing with caution")
	}
	return r.count
}

// Count returns the calls recorded in the current window.
func (r *RateCounter) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resetAt.IsZero() || r.now().After(r.resetAt) {
		return 0
	}
	return r.count
}
