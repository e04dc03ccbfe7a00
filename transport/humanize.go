package transport

import (
	"math/rand"
	"time"
)

// Humanize offsets each hit by a uniform random timing delta and
// scales its velocity. A fixed seed reproduces the exact same
// sequence of deltas on every run.
type Humanize struct {
	timingJitterMs float64
	velocityJitter float64
	seed           int64
	rng            *rand.Rand
}

// NewHumanize builds a jitter profile. timingJitterMs is the maximum
// absolute timing offset in milliseconds; velocityJitter in [0, 1]
// scales hits down towards, at most, 0.1.
func NewHumanize(timingJitterMs, velocityJitter float64, seed int64) *Humanize {
	if timingJitterMs < 0 {
		timingJitterMs = 0
	}
	if velocityJitter < 0 {
		velocityJitter = 0
	}
	if velocityJitter > 1 {
		velocityJitter = 1
	}
	h := &Humanize{
		timingJitterMs: timingJitterMs,
		velocityJitter: velocityJitter,
		seed:           seed,
	}
	h.reset()
	return h
}

// reset rewinds the random stream to the seed.
func (h *Humanize) reset() {
	h.rng = rand.New(rand.NewSource(h.seed))
}

// next draws one (timing offset, velocity scale) pair. Timing is
// uniform in [-J, +J] ms; velocity is 1-random*jitter clamped to
// [0.1, 1].
func (h *Humanize) next() (time.Duration, float64) {
	offMs := (h.rng.Float64()*2 - 1) * h.timingJitterMs
	vel := 1 - h.rng.Float64()*h.velocityJitter
	if vel < 0.1 {
		vel = 0.1
	}
	if vel > 1 {
		vel = 1
	}
	return time.Duration(offMs * float64(time.Millisecond)), vel
}
