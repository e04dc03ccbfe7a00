package transport

import (
	"time"

	"github.com/google/uuid"
)

// StepFunc receives one dispatched step: the intended audible time,
// the cycling step index and the (possibly humanized) velocity.
type StepFunc func(at time.Time, step int, velocity float64)

// Sequence is one repeating pattern addressed at the shared transport.
// Sequences cycle independently; two sequences of different lengths
// drift and re-align on their common multiple.
type Sequence struct {
	id       uuid.UUID
	steps    int
	sub      Subdivision
	onStep   StepFunc
	humanize *Humanize
	removed  bool

	// fill-loop state, guarded by the transport mutex
	nextStep int
	nextBeat float64
}

// ID returns the sequence handle used in draw feed events.
func (s *Sequence) ID() uuid.UUID { return s.id }

// arm resets the cycle to step 0 at beat 0. Caller holds the
// transport mutex.
func (s *Sequence) arm() {
	s.nextStep = 0
	s.nextBeat = 0
	if s.humanize != nil {
		s.humanize.reset()
	}
}

// AddSequence registers a repeating pattern of the given step count
// and subdivision. If the transport is already running, the sequence
// joins at the next subdivision boundary.
func (t *Transport) AddSequence(steps int, sub Subdivision, onStep StepFunc) *Sequence {
	if steps < 1 {
		steps = 1
	}
	s := &Sequence{
		id:     uuid.New(),
		steps:  steps,
		sub:    sub,
		onStep: onStep,
	}

	t.mu.Lock()
	if t.phase == Running {
		nowBeat := t.beatAt(time.Now())
		interval := sub.Beats()
		cycles := int(nowBeat/interval) + 1
		s.nextBeat = float64(cycles) * interval
		s.nextStep = cycles % steps
	}
	t.sequences[s.id] = s
	t.mu.Unlock()
	t.interrupt()
	return s
}

// RemoveSequence cancels a sequence. Hits already dispatched are not
// recalled; queued ones are dropped.
func (t *Transport) RemoveSequence(s *Sequence) {
	t.mu.Lock()
	delete(t.sequences, s.id)
	s.removed = true
	kept := t.queue[:0]
	for _, h := range t.queue {
		if h.seq != s {
			kept = append(kept, h)
		}
	}
	t.queue = kept
	t.mu.Unlock()
}

// SetSteps changes the cycle length. The current position wraps into
// the new range.
func (t *Transport) SetSteps(s *Sequence, steps int) {
	if steps < 1 {
		steps = 1
	}
	t.mu.Lock()
	s.steps = steps
	s.nextStep %= steps
	t.mu.Unlock()
}

// SetHumanize attaches a jitter profile to a sequence; nil removes it.
func (t *Transport) SetHumanize(s *Sequence, h *Humanize) {
	t.mu.Lock()
	s.humanize = h
	t.mu.Unlock()
}
