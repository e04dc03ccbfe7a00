// Package transport is the shared musical clock: one tempo-ramped
// transport per session, addressed by independent step sequences that
// fire callbacks slightly ahead of audible time.
package transport

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tonelab/debug"
)

// Phase is the transport state machine.
type Phase int

const (
	Stopped Phase = iota
	Running
	Paused
)

func (p Phase) String() string {
	switch p {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Paused:
		return "paused"
	}
	return "unknown"
}

// Subdivision is the step interval of a sequence.
type Subdivision string

const (
	Quarter   Subdivision = "4n"
	Eighth    Subdivision = "8n"
	Sixteenth Subdivision = "16n"
)

// Beats returns the length of one step in beats.
func (s Subdivision) Beats() float64 {
	switch s {
	case Eighth:
		return 0.5
	case Sixteenth:
		return 0.25
	}
	return 1
}

const (
	MinBPM = 40
	MaxBPM = 300

	// tempoRamp is how long a BPM change takes to settle.
	tempoRamp = 100 * time.Millisecond

	// fillInterval is how often the queue fill loop tops sequences up.
	fillInterval = 20 * time.Millisecond
)

// StepEvent is one entry of the visual step feed. Step is -1 when the
// transport stops, telling every consumer to clear its playhead.
type StepEvent struct {
	SequenceID uuid.UUID
	Step       int
	At         time.Time
}

// scheduledHit is one queued dispatch: a step of a sequence pinned to
// a beat, with any humanization already applied.
type scheduledHit struct {
	seq      *Sequence
	step     int
	beat     float64
	offset   time.Duration // humanized timing delta
	velocity float64
}

// Transport is the session clock. Logical time is measured in beats,
// monotonically increasing while running; tempo changes ramp linearly
// over tempoRamp so the beat never jumps.
type Transport struct {
	mu sync.Mutex

	phase      Phase
	bpmFrom    float64
	bpmTo      float64
	origin     time.Time // wall time at which the beat count was beatOrigin
	beatOrigin float64
	frozenBeat float64 // beat held while paused

	loopEndBeats int

	sequences map[uuid.UUID]*Sequence
	queue     []scheduledHit

	drawCh        chan StepEvent
	stopChan      chan struct{}
	interruptChan chan struct{}
	closeOnce     sync.Once
}

// New creates a stopped transport at 120 BPM and starts its scheduling
// goroutines. Close releases them.
func New() *Transport {
	t := &Transport{
		phase:         Stopped,
		bpmFrom:       120,
		bpmTo:         120,
		loopEndBeats:  16,
		sequences:     make(map[uuid.UUID]*Sequence),
		drawCh:        make(chan StepEvent, 64),
		stopChan:      make(chan struct{}),
		interruptChan: make(chan struct{}, 1),
	}
	go t.fillLoop()
	go t.dispatchLoop()
	return t
}

// Draw is the visual step feed. Sends never block the dispatch path;
// a consumer that stops polling just misses frames.
func (t *Transport) Draw() <-chan StepEvent { return t.drawCh }

// Phase returns the current transport phase.
func (t *Transport) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// BPM returns the target tempo.
func (t *Transport) BPM() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bpmTo
}

// SetBPM ramps the tempo to v over 100 ms, clamped to [40, 300]. The
// current beat is preserved; only the rate of advance changes.
func (t *Transport) SetBPM(v float64) {
	if v < MinBPM {
		v = MinBPM
	}
	if v > MaxBPM {
		v = MaxBPM
	}
	t.mu.Lock()
	now := time.Now()
	if t.phase == Running {
		t.beatOrigin = t.beatAt(now)
		t.bpmFrom = t.bpmNow(now)
		t.origin = now
	} else {
		t.bpmFrom = v
	}
	t.bpmTo = v
	t.mu.Unlock()
	t.interrupt()
}

// LoopEndBeats returns the phase re-alignment horizon.
func (t *Transport) LoopEndBeats() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loopEndBeats
}

// SetLoopEndBeats sets the horizon within which concurrent sequences
// are expected to re-align.
func (t *Transport) SetLoopEndBeats(n int) {
	if n < 1 {
		n = 1
	}
	t.mu.Lock()
	t.loopEndBeats = n
	t.mu.Unlock()
}

// bpmNow returns the instantaneous tempo at wall time now. Callers
// hold mu.
func (t *Transport) bpmNow(now time.Time) float64 {
	el := now.Sub(t.origin)
	if el >= tempoRamp || t.bpmFrom == t.bpmTo {
		return t.bpmTo
	}
	f := float64(el) / float64(tempoRamp)
	return t.bpmFrom + (t.bpmTo-t.bpmFrom)*f
}

// beatAt integrates the (possibly ramping) tempo from the origin to
// wall time now. Callers hold mu.
func (t *Transport) beatAt(now time.Time) float64 {
	if t.phase != Running {
		return t.frozenBeat
	}
	el := now.Sub(t.origin).Seconds()
	if el < 0 {
		return t.beatOrigin
	}
	ramp := tempoRamp.Seconds()
	if t.bpmFrom == t.bpmTo || el >= ramp {
		rampBeats := 0.0
		if t.bpmFrom != t.bpmTo {
			rampBeats = (t.bpmFrom + t.bpmTo) / 2 / 60 * ramp
			el -= ramp
		}
		return t.beatOrigin + rampBeats + el*t.bpmTo/60
	}
	// Inside the ramp: integral of the linear tempo curve.
	return t.beatOrigin + (t.bpmFrom*el+(t.bpmTo-t.bpmFrom)*el*el/(2*ramp))/60
}

// timeAt inverts beatAt for scheduling. Callers hold mu.
func (t *Transport) timeAt(beat float64) time.Time {
	delta := beat - t.beatOrigin
	if delta <= 0 {
		return t.origin
	}
	ramp := tempoRamp.Seconds()
	if t.bpmFrom == t.bpmTo {
		return t.origin.Add(time.Duration(delta * 60 / t.bpmTo * float64(time.Second)))
	}
	rampBeats := (t.bpmFrom + t.bpmTo) / 2 / 60 * ramp
	if delta >= rampBeats {
		secs := ramp + (delta-rampBeats)*60/t.bpmTo
		return t.origin.Add(time.Duration(secs * float64(time.Second)))
	}
	// Solve the quadratic from beatAt's ramp branch.
	a := (t.bpmTo - t.bpmFrom) / (120 * ramp)
	b := t.bpmFrom / 60
	secs := (-b + math.Sqrt(b*b+4*a*delta)) / (2 * a)
	return t.origin.Add(time.Duration(secs * float64(time.Second)))
}

// Beat returns the current logical time in beats.
func (t *Transport) Beat() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.beatAt(time.Now())
}

// Start moves stopped→running (from beat 0, all sequences armed) or
// paused→running (from the frozen beat).
func (t *Transport) Start() {
	t.mu.Lock()
	switch t.phase {
	case Running:
		t.mu.Unlock()
		return
	case Stopped:
		t.beatOrigin = 0
		t.frozenBeat = 0
		for _, s := range t.sequences {
			s.arm()
		}
	case Paused:
		t.beatOrigin = t.frozenBeat
	}
	t.origin = time.Now()
	t.bpmFrom = t.bpmTo
	t.phase = Running
	t.mu.Unlock()

	debug.Log("transport", "start at beat %.2f", t.Beat())
	t.interrupt()
}

// Pause freezes the clock. Scheduled hits are held, not cancelled;
// draw calls past the freeze are dropped.
func (t *Transport) Pause() {
	t.mu.Lock()
	if t.phase != Running {
		t.mu.Unlock()
		return
	}
	now := time.Now()
	t.frozenBeat = t.beatAt(now)
	t.phase = Paused
	cutoff := t.frozenBeat
	kept := t.queue[:0]
	for _, h := range t.queue {
		if h.beat <= cutoff {
			kept = append(kept, h)
		}
	}
	t.queue = kept
	t.mu.Unlock()
	debug.Log("transport", "paused at beat %.2f", t.frozenBeat)
}

// Stop cancels everything, resets logical time to 0 and emits a final
// step index of -1 on the draw feed for every sequence.
func (t *Transport) Stop() {
	t.mu.Lock()
	if t.phase == Stopped {
		t.mu.Unlock()
		return
	}
	t.phase = Stopped
	t.frozenBeat = 0
	t.beatOrigin = 0
	t.queue = t.queue[:0]
	ids := make([]uuid.UUID, 0, len(t.sequences))
	for id, s := range t.sequences {
		s.arm()
		ids = append(ids, id)
	}
	t.mu.Unlock()

	now := time.Now()
	for _, id := range ids {
		t.emitDraw(StepEvent{SequenceID: id, Step: -1, At: now})
	}
	debug.Log("transport", "stopped")
}

// Close stops the scheduling goroutines. The transport is unusable
// afterwards.
func (t *Transport) Close() {
	t.closeOnce.Do(func() { close(t.stopChan) })
}

// interrupt wakes the fill loop immediately after a structural change.
func (t *Transport) interrupt() {
	select {
	case t.interruptChan <- struct{}{}:
	default:
	}
}

func (t *Transport) emitDraw(ev StepEvent) {
	select {
	case t.drawCh <- ev:
	default:
	}
}

// fillQueue schedules every sequence up to its own lookahead horizon,
// one subdivision interval past the playhead.
func (t *Transport) fillQueue() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase != Running {
		return
	}
	nowBeat := t.beatAt(time.Now())
	changed := false
	for _, s := range t.sequences {
		horizon := nowBeat + s.sub.Beats()
		for s.nextBeat < horizon {
			hit := scheduledHit{
				seq:      s,
				step:     s.nextStep,
				beat:     s.nextBeat,
				velocity: 1,
			}
			if h := s.humanize; h != nil {
				hit.offset, hit.velocity = h.next()
			}
			t.queue = append(t.queue, hit)
			s.nextStep = (s.nextStep + 1) % s.steps
			s.nextBeat += s.sub.Beats()
			changed = true
		}
	}
	if changed {
		sort.Slice(t.queue, func(i, j int) bool { return t.queue[i].beat < t.queue[j].beat })
	}
}

func (t *Transport) fillLoop() {
	ticker := time.NewTicker(fillInterval)
	defer ticker.Stop()
	for {
		select {
		case <-t.stopChan:
			return
		case <-t.interruptChan:
			t.fillQueue()
		case <-ticker.C:
			t.fillQueue()
		}
	}
}

// dispatchLoop pops the earliest queued hit, waits for its wall time
// and fires the callback. The draw feed gets a paired event with the
// same logical time.
func (t *Transport) dispatchLoop() {
	for {
		select {
		case <-t.stopChan:
			return
		default:
		}

		t.mu.Lock()
		if t.phase != Running || len(t.queue) == 0 {
			t.mu.Unlock()
			time.Sleep(time.Millisecond)
			continue
		}
		hit := t.queue[0]
		at := t.timeAt(hit.beat).Add(hit.offset)
		t.mu.Unlock()

		if wait := time.Until(at); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-t.stopChan:
				timer.Stop()
				return
			case <-timer.C:
			}
		}

		t.mu.Lock()
		// The queue may have been cancelled or reordered while we slept.
		if t.phase != Running || len(t.queue) == 0 || t.queue[0] != hit {
			t.mu.Unlock()
			continue
		}
		t.queue = t.queue[1:]
		removed := hit.seq.removed
		t.mu.Unlock()

		if removed {
			continue
		}
		if hit.seq.onStep != nil {
			hit.seq.onStep(at, hit.step, hit.velocity)
		}
		t.emitDraw(StepEvent{SequenceID: hit.seq.id, Step: hit.step, At: at})
	}
}
