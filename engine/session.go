package engine

import (
	"fmt"
	"sync"
	"time"

	"tonelab/debug"
)

// SessionState is the lifecycle of the process-wide audio output.
type SessionState int

const (
	StateUninitialised SessionState = iota
	StateSuspended
	StateRunning
	StateFailed
)

func (s SessionState) String() string {
	switch s {
	case StateUninitialised:
		return "uninitialised"
	case StateSuspended:
		return "suspended"
	case StateRunning:
		return "running"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// resumeTimeout is how long Resume waits for the output to report ready
// before giving up and staying suspended.
const resumeTimeout = 5 * time.Second

// Output is the host audio driver behind the session: it pulls
// interleaved stereo float32 blocks from the render callback. The oto
// implementation is the production driver; tests substitute a stub.
type Output interface {
	Start(render func(out []float32)) error
	Ready() <-chan struct{}
	Close() error
}

// Session is the process-wide object deciding whether audio may run.
// It is created lazily suspended and resumed on the first user gesture;
// Resume is idempotent and concurrent callers share one pending result.
type Session struct {
	ctx    *Context
	output Output

	mu        sync.Mutex
	state     SessionState
	lastError string
	pending   []chan SessionState
	resuming  bool
	graphs    map[*Graph]struct{}
	listeners map[int]func(SessionState)
	nextID    int
	scratch   []float32
}

// NewSession creates a suspended session over the given output driver.
func NewSession(ctx *Context, output Output) *Session {
	return &Session{
		ctx:       ctx,
		output:    output,
		state:     StateUninitialised,
		graphs:    make(map[*Graph]struct{}),
		listeners: make(map[int]func(SessionState)),
	}
}

// Context returns the session's sample format.
func (s *Session) Context() *Context { return s.ctx }

// SampleRate is the host output rate, shared with the offline renderer
// so preview and rendered output cannot drift.
func (s *Session) SampleRate() int { return s.ctx.SampleRate }

// State returns the current session state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError returns the message of the most recent failure or timeout.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// OnStateChange registers a listener. Each distinct state is delivered
// at most once per transition, in transition order. The returned cancel
// removes the listener.
func (s *Session) OnStateChange(fn func(SessionState)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// setState transitions and notifies listeners. Callers must not hold mu.
func (s *Session) setState(next SessionState, errMsg string) {
	s.mu.Lock()
	if s.state == next {
		s.mu.Unlock()
		return
	}
	s.state = next
	s.lastError = errMsg
	fns := make([]func(SessionState), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	debug.Log("session", "state -> %s (%s)", next, errMsg)
	for _, fn := range fns {
		fn(next)
	}
}

// Resume asks the output to start, typically from a user-gesture
// handler. The returned channel yields the settled state exactly once.
// Calls while a resume is pending share the same attempt; the attempt
// itself cannot be cancelled; its timeout is the only exit.
func (s *Session) Resume() <-chan SessionState {
	ch := make(chan SessionState, 1)

	s.mu.Lock()
	switch s.state {
	case StateRunning, StateFailed:
		ch <- s.state
		s.mu.Unlock()
		return ch
	}
	s.pending = append(s.pending, ch)
	if s.resuming {
		s.mu.Unlock()
		return ch
	}
	s.resuming = true
	first := s.state == StateUninitialised
	s.mu.Unlock()

	if first {
		s.setState(StateSuspended, "")
	}

	go s.resume()
	return ch
}

func (s *Session) resume() {
	err := s.output.Start(s.render)
	var settled SessionState
	var msg string

	if err != nil {
		settled = StateFailed
		msg = fmt.Sprintf("output start: %v", err)
	} else {
		select {
		case <-s.output.Ready():
			settled = StateRunning
		case <-time.After(resumeTimeout):
			settled = StateSuspended
			msg = "timed out waiting for audio output"
		}
	}

	s.setState(settled, msg)

	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.resuming = false
	s.mu.Unlock()
	for _, ch := range pending {
		ch <- settled
	}
}

// AttachGraph adds a graph to the realtime mix.
func (s *Session) AttachGraph(g *Graph) {
	s.mu.Lock()
	s.graphs[g] = struct{}{}
	s.mu.Unlock()
}

// DetachGraph removes a graph from the mix. The graph is not disposed.
func (s *Session) DetachGraph(g *Graph) {
	s.mu.Lock()
	delete(s.graphs, g)
	s.mu.Unlock()
}

// render mixes every attached graph into one block. Called by the
// output driver on its own goroutine.
func (s *Session) render(out []float32) {
	zero(out)
	s.mu.Lock()
	graphs := make([]*Graph, 0, len(s.graphs))
	for g := range s.graphs {
		graphs = append(graphs, g)
	}
	s.mu.Unlock()

	if len(graphs) == 0 {
		return
	}
	if len(s.scratch) != len(out) {
		s.scratch = make([]float32, len(out))
	}
	for _, g := range graphs {
		g.Render(s.scratch)
		for i := range out {
			out[i] += s.scratch[i]
		}
	}
	for i := range out {
		out[i] = softClip(out[i])
	}
}

// Close tears the output down. Used on process exit only.
func (s *Session) Close() error {
	return s.output.Close()
}
