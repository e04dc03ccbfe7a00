package engine

import (
	"sync"
	"time"

	"tonelab/debug"
)

// BindingKind classifies how a UI parameter reaches the graph.
type BindingKind int

const (
	// BindImmediate assigns the value directly: enumerations, waveform
	// selectors, boolean flags.
	BindImmediate BindingKind = iota
	// BindRamped schedules a smooth transition: frequency, gain, cutoff,
	// pan, wet, delay time, playback rate.
	BindRamped
	// BindStructural requires destroying and rebuilding the graph:
	// source kind, sampler URL, sequence length.
	BindStructural
)

// defaultRampTau is used when a ramped binding does not name its own
// time constant.
const defaultRampTau = 30 * time.Millisecond

// Binding maps one parameter id onto a node attribute.
type Binding struct {
	Param  string
	NodeID string
	Attr   string
	Kind   BindingKind
	Tau    time.Duration
}

// Binder streams controller parameter changes into a live graph. The
// graph reference is swapped on rebuild; bindings survive the swap.
// Out-of-range values are clamped by the node parameter itself, never
// surfaced as errors.
type Binder struct {
	mu       sync.Mutex
	ctx      *Context
	graph    *Graph
	bindings map[string]Binding
	rebuild  func() error
}

// NewBinder creates a binder for graphs built against ctx. rebuild is
// invoked for structural bindings; the controller is responsible for
// pausing and resuming the transport around it.
func NewBinder(ctx *Context, rebuild func() error) *Binder {
	return &Binder{
		ctx:      ctx,
		bindings: make(map[string]Binding),
		rebuild:  rebuild,
	}
}

// Bind declares how a parameter reaches the graph.
func (b *Binder) Bind(binding Binding) {
	b.mu.Lock()
	b.bindings[binding.Param] = binding
	b.mu.Unlock()
}

// SetGraph points the binder at a freshly built graph.
func (b *Binder) SetGraph(g *Graph) {
	b.mu.Lock()
	b.graph = g
	b.mu.Unlock()
}

// Kind returns the binding kind for a parameter (BindImmediate when the
// parameter is unbound, which matches pure-UI parameters).
func (b *Binder) Kind(param string) (BindingKind, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	binding, ok := b.bindings[param]
	return binding.Kind, ok
}

// Apply pushes one parameter change into the graph. Structural changes
// go through the rebuild callback; everything else touches the node
// parameter directly.
func (b *Binder) Apply(param string, v float64) error {
	b.mu.Lock()
	binding, ok := b.bindings[param]
	graph := b.graph
	b.mu.Unlock()
	if !ok {
		return nil
	}

	if binding.Kind == BindStructural {
		debug.Log("binder", "structural change on %s, rebuilding", param)
		if b.rebuild == nil {
			return nil
		}
		return b.rebuild()
	}

	if graph == nil || graph.Disposed() {
		return nil
	}
	node := graph.Node(binding.NodeID)
	if node == nil {
		return nil
	}
	p := node.Param(binding.Attr)
	if p == nil {
		return nil
	}

	switch binding.Kind {
	case BindRamped:
		tau := binding.Tau
		if tau == 0 {
			tau = defaultRampTau
		}
		p.Ramp(v, tau, b.ctx.SampleRate)
	default:
		p.Set(v)
	}
	return nil
}
