package engine

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// NodeSpec describes one node of a recipe.
type NodeSpec struct {
	Kind   NodeKind
	ID     string
	Params map[string]float64

	// Effect wraps the node in a wet/dry split so it can be bypassed
	// live without a rebuild.
	Effect bool

	// SampleURL names the asset slot for sampler and granular nodes;
	// the builder looks the decoded buffer up in the asset table.
	SampleURL string

	// FFTSize configures analyser nodes (0 = 2048).
	FFTSize int
}

// Recipe is the declarative graph description a widget controller emits:
// node specs plus directed edges. Nodes without a downstream edge feed
// the output mix implicitly.
type Recipe struct {
	Nodes []NodeSpec
	Edges [][2]string // (srcID, dstID)
}

// bypassRampTau is the wet/dry crossfade time constant.
const bypassRampTau = 15 * time.Millisecond

// wetDrySplit is the pair of gains wrapping a bypassable effect. Wet
// scales the processed path, dry the untouched input; they always sum
// to unity at the ends of the crossfade.
type wetDrySplit struct {
	wet      *Param
	dry      *Param
	bypassed bool
}

// Graph is the materialisation of a recipe. Structure is immutable after
// Build; parameters and bypass flags are the only live mutation points.
type Graph struct {
	ctx      *Context
	nodes    map[string]Node
	order    []Node
	inputs   map[string][]string
	terminal []string
	splits   map[string]*wetDrySplit
	bufs     map[string][]float32
	sum      []float32
	raw      []float32
	disposed atomic.Bool
	renderMu sync.Mutex
}

// Build materialises a recipe. Nodes are created in dependency order with
// sources last so sample buffers are resolved before anything can pull
// from them; on any failure every partially constructed node is released
// and the caller observes ErrGraphBuildFailed.
func Build(recipe Recipe, ctx *Context, assets map[string]*Buffer) (*Graph, error) {
	if len(recipe.Nodes) == 0 {
		return nil, fmt.Errorf("%w: empty recipe", ErrGraphBuildFailed)
	}

	specs := make(map[string]NodeSpec, len(recipe.Nodes))
	for _, spec := range recipe.Nodes {
		if spec.ID == "" {
			return nil, fmt.Errorf("%w: node spec without id", ErrGraphBuildFailed)
		}
		if _, dup := specs[spec.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate node id %q", ErrGraphBuildFailed, spec.ID)
		}
		specs[spec.ID] = spec
	}

	inputs := make(map[string][]string)
	outdeg := make(map[string]int)
	for _, e := range recipe.Edges {
		src, dst := e[0], e[1]
		if _, ok := specs[src]; !ok {
			return nil, fmt.Errorf("%w: edge from unknown node %q", ErrGraphBuildFailed, src)
		}
		if _, ok := specs[dst]; !ok {
			return nil, fmt.Errorf("%w: edge to unknown node %q", ErrGraphBuildFailed, dst)
		}
		inputs[dst] = append(inputs[dst], src)
		outdeg[src]++
		if outdeg[src] > 1 {
			return nil, fmt.Errorf("%w: node %q has more than one downstream edge", ErrGraphBuildFailed, src)
		}
	}

	order, err := topoSort(recipe.Nodes, inputs)
	if err != nil {
		return nil, err
	}

	g := &Graph{
		ctx:    ctx,
		nodes:  make(map[string]Node, len(recipe.Nodes)),
		inputs: inputs,
		splits: make(map[string]*wetDrySplit),
		bufs:   make(map[string][]float32, len(recipe.Nodes)),
		sum:    make([]float32, ctx.BlockLen()),
		raw:    make([]float32, ctx.BlockLen()),
	}

	// Effects and analysers first, sources last.
	var deferred []NodeSpec
	for _, spec := range recipe.Nodes {
		switch spec.Kind {
		case KindOscillator, KindSampler, KindNoise, KindGranular:
			deferred = append(deferred, spec)
		default:
			if err := g.construct(spec, assets); err != nil {
				g.Dispose()
				return nil, err
			}
		}
	}
	for _, spec := range deferred {
		if err := g.construct(spec, assets); err != nil {
			g.Dispose()
			return nil, err
		}
	}

	for _, id := range order {
		g.order = append(g.order, g.nodes[id])
		g.bufs[id] = make([]float32, ctx.BlockLen())
		if outdeg[id] == 0 {
			g.terminal = append(g.terminal, id)
		}
	}
	return g, nil
}

// construct instantiates one node from its spec.
func (g *Graph) construct(spec NodeSpec, assets map[string]*Buffer) error {
	var n Node
	switch spec.Kind {
	case KindOscillator:
		n = NewOscillator(spec.ID, g.ctx)
	case KindSampler:
		n = NewSamplePlayer(spec.ID, g.ctx, assets[spec.SampleURL])
	case KindNoise:
		n = NewNoiseSource(spec.ID, g.ctx)
	case KindGranular:
		n = NewGranular(spec.ID, g.ctx, assets[spec.SampleURL])
	case KindGain:
		n = NewGain(spec.ID, 1)
	case KindPanner:
		n = NewStereoPanner(spec.ID, g.ctx)
	case KindTremolo:
		n = NewTremolo(spec.ID, g.ctx)
	case KindLowpass:
		n = NewLowpassFilter(spec.ID, g.ctx)
	case KindLowShelf:
		n = NewLowShelf(spec.ID, g.ctx)
	case KindDelay:
		n = NewDelay(spec.ID, g.ctx)
	case KindReverb:
		n = NewReverb(spec.ID, g.ctx)
	case KindAnalyser:
		size := spec.FFTSize
		if size == 0 {
			size = 2048
		}
		a, err := NewAnalyser(spec.ID, size)
		if err != nil {
			return err
		}
		n = a
	default:
		return fmt.Errorf("%w: unknown node kind %q", ErrGraphBuildFailed, spec.Kind)
	}
	if err := applyInitial(n, spec.Params); err != nil {
		return err
	}
	g.nodes[spec.ID] = n
	if spec.Effect {
		g.splits[spec.ID] = &wetDrySplit{
			wet: NewParam(1, 0, 1),
			dry: NewParam(0, 0, 1),
		}
	}
	return nil
}

// topoSort orders node ids so every node comes after its inputs, and
// rejects cycles.
func topoSort(nodes []NodeSpec, inputs map[string][]string) ([]string, error) {
	const (
		white = 0
		grey  = 1
		black = 2
	)
	colour := make(map[string]int, len(nodes))
	var order []string

	var visit func(id string) error
	visit = func(id string) error {
		switch colour[id] {
		case grey:
			return fmt.Errorf("%w: cycle through node %q", ErrGraphBuildFailed, id)
		case black:
			return nil
		}
		colour[id] = grey
		for _, in := range inputs[id] {
			if err := visit(in); err != nil {
				return err
			}
		}
		colour[id] = black
		order = append(order, id)
		return nil
	}

	for _, spec := range nodes {
		if err := visit(spec.ID); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Node returns a node handle by id, nil if absent or disposed.
func (g *Graph) Node(id string) Node {
	if g.disposed.Load() {
		return nil
	}
	return g.nodes[id]
}

// Analyser returns the first analyser node in the graph, if any.
func (g *Graph) Analyser() *Analyser {
	for _, n := range g.order {
		if a, ok := n.(*Analyser); ok {
			return a
		}
	}
	return nil
}

// Start arms every source node.
func (g *Graph) Start() {
	for _, n := range g.order {
		if s, ok := n.(Source); ok {
			s.Start()
		}
	}
}

// Stop silences every source node.
func (g *Graph) Stop() {
	for _, n := range g.order {
		if s, ok := n.(Source); ok {
			s.Stop()
		}
	}
}

// Trigger fires one hit on a triggerable source.
func (g *Graph) Trigger(id string, velocity float64) {
	if n, ok := g.nodes[id]; ok {
		if t, ok := n.(Triggerable); ok {
			t.Trigger(velocity)
		}
	}
}

// SetBypass crossfades an effect's wet/dry split. Flipping the flag
// never rebuilds anything; the two gains swap with a short ramp.
func (g *Graph) SetBypass(id string, bypassed bool) {
	split, ok := g.splits[id]
	if !ok {
		return
	}
	split.bypassed = bypassed
	if bypassed {
		split.wet.Ramp(0, bypassRampTau, g.ctx.SampleRate)
		split.dry.Ramp(1, bypassRampTau, g.ctx.SampleRate)
	} else {
		split.wet.Ramp(1, bypassRampTau, g.ctx.SampleRate)
		split.dry.Ramp(0, bypassRampTau, g.ctx.SampleRate)
	}
}

// Bypassed reports the last requested bypass state of an effect.
func (g *Graph) Bypassed(id string) bool {
	if split, ok := g.splits[id]; ok {
		return split.bypassed
	}
	return false
}

// Split exposes the wet/dry gain pair of a bypassable effect (nil when
// the node is not wrapped). Used by tests and the visual bypass meter.
func (g *Graph) Split(id string) (wet, dry *Param) {
	if s, ok := g.splits[id]; ok {
		return s.wet, s.dry
	}
	return nil, nil
}

// Render produces one interleaved stereo block into out, which must be
// ctx.BlockLen() long. Runs on the render goroutine.
func (g *Graph) Render(out []float32) {
	g.renderMu.Lock()
	defer g.renderMu.Unlock()
	if g.disposed.Load() {
		zero(out)
		return
	}

	for _, n := range g.order {
		id := n.ID()
		buf := g.bufs[id]
		ins := g.inputs[id]

		zero(g.sum)
		for _, in := range ins {
			src := g.bufs[in]
			for i := range g.sum {
				g.sum[i] += src[i]
			}
		}

		if split, ok := g.splits[id]; ok {
			copy(g.raw, g.sum)
			n.Process(g.sum, buf)
			for i := 0; i < len(buf); i += 2 {
				w := float32(split.wet.Next())
				d := float32(split.dry.Next())
				buf[i] = buf[i]*w + g.raw[i]*d
				buf[i+1] = buf[i+1]*w + g.raw[i+1]*d
			}
		} else {
			n.Process(g.sum, buf)
		}
	}

	zero(out)
	for _, id := range g.terminal {
		src := g.bufs[id]
		for i := range out {
			out[i] += src[i]
		}
	}
	for i := range out {
		out[i] = softClip(out[i])
	}
}

// Dispose stops every source, then resets and releases nodes in reverse
// dependency order. Safe to call more than once.
func (g *Graph) Dispose() {
	if g.disposed.Swap(true) {
		return
	}
	g.renderMu.Lock()
	defer g.renderMu.Unlock()
	for i := len(g.order) - 1; i >= 0; i-- {
		n := g.order[i]
		if s, ok := n.(Source); ok {
			s.Stop()
		}
		n.Reset()
	}
	g.order = nil
	g.terminal = nil
}

// Disposed reports whether the graph has been torn down.
func (g *Graph) Disposed() bool { return g.disposed.Load() }
