// Package engine is the audio core shared by every widget: the session
// manager gating output on a user gesture, the node DSP library, the
// graph builder with wet/dry bypass, the parameter binder, the asset
// loader, the analyser feed and the offline renderer.
//
// Blocks are interleaved stereo float32; all per-node processing happens
// on the single render goroutine owned by the session output.
package engine

import "fmt"

// DefaultBlockFrames is the number of stereo frames per processing block.
const DefaultBlockFrames = 128

// Context carries the sample format shared by every node of a graph.
// The realtime and offline paths differ only in who drives Render.
type Context struct {
	SampleRate  int
	BlockFrames int
}

// NewContext returns a context with the default block size.
func NewContext(sampleRate int) *Context {
	return &Context{SampleRate: sampleRate, BlockFrames: DefaultBlockFrames}
}

// BlockLen is the sample count of one interleaved stereo block.
func (c *Context) BlockLen() int {
	return c.BlockFrames * 2
}

// NodeKind identifies a node spec in a recipe.
type NodeKind string

const (
	KindOscillator NodeKind = "oscillator"
	KindSampler    NodeKind = "sampler"
	KindNoise      NodeKind = "noise"
	KindGain       NodeKind = "gain"
	KindPanner     NodeKind = "panner"
	KindTremolo    NodeKind = "tremolo"
	KindLowpass    NodeKind = "lowpass"
	KindLowShelf   NodeKind = "lowshelf"
	KindDelay      NodeKind = "delay"
	KindReverb     NodeKind = "reverb"
	KindGranular   NodeKind = "granular"
	KindAnalyser   NodeKind = "analyser"
)

// Node is a processing element of a built graph. Process reads the summed
// upstream block from in and writes its output to out; both are
// interleaved stereo and len(in) == len(out) == ctx.BlockLen(). Sources
// ignore in. Process runs on the render goroutine only.
type Node interface {
	ID() string
	Kind() NodeKind
	Param(name string) *Param
	Process(in, out []float32)
	Reset()
}

// Source is a node that originates signal and can be started and stopped.
type Source interface {
	Node
	Start()
	Stop()
}

// Triggerable is a source that fires discrete hits (rhythm voices).
type Triggerable interface {
	Trigger(velocity float64)
}

// baseNode carries the identity and parameter table shared by all nodes.
type baseNode struct {
	id     string
	kind   NodeKind
	params map[string]*Param
}

func newBaseNode(id string, kind NodeKind) baseNode {
	return baseNode{id: id, kind: kind, params: make(map[string]*Param)}
}

func (b *baseNode) ID() string       { return b.id }
func (b *baseNode) Kind() NodeKind   { return b.kind }
func (b *baseNode) Param(name string) *Param {
	return b.params[name]
}

func (b *baseNode) addParam(name string, v, min, max float64) *Param {
	p := NewParam(v, min, max)
	b.params[name] = p
	return p
}

// applyInitial sets initial parameter values from a spec, ignoring
// attributes the node does not declare.
func applyInitial(n Node, params map[string]float64) error {
	for name, v := range params {
		p := n.Param(name)
		if p == nil {
			return fmt.Errorf("%w: node %s has no param %q", ErrGraphBuildFailed, n.ID(), name)
		}
		p.Set(v)
	}
	return nil
}
