package widget

import (
	"sync"
	"time"

	"tonelab/engine"
	"tonelab/theory"
	"tonelab/transport"
)

// Euclid spreads k hits over n steps with the Bjorklund algorithm and
// plays the active steps on a noise voice.
type Euclid struct {
	*base

	emu     sync.Mutex
	pattern theory.Pattern
	current int
	seq     *transport.Sequence
}

// NewEuclid creates the widget with the classic 5-over-8 pattern.
func NewEuclid(env Env) *Euclid {
	e := &Euclid{current: -1}
	specs := []ParamSpec{
		{Name: "hits", Kind: Int, Min: 1, Max: 16, Step: 1, Default: 5, Binding: engine.BindImmediate},
		{Name: "steps", Kind: Int, Min: 1, Max: 16, Step: 1, Default: 8, Binding: engine.BindImmediate},
		{Name: "rotate", Kind: Int, Min: 0, Max: 15, Step: 1, Default: 0, Binding: engine.BindImmediate},
		{Name: "level", Kind: Float, Min: 0, Max: 1, Default: 0.7, Unit: "gain", Binding: engine.BindRamped},
		{Name: "decay", Kind: Float, Min: 0.02, Max: 1, Default: 0.12, Unit: "s", Binding: engine.BindRamped},
	}
	e.base = newBase(env, "euclid", specs, e.buildRecipe)
	e.binder.Bind(engine.Binding{Param: "level", NodeID: "hat", Attr: "level", Kind: engine.BindRamped})
	e.binder.Bind(engine.Binding{Param: "decay", NodeID: "hat", Attr: "decay", Kind: engine.BindRamped})

	e.regenerate()
	e.seq = env.Transport.AddSequence(8, transport.Sixteenth, e.onStep)
	return e
}

func (e *Euclid) buildRecipe() engine.Recipe {
	return engine.Recipe{
		Nodes: []engine.NodeSpec{
			{Kind: engine.KindNoise, ID: "hat", Params: map[string]float64{
				"level": e.Get("level"),
				"decay": e.Get("decay"),
			}},
			{Kind: engine.KindLowpass, ID: "tone", Params: map[string]float64{"cutoff": 9000}},
		},
		Edges: [][2]string{{"hat", "tone"}},
	}
}

// Set regenerates the pattern when the rhythm parameters move. The
// hit count is held at or below the step count.
func (e *Euclid) Set(name string, v float64) {
	e.base.Set(name, v)
	switch name {
	case "hits", "steps", "rotate":
		if e.Get("hits") > e.Get("steps") {
			e.base.Set("hits", e.Get("steps"))
		}
		e.regenerate()
		e.env.Transport.SetSteps(e.seq, int(e.Get("steps")))
	}
}

func (e *Euclid) regenerate() {
	p := theory.Bjorklund(int(e.Get("hits")), int(e.Get("steps")))
	p = p.Rotate(int(e.Get("rotate")))
	e.emu.Lock()
	e.pattern = p
	e.emu.Unlock()
}

// Pattern returns the current hit layout.
func (e *Euclid) Pattern() theory.Pattern {
	e.emu.Lock()
	defer e.emu.Unlock()
	out := make(theory.Pattern, len(e.pattern))
	copy(out, e.pattern)
	return out
}

// CurrentStep is the playhead, -1 while stopped.
func (e *Euclid) CurrentStep() int {
	e.emu.Lock()
	defer e.emu.Unlock()
	return e.current
}

func (e *Euclid) onStep(at time.Time, step int, velocity float64) {
	e.emu.Lock()
	active := step >= 0 && step < len(e.pattern) && e.pattern[step]
	e.current = step
	e.emu.Unlock()

	if !active || e.State() != StatePlaying {
		return
	}
	if g := e.liveGraph(); g != nil {
		g.Trigger("hat", velocity)
	}
}

// Play arms the voice and the shared transport.
func (e *Euclid) Play() error {
	if err := e.base.Play(); err != nil {
		return err
	}
	e.env.Transport.Start()
	return nil
}

// Stop clears the playhead.
func (e *Euclid) Stop() {
	e.base.Stop()
	e.emu.Lock()
	e.current = -1
	e.emu.Unlock()
}

// Close drops the sequence along with the graph.
func (e *Euclid) Close() {
	e.env.Transport.RemoveSequence(e.seq)
	e.base.Close()
}
