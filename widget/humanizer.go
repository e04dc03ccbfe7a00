package widget

import (
	"sync"
	"time"

	"tonelab/engine"
	"tonelab/transport"
)

// humanizerSteps is the fixed pattern length of the comparison widget.
const humanizerSteps = 8

// Humanizer plays a rigid 8-step pattern and, when enabled, the same
// pattern with seeded timing and velocity jitter, for an A/B ear test.
type Humanizer struct {
	*base

	hmu     sync.Mutex
	current int
	seq     *transport.Sequence
}

// NewHumanizer creates the widget with jitter off.
func NewHumanizer(env Env) *Humanizer {
	w := &Humanizer{current: -1}
	specs := []ParamSpec{
		{Name: "enabled", Kind: Bool, Min: 0, Max: 1, Step: 1, Default: 0, Binding: engine.BindImmediate},
		{Name: "timingJitter", Kind: Float, Min: 0, Max: 60, Default: 15, Unit: "ms", Binding: engine.BindImmediate},
		{Name: "velocityJitter", Kind: Float, Min: 0, Max: 1, Default: 0.3, Binding: engine.BindImmediate},
		{Name: "seed", Kind: Int, Min: 0, Max: 9999, Step: 1, Default: 1, Binding: engine.BindImmediate},
		{Name: "level", Kind: Float, Min: 0, Max: 1, Default: 0.7, Unit: "gain", Binding: engine.BindRamped},
	}
	w.base = newBase(env, "humanizer", specs, w.buildRecipe)
	w.binder.Bind(engine.Binding{Param: "level", NodeID: "hit", Attr: "level", Kind: engine.BindRamped})

	w.seq = env.Transport.AddSequence(humanizerSteps, transport.Eighth, w.onStep)
	return w
}

func (w *Humanizer) buildRecipe() engine.Recipe {
	return engine.Recipe{
		Nodes: []engine.NodeSpec{
			{Kind: engine.KindNoise, ID: "hit", Params: map[string]float64{
				"level": w.Get("level"),
				"decay": 0.08,
			}},
		},
	}
}

// Set reseeds the jitter profile whenever its inputs change.
func (w *Humanizer) Set(name string, v float64) {
	w.base.Set(name, v)
	switch name {
	case "enabled", "timingJitter", "velocityJitter", "seed":
		w.applyHumanize()
	}
}

func (w *Humanizer) applyHumanize() {
	if w.Get("enabled") < 0.5 {
		w.env.Transport.SetHumanize(w.seq, nil)
		return
	}
	h := transport.NewHumanize(w.Get("timingJitter"), w.Get("velocityJitter"), int64(w.Get("seed")))
	w.env.Transport.SetHumanize(w.seq, h)
}

// CurrentStep is the playhead, -1 while stopped.
func (w *Humanizer) CurrentStep() int {
	w.hmu.Lock()
	defer w.hmu.Unlock()
	return w.current
}

func (w *Humanizer) onStep(at time.Time, step int, velocity float64) {
	w.hmu.Lock()
	w.current = step
	w.hmu.Unlock()
	if w.State() != StatePlaying {
		return
	}
	if g := w.liveGraph(); g != nil {
		g.Trigger("hit", velocity)
	}
}

// Play arms the voice and the shared transport.
func (w *Humanizer) Play() error {
	if err := w.base.Play(); err != nil {
		return err
	}
	w.applyHumanize()
	w.env.Transport.Start()
	return nil
}

// Stop clears the playhead.
func (w *Humanizer) Stop() {
	w.base.Stop()
	w.hmu.Lock()
	w.current = -1
	w.hmu.Unlock()
}

// Close drops the sequence.
func (w *Humanizer) Close() {
	w.env.Transport.RemoveSequence(w.seq)
	w.base.Close()
}
