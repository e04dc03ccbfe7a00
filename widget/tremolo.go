package widget

import "tonelab/engine"

// Tremolo runs a sustained oscillator through an LFO-driven gain so
// rate and depth changes are heard immediately.
type Tremolo struct {
	*base
}

// NewTremolo creates the widget with a 5 Hz, half-depth effect.
func NewTremolo(env Env) *Tremolo {
	w := &Tremolo{}
	specs := []ParamSpec{
		{Name: "frequency", Kind: Float, Min: 55, Max: 880, Default: 220, Unit: "Hz", Binding: engine.BindRamped},
		{Name: "rate", Kind: Float, Min: 0.1, Max: 20, Default: 5, Unit: "Hz", Binding: engine.BindRamped},
		{Name: "depth", Kind: Float, Min: 0, Max: 1, Default: 0.5, Binding: engine.BindRamped},
		{Name: "shape", Kind: Enum, Min: 0, Max: 3, Step: 1, Default: 0, Binding: engine.BindImmediate},
		{Name: "waveform", Kind: Enum, Min: 0, Max: 3, Step: 1, Default: 0, Binding: engine.BindImmediate},
	}
	w.base = newBase(env, "tremolo", specs, w.buildRecipe)
	w.binder.Bind(engine.Binding{Param: "frequency", NodeID: "osc", Attr: "frequency", Kind: engine.BindRamped})
	w.binder.Bind(engine.Binding{Param: "waveform", NodeID: "osc", Attr: "waveform", Kind: engine.BindImmediate})
	w.binder.Bind(engine.Binding{Param: "rate", NodeID: "trem", Attr: "rate", Kind: engine.BindRamped})
	w.binder.Bind(engine.Binding{Param: "depth", NodeID: "trem", Attr: "depth", Kind: engine.BindRamped})
	w.binder.Bind(engine.Binding{Param: "shape", NodeID: "trem", Attr: "shape", Kind: engine.BindImmediate})
	return w
}

func (w *Tremolo) buildRecipe() engine.Recipe {
	return engine.Recipe{
		Nodes: []engine.NodeSpec{
			{Kind: engine.KindOscillator, ID: "osc", Params: map[string]float64{
				"frequency": w.Get("frequency"),
				"waveform":  w.Get("waveform"),
				"level":     0.4,
			}},
			{Kind: engine.KindTremolo, ID: "trem", Effect: true, Params: map[string]float64{
				"rate":  w.Get("rate"),
				"depth": w.Get("depth"),
				"shape": w.Get("shape"),
			}},
			{Kind: engine.KindAnalyser, ID: "scope"},
		},
		Edges: [][2]string{{"osc", "trem"}, {"trem", "scope"}},
	}
}

// SetBypass crossfades the effect out of the chain.
func (w *Tremolo) SetBypass(bypassed bool) {
	if g := w.liveGraph(); g != nil {
		g.SetBypass("trem", bypassed)
	}
}

// Bypassed reports the requested bypass state.
func (w *Tremolo) Bypassed() bool {
	if g := w.liveGraph(); g != nil {
		return g.Bypassed("trem")
	}
	return false
}
