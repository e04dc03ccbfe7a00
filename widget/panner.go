package widget

import "tonelab/engine"

// Panner demonstrates equal-power stereo placement: manual pan plus an
// optional auto-pan LFO sweeping the image.
type Panner struct {
	*base
}

// NewPanner creates the widget centred with the LFO off.
func NewPanner(env Env) *Panner {
	w := &Panner{}
	specs := []ParamSpec{
		{Name: "frequency", Kind: Float, Min: 55, Max: 880, Default: 330, Unit: "Hz", Binding: engine.BindRamped},
		{Name: "pan", Kind: Float, Min: -1, Max: 1, Default: 0, Binding: engine.BindRamped},
		{Name: "lfoRate", Kind: Float, Min: 0.01, Max: 20, Default: 0.5, Unit: "Hz", Binding: engine.BindRamped},
		{Name: "lfoAmount", Kind: Float, Min: 0, Max: 1, Default: 0, Binding: engine.BindRamped},
	}
	w.base = newBase(env, "panner", specs, w.buildRecipe)
	w.binder.Bind(engine.Binding{Param: "frequency", NodeID: "osc", Attr: "frequency", Kind: engine.BindRamped})
	w.binder.Bind(engine.Binding{Param: "pan", NodeID: "pan", Attr: "pan", Kind: engine.BindRamped})
	w.binder.Bind(engine.Binding{Param: "lfoRate", NodeID: "pan", Attr: "lfoRate", Kind: engine.BindRamped})
	w.binder.Bind(engine.Binding{Param: "lfoAmount", NodeID: "pan", Attr: "lfoAmount", Kind: engine.BindRamped})
	return w
}

func (w *Panner) buildRecipe() engine.Recipe {
	return engine.Recipe{
		Nodes: []engine.NodeSpec{
			{Kind: engine.KindOscillator, ID: "osc", Params: map[string]float64{
				"frequency": w.Get("frequency"),
				"level":     0.4,
			}},
			{Kind: engine.KindPanner, ID: "pan", Effect: true, Params: map[string]float64{
				"pan":       w.Get("pan"),
				"lfoRate":   w.Get("lfoRate"),
				"lfoAmount": w.Get("lfoAmount"),
			}},
		},
		Edges: [][2]string{{"osc", "pan"}},
	}
}

// SetBypass collapses the image back to centre without a rebuild.
func (w *Panner) SetBypass(bypassed bool) {
	if g := w.liveGraph(); g != nil {
		g.SetBypass("pan", bypassed)
	}
}

func (w *Panner) Bypassed() bool {
	if g := w.liveGraph(); g != nil {
		return g.Bypassed("pan")
	}
	return false
}
