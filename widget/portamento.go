package widget

import (
	"time"

	"tonelab/engine"
	"tonelab/theory"
)

// Portamento is a monophonic synth whose pitch glides: each new target
// note ramps the oscillator frequency over the configured glide time
// instead of stepping.
type Portamento struct {
	*base

	lastPitch theory.Pitch
}

// NewPortamento creates the widget on A3 with an 80 ms glide.
func NewPortamento(env Env) *Portamento {
	w := &Portamento{lastPitch: theory.Pitch{Class: theory.A, Octave: 3}}
	specs := []ParamSpec{
		{Name: "glide", Kind: Float, Min: 0, Max: 2000, Default: 80, Unit: "ms", Binding: engine.BindImmediate},
		{Name: "level", Kind: Float, Min: 0, Max: 1, Default: 0.4, Unit: "gain", Binding: engine.BindRamped},
		{Name: "waveform", Kind: Enum, Min: 0, Max: 3, Step: 1, Default: 2, Binding: engine.BindImmediate},
	}
	w.base = newBase(env, "portamento", specs, w.buildRecipe)
	w.binder.Bind(engine.Binding{Param: "level", NodeID: "osc", Attr: "level", Kind: engine.BindRamped})
	w.binder.Bind(engine.Binding{Param: "waveform", NodeID: "osc", Attr: "waveform", Kind: engine.BindImmediate})
	return w
}

func (w *Portamento) buildRecipe() engine.Recipe {
	return engine.Recipe{
		Nodes: []engine.NodeSpec{
			{Kind: engine.KindOscillator, ID: "osc", Params: map[string]float64{
				"frequency": w.lastPitch.Frequency(),
				"level":     w.Get("level"),
				"waveform":  w.Get("waveform"),
			}},
			{Kind: engine.KindLowpass, ID: "smooth", Params: map[string]float64{"cutoff": 6000}},
		},
		Edges: [][2]string{{"osc", "smooth"}},
	}
}

// NoteOn glides the voice to a new pitch. Glide time zero steps the
// frequency instantly.
func (w *Portamento) NoteOn(p theory.Pitch) {
	w.lastPitch = p
	node := w.graphNode("osc")
	if node == nil {
		return
	}
	freq := node.Param("frequency")
	glide := time.Duration(w.Get("glide") * float64(time.Millisecond))
	if glide <= 0 {
		freq.Set(p.Frequency())
		return
	}
	freq.Ramp(p.Frequency(), glide, w.env.Session.SampleRate())
}

// Pitch returns the current target note.
func (w *Portamento) Pitch() theory.Pitch { return w.lastPitch }
