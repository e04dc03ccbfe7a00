package widget

import (
	"sync"
	"time"

	"tonelab/engine"
	"tonelab/theory"
	"tonelab/transport"
)

// Polyrhythm runs two sequences of independent lengths against the
// same clock, each on its own pitched voice, so the drift and
// re-alignment of (say) 3 against 4 can be heard and watched.
type Polyrhythm struct {
	*base

	pmu   sync.Mutex
	stepA int
	stepB int
	seqA  *transport.Sequence
	seqB  *transport.Sequence
}

// NewPolyrhythm creates the widget with the canonical 3:4 pairing.
func NewPolyrhythm(env Env) *Polyrhythm {
	w := &Polyrhythm{stepA: -1, stepB: -1}
	specs := []ParamSpec{
		{Name: "lenA", Kind: Int, Min: 2, Max: 12, Step: 1, Default: 3, Binding: engine.BindImmediate},
		{Name: "lenB", Kind: Int, Min: 2, Max: 12, Step: 1, Default: 4, Binding: engine.BindImmediate},
		{Name: "level", Kind: Float, Min: 0, Max: 1, Default: 0.5, Unit: "gain", Binding: engine.BindRamped},
	}
	w.base = newBase(env, "polyrhythm", specs, w.buildRecipe)
	w.binder.Bind(engine.Binding{Param: "level", NodeID: "mix", Attr: "gain", Kind: engine.BindRamped})

	w.seqA = env.Transport.AddSequence(3, transport.Eighth, w.onStepA)
	w.seqB = env.Transport.AddSequence(4, transport.Eighth, w.onStepB)
	return w
}

func (w *Polyrhythm) buildRecipe() engine.Recipe {
	freqA := theory.Pitch{Class: theory.E, Octave: 5}.Frequency()
	freqB := theory.Pitch{Class: theory.A, Octave: 4}.Frequency()
	return engine.Recipe{
		Nodes: []engine.NodeSpec{
			{Kind: engine.KindOscillator, ID: "voiceA", Params: map[string]float64{
				"frequency": freqA, "sustain": 0, "decay": 0.1, "level": 0.3,
			}},
			{Kind: engine.KindOscillator, ID: "voiceB", Params: map[string]float64{
				"frequency": freqB, "sustain": 0, "decay": 0.1, "level": 0.3,
			}},
			{Kind: engine.KindGain, ID: "mix", Params: map[string]float64{"gain": w.Get("level")}},
		},
		Edges: [][2]string{{"voiceA", "mix"}, {"voiceB", "mix"}},
	}
}

// Set resizes the two cycles when their lengths move.
func (w *Polyrhythm) Set(name string, v float64) {
	w.base.Set(name, v)
	switch name {
	case "lenA":
		w.env.Transport.SetSteps(w.seqA, int(w.Get("lenA")))
	case "lenB":
		w.env.Transport.SetSteps(w.seqB, int(w.Get("lenB")))
	}
}

// Steps returns both playheads, -1 while stopped.
func (w *Polyrhythm) Steps() (a, b int) {
	w.pmu.Lock()
	defer w.pmu.Unlock()
	return w.stepA, w.stepB
}

// AlignBeats is the number of cycle steps after which the two patterns
// re-align (their least common multiple).
func (w *Polyrhythm) AlignBeats() int {
	a, b := int(w.Get("lenA")), int(w.Get("lenB"))
	return lcm(a, b)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	return a / gcd(a, b) * b
}

func (w *Polyrhythm) onStepA(at time.Time, step int, velocity float64) {
	w.pmu.Lock()
	w.stepA = step
	w.pmu.Unlock()
	w.trigger("voiceA", step, velocity)
}

func (w *Polyrhythm) onStepB(at time.Time, step int, velocity float64) {
	w.pmu.Lock()
	w.stepB = step
	w.pmu.Unlock()
	w.trigger("voiceB", step, velocity)
}

func (w *Polyrhythm) trigger(voice string, step int, velocity float64) {
	if w.State() != StatePlaying {
		return
	}
	// Accent the downbeat of each cycle.
	if step == 0 {
		velocity = 1
	} else {
		velocity *= 0.7
	}
	if g := w.liveGraph(); g != nil {
		g.Trigger(voice, velocity)
	}
}

// Play arms both voices and the shared transport.
func (w *Polyrhythm) Play() error {
	if err := w.base.Play(); err != nil {
		return err
	}
	w.env.Transport.Start()
	return nil
}

// Stop clears both playheads.
func (w *Polyrhythm) Stop() {
	w.base.Stop()
	w.pmu.Lock()
	w.stepA = -1
	w.stepB = -1
	w.pmu.Unlock()
}

// Close drops both sequences.
func (w *Polyrhythm) Close() {
	w.env.Transport.RemoveSequence(w.seqA)
	w.env.Transport.RemoveSequence(w.seqB)
	w.base.Close()
}
