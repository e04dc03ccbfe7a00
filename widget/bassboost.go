package widget

import "tonelab/engine"

// BassBoost loops an uploaded sample through a low-shelf boost with a
// soft clipper, the classic earbud bass trick.
type BassBoost struct {
	*base

	url string
}

// NewBassBoost creates the widget with a 6 dB boost at 150 Hz.
func NewBassBoost(env Env) *BassBoost {
	w := &BassBoost{}
	specs := []ParamSpec{
		{Name: "gainDB", Kind: Float, Min: -24, Max: 24, Default: 6, Unit: "dB", Binding: engine.BindRamped},
		{Name: "cutoff", Kind: Float, Min: 20, Max: 1000, Default: 150, Unit: "Hz", Binding: engine.BindRamped},
		{Name: "level", Kind: Float, Min: 0, Max: 2, Default: 1, Unit: "gain", Binding: engine.BindRamped},
	}
	w.base = newBase(env, "bassboost", specs, w.buildRecipe)
	w.binder.Bind(engine.Binding{Param: "gainDB", NodeID: "shelf", Attr: "gainDB", Kind: engine.BindRamped})
	w.binder.Bind(engine.Binding{Param: "cutoff", NodeID: "shelf", Attr: "cutoff", Kind: engine.BindRamped})
	w.binder.Bind(engine.Binding{Param: "level", NodeID: "player", Attr: "gain", Kind: engine.BindRamped})
	return w
}

func (w *BassBoost) buildRecipe() engine.Recipe {
	return engine.Recipe{
		Nodes: []engine.NodeSpec{
			{Kind: engine.KindSampler, ID: "player", SampleURL: "track", Params: map[string]float64{
				"loop": 1,
				"gain": w.Get("level"),
			}},
			{Kind: engine.KindLowShelf, ID: "shelf", Effect: true, Params: map[string]float64{
				"gainDB": w.Get("gainDB"),
				"cutoff": w.Get("cutoff"),
			}},
			{Kind: engine.KindAnalyser, ID: "scope"},
		},
		Edges: [][2]string{{"player", "shelf"}, {"shelf", "scope"}},
	}
}

// Load fetches the track and rebuilds around it.
func (w *BassBoost) Load(url string) error {
	if err := w.loadAsset("track", url); err != nil {
		return err
	}
	w.url = url
	if w.liveGraph() != nil {
		return w.rebuild()
	}
	return nil
}

// URL returns the loaded track location, empty when none.
func (w *BassBoost) URL() string { return w.url }

// SetBypass lets the ear compare boosted against flat.
func (w *BassBoost) SetBypass(bypassed bool) {
	if g := w.liveGraph(); g != nil {
		g.SetBypass("shelf", bypassed)
	}
}

// Bypassed reports the requested bypass state.
func (w *BassBoost) Bypassed() bool {
	if g := w.liveGraph(); g != nil {
		return g.Bypassed("shelf")
	}
	return false
}

// Play requires a loaded track.
func (w *BassBoost) Play() error {
	if w.asset("track") == nil {
		err := engine.ErrAssetFetchFailed
		w.setError(err)
		return err
	}
	return w.base.Play()
}
