package widget

import "tonelab/engine"

// GranularWidget scatters short windowed grains over an uploaded
// sample; grain size, density, spray and scan rate are all live.
type GranularWidget struct {
	*base

	url string
}

// NewGranular creates the widget with no sample loaded.
func NewGranular(env Env) *GranularWidget {
	w := &GranularWidget{}
	specs := []ParamSpec{
		{Name: "size", Kind: Float, Min: 0.01, Max: 0.5, Default: 0.09, Unit: "s", Binding: engine.BindRamped},
		{Name: "density", Kind: Float, Min: 1, Max: 100, Default: 20, Unit: "/s", Binding: engine.BindRamped},
		{Name: "spray", Kind: Float, Min: 0, Max: 1, Default: 0.05, Binding: engine.BindRamped},
		{Name: "rate", Kind: Float, Min: 0.1, Max: 2, Default: 1, Binding: engine.BindRamped},
	}
	w.base = newBase(env, "granular", specs, w.buildRecipe)
	for _, p := range []string{"size", "density", "spray", "rate"} {
		w.binder.Bind(engine.Binding{Param: p, NodeID: "grain", Attr: p, Kind: engine.BindRamped})
	}
	return w
}

func (w *GranularWidget) buildRecipe() engine.Recipe {
	return engine.Recipe{
		Nodes: []engine.NodeSpec{
			{Kind: engine.KindGranular, ID: "grain", SampleURL: "source", Params: map[string]float64{
				"size":    w.Get("size"),
				"density": w.Get("density"),
				"spray":   w.Get("spray"),
				"rate":    w.Get("rate"),
			}},
			{Kind: engine.KindAnalyser, ID: "scope"},
		},
		Edges: [][2]string{{"grain", "scope"}},
	}
}

// Load fetches and decodes the sample, then rebuilds the graph around
// it. Blocks until the asset settles.
func (w *GranularWidget) Load(url string) error {
	if err := w.loadAsset("source", url); err != nil {
		return err
	}
	w.url = url
	if w.liveGraph() != nil {
		return w.rebuild()
	}
	return nil
}

// URL returns the loaded sample location, empty when none.
func (w *GranularWidget) URL() string { return w.url }

// Play requires a loaded sample.
func (w *GranularWidget) Play() error {
	if w.asset("source") == nil {
		err := engine.ErrAssetFetchFailed
		w.setError(err)
		return err
	}
	return w.base.Play()
}
