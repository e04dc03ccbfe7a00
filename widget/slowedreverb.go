package widget

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"tonelab/engine"
)

// SlowedReverb plays an uploaded track at reduced speed through a
// reverb, and renders the processed result offline to a WAV file. The
// bypass crossfades the reverb only; playback rate is untouched.
type SlowedReverb struct {
	*base

	url string
}

// NewSlowedReverb creates the widget at the genre-standard 0.8 rate.
func NewSlowedReverb(env Env) *SlowedReverb {
	w := &SlowedReverb{}
	specs := []ParamSpec{
		{Name: "rate", Kind: Float, Min: 0.5, Max: 1, Default: 0.8, Binding: engine.BindRamped},
		{Name: "decay", Kind: Float, Min: 0.1, Max: 12, Default: 4, Unit: "s", Binding: engine.BindRamped},
		{Name: "damp", Kind: Float, Min: 0, Max: 1, Default: 0.4, Binding: engine.BindRamped},
		{Name: "level", Kind: Float, Min: 0, Max: 2, Default: 1, Unit: "gain", Binding: engine.BindRamped},
	}
	w.base = newBase(env, "slowedreverb", specs, w.buildRecipe)
	w.binder.Bind(engine.Binding{Param: "rate", NodeID: "player", Attr: "rate", Kind: engine.BindRamped})
	w.binder.Bind(engine.Binding{Param: "level", NodeID: "player", Attr: "gain", Kind: engine.BindRamped})
	w.binder.Bind(engine.Binding{Param: "decay", NodeID: "verb", Attr: "decay", Kind: engine.BindRamped})
	w.binder.Bind(engine.Binding{Param: "damp", NodeID: "verb", Attr: "damp", Kind: engine.BindRamped})
	return w
}

func (w *SlowedReverb) buildRecipe() engine.Recipe {
	return engine.Recipe{
		Nodes: []engine.NodeSpec{
			{Kind: engine.KindSampler, ID: "player", SampleURL: "track", Params: map[string]float64{
				"rate": w.Get("rate"),
				"gain": w.Get("level"),
				"loop": 1,
			}},
			{Kind: engine.KindReverb, ID: "verb", Effect: true, Params: map[string]float64{
				"decay": w.Get("decay"),
				"damp":  w.Get("damp"),
			}},
		},
		Edges: [][2]string{{"player", "verb"}},
	}
}

// Load fetches the track and rebuilds around it.
func (w *SlowedReverb) Load(url string) error {
	if err := w.loadAsset("track", url); err != nil {
		return err
	}
	w.url = url
	if w.liveGraph() != nil {
		return w.rebuild()
	}
	return nil
}

// SetBypass crossfades the reverb; the slowed playback rate stays.
func (w *SlowedReverb) SetBypass(bypassed bool) {
	if g := w.liveGraph(); g != nil {
		g.SetBypass("verb", bypassed)
	}
}

// OutputName suggests the download filename for a source track.
func (w *SlowedReverb) OutputName() string {
	base := filepath.Base(w.url)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." {
		base = "track"
	}
	return base + "-slowed.wav"
}

// RenderToFile runs the widget's recipe offline, without the loop
// flag, and writes the processed track as PCM WAV. The render length
// is the slowed playback time plus the full reverb tail.
func (w *SlowedReverb) RenderToFile(ctx context.Context, dir string, progress func(done, total int)) (string, error) {
	track := w.asset("track")
	if track == nil {
		err := engine.ErrAssetFetchFailed
		w.setError(err)
		return "", err
	}

	recipe := w.buildRecipe()
	for i := range recipe.Nodes {
		if recipe.Nodes[i].ID == "player" {
			recipe.Nodes[i].Params["loop"] = 0
		}
	}
	dur := engine.RenderDuration(track, w.Get("rate"), w.Get("decay"))
	buf, err := engine.RenderOffline(ctx, w.env.Session.Context(), recipe, map[string]*engine.Buffer{"track": track}, dur, progress)
	if err != nil {
		w.setError(err)
		return "", err
	}

	path := filepath.Join(dir, w.OutputName())
	if err := os.WriteFile(path, engine.EncodeWAV(buf), 0644); err != nil {
		w.setError(err)
		return "", err
	}
	return path, nil
}

// Play requires a loaded track.
func (w *SlowedReverb) Play() error {
	if w.asset("track") == nil {
		err := engine.ErrAssetFetchFailed
		w.setError(err)
		return err
	}
	return w.base.Play()
}
