package engine

import (
	"errors"
	"math"
	"testing"
)

func testCtx() *Context {
	return NewContext(48000)
}

func sineRecipe() Recipe {
	return Recipe{
		Nodes: []NodeSpec{
			{Kind: KindOscillator, ID: "osc", Params: map[string]float64{"frequency": 440, "level": 0.5}},
			{Kind: KindGain, ID: "out", Params: map[string]float64{"gain": 1}},
		},
		Edges: [][2]string{{"osc", "out"}},
	}
}

func TestBuildValidation(t *testing.T) {
	ctx := testCtx()
	cases := []struct {
		name   string
		recipe Recipe
	}{
		{"empty", Recipe{}},
		{"duplicate id", Recipe{Nodes: []NodeSpec{
			{Kind: KindGain, ID: "a"},
			{Kind: KindGain, ID: "a"},
		}}},
		{"missing id", Recipe{Nodes: []NodeSpec{{Kind: KindGain}}}},
		{"unknown edge src", Recipe{
			Nodes: []NodeSpec{{Kind: KindGain, ID: "a"}},
			Edges: [][2]string{{"ghost", "a"}},
		}},
		{"unknown edge dst", Recipe{
			Nodes: []NodeSpec{{Kind: KindGain, ID: "a"}},
			Edges: [][2]string{{"a", "ghost"}},
		}},
		{"fan out", Recipe{
			Nodes: []NodeSpec{
				{Kind: KindGain, ID: "a"},
				{Kind: KindGain, ID: "b"},
				{Kind: KindGain, ID: "c"},
			},
			Edges: [][2]string{{"a", "b"}, {"a", "c"}},
		}},
		{"cycle", Recipe{
			Nodes: []NodeSpec{
				{Kind: KindGain, ID: "a"},
				{Kind: KindGain, ID: "b"},
			},
			Edges: [][2]string{{"a", "b"}, {"b", "a"}},
		}},
		{"unknown kind", Recipe{Nodes: []NodeSpec{{Kind: "theremin", ID: "a"}}}},
	}
	for _, tc := range cases {
		_, err := Build(tc.recipe, ctx, nil)
		if !errors.Is(err, ErrGraphBuildFailed) {
			t.Errorf("%s: Build err = %v, want ErrGraphBuildFailed", tc.name, err)
		}
	}
}

func TestGraphRendersAudio(t *testing.T) {
	ctx := testCtx()
	g, err := Build(sineRecipe(), ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer g.Dispose()

	g.Start()
	out := make([]float32, ctx.BlockLen())
	var peak float32
	for i := 0; i < 20; i++ {
		g.Render(out)
		for _, s := range out {
			if a := float32(math.Abs(float64(s))); a > peak {
				peak = a
			}
		}
	}
	if peak < 0.1 {
		t.Fatalf("peak = %v, expected audible sine output", peak)
	}

	g.Stop()
	// Drain a few blocks so the envelope dies away.
	for i := 0; i < 50; i++ {
		g.Render(out)
	}
	for _, s := range out {
		if math.Abs(float64(s)) > 0.01 {
			t.Fatalf("still producing audio after Stop: %v", s)
		}
	}
}

func TestGraphTopoOrderMixesBranches(t *testing.T) {
	// Two sources into one gain; render must not error and the gain must
	// see both inputs summed.
	ctx := testCtx()
	recipe := Recipe{
		Nodes: []NodeSpec{
			{Kind: KindOscillator, ID: "a", Params: map[string]float64{"frequency": 220, "level": 0.2}},
			{Kind: KindOscillator, ID: "b", Params: map[string]float64{"frequency": 330, "level": 0.2}},
			{Kind: KindGain, ID: "mix"},
		},
		Edges: [][2]string{{"a", "mix"}, {"b", "mix"}},
	}
	g, err := Build(recipe, ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer g.Dispose()
	g.Start()
	out := make([]float32, ctx.BlockLen())
	g.Render(out)
	silent := true
	for _, s := range out {
		if s != 0 {
			silent = false
			break
		}
	}
	if silent {
		t.Fatal("mixed branches produced silence")
	}
}

func TestBypassCrossfade(t *testing.T) {
	ctx := testCtx()
	recipe := Recipe{
		Nodes: []NodeSpec{
			{Kind: KindOscillator, ID: "osc", Params: map[string]float64{"frequency": 440, "level": 0.5}},
			{Kind: KindGain, ID: "cut", Effect: true, Params: map[string]float64{"gain": 0}},
		},
		Edges: [][2]string{{"osc", "cut"}},
	}
	g, err := Build(recipe, ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer g.Dispose()
	g.Start()

	wet, dry := g.Split("cut")
	if wet == nil || dry == nil {
		t.Fatal("effect node has no wet/dry split")
	}
	if wet.Value() != 1 || dry.Value() != 0 {
		t.Fatalf("initial split = wet %v dry %v, want 1/0", wet.Value(), dry.Value())
	}

	out := make([]float32, ctx.BlockLen())
	// The zero-gain effect silences everything while active.
	for i := 0; i < 4; i++ {
		g.Render(out)
	}
	for _, s := range out {
		if s != 0 {
			t.Fatalf("wet path with zero gain should be silent, got %v", s)
		}
	}

	g.SetBypass("cut", true)
	if !g.Bypassed("cut") {
		t.Fatal("Bypassed() = false after SetBypass(true)")
	}
	// 15 ms tau: by 50 ms the crossfade has fully settled.
	blocks := ctx.SampleRate / 20 / ctx.BlockFrames
	for i := 0; i < blocks; i++ {
		g.Render(out)
	}
	if wet.Value() > 0.05 || dry.Value() < 0.95 {
		t.Fatalf("crossfade did not settle: wet %v dry %v", wet.Value(), dry.Value())
	}
	g.Render(out)
	silent := true
	for _, s := range out {
		if s != 0 {
			silent = false
			break
		}
	}
	if silent {
		t.Fatal("bypassed effect should pass the dry signal through")
	}
}

func TestBypassSumNearUnity(t *testing.T) {
	// During the crossfade wet+dry stays close to 1, so a unity effect
	// never dips audibly.
	ctx := testCtx()
	recipe := Recipe{
		Nodes: []NodeSpec{
			{Kind: KindGain, ID: "fx", Effect: true, Params: map[string]float64{"gain": 1}},
		},
	}
	g, err := Build(recipe, ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer g.Dispose()

	wet, dry := g.Split("fx")
	g.SetBypass("fx", true)
	for i := 0; i < 4000; i++ {
		sum := wet.Next() + dry.Next()
		if math.Abs(sum-1) > 0.05 {
			t.Fatalf("wet+dry = %v at sample %d, drifted from unity", sum, i)
		}
	}
}

func TestGraphDispose(t *testing.T) {
	ctx := testCtx()
	g, err := Build(sineRecipe(), ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	g.Start()
	g.Dispose()
	g.Dispose() // idempotent

	if !g.Disposed() {
		t.Fatal("Disposed() = false after Dispose")
	}
	if g.Node("osc") != nil {
		t.Fatal("Node() should return nil after Dispose")
	}
	out := make([]float32, ctx.BlockLen())
	out[0] = 42
	g.Render(out)
	if out[0] != 0 {
		t.Fatal("Render after Dispose should write silence")
	}
}

func TestGraphTrigger(t *testing.T) {
	ctx := testCtx()
	recipe := Recipe{
		Nodes: []NodeSpec{
			{Kind: KindNoise, ID: "hat", Params: map[string]float64{"level": 0.8, "decay": 0.05}},
		},
	}
	g, err := Build(recipe, ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer g.Dispose()
	g.Start()

	out := make([]float32, ctx.BlockLen())
	g.Render(out)
	for _, s := range out {
		if s != 0 {
			t.Fatal("noise source should be silent before Trigger")
		}
	}

	g.Trigger("hat", 1)
	g.Render(out)
	hit := false
	for _, s := range out {
		if s != 0 {
			hit = true
			break
		}
	}
	if !hit {
		t.Fatal("Trigger produced no output")
	}
}

func TestAnalyserInGraph(t *testing.T) {
	ctx := testCtx()
	recipe := Recipe{
		Nodes: []NodeSpec{
			{Kind: KindOscillator, ID: "osc", Params: map[string]float64{"frequency": 1000, "level": 0.5}},
			{Kind: KindAnalyser, ID: "scope", FFTSize: 512},
		},
		Edges: [][2]string{{"osc", "scope"}},
	}
	g, err := Build(recipe, ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer g.Dispose()

	a := g.Analyser()
	if a == nil {
		t.Fatal("Analyser() = nil")
	}
	if a.FFTSize() != 512 {
		t.Fatalf("FFTSize() = %d, want 512", a.FFTSize())
	}

	g.Start()
	out := make([]float32, ctx.BlockLen())
	for i := 0; i < 8; i++ {
		g.Render(out)
	}

	td := a.Snapshot(TimeDomain)
	if len(td) != 512 {
		t.Fatalf("time-domain snapshot length = %d, want 512", len(td))
	}
	nonZero := false
	for _, v := range td {
		if v != 0 {
			nonZero = true
			break
		}
	}
	if !nonZero {
		t.Fatal("time-domain snapshot is all zeros")
	}

	fd := a.Snapshot(FrequencyDomain)
	if len(fd) != 256 {
		t.Fatalf("frequency-domain snapshot length = %d, want 256", len(fd))
	}
	// The 1 kHz bin should dominate. 48000/512 = 93.75 Hz per bin.
	peakBin := 0
	for i, v := range fd {
		if v > fd[peakBin] {
			peakBin = i
		}
	}
	if peakBin < 9 || peakBin > 12 {
		t.Fatalf("spectral peak at bin %d, want near bin 10-11 for 1 kHz", peakBin)
	}
}

func TestAnalyserSizeValidation(t *testing.T) {
	for _, size := range []int{0, 100, 255, 8192, 48} {
		if _, err := NewAnalyser("a", size); err == nil {
			t.Errorf("NewAnalyser(%d) accepted invalid size", size)
		}
	}
	for _, size := range []int{256, 512, 1024, 2048, 4096} {
		if _, err := NewAnalyser("a", size); err != nil {
			t.Errorf("NewAnalyser(%d): %v", size, err)
		}
	}
}
