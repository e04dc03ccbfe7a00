package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"tonelab/engine"
)

// render processes a WAV file through the slowed-and-reverb chain
// offline and writes the result next to the input.
func main() {
	var (
		in    = flag.String("in", "", "input WAV file or http(s) URL")
		out   = flag.String("out", "", "output path (default <input>-slowed.wav)")
		rate  = flag.Float64("rate", 0.8, "playback rate, 0.5 to 1")
		decay = flag.Float64("decay", 4, "reverb decay in seconds")
		damp  = flag.Float64("damp", 0.4, "reverb high-frequency damping, 0 to 1")
		sr    = flag.Int("samplerate", 48000, "render sample rate")
		quiet = flag.Bool("q", false, "suppress progress output")
	)
	flag.Parse()

	if *in == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *rate < 0.5 || *rate > 1 {
		fmt.Fprintln(os.Stderr, "rate must be between 0.5 and 1")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	loader := engine.NewAssetLoader()
	res := <-loader.Fetch(*in)
	if res.Err != nil {
		fmt.Fprintf(os.Stderr, "load %s: %v\n", *in, res.Err)
		os.Exit(1)
	}
	track := res.Buffer

	recipe := engine.Recipe{
		Nodes: []engine.NodeSpec{
			{Kind: engine.KindSampler, ID: "player", SampleURL: "track", Params: map[string]float64{
				"rate": *rate,
				"gain": 1,
			}},
			{Kind: engine.KindReverb, ID: "verb", Effect: true, Params: map[string]float64{
				"decay": *decay,
				"damp":  *damp,
			}},
		},
		Edges: [][2]string{{"player", "verb"}},
	}

	ec := engine.NewContext(*sr)
	dur := engine.RenderDuration(track, *rate, *decay)

	progress := func(done, total int) {
		if *quiet {
			return
		}
		fmt.Fprintf(os.Stderr, "\r%3d%%", done*100/total)
	}

	buf, err := engine.RenderOffline(ctx, ec, recipe, map[string]*engine.Buffer{"track": track}, dur, progress)
	if !*quiet {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "render: %v\n", err)
		os.Exit(1)
	}

	path := *out
	if path == "" {
		base := filepath.Base(*in)
		base = strings.TrimSuffix(base, filepath.Ext(base))
		path = base + "-slowed.wav"
	}
	if err := os.WriteFile(path, engine.EncodeWAV(buf), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", path, err)
		os.Exit(1)
	}
	if !*quiet {
		fmt.Printf("wrote %s (%.1fs)\n", path, buf.Duration())
	}
}
