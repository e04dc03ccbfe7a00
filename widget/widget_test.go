package widget

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tonelab/engine"
	"tonelab/theory"
	"tonelab/transport"
)

// nullOutput satisfies engine.Output without touching audio hardware;
// it reports ready immediately and discards the render callback.
type nullOutput struct {
	ready  chan struct{}
	render func(out []float32)
}

func newNullOutput() *nullOutput {
	o := &nullOutput{ready: make(chan struct{})}
	close(o.ready)
	return o
}

func (o *nullOutput) Start(render func(out []float32)) error {
	o.render = render
	return nil
}
func (o *nullOutput) Ready() <-chan struct{} { return o.ready }
func (o *nullOutput) Close() error           { return nil }

func newTestEnv(t *testing.T) Env {
	t.Helper()
	ctx := engine.NewContext(48000)
	session := engine.NewSession(ctx, newNullOutput())
	tr := transport.New()
	t.Cleanup(func() {
		tr.Close()
		session.Close()
	})
	return Env{
		Session:   session,
		Transport: tr,
		Loader:    engine.NewAssetLoader(),
	}
}

func writeTestWAV(t *testing.T, seconds float64) string {
	t.Helper()
	const rate = 48000
	frames := int(seconds * rate)
	buf := &engine.Buffer{SampleRate: rate, Channels: 2, Data: make([]float32, frames*2)}
	for i := range buf.Data {
		buf.Data[i] = float32(math.Sin(float64(i)*0.03)) * 0.5
	}
	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := os.WriteFile(path, engine.EncodeWAV(buf), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParamClampAndStep(t *testing.T) {
	env := newTestEnv(t)
	w := NewEuclid(env)
	defer w.Close()

	// hits clamps to the declared max once steps allows it
	w.Set("steps", 16)
	w.Set("hits", 99)
	if got := w.Get("hits"); got != 16 {
		t.Errorf("hits = %v, want clamped 16", got)
	}
	// and is capped by the current step count below that
	w.Set("steps", 8)
	w.Set("hits", 99)
	if got := w.Get("hits"); got != 8 {
		t.Errorf("hits = %v, want capped at steps 8", got)
	}
	w.Set("hits", -3)
	if got := w.Get("hits"); got != 1 {
		t.Errorf("hits = %v, want clamped 1", got)
	}
	w.Set("steps", 7.4)
	if got := w.Get("steps"); got != 7 {
		t.Errorf("steps = %v, want snapped 7", got)
	}
	w.Set("no-such-param", 1)
}

func TestEuclidPattern(t *testing.T) {
	env := newTestEnv(t)
	w := NewEuclid(env)
	defer w.Close()

	w.Set("steps", 8)
	w.Set("hits", 5)
	p := w.Pattern()
	if len(p) != 8 {
		t.Fatalf("pattern length = %d, want 8", len(p))
	}
	if got := p.Beats(); got != 5 {
		t.Fatalf("pattern beats = %d, want 5", got)
	}

	// Shrinking the steps pulls the hit count down with it.
	w.Set("steps", 3)
	if got := w.Get("hits"); got != 3 {
		t.Fatalf("hits after shrink = %v, want 3", got)
	}
	if got := w.Pattern().Beats(); got != 3 {
		t.Fatalf("beats after shrink = %d, want 3", got)
	}
}

func TestProgressionEditing(t *testing.T) {
	env := newTestEnv(t)
	p := NewProgression(env)
	defer p.Close()

	idC := p.AddChord(theory.Chord{Root: theory.C, Quality: theory.Major})
	idG := p.AddChord(theory.Chord{Root: theory.G, Quality: theory.Major})
	idA := p.AddChord(theory.Chord{Root: theory.A, Quality: theory.Minor})

	if got := len(p.Chords()); got != 3 {
		t.Fatalf("chord count = %d, want 3", got)
	}

	analysis := p.Analysis()
	want := []string{"I", "V", "vi"}
	for i := range want {
		if analysis[i] != want[i] {
			t.Fatalf("analysis = %v, want %v", analysis, want)
		}
	}

	p.MoveChord(2, 0)
	if p.Chords()[0].ID != idA {
		t.Fatal("MoveChord did not relocate the slot")
	}
	p.ReplaceChord(idC, theory.Chord{Root: theory.F, Quality: theory.Major})
	p.RemoveChord(idG)
	if got := len(p.Chords()); got != 2 {
		t.Fatalf("chord count after remove = %d, want 2", got)
	}
}

func TestProgressionPlaybackOrder(t *testing.T) {
	env := newTestEnv(t)
	env.Transport.SetBPM(transport.MaxBPM) // 200 ms per beat

	p := NewProgression(env)
	defer p.Close()
	for _, c := range []theory.Chord{
		{Root: theory.C, Quality: theory.Major},
		{Root: theory.G, Quality: theory.Major},
		{Root: theory.A, Quality: theory.Minor},
		{Root: theory.F, Quality: theory.Major},
	} {
		p.AddChord(c)
	}

	if p.CurrentIndex() != -1 {
		t.Fatalf("index before play = %d, want -1", p.CurrentIndex())
	}
	if err := p.Play(); err != nil {
		t.Fatal(err)
	}
	if p.State() != StatePlaying {
		t.Fatalf("state = %v, want playing", p.State())
	}

	// Sample the playhead through a bit more than one full loop.
	var seen []int
	deadline := time.Now().Add(1200 * time.Millisecond)
	for time.Now().Before(deadline) {
		idx := p.CurrentIndex()
		if len(seen) == 0 || seen[len(seen)-1] != idx {
			if idx >= 0 {
				seen = append(seen, idx)
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	p.Stop()

	if len(seen) < 5 {
		t.Fatalf("observed too few steps: %v", seen)
	}
	want := []int{0, 1, 2, 3, 0}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("playhead order = %v, want prefix %v", seen, want)
		}
	}
	if p.CurrentIndex() != -1 {
		t.Fatalf("index after stop = %d, want -1", p.CurrentIndex())
	}
}

func TestTremoloBypass(t *testing.T) {
	env := newTestEnv(t)
	w := NewTremolo(env)
	defer w.Close()

	if err := w.Play(); err != nil {
		t.Fatal(err)
	}
	if w.Bypassed() {
		t.Fatal("effect starts bypassed")
	}
	w.SetBypass(true)
	if !w.Bypassed() {
		t.Fatal("SetBypass(true) not reflected")
	}
	w.SetBypass(false)
	if w.Bypassed() {
		t.Fatal("SetBypass(false) not reflected")
	}
}

func TestGranularRequiresSample(t *testing.T) {
	env := newTestEnv(t)
	w := NewGranular(env)
	defer w.Close()

	if err := w.Play(); err == nil {
		t.Fatal("Play without a sample should fail")
	}
	if w.State() != StateError {
		t.Fatalf("state = %v, want error", w.State())
	}
}

func TestGranularLoadAndPlay(t *testing.T) {
	env := newTestEnv(t)
	w := NewGranular(env)
	defer w.Close()

	if err := w.Load(writeTestWAV(t, 0.2)); err != nil {
		t.Fatal(err)
	}
	if w.State() != StateIdle {
		t.Fatalf("state after load = %v, want idle", w.State())
	}
	if err := w.Play(); err != nil {
		t.Fatal(err)
	}
	if w.State() != StatePlaying {
		t.Fatalf("state = %v, want playing", w.State())
	}
	w.Stop()
	if w.State() != StateIdle {
		t.Fatalf("state after stop = %v, want idle", w.State())
	}
}

func TestBassBoostLiveParamChange(t *testing.T) {
	env := newTestEnv(t)
	w := NewBassBoost(env)
	defer w.Close()

	if err := w.Load(writeTestWAV(t, 0.2)); err != nil {
		t.Fatal(err)
	}
	if err := w.Play(); err != nil {
		t.Fatal(err)
	}
	w.Set("gainDB", 12)
	if got := w.Get("gainDB"); got != 12 {
		t.Fatalf("gainDB = %v, want 12", got)
	}
	w.Set("gainDB", 99)
	if got := w.Get("gainDB"); got != 24 {
		t.Fatalf("gainDB = %v, want clamped 24", got)
	}
}

func TestSlowedReverbRender(t *testing.T) {
	env := newTestEnv(t)
	w := NewSlowedReverb(env)
	defer w.Close()

	if err := w.Load(writeTestWAV(t, 0.2)); err != nil {
		t.Fatal(err)
	}
	w.Set("rate", 0.5)
	w.Set("decay", 0.5)

	dir := t.TempDir()
	path, err := w.RenderToFile(context.Background(), dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "clip-slowed.wav" {
		t.Fatalf("output name = %s, want clip-slowed.wav", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// 0.2 s at half speed plus a 0.5 s tail, stereo 16-bit.
	wantMin := 44 + int(0.85*48000)*2*2
	if len(data) < wantMin {
		t.Fatalf("rendered file %d bytes, want at least %d", len(data), wantMin)
	}
}

func TestSlowedReverbRenderCancelled(t *testing.T) {
	env := newTestEnv(t)
	w := NewSlowedReverb(env)
	defer w.Close()

	if err := w.Load(writeTestWAV(t, 0.2)); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := w.RenderToFile(ctx, t.TempDir(), nil); !errors.Is(err, engine.ErrRenderFailed) {
		t.Fatalf("err = %v, want ErrRenderFailed for cancelled render", err)
	}
}

func TestPortamentoGlide(t *testing.T) {
	env := newTestEnv(t)
	w := NewPortamento(env)
	defer w.Close()

	if err := w.Play(); err != nil {
		t.Fatal(err)
	}
	target := theory.Pitch{Class: theory.E, Octave: 4}
	w.NoteOn(target)
	if w.Pitch() != target {
		t.Fatalf("Pitch() = %v, want %v", w.Pitch(), target)
	}

	node := w.graphNode("osc")
	if node == nil {
		t.Fatal("no oscillator on the live graph")
	}
	freq := node.Param("frequency")
	if got := freq.Target(); math.Abs(got-target.Frequency()) > 1e-9 {
		t.Fatalf("frequency target = %v, want %v", got, target.Frequency())
	}
	// Glide is 80 ms, so right after NoteOn the value still trails.
	if got := freq.Value(); math.Abs(got-target.Frequency()) < 1 {
		t.Fatalf("frequency %v jumped instead of gliding", got)
	}

	// Zero glide steps instantly.
	w.Set("glide", 0)
	next := theory.Pitch{Class: theory.G, Octave: 4}
	w.NoteOn(next)
	if got := freq.Value(); math.Abs(got-next.Frequency()) > 1e-9 {
		t.Fatalf("frequency = %v, want instant %v", got, next.Frequency())
	}
}

func TestPolyrhythmAlign(t *testing.T) {
	env := newTestEnv(t)
	w := NewPolyrhythm(env)
	defer w.Close()

	if got := w.AlignBeats(); got != 12 {
		t.Fatalf("AlignBeats() = %d, want 12 for 3:4", got)
	}
	w.Set("lenA", 4)
	w.Set("lenB", 6)
	if got := w.AlignBeats(); got != 12 {
		t.Fatalf("AlignBeats() = %d, want 12 for 4:6", got)
	}
}

func TestHumanizerToggle(t *testing.T) {
	env := newTestEnv(t)
	w := NewHumanizer(env)
	defer w.Close()

	if got := w.Get("enabled"); got != 0 {
		t.Fatalf("enabled default = %v, want 0", got)
	}
	w.Set("enabled", 1)
	w.Set("seed", 42)
	w.Set("timingJitter", 30)
	if got := w.Get("timingJitter"); got != 30 {
		t.Fatalf("timingJitter = %v", got)
	}
	w.Set("timingJitter", 500)
	if got := w.Get("timingJitter"); got != 60 {
		t.Fatalf("timingJitter = %v, want clamped 60", got)
	}
}
