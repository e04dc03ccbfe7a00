package engine

import "math"

// Gain scales the signal. The level parameter is ramped per sample so
// bypass and volume moves never click.
type Gain struct {
	baseNode
	level *Param
}

func NewGain(id string, level float64) *Gain {
	g := &Gain{baseNode: newBaseNode(id, KindGain)}
	g.level = g.addParam("gain", level, 0, 4)
	return g
}

func (g *Gain) Process(in, out []float32) {
	for i := 0; i < len(in); i += 2 {
		l := float32(g.level.Next())
		out[i] = in[i] * l
		out[i+1] = in[i+1] * l
	}
}

func (g *Gain) Reset() {}

// StereoPanner places the signal in the stereo field with equal-power
// panning. An optional LFO sweeps the pan position automatically.
type StereoPanner struct {
	baseNode
	ctx   *Context
	phase float64

	pan     *Param
	lfoRate *Param
	lfoAmt  *Param
}

func NewStereoPanner(id string, ctx *Context) *StereoPanner {
	p := &StereoPanner{baseNode: newBaseNode(id, KindPanner), ctx: ctx}
	p.pan = p.addParam("pan", 0, -1, 1)
	p.lfoRate = p.addParam("lfoRate", 0.5, 0.01, 20)
	p.lfoAmt = p.addParam("lfoAmount", 0, 0, 1)
	return p
}

func (p *StereoPanner) Process(in, out []float32) {
	sr := float64(p.ctx.SampleRate)
	for i := 0; i < len(in); i += 2 {
		pos := p.pan.Next()
		amt := p.lfoAmt.Next()
		if amt > 0 {
			p.phase += p.lfoRate.Next() / sr
			if p.phase >= 1 {
				p.phase -= 1
			}
			pos += amt * math.Sin(2*math.Pi*p.phase)
		}
		if pos < -1 {
			pos = -1
		}
		if pos > 1 {
			pos = 1
		}
		// Equal power: -3 dB in the centre.
		angle := (pos + 1) * math.Pi / 4
		gl := float32(math.Cos(angle))
		gr := float32(math.Sin(angle))
		mono := (in[i] + in[i+1]) * 0.5
		out[i] = mono * gl * sqrt2
		out[i+1] = mono * gr * sqrt2
	}
}

const sqrt2 = 1.41421356237

func (p *StereoPanner) Reset() { p.phase = 0 }

// Tremolo modulates amplitude with a low-frequency oscillator.
type Tremolo struct {
	baseNode
	ctx   *Context
	phase float64

	rate  *Param
	depth *Param
	shape *Param // reuses the oscillator waveform indices
}

func NewTremolo(id string, ctx *Context) *Tremolo {
	t := &Tremolo{baseNode: newBaseNode(id, KindTremolo), ctx: ctx}
	t.rate = t.addParam("rate", 5, 0.1, 20)
	t.depth = t.addParam("depth", 0.5, 0, 1)
	t.shape = t.addParam("shape", WaveSine, WaveSine, WaveTriangle)
	return t
}

func (t *Tremolo) Process(in, out []float32) {
	sr := float64(t.ctx.SampleRate)
	shape := int(t.shape.Target())
	for i := 0; i < len(in); i += 2 {
		t.phase += t.rate.Next() / sr
		if t.phase >= 1 {
			t.phase -= 1
		}
		depth := t.depth.Next()
		// LFO scaled to [1-depth, 1].
		mod := float32(1 - depth*0.5*(1-sampleWave(shape, t.phase)))
		out[i] = in[i] * mod
		out[i+1] = in[i+1] * mod
	}
}

func (t *Tremolo) Reset() { t.phase = 0 }

// biquad is a single transposed direct-form-II section per channel with
// RBJ cookbook coefficient recipes, recomputed at block rate when the
// control params move.
type biquad struct {
	b0, b1, b2, a1, a2 float64
	z1                 [2]float64
	z2                 [2]float64
}

func (bq *biquad) process(in, out []float32) {
	for i := 0; i < len(in); i += 2 {
		for ch := 0; ch < 2; ch++ {
			x := float64(in[i+ch])
			y := bq.b0*x + bq.z1[ch]
			bq.z1[ch] = bq.b1*x - bq.a1*y + bq.z2[ch]
			bq.z2[ch] = bq.b2*x - bq.a2*y
			out[i+ch] = float32(y)
		}
	}
}

func (bq *biquad) reset() {
	bq.z1 = [2]float64{}
	bq.z2 = [2]float64{}
}

func (bq *biquad) lowpass(sr, freq, q float64) {
	w0 := 2 * math.Pi * freq / sr
	alpha := math.Sin(w0) / (2 * q)
	cosw := math.Cos(w0)
	a0 := 1 + alpha
	bq.b0 = (1 - cosw) / 2 / a0
	bq.b1 = (1 - cosw) / a0
	bq.b2 = (1 - cosw) / 2 / a0
	bq.a1 = -2 * cosw / a0
	bq.a2 = (1 - alpha) / a0
}

func (bq *biquad) lowShelf(sr, freq, gainDB float64) {
	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freq / sr
	cosw := math.Cos(w0)
	// Shelf slope S = 1 collapses the cookbook alpha to sin(w0)/2 * sqrt(2).
	alpha := math.Sin(w0) / 2 * math.Sqrt2
	twoRootA := 2 * math.Sqrt(a) * alpha
	a0 := (a + 1) + (a-1)*cosw + twoRootA
	bq.b0 = a * ((a + 1) - (a-1)*cosw + twoRootA) / a0
	bq.b1 = 2 * a * ((a - 1) - (a+1)*cosw) / a0
	bq.b2 = a * ((a + 1) - (a-1)*cosw - twoRootA) / a0
	bq.a1 = -2 * ((a - 1) + (a+1)*cosw) / a0
	bq.a2 = ((a + 1) + (a-1)*cosw - twoRootA) / a0
}

// LowpassFilter is a resonant lowpass with ramped cutoff.
type LowpassFilter struct {
	baseNode
	ctx *Context
	bq  biquad

	cutoff *Param
	q      *Param

	lastCutoff float64
	lastQ      float64
}

func NewLowpassFilter(id string, ctx *Context) *LowpassFilter {
	f := &LowpassFilter{baseNode: newBaseNode(id, KindLowpass), ctx: ctx}
	f.cutoff = f.addParam("cutoff", 2000, 20, 20000)
	f.q = f.addParam("q", 0.707, 0.1, 12)
	f.lastCutoff = -1
	return f
}

func (f *LowpassFilter) Process(in, out []float32) {
	cutoff := f.cutoff.NextBlock(f.ctx.BlockFrames)
	q := f.q.NextBlock(f.ctx.BlockFrames)
	if cutoff != f.lastCutoff || q != f.lastQ {
		f.bq.lowpass(float64(f.ctx.SampleRate), cutoff, q)
		f.lastCutoff, f.lastQ = cutoff, q
	}
	f.bq.process(in, out)
}

func (f *LowpassFilter) Reset() { f.bq.reset() }

// LowShelf boosts or cuts everything below the corner frequency; the
// bass-booster widget is a low shelf with positive gain and a safety
// clip at the output.
type LowShelf struct {
	baseNode
	ctx *Context
	bq  biquad

	cutoff *Param
	gainDB *Param

	lastCutoff float64
	lastGain   float64
}

func NewLowShelf(id string, ctx *Context) *LowShelf {
	f := &LowShelf{baseNode: newBaseNode(id, KindLowShelf), ctx: ctx}
	f.cutoff = f.addParam("cutoff", 200, 20, 1000)
	f.gainDB = f.addParam("gainDB", 6, -24, 24)
	f.lastCutoff = -1
	return f
}

func (f *LowShelf) Process(in, out []float32) {
	cutoff := f.cutoff.NextBlock(f.ctx.BlockFrames)
	gain := f.gainDB.NextBlock(f.ctx.BlockFrames)
	if cutoff != f.lastCutoff || gain != f.lastGain {
		f.bq.lowShelf(float64(f.ctx.SampleRate), cutoff, gain)
		f.lastCutoff, f.lastGain = cutoff, gain
	}
	f.bq.process(in, out)
	for i := range out {
		out[i] = softClip(out[i])
	}
}

func (f *LowShelf) Reset() { f.bq.reset() }

// softClip folds peaks gently instead of hard-clipping. Normalised
// cubic: the curve and its slope both meet the rails at |x| = 1.
func softClip(x float32) float32 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return 1.5*x - 0.5*x*x*x
}

// Delay is a feedback delay line with a ramped delay time. Time moves
// are smoothed so dragging the control produces tape-style pitch bends
// rather than clicks.
type Delay struct {
	baseNode
	ctx   *Context
	line  []float32 // interleaved stereo ring
	write int

	time     *Param // seconds
	feedback *Param
}

const maxDelaySeconds = 2.0

func NewDelay(id string, ctx *Context) *Delay {
	d := &Delay{
		baseNode: newBaseNode(id, KindDelay),
		ctx:      ctx,
		line:     make([]float32, int(maxDelaySeconds*float64(ctx.SampleRate))*2),
	}
	d.time = d.addParam("time", 0.25, 0.001, maxDelaySeconds)
	d.feedback = d.addParam("feedback", 0.35, 0, 0.95)
	return d
}

func (d *Delay) Process(in, out []float32) {
	frames := len(d.line) / 2
	sr := float64(d.ctx.SampleRate)
	for i := 0; i < len(in); i += 2 {
		delayFrames := int(d.time.Next() * sr)
		if delayFrames >= frames {
			delayFrames = frames - 1
		}
		read := d.write - delayFrames
		if read < 0 {
			read += frames
		}
		fb := float32(d.feedback.Next())
		dl := d.line[read*2]
		dr := d.line[read*2+1]
		out[i] = in[i] + dl
		out[i+1] = in[i+1] + dr
		d.line[d.write*2] = in[i] + dl*fb
		d.line[d.write*2+1] = in[i+1] + dr*fb
		d.write++
		if d.write >= frames {
			d.write = 0
		}
	}
}

func (d *Delay) Reset() {
	for i := range d.line {
		d.line[i] = 0
	}
	d.write = 0
}
