package engine

import (
	"math"
	"sync"
	"sync/atomic"
)

// Waveform indices for the oscillator "waveform" parameter.
const (
	WaveSine = iota
	WaveSquare
	WaveSaw
	WaveTriangle
)

// Oscillator is a band-limited-enough classic waveform source. The
// frequency parameter is glide-capable: ramping it gives portamento.
// With the sustain parameter at 1 the oscillator drones while started;
// at 0 it is silent until Trigger gates an exponential decay envelope.
type Oscillator struct {
	baseNode
	ctx     *Context
	phase   float64
	running atomic.Bool

	envMu sync.Mutex
	env   float64

	freq     *Param
	detune   *Param
	level    *Param
	waveform *Param
	sustain  *Param
	decay    *Param
}

// NewOscillator creates an oscillator at 440 Hz, sine, sustaining.
func NewOscillator(id string, ctx *Context) *Oscillator {
	o := &Oscillator{baseNode: newBaseNode(id, KindOscillator), ctx: ctx}
	o.freq = o.addParam("frequency", 440, 20, 20000)
	o.detune = o.addParam("detune", 0, -1200, 1200)
	o.level = o.addParam("level", 0.5, 0, 1)
	o.waveform = o.addParam("waveform", WaveSine, WaveSine, WaveTriangle)
	o.sustain = o.addParam("sustain", 1, 0, 1)
	o.decay = o.addParam("decay", 0.3, 0.01, 10)
	return o
}

func (o *Oscillator) Start() { o.running.Store(true) }
func (o *Oscillator) Stop()  { o.running.Store(false) }

// Trigger gates the decay envelope for one hit.
func (o *Oscillator) Trigger(velocity float64) {
	if velocity < 0 {
		velocity = 0
	}
	if velocity > 1 {
		velocity = 1
	}
	o.envMu.Lock()
	o.env = velocity
	o.envMu.Unlock()
}

func sampleWave(shape int, phase float64) float64 {
	switch shape {
	case WaveSquare:
		if phase < 0.5 {
			return 1
		}
		return -1
	case WaveSaw:
		return 2*phase - 1
	case WaveTriangle:
		if phase < 0.5 {
			return 4*phase - 1
		}
		return 3 - 4*phase
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}

func (o *Oscillator) Process(_, out []float32) {
	if !o.running.Load() {
		zero(out)
		return
	}
	shape := int(o.waveform.Target())
	sustain := o.sustain.Target() >= 0.5
	sr := float64(o.ctx.SampleRate)

	o.envMu.Lock()
	env := o.env
	o.envMu.Unlock()

	decaySamples := o.decay.Target() * sr
	envCoef := 1.0
	if decaySamples > 0 {
		envCoef = math.Exp(-1 / decaySamples)
	}

	for i := 0; i < len(out); i += 2 {
		f := o.freq.Next() * math.Exp2(o.detune.Next()/1200)
		o.phase += f / sr
		if o.phase >= 1 {
			o.phase -= math.Floor(o.phase)
		}
		amp := o.level.Next()
		if !sustain {
			amp *= env
			env *= envCoef
		}
		s := float32(sampleWave(shape, o.phase) * amp)
		out[i] = s
		out[i+1] = s
	}

	if !sustain {
		o.envMu.Lock()
		o.env = env
		o.envMu.Unlock()
	}
}

func (o *Oscillator) Reset() {
	o.phase = 0
	o.envMu.Lock()
	o.env = 0
	o.envMu.Unlock()
}

// Buffer is a decoded audio asset: interleaved samples at a native rate.
type Buffer struct {
	SampleRate int
	Channels   int
	Data       []float32 // interleaved, len = frames * Channels
}

// Frames is the per-channel sample count.
func (b *Buffer) Frames() int {
	if b == nil || b.Channels == 0 {
		return 0
	}
	return len(b.Data) / b.Channels
}

// Duration is the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	if b == nil || b.SampleRate == 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// frameAt reads the stereo frame at a fractional position with linear
// interpolation. Mono buffers are duplicated to both channels.
func (b *Buffer) frameAt(pos float64) (float32, float32) {
	frames := b.Frames()
	if frames == 0 || pos < 0 || pos >= float64(frames) {
		return 0, 0
	}
	i := int(pos)
	frac := float32(pos - float64(i))
	j := i + 1
	if j >= frames {
		j = i
	}
	if b.Channels == 1 {
		s := b.Data[i] + (b.Data[j]-b.Data[i])*frac
		return s, s
	}
	l := b.Data[i*b.Channels] + (b.Data[j*b.Channels]-b.Data[i*b.Channels])*frac
	r := b.Data[i*b.Channels+1] + (b.Data[j*b.Channels+1]-b.Data[i*b.Channels+1])*frac
	return l, r
}

// SamplePlayer plays a decoded buffer with a ramped playback rate.
// A rate of 0.5 plays at half speed (and pitch), which is the whole
// point of the slowed-reverb widget.
type SamplePlayer struct {
	baseNode
	ctx     *Context
	buf     *Buffer
	pos     float64
	running atomic.Bool

	rate *Param
	gain *Param
	loop *Param
}

// NewSamplePlayer creates a player over buf (which may be nil until an
// asset arrives).
func NewSamplePlayer(id string, ctx *Context, buf *Buffer) *SamplePlayer {
	p := &SamplePlayer{baseNode: newBaseNode(id, KindSampler), ctx: ctx, buf: buf}
	p.rate = p.addParam("rate", 1, 0.1, 4)
	p.gain = p.addParam("gain", 1, 0, 2)
	p.loop = p.addParam("loop", 0, 0, 1)
	return p
}

func (p *SamplePlayer) Start() { p.running.Store(true) }
func (p *SamplePlayer) Stop()  { p.running.Store(false) }

// Done reports whether a non-looping player has run past its buffer.
func (p *SamplePlayer) Done() bool {
	if p.buf == nil {
		return true
	}
	return p.loop.Target() < 0.5 && p.pos >= float64(p.buf.Frames())
}

func (p *SamplePlayer) Process(_, out []float32) {
	if !p.running.Load() || p.buf == nil {
		zero(out)
		return
	}
	// The buffer keeps its native rate; the rate param is applied on top
	// of the native/context ratio so a 22 kHz file still sounds right.
	srRatio := float64(p.buf.SampleRate) / float64(p.ctx.SampleRate)
	frames := float64(p.buf.Frames())
	loop := p.loop.Target() >= 0.5

	for i := 0; i < len(out); i += 2 {
		if p.pos >= frames {
			if !loop {
				zero(out[i:])
				return
			}
			p.pos -= frames
		}
		g := float32(p.gain.Next())
		l, r := p.buf.frameAt(p.pos)
		out[i] = l * g
		out[i+1] = r * g
		p.pos += p.rate.Next() * srRatio
	}
}

func (p *SamplePlayer) Reset() { p.pos = 0 }

// SetBuffer swaps the underlying asset and rewinds.
func (p *SamplePlayer) SetBuffer(buf *Buffer) {
	p.buf = buf
	p.pos = 0
}

// NoiseSource is a white-noise burst voice for rhythm widgets: silent
// until triggered, then an exponential decay scaled by hit velocity.
type NoiseSource struct {
	baseNode
	ctx     *Context
	seed    uint64
	running atomic.Bool

	envMu sync.Mutex
	env   float64

	level *Param
	decay *Param
}

// NewNoiseSource creates a noise voice with a 150 ms decay.
func NewNoiseSource(id string, ctx *Context) *NoiseSource {
	n := &NoiseSource{baseNode: newBaseNode(id, KindNoise), ctx: ctx, seed: 0x9e3779b97f4a7c15}
	n.level = n.addParam("level", 0.8, 0, 1)
	n.decay = n.addParam("decay", 0.15, 0.01, 5)
	return n
}

func (n *NoiseSource) Start() { n.running.Store(true) }
func (n *NoiseSource) Stop()  { n.running.Store(false) }

func (n *NoiseSource) Trigger(velocity float64) {
	if velocity < 0 {
		velocity = 0
	}
	if velocity > 1 {
		velocity = 1
	}
	n.envMu.Lock()
	n.env = velocity
	n.envMu.Unlock()
}

// lcg advances the noise state and returns a sample in [-1, 1].
func (n *NoiseSource) lcg() float64 {
	n.seed = n.seed*6364136223846793005 + 1442695040888963407
	return float64(int64(n.seed>>33)-int64(1<<30)) / float64(1<<30)
}

func (n *NoiseSource) Process(_, out []float32) {
	if !n.running.Load() {
		zero(out)
		return
	}
	n.envMu.Lock()
	env := n.env
	n.envMu.Unlock()
	if env < 1e-6 {
		zero(out)
		return
	}

	decaySamples := n.decay.Target() * float64(n.ctx.SampleRate)
	coef := math.Exp(-1 / decaySamples)
	for i := 0; i < len(out); i += 2 {
		s := float32(n.lcg() * env * n.level.Next())
		out[i] = s
		out[i+1] = s
		env *= coef
	}

	n.envMu.Lock()
	n.env = env
	n.envMu.Unlock()
}

func (n *NoiseSource) Reset() {
	n.envMu.Lock()
	n.env = 0
	n.envMu.Unlock()
}

func zero(buf []float32) {
	for i := range buf {
		buf[i] = 0
	}
}
