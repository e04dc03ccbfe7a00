package engine

import "math"

// Schroeder reverberator in the Freeverb arrangement: eight parallel
// damped combs per channel into four serial allpasses, with the classic
// tuning constants (44.1 kHz sample counts, scaled to the context rate).
// The decay parameter maps onto comb feedback; wet/dry lives in the
// graph's bypass split, not here.

var combTuning = [8]int{1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617}
var allpassTuning = [4]int{556, 441, 341, 225}

const stereoSpread = 23

type comb struct {
	buf      []float32
	idx      int
	filtered float32
}

func (c *comb) process(x, feedback, damp float32) float32 {
	y := c.buf[c.idx]
	c.filtered = y*(1-damp) + c.filtered*damp
	c.buf[c.idx] = x + c.filtered*feedback
	c.idx++
	if c.idx >= len(c.buf) {
		c.idx = 0
	}
	return y
}

type allpass struct {
	buf []float32
	idx int
}

func (a *allpass) process(x float32) float32 {
	y := a.buf[a.idx]
	a.buf[a.idx] = x + y*0.5
	a.idx++
	if a.idx >= len(a.buf) {
		a.idx = 0
	}
	return y - x
}

// Reverb has decay (seconds, mapped to comb feedback) and damp params.
type Reverb struct {
	baseNode
	ctx      *Context
	combs    [2][8]comb
	allpass  [2][4]allpass
	decay    *Param
	damp     *Param
}

func NewReverb(id string, ctx *Context) *Reverb {
	r := &Reverb{baseNode: newBaseNode(id, KindReverb), ctx: ctx}
	scale := float64(ctx.SampleRate) / 44100.0
	for ch := 0; ch < 2; ch++ {
		spread := ch * stereoSpread
		for i, n := range combTuning {
			r.combs[ch][i].buf = make([]float32, int(float64(n+spread)*scale))
		}
		for i, n := range allpassTuning {
			r.allpass[ch][i].buf = make([]float32, int(float64(n+spread)*scale))
		}
	}
	r.decay = r.addParam("decay", 2, 0.1, 12)
	r.damp = r.addParam("damp", 0.4, 0, 1)
	return r
}

// feedbackFor maps a -60 dB decay time onto comb feedback using the mean
// comb delay.
func (r *Reverb) feedbackFor(decaySeconds float64) float32 {
	meanDelay := 0.0
	for _, c := range r.combs[0] {
		meanDelay += float64(len(c.buf))
	}
	meanDelay /= float64(len(r.combs[0])) * float64(r.ctx.SampleRate)
	// g = 10^(-3 * delay / decay)
	fb := math.Pow(10, -3*meanDelay/decaySeconds)
	if fb > 0.98 {
		fb = 0.98
	}
	return float32(fb)
}

func (r *Reverb) Process(in, out []float32) {
	feedback := r.feedbackFor(r.decay.NextBlock(r.ctx.BlockFrames))
	damp := float32(r.damp.NextBlock(r.ctx.BlockFrames))

	for i := 0; i < len(in); i += 2 {
		for ch := 0; ch < 2; ch++ {
			x := in[i+ch] * 0.2
			var acc float32
			for c := range r.combs[ch] {
				acc += r.combs[ch][c].process(x, feedback, damp)
			}
			for a := range r.allpass[ch] {
				acc = r.allpass[ch][a].process(acc)
			}
			out[i+ch] = acc
		}
	}
}

func (r *Reverb) Reset() {
	for ch := 0; ch < 2; ch++ {
		for i := range r.combs[ch] {
			for j := range r.combs[ch][i].buf {
				r.combs[ch][i].buf[j] = 0
			}
			r.combs[ch][i].idx = 0
			r.combs[ch][i].filtered = 0
		}
		for i := range r.allpass[ch] {
			for j := range r.allpass[ch][i].buf {
				r.allpass[ch][i].buf[j] = 0
			}
			r.allpass[ch][i].idx = 0
		}
	}
}
