package engine

import (
	"math"
	"sync"
	"time"
)

// Param is a smoothable node attribute. Setting a target starts an
// exponential approach with the given time constant; reading the target
// always returns the last value set, so a ramped parameter settles to
// exactly the requested value once the ramp time has passed.
type Param struct {
	mu     sync.Mutex
	value  float64 // smoothed value the DSP reads
	target float64
	coef   float64 // per-sample approach coefficient, 0 = jump
	snap   float64 // residual below which the ramp lands on the target
	min    float64
	max    float64
}

// NewParam creates a parameter clamped to [min, max] starting at v.
func NewParam(v, min, max float64) *Param {
	return &Param{value: v, target: v, min: min, max: max}
}

func (p *Param) clamp(v float64) float64 {
	if v < p.min {
		return p.min
	}
	if v > p.max {
		return p.max
	}
	return v
}

// Set assigns the value immediately, cancelling any ramp in flight.
func (p *Param) Set(v float64) {
	p.mu.Lock()
	v = p.clamp(v)
	p.value = v
	p.target = v
	p.coef = 0
	p.mu.Unlock()
}

// Ramp starts a smooth transition towards v with time constant tau.
// The DSP-side value converges; Target reports v right away.
func (p *Param) Ramp(v float64, tau time.Duration, sampleRate int) {
	p.mu.Lock()
	p.target = p.clamp(v)
	samples := tau.Seconds() * float64(sampleRate)
	if samples < 1 {
		p.value = p.target
		p.coef = 0
	} else {
		p.coef = 1 - math.Exp(-1/samples)
		// Land on the target once the residual is 80 dB below the ramp
		// span, which an exponential approach reaches inside ten taus.
		p.snap = math.Abs(p.target-p.value) * 1e-4
		if p.snap < 1e-7 {
			p.snap = 1e-7
		}
	}
	p.mu.Unlock()
}

// Target returns the last requested value.
func (p *Param) Target() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.target
}

// Value returns the current smoothed value without advancing it.
func (p *Param) Value() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// Next advances the smoothing by one sample and returns the new value.
// Called from the audio goroutine only.
func (p *Param) Next() float64 {
	p.mu.Lock()
	if p.coef == 0 {
		v := p.value
		p.mu.Unlock()
		return v
	}
	p.value += (p.target - p.value) * p.coef
	if math.Abs(p.target-p.value) < p.snap {
		p.value = p.target
		p.coef = 0
	}
	v := p.value
	p.mu.Unlock()
	return v
}

// NextBlock advances the smoothing by n samples and returns the value at
// the end of the block. Cheaper than Next when per-sample accuracy does
// not matter (filter cutoffs, delay times).
func (p *Param) NextBlock(n int) float64 {
	p.mu.Lock()
	if p.coef == 0 {
		v := p.value
		p.mu.Unlock()
		return v
	}
	p.value = p.target + (p.value-p.target)*math.Pow(1-p.coef, float64(n))
	if math.Abs(p.target-p.value) < p.snap {
		p.value = p.target
		p.coef = 0
	}
	v := p.value
	p.mu.Unlock()
	return v
}
