package engine

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"github.com/maddyblue/go-dsp/fft"
)

// SnapshotKind selects what an analyser snapshot contains.
type SnapshotKind int

const (
	TimeDomain SnapshotKind = iota
	FrequencyDomain
)

// Analyser is a pass-through tap keeping the most recent fftSize mono
// samples in a ring. Visualisers poll Snapshot at display refresh rate;
// there is no backpressure and unpolled data is simply overwritten.
type Analyser struct {
	baseNode
	mu      sync.Mutex
	ring    []float64
	write   int
	fftSize int
}

// NewAnalyser creates an analyser with the given FFT size, which must be
// a power of two in [256, 4096].
func NewAnalyser(id string, fftSize int) (*Analyser, error) {
	if fftSize < 256 || fftSize > 4096 || fftSize&(fftSize-1) != 0 {
		return nil, fmt.Errorf("%w: analyser size %d not a power of two in [256,4096]", ErrGraphBuildFailed, fftSize)
	}
	return &Analyser{
		baseNode: newBaseNode(id, KindAnalyser),
		ring:     make([]float64, fftSize),
		fftSize:  fftSize,
	}, nil
}

func (a *Analyser) Process(in, out []float32) {
	copy(out, in)
	a.mu.Lock()
	for i := 0; i < len(in); i += 2 {
		a.ring[a.write] = float64(in[i]+in[i+1]) * 0.5
		a.write++
		if a.write >= len(a.ring) {
			a.write = 0
		}
	}
	a.mu.Unlock()
}

func (a *Analyser) Reset() {
	a.mu.Lock()
	for i := range a.ring {
		a.ring[i] = 0
	}
	a.write = 0
	a.mu.Unlock()
}

// FFTSize is the configured snapshot length.
func (a *Analyser) FFTSize() int { return a.fftSize }

// Snapshot returns the analyser's current reading. TimeDomain gives the
// most recent fftSize samples oldest-first in [-1, 1]; FrequencyDomain
// gives fftSize/2 magnitude bins normalised to [0, 1].
func (a *Analyser) Snapshot(kind SnapshotKind) []float64 {
	a.mu.Lock()
	samples := make([]float64, a.fftSize)
	n := copy(samples, a.ring[a.write:])
	copy(samples[n:], a.ring[:a.write])
	a.mu.Unlock()

	if kind == TimeDomain {
		return samples
	}

	// Hann window before the transform keeps the bins from smearing.
	for i := range samples {
		samples[i] *= 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(len(samples))))
	}
	bins := fft.FFTReal(samples)
	out := make([]float64, a.fftSize/2)
	norm := 2.0 / float64(a.fftSize)
	for i := range out {
		out[i] = cmplx.Abs(bins[i]) * norm
		if out[i] > 1 {
			out[i] = 1
		}
	}
	return out
}
