package engine

import (
	"math"
	"math/rand"
	"sync/atomic"
)

// grain is one playing window into the source buffer.
type grain struct {
	pos    float64 // read head in source frames
	age    int     // samples since spawn
	length int     // total samples
	rate   float64
	pan    float64
	active bool
}

const maxGrains = 64

// Granular scatters short enveloped grains over a source buffer.
// Density is grains per second, size the grain length, spray the random
// offset around the scan position. The scan head crawls through the
// buffer at the rate parameter so the texture slowly walks the file.
type Granular struct {
	baseNode
	ctx     *Context
	buf     *Buffer
	grains  [maxGrains]grain
	scan    float64
	spawn   float64 // samples until next spawn
	rng     *rand.Rand
	running atomic.Bool

	size    *Param // seconds
	density *Param // grains/sec
	spray   *Param // seconds
	rate    *Param // scan + playback rate
}

func NewGranular(id string, ctx *Context, buf *Buffer) *Granular {
	g := &Granular{
		baseNode: newBaseNode(id, KindGranular),
		ctx:      ctx,
		buf:      buf,
		rng:      rand.New(rand.NewSource(0x67726169)),
	}
	g.size = g.addParam("size", 0.09, 0.01, 0.5)
	g.density = g.addParam("density", 20, 1, 100)
	g.spray = g.addParam("spray", 0.05, 0, 1)
	g.rate = g.addParam("rate", 1, 0.1, 2)
	return g
}

func (g *Granular) Start() { g.running.Store(true) }
func (g *Granular) Stop()  { g.running.Store(false) }

// SetBuffer swaps the source asset and rewinds the scan head.
func (g *Granular) SetBuffer(buf *Buffer) {
	g.buf = buf
	g.scan = 0
	for i := range g.grains {
		g.grains[i].active = false
	}
}

func (g *Granular) spawnGrain(sizeSamples int, spraySamples float64) {
	for i := range g.grains {
		if g.grains[i].active {
			continue
		}
		pos := g.scan + (g.rng.Float64()*2-1)*spraySamples
		frames := float64(g.buf.Frames())
		if pos < 0 {
			pos += frames
		}
		if pos >= frames {
			pos -= frames
		}
		g.grains[i] = grain{
			pos:    pos,
			length: sizeSamples,
			rate:   g.rate.Target(),
			pan:    g.rng.Float64()*2 - 1,
			active: true,
		}
		return
	}
	// All voices busy: drop the grain, same policy as scheduler overruns.
}

func (g *Granular) Process(_, out []float32) {
	zero(out)
	if !g.running.Load() || g.buf == nil || g.buf.Frames() == 0 {
		return
	}
	sr := float64(g.ctx.SampleRate)
	sizeSamples := int(g.size.NextBlock(g.ctx.BlockFrames) * sr)
	if sizeSamples < 8 {
		sizeSamples = 8
	}
	spraySamples := g.spray.NextBlock(g.ctx.BlockFrames) * sr
	interval := sr / g.density.NextBlock(g.ctx.BlockFrames)
	frames := float64(g.buf.Frames())

	for i := 0; i < len(out); i += 2 {
		g.spawn--
		if g.spawn <= 0 {
			g.spawnGrain(sizeSamples, spraySamples)
			g.spawn = interval
		}
		g.scan += g.rate.Next() * float64(g.buf.SampleRate) / sr
		if g.scan >= frames {
			g.scan -= frames
		}

		var accL, accR float32
		for j := range g.grains {
			gr := &g.grains[j]
			if !gr.active {
				continue
			}
			// Hann window over the grain lifetime.
			w := float32(0.5 * (1 - math.Cos(2*math.Pi*float64(gr.age)/float64(gr.length))))
			l, r := g.buf.frameAt(gr.pos)
			mono := (l + r) * 0.5 * w
			gl := float32(0.5 * (1 - gr.pan))
			grn := float32(0.5 * (1 + gr.pan))
			accL += mono * gl
			accR += mono * grn
			gr.pos += gr.rate * float64(g.buf.SampleRate) / sr
			if gr.pos >= frames {
				gr.pos -= frames
			}
			gr.age++
			if gr.age >= gr.length {
				gr.active = false
			}
		}
		out[i] = accL
		out[i+1] = accR
	}
}

func (g *Granular) Reset() {
	g.scan = 0
	g.spawn = 0
	for i := range g.grains {
		g.grains[i].active = false
	}
}
