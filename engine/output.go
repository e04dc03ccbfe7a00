package engine

import (
	"io"
	"math"
	"sync"

	"github.com/hajimehoshi/oto/v2"
)

// otoOutput drives the system audio device through oto. The player pulls
// from an io.Reader, so the render callback is wrapped in a reader that
// asks the session for blocks and packs them as float32 little-endian.
type otoOutput struct {
	ctx *Context

	mu     sync.Mutex
	octx   *oto.Context
	player oto.Player
	ready  chan struct{}
}

// NewOtoOutput creates the production output driver for the context.
func NewOtoOutput(ctx *Context) Output {
	return &otoOutput{ctx: ctx, ready: make(chan struct{})}
}

func (o *otoOutput) Start(render func(out []float32)) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player != nil {
		return nil
	}
	// Third argument 0 selects 32-bit float samples (oto.FormatFloat32LE).
	octx, ready, err := oto.NewContext(o.ctx.SampleRate, 2, 0)
	if err != nil {
		return err
	}
	o.octx = octx
	go func() {
		<-ready
		close(o.ready)
	}()

	r := &renderReader{render: render, block: make([]float32, o.ctx.BlockLen())}
	o.player = octx.NewPlayer(r)
	o.player.Play()
	return nil
}

func (o *otoOutput) Ready() <-chan struct{} { return o.ready }

func (o *otoOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player != nil {
		o.player.Close()
		o.player = nil
	}
	return nil
}

// renderReader adapts the pull-based oto player to the block callback.
type renderReader struct {
	render func(out []float32)
	block  []float32
	packed []byte
	rest   []byte
}

func (r *renderReader) Read(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		if len(r.rest) == 0 {
			r.render(r.block)
			r.pack()
			r.rest = r.packed
		}
		n := copy(p[total:], r.rest)
		r.rest = r.rest[n:]
		total += n
	}
	return total, nil
}

func (r *renderReader) pack() {
	if len(r.packed) != len(r.block)*4 {
		r.packed = make([]byte, len(r.block)*4)
	}
	for i, s := range r.block {
		v := math.Float32bits(s)
		r.packed[i*4] = byte(v)
		r.packed[i*4+1] = byte(v >> 8)
		r.packed[i*4+2] = byte(v >> 16)
		r.packed[i*4+3] = byte(v >> 24)
	}
}

var _ io.Reader = (*renderReader)(nil)
