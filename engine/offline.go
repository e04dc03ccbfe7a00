package engine

import (
	"context"
	"fmt"

	"tonelab/debug"
)

// progressInterval is how often, in rendered frames, the progress
// callback fires during an offline render.
const progressInterval = 1 << 16

// RenderOffline runs a recipe in a non-realtime context and returns
// the summed stereo output. The same Build routine backs the realtime
// path, so the rendered output matches what the speakers would play.
// progress may be nil; cancelling ctx aborts the render.
func RenderOffline(ctx context.Context, ec *Context, recipe Recipe, assets map[string]*Buffer, durationSeconds float64, progress func(done, total int)) (*Buffer, error) {
	if durationSeconds <= 0 {
		return nil, fmt.Errorf("%w: non-positive duration", ErrRenderFailed)
	}
	graph, err := Build(recipe, ec, assets)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	defer graph.Dispose()

	totalFrames := int(durationSeconds * float64(ec.SampleRate))
	out := &Buffer{
		SampleRate: ec.SampleRate,
		Channels:   2,
		Data:       make([]float32, 0, totalFrames*2),
	}

	graph.Start()
	block := make([]float32, ec.BlockLen())
	sinceProgress := 0
	for rendered := 0; rendered < totalFrames; {
		select {
		case <-ctx.Done():
			debug.Log("render", "aborted at frame %d/%d", rendered, totalFrames)
			return nil, fmt.Errorf("%w: %v", ErrRenderFailed, ctx.Err())
		default:
		}

		graph.Render(block)
		frames := ec.BlockFrames
		if rendered+frames > totalFrames {
			frames = totalFrames - rendered
		}
		out.Data = append(out.Data, block[:frames*2]...)
		rendered += frames

		sinceProgress += frames
		if progress != nil && sinceProgress >= progressInterval {
			progress(rendered, totalFrames)
			sinceProgress = 0
		}
	}
	if progress != nil {
		progress(totalFrames, totalFrames)
	}
	return out, nil
}

// RenderDuration computes the default render length for a sample
// source: the playback time of the buffer at the given rate plus the
// reverb tail.
func RenderDuration(buf *Buffer, playbackRate, reverbDecay float64) float64 {
	if playbackRate <= 0 {
		playbackRate = 1
	}
	return buf.Duration()/playbackRate + reverbDecay
}
