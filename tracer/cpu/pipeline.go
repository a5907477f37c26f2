package cpu

import (
	"image"
	"image/png"
	"os"
	"time"

	"github.com/planetar/domemaster/tracer"
)

// An alias for functions that can be used as part of the rendering pipeline.
// Stages operate on the rows of the block being rendered.
type PipelineStage func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error)

// The list of pluggable stages that are used to render a block.
type Pipeline struct {
	// Reset the accumulated state for the block. This stage is only
	// executed on the first progressive frame after a camera move.
	Reset PipelineStage

	// This stage generates the camera rays for the block, submits them
	// to the scene trace entry point and adds their contribution into
	// the accumulation buffer.
	TraceRays PipelineStage

	// A set of post-processing stages executed after tracing.
	PostProcess []PipelineStage
}

func DefaultPipeline() *Pipeline {
	return &Pipeline{
		Reset:     ClearAccumulator(),
		TraceRays: DomeCamera(),
		PostProcess: []PipelineStage{
			TonemapSimpleReinhard(),
		},
	}
}

// stages flattens the pipeline for the given frame; the reset stage is only
// included while rendering the first progressive frame.
func (p *Pipeline) stages() []PipelineStage {
	out := make([]PipelineStage, 0, len(p.PostProcess)+2)
	if p.Reset != nil {
		out = append(out, func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error) {
			if blockReq.FrameCount > 0 {
				return 0, nil
			}
			return p.Reset(tr, blockReq)
		})
	}
	if p.TraceRays != nil {
		out = append(out, p.TraceRays)
	}
	return append(out, p.PostProcess...)
}

// Clear the accumulator buffer.
func ClearAccumulator() PipelineStage {
	return func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error) {
		start := time.Now()
		tr.buffers.Clear(blockReq.BlockY, blockReq.BlockH)
		return time.Since(start), nil
	}
}

// Use the dome master fisheye camera for the ray generation stage.
func DomeCamera() PipelineStage {
	return func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error) {
		start := time.Now()
		err := tr.traceBlock(blockReq)
		return time.Since(start), err
	}
}

// Apply simple Reinhard tone-mapping to the block rows.
func TonemapSimpleReinhard() PipelineStage {
	return func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error) {
		start := time.Now()
		totalSamples := (blockReq.FrameCount + 1) * blockReq.SamplesPerPixel
		tr.buffers.Tonemap(blockReq.BlockY, blockReq.BlockH, blockReq.Exposure, totalSamples)
		return time.Since(start), nil
	}
}

// Dump a copy of the RGBA framebuffer after each rendered block. Only
// useful for debugging single-tracer runs.
func SaveFrameBuffer(imgFile string) PipelineStage {
	return func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error) {
		start := time.Now()

		f, err := os.Create(imgFile)
		if err != nil {
			return 0, err
		}
		defer f.Close()

		im := image.NewRGBA(image.Rect(0, 0, int(blockReq.FrameW), int(blockReq.FrameH)))
		copy(im.Pix, tr.buffers.frame)

		return time.Since(start), png.Encode(f, im)
	}
}
