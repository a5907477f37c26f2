package renderer

import (
	"fmt"
	"image"
	"time"

	"github.com/planetar/domemaster/log"
	"github.com/planetar/domemaster/scene"
	"github.com/planetar/domemaster/tracer"
	"github.com/planetar/domemaster/tracer/cpu"
)

type defaultRenderer struct {
	logger log.Logger

	options   Options
	sc        *scene.Scene
	scheduler tracer.BlockScheduler
	tracers   []tracer.Tracer

	// The shared accumulation and frame buffers.
	accumBuffer []float32
	frameBuffer []uint8

	// Block completion/error channels shared by all block requests.
	doneChan chan uint32
	errChan  chan error

	// Number of progressive frames rendered so far.
	frameCount uint32

	stats FrameStats
}

// Create a new renderer that drives a pool of cpu tracers over the supplied
// scene using the given block scheduler and per-tracer pipeline.
func NewDefault(sc *scene.Scene, scheduler tracer.BlockScheduler, pipeline *cpu.Pipeline, opts Options) (Renderer, error) {
	if sc == nil || sc.Trace == nil {
		return nil, ErrSceneNotDefined
	}
	if sc.Camera == nil {
		return nil, ErrCameraNotDefined
	}
	if opts.FrameW == 0 || opts.FrameH == 0 {
		return nil, ErrInvalidFrameDims
	}
	if opts.Stereo && opts.FrameH%2 != 0 {
		return nil, ErrOddStereoFrame
	}
	if opts.SamplesPerPixel == 0 {
		return nil, ErrInvalidSampleCount
	}
	if opts.Frames == 0 {
		opts.Frames = 1
	}
	if opts.NumTracers <= 0 {
		opts.NumTracers = 1
	}

	r := &defaultRenderer{
		logger:      log.New("renderer"),
		options:     opts,
		sc:          sc,
		scheduler:   scheduler,
		accumBuffer: make([]float32, opts.FrameW*opts.FrameH*4),
		frameBuffer: make([]uint8, opts.FrameW*opts.FrameH*4),
		doneChan:    make(chan uint32, opts.NumTracers),
		errChan:     make(chan error, opts.NumTracers),
	}

	for i := 0; i < opts.NumTracers; i++ {
		tr := cpu.NewTracer(fmt.Sprintf("cpu-%d", i), pipeline, cpu.Config{
			Stereo:                 opts.Stereo,
			MaxTransparencyBounces: opts.MaxTransparencyBounces,
		})

		if err := tr.Init(opts.FrameW, opts.FrameH, r.accumBuffer, r.frameBuffer); err != nil {
			r.Close()
			return nil, err
		}

		tr.Update(tracer.UpdateScene, sc)
		r.tracers = append(r.tracers, tr)
	}

	if len(r.tracers) == 0 {
		return nil, ErrNoTracers
	}

	return r, nil
}

// Render the configured number of progressive frames.
func (r *defaultRenderer) Render() error {
	var frame uint32
	for frame = 0; frame < r.options.Frames; frame++ {
		if err := r.renderFrame(r.frameCount); err != nil {
			return err
		}
		r.frameCount++
	}
	return nil
}

// Render a single progressive frame by splitting it into blocks and farming
// them out to the attached tracers.
func (r *defaultRenderer) renderFrame(frameCount uint32) error {
	start := time.Now()

	blockAssignment := r.scheduler.Schedule(r.tracers, r.options.FrameH)

	var blockY uint32
	for idx, tr := range r.tracers {
		blockH := blockAssignment[idx]
		r.logger.Debugf("scheduling %d rows starting at row %d on %s", blockH, blockY, tr.Id())

		tr.Enqueue(tracer.BlockRequest{
			FrameW:          r.options.FrameW,
			FrameH:          r.options.FrameH,
			BlockY:          blockY,
			BlockH:          blockH,
			SamplesPerPixel: r.options.SamplesPerPixel,
			Exposure:        r.options.Exposure,
			FrameCount:      frameCount,
			DoneChan:        r.doneChan,
			ErrChan:         r.errChan,
		})
		blockY += blockH
	}

	// Wait for all tracers to report back.
	var pendingRows = r.options.FrameH
	for pendingRows > 0 {
		select {
		case completedRows := <-r.doneChan:
			pendingRows -= completedRows
		case err := <-r.errChan:
			return err
		}
	}

	r.collectStats(blockAssignment, time.Since(start))
	return nil
}

func (r *defaultRenderer) collectStats(blockAssignment []uint32, renderTime time.Duration) {
	r.stats = FrameStats{
		Tracers:    make([]TracerStat, len(r.tracers)),
		RenderTime: renderTime,
	}

	for idx, tr := range r.tracers {
		stats := tr.Stats()
		r.stats.Tracers[idx] = TracerStat{
			Id:           tr.Id(),
			BlockH:       blockAssignment[idx],
			FramePercent: 100.0 * float32(blockAssignment[idx]) / float32(r.options.FrameH),
			RenderTime:   stats.RenderTime,
		}
	}
}

// Get the current tonemapped frame.
func (r *defaultRenderer) Frame() *image.RGBA {
	im := image.NewRGBA(image.Rect(0, 0, int(r.options.FrameW), int(r.options.FrameH)))
	copy(im.Pix, r.frameBuffer)
	return im
}

// Shutdown renderer and all attached tracers.
func (r *defaultRenderer) Close() {
	for _, tr := range r.tracers {
		tr.Close()
	}
	r.tracers = nil
}

// Get render statistics.
func (r *defaultRenderer) Stats() FrameStats {
	return r.stats
}
