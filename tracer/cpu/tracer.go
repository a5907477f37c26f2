// Package cpu provides a tracer.Tracer implementation that executes the
// dome camera kernel on the local CPU, splitting each assigned block's rows
// across a pool of worker goroutines.
package cpu

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/planetar/domemaster/log"
	"github.com/planetar/domemaster/scene"
	"github.com/planetar/domemaster/tracer"
	"github.com/planetar/domemaster/tracer/dome"
)

// Tracer configuration.
type Config struct {
	// Number of worker goroutines used per block. Defaults to the
	// number of logical CPUs.
	Workers int

	// Render the frame as an over/under stereo pair.
	Stereo bool

	// Budget of transparency bounces granted to each camera ray.
	MaxTransparencyBounces uint32
}

type Tracer struct {
	logger log.Logger

	sync.Mutex
	wg sync.WaitGroup

	// The tracer id.
	id string

	cfg      Config
	pipeline *Pipeline

	// The shared accumulation/frame buffers assigned via Init.
	buffers *bufferSet

	// Frame dims.
	frameW uint32
	frameH uint32

	// Current scene and camera.
	scn    *scene.Scene
	camera *scene.Camera

	// A buffer for queuing updates. Updates are grouped by type and
	// later updates always overwrite earlier ones.
	updateBuffer map[tracer.UpdateType]interface{}

	// A channel for receiving block requests from the renderer.
	blockReqChan chan tracer.BlockRequest

	// A channel for signaling the worker to exit.
	closeChan chan struct{}

	// Statistics for the last rendered block.
	stats *tracer.Stats
}

// Create a new cpu tracer.
func NewTracer(id string, pipeline *Pipeline, cfg Config) *Tracer {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}

	return &Tracer{
		logger:       log.New(fmt.Sprintf("cpu tracer (%s)", id)),
		id:           id,
		cfg:          cfg,
		pipeline:     pipeline,
		updateBuffer: make(map[tracer.UpdateType]interface{}),
		blockReqChan: make(chan tracer.BlockRequest, 1),
		stats:        &tracer.Stats{},
	}
}

// Get tracer id.
func (tr *Tracer) Id() string {
	return tr.id
}

// Get tracer flags.
func (tr *Tracer) Flags() tracer.Flag {
	return tracer.Local
}

// Get the tracer's relative computation speed estimate. Block scheduling is
// proportional to the number of workers backing each tracer.
func (tr *Tracer) Speed() uint32 {
	return uint32(tr.cfg.Workers)
}

// Initialize tracer and start its request processor.
func (tr *Tracer) Init(frameW, frameH uint32, accumBuffer []float32, frameBuffer []uint8) error {
	tr.Lock()
	defer tr.Unlock()

	var err error
	tr.buffers, err = newBufferSet(frameW, frameH, accumBuffer, frameBuffer)
	if err != nil {
		return err
	}

	tr.frameW = frameW
	tr.frameH = frameH

	if tr.closeChan == nil {
		tr.startWorker()
	}

	return nil
}

// Shutdown and cleanup tracer.
func (tr *Tracer) Close() {
	tr.Lock()
	defer tr.Unlock()

	if tr.closeChan != nil {
		tr.closeChan <- struct{}{}

		// wait for worker to ack close and shutdown channel
		<-tr.closeChan
		close(tr.closeChan)
		tr.closeChan = nil
	}

	tr.buffers = nil
	tr.scn = nil
	tr.camera = nil
}

// Enqueue block request.
func (tr *Tracer) Enqueue(blockReq tracer.BlockRequest) {
	select {
	case tr.blockReqChan <- blockReq:
	default:
		// drop the request if the worker is not listening
		tr.logger.Error("request processor did not receive block request")
	}
}

// Queue a state change; committed before the next block is rendered.
func (tr *Tracer) Update(updateType tracer.UpdateType, data interface{}) {
	tr.updateBuffer[updateType] = data
}

// Retrieve last frame statistics.
func (tr *Tracer) Stats() *tracer.Stats {
	return tr.stats
}

// Commit queued changes.
func (tr *Tracer) commitUpdates() error {
	var err error
	for updateType, data := range tr.updateBuffer {
		switch updateType {
		case tracer.UpdateScene:
			tr.scn = data.(*scene.Scene)
			tr.camera = tr.scn.Camera
		case tracer.UpdateCamera:
			tr.camera = data.(*scene.Camera)
		default:
			err = fmt.Errorf("cpu: unsupported update type %d", updateType)
		}

		if err != nil {
			return err
		}
	}

	tr.updateBuffer = make(map[tracer.UpdateType]interface{})
	return nil
}

// Spawn a go-routine to process block render requests.
func (tr *Tracer) startWorker() {
	tr.closeChan = make(chan struct{})

	readyChan := make(chan struct{})
	tr.wg.Add(1)
	go func() {
		defer tr.wg.Done()
		close(readyChan)
		for {
			select {
			case blockReq := <-tr.blockReqChan:
				startTime := time.Now()

				// Apply any pending changes
				if len(tr.updateBuffer) != 0 {
					if err := tr.commitUpdates(); err != nil {
						blockReq.ErrChan <- err
						continue
					}
					tr.stats.UpdateTime = time.Since(startTime)
				}

				// Render block and reply with our completion status
				if err := tr.renderBlock(&blockReq); err != nil {
					blockReq.ErrChan <- err
					continue
				}

				// Update stats
				tr.stats.BlockH = blockReq.BlockH
				tr.stats.RenderTime = time.Since(startTime)

				blockReq.DoneChan <- blockReq.BlockH
			case <-tr.closeChan:
				// Ack close
				tr.closeChan <- struct{}{}
				return
			}
		}
	}()

	// Wait for go-routine to start
	<-readyChan
}

// Render block.
func (tr *Tracer) renderBlock(blockReq *tracer.BlockRequest) error {
	if tr.scn == nil || tr.scn.Trace == nil {
		return ErrNoSceneData
	}
	if tr.camera == nil {
		return ErrNoCameraData
	}

	// Execute pipeline
	for _, stage := range tr.pipeline.stages() {
		if _, err := stage(tr, blockReq); err != nil {
			return err
		}
	}

	return nil
}

// Trace the block's rows through the dome camera kernel, splitting them
// across the worker pool. Workers share nothing but the kernel (immutable)
// and the buffers (disjoint pixel slots).
func (tr *Tracer) traceBlock(blockReq *tracer.BlockRequest) error {
	kernel := dome.NewKernel(dome.Params{
		FrameW:                 blockReq.FrameW,
		FrameH:                 blockReq.FrameH,
		Eye:                    tr.camera.Position,
		Right:                  tr.camera.U,
		Up:                     tr.camera.V,
		Forward:                tr.camera.W,
		FOV:                    tr.camera.FOV,
		Stereo:                 tr.cfg.Stereo,
		EyeSep:                 tr.camera.EyeSeparation,
		ApertureRadius:         tr.camera.ApertureRadius,
		FocalDist:              tr.camera.FocalDist,
		Samples:                blockReq.SamplesPerPixel,
		MaxTransparencyBounces: tr.cfg.MaxTransparencyBounces,
		FrameIndex:             blockReq.FrameCount,
	})

	if blockReq.BlockH == 0 {
		return nil
	}

	workers := uint32(tr.cfg.Workers)
	if workers > blockReq.BlockH {
		workers = blockReq.BlockH
	}
	rowsPerWorker := (blockReq.BlockH + workers - 1) / workers

	var wg sync.WaitGroup
	var w uint32
	for w = 0; w < workers; w++ {
		startY := blockReq.BlockY + w*rowsPerWorker
		endY := startY + rowsPerWorker
		if endY > blockReq.BlockY+blockReq.BlockH {
			endY = blockReq.BlockY + blockReq.BlockH
		}
		if startY >= endY {
			break
		}

		wg.Add(1)
		go func(startY, endY uint32) {
			defer wg.Done()
			for y := startY; y < endY; y++ {
				for x := uint32(0); x < blockReq.FrameW; x++ {
					kernel.Generate(x, y, tr.scn.Trace, tr.buffers)
				}
			}
		}(startY, endY)
	}
	wg.Wait()

	return nil
}
