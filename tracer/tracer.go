package tracer

import "time"

type Flag uint8

const (
	// Tracer runs on the local machine.
	Local Flag = 1 << iota
)

type UpdateType uint8

const (
	UpdateCamera UpdateType = iota
	UpdateScene
)

// A unit of work that is processed by a tracer.
type BlockRequest struct {
	// Frame dims.
	FrameW uint32
	FrameH uint32

	// Block start row and height.
	BlockY uint32
	BlockH uint32

	// The number of emitted rays per traced pixel.
	SamplesPerPixel uint32

	// The exposure value controls HDR -> LDR mapping.
	Exposure float32

	// Number of sequential accumulated frames from the current camera
	// position. Used to decorrelate the per-pixel sample jitter between
	// successive frames.
	FrameCount uint32

	// A channel to signal on block completion with the number of completed rows.
	DoneChan chan<- uint32

	// A channel to signal if an error occurs.
	ErrChan chan<- error
}

// Tracer statistics.
type Stats struct {
	// The rendered block height.
	BlockH uint32

	// The time spent committing pending state updates.
	UpdateTime time.Duration

	// The time for rendering the last assigned block.
	RenderTime time.Duration
}

type Tracer interface {
	// Get tracer id.
	Id() string

	// Get tracer flags.
	Flags() Flag

	// Get the tracer's relative computation speed estimate.
	Speed() uint32

	// Initialize tracer. The accumulation and frame buffers are shared
	// with the renderer; tracers only ever touch the rows of the blocks
	// assigned to them.
	Init(frameW, frameH uint32, accumBuffer []float32, frameBuffer []uint8) error

	// Shutdown and cleanup tracer.
	Close()

	// Enqueue block request.
	Enqueue(BlockRequest)

	// Queue a state change; changes are committed before the next
	// enqueued block is rendered.
	Update(UpdateType, interface{})

	// Retrieve last frame statistics.
	Stats() *Stats
}
