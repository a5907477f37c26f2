package renderer

import "image"

type Renderer interface {
	// Render the configured number of progressive frames.
	Render() error

	// Get the current tonemapped frame.
	Frame() *image.RGBA

	// Shutdown renderer and any attached tracer.
	Close()

	// Get render statistics.
	Stats() FrameStats
}
