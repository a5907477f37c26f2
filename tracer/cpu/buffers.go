package cpu

import (
	"fmt"
	"image"

	"github.com/planetar/domemaster/types"
)

// bufferSet wraps the renderer-owned accumulation and frame buffers. The
// accumulation buffer stores running RGBA sums as float32 quads; the frame
// buffer stores the tonemapped RGBA8 output. Pixels are only ever written
// by the single goroutine tracing them, so no synchronization is required.
type bufferSet struct {
	frameW uint32
	frameH uint32

	accum []float32
	frame []uint8
}

func newBufferSet(frameW, frameH uint32, accum []float32, frame []uint8) (*bufferSet, error) {
	want := int(frameW * frameH * 4)
	if len(accum) != want {
		return nil, fmt.Errorf("cpu: accumulation buffer size mismatch; expected %d floats, got %d", want, len(accum))
	}
	if len(frame) != want {
		return nil, fmt.Errorf("cpu: frame buffer size mismatch; expected %d bytes, got %d", want, len(frame))
	}

	return &bufferSet{
		frameW: frameW,
		frameH: frameH,
		accum:  accum,
		frame:  frame,
	}, nil
}

// Clear the accumulation buffer rows for the given block.
func (b *bufferSet) Clear(blockY, blockH uint32) {
	start := blockY * b.frameW * 4
	end := (blockY + blockH) * b.frameW * 4
	for i := start; i < end; i++ {
		b.accum[i] = 0
	}
}

// Accumulate implements tracer.Accumulator; it adds the per-pixel color and
// alpha sums on top of any samples collected by previous frames.
func (b *bufferSet) Accumulate(x, y uint32, color types.Vec3, alpha float32) {
	offset := (y*b.frameW + x) * 4
	b.accum[offset] += color[0]
	b.accum[offset+1] += color[1]
	b.accum[offset+2] += color[2]
	b.accum[offset+3] += alpha
}

// Tonemap the block rows into the frame buffer using simple Reinhard
// mapping. totalSamples is the number of samples accumulated per pixel
// across all progressive frames so far.
func (b *bufferSet) Tonemap(blockY, blockH uint32, exposure float32, totalSamples uint32) {
	scale := exposure / float32(totalSamples)

	var x, y uint32
	for y = blockY; y < blockY+blockH; y++ {
		for x = 0; x < b.frameW; x++ {
			offset := (y*b.frameW + x) * 4

			for c := uint32(0); c < 3; c++ {
				v := b.accum[offset+c] * scale
				v = v / (1.0 + v)
				b.frame[offset+c] = uint8(v * 255.0)
			}

			alpha := b.accum[offset+3] / float32(totalSamples)
			if alpha > 1.0 {
				alpha = 1.0
			}
			b.frame[offset+3] = uint8(alpha * 255.0)
		}
	}
}

// FrameImage wraps the frame buffer into an image without copying.
func (b *bufferSet) FrameImage() *image.RGBA {
	return &image.RGBA{
		Pix:    b.frame,
		Stride: int(b.frameW) * 4,
		Rect:   image.Rect(0, 0, int(b.frameW), int(b.frameH)),
	}
}
