package renderer

type Options struct {
	// Frame dims. For stereo output FrameH covers both the over/under
	// eye sub-images and must be even.
	FrameW uint32
	FrameH uint32

	// Render an over/under stereo pair.
	Stereo bool

	// Number of progressive frames to accumulate.
	Frames uint32

	// Number of samples per pixel per frame.
	SamplesPerPixel uint32

	// Budget of transparency bounces per camera ray.
	MaxTransparencyBounces uint32

	// The exposure value controls HDR -> LDR mapping.
	Exposure float32

	// Number of cpu tracers to attach. Defaults to 1; the block
	// scheduler balances rows between them using prior frame timings.
	NumTracers int
}
