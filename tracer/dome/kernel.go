// Package dome implements a dome master camera: primary rays are generated
// using a 180 degree equidistant fisheye projection suitable for planetarium
// projection, with optional over/under stereo output and optional thin-lens
// depth of field.
package dome

import (
	"math"

	"github.com/planetar/domemaster/tracer"
	"github.com/planetar/domemaster/types"
)

const degToRad = math.Pi / 180.0

// Params bundles the immutable per-frame state consumed by the ray
// generator. A new Kernel must be built whenever any of these change.
type Params struct {
	// Frame dims. For stereo output FrameH covers both eye sub-images
	// stacked over/under.
	FrameW uint32
	FrameH uint32

	// Camera position and orthonormal basis: right (U), up (V) and
	// forward (W) axes.
	Eye     types.Vec3
	Right   types.Vec3
	Up      types.Vec3
	Forward types.Vec3

	// Field of view in degrees. Dome masters use 180.
	FOV float32

	// Stereo eye separation in world units. Stereo output is enabled
	// when non-zero.
	Stereo bool
	EyeSep float32

	// Thin lens parameters. DOF is enabled when the aperture radius is
	// non-zero.
	ApertureRadius float32
	FocalDist      float32

	// Anti-aliasing samples per pixel.
	Samples uint32

	// Budget of transparency bounces granted to each ray payload.
	MaxTransparencyBounces uint32

	// Index of the frame being accumulated; varies the per-pixel jitter
	// seed between successive frames.
	FrameIndex uint32
}

// A generator specialization. Four exist, one per stereo/DOF combination;
// the right one is selected once at kernel construction time so the
// per-pixel path never branches on feature flags.
type generateFunc func(k *Kernel, x, y uint32, trace tracer.TraceFunc, accum tracer.Accumulator)

// Kernel generates the camera rays for a single frame. Kernels are
// immutable once built and may be shared by any number of goroutines.
type Kernel struct {
	params Params

	// Hoisted stereo/DOF dispatch.
	generate generateFunc

	// Derived projection constants.
	rmax            float32
	radiansPerPixel types.Vec2
	viewportMid     types.Vec2

	// Height of a single eye sub-image. Equal to FrameH for mono output
	// and FrameH/2 for stereo.
	eyeH uint32
}

// Build a kernel for the supplied frame parameters.
func NewKernel(params Params) *Kernel {
	k := &Kernel{
		params: params,
		eyeH:   params.FrameH,
	}
	if params.Stereo {
		k.eyeH = params.FrameH / 2
	}

	// Angular distance from the dome center to the edge of the field of
	// view; π/2 for a 180 degree dome.
	k.rmax = 0.5 * params.FOV * degToRad

	// Map pixel distance to angle independently per axis so that
	// non-square viewports project correctly.
	k.radiansPerPixel = types.XY(
		degToRad*params.FOV/float32(params.FrameW),
		degToRad*params.FOV/float32(k.eyeH),
	)
	k.viewportMid = types.XY(float32(params.FrameW)*0.5, float32(k.eyeH)*0.5)

	switch {
	case params.Stereo && params.ApertureRadius > 0:
		k.generate = generateStereoDOF
	case params.Stereo:
		k.generate = generateStereo
	case params.ApertureRadius > 0:
		k.generate = generateDOF
	default:
		k.generate = generateMono
	}

	return k
}

// Generate the camera rays for pixel (x, y), submit each to the trace entry
// point and pass the accumulated color and alpha sums to the accumulation
// sink. Out of a stereo frame, the lower half forms the right eye sub-image
// and the upper half the left eye.
func (k *Kernel) Generate(x, y uint32, trace tracer.TraceFunc, accum tracer.Accumulator) {
	k.generate(k, x, y, trace, accum)
}

// Derive the deterministic jitter seed for pixel (x, y). The pixel index is
// mixed with the frame counter so the same pixel draws a fresh jitter
// sequence every accumulated frame.
func (k *Kernel) pixelSeed(x, y uint32) uint32 {
	return mix(k.params.FrameW*y+x, k.params.FrameIndex)
}

// mapRay evaluates the equidistant fisheye projection for the jittered
// viewport position pos. It returns the ray direction, the lens basis
// vectors used for DOF sampling and false when the position falls outside
// the dome's field of view.
//
// The projection treats the magnitude of the radian-scaled offset from the
// viewport center as the polar angle from the forward axis and the offset's
// orientation as the azimuth around it.
func (k *Kernel) mapRay(pos types.Vec2) (dir, lensRight, lensUp types.Vec3, ok bool) {
	rd := pos.Sub(k.viewportMid).MulVec(k.radiansPerPixel)
	rangle := rd.Len()

	if rangle >= k.rmax {
		return dir, lensRight, lensUp, false
	}

	// Degenerate azimuth at the dome center: look straight along the
	// forward axis.
	if rangle == 0 {
		return k.params.Forward, k.params.Right, k.params.Up, true
	}

	s := float32(math.Sin(float64(rangle)))
	c := float32(math.Cos(float64(rangle)))
	fx := rd[0] / rangle
	fy := rd[1] / rangle

	dir = k.params.Right.Mul(s * fx).
		Add(k.params.Up.Mul(s * fy)).
		Add(k.params.Forward.Mul(c))

	// Rotate the camera basis with the ray using the complementary
	// rotation so the lens disk stays perpendicular to the ray. The
	// radial axis tilts towards the forward axis while the tangential
	// axis is left unchanged.
	radial := k.params.Right.Mul(c * fx).
		Add(k.params.Up.Mul(c * fy)).
		Sub(k.params.Forward.Mul(s))
	tangent := k.params.Up.Mul(fx).Sub(k.params.Right.Mul(fy))

	lensRight = radial.Mul(fx).Sub(tangent.Mul(fy))
	lensUp = radial.Mul(fy).Add(tangent.Mul(fx))

	return dir, lensRight, lensUp, true
}

// stereoOffset displaces the ray origin tangentially to the dome surface.
// The componentwise 5th power of cross(dir, forward) is an empirical
// correction for flat dome screens; it suppresses the flat stereo window
// that a constant lateral shift would produce. It is kept exactly as found
// in production dome master cameras.
func (k *Kernel) stereoOffset(dir types.Vec3, eyeShift float32) types.Vec3 {
	return dir.Cross(k.params.Forward).PowVec(5).Mul(eyeShift)
}

// traceSamples runs the anti-aliasing sample loop shared by all four
// generator specializations. The stereo and DOF adjustments are compiled in
// by the callers through the two boolean arguments which are constant at
// each call site.
func (k *Kernel) traceSamples(x, y, localY uint32, eyeShift float32, stereo, dof bool, trace tracer.TraceFunc, accum tracer.Accumulator) {
	var colorSum types.Vec3
	var alphaSum float32

	seed := k.pixelSeed(x, y)

	var sample uint32
	for sample = 0; sample < k.params.Samples; sample++ {
		jx, jy := uniform2D(&seed)
		pos := types.XY(float32(x)+jx, float32(localY)+jy)

		dir, lensRight, lensUp, ok := k.mapRay(pos)
		if !ok {
			// Outside the dome's field of view; the sample
			// contributes nothing.
			continue
		}

		origin := k.params.Eye
		if stereo {
			origin = origin.Add(k.stereoOffset(dir, eyeShift))
		}
		if dof {
			origin, dir = applyDOF(origin, dir, &seed, lensRight, lensUp, k.params.ApertureRadius, k.params.FocalDist)
		}

		payload := tracer.NewPayload(k.params.MaxTransparencyBounces)
		trace(origin, dir, tracer.RadianceRay, tracer.SceneEpsilon, tracer.RayMaxDist, &payload)

		colorSum = colorSum.Add(payload.Result)
		alphaSum += payload.Alpha
	}

	accum.Accumulate(x, y, colorSum, alphaSum)
}

func generateMono(k *Kernel, x, y uint32, trace tracer.TraceFunc, accum tracer.Accumulator) {
	k.traceSamples(x, y, y, 0, false, false, trace, accum)
}

func generateDOF(k *Kernel, x, y uint32, trace tracer.TraceFunc, accum tracer.Accumulator) {
	k.traceSamples(x, y, y, 0, false, true, trace, accum)
}

func generateStereo(k *Kernel, x, y uint32, trace tracer.TraceFunc, accum tracer.Accumulator) {
	localY, eyeShift := k.stereoView(y)
	k.traceSamples(x, y, localY, eyeShift, true, false, trace, accum)
}

func generateStereoDOF(k *Kernel, x, y uint32, trace tracer.TraceFunc, accum tracer.Accumulator) {
	localY, eyeShift := k.stereoView(y)
	k.traceSamples(x, y, localY, eyeShift, true, true, trace, accum)
}

// stereoView partitions the double-height frame into the two eye sub-images.
// Rows below the midline render the right eye with an eye shift of -sep/2;
// rows above render the left eye with +sep/2 and are remapped to local
// sub-image coordinates.
func (k *Kernel) stereoView(y uint32) (localY uint32, eyeShift float32) {
	if y < k.eyeH {
		return y, -0.5 * k.params.EyeSep
	}
	return y - k.eyeH, 0.5 * k.params.EyeSep
}
