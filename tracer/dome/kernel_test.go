package dome

import (
	"math"
	"reflect"
	"testing"

	"github.com/planetar/domemaster/tracer"
	"github.com/planetar/domemaster/types"
)

func testParams() Params {
	return Params{
		FrameW:  100,
		FrameH:  100,
		Eye:     types.XYZ(0, 0, 0),
		Right:   types.XYZ(1, 0, 0),
		Up:      types.XYZ(0, 1, 0),
		Forward: types.XYZ(0, 0, 1),
		FOV:     180,
		Samples: 4,
	}
}

// The accumulation sink used by the kernel tests.
type captureAccum struct {
	x, y  uint32
	color types.Vec3
	alpha float32
	calls int
}

func (a *captureAccum) Accumulate(x, y uint32, color types.Vec3, alpha float32) {
	a.x, a.y = x, y
	a.color = color
	a.alpha = alpha
	a.calls++
}

func TestCenterMapsToForwardAxis(t *testing.T) {
	k := NewKernel(testParams())

	dir, lensRight, lensUp, ok := k.mapRay(k.viewportMid)
	if !ok {
		t.Fatal("expected the viewport center to fall inside the field of view")
	}
	if dir != k.params.Forward {
		t.Fatalf("expected center direction to equal the forward axis exactly; got %v", dir)
	}
	if lensRight != k.params.Right || lensUp != k.params.Up {
		t.Fatalf("expected the center lens basis to equal the camera basis; got %v, %v", lensRight, lensUp)
	}
}

func TestOutsideFieldOfView(t *testing.T) {
	// On a 2x2 frame every pixel sits at rd = (-π/2, -π/2) from the
	// viewport mid which exceeds rmax = π/2.
	params := testParams()
	params.FrameW = 2
	params.FrameH = 2
	k := NewKernel(params)

	if _, _, _, ok := k.mapRay(types.XY(0, 0)); ok {
		t.Fatal("expected pixel (0,0) of a 2x2 dome frame to fall outside the field of view")
	}

	// The whole pixel footprint is excluded so the tracer must never be
	// invoked and the accumulated sums stay zero.
	accum := &captureAccum{}
	traceCalls := 0
	k.Generate(0, 0, func(origin, dir types.Vec3, rayType tracer.RayType, minDist, maxDist float32, payload *tracer.Payload) {
		traceCalls++
	}, accum)

	if traceCalls != 0 {
		t.Fatalf("expected no trace calls for an out-of-fov pixel; got %d", traceCalls)
	}
	if accum.calls != 1 {
		t.Fatalf("expected exactly one accumulation call; got %d", accum.calls)
	}
	if (accum.color != types.Vec3{}) || accum.alpha != 0 {
		t.Fatalf("expected zero color/alpha contribution; got %v / %f", accum.color, accum.alpha)
	}
}

func TestRadialSymmetry(t *testing.T) {
	k := NewKernel(testParams())

	// Sample positions at the same radial distance from the viewport mid
	// but different orientation must map to directions with the same
	// angle from the forward axis and an azimuth matching the offset's
	// orientation in pixel space.
	const radius = 20.0
	azimuths := []float64{0, 0.35, math.Pi / 3, math.Pi, 4.8}

	var refAngle float32 = -1
	for _, az := range azimuths {
		offset := types.XY(radius*float32(math.Cos(az)), radius*float32(math.Sin(az)))
		dir, _, _, ok := k.mapRay(k.viewportMid.Add(offset))
		if !ok {
			t.Fatalf("azimuth %f: expected position inside the field of view", az)
		}

		polar := float32(math.Acos(float64(dir.Dot(k.params.Forward))))
		if refAngle < 0 {
			refAngle = polar
		} else if absDiff(polar, refAngle) > 1e-5 {
			t.Fatalf("azimuth %f: expected polar angle %f; got %f", az, refAngle, polar)
		}

		gotAz := math.Atan2(float64(dir.Dot(k.params.Up)), float64(dir.Dot(k.params.Right)))
		if absDiff(angleNorm(float32(gotAz)), angleNorm(float32(az))) > 1e-5 {
			t.Fatalf("expected ray azimuth %f; got %f", az, gotAz)
		}
	}
}

func TestEquidistantMapping(t *testing.T) {
	k := NewKernel(testParams())

	// With fov=180 over 100 pixels each pixel covers π/100 radians; an
	// offset of 25 pixels from the center must map to a polar angle of
	// exactly 25*π/100.
	dir, _, _, ok := k.mapRay(k.viewportMid.Add(types.XY(25, 0)))
	if !ok {
		t.Fatal("expected position inside the field of view")
	}

	expAngle := 25.0 * math.Pi / 100.0
	gotAngle := math.Acos(float64(dir.Dot(k.params.Forward)))
	if math.Abs(gotAngle-expAngle) > 1e-6 {
		t.Fatalf("expected polar angle %f; got %f", expAngle, gotAngle)
	}
}

func TestLensBasisPerpendicularToRay(t *testing.T) {
	k := NewKernel(testParams())

	positions := []types.Vec2{
		k.viewportMid.Add(types.XY(10, 0)),
		k.viewportMid.Add(types.XY(-7, 21)),
		k.viewportMid.Add(types.XY(3, -33)),
	}
	for _, pos := range positions {
		dir, lensRight, lensUp, ok := k.mapRay(pos)
		if !ok {
			t.Fatalf("position %v: expected to be inside the field of view", pos)
		}

		if absf(dir.Dot(lensRight)) > 1e-5 || absf(dir.Dot(lensUp)) > 1e-5 {
			t.Fatalf("position %v: lens basis is not perpendicular to the ray", pos)
		}
		if absf(lensRight.Len()-1) > 1e-4 || absf(lensUp.Len()-1) > 1e-4 {
			t.Fatalf("position %v: lens basis is not unit length", pos)
		}
	}
}

func TestStereoViewportPartition(t *testing.T) {
	params := testParams()
	params.FrameH = 200
	params.Stereo = true
	params.EyeSep = 0.06
	k := NewKernel(params)

	if k.eyeH != 100 {
		t.Fatalf("expected eye sub-image height 100; got %d", k.eyeH)
	}

	type spec struct {
		y           uint32
		expLocalY   uint32
		expEyeShift float32
	}
	specs := []spec{
		{0, 0, -0.03},
		{99, 99, -0.03},
		{100, 0, 0.03},
		{199, 99, 0.03},
	}
	for _, s := range specs {
		localY, eyeShift := k.stereoView(s.y)
		if localY != s.expLocalY {
			t.Fatalf("row %d: expected local row %d; got %d", s.y, s.expLocalY, localY)
		}
		if eyeShift != s.expEyeShift {
			t.Fatalf("row %d: expected eye shift %f; got %f", s.y, s.expEyeShift, eyeShift)
		}
	}
}

func TestStereoEyesUseSameProjection(t *testing.T) {
	params := testParams()
	params.FrameH = 200
	params.Stereo = true
	params.EyeSep = 0.06
	params.Samples = 1
	k := NewKernel(params)

	// Both eyes share the projection; the only difference is the sign of
	// the eye shift, so the eye offsets must mirror each other exactly.
	dir, _, _, ok := k.mapRay(types.XY(30, 40))
	if !ok {
		t.Fatal("expected position inside the field of view")
	}

	shiftRight := k.stereoOffset(dir, -0.03)
	shiftLeft := k.stereoOffset(dir, 0.03)
	if shiftRight != shiftLeft.Mul(-1) {
		t.Fatalf("expected mirrored eye offsets; got %v vs %v", shiftRight, shiftLeft)
	}
}

func TestStereoOffsetTangential(t *testing.T) {
	params := testParams()
	params.Stereo = true
	params.EyeSep = 0.1
	k := NewKernel(params)

	// cross(dir, forward) is perpendicular to the forward axis; the 5th
	// power is componentwise so the offset must stay perpendicular to
	// forward whenever the cross product is axis aligned.
	dir, _, _, _ := k.mapRay(k.viewportMid.Add(types.XY(20, 0)))
	offset := k.stereoOffset(dir, 0.05)
	if absf(offset.Dot(k.params.Forward)) > 1e-6 {
		t.Fatalf("expected the eye offset to be tangent to the forward axis; got %v", offset)
	}

	// At the dome center cross(forward, forward) vanishes and both eyes
	// converge onto the mono origin.
	if off := k.stereoOffset(k.params.Forward, 0.05); (off != types.Vec3{}) {
		t.Fatalf("expected a zero eye offset at the dome center; got %v", off)
	}
}

func TestOriginWithoutStereoAndDOF(t *testing.T) {
	params := testParams()
	params.Eye = types.XYZ(1, 2, 3)
	k := NewKernel(params)

	var traced int
	k.Generate(50, 50, func(origin, dir types.Vec3, rayType tracer.RayType, minDist, maxDist float32, payload *tracer.Payload) {
		traced++
		if origin != params.Eye {
			t.Fatalf("expected ray origin to equal the camera position %v; got %v", params.Eye, origin)
		}
		if rayType != tracer.RadianceRay {
			t.Fatalf("expected a radiance ray; got type %d", rayType)
		}
	}, &captureAccum{})

	if traced != int(params.Samples) {
		t.Fatalf("expected %d trace calls; got %d", params.Samples, traced)
	}
}

func TestPayloadInitialization(t *testing.T) {
	params := testParams()
	params.Samples = 1
	params.MaxTransparencyBounces = 8
	k := NewKernel(params)

	k.Generate(50, 50, func(origin, dir types.Vec3, rayType tracer.RayType, minDist, maxDist float32, payload *tracer.Payload) {
		if payload.Importance != 1.0 || payload.Alpha != 1.0 || payload.Depth != 0 {
			t.Fatalf("unexpected payload init: %+v", payload)
		}
		if payload.TransparencyBounces != 8 {
			t.Fatalf("expected transparency bounce budget 8; got %d", payload.TransparencyBounces)
		}
		if minDist != tracer.SceneEpsilon || maxDist != tracer.RayMaxDist {
			t.Fatalf("unexpected ray extents: %f / %f", minDist, maxDist)
		}
	}, &captureAccum{})
}

func TestAccumulatedColorAndAlpha(t *testing.T) {
	params := testParams()
	params.Samples = 16
	k := NewKernel(params)

	accum := &captureAccum{}
	k.Generate(50, 50, func(origin, dir types.Vec3, rayType tracer.RayType, minDist, maxDist float32, payload *tracer.Payload) {
		payload.Result = types.XYZ(0.25, 0.5, 0.75)
	}, accum)

	if accum.x != 50 || accum.y != 50 {
		t.Fatalf("expected accumulation at pixel (50, 50); got (%d, %d)", accum.x, accum.y)
	}
	exp := types.XYZ(0.25, 0.5, 0.75).Mul(16)
	if !types.ApproxEqual(accum.color, exp, 1e-4) {
		t.Fatalf("expected accumulated color %v; got %v", exp, accum.color)
	}
	if absf(accum.alpha-16) > 1e-4 {
		t.Fatalf("expected accumulated alpha 16; got %f", accum.alpha)
	}
}

func TestSampleCountPreservesExpectedValue(t *testing.T) {
	// Increasing the sample count must not bias the accumulated mean;
	// shade a direction-dependent color and compare per-sample averages
	// between a low and a high sample count.
	shade := func(origin, dir types.Vec3, rayType tracer.RayType, minDist, maxDist float32, payload *tracer.Payload) {
		payload.Result = types.XYZ(0.5*(dir[0]+1), 0.5*(dir[1]+1), 0.5*(dir[2]+1))
	}

	mean := func(samples uint32) types.Vec3 {
		params := testParams()
		params.Samples = samples
		k := NewKernel(params)

		accum := &captureAccum{}
		k.Generate(61, 38, shade, accum)
		return accum.color.Mul(1.0 / float32(samples))
	}

	lo := mean(32)
	hi := mean(2048)
	if !types.ApproxEqual(lo, hi, 0.01) {
		t.Fatalf("expected sample means to agree within tolerance; got %v vs %v", lo, hi)
	}
}

func TestDOFOriginOnLensDisk(t *testing.T) {
	params := testParams()
	params.Samples = 64
	params.ApertureRadius = 0.5
	params.FocalDist = 10
	k := NewKernel(params)

	k.Generate(40, 60, func(origin, dir types.Vec3, rayType tracer.RayType, minDist, maxDist float32, payload *tracer.Payload) {
		if origin.Sub(params.Eye).Len() > params.ApertureRadius+1e-4 {
			t.Fatalf("expected ray origin on the lens disk; got offset %f", origin.Sub(params.Eye).Len())
		}
		if absf(dir.Len()-1) > 1e-4 {
			t.Fatalf("expected a normalized ray direction; got length %f", dir.Len())
		}
	}, &captureAccum{})
}

func TestVariantDispatch(t *testing.T) {
	type spec struct {
		stereo   bool
		aperture float32
		exp      string
	}
	specs := []spec{
		{false, 0, "mono"},
		{false, 0.1, "dof"},
		{true, 0, "stereo"},
		{true, 0.1, "stereo-dof"},
	}

	for index, s := range specs {
		params := testParams()
		params.FrameH = 200
		params.Stereo = s.stereo
		params.ApertureRadius = s.aperture
		params.FocalDist = 5
		params.EyeSep = 0.06
		params.Samples = 4
		k := NewKernel(params)

		got := describeVariant(k)
		if got != s.exp {
			t.Fatalf("[spec %d] expected variant %q; got %q", index, s.exp, got)
		}
	}
}

func describeVariant(k *Kernel) string {
	switch {
	case funcEqual(k.generate, generateStereoDOF):
		return "stereo-dof"
	case funcEqual(k.generate, generateStereo):
		return "stereo"
	case funcEqual(k.generate, generateDOF):
		return "dof"
	case funcEqual(k.generate, generateMono):
		return "mono"
	default:
		return "unknown"
	}
}

func funcEqual(a, b generateFunc) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}

func angleNorm(a float32) float32 {
	for a < 0 {
		a += 2 * math.Pi
	}
	for a >= 2*math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

func absDiff(a, b float32) float32 {
	if a > b {
		return a - b
	}
	return b - a
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
