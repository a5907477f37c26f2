package scene

import (
	"math"

	"github.com/planetar/domemaster/tracer"
	"github.com/planetar/domemaster/types"
)

// Scene ties the dome camera to the radiance source traced by the camera
// rays. Geometry traversal and material evaluation live behind the
// tracer.TraceFunc contract; this package only ships analytic environments
// used for dome calibration and camera verification.
type Scene struct {
	Camera *Camera

	// The trace entry point invoked for every generated camera ray.
	Trace tracer.TraceFunc
}

// GradientEnv returns a trace function shading an analytic sky gradient:
// the horizon color blends into the zenith color with the angle from the
// camera's up axis.
func GradientEnv(up, horizon, zenith types.Vec3) tracer.TraceFunc {
	return func(origin, dir types.Vec3, rayType tracer.RayType, minDist, maxDist float32, payload *tracer.Payload) {
		t := 0.5 * (dir.Normalize().Dot(up) + 1.0)
		payload.Result = horizon.Mul(1.0 - t).Add(zenith.Mul(t))
	}
}

// AlignmentGrid returns a trace function shading an altitude/azimuth grid
// with the given angular step in degrees. Grid environments are the
// standard test pattern for verifying dome master projection and stereo
// alignment on the physical dome.
func AlignmentGrid(forward types.Vec3, stepDeg float32) tracer.TraceFunc {
	lineColor := types.XYZ(1, 1, 1)
	fieldColor := types.XYZ(0.05, 0.1, 0.2)

	// Half-width of the grid lines in degrees.
	const lineWidth = 0.5

	return func(origin, dir types.Vec3, rayType tracer.RayType, minDist, maxDist float32, payload *tracer.Payload) {
		d := dir.Normalize()

		// Altitude measured from the forward (zenith) axis and azimuth
		// around it, both in degrees.
		cosAlt := d.Dot(forward)
		if cosAlt > 1 {
			cosAlt = 1
		} else if cosAlt < -1 {
			cosAlt = -1
		}
		alt := float32(math.Acos(float64(cosAlt))) / degToRad

		rest := d.Sub(forward.Mul(cosAlt))
		az := float32(math.Atan2(float64(rest[1]), float64(rest[0]))) / degToRad
		if az < 0 {
			az += 360
		}

		onAltLine := angularDist(alt, stepDeg) < lineWidth
		// Azimuth lines converge at the zenith; fade them out near it.
		onAzLine := alt > 2*lineWidth && angularDist(az, stepDeg) < lineWidth

		if onAltLine || onAzLine {
			payload.Result = lineColor
		} else {
			payload.Result = fieldColor
		}
	}
}

const degToRad = math.Pi / 180.0

// angularDist returns the distance from v to the closest multiple of step.
func angularDist(v, step float32) float32 {
	m := float32(math.Mod(float64(v), float64(step)))
	if m > step/2 {
		m = step - m
	}
	return m
}
