package dome

import (
	"math"

	"github.com/planetar/domemaster/types"
)

// applyDOF perturbs a camera ray with a thin lens model. The origin is
// jittered across a disk of the given aperture radius spanned by the lens
// basis vectors and the direction is re-aimed at the focal point so that
// geometry at focalDist stays sharp while everything else blurs.
func applyDOF(origin, dir types.Vec3, seed *uint32, lensRight, lensUp types.Vec3, apertureRadius, focalDist float32) (types.Vec3, types.Vec3) {
	focalPoint := origin.Add(dir.Mul(focalDist))

	lx, ly := diskSample(seed)
	lensPoint := origin.
		Add(lensRight.Mul(lx * apertureRadius)).
		Add(lensUp.Mul(ly * apertureRadius))

	return lensPoint, focalPoint.Sub(lensPoint).Normalize()
}

// diskSample draws a uniformly distributed point on the unit disk.
func diskSample(seed *uint32) (float32, float32) {
	u1, u2 := uniform2D(seed)

	r := float32(math.Sqrt(float64(u1)))
	theta := 2 * math.Pi * float64(u2)

	return r * float32(math.Cos(theta)), r * float32(math.Sin(theta))
}
