package scene

import (
	"fmt"

	"github.com/planetar/domemaster/types"
)

// The camera type controls the dome camera placement. The forward axis
// points at the dome zenith; for a typical planetarium setup the camera
// looks straight up with the audience's "forward" mapped to -Z.
type Camera struct {
	Position types.Vec3
	LookAt   types.Vec3
	Up       types.Vec3

	// Camera FOV in degrees. Dome masters use 180.
	FOV float32

	// Stereo eye separation in world units.
	EyeSeparation float32

	// Thin lens parameters; depth of field is enabled when the aperture
	// radius is non-zero.
	ApertureRadius float32
	FocalDist      float32

	// The orthonormal basis derived from Position/LookAt/Up: right,
	// up and forward axes.
	U, V, W types.Vec3
}

func NewCamera(fov float32) *Camera {
	c := &Camera{
		Position: types.Vec3{0, 0, 0},
		LookAt:   types.Vec3{0, 0, -1},
		Up:       types.Vec3{0, 1, 0},
		FOV:      fov,
	}
	c.Update()
	return c
}

// Update the camera basis after changing any of the placement fields.
func (c *Camera) Update() {
	c.W = c.LookAt.Sub(c.Position).Normalize()
	c.U = c.W.Cross(c.Up).Normalize()
	c.V = c.U.Cross(c.W)
}

func (c *Camera) String() string {
	return fmt.Sprintf(
		"Camera basis:\nU : (%3.3f, %3.3f, %3.3f)\nV : (%3.3f, %3.3f, %3.3f)\nW : (%3.3f, %3.3f, %3.3f)",
		c.U[0], c.U[1], c.U[2],
		c.V[0], c.V[1], c.V[2],
		c.W[0], c.W[1], c.W[2],
	)
}
