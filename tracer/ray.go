package tracer

import "github.com/planetar/domemaster/types"

type RayType uint32

const (
	// Camera (radiance) rays.
	RadianceRay RayType = iota

	// Occlusion test rays.
	ShadowRay
)

const (
	// Scene epsilon used as the default minimum hit distance so that
	// secondary rays do not self-intersect their origin.
	SceneEpsilon float32 = 1e-3

	// Default maximum hit distance.
	RayMaxDist float32 = 1e8
)

// The payload that accompanies a traced ray. A fresh payload is initialized
// for every camera ray submission; the trace call fills in Result and may
// attenuate Alpha while following transparent surfaces.
type Payload struct {
	// The radiance collected along the ray.
	Result types.Vec3

	// Path importance weight.
	Importance float32

	// Accumulated opacity for the traced path.
	Alpha float32

	// Current recursion depth.
	Depth uint32

	// Remaining budget of transparency bounces.
	TransparencyBounces uint32
}

// Initialize a camera ray payload.
func NewPayload(maxTransparencyBounces uint32) Payload {
	return Payload{
		Importance:          1.0,
		Alpha:               1.0,
		TransparencyBounces: maxTransparencyBounces,
	}
}

// TraceFunc is the scene trace entry point invoked for each generated camera
// ray. Implementations fill in payload.Result and payload.Alpha and may
// recurse internally for reflection or transparency rays.
type TraceFunc func(origin, dir types.Vec3, rayType RayType, minDist, maxDist float32, payload *Payload)

// Accumulator instances receive the per-pixel color and alpha sums produced
// by a ray generator. The accumulation policy (progressive averaging across
// frames) is owned by the implementation.
type Accumulator interface {
	Accumulate(x, y uint32, color types.Vec3, alpha float32)
}
