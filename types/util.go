package types

// Threshold for floating point equality comparisons.
const floatCmpEpsilon = 1e-6

// Compare two 3 component vectors within the given tolerance.
func ApproxEqual(v1, v2 Vec3, tolerance float32) bool {
	return absf(v1[0]-v2[0]) <= tolerance &&
		absf(v1[1]-v2[1]) <= tolerance &&
		absf(v1[2]-v2[2]) <= tolerance
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
