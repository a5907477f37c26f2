package dome

// mix hashes two 32bit values with a 4 round TEA-style shuffle. It is used
// to derive decorrelated per-pixel jitter seeds from the pixel index and the
// frame counter.
func mix(v0, v1 uint32) uint32 {
	var sum uint32

	for round := 0; round < 4; round++ {
		sum += 0x9e3779b9
		v0 += ((v1 << 4) + 0xa341316c) ^ (v1 + sum) ^ ((v1 >> 5) + 0xc8013ea4)
		v1 += ((v0 << 4) + 0xad90777d) ^ (v0 + sum) ^ ((v0 >> 5) + 0x7e95761e)
	}

	return v0
}

// uniform advances the seed state and returns a uniform draw in [0, 1).
func uniform(seed *uint32) float32 {
	// Numerical recipes LCG constants.
	*seed = *seed*1664525 + 1013904223

	// Keep 24 mantissa bits so the result stays strictly below 1.
	return float32(*seed>>8) * (1.0 / (1 << 24))
}

// uniform2D draws a jitter offset in [0, 1)².
func uniform2D(seed *uint32) (float32, float32) {
	x := uniform(seed)
	y := uniform(seed)
	return x, y
}
