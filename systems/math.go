package systems

import "math/rand/v2"

// clampInt clamps v between minVal and maxVal.
func clampInt(v, minVal, maxVal int) int {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

// source adapts an optional generator to a distuv source. A nil generator
// falls back to the global source.
func source(rng *rand.Rand) rand.Source {
	if rng == nil {
		return nil
	}
	return rng
}
