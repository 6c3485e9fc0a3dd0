package scroll

import "math"

const (
	elasticFactor = 0.5
	elasticDecay  = 100.0
)

// Elastic maps position into [min, max] with rubber-band resistance outside
// the range. The displacement past a bound never exceeds half the overshoot
// and is at most 50/e px for any overshoot.
func Elastic(position, min, max float64) float64 {
	if max < min {
		max = min
	}
	switch {
	case position < min:
		overshoot := min - position
		return min - overshoot*elasticFactor*math.Exp(-overshoot/elasticDecay)
	case position > max:
		overshoot := position - max
		return max + overshoot*elasticFactor*math.Exp(-overshoot/elasticDecay)
	}
	return position
}

// Clamp hard-limits position to [min, max].
func Clamp(position, min, max float64) float64 {
	if max < min {
		max = min
	}
	return math.Min(math.Max(position, min), max)
}
