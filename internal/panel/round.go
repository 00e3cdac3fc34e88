package panel

import "math"

// Round rounds half to even, the rounding used for every count in the panel.
func Round(x float64) float64 {
	return math.RoundToEven(x)
}
