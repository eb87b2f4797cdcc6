package taper

import "math"

// Rounding turns the real-valued dose into a whole number of drops.
type Rounding int

const (
	RoundHalfUp Rounding = iota
	RoundHalfEven
	RoundCeil
)

func (r Rounding) String() string {
	switch r {
	case RoundHalfUp:
		return "half_up"
	case RoundHalfEven:
		return "half_even"
	case RoundCeil:
		return "ceil"
	default:
		return "unknown"
	}
}

// Apply rounds v, never returning less than zero.
func (r Rounding) Apply(v float64) int {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}

	var rounded float64
	switch r {
	case RoundHalfEven:
		rounded = math.RoundToEven(v)
	case RoundCeil:
		rounded = math.Ceil(v)
	default:
		rounded = math.Round(v)
	}

	if rounded > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(rounded)
}
