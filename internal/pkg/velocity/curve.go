package velocity

import (
	"fmt"
	"math"
)

// Curve maps normalized travel time (0 fastest, 1 slowest) onto normalized softness.
// Curves are monotonic non-decreasing with c(0)=0 and c(1)=1.
type Curve func(x float64) float64

const MaxExponent = 10.0

func Linear(x float64) float64 {
	return x
}

// Pow returns x^exp, the exponent is clamped to 0..10.
// Higher exponents make fast and medium strokes louder.
func Pow(exp float64) Curve {
	exp = math.Min(math.Max(exp, 0), MaxExponent)
	return func(x float64) float64 {
		return math.Pow(x, exp)
	}
}

const (
	CurveLinear = "linear"
	CurvePow    = "pow"
)

func NewCurve(name string, exponent float64) (Curve, error) {
	switch name {
	case CurveLinear:
		return Linear, nil
	case CurvePow:
		return Pow(exponent), nil
	default:
		return nil, fmt.Errorf("unknown curve \"%s\", expected \"%s\" or \"%s\"", name, CurveLinear, CurvePow)
	}
}
