package fuzzy

import (
	"fmt"
	"math"
	"strings"
)

type TNorm string

const (
	TNormMin         TNorm = "MIN"
	TNormProduct     TNorm = "PRODUCT"
	TNormLukasiewicz TNorm = "LUKASIEWICZ"
)

var ErrUnknownTNorm = fmt.Errorf("unknown t-norm")

func ParseTNorm(s string) (TNorm, error) {
	t := TNorm(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case TNormMin, TNormProduct, TNormLukasiewicz:
		return t, nil
	case "":
		return TNormMin, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTNorm, s)
	}
}

// Func returns the scalar operator for t. Unknown values resolve to min.
func (t TNorm) Func() func(a, b float64) float64 {
	switch t {
	case TNormProduct:
		return ProductTNorm
	case TNormLukasiewicz:
		return LukasiewiczTNorm
	default:
		return MinTNorm
	}
}

func (t TNorm) Apply(a, b float64) float64 {
	return t.Func()(a, b)
}

func MinTNorm(a, b float64) float64 {
	return Clamp01(math.Min(Clamp01(a), Clamp01(b)))
}

func ProductTNorm(a, b float64) float64 {
	return Clamp01(Clamp01(a) * Clamp01(b))
}

func LukasiewiczTNorm(a, b float64) float64 {
	return Clamp01(math.Max(0, Clamp01(a)+Clamp01(b)-1))
}
