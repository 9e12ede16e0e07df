package bearing

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Likelihood is a non-negative, unnormalised score per integer compass
// degree. Index 0 is grid north.
type Likelihood [360]float64

// At returns the likelihood at an arbitrary bearing by linear interpolation
// between the neighbouring integer degrees, wrapping 359° to 0°.
func (l *Likelihood) At(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	lo := math.Floor(deg)
	frac := deg - lo
	i := int(lo) % 360
	j := (i + 1) % 360
	return l[i]*(1-frac) + l[j]*frac
}

// Peak returns the first degree holding the maximum value.
func (l *Likelihood) Peak() (deg int, value float64) {
	deg = floats.MaxIdx(l[:])
	return deg, l[deg]
}

// Sum returns the total mass of the distribution.
func (l *Likelihood) Sum() float64 {
	return floats.Sum(l[:])
}

// IsZero reports whether every degree is zero.
func (l *Likelihood) IsZero() bool {
	for _, v := range l {
		if v != 0 {
			return false
		}
	}
	return true
}
