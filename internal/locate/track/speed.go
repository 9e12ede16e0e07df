package track

import (
	"fmt"
	"math"
)

// MaxSpeedFunc returns the highest plausible speed, in projection units per
// second, for a move that took dt seconds.
type MaxSpeedFunc func(dt float64) float64

// ConstantSpeed bounds every move by v.
func ConstantSpeed(v float64) MaxSpeedFunc {
	return func(float64) float64 { return v }
}

// LinearDecaySpeed falls linearly from v0 at dt=0 to the sustained cap vCap
// at dt=tau, and stays at vCap afterwards.
func LinearDecaySpeed(v0, vCap, tau float64) MaxSpeedFunc {
	return func(dt float64) float64 {
		return math.Max(vCap, v0-(v0-vCap)*dt/tau)
	}
}

// ExponentialDecaySpeed falls from v0 towards vCap with time constant tau.
func ExponentialDecaySpeed(v0, vCap, tau float64) MaxSpeedFunc {
	return func(dt float64) float64 {
		return vCap + (v0-vCap)*math.Exp(-dt/tau)
	}
}

// NewMaxSpeed builds a MaxSpeedFunc by model name: "constant" uses v0 only,
// "linear" and "exponential" decay from v0 to vCap over tau seconds.
func NewMaxSpeed(model string, v0, vCap, tau float64) (MaxSpeedFunc, error) {
	if !(v0 > 0) {
		return nil, fmt.Errorf("max speed %v must be positive", v0)
	}
	switch model {
	case "constant":
		return ConstantSpeed(v0), nil
	case "linear", "exponential":
		if !(vCap > 0) || vCap > v0 {
			return nil, fmt.Errorf("sustained speed %v must be in (0, %v]", vCap, v0)
		}
		if !(tau > 0) {
			return nil, fmt.Errorf("decay time %v must be positive", tau)
		}
		if model == "linear" {
			return LinearDecaySpeed(v0, vCap, tau), nil
		}
		return ExponentialDecaySpeed(v0, vCap, tau), nil
	default:
		return nil, fmt.Errorf("unknown max speed model %q", model)
	}
}
