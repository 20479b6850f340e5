// Package axis implements the deadzone/expo/gain shaping pipeline from
// spec §4.6, plus the normalization helpers ABS/REL handlers need before
// they can call into it.
package axis

import "math"

// Params are the per-mapping shaping parameters (spec §3 shaping_params).
type Params struct {
	Deadzone float64 // [0, 1)
	Gain     float64
	Expo     float64 // (-1, 1)
}

// NormalizeAbs maps a raw ABS sample with its device-declared [min, max]
// into [-1, 1].
func NormalizeAbs(raw, min, max int32) float64 {
	if max == min {
		return 0
	}
	x := 2*(float64(raw)-float64(min))/(float64(max)-float64(min)) - 1
	return clamp(x, -1, 1)
}

// NormalizeRel maps a raw REL delta into [-1, 1] using the mapping's
// configured rel_to_abs_input_cutoff as the magnitude considered "max
// speed".
func NormalizeRel(raw int32, cutoff float64) float64 {
	if cutoff <= 0 {
		cutoff = 1
	}
	return clamp(float64(raw)/cutoff, -1, 1)
}

// Deadzone applies the flatten-and-rescale deadzone curve from spec §4.6.
// Input and output are both in [-1, 1].
func Deadzone(x, deadzone float64) float64 {
	if math.Abs(x) <= deadzone {
		return 0
	}
	if deadzone >= 1 {
		return 0
	}
	sign := 1.0
	if x < 0 {
		sign = -1.0
	}
	return sign * (math.Abs(x) - deadzone) / (1 - deadzone)
}

// Expo applies the monotonic expo curve from spec §4.6: identity at e=0,
// the forward quadratic family for e>=0, and its closed-form inverse for
// e<0 (chosen so the two are mirror images and both fix 0 and ±1).
// Input x is expected to already be deadzone-flattened, i.e. in [-1, 1].
func Expo(x, e float64) float64 {
	if e == 0 || x == 0 {
		return x
	}
	sign := 1.0
	u := x
	if u < 0 {
		sign = -1.0
		u = -u
	}
	if u > 1 {
		u = 1
	}

	var v float64
	if e > 0 {
		// forward: v = u*(1+e) - e*u^2, monotonic on [0,1], v(0)=0, v(1)=1.
		v = u*(1+e) - e*u*u
	} else {
		k := -e
		if k > 1 {
			k = 1
		}
		// inverse of the e>=0 forward curve evaluated at parameter k:
		// solves k*v^2 - (1+k)*v + u = 0 for the branch continuous from v(0)=0.
		if k == 0 {
			v = u
		} else {
			disc := (1+k)*(1+k) - 4*k*u
			if disc < 0 {
				disc = 0
			}
			v = ((1 + k) - math.Sqrt(disc)) / (2 * k)
		}
	}

	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return sign * v
}

// Shape runs the full deadzone -> expo -> gain pipeline on an already
// normalized input, per spec §4.6. The result is not saturated to any
// particular output range; callers apply the output-kind-specific
// saturation (ABS: clamp to target range: REL: truncate fractional carry).
func (p Params) Shape(x float64) float64 {
	y := Deadzone(x, p.Deadzone)
	y = Expo(y, p.Expo)
	return p.Gain * y
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// DenormalizeAbs maps a shaped value (conceptually in [-1, 1], though gain
// may push it beyond) back onto a target ABS axis range, saturating at the
// boundaries.
func DenormalizeAbs(y float64, min, max int32) int32 {
	y = clamp(y, -1, 1)
	half := (float64(max) - float64(min)) / 2
	mid := half + float64(min)
	return int32(math.Round(y*half + mid))
}
