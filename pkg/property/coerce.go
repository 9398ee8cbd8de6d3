package property

import (
	"math"
	"strings"
)

// Coercer validates a requested value and returns the value to store.
// It may adjust the value (clip, round) or reject it with a validation error.
type Coercer func(Value) (Value, error)

// roundInt rounds f to the nearest int64, saturating at the int64 range.
// Bounds on remotely created nodes may lie far outside it.
func roundInt(f float64) int64 {
	r := math.Round(f)
	switch {
	case r >= 1<<63:
		return math.MaxInt64
	case r < -(1 << 63):
		return math.MinInt64
	}
	return int64(r)
}

// Identity accepts every value unchanged.
func Identity(v Value) (Value, error) { return v, nil }

// Chain applies coercers in order, feeding each the previous result.
func Chain(cs ...Coercer) Coercer {
	return func(v Value) (Value, error) {
		var err error
		for _, c := range cs {
			if c == nil {
				continue
			}
			if v, err = c(v); err != nil {
				return Value{}, err
			}
		}
		return v, nil
	}
}

// Clip clamps numeric values into [min, max]. Int values stay integral.
func Clip(min, max float64) Coercer {
	return func(v Value) (Value, error) {
		f, ok := v.Float()
		if !ok {
			return Value{}, Invalid(v, "expected a number")
		}
		c := math.Max(min, math.Min(max, f))
		if v.Kind() == KindInt {
			if c == f {
				return v, nil
			}
			return Int(roundInt(c)), nil
		}
		return Float(c), nil
	}
}

// Range rejects numeric values outside [min, max].
func Range(min, max float64) Coercer {
	return func(v Value) (Value, error) {
		f, ok := v.Float()
		if !ok {
			return Value{}, Invalid(v, "expected a number")
		}
		if f < min || f > max {
			return Value{}, Invalid(v, "out of range [%g, %g]", min, max)
		}
		return v, nil
	}
}

// Step rounds numeric values to the nearest multiple of step.
func Step(step float64) Coercer {
	return func(v Value) (Value, error) {
		f, ok := v.Float()
		if !ok {
			return Value{}, Invalid(v, "expected a number")
		}
		if step <= 0 {
			return v, nil
		}
		r := math.Round(f/step) * step
		if v.Kind() == KindInt {
			return Int(roundInt(r)), nil
		}
		return Float(r), nil
	}
}

// OneOf accepts only values equal to one of the allowed values.
func OneOf(allowed ...Value) Coercer {
	return func(v Value) (Value, error) {
		for _, a := range allowed {
			if a.Equal(v) {
				return v, nil
			}
		}
		names := make([]string, len(allowed))
		for i, a := range allowed {
			names[i] = a.String()
		}
		return Value{}, Invalid(v, "must be one of %s", strings.Join(names, ", "))
	}
}

// NonEmpty rejects empty strings.
func NonEmpty(v Value) (Value, error) {
	s, ok := v.Str()
	if !ok {
		return Value{}, Invalid(v, "expected a string")
	}
	if s == "" {
		return Value{}, Invalid(v, "must not be empty")
	}
	return v, nil
}
