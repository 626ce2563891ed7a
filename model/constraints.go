package model

import (
	"math"
	"time"
)

// default bounds used when a property declares no constraint
const (
	DefaultMinLength = 1
	DefaultMaxLength = 50
	DefaultMin       = 0
	DefaultMax       = 100
	DefaultPastYears = 20
	DefaultScale     = 2
	DefaultMinBytes  = 1
	DefaultMaxBytes  = 100
)

// DefaultMaxDuration is the upper bound of generated durations without
// a 'range' constraint.
const DefaultMaxDuration = 7 * 24 * time.Hour

// Constraints holds the validation metadata of a property. It is filled
// once when the entity is registered.
type Constraints struct {
	// property can't be empty or nil
	Required bool
	// explicit minimum length, 0 if not set
	MinLength int
	// explicit maximum length, 0 if not set
	MaxLength int
	// length range declared with 'strlen', StrLenMax is 0 if not set
	StrLenMin int
	StrLenMax int
	// numeric range declared with 'range'
	HasRange bool
	Min      float64
	Max      float64
	// format hint for strings
	Format Format
	// name of a faker method to use for strings
	Faker string
	// allowed values, for enums declared with 'oneof'
	OneOf []string
	// percentage of nil values for nullable properties
	NullPercentage int
	// generated times are in [now - PastYears, now]
	PastYears int
	// number of decimal places for decimals
	Scale int
	// skip generation for this property
	Skip bool
}

// LengthBounds returns the length range for strings and byte slices.
// Explicit minlen / maxlen win over strlen.
func (c *Constraints) LengthBounds() (min, max int) {
	min, max = DefaultMinLength, DefaultMaxLength
	if c.StrLenMax > 0 {
		min, max = c.StrLenMin, c.StrLenMax
	}
	if c.MinLength > 0 {
		min = c.MinLength
	}
	if c.MaxLength > 0 {
		max = c.MaxLength
	}
	if c.Required && min < 1 {
		min = 1
	}
	if max < min {
		max = min
	}
	return min, max
}

// BytesBounds returns the length range for byte slices.
func (c *Constraints) BytesBounds() (min, max int) {
	if c.MinLength == 0 && c.MaxLength == 0 && c.StrLenMax == 0 {
		return DefaultMinBytes, DefaultMaxBytes
	}
	return c.LengthBounds()
}

// Bounds returns the numeric range for a property of kind k, clamped to
// the bounds of the underlying type.
func (c *Constraints) Bounds(k Kind, bits int) (min, max float64) {
	min, max = DefaultMin, DefaultMax
	if c.HasRange {
		min, max = c.Min, c.Max
	}
	lo, hi := TypeBounds(k, bits)
	if min < lo {
		min = lo
	}
	if max > hi {
		max = hi
	}
	if max < min {
		max = min
	}
	return min, max
}

// Years returns the time window of generated dates.
func (c *Constraints) Years() int {
	if c.PastYears <= 0 {
		return DefaultPastYears
	}
	return c.PastYears
}

// Places returns the number of decimal places of generated decimals.
func (c *Constraints) Places() int32 {
	if c.Scale <= 0 {
		return DefaultScale
	}
	return int32(c.Scale)
}

// TypeBounds returns the range of values a property of kind k and size
// bits can hold.
func TypeBounds(k Kind, bits int) (lo, hi float64) {
	switch k {
	case KindInt:
		switch bits {
		case 8:
			return math.MinInt8, math.MaxInt8
		case 16:
			return math.MinInt16, math.MaxInt16
		case 32:
			return math.MinInt32, math.MaxInt32
		}
		return math.MinInt64, math.MaxInt64
	case KindUint:
		switch bits {
		case 8:
			return 0, math.MaxUint8
		case 16:
			return 0, math.MaxUint16
		case 32:
			return 0, math.MaxUint32
		}
		return 0, math.MaxUint64
	case KindFloat:
		if bits == 32 {
			return -math.MaxFloat32, math.MaxFloat32
		}
		return -math.MaxFloat64, math.MaxFloat64
	case KindDuration:
		return 0, math.MaxInt64 / float64(time.Second)
	}
	return -math.MaxFloat64, math.MaxFloat64
}
