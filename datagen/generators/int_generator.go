package generators

import (
	"fmt"
	"math"

	"github.com/feliixx/mockbuilder/model"
)

// Generator for creating random int64 between `min` and `max`
type intGenerator struct {
	base
	min int64
	// number of possible values, 0 if the whole int64 range is used
	span uint64
}

func newIntGenerator(prop *model.Property, base base) (Generator, error) {
	if err := checkRange(prop); err != nil {
		return nil, err
	}
	lo, hi := prop.Constraints.Bounds(prop.Kind, prop.Bits)
	min, max := toInt64(math.Ceil(lo)), toInt64(math.Floor(hi))
	if max < min {
		max = min
	}
	if min == max {
		return newConstantGenerator(base, min)
	}
	return &intGenerator{
		base: base,
		min:  min,
		span: uint64(max) - uint64(min) + 1,
	}, nil
}

func (g *intGenerator) Value() any {
	if g.span == 0 {
		return int64(g.pcg64.Random())
	}
	return g.min + int64(g.pcg64.Bounded(g.span))
}

// Generator for creating random uint64 between `min` and `max`
type uintGenerator struct {
	base
	min  uint64
	span uint64
}

func newUintGenerator(prop *model.Property, base base) (Generator, error) {
	if err := checkRange(prop); err != nil {
		return nil, err
	}
	lo, hi := prop.Constraints.Bounds(prop.Kind, prop.Bits)
	min, max := toUint64(math.Ceil(lo)), toUint64(math.Floor(hi))
	if max < min {
		max = min
	}
	if min == max {
		return newConstantGenerator(base, min)
	}
	return &uintGenerator{
		base: base,
		min:  min,
		span: max - min + 1,
	}, nil
}

func (g *uintGenerator) Value() any {
	if g.span == 0 {
		return g.pcg64.Random()
	}
	return g.min + g.pcg64.Bounded(g.span)
}

// checkRange fails when the declared range holds no integer of the
// property type, like 0.5..0.7
func checkRange(prop *model.Property) error {
	c := &prop.Constraints
	if !c.HasRange {
		return nil
	}
	lo, hi := model.TypeBounds(prop.Kind, prop.Bits)
	if math.Ceil(math.Max(c.Min, lo)) > math.Floor(math.Min(c.Max, hi)) {
		return fmt.Errorf("%w: %s has range %g..%g", ErrEmptyRange, prop.Name, c.Min, c.Max)
	}
	return nil
}

// float64(math.MaxInt64) is 2^63, which doesn't fit in an int64
func toInt64(f float64) int64 {
	switch {
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

func toUint64(f float64) uint64 {
	switch {
	case f >= math.MaxUint64:
		return math.MaxUint64
	case f <= 0:
		return 0
	}
	return uint64(f)
}
