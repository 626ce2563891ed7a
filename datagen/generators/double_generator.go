package generators

import (
	"math"

	"github.com/feliixx/mockbuilder/model"
)

// Generator for creating random float64 between `min` and `max`
type doubleGenerator struct {
	base
	min  float64
	max  float64
	bits int
}

func newDoubleGenerator(prop *model.Property, base base) (Generator, error) {
	min, max := prop.Constraints.Bounds(prop.Kind, prop.Bits)
	if min == max {
		return newConstantGenerator(base, max)
	}
	return &doubleGenerator{
		base: base,
		min:  min,
		max:  max,
		bits: prop.Bits,
	}, nil
}

func (g *doubleGenerator) Value() any {
	r := float64(g.pcg64.Random()) / (1 << 64)
	// min*(1-r) + max*r doesn't overflow for large ranges
	v := g.min*(1-r) + g.max*r
	if g.bits == 32 {
		f := float32(v)
		for float64(f) > g.max {
			f = math.Nextafter32(f, float32(math.Inf(-1)))
		}
		for float64(f) < g.min {
			f = math.Nextafter32(f, float32(math.Inf(1)))
		}
		v = float64(f)
	}
	return math.Max(g.min, math.Min(g.max, v))
}
