package generators

import (
	"github.com/shopspring/decimal"

	"github.com/feliixx/mockbuilder/model"
)

// Generator for creating random decimal between `min` and `max`, rounded
// to `places` decimal places
type decimalGenerator struct {
	base
	min    decimal.Decimal
	max    decimal.Decimal
	places int32
}

func newDecimalGenerator(prop *model.Property, base base) (Generator, error) {
	lo, hi := prop.Constraints.Bounds(prop.Kind, prop.Bits)
	min, max := decimal.NewFromFloat(lo), decimal.NewFromFloat(hi)
	if min.Equal(max) {
		return newConstantGenerator(base, min)
	}
	return &decimalGenerator{
		base:   base,
		min:    min,
		max:    max,
		places: prop.Constraints.Places(),
	}, nil
}

func (g *decimalGenerator) Value() any {
	r := decimal.NewFromFloat(float64(g.pcg64.Random()) / (1 << 64))
	d := g.min.Add(g.max.Sub(g.min).Mul(r)).Round(g.places)
	if d.LessThan(g.min) {
		return g.min
	}
	if d.GreaterThan(g.max) {
		return g.max
	}
	return d
}
