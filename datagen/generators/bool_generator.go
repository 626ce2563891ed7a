package generators

import "github.com/feliixx/mockbuilder/model"

// Generator for creating random bool
type boolGenerator struct {
	base
}

func newBoolGenerator(_ *model.Property, base base) (Generator, error) {
	return &boolGenerator{base: base}, nil
}

func (g *boolGenerator) Value() any {
	return g.pcg32.Random()&0x01 == 1
}
