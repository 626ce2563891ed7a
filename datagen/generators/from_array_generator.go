package generators

import (
	"errors"

	"github.com/feliixx/mockbuilder/model"
)

// Generator for creating a random value from the members of an enum
type fromArrayGenerator struct {
	base
	array []any
	size  uint32
}

func newFromArrayGenerator(prop *model.Property, base base) (Generator, error) {
	size := len(prop.Enum)
	if size == 0 {
		return nil, errors.New("enum has no member")
	}
	if size == 1 {
		return newConstantGenerator(base, prop.Enum[0])
	}
	return &fromArrayGenerator{
		base:  base,
		array: prop.Enum,
		size:  uint32(size),
	}, nil
}

func (g *fromArrayGenerator) Value() any {
	return g.array[g.pcg32.Bounded(g.size)]
}
