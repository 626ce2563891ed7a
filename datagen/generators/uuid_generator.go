package generators

import (
	"github.com/google/uuid"

	"github.com/feliixx/mockbuilder/model"
)

// Generator for creating random version 4 uuid, seeded by the source
type uuidGenerator struct {
	base
	reader pcgReader
}

func newUUIDGenerator(_ *model.Property, base base) (Generator, error) {
	return &uuidGenerator{
		base:   base,
		reader: pcgReader{base.pcg32},
	}, nil
}

func (g *uuidGenerator) Value() any {
	// pcgReader never fails
	u, _ := uuid.NewRandomFromReader(g.reader)
	return u
}
