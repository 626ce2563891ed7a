package generators

import (
	"encoding/binary"

	"github.com/MichaelTJones/pcg"

	"github.com/feliixx/mockbuilder/model"
)

// Generator for creating random binary data
type binaryDataGenerator struct {
	base
	minLength uint32
	maxLength uint32
}

func newBinaryGenerator(prop *model.Property, base base) (Generator, error) {
	min, max := prop.Constraints.BytesBounds()
	if prop.Size > 0 {
		min, max = prop.Size, prop.Size
	}
	return &binaryDataGenerator{
		base:      base,
		minLength: uint32(min),
		maxLength: uint32(max),
	}, nil
}

func (g *binaryDataGenerator) Value() any {
	length := g.minLength
	if g.minLength != g.maxLength {
		length = g.pcg32.Bounded(g.maxLength-g.minLength+1) + g.minLength
	}
	b := make([]byte, length)
	pcgReader{g.pcg32}.Read(b)
	return b
}

// pcgReader is an io.Reader filled by a pcg32 source. It never returns
// an error.
type pcgReader struct {
	pcg32 *pcg.PCG32
}

func (r pcgReader) Read(p []byte) (int, error) {
	var buf [4]byte
	for count := 0; count < len(p); count += 4 {
		binary.LittleEndian.PutUint32(buf[:], r.pcg32.Random())
		copy(p[count:], buf[:])
	}
	return len(p), nil
}
