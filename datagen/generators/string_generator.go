package generators

import (
	"strings"

	"github.com/MichaelTJones/pcg"

	"github.com/feliixx/mockbuilder/model"
)

// Generator for creating random string of a length within [`minLength`, `maxLength`]
type stringGenerator struct {
	base
	minLength uint32
	maxLength uint32
}

func newStringGenerator(prop *model.Property, base base) (Generator, error) {
	c := &prop.Constraints
	if c.Faker != "" || c.Format != model.FormatNone {
		return newFakerGenerator(prop, base)
	}
	min, max := c.LengthBounds()
	return &stringGenerator{
		base:      base,
		minLength: uint32(min),
		maxLength: uint32(max),
	}, nil
}

// following code is an adaptation of existing code from this question:
// https://stackoverflow.com/questions/22892120/how-to-generate-a-random-string-of-a-fixed-length-in-golang/
const (
	letterBytes   = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ1234567890-_"
	letterIdxBits = 6                    // 6 bits to represent a letter index (2^6 => 0-63)
	letterIdxMask = 1<<letterIdxBits - 1 // All 1-bits, as many as letterIdxBits
	letterIdxMax  = 32 / letterIdxBits   // # of letter indices fitting in 32 bits
)

func (g *stringGenerator) Value() any {
	length := g.minLength
	if g.minLength != g.maxLength {
		length = g.pcg32.Bounded(g.maxLength-g.minLength+1) + g.minLength
	}
	return randomString(g.pcg32, int(length), letterBytes)
}

// randomString returns a string of length n made of bytes picked in
// alphabet. alphabet can't hold more than 64 bytes.
func randomString(pcg32 *pcg.PCG32, n int, alphabet string) string {
	var sb strings.Builder
	sb.Grow(n)
	size := uint32(len(alphabet))
	cache, remain := pcg32.Random(), letterIdxMax
	for i := 0; i < n; {
		if remain == 0 {
			cache, remain = pcg32.Random(), letterIdxMax
		}
		if idx := cache & letterIdxMask; idx < size {
			sb.WriteByte(alphabet[idx])
			i++
		}
		cache >>= letterIdxBits
		remain--
	}
	return sb.String()
}
