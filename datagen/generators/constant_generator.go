package generators

// Generator returning always the same value. Used when the lower and
// higher bounds of a range are equal
type constGenerator struct {
	base
	val any
}

func newConstantGenerator(base base, value any) (Generator, error) {
	return &constGenerator{
		base: base,
		val:  value,
	}, nil
}

func (g *constGenerator) Value() any {
	return g.val
}
