package generators

import (
	"fmt"

	"github.com/MichaelTJones/pcg"

	"github.com/feliixx/mockbuilder/model"
)

// EntityGenerator fills instances of an entity with random values.
type EntityGenerator struct {
	Entity     *model.Entity
	generators []*propertyGenerator
}

type propertyGenerator struct {
	prop *model.Property
	gen  Generator
	// probability that the property is nil, times 10
	nullPercentage uint32
	pcg32          *pcg.PCG32
}

// if a generator has a nullPercentage of 10%, this method will return
// true ~90% of the time, and false ~10% of the time
func (g *propertyGenerator) exists() bool {
	if g.nullPercentage == 0 {
		return true
	}
	if g.nullPercentage >= 1000 {
		return false
	}
	// get the last 10 bits of a random int32 to get a number between 0 and 1023,
	// and compare it to nullPercentage * 10
	return g.pcg32.Random()>>22 >= g.nullPercentage
}

// NewEntityGenerator creates the generators of every generated property
// of e.
func (r *Registry) NewEntityGenerator(e *model.Entity, src *Source) (*EntityGenerator, error) {
	d := &EntityGenerator{
		Entity:     e,
		generators: make([]*propertyGenerator, 0, len(e.Properties)),
	}
	for _, prop := range e.Properties {
		g, err := r.NewGenerator(prop, src)
		if err != nil {
			return nil, fmt.Errorf("fail to create generator for entity %s\n  cause: %w", e.Name, err)
		}
		if g == nil {
			continue
		}
		pg := &propertyGenerator{
			prop:  prop,
			gen:   g,
			pcg32: src.pcg32,
		}
		if prop.Nullable && !prop.Constraints.Required {
			pg.nullPercentage = uint32(prop.Constraints.NullPercentage) * 10
		}
		d.generators = append(d.generators, pg)
	}
	return d, nil
}

// New returns a new instance of the entity with every generated property
// set.
func (d *EntityGenerator) New() (any, error) {
	obj := d.Entity.New()
	if err := d.Populate(obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// Populate sets every generated property of obj, which has to be an
// instance of the entity.
func (d *EntityGenerator) Populate(obj any) error {
	for _, g := range d.generators {
		var v any
		if g.exists() {
			v = g.gen.Value()
		}
		if err := g.prop.Set(obj, v); err != nil {
			return fmt.Errorf("for entity %s, %w", d.Entity.Name, err)
		}
	}
	return nil
}
