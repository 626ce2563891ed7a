// Package generators creates random values for entity properties.
//
// A Registry maps each model.Kind to a Factory. Factories are looked up
// once per property, when an EntityGenerator is created, and the
// resulting generators are reused for every instance of the entity.
// Callers can replace the factory of a kind, or register a factory for a
// specific Go type with RegisterType / SetterFor.
//
// All randomness comes from a Source: two Sources created with the same
// seed produce the same values.
package generators

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/MichaelTJones/pcg"
	"github.com/brianvoe/gofakeit/v6"

	"github.com/feliixx/mockbuilder/model"
)

// Generator produces random values for a single property.
type Generator interface {
	// Value returns a new value. Numbers are returned as int64, uint64
	// or float64, and converted to the property type when assigned.
	Value() any
}

// GeneratorFunc is an adapter to use a function as a Generator.
type GeneratorFunc func() any

// Value calls f.
func (f GeneratorFunc) Value() any { return f() }

// Factory creates the Generator of a property. A Factory may return a nil
// Generator to leave the property unset.
type Factory func(prop *model.Property, src *Source) (Generator, error)

// Source holds the random sources shared by all generators created from
// it.
type Source struct {
	// seed for random generation
	Seed uint64
	// generated dates are in the past relative to Now
	Now   time.Time
	pcg32 *pcg.PCG32
	pcg64 *pcg.PCG64
	faker *gofakeit.Faker
}

// NewSource returns a new Source seeded with seed.
func NewSource(seed uint64) *Source {
	return &Source{
		Seed:  seed,
		Now:   time.Now().UTC(),
		pcg32: pcg.NewPCG32().Seed(seed, seed),
		pcg64: pcg.NewPCG64().Seed(seed, seed, seed, seed),
		faker: gofakeit.New(int64(seed)),
	}
}

// Faker returns the faker seeded with the source seed.
func (s *Source) Faker() *gofakeit.Faker { return s.faker }

// Intn returns a random int in [0, n). It panics if n <= 0.
func (s *Source) Intn(n int) int {
	if n <= 0 {
		panic("generators: invalid argument to Intn")
	}
	return int(s.pcg64.Bounded(uint64(n)))
}

// base provides the fields common to all generators
type base struct {
	prop  *model.Property
	pcg32 *pcg.PCG32
	pcg64 *pcg.PCG64
	faker *gofakeit.Faker
	now   time.Time
}

func newBase(prop *model.Property, src *Source) base {
	return base{
		prop:  prop,
		pcg32: src.pcg32,
		pcg64: src.pcg64,
		faker: src.faker,
		now:   src.Now,
	}
}

// constructor of a default generator
type constructor func(prop *model.Property, base base) (Generator, error)

var defaultConstructors = map[model.Kind]constructor{
	model.KindBool:       newBoolGenerator,
	model.KindInt:        newIntGenerator,
	model.KindUint:       newUintGenerator,
	model.KindFloat:      newDoubleGenerator,
	model.KindDecimal:    newDecimalGenerator,
	model.KindString:     newStringGenerator,
	model.KindTime:       newDateGenerator,
	model.KindTimeOffset: newDateGenerator,
	model.KindDuration:   newDurationGenerator,
	model.KindUUID:       newUUIDGenerator,
	model.KindBytes:      newBinaryGenerator,
	model.KindEnum:       newFromArrayGenerator,
}

// ErrUnknownFakerMethod is returned for a 'faker' constraint naming a
// method that doesn't exist.
var ErrUnknownFakerMethod = errors.New("mockbuilder: invalid faker method")

// ErrLengthTooSmall is returned when the length constraint of an email or
// url property is below the shortest valid value.
var ErrLengthTooSmall = errors.New("mockbuilder: max length too small for format")

// ErrEmptyRange is returned when the range of an integer property holds no
// integer of the property type.
var ErrEmptyRange = errors.New("mockbuilder: range holds no valid integer")

// Registry is the dispatch table from a property to its Generator.
type Registry struct {
	kinds map[model.Kind]Factory
	types map[reflect.Type]Factory
}

// NewRegistry returns a Registry holding the default generators for
// every scalar kind.
func NewRegistry() *Registry {
	r := &Registry{
		kinds: make(map[model.Kind]Factory, len(defaultConstructors)),
		types: make(map[reflect.Type]Factory),
	}
	for kind, c := range defaultConstructors {
		c := c
		r.kinds[kind] = func(prop *model.Property, src *Source) (Generator, error) {
			return c(prop, newBase(prop, src))
		}
	}
	return r
}

// Register sets the factory used for properties of the given kind.
func (r *Registry) Register(kind model.Kind, f Factory) {
	r.kinds[kind] = f
}

// RegisterType sets the factory used for properties of type t, whatever
// their kind. Pointer types are registered for their element type.
func (r *Registry) RegisterType(t reflect.Type, f Factory) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	r.types[t] = f
}

// SetterFor registers fn as the generator for every property of type V.
func SetterFor[V any](r *Registry, fn func(f *gofakeit.Faker) V) {
	r.RegisterType(reflect.TypeOf((*V)(nil)).Elem(), func(_ *model.Property, src *Source) (Generator, error) {
		return GeneratorFunc(func() any { return fn(src.faker) }), nil
	})
}

// Clone returns a copy of r. Changes to the copy don't affect r.
func (r *Registry) Clone() *Registry {
	c := &Registry{
		kinds: make(map[model.Kind]Factory, len(r.kinds)),
		types: make(map[reflect.Type]Factory, len(r.types)),
	}
	for k, f := range r.kinds {
		c.kinds[k] = f
	}
	for t, f := range r.types {
		c.types[t] = f
	}
	return c
}

// NewGenerator returns the generator of prop. It returns a nil Generator
// and no error for properties that are not generated: navigations,
// unsupported types and properties tagged with `mock:"-"`.
func (r *Registry) NewGenerator(prop *model.Property, src *Source) (Generator, error) {
	if !prop.Generated() {
		return nil, nil
	}
	if prop.Type != nil {
		if f, ok := r.types[prop.Type]; ok {
			return f(prop, src)
		}
	}
	f, ok := r.kinds[prop.Kind]
	if !ok {
		return nil, nil
	}
	g, err := f(prop, src)
	if err != nil {
		return nil, fmt.Errorf("for property %s, %w", prop.Name, err)
	}
	return g, nil
}
