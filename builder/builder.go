// Package builder creates graphs of related instances filled with random
// values, and commits them to a mock context in a single Build call.
//
//	b := builder.New(m, builder.WithSeed(42))
//	user, _ := builder.Add[User](b)
//	builder.AddRelatedN[Order](user, 3)
//	ctx, err := b.Build(context.Background())
//
// Every call records its first error. Later calls are no-ops returning
// that error, and Build fails with it.
package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/feliixx/mockbuilder/datagen/generators"
	"github.com/feliixx/mockbuilder/mock"
	"github.com/feliixx/mockbuilder/model"
)

// Option configures a Builder.
type Option func(b *Builder)

// WithSeed sets the seed of the random source. The default seed is the
// current time.
func WithSeed(seed uint64) Option {
	return func(b *Builder) { b.seed = seed }
}

// WithRegistry sets the generator registry. The default is
// generators.NewRegistry().
func WithRegistry(r *generators.Registry) Option {
	return func(b *Builder) { b.registry = r }
}

// WithContext sets the mock context Build commits to.
func WithContext(c *mock.Context) Option {
	return func(b *Builder) { b.context = c }
}

// WithStore sets the store of the mock context created by the builder.
func WithStore(s mock.Store) Option {
	return func(b *Builder) { b.contextOpts = append(b.contextOpts, mock.WithStore(s)) }
}

// WithForeignKeyChecks enables foreign key checks in the mock context
// created by the builder.
func WithForeignKeyChecks() Option {
	return func(b *Builder) { b.contextOpts = append(b.contextOpts, mock.WithForeignKeyChecks()) }
}

// WithLogger sets the writer Build reports to.
func WithLogger(w io.Writer) Option {
	return func(b *Builder) { b.logger = w }
}

// WithoutSyntheticKeys keeps the random values generated for primary
// keys instead of assigning sequential ones.
func WithoutSyntheticKeys() Option {
	return func(b *Builder) { b.syntheticKeys = false }
}

// Builder generates instances and relates them. It is not safe for
// concurrent use.
type Builder struct {
	model         *model.Model
	seed          uint64
	src           *generators.Source
	registry      *generators.Registry
	ownRegistry   bool
	context       *mock.Context
	contextOpts   []mock.Option
	logger        io.Writer
	syntheticKeys bool

	generators map[string]*generators.EntityGenerator
	sequences  map[string][]generators.Sequence
	hooks      map[string][]func(obj any)

	pending   []any
	relations []relation
	err       error
}

// relation is re-applied at Build, so that later changes to the parent
// key reach the child
type relation struct {
	parent, child any
	apply         func(parent, child any) error
}

// New returns a Builder creating instances of the entities of m.
func New(m *model.Model, opts ...Option) *Builder {
	b := &Builder{
		model:         m,
		seed:          uint64(time.Now().UnixNano()),
		logger:        io.Discard,
		syntheticKeys: true,
		generators:    make(map[string]*generators.EntityGenerator),
		sequences:     make(map[string][]generators.Sequence),
		hooks:         make(map[string][]func(obj any)),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.src = generators.NewSource(b.seed)
	if b.registry == nil {
		b.registry = generators.NewRegistry()
		b.ownRegistry = true
	}
	if b.context == nil {
		b.context = mock.NewContext(m, b.contextOpts...)
	}
	return b
}

// Seed returns the seed of the random source.
func (b *Builder) Seed() uint64 { return b.seed }

// Source returns the random source shared by the generators of b.
func (b *Builder) Source() *generators.Source { return b.src }

// Err returns the first error recorded by the builder.
func (b *Builder) Err() error { return b.err }

func (b *Builder) fail(err error) error {
	if b.err == nil {
		b.err = err
	}
	return err
}

// Entry is an instance created by the builder.
type Entry[T any] struct {
	Entity *T
	b      *Builder
}

// With calls fn with the instance, to set values by hand.
func (e *Entry[T]) With(fn func(v *T)) *Entry[T] {
	fn(e.Entity)
	return e
}

// Add generates a new instance of T.
func Add[T any](b *Builder) (*Entry[T], error) {
	entries, err := AddN[T](b, 1)
	if err != nil {
		return nil, err
	}
	return entries[0], nil
}

// AddN generates n new instances of T. Nothing is added for n <= 0.
func AddN[T any](b *Builder, n int) ([]*Entry[T], error) {
	if b.err != nil {
		return nil, b.err
	}
	e, err := model.EntityOf[T](b.model)
	if err != nil {
		return nil, b.fail(err)
	}
	values, err := b.add(e, n)
	if err != nil {
		return nil, err
	}
	entries := make([]*Entry[T], len(values))
	for i, v := range values {
		entries[i] = &Entry[T]{Entity: v.(*T), b: b}
	}
	return entries, nil
}

// AddEntity generates n new instances of the entity named name. Struct
// entities are returned as pointers, dynamic ones as *model.Record.
func (b *Builder) AddEntity(name string, n int) ([]any, error) {
	if b.err != nil {
		return nil, b.err
	}
	e, err := b.model.Entity(name)
	if err != nil {
		return nil, b.fail(err)
	}
	return b.add(e, n)
}

func (b *Builder) add(e *model.Entity, n int) ([]any, error) {
	if n <= 0 {
		return nil, nil
	}
	if len(e.Key) == 0 {
		return nil, b.fail(model.NewNoPrimaryKeyError(e.Name))
	}
	g, err := b.entityGenerator(e)
	if err != nil {
		return nil, b.fail(err)
	}
	values := make([]any, 0, n)
	for i := 0; i < n; i++ {
		v, err := g.New()
		if err != nil {
			return nil, b.fail(err)
		}
		if err := b.assignKey(e, v); err != nil {
			return nil, b.fail(err)
		}
		for _, hook := range b.hooks[e.Name] {
			hook(v)
		}
		values = append(values, v)
	}
	b.pending = append(b.pending, values...)
	return values, nil
}

func (b *Builder) entityGenerator(e *model.Entity) (*generators.EntityGenerator, error) {
	if g, ok := b.generators[e.Name]; ok {
		return g, nil
	}
	g, err := b.registry.NewEntityGenerator(e, b.src)
	if err != nil {
		return nil, err
	}
	b.generators[e.Name] = g
	return g, nil
}

// assignKey sets the next synthetic key of e in v. Key properties whose
// kind can't hold a sequence keep their random value.
func (b *Builder) assignKey(e *model.Entity, v any) error {
	if !b.syntheticKeys {
		return nil
	}
	props, err := e.KeyProperties()
	if err != nil {
		return err
	}
	seqs, ok := b.sequences[e.Name]
	if !ok {
		seqs = make([]generators.Sequence, len(props))
		for i, p := range props {
			seqs[i], err = generators.NewSequence(p, b.src)
			if err != nil && !errors.Is(err, generators.ErrNoSyntheticKey) {
				return err
			}
		}
		b.sequences[e.Name] = seqs
	}
	for i, p := range props {
		if seqs[i] == nil {
			continue
		}
		key, err := seqs[i].Next()
		if err != nil {
			return err
		}
		if err := p.Set(v, key); err != nil {
			return err
		}
	}
	return nil
}

// Customize registers fn to run on every new instance of T, after its
// values are generated.
func Customize[T any](b *Builder, fn func(f *gofakeit.Faker, v *T)) {
	if b.err != nil {
		return
	}
	e, err := model.EntityOf[T](b.model)
	if err != nil {
		b.fail(err)
		return
	}
	b.hooks[e.Name] = append(b.hooks[e.Name], func(obj any) {
		fn(b.src.Faker(), obj.(*T))
	})
}

// Setter makes fn the generator of every property of type V, for the
// instances added after the call.
func Setter[V any](b *Builder, fn func(f *gofakeit.Faker) V) {
	// a registry given with WithRegistry may be shared with other builders
	if !b.ownRegistry {
		b.registry = b.registry.Clone()
		b.ownRegistry = true
	}
	generators.SetterFor(b.registry, fn)
	clear(b.generators)
}

// AddRelated generates a new instance of C related to parent.
func AddRelated[C, P any](parent *Entry[P], links ...Link[P, C]) (*Entry[C], error) {
	entries, err := AddRelatedN[C](parent, 1, links...)
	if err != nil {
		return nil, err
	}
	return entries[0], nil
}

// AddRelatedN generates n new instances of C related to parent.
func AddRelatedN[C, P any](parent *Entry[P], n int, links ...Link[P, C]) ([]*Entry[C], error) {
	b := parent.b
	if n <= 0 {
		return nil, b.err
	}
	children, err := AddN[C](b, n)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		if err := RelateWith(child, parent, links...); err != nil {
			return nil, err
		}
	}
	return children, nil
}

// RelateWith relates two existing entries. With no link, the foreign key
// is inferred from the model: a foreign key of the child to the parent
// receives the parent key, otherwise a foreign key of the parent to the
// child receives the child key.
func RelateWith[C, P any](child *Entry[C], parent *Entry[P], links ...Link[P, C]) error {
	b := child.b
	if b.err != nil {
		return b.err
	}
	parentEntity, err := model.EntityOf[P](b.model)
	if err != nil {
		return b.fail(err)
	}
	childEntity, err := model.EntityOf[C](b.model)
	if err != nil {
		return b.fail(err)
	}
	if len(links) == 0 {
		return b.relate(parentEntity, childEntity, parent.Entity, child.Entity)
	}
	for _, l := range links {
		apply, err := l.resolve(parentEntity, childEntity)
		if err != nil {
			return b.fail(err)
		}
		if err := b.record(relation{parent: parent.Entity, child: child.Entity, apply: apply}); err != nil {
			return err
		}
	}
	return nil
}

// Relate is the non generic version of RelateWith without link. parent
// and child are instances returned by Add, AddN or AddEntity.
func (b *Builder) Relate(parent, child any) error {
	if b.err != nil {
		return b.err
	}
	parentEntity, err := b.model.EntityOfValue(parent)
	if err != nil {
		return b.fail(err)
	}
	childEntity, err := b.model.EntityOfValue(child)
	if err != nil {
		return b.fail(err)
	}
	return b.relate(parentEntity, childEntity, parent, child)
}

// RelateVia sets the foreign key fk of dependent to the key of
// principal.
func (b *Builder) RelateVia(fk *model.ForeignKey, principal, dependent any) error {
	if b.err != nil {
		return b.err
	}
	e, err := b.model.Entity(fk.Dependent)
	if err != nil {
		return b.fail(err)
	}
	apply, err := b.keyCopier(fk, e)
	if err != nil {
		return b.fail(err)
	}
	return b.record(relation{parent: principal, child: dependent, apply: apply})
}

func (b *Builder) relate(parentEntity, childEntity *model.Entity, parent, child any) error {
	apply, err := b.inferLink(parentEntity, childEntity)
	if err != nil {
		return b.fail(err)
	}
	return b.record(relation{parent: parent, child: child, apply: apply})
}

func (b *Builder) record(r relation) error {
	if err := r.apply(r.parent, r.child); err != nil {
		return b.fail(err)
	}
	b.relations = append(b.relations, r)
	return nil
}

// inferLink returns the function copying the principal key into the
// foreign key linking the two entities
func (b *Builder) inferLink(parentEntity, childEntity *model.Entity) (func(parent, child any) error, error) {
	childFKs := b.model.ForeignKeysBetween(childEntity, parentEntity)
	var parentFKs []*model.ForeignKey
	// a self reference counts once
	if parentEntity != childEntity {
		parentFKs = b.model.ForeignKeysBetween(parentEntity, childEntity)
	}
	if candidates := len(childFKs) + len(parentFKs); candidates != 1 {
		return nil, &RelationshipError{parent: parentEntity.Name, child: childEntity.Name, candidates: candidates}
	}

	if len(childFKs) == 1 {
		return b.keyCopier(childFKs[0], childEntity)
	}
	fk := parentFKs[0]
	copyKey, err := b.keyCopier(fk, parentEntity)
	if err != nil {
		return nil, err
	}
	return func(parent, child any) error { return copyKey(child, parent) }, nil
}

// keyCopier returns a function setting the foreign key fk of a dependent
// instance to the key of a principal instance. Composite keys are copied
// pairwise.
func (b *Builder) keyCopier(fk *model.ForeignKey, dependent *model.Entity) (func(principal, dep any) error, error) {
	_, keyProps, err := b.model.PrincipalKey(fk)
	if err != nil {
		return nil, err
	}
	fkProps := make([]*model.Property, len(fk.Properties))
	for i, name := range fk.Properties {
		if fkProps[i], err = dependent.Property(name); err != nil {
			return nil, err
		}
	}
	return func(principal, dep any) error {
		for i, p := range keyProps {
			if err := fkProps[i].Set(dep, p.Get(principal)); err != nil {
				return fmt.Errorf("for foreign key %s, %w", fk, err)
			}
		}
		return nil
	}, nil
}

// Build adds every pending instance to the mock context and saves the
// changes. Relations are applied again first, so the foreign keys match
// the final parent keys.
func (b *Builder) Build(ctx context.Context) (*mock.Context, error) {
	if b.err != nil {
		return nil, b.err
	}
	start := time.Now()
	for _, r := range b.relations {
		if err := r.apply(r.parent, r.child); err != nil {
			return nil, b.fail(err)
		}
	}
	if err := b.context.Add(b.pending...); err != nil {
		return nil, b.fail(err)
	}
	n, err := b.context.SaveChanges(ctx)
	if err != nil {
		return nil, b.fail(fmt.Errorf("fail to build entities\n  cause: %w", err))
	}
	fmt.Fprintf(b.logger, "committed %d changes (%d instances, %d relations) in %s\n", n, len(b.pending), len(b.relations), time.Since(start))
	b.pending, b.relations = nil, nil
	return b.context, nil
}
