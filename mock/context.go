// Package mock provides an in-memory unit of work for generated
// instances.
//
// A Context tracks instances the way an ORM change tracker does: Add marks
// an instance as Added, Remove marks it as Deleted and applies the delete
// behavior of its dependents, and SaveChanges commits everything to a
// Store in dependency order.
package mock

import (
	"context"
	"fmt"
	"reflect"

	"github.com/feliixx/mockbuilder/model"
)

// State is the tracking state of an instance.
type State uint8

// available states
const (
	Detached State = iota
	Unchanged
	Added
	Deleted
)

func (s State) String() string {
	switch s {
	case Unchanged:
		return "unchanged"
	case Added:
		return "added"
	case Deleted:
		return "deleted"
	}
	return "detached"
}

// Entry is a tracked instance.
type Entry struct {
	Entity *model.Entity
	Value  any
	State  State
}

// Key returns the formatted primary key of the instance.
func (e *Entry) Key() string {
	// entities without a key are never tracked
	key, _ := e.Entity.KeyOf(e.Value)
	return key
}

// Option configures a Context.
type Option func(c *Context)

// WithStore sets the store changes are committed to. The default is a new
// MemoryStore.
func WithStore(s Store) Option {
	return func(c *Context) { c.store = s }
}

// WithForeignKeyChecks makes SaveChanges fail when a foreign key matches
// no tracked principal.
func WithForeignKeyChecks() Option {
	return func(c *Context) { c.fkChecks = true }
}

// Context tracks instances of the entities of a model. It is not safe for
// concurrent use.
type Context struct {
	model    *model.Model
	store    Store
	fkChecks bool
	entries  []*Entry
	byValue  map[any]*Entry
}

// NewContext returns an empty Context for the entities of m.
func NewContext(m *model.Model, opts ...Option) *Context {
	c := &Context{
		model:   m,
		byValue: make(map[any]*Entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		c.store = NewMemoryStore()
	}
	return c
}

// Model returns the model of the context.
func (c *Context) Model() *model.Model { return c.model }

// Store returns the store the context commits to.
func (c *Context) Store() Store { return c.store }

// Add starts tracking values as Added. Values have to be pointers to
// registered structs or *model.Record. Adding a tracked instance is a
// no-op, unless it was removed, in which case it is tracked again as
// Unchanged.
func (c *Context) Add(values ...any) error {
	for _, v := range values {
		if err := c.track(v, Added); err != nil {
			return err
		}
	}
	return nil
}

// Attach starts tracking values as Unchanged, for instances already in
// the store.
func (c *Context) Attach(values ...any) error {
	for _, v := range values {
		if err := c.track(v, Unchanged); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) track(v any, state State) error {
	e, err := c.entityOf(v)
	if err != nil {
		return err
	}
	if len(e.Key) == 0 {
		return model.NewNoPrimaryKeyError(e.Name)
	}
	if entry, ok := c.byValue[v]; ok {
		if entry.State == Deleted {
			entry.State = Unchanged
		}
		return nil
	}
	entry := &Entry{Entity: e, Value: v, State: state}
	c.entries = append(c.entries, entry)
	c.byValue[v] = entry
	return nil
}

func (c *Context) entityOf(v any) (*model.Entity, error) {
	if v == nil {
		return nil, fmt.Errorf("can't track a nil value")
	}
	if _, ok := v.(*model.Record); !ok && reflect.TypeOf(v).Kind() != reflect.Pointer {
		return nil, fmt.Errorf("can't track %T, expected a pointer", v)
	}
	return c.model.EntityOfValue(v)
}

// Entry returns the tracking entry of v.
func (c *Context) Entry(v any) (*Entry, bool) {
	entry, ok := c.byValue[v]
	return entry, ok
}

// Entries returns the tracked entries in the order they were added.
func (c *Context) Entries() []*Entry {
	return append([]*Entry(nil), c.entries...)
}

// Remove marks v as Deleted and applies the delete behavior of every
// foreign key referencing it: dependents are deleted on cascade, their
// foreign key is cleared on set null, and a restrict behavior fails with
// ErrRestrictViolation. Nothing is changed when an error is returned.
// Removing an Added instance detaches it.
func (c *Context) Remove(v any) error {
	entry, ok := c.byValue[v]
	if !ok || entry.State == Detached || entry.State == Deleted {
		return fmt.Errorf("%w: %T", ErrNotTracked, v)
	}
	p := &removal{deleted: make(map[*Entry]bool)}
	if err := c.planRemoval(entry, p); err != nil {
		return err
	}
	for _, n := range p.nulls {
		for _, name := range n.fk.Properties {
			prop, _ := n.entry.Entity.Property(name)
			if err := prop.Set(n.entry.Value, nil); err != nil {
				return err
			}
		}
	}
	for _, e := range p.order {
		if e.State == Added {
			c.detach(e)
			continue
		}
		e.State = Deleted
	}
	return nil
}

type removal struct {
	deleted map[*Entry]bool
	order   []*Entry
	nulls   []nullify
}

type nullify struct {
	entry *Entry
	fk    *model.ForeignKey
}

func (c *Context) planRemoval(entry *Entry, p *removal) error {
	if p.deleted[entry] {
		return nil
	}
	p.deleted[entry] = true
	p.order = append(p.order, entry)

	for _, fk := range c.model.Dependents(entry.Entity) {
		deps, err := c.dependentsOf(entry, fk)
		if err != nil {
			return err
		}
		for _, dep := range deps {
			if p.deleted[dep] {
				continue
			}
			switch behavior(dep.Entity, fk) {
			case model.DeleteRestrict:
				return &ConstraintError{entity: dep.Entity.Name, key: dep.Key(), msg: fmt.Sprintf("references %s %s", entry.Entity.Name, entry.Key()), kind: ErrRestrictViolation}
			case model.DeleteSetNull:
				if !dep.Entity.IsNullable(fk) {
					return fmt.Errorf("can't set foreign key %s to null, the property is not nullable", fk)
				}
				p.nulls = append(p.nulls, nullify{entry: dep, fk: fk})
			default:
				if err := c.planRemoval(dep, p); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func behavior(dependent *model.Entity, fk *model.ForeignKey) model.DeleteBehavior {
	if fk.OnDelete != model.DeleteDefault {
		return fk.OnDelete
	}
	if dependent.IsNullable(fk) {
		return model.DeleteSetNull
	}
	return model.DeleteCascade
}

// dependentsOf returns the tracked instances whose foreign key fk
// references the instance of entry.
func (c *Context) dependentsOf(entry *Entry, fk *model.ForeignKey) ([]*Entry, error) {
	_, keyProps, err := c.model.PrincipalKey(fk)
	if err != nil {
		return nil, err
	}
	principalKey := make([]any, len(keyProps))
	for i, p := range keyProps {
		principalKey[i] = p.Get(entry.Value)
	}
	want := model.FormatKey(principalKey...)

	var deps []*Entry
	for _, e := range c.entries {
		if e.Entity.Name != fk.Dependent || e.State == Deleted || e.State == Detached {
			continue
		}
		values, err := e.Entity.ValuesOf(e.Value, fk.Properties)
		if err != nil {
			return nil, err
		}
		if hasNil(values) {
			continue
		}
		if model.FormatKey(values...) == want {
			deps = append(deps, e)
		}
	}
	return deps, nil
}

func hasNil(values []any) bool {
	for _, v := range values {
		if v == nil {
			return true
		}
	}
	return false
}

func (c *Context) detach(entry *Entry) {
	entry.State = Detached
	delete(c.byValue, entry.Value)
	for i, e := range c.entries {
		if e == entry {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return
		}
	}
}

// SaveChanges validates the tracked instances and commits the pending
// changes to the store. It returns the number of inserted and deleted
// instances.
func (c *Context) SaveChanges(ctx context.Context) (int, error) {
	if err := c.validate(); err != nil {
		return 0, err
	}
	cs := c.changeSet()
	n := cs.Len()
	if n == 0 {
		return 0, nil
	}
	if err := c.store.Commit(ctx, cs); err != nil {
		return 0, fmt.Errorf("fail to commit changes: %w", err)
	}
	for _, entry := range c.Entries() {
		switch entry.State {
		case Added:
			entry.State = Unchanged
		case Deleted:
			c.detach(entry)
		}
	}
	return n, nil
}

// validate checks key uniqueness and, if enabled, referential integrity
func (c *Context) validate() error {
	keys := make(map[string]map[string]bool)
	for _, e := range c.entries {
		if e.State == Deleted {
			continue
		}
		key, err := e.Entity.KeyOf(e.Value)
		if err != nil {
			return err
		}
		if keys[e.Entity.Name] == nil {
			keys[e.Entity.Name] = make(map[string]bool)
		}
		if keys[e.Entity.Name][key] {
			return &ConstraintError{entity: e.Entity.Name, key: key, msg: "key is used by another instance", kind: ErrDuplicateKey}
		}
		keys[e.Entity.Name][key] = true
	}
	if !c.fkChecks {
		return nil
	}

	// principal values referenced by foreign keys, per foreign key
	principals := make(map[*model.ForeignKey]map[string]bool)
	for _, e := range c.entries {
		if e.State == Deleted {
			continue
		}
		for _, fk := range e.Entity.ForeignKeys {
			values, err := e.Entity.ValuesOf(e.Value, fk.Properties)
			if err != nil {
				return err
			}
			if hasNil(values) {
				continue
			}
			known, ok := principals[fk]
			if !ok {
				if known, err = c.principalValues(fk); err != nil {
					return err
				}
				principals[fk] = known
			}
			if !known[model.FormatKey(values...)] {
				return &ConstraintError{
					entity: e.Entity.Name,
					key:    e.Key(),
					msg:    fmt.Sprintf("no %s matches foreign key %s", fk.Principal, model.FormatKey(values...)),
					kind:   ErrForeignKeyViolation,
				}
			}
		}
	}
	return nil
}

func (c *Context) principalValues(fk *model.ForeignKey) (map[string]bool, error) {
	_, keyProps, err := c.model.PrincipalKey(fk)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool)
	for _, e := range c.entries {
		if e.Entity.Name != fk.Principal || e.State == Deleted {
			continue
		}
		values := make([]any, len(keyProps))
		for i, p := range keyProps {
			values[i] = p.Get(e.Value)
		}
		known[model.FormatKey(values...)] = true
	}
	return known, nil
}

// changeSet groups pending changes per entity, principals first for
// inserts and dependents first for deletes
func (c *Context) changeSet() *ChangeSet {
	added := make(map[string][]*Entry)
	deleted := make(map[string][]any)
	for _, e := range c.entries {
		switch e.State {
		case Added:
			added[e.Entity.Name] = append(added[e.Entity.Name], e)
		case Deleted:
			deleted[e.Entity.Name] = append(deleted[e.Entity.Name], e.Value)
		}
	}
	cs := &ChangeSet{}
	sorted := c.model.Sorted()
	for _, e := range sorted {
		if entries, ok := added[e.Name]; ok {
			cs.Inserts = append(cs.Inserts, Batch{Entity: e, Values: c.selfOrdered(e, entries)})
		}
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		e := sorted[i]
		if values, ok := deleted[e.Name]; ok {
			cs.Deletes = append(cs.Deletes, Batch{Entity: e, Values: values})
		}
	}
	return cs
}

// selfOrdered orders the instances of a self referencing entity so that
// parents are inserted before their children.
func (c *Context) selfOrdered(e *model.Entity, entries []*Entry) []any {
	var selfFKs []*model.ForeignKey
	for _, fk := range e.ForeignKeys {
		if fk.Principal == e.Name {
			selfFKs = append(selfFKs, fk)
		}
	}
	values := make([]any, 0, len(entries))
	if len(selfFKs) == 0 {
		for _, entry := range entries {
			values = append(values, entry.Value)
		}
		return values
	}

	byKey := make(map[string]*Entry, len(entries))
	keyProps := make(map[*model.ForeignKey][]*model.Property, len(selfFKs))
	for _, fk := range selfFKs {
		// an invalid principal key is reported by validate or the store
		_, keyProps[fk], _ = c.model.PrincipalKey(fk)
	}
	for _, entry := range entries {
		for _, fk := range selfFKs {
			byKey[principalKeyOf(fk, keyProps[fk], entry.Value)] = entry
		}
	}
	visited := make(map[*Entry]bool, len(entries))
	var visit func(entry *Entry)
	visit = func(entry *Entry) {
		if visited[entry] {
			return
		}
		visited[entry] = true
		for _, fk := range selfFKs {
			fkValues, err := entry.Entity.ValuesOf(entry.Value, fk.Properties)
			if err != nil || hasNil(fkValues) {
				continue
			}
			if parent, ok := byKey[fk.Principal+"/"+model.FormatKey(fkValues...)]; ok {
				visit(parent)
			}
		}
		values = append(values, entry.Value)
	}
	for _, entry := range entries {
		visit(entry)
	}
	return values
}

func principalKeyOf(fk *model.ForeignKey, props []*model.Property, v any) string {
	values := make([]any, len(props))
	for i, p := range props {
		values[i] = p.Get(v)
	}
	return fk.Principal + "/" + model.FormatKey(values...)
}

// Query returns the tracked instances of an entity that are not deleted,
// in the order they were added.
func (c *Context) Query(entity string) ([]any, error) {
	e, err := c.model.Entity(entity)
	if err != nil {
		return nil, err
	}
	var values []any
	for _, entry := range c.entries {
		if entry.Entity == e && entry.State != Deleted {
			values = append(values, entry.Value)
		}
	}
	return values, nil
}

// Set returns the tracked instances of T that are not deleted.
func Set[T any](c *Context) []*T {
	var values []*T
	for _, entry := range c.entries {
		if entry.State == Deleted {
			continue
		}
		if v, ok := entry.Value.(*T); ok {
			values = append(values, v)
		}
	}
	return values
}

// Find returns the tracked instance of T with the given primary key.
// Composite keys are given in declaration order.
func Find[T any](c *Context, key ...any) (*T, bool) {
	want := model.FormatKey(key...)
	for _, entry := range c.entries {
		if entry.State == Deleted {
			continue
		}
		if v, ok := entry.Value.(*T); ok && entry.Key() == want {
			return v, true
		}
	}
	return nil, false
}
