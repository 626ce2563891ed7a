package mock

import (
	"context"
	"fmt"

	"github.com/feliixx/mockbuilder/model"
)

// Batch holds instances of a single entity.
type Batch struct {
	Entity *model.Entity
	Values []any
}

// ChangeSet is the unit of work committed by SaveChanges. Inserts are
// ordered principals first, Deletes dependents first.
type ChangeSet struct {
	Inserts []Batch
	Deletes []Batch
}

// Len returns the number of instances in the change set.
func (cs *ChangeSet) Len() int {
	n := 0
	for _, b := range cs.Inserts {
		n += len(b.Values)
	}
	for _, b := range cs.Deletes {
		n += len(b.Values)
	}
	return n
}

// Store persists change sets. Commit has to apply the whole change set or
// nothing.
type Store interface {
	Commit(ctx context.Context, cs *ChangeSet) error
}

// MemoryStore keeps committed instances in memory. It is the default
// store of a Context.
type MemoryStore struct {
	tables map[string]*table
}

type table struct {
	keys   []string
	values map[string]any
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string]*table)}
}

// Commit implements Store.
func (s *MemoryStore) Commit(ctx context.Context, cs *ChangeSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// validate first so a failing commit doesn't leave a partial state
	pending := make(map[string]map[string]bool)
	for _, b := range cs.Deletes {
		for _, v := range b.Values {
			key, err := b.Entity.KeyOf(v)
			if err != nil {
				return err
			}
			if pending[b.Entity.Name] == nil {
				pending[b.Entity.Name] = make(map[string]bool)
			}
			pending[b.Entity.Name][key] = false
		}
	}
	for _, b := range cs.Inserts {
		t := s.tables[b.Entity.Name]
		for _, v := range b.Values {
			key, err := b.Entity.KeyOf(v)
			if err != nil {
				return err
			}
			exists, seen := pending[b.Entity.Name][key]
			if !seen && t != nil {
				_, exists = t.values[key]
			}
			if exists {
				return &ConstraintError{entity: b.Entity.Name, key: key, msg: "already stored", kind: ErrDuplicateKey}
			}
			if pending[b.Entity.Name] == nil {
				pending[b.Entity.Name] = make(map[string]bool)
			}
			pending[b.Entity.Name][key] = true
		}
	}

	for _, b := range cs.Deletes {
		t := s.table(b.Entity.Name)
		for _, v := range b.Values {
			key, _ := b.Entity.KeyOf(v)
			t.delete(key)
		}
	}
	for _, b := range cs.Inserts {
		t := s.table(b.Entity.Name)
		for _, v := range b.Values {
			key, _ := b.Entity.KeyOf(v)
			t.keys = append(t.keys, key)
			t.values[key] = v
		}
	}
	return nil
}

// Count returns the number of stored instances of an entity.
func (s *MemoryStore) Count(entity string) int {
	t, ok := s.tables[entity]
	if !ok {
		return 0
	}
	return len(t.values)
}

// Values returns the stored instances of an entity, in insertion order.
func (s *MemoryStore) Values(entity string) []any {
	t, ok := s.tables[entity]
	if !ok {
		return nil
	}
	values := make([]any, 0, len(t.keys))
	for _, key := range t.keys {
		values = append(values, t.values[key])
	}
	return values
}

// Get returns the stored instance of an entity with the given key.
func (s *MemoryStore) Get(entity string, key ...any) (any, error) {
	t, ok := s.tables[entity]
	if ok {
		if v, ok := t.values[model.FormatKey(key...)]; ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: no %s with key %s", ErrNotTracked, entity, model.FormatKey(key...))
}

func (s *MemoryStore) table(entity string) *table {
	t, ok := s.tables[entity]
	if !ok {
		t = &table{values: make(map[string]any)}
		s.tables[entity] = t
	}
	return t
}

func (t *table) delete(key string) {
	if _, ok := t.values[key]; !ok {
		return
	}
	delete(t.values, key)
	for i, k := range t.keys {
		if k == key {
			t.keys = append(t.keys[:i], t.keys[i+1:]...)
			break
		}
	}
}
