package model

import (
	"github.com/iancoleman/orderedmap"
)

// Record is an instance of a dynamic entity. Values are kept in insertion
// order, so records serialize with the properties in declaration order.
type Record struct {
	entity string
	values *orderedmap.OrderedMap
}

// NewRecord returns an empty record of the given entity.
func NewRecord(entity string) *Record {
	return &Record{
		entity: entity,
		values: orderedmap.New(),
	}
}

// Entity returns the name of the record's entity.
func (r *Record) Entity() string { return r.entity }

// Get returns the value stored for key.
func (r *Record) Get(key string) (any, bool) {
	return r.values.Get(key)
}

// Set stores a value for key.
func (r *Record) Set(key string, value any) {
	r.values.Set(key, value)
}

// Keys returns the keys in insertion order.
func (r *Record) Keys() []string {
	return r.values.Keys()
}

// MarshalJSON implements json.Marshaler.
func (r *Record) MarshalJSON() ([]byte, error) {
	return r.values.MarshalJSON()
}
