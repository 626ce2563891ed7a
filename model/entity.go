package model

import (
	"fmt"
	"reflect"
	"strings"
)

// DeleteBehavior is what happens to dependents when their principal is
// deleted.
type DeleteBehavior uint8

// available delete behaviors
const (
	// cascade for required foreign keys, set null for nullable ones
	DeleteDefault DeleteBehavior = iota
	DeleteCascade
	DeleteSetNull
	DeleteRestrict
)

func (d DeleteBehavior) String() string {
	switch d {
	case DeleteCascade:
		return "cascade"
	case DeleteSetNull:
		return "setnull"
	case DeleteRestrict:
		return "restrict"
	}
	return "default"
}

// ParseDeleteBehavior parses "cascade", "setnull" or "restrict".
func ParseDeleteBehavior(s string) (DeleteBehavior, error) {
	switch strings.ToLower(s) {
	case "", "default":
		return DeleteDefault, nil
	case "cascade":
		return DeleteCascade, nil
	case "setnull", "set null", "set_null":
		return DeleteSetNull, nil
	case "restrict":
		return DeleteRestrict, nil
	}
	return DeleteDefault, fmt.Errorf("invalid delete behavior '%s', should be one of cascade | setnull | restrict", s)
}

// Property describes one property of an entity. Navigation and
// unsupported properties are kept with a Kind that is not Scalar.
type Property struct {
	// name of the struct field / record key
	Name string
	// column name in a table
	Column string
	Kind   Kind
	// bit size for int, uint and float kinds
	Bits int
	// fixed length for [N]byte properties, 0 otherwise
	Size int
	// true for pointer fields, nil is a valid value
	Nullable bool
	// members of an enum
	Enum []any
	// Go type of the field, without pointer. nil for dynamic entities
	Type        reflect.Type
	Constraints Constraints

	get func(obj any) any
	set func(obj any, v any) error
}

// Get returns the value of the property in obj. Nil pointers are
// returned as nil, other pointers are dereferenced.
func (p *Property) Get(obj any) any {
	return p.get(obj)
}

// Set assigns v to the property in obj. v is converted to the type of
// the property if needed. A nil v resets the property.
func (p *Property) Set(obj any, v any) error {
	if err := p.set(obj, v); err != nil {
		return fmt.Errorf("can't set property '%s': %w", p.Name, err)
	}
	return nil
}

// Generated reports whether a value generator should fill this property.
func (p *Property) Generated() bool {
	return !p.Constraints.Skip
}

// Navigation is a relationship property, either a reference to another
// entity or a collection of entities. Navigations are never generated.
type Navigation struct {
	Name       string
	Target     reflect.Type
	Collection bool
}

// ForeignKey links the Properties of a Dependent entity to the key
// properties of a Principal entity.
type ForeignKey struct {
	Dependent    string
	Properties   []string
	Principal    string
	PrincipalKey []string
	OnDelete     DeleteBehavior
}

func (fk *ForeignKey) String() string {
	return fmt.Sprintf("%s(%s) -> %s(%s)", fk.Dependent, strings.Join(fk.Properties, ", "), fk.Principal, strings.Join(fk.PrincipalKey, ", "))
}

// Entity describes an entity type. It is immutable once registered.
type Entity struct {
	// name of the entity, the struct type name by default
	Name string
	// table / collection name
	Table string
	// struct type, nil for dynamic entities
	Type        reflect.Type
	Properties  []*Property
	Key         []string
	ForeignKeys []*ForeignKey
	Navigations []*Navigation

	byName map[string]*Property
}

// Property returns the property with the given name.
func (e *Entity) Property(name string) (*Property, error) {
	p, ok := e.byName[name]
	if !ok {
		return nil, &NotFoundError{entity: e.Name, property: name}
	}
	return p, nil
}

// KeyProperties returns the primary key properties.
func (e *Entity) KeyProperties() ([]*Property, error) {
	if len(e.Key) == 0 {
		return nil, NewNoPrimaryKeyError(e.Name)
	}
	props := make([]*Property, len(e.Key))
	for i, name := range e.Key {
		props[i] = e.byName[name]
	}
	return props, nil
}

// KeyOf returns the primary key of obj formatted as a string. Composite
// keys are joined with '|'.
func (e *Entity) KeyOf(obj any) (string, error) {
	props, err := e.KeyProperties()
	if err != nil {
		return "", err
	}
	return FormatKey(valuesOf(props, obj)...), nil
}

// New returns a new zero instance: a pointer to the struct type, or an
// empty *Record for dynamic entities.
func (e *Entity) New() any {
	if e.Type == nil {
		return NewRecord(e.Name)
	}
	return reflect.New(e.Type).Interface()
}

// IsNullable reports whether every property of the foreign key accepts
// nil.
func (e *Entity) IsNullable(fk *ForeignKey) bool {
	for _, name := range fk.Properties {
		p, ok := e.byName[name]
		if !ok || !p.Nullable {
			return false
		}
	}
	return true
}

// FormatKey formats key values the way KeyOf does.
func FormatKey(values ...any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, "|")
}

func valuesOf(props []*Property, obj any) []any {
	values := make([]any, len(props))
	for i, p := range props {
		values[i] = p.Get(obj)
	}
	return values
}

// ValuesOf returns the values of the named properties of obj.
func (e *Entity) ValuesOf(obj any, names []string) ([]any, error) {
	values := make([]any, len(names))
	for i, name := range names {
		p, err := e.Property(name)
		if err != nil {
			return nil, err
		}
		values[i] = p.Get(obj)
	}
	return values, nil
}
