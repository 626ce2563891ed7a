// Package model describes the entity types data can be generated for.
//
// Entities are registered once, either from a struct type with Register
// or dynamically with Model.Define. Registration reads the `mock` and
// `db` struct tags into an explicit Constraints struct for each property,
// and discovers primary keys, foreign keys and navigation properties:
//
//	type Order struct {
//		ID          int
//		UserID      int             `db:"ref=User,ondelete=cascade"`
//		TotalAmount decimal.Decimal `mock:"range=0..10000"`
//		User        *User
//	}
package model

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
)

// Model is a registry of entity descriptors. It is not safe for
// concurrent use.
type Model struct {
	entities map[string]*Entity
	byType   map[reflect.Type]*Entity
	order    []*Entity
}

// New returns an empty Model.
func New() *Model {
	return &Model{
		entities: make(map[string]*Entity),
		byType:   make(map[reflect.Type]*Entity),
	}
}

// EntityOption customizes an entity at registration.
type EntityOption func(e *Entity)

// WithName overrides the name of the entity.
func WithName(name string) EntityOption {
	return func(e *Entity) { e.Name = name }
}

// WithTable overrides the table / collection name of the entity.
func WithTable(table string) EntityOption {
	return func(e *Entity) { e.Table = table }
}

// WithKey overrides the primary key of the entity.
func WithKey(names ...string) EntityOption {
	return func(e *Entity) { e.Key = names }
}

// Register describes the struct type T and adds it to m. Registering the
// same type twice returns the existing descriptor.
func Register[T any](m *Model, opts ...EntityOption) (*Entity, error) {
	return m.RegisterType(reflect.TypeOf((*T)(nil)).Elem(), opts...)
}

// RegisterType is the non generic version of Register.
func (m *Model) RegisterType(t reflect.Type, opts ...EntityOption) (*Entity, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if e, ok := m.byType[t]; ok {
		return e, nil
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("can't register type %s, entities have to be structs", t)
	}
	e, err := describe(t)
	if err != nil {
		return nil, fmt.Errorf("for entity %s, %v", t.Name(), err)
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := m.add(e); err != nil {
		return nil, err
	}
	m.byType[t] = e
	return e, nil
}

// Field declares a property of a dynamic entity.
type Field struct {
	Name        string
	Column      string
	Kind        Kind
	Bits        int
	Nullable    bool
	Enum        []any
	Constraints Constraints
	// part of the primary key
	Key bool
	// name of the principal entity, optionally followed by '.' and the
	// principal property
	Ref      string
	OnDelete DeleteBehavior
}

// Define registers a dynamic entity, whose instances are *Record.
func (m *Model) Define(name string, fields ...Field) (*Entity, error) {
	if name == "" {
		return nil, fmt.Errorf("entity name can't be empty")
	}
	e := newEntity(name)
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("for entity %s, field name can't be empty", name)
		}
		if !f.Kind.Scalar() {
			return nil, fmt.Errorf("for entity %s, field %s has an invalid kind %s", name, f.Name, f.Kind)
		}
		if f.Kind == KindEnum && len(f.Enum) == 0 {
			return nil, fmt.Errorf("for entity %s, enum field %s has no value", name, f.Name)
		}
		p := &Property{
			Name:        f.Name,
			Column:      f.Column,
			Kind:        f.Kind,
			Bits:        f.Bits,
			Nullable:    f.Nullable,
			Enum:        f.Enum,
			Constraints: f.Constraints,
		}
		if p.Column == "" {
			p.Column = columnName(f.Name)
		}
		if (p.Kind == KindInt || p.Kind == KindUint || p.Kind == KindFloat) && p.Bits == 0 {
			p.Bits = 64
		}
		p.get, p.set = recordAccessors(f.Name)
		if err := e.addProperty(p); err != nil {
			return nil, err
		}
		if f.Key {
			e.Key = append(e.Key, f.Name)
		}
		if f.Ref != "" {
			e.ForeignKeys = append(e.ForeignKeys, newForeignKey(name, f.Name, f.Ref, f.OnDelete))
		}
	}
	if err := m.add(e); err != nil {
		return nil, err
	}
	return e, nil
}

// HasForeignKey declares a foreign key from the properties of dependent
// to the key of principal. Use it for composite foreign keys, or when the
// struct can't carry a `db:"ref=..."` tag.
func (m *Model) HasForeignKey(dependent, principal string, properties []string, onDelete DeleteBehavior) error {
	d, err := m.Entity(dependent)
	if err != nil {
		return err
	}
	for _, name := range properties {
		if _, err := d.Property(name); err != nil {
			return err
		}
	}
	fk := &ForeignKey{
		Dependent:  dependent,
		Properties: properties,
		Principal:  principal,
		OnDelete:   onDelete,
	}
	for _, existing := range d.ForeignKeys {
		if existing.Principal == principal && sameNames(existing.Properties, properties) {
			return nil
		}
	}
	d.ForeignKeys = append(d.ForeignKeys, fk)
	return nil
}

// Entity returns the entity registered under name.
func (m *Model) Entity(name string) (*Entity, error) {
	e, ok := m.entities[name]
	if !ok {
		return nil, &NotFoundError{entity: name}
	}
	return e, nil
}

// EntityOf returns the entity of type T.
func EntityOf[T any](m *Model) (*Entity, error) {
	return m.EntityFor(reflect.TypeOf((*T)(nil)).Elem())
}

// EntityFor returns the entity registered for type t. Pointer types are
// dereferenced.
func (m *Model) EntityFor(t reflect.Type) (*Entity, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	e, ok := m.byType[t]
	if !ok {
		return nil, &NotFoundError{entity: t.String()}
	}
	return e, nil
}

// EntityOfValue returns the entity of an instance, either a pointer to a
// registered struct or a *Record.
func (m *Model) EntityOfValue(v any) (*Entity, error) {
	if r, ok := v.(*Record); ok {
		return m.Entity(r.Entity())
	}
	return m.EntityFor(reflect.TypeOf(v))
}

// Entities returns the registered entities in registration order.
func (m *Model) Entities() []*Entity {
	return append([]*Entity(nil), m.order...)
}

// PrincipalKey returns the principal entity of fk and the principal
// properties fk points to.
func (m *Model) PrincipalKey(fk *ForeignKey) (*Entity, []*Property, error) {
	principal, err := m.Entity(fk.Principal)
	if err != nil {
		return nil, nil, err
	}
	names := fk.PrincipalKey
	if len(names) == 0 {
		names = principal.Key
	}
	if len(names) == 0 {
		return nil, nil, NewNoPrimaryKeyError(principal.Name)
	}
	if len(names) != len(fk.Properties) {
		return nil, nil, fmt.Errorf("foreign key %s has %d properties, but principal key has %d", fk, len(fk.Properties), len(names))
	}
	props := make([]*Property, len(names))
	for i, name := range names {
		if props[i], err = principal.Property(name); err != nil {
			return nil, nil, err
		}
	}
	return principal, props, nil
}

// ForeignKeysBetween returns the foreign keys declared on dependent whose
// principal is principal.
func (m *Model) ForeignKeysBetween(dependent, principal *Entity) []*ForeignKey {
	var fks []*ForeignKey
	for _, fk := range dependent.ForeignKeys {
		if fk.Principal == principal.Name {
			fks = append(fks, fk)
		}
	}
	return fks
}

// Dependents returns every foreign key whose principal is principal.
func (m *Model) Dependents(principal *Entity) []*ForeignKey {
	var fks []*ForeignKey
	for _, e := range m.order {
		fks = append(fks, m.ForeignKeysBetween(e, principal)...)
	}
	return fks
}

// Sorted returns the entities ordered so that principals come before
// their dependents. Self references are ignored, and entities in a cycle
// keep their registration order.
func (m *Model) Sorted() []*Entity {
	visited := make(map[string]int, len(m.order))
	sorted := make([]*Entity, 0, len(m.order))
	var visit func(e *Entity)
	visit = func(e *Entity) {
		// 1: in progress, 2: done
		if visited[e.Name] != 0 {
			return
		}
		visited[e.Name] = 1
		for _, fk := range e.ForeignKeys {
			if fk.Principal == e.Name {
				continue
			}
			if p, ok := m.entities[fk.Principal]; ok {
				visit(p)
			}
		}
		visited[e.Name] = 2
		sorted = append(sorted, e)
	}
	for _, e := range m.order {
		visit(e)
	}
	return sorted
}

func (m *Model) add(e *Entity) error {
	if _, ok := m.entities[e.Name]; ok {
		return fmt.Errorf("an entity named %s is already registered", e.Name)
	}
	for _, name := range e.Key {
		if _, err := e.Property(name); err != nil {
			return err
		}
	}
	m.entities[e.Name] = e
	m.order = append(m.order, e)
	return nil
}

func newEntity(name string) *Entity {
	return &Entity{
		Name:   name,
		Table:  snake(rules.Pluralize(name)),
		byName: make(map[string]*Property),
	}
}

func (e *Entity) addProperty(p *Property) error {
	if _, ok := e.byName[p.Name]; ok {
		return fmt.Errorf("for entity %s, duplicate property %s", e.Name, p.Name)
	}
	e.Properties = append(e.Properties, p)
	e.byName[p.Name] = p
	return nil
}

// describe reads the exported fields of the struct type t.
func describe(t reflect.Type) (*Entity, error) {
	e := newEntity(t.Name())
	e.Type = t

	var conventionKey string
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		db, err := parseDBTag(sf.Tag.Get("db"))
		if err != nil {
			return nil, fmt.Errorf("field %s: %v", sf.Name, err)
		}
		if db.skip {
			continue
		}

		kind, bits, nullable := classify(sf.Type)
		if kind == KindNavigation {
			target := sf.Type
			for target.Kind() == reflect.Pointer || target.Kind() == reflect.Slice {
				target = target.Elem()
			}
			e.Navigations = append(e.Navigations, &Navigation{
				Name:       sf.Name,
				Target:     target,
				Collection: sf.Type.Kind() == reflect.Slice,
			})
		}

		c, offset, err := parseMockTag(sf.Tag.Get("mock"))
		if err != nil {
			return nil, fmt.Errorf("field %s: %v", sf.Name, err)
		}

		ft := sf.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		p := &Property{
			Name:        sf.Name,
			Column:      db.column,
			Kind:        kind,
			Bits:        bits,
			Nullable:    nullable,
			Type:        ft,
			Constraints: c,
		}
		if p.Column == "" {
			p.Column = columnName(sf.Name)
		}
		if kind == KindTime && offset {
			p.Kind = KindTimeOffset
		}
		if kind == KindBytes && ft.Kind() == reflect.Array {
			p.Size = ft.Len()
		}
		if kind == KindEnum {
			p.Enum, _ = enumMembers(ft)
		}
		if len(c.OneOf) > 0 {
			if p.Enum, err = oneOfMembers(p, c.OneOf); err != nil {
				return nil, fmt.Errorf("field %s: %v", sf.Name, err)
			}
			p.Kind = KindEnum
		}
		p.get, p.set = fieldAccessors(sf.Index)

		if kind == KindNavigation || kind == KindUnsupported {
			// kept so a per-type generator can still fill it, but never
			// part of a key or a column
			p.Column = ""
		}
		if err := e.addProperty(p); err != nil {
			return nil, err
		}

		if db.key {
			e.Key = append(e.Key, sf.Name)
		}
		if sf.Name == "ID" {
			conventionKey = sf.Name
		}
		if db.ref != "" {
			e.ForeignKeys = append(e.ForeignKeys, newForeignKey(e.Name, sf.Name, db.ref, db.onDelete))
		}
	}
	if len(e.Key) == 0 && conventionKey != "" {
		e.Key = []string{conventionKey}
	}
	for _, name := range e.Key {
		if !e.byName[name].Kind.Scalar() {
			return nil, fmt.Errorf("key property %s has to be a scalar", name)
		}
	}
	return e, nil
}

// newForeignKey parses ref, "Principal" or "Principal.Property"
func newForeignKey(dependent, property, ref string, onDelete DeleteBehavior) *ForeignKey {
	fk := &ForeignKey{
		Dependent:  dependent,
		Properties: []string{property},
		OnDelete:   onDelete,
	}
	principal, key, ok := strings.Cut(ref, ".")
	fk.Principal = principal
	if ok && key != "" {
		fk.PrincipalKey = []string{key}
	}
	return fk
}

// oneOfMembers converts the 'oneof' values to the kind of p
func oneOfMembers(p *Property, values []string) ([]any, error) {
	members := make([]any, len(values))
	for i, v := range values {
		var err error
		switch p.Kind {
		case KindString, KindEnum:
			members[i] = v
		case KindInt:
			members[i], err = strconv.ParseInt(v, 10, p.Bits)
		case KindUint:
			members[i], err = strconv.ParseUint(v, 10, p.Bits)
		case KindFloat:
			members[i], err = strconv.ParseFloat(v, p.Bits)
		default:
			return nil, fmt.Errorf("'oneof' is not supported for kind %s", p.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("invalid 'oneof' value '%s': %v", v, err)
		}
	}
	return members, nil
}

func columnName(field string) string {
	return snake(field)
}

var rules = ruleset()

func ruleset() *inflect.Ruleset {
	rules := inflect.NewDefaultRuleset()
	for _, w := range []string{"API", "DNS", "HTML", "HTTP", "ID", "IP", "JSON", "SQL", "URL", "UUID", "XML"} {
		rules.AddAcronym(w)
	}
	return rules
}

// snake converts a struct or field name to snake_case. Acronyms are kept
// as a single word: "UserID" gives "user_id".
func snake(s string) string {
	var (
		j int
		b strings.Builder
	)
	for i := 0; i < len(s); i++ {
		r := rune(s[i])
		if i > 0 && i < len(s)-1 && unicode.IsUpper(r) {
			if unicode.IsLower(rune(s[i-1])) ||
				j != i-1 && unicode.IsLower(rune(s[i+1])) && unicode.IsLetter(rune(s[i-1])) {
				j = i
				b.WriteString("_")
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
