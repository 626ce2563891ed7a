package model

import (
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind is the value category of a property. The generator dispatch table
// is keyed on it.
type Kind uint8

// available kinds
const (
	KindUnsupported Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindDecimal
	KindString
	KindTime
	KindTimeOffset
	KindDuration
	KindUUID
	KindBytes
	KindEnum
	KindNavigation
)

var kindNames = [...]string{
	KindUnsupported: "unsupported",
	KindBool:        "bool",
	KindInt:         "int",
	KindUint:        "uint",
	KindFloat:       "float",
	KindDecimal:     "decimal",
	KindString:      "string",
	KindTime:        "time",
	KindTimeOffset:  "timeOffset",
	KindDuration:    "duration",
	KindUUID:        "uuid",
	KindBytes:       "bytes",
	KindEnum:        "enum",
	KindNavigation:  "navigation",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Scalar reports whether values of this kind can be generated and stored
// in a column.
func (k Kind) Scalar() bool {
	return k != KindUnsupported && k != KindNavigation
}

// Format is a hint for string generation.
type Format uint8

// available formats
const (
	FormatNone Format = iota
	FormatEmail
	FormatURL
	FormatPhone
)

func (f Format) String() string {
	switch f {
	case FormatEmail:
		return "email"
	case FormatURL:
		return "url"
	case FormatPhone:
		return "phone"
	}
	return ""
}

var (
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
	uuidType     = reflect.TypeOf(uuid.UUID{})
	decimalType  = reflect.TypeOf(decimal.Decimal{})
)

// classify returns the kind of t, the bit size for numeric kinds, and
// whether t is a pointer to a scalar.
func classify(t reflect.Type) (kind Kind, bits int, nullable bool) {
	if t.Kind() == reflect.Pointer {
		k, b, _ := classify(t.Elem())
		if k == KindNavigation || k == KindUnsupported {
			return k, b, false
		}
		return k, b, true
	}

	switch t {
	case timeType:
		return KindTime, 0, false
	case durationType:
		return KindDuration, 0, false
	case uuidType:
		return KindUUID, 0, false
	case decimalType:
		return KindDecimal, 0, false
	}
	if _, ok := enumMembers(t); ok {
		return KindEnum, 0, false
	}

	switch t.Kind() {
	case reflect.Bool:
		return KindBool, 0, false
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return KindInt, t.Bits(), false
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindUint, t.Bits(), false
	case reflect.Float32, reflect.Float64:
		return KindFloat, t.Bits(), false
	case reflect.String:
		return KindString, 0, false
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return KindBytes, 0, false
		}
		if elem := t.Elem(); elem.Kind() == reflect.Struct || elem.Kind() == reflect.Pointer {
			return KindNavigation, 0, false
		}
		return KindUnsupported, 0, false
	case reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return KindBytes, 0, false
		}
		return KindUnsupported, 0, false
	case reflect.Struct:
		return KindNavigation, 0, false
	}
	return KindUnsupported, 0, false
}

// enumMembers calls the Values() method of t, if t declares one that
// returns a slice of t.
func enumMembers(t reflect.Type) ([]any, bool) {
	m, ok := t.MethodByName("Values")
	if !ok {
		return nil, false
	}
	mt := m.Type
	// receiver + no argument, one result of type []t
	if mt.NumIn() != 1 || mt.NumOut() != 1 {
		return nil, false
	}
	out := mt.Out(0)
	if out.Kind() != reflect.Slice || out.Elem() != t {
		return nil, false
	}
	values := reflect.Zero(t).MethodByName("Values").Call(nil)[0]
	if values.Len() == 0 {
		return nil, false
	}
	members := make([]any, values.Len())
	for i := range members {
		members[i] = values.Index(i).Interface()
	}
	return members, true
}
