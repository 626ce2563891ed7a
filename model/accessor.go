package model

import (
	"fmt"
	"reflect"
)

// fieldAccessors returns closures reading and writing the struct field at
// index in a pointer to a struct.
func fieldAccessors(index []int) (get func(any) any, set func(any, any) error) {
	get = func(obj any) any {
		f := reflect.ValueOf(obj).Elem().FieldByIndex(index)
		if f.Kind() == reflect.Pointer {
			if f.IsNil() {
				return nil
			}
			return f.Elem().Interface()
		}
		return f.Interface()
	}
	set = func(obj any, v any) error {
		return assign(reflect.ValueOf(obj).Elem().FieldByIndex(index), v)
	}
	return get, set
}

// recordAccessors returns closures reading and writing a key of a *Record.
func recordAccessors(name string) (get func(any) any, set func(any, any) error) {
	get = func(obj any) any {
		v, _ := obj.(*Record).Get(name)
		return v
	}
	set = func(obj any, v any) error {
		r, ok := obj.(*Record)
		if !ok {
			return fmt.Errorf("expected a *model.Record, got %T", obj)
		}
		r.Set(name, v)
		return nil
	}
	return get, set
}

// assign sets v to field, converting it when the types differ.
func assign(field reflect.Value, v any) error {
	t := field.Type()
	if v == nil {
		field.Set(reflect.Zero(t))
		return nil
	}
	rv := reflect.ValueOf(v)
	if t.Kind() == reflect.Pointer && rv.Type() != t {
		p := reflect.New(t.Elem())
		if err := assign(p.Elem(), v); err != nil {
			return err
		}
		field.Set(p)
		return nil
	}
	switch {
	case rv.Type().AssignableTo(t):
		field.Set(rv)
	case t.Kind() == reflect.Array && rv.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8:
		reflect.Copy(field, rv)
	case convertible(rv.Type(), t):
		field.Set(rv.Convert(t))
	default:
		return fmt.Errorf("value of type %s is not assignable to %s", rv.Type(), t)
	}
	return nil
}

// convertible is reflect.ConvertibleTo without the integer to string
// conversion.
func convertible(from, to reflect.Type) bool {
	if to.Kind() == reflect.String && from.Kind() != reflect.String {
		return false
	}
	if from.Kind() == reflect.Slice && to.Kind() == reflect.Array {
		return false
	}
	return from.ConvertibleTo(to)
}
