package model

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownEntity is returned when an entity type is not registered
	// in the model.
	ErrUnknownEntity = errors.New("mockbuilder: entity type not found in model")

	// ErrNoPrimaryKey is returned when an operation needs the primary key
	// of an entity that doesn't declare one.
	ErrNoPrimaryKey = errors.New("mockbuilder: no primary key defined")

	// ErrUnknownProperty is returned when a property name doesn't match a
	// scalar property of the entity.
	ErrUnknownProperty = errors.New("mockbuilder: property not found")
)

// NotFoundError is returned when an entity or a property can't be found.
type NotFoundError struct {
	entity   string
	property string
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.property != "" {
		return fmt.Sprintf("mockbuilder: property '%s' not found in entity %s", e.property, e.entity)
	}
	return fmt.Sprintf("mockbuilder: entity type %s not found in model", e.entity)
}

// Is reports whether the target error matches NotFoundError.
func (e *NotFoundError) Is(err error) bool {
	if e.property != "" {
		return err == ErrUnknownProperty
	}
	return err == ErrUnknownEntity
}

// Entity returns the name of the entity.
func (e *NotFoundError) Entity() string {
	return e.entity
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// NoPrimaryKeyError is returned when an entity has no primary key.
type NoPrimaryKeyError struct {
	entity string
}

// Error returns the error string.
func (e *NoPrimaryKeyError) Error() string {
	return fmt.Sprintf("mockbuilder: no primary key defined for %s", e.entity)
}

// Is reports whether the target error matches NoPrimaryKeyError.
func (e *NoPrimaryKeyError) Is(err error) bool {
	return err == ErrNoPrimaryKey
}

// NewNoPrimaryKeyError returns a NoPrimaryKeyError for the given entity.
func NewNoPrimaryKeyError(entity string) *NoPrimaryKeyError {
	return &NoPrimaryKeyError{entity: entity}
}
