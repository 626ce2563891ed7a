package mock

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateKey is returned by SaveChanges when two tracked
	// instances of an entity share the same primary key.
	ErrDuplicateKey = errors.New("mockbuilder: duplicate primary key")

	// ErrForeignKeyViolation is returned by SaveChanges, when foreign key
	// checks are enabled, for a foreign key matching no principal.
	ErrForeignKeyViolation = errors.New("mockbuilder: foreign key violation")

	// ErrRestrictViolation is returned by Remove when a dependent with a
	// restrict delete behavior still references the removed instance.
	ErrRestrictViolation = errors.New("mockbuilder: delete restricted by dependent")

	// ErrNotTracked is returned when an instance is not tracked by the
	// context.
	ErrNotTracked = errors.New("mockbuilder: instance not tracked")
)

// ConstraintError is returned when a change would break a key or a
// foreign key constraint.
type ConstraintError struct {
	entity string
	key    string
	msg    string
	kind   error
}

// Error returns the error string.
func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%v: %s with key %s, %s", e.kind, e.entity, e.key, e.msg)
}

// Is reports whether the target error matches the violated constraint.
func (e *ConstraintError) Is(err error) bool {
	return err == e.kind
}

// Entity returns the name of the entity of the offending instance.
func (e *ConstraintError) Entity() string {
	return e.entity
}

// Key returns the formatted primary key of the offending instance.
func (e *ConstraintError) Key() string {
	return e.key
}

// IsConstraintError returns true if the error is a ConstraintError.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConstraintError
	return errors.As(err, &e)
}
