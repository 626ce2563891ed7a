package builder

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRelationship is returned when two entities are related but no
	// foreign key links them, in either direction.
	ErrNoRelationship = errors.New("mockbuilder: no relationship found between entities")

	// ErrAmbiguousRelationship is returned when more than one foreign key
	// could link two entities. Use Via or On to pick one.
	ErrAmbiguousRelationship = errors.New("mockbuilder: ambiguous relationship between entities")

	// ErrInvalidSelector is returned by On for a name that is not a scalar
	// property of the entity.
	ErrInvalidSelector = errors.New("mockbuilder: invalid property selector")
)

// RelationshipError is returned when the foreign key between a parent
// and a child can't be inferred.
type RelationshipError struct {
	parent     string
	child      string
	candidates int
}

// Error returns the error string.
func (e *RelationshipError) Error() string {
	if e.candidates == 0 {
		return fmt.Sprintf("mockbuilder: no relationship found between %s and %s", e.parent, e.child)
	}
	return fmt.Sprintf("mockbuilder: ambiguous relationship between %s and %s, %d foreign keys match", e.parent, e.child, e.candidates)
}

// Is reports whether the target error matches ErrNoRelationship or
// ErrAmbiguousRelationship.
func (e *RelationshipError) Is(err error) bool {
	if e.candidates == 0 {
		return err == ErrNoRelationship
	}
	return err == ErrAmbiguousRelationship
}

// Parent returns the name of the parent entity.
func (e *RelationshipError) Parent() string { return e.parent }

// Child returns the name of the child entity.
func (e *RelationshipError) Child() string { return e.child }

// IsRelationshipError returns true if the error is a RelationshipError.
func IsRelationshipError(err error) bool {
	if err == nil {
		return false
	}
	var e *RelationshipError
	return errors.As(err, &e)
}
