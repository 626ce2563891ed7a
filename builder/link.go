package builder

import (
	"fmt"

	"github.com/feliixx/mockbuilder/model"
)

// Link copies a value from a parent instance to a child instance, usually
// the parent key into a child foreign key.
type Link[P, C any] struct {
	// closure link
	apply func(parent *P, child *C)
	// named link
	parentProp string
	childProp  string
}

// Via links parent and child with a getter on the parent and a setter on
// the child:
//
//	builder.Via(func(u *User) int { return u.ID }, func(o *Order, id int) { o.UserID = id })
func Via[P, C, K any](key func(parent *P) K, fk func(child *C, key K)) Link[P, C] {
	return Link[P, C]{
		apply: func(parent *P, child *C) {
			fk(child, key(parent))
		},
	}
}

// On links the property parentProp of the parent to the property
// childProp of the child. Both have to be scalar properties, otherwise
// relating fails with ErrInvalidSelector.
func On[P, C any](parentProp, childProp string) Link[P, C] {
	return Link[P, C]{
		parentProp: parentProp,
		childProp:  childProp,
	}
}

// resolve returns the function applying the link
func (l Link[P, C]) resolve(parentEntity, childEntity *model.Entity) (func(parent, child any) error, error) {
	if l.apply != nil {
		return func(parent, child any) error {
			l.apply(parent.(*P), child.(*C))
			return nil
		}, nil
	}
	from, err := selector(parentEntity, l.parentProp)
	if err != nil {
		return nil, err
	}
	to, err := selector(childEntity, l.childProp)
	if err != nil {
		return nil, err
	}
	return func(parent, child any) error {
		return to.Set(child, from.Get(parent))
	}, nil
}

func selector(e *model.Entity, name string) (*model.Property, error) {
	p, err := e.Property(name)
	if err != nil || !p.Kind.Scalar() {
		return nil, fmt.Errorf("%w: '%s' is not a scalar property of %s", ErrInvalidSelector, name, e.Name)
	}
	return p, nil
}
