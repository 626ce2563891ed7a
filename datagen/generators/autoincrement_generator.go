package generators

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/feliixx/mockbuilder/model"
)

var (
	// ErrNoSyntheticKey is returned by NewSequence for a property that
	// can't hold a unique synthetic key.
	ErrNoSyntheticKey = errors.New("mockbuilder: can't generate synthetic keys for this property")

	// ErrKeySpaceExhausted is returned by a Sequence once every value
	// its property can hold was generated.
	ErrKeySpaceExhausted = errors.New("mockbuilder: synthetic key space exhausted")
)

// Sequence generates the unique values of a key property.
type Sequence interface {
	// Next returns a key that was never returned before.
	Next() (any, error)
}

const uuidLength = 36

// NewSequence returns the Sequence of a key property: integers count from
// 1, uuids get random version 4 uuids. Strings get a uuid when their length
// bounds allow it, a zero padded base 36 counter otherwise.
func NewSequence(prop *model.Property, src *Source) (Sequence, error) {
	base := newBase(prop, src)
	switch prop.Kind {
	case model.KindInt:
		_, hi := model.TypeBounds(prop.Kind, prop.Bits)
		return &autoIncrementIntGenerator{name: prop.Name, counter: 1, last: toInt64(hi)}, nil
	case model.KindUint:
		_, hi := model.TypeBounds(prop.Kind, prop.Bits)
		return &autoIncrementUintGenerator{name: prop.Name, counter: 1, last: toUint64(hi)}, nil
	case model.KindUUID:
		g, err := newUUIDGenerator(prop, base)
		if err != nil {
			return nil, err
		}
		return generatorSequence{g}, nil
	case model.KindString:
		min, max := prop.Constraints.LengthBounds()
		if min <= uuidLength && uuidLength <= max {
			return generatorSequence{&uuidStringGenerator{reader: pcgReader{base.pcg32}}}, nil
		}
		width := max
		if min > uuidLength {
			width = min
		}
		if width < 1 {
			return nil, fmt.Errorf("%w: %s has a max length of %d", ErrNoSyntheticKey, prop.Name, max)
		}
		return &counterStringGenerator{name: prop.Name, counter: 1, width: width}, nil
	}
	return nil, fmt.Errorf("%w: %s has kind %s", ErrNoSyntheticKey, prop.Name, prop.Kind)
}

func exhausted(name string) error {
	return fmt.Errorf("%w for %s", ErrKeySpaceExhausted, name)
}

type generatorSequence struct {
	g Generator
}

func (s generatorSequence) Next() (any, error) {
	return s.g.Value(), nil
}

// Generator for creating auto-incremented int64 up to `last`
type autoIncrementIntGenerator struct {
	name    string
	counter int64
	last    int64
	done    bool
}

func (g *autoIncrementIntGenerator) Next() (any, error) {
	if g.done {
		return nil, exhausted(g.name)
	}
	v := g.counter
	if v == g.last {
		g.done = true
	} else {
		g.counter++
	}
	return v, nil
}

// Generator for creating auto-incremented uint64 up to `last`
type autoIncrementUintGenerator struct {
	name    string
	counter uint64
	last    uint64
	done    bool
}

func (g *autoIncrementUintGenerator) Next() (any, error) {
	if g.done {
		return nil, exhausted(g.name)
	}
	v := g.counter
	if v == g.last {
		g.done = true
	} else {
		g.counter++
	}
	return v, nil
}

// Generator for creating auto-incremented base 36 strings of `width` chars
type counterStringGenerator struct {
	name    string
	counter uint64
	width   int
}

func (g *counterStringGenerator) Next() (any, error) {
	if g.counter == 0 {
		return nil, exhausted(g.name)
	}
	s := strconv.FormatUint(g.counter, 36)
	if len(s) > g.width {
		return nil, exhausted(g.name)
	}
	if g.counter == math.MaxUint64 {
		g.counter = 0
	} else {
		g.counter++
	}
	return strings.Repeat("0", g.width-len(s)) + s, nil
}

// Generator for creating random uuid as string
type uuidStringGenerator struct {
	reader pcgReader
}

func (g *uuidStringGenerator) Value() any {
	u, _ := uuid.NewRandomFromReader(g.reader)
	return u.String()
}
