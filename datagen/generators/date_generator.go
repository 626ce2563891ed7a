package generators

import (
	"time"

	"github.com/feliixx/mockbuilder/model"
)

// Generator for creating random date within the last `years` years
type dateGenerator struct {
	base
	startDate int64
	delta     uint64
	offset    bool
}

func newDateGenerator(prop *model.Property, base base) (Generator, error) {
	end := base.now.Truncate(time.Second)
	start := end.AddDate(-prop.Constraints.Years(), 0, 0)
	return &dateGenerator{
		base:      base,
		startDate: start.Unix(),
		delta:     uint64(end.Unix() - start.Unix()),
		offset:    prop.Kind == model.KindTimeOffset,
	}, nil
}

// offsets are multiples of 15 minutes in [-12h, +14h]
const (
	quarterHour     = 15 * 60
	minOffsetQuarts = -48
	offsetQuarts    = 48 + 56 + 1
)

func (g *dateGenerator) Value() any {
	// dates are not evenly distributed
	t := time.Unix(g.startDate+int64(g.pcg64.Bounded(g.delta+1)), 0).UTC()
	if !g.offset {
		return t
	}
	seconds := (int(g.pcg32.Bounded(offsetQuarts)) + minOffsetQuarts) * quarterHour
	return t.In(time.FixedZone("", seconds))
}

// Generator for creating random duration within bounds, with a one
// second precision
type durationGenerator struct {
	base
	min   int64
	delta uint64
}

func newDurationGenerator(prop *model.Property, base base) (Generator, error) {
	min, max := int64(0), int64(model.DefaultMaxDuration/time.Second)
	if prop.Constraints.HasRange {
		lo, hi := prop.Constraints.Bounds(prop.Kind, prop.Bits)
		min, max = toInt64(lo), toInt64(hi)
	}
	if min == max {
		return newConstantGenerator(base, time.Duration(min)*time.Second)
	}
	return &durationGenerator{
		base:  base,
		min:   min,
		delta: uint64(max - min),
	}, nil
}

func (g *durationGenerator) Value() any {
	return time.Duration(g.min+int64(g.pcg64.Bounded(g.delta+1))) * time.Second
}
