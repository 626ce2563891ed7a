package model

import (
	"fmt"
	"strconv"
	"strings"
)

// parseMockTag parses a `mock:"..."` struct tag. Options are comma
// separated, for instance `mock:"required,maxlen=50,email"`.
func parseMockTag(tag string) (c Constraints, offset bool, err error) {
	if tag == "" {
		return c, false, nil
	}
	if tag == "-" {
		c.Skip = true
		return c, false, nil
	}
	for _, opt := range strings.Split(tag, ",") {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			continue
		}
		name, value, _ := strings.Cut(opt, "=")
		switch name {
		case "required":
			c.Required = true
		case "email":
			c.Format = FormatEmail
		case "url":
			c.Format = FormatURL
		case "phone":
			c.Format = FormatPhone
		case "offset":
			offset = true
		case "minlen":
			c.MinLength, err = parseInt(name, value)
		case "maxlen":
			c.MaxLength, err = parseInt(name, value)
		case "strlen":
			c.StrLenMin, c.StrLenMax, err = parseIntRange(name, value)
		case "range":
			c.HasRange = true
			c.Min, c.Max, err = parseFloatRange(name, value)
		case "null":
			c.NullPercentage, err = parseInt(name, value)
			if err == nil && c.NullPercentage > 100 {
				err = fmt.Errorf("'%s' has to be between 0 and 100", name)
			}
		case "past":
			c.PastYears, err = parseInt(name, value)
		case "scale":
			c.Scale, err = parseInt(name, value)
		case "faker":
			if value == "" {
				err = fmt.Errorf("'%s' requires a method name", name)
			}
			c.Faker = value
		case "oneof":
			if value == "" {
				err = fmt.Errorf("'%s' requires at least one value", name)
			}
			c.OneOf = strings.Split(value, "|")
		default:
			err = fmt.Errorf("unknown option '%s'", name)
		}
		if err != nil {
			return c, false, err
		}
	}
	if c.MinLength > 0 && c.MaxLength > 0 && c.MinLength > c.MaxLength {
		return c, false, fmt.Errorf("make sure that 'maxlen' >= 'minlen'")
	}
	if c.HasRange && c.Min > c.Max {
		return c, false, fmt.Errorf("make sure that range max >= range min")
	}
	return c, offset, nil
}

func parseInt(name, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid value for '%s': '%s'", name, value)
	}
	return n, nil
}

// parseIntRange parses "MIN..MAX" or "MAX"
func parseIntRange(name, value string) (min, max int, err error) {
	lo, hi, ok := strings.Cut(value, "..")
	if !ok {
		max, err = parseInt(name, value)
		return 0, max, err
	}
	if min, err = parseInt(name, lo); err != nil {
		return 0, 0, err
	}
	if max, err = parseInt(name, hi); err != nil {
		return 0, 0, err
	}
	if max < min {
		return 0, 0, fmt.Errorf("make sure that '%s' max >= min", name)
	}
	return min, max, nil
}

func parseFloatRange(name, value string) (min, max float64, err error) {
	lo, hi, ok := strings.Cut(value, "..")
	if !ok {
		return 0, 0, fmt.Errorf("invalid value for '%s': '%s', expected MIN..MAX", name, value)
	}
	if min, err = strconv.ParseFloat(lo, 64); err != nil {
		return 0, 0, fmt.Errorf("invalid value for '%s': '%s'", name, lo)
	}
	if max, err = strconv.ParseFloat(hi, 64); err != nil {
		return 0, 0, fmt.Errorf("invalid value for '%s': '%s'", name, hi)
	}
	return min, max, nil
}

// dbTag holds the options of a `db:"..."` struct tag
type dbTag struct {
	skip     bool
	key      bool
	column   string
	ref      string
	onDelete DeleteBehavior
}

// parseDBTag parses a `db:"..."` struct tag, for instance
// `db:"ref=User.ID,ondelete=cascade"`.
func parseDBTag(tag string) (t dbTag, err error) {
	if tag == "-" {
		t.skip = true
		return t, nil
	}
	for _, opt := range strings.Split(tag, ",") {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			continue
		}
		name, value, _ := strings.Cut(opt, "=")
		switch name {
		case "pk":
			t.key = true
		case "column":
			t.column = value
		case "ref":
			if value == "" {
				return t, fmt.Errorf("'ref' requires a principal entity")
			}
			t.ref = value
		case "ondelete":
			t.onDelete, err = ParseDeleteBehavior(value)
			if err != nil {
				return t, err
			}
		default:
			return t, fmt.Errorf("unknown option '%s'", name)
		}
	}
	return t, nil
}
