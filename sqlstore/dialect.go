package sqlstore

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/feliixx/mockbuilder/model"
)

// Dialect is the SQL flavor of a database.
type Dialect string

// supported dialects
const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
)

// ParseDialect returns the dialect named s.
func ParseDialect(s string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(s)); d {
	case SQLite, Postgres, MySQL:
		return d, nil
	case "sqlite3":
		return SQLite, nil
	case "postgresql":
		return Postgres, nil
	}
	return "", fmt.Errorf("unsupported dialect '%s', should be one of sqlite | postgres | mysql", s)
}

// driver returns the name of the database/sql driver of the dialect
func (d Dialect) driver() string {
	return string(d)
}

func (d Dialect) quote(name string) string {
	if d == MySQL {
		return "`" + name + "`"
	}
	return `"` + name + `"`
}

func (d Dialect) placeholder(i int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(i)
	}
	return "?"
}

// columnType returns the column type of a scalar property
func (d Dialect) columnType(p *model.Property) string {
	switch p.Kind {
	case model.KindBool:
		return "BOOLEAN"
	case model.KindInt:
		if p.Bits > 0 && p.Bits <= 32 {
			return "INTEGER"
		}
		return "BIGINT"
	case model.KindUint:
		switch d {
		case Postgres:
			return "NUMERIC(20, 0)"
		case MySQL:
			return "BIGINT UNSIGNED"
		}
		return "INTEGER"
	case model.KindFloat:
		if p.Bits == 32 {
			return "REAL"
		}
		if d == SQLite {
			return "REAL"
		}
		return "DOUBLE PRECISION"
	case model.KindDecimal:
		if d == SQLite {
			return "TEXT"
		}
		return fmt.Sprintf("DECIMAL(38, %d)", p.Constraints.Places())
	case model.KindString:
		return d.textType(p)
	case model.KindTime, model.KindTimeOffset:
		switch d {
		case Postgres:
			return "TIMESTAMP WITH TIME ZONE"
		case MySQL:
			return "DATETIME(6)"
		}
		return "TIMESTAMP"
	case model.KindDuration:
		return "BIGINT"
	case model.KindUUID:
		switch d {
		case Postgres:
			return "UUID"
		case MySQL:
			return "CHAR(36)"
		}
		return "TEXT"
	case model.KindBytes:
		if d == Postgres {
			return "BYTEA"
		}
		return "BLOB"
	case model.KindEnum:
		if len(p.Enum) > 0 {
			switch reflect.ValueOf(p.Enum[0]).Kind() {
			case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
				reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
				return "BIGINT"
			}
		}
		return d.textType(p)
	}
	return "TEXT"
}

// mysql can't index TEXT columns
func (d Dialect) textType(p *model.Property) string {
	if d != MySQL {
		return "TEXT"
	}
	_, max := p.Constraints.LengthBounds()
	if max < 255 {
		max = 255
	}
	return fmt.Sprintf("VARCHAR(%d)", max)
}

func (d Dialect) onDelete(b model.DeleteBehavior, nullable bool) string {
	switch b {
	case model.DeleteCascade:
		return "CASCADE"
	case model.DeleteSetNull:
		return "SET NULL"
	case model.DeleteRestrict:
		return "RESTRICT"
	}
	if nullable {
		return "SET NULL"
	}
	return "CASCADE"
}
