// Package sqlstore commits mock changes to a SQL database.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/feliixx/mockbuilder/mock"
	"github.com/feliixx/mockbuilder/model"
)

// Store is a mock.Store writing to a SQL database. Tables are named after
// Entity.Table and columns after Property.Column.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open opens a database with the driver of the dialect. SQLite databases
// use a single connection, so that in-memory databases are shared, and
// foreign keys are enforced.
func Open(dialect Dialect, dsn string) (*Store, error) {
	db, err := sql.Open(dialect.driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", dialect, err)
	}
	if dialect == SQLite {
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
		}
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s db: %w", dialect, err)
	}
	return New(db, dialect), nil
}

// New returns a Store using an open database.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// DB returns the underlying database.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate creates the table of every entity of m, principals first.
func (s *Store) Migrate(ctx context.Context, m *model.Model) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, e := range m.Sorted() {
			stmt, err := s.createTable(m, e)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("create table %s: %w", e.Table, err)
			}
		}
		return nil
	})
}

func (s *Store) createTable(m *model.Model, e *model.Entity) (string, error) {
	var defs []string
	for _, p := range columns(e) {
		def := s.dialect.quote(p.Column) + " " + s.dialect.columnType(p)
		if !p.Nullable {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	if len(e.Key) > 0 {
		keys, err := e.KeyProperties()
		if err != nil {
			return "", err
		}
		defs = append(defs, "PRIMARY KEY ("+s.columnList(keys)+")")
	}
	for _, fk := range e.ForeignKeys {
		principal, keyProps, err := m.PrincipalKey(fk)
		if err != nil {
			return "", fmt.Errorf("for entity %s, %w", e.Name, err)
		}
		fkProps := make([]*model.Property, len(fk.Properties))
		for i, name := range fk.Properties {
			if fkProps[i], err = e.Property(name); err != nil {
				return "", err
			}
		}
		defs = append(defs, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE %s",
			s.columnList(fkProps),
			s.dialect.quote(principal.Table),
			s.columnList(keyProps),
			s.dialect.onDelete(fk.OnDelete, e.IsNullable(fk)),
		))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", s.dialect.quote(e.Table), strings.Join(defs, ", ")), nil
}

// columns returns the properties stored in a column
func columns(e *model.Entity) []*model.Property {
	props := make([]*model.Property, 0, len(e.Properties))
	for _, p := range e.Properties {
		if p.Kind.Scalar() && p.Column != "" {
			props = append(props, p)
		}
	}
	return props
}

func (s *Store) columnList(props []*model.Property) string {
	names := make([]string, len(props))
	for i, p := range props {
		names[i] = s.dialect.quote(p.Column)
	}
	return strings.Join(names, ", ")
}

// Commit implements mock.Store. Deletes run before inserts, in a single
// transaction.
func (s *Store) Commit(ctx context.Context, cs *mock.ChangeSet) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, b := range cs.Deletes {
			if err := s.delete(ctx, tx, b); err != nil {
				return err
			}
		}
		for _, b := range cs.Inserts {
			if err := s.insert(ctx, tx, b); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) insert(ctx context.Context, tx *sql.Tx, b mock.Batch) error {
	props := columns(b.Entity)
	placeholders := make([]string, len(props))
	for i := range props {
		placeholders[i] = s.dialect.placeholder(i + 1)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.dialect.quote(b.Entity.Table),
		s.columnList(props),
		strings.Join(placeholders, ", "),
	)
	for _, v := range b.Values {
		args := make([]any, len(props))
		for i, p := range props {
			args[i] = normalize(p.Get(v))
		}
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("insert into %s: %w", b.Entity.Table, err)
		}
	}
	return nil
}

func (s *Store) delete(ctx context.Context, tx *sql.Tx, b mock.Batch) error {
	keys, err := b.Entity.KeyProperties()
	if err != nil {
		return err
	}
	conds := make([]string, len(keys))
	for i, p := range keys {
		conds[i] = s.dialect.quote(p.Column) + " = " + s.dialect.placeholder(i+1)
	}
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s", s.dialect.quote(b.Entity.Table), strings.Join(conds, " AND "))
	for _, v := range b.Values {
		args := make([]any, len(keys))
		for i, p := range keys {
			args[i] = normalize(p.Get(v))
		}
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("delete from %s: %w", b.Entity.Table, err)
		}
	}
	return nil
}

// Count returns the number of rows in the table of e.
func (s *Store) Count(ctx context.Context, e *model.Entity) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.dialect.quote(e.Table)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", e.Table, err)
	}
	return n, nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return fmt.Errorf("%w\n  rollback failed: %v", err, rerr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// normalize converts a property value to a type every driver accepts
func normalize(v any) any {
	switch v := v.(type) {
	case nil:
		return nil
	case time.Time, []byte, string, bool, int64, float64:
		return v
	case time.Duration:
		return int64(v)
	case decimal.Decimal:
		return v.String()
	case uuid.UUID:
		return v.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if u := rv.Uint(); u > math.MaxInt64 {
			return fmt.Sprint(u)
		}
		return int64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return b
		}
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return rv.Bytes()
		}
	}
	return fmt.Sprint(v)
}
