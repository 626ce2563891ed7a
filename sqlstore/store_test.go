package sqlstore_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feliixx/mockbuilder/builder"
	"github.com/feliixx/mockbuilder/mock"
	"github.com/feliixx/mockbuilder/model"
	"github.com/feliixx/mockbuilder/sqlstore"
)

type Customer struct {
	ID      int
	Name    string `mock:"maxlen=20"`
	Email   *string `mock:"email,null=50"`
	Balance decimal.Decimal
	Token   uuid.UUID
	Joined  time.Time
	Timeout time.Duration
	Avatar  []byte
	Orders  []*Purchase
}

type Purchase struct {
	ID         int
	CustomerID int `db:"ref=Customer,column=customer_id,ondelete=cascade"`
	Amount     float64
	Code       [4]byte
}

func newModel(t *testing.T) *model.Model {
	t.Helper()
	m := model.New()
	_, err := model.Register[Customer](m)
	require.NoError(t, err)
	_, err = model.Register[Purchase](m)
	require.NoError(t, err)
	return m
}

func openSQLite(t *testing.T, m *model.Model) *sqlstore.Store {
	t.Helper()
	s, err := sqlstore.Open(sqlstore.SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background(), m))
	return s
}

func TestSQLiteCommit(t *testing.T) {
	ctx := context.Background()
	m := newModel(t)
	s := openSQLite(t, m)

	b := builder.New(m, builder.WithStore(s), builder.WithSeed(1))
	customers, err := builder.AddN[Customer](b, 3)
	require.NoError(t, err)
	for _, c := range customers {
		_, err := builder.AddRelatedN[Purchase](c, 2)
		require.NoError(t, err)
	}
	c, err := b.Build(ctx)
	require.NoError(t, err)

	customer, _ := m.Entity("Customer")
	purchase, _ := m.Entity("Purchase")
	n, err := s.Count(ctx, customer)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = s.Count(ctx, purchase)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	var name string
	err = s.DB().QueryRowContext(ctx, `SELECT "name" FROM "customers" WHERE "id" = ?`, customers[0].Entity.ID).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, customers[0].Entity.Name, name)

	require.NoError(t, c.Remove(customers[0].Entity))
	_, err = c.SaveChanges(ctx)
	require.NoError(t, err)

	n, err = s.Count(ctx, purchase)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestSQLiteForeignKeyRollback(t *testing.T) {
	ctx := context.Background()
	m := newModel(t)
	s := openSQLite(t, m)

	customer, _ := m.Entity("Customer")
	purchase, _ := m.Entity("Purchase")
	err := s.Commit(ctx, &mock.ChangeSet{
		Inserts: []mock.Batch{
			{Entity: customer, Values: []any{&Customer{ID: 1, Name: "john"}}},
			{Entity: purchase, Values: []any{&Purchase{ID: 1, CustomerID: 99}}},
		},
	})
	assert.Error(t, err)

	n, err := s.Count(ctx, customer)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCommitStatements(t *testing.T) {
	m := newModel(t)
	db, smock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := sqlstore.New(db, sqlstore.Postgres)

	customer, _ := m.Entity("Customer")
	purchase, _ := m.Entity("Purchase")
	joined := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	token := uuid.MustParse("7d444840-9dc0-11d1-b245-5ffdce74fad2")

	smock.ExpectBegin()
	smock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "purchases" WHERE "id" = $1`)).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	smock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "customers" ("id", "name", "email", "balance", "token", "joined", "timeout", "avatar") VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`)).
		WithArgs(int64(1), "john", nil, "12.5", token.String(), joined, int64(time.Minute), []byte{1}).
		WillReturnResult(sqlmock.NewResult(1, 1))
	smock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "purchases" ("id", "customer_id", "amount", "code") VALUES ($1, $2, $3, $4)`)).
		WithArgs(int64(1), int64(1), 9.5, []byte{1, 2, 3, 4}).
		WillReturnResult(sqlmock.NewResult(1, 1))
	smock.ExpectCommit()

	err = s.Commit(context.Background(), &mock.ChangeSet{
		Inserts: []mock.Batch{
			{Entity: customer, Values: []any{&Customer{
				ID:      1,
				Name:    "john",
				Balance: decimal.RequireFromString("12.5"),
				Token:   token,
				Joined:  joined,
				Timeout: time.Minute,
				Avatar:  []byte{1},
			}}},
			{Entity: purchase, Values: []any{&Purchase{ID: 1, CustomerID: 1, Amount: 9.5, Code: [4]byte{1, 2, 3, 4}}}},
		},
		Deletes: []mock.Batch{
			{Entity: purchase, Values: []any{&Purchase{ID: 7}}},
		},
	})
	require.NoError(t, err)
	require.NoError(t, smock.ExpectationsWereMet())
}

func TestCommitRollback(t *testing.T) {
	m := newModel(t)
	db, smock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := sqlstore.New(db, sqlstore.MySQL)

	failure := errors.New("connection reset")
	smock.ExpectBegin()
	smock.ExpectExec(regexp.QuoteMeta("INSERT INTO `purchases`")).WillReturnError(failure)
	smock.ExpectRollback()

	purchase, _ := m.Entity("Purchase")
	err = s.Commit(context.Background(), &mock.ChangeSet{
		Inserts: []mock.Batch{{Entity: purchase, Values: []any{&Purchase{ID: 1}}}},
	})
	assert.ErrorIs(t, err, failure)
	require.NoError(t, smock.ExpectationsWereMet())
}

func TestMigrateStatements(t *testing.T) {
	m := newModel(t)
	db, smock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := sqlstore.New(db, sqlstore.Postgres)

	smock.ExpectBegin()
	smock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "customers" ("id" BIGINT NOT NULL, "name" TEXT NOT NULL, "email" TEXT,`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	smock.ExpectExec(regexp.QuoteMeta(`FOREIGN KEY ("customer_id") REFERENCES "customers" ("id") ON DELETE CASCADE)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	smock.ExpectCommit()

	require.NoError(t, s.Migrate(context.Background(), m))
	require.NoError(t, smock.ExpectationsWereMet())
}

func TestParseDialect(t *testing.T) {
	dialectTests := []struct {
		in       string
		expected sqlstore.Dialect
	}{
		{in: "sqlite", expected: sqlstore.SQLite},
		{in: "SQLite3", expected: sqlstore.SQLite},
		{in: "postgresql", expected: sqlstore.Postgres},
		{in: "mysql", expected: sqlstore.MySQL},
	}
	for _, tt := range dialectTests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := sqlstore.ParseDialect(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
		})
	}
	_, err := sqlstore.ParseDialect("oracle")
	assert.Error(t, err)
}
