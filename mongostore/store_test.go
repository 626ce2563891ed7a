package mongostore_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/feliixx/mockbuilder/builder"
	"github.com/feliixx/mockbuilder/model"
	"github.com/feliixx/mockbuilder/mongostore"
)

type Customer struct {
	ID      int
	Name    string
	Email   *string
	Token   uuid.UUID
	Balance decimal.Decimal
	Timeout time.Duration
	Code    [2]byte
	Rank    uint16
	Orders  []*Invoice
}

type Invoice struct {
	ID         int
	CustomerID int `db:"ref=Customer,ondelete=cascade"`
	Amount     float32
}

type Membership struct {
	UserID  int `db:"pk"`
	GroupID int `db:"pk"`
	Role    string
}

func newModel(t *testing.T) *model.Model {
	t.Helper()
	m := model.New()
	for _, register := range []func(*model.Model, ...model.EntityOption) (*model.Entity, error){
		model.Register[Customer],
		model.Register[Invoice],
		model.Register[Membership],
	} {
		_, err := register(m)
		require.NoError(t, err)
	}
	return m
}

func TestDocument(t *testing.T) {
	m := newModel(t)
	customer, _ := m.Entity("Customer")

	token := uuid.MustParse("7d444840-9dc0-11d1-b245-5ffdce74fad2")
	balance, err := primitive.ParseDecimal128("12.5")
	require.NoError(t, err)

	doc, err := mongostore.Document(customer, &Customer{
		ID:      3,
		Name:    "john",
		Token:   token,
		Balance: decimal.RequireFromString("12.50"),
		Timeout: time.Second,
		Code:    [2]byte{1, 2},
		Rank:    7,
	})
	require.NoError(t, err)

	expected := bson.D{
		{Key: "_id", Value: int64(3)},
		{Key: "name", Value: "john"},
		{Key: "email", Value: nil},
		{Key: "token", Value: primitive.Binary{Subtype: 0x04, Data: token[:]}},
		{Key: "balance", Value: balance},
		{Key: "timeout", Value: int64(time.Second)},
		{Key: "code", Value: []byte{1, 2}},
		{Key: "rank", Value: int64(7)},
	}
	assert.Equal(t, expected, doc)
}

func TestDocumentCompositeKey(t *testing.T) {
	m := newModel(t)
	membership, _ := m.Entity("Membership")

	doc, err := mongostore.Document(membership, &Membership{UserID: 1, GroupID: 2, Role: "admin"})
	require.NoError(t, err)

	expected := bson.D{
		{Key: "_id", Value: bson.D{
			{Key: "user_id", Value: int64(1)},
			{Key: "group_id", Value: int64(2)},
		}},
		{Key: "user_id", Value: int64(1)},
		{Key: "group_id", Value: int64(2)},
		{Key: "role", Value: "admin"},
	}
	assert.Equal(t, expected, doc)
}

func TestDocumentRecord(t *testing.T) {
	m := model.New()
	tag, err := m.Define("Tag",
		model.Field{Name: "id", Kind: model.KindInt, Key: true},
		model.Field{Name: "label", Kind: model.KindString},
	)
	require.NoError(t, err)

	r := model.NewRecord("Tag")
	r.Set("label", "go")
	r.Set("id", int64(9))

	doc, err := mongostore.Document(tag, r)
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "_id", Value: int64(9)}, {Key: "label", Value: "go"}}, doc)
}

func TestCommit(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp"),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	uri, err := container.PortEndpoint(ctx, "27017/tcp", "mongodb")
	require.NoError(t, err)

	store, err := mongostore.Connect(ctx, uri, "mockbuilder")
	require.NoError(t, err)
	defer store.Close(ctx)

	m := newModel(t)
	b := builder.New(m, builder.WithStore(store), builder.WithSeed(5))
	customers, err := builder.AddN[Customer](b, 2)
	require.NoError(t, err)
	_, err = builder.AddRelatedN[Invoice](customers[0], 3)
	require.NoError(t, err)

	c, err := b.Build(ctx)
	require.NoError(t, err)

	customer, _ := m.Entity("Customer")
	invoice, _ := m.Entity("Invoice")
	n, err := store.Count(ctx, customer)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var got bson.M
	err = store.Database().Collection(invoice.Table).FindOne(ctx, bson.M{}).Decode(&got)
	require.NoError(t, err)
	assert.Equal(t, int64(customers[0].Entity.ID), got["customer_id"])

	require.NoError(t, c.Remove(customers[0].Entity))
	_, err = c.SaveChanges(ctx)
	require.NoError(t, err)

	n, err = store.Count(ctx, invoice)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = store.Count(ctx, customer)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
