package mock_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feliixx/mockbuilder/mock"
	"github.com/feliixx/mockbuilder/model"
)

type User struct {
	ID   int
	Name string
}

type Order struct {
	ID     int
	UserID int `db:"ref=User"`
}

type Review struct {
	ID      int
	OrderID *int `db:"ref=Order"`
}

type Invoice struct {
	ID      int
	OrderID int `db:"ref=Order,ondelete=restrict"`
}

type Node struct {
	ID       int
	ParentID *int `db:"ref=Node,ondelete=cascade"`
}

type Log struct {
	Message string
}

func newModel(t *testing.T) *model.Model {
	t.Helper()
	m := model.New()
	for _, register := range []func(*model.Model, ...model.EntityOption) (*model.Entity, error){
		model.Register[User],
		model.Register[Order],
		model.Register[Review],
		model.Register[Invoice],
		model.Register[Node],
		model.Register[Log],
	} {
		_, err := register(m)
		require.NoError(t, err)
	}
	return m
}

func intPtr(i int) *int { return &i }

func TestAddAndSaveChanges(t *testing.T) {
	store := mock.NewMemoryStore()
	c := mock.NewContext(newModel(t), mock.WithStore(store))

	u := &User{ID: 1, Name: "john"}
	o := &Order{ID: 1, UserID: 1}
	// dependents first on purpose
	require.NoError(t, c.Add(o, u))

	entry, ok := c.Entry(u)
	require.True(t, ok)
	assert.Equal(t, mock.Added, entry.State)

	n, err := c.SaveChanges(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, mock.Unchanged, entry.State)
	assert.Equal(t, 1, store.Count("User"))
	assert.Equal(t, 1, store.Count("Order"))

	n, err = c.SaveChanges(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Equal(t, []*User{u}, mock.Set[User](c))
	found, ok := mock.Find[Order](c, 1)
	require.True(t, ok)
	assert.Same(t, o, found)
	_, ok = mock.Find[Order](c, 2)
	assert.False(t, ok)

	values, err := c.Query("Order")
	require.NoError(t, err)
	assert.Equal(t, []any{o}, values)
}

func TestAddErrors(t *testing.T) {
	c := mock.NewContext(newModel(t))

	err := c.Add(&Log{Message: "no key"})
	assert.ErrorIs(t, err, model.ErrNoPrimaryKey)

	type Unknown struct{ ID int }
	err = c.Add(&Unknown{ID: 1})
	assert.ErrorIs(t, err, model.ErrUnknownEntity)

	err = c.Add(User{ID: 1})
	assert.Error(t, err)
}

func TestDuplicateKey(t *testing.T) {
	c := mock.NewContext(newModel(t))
	require.NoError(t, c.Add(&User{ID: 1}, &User{ID: 1}))

	_, err := c.SaveChanges(context.Background())
	assert.ErrorIs(t, err, mock.ErrDuplicateKey)
	assert.True(t, mock.IsConstraintError(err))
}

func TestForeignKeyChecks(t *testing.T) {
	m := newModel(t)

	c := mock.NewContext(m)
	require.NoError(t, c.Add(&Order{ID: 1, UserID: 42}))
	_, err := c.SaveChanges(context.Background())
	assert.NoError(t, err)

	c = mock.NewContext(m, mock.WithForeignKeyChecks())
	require.NoError(t, c.Add(&Order{ID: 1, UserID: 42}))
	_, err = c.SaveChanges(context.Background())
	assert.ErrorIs(t, err, mock.ErrForeignKeyViolation)

	c = mock.NewContext(m, mock.WithForeignKeyChecks())
	require.NoError(t, c.Add(&Order{ID: 1, UserID: 42}, &User{ID: 42}, &Review{ID: 1}))
	_, err = c.SaveChanges(context.Background())
	assert.NoError(t, err)
}

func TestRemoveCascade(t *testing.T) {
	ctx := context.Background()
	store := mock.NewMemoryStore()
	c := mock.NewContext(newModel(t), mock.WithStore(store))

	u := &User{ID: 1}
	o1, o2 := &Order{ID: 1, UserID: 1}, &Order{ID: 2, UserID: 1}
	other := &Order{ID: 3, UserID: 2}
	r := &Review{ID: 1, OrderID: intPtr(1)}
	require.NoError(t, c.Add(u, &User{ID: 2}, o1, o2, other, r))
	_, err := c.SaveChanges(ctx)
	require.NoError(t, err)

	require.NoError(t, c.Remove(u))

	for _, v := range []any{u, o1, o2} {
		entry, ok := c.Entry(v)
		require.True(t, ok)
		assert.Equal(t, mock.Deleted, entry.State)
	}
	entry, _ := c.Entry(other)
	assert.Equal(t, mock.Unchanged, entry.State)
	// nullable foreign key without behavior is set to null
	assert.Nil(t, r.OrderID)

	n, err := c.SaveChanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, store.Count("User"))
	assert.Equal(t, 1, store.Count("Order"))
	_, ok := c.Entry(u)
	assert.False(t, ok)
	assert.ElementsMatch(t, []*Order{other}, mock.Set[Order](c))
}

func TestRemoveAddedDetaches(t *testing.T) {
	c := mock.NewContext(newModel(t))
	u := &User{ID: 1}
	require.NoError(t, c.Add(u))
	require.NoError(t, c.Remove(u))

	_, ok := c.Entry(u)
	assert.False(t, ok)
	assert.Empty(t, c.Entries())

	err := c.Remove(u)
	assert.ErrorIs(t, err, mock.ErrNotTracked)
}

func TestRemoveRestrict(t *testing.T) {
	c := mock.NewContext(newModel(t))
	u := &User{ID: 1}
	o := &Order{ID: 1, UserID: 1}
	i := &Invoice{ID: 1, OrderID: 1}
	require.NoError(t, c.Add(u, o, i))

	err := c.Remove(u)
	assert.ErrorIs(t, err, mock.ErrRestrictViolation)

	// nothing changed
	for _, v := range []any{u, o, i} {
		entry, ok := c.Entry(v)
		require.True(t, ok)
		assert.Equal(t, mock.Added, entry.State)
	}
}

func TestSelfReferenceOrder(t *testing.T) {
	var committed *mock.ChangeSet
	store := storeFunc(func(_ context.Context, cs *mock.ChangeSet) error {
		committed = cs
		return nil
	})
	c := mock.NewContext(newModel(t), mock.WithStore(store))

	leaf := &Node{ID: 3, ParentID: intPtr(2)}
	mid := &Node{ID: 2, ParentID: intPtr(1)}
	root := &Node{ID: 1}
	require.NoError(t, c.Add(leaf, mid, root))
	_, err := c.SaveChanges(context.Background())
	require.NoError(t, err)

	require.Len(t, committed.Inserts, 1)
	assert.Equal(t, []any{root, mid, leaf}, committed.Inserts[0].Values)

	require.NoError(t, c.Remove(root))
	for _, v := range []any{root, mid, leaf} {
		entry, _ := c.Entry(v)
		assert.Equal(t, mock.Deleted, entry.State)
	}
}

func TestChangeSetOrder(t *testing.T) {
	var committed *mock.ChangeSet
	store := storeFunc(func(_ context.Context, cs *mock.ChangeSet) error {
		committed = cs
		return nil
	})
	c := mock.NewContext(newModel(t), mock.WithStore(store))

	u := &User{ID: 1}
	o := &Order{ID: 1, UserID: 1}
	require.NoError(t, c.Add(o, u))
	_, err := c.SaveChanges(context.Background())
	require.NoError(t, err)

	require.Len(t, committed.Inserts, 2)
	assert.Equal(t, "User", committed.Inserts[0].Entity.Name)
	assert.Equal(t, "Order", committed.Inserts[1].Entity.Name)

	require.NoError(t, c.Remove(u))
	_, err = c.SaveChanges(context.Background())
	require.NoError(t, err)
	require.Len(t, committed.Deletes, 2)
	assert.Equal(t, "Order", committed.Deletes[0].Entity.Name)
	assert.Equal(t, "User", committed.Deletes[1].Entity.Name)
}

func TestCommitError(t *testing.T) {
	failure := errors.New("disk full")
	c := mock.NewContext(newModel(t), mock.WithStore(storeFunc(func(context.Context, *mock.ChangeSet) error {
		return failure
	})))
	u := &User{ID: 1}
	require.NoError(t, c.Add(u))

	_, err := c.SaveChanges(context.Background())
	assert.ErrorIs(t, err, failure)
	entry, _ := c.Entry(u)
	assert.Equal(t, mock.Added, entry.State)
}

func TestMemoryStoreDuplicate(t *testing.T) {
	m := newModel(t)
	store := mock.NewMemoryStore()

	first := mock.NewContext(m, mock.WithStore(store))
	require.NoError(t, first.Add(&User{ID: 1}))
	_, err := first.SaveChanges(context.Background())
	require.NoError(t, err)

	second := mock.NewContext(m, mock.WithStore(store))
	require.NoError(t, second.Add(&User{ID: 1}))
	_, err = second.SaveChanges(context.Background())
	assert.ErrorIs(t, err, mock.ErrDuplicateKey)

	v, err := store.Get("User", 1)
	require.NoError(t, err)
	assert.Equal(t, &User{ID: 1}, v)
}

func TestRecords(t *testing.T) {
	m := model.New()
	_, err := m.Define("Tag",
		model.Field{Name: "name", Kind: model.KindString, Key: true},
	)
	require.NoError(t, err)
	c := mock.NewContext(m)

	r := model.NewRecord("Tag")
	r.Set("name", "go")
	require.NoError(t, c.Add(r))

	values, err := c.Query("Tag")
	require.NoError(t, err)
	assert.Equal(t, []any{r}, values)
	_, err = c.Query("Missing")
	assert.ErrorIs(t, err, model.ErrUnknownEntity)
}

type storeFunc func(ctx context.Context, cs *mock.ChangeSet) error

func (f storeFunc) Commit(ctx context.Context, cs *mock.ChangeSet) error { return f(ctx, cs) }
