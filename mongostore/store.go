// Package mongostore commits mock changes to a MongoDB database. Each
// entity is stored in the collection named after Entity.Table.
package mongostore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/feliixx/mockbuilder/mock"
	"github.com/feliixx/mockbuilder/model"
)

const defaultTimeout = 10 * time.Second

// Store is a mock.Store writing to a MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect connects to the server at uri and checks that the primary is
// reachable.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(defaultTimeout).
		SetServerSelectionTimeout(defaultTimeout).
		SetRetryWrites(false)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connection failed\n  cause: %v", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("connection failed\n  cause: %v", err)
	}
	return &Store{client: client, db: client.Database(database)}, nil
}

// New returns a Store writing to db.
func New(db *mongo.Database) *Store {
	return &Store{client: db.Client(), db: db}
}

// Database returns the database the store writes to.
func (s *Store) Database() *mongo.Database { return s.db }

// ServerVersion returns the version of the server, as reported by the
// buildInfo command.
func (s *Store) ServerVersion(ctx context.Context) (string, error) {
	var buildInfo struct {
		Version string
	}
	err := s.client.Database("admin").RunCommand(ctx, bson.M{"buildInfo": 1}).Decode(&buildInfo)
	if err != nil {
		return "", err
	}
	return buildInfo.Version, nil
}

// Drop drops the collection of every entity of m.
func (s *Store) Drop(ctx context.Context, m *model.Model) error {
	for _, e := range m.Entities() {
		if err := s.db.Collection(e.Table).Drop(ctx); err != nil {
			return fmt.Errorf("fail to drop collection '%s'\n  cause: %v", e.Table, err)
		}
	}
	return nil
}

// Commit implements mock.Store. Dependents are deleted first, then
// principals are inserted first. MongoDB standalone servers don't support
// transactions: a failed commit may be partially applied.
func (s *Store) Commit(ctx context.Context, cs *mock.ChangeSet) error {
	for _, b := range cs.Deletes {
		ids := make(bson.A, len(b.Values))
		for i, v := range b.Values {
			id, err := documentID(b.Entity, v)
			if err != nil {
				return err
			}
			ids[i] = id
		}
		_, err := s.db.Collection(b.Entity.Table).DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
		if err != nil {
			return fmt.Errorf("exception occurred during delete in '%s'\n  cause: %w", b.Entity.Table, err)
		}
	}
	for _, b := range cs.Inserts {
		docs := make([]any, len(b.Values))
		for i, v := range b.Values {
			doc, err := Document(b.Entity, v)
			if err != nil {
				return err
			}
			docs[i] = doc
		}
		if len(docs) == 0 {
			continue
		}
		if _, err := s.db.Collection(b.Entity.Table).InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("exception occurred during bulk insert in '%s'\n  cause: %w", b.Entity.Table, err)
		}
	}
	return nil
}

// Count returns the number of documents in the collection of e.
func (s *Store) Count(ctx context.Context, e *model.Entity) (int64, error) {
	return s.db.Collection(e.Table).CountDocuments(ctx, bson.D{})
}

// Stats holds the collection statistics printed by the CLI.
type Stats struct {
	Count      int    `bson:"count"`
	AvgObjSize int    `bson:"avgObjSize"`
	IndexSizes bson.M `bson:"indexSizes"`
}

// Indexes formats the index sizes, one index per line.
func (st *Stats) Indexes() string {
	indexes := make([]string, 0, len(st.IndexSizes))
	for name, size := range st.IndexSizes {
		indexes = append(indexes, fmt.Sprintf("%s  %v kB", name, size))
	}
	return strings.Join(indexes, "\n")
}

// Stats returns the statistics of the collection of e, sizes in kB.
func (s *Store) Stats(ctx context.Context, e *model.Entity) (*Stats, error) {
	var stats Stats
	err := s.db.RunCommand(ctx, bson.D{
		{Key: "collStats", Value: e.Table},
		{Key: "scale", Value: 1024},
	}).Decode(&stats)
	if err != nil {
		return nil, fmt.Errorf("fail to parse stats result\n  cause: %v", err)
	}
	return &stats, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}
