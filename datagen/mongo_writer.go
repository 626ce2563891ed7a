package datagen

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/feliixx/mockbuilder/model"
	"github.com/feliixx/mockbuilder/mongostore"
)

// mongoWriter writes instances to a mongodb database, one collection per
// entity
type mongoWriter struct {
	*mongostore.Store
	logger io.Writer
	append bool
}

func newMongoWriter(ctx context.Context, options *Options, logger io.Writer) (writer, error) {
	fmt.Fprintf(logger, "connecting to %s", options.URI)
	s, err := mongostore.Connect(ctx, options.URI, options.Database)
	if err != nil {
		return nil, err
	}
	version, err := s.ServerVersion(ctx)
	if err != nil {
		version = "unknown"
	}
	fmt.Fprintf(logger, "\nMongoDB server version %s\n\n", version)

	return &mongoWriter{
		Store:  s,
		logger: logger,
		append: options.Append,
	}, nil
}

func (w *mongoWriter) prepare(ctx context.Context, m *model.Model) error {
	if w.append {
		return nil
	}
	return w.Drop(ctx, m)
}

func (w *mongoWriter) stats(ctx context.Context, m *model.Model) ([]string, [][]string) {
	rows := make([][]string, 0, len(m.Entities()))
	for _, e := range m.Sorted() {
		stats, err := w.Stats(ctx, e)
		if err != nil {
			fmt.Fprintf(w.logger, "%v\n", err)
			continue
		}
		rows = append(rows, []string{
			e.Table,
			strconv.Itoa(stats.Count),
			strconv.Itoa(stats.AvgObjSize),
			stats.Indexes(),
		})
	}
	return []string{"collection", "count", "avg object size", "indexes"}, rows
}

func (w *mongoWriter) close(ctx context.Context) error {
	return w.Close(ctx)
}
