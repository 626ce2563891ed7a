package datagen

import (
	"context"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/feliixx/mockbuilder/mock"
	"github.com/feliixx/mockbuilder/model"
	"github.com/feliixx/mockbuilder/sqlstore"
)

const (
	mongodbOutput = "mongodb"
	stdoutOutput  = "stdout"
)

// writer is the store generated instances are committed to
type writer interface {
	mock.Store
	// prepare creates the tables / collections of m
	prepare(ctx context.Context, m *model.Model) error
	// stats returns a header and one row per entity, or nil if the
	// output has no stats to print
	stats(ctx context.Context, m *model.Model) ([]string, [][]string)
	close(ctx context.Context) error
}

func newWriter(ctx context.Context, options *Options, logger io.Writer) (writer, error) {
	switch options.Output {
	case mongodbOutput:
		return newMongoWriter(ctx, options, logger)
	case stdoutOutput:
		return newFileWriter(os.Stdout, options.PrettyPrint), nil
	}
	if dialect, err := sqlstore.ParseDialect(options.Output); err == nil {
		return newSQLWriter(dialect, options, logger)
	}
	f, err := tryToCreateFile(options.Output)
	if err != nil {
		return nil, err
	}
	return newFileWriter(f, options.PrettyPrint), nil
}

func printStats(ctx context.Context, w writer, m *model.Model, logger io.Writer) {
	if logger == io.Discard {
		return
	}
	header, rows := w.stats(ctx, m)
	if header == nil {
		return
	}
	io.WriteString(logger, "\n")
	table := tablewriter.NewWriter(logger)
	table.SetHeader(header)
	table.AppendBulk(rows)
	table.Render()
}

// sqlWriter writes instances to a sql database
type sqlWriter struct {
	*sqlstore.Store
	logger io.Writer
}

func newSQLWriter(dialect sqlstore.Dialect, options *Options, logger io.Writer) (writer, error) {
	io.WriteString(logger, "connecting to "+string(dialect)+" database "+options.DSN+"\n\n")
	s, err := sqlstore.Open(dialect, options.DSN)
	if err != nil {
		return nil, err
	}
	return &sqlWriter{Store: s, logger: logger}, nil
}

func (w *sqlWriter) prepare(ctx context.Context, m *model.Model) error {
	return w.Migrate(ctx, m)
}

func (w *sqlWriter) stats(ctx context.Context, m *model.Model) ([]string, [][]string) {
	rows := make([][]string, 0, len(m.Entities()))
	for _, e := range m.Sorted() {
		n, err := w.Count(ctx, e)
		if err != nil {
			io.WriteString(w.logger, err.Error()+"\n")
			continue
		}
		rows = append(rows, []string{e.Name, e.Table, strconv.Itoa(n)})
	}
	return []string{"entity", "table", "count"}, rows
}

func (w *sqlWriter) close(context.Context) error {
	return w.Close()
}
