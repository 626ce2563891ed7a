package datagen

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/feliixx/mockbuilder/mock"
	"github.com/feliixx/mockbuilder/model"
)

// fileWriter writes one JSON object per instance, on its own line
// unless pretty printed:
//
//	{"entity":"User","value":{"id":1,"name":"..."}}
type fileWriter struct {
	out    io.Writer
	buf    *bufio.Writer
	pretty bool
}

func newFileWriter(out io.Writer, pretty bool) *fileWriter {
	return &fileWriter{
		out:    out,
		buf:    bufio.NewWriter(out),
		pretty: pretty,
	}
}

type line struct {
	Entity string `json:"entity"`
	Value  any    `json:"value"`
}

// Commit implements mock.Store.
func (w *fileWriter) Commit(_ context.Context, cs *mock.ChangeSet) error {
	if len(cs.Deletes) > 0 {
		return fmt.Errorf("deleting instances is not supported by file output")
	}
	encoder := json.NewEncoder(w.buf)
	if w.pretty {
		encoder.SetIndent("", "  ")
	}
	for _, b := range cs.Inserts {
		for _, v := range b.Values {
			if err := encoder.Encode(line{Entity: b.Entity.Name, Value: v}); err != nil {
				return fmt.Errorf("fail to write %s\n  cause: %v", b.Entity.Name, err)
			}
		}
	}
	return w.buf.Flush()
}

func (w *fileWriter) prepare(context.Context, *model.Model) error { return nil }

func (w *fileWriter) stats(context.Context, *model.Model) ([]string, [][]string) { return nil, nil }

func (w *fileWriter) close(context.Context) error {
	if err := w.buf.Flush(); err != nil {
		return err
	}
	if f, ok := w.out.(*os.File); ok && f != os.Stdout {
		return f.Close()
	}
	return nil
}
