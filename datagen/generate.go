// Package datagen generates the entities described in a JSON or YAML
// config file, relates them through their 'ref' fields and writes them to
// a file, a SQL database or a MongoDB database.
package datagen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gosuri/uiprogress"
	"github.com/gosuri/uiprogress/util/strutil"

	"github.com/feliixx/mockbuilder/builder"
	"github.com/feliixx/mockbuilder/model"
)

// Generate creates instances from options. Logs and progress are send
// to logger
func Generate(options *Options, logger io.Writer) error {
	return run(options, logger)
}

func run(options *Options, logger io.Writer) error {

	if options.Quiet {
		logger = io.Discard
	}
	if options.New != "" {
		return createTemplateCfgFile(options.New)
	}
	if options.ConfigFile == "" {
		return fmt.Errorf("no configuration file provided, try mockbuilder --help for more informations ")
	}
	if options.BatchSize <= 0 {
		return fmt.Errorf("invalid value for -b | --batchsize: %v. BatchSize has to be > 0", options.BatchSize)
	}
	if options.Output == "" {
		options.Output = stdoutOutput
	}
	// if instances are written to stdout, do not pollute the output with logs
	if options.Output == stdoutOutput {
		logger = io.Discard
	}

	content, err := os.ReadFile(options.ConfigFile)
	if err != nil {
		return fmt.Errorf("fail to read file %s\n  cause: %v", options.ConfigFile, err)
	}
	entities, err := ParseConfig(content, isYAML(options.ConfigFile))
	if err != nil {
		return err
	}
	m, err := NewModel(entities)
	if err != nil {
		return fmt.Errorf("error in configuration file: \n\t%v", err)
	}

	ctx := context.Background()
	if options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
		defer cancel()
	}

	w, err := newWriter(ctx, options, logger)
	if err != nil {
		return err
	}
	defer w.close(ctx)

	start := time.Now()
	seed := options.Seed
	if seed == 0 {
		seed = uint64(start.Unix())
	}

	fmt.Fprintf(logger, "Using seed: %d\n\n", seed)
	err = generate(ctx, m, entities, w, seed, options.BatchSize, logger)
	if err != nil {
		return err
	}
	printStats(ctx, w, m, logger)
	printElapsedTime(logger, start)
	return nil
}

func isYAML(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yml", ".yaml":
		return true
	}
	return false
}

// generate creates the instances of every entity, principals first, and
// commits them to w in a single change set
func generate(ctx context.Context, m *model.Model, entities []EntityConfig, w writer, seed uint64, batchSize int, logger io.Writer) error {

	if err := w.prepare(ctx, m); err != nil {
		return err
	}

	counts := make(map[string]int, len(entities))
	for _, ec := range entities {
		counts[ec.Name] = ec.Count
	}

	b := builder.New(m,
		builder.WithSeed(seed),
		builder.WithStore(w),
		builder.WithLogger(logger),
	)

	progress := uiprogress.New()
	progress.SetOut(logger)
	progress.SetRefreshInterval(50 * time.Millisecond)
	progress.Start()

	generated := make(map[string][]any, len(entities))
	for _, e := range m.Sorted() {
		name := e.Name
		total := counts[name]
		bar := progress.AddBar(total).AppendCompleted().PrependFunc(func(*uiprogress.Bar) string {
			return strutil.Resize(fmt.Sprintf("entity %s: generating", name), 35)
		})
		for done := 0; done < total; {
			size := batchSize
			if total-done < size {
				size = total - done
			}
			values, err := b.AddEntity(name, size)
			if err != nil {
				progress.Stop()
				return fmt.Errorf("fail to generate entity '%s'\n  cause: %v", name, err)
			}
			generated[name] = append(generated[name], values...)
			done += size
			bar.Set(done)
		}
		if err := relate(b, e, generated); err != nil {
			progress.Stop()
			return err
		}
	}
	progress.Stop()

	_, err := b.Build(ctx)
	return err
}

// relate sets each foreign key of the instances of e to the key of a
// random principal. Null foreign keys are kept null. Instances of a self
// referencing entity reference an instance generated before them.
func relate(b *builder.Builder, e *model.Entity, generated map[string][]any) error {
	src := b.Source()
	children := generated[e.Name]
	for _, fk := range e.ForeignKeys {
		principals := generated[fk.Principal]
		if len(principals) == 0 {
			return fmt.Errorf("for entity %s, no instance of %s to reference", e.Name, fk.Principal)
		}
		self := fk.Principal == e.Name
		for i, child := range children {
			values, err := e.ValuesOf(child, fk.Properties)
			if err != nil {
				return err
			}
			if e.IsNullable(fk) && values[0] == nil {
				continue
			}
			n := len(principals)
			if self {
				// the first instance references itself
				n = i
				if n == 0 {
					n = 1
				}
			}
			if err := b.RelateVia(fk, principals[src.Intn(n)], child); err != nil {
				return fmt.Errorf("for entity %s, %v", e.Name, err)
			}
		}
	}
	return nil
}

func printElapsedTime(out io.Writer, start time.Time) {
	elapsed := time.Since(start).Round(10 * time.Millisecond)
	fmt.Fprintf(out, "\nrun finished in %s\n", elapsed.String())
}

func createTemplateCfgFile(filename string) error {

	f, err := tryToCreateFile(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	template := jsonTemplate
	if isYAML(filename) {
		template = yamlTemplate
	}
	_, err = f.WriteString(template[1:])
	return err
}

const jsonTemplate = `
[
  {
    "name": "User",
    "count": 10,
    "fields": {
      "id": { "type": "long" },
      "username": { "type": "string", "maxLength": 50, "required": true },
      "email": { "type": "string", "format": "email" }
    }
  },
  {
    "name": "Order",
    "count": 100,
    "fields": {
      "id": { "type": "long" },
      "userId": { "type": "long", "ref": "User", "onDelete": "cascade" },
      "total": { "type": "decimal", "min": 0, "max": 1000, "scale": 2 },
      "placedAt": { "type": "date", "years": 2 }
    }
  }
]
`

const yamlTemplate = `
- name: User
  count: 10
  fields:
    id: { type: long }
    username: { type: string, maxLength: 50, required: true }
    email: { type: string, format: email }
- name: Order
  count: 100
  fields:
    id: { type: long }
    userId: { type: long, ref: User, onDelete: cascade }
    total: { type: decimal, min: 0, max: 1000, scale: 2 }
    placedAt: { type: date, years: 2 }
`

func tryToCreateFile(filename string) (*os.File, error) {
	f, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0666)
	if err == nil {
		return f, nil
	}
	fmt.Printf("file %s already exists, overwrite it ?  [y/n]: ", filename)
	response := make([]byte, 2)
	if _, err := os.Stdin.Read(response); err != nil {
		return nil, fmt.Errorf("couldn't read from user, aborting: %v", err)
	}
	if string(response[0]) != "y" {
		return nil, errors.New("aborting")
	}
	f, err = os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("could not create file: %v", err)
	}
	return f, nil
}
