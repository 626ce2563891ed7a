package datagen_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feliixx/mockbuilder/datagen"
	"github.com/feliixx/mockbuilder/sqlstore"
)

const shopConfig = `[
  {
    "name": "User",
    "count": 3,
    "fields": {
      "id": { "type": "long" },
      "username": { "type": "string", "minLength": 3, "maxLength": 10, "required": true },
      "email": { "type": "string", "format": "email" },
      "level": { "type": "enum", "values": ["bronze", "silver", "gold"] }
    }
  },
  {
    "name": "Order",
    "count": 5,
    "fields": {
      "id": { "type": "long" },
      "userId": { "type": "long", "ref": "User", "onDelete": "cascade" },
      "quantity": { "type": "int", "min": 1, "max": 9 },
      "total": { "type": "decimal", "min": 0, "max": 100, "scale": 2 }
    }
  }
]`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(filename, []byte(content), 0644))
	return filename
}

type outputLine struct {
	Entity string         `json:"entity"`
	Value  map[string]any `json:"value"`
}

func readOutput(t *testing.T, filename string) map[string][]map[string]any {
	t.Helper()
	f, err := os.Open(filename)
	require.NoError(t, err)
	defer f.Close()

	byEntity := make(map[string][]map[string]any)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var l outputLine
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &l))
		byEntity[l.Entity] = append(byEntity[l.Entity], l.Value)
	}
	require.NoError(t, scanner.Err())
	return byEntity
}

func TestGenerateToFile(t *testing.T) {
	output := filepath.Join(t.TempDir(), "out.json")
	opts := &datagen.Options{
		Configuration: datagen.Configuration{
			ConfigFile: writeConfig(t, "shop.json", shopConfig),
			Output:     output,
			BatchSize:  2,
			Seed:       1,
		},
		General: datagen.General{Quiet: true},
	}
	require.NoError(t, datagen.Generate(opts, io.Discard))

	byEntity := readOutput(t, output)
	users, orders := byEntity["User"], byEntity["Order"]
	require.Len(t, users, 3)
	require.Len(t, orders, 5)

	ids := make(map[float64]bool)
	for _, u := range users {
		ids[u["id"].(float64)] = true

		username := u["username"].(string)
		assert.GreaterOrEqual(t, len(username), 3)
		assert.LessOrEqual(t, len(username), 10)
		assert.Contains(t, u["email"], "@")
		assert.Contains(t, []any{"bronze", "silver", "gold"}, u["level"])
	}
	assert.Len(t, ids, 3)

	for _, o := range orders {
		assert.True(t, ids[o["userId"].(float64)], "order references unknown user %v", o["userId"])
		q := o["quantity"].(float64)
		assert.True(t, q >= 1 && q <= 9, "quantity %v out of range", q)
	}
}

func TestGenerateFieldOrder(t *testing.T) {
	output := filepath.Join(t.TempDir(), "out.json")
	opts := &datagen.Options{
		Configuration: datagen.Configuration{
			ConfigFile: writeConfig(t, "shop.json", shopConfig),
			Output:     output,
			BatchSize:  10,
			Seed:       1,
		},
		General: datagen.General{Quiet: true},
	}
	require.NoError(t, datagen.Generate(opts, io.Discard))

	content, err := os.ReadFile(output)
	require.NoError(t, err)
	first := strings.SplitN(string(content), "\n", 2)[0]

	idx := func(key string) int { return strings.Index(first, `"`+key+`":`) }
	assert.Less(t, idx("id"), idx("username"))
	assert.Less(t, idx("username"), idx("email"))
	assert.Less(t, idx("email"), idx("level"))
}

func TestSameSeedSameOutput(t *testing.T) {
	config := writeConfig(t, "shop.json", shopConfig)
	run := func() []byte {
		output := filepath.Join(t.TempDir(), "out.json")
		opts := &datagen.Options{
			Configuration: datagen.Configuration{
				ConfigFile: config,
				Output:     output,
				BatchSize:  1000,
				Seed:       42,
			},
			General: datagen.General{Quiet: true},
		}
		require.NoError(t, datagen.Generate(opts, io.Discard))
		content, err := os.ReadFile(output)
		require.NoError(t, err)
		return content
	}
	assert.Equal(t, string(run()), string(run()))
}

func TestGenerateToSQLite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "shop.db")
	opts := &datagen.Options{
		Configuration: datagen.Configuration{
			ConfigFile: writeConfig(t, "shop.yaml", shopYAMLConfig),
			Output:     "sqlite",
			BatchSize:  1000,
			Seed:       3,
		},
		Connection: datagen.Connection{DSN: dsn},
		General:    datagen.General{Quiet: true},
	}
	require.NoError(t, datagen.Generate(opts, io.Discard))

	s, err := sqlstore.Open(sqlstore.SQLite, dsn)
	require.NoError(t, err)
	defer s.Close()

	var users, joined int
	ctx := context.Background()
	require.NoError(t, s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM "users"`).Scan(&users))
	require.NoError(t, s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM "orders" o JOIN "users" u ON o."user_id" = u."id"`).Scan(&joined))
	assert.Equal(t, 3, users)
	assert.Equal(t, 5, joined)
}

const shopYAMLConfig = `
- name: User
  count: 3
  fields:
    id: { type: long }
    username: { type: string, maxLength: 10, required: true }
    email: { type: string, format: email, nullPercentage: 50 }
- name: Order
  count: 5
  fields:
    id: { type: long }
    userId: { type: long, ref: User.id }
    placedAt: { type: date, years: 1 }
`

func TestInvalidOptions(t *testing.T) {
	optionsTests := []struct {
		name  string
		opts  datagen.Options
		error string
	}{
		{
			name:  "no config file",
			opts:  datagen.Options{Configuration: datagen.Configuration{BatchSize: 10}},
			error: "no configuration file provided",
		},
		{
			name:  "invalid batch size",
			opts:  datagen.Options{Configuration: datagen.Configuration{ConfigFile: "config.json"}},
			error: "invalid value for -b | --batchsize",
		},
		{
			name:  "missing config file",
			opts:  datagen.Options{Configuration: datagen.Configuration{ConfigFile: "missing.json", BatchSize: 10}},
			error: "fail to read file missing.json",
		},
	}
	for _, tt := range optionsTests {
		t.Run(tt.name, func(t *testing.T) {
			err := datagen.Generate(&tt.opts, io.Discard)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.error)
		})
	}
}

func TestCreateTemplateFile(t *testing.T) {
	for _, name := range []string{"template.json", "template.yaml"} {
		t.Run(name, func(t *testing.T) {
			filename := filepath.Join(t.TempDir(), name)
			opts := &datagen.Options{Template: datagen.Template{New: filename}}
			require.NoError(t, datagen.Generate(opts, io.Discard))

			content, err := os.ReadFile(filename)
			require.NoError(t, err)
			entities, err := datagen.ParseConfig(content, strings.HasSuffix(name, ".yaml"))
			require.NoError(t, err)
			require.Len(t, entities, 2)
			_, err = datagen.NewModel(entities)
			assert.NoError(t, err)
		})
	}
}

func TestCreateTemplateFileOverwrite(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "existing.json")
	require.NoError(t, os.WriteFile(filename, []byte("old"), 0644))

	fakeUsrInput, err := os.CreateTemp(t.TempDir(), "fake_user_input")
	require.NoError(t, err)
	_, err = fakeUsrInput.WriteString("y")
	require.NoError(t, err)
	_, err = fakeUsrInput.Seek(0, 0)
	require.NoError(t, err)

	oldStdin := os.Stdin
	defer func() { os.Stdin = oldStdin }()
	os.Stdin = fakeUsrInput

	opts := &datagen.Options{Template: datagen.Template{New: filename}}
	require.NoError(t, datagen.Generate(opts, io.Discard))

	content, err := os.ReadFile(filename)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "[\n"))
}
