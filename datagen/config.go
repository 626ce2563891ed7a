package datagen

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/iancoleman/orderedmap"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// EntityConfig describes an entity to generate
type EntityConfig struct {
	// Name of the entity, also used to reference it in 'ref'
	Name string `json:"name" yaml:"name"`
	// Number of instances to generate
	Count int `json:"count" yaml:"count"`
	// Names of the key fields. Default is ["id"]
	Key []string `json:"key" yaml:"key"`
	// Fields of the entity, in declaration order
	Fields []FieldConfig `json:"-" yaml:"-"`
}

// FieldConfig describes a field of an entity and the constraints of its
// generated values
type FieldConfig struct {
	Name string `json:"-" yaml:"-"`
	// Type of the field, one of bool | int | long | uint | double | decimal |
	// string | date | dateOffset | duration | uuid | binary | enum
	Type string `json:"type" yaml:"type"`
	// Length bounds for strings and binary data
	MinLength int `json:"minLength" yaml:"minLength"`
	MaxLength int `json:"maxLength" yaml:"maxLength"`
	// Bounds for numbers. For durations, in seconds
	Min *float64 `json:"min" yaml:"min"`
	Max *float64 `json:"max" yaml:"max"`
	// Format of a string, one of email | url | phone
	Format string `json:"format" yaml:"format"`
	// Faker method used to generate a string
	Method string `json:"method" yaml:"method"`
	// Values of an enum
	Values []any `json:"values" yaml:"values"`
	// Percentage of null values, makes the field nullable
	NullPercentage int  `json:"nullPercentage" yaml:"nullPercentage"`
	Required       bool `json:"required" yaml:"required"`
	// Dates are generated in the last 'years' years
	Years int `json:"years" yaml:"years"`
	// Number of decimal places of a decimal
	Scale int `json:"scale" yaml:"scale"`
	// Referenced entity, as 'Entity' or 'Entity.field'
	Ref      string `json:"ref" yaml:"ref"`
	OnDelete string `json:"onDelete" yaml:"onDelete"`
}

//go:embed config.schema.json
var configSchema string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource("config.schema.json", strings.NewReader(configSchema)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = compiler.Compile("config.schema.json")
	})
	return schema, schemaErr
}

// validate checks a decoded JSON document against the config schema
func validate(doc any) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("fail to compile config schema\n  cause: %v", err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("error in configuration file:\n%v", err)
	}
	return nil
}

// rawEntity is an EntityConfig before its fields are decoded
type rawEntity struct {
	Name   string          `json:"name"`
	Count  int             `json:"count"`
	Key    []string        `json:"key"`
	Fields json.RawMessage `json:"fields"`
}

// ParseConfig returns the list of entities described in content. content
// is a JSON array, or a YAML sequence if isYAML is set.
func ParseConfig(content []byte, isYAML bool) ([]EntityConfig, error) {
	if isYAML {
		return parseYAMLConfig(content)
	}

	var doc any
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("error in configuration file: object / array badly formatted: \n\n\t\t%v", err)
	}
	if err := validate(doc); err != nil {
		return nil, err
	}

	// Use a decoder here so we can disallow unknown fields. This should help
	// detect typos / spelling errors in config files
	decoder := json.NewDecoder(bytes.NewReader(content))
	decoder.DisallowUnknownFields()

	var raws []rawEntity
	if err := decoder.Decode(&raws); err != nil {
		return nil, fmt.Errorf("error in configuration file: object / array badly formatted: \n\n\t\t%v", err)
	}

	entities := make([]EntityConfig, len(raws))
	for i, raw := range raws {
		// an ordered map keeps the fields in file order
		order := orderedmap.New()
		if err := json.Unmarshal(raw.Fields, order); err != nil {
			return nil, fmt.Errorf("error in configuration file: \n\tfor entity %s, %v", raw.Name, err)
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw.Fields, &fields); err != nil {
			return nil, fmt.Errorf("error in configuration file: \n\tfor entity %s, %v", raw.Name, err)
		}

		entities[i] = EntityConfig{Name: raw.Name, Count: raw.Count, Key: raw.Key}
		for _, name := range order.Keys() {
			fd := json.NewDecoder(bytes.NewReader(fields[name]))
			fd.DisallowUnknownFields()
			f := FieldConfig{Name: name}
			if err := fd.Decode(&f); err != nil {
				return nil, fmt.Errorf("error in configuration file: \n\tfor entity %s, field %s: %v", raw.Name, name, err)
			}
			entities[i].Fields = append(entities[i].Fields, f)
		}
	}
	return entities, checkEntities(entities)
}

// yamlEntity is an EntityConfig before its fields are decoded
type yamlEntity struct {
	Name   string    `yaml:"name"`
	Count  int       `yaml:"count"`
	Key    []string  `yaml:"key"`
	Fields yaml.Node `yaml:"fields"`
}

func parseYAMLConfig(content []byte) ([]EntityConfig, error) {
	var doc any
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("error in configuration file: YAML badly formatted: \n\n\t\t%v", err)
	}
	// the schema is checked against the JSON form of the document
	asJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("error in configuration file: \n\t%v", err)
	}
	var jsonDoc any
	if err := json.Unmarshal(asJSON, &jsonDoc); err != nil {
		return nil, fmt.Errorf("error in configuration file: \n\t%v", err)
	}
	if err := validate(jsonDoc); err != nil {
		return nil, err
	}

	var raws []yamlEntity
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&raws); err != nil {
		return nil, fmt.Errorf("error in configuration file: YAML badly formatted: \n\n\t\t%v", err)
	}

	entities := make([]EntityConfig, len(raws))
	for i, raw := range raws {
		entities[i] = EntityConfig{Name: raw.Name, Count: raw.Count, Key: raw.Key}
		// a mapping node holds keys and values in turn
		for j := 0; j+1 < len(raw.Fields.Content); j += 2 {
			name := raw.Fields.Content[j].Value
			f := FieldConfig{Name: name}
			if err := raw.Fields.Content[j+1].Decode(&f); err != nil {
				return nil, fmt.Errorf("error in configuration file: \n\tfor entity %s, field %s: %v", raw.Name, name, err)
			}
			entities[i].Fields = append(entities[i].Fields, f)
		}
	}
	return entities, checkEntities(entities)
}

// checkEntities runs the checks the schema can't express
func checkEntities(entities []EntityConfig) error {
	names := make(map[string]bool, len(entities))
	for _, e := range entities {
		if names[e.Name] {
			return fmt.Errorf("error in configuration file: \n\tentity %s is declared twice", e.Name)
		}
		names[e.Name] = true
	}
	for _, e := range entities {
		for _, f := range e.Fields {
			if f.MinLength > 0 && f.MaxLength > 0 && f.MinLength > f.MaxLength {
				return fmt.Errorf("error in configuration file: \n\tfor entity %s, field %s, make sure that 'maxLength' >= 'minLength'", e.Name, f.Name)
			}
			if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
				return fmt.Errorf("error in configuration file: \n\tfor entity %s, field %s, make sure that 'max' >= 'min'", e.Name, f.Name)
			}
			if f.Type == "enum" && len(f.Values) == 0 {
				return fmt.Errorf("error in configuration file: \n\tfor entity %s, field %s, 'values' can't be empty for type enum", e.Name, f.Name)
			}
			if f.Ref != "" {
				principal, _, _ := strings.Cut(f.Ref, ".")
				if !names[principal] {
					return fmt.Errorf("error in configuration file: \n\tfor entity %s, field %s references unknown entity '%s'", e.Name, f.Name, principal)
				}
			}
		}
	}
	return nil
}
