package datagen

import (
	"fmt"

	"github.com/feliixx/mockbuilder/model"
)

// fieldTypes maps a config type to the kind and bit size of the property
var fieldTypes = map[string]struct {
	kind model.Kind
	bits int
}{
	"bool":       {model.KindBool, 0},
	"int":        {model.KindInt, 32},
	"long":       {model.KindInt, 64},
	"uint":       {model.KindUint, 64},
	"double":     {model.KindFloat, 64},
	"decimal":    {model.KindDecimal, 0},
	"string":     {model.KindString, 0},
	"date":       {model.KindTime, 0},
	"dateOffset": {model.KindTimeOffset, 0},
	"duration":   {model.KindDuration, 0},
	"uuid":       {model.KindUUID, 0},
	"binary":     {model.KindBytes, 0},
	"enum":       {model.KindEnum, 0},
}

var formats = map[string]model.Format{
	"":      model.FormatNone,
	"email": model.FormatEmail,
	"url":   model.FormatURL,
	"phone": model.FormatPhone,
}

// NewModel defines a dynamic entity for each entity of the config.
func NewModel(entities []EntityConfig) (*model.Model, error) {
	m := model.New()
	for _, ec := range entities {
		keys := ec.Key
		if len(keys) == 0 {
			keys = []string{"id"}
		}
		isKey := make(map[string]bool, len(keys))
		for _, k := range keys {
			isKey[k] = true
		}

		fields := make([]model.Field, 0, len(ec.Fields))
		for _, fc := range ec.Fields {
			f, err := newField(fc)
			if err != nil {
				return nil, fmt.Errorf("for entity %s, field %s, %v", ec.Name, fc.Name, err)
			}
			f.Key = isKey[fc.Name]
			fields = append(fields, f)
		}
		if _, err := m.Define(ec.Name, fields...); err != nil {
			return nil, err
		}
	}
	for _, e := range m.Entities() {
		for _, fk := range e.ForeignKeys {
			if _, _, err := m.PrincipalKey(fk); err != nil {
				return nil, fmt.Errorf("for entity %s, %w", e.Name, err)
			}
		}
	}
	return m, nil
}

func newField(fc FieldConfig) (model.Field, error) {
	t, ok := fieldTypes[fc.Type]
	if !ok {
		return model.Field{}, fmt.Errorf("invalid type '%s'", fc.Type)
	}
	format, ok := formats[fc.Format]
	if !ok {
		return model.Field{}, fmt.Errorf("invalid format '%s', should be one of email | url | phone", fc.Format)
	}
	onDelete, err := model.ParseDeleteBehavior(fc.OnDelete)
	if err != nil {
		return model.Field{}, err
	}

	c := model.Constraints{
		Required:       fc.Required,
		MinLength:      fc.MinLength,
		MaxLength:      fc.MaxLength,
		Format:         format,
		Faker:          fc.Method,
		NullPercentage: fc.NullPercentage,
		PastYears:      fc.Years,
		Scale:          fc.Scale,
	}
	if fc.Min != nil || fc.Max != nil {
		c.HasRange = true
		c.Min, c.Max = model.DefaultMin, model.DefaultMax
		if fc.Min != nil {
			c.Min = *fc.Min
		}
		if fc.Max != nil {
			c.Max = *fc.Max
		}
		if c.Min > c.Max {
			return model.Field{}, fmt.Errorf("make sure that 'max' >= 'min'")
		}
	}

	return model.Field{
		Name:        fc.Name,
		Kind:        t.kind,
		Bits:        t.bits,
		Nullable:    fc.NullPercentage > 0,
		Enum:        fc.Values,
		Constraints: c,
		Ref:         fc.Ref,
		OnDelete:    onDelete,
	}, nil
}
