package mongostore

import (
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/feliixx/mockbuilder/model"
)

const binaryUUIDSubtype = 0x04

// Document converts an instance of e to a BSON document. A single
// property key is stored as _id, a composite key as an _id sub document.
// Other properties are stored under their column name, in declaration
// order.
func Document(e *model.Entity, v any) (bson.D, error) {
	single := len(e.Key) == 1
	doc := make(bson.D, 0, len(e.Properties)+1)
	if !single {
		id, err := documentID(e, v)
		if err != nil {
			return nil, err
		}
		doc = append(doc, bson.E{Key: "_id", Value: id})
	}
	for _, p := range e.Properties {
		if !p.Kind.Scalar() || p.Column == "" {
			continue
		}
		value, err := bsonValue(p.Get(v))
		if err != nil {
			return nil, fmt.Errorf("for entity %s, property %s: %v", e.Name, p.Name, err)
		}
		if single && p.Name == e.Key[0] {
			doc = append(bson.D{{Key: "_id", Value: value}}, doc...)
			continue
		}
		doc = append(doc, bson.E{Key: p.Column, Value: value})
	}
	return doc, nil
}

// documentID returns the _id of an instance of e
func documentID(e *model.Entity, v any) (any, error) {
	keys, err := e.KeyProperties()
	if err != nil {
		return nil, err
	}
	if len(keys) == 1 {
		return bsonValue(keys[0].Get(v))
	}
	id := make(bson.D, len(keys))
	for i, p := range keys {
		value, err := bsonValue(p.Get(v))
		if err != nil {
			return nil, err
		}
		id[i] = bson.E{Key: p.Column, Value: value}
	}
	return id, nil
}

// bsonValue converts a property value to a value the driver encodes the
// same way for every Go type of a kind
func bsonValue(v any) (any, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case time.Time, string, bool, int64, float64, []byte:
		return v, nil
	case time.Duration:
		return int64(v), nil
	case uuid.UUID:
		return primitive.Binary{Subtype: binaryUUIDSubtype, Data: v[:]}, nil
	case decimal.Decimal:
		d, err := primitive.ParseDecimal128(v.String())
		if err != nil {
			return nil, fmt.Errorf("can't convert %s to Decimal128: %v", v, err)
		}
		return d, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if u := rv.Uint(); u > math.MaxInt64 {
			return primitive.ParseDecimal128(fmt.Sprint(u))
		}
		return int64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return b, nil
		}
	}
	return nil, fmt.Errorf("unsupported type %T", v)
}
