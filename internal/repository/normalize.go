package repository

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Aggregation output is not decoded into model types by the driver the way
// find results are, so pipeline documents are first converted to plain Go
// values (maps, slices, time.Time) before discriminator resolution and
// hydration.

func plainDocument(raw bson.Raw) (map[string]any, error) {
	elems, err := raw.Elements()
	if err != nil {
		return nil, fmt.Errorf("plain document: %w", err)
	}
	out := make(map[string]any, len(elems))
	for _, e := range elems {
		key, err := e.KeyErr()
		if err != nil {
			return nil, fmt.Errorf("plain document: %w", err)
		}
		v, err := plainValue(e.Value())
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

func plainArray(raw bson.Raw) ([]any, error) {
	vals, err := raw.Values()
	if err != nil {
		return nil, fmt.Errorf("plain array: %w", err)
	}
	out := make([]any, 0, len(vals))
	for _, v := range vals {
		pv, err := plainValue(v)
		if err != nil {
			return nil, err
		}
		out = append(out, pv)
	}
	return out, nil
}

func plainValue(v bson.RawValue) (any, error) {
	switch v.Type {
	case bsontype.EmbeddedDocument:
		return plainDocument(v.Document())
	case bsontype.Array:
		return plainArray(v.Array())
	case bsontype.DateTime:
		return v.Time(), nil
	default:
		var out any
		if err := v.Unmarshal(&out); err != nil {
			return nil, fmt.Errorf("plain value (%s): %w", v.Type, err)
		}
		return out, nil
	}
}
