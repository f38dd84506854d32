package repository

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/docuvault/docuvault/internal/document"
)

// Codec is the pluggable normalize/denormalize pair used by non-binary
// rehydration and change-array application. Denormalize populates only the
// fields present in data, leaving the rest of the document untouched.
type Codec[T document.Model] interface {
	Normalize(doc T) (map[string]any, error)
	Denormalize(data map[string]any, doc T) error
}

// bsonCodec round-trips through the driver's BSON marshaller. It is the
// default codec; callers with custom serialization rules supply their own.
type bsonCodec[T document.Model] struct{}

func (bsonCodec[T]) Normalize(doc T) (map[string]any, error) {
	b, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", doc.CollectionName(), err)
	}
	var m map[string]any
	if err := bson.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("normalize %s: %w", doc.CollectionName(), err)
	}
	return m, nil
}

func (bsonCodec[T]) Denormalize(data map[string]any, doc T) error {
	b, err := bson.Marshal(data)
	if err != nil {
		return fmt.Errorf("denormalize %s: %w", doc.CollectionName(), err)
	}
	return bson.Unmarshal(b, doc)
}
