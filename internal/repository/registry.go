package repository

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/docuvault/docuvault/internal/document"
)

// ErrUnresolvable is returned when a polymorphic document carries a
// discriminator tag that is not registered and the bound type is abstract, so
// no concrete type can be safely instantiated.
var ErrUnresolvable = errors.New("repository: unresolvable discriminator tag")

// Registry resolves raw documents to concrete-type factories through a
// discriminator field. It is built once when the repository is registered;
// nothing is derived at query time.
//
// When Abstract is false, an unmatched (or missing) tag falls back to Base.
// When Abstract is true there is no fallback and resolution fails.
type Registry[T document.Model] struct {
	// Property is the document field carrying the type tag.
	Property string
	// Abstract marks the bound type as polymorphic-abstract: it must never be
	// instantiated itself.
	Abstract bool
	// Base constructs the bound type; ignored when Abstract is true.
	Base func() T
	// Factories maps tag values to concrete-type constructors.
	Factories map[string]func() T
}

// Resolve picks the factory for a raw document. It accepts both wire-level
// (bson.Raw) and plain map shapes, and is a pure function of its inputs:
// resolving the same document twice always yields the same factory.
func (r *Registry[T]) Resolve(data any) (func() T, error) {
	if tag, ok := discriminatorTag(data, r.Property); ok {
		if f, ok := r.Factories[tag]; ok {
			return f, nil
		}
	}
	if !r.Abstract && r.Base != nil {
		return r.Base, nil
	}
	return nil, fmt.Errorf("%w: property %q", ErrUnresolvable, r.Property)
}

func discriminatorTag(data any, key string) (string, bool) {
	switch d := data.(type) {
	case bson.Raw:
		v, err := d.LookupErr(key)
		if err != nil {
			return "", false
		}
		return v.StringValueOK()
	case bson.M:
		s, ok := d[key].(string)
		return s, ok
	case map[string]any:
		s, ok := d[key].(string)
		return s, ok
	}
	return "", false
}
