package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/docuvault/docuvault/internal/document"
)

var (
	// ErrNotFound is returned when no document matches, and for malformed
	// hex ids (those never reach the store).
	ErrNotFound = errors.New("repository: document not found")
	// ErrConfig marks an invalid repository registration. Construction-time
	// only; callers should treat it as fatal.
	ErrConfig = errors.New("repository: invalid configuration")
)

// CollectionSelector resolves collection handles, defaulting the database.
// Implemented by storage.Service.
type CollectionSelector interface {
	SelectCollection(name string, db ...string) *mongo.Collection
}

// Config describes one repository registration. The abstract/concrete nature
// of the bound type is declared here explicitly, never derived by reflection.
type Config[T document.Model] struct {
	// New constructs the bound type. Required unless the registration is
	// polymorphic-abstract (Registry.Abstract).
	New func() T
	// Collection overrides the backing collection name. Defaults to the bound
	// type's CollectionName; required for abstract registrations.
	Collection string
	// Registry enables polymorphic hydration through a discriminator field.
	Registry *Registry[T]
	// Updateable is the allow-list of fields a change array may apply to the
	// in-memory document.
	Updateable []string
	// Codec overrides the normalize/denormalize pair. Defaults to a BSON
	// round-trip codec.
	Codec Codec[T]
}

// Repository is a typed CRUD/query facade bound to exactly one document type
// and its backing collection, both fixed for the repository's lifetime.
// Filters, updates and pipelines are passed through to the store verbatim;
// store failures propagate unchanged, with no retry policy of its own.
type Repository[T document.Model] struct {
	col        *mongo.Collection
	newFn      func() T
	registry   *Registry[T]
	updateable map[string]bool
	codec      Codec[T]
}

// New binds a repository to its collection. The collection handle is resolved
// once, here.
func New[T document.Model](store CollectionSelector, cfg Config[T]) (*Repository[T], error) {
	abstract := cfg.Registry != nil && cfg.Registry.Abstract
	if cfg.New == nil && !abstract {
		return nil, fmt.Errorf("%w: missing constructor for concrete type", ErrConfig)
	}
	name := cfg.Collection
	if name == "" && cfg.New != nil {
		name = cfg.New().CollectionName()
	}
	if name == "" {
		return nil, fmt.Errorf("%w: missing collection name", ErrConfig)
	}
	registry := cfg.Registry
	if registry != nil && !registry.Abstract && registry.Base == nil {
		cp := *registry
		cp.Base = cfg.New
		registry = &cp
	}
	codec := cfg.Codec
	if codec == nil {
		codec = bsonCodec[T]{}
	}
	updateable := make(map[string]bool, len(cfg.Updateable))
	for _, f := range cfg.Updateable {
		updateable[f] = true
	}
	return &Repository[T]{
		col:        store.SelectCollection(name),
		newFn:      cfg.New,
		registry:   registry,
		updateable: updateable,
		codec:      codec,
	}, nil
}

// Collection exposes the bound collection handle for queries this facade does
// not cover.
func (r *Repository[T]) Collection() *mongo.Collection { return r.col }

// FindByID looks a document up by the hex rendering of its id. Malformed hex
// yields ErrNotFound without a store round trip.
func (r *Repository[T]) FindByID(ctx context.Context, hex string) (T, error) {
	var zero T
	id, err := document.ParseID(hex)
	if err != nil {
		return zero, ErrNotFound
	}
	return r.FindByObjectID(ctx, id)
}

// FindByObjectID is FindOne on {_id: id}.
func (r *Repository[T]) FindByObjectID(ctx context.Context, id primitive.ObjectID) (T, error) {
	return r.FindOne(ctx, bson.M{"_id": id})
}

// FindOne returns the first matching document, hydrated through the
// discriminator registry when one is configured.
func (r *Repository[T]) FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) (T, error) {
	var zero T
	if filter == nil {
		filter = bson.D{}
	}
	if r.registry == nil {
		doc := r.newFn()
		err := r.col.FindOne(ctx, filter, opts...).Decode(doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return zero, ErrNotFound
		}
		if err != nil {
			return zero, err
		}
		return doc, nil
	}
	raw, err := r.col.FindOne(ctx, filter, opts...).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, err
	}
	return r.decodeRaw(raw)
}

// Find issues the query and returns a lazy iterator over the matches.
func (r *Repository[T]) Find(ctx context.Context, filter any, opts ...*options.FindOptions) (*Iterator[T], error) {
	if filter == nil {
		filter = bson.D{}
	}
	cur, err := r.col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return &Iterator[T]{cur: cur, decode: r.decodeRaw}, nil
}

// UpdateOne applies update to the first match, refreshing updated_at (client
// time for field-assignment updates, store time for pipeline updates).
func (r *Repository[T]) UpdateOne(ctx context.Context, filter, update any, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return r.col.UpdateOne(ctx, filter, withUpdatedAt(update, time.Now().UTC()), opts...)
}

// UpdateMany applies update to every match, with the same updated_at rule as
// UpdateOne.
func (r *Repository[T]) UpdateMany(ctx context.Context, filter, update any, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return r.col.UpdateMany(ctx, filter, withUpdatedAt(update, time.Now().UTC()), opts...)
}

// UpdateDoc updates the stored document matching doc's id and touches the
// in-memory copy on success.
func (r *Repository[T]) UpdateDoc(ctx context.Context, doc T, update any, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	now := time.Now().UTC()
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": doc.DocumentID()}, withUpdatedAt(update, now), opts...)
	if err != nil {
		return res, err
	}
	doc.Touch(now)
	return res, nil
}

// UpdateWithChangeArray applies a partial update expressed as field->value
// pairs. Only allow-listed fields are applied to the in-memory document; the
// change array itself is persisted untouched (the allow-list guards the
// in-memory mutation, not the write).
func (r *Repository[T]) UpdateWithChangeArray(ctx context.Context, doc T, changes map[string]any, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	if err := r.applyAllowedChanges(doc, changes); err != nil {
		return nil, err
	}
	return r.UpdateDoc(ctx, doc, bson.M{"$set": bson.M(changes)}, opts...)
}

// applyAllowedChanges copies the allow-listed subset of changes onto doc.
func (r *Repository[T]) applyAllowedChanges(doc T, changes map[string]any) error {
	allowed := make(map[string]any, len(changes))
	for k, v := range changes {
		if r.updateable[k] {
			allowed[k] = v
		}
	}
	if len(allowed) == 0 {
		return nil
	}
	return r.codec.Denormalize(allowed, doc)
}

// InsertOne inserts doc as-is; timestamps were set at construction.
func (r *Repository[T]) InsertOne(ctx context.Context, doc T, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	return r.col.InsertOne(ctx, doc, opts...)
}

// InsertMany inserts docs as-is.
func (r *Repository[T]) InsertMany(ctx context.Context, docs []T, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error) {
	items := make([]any, len(docs))
	for i, d := range docs {
		items[i] = d
	}
	return r.col.InsertMany(ctx, items, opts...)
}

// FindAndReplace swaps the first match for doc. Unless overridden it upserts
// and returns the document after replacement, hydrated like FindOne.
func (r *Repository[T]) FindAndReplace(ctx context.Context, filter any, doc T, opts ...*options.FindOneAndReplaceOptions) (T, error) {
	var zero T
	merged := options.MergeFindOneAndReplaceOptions(opts...)
	if merged.Upsert == nil {
		merged.SetUpsert(true)
	}
	if merged.ReturnDocument == nil {
		merged.SetReturnDocument(options.After)
	}
	res := r.col.FindOneAndReplace(ctx, filter, doc, merged)
	if r.registry == nil {
		out := r.newFn()
		err := res.Decode(out)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return zero, ErrNotFound
		}
		if err != nil {
			return zero, err
		}
		return out, nil
	}
	raw, err := res.Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, err
	}
	return r.decodeRaw(raw)
}

// Replace stores doc over whatever the store holds under its id.
func (r *Repository[T]) Replace(ctx context.Context, doc T, opts ...*options.FindOneAndReplaceOptions) (T, error) {
	return r.FindAndReplace(ctx, bson.M{"_id": doc.DocumentID()}, doc, opts...)
}

// ReHydrate re-reads the document by id and copies fresh values onto doc.
// Binary mode decodes wire bytes straight onto the object and is the right
// choice when doc's runtime type is already final; otherwise the read goes
// through discriminator resolution and the codec round trip.
func (r *Repository[T]) ReHydrate(ctx context.Context, doc T, binary bool) error {
	if binary {
		err := r.col.FindOne(ctx, bson.M{"_id": doc.DocumentID()}).Decode(doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return err
	}
	fresh, err := r.FindByObjectID(ctx, doc.DocumentID())
	if err != nil {
		return err
	}
	data, err := r.codec.Normalize(fresh)
	if err != nil {
		return err
	}
	return r.codec.Denormalize(data, doc)
}

// Aggregate runs the pipeline and lazily hydrates each result document.
// Store-native nested values are converted to plain Go values first, since
// pipeline output is not decoded into model types by the driver.
func (r *Repository[T]) Aggregate(ctx context.Context, pipeline any, opts ...*options.AggregateOptions) (*Iterator[T], error) {
	cur, err := r.col.Aggregate(ctx, pipeline, opts...)
	if err != nil {
		return nil, err
	}
	return &Iterator[T]{cur: cur, decode: r.decodePlain}, nil
}

// DeleteDoc removes the stored document matching doc's id.
func (r *Repository[T]) DeleteDoc(ctx context.Context, doc T, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	return r.col.DeleteOne(ctx, bson.M{"_id": doc.DocumentID()}, opts...)
}

func (r *Repository[T]) decodeRaw(raw bson.Raw) (T, error) {
	var zero T
	factory := r.newFn
	if r.registry != nil {
		f, err := r.registry.Resolve(raw)
		if err != nil {
			return zero, err
		}
		factory = f
	}
	doc := factory()
	if err := bson.Unmarshal(raw, doc); err != nil {
		return zero, err
	}
	return doc, nil
}

func (r *Repository[T]) decodePlain(raw bson.Raw) (T, error) {
	var zero T
	plain, err := plainDocument(raw)
	if err != nil {
		return zero, err
	}
	factory := r.newFn
	if r.registry != nil {
		f, err := r.registry.Resolve(plain)
		if err != nil {
			return zero, err
		}
		factory = f
	}
	doc := factory()
	if err := r.codec.Denormalize(plain, doc); err != nil {
		return zero, err
	}
	return doc, nil
}
