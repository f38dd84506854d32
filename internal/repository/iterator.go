package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/docuvault/docuvault/internal/document"
)

// Iterator is a lazy, single-pass view over a query result. Each element is
// resolved and hydrated on demand as the caller advances. It is forward-only:
// re-iterating after exhaustion is not supported, and a single iterator must
// not be shared across concurrent consumers.
type Iterator[T document.Model] struct {
	cur    *mongo.Cursor
	decode func(raw bson.Raw) (T, error)
	doc    T
	err    error
	closed bool
}

// Next advances to the next document, hydrating it. It returns false when the
// sequence is exhausted or a decode/cursor error occurred; check Err after.
func (it *Iterator[T]) Next(ctx context.Context) bool {
	if it.err != nil || it.closed {
		return false
	}
	if !it.cur.Next(ctx) {
		it.err = it.cur.Err()
		return false
	}
	it.doc, it.err = it.decode(it.cur.Current)
	return it.err == nil
}

// Doc returns the document hydrated by the last successful Next.
func (it *Iterator[T]) Doc() T { return it.doc }

func (it *Iterator[T]) Err() error { return it.err }

// Close releases the underlying cursor. Safe to call more than once.
func (it *Iterator[T]) Close(ctx context.Context) error {
	if it.closed {
		return nil
	}
	it.closed = true
	return it.cur.Close(ctx)
}

// All drains the iterator into a slice and closes it. Intended for small
// result sets; large results should be consumed with Next.
func (it *Iterator[T]) All(ctx context.Context) ([]T, error) {
	defer it.Close(ctx)
	var out []T
	for it.Next(ctx) {
		out = append(out, it.doc)
	}
	return out, it.err
}
