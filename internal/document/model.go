package document

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Model is implemented by every persistent document type. Concrete types embed
// Base and declare their backing collection with CollectionName (a pure
// function of the type, no instance state).
type Model interface {
	CollectionName() string
	DocumentID() primitive.ObjectID
	SetDocumentID(id primitive.ObjectID)
	Touch(t time.Time)
}

// Base carries the fields shared by all stored documents: the Mongo id and the
// creation/update timestamps. The id is empty until the document is first
// inserted; created_at is set at construction and never changes afterwards.
type Base struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}

// NewBase returns a Base with both timestamps stamped to now (UTC).
func NewBase() Base {
	now := time.Now().UTC()
	return Base{CreatedAt: now, UpdatedAt: now}
}

func (b *Base) DocumentID() primitive.ObjectID      { return b.ID }
func (b *Base) SetDocumentID(id primitive.ObjectID) { b.ID = id }

// Touch refreshes the update timestamp. Called by the repository on every
// successful mutating operation; direct store writes bypass it.
func (b *Base) Touch(t time.Time) { b.UpdatedAt = t }

// ParseID parses the canonical 24-character lowercase hex rendering of an id.
// Every externally supplied id string goes through this guard; malformed ids
// are rejected here, before any store round trip.
func ParseID(s string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(s)
}

// ValidObjectID reports whether s is a well-formed 24-character hex object id.
func ValidObjectID(s string) bool {
	_, err := ParseID(s)
	return err == nil
}
