package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned for catalog lookups that match no file.
var ErrNotFound = errors.New("storage: file not found")

// Service owns the Mongo client, the default database and its GridFS bucket.
// It is created once at startup and safe for concurrent use; every call is a
// fresh round trip, nothing is cached.
type Service struct {
	client    *mongo.Client
	defaultDB string
	bucket    *gridfs.Bucket
}

// New builds the service around an already-connected client.
func New(client *mongo.Client, defaultDB string) (*Service, error) {
	if defaultDB == "" {
		return nil, errors.New("storage: default database name is required")
	}
	bucket, err := gridfs.NewBucket(client.Database(defaultDB))
	if err != nil {
		return nil, fmt.Errorf("storage: gridfs bucket: %w", err)
	}
	return &Service{client: client, defaultDB: defaultDB, bucket: bucket}, nil
}

func (s *Service) Client() *mongo.Client { return s.client }

// DefaultDatabase returns the database the service was bound to.
func (s *Service) DefaultDatabase() *mongo.Database {
	return s.client.Database(s.defaultDB)
}

// SelectCollection resolves a collection handle, against the default database
// when no db name is given.
func (s *Service) SelectCollection(name string, db ...string) *mongo.Collection {
	dbName := s.defaultDB
	if len(db) > 0 && db[0] != "" {
		dbName = db[0]
	}
	return s.client.Database(dbName).Collection(name)
}

// Bucket exposes the GridFS bucket of the default database.
func (s *Service) Bucket() *gridfs.Bucket { return s.bucket }

// UploadBase64File stores a base64 payload under filename with the given
// metadata. The payload is decoded as a stream, never materialized in memory.
func (s *Service) UploadBase64File(filename, payload string, metadata bson.M) (primitive.ObjectID, error) {
	src := base64.NewDecoder(base64.StdEncoding, strings.NewReader(payload))
	return s.bucket.UploadFromStream(filename, src, options.GridFSUpload().SetMetadata(metadata))
}

// UploadFile stores a stream under name with the fixed metadata shape used by
// application uploads.
func (s *Service) UploadFile(name string, src io.Reader, mime, app, tag, user string) (primitive.ObjectID, error) {
	return s.bucket.UploadFromStream(name, src, options.GridFSUpload().SetMetadata(bson.M{
		"app":  app,
		"tag":  tag,
		"user": user,
		"mime": mime,
	}))
}

// DeleteFile removes a stored file in two phases: the catalog record is
// tombstoned first, so a concurrent reader observing the catalog mid-delete
// sees the flag even if the physical removal is still in flight or fails.
func (s *Service) DeleteFile(ctx context.Context, id primitive.ObjectID) error {
	return deleteTwoPhase(
		func() error {
			_, err := s.bucket.GetFilesCollection().UpdateOne(ctx,
				bson.M{"_id": id},
				bson.M{"$set": bson.M{"metadata.deleted": true}})
			return err
		},
		func() error { return s.bucket.Delete(id) },
	)
}

// deleteTwoPhase models the active -> tombstoned -> removed transition; the
// store offers no multi-document transaction here, so the tombstone must land
// before the remove is attempted.
func deleteTwoPhase(tombstone, remove func() error) error {
	if err := tombstone(); err != nil {
		return fmt.Errorf("storage: tombstone: %w", err)
	}
	return remove()
}

// FileMetadata looks the catalog record up without reading any content.
func (s *Service) FileMetadata(ctx context.Context, id primitive.ObjectID) (map[string]any, error) {
	res := s.bucket.GetFilesCollection().FindOne(ctx, bson.M{"_id": id})
	var doc map[string]any
	err := res.Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// fileLength reads the stored length from the catalog record.
func (s *Service) fileLength(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res := s.bucket.GetFilesCollection().FindOne(ctx, bson.M{"_id": id},
		options.FindOne().SetProjection(bson.M{"length": 1}))
	var doc struct {
		Length int64 `bson:"length"`
	}
	err := res.Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return doc.Length, nil
}
