package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOStore is the S3-compatible counterpart of the GridFS bucket, used by
// deployments that keep binary content outside Mongo. It exposes the same
// upload / ranged-read / delete surface, keyed by object name.
type MinIOStore struct {
	client *minio.Client
	bucket string
}

// NewMinIOStore creates the client and ensures the bucket exists.
func NewMinIOStore(cfg *MinIOConfig) (*MinIOStore, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, fmt.Errorf("storage: minio config missing")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: minio new: %w", err)
	}
	s := &MinIOStore{client: mc, bucket: cfg.Bucket}
	// ensure bucket exists (idempotent)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		exist, xerr := mc.BucketExists(ctx, s.bucket)
		if xerr != nil || !exist {
			return nil, fmt.Errorf("storage: minio bucket ensure: %w", err)
		}
	}
	return s, nil
}

// Upload stores the stream under key with the given content type.
func (s *MinIOStore) Upload(ctx context.Context, key string, src io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, src, size, minio.PutObjectOptions{ContentType: contentType})
	return err
}

// ObjectLength stats the object without opening its content.
func (s *MinIOStore) ObjectLength(ctx context.Context, key string) (int64, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return 0, err
	}
	return info.Size, nil
}

// ReadWindow reads exactly length bytes starting at offset.
func (s *MinIOStore) ReadWindow(ctx context.Context, key string, offset, length int64) ([]byte, error) {
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(offset, offset+length-1); err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, opts)
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	buf := make([]byte, length)
	if _, err := io.ReadFull(obj, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Delete removes the object.
func (s *MinIOStore) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

// RangeObjectResponse serves a stored object with the same range contract as
// the GridFS responder.
func (s *MinIOStore) RangeObjectResponse(ctx context.Context, w http.ResponseWriter, method, rangeHeader, key, mimeType string) error {
	total, err := s.ObjectLength(ctx, key)
	if err != nil {
		return err
	}
	read := func(offset, length int64) ([]byte, error) {
		return s.ReadWindow(ctx, key, offset, length)
	}
	return writeRangeResponse(w, method, rangeHeader, mimeType, total, read)
}
