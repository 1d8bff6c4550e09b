package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
)

/*
Storage provider for S3-compatible object storage. We use the minio client
library.
*/

////////////////////////////////////////////////////////////////////////////////

const (
	minioErrNoSuchKey = "NoSuchKey"
)

// S3Store stores objects in a bucket of an S3-compatible service.
type S3Store struct {
	mc     *minio.Client
	bucket string
	prefix string
}

// NewS3Store constructs a new S3 store. Object keys are prefixed with prefix.
func NewS3Store(mc *minio.Client, bucket string, prefix string) *S3Store {
	return &S3Store{
		mc:     mc,
		bucket: bucket,
		prefix: prefix,
	}
}

func (s *S3Store) key(id string) string {
	return s.prefix + id
}

// Put stores the data in the object store.
func (s *S3Store) Put(ctx context.Context, id string, data []byte) error {
	n := int64(len(data))
	_, err := s.mc.PutObject(
		ctx,
		s.bucket,
		s.key(id),
		bytes.NewReader(data),
		n,
		minio.PutObjectOptions{ContentType: "application/json"},
	)
	if err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}
	return nil
}

// Get retrieves an object from the object store.
func (s *S3Store) Get(ctx context.Context, id string) ([]byte, error) {
	obj, err := s.mc.GetObject(ctx, s.bucket, s.key(id), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == minioErrNoSuchKey {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}

// Delete removes an object from the object store. Removing a missing key is
// not an error.
func (s *S3Store) Delete(ctx context.Context, id string) error {
	if err := s.mc.RemoveObject(ctx, s.bucket, s.key(id), minio.RemoveObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == minioErrNoSuchKey {
			return nil
		}
		return fmt.Errorf("failed to remove object: %w", err)
	}
	return nil
}

func (s *S3Store) String() string {
	return fmt.Sprintf("s3(%s/%s)", s.bucket, s.prefix)
}
