// Package minio stores document bytes in an S3-compatible bucket.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/poiesic/docvec/storage"
)

// DefaultBucket is the bucket used when none is configured.
const DefaultBucket = "document"

// Config describes how to reach the object store.
type Config struct {
	Endpoint     string `yaml:"endpoint"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	Bucket       string `yaml:"bucket"`
	Region       string `yaml:"region"`
	UseSSL       bool   `yaml:"use_ssl"`
	CreateBucket bool   `yaml:"create_bucket"`
}

// Validate checks that the configuration can produce a client.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("%w: minio endpoint is required", storage.ErrInvalidConfig)
	}
	return nil
}

// BlobStore implements storage.BlobStore on a MinIO bucket.
type BlobStore struct {
	client *minio.Client
	bucket string
}

var _ storage.BlobStore = (*BlobStore)(nil)

// New wraps an existing client.
func New(client *minio.Client, bucket string) *BlobStore {
	if bucket == "" {
		bucket = DefaultBucket
	}
	return &BlobStore{
		client: client,
		bucket: bucket,
	}
}

// Open creates a client from cfg and makes sure the bucket exists.
// A missing bucket is created when cfg.CreateBucket is set and reported
// as storage.ErrBucketNotFound otherwise.
func Open(ctx context.Context, cfg Config) (*BlobStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	store := New(client, cfg.Bucket)
	exists, err := client.BucketExists(ctx, store.bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", store.bucket, err)
	}
	if !exists {
		if !cfg.CreateBucket {
			return nil, fmt.Errorf("%w: %s", storage.ErrBucketNotFound, store.bucket)
		}
		if err := client.MakeBucket(ctx, store.bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", store.bucket, err)
		}
	}
	return store, nil
}

// Get returns the object stored under id.
func (s *BlobStore) Get(ctx context.Context, id string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, id, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = obj.Close() }()

	if _, err := obj.Stat(); err != nil {
		if isNoSuchKey(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	return io.ReadAll(obj)
}

// Put stores data under id.
func (s *BlobStore) Put(ctx context.Context, id string, data []byte, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	_, err := s.client.PutObject(ctx, s.bucket, id, bytes.NewReader(data), int64(len(data)), opts)
	return err
}

// Delete removes the object stored under id.
func (s *BlobStore) Delete(ctx context.Context, id string) error {
	if _, err := s.client.StatObject(ctx, s.bucket, id, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return storage.ErrNotFound
		}
		return err
	}
	return s.client.RemoveObject(ctx, s.bucket, id, minio.RemoveObjectOptions{})
}

// Close is a no-op; the client holds no long-lived resources.
func (s *BlobStore) Close() error {
	return nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
