// Package bolt stores document bytes in a local bbolt file.
package bolt

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/poiesic/docvec/storage"
	"go.etcd.io/bbolt"
)

// DefaultBucket is the bucket used when none is configured.
const DefaultBucket = "document"

// BlobStore implements storage.BlobStore on a bbolt database.
type BlobStore struct {
	db     *bbolt.DB
	bucket []byte
}

var _ storage.BlobStore = (*BlobStore)(nil)

// Open opens or creates the database file at path.
func Open(path, bucket string) (*BlobStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open blob store: %w", err)
	}
	return New(db, bucket), nil
}

// New wraps an open database.
func New(db *bbolt.DB, bucket string) *BlobStore {
	if bucket == "" {
		bucket = DefaultBucket
	}
	return &BlobStore{
		db:     db,
		bucket: []byte(bucket),
	}
}

// Get returns a copy of the bytes stored under id.
func (s *BlobStore) Get(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return storage.ErrNotFound
		}
		v := b.Get([]byte(id))
		if v == nil {
			return storage.ErrNotFound
		}
		data = make([]byte, len(v))
		copy(data, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Put stores data under id. bbolt keeps no content type.
func (s *BlobStore) Put(ctx context.Context, id string, data []byte, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(s.bucket)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), data)
	})
}

// Delete removes the bytes stored under id.
func (s *BlobStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil || b.Get([]byte(id)) == nil {
			return storage.ErrNotFound
		}
		return b.Delete([]byte(id))
	})
}

// Close closes the database file.
func (s *BlobStore) Close() error {
	return s.db.Close()
}
