package badger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docvec/core"
	"github.com/poiesic/docvec/storage"
)

const defaultSimilarLimit = 5

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) (*DocumentRepository, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: backend is nil", storage.ErrInvalidConfig)
	}
	return &DocumentRepository{backend: backend}, nil
}

// Close is a no-op; the backend is closed by its owner.
func (r *DocumentRepository) Close() error {
	return nil
}

// AddDocument stores a new document.
func (r *DocumentRepository) AddDocument(ctx context.Context, doc *core.Document) (*core.Document, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}

	err := r.backend.Update(ctx, func(tx *badger.Txn) error {
		key := makeDocumentKey(doc.ID)
		existing, err := r.readDocument(tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: document %s", storage.ErrDuplicateKey, doc.ID)
		}

		now := time.Now().UTC()
		if doc.UploadedAt.IsZero() {
			doc.UploadedAt = now
		}
		doc.UpdatedAt = now

		return r.writeDocument(tx, doc, nil)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// UpdateDocument replaces an existing document.
func (r *DocumentRepository) UpdateDocument(ctx context.Context, doc *core.Document) (*core.Document, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}

	err := r.backend.Update(ctx, func(tx *badger.Txn) error {
		old, err := r.readDocument(tx, makeDocumentKey(doc.ID))
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}
		doc.UpdatedAt = time.Now().UTC()
		return r.writeDocument(tx, doc, old)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// SetStatus updates only the processing status of a document.
func (r *DocumentRepository) SetStatus(ctx context.Context, id string, status core.ProcessStatus) error {
	if err := core.ValidateProcessStatus(status); err != nil {
		return err
	}
	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		doc, err := r.readDocument(tx, makeDocumentKey(id))
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}
		old := *doc
		doc.Status = status
		doc.UpdatedAt = time.Now().UTC()
		return r.writeDocument(tx, doc, &old)
	})
}

// GetDocument retrieves a single document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id string) (*core.Document, error) {
	var result *core.Document
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		var err error
		result, err = r.readDocument(tx, makeDocumentKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteDocument removes a document and its indices.
func (r *DocumentRepository) DeleteDocument(ctx context.Context, id string) error {
	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		key := makeDocumentKey(id)
		doc, err := r.readDocument(tx, key)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		if err := tx.Delete(makeNamespaceKey(doc.Namespace, doc.ID)); err != nil {
			return err
		}
		if err := tx.Delete(makeUploaderKey(doc.UploadedBy, doc.UploadedAt, doc.ID)); err != nil {
			return err
		}
		return tx.Delete(key)
	})
}

// ListDocuments returns the documents of a namespace ordered by ID.
func (r *DocumentRepository) ListDocuments(ctx context.Context, namespace string, statuses ...core.ProcessStatus) ([]*core.Document, error) {
	var results []*core.Document
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		return r.scanIndex(ctx, tx, makePartialNamespaceKey(namespace), func(doc *core.Document) {
			if len(statuses) == 0 || slices.Contains(statuses, doc.Status) {
				results = append(results, doc)
			}
		})
	})
	return results, err
}

// ListDocumentsByUploader returns a user's documents ordered by upload time.
func (r *DocumentRepository) ListDocumentsByUploader(ctx context.Context, uploadedBy string) ([]*core.Document, error) {
	var results []*core.Document
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		return r.scanIndex(ctx, tx, makePartialUploaderKey(uploadedBy), func(doc *core.Document) {
			results = append(results, doc)
		})
	})
	return results, err
}

// FindSimilarDocuments ranks documents by summary vector similarity.
func (r *DocumentRepository) FindSimilarDocuments(ctx context.Context, vector []float32, namespace, uploadedBy string, limit int) ([]*core.DocumentMatch, error) {
	if limit <= 0 {
		limit = defaultSimilarLimit
	}

	var results []*core.DocumentMatch
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		return r.scanIndex(ctx, tx, makePartialNamespaceKey(namespace), func(doc *core.Document) {
			// Skip documents without summaries
			if len(doc.SummaryVector) == 0 {
				return
			}
			if uploadedBy == "" && doc.Visibility != core.VisibilityPublic {
				return
			}
			if uploadedBy != "" && doc.UploadedBy != uploadedBy {
				return
			}
			results = append(results, &core.DocumentMatch{
				Document:   doc,
				Similarity: cosineSimilarity(vector, doc.SummaryVector),
			})
		})
	})
	if err != nil {
		return nil, err
	}

	// Sort by similarity descending
	slices.SortStableFunc(results, func(a, b *core.DocumentMatch) int {
		if a.Similarity > b.Similarity {
			return -1
		}
		if a.Similarity < b.Similarity {
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// scanIndex walks index keys under prefix, resolving each to its document.
// Index values hold the document ID.
func (r *DocumentRepository) scanIndex(ctx context.Context, tx *badger.Txn, prefix []byte, fn func(doc *core.Document)) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}

		var id []byte
		if err := iter.Item().Value(func(val []byte) error {
			id = bytes.Clone(val)
			return nil
		}); err != nil {
			return err
		}

		doc, err := r.readDocument(tx, makeDocumentKey(string(id)))
		if err != nil {
			return err
		}
		if doc != nil {
			fn(doc)
		}
	}
	return nil
}

// readDocument reads a document within a transaction.
// Returns nil, nil if the document doesn't exist.
func (r *DocumentRepository) readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var doc core.Document
	err = item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, &doc); err != nil {
			return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// writeDocument stores doc and its index entries. When old is non-nil,
// index entries that no longer match are removed.
func (r *DocumentRepository) writeDocument(tx *badger.Txn, doc, old *core.Document) error {
	value, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	if err := tx.Set(makeDocumentKey(doc.ID), value); err != nil {
		return err
	}

	if old != nil && old.Namespace != doc.Namespace {
		if err := tx.Delete(makeNamespaceKey(old.Namespace, old.ID)); err != nil {
			return err
		}
	}
	if err := tx.Set(makeNamespaceKey(doc.Namespace, doc.ID), []byte(doc.ID)); err != nil {
		return err
	}

	if old != nil && (old.UploadedBy != doc.UploadedBy || !old.UploadedAt.Equal(doc.UploadedAt)) {
		if err := tx.Delete(makeUploaderKey(old.UploadedBy, old.UploadedAt, old.ID)); err != nil {
			return err
		}
	}
	return tx.Set(makeUploaderKey(doc.UploadedBy, doc.UploadedAt, doc.ID), []byte(doc.ID))
}
