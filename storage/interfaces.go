package storage

import (
	"context"

	"github.com/poiesic/docvec/core"
)

// DocumentRepository provides operations for managing document records.
// Implementations must be thread-safe and support concurrent access.
type DocumentRepository interface {
	// AddDocument stores a new document.
	// Sets UploadedAt if not already set, and UpdatedAt.
	// Returns ErrDuplicateKey if a document with the same ID exists.
	AddDocument(ctx context.Context, doc *core.Document) (*core.Document, error)

	// UpdateDocument replaces an existing document.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if the document doesn't exist.
	UpdateDocument(ctx context.Context, doc *core.Document) (*core.Document, error)

	// SetStatus updates only the processing status of a document.
	// Returns ErrNotFound if the document doesn't exist.
	SetStatus(ctx context.Context, id string, status core.ProcessStatus) error

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id string) (*core.Document, error)

	// DeleteDocument removes a document and its indices.
	// Returns ErrNotFound if the document doesn't exist.
	DeleteDocument(ctx context.Context, id string) error

	// ListDocuments returns the documents of a namespace ordered by ID.
	// When statuses are given only documents in one of them are returned.
	ListDocuments(ctx context.Context, namespace string, statuses ...core.ProcessStatus) ([]*core.Document, error)

	// ListDocumentsByUploader returns a user's documents ordered by upload time.
	ListDocumentsByUploader(ctx context.Context, uploadedBy string) ([]*core.Document, error)

	// FindSimilarDocuments ranks the namespace's documents by cosine
	// similarity between vector and their summary vectors. With an empty
	// uploadedBy only public documents qualify; otherwise only that user's
	// documents do. Results are ordered highest first.
	FindSimilarDocuments(ctx context.Context, vector []float32, namespace, uploadedBy string, limit int) ([]*core.DocumentMatch, error)

	// Close releases resources held by the repository.
	Close() error
}

// CheckpointRepository persists progress markers for bulk jobs.
type CheckpointRepository interface {
	// SaveCheckpoint persists a checkpoint, replacing any previous one for
	// the same processor type.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint retrieves the checkpoint for a processor type.
	// Returns nil, nil if no checkpoint exists.
	LoadCheckpoint(ctx context.Context, processorType string) (*core.Checkpoint, error)

	// DeleteCheckpoint removes the checkpoint for a processor type.
	DeleteCheckpoint(ctx context.Context, processorType string) error
}

// BlobStore holds the raw bytes of uploaded documents.
type BlobStore interface {
	// Get returns the bytes stored under id.
	// Returns ErrNotFound if nothing is stored there.
	Get(ctx context.Context, id string) ([]byte, error)

	// Put stores data under id, replacing any previous content.
	Put(ctx context.Context, id string, data []byte, contentType string) error

	// Delete removes the bytes stored under id.
	// Returns ErrNotFound if nothing is stored there.
	Delete(ctx context.Context, id string) error

	// Close releases resources held by the store.
	Close() error
}

// InsertOptions holds optional parameters for vector inserts.
type InsertOptions struct {
	// VectorIDs supplies identifiers for the inserted rows. When empty a
	// random UUID is generated per vector.
	VectorIDs []string
}

// InsertOption configures a vector insert.
type InsertOption func(*InsertOptions)

// WithVectorIDs supplies explicit identifiers, one per vector.
func WithVectorIDs(ids []string) InsertOption {
	return func(o *InsertOptions) {
		o.VectorIDs = ids
	}
}

// VectorIndex stores passage vectors scoped by namespace and document and
// answers cosine similarity queries over the active set.
// Implementations must be thread-safe.
type VectorIndex interface {
	// InsertVectors stores one active row per vector. metadatas are JSON
	// serialized and must pair 1:1 with vectors. Returns the row IDs in
	// input order.
	InsertVectors(ctx context.Context, namespace, document string, vectors [][]float32, metadatas []any, opts ...InsertOption) ([]string, error)

	// ReplaceDocumentVectors swaps a document's active rows for the given
	// vectors. The previous rows stay active until the new set is fully
	// written.
	ReplaceDocumentVectors(ctx context.Context, namespace, document string, vectors [][]float32, metadatas []any) ([]string, error)

	// DeleteVectorsInDocument soft deletes a document's rows. An empty
	// document deletes every row in the namespace.
	DeleteVectorsInDocument(ctx context.Context, namespace, document string) error

	// PurgeVectorsInDocument hard deletes a document's rows regardless of status.
	PurgeVectorsInDocument(ctx context.Context, namespace, document string) error

	// PurgeInactive hard deletes soft-deleted rows in a namespace.
	PurgeInactive(ctx context.Context, namespace string) (int64, error)

	// PurgeStaged hard deletes rows left behind by interrupted replaces.
	PurgeStaged(ctx context.Context) (int64, error)

	// SetVectorStatusByIDs sets the status of the given rows.
	SetVectorStatusByIDs(ctx context.Context, ids []string, status core.VectorStatus) error

	// GetDocumentVectors lists a document's active rows without vector payloads.
	GetDocumentVectors(ctx context.Context, namespace, document string) ([]core.VectorRecord, error)

	// SimilaritySearchByNamespace ranks active rows of a namespace, optionally
	// narrowed to one document, by cosine similarity to query.
	SimilaritySearchByNamespace(ctx context.Context, query []float32, namespace, document string, limit int) ([]core.QueryResult, error)

	// SimilaritySearchByDocuments ranks active rows belonging to any of the
	// given documents, across namespaces.
	SimilaritySearchByDocuments(ctx context.Context, query []float32, documents []string, limit int) ([]core.QueryResult, error)

	// Close releases the underlying connection.
	Close() error
}
