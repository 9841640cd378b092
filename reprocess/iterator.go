package reprocess

import (
	"cmp"
	"context"
	"slices"

	"github.com/poiesic/docvec/core"
	"github.com/poiesic/docvec/storage"
)

// DefaultBatchSize is the default number of documents handed to each callback.
const DefaultBatchSize = 20

// DocumentIterator walks a namespace's documents in ID order.
type DocumentIterator struct {
	repo      storage.DocumentRepository
	namespace string
	statuses  []core.ProcessStatus
	batchSize int
}

// NewDocumentIterator creates an iterator over documents of namespace in
// one of statuses. No statuses selects every document.
func NewDocumentIterator(repo storage.DocumentRepository, namespace string, statuses []core.ProcessStatus, batchSize int) *DocumentIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &DocumentIterator{
		repo:      repo,
		namespace: namespace,
		statuses:  statuses,
		batchSize: batchSize,
	}
}

// Documents returns the matching documents with IDs greater than afterID.
func (it *DocumentIterator) Documents(ctx context.Context, afterID string) ([]*core.Document, error) {
	docs, err := it.repo.ListDocuments(ctx, it.namespace, it.statuses...)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(docs, func(a, b *core.Document) int {
		return cmp.Compare(a.ID, b.ID)
	})
	if afterID == "" {
		return docs, nil
	}
	start, found := slices.BinarySearchFunc(docs, afterID, func(d *core.Document, id string) int {
		return cmp.Compare(d.ID, id)
	})
	if found {
		start++
	}
	return docs[start:], nil
}

// ForEach calls fn with consecutive batches of docs, stopping at the first
// error or when ctx is done.
func (it *DocumentIterator) ForEach(ctx context.Context, docs []*core.Document, fn func([]*core.Document) error) error {
	for start := 0; start < len(docs); start += it.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+it.batchSize, len(docs))
		if err := fn(docs[start:end]); err != nil {
			return err
		}
	}
	return ctx.Err()
}
