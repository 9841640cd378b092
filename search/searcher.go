package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/docvec/ai"
	"github.com/poiesic/docvec/core"
	"github.com/poiesic/docvec/storage"
)

// DefaultLimit is the number of hits returned when none is requested.
const DefaultLimit = 5

// Source describes the document a hit came from.
type Source struct {
	Filename   string
	UploadedBy string
	UploadedAt time.Time
}

// Hit is one ranked passage.
type Hit struct {
	Namespace  string
	Document   string
	VectorID   string
	Content    string
	PageNumber int
	Similarity float64
	// Verbatim is set when the passage contains every non stop-word of the query.
	Verbatim bool
	// Source is set by SearchDocuments when the document still exists.
	Source *Source
}

// Searcher provides semantic search over indexed passages and document summaries.
type Searcher struct {
	index     storage.VectorIndex
	documents storage.DocumentRepository
	embedder  ai.Embedder
	logger    *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	index storage.VectorIndex,
	documents storage.DocumentRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*Searcher, error) {
	if index == nil {
		return nil, ErrVectorIndexRequired
	}
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		index:     index,
		documents: documents,
		embedder:  provider.Embedder(),
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// SearchPassages ranks the passages of a namespace by similarity to query.
// A non-empty document narrows the search to that document.
func (s *Searcher) SearchPassages(ctx context.Context, query, namespace, document string, limit int) ([]*Hit, error) {
	return s.SearchPassagesWithMonitor(ctx, query, namespace, document, limit, nil)
}

// SearchPassagesWithMonitor is SearchPassages with monitoring.
func (s *Searcher) SearchPassagesWithMonitor(ctx context.Context, query, namespace, document string, limit int, monitor SearchMonitor) ([]*Hit, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(query)

	vector, err := s.embedQuery(ctx, query, monitor)
	if err != nil {
		return nil, err
	}

	results, err := s.index.SimilaritySearchByNamespace(ctx, vector, namespace, document, normalizeLimit(limit))
	if err != nil {
		s.logger.Error("error querying for similar passages", "namespace", namespace, "err", err)
		return nil, err
	}
	monitor.AfterVectorSearch(results)

	hits := s.toHits(query, results)
	monitor.Finish(hits)
	return hits, nil
}

// SearchDocuments ranks the passages of the given documents, regardless of
// namespace, and attaches each document's details to its hits.
func (s *Searcher) SearchDocuments(ctx context.Context, query string, documentIDs []string, limit int) ([]*Hit, error) {
	return s.SearchDocumentsWithMonitor(ctx, query, documentIDs, limit, nil)
}

// SearchDocumentsWithMonitor is SearchDocuments with monitoring.
func (s *Searcher) SearchDocumentsWithMonitor(ctx context.Context, query string, documentIDs []string, limit int, monitor SearchMonitor) ([]*Hit, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(query)

	if len(documentIDs) == 0 {
		monitor.Finish([]*Hit{})
		return []*Hit{}, nil
	}

	vector, err := s.embedQuery(ctx, query, monitor)
	if err != nil {
		return nil, err
	}

	results, err := s.index.SimilaritySearchByDocuments(ctx, vector, documentIDs, normalizeLimit(limit))
	if err != nil {
		s.logger.Error("error querying for similar passages", "documents", len(documentIDs), "err", err)
		return nil, err
	}
	monitor.AfterVectorSearch(results)

	docs := make(map[string]*core.Document)
	for _, r := range results {
		if _, seen := docs[r.Document]; seen {
			continue
		}
		doc, err := s.documents.GetDocument(ctx, r.Document)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				s.logger.Debug("document not found for hit", "document", r.Document)
				docs[r.Document] = nil
				continue
			}
			return nil, err
		}
		docs[r.Document] = doc
	}
	monitor.AfterDocumentLookup(docs)

	hits := s.toHits(query, results)
	for _, hit := range hits {
		if doc := docs[hit.Document]; doc != nil {
			hit.Source = &Source{
				Filename:   doc.Filename,
				UploadedBy: doc.UploadedBy,
				UploadedAt: doc.UploadedAt,
			}
		}
	}
	monitor.Finish(hits)
	return hits, nil
}

// SearchSummaries ranks the namespace's documents by the similarity of their
// summaries to query. With an empty uploadedBy only public documents are
// considered; otherwise only that user's documents are.
func (s *Searcher) SearchSummaries(ctx context.Context, query, namespace, uploadedBy string, limit int) ([]*core.DocumentMatch, error) {
	vector, err := s.embedQuery(ctx, query, &noopMonitor{})
	if err != nil {
		return nil, err
	}

	matches, err := s.documents.FindSimilarDocuments(ctx, vector, namespace, uploadedBy, normalizeLimit(limit))
	if err != nil {
		s.logger.Error("error querying for similar documents", "namespace", namespace, "err", err)
		return nil, err
	}
	return matches, nil
}

func (s *Searcher) embedQuery(ctx context.Context, query string, monitor SearchMonitor) ([]float32, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}
	monitor.AfterQueryEmbedding(vector)
	return vector, nil
}

// toHits decodes result metadata. Results keep their similarity order.
func (s *Searcher) toHits(query string, results []core.QueryResult) []*Hit {
	hits := make([]*Hit, 0, len(results))
	for i := range results {
		r := &results[i]
		md, err := r.DecodeMetadata()
		if err != nil {
			s.logger.Warn("skipping hit with unreadable metadata", "vector", r.VectorID, "err", err)
			continue
		}
		hits = append(hits, &Hit{
			Namespace:  r.Namespace,
			Document:   r.Document,
			VectorID:   r.VectorID,
			Content:    md.Content,
			PageNumber: md.PageNumber,
			Similarity: r.Similarity,
			Verbatim:   containsAllQueryWords(md.Content, query),
		})
	}
	return hits
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}
