package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docvec/ai"
	"github.com/poiesic/docvec/chunker"
	"github.com/poiesic/docvec/cluster"
	"github.com/poiesic/docvec/core"
	"github.com/poiesic/docvec/parser"
	"github.com/poiesic/docvec/storage"
)

// Pipeline orchestrates the ingestion and processing of documents.
// Passage embeddings run on a bounded pool; submitted documents run on a
// second pool so several documents can be processed at once.
type Pipeline struct {
	documents     storage.DocumentRepository
	blobs         storage.BlobStore
	parser        parser.Parser
	index         storage.VectorIndex
	embedder      ai.Embedder
	summarizer    ai.Summarizer
	embeddingPool *ants.Pool
	documentPool  *ants.Pool
	chunkOptions  chunker.Options
	maxClusters   int
	retry         RetryPolicy
	skipUnchanged bool
	logger        *slog.Logger

	inflight sync.WaitGroup
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets how many embedding calls run at once.
// Default is DefaultEmbeddingWorkers.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		pool, err := replacePool(p.embeddingPool, size)
		if err != nil {
			return err
		}
		p.embeddingPool = pool
		return nil
	}
}

// WithWorkers sets how many submitted documents are processed at once.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithWorkers(size int) Option {
	return func(p *Pipeline) error {
		pool, err := replacePool(p.documentPool, size)
		if err != nil {
			return err
		}
		p.documentPool = pool
		return nil
	}
}

func replacePool(old *ants.Pool, size int) (*ants.Pool, error) {
	if size < 1 {
		size = 1
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, err
	}
	if old != nil {
		old.Release()
	}
	return pool, nil
}

// WithSplitLength sets the passage split threshold in characters.
// Default is chunker.DefaultSplitLength.
func WithSplitLength(n int) Option {
	return func(p *Pipeline) error {
		p.chunkOptions.SplitLength = n
		return nil
	}
}

// WithMaxClusters sets how many representative passages are summarized.
// Default is cluster.DefaultMaxClusters.
func WithMaxClusters(n int) Option {
	return func(p *Pipeline) error {
		if n < 1 {
			n = cluster.DefaultMaxClusters
		}
		p.maxClusters = n
		return nil
	}
}

// WithRetryPolicy sets the retry policy for embedding calls.
// Default is DefaultRetryPolicy().
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(p *Pipeline) error {
		if policy.MaxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		p.retry = policy
		return nil
	}
}

// WithSkipUnchanged makes Upload return the existing document when the
// namespace already holds a processed document with identical bytes.
func WithSkipUnchanged(skip bool) Option {
	return func(p *Pipeline) error {
		p.skipUnchanged = skip
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	documents storage.DocumentRepository,
	blobs storage.BlobStore,
	docParser parser.Parser,
	index storage.VectorIndex,
	provider ai.AIProvider,
	opts ...Option,
) (*Pipeline, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if blobs == nil {
		return nil, ErrBlobStoreRequired
	}
	if docParser == nil {
		return nil, ErrParserRequired
	}
	if index == nil {
		return nil, ErrVectorIndexRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	embeddingPool, err := ants.NewPool(DefaultEmbeddingWorkers)
	if err != nil {
		return nil, err
	}

	workers := runtime.NumCPU() / 2
	if workers < 1 {
		workers = 1
	}
	documentPool, err := ants.NewPool(workers)
	if err != nil {
		embeddingPool.Release()
		return nil, err
	}

	p := &Pipeline{
		documents:     documents,
		blobs:         blobs,
		parser:        docParser,
		index:         index,
		embedder:      provider.Embedder(),
		summarizer:    provider.Summarizer(),
		embeddingPool: embeddingPool,
		documentPool:  documentPool,
		chunkOptions:  chunker.DefaultOptions(),
		maxClusters:   cluster.DefaultMaxClusters,
		retry:         DefaultRetryPolicy(),
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "ingestion")

	return p, nil
}

// UploadRequest describes a new document.
type UploadRequest struct {
	Namespace   string
	Filename    string
	ContentType string
	UploadedBy  string
	Visibility  core.Visibility // Default: private
	Metadata    core.DocumentMetadata
	Data        []byte
}

// supporter is implemented by parsers that restrict content types.
type supporter interface {
	Supports(contentType string) bool
}

// Upload stores the bytes of a new document and records it in the
// uploaded state. It does not process the document.
func (p *Pipeline) Upload(ctx context.Context, req UploadRequest) (*core.Document, error) {
	if s, ok := p.parser.(supporter); ok && !s.Supports(req.ContentType) {
		return nil, fmt.Errorf("%w: %q", parser.ErrUnsupportedContentType, req.ContentType)
	}

	hash := core.ContentHash(req.Data)
	if p.skipUnchanged {
		existing, err := p.findProcessed(ctx, req.Namespace, hash)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			p.logger.Info("skipping unchanged upload", "document", existing.ID, "filename", req.Filename)
			return existing, nil
		}
	}

	visibility := req.Visibility
	if visibility == 0 {
		visibility = core.VisibilityPrivate
	}
	metadata := req.Metadata
	if metadata.SourceType == "" {
		metadata.SourceType = core.SourceTypeUploadFile
	}

	doc := &core.Document{
		ID:          uuid.NewString(),
		Namespace:   req.Namespace,
		Filename:    req.Filename,
		ContentType: req.ContentType,
		ByteSize:    int64(len(req.Data)),
		UploadedBy:  req.UploadedBy,
		Status:      core.ProcessStatusUploaded,
		Visibility:  visibility,
		ContentHash: hash,
		Metadata:    metadata,
	}
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}

	if err := p.blobs.Put(ctx, doc.ID, req.Data, doc.ContentType); err != nil {
		return nil, fmt.Errorf("failed to store document bytes: %w", err)
	}
	added, err := p.documents.AddDocument(ctx, doc)
	if err != nil {
		return nil, errors.Join(err, p.blobs.Delete(ctx, doc.ID))
	}

	p.logger.Info("uploaded document", "document", added.ID, "namespace", added.Namespace,
		"filename", added.Filename, "bytes", added.ByteSize)
	return added, nil
}

func (p *Pipeline) findProcessed(ctx context.Context, namespace, hash string) (*core.Document, error) {
	docs, err := p.documents.ListDocuments(ctx, namespace, core.ProcessStatusProcessed)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if doc.ContentHash == hash {
			return doc, nil
		}
	}
	return nil, nil
}

// Process runs the document through the pipeline and returns its final
// state. The processing status is written before any work starts.
// Processing failures are recorded on the document, not returned; an error
// is returned only when the document cannot be loaded or its status cannot
// be written.
func (p *Pipeline) Process(ctx context.Context, docID string) (*core.Document, error) {
	if err := p.documents.SetStatus(ctx, docID, core.ProcessStatusProcessing); err != nil {
		return nil, err
	}
	return p.run(ctx, docID)
}

// Submit marks the document as processing and queues the rest of the run
// on the document pool. The queued run is detached from ctx cancellation.
func (p *Pipeline) Submit(ctx context.Context, docID string) error {
	if err := p.documents.SetStatus(ctx, docID, core.ProcessStatusProcessing); err != nil {
		return err
	}

	runCtx := context.WithoutCancel(ctx)
	p.inflight.Add(1)
	err := p.documentPool.Submit(func() {
		defer p.inflight.Done()
		if _, err := p.run(runCtx, docID); err != nil {
			p.logger.Error("error recording document status", "document", docID, "err", err)
		}
	})
	if err != nil {
		p.inflight.Done()
		_, recordErr := p.finish(runCtx, docID, nil, err)
		return errors.Join(err, recordErr)
	}
	return nil
}

// Wait blocks until every submitted document has finished.
func (p *Pipeline) Wait() {
	p.inflight.Wait()
}

// result is what a successful run writes back to the document.
type result struct {
	summary       string
	summaryVector []float32
	passages      int
}

// run processes a document already marked as processing.
func (p *Pipeline) run(ctx context.Context, docID string) (*core.Document, error) {
	start := time.Now()
	res, err := p.compute(ctx, docID)
	if err != nil {
		p.logger.Error("document processing failed", "document", docID, "err", err)
	} else {
		p.logger.Info("document processed", "document", docID, "passages", res.passages,
			"elapsed", time.Since(start))
	}
	return p.finish(ctx, docID, res, err)
}

// finish records the outcome of a run. The document is reloaded so fields
// changed while it was processing are kept.
func (p *Pipeline) finish(ctx context.Context, docID string, res *result, runErr error) (*core.Document, error) {
	ctx = context.WithoutCancel(ctx)
	doc, err := p.documents.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}

	if runErr != nil {
		doc.Status = core.ProcessStatusError
		doc.Summary = ""
		doc.SummaryVector = nil
		doc.LastError = runErr.Error()
	} else {
		doc.Status = core.ProcessStatusProcessed
		doc.Summary = res.summary
		doc.SummaryVector = res.summaryVector
		doc.LastError = ""
	}
	return p.documents.UpdateDocument(ctx, doc)
}

// compute does the work of a run without touching the document record.
// The index is written last, so any earlier failure leaves the document's
// vectors as they were.
func (p *Pipeline) compute(ctx context.Context, docID string) (*result, error) {
	doc, err := p.documents.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	logger := p.logger.With("document", doc.ID, "namespace", doc.Namespace)

	data, err := p.blobs.Get(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load document bytes: %w", err)
	}

	segments, err := p.parser.Parse(ctx, doc.ID, data, doc.ContentType)
	if err != nil {
		if !errors.Is(err, core.ErrParse) {
			err = fmt.Errorf("%w: %w", core.ErrParse, err)
		}
		return nil, err
	}

	opts := p.chunkOptions
	opts.PlainText = parser.IsPlainText(doc.ContentType)
	passages := chunker.Chunk(segments, opts)
	logger.Debug("chunked document", "segments", len(segments), "passages", len(passages))
	if len(passages) == 0 {
		return nil, fmt.Errorf("%w: document produced no passages", core.ErrClusterInputEmpty)
	}

	texts := make([]string, len(passages))
	for i, passage := range passages {
		texts[i] = passage.Text
	}
	vectors, err := EmbedAll(ctx, p.embeddingPool, p.embedder, texts, p.retry)
	if err != nil {
		return nil, err
	}

	representatives, err := cluster.SelectRepresentatives(vectors, p.maxClusters)
	if err != nil {
		return nil, err
	}
	logger.Debug("selected representatives", "indices", representatives)

	summary, err := p.summarize(ctx, passages, representatives)
	if err != nil {
		return nil, err
	}
	summaryVector, err := embedOne(ctx, p.embedder, summary, p.retry)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}

	metadatas := make([]any, len(passages))
	for i, passage := range passages {
		metadatas[i] = core.VectorMetadata{Content: passage.Text, PageNumber: passage.PageNumber}
	}
	ids, err := p.index.ReplaceDocumentVectors(ctx, doc.Namespace, doc.ID, vectors, metadatas)
	if err != nil {
		return nil, err
	}
	logger.Debug("indexed passages", "vectors", len(ids))

	return &result{summary: summary, summaryVector: summaryVector, passages: len(passages)}, nil
}

// summarize summarizes each representative passage in document order and
// combines the results into one document summary.
func (p *Pipeline) summarize(ctx context.Context, passages []core.Passage, representatives []int) (string, error) {
	summaries := make([]string, 0, len(representatives))
	for _, idx := range representatives {
		summary, err := p.summarizer.SummarizePassage(ctx, passages[idx].Text)
		if err != nil {
			return "", fmt.Errorf("failed to summarize passage %d: %w", idx, err)
		}
		summaries = append(summaries, summary)
	}

	summary, err := p.summarizer.CombineSummaries(ctx, summaries)
	if err != nil {
		return "", fmt.Errorf("failed to combine summaries: %w", err)
	}
	return summary, nil
}

// Delete removes a document, its bytes and its vectors. Vectors are soft
// deleted; PurgeInactive on the index reclaims them.
func (p *Pipeline) Delete(ctx context.Context, docID string) error {
	doc, err := p.documents.GetDocument(ctx, docID)
	if err != nil {
		return err
	}

	if err := p.index.DeleteVectorsInDocument(ctx, doc.Namespace, doc.ID); err != nil {
		return err
	}
	if err := p.blobs.Delete(ctx, doc.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	if err := p.documents.DeleteDocument(ctx, doc.ID); err != nil {
		return err
	}

	p.logger.Info("deleted document", "document", doc.ID, "namespace", doc.Namespace)
	return nil
}

// Release releases resources including worker pools.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.embeddingPool != nil {
		p.embeddingPool.Release()
	}
	if p.documentPool != nil {
		p.documentPool.Release()
	}
}
