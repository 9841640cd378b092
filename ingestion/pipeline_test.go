package ingestion

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/poiesic/docvec/ai/mock"
	"github.com/poiesic/docvec/core"
	"github.com/poiesic/docvec/parser"
	"github.com/poiesic/docvec/storage"
	"github.com/poiesic/docvec/storage/badger"
	"github.com/poiesic/docvec/storage/bolt"
	"github.com/poiesic/docvec/storage/vectordb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDimension = 16

// testParser returns fixed segments for every document.
type testParser struct {
	segments []core.RawSegment
	err      error
}

func (p *testParser) Parse(_ context.Context, _ string, _ []byte, _ string) ([]core.RawSegment, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.segments, nil
}

type testEnv struct {
	pipeline  *Pipeline
	documents *badger.DocumentRepository
	blobs     *bolt.BlobStore
	index     *vectordb.Index
	embedder  *mock.MockEmbedder
	summaries *mock.MockSummarizer
	fallback  *testParser
}

func setupTestPipeline(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	documents, _, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	blobs, err := bolt.Open(filepath.Join(dir, "blobs.db"), "")
	require.NoError(t, err)
	t.Cleanup(func() { blobs.Close() })

	index, err := vectordb.New(ctx, vectordb.NewSQLiteConnector(filepath.Join(dir, "vectors.db")),
		vectordb.SQLite, vectordb.WithDimension(testDimension))
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })

	embedder := mock.NewMockEmbedder().WithDimension(testDimension)
	summaries := mock.NewMockSummarizer()
	fallback := &testParser{}

	opts = append([]Option{
		WithSplitLength(200),
		WithRetryPolicy(NoRetry()),
		WithPoolSize(3),
		WithWorkers(2),
	}, opts...)
	pipeline, err := NewPipeline(documents, blobs, parser.NewRouter(fallback, nil), index,
		mock.NewMockProviderWithServices(embedder, summaries), opts...)
	require.NoError(t, err)
	t.Cleanup(pipeline.Release)

	return &testEnv{
		pipeline:  pipeline,
		documents: documents,
		blobs:     blobs,
		index:     index,
		embedder:  embedder,
		summaries: summaries,
		fallback:  fallback,
	}
}

// sampleText renders lines long enough to span several passages.
func sampleText(lines int) string {
	var b strings.Builder
	for i := range lines {
		fmt.Fprintf(&b, "Line %d talks about topic %d with several ordinary words in it.\n", i, i%4)
	}
	return b.String()
}

func (e *testEnv) upload(t *testing.T, text string) *core.Document {
	t.Helper()
	doc, err := e.pipeline.Upload(context.Background(), UploadRequest{
		Namespace:   "ns",
		Filename:    "notes.txt",
		ContentType: "text/plain; charset=utf-8",
		UploadedBy:  "alice",
		Data:        []byte(text),
	})
	require.NoError(t, err)
	return doc
}

func TestNewPipeline_RequiresCollaborators(t *testing.T) {
	env := setupTestPipeline(t)
	provider := mock.NewMockProvider()
	p := parser.NewRouter(nil, nil)

	_, err := NewPipeline(nil, env.blobs, p, env.index, provider)
	assert.ErrorIs(t, err, ErrDocumentRepositoryRequired)
	_, err = NewPipeline(env.documents, nil, p, env.index, provider)
	assert.ErrorIs(t, err, ErrBlobStoreRequired)
	_, err = NewPipeline(env.documents, env.blobs, nil, env.index, provider)
	assert.ErrorIs(t, err, ErrParserRequired)
	_, err = NewPipeline(env.documents, env.blobs, p, nil, provider)
	assert.ErrorIs(t, err, ErrVectorIndexRequired)
	_, err = NewPipeline(env.documents, env.blobs, p, env.index, nil)
	assert.ErrorIs(t, err, ErrAIProviderRequired)
	_, err = NewPipeline(env.documents, env.blobs, p, env.index, provider, WithRetryPolicy(RetryPolicy{}))
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestUpload(t *testing.T) {
	env := setupTestPipeline(t)
	ctx := context.Background()
	doc := env.upload(t, "hello world")

	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, core.ProcessStatusUploaded, doc.Status)
	assert.Equal(t, core.VisibilityPrivate, doc.Visibility)
	assert.Equal(t, core.SourceTypeUploadFile, doc.Metadata.SourceType)
	assert.Equal(t, int64(11), doc.ByteSize)
	assert.Equal(t, core.ContentHash([]byte("hello world")), doc.ContentHash)

	data, err := env.blobs.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestUpload_RejectsUnsupportedType(t *testing.T) {
	env := setupTestPipeline(t)
	_, err := env.pipeline.Upload(context.Background(), UploadRequest{
		Namespace:   "ns",
		Filename:    "image.png",
		ContentType: "image/png",
		Data:        []byte{0x89, 'P', 'N', 'G'},
	})
	assert.ErrorIs(t, err, parser.ErrUnsupportedContentType)
}

func TestUpload_SkipUnchanged(t *testing.T) {
	env := setupTestPipeline(t, WithSkipUnchanged(true))
	ctx := context.Background()
	text := sampleText(10)

	first := env.upload(t, text)
	_, err := env.pipeline.Process(ctx, first.ID)
	require.NoError(t, err)

	second := env.upload(t, text)
	assert.Equal(t, first.ID, second.ID)

	third := env.upload(t, text+"more")
	assert.NotEqual(t, first.ID, third.ID)
}

func TestUpload_SkipUnchangedScopedToNamespace(t *testing.T) {
	env := setupTestPipeline(t, WithSkipUnchanged(true))
	ctx := context.Background()
	text := sampleText(10)

	upload := func(namespace string) *core.Document {
		doc, err := env.pipeline.Upload(ctx, UploadRequest{
			Namespace:   namespace,
			Filename:    "notes.txt",
			ContentType: "text/plain",
			UploadedBy:  "alice",
			Data:        []byte(text),
		})
		require.NoError(t, err)
		return doc
	}

	first := upload("a")
	_, err := env.pipeline.Process(ctx, first.ID)
	require.NoError(t, err)

	nested := upload("a:b")
	assert.NotEqual(t, first.ID, nested.ID)
	assert.Equal(t, "a:b", nested.Namespace)
	assert.Equal(t, core.ProcessStatusUploaded, nested.Status)
}

func TestProcess_PlainText(t *testing.T) {
	env := setupTestPipeline(t)
	ctx := context.Background()
	doc := env.upload(t, sampleText(40))

	processed, err := env.pipeline.Process(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, core.ProcessStatusProcessed, processed.Status)
	assert.NotEmpty(t, processed.Summary)
	assert.Len(t, processed.SummaryVector, testDimension)
	assert.Empty(t, processed.LastError)

	records, err := env.index.GetDocumentVectors(ctx, "ns", doc.ID)
	require.NoError(t, err)
	assert.Greater(t, len(records), 1)

	// one embedding per passage plus the summary
	assert.Equal(t, len(records)+1, env.embedder.CallCount())
	assert.Positive(t, env.summaries.PassageCalls())
	assert.LessOrEqual(t, env.summaries.PassageCalls(), 5)
	assert.Equal(t, 1, env.summaries.CombineCalls())

	result := core.QueryResult{Metadata: records[0].Metadata}
	md, err := result.DecodeMetadata()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(md.Content, "Line 0 talks"))

	stored, err := env.documents.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, core.ProcessStatusProcessed, stored.Status)
}

func TestProcess_ParsedSegmentsCarryPages(t *testing.T) {
	env := setupTestPipeline(t)
	ctx := context.Background()
	env.fallback.segments = []core.RawSegment{
		{Text: strings.Repeat("first page words ", 15), Metadata: map[string]any{"page_number": 1}},
		{Text: strings.Repeat("second page words ", 15), Metadata: map[string]any{"page_number": float64(2)}},
		{Text: "tail words on page three", Metadata: map[string]any{"page_number": 3}},
	}

	doc, err := env.pipeline.Upload(ctx, UploadRequest{
		Namespace: "ns", Filename: "report.pdf", ContentType: "application/pdf", Data: []byte("%PDF"),
	})
	require.NoError(t, err)

	processed, err := env.pipeline.Process(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, core.ProcessStatusProcessed, processed.Status, processed.LastError)

	records, err := env.index.GetDocumentVectors(ctx, "ns", doc.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)

	pages := make([]int, len(records))
	for i, r := range records {
		md, err := (&core.QueryResult{Metadata: r.Metadata}).DecodeMetadata()
		require.NoError(t, err)
		pages[i] = md.PageNumber
	}
	assert.Equal(t, []int{1, 2}, pages)
}

func TestProcess_ParseFailureRecordsError(t *testing.T) {
	env := setupTestPipeline(t)
	ctx := context.Background()
	env.fallback.err = errors.New("corrupt file")

	doc, err := env.pipeline.Upload(ctx, UploadRequest{
		Namespace: "ns", Filename: "broken.pdf", ContentType: "application/pdf", Data: []byte("junk"),
	})
	require.NoError(t, err)

	processed, err := env.pipeline.Process(ctx, doc.ID)
	require.NoError(t, err, "processing failures are recorded, not returned")
	assert.Equal(t, core.ProcessStatusError, processed.Status)
	assert.Contains(t, processed.LastError, core.ErrParse.Error())
	assert.Empty(t, processed.Summary)
	assert.Nil(t, processed.SummaryVector)
}

func TestProcess_EmptyDocument(t *testing.T) {
	env := setupTestPipeline(t)
	doc := env.upload(t, "\n\n   \n")

	processed, err := env.pipeline.Process(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, core.ProcessStatusError, processed.Status)
	assert.Contains(t, processed.LastError, core.ErrClusterInputEmpty.Error())
}

func TestProcess_UnknownDocument(t *testing.T) {
	env := setupTestPipeline(t)
	_, err := env.pipeline.Process(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestProcess_FailedReprocessKeepsVectors(t *testing.T) {
	env := setupTestPipeline(t)
	ctx := context.Background()
	doc := env.upload(t, sampleText(30))

	_, err := env.pipeline.Process(ctx, doc.ID)
	require.NoError(t, err)
	before, err := env.index.GetDocumentVectors(ctx, "ns", doc.ID)
	require.NoError(t, err)
	require.NotEmpty(t, before)

	var calls atomic.Int64
	env.embedder.WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
		if calls.Add(1) == 3 {
			return nil, errors.New("provider timeout")
		}
		return mock.GenerateDeterministicVector(text, testDimension), nil
	})

	processed, err := env.pipeline.Process(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, core.ProcessStatusError, processed.Status)
	assert.Contains(t, processed.LastError, core.ErrEmbedding.Error())
	assert.Empty(t, processed.Summary)

	after, err := env.index.GetDocumentVectors(ctx, "ns", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after, "previous vectors stay searchable")
}

func TestProcess_ReprocessReplacesVectors(t *testing.T) {
	env := setupTestPipeline(t)
	ctx := context.Background()
	doc := env.upload(t, sampleText(30))

	_, err := env.pipeline.Process(ctx, doc.ID)
	require.NoError(t, err)
	first, err := env.index.GetDocumentVectors(ctx, "ns", doc.ID)
	require.NoError(t, err)

	_, err = env.pipeline.Process(ctx, doc.ID)
	require.NoError(t, err)
	second, err := env.index.GetDocumentVectors(ctx, "ns", doc.ID)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.NotEqual(t, first[i].VectorID, second[i].VectorID)
		assert.Equal(t, first[i].Metadata, second[i].Metadata)
	}

	purged, err := env.index.PurgeInactive(ctx, "ns")
	require.NoError(t, err)
	assert.Equal(t, int64(len(first)), purged)
}

func TestProcess_SummarizerFailure(t *testing.T) {
	env := setupTestPipeline(t)
	env.summaries.CombineSummariesFunc = func(ctx context.Context, summaries []string) (string, error) {
		return "", errors.New("model overloaded")
	}
	doc := env.upload(t, sampleText(20))

	processed, err := env.pipeline.Process(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, core.ProcessStatusError, processed.Status)
	assert.Contains(t, processed.LastError, "model overloaded")

	records, err := env.index.GetDocumentVectors(context.Background(), "ns", doc.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSubmit(t *testing.T) {
	env := setupTestPipeline(t)
	ctx := context.Background()

	ids := make([]string, 4)
	for i := range ids {
		ids[i] = env.upload(t, sampleText(10+i)).ID
	}
	for _, id := range ids {
		require.NoError(t, env.pipeline.Submit(ctx, id))
	}
	env.pipeline.Wait()

	for _, id := range ids {
		doc, err := env.documents.GetDocument(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, core.ProcessStatusProcessed, doc.Status)
	}

	assert.ErrorIs(t, env.pipeline.Submit(ctx, "missing"), storage.ErrNotFound)
}

func TestDelete(t *testing.T) {
	env := setupTestPipeline(t)
	ctx := context.Background()
	doc := env.upload(t, sampleText(15))
	_, err := env.pipeline.Process(ctx, doc.ID)
	require.NoError(t, err)

	require.NoError(t, env.pipeline.Delete(ctx, doc.ID))

	_, err = env.documents.GetDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = env.blobs.Get(ctx, doc.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	records, err := env.index.GetDocumentVectors(ctx, "ns", doc.ID)
	require.NoError(t, err)
	assert.Empty(t, records)

	assert.ErrorIs(t, env.pipeline.Delete(ctx, doc.ID), storage.ErrNotFound)
}
