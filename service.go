// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package docvec turns uploaded documents into searchable passage vectors
// and document summaries.
package docvec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/docvec/ai"
	"github.com/poiesic/docvec/ai/openai"
	"github.com/poiesic/docvec/config"
	"github.com/poiesic/docvec/ingestion"
	"github.com/poiesic/docvec/parser"
	"github.com/poiesic/docvec/reprocess"
	"github.com/poiesic/docvec/search"
	"github.com/poiesic/docvec/storage"
	"github.com/poiesic/docvec/storage/badger"
	"github.com/poiesic/docvec/storage/bolt"
	"github.com/poiesic/docvec/storage/minio"
	"github.com/poiesic/docvec/storage/vectordb"
)

// Service wires storage, parsing and AI adapters into a pipeline and a searcher.
type Service struct {
	config         *config.AppConfig
	backend        *badger.Backend
	documents      *badger.DocumentRepository
	checkpointRepo storage.CheckpointRepository
	blobs          storage.BlobStore
	index          *vectordb.Index
	provider       ai.AIProvider
	pipeline       *ingestion.Pipeline
	searcher       *search.Searcher
	logger         *slog.Logger
}

// Option configures a Service.
type Option func(*options)

type options struct {
	provider ai.AIProvider
	parser   parser.Parser
	logger   *slog.Logger
}

// WithProvider replaces the OpenAI-compatible provider.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// WithParser replaces the Unstructured parser used for non-text documents.
func WithParser(p parser.Parser) Option {
	return func(o *options) {
		o.parser = p
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Open creates every component described by cfg. On failure anything
// already opened is closed again.
func Open(ctx context.Context, cfg *config.AppConfig, opts ...Option) (svc *Service, err error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	s := &Service{config: cfg, logger: o.logger.With("component", "docvec")}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	if s.backend, err = badger.OpenBackend(cfg.DocumentsPath(), false); err != nil {
		return nil, fmt.Errorf("failed to open document database: %w", err)
	}
	if s.documents, err = badger.NewDocumentRepository(s.backend); err != nil {
		return nil, err
	}
	s.checkpointRepo = badger.NewCheckpointRepository(s.backend)

	if s.blobs, err = openBlobStore(ctx, cfg.BlobStore); err != nil {
		return nil, err
	}
	if s.index, err = openIndex(ctx, cfg.VectorIndex, o.logger); err != nil {
		return nil, err
	}

	s.provider = o.provider
	if s.provider == nil {
		if s.provider, err = openai.NewProvider(&cfg.AI); err != nil {
			return nil, fmt.Errorf("failed to create AI provider: %w", err)
		}
	}

	fallback := o.parser
	if fallback == nil && cfg.Parser.Endpoint != "" {
		fallback = parser.NewUnstructured(cfg.Parser.Endpoint,
			parser.WithAPIKey(cfg.Parser.APIKey),
			parser.WithTimeout(time.Duration(cfg.Parser.TimeoutSecs)*time.Second))
	}
	supported := cfg.Parser.SupportedTypes
	if fallback == nil && len(supported) == 0 {
		supported = []string{"text/plain", "text/markdown"}
	}
	router := parser.NewRouter(fallback, supported)

	if s.pipeline, err = ingestion.NewPipeline(s.documents, s.blobs, router, s.index, s.provider,
		pipelineOptions(cfg.Ingestion, o.logger)...); err != nil {
		return nil, err
	}
	if s.searcher, err = search.NewSearcher(s.index, s.documents, s.provider, search.WithLogger(o.logger)); err != nil {
		return nil, err
	}
	return s, nil
}

func openBlobStore(ctx context.Context, cfg config.BlobStoreConfig) (storage.BlobStore, error) {
	if strings.ToLower(cfg.Type) == config.BlobStoreMinIO {
		store, err := minio.Open(ctx, cfg.MinIO)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	store, err := bolt.Open(cfg.Path, cfg.Bucket)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func openIndex(ctx context.Context, cfg config.VectorIndexConfig, logger *slog.Logger) (*vectordb.Index, error) {
	dialect, err := vectordb.DialectByName(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	var connector vectordb.Connector
	if dialect == vectordb.SQLite {
		connector = vectordb.NewSQLiteConnector(cfg.DSN)
	} else {
		connector = vectordb.NewPostgresConnector(cfg.DSN)
	}

	opts := []vectordb.Option{vectordb.WithLogger(logger)}
	if cfg.Table != "" {
		opts = append(opts, vectordb.WithTable(cfg.Table))
	}
	if cfg.Dimension > 0 {
		opts = append(opts, vectordb.WithDimension(cfg.Dimension))
	}
	if cfg.BatchSize > 0 {
		opts = append(opts, vectordb.WithBatchSize(cfg.BatchSize))
	}
	return vectordb.New(ctx, connector, dialect, opts...)
}

func pipelineOptions(cfg config.IngestionConfig, logger *slog.Logger) []ingestion.Option {
	opts := []ingestion.Option{
		ingestion.WithLogger(logger),
		ingestion.WithSkipUnchanged(cfg.SkipUnchanged),
	}
	if cfg.SplitLength > 0 {
		opts = append(opts, ingestion.WithSplitLength(cfg.SplitLength))
	}
	if cfg.MaxClusters > 0 {
		opts = append(opts, ingestion.WithMaxClusters(cfg.MaxClusters))
	}
	if cfg.Workers > 0 {
		opts = append(opts, ingestion.WithWorkers(cfg.Workers))
	}
	if cfg.PoolSize > 0 {
		opts = append(opts, ingestion.WithPoolSize(cfg.PoolSize))
	}
	if cfg.MaxAttempts > 0 {
		policy := ingestion.DefaultRetryPolicy()
		policy.MaxAttempts = cfg.MaxAttempts
		opts = append(opts, ingestion.WithRetryPolicy(policy))
	}
	return opts
}

// Config returns the configuration the service was opened with.
func (s *Service) Config() *config.AppConfig {
	return s.config
}

// Pipeline returns the ingestion pipeline.
func (s *Service) Pipeline() *ingestion.Pipeline {
	return s.pipeline
}

// Searcher returns the retrieval API.
func (s *Service) Searcher() *search.Searcher {
	return s.searcher
}

// Index returns the vector index.
func (s *Service) Index() *vectordb.Index {
	return s.index
}

// Documents returns the document repository.
func (s *Service) Documents() storage.DocumentRepository {
	return s.documents
}

// NewReprocessor creates a bulk reprocessor over this service's pipeline.
func (s *Service) NewReprocessor(cfg *reprocess.Config, progress io.Writer) (*reprocess.Reprocessor, error) {
	return reprocess.NewReprocessor(s.documents, s.checkpointRepo, s.pipeline, cfg, progress)
}

// Close waits for queued documents and releases every component.
func (s *Service) Close() error {
	var errs []error
	if s.pipeline != nil {
		s.pipeline.Wait()
		s.pipeline.Release()
	}
	if s.provider != nil {
		if err := s.provider.Close(); err != nil {
			s.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if s.index != nil {
		if err := s.index.Close(); err != nil {
			s.logger.Error("error closing vector index", "err", err)
			errs = append(errs, err)
		}
	}
	if s.blobs != nil {
		if err := s.blobs.Close(); err != nil {
			s.logger.Error("error closing blob store", "err", err)
			errs = append(errs, err)
		}
	}
	if s.documents != nil {
		if err := s.documents.Close(); err != nil {
			s.logger.Error("error closing document repository", "err", err)
			errs = append(errs, err)
		}
	}
	if s.backend != nil {
		if err := s.backend.Close(); err != nil {
			s.logger.Error("error closing backend storage", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
