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


package reprocess

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/docvec/core"
	"github.com/poiesic/docvec/ingestion"
	"github.com/poiesic/docvec/storage"
)

// Processor runs one document through ingestion.
// *ingestion.Pipeline implements it.
type Processor interface {
	Process(ctx context.Context, docID string) (*core.Document, error)
}

var _ Processor = (*ingestion.Pipeline)(nil)

// Config holds configuration for a reprocessing run.
type Config struct {
	// Namespace selects the documents to visit.
	Namespace string

	// Statuses selects documents by processing status. Empty selects all.
	// Default: error only
	Statuses []core.ProcessStatus

	// BatchSize is the number of documents between checkpoints.
	BatchSize int

	// ReportInterval is how often to report progress (number of documents)
	ReportInterval int

	// MaxRetries is the maximum number of attempts when a document cannot be loaded
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// Resume continues from the last saved checkpoint.
	Resume bool
}

// DefaultConfig returns a Config that retries failed documents.
func DefaultConfig() *Config {
	return &Config{
		Statuses:       []core.ProcessStatus{core.ProcessStatusError},
		BatchSize:      DefaultBatchSize,
		ReportInterval: 10,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Summary reports the outcome of a run.
type Summary struct {
	Visited   int
	Processed int
	Failed    int
	Elapsed   time.Duration
}

// Reprocessor orchestrates reprocessing of stored documents.
type Reprocessor struct {
	documents   storage.DocumentRepository
	checkpoints storage.CheckpointRepository
	processor   Processor
	config      *Config
	progress    io.Writer
	logger      *slog.Logger
}

// NewReprocessor creates a new reprocessor. checkpoints may be nil, in
// which case runs always start from the beginning.
// progress: where to write progress output (typically os.Stderr)
func NewReprocessor(documents storage.DocumentRepository, checkpoints storage.CheckpointRepository,
	processor Processor, config *Config, progress io.Writer) (*Reprocessor, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if processor == nil {
		return nil, ErrProcessorRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reprocessor{
		documents:   documents,
		checkpoints: checkpoints,
		processor:   processor,
		config:      config,
		progress:    progress,
		logger:      slog.Default().With("component", "reprocess", "namespace", config.Namespace),
	}, nil
}

// checkpointKey scopes checkpoints to the namespace being reprocessed.
func (r *Reprocessor) checkpointKey() string {
	return "reprocess:" + r.config.Namespace
}

// Run reprocesses every selected document. Documents that end in the
// error state are counted as failed; they do not stop the run.
func (r *Reprocessor) Run(ctx context.Context) (*Summary, error) {
	afterID, err := r.resumePoint(ctx)
	if err != nil {
		return nil, err
	}

	iterator := NewDocumentIterator(r.documents, r.config.Namespace, r.config.Statuses, r.config.BatchSize)
	docs, err := iterator.Documents(ctx, afterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		fmt.Fprintf(r.progress, "No documents to reprocess in namespace %q\n", r.config.Namespace)
		return &Summary{}, nil
	}
	fmt.Fprintf(r.progress, "Reprocessing %d documents (batch size: %d)\n", len(docs), iterator.batchSize)

	tracker := NewProgressTracker(r.progress, len(docs), r.config.ReportInterval)
	tracker.Start()

	err = iterator.ForEach(ctx, docs, func(batch []*core.Document) error {
		failed := 0
		for _, doc := range batch {
			ok, err := r.processOne(ctx, doc.ID)
			if err != nil {
				return err
			}
			if !ok {
				failed++
			}
		}
		tracker.Increment(len(batch), failed)
		return r.saveCheckpoint(ctx, batch[len(batch)-1].ID)
	})
	tracker.Finish()

	visited, failed := tracker.Counts()
	summary := &Summary{
		Visited:   visited,
		Processed: visited - failed,
		Failed:    failed,
		Elapsed:   tracker.Elapsed(),
	}
	if err != nil {
		return summary, err
	}

	if r.checkpoints != nil {
		if err := r.checkpoints.DeleteCheckpoint(ctx, r.checkpointKey()); err != nil {
			return summary, err
		}
	}

	fmt.Fprintf(r.progress, "Reprocessing complete. %d processed, %d failed in %v\n",
		summary.Processed, summary.Failed, summary.Elapsed.Round(time.Millisecond))
	return summary, nil
}

// processOne runs a document, retrying when it cannot be loaded.
// Reports whether the document ended up processed.
func (r *Reprocessor) processOne(ctx context.Context, docID string) (bool, error) {
	var doc *core.Document
	err := ingestion.RetryWithBackoff(ctx, func() error {
		var err error
		doc, err = r.processor.Process(ctx, docID)
		return err
	}, max(r.config.MaxRetries, 1), r.config.RetryDelay)
	if err != nil {
		if ctx.Err() != nil {
			return false, err
		}
		r.logger.Error("giving up on document", "document", docID, "err", err)
		return false, nil
	}
	if doc.Status != core.ProcessStatusProcessed {
		r.logger.Warn("document failed to process", "document", docID, "error", doc.LastError)
		return false, nil
	}
	return true, nil
}

func (r *Reprocessor) resumePoint(ctx context.Context) (string, error) {
	if !r.config.Resume || r.checkpoints == nil {
		return "", nil
	}
	checkpoint, err := r.checkpoints.LoadCheckpoint(ctx, r.checkpointKey())
	if err != nil {
		return "", fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if checkpoint == nil {
		return "", nil
	}
	r.logger.Info("resuming from checkpoint", "after", checkpoint.LastID)
	return checkpoint.LastID, nil
}

func (r *Reprocessor) saveCheckpoint(ctx context.Context, lastID string) error {
	if r.checkpoints == nil {
		return nil
	}
	// Record finished batches even when the run is being canceled
	return r.checkpoints.SaveCheckpoint(context.WithoutCancel(ctx), &core.Checkpoint{
		ProcessorType: r.checkpointKey(),
		LastID:        lastID,
	})
}
