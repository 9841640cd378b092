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


package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docvec/core"
	"github.com/poiesic/docvec/storage"
)

// CheckpointRepository implements storage.CheckpointRepository for BadgerDB.
type CheckpointRepository struct {
	backend *Backend
}

var _ storage.CheckpointRepository = (*CheckpointRepository)(nil)

// NewCheckpointRepository creates a new CheckpointRepository.
func NewCheckpointRepository(backend *Backend) *CheckpointRepository {
	return &CheckpointRepository{
		backend: backend,
	}
}

// SaveCheckpoint persists a checkpoint for a processor type.
func (r *CheckpointRepository) SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error {
	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		checkpoint.UpdatedAt = time.Now().UTC()
		value, err := json.Marshal(checkpoint)
		if err != nil {
			return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}
		return tx.Set(makeCheckpointKey(checkpoint.ProcessorType), value)
	})
}

// LoadCheckpoint retrieves the checkpoint for a processor type.
// Returns nil, nil if no checkpoint exists.
func (r *CheckpointRepository) LoadCheckpoint(ctx context.Context, processorType string) (*core.Checkpoint, error) {
	var checkpoint *core.Checkpoint
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		item, err := tx.Get(makeCheckpointKey(processorType))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}

		return item.Value(func(val []byte) error {
			checkpoint = &core.Checkpoint{}
			if err := json.Unmarshal(val, checkpoint); err != nil {
				return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
			}
			return nil
		})
	})

	return checkpoint, err
}

// DeleteCheckpoint removes the checkpoint for a processor type.
// Deleting a missing checkpoint is not an error.
func (r *CheckpointRepository) DeleteCheckpoint(ctx context.Context, processorType string) error {
	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		return tx.Delete(makeCheckpointKey(processorType))
	})
}
