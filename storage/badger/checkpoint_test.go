package badger

import (
	"context"
	"testing"

	"github.com/poiesic/docvec/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointRepository(t *testing.T) {
	_, checkpoints, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()

	missing, err := checkpoints.LoadCheckpoint(ctx, "reprocess")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{ProcessorType: "reprocess", LastID: "doc-3"}))

	loaded, err := checkpoints.LoadCheckpoint(ctx, "reprocess")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "doc-3", loaded.LastID)
	assert.False(t, loaded.UpdatedAt.IsZero())

	require.NoError(t, checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{ProcessorType: "reprocess", LastID: "doc-7"}))
	loaded, err = checkpoints.LoadCheckpoint(ctx, "reprocess")
	require.NoError(t, err)
	assert.Equal(t, "doc-7", loaded.LastID)

	require.NoError(t, checkpoints.DeleteCheckpoint(ctx, "reprocess"))
	loaded, err = checkpoints.LoadCheckpoint(ctx, "reprocess")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
