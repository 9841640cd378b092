package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbeddingClient struct {
	calls int
	err   error
	short bool
}

func (f *fakeEmbeddingClient) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1}
	}
	if f.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

func TestEmbedder_EmbedTexts(t *testing.T) {
	client := &fakeEmbeddingClient{}
	e, err := newEmbedderWithClient(client, newLimiter(100, 1))
	require.NoError(t, err)

	vectors, err := e.EmbedTexts(context.Background(), []string{"a", "bbb"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 1}, {3, 1}}, vectors)

	vec, err := e.EmbedText(context.Background(), "four")
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 1}, vec)

	empty, err := e.EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.Equal(t, 2, client.calls)
}

func TestEmbedder_Errors(t *testing.T) {
	boom := errors.New("boom")
	e, err := newEmbedderWithClient(&fakeEmbeddingClient{err: boom}, nil)
	require.NoError(t, err)
	_, err = e.EmbedText(context.Background(), "x")
	assert.ErrorIs(t, err, boom)

	e, err = newEmbedderWithClient(&fakeEmbeddingClient{short: true}, nil)
	require.NoError(t, err)
	_, err = e.EmbedTexts(context.Background(), []string{"a", "b"})
	assert.Error(t, err)
}

func TestLimiter_NilNeverWaits(t *testing.T) {
	assert.Nil(t, newLimiter(0, 1))
	var l *limiter
	assert.NoError(t, l.wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, newLimiter(1, 1).wait(ctx))
}
