package vectordb

import (
	"database/sql/driver"
	"fmt"
	"math"

	"github.com/pgvector/pgvector-go"
	"github.com/poiesic/docvec/core"
	"modernc.org/sqlite"
)

func init() {
	if err := sqlite.RegisterDeterministicScalarFunction("cosine_distance", 2, cosineDistanceFunc); err != nil {
		panic(fmt.Sprintf("vectordb: register cosine_distance: %v", err))
	}
}

// cosineDistanceFunc implements cosine_distance(a, b) over pgvector text
// literals. Distance is 1 - cosine similarity. A NULL argument yields NULL.
func cosineDistanceFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if args[0] == nil || args[1] == nil {
		return nil, nil
	}
	a, err := decodeVector(args[0])
	if err != nil {
		return nil, err
	}
	b, err := decodeVector(args[1])
	if err != nil {
		return nil, err
	}
	return cosineDistance(a, b)
}

func decodeVector(arg driver.Value) ([]float32, error) {
	var v pgvector.Vector
	if err := v.Scan(arg); err != nil {
		return nil, fmt.Errorf("decode vector: %w", err)
	}
	return v.Slice(), nil
}

// cosineDistance returns 1 - cos(a, b). A zero-magnitude side has no
// direction and is treated as orthogonal.
func cosineDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", core.ErrDimensionMismatch, len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1, nil
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB)), nil
}
