package cluster

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/poiesic/docvec/core"
)

const (
	// DefaultMaxClusters caps the number of representatives selected per document.
	DefaultMaxClusters = 5

	// DefaultSeed makes clustering reproducible across runs.
	DefaultSeed uint64 = 42

	maxIterations = 300
	tolerance     = 1e-4
)

// Result is the outcome of a k-means run.
type Result struct {
	Centroids  [][]float64
	Labels     []int // Labels[i] is the cluster of vectors[i]
	Iterations int
}

// KMeans clusters vectors into at most k groups using k-means++ seeding and
// Lloyd iterations. Seeding stops early when every remaining vector already
// coincides with a centroid, so duplicate inputs yield fewer clusters.
func KMeans(vectors [][]float32, k int, seed uint64) (*Result, error) {
	points, err := toPoints(vectors)
	if err != nil {
		return nil, err
	}
	if k < 1 {
		return nil, errors.New("k must be greater than 0")
	}
	if k > len(points) {
		k = len(points)
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	centroids := seedCentroids(points, k, rng)
	labels := make([]int, len(points))

	iterations := 0
	for iterations < maxIterations {
		iterations++
		assign(points, centroids, labels)
		shift := recompute(points, centroids, labels)
		if shift <= tolerance {
			break
		}
	}
	assign(points, centroids, labels)

	return &Result{
		Centroids:  centroids,
		Labels:     labels,
		Iterations: iterations,
	}, nil
}

// SelectRepresentatives returns the ascending, de-duplicated indices of the
// vectors nearest each cluster centroid, using min(len(vectors), maxClusters)
// clusters.
func SelectRepresentatives(vectors [][]float32, maxClusters int) ([]int, error) {
	if maxClusters <= 0 {
		maxClusters = DefaultMaxClusters
	}
	result, err := KMeans(vectors, min(len(vectors), maxClusters), DefaultSeed)
	if err != nil {
		return nil, err
	}

	points, err := toPoints(vectors)
	if err != nil {
		return nil, err
	}

	seen := make(map[int]bool, len(result.Centroids))
	indices := make([]int, 0, len(result.Centroids))
	for _, centroid := range result.Centroids {
		best := nearest(points, centroid)
		if !seen[best] {
			seen[best] = true
			indices = append(indices, best)
		}
	}
	slices.Sort(indices)
	return indices, nil
}

func toPoints(vectors [][]float32) ([][]float64, error) {
	if len(vectors) == 0 {
		return nil, core.ErrClusterInputEmpty
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: empty vector at index 0", core.ErrDimensionMismatch)
	}
	points := make([][]float64, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, expected %d",
				core.ErrDimensionMismatch, i, len(v), dim)
		}
		p := make([]float64, dim)
		for j, x := range v {
			p[j] = float64(x)
		}
		points[i] = p
	}
	return points, nil
}

// seedCentroids picks initial centroids with k-means++: each new centroid is
// drawn with probability proportional to its squared distance from the
// nearest existing one.
func seedCentroids(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := [][]float64{slices.Clone(points[rng.IntN(len(points))])}
	dist := make([]float64, len(points))

	for len(centroids) < k {
		var total float64
		for i, p := range points {
			d := math.Inf(1)
			for _, c := range centroids {
				d = math.Min(d, squaredDistance(p, c))
			}
			dist[i] = d
			total += d
		}
		if total == 0 {
			break
		}

		target := rng.Float64() * total
		chosen := -1
		var cumulative float64
		for i, d := range dist {
			if d == 0 {
				continue
			}
			chosen = i
			cumulative += d
			if cumulative >= target {
				break
			}
		}
		centroids = append(centroids, slices.Clone(points[chosen]))
	}
	return centroids
}

func assign(points, centroids [][]float64, labels []int) {
	for i, p := range points {
		labels[i] = nearestCentroid(p, centroids)
	}
}

// recompute moves each centroid to the mean of its members and returns the
// total squared movement. Empty clusters keep their previous centroid.
func recompute(points, centroids [][]float64, labels []int) float64 {
	dim := len(points[0])
	sums := make([][]float64, len(centroids))
	counts := make([]int, len(centroids))
	for i := range sums {
		sums[i] = make([]float64, dim)
	}
	for i, p := range points {
		c := labels[i]
		counts[c]++
		for j, x := range p {
			sums[c][j] += x
		}
	}

	var shift float64
	for c := range centroids {
		if counts[c] == 0 {
			continue
		}
		for j := range sums[c] {
			sums[c][j] /= float64(counts[c])
		}
		shift += squaredDistance(centroids[c], sums[c])
		centroids[c] = sums[c]
	}
	return shift
}

func nearestCentroid(p []float64, centroids [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := squaredDistance(p, centroid); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// nearest returns the index of the point closest to target. Ties go to the
// lowest index.
func nearest(points [][]float64, target []float64) int {
	best, bestDist := 0, math.Inf(1)
	for i, p := range points {
		if d := squaredDistance(p, target); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
