package ml

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// KMeans is a Lloyd's-iteration clusterer with k-means++ seeding and
// multiple restarts. The seed is fixed so identical input produces
// identical clusters.
type KMeans struct {
	K        int
	MaxIter  int
	Restarts int
	Seed     int64

	Centroids [][]float64
	Inertia   float64
}

func NewKMeans(k int) *KMeans {
	return &KMeans{K: k, MaxIter: 300, Restarts: 10, Seed: 42}
}

func (km *KMeans) Fit(X [][]float64) error {
	if len(X) < km.K {
		return fmt.Errorf("kmeans: need at least %d samples, got %d", km.K, len(X))
	}

	rng := rand.New(rand.NewSource(km.Seed))
	best := math.Inf(1)
	var bestCentroids [][]float64

	for r := 0; r < km.Restarts; r++ {
		centroids := km.seedCentroids(X, rng)
		centroids, inertia := km.lloyd(X, centroids)
		if inertia < best {
			best = inertia
			bestCentroids = centroids
		}
	}

	km.Centroids = bestCentroids
	km.Inertia = best
	return nil
}

// Predict assigns each row to its nearest centroid.
func (km *KMeans) Predict(X [][]float64) []int {
	labels := make([]int, len(X))
	for i, x := range X {
		labels[i] = km.nearest(x)
	}
	return labels
}

func (km *KMeans) nearest(x []float64) int {
	bestIdx := 0
	bestDist := math.Inf(1)
	for c, centroid := range km.Centroids {
		if d := floats.Distance(x, centroid, 2); d < bestDist {
			bestDist = d
			bestIdx = c
		}
	}
	return bestIdx
}

// seedCentroids picks initial centroids with k-means++ weighting: each next
// centroid is drawn proportional to squared distance from the closest one
// chosen so far.
func (km *KMeans) seedCentroids(X [][]float64, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, km.K)
	centroids = append(centroids, cloneRow(X[rng.Intn(len(X))]))

	dist2 := make([]float64, len(X))
	for len(centroids) < km.K {
		total := 0.0
		for i, x := range X {
			d := math.Inf(1)
			for _, c := range centroids {
				if dd := floats.Distance(x, c, 2); dd < d {
					d = dd
				}
			}
			dist2[i] = d * d
			total += dist2[i]
		}

		if total == 0 {
			// All remaining points coincide with a centroid.
			centroids = append(centroids, cloneRow(X[rng.Intn(len(X))]))
			continue
		}

		target := rng.Float64() * total
		acc := 0.0
		picked := len(X) - 1
		for i, d := range dist2 {
			acc += d
			if acc >= target {
				picked = i
				break
			}
		}
		centroids = append(centroids, cloneRow(X[picked]))
	}
	return centroids
}

func (km *KMeans) lloyd(X [][]float64, centroids [][]float64) ([][]float64, float64) {
	dims := len(X[0])
	labels := make([]int, len(X))

	for iter := 0; iter < km.MaxIter; iter++ {
		km.Centroids = centroids
		moved := false
		for i, x := range X {
			l := km.nearest(x)
			if l != labels[i] {
				labels[i] = l
				moved = true
			}
		}
		if iter > 0 && !moved {
			break
		}

		sums := make([][]float64, km.K)
		counts := make([]int, km.K)
		for c := range sums {
			sums[c] = make([]float64, dims)
		}
		for i, x := range X {
			floats.Add(sums[labels[i]], x)
			counts[labels[i]]++
		}
		next := make([][]float64, km.K)
		for c := range next {
			if counts[c] == 0 {
				// Empty cluster keeps its previous centroid.
				next[c] = cloneRow(centroids[c])
				continue
			}
			floats.Scale(1/float64(counts[c]), sums[c])
			next[c] = sums[c]
		}
		centroids = next
	}

	km.Centroids = centroids
	inertia := 0.0
	for i, x := range X {
		d := floats.Distance(x, centroids[labels[i]], 2)
		inertia += d * d
	}
	return centroids, inertia
}

func cloneRow(x []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	return out
}
