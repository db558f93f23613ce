package ml

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Silhouette computes the mean silhouette coefficient over all samples: for
// each point, (b-a)/max(a,b) where a is the mean distance to its own cluster
// and b the smallest mean distance to any other cluster. Points in singleton
// clusters score zero.
func Silhouette(X [][]float64, labels []int) float64 {
	n := len(X)
	if n < 2 {
		return 0
	}

	k := 0
	for _, l := range labels {
		if l+1 > k {
			k = l + 1
		}
	}
	if k < 2 {
		return 0
	}

	counts := make([]int, k)
	for _, l := range labels {
		counts[l]++
	}

	total := 0.0
	for i := range X {
		if counts[labels[i]] <= 1 {
			continue
		}

		sums := make([]float64, k)
		for j := range X {
			if i == j {
				continue
			}
			sums[labels[j]] += floats.Distance(X[i], X[j], 2)
		}

		a := sums[labels[i]] / float64(counts[labels[i]]-1)
		b := math.Inf(1)
		for c := 0; c < k; c++ {
			if c == labels[i] || counts[c] == 0 {
				continue
			}
			if m := sums[c] / float64(counts[c]); m < b {
				b = m
			}
		}

		if math.IsInf(b, 1) {
			continue
		}
		if m := math.Max(a, b); m > 0 {
			total += (b - a) / m
		}
	}
	return total / float64(n)
}
