package ml

import (
	"math/rand"
	"sort"
)

// TreeNode is one node of a CART-style binary classification tree. Fields
// are exported so trained trees survive gob round-trips.
type TreeNode struct {
	IsLeaf    bool
	Prob      float64 // fraction of positive samples at this leaf
	Feature   int
	Threshold float64
	Left      *TreeNode
	Right     *TreeNode
}

type treeConfig struct {
	MaxDepth    int
	MinSplit    int
	MinLeaf     int
	MaxFeatures int
}

// growTree recursively builds a tree over X[idx] minimizing gini impurity.
// Impurity decrease per split is accumulated into importance by feature.
func growTree(X [][]float64, y []int, idx []int, depth int, cfg treeConfig, rng *rand.Rand, importance []float64) *TreeNode {
	pos := 0
	for _, i := range idx {
		pos += y[i]
	}
	prob := float64(pos) / float64(len(idx))

	if depth >= cfg.MaxDepth || len(idx) < cfg.MinSplit || pos == 0 || pos == len(idx) {
		return &TreeNode{IsLeaf: true, Prob: prob}
	}

	feature, threshold, gain := bestSplit(X, y, idx, cfg, rng)
	if feature < 0 {
		return &TreeNode{IsLeaf: true, Prob: prob}
	}

	var left, right []int
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < cfg.MinLeaf || len(right) < cfg.MinLeaf {
		return &TreeNode{IsLeaf: true, Prob: prob}
	}

	importance[feature] += gain * float64(len(idx))

	return &TreeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      growTree(X, y, left, depth+1, cfg, rng, importance),
		Right:     growTree(X, y, right, depth+1, cfg, rng, importance),
	}
}

// bestSplit searches a random feature subset for the threshold with the
// largest weighted gini decrease. Returns feature -1 when no valid split
// exists.
func bestSplit(X [][]float64, y []int, idx []int, cfg treeConfig, rng *rand.Rand) (int, float64, float64) {
	nFeatures := len(X[idx[0]])
	features := rng.Perm(nFeatures)
	if cfg.MaxFeatures < nFeatures {
		features = features[:cfg.MaxFeatures]
	}

	parent := giniOf(y, idx)
	bestFeature, bestThreshold, bestGain := -1, 0.0, 0.0

	order := make([]int, len(idx))
	for _, f := range features {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool { return X[order[a]][f] < X[order[b]][f] })

		totalPos := 0
		for _, i := range order {
			totalPos += y[i]
		}
		leftPos, leftN := 0, 0
		for s := 0; s < len(order)-1; s++ {
			leftPos += y[order[s]]
			leftN++
			if X[order[s]][f] == X[order[s+1]][f] {
				continue
			}
			rightN := len(order) - leftN
			if leftN < cfg.MinLeaf || rightN < cfg.MinLeaf {
				continue
			}
			rightPos := totalPos - leftPos

			gl := giniBinary(leftPos, leftN)
			gr := giniBinary(rightPos, rightN)
			weighted := (float64(leftN)*gl + float64(rightN)*gr) / float64(len(order))
			if gain := parent - weighted; gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (X[order[s]][f] + X[order[s+1]][f]) / 2
			}
		}
	}
	return bestFeature, bestThreshold, bestGain
}

func giniOf(y []int, idx []int) float64 {
	pos := 0
	for _, i := range idx {
		pos += y[i]
	}
	return giniBinary(pos, len(idx))
}

func giniBinary(pos, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(pos) / float64(n)
	return 2 * p * (1 - p)
}

// predictTree walks a sample down to its leaf probability.
func predictTree(node *TreeNode, x []float64) float64 {
	for !node.IsLeaf {
		if x[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Prob
}
