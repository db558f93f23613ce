package ml

import (
	"fmt"
	"math"
	"math/rand"
)

// RandomForest is a bagged ensemble of gini decision trees for binary
// classification. Fields are exported so trained forests survive gob
// round-trips.
type RandomForest struct {
	NTrees   int
	MaxDepth int
	MinSplit int
	MinLeaf  int
	Seed     int64

	Trees       []*TreeNode
	Importances []float64 // normalized mean impurity decrease per feature
}

func NewRandomForest() *RandomForest {
	return &RandomForest{
		NTrees:   100,
		MaxDepth: 10,
		MinSplit: 5,
		MinLeaf:  2,
		Seed:     42,
	}
}

func (rf *RandomForest) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return fmt.Errorf("forest: empty training set")
	}
	if len(X) != len(y) {
		return fmt.Errorf("forest: %d samples but %d labels", len(X), len(y))
	}

	nFeatures := len(X[0])
	maxFeatures := int(math.Sqrt(float64(nFeatures)))
	if maxFeatures < 1 {
		maxFeatures = 1
	}
	cfg := treeConfig{
		MaxDepth:    rf.MaxDepth,
		MinSplit:    rf.MinSplit,
		MinLeaf:     rf.MinLeaf,
		MaxFeatures: maxFeatures,
	}

	rng := rand.New(rand.NewSource(rf.Seed))
	rf.Trees = make([]*TreeNode, 0, rf.NTrees)
	rf.Importances = make([]float64, nFeatures)

	for t := 0; t < rf.NTrees; t++ {
		// Bootstrap sample.
		idx := make([]int, len(X))
		for i := range idx {
			idx[i] = rng.Intn(len(X))
		}
		rf.Trees = append(rf.Trees, growTree(X, y, idx, 0, cfg, rng, rf.Importances))
	}

	total := 0.0
	for _, v := range rf.Importances {
		total += v
	}
	if total > 0 {
		for i := range rf.Importances {
			rf.Importances[i] /= total
		}
	}
	return nil
}

// PredictProba returns the mean positive-class leaf probability across all
// trees, one value in [0,1] per sample.
func (rf *RandomForest) PredictProba(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		sum := 0.0
		for _, tree := range rf.Trees {
			sum += predictTree(tree, x)
		}
		out[i] = sum / float64(len(rf.Trees))
	}
	return out
}

// Predict thresholds probabilities at 0.5.
func (rf *RandomForest) Predict(X [][]float64) []int {
	probs := rf.PredictProba(X)
	out := make([]int, len(probs))
	for i, p := range probs {
		if p >= 0.5 {
			out[i] = 1
		}
	}
	return out
}
