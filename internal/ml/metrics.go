package ml

import (
	"math/rand"
	"strconv"

	"github.com/tdnguyen/retail-analytics/internal/core/domain"
)

// StratifiedSplit partitions sample indices into train/test sets keeping the
// class ratio of y in both. testFrac is the test share, e.g. 0.2.
func StratifiedSplit(y []int, testFrac float64, seed int64) (train, test []int) {
	rng := rand.New(rand.NewSource(seed))

	byClass := map[int][]int{}
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}

	for _, class := range []int{0, 1} {
		idx := byClass[class]
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		nTest := int(float64(len(idx)) * testFrac)
		test = append(test, idx[:nTest]...)
		train = append(train, idx[nTest:]...)
	}
	return train, test
}

func Accuracy(y, pred []int) float64 {
	if len(y) == 0 {
		return 0
	}
	correct := 0
	for i := range y {
		if y[i] == pred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(y))
}

// ClassificationReport computes precision/recall/F1 and support per class,
// keyed by the class label ("0", "1").
func ClassificationReport(y, pred []int) map[string]domain.ClassMetrics {
	report := make(map[string]domain.ClassMetrics, 2)
	for _, class := range []int{0, 1} {
		tp, fp, fn, support := 0, 0, 0, 0
		for i := range y {
			if y[i] == class {
				support++
				if pred[i] == class {
					tp++
				} else {
					fn++
				}
			} else if pred[i] == class {
				fp++
			}
		}

		precision, recall, f1 := 0.0, 0.0, 0.0
		if tp+fp > 0 {
			precision = float64(tp) / float64(tp+fp)
		}
		if tp+fn > 0 {
			recall = float64(tp) / float64(tp+fn)
		}
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}
		report[strconv.Itoa(class)] = domain.ClassMetrics{
			Precision: precision,
			Recall:    recall,
			F1:        f1,
			Support:   support,
		}
	}
	return report
}
