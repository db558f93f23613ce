package ml

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sort"
	"time"

	"github.com/tdnguyen/retail-analytics/internal/core/domain"
)

// ChurnModel predicts the probability that a customer has churned, using a
// random forest over order-history features. Not safe for concurrent use;
// the owning service guards train vs. predict.
type ChurnModel struct {
	forest     *RandomForest
	scaler     *StandardScaler
	importance map[string]float64
	trained    bool
	trainedAt  time.Time
}

func NewChurnModel() *ChurnModel {
	return &ChurnModel{
		forest: NewRandomForest(),
		scaler: &StandardScaler{},
	}
}

func (m *ChurnModel) IsTrained() bool { return m.trained }

func (m *ChurnModel) TrainedAt() time.Time { return m.trainedAt }

func (m *ChurnModel) FeatureImportance() map[string]float64 { return m.importance }

func (m *ChurnModel) FeatureCount() int { return len(ChurnFeatureNames) }

// Train fits the forest on an 80/20 stratified split and reports accuracy,
// per-class precision/recall/F1 and feature importances. Failures come back
// as a structured result, not an error.
func (m *ChurnModel) Train(stats []domain.CustomerStats, now time.Time) domain.TrainingResult {
	features := BuildChurnFeatures(stats, now)
	X := make([][]float64, len(features))
	y := make([]int, len(features))
	for i, f := range features {
		X[i] = f.Vector()
		if f.IsChurned {
			y[i] = 1
		}
	}

	trainIdx, testIdx := StratifiedSplit(y, 0.2, 42)
	if len(trainIdx) == 0 {
		return domain.TrainingResult{Status: domain.TrainingStatusError, Error: "empty training split"}
	}

	scaler := &StandardScaler{}
	if err := scaler.Fit(rows(X, trainIdx)); err != nil {
		return domain.TrainingResult{Status: domain.TrainingStatusError, Error: err.Error()}
	}
	trainX := scaler.Transform(rows(X, trainIdx))
	testX := scaler.Transform(rows(X, testIdx))

	forest := NewRandomForest()
	if err := forest.Fit(trainX, labels(y, trainIdx)); err != nil {
		return domain.TrainingResult{Status: domain.TrainingStatusError, Error: err.Error()}
	}

	testY := labels(y, testIdx)
	pred := forest.Predict(testX)

	importance := make(map[string]float64, len(ChurnFeatureNames))
	for i, name := range ChurnFeatureNames {
		importance[name] = forest.Importances[i]
	}

	m.forest = forest
	m.scaler = scaler
	m.importance = importance
	m.trained = true
	m.trainedAt = now

	return domain.TrainingResult{
		Status:            domain.TrainingStatusSuccess,
		Samples:           len(X),
		Accuracy:          Accuracy(testY, pred),
		Features:          ChurnFeatureNames,
		FeatureImportance: importance,
		ClassReport:       ClassificationReport(testY, pred),
	}
}

// Predict scores every customer (or the one matching customerID when set)
// and attaches a bucketed risk level plus rule-based recommendations. An
// unknown customer id yields an empty slice, not an error. Results are
// ordered by churn probability, highest first.
func (m *ChurnModel) Predict(stats []domain.CustomerStats, now time.Time, customerID *int64) ([]domain.ChurnPrediction, error) {
	if !m.trained {
		return nil, fmt.Errorf("churn: %w", ErrNotTrained)
	}

	features := BuildChurnFeatures(stats, now)
	if customerID != nil {
		filtered := features[:0]
		for _, f := range features {
			if f.CustomerID == *customerID {
				filtered = append(filtered, f)
			}
		}
		features = filtered
	}
	if len(features) == 0 {
		return []domain.ChurnPrediction{}, nil
	}

	X := make([][]float64, len(features))
	for i, f := range features {
		X[i] = f.Vector()
	}
	probs := m.forest.PredictProba(m.scaler.Transform(X))

	predictions := make([]domain.ChurnPrediction, len(features))
	for i, f := range features {
		predictions[i] = domain.ChurnPrediction{
			CustomerID:         f.CustomerID,
			CustomerName:       f.CustomerName,
			Country:            f.Country,
			ChurnProbability:   probs[i],
			RiskLevel:          RiskLevel(probs[i]),
			DaysSinceLastOrder: f.DaysSinceLastOrder,
			TotalOrders:        f.TotalOrders,
			TotalSpent:         f.TotalSpent,
			Recommendations:    Recommendations(f),
		}
	}
	sort.SliceStable(predictions, func(a, b int) bool {
		return predictions[a].ChurnProbability > predictions[b].ChurnProbability
	})
	return predictions, nil
}

// RiskLevel buckets a churn probability: below 0.3 is low, above 0.7 is
// high, everything between (both bounds included) is medium.
func RiskLevel(p float64) string {
	switch {
	case p < 0.3:
		return domain.RiskLow
	case p > 0.7:
		return domain.RiskHigh
	default:
		return domain.RiskMedium
	}
}

// Recommendations applies additive retention rules; several may fire for
// the same customer.
func Recommendations(f ChurnFeatures) []string {
	var recs []string
	if f.DaysSinceLastOrder > 60 {
		recs = append(recs, "Send re-engagement email with special offers")
	}
	if f.TotalOrders < 3 {
		recs = append(recs, "Offer first-time buyer incentives")
	}
	if f.AvgOrderValue < 50 {
		recs = append(recs, "Suggest product bundles to increase order value")
	}
	if f.DaysSinceLastOrder > 30 && f.TotalOrders > 5 {
		recs = append(recs, "Offer loyalty program benefits")
	}
	if len(recs) == 0 {
		recs = append(recs, "Continue current engagement strategy")
	}
	return recs
}

func rows(X [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = X[j]
	}
	return out
}

func labels(y []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}

// churnArtifact is the gob wire form of a trained model.
type churnArtifact struct {
	Forest     *RandomForest
	Scaler     *StandardScaler
	Importance map[string]float64
	Trained    bool
	TrainedAt  time.Time
}

func (m *ChurnModel) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(churnArtifact{
		Forest:     m.forest,
		Scaler:     m.scaler,
		Importance: m.importance,
		Trained:    m.trained,
		TrainedAt:  m.trainedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("encode churn model: %w", err)
	}
	return buf.Bytes(), nil
}

func (m *ChurnModel) UnmarshalBinary(data []byte) error {
	var a churnArtifact
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&a); err != nil {
		return fmt.Errorf("decode churn model: %w", err)
	}
	if a.Forest == nil || a.Scaler == nil {
		return fmt.Errorf("decode churn model: incomplete artifact")
	}
	m.forest = a.Forest
	m.scaler = a.Scaler
	m.importance = a.Importance
	m.trained = a.Trained
	m.trainedAt = a.TrainedAt
	return nil
}
