package ml

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sort"
	"time"

	"github.com/tdnguyen/retail-analytics/internal/core/domain"
)

// Canonical segment names in descending order of customer value. Cluster
// indices out of K-Means are arbitrary, so names are assigned by ranking
// cluster centroids on mean monetary value rather than by raw index.
var rankedSegmentNames = []string{
	"Champions",
	"Loyal Customers",
	"Potential Loyalists",
	"At Risk",
	"Lost Customers",
}

const DefaultClusters = 5

// SegmentationModel clusters customers on standardized recency, frequency
// and log-monetary features. Not safe for concurrent use; the owning
// service guards train vs. predict.
type SegmentationModel struct {
	clusters  int
	scaler    *StandardScaler
	km        *KMeans
	names     map[int]string
	trained   bool
	trainedAt time.Time
}

func NewSegmentationModel(clusters int) *SegmentationModel {
	if clusters <= 0 {
		clusters = DefaultClusters
	}
	return &SegmentationModel{
		clusters: clusters,
		scaler:   &StandardScaler{},
		km:       NewKMeans(clusters),
	}
}

func (m *SegmentationModel) IsTrained() bool { return m.trained }

func (m *SegmentationModel) Clusters() int { return m.clusters }

func (m *SegmentationModel) TrainedAt() time.Time { return m.trainedAt }

// Train fits scaler and clustering on the full customer set and reports a
// silhouette quality score. Failures come back as a structured result, not
// an error.
func (m *SegmentationModel) Train(stats []domain.CustomerStats, now time.Time) domain.TrainingResult {
	features := BuildSegmentationFeatures(stats, now)
	X := make([][]float64, len(features))
	for i, f := range features {
		X[i] = f.Vector()
	}

	scaler := &StandardScaler{}
	scaled, err := scaler.FitTransform(X)
	if err != nil {
		return domain.TrainingResult{Status: domain.TrainingStatusError, Error: err.Error()}
	}

	km := NewKMeans(m.clusters)
	if err := km.Fit(scaled); err != nil {
		return domain.TrainingResult{Status: domain.TrainingStatusError, Error: err.Error()}
	}
	labels := km.Predict(scaled)

	m.scaler = scaler
	m.km = km
	m.names = rankClusterNames(km, features, labels)
	m.trained = true
	m.trainedAt = now

	return domain.TrainingResult{
		Status:          domain.TrainingStatusSuccess,
		Samples:         len(X),
		Clusters:        m.clusters,
		SilhouetteScore: Silhouette(scaled, labels),
		Features:        SegmentationFeatureNames,
	}
}

// Predict assigns every customer to a named segment.
func (m *SegmentationModel) Predict(stats []domain.CustomerStats, now time.Time) ([]domain.SegmentPrediction, error) {
	if !m.trained {
		return nil, fmt.Errorf("segmentation: %w", ErrNotTrained)
	}

	features := BuildSegmentationFeatures(stats, now)
	predictions := make([]domain.SegmentPrediction, 0, len(features))
	for _, f := range features {
		scaled := m.scaler.Transform([][]float64{f.Vector()})
		cluster := m.km.Predict(scaled)[0]
		predictions = append(predictions, domain.SegmentPrediction{
			CustomerID:   f.CustomerID,
			CustomerName: f.CustomerName,
			Country:      f.Country,
			Cluster:      cluster,
			SegmentName:  m.names[cluster],
			Recency:      f.Recency,
			Frequency:    f.Frequency,
			Monetary:     f.Monetary,
		})
	}
	return predictions, nil
}

// Characteristics summarizes each named segment over the given population:
// member count, mean RFM values and population share.
func (m *SegmentationModel) Characteristics(stats []domain.CustomerStats, now time.Time) (map[string]domain.SegmentCharacteristics, error) {
	predictions, err := m.Predict(stats, now)
	if err != nil {
		return nil, err
	}

	type acc struct {
		count     int
		recency   float64
		frequency float64
		monetary  float64
	}
	byName := map[string]*acc{}
	for _, p := range predictions {
		a := byName[p.SegmentName]
		if a == nil {
			a = &acc{}
			byName[p.SegmentName] = a
		}
		a.count++
		a.recency += float64(p.Recency)
		a.frequency += float64(p.Frequency)
		a.monetary += p.Monetary
	}

	out := make(map[string]domain.SegmentCharacteristics, len(byName))
	for name, a := range byName {
		n := float64(a.count)
		out[name] = domain.SegmentCharacteristics{
			Count:        a.count,
			AvgRecency:   a.recency / n,
			AvgFrequency: a.frequency / n,
			AvgMonetary:  a.monetary / n,
			Percentage:   n / float64(len(predictions)) * 100,
		}
	}
	return out, nil
}

// rankClusterNames orders clusters by mean monetary value of their training
// members, highest first, and assigns canonical names along that ranking.
func rankClusterNames(km *KMeans, features []SegmentationFeatures, labels []int) map[int]string {
	sums := make([]float64, km.K)
	counts := make([]int, km.K)
	for i, f := range features {
		sums[labels[i]] += f.Monetary
		counts[labels[i]]++
	}

	order := make([]int, km.K)
	for c := range order {
		order[c] = c
	}
	sort.Slice(order, func(a, b int) bool {
		return meanOrZero(sums[order[a]], counts[order[a]]) > meanOrZero(sums[order[b]], counts[order[b]])
	})

	names := make(map[int]string, km.K)
	for rank, cluster := range order {
		if rank < len(rankedSegmentNames) {
			names[cluster] = rankedSegmentNames[rank]
		} else {
			names[cluster] = fmt.Sprintf("Segment %d", rank+1)
		}
	}
	return names
}

func meanOrZero(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// segmentationArtifact is the gob wire form of a trained model.
type segmentationArtifact struct {
	Clusters  int
	Scaler    *StandardScaler
	KMeans    *KMeans
	Names     map[int]string
	Trained   bool
	TrainedAt time.Time
}

func (m *SegmentationModel) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(segmentationArtifact{
		Clusters:  m.clusters,
		Scaler:    m.scaler,
		KMeans:    m.km,
		Names:     m.names,
		Trained:   m.trained,
		TrainedAt: m.trainedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("encode segmentation model: %w", err)
	}
	return buf.Bytes(), nil
}

func (m *SegmentationModel) UnmarshalBinary(data []byte) error {
	var a segmentationArtifact
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&a); err != nil {
		return fmt.Errorf("decode segmentation model: %w", err)
	}
	if a.KMeans == nil || a.Scaler == nil {
		return fmt.Errorf("decode segmentation model: incomplete artifact")
	}
	m.clusters = a.Clusters
	m.scaler = a.Scaler
	m.km = a.KMeans
	m.names = a.Names
	m.trained = a.Trained
	m.trainedAt = a.TrainedAt
	return nil
}
