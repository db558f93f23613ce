package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/tdnguyen/retail-analytics/internal/core/domain"
	"github.com/tdnguyen/retail-analytics/internal/ml"
	"github.com/tdnguyen/retail-analytics/internal/port"
)

const (
	SegmentationModelName = "segmentation_model"
	ChurnModelName        = "churn_model"

	minSegmentationSamples = 10
	minChurnSamples        = 20
)

// MLService owns both models and their persisted artifacts. Training is
// synchronous and slow (seconds for realistic customer counts); callers
// that cannot block should use StartTrainAll and poll the job. Per-model
// RW locks keep predictions consistent while a retrain swaps the model.
type MLService struct {
	repo  port.AnalyticsRepository
	store port.ModelStore
	now   func() time.Time

	segMu sync.RWMutex
	seg   *ml.SegmentationModel

	churnMu sync.RWMutex
	churn   *ml.ChurnModel

	jobsMu sync.Mutex
	jobs   map[string]*domain.TrainingJob
}

// NewMLService loads any previously saved artifacts. A missing or corrupt
// artifact leaves that model untrained; it is logged, never fatal.
func NewMLService(repo port.AnalyticsRepository, store port.ModelStore) *MLService {
	s := &MLService{
		repo:  repo,
		store: store,
		now:   time.Now,
		seg:   ml.NewSegmentationModel(ml.DefaultClusters),
		churn: ml.NewChurnModel(),
		jobs:  map[string]*domain.TrainingJob{},
	}

	if data, err := store.Load(SegmentationModelName); err != nil {
		if !errors.Is(err, port.ErrArtifactNotFound) {
			log.Printf("could not load segmentation model: %v", err)
		}
	} else if err := s.seg.UnmarshalBinary(data); err != nil {
		log.Printf("could not load segmentation model: %v", err)
		s.seg = ml.NewSegmentationModel(ml.DefaultClusters)
	} else {
		log.Println("loaded existing segmentation model")
	}

	if data, err := store.Load(ChurnModelName); err != nil {
		if !errors.Is(err, port.ErrArtifactNotFound) {
			log.Printf("could not load churn model: %v", err)
		}
	} else if err := s.churn.UnmarshalBinary(data); err != nil {
		log.Printf("could not load churn model: %v", err)
		s.churn = ml.NewChurnModel()
	} else {
		log.Println("loaded existing churn model")
	}

	return s
}

// TrainSegmentation fits a fresh segmentation model on current data and, on
// success, swaps it in and persists the artifact. All failures come back as
// a structured result.
func (s *MLService) TrainSegmentation(ctx context.Context) domain.TrainingResult {
	return safeTrain("segmentation", func() domain.TrainingResult {
		stats, err := s.repo.CustomerStats(ctx)
		if err != nil {
			return errorResult(fmt.Errorf("prepare customer data: %w", err))
		}
		if len(stats) < minSegmentationSamples {
			return errorResult(fmt.Errorf("insufficient data for training: need at least %d customers, have %d",
				minSegmentationSamples, len(stats)))
		}

		model := ml.NewSegmentationModel(ml.DefaultClusters)
		result := model.Train(stats, s.now())
		if result.Status != domain.TrainingStatusSuccess {
			return result
		}

		characteristics, err := model.Characteristics(stats, s.now())
		if err == nil {
			result.SegmentCharacteristics = characteristics
		}

		s.segMu.Lock()
		s.seg = model
		s.segMu.Unlock()

		s.saveModel(SegmentationModelName, model)
		return result
	})
}

// TrainChurn fits a fresh churn model on current data; same contract as
// TrainSegmentation.
func (s *MLService) TrainChurn(ctx context.Context) domain.TrainingResult {
	return safeTrain("churn", func() domain.TrainingResult {
		stats, err := s.repo.CustomerStats(ctx)
		if err != nil {
			return errorResult(fmt.Errorf("prepare customer data: %w", err))
		}
		if len(stats) < minChurnSamples {
			return errorResult(fmt.Errorf("insufficient data for training: need at least %d customers, have %d",
				minChurnSamples, len(stats)))
		}

		model := ml.NewChurnModel()
		result := model.Train(stats, s.now())
		if result.Status != domain.TrainingStatusSuccess {
			return result
		}

		s.churnMu.Lock()
		s.churn = model
		s.churnMu.Unlock()

		s.saveModel(ChurnModelName, model)
		return result
	})
}

// TrainAll trains both models. A failure in one never aborts the other; the
// aggregate status is "success" only when both succeed.
func (s *MLService) TrainAll(ctx context.Context) domain.TrainAllResult {
	seg := s.TrainSegmentation(ctx)
	churn := s.TrainChurn(ctx)

	status := domain.TrainingStatusSuccess
	if seg.Status != domain.TrainingStatusSuccess || churn.Status != domain.TrainingStatusSuccess {
		status = domain.TrainingStatusPartial
	}
	return domain.TrainAllResult{Status: status, Segmentation: seg, Churn: churn}
}

// SaveAll persists every trained model; untrained models are skipped.
func (s *MLService) SaveAll() error {
	var errs []error

	s.segMu.RLock()
	if s.seg.IsTrained() {
		if err := s.persist(SegmentationModelName, s.seg); err != nil {
			errs = append(errs, err)
		}
	}
	s.segMu.RUnlock()

	s.churnMu.RLock()
	if s.churn.IsTrained() {
		if err := s.persist(ChurnModelName, s.churn); err != nil {
			errs = append(errs, err)
		}
	}
	s.churnMu.RUnlock()

	return errors.Join(errs...)
}

// Status reports trained/untrained plus key metadata for each model.
func (s *MLService) Status() domain.ModelsStatus {
	var status domain.ModelsStatus
	status.ModelsDir = s.store.Location()

	s.segMu.RLock()
	status.Segmentation.IsTrained = s.seg.IsTrained()
	if s.seg.IsTrained() {
		status.Segmentation.Clusters = s.seg.Clusters()
		t := s.seg.TrainedAt()
		status.Segmentation.TrainedAt = &t
	}
	s.segMu.RUnlock()

	s.churnMu.RLock()
	status.Churn.IsTrained = s.churn.IsTrained()
	if s.churn.IsTrained() {
		status.Churn.Features = s.churn.FeatureCount()
		t := s.churn.TrainedAt()
		status.Churn.TrainedAt = &t
	}
	s.churnMu.RUnlock()

	return status
}

// PredictSegments assigns every customer to a learned segment. Fails with
// ml.ErrNotTrained before the first training.
func (s *MLService) PredictSegments(ctx context.Context) ([]domain.SegmentPrediction, error) {
	s.segMu.RLock()
	defer s.segMu.RUnlock()

	if !s.seg.IsTrained() {
		return nil, fmt.Errorf("segmentation: %w", ml.ErrNotTrained)
	}
	stats, err := s.repo.CustomerStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare customer data: %w", err)
	}
	return s.seg.Predict(stats, s.now())
}

// PredictChurn scores churn risk for all customers, or one customer when
// customerID is set; an unknown id yields an empty result. Fails with
// ml.ErrNotTrained before the first training.
func (s *MLService) PredictChurn(ctx context.Context, customerID *int64) ([]domain.ChurnPrediction, error) {
	s.churnMu.RLock()
	defer s.churnMu.RUnlock()

	if !s.churn.IsTrained() {
		return nil, fmt.Errorf("churn: %w", ml.ErrNotTrained)
	}
	stats, err := s.repo.CustomerStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare customer data: %w", err)
	}
	return s.churn.Predict(stats, s.now(), customerID)
}

// Insights summarizes the customer base plus whatever the trained models
// can report. Untrained models simply contribute nothing.
func (s *MLService) Insights(ctx context.Context) (domain.ModelInsights, error) {
	stats, err := s.repo.CustomerStats(ctx)
	if err != nil {
		return domain.ModelInsights{}, fmt.Errorf("prepare customer data: %w", err)
	}

	insights := domain.ModelInsights{ModelStatus: s.Status()}

	var orders, spent float64
	for _, cs := range stats {
		orders += float64(cs.TotalOrders)
		spent += cs.TotalSpent
	}
	insights.CustomerDataSummary = domain.CustomerSummary{
		TotalCustomers: len(stats),
		TotalRevenue:   spent,
	}
	if len(stats) > 0 {
		insights.CustomerDataSummary.AvgOrdersPerCustomer = orders / float64(len(stats))
		insights.CustomerDataSummary.AvgSpentPerCustomer = spent / float64(len(stats))
	}

	if insights.ModelStatus.Segmentation.IsTrained {
		if predictions, err := s.PredictSegments(ctx); err == nil {
			distribution := map[string]int{}
			for _, p := range predictions {
				distribution[p.SegmentName]++
			}
			insights.SegmentDistribution = distribution
		}
	}

	if insights.ModelStatus.Churn.IsTrained {
		if predictions, err := s.PredictChurn(ctx, nil); err == nil {
			churn := &domain.ChurnInsights{TotalCustomersAnalyzed: len(predictions)}
			total := 0.0
			for _, p := range predictions {
				total += p.ChurnProbability
				switch p.RiskLevel {
				case domain.RiskHigh:
					churn.HighRiskCustomers++
				case domain.RiskMedium:
					churn.MediumRiskCustomers++
				}
			}
			if len(predictions) > 0 {
				churn.AvgChurnProbability = total / float64(len(predictions))
			}
			insights.ChurnInsights = churn
		}
	}

	return insights, nil
}

func (s *MLService) saveModel(name string, m binaryModel) {
	if err := s.persist(name, m); err != nil {
		log.Printf("could not save %s: %v", name, err)
	}
}

func (s *MLService) persist(name string, m binaryModel) error {
	data, err := m.MarshalBinary()
	if err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	if err := s.store.Save(name, data); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

type binaryModel interface {
	MarshalBinary() ([]byte, error)
}

// safeTrain converts a panic inside a training run into a structured error
// result so one model's failure never aborts the other in TrainAll.
func safeTrain(name string, fn func() domain.TrainingResult) (result domain.TrainingResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("error training %s model: %v", name, r)
			result = domain.TrainingResult{
				Status: domain.TrainingStatusError,
				Error:  fmt.Sprint(r),
			}
		}
	}()
	return fn()
}

func errorResult(err error) domain.TrainingResult {
	return domain.TrainingResult{Status: domain.TrainingStatusError, Error: err.Error()}
}
