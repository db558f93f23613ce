package domain

import "time"

// TrainingResult is the structured outcome of one model training run.
// Failures are carried in Status/Error instead of an error return so that
// batch training can report per-model outcomes.
type TrainingResult struct {
	Status  string `json:"status"` // "success" or "error"
	Error   string `json:"error,omitempty"`
	Samples int    `json:"n_samples,omitempty"`

	// Segmentation only.
	Clusters               int                               `json:"n_clusters,omitempty"`
	SilhouetteScore        float64                           `json:"silhouette_score,omitempty"`
	SegmentCharacteristics map[string]SegmentCharacteristics `json:"segment_characteristics,omitempty"`

	// Churn only.
	Accuracy          float64                 `json:"accuracy,omitempty"`
	Features          []string                `json:"features,omitempty"`
	FeatureImportance map[string]float64      `json:"feature_importance,omitempty"`
	ClassReport       map[string]ClassMetrics `json:"classification_report,omitempty"`
}

const (
	TrainingStatusSuccess = "success"
	TrainingStatusError   = "error"
	TrainingStatusPartial = "partial_success"
)

// ClassMetrics is a per-class evaluation row of a classifier.
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// TrainAllResult aggregates the outcome of training both models.
type TrainAllResult struct {
	Status       string         `json:"status"`
	Segmentation TrainingResult `json:"segmentation_training"`
	Churn        TrainingResult `json:"churn_training"`
}

type SegmentPrediction struct {
	CustomerID   int64   `json:"customer_id"`
	CustomerName string  `json:"customer_name"`
	Country      string  `json:"country"`
	Cluster      int     `json:"segment"`
	SegmentName  string  `json:"segment_name"`
	Recency      int     `json:"recency"`
	Frequency    int     `json:"frequency"`
	Monetary     float64 `json:"monetary"`
}

// SegmentCharacteristics describes one named segment of the trained
// population.
type SegmentCharacteristics struct {
	Count        int     `json:"count"`
	AvgRecency   float64 `json:"avg_recency"`
	AvgFrequency float64 `json:"avg_frequency"`
	AvgMonetary  float64 `json:"avg_monetary"`
	Percentage   float64 `json:"percentage"`
}

type ChurnPrediction struct {
	CustomerID         int64    `json:"customer_id"`
	CustomerName       string   `json:"customer_name"`
	Country            string   `json:"country"`
	ChurnProbability   float64  `json:"churn_probability"`
	RiskLevel          string   `json:"risk_level"`
	DaysSinceLastOrder int      `json:"days_since_last_order"`
	TotalOrders        int      `json:"total_orders"`
	TotalSpent         float64  `json:"total_spent"`
	Recommendations    []string `json:"recommendations"`
}

const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// ModelStatus reports trained/untrained plus key metadata for one model.
type ModelStatus struct {
	IsTrained bool       `json:"is_trained"`
	Clusters  int        `json:"n_clusters,omitempty"`
	Features  int        `json:"n_features,omitempty"`
	TrainedAt *time.Time `json:"trained_at,omitempty"`
}

type ModelsStatus struct {
	Segmentation ModelStatus `json:"segmentation_model"`
	Churn        ModelStatus `json:"churn_model"`
	ModelsDir    string      `json:"models_directory"`
}

// ModelInsights is a summary view over the customer base and both models.
type ModelInsights struct {
	ModelStatus         ModelsStatus    `json:"model_status"`
	CustomerDataSummary CustomerSummary `json:"customer_data_summary"`
	SegmentDistribution map[string]int  `json:"segment_distribution,omitempty"`
	ChurnInsights       *ChurnInsights  `json:"churn_insights,omitempty"`
}

type CustomerSummary struct {
	TotalCustomers       int     `json:"total_customers"`
	AvgOrdersPerCustomer float64 `json:"avg_orders_per_customer"`
	AvgSpentPerCustomer  float64 `json:"avg_spent_per_customer"`
	TotalRevenue         float64 `json:"total_revenue"`
}

type ChurnInsights struct {
	TotalCustomersAnalyzed int     `json:"total_customers_analyzed"`
	HighRiskCustomers      int     `json:"high_risk_customers"`
	MediumRiskCustomers    int     `json:"medium_risk_customers"`
	AvgChurnProbability    float64 `json:"avg_churn_probability"`
}

// TrainingJob tracks an asynchronously started training run.
type TrainingJob struct {
	ID         string          `json:"id"`
	State      string          `json:"state"` // pending, running, done
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Result     *TrainAllResult `json:"result,omitempty"`
}

const (
	JobStatePending = "pending"
	JobStateRunning = "running"
	JobStateDone    = "done"
)
