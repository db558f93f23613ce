package ml

import (
	"math"
	"time"

	"github.com/tdnguyen/retail-analytics/internal/core/domain"
)

// ChurnFeatureNames lists the churn model inputs in vector order.
var ChurnFeatureNames = []string{
	"total_orders",
	"total_spent",
	"days_since_last_order",
	"order_frequency",
	"avg_order_value",
	"customer_lifetime",
}

// SegmentationFeatureNames lists the clustering inputs in vector order.
var SegmentationFeatureNames = []string{"recency", "frequency", "monetary_log"}

// SegmentationFeatures holds the RFM-derived inputs for clustering one
// customer. Monetary is kept raw alongside its log transform so segment
// characteristics can report it untransformed.
type SegmentationFeatures struct {
	CustomerID   int64
	CustomerName string
	Country      string
	Recency      int
	Frequency    int
	Monetary     float64
	MonetaryLog  float64
}

func (f SegmentationFeatures) Vector() []float64 {
	return []float64{float64(f.Recency), float64(f.Frequency), f.MonetaryLog}
}

// ChurnFeatures holds the churn model inputs for one customer. IsChurned is
// the training label and is never consulted at prediction time.
type ChurnFeatures struct {
	CustomerID         int64
	CustomerName       string
	Country            string
	TotalOrders        int
	TotalSpent         float64
	DaysSinceLastOrder int
	OrderFrequency     float64
	AvgOrderValue      float64
	CustomerLifetime   int
	IsChurned          bool
}

func (f ChurnFeatures) Vector() []float64 {
	return []float64{
		float64(f.TotalOrders),
		f.TotalSpent,
		float64(f.DaysSinceLastOrder),
		f.OrderFrequency,
		f.AvgOrderValue,
		float64(f.CustomerLifetime),
	}
}

// BuildSegmentationFeatures converts per-customer aggregates into clustering
// features. The log transform on monetary reduces skew.
func BuildSegmentationFeatures(stats []domain.CustomerStats, now time.Time) []SegmentationFeatures {
	out := make([]SegmentationFeatures, 0, len(stats))
	for _, s := range stats {
		f := SegmentationFeatures{
			CustomerID:   s.CustomerID,
			CustomerName: s.CustomerName,
			Country:      s.Country,
			Recency:      daysSince(s.LastOrderDate, now),
			Frequency:    s.TotalOrders,
			Monetary:     s.TotalSpent,
			MonetaryLog:  math.Log1p(s.TotalSpent),
		}
		out = append(out, f)
	}
	return out
}

// BuildChurnFeatures converts per-customer aggregates into churn features and
// labels. A customer is labelled churned after 90 days without an order.
func BuildChurnFeatures(stats []domain.CustomerStats, now time.Time) []ChurnFeatures {
	out := make([]ChurnFeatures, 0, len(stats))
	for _, s := range stats {
		lifetime := 0
		if !s.FirstOrderDate.IsZero() && !s.LastOrderDate.IsZero() {
			lifetime = int(s.LastOrderDate.Sub(s.FirstOrderDate).Hours() / 24)
		}
		sinceLast := daysSince(s.LastOrderDate, now)

		// Orders per month over the customer's lifetime, floored at one
		// month to avoid division blow-up for brand-new customers.
		lifetimeMonths := float64(daysSince(s.FirstOrderDate, now)) / 30
		if lifetimeMonths < 1 {
			lifetimeMonths = 1
		}

		avgOrderValue := 0.0
		if s.TotalOrders > 0 {
			avgOrderValue = s.TotalSpent / float64(s.TotalOrders)
		}

		out = append(out, ChurnFeatures{
			CustomerID:         s.CustomerID,
			CustomerName:       s.CustomerName,
			Country:            s.Country,
			TotalOrders:        s.TotalOrders,
			TotalSpent:         s.TotalSpent,
			DaysSinceLastOrder: sinceLast,
			OrderFrequency:     float64(s.TotalOrders) / lifetimeMonths,
			AvgOrderValue:      avgOrderValue,
			CustomerLifetime:   lifetime,
			IsChurned:          sinceLast > 90,
		})
	}
	return out
}

func daysSince(t, now time.Time) int {
	if t.IsZero() {
		return domain.RecencyNoOrders
	}
	d := int(now.Sub(t).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
