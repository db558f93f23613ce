package port

import (
	"context"
	"time"

	"github.com/tdnguyen/retail-analytics/internal/core/domain"
)

type AnalyticsRepository interface {
	// TopCustomers returns customers ranked by total spend descending.
	TopCustomers(ctx context.Context, limit int, country string, window domain.DateRange) ([]domain.TopCustomer, error)

	// TopProducts returns products ranked by total revenue descending.
	TopProducts(ctx context.Context, limit int, window domain.DateRange) ([]domain.TopProduct, error)

	// SalesTrends returns one row per truncated period, ascending.
	SalesTrends(ctx context.Context, period domain.TrendPeriod, window domain.DateRange) ([]domain.SalesTrend, error)

	// RevenueByCountry returns countries ranked by revenue descending.
	RevenueByCountry(ctx context.Context, limit int, window domain.DateRange) ([]domain.RevenueByCountry, error)

	// CustomerRFM returns raw recency/frequency/monetary rows for every
	// customer with at least one order.
	CustomerRFM(ctx context.Context) ([]domain.RFMRecord, error)

	// PeriodTotals returns revenue and distinct order count for
	// [start, end); used for KPI window comparison.
	PeriodTotals(ctx context.Context, start, end time.Time) (domain.PeriodTotals, error)

	// CustomerStats returns per-customer order aggregates for the ML
	// pipeline; customers with no orders are excluded.
	CustomerStats(ctx context.Context) ([]domain.CustomerStats, error)
}
