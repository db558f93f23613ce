package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/tdnguyen/retail-analytics/internal/core/domain"
	"github.com/tdnguyen/retail-analytics/internal/port"
)

const defaultLimit = 10

// segmentRules are evaluated top to bottom; the first match wins. Together
// with the trailing default they are exhaustive over every customer with at
// least one order.
var segmentOrder = []string{
	"Champions",
	"Loyal Customers",
	"Potential Loyalists",
	"At Risk",
	"Lost Customers",
	"New Customers",
}

var segmentDescriptions = map[string]string{
	"Champions":           "High-value, frequent, recent customers",
	"Loyal Customers":     "Regular customers with good spending",
	"Potential Loyalists": "Recent customers with growth potential",
	"At Risk":             "Customers showing signs of churn",
	"Lost Customers":      "Inactive customers who haven't purchased recently",
	"New Customers":       "Recently acquired customers",
}

// AnalyticsService is the aggregation engine: read-only analytical views
// over the order history. It holds no mutable state and is safe for
// concurrent use. cache may be nil to disable report caching.
type AnalyticsService struct {
	repo     port.AnalyticsRepository
	cache    port.ReportCache
	cacheTTL time.Duration
	now      func() time.Time
}

func NewAnalyticsService(repo port.AnalyticsRepository, cache port.ReportCache, cacheTTL time.Duration) *AnalyticsService {
	return &AnalyticsService{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

func (s *AnalyticsService) TopCustomers(ctx context.Context, limit int, country string, window domain.DateRange) ([]domain.TopCustomer, error) {
	return s.repo.TopCustomers(ctx, normalizeLimit(limit), country, window)
}

func (s *AnalyticsService) TopProducts(ctx context.Context, limit int, window domain.DateRange) ([]domain.TopProduct, error) {
	return s.repo.TopProducts(ctx, normalizeLimit(limit), window)
}

func (s *AnalyticsService) SalesTrends(ctx context.Context, period domain.TrendPeriod, window domain.DateRange) ([]domain.SalesTrend, error) {
	return s.repo.SalesTrends(ctx, period, window)
}

func (s *AnalyticsService) RevenueByCountry(ctx context.Context, limit int, window domain.DateRange) ([]domain.RevenueByCountry, error) {
	return s.repo.RevenueByCountry(ctx, normalizeLimit(limit), window)
}

// CustomerSegments classifies every customer with at least one order into a
// rule-based RFM segment and aggregates per segment. Output order follows
// the fixed segment ranking so identical data yields identical results.
func (s *AnalyticsService) CustomerSegments(ctx context.Context) ([]domain.SegmentSummary, error) {
	records, err := s.repo.CustomerRFM(ctx)
	if err != nil {
		return nil, fmt.Errorf("customer segments: %w", err)
	}

	now := s.now()
	type acc struct {
		count   int
		revenue decimal.Decimal
	}
	byName := map[string]*acc{}
	for _, r := range records {
		recency := domain.RecencyNoOrders
		if !r.LastOrderDate.IsZero() {
			recency = int(now.Sub(r.LastOrderDate).Hours() / 24)
			if recency < 0 {
				recency = 0
			}
		}
		name := ClassifySegment(recency, r.Frequency, r.Monetary)
		a := byName[name]
		if a == nil {
			a = &acc{revenue: decimal.Zero}
			byName[name] = a
		}
		a.count++
		a.revenue = a.revenue.Add(r.Monetary)
	}

	var out []domain.SegmentSummary
	for _, name := range segmentOrder {
		a := byName[name]
		if a == nil {
			continue
		}
		avg := decimal.Zero
		if a.count > 0 {
			avg = a.revenue.Div(decimal.NewFromInt(int64(a.count))).Round(2)
		}
		out = append(out, domain.SegmentSummary{
			Segment:       name,
			CustomerCount: a.count,
			TotalRevenue:  a.revenue,
			AvgOrderValue: avg,
			Description:   segmentDescriptions[name],
		})
	}
	return out, nil
}

// ClassifySegment applies the ordered RFM rules; the first match wins.
func ClassifySegment(recency, frequency int, monetary decimal.Decimal) string {
	switch {
	case recency <= 30 && frequency >= 5 && monetary.GreaterThanOrEqual(decimal.NewFromInt(1000)):
		return "Champions"
	case recency <= 60 && frequency >= 3 && monetary.GreaterThanOrEqual(decimal.NewFromInt(500)):
		return "Loyal Customers"
	case recency <= 90 && frequency >= 2:
		return "Potential Loyalists"
	case recency <= 180 && frequency >= 1:
		return "At Risk"
	case recency > 180:
		return "Lost Customers"
	default:
		return "New Customers"
	}
}

// KPIs compares the requested window (default: trailing 30 days ending now)
// against the immediately preceding window of equal length. Windows are
// half-open [start, end). Percentage change is defined as zero when the
// previous value is zero; that is a policy choice, not an identity.
func (s *AnalyticsService) KPIs(ctx context.Context, window domain.DateRange) ([]domain.KPI, error) {
	end := s.now()
	if window.End != nil {
		end = *window.End
	}
	start := end.AddDate(0, 0, -30)
	if window.Start != nil {
		start = *window.Start
	}
	length := end.Sub(start)
	prevStart := start.Add(-length)

	current, err := s.repo.PeriodTotals(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("kpis current period: %w", err)
	}
	previous, err := s.repo.PeriodTotals(ctx, prevStart, start)
	if err != nil {
		return nil, fmt.Errorf("kpis previous period: %w", err)
	}

	period := fmt.Sprintf("%s to %s", start.Format("2006-01-02"), end.Format("2006-01-02"))

	currentAOV := divRevenue(current.Revenue, current.Orders)
	previousAOV := divRevenue(previous.Revenue, previous.Orders)

	return []domain.KPI{
		makeKPI("Total Revenue", current.Revenue, previous.Revenue, period),
		makeKPI("Total Orders", decimal.NewFromInt(int64(current.Orders)), decimal.NewFromInt(int64(previous.Orders)), period),
		makeKPI("Average Order Value", currentAOV, previousAOV, period),
	}, nil
}

func makeKPI(name string, current, previous decimal.Decimal, period string) domain.KPI {
	change := current.Sub(previous)
	pct := 0.0
	if previous.IsPositive() {
		pct, _ = change.Div(previous).Mul(decimal.NewFromInt(100)).Float64()
	}
	return domain.KPI{
		MetricName:         name,
		Value:              current,
		Period:             period,
		ChangeFromPrevious: change,
		ChangePercentage:   pct,
	}
}

func divRevenue(revenue decimal.Decimal, orders int) decimal.Decimal {
	if orders == 0 {
		return decimal.Zero
	}
	return revenue.Div(decimal.NewFromInt(int64(orders))).Round(2)
}

// Dashboard runs the six analytics views concurrently and joins on
// completion. A failure in any view fails the whole dashboard. Results are
// served from the report cache when one is configured.
func (s *AnalyticsService) Dashboard(ctx context.Context, limit int, window domain.DateRange) (*domain.Dashboard, error) {
	limit = normalizeLimit(limit)
	key := dashboardKey(limit, window)

	if s.cache != nil {
		var cached domain.Dashboard
		hit, err := s.cache.GetReport(ctx, key, &cached)
		if err != nil {
			log.Printf("dashboard cache read failed: %v", err)
		} else if hit {
			return &cached, nil
		}
	}

	var d domain.Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		d.TopCustomers, err = s.repo.TopCustomers(gctx, limit, "", window)
		return err
	})
	g.Go(func() error {
		var err error
		d.TopProducts, err = s.repo.TopProducts(gctx, limit, window)
		return err
	})
	g.Go(func() error {
		var err error
		d.SalesTrends, err = s.repo.SalesTrends(gctx, domain.PeriodMonth, window)
		return err
	})
	g.Go(func() error {
		var err error
		d.RevenueByCountry, err = s.repo.RevenueByCountry(gctx, limit, window)
		return err
	})
	g.Go(func() error {
		var err error
		d.CustomerSegments, err = s.CustomerSegments(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		d.KPIs, err = s.KPIs(gctx, window)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	d.GeneratedAt = s.now()

	if s.cache != nil {
		if err := s.cache.SetReport(ctx, key, &d, s.cacheTTL); err != nil {
			log.Printf("dashboard cache write failed: %v", err)
		}
	}
	return &d, nil
}

func dashboardKey(limit int, window domain.DateRange) string {
	start, end := "", ""
	if window.Start != nil {
		start = window.Start.UTC().Format(time.RFC3339)
	}
	if window.End != nil {
		end = window.End.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("dashboard:%d:%s:%s", limit, start, end)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return limit
}
