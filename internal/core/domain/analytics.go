package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TrendPeriod selects the truncation unit for sales trends.
type TrendPeriod string

const (
	PeriodMonth   TrendPeriod = "month"
	PeriodQuarter TrendPeriod = "quarter"
	PeriodYear    TrendPeriod = "year"
)

// DateRange is an optional, half-open-on-nothing query window: a nil bound
// means unbounded on that side.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

type TopCustomer struct {
	CustomerID    int64           `json:"customer_id"`
	CustomerName  string          `json:"customer_name"`
	Country       string          `json:"country"`
	TotalSpent    decimal.Decimal `json:"total_spent"`
	TotalOrders   int             `json:"total_orders"`
	AvgOrderValue decimal.Decimal `json:"avg_order_value"`
	LastOrderDate time.Time       `json:"last_order_date"`
}

type TopProduct struct {
	ProductID         int64           `json:"product_id"`
	StockCode         string          `json:"stock_code"`
	Description       string          `json:"description"`
	TotalQuantitySold int             `json:"total_quantity_sold"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	AvgPrice          decimal.Decimal `json:"avg_price"`
	OrderCount        int             `json:"order_count"`
}

type SalesTrend struct {
	Period         string          `json:"period"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	TotalOrders    int             `json:"total_orders"`
	TotalCustomers int             `json:"total_customers"`
	AvgOrderValue  decimal.Decimal `json:"avg_order_value"`
}

type RevenueByCountry struct {
	Country       string          `json:"country"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalOrders   int             `json:"total_orders"`
	CustomerCount int             `json:"customer_count"`
	AvgOrderValue decimal.Decimal `json:"avg_order_value"`
}

// RFMRecord holds recency/frequency/monetary values for one customer.
// Recency is days since the last order; RecencyNoOrders marks a customer
// whose last order date could not be resolved.
type RFMRecord struct {
	CustomerID    int64
	LastOrderDate time.Time
	Frequency     int
	Monetary      decimal.Decimal
}

const RecencyNoOrders = 999

type SegmentSummary struct {
	Segment       string          `json:"segment"`
	CustomerCount int             `json:"customer_count"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	AvgOrderValue decimal.Decimal `json:"avg_order_value"`
	Description   string          `json:"description"`
}

type KPI struct {
	MetricName         string          `json:"metric_name"`
	Value              decimal.Decimal `json:"value"`
	Period             string          `json:"period"`
	ChangeFromPrevious decimal.Decimal `json:"change_from_previous"`
	ChangePercentage   float64         `json:"change_percentage"`
}

// PeriodTotals is the raw revenue/order aggregate for one KPI window.
type PeriodTotals struct {
	Revenue decimal.Decimal
	Orders  int
}

// Dashboard bundles every analytics view for a single reporting window.
type Dashboard struct {
	TopCustomers     []TopCustomer      `json:"top_customers"`
	TopProducts      []TopProduct       `json:"top_products"`
	SalesTrends      []SalesTrend       `json:"sales_trends"`
	RevenueByCountry []RevenueByCountry `json:"revenue_by_country"`
	CustomerSegments []SegmentSummary   `json:"customer_segments"`
	KPIs             []KPI              `json:"kpis"`
	GeneratedAt      time.Time          `json:"generated_at"`
}
