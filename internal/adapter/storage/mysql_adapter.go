package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tdnguyen/retail-analytics/internal/core/domain"
)

// MySQLAdapter implements port.AnalyticsRepository with aggregate SQL over
// the customers/products/orders/order_items schema. All queries are
// read-only.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) TopCustomers(ctx context.Context, limit int, country string, window domain.DateRange) ([]domain.TopCustomer, error) {
	conds, args := windowConds(nil, nil, window)
	if country != "" {
		conds = append(conds, "c.country = ?")
		args = append(args, country)
	}

	query := `
		SELECT c.customer_id, COALESCE(c.customer_name, ''), COALESCE(c.country, ''),
		       COALESCE(SUM(oi.quantity * oi.unit_price), 0) AS total_spent,
		       COUNT(DISTINCT o.order_id) AS total_orders,
		       MAX(o.invoice_date) AS last_order_date
		FROM customers c
		JOIN orders o ON o.customer_id = c.customer_id
		JOIN order_items oi ON oi.order_id = o.order_id` +
		whereClause(conds) + `
		GROUP BY c.customer_id, c.customer_name, c.country
		ORDER BY total_spent DESC, c.customer_id
		LIMIT ?`
	args = append(args, limit)

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query top customers: %w", err)
	}
	defer rows.Close()

	var out []domain.TopCustomer
	for rows.Next() {
		var tc domain.TopCustomer
		var last sql.NullTime
		if err := rows.Scan(&tc.CustomerID, &tc.CustomerName, &tc.Country,
			&tc.TotalSpent, &tc.TotalOrders, &last); err != nil {
			return nil, fmt.Errorf("scan top customer: %w", err)
		}
		if last.Valid {
			tc.LastOrderDate = last.Time
		}
		tc.AvgOrderValue = divOrZero(tc.TotalSpent, tc.TotalOrders)
		out = append(out, tc)
	}
	return out, rows.Err()
}

func (m *MySQLAdapter) TopProducts(ctx context.Context, limit int, window domain.DateRange) ([]domain.TopProduct, error) {
	conds, args := windowConds(nil, nil, window)

	query := `
		SELECT p.product_id, p.stock_code, COALESCE(p.description, ''),
		       COALESCE(SUM(oi.quantity), 0),
		       COALESCE(SUM(oi.quantity * oi.unit_price), 0) AS total_revenue,
		       COALESCE(AVG(oi.unit_price), 0),
		       COUNT(DISTINCT oi.order_id)
		FROM products p
		JOIN order_items oi ON oi.product_id = p.product_id
		JOIN orders o ON o.order_id = oi.order_id` +
		whereClause(conds) + `
		GROUP BY p.product_id, p.stock_code, p.description
		ORDER BY total_revenue DESC, p.product_id
		LIMIT ?`
	args = append(args, limit)

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query top products: %w", err)
	}
	defer rows.Close()

	var out []domain.TopProduct
	for rows.Next() {
		var tp domain.TopProduct
		if err := rows.Scan(&tp.ProductID, &tp.StockCode, &tp.Description,
			&tp.TotalQuantitySold, &tp.TotalRevenue, &tp.AvgPrice, &tp.OrderCount); err != nil {
			return nil, fmt.Errorf("scan top product: %w", err)
		}
		tp.AvgPrice = tp.AvgPrice.Round(2)
		out = append(out, tp)
	}
	return out, rows.Err()
}

func (m *MySQLAdapter) SalesTrends(ctx context.Context, period domain.TrendPeriod, window domain.DateRange) ([]domain.SalesTrend, error) {
	var periodExpr string
	switch period {
	case domain.PeriodQuarter:
		periodExpr = "CONCAT(YEAR(o.invoice_date), '-Q', QUARTER(o.invoice_date))"
	case domain.PeriodYear:
		periodExpr = "DATE_FORMAT(o.invoice_date, '%Y')"
	default:
		// Unrecognized periods fall back to month truncation.
		periodExpr = "DATE_FORMAT(o.invoice_date, '%Y-%m')"
	}

	conds, args := windowConds(nil, nil, window)
	query := `
		SELECT ` + periodExpr + ` AS period,
		       COALESCE(SUM(oi.quantity * oi.unit_price), 0),
		       COUNT(DISTINCT o.order_id),
		       COUNT(DISTINCT o.customer_id)
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.order_id` +
		whereClause(conds) + `
		GROUP BY period
		ORDER BY period`

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sales trends: %w", err)
	}
	defer rows.Close()

	var out []domain.SalesTrend
	for rows.Next() {
		var st domain.SalesTrend
		if err := rows.Scan(&st.Period, &st.TotalRevenue, &st.TotalOrders, &st.TotalCustomers); err != nil {
			return nil, fmt.Errorf("scan sales trend: %w", err)
		}
		st.AvgOrderValue = divOrZero(st.TotalRevenue, st.TotalOrders)
		out = append(out, st)
	}
	return out, rows.Err()
}

func (m *MySQLAdapter) RevenueByCountry(ctx context.Context, limit int, window domain.DateRange) ([]domain.RevenueByCountry, error) {
	conds, args := windowConds(nil, nil, window)

	query := `
		SELECT COALESCE(NULLIF(o.country, ''), 'Unknown') AS country,
		       COALESCE(SUM(oi.quantity * oi.unit_price), 0) AS total_revenue,
		       COUNT(DISTINCT o.order_id),
		       COUNT(DISTINCT o.customer_id)
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.order_id` +
		whereClause(conds) + `
		GROUP BY country
		ORDER BY total_revenue DESC, country
		LIMIT ?`
	args = append(args, limit)

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query revenue by country: %w", err)
	}
	defer rows.Close()

	var out []domain.RevenueByCountry
	for rows.Next() {
		var rc domain.RevenueByCountry
		if err := rows.Scan(&rc.Country, &rc.TotalRevenue, &rc.TotalOrders, &rc.CustomerCount); err != nil {
			return nil, fmt.Errorf("scan revenue by country: %w", err)
		}
		rc.AvgOrderValue = divOrZero(rc.TotalRevenue, rc.TotalOrders)
		out = append(out, rc)
	}
	return out, rows.Err()
}

func (m *MySQLAdapter) CustomerRFM(ctx context.Context) ([]domain.RFMRecord, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT c.customer_id,
		       MAX(o.invoice_date),
		       COUNT(DISTINCT o.order_id),
		       COALESCE(SUM(oi.quantity * oi.unit_price), 0)
		FROM customers c
		JOIN orders o ON o.customer_id = c.customer_id
		JOIN order_items oi ON oi.order_id = o.order_id
		GROUP BY c.customer_id`)
	if err != nil {
		return nil, fmt.Errorf("query customer rfm: %w", err)
	}
	defer rows.Close()

	var out []domain.RFMRecord
	for rows.Next() {
		var r domain.RFMRecord
		var last sql.NullTime
		if err := rows.Scan(&r.CustomerID, &last, &r.Frequency, &r.Monetary); err != nil {
			return nil, fmt.Errorf("scan customer rfm: %w", err)
		}
		if last.Valid {
			r.LastOrderDate = last.Time
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (m *MySQLAdapter) PeriodTotals(ctx context.Context, start, end time.Time) (domain.PeriodTotals, error) {
	var t domain.PeriodTotals
	err := m.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(oi.quantity * oi.unit_price), 0),
		       COUNT(DISTINCT o.order_id)
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.order_id
		WHERE o.invoice_date >= ? AND o.invoice_date < ?`,
		start, end,
	).Scan(&t.Revenue, &t.Orders)
	if err != nil {
		return domain.PeriodTotals{}, fmt.Errorf("query period totals: %w", err)
	}
	return t, nil
}

func (m *MySQLAdapter) CustomerStats(ctx context.Context) ([]domain.CustomerStats, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT c.customer_id, COALESCE(c.customer_name, ''), COALESCE(c.country, ''),
		       COUNT(DISTINCT o.order_id),
		       COALESCE(SUM(oi.quantity * oi.unit_price), 0),
		       MIN(o.invoice_date),
		       MAX(o.invoice_date)
		FROM customers c
		JOIN orders o ON o.customer_id = c.customer_id
		JOIN order_items oi ON oi.order_id = o.order_id
		GROUP BY c.customer_id, c.customer_name, c.country
		HAVING COUNT(DISTINCT o.order_id) > 0`)
	if err != nil {
		return nil, fmt.Errorf("query customer stats: %w", err)
	}
	defer rows.Close()

	var out []domain.CustomerStats
	for rows.Next() {
		var cs domain.CustomerStats
		var first, last sql.NullTime
		if err := rows.Scan(&cs.CustomerID, &cs.CustomerName, &cs.Country,
			&cs.TotalOrders, &cs.TotalSpent, &first, &last); err != nil {
			return nil, fmt.Errorf("scan customer stats: %w", err)
		}
		if first.Valid {
			cs.FirstOrderDate = first.Time
		}
		if last.Valid {
			cs.LastOrderDate = last.Time
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

func windowConds(conds []string, args []any, w domain.DateRange) ([]string, []any) {
	if w.Start != nil {
		conds = append(conds, "o.invoice_date >= ?")
		args = append(args, *w.Start)
	}
	if w.End != nil {
		conds = append(conds, "o.invoice_date <= ?")
		args = append(args, *w.End)
	}
	return conds, args
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return "\n\t\tWHERE " + strings.Join(conds, " AND ")
}

// divOrZero is total ÷ count as currency, zero when count is zero.
func divOrZero(total decimal.Decimal, count int) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(count))).Round(2)
}
