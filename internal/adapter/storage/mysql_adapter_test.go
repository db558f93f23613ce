package storage

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"github.com/tdnguyen/retail-analytics/internal/core/domain"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/retail?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	return db
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		customer_id BIGINT PRIMARY KEY,
		customer_name VARCHAR(255),
		country VARCHAR(100)
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		product_id BIGINT PRIMARY KEY,
		stock_code VARCHAR(32) NOT NULL,
		description VARCHAR(255)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		order_id BIGINT PRIMARY KEY,
		customer_id BIGINT,
		country VARCHAR(100),
		invoice_date DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		order_id BIGINT NOT NULL,
		product_id BIGINT NOT NULL,
		quantity INT NOT NULL,
		unit_price DECIMAL(10,2) NOT NULL
	)`,
}

// Seeded rows live in 1990 so a shared database never collides with them;
// every query below is scoped to that window.
var (
	seedStart = time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	seedEnd   = time.Date(1990, 12, 31, 0, 0, 0, 0, time.UTC)
)

func seedWindow() domain.DateRange {
	start, end := seedStart, seedEnd
	return domain.DateRange{Start: &start, End: &end}
}

func cleanupSeed(ctx context.Context, db *sql.DB) {
	db.ExecContext(ctx, `DELETE FROM order_items WHERE order_id BETWEEN 930000 AND 939999`)
	db.ExecContext(ctx, `DELETE FROM orders WHERE order_id BETWEEN 930000 AND 939999`)
	db.ExecContext(ctx, `DELETE FROM products WHERE product_id BETWEEN 920000 AND 929999`)
	db.ExecContext(ctx, `DELETE FROM customers WHERE customer_id BETWEEN 910000 AND 919999`)
}

func seedAnalyticsData(t *testing.T, db *sql.DB) {
	ctx := context.Background()
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("schema setup failed: %v", err)
		}
	}
	cleanupSeed(ctx, db)
	t.Cleanup(func() { cleanupSeed(context.Background(), db) })

	exec := func(query string, args ...any) {
		if _, err := db.ExecContext(ctx, query, args...); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	exec(`INSERT INTO customers (customer_id, customer_name, country) VALUES
		(910001, 'Alice', 'Testland-A'), (910002, 'Bob', 'Testland-B'), (910003, 'Carol', '')`)
	exec(`INSERT INTO products (product_id, stock_code, description) VALUES
		(920001, 'TST-1', 'Test Mug'), (920002, 'TST-2', 'Test Lamp')`)

	// Alice: two orders, 50.00 total. Bob: one order, 20.00. Carol: one
	// order, 15.00, with no country recorded.
	exec(`INSERT INTO orders (order_id, customer_id, country, invoice_date) VALUES
		(930001, 910001, 'Testland-A', '1990-01-10 00:00:00'),
		(930002, 910001, 'Testland-A', '1990-02-10 00:00:00'),
		(930003, 910002, 'Testland-B', '1990-01-15 00:00:00'),
		(930004, 910003, '', '1990-01-20 00:00:00')`)
	exec(`INSERT INTO order_items (order_id, product_id, quantity, unit_price) VALUES
		(930001, 920001, 2, 10.00),
		(930002, 920002, 1, 30.00),
		(930003, 920001, 4, 5.00),
		(930004, 920002, 1, 15.00)`)
}

func TestTopCustomers(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()
	seedAnalyticsData(t, db)

	adapter := NewMySQLAdapter(db)
	customers, err := adapter.TopCustomers(context.Background(), 5, "Testland-A", seedWindow())
	if err != nil {
		t.Fatalf("TopCustomers failed: %v", err)
	}
	if len(customers) != 1 {
		t.Fatalf("expected 1 customer, got %d", len(customers))
	}

	alice := customers[0]
	if alice.CustomerID != 910001 || alice.CustomerName != "Alice" {
		t.Errorf("unexpected customer: %+v", alice)
	}
	if !alice.TotalSpent.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected total spent 50, got %s", alice.TotalSpent)
	}
	if alice.TotalOrders != 2 {
		t.Errorf("expected 2 orders, got %d", alice.TotalOrders)
	}
	if !alice.AvgOrderValue.Equal(decimal.NewFromInt(25)) {
		t.Errorf("expected avg 25, got %s", alice.AvgOrderValue)
	}
	if alice.LastOrderDate.Format("2006-01-02") != "1990-02-10" {
		t.Errorf("unexpected last order date: %s", alice.LastOrderDate)
	}
}

func TestTopProducts(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()
	seedAnalyticsData(t, db)

	adapter := NewMySQLAdapter(db)
	products, err := adapter.TopProducts(context.Background(), 5, seedWindow())
	if err != nil {
		t.Fatalf("TopProducts failed: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}

	// Lamp: 30 + 15 = 45 revenue; mug: 20 + 20 = 40. Revenue descending.
	if products[0].ProductID != 920002 {
		t.Errorf("expected lamp first, got %+v", products[0])
	}
	if !products[0].TotalRevenue.Equal(decimal.NewFromInt(45)) {
		t.Errorf("expected lamp revenue 45, got %s", products[0].TotalRevenue)
	}
	if products[0].OrderCount != 2 || products[0].TotalQuantitySold != 2 {
		t.Errorf("unexpected lamp counts: %+v", products[0])
	}
	if products[1].TotalQuantitySold != 6 {
		t.Errorf("expected 6 mugs sold, got %d", products[1].TotalQuantitySold)
	}

	// limit below the row count truncates; limit above it returns all rows.
	one, err := adapter.TopProducts(context.Background(), 1, seedWindow())
	if err != nil {
		t.Fatalf("TopProducts failed: %v", err)
	}
	if len(one) != 1 || one[0].ProductID != 920002 {
		t.Errorf("expected the top product alone, got %+v", one)
	}
}

func TestSalesTrends_Monthly(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()
	seedAnalyticsData(t, db)

	adapter := NewMySQLAdapter(db)
	trends, err := adapter.SalesTrends(context.Background(), domain.PeriodMonth, seedWindow())
	if err != nil {
		t.Fatalf("SalesTrends failed: %v", err)
	}
	if len(trends) != 2 {
		t.Fatalf("expected 2 periods, got %d", len(trends))
	}

	jan := trends[0]
	if jan.Period != "1990-01" {
		t.Errorf("expected period 1990-01, got %s", jan.Period)
	}
	if !jan.TotalRevenue.Equal(decimal.NewFromInt(55)) {
		t.Errorf("expected January revenue 55, got %s", jan.TotalRevenue)
	}
	if jan.TotalOrders != 3 || jan.TotalCustomers != 3 {
		t.Errorf("unexpected January counts: %+v", jan)
	}
	if trends[1].Period != "1990-02" {
		t.Errorf("expected period 1990-02, got %s", trends[1].Period)
	}
}

func TestSalesTrends_Quarterly(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()
	seedAnalyticsData(t, db)

	adapter := NewMySQLAdapter(db)
	trends, err := adapter.SalesTrends(context.Background(), domain.PeriodQuarter, seedWindow())
	if err != nil {
		t.Fatalf("SalesTrends failed: %v", err)
	}
	if len(trends) != 1 {
		t.Fatalf("expected 1 quarter, got %d", len(trends))
	}
	if trends[0].Period != "1990-Q1" {
		t.Errorf("expected 1990-Q1, got %s", trends[0].Period)
	}
	if !trends[0].TotalRevenue.Equal(decimal.NewFromInt(85)) {
		t.Errorf("expected Q1 revenue 85, got %s", trends[0].TotalRevenue)
	}
}

func TestRevenueByCountry_UnknownBucket(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()
	seedAnalyticsData(t, db)

	adapter := NewMySQLAdapter(db)
	countries, err := adapter.RevenueByCountry(context.Background(), 10, seedWindow())
	if err != nil {
		t.Fatalf("RevenueByCountry failed: %v", err)
	}

	byCountry := map[string]domain.RevenueByCountry{}
	for _, c := range countries {
		byCountry[c.Country] = c
	}

	a, ok := byCountry["Testland-A"]
	if !ok {
		t.Fatal("expected Testland-A row")
	}
	if !a.TotalRevenue.Equal(decimal.NewFromInt(50)) || a.TotalOrders != 2 || a.CustomerCount != 1 {
		t.Errorf("unexpected Testland-A row: %+v", a)
	}

	// Empty country strings fold into the Unknown bucket.
	unknown, ok := byCountry["Unknown"]
	if !ok {
		t.Fatal("expected Unknown row for empty country")
	}
	if unknown.TotalRevenue.LessThan(decimal.NewFromInt(15)) {
		t.Errorf("expected Unknown revenue >= 15, got %s", unknown.TotalRevenue)
	}
}

func TestPeriodTotals_HalfOpenWindow(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()
	seedAnalyticsData(t, db)

	adapter := NewMySQLAdapter(db)
	ctx := context.Background()

	// [Jan 1, Feb 10) excludes the order placed exactly at Feb 10 00:00.
	totals, err := adapter.PeriodTotals(ctx, seedStart, time.Date(1990, 2, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("PeriodTotals failed: %v", err)
	}
	if totals.Orders != 3 {
		t.Errorf("expected 3 orders before Feb 10, got %d", totals.Orders)
	}
	if !totals.Revenue.Equal(decimal.NewFromInt(55)) {
		t.Errorf("expected revenue 55, got %s", totals.Revenue)
	}

	// Extending the end by a second brings the boundary order in.
	totals, err = adapter.PeriodTotals(ctx, seedStart, time.Date(1990, 2, 10, 0, 0, 1, 0, time.UTC))
	if err != nil {
		t.Fatalf("PeriodTotals failed: %v", err)
	}
	if totals.Orders != 4 {
		t.Errorf("expected 4 orders including boundary, got %d", totals.Orders)
	}

	// An empty window reports zeros, not an error.
	totals, err = adapter.PeriodTotals(ctx, time.Date(1985, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(1985, 2, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("PeriodTotals failed: %v", err)
	}
	if totals.Orders != 0 || !totals.Revenue.IsZero() {
		t.Errorf("expected zero totals, got %+v", totals)
	}
}

func TestCustomerStats(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()
	seedAnalyticsData(t, db)

	adapter := NewMySQLAdapter(db)
	stats, err := adapter.CustomerStats(context.Background())
	if err != nil {
		t.Fatalf("CustomerStats failed: %v", err)
	}

	var alice *domain.CustomerStats
	for i := range stats {
		if stats[i].CustomerID == 910001 {
			alice = &stats[i]
			break
		}
	}
	if alice == nil {
		t.Fatal("expected stats row for seeded customer")
	}
	if alice.TotalOrders != 2 {
		t.Errorf("expected 2 orders, got %d", alice.TotalOrders)
	}
	if alice.TotalSpent != 50 {
		t.Errorf("expected total spent 50, got %v", alice.TotalSpent)
	}
	if alice.FirstOrderDate.Format("2006-01-02") != "1990-01-10" ||
		alice.LastOrderDate.Format("2006-01-02") != "1990-02-10" {
		t.Errorf("unexpected order dates: %+v", alice)
	}
}

func TestCustomerRFM(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()
	seedAnalyticsData(t, db)

	adapter := NewMySQLAdapter(db)
	records, err := adapter.CustomerRFM(context.Background())
	if err != nil {
		t.Fatalf("CustomerRFM failed: %v", err)
	}

	var alice *domain.RFMRecord
	for i := range records {
		if records[i].CustomerID == 910001 {
			alice = &records[i]
			break
		}
	}
	if alice == nil {
		t.Fatal("expected RFM row for seeded customer")
	}
	if alice.Frequency != 2 {
		t.Errorf("expected frequency 2, got %d", alice.Frequency)
	}
	if !alice.Monetary.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected monetary 50, got %s", alice.Monetary)
	}
	if alice.LastOrderDate.IsZero() {
		t.Error("expected last order date set")
	}
}
