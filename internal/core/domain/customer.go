package domain

import "time"

type Customer struct {
	CustomerID   int64
	CustomerName string
	Country      string
}

// CustomerStats is the per-customer aggregate row the ML pipeline is built
// from. Customers with zero orders never appear here.
type CustomerStats struct {
	CustomerID     int64
	CustomerName   string
	Country        string
	TotalOrders    int
	TotalSpent     float64
	FirstOrderDate time.Time
	LastOrderDate  time.Time
}
