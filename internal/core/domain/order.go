package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	OrderID     int64
	InvoiceNo   string
	CustomerID  *int64 // orders may be customer-less
	InvoiceDate time.Time
	Country     string
}

type OrderItem struct {
	OrderItemID int64
	OrderID     int64
	ProductID   int64
	Quantity    int
	UnitPrice   decimal.Decimal
}

// LineRevenue is quantity times unit price, kept in fixed-point decimal.
func (i OrderItem) LineRevenue() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
