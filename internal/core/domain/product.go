package domain

type Product struct {
	ProductID   int64
	StockCode   string
	Description string
}
