package domain

import "github.com/shopspring/decimal"

// Item is a sellable catalog entry keyed by SKU. Checkout only reads it and
// decrements StockLevel; everything else is owned by inventory management.
type Item struct {
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	RetailPrice  decimal.Decimal `json:"retail_price"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	StockLevel   int             `json:"stock_level"`
	ReorderPoint int             `json:"reorder_point"`
	ImageURL     string          `json:"image_url,omitempty"`
}

// IsLowStock reports whether the item is at or below its reorder point.
func (i *Item) IsLowStock() bool {
	return i.StockLevel <= i.ReorderPoint
}
