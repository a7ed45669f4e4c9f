package domain

import "github.com/shopspring/decimal"

func init() {
	// Prices go over the wire as JSON numbers ("price": 49.99).
	decimal.MarshalJSONWithoutQuotes = true
}

type Product struct {
	ID     int64           `json:"id"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Assets []Asset         `json:"assets"`
}

// NewProduct is the insert/update payload. Validated by the caller.
type NewProduct struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type Asset struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Filename  string `json:"filename"`
}

// Category rows form a forest: ParentID nil marks a root.
type Category struct {
	ID       int64       `json:"id"`
	Name     string      `json:"name"`
	ParentID *int64      `json:"parent_id"`
	Children []*Category `json:"children"`
}
