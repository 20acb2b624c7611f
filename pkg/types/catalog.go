package types

import "github.com/shopspring/decimal"

type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Available   bool            `json:"available"`
	ImageURL    *string         `json:"image_url,omitempty"`
}

// ProductFilters narrows the catalog listing. Query matches name or
// description, case insensitive.
type ProductFilters struct {
	AvailableOnly bool
	Category      string
	Query         string
}
