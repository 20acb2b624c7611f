package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a menu entry. IDs are stable integers shared with client carts.
type Product struct {
	ID          int64           `gorm:"column:id;primaryKey;autoIncrement:false"`
	Name        string          `gorm:"column:name;not null"`
	Description *string         `gorm:"column:description"`
	Category    string          `gorm:"column:category;not null"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	Available   bool            `gorm:"column:available;not null"`
	ImageURL    *string         `gorm:"column:image_url"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
