package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/canteen-backend/pkg/enums"
)

// Order is the persisted result of a checkout. Total is computed on insert
// from catalog prices and never recomputed.
type Order struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID         `gorm:"column:user_id;type:uuid;not null"`
	Status    enums.OrderStatus `gorm:"column:status;not null;default:'placed'"`
	Total     decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	Notes     *string           `gorm:"column:notes"`
	LineItems []OrderLineItem   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
