package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/canteen-backend/pkg/enums"
)

// Order is the wire representation shared by the API and its clients.
// Total and line prices are always the server's numbers.
type Order struct {
	ID        uuid.UUID         `json:"id"`
	UserID    uuid.UUID         `json:"user_id"`
	Status    enums.OrderStatus `json:"status"`
	Total     decimal.Decimal   `json:"total"`
	Notes     *string           `json:"notes,omitempty"`
	Items     []OrderLineItem   `json:"items,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type OrderLineItem struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type OrderItemInput struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

// CreateOrderRequest carries product ids and quantities only; prices are
// looked up server side.
type CreateOrderRequest struct {
	Items []OrderItemInput `json:"items" validate:"required,min=1,dive"`
	Notes *string          `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// UpdateStatusRequest optionally names the status the caller last saw. A
// mismatch is reported as a conflict instead of being applied.
type UpdateStatusRequest struct {
	Status         enums.OrderStatus  `json:"status" validate:"required"`
	ExpectedStatus *enums.OrderStatus `json:"expected_status,omitempty"`
}

type CancelOrderRequest struct {
	ExpectedStatus *enums.OrderStatus `json:"expected_status,omitempty"`
}

type OrderList struct {
	Orders []Order `json:"orders"`
	Total  int64   `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// OrderFilters narrows a listing. Zero values mean "no filter" and the
// default page.
type OrderFilters struct {
	Status *enums.OrderStatus
	Limit  int
	Offset int
}
