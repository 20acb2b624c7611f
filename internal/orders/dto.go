package orders

import (
	"github.com/angelmondragon/canteen-backend/pkg/db/models"
	"github.com/angelmondragon/canteen-backend/pkg/types"
)

func toOrder(m models.Order) types.Order {
	items := make([]types.OrderLineItem, 0, len(m.LineItems))
	for _, li := range m.LineItems {
		items = append(items, types.OrderLineItem{
			ProductID:   li.ProductID,
			ProductName: li.ProductName,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
			LineTotal:   li.LineTotal,
		})
	}
	return types.Order{
		ID:        m.ID,
		UserID:    m.UserID,
		Status:    m.Status,
		Total:     m.Total,
		Notes:     m.Notes,
		Items:     items,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func toOrderList(rows []models.Order, total int64, limit, offset int) *types.OrderList {
	orders := make([]types.Order, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, toOrder(row))
	}
	return &types.OrderList{Orders: orders, Total: total, Limit: limit, Offset: offset}
}
