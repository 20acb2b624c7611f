package lifecycle

import (
	"github.com/angelmondragon/canteen-backend/pkg/enums"
	"github.com/angelmondragon/canteen-backend/pkg/types"
)

// Tabs is the customer-facing split of their orders. Cancelled orders are in
// neither tab.
type Tabs struct {
	InProgress []types.Order
	Completed  []types.Order
}

// Partition keeps the input order within each tab.
func Partition(orders []types.Order) Tabs {
	tabs := Tabs{InProgress: []types.Order{}, Completed: []types.Order{}}
	for _, o := range orders {
		switch {
		case !o.Status.IsTerminal():
			tabs.InProgress = append(tabs.InProgress, o)
		case o.Status == enums.OrderStatusCompleted:
			tabs.Completed = append(tabs.Completed, o)
		}
	}
	return tabs
}
