package lifecycle

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/angelmondragon/canteen-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/canteen-backend/pkg/errors"
	"github.com/angelmondragon/canteen-backend/pkg/logger"
	"github.com/angelmondragon/canteen-backend/pkg/types"
)

// StatusClient is the remote order store as seen by the controller.
type StatusClient interface {
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, req types.UpdateStatusRequest) (*types.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*types.Order, error)
}

// Controller validates a status change locally and then asks the server to
// apply it, sending the status the caller last saw so a concurrent change
// surfaces as a conflict.
type Controller struct {
	client StatusClient
	logg   *logger.Logger
}

func NewController(client StatusClient, logg *logger.Logger) (*Controller, error) {
	if client == nil {
		return nil, errors.New("status client required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Controller{client: client, logg: logg}, nil
}

// RequestTransition never modifies order; the returned value is the server's
// view after the change.
func (c *Controller) RequestTransition(ctx context.Context, order types.Order, target enums.OrderStatus, role enums.Role) (*types.Order, error) {
	if err := Check(role, order.Status, target); err != nil {
		return nil, err
	}

	ctx = c.logg.WithOrderID(ctx, order.ID.String())
	expected := order.Status
	updated, err := c.client.UpdateOrderStatus(ctx, order.ID, types.UpdateStatusRequest{
		Status:         target,
		ExpectedStatus: &expected,
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			c.logg.Warn(ctx, "order status changed remotely")
		}
		return nil, err
	}
	return updated, nil
}

// RequestTransitionWithRefresh retries once after a conflict when the target
// is still reachable from the refreshed status.
func (c *Controller) RequestTransitionWithRefresh(ctx context.Context, order types.Order, target enums.OrderStatus, role enums.Role) (*types.Order, error) {
	updated, err := c.RequestTransition(ctx, order, target, role)
	if err == nil || !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		return updated, err
	}

	fresh, getErr := c.client.GetOrder(ctx, order.ID)
	if getErr != nil {
		return nil, getErr
	}
	if !CanTransition(role, fresh.Status, target) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order changed and the action no longer applies").
			WithDetails(map[string]any{"current_status": fresh.Status, "requested_status": target})
	}
	return c.RequestTransition(ctx, *fresh, target, role)
}

// Cancel is RequestTransition with target cancelled.
func (c *Controller) Cancel(ctx context.Context, order types.Order, role enums.Role) (*types.Order, error) {
	return c.RequestTransition(ctx, order, enums.OrderStatusCancelled, role)
}
