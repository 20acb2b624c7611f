// Package lifecycle holds the order status machine shared by the API and its
// clients: which role may move an order from one status to another, and the
// reduced set of actions the counter screen offers.
package lifecycle

import (
	"fmt"

	"github.com/angelmondragon/canteen-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/canteen-backend/pkg/errors"
)

type edge struct {
	from enums.OrderStatus
	to   enums.OrderStatus
}

var staff = []enums.Role{enums.RoleAttendant, enums.RoleManager}

// transitions is the single source of truth. Customers appear nowhere.
var transitions = map[edge][]enums.Role{
	{enums.OrderStatusPlaced, enums.OrderStatusPreparing}: staff,
	{enums.OrderStatusPreparing, enums.OrderStatusReady}:  staff,
	{enums.OrderStatusReady, enums.OrderStatusCompleted}:  staff,

	{enums.OrderStatusPlaced, enums.OrderStatusCancelled}:    staff,
	{enums.OrderStatusPreparing, enums.OrderStatusCancelled}: staff,
	{enums.OrderStatusReady, enums.OrderStatusCancelled}:     staff,

	// managers may close out an order that never went through the kitchen steps
	{enums.OrderStatusPlaced, enums.OrderStatusCompleted}:    {enums.RoleManager},
	{enums.OrderStatusPreparing, enums.OrderStatusCompleted}: {enums.RoleManager},
}

// staffActionTargets is what the counter screen renders as buttons.
var staffActionTargets = []enums.OrderStatus{
	enums.OrderStatusCompleted,
	enums.OrderStatusCancelled,
}

// Statuses returns every status for display.
func Statuses() []enums.OrderStatus {
	return enums.OrderStatuses()
}

func IsTerminal(status enums.OrderStatus) bool {
	return status.IsTerminal()
}

// CanTransition is the only authorization check for status changes.
func CanTransition(role enums.Role, from, to enums.OrderStatus) bool {
	if from == to || from.IsTerminal() {
		return false
	}
	for _, allowed := range transitions[edge{from, to}] {
		if allowed == role {
			return true
		}
	}
	return false
}

// Check is CanTransition with a typed failure naming the attempted move.
func Check(role enums.Role, from, to enums.OrderStatus) error {
	if !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order status %q", to))
	}
	if CanTransition(role, from, to) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbiddenTransition,
		fmt.Sprintf("%s cannot move an order from %s to %s", roleLabel(role), from, to)).
		WithDetails(map[string]any{"role": role, "from": from, "to": to})
}

// Targets lists every status role may move an order to from the given status.
func Targets(role enums.Role, from enums.OrderStatus) []enums.OrderStatus {
	var out []enums.OrderStatus
	for _, to := range enums.OrderStatuses() {
		if CanTransition(role, from, to) {
			out = append(out, to)
		}
	}
	return out
}

// StaffActions returns the subset of {completed, cancelled} that role may
// apply to an order in status.
func StaffActions(role enums.Role, status enums.OrderStatus) []enums.OrderStatus {
	var out []enums.OrderStatus
	for _, to := range staffActionTargets {
		if CanTransition(role, status, to) {
			out = append(out, to)
		}
	}
	return out
}

func roleLabel(role enums.Role) string {
	if role == "" {
		return "anonymous caller"
	}
	return string(role)
}
