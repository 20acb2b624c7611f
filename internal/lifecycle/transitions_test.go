package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/canteen-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/canteen-backend/pkg/errors"
)

var (
	placed    = enums.OrderStatusPlaced
	preparing = enums.OrderStatusPreparing
	ready     = enums.OrderStatusReady
	completed = enums.OrderStatusCompleted
	cancelled = enums.OrderStatusCancelled
)

func TestCanTransitionFullGrid(t *testing.T) {
	allowed := map[enums.Role]map[[2]enums.OrderStatus]bool{
		enums.RoleAttendant: {
			{placed, preparing}:    true,
			{preparing, ready}:     true,
			{ready, completed}:     true,
			{placed, cancelled}:    true,
			{preparing, cancelled}: true,
			{ready, cancelled}:     true,
		},
		enums.RoleManager: {
			{placed, preparing}:    true,
			{preparing, ready}:     true,
			{ready, completed}:     true,
			{placed, cancelled}:    true,
			{preparing, cancelled}: true,
			{ready, cancelled}:     true,
			{placed, completed}:    true,
			{preparing, completed}: true,
		},
		enums.RoleCustomer: {},
		"":                 {},
	}

	for role, edges := range allowed {
		for _, from := range enums.OrderStatuses() {
			for _, to := range enums.OrderStatuses() {
				want := edges[[2]enums.OrderStatus{from, to}]
				assert.Equal(t, want, CanTransition(role, from, to), "role=%q %s->%s", role, from, to)
			}
		}
	}
}

func TestTerminalStatusesHaveNoExits(t *testing.T) {
	for _, role := range []enums.Role{enums.RoleCustomer, enums.RoleAttendant, enums.RoleManager} {
		for _, terminal := range []enums.OrderStatus{completed, cancelled} {
			assert.Empty(t, Targets(role, terminal))
			assert.Empty(t, StaffActions(role, terminal))
		}
	}
}

func TestSelfTransitionIsForbidden(t *testing.T) {
	for _, s := range enums.OrderStatuses() {
		err := Check(enums.RoleManager, s, s)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbiddenTransition))
	}
}

func TestCheckErrors(t *testing.T) {
	require.NoError(t, Check(enums.RoleAttendant, placed, preparing))

	err := Check(enums.RoleCustomer, placed, cancelled)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbiddenTransition, typed.Code())
	assert.Equal(t, map[string]any{"role": enums.RoleCustomer, "from": placed, "to": cancelled}, typed.Details())

	err = Check(enums.RoleManager, placed, "em_andamento")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestStaffActions(t *testing.T) {
	assert.Equal(t, []enums.OrderStatus{cancelled}, StaffActions(enums.RoleAttendant, placed))
	assert.Equal(t, []enums.OrderStatus{cancelled}, StaffActions(enums.RoleAttendant, preparing))
	assert.Equal(t, []enums.OrderStatus{completed, cancelled}, StaffActions(enums.RoleAttendant, ready))

	assert.Equal(t, []enums.OrderStatus{completed, cancelled}, StaffActions(enums.RoleManager, placed))
	assert.Equal(t, []enums.OrderStatus{completed, cancelled}, StaffActions(enums.RoleManager, ready))

	assert.Empty(t, StaffActions(enums.RoleCustomer, placed))
}

func TestTargets(t *testing.T) {
	assert.Equal(t, []enums.OrderStatus{preparing, cancelled}, Targets(enums.RoleAttendant, placed))
	assert.Equal(t, []enums.OrderStatus{preparing, completed, cancelled}, Targets(enums.RoleManager, placed))
	assert.Len(t, Statuses(), 5)
	assert.True(t, IsTerminal(cancelled))
}
