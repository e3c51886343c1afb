package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ShneWtf/cafe-delivery-bot/internal/models"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    models.OrderStatus
		to      models.OrderStatus
		allowed bool
	}{
		{"created to accepted", models.StatusCreated, models.StatusAccepted, true},
		{"accepted to in_delivery", models.StatusAccepted, models.StatusInDelivery, true},
		{"in_delivery to delivered", models.StatusInDelivery, models.StatusDelivered, true},
		{"created to cancelled", models.StatusCreated, models.StatusCancelled, true},
		{"accepted to cancelled", models.StatusAccepted, models.StatusCancelled, true},

		{"created to in_delivery skips accepted", models.StatusCreated, models.StatusInDelivery, false},
		{"created to delivered skips everything", models.StatusCreated, models.StatusDelivered, false},
		{"in_delivery to cancelled", models.StatusInDelivery, models.StatusCancelled, false},
		{"delivered to cancelled", models.StatusDelivered, models.StatusCancelled, false},
		{"delivered is terminal", models.StatusDelivered, models.StatusAccepted, false},
		{"cancelled is terminal", models.StatusCancelled, models.StatusCreated, false},
		{"no self transition", models.StatusAccepted, models.StatusAccepted, false},
		{"no backward transition", models.StatusInDelivery, models.StatusAccepted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanTransition(tt.from, tt.to)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, KindInvalidTransition, KindOf(err))
			}
		})
	}
}

func TestNextStatuses(t *testing.T) {
	assert.ElementsMatch(t,
		[]models.OrderStatus{models.StatusAccepted, models.StatusCancelled},
		NextStatuses(models.StatusCreated))
	assert.ElementsMatch(t,
		[]models.OrderStatus{models.StatusInDelivery, models.StatusCancelled},
		NextStatuses(models.StatusAccepted))
	assert.ElementsMatch(t,
		[]models.OrderStatus{models.StatusDelivered},
		NextStatuses(models.StatusInDelivery))
	assert.Empty(t, NextStatuses(models.StatusDelivered))
	assert.Empty(t, NextStatuses(models.StatusCancelled))
}

func TestRoleCapabilities(t *testing.T) {
	// Director holds everything.
	for _, c := range []Capability{
		CapManageMenu, CapManageStories, CapManageOrders,
		CapAcceptOrders, CapDeliverOrders, CapManageRoles, CapViewStats,
	} {
		assert.True(t, roleCan(models.RoleDirector, c), "director should hold %s", c)
	}

	// Only the director manages roles.
	assert.False(t, roleCan(models.RoleAdmin, CapManageRoles))
	assert.False(t, roleCan(models.RoleCourier, CapManageRoles))
	assert.False(t, roleCan(models.RoleCustomer, CapManageRoles))

	assert.True(t, roleCan(models.RoleAdmin, CapManageMenu))
	assert.True(t, roleCan(models.RoleAdmin, CapManageOrders))
	assert.False(t, roleCan(models.RoleAdmin, CapDeliverOrders))

	assert.True(t, roleCan(models.RoleCourier, CapDeliverOrders))
	assert.True(t, roleCan(models.RoleCourier, CapAcceptOrders))
	assert.False(t, roleCan(models.RoleCourier, CapManageMenu))

	// Customers hold nothing.
	for _, c := range []Capability{
		CapManageMenu, CapManageStories, CapManageOrders,
		CapAcceptOrders, CapDeliverOrders, CapManageRoles, CapViewStats,
	} {
		assert.False(t, roleCan(models.RoleCustomer, c), "customer should not hold %s", c)
	}
}
