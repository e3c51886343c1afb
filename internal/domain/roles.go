package domain

import (
	"github.com/ShneWtf/cafe-delivery-bot/internal/models"
)

// Capability names a privileged operation. Handlers never check roles
// directly; they ask the service whether the actor holds a capability.
type Capability string

const (
	CapManageMenu    Capability = "manage_menu"
	CapManageStories Capability = "manage_stories"
	CapManageOrders  Capability = "manage_orders"
	CapAcceptOrders  Capability = "accept_orders"
	CapDeliverOrders Capability = "deliver_orders"
	CapManageRoles   Capability = "manage_roles"
	CapViewStats     Capability = "view_stats"
)

// capabilities is the closed authorization table. The director is not listed:
// the configured director identity holds every capability implicitly.
var capabilities = map[models.Role]map[Capability]bool{
	models.RoleDirector: {
		CapManageMenu:    true,
		CapManageStories: true,
		CapManageOrders:  true,
		CapAcceptOrders:  true,
		CapDeliverOrders: true,
		CapManageRoles:   true,
		CapViewStats:     true,
	},
	models.RoleAdmin: {
		CapManageMenu:    true,
		CapManageStories: true,
		CapManageOrders:  true,
		CapAcceptOrders:  true,
		CapViewStats:     true,
	},
	models.RoleCourier: {
		CapAcceptOrders:  true,
		CapDeliverOrders: true,
	},
	models.RoleCustomer: {},
}

func roleCan(role models.Role, cap Capability) bool {
	return capabilities[role][cap]
}
