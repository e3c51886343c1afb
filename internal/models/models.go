package models

import (
	"time"
)

// Role gates which domain operations an identity may invoke.
type Role string

const (
	RoleDirector Role = "director"
	RoleAdmin    Role = "admin"
	RoleCourier  Role = "courier"
	RoleCustomer Role = "customer"
)

// ParseRole validates a raw role value against the fixed set.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleDirector, RoleAdmin, RoleCourier, RoleCustomer:
		return Role(s), true
	}
	return "", false
}

// OrderStatus is the forward-progressing lifecycle state of an order.
type OrderStatus string

const (
	StatusCreated    OrderStatus = "created"
	StatusAccepted   OrderStatus = "accepted"
	StatusInDelivery OrderStatus = "in_delivery"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

type StoryType string

const (
	StoryPromo   StoryType = "promo"
	StoryNew     StoryType = "new"
	StoryChannel StoryType = "channel"
)

type User struct {
	TelegramID      int64     `json:"telegram_id"`
	Username        string    `json:"username"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Phone           string    `json:"phone"`
	Address         string    `json:"address"`
	Role            Role      `json:"role"`
	BonusBalance    int64     `json:"balance_bonus"`
	CashbackBalance int64     `json:"balance_cashback"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Category struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Emoji     string `json:"emoji"`
	SortOrder int    `json:"sort_order"`
	Active    bool   `json:"is_active"`
}

type MenuItem struct {
	ID          int64     `json:"id"`
	CategoryID  int64     `json:"category_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       int64     `json:"price"`
	ImageURL    string    `json:"image_url"`
	Available   bool      `json:"is_available"`
	IsNew       bool      `json:"is_new"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
}

// OrderItem is a line of an order. Name and Price are snapshotted from the
// menu at order creation time and never recomputed.
type OrderItem struct {
	ItemID   int64  `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

type Order struct {
	ID               int64       `json:"id"`
	UserID           int64       `json:"user_id"`
	Items            []OrderItem `json:"items"`
	TotalPrice       int64       `json:"total_price"`
	BonusUsed        int64       `json:"bonus_used"`
	DeliveryAddress  string      `json:"delivery_address"`
	Status           OrderStatus `json:"status"`
	CourierID        *int64      `json:"courier_id,omitempty"`
	PaymentMethod    string      `json:"payment_method"`
	CashbackCredited bool        `json:"-"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

type Story struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	Link        string    `json:"link"`
	Type        StoryType `json:"story_type"`
	Active      bool      `json:"is_active"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
}

// Stats is the admin panel summary.
type Stats struct {
	TotalUsers       int64 `json:"total_users"`
	TotalOrders      int64 `json:"total_orders"`
	TodayOrders      int64 `json:"today_orders"`
	ActiveOrders     int64 `json:"active_orders"`
	DeliveredRevenue int64 `json:"delivered_revenue"`
}
