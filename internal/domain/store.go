package domain

import (
	"context"

	"github.com/ShneWtf/cafe-delivery-bot/internal/models"
)

// Store is the persistence contract the domain operations run on. The
// postgres implementation lives in internal/db; tests use the in-memory one.
//
// Implementations return domain errors (NotFound and friends) so callers can
// pass them straight through to the surfaces.
type Store interface {
	// Users
	GetUser(ctx context.Context, telegramID int64) (*models.User, error)
	UpsertUser(ctx context.Context, user *models.User) error
	UpdateUserRole(ctx context.Context, telegramID int64, role models.Role) error
	UpdateUserAddress(ctx context.Context, telegramID int64, address string) error
	UpdateUserPhone(ctx context.Context, telegramID int64, phone string) error
	UsersByRole(ctx context.Context, role models.Role) ([]models.User, error)
	// SpendBonus atomically deducts amount from the user's bonus balance.
	// It fails with a validation error when the balance is insufficient.
	SpendBonus(ctx context.Context, telegramID int64, amount int64) error
	RefundBonus(ctx context.Context, telegramID int64, amount int64) error

	// Menu
	Categories(ctx context.Context) ([]models.Category, error)
	UpsertCategory(ctx context.Context, cat *models.Category) error
	MenuItems(ctx context.Context, categoryID int64, availableOnly bool) ([]models.MenuItem, error)
	MenuItem(ctx context.Context, id int64) (*models.MenuItem, error)
	CreateMenuItem(ctx context.Context, item *models.MenuItem) error
	UpdateMenuItem(ctx context.Context, item *models.MenuItem) error
	DeleteMenuItem(ctx context.Context, id int64) error

	// Orders
	CreateOrder(ctx context.Context, order *models.Order) error
	Order(ctx context.Context, id int64) (*models.Order, error)
	OrdersForUser(ctx context.Context, userID int64, limit int) ([]models.Order, error)
	ActiveOrders(ctx context.Context) ([]models.Order, error)
	OrdersForCourier(ctx context.Context, courierID int64) ([]models.Order, error)
	// TransitionOrder moves an order from one status to another with a
	// conditional update, so two concurrent transitions cannot both succeed
	// on the same stale state. A non-nil courierID assigns the courier in
	// the same write.
	TransitionOrder(ctx context.Context, id int64, from, to models.OrderStatus, courierID *int64) error
	// CreditDeliveryCashback credits the order owner's cashback balance
	// exactly once per order. It reports whether the credit was applied.
	CreditDeliveryCashback(ctx context.Context, orderID int64, amount int64) (bool, error)

	// Stories
	ActiveStories(ctx context.Context) ([]models.Story, error)
	CreateStory(ctx context.Context, story *models.Story) error
	UpdateStory(ctx context.Context, story *models.Story) error
	DeleteStory(ctx context.Context, id int64) error

	// Stats
	Stats(ctx context.Context) (*models.Stats, error)
}
