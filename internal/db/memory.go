package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ShneWtf/cafe-delivery-bot/internal/domain"
	"github.com/ShneWtf/cafe-delivery-bot/internal/models"
)

// MemoryDB is an in-memory Store with the same semantics as PostgresDB,
// including the conditional status update and the one-shot cashback credit.
// It backs the domain and handler tests.
type MemoryDB struct {
	mu         sync.Mutex
	users      map[int64]*models.User
	categories map[int64]*models.Category
	menu       map[int64]*models.MenuItem
	orders     map[int64]*models.Order
	stories    map[int64]*models.Story
	nextID     int64
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		users:      make(map[int64]*models.User),
		categories: make(map[int64]*models.Category),
		menu:       make(map[int64]*models.MenuItem),
		orders:     make(map[int64]*models.Order),
		stories:    make(map[int64]*models.Story),
	}
}

func (m *MemoryDB) id() int64 {
	m.nextID++
	return m.nextID
}

// ============ USERS ============

func (m *MemoryDB) GetUser(_ context.Context, telegramID int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[telegramID]
	if !ok {
		return nil, domain.NotFound("user %d not found", telegramID)
	}
	copied := *user
	return &copied, nil
}

func (m *MemoryDB) UpsertUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.Role == "" {
		user.Role = models.RoleCustomer
	}
	if existing, ok := m.users[user.TelegramID]; ok {
		existing.Username = user.Username
		existing.FirstName = user.FirstName
		existing.LastName = user.LastName
		existing.UpdatedAt = time.Now()
		*user = *existing
		return nil
	}
	copied := *user
	copied.CreatedAt = time.Now()
	copied.UpdatedAt = copied.CreatedAt
	m.users[user.TelegramID] = &copied
	*user = copied
	return nil
}

func (m *MemoryDB) UpdateUserRole(_ context.Context, telegramID int64, role models.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[telegramID]
	if !ok {
		return domain.NotFound("user %d not found", telegramID)
	}
	user.Role = role
	user.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryDB) UpdateUserAddress(_ context.Context, telegramID int64, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[telegramID]
	if !ok {
		return domain.NotFound("user %d not found", telegramID)
	}
	user.Address = address
	return nil
}

func (m *MemoryDB) UpdateUserPhone(_ context.Context, telegramID int64, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[telegramID]
	if !ok {
		return domain.NotFound("user %d not found", telegramID)
	}
	user.Phone = phone
	return nil
}

func (m *MemoryDB) UsersByRole(_ context.Context, role models.Role) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var users []models.User
	for _, user := range m.users {
		if user.Role == role {
			users = append(users, *user)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].TelegramID < users[j].TelegramID })
	return users, nil
}

func (m *MemoryDB) SpendBonus(_ context.Context, telegramID int64, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[telegramID]
	if !ok {
		return domain.NotFound("user %d not found", telegramID)
	}
	if user.BonusBalance < amount {
		return domain.Validation("insufficient bonus balance")
	}
	user.BonusBalance -= amount
	return nil
}

func (m *MemoryDB) RefundBonus(_ context.Context, telegramID int64, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[telegramID]
	if !ok {
		return domain.NotFound("user %d not found", telegramID)
	}
	user.BonusBalance += amount
	return nil
}

// ============ MENU ============

func (m *MemoryDB) Categories(_ context.Context) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var categories []models.Category
	for _, cat := range m.categories {
		if cat.Active {
			categories = append(categories, *cat)
		}
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].SortOrder < categories[j].SortOrder })
	return categories, nil
}

func (m *MemoryDB) UpsertCategory(_ context.Context, cat *models.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.categories {
		if existing.Name == cat.Name {
			existing.Emoji = cat.Emoji
			existing.SortOrder = cat.SortOrder
			existing.Active = cat.Active
			cat.ID = existing.ID
			return nil
		}
	}
	cat.ID = m.id()
	copied := *cat
	m.categories[cat.ID] = &copied
	return nil
}

func (m *MemoryDB) MenuItems(_ context.Context, categoryID int64, availableOnly bool) ([]models.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []models.MenuItem
	for _, item := range m.menu {
		if categoryID != 0 && item.CategoryID != categoryID {
			continue
		}
		if availableOnly && !item.Available {
			continue
		}
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].SortOrder != items[j].SortOrder {
			return items[i].SortOrder < items[j].SortOrder
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (m *MemoryDB) MenuItem(_ context.Context, id int64) (*models.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.menu[id]
	if !ok {
		return nil, domain.NotFound("menu item %d not found", id)
	}
	copied := *item
	return &copied, nil
}

func (m *MemoryDB) CreateMenuItem(_ context.Context, item *models.MenuItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item.ID = m.id()
	item.CreatedAt = time.Now()
	copied := *item
	m.menu[item.ID] = &copied
	return nil
}

func (m *MemoryDB) UpdateMenuItem(_ context.Context, item *models.MenuItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.menu[item.ID]; !ok {
		return domain.NotFound("menu item %d not found", item.ID)
	}
	copied := *item
	m.menu[item.ID] = &copied
	return nil
}

func (m *MemoryDB) DeleteMenuItem(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.menu[id]; !ok {
		return domain.NotFound("menu item %d not found", id)
	}
	delete(m.menu, id)
	return nil
}

// MenuSize reports the number of stored menu items, for test assertions.
func (m *MemoryDB) MenuSize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.menu)
}

// ============ ORDERS ============

func (m *MemoryDB) CreateOrder(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order.ID = m.id()
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	copied := *order
	copied.Items = append([]models.OrderItem(nil), order.Items...)
	m.orders[order.ID] = &copied
	return nil
}

func (m *MemoryDB) Order(_ context.Context, id int64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, domain.NotFound("order %d not found", id)
	}
	copied := *order
	copied.Items = append([]models.OrderItem(nil), order.Items...)
	return &copied, nil
}

func (m *MemoryDB) OrdersForUser(_ context.Context, userID int64, limit int) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var orders []models.Order
	for _, order := range m.orders {
		if order.UserID == userID {
			orders = append(orders, *order)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID > orders[j].ID })
	if len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (m *MemoryDB) ActiveOrders(_ context.Context) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var orders []models.Order
	for _, order := range m.orders {
		if order.Status != models.StatusDelivered && order.Status != models.StatusCancelled {
			orders = append(orders, *order)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders, nil
}

func (m *MemoryDB) OrdersForCourier(_ context.Context, courierID int64) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var orders []models.Order
	for _, order := range m.orders {
		if order.CourierID == nil || *order.CourierID != courierID {
			continue
		}
		if order.Status == models.StatusAccepted || order.Status == models.StatusInDelivery {
			orders = append(orders, *order)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders, nil
}

func (m *MemoryDB) TransitionOrder(_ context.Context, id int64, from, to models.OrderStatus, courierID *int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return domain.NotFound("order %d not found", id)
	}
	if order.Status != from {
		return domain.InvalidTransition("order %d is %s, expected %s", id, order.Status, from)
	}
	order.Status = to
	if courierID != nil {
		c := *courierID
		order.CourierID = &c
	}
	order.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryDB) CreditDeliveryCashback(_ context.Context, orderID int64, amount int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return false, domain.NotFound("order %d not found", orderID)
	}
	if order.Status != models.StatusDelivered || order.CashbackCredited {
		return false, nil
	}
	user, ok := m.users[order.UserID]
	if !ok {
		return false, domain.NotFound("user %d not found", order.UserID)
	}
	order.CashbackCredited = true
	user.CashbackBalance += amount
	return true, nil
}

// ============ STORIES ============

func (m *MemoryDB) ActiveStories(_ context.Context) ([]models.Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stories []models.Story
	for _, story := range m.stories {
		if story.Active {
			stories = append(stories, *story)
		}
	}
	sort.Slice(stories, func(i, j int) bool {
		if stories[i].SortOrder != stories[j].SortOrder {
			return stories[i].SortOrder < stories[j].SortOrder
		}
		return stories[i].ID < stories[j].ID
	})
	return stories, nil
}

func (m *MemoryDB) CreateStory(_ context.Context, story *models.Story) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	story.ID = m.id()
	story.CreatedAt = time.Now()
	copied := *story
	m.stories[story.ID] = &copied
	return nil
}

func (m *MemoryDB) UpdateStory(_ context.Context, story *models.Story) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stories[story.ID]; !ok {
		return domain.NotFound("story %d not found", story.ID)
	}
	copied := *story
	m.stories[story.ID] = &copied
	return nil
}

func (m *MemoryDB) DeleteStory(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stories[id]; !ok {
		return domain.NotFound("story %d not found", id)
	}
	delete(m.stories, id)
	return nil
}

// ============ STATS ============

func (m *MemoryDB) Stats(_ context.Context) (*models.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &models.Stats{TotalUsers: int64(len(m.users))}
	today := time.Now().Truncate(24 * time.Hour)
	for _, order := range m.orders {
		stats.TotalOrders++
		if !order.CreatedAt.Before(today) {
			stats.TodayOrders++
		}
		switch order.Status {
		case models.StatusDelivered:
			stats.DeliveredRevenue += order.TotalPrice
		case models.StatusCancelled:
		default:
			stats.ActiveOrders++
		}
	}
	return stats, nil
}
