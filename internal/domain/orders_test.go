package domain_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShneWtf/cafe-delivery-bot/config"
	"github.com/ShneWtf/cafe-delivery-bot/internal/db"
	"github.com/ShneWtf/cafe-delivery-bot/internal/domain"
	"github.com/ShneWtf/cafe-delivery-bot/internal/models"
	"github.com/ShneWtf/cafe-delivery-bot/pkg/logger"
)

func placeOrder(t *testing.T, svc *domain.Service, itemID int64, quantity int, useBonus int64) *models.Order {
	t.Helper()
	order, err := svc.CreateOrder(context.Background(), domain.OrderDraft{
		UserID:   customerID,
		Items:    []domain.OrderLine{{ItemID: itemID, Quantity: quantity}},
		Address:  "ул. Ленина, 1",
		UseBonus: useBonus,
	})
	require.NoError(t, err)
	return order
}

func TestCreateOrderValidation(t *testing.T) {
	svc, store := newTestService(t)
	pizza, _ := seedMenu(t, store)
	ctx := context.Background()

	tests := []struct {
		name  string
		draft domain.OrderDraft
	}{
		{"empty items", domain.OrderDraft{UserID: customerID, Address: "адрес"}},
		{"empty address", domain.OrderDraft{UserID: customerID, Items: []domain.OrderLine{{ItemID: pizza, Quantity: 1}}}},
		{"negative bonus", domain.OrderDraft{UserID: customerID, Items: []domain.OrderLine{{ItemID: pizza, Quantity: 1}}, Address: "адрес", UseBonus: -1}},
		{"zero quantity", domain.OrderDraft{UserID: customerID, Items: []domain.OrderLine{{ItemID: pizza, Quantity: 0}}, Address: "адрес"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateOrder(ctx, tt.draft)
			assert.Equal(t, domain.KindValidation, domain.KindOf(err))
		})
	}

	t.Run("unknown item", func(t *testing.T) {
		_, err := svc.CreateOrder(ctx, domain.OrderDraft{
			UserID:  customerID,
			Items:   []domain.OrderLine{{ItemID: 9999, Quantity: 1}},
			Address: "адрес",
		})
		assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	})

	t.Run("unavailable item", func(t *testing.T) {
		item := &models.MenuItem{Name: "Стоп-лист", Price: 100, Available: false}
		require.NoError(t, store.CreateMenuItem(ctx, item))
		_, err := svc.CreateOrder(ctx, domain.OrderDraft{
			UserID:  customerID,
			Items:   []domain.OrderLine{{ItemID: item.ID, Quantity: 1}},
			Address: "адрес",
		})
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	})
}

func TestOrderPriceSnapshot(t *testing.T) {
	svc, store := newTestService(t)
	pizza, _ := seedMenu(t, store)
	ctx := context.Background()

	order := placeOrder(t, svc, pizza, 2, 0)
	assert.Equal(t, int64(1200), order.TotalPrice)

	// Reprice the pizza; the placed order must not move.
	item, err := store.MenuItem(ctx, pizza)
	require.NoError(t, err)
	item.Price = 900
	require.NoError(t, store.UpdateMenuItem(ctx, item))

	reloaded, err := svc.Order(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), reloaded.TotalPrice)
	assert.Equal(t, int64(600), reloaded.Items[0].Price)
}

func TestOrderBonusSpend(t *testing.T) {
	ctx := context.Background()

	t.Run("below minimum order total", func(t *testing.T) {
		svc, store := newTestService(t)
		_, salad := seedMenu(t, store)
		_, err := svc.CreateOrder(ctx, domain.OrderDraft{
			UserID:   customerID,
			Items:    []domain.OrderLine{{ItemID: salad, Quantity: 1}}, // 250
			Address:  "адрес",
			UseBonus: 100,
		})
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	})

	t.Run("capped at half the total", func(t *testing.T) {
		svc, store := newTestService(t)
		pizza, _ := seedMenu(t, store)
		require.NoError(t, store.RefundBonus(ctx, customerID, 1000))

		order := placeOrder(t, svc, pizza, 1, 1000) // total 600, cap 300
		assert.Equal(t, int64(300), order.BonusUsed)
		assert.Equal(t, int64(300), order.TotalPrice)

		user, err := svc.User(ctx, customerID)
		require.NoError(t, err)
		assert.Equal(t, int64(700), user.BonusBalance)
	})

	t.Run("capped at the balance", func(t *testing.T) {
		svc, store := newTestService(t)
		pizza, _ := seedMenu(t, store)
		require.NoError(t, store.RefundBonus(ctx, customerID, 150))

		order := placeOrder(t, svc, pizza, 1, 500)
		assert.Equal(t, int64(150), order.BonusUsed)
		assert.Equal(t, int64(450), order.TotalPrice)
	})
}

func TestOrderLifecycle(t *testing.T) {
	svc, store := newTestService(t)
	pizza, _ := seedMenu(t, store)
	ctx := context.Background()

	order := placeOrder(t, svc, pizza, 1, 0)
	assert.Equal(t, models.StatusCreated, order.Status)

	// Admin accepts and assigns the courier in one step.
	order, err := svc.AcceptOrder(ctx, adminID, order.ID, courierID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, order.Status)
	require.NotNil(t, order.CourierID)
	assert.Equal(t, courierID, *order.CourierID)

	// The assigned courier takes it out.
	order, err = svc.StartDelivery(ctx, courierID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInDelivery, order.Status)

	order, cashback, err := svc.CompleteDelivery(ctx, courierID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, order.Status)
	assert.Equal(t, int64(30), cashback) // 5% of 600

	user, err := svc.User(ctx, customerID)
	require.NoError(t, err)
	assert.Equal(t, int64(30), user.CashbackBalance)
}

func TestCompleteDeliveryIsIdempotent(t *testing.T) {
	svc, store := newTestService(t)
	pizza, _ := seedMenu(t, store)
	ctx := context.Background()

	order := placeOrder(t, svc, pizza, 1, 0)
	_, err := svc.AcceptOrder(ctx, adminID, order.ID, courierID)
	require.NoError(t, err)
	_, err = svc.StartDelivery(ctx, courierID, order.ID)
	require.NoError(t, err)
	_, _, err = svc.CompleteDelivery(ctx, courierID, order.ID)
	require.NoError(t, err)

	// Replaying the completion fails the conditional write and must not
	// credit cashback again.
	_, _, err = svc.CompleteDelivery(ctx, courierID, order.ID)
	assert.Equal(t, domain.KindInvalidTransition, domain.KindOf(err))

	user, err := svc.User(ctx, customerID)
	require.NoError(t, err)
	assert.Equal(t, int64(30), user.CashbackBalance)
}

func TestCourierAssignment(t *testing.T) {
	svc, store := newTestService(t)
	pizza, _ := seedMenu(t, store)
	ctx := context.Background()

	t.Run("another courier cannot touch the order", func(t *testing.T) {
		require.NoError(t, store.UpsertUser(ctx, &models.User{TelegramID: 3001, Role: models.RoleCourier}))
		order := placeOrder(t, svc, pizza, 1, 0)
		_, err := svc.AcceptOrder(ctx, adminID, order.ID, courierID)
		require.NoError(t, err)

		_, err = svc.StartDelivery(ctx, 3001, order.ID)
		assert.Equal(t, domain.KindForbidden, domain.KindOf(err))
	})

	t.Run("customer cannot be assigned as courier", func(t *testing.T) {
		order := placeOrder(t, svc, pizza, 1, 0)
		_, err := svc.AcceptOrder(ctx, adminID, order.ID, customerID)
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	})

	t.Run("reassignment on an accepted order", func(t *testing.T) {
		order := placeOrder(t, svc, pizza, 1, 0)
		_, err := svc.AcceptOrder(ctx, adminID, order.ID, courierID)
		require.NoError(t, err)

		order, err = svc.AssignCourier(ctx, adminID, order.ID, 3001)
		require.NoError(t, err)
		require.NotNil(t, order.CourierID)
		assert.Equal(t, int64(3001), *order.CourierID)
	})
}

func TestCancelOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("owner cancels a created order and gets the bonus back", func(t *testing.T) {
		svc, store := newTestService(t)
		pizza, _ := seedMenu(t, store)
		require.NoError(t, store.RefundBonus(ctx, customerID, 300))

		order := placeOrder(t, svc, pizza, 1, 300)
		require.Equal(t, int64(300), order.BonusUsed)

		order, err := svc.CancelOrder(ctx, customerID, order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, order.Status)

		user, err := svc.User(ctx, customerID)
		require.NoError(t, err)
		assert.Equal(t, int64(300), user.BonusBalance)
	})

	t.Run("owner cannot cancel after acceptance", func(t *testing.T) {
		svc, store := newTestService(t)
		pizza, _ := seedMenu(t, store)
		order := placeOrder(t, svc, pizza, 1, 0)
		_, err := svc.AcceptOrder(ctx, adminID, order.ID, 0)
		require.NoError(t, err)

		_, err = svc.CancelOrder(ctx, customerID, order.ID)
		assert.Equal(t, domain.KindInvalidTransition, domain.KindOf(err))
	})

	t.Run("admin cancels an accepted order", func(t *testing.T) {
		svc, store := newTestService(t)
		pizza, _ := seedMenu(t, store)
		order := placeOrder(t, svc, pizza, 1, 0)
		_, err := svc.AcceptOrder(ctx, adminID, order.ID, 0)
		require.NoError(t, err)

		order, err = svc.CancelOrder(ctx, adminID, order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, order.Status)
	})

	t.Run("nobody cancels an order in delivery", func(t *testing.T) {
		svc, store := newTestService(t)
		pizza, _ := seedMenu(t, store)
		order := placeOrder(t, svc, pizza, 1, 0)
		_, err := svc.AcceptOrder(ctx, adminID, order.ID, courierID)
		require.NoError(t, err)
		_, err = svc.StartDelivery(ctx, courierID, order.ID)
		require.NoError(t, err)

		_, err = svc.CancelOrder(ctx, adminID, order.ID)
		assert.Equal(t, domain.KindInvalidTransition, domain.KindOf(err))
	})

	t.Run("stranger cannot cancel someone else's order", func(t *testing.T) {
		svc, store := newTestService(t)
		pizza, _ := seedMenu(t, store)
		require.NoError(t, store.UpsertUser(ctx, &models.User{TelegramID: 4001, Role: models.RoleCustomer}))
		order := placeOrder(t, svc, pizza, 1, 0)

		_, err := svc.CancelOrder(ctx, 4001, order.ID)
		assert.Equal(t, domain.KindForbidden, domain.KindOf(err))
	})
}

func TestOrderListings(t *testing.T) {
	svc, store := newTestService(t)
	pizza, _ := seedMenu(t, store)
	ctx := context.Background()

	first := placeOrder(t, svc, pizza, 1, 0)
	second := placeOrder(t, svc, pizza, 2, 0)

	t.Run("user history is newest first", func(t *testing.T) {
		orders, err := svc.UserOrders(ctx, customerID, 10)
		require.NoError(t, err)
		require.Len(t, orders, 2)
		assert.Equal(t, second.ID, orders[0].ID)
		assert.Equal(t, first.ID, orders[1].ID)
	})

	t.Run("active orders are staff only", func(t *testing.T) {
		orders, err := svc.ActiveOrders(ctx, adminID)
		require.NoError(t, err)
		assert.Len(t, orders, 2)

		_, err = svc.ActiveOrders(ctx, customerID)
		assert.Equal(t, domain.KindForbidden, domain.KindOf(err))
	})

	t.Run("courier sees only assigned orders", func(t *testing.T) {
		_, err := svc.AcceptOrder(ctx, adminID, first.ID, courierID)
		require.NoError(t, err)

		orders, err := svc.CourierOrders(ctx, courierID)
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, first.ID, orders[0].ID)
	})
}

func TestSetOrderStatus(t *testing.T) {
	svc, store := newTestService(t)
	pizza, _ := seedMenu(t, store)
	ctx := context.Background()

	order := placeOrder(t, svc, pizza, 1, 0)

	t.Run("illegal jump is rejected and state is unchanged", func(t *testing.T) {
		_, err := svc.SetOrderStatus(ctx, adminID, order.ID, models.StatusDelivered)
		assert.Equal(t, domain.KindInvalidTransition, domain.KindOf(err))

		reloaded, err := svc.Order(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCreated, reloaded.Status)
	})

	t.Run("customer cannot drive the admin transition", func(t *testing.T) {
		_, err := svc.SetOrderStatus(ctx, customerID, order.ID, models.StatusAccepted)
		assert.Equal(t, domain.KindForbidden, domain.KindOf(err))
	})

	t.Run("step by step through the panel", func(t *testing.T) {
		updated, err := svc.SetOrderStatus(ctx, adminID, order.ID, models.StatusAccepted)
		require.NoError(t, err)
		assert.Equal(t, models.StatusAccepted, updated.Status)
	})
}

func TestUnknownOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Order(ctx, 404)
	assert.True(t, domain.IsNotFound(err))

	_, err = svc.AcceptOrder(ctx, adminID, 404, 0)
	assert.True(t, domain.IsNotFound(err))
}

func TestAdminDrivesDeliveryFromPanel(t *testing.T) {
	svc, store := newTestService(t)
	pizza, _ := seedMenu(t, store)
	ctx := context.Background()

	order := placeOrder(t, svc, pizza, 1, 0)

	// The whole lifecycle from the panel, no courier involved.
	order, err := svc.SetOrderStatus(ctx, adminID, order.ID, models.StatusAccepted)
	require.NoError(t, err)
	order, err = svc.SetOrderStatus(ctx, adminID, order.ID, models.StatusInDelivery)
	require.NoError(t, err)
	order, err = svc.SetOrderStatus(ctx, adminID, order.ID, models.StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, order.Status)

	user, err := svc.User(ctx, customerID)
	require.NoError(t, err)
	assert.Equal(t, int64(30), user.CashbackBalance)
}

func TestCreateOrderRegistersNewCustomer(t *testing.T) {
	svc, store := newTestService(t)
	pizza, _ := seedMenu(t, store)
	ctx := context.Background()

	// First contact through the mini-app, no prior /start.
	order, err := svc.CreateOrder(ctx, domain.OrderDraft{
		UserID:  7777,
		Items:   []domain.OrderLine{{ItemID: pizza, Quantity: 1}},
		Address: "ул. Мира, 5",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7777), order.UserID)

	user, err := svc.User(ctx, 7777)
	require.NoError(t, err)
	assert.Equal(t, models.RoleCustomer, user.Role)
	assert.Equal(t, int64(500), user.BonusBalance)
}

// flakyCreditStore fails cashback credits on demand.
type flakyCreditStore struct {
	*db.MemoryDB
	fail bool
}

func (s *flakyCreditStore) CreditDeliveryCashback(ctx context.Context, orderID int64, amount int64) (bool, error) {
	if s.fail {
		return false, errors.New("connection reset")
	}
	return s.MemoryDB.CreditDeliveryCashback(ctx, orderID, amount)
}

func TestFailedCashbackCreditSurfacesAndRetries(t *testing.T) {
	cfg := &config.Config{}
	cfg.Telegram.DirectorID = directorID
	cfg.Loyalty.CashbackPercent = 5

	store := &flakyCreditStore{MemoryDB: db.NewMemoryDB()}
	svc := domain.New(store, cfg, logger.NewNop())
	ctx := context.Background()

	require.NoError(t, store.UpsertUser(ctx, &models.User{TelegramID: adminID, Role: models.RoleAdmin}))
	require.NoError(t, store.UpsertUser(ctx, &models.User{TelegramID: courierID, Role: models.RoleCourier}))
	require.NoError(t, store.UpsertUser(ctx, &models.User{TelegramID: customerID, Role: models.RoleCustomer}))

	item := &models.MenuItem{Name: "Пицца", Price: 600, Available: true}
	require.NoError(t, store.CreateMenuItem(ctx, item))

	order := placeOrder(t, svc, item.ID, 1, 0)
	_, err := svc.AcceptOrder(ctx, adminID, order.ID, courierID)
	require.NoError(t, err)
	_, err = svc.StartDelivery(ctx, courierID, order.ID)
	require.NoError(t, err)

	store.fail = true
	order, cashback, err := svc.CompleteDelivery(ctx, courierID, order.ID)
	require.Error(t, err)
	assert.Equal(t, int64(0), cashback)
	// The delivery itself went through.
	assert.Equal(t, models.StatusDelivered, order.Status)

	user, err := svc.User(ctx, customerID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), user.CashbackBalance)

	// Once the store recovers, replaying "delivered" credits exactly once.
	store.fail = false
	_, err = svc.SetOrderStatus(ctx, adminID, order.ID, models.StatusDelivered)
	require.NoError(t, err)
	_, err = svc.SetOrderStatus(ctx, adminID, order.ID, models.StatusDelivered)
	require.NoError(t, err)

	user, err = svc.User(ctx, customerID)
	require.NoError(t, err)
	assert.Equal(t, int64(30), user.CashbackBalance)
}

func TestConditionalTransitionLosesRace(t *testing.T) {
	// Direct store-level checks of the conditional write.
	store := db.NewMemoryDB()
	ctx := context.Background()

	require.NoError(t, store.UpsertUser(ctx, &models.User{TelegramID: 1, Role: models.RoleCustomer}))
	order := &models.Order{UserID: 1, TotalPrice: 100, Status: models.StatusCreated}
	require.NoError(t, store.CreateOrder(ctx, order))

	require.NoError(t, store.TransitionOrder(ctx, order.ID, models.StatusCreated, models.StatusAccepted, nil))

	// Lost the race: the expected status no longer matches.
	err := store.TransitionOrder(ctx, order.ID, models.StatusCreated, models.StatusCancelled, nil)
	assert.Equal(t, domain.KindInvalidTransition, domain.KindOf(err))

	reloaded, err := store.Order(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, reloaded.Status)
}
