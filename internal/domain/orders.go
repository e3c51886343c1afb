package domain

import (
	"context"
	"fmt"

	"github.com/ShneWtf/cafe-delivery-bot/internal/models"
)

// OrderLine is one requested position of a new order.
type OrderLine struct {
	ItemID   int64 `json:"id"`
	Quantity int   `json:"quantity"`
}

// OrderDraft is everything a customer supplies to place an order.
type OrderDraft struct {
	UserID        int64       `json:"user_id"`
	Items         []OrderLine `json:"items"`
	Address       string      `json:"address"`
	UseBonus      int64       `json:"use_bonus"`
	PaymentMethod string      `json:"payment_method"`
}

// CreateOrder places a new order. Item names and prices are snapshotted from
// the current menu, so later menu edits never change the order total. Bonus
// spend is capped by the configured rules and deducted atomically before the
// order row is written.
func (s *Service) CreateOrder(ctx context.Context, draft OrderDraft) (*models.Order, error) {
	if len(draft.Items) == 0 {
		return nil, Validation("order must contain at least one item")
	}
	if draft.Address == "" {
		return nil, Validation("delivery address must not be empty")
	}
	if draft.UseBonus < 0 {
		return nil, Validation("bonus amount must not be negative")
	}

	user, err := s.store.GetUser(ctx, draft.UserID)
	if IsNotFound(err) {
		// A first order through the mini-app registers the customer the
		// same way /start does, welcome bonus included.
		user, _, err = s.GetOrCreateUser(ctx, draft.UserID, "", "", "")
	}
	if err != nil {
		return nil, err
	}

	var items []models.OrderItem
	var total int64
	for _, line := range draft.Items {
		if line.Quantity <= 0 {
			return nil, Validation("item %d has non-positive quantity", line.ItemID)
		}
		menuItem, err := s.store.MenuItem(ctx, line.ItemID)
		if err != nil {
			return nil, err
		}
		if !menuItem.Available {
			return nil, Validation("item %q is not available", menuItem.Name)
		}
		items = append(items, models.OrderItem{
			ItemID:   menuItem.ID,
			Name:     menuItem.Name,
			Price:    menuItem.Price,
			Quantity: line.Quantity,
		})
		total += menuItem.Price * int64(line.Quantity)
	}

	var bonusUsed int64
	if draft.UseBonus > 0 {
		if total < s.cfg.Loyalty.MinOrderForBonus {
			return nil, Validation("bonus spend requires an order of at least %d", s.cfg.Loyalty.MinOrderForBonus)
		}
		bonusUsed = draft.UseBonus
		if maxSpend := total * s.cfg.Loyalty.MaxBonusSharePercent / 100; bonusUsed > maxSpend {
			bonusUsed = maxSpend
		}
		if bonusUsed > user.BonusBalance {
			bonusUsed = user.BonusBalance
		}
		if bonusUsed > 0 {
			if err := s.store.SpendBonus(ctx, user.TelegramID, bonusUsed); err != nil {
				return nil, err
			}
			total -= bonusUsed
		}
	}

	if draft.Address != user.Address {
		if err := s.store.UpdateUserAddress(ctx, user.TelegramID, draft.Address); err != nil {
			s.logger.Error("Failed to update delivery address", "user", user.TelegramID, "error", err)
		}
	}

	paymentMethod := draft.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "card"
	}

	order := &models.Order{
		UserID:          user.TelegramID,
		Items:           items,
		TotalPrice:      total,
		BonusUsed:       bonusUsed,
		DeliveryAddress: draft.Address,
		Status:          models.StatusCreated,
		PaymentMethod:   paymentMethod,
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		// The bonus spend already happened; give it back.
		if bonusUsed > 0 {
			if refundErr := s.store.RefundBonus(ctx, user.TelegramID, bonusUsed); refundErr != nil {
				s.logger.Error("Failed to refund bonus after create failure", "user", user.TelegramID, "error", refundErr)
			}
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	s.logger.Info("Order created", "order_id", order.ID, "user", user.TelegramID, "total", total)
	return order, nil
}

func (s *Service) Order(ctx context.Context, id int64) (*models.Order, error) {
	return s.store.Order(ctx, id)
}

func (s *Service) UserOrders(ctx context.Context, userID int64, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.store.OrdersForUser(ctx, userID, limit)
}

// ActiveOrders lists orders not yet delivered or cancelled, for staff.
func (s *Service) ActiveOrders(ctx context.Context, actorID int64) ([]models.Order, error) {
	if err := s.authorize(ctx, actorID, CapManageOrders); err != nil {
		return nil, err
	}
	return s.store.ActiveOrders(ctx)
}

func (s *Service) CourierOrders(ctx context.Context, actorID int64) ([]models.Order, error) {
	if err := s.authorize(ctx, actorID, CapDeliverOrders); err != nil {
		return nil, err
	}
	return s.store.OrdersForCourier(ctx, actorID)
}

// AcceptOrder moves a created order to accepted. Admins and couriers may do
// this; a non-zero courierID assigns the courier in the same write.
func (s *Service) AcceptOrder(ctx context.Context, actorID, orderID, courierID int64) (*models.Order, error) {
	if err := s.authorize(ctx, actorID, CapAcceptOrders); err != nil {
		return nil, err
	}
	var assign *int64
	if courierID != 0 {
		courier, err := s.store.GetUser(ctx, courierID)
		if err != nil {
			return nil, err
		}
		if !roleCan(courier.Role, CapDeliverOrders) && courierID != s.cfg.Telegram.DirectorID {
			return nil, Validation("user %d is not a courier", courierID)
		}
		assign = &courierID
	}
	return s.transition(ctx, orderID, models.StatusCreated, models.StatusAccepted, assign)
}

// AssignCourier sets the courier on an already accepted order.
func (s *Service) AssignCourier(ctx context.Context, actorID, orderID, courierID int64) (*models.Order, error) {
	if err := s.authorize(ctx, actorID, CapManageOrders); err != nil {
		return nil, err
	}
	order, err := s.store.Order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	switch order.Status {
	case models.StatusCreated:
		return s.transition(ctx, orderID, models.StatusCreated, models.StatusAccepted, &courierID)
	case models.StatusAccepted:
		if err := s.store.TransitionOrder(ctx, orderID, models.StatusAccepted, models.StatusAccepted, &courierID); err != nil {
			return nil, err
		}
		return s.store.Order(ctx, orderID)
	default:
		return nil, InvalidTransition("cannot assign courier to a %s order", order.Status)
	}
}

// StartDelivery moves an accepted order to in_delivery. Only the assigned
// courier (or an order manager) may do this.
func (s *Service) StartDelivery(ctx context.Context, actorID, orderID int64) (*models.Order, error) {
	if err := s.authorizeCourierAction(ctx, actorID, orderID); err != nil {
		return nil, err
	}
	return s.transition(ctx, orderID, models.StatusAccepted, models.StatusInDelivery, nil)
}

// CompleteDelivery moves an in_delivery order to delivered and credits the
// owner's cashback. The credit is guarded by a per-order flag, so replaying
// the completion never double-credits.
func (s *Service) CompleteDelivery(ctx context.Context, actorID, orderID int64) (*models.Order, int64, error) {
	if err := s.authorizeCourierAction(ctx, actorID, orderID); err != nil {
		return nil, 0, err
	}
	order, err := s.transition(ctx, orderID, models.StatusInDelivery, models.StatusDelivered, nil)
	if err != nil {
		return nil, 0, err
	}
	cashback, err := s.creditCashback(ctx, order)
	if err != nil {
		return order, 0, err
	}
	s.logger.Info("Order delivered", "order_id", orderID, "cashback", cashback)
	return order, cashback, nil
}

// creditCashback credits the owner's cashback for a delivered order. On store
// failure the per-order flag stays unset, so replaying "delivered" through
// SetOrderStatus retries the credit without risking a double pay-out.
func (s *Service) creditCashback(ctx context.Context, order *models.Order) (int64, error) {
	cashback := order.TotalPrice * s.cfg.Loyalty.CashbackPercent / 100
	if cashback <= 0 {
		return 0, nil
	}
	credited, err := s.store.CreditDeliveryCashback(ctx, order.ID, cashback)
	if err != nil {
		s.logger.Error("Failed to credit cashback", "order_id", order.ID, "error", err)
		return 0, fmt.Errorf("order %d delivered but cashback credit failed: %w", order.ID, err)
	}
	if !credited {
		return 0, nil
	}
	return cashback, nil
}

// CancelOrder cancels an order. Staff with order management rights may cancel
// while the order is still cancellable; the owner may cancel their own order
// only while it is still in the created state. Spent bonus is refunded.
func (s *Service) CancelOrder(ctx context.Context, actorID, orderID int64) (*models.Order, error) {
	order, err := s.store.Order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !s.Can(ctx, actorID, CapManageOrders) {
		if order.UserID != actorID {
			return nil, Forbidden("user %d cannot cancel order %d", actorID, orderID)
		}
		if order.Status != models.StatusCreated {
			return nil, InvalidTransition("order %d can no longer be cancelled by its owner", orderID)
		}
	}
	order, err = s.transition(ctx, orderID, order.Status, models.StatusCancelled, nil)
	if err != nil {
		return nil, err
	}
	if order.BonusUsed > 0 {
		if err := s.store.RefundBonus(ctx, order.UserID, order.BonusUsed); err != nil {
			s.logger.Error("Failed to refund bonus on cancel", "order_id", orderID, "error", err)
		}
	}
	return order, nil
}

// SetOrderStatus applies an arbitrary forward transition, for the admin
// panel. The transition table still applies.
func (s *Service) SetOrderStatus(ctx context.Context, actorID, orderID int64, to models.OrderStatus) (*models.Order, error) {
	if err := s.authorize(ctx, actorID, CapManageOrders); err != nil {
		return nil, err
	}
	order, err := s.store.Order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if to == models.StatusDelivered && order.Status == models.StatusInDelivery {
		order, _, err = s.CompleteDelivery(ctx, actorID, orderID)
		return order, err
	}
	if to == models.StatusDelivered && order.Status == models.StatusDelivered {
		// Replaying "delivered" retries a cashback credit that failed the
		// first time around; the per-order flag keeps it one-shot.
		_, err := s.creditCashback(ctx, order)
		return order, err
	}
	if to == models.StatusCancelled {
		return s.CancelOrder(ctx, actorID, orderID)
	}
	return s.transition(ctx, orderID, order.Status, to, nil)
}

// transition validates against the lifecycle table, then lets the store apply
// the change with a conditional write keyed on the expected current status.
func (s *Service) transition(ctx context.Context, orderID int64, from, to models.OrderStatus, courierID *int64) (*models.Order, error) {
	if err := CanTransition(from, to); err != nil {
		return nil, err
	}
	if err := s.store.TransitionOrder(ctx, orderID, from, to, courierID); err != nil {
		return nil, err
	}
	return s.store.Order(ctx, orderID)
}

// authorizeCourierAction permits order managers outright; everyone else needs
// delivery rights and must be the assigned courier.
func (s *Service) authorizeCourierAction(ctx context.Context, actorID, orderID int64) error {
	if s.Can(ctx, actorID, CapManageOrders) {
		return nil
	}
	if err := s.authorize(ctx, actorID, CapDeliverOrders); err != nil {
		return err
	}
	order, err := s.store.Order(ctx, orderID)
	if err != nil {
		return err
	}
	if order.CourierID == nil || *order.CourierID != actorID {
		return Forbidden("order %d is not assigned to courier %d", orderID, actorID)
	}
	return nil
}
