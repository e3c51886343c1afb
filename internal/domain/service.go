package domain

import (
	"context"
	"fmt"

	"github.com/ShneWtf/cafe-delivery-bot/config"
	"github.com/ShneWtf/cafe-delivery-bot/internal/models"
	"github.com/ShneWtf/cafe-delivery-bot/pkg/logger"
)

// Service implements the domain operations on top of a Store. All role
// checks happen here; the command and HTTP surfaces stay thin.
type Service struct {
	store  Store
	cfg    *config.Config
	logger *logger.Logger
}

func New(store Store, cfg *config.Config, logger *logger.Logger) *Service {
	return &Service{store: store, cfg: cfg, logger: logger}
}

// RoleOf resolves the effective role of an identity. The configured director
// identity is always the director regardless of what is stored; an unknown
// identity is a customer.
func (s *Service) RoleOf(ctx context.Context, actorID int64) models.Role {
	if actorID == s.cfg.Telegram.DirectorID {
		return models.RoleDirector
	}
	user, err := s.store.GetUser(ctx, actorID)
	if err != nil {
		return models.RoleCustomer
	}
	return user.Role
}

// Can reports whether the identity holds the capability.
func (s *Service) Can(ctx context.Context, actorID int64, cap Capability) bool {
	return roleCan(s.RoleOf(ctx, actorID), cap)
}

func (s *Service) authorize(ctx context.Context, actorID int64, cap Capability) error {
	if s.Can(ctx, actorID, cap) {
		return nil
	}
	return Forbidden("user %d lacks %s", actorID, cap)
}

// GetOrCreateUser returns the user record for the identity, creating it with
// the welcome bonus on first contact. Returning users get their profile
// fields refreshed. The second return value reports whether the user is new.
func (s *Service) GetOrCreateUser(ctx context.Context, telegramID int64, username, firstName, lastName string) (*models.User, bool, error) {
	existing, err := s.store.GetUser(ctx, telegramID)
	if err == nil {
		existing.Username = username
		existing.FirstName = firstName
		existing.LastName = lastName
		if err := s.store.UpsertUser(ctx, existing); err != nil {
			return nil, false, fmt.Errorf("failed to refresh user %d: %w", telegramID, err)
		}
		return existing, false, nil
	}
	if !IsNotFound(err) {
		return nil, false, err
	}

	user := &models.User{
		TelegramID:   telegramID,
		Username:     username,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         models.RoleCustomer,
		BonusBalance: s.cfg.Loyalty.WelcomeBonus,
	}
	if telegramID == s.cfg.Telegram.DirectorID {
		user.Role = models.RoleDirector
		user.BonusBalance = 0
	}
	if err := s.store.UpsertUser(ctx, user); err != nil {
		return nil, false, fmt.Errorf("failed to create user %d: %w", telegramID, err)
	}
	s.logger.Info("Registered new user", "telegram_id", telegramID, "role", user.Role)
	return user, true, nil
}

func (s *Service) User(ctx context.Context, telegramID int64) (*models.User, error) {
	return s.store.GetUser(ctx, telegramID)
}

func (s *Service) UpdateAddress(ctx context.Context, telegramID int64, address string) error {
	if address == "" {
		return Validation("address must not be empty")
	}
	return s.store.UpdateUserAddress(ctx, telegramID, address)
}

func (s *Service) UpdatePhone(ctx context.Context, telegramID int64, phone string) error {
	if phone == "" {
		return Validation("phone must not be empty")
	}
	return s.store.UpdateUserPhone(ctx, telegramID, phone)
}

// SetRole changes the role of a target identity. Only the director may do
// this; the director's own role can never be changed. An unknown target is
// created first so staff can be appointed before their first contact.
func (s *Service) SetRole(ctx context.Context, actorID, targetID int64, role models.Role) error {
	if err := s.authorize(ctx, actorID, CapManageRoles); err != nil {
		return err
	}
	if _, ok := models.ParseRole(string(role)); !ok {
		return Validation("unknown role %q", role)
	}
	if targetID == s.cfg.Telegram.DirectorID {
		return Forbidden("the director role cannot be changed")
	}
	_, err := s.store.GetUser(ctx, targetID)
	if IsNotFound(err) {
		err = s.store.UpsertUser(ctx, &models.User{TelegramID: targetID, Role: models.RoleCustomer})
	}
	if err != nil {
		return err
	}
	if err := s.store.UpdateUserRole(ctx, targetID, role); err != nil {
		return err
	}
	s.logger.Info("Role changed", "target", targetID, "role", role, "by", actorID)
	return nil
}

// Staff lists users holding the given role. Admins need this to assign
// couriers, so it is gated on order management rather than role management.
func (s *Service) Staff(ctx context.Context, actorID int64, role models.Role) ([]models.User, error) {
	if err := s.authorize(ctx, actorID, CapManageOrders); err != nil {
		return nil, err
	}
	return s.store.UsersByRole(ctx, role)
}

// Stats returns the admin panel summary.
func (s *Service) Stats(ctx context.Context, actorID int64) (*models.Stats, error) {
	if err := s.authorize(ctx, actorID, CapViewStats); err != nil {
		return nil, err
	}
	return s.store.Stats(ctx)
}
