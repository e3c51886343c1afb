package domain

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ShneWtf/cafe-delivery-bot/internal/models"
)

func (s *Service) Categories(ctx context.Context) ([]models.Category, error) {
	return s.store.Categories(ctx)
}

// Menu lists items, optionally filtered by category (0 means all) and by the
// availability flag.
func (s *Service) Menu(ctx context.Context, categoryID int64, availableOnly bool) ([]models.MenuItem, error) {
	return s.store.MenuItems(ctx, categoryID, availableOnly)
}

func (s *Service) MenuItem(ctx context.Context, id int64) (*models.MenuItem, error) {
	return s.store.MenuItem(ctx, id)
}

func (s *Service) CreateMenuItem(ctx context.Context, actorID int64, item *models.MenuItem) error {
	if err := s.authorize(ctx, actorID, CapManageMenu); err != nil {
		return err
	}
	if err := validateMenuItem(item); err != nil {
		return err
	}
	if err := s.store.CreateMenuItem(ctx, item); err != nil {
		return fmt.Errorf("failed to create menu item: %w", err)
	}
	s.logger.Info("Menu item created", "id", item.ID, "name", item.Name, "by", actorID)
	return nil
}

// UpdateMenuItem replaces the stored record field by field; the id never
// changes.
func (s *Service) UpdateMenuItem(ctx context.Context, actorID int64, item *models.MenuItem) error {
	if err := s.authorize(ctx, actorID, CapManageMenu); err != nil {
		return err
	}
	if err := validateMenuItem(item); err != nil {
		return err
	}
	if _, err := s.store.MenuItem(ctx, item.ID); err != nil {
		return err
	}
	return s.store.UpdateMenuItem(ctx, item)
}

func (s *Service) DeleteMenuItem(ctx context.Context, actorID int64, id int64) error {
	if err := s.authorize(ctx, actorID, CapManageMenu); err != nil {
		return err
	}
	return s.store.DeleteMenuItem(ctx, id)
}

func validateMenuItem(item *models.MenuItem) error {
	if item.Name == "" {
		return Validation("menu item name must not be empty")
	}
	if item.Price < 0 {
		return Validation("menu item price must not be negative")
	}
	return nil
}

// MenuExport is the JSON document the admin panel edits offline.
type MenuExport struct {
	Categories []models.Category `json:"categories"`
	Items      []models.MenuItem `json:"items"`
}

// ExportMenu dumps the whole menu, including unavailable items.
func (s *Service) ExportMenu(ctx context.Context, actorID int64) (string, error) {
	if err := s.authorize(ctx, actorID, CapManageMenu); err != nil {
		return "", err
	}
	categories, err := s.store.Categories(ctx)
	if err != nil {
		return "", err
	}
	items, err := s.store.MenuItems(ctx, 0, false)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(MenuExport{Categories: categories, Items: items}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal menu: %w", err)
	}
	return string(data), nil
}

// ImportMenu upserts categories and items from an exported document.
func (s *Service) ImportMenu(ctx context.Context, actorID int64, raw string) error {
	if err := s.authorize(ctx, actorID, CapManageMenu); err != nil {
		return err
	}
	var doc MenuExport
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return Validation("malformed menu document: %v", err)
	}
	for i := range doc.Categories {
		if err := s.store.UpsertCategory(ctx, &doc.Categories[i]); err != nil {
			return fmt.Errorf("failed to import category %q: %w", doc.Categories[i].Name, err)
		}
	}
	for i := range doc.Items {
		item := &doc.Items[i]
		if err := validateMenuItem(item); err != nil {
			return err
		}
		var err error
		if item.ID == 0 {
			err = s.store.CreateMenuItem(ctx, item)
		} else {
			err = s.store.UpdateMenuItem(ctx, item)
		}
		if err != nil {
			return fmt.Errorf("failed to import item %q: %w", item.Name, err)
		}
	}
	s.logger.Info("Menu imported", "categories", len(doc.Categories), "items", len(doc.Items), "by", actorID)
	return nil
}
