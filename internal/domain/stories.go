package domain

import (
	"context"

	"github.com/ShneWtf/cafe-delivery-bot/internal/models"
)

// Stories lists active stories in their sort order.
func (s *Service) Stories(ctx context.Context) ([]models.Story, error) {
	return s.store.ActiveStories(ctx)
}

func (s *Service) CreateStory(ctx context.Context, actorID int64, story *models.Story) error {
	if err := s.authorize(ctx, actorID, CapManageStories); err != nil {
		return err
	}
	if err := validateStory(story); err != nil {
		return err
	}
	return s.store.CreateStory(ctx, story)
}

func (s *Service) UpdateStory(ctx context.Context, actorID int64, story *models.Story) error {
	if err := s.authorize(ctx, actorID, CapManageStories); err != nil {
		return err
	}
	if err := validateStory(story); err != nil {
		return err
	}
	return s.store.UpdateStory(ctx, story)
}

func (s *Service) DeleteStory(ctx context.Context, actorID int64, id int64) error {
	if err := s.authorize(ctx, actorID, CapManageStories); err != nil {
		return err
	}
	return s.store.DeleteStory(ctx, id)
}

func validateStory(story *models.Story) error {
	if story.Title == "" {
		return Validation("story title must not be empty")
	}
	switch story.Type {
	case models.StoryPromo, models.StoryNew, models.StoryChannel:
		return nil
	case "":
		story.Type = models.StoryPromo
		return nil
	}
	return Validation("unknown story type %q", story.Type)
}
