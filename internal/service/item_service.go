package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shareit/internal/availability"
	"shareit/internal/database"
	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

type ItemService struct {
	repo      domain.ItemRepository
	bookings  domain.BookingRepository
	directory *Directory
	clock     domain.Clock
	logger    *zerolog.Logger
}

func NewItemService(
	repo domain.ItemRepository,
	bookings domain.BookingRepository,
	directory *Directory,
	clock domain.Clock,
	logger *zerolog.Logger,
) *ItemService {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &ItemService{
		repo:      repo,
		bookings:  bookings,
		directory: directory,
		clock:     clock,
		logger:    logger,
	}
}

func (s *ItemService) CreateItem(ctx context.Context, ownerID int64, item *models.Item) (*models.Item, error) {
	if err := s.directory.RequireUser(ctx, ownerID); err != nil {
		return nil, err
	}

	item.OwnerID = ownerID
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	s.logger.Info().Int64("item_id", item.ID).Int64("owner_id", ownerID).Msg("item created")
	return item, nil
}

// UpdateItem applies the non-nil fields of patch. Non-owners see the item as missing.
func (s *ItemService) UpdateItem(ctx context.Context, ownerID, itemID int64, patch models.ItemPatch) (*models.Item, error) {
	if err := s.directory.RequireUser(ctx, ownerID); err != nil {
		return nil, err
	}

	item, err := s.directory.FindItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != ownerID {
		s.logger.Warn().Int64("item_id", itemID).Int64("user_id", ownerID).Msg("update by non-owner")
		return nil, domain.NotFound("item %d not found for user %d", itemID, ownerID)
	}

	if patch.Name != nil {
		item.Name = *patch.Name
	}
	if patch.Description != nil {
		item.Description = *patch.Description
	}
	if patch.Available != nil {
		item.Available = *patch.Available
	}

	if err := s.repo.UpdateItem(ctx, item); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, domain.NotFound("item %d not found", itemID)
		}
		return nil, fmt.Errorf("update item %d: %w", itemID, err)
	}
	return item, nil
}

// GetItem returns the item; the booking window is filled only for its owner.
func (s *ItemService) GetItem(ctx context.Context, viewerID, itemID int64) (*models.ItemView, error) {
	if err := s.directory.RequireUser(ctx, viewerID); err != nil {
		return nil, err
	}

	item, err := s.directory.FindItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	view := &models.ItemView{Item: *item}
	if item.OwnerID != viewerID {
		return view, nil
	}

	dates, err := s.bookings.GetItemBookingDates(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("load booking dates for item %d: %w", itemID, err)
	}
	view.BookingWindow = availability.Project(dates, s.clock.Now())
	return view, nil
}

// GetOwnerItems lists the owner's items with their booking windows from a single dates query.
func (s *ItemService) GetOwnerItems(ctx context.Context, ownerID int64) ([]*models.ItemView, error) {
	if err := s.directory.RequireUser(ctx, ownerID); err != nil {
		return nil, err
	}

	items, err := s.repo.GetItemsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list items of %d: %w", ownerID, err)
	}

	dates, err := s.bookings.GetOwnerBookingDates(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load booking dates for owner %d: %w", ownerID, err)
	}
	windows := availability.ProjectByItem(dates, s.clock.Now())

	views := make([]*models.ItemView, 0, len(items))
	for _, item := range items {
		views = append(views, &models.ItemView{Item: *item, BookingWindow: windows[item.ID]})
	}
	return views, nil
}

// SearchItems matches available items by name or description. Blank text matches nothing.
func (s *ItemService) SearchItems(ctx context.Context, userID int64, text string) ([]*models.Item, error) {
	if err := s.directory.RequireUser(ctx, userID); err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return []*models.Item{}, nil
	}

	items, err := s.repo.SearchAvailableItems(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("search items: %w", err)
	}
	return items, nil
}
