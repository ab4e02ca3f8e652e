package service

import (
	"context"
	"errors"
	"fmt"

	"shareit/internal/database"
	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

// Directory resolves users and items for the other services. Missing records
// surface as domain.ErrNotFound; every other store failure is passed up wrapped.
type Directory struct {
	users  domain.UserRepository
	items  domain.ItemRepository
	logger *zerolog.Logger
}

func NewDirectory(users domain.UserRepository, items domain.ItemRepository, logger *zerolog.Logger) *Directory {
	return &Directory{users: users, items: items, logger: logger}
}

func (d *Directory) FindUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := d.users.GetUserByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		d.logger.Debug().Int64("user_id", id).Msg("user not found")
		return nil, domain.NotFound("user %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("find user %d: %w", id, err)
	}
	return user, nil
}

func (d *Directory) FindItem(ctx context.Context, id int64) (*models.Item, error) {
	item, err := d.items.GetItemByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		d.logger.Debug().Int64("item_id", id).Msg("item not found")
		return nil, domain.NotFound("item %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("find item %d: %w", id, err)
	}
	return item, nil
}

func (d *Directory) UserExists(ctx context.Context, id int64) (bool, error) {
	exists, err := d.users.UserExists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("check user %d: %w", id, err)
	}
	return exists, nil
}

// RequireUser fails with NotFound unless the user exists. It does not load the record.
func (d *Directory) RequireUser(ctx context.Context, id int64) error {
	exists, err := d.UserExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		d.logger.Debug().Int64("user_id", id).Msg("user not found")
		return domain.NotFound("user %d not found", id)
	}
	return nil
}
