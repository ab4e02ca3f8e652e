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

type UserService struct {
	repo      domain.UserRepository
	directory *Directory
	logger    *zerolog.Logger
}

func NewUserService(repo domain.UserRepository, directory *Directory, logger *zerolog.Logger) *UserService {
	return &UserService{
		repo:      repo,
		directory: directory,
		logger:    logger,
	}
}

func (s *UserService) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, domain.Conflict("user with email %s already exists", user.Email)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info().Int64("user_id", user.ID).Msg("user created")
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.directory.FindUser(ctx, id)
}

// UpdateUser applies the non-nil fields of patch.
func (s *UserService) UpdateUser(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error) {
	user, err := s.directory.FindUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Name == nil && patch.Email == nil {
		return user, nil
	}

	if patch.Name != nil {
		user.Name = *patch.Name
	}
	if patch.Email != nil {
		user.Email = *patch.Email
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, database.ErrDuplicate):
			return nil, domain.Conflict("user with email %s already exists", user.Email)
		case errors.Is(err, database.ErrNotFound):
			return nil, domain.NotFound("user %d not found", id)
		}
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}
	return user, nil
}
