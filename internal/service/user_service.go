package service

import (
	"context"
	"fmt"

	"github.com/mehulsinha/postpilot/internal/models"
	"github.com/mehulsinha/postpilot/internal/repository"
)

type UserService interface {
	GetUserInfo(ctx context.Context, id string) (*models.User, error)
}

type userService struct {
	u repository.UserRepository
}

func NewUserService(u repository.UserRepository) UserService {
	return &userService{u: u}
}

func (s *userService) GetUserInfo(ctx context.Context, id string) (*models.User, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: user id is empty", ErrValidation)
	}

	user, err := s.u.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	return user, nil
}
