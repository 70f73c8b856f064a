package service

import (
	"context"

	"scribio/internal/models"
	"scribio/internal/repository"
)

// UserService serves the public, read-only user surface.
type UserService struct {
	userRepo repository.UserRepository
}

// NewUserService returns a new UserService.
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// PublicProfile returns the public view of a user.
func (s *UserService) PublicProfile(ctx context.Context, userID uint) (*models.PublicProfile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := user.PublicProfile()
	return &profile, nil
}

// IDs returns every user id.
func (s *UserService) IDs(ctx context.Context) ([]uint, error) {
	return s.userRepo.IDs(ctx)
}

// Description returns just the profile description.
func (s *UserService) Description(ctx context.Context, userID uint) (string, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Description, nil
}

// TotalViews returns the user's accumulated view counter across all posts.
func (s *UserService) TotalViews(ctx context.Context, userID uint) (int64, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.TotalViews, nil
}
