package service

import (
	"context"

	"scribio/internal/models"
	"scribio/internal/repository"
)

// FollowService provides follow-graph business logic. Edges carry snapshots
// of both users so listings render without joins; the followed user's
// follower counter is projected the same way post counters are.
type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
}

// NewFollowService returns a new FollowService.
func NewFollowService(followRepo repository.FollowRepository, userRepo repository.UserRepository) *FollowService {
	return &FollowService{followRepo: followRepo, userRepo: userRepo}
}

// Follow creates the edge from follower to following. Following yourself or
// someone you already follow is a conflict.
func (s *FollowService) Follow(ctx context.Context, followerID, followingID uint) error {
	if followerID == followingID {
		return models.NewConflictError("Cannot follow yourself")
	}

	var follower, following *models.User
	err := fanOut(ctx,
		func(ctx context.Context) error {
			var err error
			follower, err = s.userRepo.GetByID(ctx, followerID)
			return err
		},
		func(ctx context.Context) error {
			var err error
			following, err = s.userRepo.GetByID(ctx, followingID)
			return err
		},
	)
	if err != nil {
		return err
	}

	edge := &models.Follow{
		Follower:  follower.Snapshot(),
		Following: following.Snapshot(),
	}
	if err := s.followRepo.Create(ctx, edge); err != nil {
		return err
	}

	bumpUserCounter(ctx, s.userRepo, followingID, repository.CounterFollowers, 1)
	return nil
}

// Unfollow removes the edge. The edge's existence is checked by the delete
// itself: when nothing was deleted the counter is left untouched and
// NotFound is returned, so no compensating increment is ever needed.
func (s *FollowService) Unfollow(ctx context.Context, followerID, followingID uint) error {
	if err := s.followRepo.Delete(ctx, followerID, followingID); err != nil {
		return err
	}
	bumpUserCounter(ctx, s.userRepo, followingID, repository.CounterFollowers, -1)
	return nil
}

// IsFollowing reports whether follower follows following.
func (s *FollowService) IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error) {
	return s.followRepo.Exists(ctx, followerID, followingID)
}

// Followers returns one page of the users following userID.
func (s *FollowService) Followers(ctx context.Context, userID uint, page int) (Page[models.UserSnapshot], error) {
	limit, offset := pageWindow(page)
	follows, err := s.followRepo.ListFollowers(ctx, userID, limit, offset)
	if err != nil {
		return Page[models.UserSnapshot]{}, err
	}

	snapshots := make([]models.UserSnapshot, 0, len(follows))
	for _, f := range follows {
		snapshots = append(snapshots, f.Follower)
	}
	return trimPage(snapshots, page), nil
}

// Followings returns one page of the users userID follows.
func (s *FollowService) Followings(ctx context.Context, userID uint, page int) (Page[models.UserSnapshot], error) {
	limit, offset := pageWindow(page)
	follows, err := s.followRepo.ListFollowing(ctx, userID, limit, offset)
	if err != nil {
		return Page[models.UserSnapshot]{}, err
	}

	snapshots := make([]models.UserSnapshot, 0, len(follows))
	for _, f := range follows {
		snapshots = append(snapshots, f.Following)
	}
	return trimPage(snapshots, page), nil
}

// ReconcileFollowers recounts the follower edges and overwrites the
// projected counter.
func (s *FollowService) ReconcileFollowers(ctx context.Context, userID uint) error {
	count, err := s.followRepo.CountFollowers(ctx, userID)
	if err != nil {
		return err
	}
	return s.userRepo.SetFollowers(ctx, userID, count)
}
