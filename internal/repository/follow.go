package repository

import (
	"context"

	"scribio/internal/models"

	"gorm.io/gorm"
)

// FollowRepository defines the interface for follow data operations
type FollowRepository interface {
	Create(ctx context.Context, follow *models.Follow) error
	Delete(ctx context.Context, followerID, followingID uint) error
	Exists(ctx context.Context, followerID, followingID uint) (bool, error)
	ListFollowers(ctx context.Context, userID uint, limit, offset int) ([]*models.Follow, error)
	ListFollowing(ctx context.Context, userID uint, limit, offset int) ([]*models.Follow, error)
	RepairSnapshots(ctx context.Context, snapshot models.UserSnapshot) error
	CountFollowers(ctx context.Context, userID uint) (int64, error)
}

type followRepository struct {
	db *gorm.DB
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

// Create inserts the follow edge. Following someone twice is a conflict.
func (r *followRepository) Create(ctx context.Context, follow *models.Follow) error {
	if err := r.db.WithContext(ctx).Create(follow).Error; err != nil {
		if isDuplicateKey(err) {
			return models.NewConflictError("Already following this user")
		}
		return err
	}
	return nil
}

// Delete removes the follow edge. A missing edge is a NotFound error so the
// caller leaves the follower counter alone.
func (r *followRepository) Delete(ctx context.Context, followerID, followingID uint) error {
	result := r.db.WithContext(ctx).
		Where("follower_user_id = ? AND following_user_id = ?", followerID, followingID).
		Delete(&models.Follow{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Follow")
	}
	return nil
}

func (r *followRepository) Exists(ctx context.Context, followerID, followingID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_user_id = ? AND following_user_id = ?", followerID, followingID).
		Count(&count).Error
	return count > 0, err
}

func (r *followRepository) ListFollowers(ctx context.Context, userID uint, limit, offset int) ([]*models.Follow, error) {
	var follows []*models.Follow
	err := r.db.WithContext(ctx).
		Where("following_user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&follows).Error
	return follows, err
}

func (r *followRepository) ListFollowing(ctx context.Context, userID uint, limit, offset int) ([]*models.Follow, error) {
	var follows []*models.Follow
	err := r.db.WithContext(ctx).
		Where("follower_user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&follows).Error
	return follows, err
}

// RepairSnapshots rewrites the embedded user columns on both sides of every
// edge touching the user. Runs after profile edits.
func (r *followRepository) RepairSnapshots(ctx context.Context, snapshot models.UserSnapshot) error {
	err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_user_id = ?", snapshot.UserID).
		UpdateColumns(map[string]interface{}{
			"follower_username":           snapshot.Username,
			"follower_avatar_url":         snapshot.Avatar.URL,
			"follower_avatar_key":         snapshot.Avatar.Key,
			"follower_avatar_width":       snapshot.Avatar.Width,
			"follower_avatar_height":      snapshot.Avatar.Height,
			"follower_avatar_placeholder": snapshot.Avatar.Placeholder,
		}).Error
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("following_user_id = ?", snapshot.UserID).
		UpdateColumns(map[string]interface{}{
			"following_username":           snapshot.Username,
			"following_avatar_url":         snapshot.Avatar.URL,
			"following_avatar_key":         snapshot.Avatar.Key,
			"following_avatar_width":       snapshot.Avatar.Width,
			"following_avatar_height":      snapshot.Avatar.Height,
			"following_avatar_placeholder": snapshot.Avatar.Placeholder,
		}).Error
}

// CountFollowers returns the authoritative follower count for the reconciler.
func (r *followRepository) CountFollowers(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("following_user_id = ?", userID).
		Count(&count).Error
	return count, err
}
