package repository

import (
	"context"

	"scribio/internal/models"

	"gorm.io/gorm"
)

// SaveRepository defines the interface for bookmark data operations
type SaveRepository interface {
	Create(ctx context.Context, userID, postID uint) error
	Delete(ctx context.Context, userID, postID uint) error
	IsSaved(ctx context.Context, userID, postID uint) (bool, error)
	SavedPostIDs(ctx context.Context, userID uint, limit, offset int) ([]uint, error)
	DeleteByPost(ctx context.Context, postID uint) error
	CountByPost(ctx context.Context, postID uint) (int64, error)
}

type saveRepository struct {
	db *gorm.DB
}

// NewSaveRepository creates a new save repository
func NewSaveRepository(db *gorm.DB) SaveRepository {
	return &saveRepository{db: db}
}

// Create records the bookmark. Saving the same post twice is a conflict.
func (r *saveRepository) Create(ctx context.Context, userID, postID uint) error {
	save := models.Save{UserID: userID, PostID: postID}
	if err := r.db.WithContext(ctx).Create(&save).Error; err != nil {
		if isDuplicateKey(err) {
			return models.NewConflictError("Post already saved")
		}
		return err
	}
	return nil
}

// Delete removes the bookmark. A missing row is a NotFound error so the
// caller knows not to touch the counter.
func (r *saveRepository) Delete(ctx context.Context, userID, postID uint) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Save{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Save")
	}
	return nil
}

func (r *saveRepository) IsSaved(ctx context.Context, userID, postID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Save{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error
	return count > 0, err
}

// SavedPostIDs returns the user's saved post ids, most recently saved first.
func (r *saveRepository) SavedPostIDs(ctx context.Context, userID uint, limit, offset int) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Save{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Pluck("post_id", &ids).Error
	return ids, err
}

func (r *saveRepository) DeleteByPost(ctx context.Context, postID uint) error {
	return r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Delete(&models.Save{}).Error
}

// CountByPost returns the authoritative save count for the reconciler.
func (r *saveRepository) CountByPost(ctx context.Context, postID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Save{}).
		Where("post_id = ?", postID).
		Count(&count).Error
	return count, err
}
