package repository

import (
	"context"

	"scribio/internal/models"

	"gorm.io/gorm"
)

// HistoryRepository defines the interface for reading history operations.
// History is append-only; entries are never removed when posts or authors
// disappear, only when the reader deletes their own account.
type HistoryRepository interface {
	Append(ctx context.Context, item *models.HistoryItem) error
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.HistoryItem, error)
	DeleteByID(ctx context.Context, userID, itemID uint) error
	DeleteByUser(ctx context.Context, userID uint) error
	RepairAuthorSnapshots(ctx context.Context, authorID uint, username string) error
}

type historyRepository struct {
	db *gorm.DB
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Append(ctx context.Context, item *models.HistoryItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *historyRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.HistoryItem, error) {
	var items []*models.HistoryItem
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("viewed_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	return items, err
}

// DeleteByID removes a single entry, scoped to its owner. A missing entry
// is a NotFound error.
func (r *historyRepository) DeleteByID(ctx context.Context, userID, itemID uint) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", itemID, userID).
		Delete(&models.HistoryItem{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("History item")
	}
	return nil
}

func (r *historyRepository) DeleteByUser(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.HistoryItem{}).Error
}

// RepairAuthorSnapshots rewrites the denormalized author name on old
// entries after the author renames themselves.
func (r *historyRepository) RepairAuthorSnapshots(ctx context.Context, authorID uint, username string) error {
	return r.db.WithContext(ctx).
		Model(&models.HistoryItem{}).
		Where("author_id = ?", authorID).
		UpdateColumn("author_username", username).Error
}
