package repository

import (
	"context"
	"errors"
	"fmt"

	"scribio/internal/models"

	"gorm.io/gorm"
)

// Post sort orders accepted by List and ListByAuthor.
const (
	SortNewer      = "newer"
	SortOlder      = "older"
	SortPopularity = "popularity"
)

// PostCounter names a denormalized counter column on the posts table.
type PostCounter string

const (
	CounterLikes    PostCounter = "likes"
	CounterDislikes PostCounter = "dislikes"
	CounterSaves    PostCounter = "saves"
	CounterViews    PostCounter = "views"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetByIDs(ctx context.Context, ids []uint) ([]*models.Post, error)
	List(ctx context.Context, limit, offset int, sort string) ([]*models.Post, error)
	ListByAuthor(ctx context.Context, authorID uint, limit, offset int, sort string) ([]*models.Post, error)
	Search(ctx context.Context, query string, limit, offset int) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	IDs(ctx context.Context) ([]uint, error)
	IDsByAuthor(ctx context.Context, authorID uint) ([]uint, error)
	Increment(ctx context.Context, id uint, counter PostCounter, delta int) error
	SetCounters(ctx context.Context, id uint, likes, dislikes, saves int64) error
	RepairAuthorSnapshots(ctx context.Context, snapshot models.UserSnapshot) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).First(&post, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post")
		}
		return nil, err
	}
	return &post, nil
}

// GetByIDs returns the posts for the given ids, preserving the input order.
// Missing ids are silently skipped; the saved-posts listing relies on that
// when a save outlives its post by a moment.
func (r *postRepository) GetByIDs(ctx context.Context, ids []uint) ([]*models.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var posts []*models.Post
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&posts).Error; err != nil {
		return nil, err
	}

	byID := make(map[uint]*models.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}
	ordered := make([]*models.Post, 0, len(posts))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

func (r *postRepository) List(ctx context.Context, limit, offset int, sort string) ([]*models.Post, error) {
	var posts []*models.Post
	err := applySort(r.db.WithContext(ctx), sort).
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID uint, limit, offset int, sort string) ([]*models.Post, error) {
	var posts []*models.Post
	err := applySort(r.db.WithContext(ctx).Where("author_user_id = ?", authorID), sort).
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) Search(ctx context.Context, query string, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	like := "%" + query + "%"
	err := r.db.WithContext(ctx).
		Where("title ILIKE ? OR preview_content ILIKE ?", like, like).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

// applySort appends the ORDER BY clause for the requested sort type.
func applySort(db *gorm.DB, sort string) *gorm.DB {
	switch sort {
	case SortOlder:
		return db.Order("created_at ASC")
	case SortPopularity:
		return db.Order("likes DESC, created_at DESC")
	default: // SortNewer and anything unrecognized
		return db.Order("created_at DESC")
	}
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Save(post).Error
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Post")
	}
	return nil
}

// IDs returns every live post id, used for sitemap-style static listings.
func (r *postRepository) IDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Order("created_at DESC").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *postRepository) IDsByAuthor(ctx context.Context, authorID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("author_user_id = ?", authorID).
		Pluck("id", &ids).Error
	return ids, err
}

// Increment atomically moves one counter column by delta. Negative results
// are not clamped; drift is visible and repaired by SetCounters. The counter
// name comes from the PostCounter constants, never from input.
func (r *postRepository) Increment(ctx context.Context, id uint, counter PostCounter, delta int) error {
	column := string(counter)
	result := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(fmt.Sprintf("%s + ?", column), delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Post")
	}
	return nil
}

// SetCounters overwrites the appreciation and save counters with recounted
// values. Views are append-only and never reconciled.
func (r *postRepository) SetCounters(ctx context.Context, id uint, likes, dislikes, saves int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"likes":    likes,
			"dislikes": dislikes,
			"saves":    saves,
		}).Error
}

// RepairAuthorSnapshots rewrites the embedded author columns on every post
// the user authored. Runs after profile edits.
func (r *postRepository) RepairAuthorSnapshots(ctx context.Context, snapshot models.UserSnapshot) error {
	return r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("author_user_id = ?", snapshot.UserID).
		UpdateColumns(map[string]interface{}{
			"author_username":           snapshot.Username,
			"author_avatar_url":         snapshot.Avatar.URL,
			"author_avatar_key":         snapshot.Avatar.Key,
			"author_avatar_width":       snapshot.Avatar.Width,
			"author_avatar_height":      snapshot.Avatar.Height,
			"author_avatar_placeholder": snapshot.Avatar.Placeholder,
		}).Error
}
