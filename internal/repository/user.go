package repository

import (
	"context"
	"errors"

	"scribio/internal/models"

	"gorm.io/gorm"
)

// UserCounter names a denormalized counter column on the users table.
type UserCounter string

const (
	CounterFollowers  UserCounter = "followers"
	CounterPosts      UserCounter = "posts"
	CounterTotalViews UserCounter = "total_views"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	IDs(ctx context.Context) ([]uint, error)
	Update(ctx context.Context, user *models.User) error
	Increment(ctx context.Context, id uint, counter UserCounter, delta int) error
	SetFollowers(ctx context.Context, id uint, count int64) error
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicateKey(err) {
			return models.NewConflictError("Username or email already taken")
		}
		return err
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User")
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User")
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User")
		}
		return nil, err
	}
	return &user, nil
}

// IDs returns every live user id, used for sitemap-style static listings.
func (r *userRepository) IDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		if isDuplicateKey(err) {
			return models.NewConflictError("Username or email already taken")
		}
		return err
	}
	return nil
}

// Increment atomically moves one counter column by delta. Negative results
// are not clamped so drift stays visible.
func (r *userRepository) Increment(ctx context.Context, id uint, counter UserCounter, delta int) error {
	column := string(counter)
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("User")
	}
	return nil
}

// SetFollowers overwrites the follower counter with a recounted value.
func (r *userRepository) SetFollowers(ctx context.Context, id uint, count int64) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("followers", count).Error
}

func (r *userRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	return count > 0, err
}
