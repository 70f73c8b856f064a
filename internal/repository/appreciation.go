package repository

import (
	"context"
	"errors"

	"scribio/internal/models"

	"gorm.io/gorm"
)

// AppreciationOutcome tells the caller what a Set call actually did, so the
// engagement service knows which counters to move.
type AppreciationOutcome int

const (
	// OutcomeCreated means a fresh appreciation row was inserted.
	OutcomeCreated AppreciationOutcome = iota
	// OutcomeSwitched means an existing row flipped polarity in place.
	OutcomeSwitched
	// OutcomeConflict means the identical appreciation already existed.
	OutcomeConflict
)

// AppreciationRepository defines the interface for appreciation data operations
type AppreciationRepository interface {
	Set(ctx context.Context, userID, targetID uint, targetType models.AppreciationTarget, kind models.AppreciationKind) (AppreciationOutcome, error)
	Remove(ctx context.Context, userID, targetID uint, targetType models.AppreciationTarget) (models.AppreciationKind, error)
	Get(ctx context.Context, userID, targetID uint, targetType models.AppreciationTarget) (*models.Appreciation, error)
	DeleteByTarget(ctx context.Context, targetID uint, targetType models.AppreciationTarget) error
	CountByTarget(ctx context.Context, targetID uint, targetType models.AppreciationTarget, kind models.AppreciationKind) (int64, error)
}

type appreciationRepository struct {
	db *gorm.DB
}

// NewAppreciationRepository creates a new appreciation repository
func NewAppreciationRepository(db *gorm.DB) AppreciationRepository {
	return &appreciationRepository{db: db}
}

// Set records the user's appreciation of the target. A missing row is
// inserted, a row of the opposite kind is flipped, and a row of the same
// kind is reported as a conflict. A concurrent insert losing the race on the
// unique index is reported as a conflict as well.
func (r *appreciationRepository) Set(ctx context.Context, userID, targetID uint, targetType models.AppreciationTarget, kind models.AppreciationKind) (AppreciationOutcome, error) {
	existing, err := r.Get(ctx, userID, targetID, targetType)
	if err != nil {
		return OutcomeConflict, err
	}

	if existing == nil {
		record := models.Appreciation{
			UserID:     userID,
			TargetID:   targetID,
			TargetType: targetType,
			Kind:       kind,
		}
		if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
			if isDuplicateKey(err) {
				return OutcomeConflict, nil
			}
			return OutcomeConflict, err
		}
		return OutcomeCreated, nil
	}

	if existing.Kind == kind {
		return OutcomeConflict, nil
	}

	err = r.db.WithContext(ctx).
		Model(&models.Appreciation{}).
		Where("id = ?", existing.ID).
		Update("kind", kind).Error
	if err != nil {
		return OutcomeConflict, err
	}
	return OutcomeSwitched, nil
}

// Remove deletes the user's appreciation of the target and returns which
// kind was removed. A missing row is a NotFound error.
func (r *appreciationRepository) Remove(ctx context.Context, userID, targetID uint, targetType models.AppreciationTarget) (models.AppreciationKind, error) {
	existing, err := r.Get(ctx, userID, targetID, targetType)
	if err != nil {
		return "", err
	}
	if existing == nil {
		return "", models.NewNotFoundError("Appreciation")
	}

	if err := r.db.WithContext(ctx).Delete(&models.Appreciation{}, existing.ID).Error; err != nil {
		return "", err
	}
	return existing.Kind, nil
}

// Get returns the user's appreciation of the target, or nil when there is none.
func (r *appreciationRepository) Get(ctx context.Context, userID, targetID uint, targetType models.AppreciationTarget) (*models.Appreciation, error) {
	var record models.Appreciation
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND target_id = ? AND target_type = ?", userID, targetID, targetType).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// DeleteByTarget removes every appreciation pointing at the target. Used by
// the cascade when a post is deleted.
func (r *appreciationRepository) DeleteByTarget(ctx context.Context, targetID uint, targetType models.AppreciationTarget) error {
	return r.db.WithContext(ctx).
		Where("target_id = ? AND target_type = ?", targetID, targetType).
		Delete(&models.Appreciation{}).Error
}

// CountByTarget returns the authoritative appreciation count for a target.
// The reconciler uses it to repair drifted counters.
func (r *appreciationRepository) CountByTarget(ctx context.Context, targetID uint, targetType models.AppreciationTarget, kind models.AppreciationKind) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Appreciation{}).
		Where("target_id = ? AND target_type = ? AND kind = ?", targetID, targetType, kind).
		Count(&count).Error
	return count, err
}
