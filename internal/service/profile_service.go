package service

import (
	"context"
	"log/slog"
	"strings"

	"scribio/internal/middleware"
	"scribio/internal/models"
	"scribio/internal/observability"
	"scribio/internal/repository"
	"scribio/internal/storage"
	"scribio/internal/validation"
)

// ProfileService manages the signed-in user's own profile, reading history
// and saved posts. Profile edits repair the denormalized user snapshots
// embedded in posts, follows and history.
type ProfileService struct {
	userRepo    repository.UserRepository
	postRepo    repository.PostRepository
	followRepo  repository.FollowRepository
	historyRepo repository.HistoryRepository
	saveRepo    repository.SaveRepository
	uploader    MediaUploader
}

// NewProfileService returns a new ProfileService.
func NewProfileService(
	userRepo repository.UserRepository,
	postRepo repository.PostRepository,
	followRepo repository.FollowRepository,
	historyRepo repository.HistoryRepository,
	saveRepo repository.SaveRepository,
	uploader MediaUploader,
) *ProfileService {
	return &ProfileService{
		userRepo:    userRepo,
		postRepo:    postRepo,
		followRepo:  followRepo,
		historyRepo: historyRepo,
		saveRepo:    saveRepo,
		uploader:    uploader,
	}
}

// Get returns the full account record of the signed-in user.
func (s *ProfileService) Get(ctx context.Context, userID uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// UpdateAvatar stores a new avatar image and repairs the embedded snapshots.
func (s *ProfileService) UpdateAvatar(ctx context.Context, userID uint, raw []byte) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	avatar, err := s.uploader.UploadImage(ctx, raw, "avatars", storage.MaxWidthAvatar)
	if err != nil {
		return nil, err
	}

	oldKey := user.Avatar.Key
	user.Avatar = avatar
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.repairSnapshots(ctx, user)
	if oldKey != "" {
		if err := s.uploader.Remove(ctx, oldKey); err != nil {
			middleware.Logger.ErrorContext(ctx, "Failed to remove previous avatar",
				slog.String("key", oldKey),
				slog.String("error", err.Error()),
			)
		}
	}
	return user, nil
}

// UpdateUsername renames the user and repairs the embedded snapshots.
// Conflicts with an existing name surface as Conflict.
func (s *ProfileService) UpdateUsername(ctx context.Context, userID uint, username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Username = username
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.repairSnapshots(ctx, user)
	return user, nil
}

// UpdateDescription sets the profile description. No snapshots embed it.
func (s *ProfileService) UpdateDescription(ctx context.Context, userID uint, description string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Description = description
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// History returns one page of the user's reading history, newest first.
func (s *ProfileService) History(ctx context.Context, userID uint, page int) (Page[*models.HistoryItem], error) {
	limit, offset := pageWindow(page)
	items, err := s.historyRepo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return Page[*models.HistoryItem]{}, err
	}
	return trimPage(items, page), nil
}

// DeleteHistoryItem removes one owned history entry.
func (s *ProfileService) DeleteHistoryItem(ctx context.Context, userID, itemID uint) error {
	return s.historyRepo.DeleteByID(ctx, userID, itemID)
}

// ClearHistory wipes the user's entire history.
func (s *ProfileService) ClearHistory(ctx context.Context, userID uint) error {
	return s.historyRepo.DeleteByUser(ctx, userID)
}

// SavedPosts returns one page of the user's bookmarked posts, most recently
// saved first. Saves whose post vanished mid-request are skipped.
func (s *ProfileService) SavedPosts(ctx context.Context, userID uint, page int) (Page[*models.Post], error) {
	limit, offset := pageWindow(page)
	ids, err := s.saveRepo.SavedPostIDs(ctx, userID, limit, offset)
	if err != nil {
		return Page[*models.Post]{}, err
	}
	posts, err := s.postRepo.GetByIDs(ctx, ids)
	if err != nil {
		return Page[*models.Post]{}, err
	}

	// hasMore is decided by the save rows fetched, not the posts resolved.
	result := trimPage(posts, page)
	result.HasMore = len(ids) > PageSize
	if result.HasMore && len(result.Data) > PageSize {
		result.Data = result.Data[:PageSize]
	}
	return result, nil
}

// repairSnapshots bulk-patches every denormalized copy of the user embedded
// in posts, follow edges and history entries. Best effort: the profile edit
// itself already committed, failures are logged and metered per table.
func (s *ProfileService) repairSnapshots(ctx context.Context, user *models.User) {
	snapshot := user.Snapshot()
	_ = fanOut(ctx,
		func(ctx context.Context) error {
			if err := s.postRepo.RepairAuthorSnapshots(ctx, snapshot); err != nil {
				s.logRepairFailure(ctx, "posts", user.ID, err)
			}
			return nil
		},
		func(ctx context.Context) error {
			if err := s.followRepo.RepairSnapshots(ctx, snapshot); err != nil {
				s.logRepairFailure(ctx, "follows", user.ID, err)
			}
			return nil
		},
		func(ctx context.Context) error {
			if err := s.historyRepo.RepairAuthorSnapshots(ctx, user.ID, user.Username); err != nil {
				s.logRepairFailure(ctx, "history_items", user.ID, err)
			}
			return nil
		},
	)
}

func (s *ProfileService) logRepairFailure(ctx context.Context, table string, userID uint, err error) {
	observability.SnapshotRepairFailures.WithLabelValues(table).Inc()
	middleware.Logger.ErrorContext(ctx, "Failed to repair user snapshots",
		slog.String("table", table),
		slog.Uint64("user_id", uint64(userID)),
		slog.String("error", err.Error()),
	)
}
