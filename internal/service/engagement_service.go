package service

import (
	"context"
	"log/slog"
	"time"

	"scribio/internal/middleware"
	"scribio/internal/models"
	"scribio/internal/observability"
	"scribio/internal/repository"
)

// EngagementService orchestrates appreciations, saves and views together
// with the denormalized counters they project onto posts and users.
//
// The membership tables are the source of truth. Counter updates run after
// the membership mutation succeeds and are deliberately fire-and-forget:
// a failed increment is logged and counted, never surfaced to the caller.
// Drift is repairable through ReconcilePost.
type EngagementService struct {
	appreciationRepo repository.AppreciationRepository
	saveRepo         repository.SaveRepository
	postRepo         repository.PostRepository
	userRepo         repository.UserRepository
	historyRepo      repository.HistoryRepository
}

// NewEngagementService returns a new EngagementService.
func NewEngagementService(
	appreciationRepo repository.AppreciationRepository,
	saveRepo repository.SaveRepository,
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	historyRepo repository.HistoryRepository,
) *EngagementService {
	return &EngagementService{
		appreciationRepo: appreciationRepo,
		saveRepo:         saveRepo,
		postRepo:         postRepo,
		userRepo:         userRepo,
		historyRepo:      historyRepo,
	}
}

// LikePost records a like. Liking an already liked post is a conflict;
// liking a disliked post flips it and moves both counters.
func (s *EngagementService) LikePost(ctx context.Context, userID, postID uint) error {
	return s.appreciate(ctx, userID, postID, models.KindLike)
}

// DislikePost records a dislike, symmetric to LikePost.
func (s *EngagementService) DislikePost(ctx context.Context, userID, postID uint) error {
	return s.appreciate(ctx, userID, postID, models.KindDislike)
}

func (s *EngagementService) appreciate(ctx context.Context, userID, postID uint, kind models.AppreciationKind) error {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return err
	}

	outcome, err := s.appreciationRepo.Set(ctx, userID, postID, models.TargetPost, kind)
	if err != nil {
		return err
	}

	switch outcome {
	case repository.OutcomeConflict:
		return models.NewConflictError("Post already " + string(kind) + "d")
	case repository.OutcomeCreated:
		s.bumpPost(ctx, postID, counterFor(kind), 1)
	case repository.OutcomeSwitched:
		s.bumpPost(ctx, postID, counterFor(kind.Opposite()), -1)
		s.bumpPost(ctx, postID, counterFor(kind), 1)
	}
	return nil
}

// RemoveAppreciation withdraws the user's like or dislike and decrements
// whichever counter it was feeding. NotFound when there is nothing to remove.
func (s *EngagementService) RemoveAppreciation(ctx context.Context, userID, postID uint) error {
	kind, err := s.appreciationRepo.Remove(ctx, userID, postID, models.TargetPost)
	if err != nil {
		return err
	}
	s.bumpPost(ctx, postID, counterFor(kind), -1)
	return nil
}

// SavePost bookmarks the post. Saving twice is a conflict.
func (s *EngagementService) SavePost(ctx context.Context, userID, postID uint) error {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return err
	}
	if err := s.saveRepo.Create(ctx, userID, postID); err != nil {
		return err
	}
	s.bumpPost(ctx, postID, repository.CounterSaves, 1)
	return nil
}

// UnsavePost removes the bookmark. NotFound leaves the counter untouched.
func (s *EngagementService) UnsavePost(ctx context.Context, userID, postID uint) error {
	if err := s.saveRepo.Delete(ctx, userID, postID); err != nil {
		return err
	}
	s.bumpPost(ctx, postID, repository.CounterSaves, -1)
	return nil
}

// RegisterView counts a view on the post and its author. Views are not
// deduplicated. Authenticated viewers additionally get a history entry. The
// three writes are independent; each failure is logged on its own.
func (s *EngagementService) RegisterView(ctx context.Context, viewerID, postID uint) error {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}

	tasks := []func(context.Context) error{
		func(ctx context.Context) error {
			s.bumpPost(ctx, postID, repository.CounterViews, 1)
			return nil
		},
		func(ctx context.Context) error {
			s.bumpUser(ctx, post.Author.UserID, repository.CounterTotalViews, 1)
			return nil
		},
	}
	if viewerID != 0 {
		tasks = append(tasks, func(ctx context.Context) error {
			item := &models.HistoryItem{
				UserID:         viewerID,
				PostID:         post.ID,
				PostTitle:      post.Title,
				AuthorID:       post.Author.UserID,
				AuthorUsername: post.Author.Username,
				ViewedAt:       time.Now(),
			}
			if err := s.historyRepo.Append(ctx, item); err != nil {
				middleware.Logger.ErrorContext(ctx, "Failed to append history entry",
					slog.Uint64("user_id", uint64(viewerID)),
					slog.Uint64("post_id", uint64(post.ID)),
					slog.String("error", err.Error()),
				)
			}
			return nil
		})
	}

	return fanOut(ctx, tasks...)
}

// Metrics returns the post's counter projection. For authenticated viewers
// it also reports their own appreciation and saved state, fetched
// concurrently.
func (s *EngagementService) Metrics(ctx context.Context, viewerID, postID uint) (*models.PostMetrics, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	metrics := &models.PostMetrics{
		Likes:    post.Likes,
		Dislikes: post.Dislikes,
		Saves:    post.Saves,
		Views:    post.Views,
	}
	if viewerID == 0 {
		return metrics, nil
	}

	err = fanOut(ctx,
		func(ctx context.Context) error {
			appreciation, err := s.appreciationRepo.Get(ctx, viewerID, postID, models.TargetPost)
			if err != nil {
				return err
			}
			if appreciation != nil {
				metrics.UserAppreciation = string(appreciation.Kind)
			}
			return nil
		},
		func(ctx context.Context) error {
			saved, err := s.saveRepo.IsSaved(ctx, viewerID, postID)
			if err != nil {
				return err
			}
			metrics.IsSaved = saved
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	return metrics, nil
}

// CleanupPost drops every appreciation and save pointing at the post. Runs
// as part of post deletion; history entries deliberately stay. Failures are
// logged and metered, the deletion itself is already done.
func (s *EngagementService) CleanupPost(ctx context.Context, postID uint) {
	_ = fanOut(ctx,
		func(ctx context.Context) error {
			if err := s.appreciationRepo.DeleteByTarget(ctx, postID, models.TargetPost); err != nil {
				observability.CascadeCleanupFailures.WithLabelValues("appreciations").Inc()
				middleware.Logger.ErrorContext(ctx, "Failed to cascade appreciations",
					slog.Uint64("post_id", uint64(postID)),
					slog.String("error", err.Error()),
				)
			}
			return nil
		},
		func(ctx context.Context) error {
			if err := s.saveRepo.DeleteByPost(ctx, postID); err != nil {
				observability.CascadeCleanupFailures.WithLabelValues("saves").Inc()
				middleware.Logger.ErrorContext(ctx, "Failed to cascade saves",
					slog.Uint64("post_id", uint64(postID)),
					slog.String("error", err.Error()),
				)
			}
			return nil
		},
	)
}

// ReconcilePost recounts the post's likes, dislikes and saves from their
// source tables and overwrites the projected counters. Views are append-only
// and left alone.
func (s *EngagementService) ReconcilePost(ctx context.Context, postID uint) error {
	var likes, dislikes, saves int64
	err := fanOut(ctx,
		func(ctx context.Context) error {
			var err error
			likes, err = s.appreciationRepo.CountByTarget(ctx, postID, models.TargetPost, models.KindLike)
			return err
		},
		func(ctx context.Context) error {
			var err error
			dislikes, err = s.appreciationRepo.CountByTarget(ctx, postID, models.TargetPost, models.KindDislike)
			return err
		},
		func(ctx context.Context) error {
			var err error
			saves, err = s.saveRepo.CountByPost(ctx, postID)
			return err
		},
	)
	if err != nil {
		return err
	}
	return s.postRepo.SetCounters(ctx, postID, likes, dislikes, saves)
}

func counterFor(kind models.AppreciationKind) repository.PostCounter {
	if kind == models.KindLike {
		return repository.CounterLikes
	}
	return repository.CounterDislikes
}

func (s *EngagementService) bumpPost(ctx context.Context, postID uint, counter repository.PostCounter, delta int) {
	bumpPostCounter(ctx, s.postRepo, postID, counter, delta)
}

func (s *EngagementService) bumpUser(ctx context.Context, userID uint, counter repository.UserCounter, delta int) {
	bumpUserCounter(ctx, s.userRepo, userID, counter, delta)
}
