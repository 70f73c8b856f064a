package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"scribio/internal/models"
	"scribio/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngagementService(
	appreciations *appreciationRepoStub,
	saves *saveRepoStub,
	posts *postRepoStub,
	users *userRepoStub,
	history *historyRepoStub,
) *EngagementService {
	return NewEngagementService(appreciations, saves, posts, users, history)
}

func recordingPostRepo(rec *counterRecorder) *postRepoStub {
	posts := noopPostRepo()
	posts.incrementFn = func(_ context.Context, id uint, counter repository.PostCounter, delta int) error {
		rec.record(id, string(counter), delta)
		return nil
	}
	return posts
}

func TestLikePost_FirstLikeIncrementsLikes(t *testing.T) {
	rec := &counterRecorder{}
	posts := recordingPostRepo(rec)
	svc := newEngagementService(noopAppreciationRepo(), noopSaveRepo(), posts, noopUserRepo(), noopHistoryRepo())

	err := svc.LikePost(context.Background(), 1, 42)
	require.NoError(t, err)

	assert.Equal(t, 1, rec.total("likes"))
	assert.Equal(t, 0, rec.total("dislikes"))
	assert.Equal(t, 1, rec.count())
}

func TestLikePost_AlreadyLikedIsConflict(t *testing.T) {
	rec := &counterRecorder{}
	posts := recordingPostRepo(rec)
	appreciations := noopAppreciationRepo()
	appreciations.setFn = func(context.Context, uint, uint, models.AppreciationTarget, models.AppreciationKind) (repository.AppreciationOutcome, error) {
		return repository.OutcomeConflict, nil
	}
	svc := newEngagementService(appreciations, noopSaveRepo(), posts, noopUserRepo(), noopHistoryRepo())

	err := svc.LikePost(context.Background(), 1, 42)
	require.Error(t, err)
	assert.True(t, models.IsConflict(err))
	assert.Equal(t, 0, rec.count(), "conflict must not move any counter")
}

func TestLikePost_SwitchFromDislikeMovesBothCounters(t *testing.T) {
	rec := &counterRecorder{}
	posts := recordingPostRepo(rec)
	appreciations := noopAppreciationRepo()
	appreciations.setFn = func(context.Context, uint, uint, models.AppreciationTarget, models.AppreciationKind) (repository.AppreciationOutcome, error) {
		return repository.OutcomeSwitched, nil
	}
	svc := newEngagementService(appreciations, noopSaveRepo(), posts, noopUserRepo(), noopHistoryRepo())

	err := svc.LikePost(context.Background(), 1, 42)
	require.NoError(t, err)

	assert.Equal(t, 1, rec.total("likes"))
	assert.Equal(t, -1, rec.total("dislikes"))
}

func TestDislikePost_SwitchFromLike(t *testing.T) {
	rec := &counterRecorder{}
	posts := recordingPostRepo(rec)
	appreciations := noopAppreciationRepo()
	appreciations.setFn = func(context.Context, uint, uint, models.AppreciationTarget, models.AppreciationKind) (repository.AppreciationOutcome, error) {
		return repository.OutcomeSwitched, nil
	}
	svc := newEngagementService(appreciations, noopSaveRepo(), posts, noopUserRepo(), noopHistoryRepo())

	err := svc.DislikePost(context.Background(), 1, 42)
	require.NoError(t, err)

	assert.Equal(t, -1, rec.total("likes"))
	assert.Equal(t, 1, rec.total("dislikes"))
}

func TestLikePost_MissingPost(t *testing.T) {
	posts := noopPostRepo()
	posts.getByIDFn = func(context.Context, uint) (*models.Post, error) {
		return nil, models.NewNotFoundError("Post")
	}
	setCalled := false
	appreciations := noopAppreciationRepo()
	appreciations.setFn = func(context.Context, uint, uint, models.AppreciationTarget, models.AppreciationKind) (repository.AppreciationOutcome, error) {
		setCalled = true
		return repository.OutcomeCreated, nil
	}
	svc := newEngagementService(appreciations, noopSaveRepo(), posts, noopUserRepo(), noopHistoryRepo())

	err := svc.LikePost(context.Background(), 1, 42)
	require.Error(t, err)
	assert.True(t, models.IsNotFound(err))
	assert.False(t, setCalled)
}

func TestLikePost_CounterFailureDoesNotFailRequest(t *testing.T) {
	posts := noopPostRepo()
	posts.incrementFn = func(context.Context, uint, repository.PostCounter, int) error {
		return errors.New("db gone")
	}
	svc := newEngagementService(noopAppreciationRepo(), noopSaveRepo(), posts, noopUserRepo(), noopHistoryRepo())

	err := svc.LikePost(context.Background(), 1, 42)
	assert.NoError(t, err, "counter failures are fire-and-forget")
}

func TestRemoveAppreciation_DecrementsMatchingCounter(t *testing.T) {
	rec := &counterRecorder{}
	posts := recordingPostRepo(rec)
	appreciations := noopAppreciationRepo()
	appreciations.removeFn = func(context.Context, uint, uint, models.AppreciationTarget) (models.AppreciationKind, error) {
		return models.KindDislike, nil
	}
	svc := newEngagementService(appreciations, noopSaveRepo(), posts, noopUserRepo(), noopHistoryRepo())

	err := svc.RemoveAppreciation(context.Background(), 1, 42)
	require.NoError(t, err)

	assert.Equal(t, -1, rec.total("dislikes"))
	assert.Equal(t, 0, rec.total("likes"))
}

func TestRemoveAppreciation_NothingToRemove(t *testing.T) {
	rec := &counterRecorder{}
	posts := recordingPostRepo(rec)
	appreciations := noopAppreciationRepo()
	appreciations.removeFn = func(context.Context, uint, uint, models.AppreciationTarget) (models.AppreciationKind, error) {
		return "", models.NewNotFoundError("Appreciation")
	}
	svc := newEngagementService(appreciations, noopSaveRepo(), posts, noopUserRepo(), noopHistoryRepo())

	err := svc.RemoveAppreciation(context.Background(), 1, 42)
	require.Error(t, err)
	assert.True(t, models.IsNotFound(err))
	assert.Equal(t, 0, rec.count(), "failed removal must not move the counter")
}

func TestSavePost_IncrementsSaves(t *testing.T) {
	rec := &counterRecorder{}
	posts := recordingPostRepo(rec)
	svc := newEngagementService(noopAppreciationRepo(), noopSaveRepo(), posts, noopUserRepo(), noopHistoryRepo())

	err := svc.SavePost(context.Background(), 1, 42)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.total("saves"))
}

func TestSavePost_DuplicateIsConflict(t *testing.T) {
	rec := &counterRecorder{}
	posts := recordingPostRepo(rec)
	saves := noopSaveRepo()
	saves.createFn = func(context.Context, uint, uint) error {
		return models.NewConflictError("Post already saved")
	}
	svc := newEngagementService(noopAppreciationRepo(), saves, posts, noopUserRepo(), noopHistoryRepo())

	err := svc.SavePost(context.Background(), 1, 42)
	require.Error(t, err)
	assert.True(t, models.IsConflict(err))
	assert.Equal(t, 0, rec.count())
}

func TestUnsavePost_MissingSaveLeavesCounter(t *testing.T) {
	rec := &counterRecorder{}
	posts := recordingPostRepo(rec)
	saves := noopSaveRepo()
	saves.deleteFn = func(context.Context, uint, uint) error {
		return models.NewNotFoundError("Save")
	}
	svc := newEngagementService(noopAppreciationRepo(), saves, posts, noopUserRepo(), noopHistoryRepo())

	err := svc.UnsavePost(context.Background(), 1, 42)
	require.Error(t, err)
	assert.True(t, models.IsNotFound(err))
	assert.Equal(t, 0, rec.count())
}

func TestRegisterView_AnonymousCountsButNoHistory(t *testing.T) {
	postRec := &counterRecorder{}
	posts := recordingPostRepo(postRec)
	posts.getByIDFn = func(context.Context, uint) (*models.Post, error) {
		return &models.Post{ID: 42, Title: "hello", Author: models.UserSnapshot{UserID: 7, Username: "ann"}}, nil
	}

	userRec := &counterRecorder{}
	users := noopUserRepo()
	users.incrementFn = func(_ context.Context, id uint, counter repository.UserCounter, delta int) error {
		userRec.record(id, string(counter), delta)
		return nil
	}

	appended := false
	history := noopHistoryRepo()
	history.appendFn = func(context.Context, *models.HistoryItem) error {
		appended = true
		return nil
	}

	svc := newEngagementService(noopAppreciationRepo(), noopSaveRepo(), posts, users, history)
	require.NoError(t, svc.RegisterView(context.Background(), 0, 42))

	assert.Equal(t, 1, postRec.total("views"))
	assert.Equal(t, 1, userRec.total("total_views"))
	assert.False(t, appended)
}

func TestRegisterView_AuthenticatedAppendsHistory(t *testing.T) {
	posts := noopPostRepo()
	posts.getByIDFn = func(context.Context, uint) (*models.Post, error) {
		return &models.Post{ID: 42, Title: "hello", Author: models.UserSnapshot{UserID: 7, Username: "ann"}}, nil
	}

	var got *models.HistoryItem
	history := noopHistoryRepo()
	history.appendFn = func(_ context.Context, item *models.HistoryItem) error {
		got = item
		return nil
	}

	svc := newEngagementService(noopAppreciationRepo(), noopSaveRepo(), posts, noopUserRepo(), history)
	require.NoError(t, svc.RegisterView(context.Background(), 9, 42))

	require.NotNil(t, got)
	assert.Equal(t, uint(9), got.UserID)
	assert.Equal(t, uint(42), got.PostID)
	assert.Equal(t, "hello", got.PostTitle)
	assert.Equal(t, uint(7), got.AuthorID)
	assert.Equal(t, "ann", got.AuthorUsername)
	assert.False(t, got.ViewedAt.IsZero())
}

func TestMetrics_AnonymousSkipsViewerState(t *testing.T) {
	posts := noopPostRepo()
	posts.getByIDFn = func(context.Context, uint) (*models.Post, error) {
		return &models.Post{ID: 42, Likes: 3, Dislikes: 1, Saves: 2, Views: 10}, nil
	}
	getCalled := false
	appreciations := noopAppreciationRepo()
	appreciations.getFn = func(context.Context, uint, uint, models.AppreciationTarget) (*models.Appreciation, error) {
		getCalled = true
		return nil, nil
	}

	svc := newEngagementService(appreciations, noopSaveRepo(), posts, noopUserRepo(), noopHistoryRepo())
	metrics, err := svc.Metrics(context.Background(), 0, 42)
	require.NoError(t, err)

	assert.Equal(t, int64(3), metrics.Likes)
	assert.Equal(t, int64(1), metrics.Dislikes)
	assert.Equal(t, int64(2), metrics.Saves)
	assert.Equal(t, int64(10), metrics.Views)
	assert.Empty(t, metrics.UserAppreciation)
	assert.False(t, getCalled)
}

func TestMetrics_ViewerStateIncluded(t *testing.T) {
	posts := noopPostRepo()
	posts.getByIDFn = func(context.Context, uint) (*models.Post, error) {
		return &models.Post{ID: 42, Likes: 3}, nil
	}
	appreciations := noopAppreciationRepo()
	appreciations.getFn = func(context.Context, uint, uint, models.AppreciationTarget) (*models.Appreciation, error) {
		return &models.Appreciation{Kind: models.KindLike}, nil
	}
	saves := noopSaveRepo()
	saves.isSavedFn = func(context.Context, uint, uint) (bool, error) { return true, nil }

	svc := newEngagementService(appreciations, saves, posts, noopUserRepo(), noopHistoryRepo())
	metrics, err := svc.Metrics(context.Background(), 9, 42)
	require.NoError(t, err)

	assert.Equal(t, "like", metrics.UserAppreciation)
	assert.True(t, metrics.IsSaved)
}

func TestCleanupPost_DropsAppreciationsAndSaves(t *testing.T) {
	var apprDeleted, savesDeleted atomic.Bool

	appreciations := noopAppreciationRepo()
	appreciations.deleteByTarget = func(context.Context, uint, models.AppreciationTarget) error {
		apprDeleted.Store(true)
		return nil
	}
	saves := noopSaveRepo()
	saves.deleteByPostFn = func(context.Context, uint) error {
		savesDeleted.Store(true)
		return nil
	}
	historyDeleted := false
	history := noopHistoryRepo()
	history.deleteByUserFn = func(context.Context, uint) error {
		historyDeleted = true
		return nil
	}

	svc := newEngagementService(appreciations, saves, noopPostRepo(), noopUserRepo(), history)
	svc.CleanupPost(context.Background(), 42)

	assert.True(t, apprDeleted.Load())
	assert.True(t, savesDeleted.Load())
	assert.False(t, historyDeleted, "history outlives the post")
}

func TestReconcilePost_OverwritesCountersFromSourceTables(t *testing.T) {
	appreciations := noopAppreciationRepo()
	appreciations.countByTargetFn = func(_ context.Context, _ uint, _ models.AppreciationTarget, kind models.AppreciationKind) (int64, error) {
		if kind == models.KindLike {
			return 17, nil
		}
		return 4, nil
	}
	saves := noopSaveRepo()
	saves.countByPostFn = func(context.Context, uint) (int64, error) { return 6, nil }

	var gotLikes, gotDislikes, gotSaves int64
	posts := noopPostRepo()
	posts.setCountersFn = func(_ context.Context, _ uint, likes, dislikes, saves int64) error {
		gotLikes, gotDislikes, gotSaves = likes, dislikes, saves
		return nil
	}

	svc := newEngagementService(appreciations, saves, posts, noopUserRepo(), noopHistoryRepo())
	require.NoError(t, svc.ReconcilePost(context.Background(), 42))

	assert.Equal(t, int64(17), gotLikes)
	assert.Equal(t, int64(4), gotDislikes)
	assert.Equal(t, int64(6), gotSaves)
}
