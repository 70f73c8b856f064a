package service

import (
	"context"
	"sync"

	"scribio/internal/models"
	"scribio/internal/repository"
)

// Function-field stubs for the repository interfaces. Each noop constructor
// returns a stub whose methods succeed with zero values; tests override the
// fields they care about.

type appreciationRepoStub struct {
	setFn           func(context.Context, uint, uint, models.AppreciationTarget, models.AppreciationKind) (repository.AppreciationOutcome, error)
	removeFn        func(context.Context, uint, uint, models.AppreciationTarget) (models.AppreciationKind, error)
	getFn           func(context.Context, uint, uint, models.AppreciationTarget) (*models.Appreciation, error)
	deleteByTarget  func(context.Context, uint, models.AppreciationTarget) error
	countByTargetFn func(context.Context, uint, models.AppreciationTarget, models.AppreciationKind) (int64, error)
}

func (s *appreciationRepoStub) Set(ctx context.Context, userID, targetID uint, targetType models.AppreciationTarget, kind models.AppreciationKind) (repository.AppreciationOutcome, error) {
	return s.setFn(ctx, userID, targetID, targetType, kind)
}
func (s *appreciationRepoStub) Remove(ctx context.Context, userID, targetID uint, targetType models.AppreciationTarget) (models.AppreciationKind, error) {
	return s.removeFn(ctx, userID, targetID, targetType)
}
func (s *appreciationRepoStub) Get(ctx context.Context, userID, targetID uint, targetType models.AppreciationTarget) (*models.Appreciation, error) {
	return s.getFn(ctx, userID, targetID, targetType)
}
func (s *appreciationRepoStub) DeleteByTarget(ctx context.Context, targetID uint, targetType models.AppreciationTarget) error {
	return s.deleteByTarget(ctx, targetID, targetType)
}
func (s *appreciationRepoStub) CountByTarget(ctx context.Context, targetID uint, targetType models.AppreciationTarget, kind models.AppreciationKind) (int64, error) {
	return s.countByTargetFn(ctx, targetID, targetType, kind)
}

func noopAppreciationRepo() *appreciationRepoStub {
	return &appreciationRepoStub{
		setFn: func(context.Context, uint, uint, models.AppreciationTarget, models.AppreciationKind) (repository.AppreciationOutcome, error) {
			return repository.OutcomeCreated, nil
		},
		removeFn: func(context.Context, uint, uint, models.AppreciationTarget) (models.AppreciationKind, error) {
			return models.KindLike, nil
		},
		getFn: func(context.Context, uint, uint, models.AppreciationTarget) (*models.Appreciation, error) {
			return nil, nil
		},
		deleteByTarget: func(context.Context, uint, models.AppreciationTarget) error { return nil },
		countByTargetFn: func(context.Context, uint, models.AppreciationTarget, models.AppreciationKind) (int64, error) {
			return 0, nil
		},
	}
}

type saveRepoStub struct {
	createFn       func(context.Context, uint, uint) error
	deleteFn       func(context.Context, uint, uint) error
	isSavedFn      func(context.Context, uint, uint) (bool, error)
	savedPostIDsFn func(context.Context, uint, int, int) ([]uint, error)
	deleteByPostFn func(context.Context, uint) error
	countByPostFn  func(context.Context, uint) (int64, error)
}

func (s *saveRepoStub) Create(ctx context.Context, userID, postID uint) error {
	return s.createFn(ctx, userID, postID)
}
func (s *saveRepoStub) Delete(ctx context.Context, userID, postID uint) error {
	return s.deleteFn(ctx, userID, postID)
}
func (s *saveRepoStub) IsSaved(ctx context.Context, userID, postID uint) (bool, error) {
	return s.isSavedFn(ctx, userID, postID)
}
func (s *saveRepoStub) SavedPostIDs(ctx context.Context, userID uint, limit, offset int) ([]uint, error) {
	return s.savedPostIDsFn(ctx, userID, limit, offset)
}
func (s *saveRepoStub) DeleteByPost(ctx context.Context, postID uint) error {
	return s.deleteByPostFn(ctx, postID)
}
func (s *saveRepoStub) CountByPost(ctx context.Context, postID uint) (int64, error) {
	return s.countByPostFn(ctx, postID)
}

func noopSaveRepo() *saveRepoStub {
	return &saveRepoStub{
		createFn:       func(context.Context, uint, uint) error { return nil },
		deleteFn:       func(context.Context, uint, uint) error { return nil },
		isSavedFn:      func(context.Context, uint, uint) (bool, error) { return false, nil },
		savedPostIDsFn: func(context.Context, uint, int, int) ([]uint, error) { return nil, nil },
		deleteByPostFn: func(context.Context, uint) error { return nil },
		countByPostFn:  func(context.Context, uint) (int64, error) { return 0, nil },
	}
}

type postRepoStub struct {
	createFn                func(context.Context, *models.Post) error
	getByIDFn               func(context.Context, uint) (*models.Post, error)
	getByIDsFn              func(context.Context, []uint) ([]*models.Post, error)
	listFn                  func(context.Context, int, int, string) ([]*models.Post, error)
	listByAuthorFn          func(context.Context, uint, int, int, string) ([]*models.Post, error)
	searchFn                func(context.Context, string, int, int) ([]*models.Post, error)
	updateFn                func(context.Context, *models.Post) error
	deleteFn                func(context.Context, uint) error
	idsFn                   func(context.Context) ([]uint, error)
	idsByAuthorFn           func(context.Context, uint) ([]uint, error)
	incrementFn             func(context.Context, uint, repository.PostCounter, int) error
	setCountersFn           func(context.Context, uint, int64, int64, int64) error
	repairAuthorSnapshotsFn func(context.Context, models.UserSnapshot) error
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) GetByIDs(ctx context.Context, ids []uint) ([]*models.Post, error) {
	return s.getByIDsFn(ctx, ids)
}
func (s *postRepoStub) List(ctx context.Context, limit, offset int, sort string) ([]*models.Post, error) {
	return s.listFn(ctx, limit, offset, sort)
}
func (s *postRepoStub) ListByAuthor(ctx context.Context, authorID uint, limit, offset int, sort string) ([]*models.Post, error) {
	return s.listByAuthorFn(ctx, authorID, limit, offset, sort)
}
func (s *postRepoStub) Search(ctx context.Context, query string, limit, offset int) ([]*models.Post, error) {
	return s.searchFn(ctx, query, limit, offset)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) IDs(ctx context.Context) ([]uint, error) {
	return s.idsFn(ctx)
}
func (s *postRepoStub) IDsByAuthor(ctx context.Context, authorID uint) ([]uint, error) {
	return s.idsByAuthorFn(ctx, authorID)
}
func (s *postRepoStub) Increment(ctx context.Context, id uint, counter repository.PostCounter, delta int) error {
	return s.incrementFn(ctx, id, counter, delta)
}
func (s *postRepoStub) SetCounters(ctx context.Context, id uint, likes, dislikes, saves int64) error {
	return s.setCountersFn(ctx, id, likes, dislikes, saves)
}
func (s *postRepoStub) RepairAuthorSnapshots(ctx context.Context, snapshot models.UserSnapshot) error {
	return s.repairAuthorSnapshotsFn(ctx, snapshot)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:  func(context.Context, *models.Post) error { return nil },
		getByIDFn: func(context.Context, uint) (*models.Post, error) { return &models.Post{}, nil },
		getByIDsFn: func(context.Context, []uint) ([]*models.Post, error) {
			return nil, nil
		},
		listFn: func(context.Context, int, int, string) ([]*models.Post, error) { return nil, nil },
		listByAuthorFn: func(context.Context, uint, int, int, string) ([]*models.Post, error) {
			return nil, nil
		},
		searchFn:                func(context.Context, string, int, int) ([]*models.Post, error) { return nil, nil },
		updateFn:                func(context.Context, *models.Post) error { return nil },
		deleteFn:                func(context.Context, uint) error { return nil },
		idsFn:                   func(context.Context) ([]uint, error) { return nil, nil },
		idsByAuthorFn:           func(context.Context, uint) ([]uint, error) { return nil, nil },
		incrementFn:             func(context.Context, uint, repository.PostCounter, int) error { return nil },
		setCountersFn:           func(context.Context, uint, int64, int64, int64) error { return nil },
		repairAuthorSnapshotsFn: func(context.Context, models.UserSnapshot) error { return nil },
	}
}

type userRepoStub struct {
	createFn            func(context.Context, *models.User) error
	getByIDFn           func(context.Context, uint) (*models.User, error)
	getByUsernameFn     func(context.Context, string) (*models.User, error)
	getByEmailFn        func(context.Context, string) (*models.User, error)
	idsFn               func(context.Context) ([]uint, error)
	updateFn            func(context.Context, *models.User) error
	incrementFn         func(context.Context, uint, repository.UserCounter, int) error
	setFollowersFn      func(context.Context, uint, int64) error
	existsByUserEmailFn func(context.Context, string, string) (bool, error)
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) IDs(ctx context.Context) ([]uint, error) {
	return s.idsFn(ctx)
}
func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	return s.updateFn(ctx, user)
}
func (s *userRepoStub) Increment(ctx context.Context, id uint, counter repository.UserCounter, delta int) error {
	return s.incrementFn(ctx, id, counter, delta)
}
func (s *userRepoStub) SetFollowers(ctx context.Context, id uint, count int64) error {
	return s.setFollowersFn(ctx, id, count)
}
func (s *userRepoStub) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	return s.existsByUserEmailFn(ctx, username, email)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		createFn:            func(context.Context, *models.User) error { return nil },
		getByIDFn:           func(context.Context, uint) (*models.User, error) { return &models.User{}, nil },
		getByUsernameFn:     func(context.Context, string) (*models.User, error) { return &models.User{}, nil },
		getByEmailFn:        func(context.Context, string) (*models.User, error) { return &models.User{}, nil },
		idsFn:               func(context.Context) ([]uint, error) { return nil, nil },
		updateFn:            func(context.Context, *models.User) error { return nil },
		incrementFn:         func(context.Context, uint, repository.UserCounter, int) error { return nil },
		setFollowersFn:      func(context.Context, uint, int64) error { return nil },
		existsByUserEmailFn: func(context.Context, string, string) (bool, error) { return false, nil },
	}
}

type historyRepoStub struct {
	appendFn                func(context.Context, *models.HistoryItem) error
	listByUserFn            func(context.Context, uint, int, int) ([]*models.HistoryItem, error)
	deleteByIDFn            func(context.Context, uint, uint) error
	deleteByUserFn          func(context.Context, uint) error
	repairAuthorSnapshotsFn func(context.Context, uint, string) error
}

func (s *historyRepoStub) Append(ctx context.Context, item *models.HistoryItem) error {
	return s.appendFn(ctx, item)
}
func (s *historyRepoStub) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.HistoryItem, error) {
	return s.listByUserFn(ctx, userID, limit, offset)
}
func (s *historyRepoStub) DeleteByID(ctx context.Context, userID, itemID uint) error {
	return s.deleteByIDFn(ctx, userID, itemID)
}
func (s *historyRepoStub) DeleteByUser(ctx context.Context, userID uint) error {
	return s.deleteByUserFn(ctx, userID)
}
func (s *historyRepoStub) RepairAuthorSnapshots(ctx context.Context, authorID uint, username string) error {
	return s.repairAuthorSnapshotsFn(ctx, authorID, username)
}

func noopHistoryRepo() *historyRepoStub {
	return &historyRepoStub{
		appendFn:                func(context.Context, *models.HistoryItem) error { return nil },
		listByUserFn:            func(context.Context, uint, int, int) ([]*models.HistoryItem, error) { return nil, nil },
		deleteByIDFn:            func(context.Context, uint, uint) error { return nil },
		deleteByUserFn:          func(context.Context, uint) error { return nil },
		repairAuthorSnapshotsFn: func(context.Context, uint, string) error { return nil },
	}
}

type followRepoStub struct {
	createFn          func(context.Context, *models.Follow) error
	deleteFn          func(context.Context, uint, uint) error
	existsFn          func(context.Context, uint, uint) (bool, error)
	listFollowersFn   func(context.Context, uint, int, int) ([]*models.Follow, error)
	listFollowingFn   func(context.Context, uint, int, int) ([]*models.Follow, error)
	repairSnapshotsFn func(context.Context, models.UserSnapshot) error
	countFollowersFn  func(context.Context, uint) (int64, error)
}

func (s *followRepoStub) Create(ctx context.Context, follow *models.Follow) error {
	return s.createFn(ctx, follow)
}
func (s *followRepoStub) Delete(ctx context.Context, followerID, followingID uint) error {
	return s.deleteFn(ctx, followerID, followingID)
}
func (s *followRepoStub) Exists(ctx context.Context, followerID, followingID uint) (bool, error) {
	return s.existsFn(ctx, followerID, followingID)
}
func (s *followRepoStub) ListFollowers(ctx context.Context, userID uint, limit, offset int) ([]*models.Follow, error) {
	return s.listFollowersFn(ctx, userID, limit, offset)
}
func (s *followRepoStub) ListFollowing(ctx context.Context, userID uint, limit, offset int) ([]*models.Follow, error) {
	return s.listFollowingFn(ctx, userID, limit, offset)
}
func (s *followRepoStub) RepairSnapshots(ctx context.Context, snapshot models.UserSnapshot) error {
	return s.repairSnapshotsFn(ctx, snapshot)
}
func (s *followRepoStub) CountFollowers(ctx context.Context, userID uint) (int64, error) {
	return s.countFollowersFn(ctx, userID)
}

func noopFollowRepo() *followRepoStub {
	return &followRepoStub{
		createFn:          func(context.Context, *models.Follow) error { return nil },
		deleteFn:          func(context.Context, uint, uint) error { return nil },
		existsFn:          func(context.Context, uint, uint) (bool, error) { return false, nil },
		listFollowersFn:   func(context.Context, uint, int, int) ([]*models.Follow, error) { return nil, nil },
		listFollowingFn:   func(context.Context, uint, int, int) ([]*models.Follow, error) { return nil, nil },
		repairSnapshotsFn: func(context.Context, models.UserSnapshot) error { return nil },
		countFollowersFn:  func(context.Context, uint) (int64, error) { return 0, nil },
	}
}

// counterRecorder collects Increment calls; safe for concurrent use since
// several service paths fan counter writes out to goroutines.
type counterRecorder struct {
	mu    sync.Mutex
	calls []counterCall
}

type counterCall struct {
	id      uint
	counter string
	delta   int
}

func (r *counterRecorder) record(id uint, counter string, delta int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, counterCall{id: id, counter: counter, delta: delta})
}

func (r *counterRecorder) total(counter string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := 0
	for _, c := range r.calls {
		if c.counter == counter {
			sum += c.delta
		}
	}
	return sum
}

func (r *counterRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}
