package service

import (
	"context"
	"sync"
	"testing"

	"scribio/internal/cache"
	"scribio/internal/config"
	"scribio/internal/models"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mailerStub struct {
	mu    sync.Mutex
	codes map[string]int
}

func newMailerStub() *mailerStub {
	return &mailerStub{codes: make(map[string]int)}
}

func (m *mailerStub) SendVerificationCode(to string, code int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[to] = code
	return nil
}

func (m *mailerStub) SendPasswordResetCode(to string, code int) error {
	return m.SendVerificationCode(to, code)
}

func (m *mailerStub) codeFor(to string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[to]
}

func newAuthService(t *testing.T, users *userRepoStub) (*AuthService, *mailerStub) {
	t.Helper()

	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	mailer := newMailerStub()
	cfg := &config.Config{JWTSecret: "test-secret-0123456789abcdef0123456789"}
	return NewAuthService(users, cache.NewVerificationStore(), mailer, cfg), mailer
}

func TestSignup_TwoPhase(t *testing.T) {
	var created *models.User
	users := noopUserRepo()
	users.existsByUserEmailFn = func(context.Context, string, string) (bool, error) { return false, nil }
	users.createFn = func(_ context.Context, u *models.User) error {
		u.ID = 1
		created = u
		return nil
	}

	svc, mailer := newAuthService(t, users)
	ctx := context.Background()

	require.NoError(t, svc.SignupInit(ctx, "new_user", "New@Example.com", "secret1"))

	code := mailer.codeFor("new@example.com")
	require.GreaterOrEqual(t, code, 10000)
	require.LessOrEqual(t, code, 99999)

	user, tokens, err := svc.SignupFinish(ctx, "new@example.com", code)
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.Equal(t, "new_user", user.Username)
	assert.Equal(t, "new@example.com", user.Email)
	assert.NotEmpty(t, user.Avatar.URL)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("secret1")))
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
}

func TestSignupFinish_WrongCode(t *testing.T) {
	users := noopUserRepo()
	svc, mailer := newAuthService(t, users)
	ctx := context.Background()

	require.NoError(t, svc.SignupInit(ctx, "new_user", "new@example.com", "secret1"))
	wrong := mailer.codeFor("new@example.com") + 1

	_, _, err := svc.SignupFinish(ctx, "new@example.com", wrong)
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestSignupInit_TakenIsConflict(t *testing.T) {
	users := noopUserRepo()
	users.existsByUserEmailFn = func(context.Context, string, string) (bool, error) { return true, nil }

	svc, _ := newAuthService(t, users)
	err := svc.SignupInit(context.Background(), "new_user", "new@example.com", "secret1")
	require.Error(t, err)
	assert.True(t, models.IsConflict(err))
}

func TestSignupInit_RepeatedInitOverwritesCode(t *testing.T) {
	users := noopUserRepo()
	svc, mailer := newAuthService(t, users)
	ctx := context.Background()

	require.NoError(t, svc.SignupInit(ctx, "new_user", "new@example.com", "secret1"))
	first := mailer.codeFor("new@example.com")

	// retry until the freshly drawn code differs, then the parked payload
	// must only accept the newest one
	var second int
	for i := 0; i < 50; i++ {
		require.NoError(t, svc.SignupInit(ctx, "new_user", "new@example.com", "secret1"))
		second = mailer.codeFor("new@example.com")
		if second != first {
			break
		}
	}
	if second == first {
		t.Skip("could not draw a distinct code")
	}

	_, _, err := svc.SignupFinish(ctx, "new@example.com", first)
	assert.Error(t, err, "older code must be invalid after re-init")

	_, _, err = svc.SignupFinish(ctx, "new@example.com", second)
	assert.NoError(t, err)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("right"), bcrypt.DefaultCost)
	require.NoError(t, err)

	users := noopUserRepo()
	users.getByEmailFn = func(context.Context, string) (*models.User, error) {
		return &models.User{ID: 1, Password: string(hash)}, nil
	}

	svc, _ := newAuthService(t, users)
	_, _, err = svc.Login(context.Background(), "a@b.c", "wrong")
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "UNAUTHORIZED", appErr.Code)
}

func TestLogin_UnknownEmailDoesNotLeak(t *testing.T) {
	users := noopUserRepo()
	users.getByEmailFn = func(context.Context, string) (*models.User, error) {
		return nil, models.NewNotFoundError("User")
	}

	svc, _ := newAuthService(t, users)
	_, _, err := svc.Login(context.Background(), "a@b.c", "whatever")
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "UNAUTHORIZED", appErr.Code)
	assert.Equal(t, "Invalid credentials", appErr.Message)
}

func TestRefresh_RoundTrip(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.DefaultCost)
	require.NoError(t, err)

	users := noopUserRepo()
	users.getByEmailFn = func(context.Context, string) (*models.User, error) {
		return &models.User{ID: 5, Password: string(hash)}, nil
	}
	users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		return &models.User{ID: id}, nil
	}

	svc, _ := newAuthService(t, users)
	_, pair, err := svc.Login(context.Background(), "a@b.c", "secret1")
	require.NoError(t, err)

	user, fresh, err := svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, uint(5), user.ID)
	assert.NotEmpty(t, fresh.AccessToken)
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	users := noopUserRepo()
	svc, _ := newAuthService(t, users)

	pair, err := svc.issueTokens(5)
	require.NoError(t, err)

	_, _, err = svc.Refresh(context.Background(), pair.AccessToken)
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "UNAUTHORIZED", appErr.Code)
}

func TestPasswordReset_Flow(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("old-pass"), bcrypt.DefaultCost)
	require.NoError(t, err)

	account := &models.User{ID: 3, Email: "ann@example.com", Password: string(hash)}
	users := noopUserRepo()
	users.getByEmailFn = func(context.Context, string) (*models.User, error) { return account, nil }
	users.updateFn = func(_ context.Context, u *models.User) error {
		account = u
		return nil
	}

	svc, mailer := newAuthService(t, users)
	ctx := context.Background()

	require.NoError(t, svc.PasswordResetInit(ctx, "ann@example.com"))
	code := mailer.codeFor("ann@example.com")

	assert.Error(t, svc.PasswordResetCheck(ctx, "ann@example.com", code+1))
	require.NoError(t, svc.PasswordResetCheck(ctx, "ann@example.com", code))

	_, tokens, err := svc.PasswordResetFinish(ctx, "ann@example.com", code, "new-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(account.Password), []byte("new-pass")))
}

func TestEmailUpdate_Flow(t *testing.T) {
	account := &models.User{ID: 3, Email: "old@example.com"}
	users := noopUserRepo()
	users.getByEmailFn = func(context.Context, string) (*models.User, error) {
		return nil, models.NewNotFoundError("User")
	}
	users.getByIDFn = func(context.Context, uint) (*models.User, error) { return account, nil }
	users.updateFn = func(_ context.Context, u *models.User) error {
		account = u
		return nil
	}

	svc, mailer := newAuthService(t, users)
	ctx := context.Background()

	require.NoError(t, svc.EmailUpdateInit(ctx, 3, "fresh@example.com"))
	code := mailer.codeFor("fresh@example.com")

	user, err := svc.EmailUpdateFinish(ctx, 3, code)
	require.NoError(t, err)
	assert.Equal(t, "fresh@example.com", user.Email)
}

func TestEmailUpdateInit_TakenIsConflict(t *testing.T) {
	users := noopUserRepo()
	users.getByEmailFn = func(context.Context, string) (*models.User, error) {
		return &models.User{ID: 9}, nil
	}

	svc, _ := newAuthService(t, users)
	err := svc.EmailUpdateInit(context.Background(), 3, "taken@example.com")
	require.Error(t, err)
	assert.True(t, models.IsConflict(err))
}
