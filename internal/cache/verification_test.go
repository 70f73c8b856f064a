package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*VerificationStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return NewVerificationStore(), mr
}

func TestPendingSignup_RoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	parked := PendingSignup{
		Username:         "ann",
		Email:            "ann@example.com",
		PasswordHash:     "$2a$10$hash",
		ConfirmationCode: 12345,
	}
	require.NoError(t, store.SetPendingSignup(ctx, parked))

	got, err := store.GetPendingSignup(ctx, "ann@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, parked, *got)
}

func TestPendingSignup_MissingReturnsNil(t *testing.T) {
	store, _ := newTestStore(t)

	got, err := store.GetPendingSignup(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPendingSignup_Expires(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetPendingSignup(ctx, PendingSignup{Email: "ann@example.com", ConfirmationCode: 12345}))
	mr.FastForward(VerificationTTL + time.Second)

	got, err := store.GetPendingSignup(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPendingSignup_LastWriteWins(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetPendingSignup(ctx, PendingSignup{Email: "ann@example.com", ConfirmationCode: 11111}))
	require.NoError(t, store.SetPendingSignup(ctx, PendingSignup{Email: "ann@example.com", ConfirmationCode: 22222}))

	got, err := store.GetPendingSignup(ctx, "ann@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 22222, got.ConfirmationCode)
}

func TestPasswordReset_RoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetPasswordReset(ctx, PasswordReset{Email: "ann@example.com", ConfirmationCode: 54321}))

	got, err := store.GetPasswordReset(ctx, "ann@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 54321, got.ConfirmationCode)
}

func TestEmailUpdate_KeyedByUserID(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetEmailUpdate(ctx, EmailUpdate{UserID: 7, NewEmail: "fresh@example.com", ConfirmationCode: 33333}))

	got, err := store.GetEmailUpdate(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "fresh@example.com", got.NewEmail)

	other, err := store.GetEmailUpdate(ctx, 8)
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestVerification_PayloadsDoNotCollide(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetPendingSignup(ctx, PendingSignup{Email: "ann@example.com", ConfirmationCode: 11111}))
	require.NoError(t, store.SetPasswordReset(ctx, PasswordReset{Email: "ann@example.com", ConfirmationCode: 22222}))

	signup, err := store.GetPendingSignup(ctx, "ann@example.com")
	require.NoError(t, err)
	require.NotNil(t, signup)
	assert.Equal(t, 11111, signup.ConfirmationCode)

	reset, err := store.GetPasswordReset(ctx, "ann@example.com")
	require.NoError(t, err)
	require.NotNil(t, reset)
	assert.Equal(t, 22222, reset.ConfirmationCode)
}
