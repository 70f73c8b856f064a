package cache

import (
	"context"
	"strconv"
	"time"
)

// Key prefixes for verification payloads.
// IMPORTANT: if any prefix changes, already stored data becomes inaccessible.
const (
	signupPrefix        = "signup-cache:"
	passwordResetPrefix = "password-reset-cache:"
	emailUpdatePrefix   = "email-update-cache:"
)

// VerificationTTL bounds how long a confirmation code stays valid. Codes are
// single-use and a concurrent re-init simply overwrites the previous payload
// (last write wins).
const VerificationTTL = 15 * time.Minute

// PendingSignup is the signup payload parked in Redis until the email
// confirmation code comes back. Password is already bcrypt-hashed.
type PendingSignup struct {
	Username         string `json:"username"`
	Email            string `json:"email"`
	PasswordHash     string `json:"password_hash"`
	ConfirmationCode int    `json:"confirmation_code"`
}

// PasswordReset is the pending password-reset payload.
type PasswordReset struct {
	Email            string `json:"email"`
	ConfirmationCode int    `json:"confirmation_code"`
}

// EmailUpdate is the pending email-change payload, keyed by user ID.
type EmailUpdate struct {
	UserID           uint   `json:"user_id"`
	NewEmail         string `json:"new_email"`
	ConfirmationCode int    `json:"confirmation_code"`
}

// VerificationStore reads and writes short-lived verification payloads.
type VerificationStore struct{}

// NewVerificationStore returns a store backed by the package Redis client.
func NewVerificationStore() *VerificationStore {
	return &VerificationStore{}
}

// SetPendingSignup parks a signup payload under the applicant's email.
func (s *VerificationStore) SetPendingSignup(ctx context.Context, p PendingSignup) error {
	return SetJSON(ctx, signupPrefix+p.Email, p, VerificationTTL)
}

// GetPendingSignup returns the parked signup payload for the email, if any.
func (s *VerificationStore) GetPendingSignup(ctx context.Context, email string) (*PendingSignup, error) {
	var p PendingSignup
	found, err := GetJSON(ctx, signupPrefix+email, &p)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

// SetPasswordReset parks a password-reset payload under the account email.
func (s *VerificationStore) SetPasswordReset(ctx context.Context, p PasswordReset) error {
	return SetJSON(ctx, passwordResetPrefix+p.Email, p, VerificationTTL)
}

// GetPasswordReset returns the pending password-reset payload, if any.
func (s *VerificationStore) GetPasswordReset(ctx context.Context, email string) (*PasswordReset, error) {
	var p PasswordReset
	found, err := GetJSON(ctx, passwordResetPrefix+email, &p)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

// SetEmailUpdate parks an email-change payload under the user's ID.
func (s *VerificationStore) SetEmailUpdate(ctx context.Context, p EmailUpdate) error {
	return SetJSON(ctx, emailUpdatePrefix+itoa(p.UserID), p, VerificationTTL)
}

// GetEmailUpdate returns the pending email-change payload, if any.
func (s *VerificationStore) GetEmailUpdate(ctx context.Context, userID uint) (*EmailUpdate, error) {
	var p EmailUpdate
	found, err := GetJSON(ctx, emailUpdatePrefix+itoa(userID), &p)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
