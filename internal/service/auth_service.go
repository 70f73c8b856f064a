package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"scribio/internal/cache"
	"scribio/internal/config"
	"scribio/internal/mail"
	"scribio/internal/models"
	"scribio/internal/repository"
	"scribio/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

// Token lifetimes. The refresh token lives in an http-only cookie; the
// access token is returned in the response body.
const (
	AccessTokenTTL  = 20 * time.Minute
	RefreshTokenTTL = 60 * 24 * time.Hour
)

const googleUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// TokenPair is an access/refresh token pair issued on login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"-"`
}

// AuthService provides signup, login, token and verification-code flows.
// Signup, password reset and email change are two-phase: the first call
// parks a payload with a 5-digit code in Redis and mails the code, the
// second verifies the code and applies the change. A repeated init simply
// overwrites the parked payload.
type AuthService struct {
	userRepo repository.UserRepository
	codes    *cache.VerificationStore
	mailer   mail.Sender
	cfg      *config.Config
}

// NewAuthService returns a new AuthService.
func NewAuthService(userRepo repository.UserRepository, codes *cache.VerificationStore, mailer mail.Sender, cfg *config.Config) *AuthService {
	return &AuthService{userRepo: userRepo, codes: codes, mailer: mailer, cfg: cfg}
}

// SignupInit validates the registration, parks it in Redis and mails the
// confirmation code. No user row exists until SignupFinish.
func (s *AuthService) SignupInit(ctx context.Context, username, email, password string) error {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if err := validation.ValidateUsername(username); err != nil {
		return models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(password); err != nil {
		return models.NewValidationError(err.Error())
	}

	taken, err := s.userRepo.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return err
	}
	if taken {
		return models.NewConflictError("Username or email already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.NewInternalError(err)
	}

	code := newConfirmationCode()
	return fanOut(ctx,
		func(ctx context.Context) error {
			return s.codes.SetPendingSignup(ctx, cache.PendingSignup{
				Username:         username,
				Email:            email,
				PasswordHash:     string(hash),
				ConfirmationCode: code,
			})
		},
		func(ctx context.Context) error {
			return s.mailer.SendVerificationCode(email, code)
		},
	)
}

// SignupFinish verifies the mailed code and creates the account.
func (s *AuthService) SignupFinish(ctx context.Context, email string, code int) (*models.User, *TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	pending, err := s.codes.GetPendingSignup(ctx, email)
	if err != nil {
		return nil, nil, models.NewInternalError(err)
	}
	if pending == nil || pending.ConfirmationCode != code {
		return nil, nil, models.NewValidationError("Invalid verification code")
	}

	user := &models.User{
		Username:     pending.Username,
		Email:        pending.Email,
		Password:     pending.PasswordHash,
		Avatar:       defaultAvatar(pending.Username),
		RegisterDate: time.Now(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, nil, err
	}

	tokens, err := s.issueTokens(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// Login authenticates by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, nil, models.NewUnauthorizedError("Invalid credentials")
		}
		return nil, nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, nil, models.NewUnauthorizedError("Invalid credentials")
	}

	tokens, err := s.issueTokens(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// Refresh exchanges a valid refresh token for a fresh pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.User, *TokenPair, error) {
	userID, err := s.parseRefreshToken(refreshToken)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, nil, models.NewUnauthorizedError("Invalid refresh token")
		}
		return nil, nil, err
	}

	tokens, err := s.issueTokens(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// googleProfile is the subset of the userinfo response we use.
type googleProfile struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// GoogleLogin signs in with a Google access token obtained by the frontend.
// An unknown email registers a fresh account on the fly.
func (s *AuthService) GoogleLogin(ctx context.Context, accessToken string) (*models.User, *TokenPair, error) {
	profile, err := s.fetchGoogleProfile(ctx, accessToken)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, profile.Email)
	if err == nil {
		tokens, err := s.issueTokens(user.ID)
		if err != nil {
			return nil, nil, err
		}
		return user, tokens, nil
	}
	if !models.IsNotFound(err) {
		return nil, nil, err
	}

	// Google accounts have no local password; an unguessable random one
	// keeps the password login path closed.
	randomPassword, err := bcrypt.GenerateFromPassword([]byte(strconv.FormatInt(time.Now().UnixNano(), 36)+strconv.Itoa(newConfirmationCode())), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, models.NewInternalError(err)
	}

	user = &models.User{
		Username:     googleUsername(profile),
		Email:        profile.Email,
		Password:     string(randomPassword),
		Avatar:       models.ImageData{URL: profile.Picture},
		RegisterDate: time.Now(),
	}
	if user.Avatar.URL == "" {
		user.Avatar = defaultAvatar(user.Username)
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, nil, err
	}

	tokens, err := s.issueTokens(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

func (s *AuthService) fetchGoogleProfile(ctx context.Context, accessToken string) (*googleProfile, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	resp, err := client.Get(googleUserinfoURL)
	if err != nil {
		return nil, models.NewUpstreamError("Failed to reach Google", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, models.NewUnauthorizedError("Invalid Google token")
	}

	var profile googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, models.NewUpstreamError("Failed to decode Google profile", err)
	}
	profile.Email = strings.ToLower(strings.TrimSpace(profile.Email))
	if profile.Email == "" {
		return nil, models.NewUnauthorizedError("Google account has no email")
	}
	return &profile, nil
}

// PasswordResetInit mails a reset code to an existing account.
func (s *AuthService) PasswordResetInit(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := s.userRepo.GetByEmail(ctx, email); err != nil {
		return err
	}

	code := newConfirmationCode()
	return fanOut(ctx,
		func(ctx context.Context) error {
			return s.codes.SetPasswordReset(ctx, cache.PasswordReset{
				Email:            email,
				ConfirmationCode: code,
			})
		},
		func(ctx context.Context) error {
			return s.mailer.SendPasswordResetCode(email, code)
		},
	)
}

// PasswordResetCheck verifies the code without consuming it, so the frontend
// can gate the new-password form.
func (s *AuthService) PasswordResetCheck(ctx context.Context, email string, code int) error {
	email = strings.ToLower(strings.TrimSpace(email))
	pending, err := s.codes.GetPasswordReset(ctx, email)
	if err != nil {
		return models.NewInternalError(err)
	}
	if pending == nil || pending.ConfirmationCode != code {
		return models.NewValidationError("Invalid verification code")
	}
	return nil
}

// PasswordResetFinish verifies the code, rewrites the password hash and logs
// the user in.
func (s *AuthService) PasswordResetFinish(ctx context.Context, email string, code int, newPassword string) (*models.User, *TokenPair, error) {
	if err := s.PasswordResetCheck(ctx, email, code); err != nil {
		return nil, nil, err
	}
	if err := validation.ValidatePassword(newPassword); err != nil {
		return nil, nil, models.NewValidationError(err.Error())
	}

	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, models.NewInternalError(err)
	}
	user.Password = string(hash)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, nil, err
	}

	tokens, err := s.issueTokens(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// EmailUpdateInit mails a code to the new address and parks the change.
func (s *AuthService) EmailUpdateInit(ctx context.Context, userID uint, newEmail string) error {
	newEmail = strings.ToLower(strings.TrimSpace(newEmail))
	if err := validation.ValidateEmail(newEmail); err != nil {
		return models.NewValidationError(err.Error())
	}

	if _, err := s.userRepo.GetByEmail(ctx, newEmail); err == nil {
		return models.NewConflictError("Email already taken")
	} else if !models.IsNotFound(err) {
		return err
	}

	code := newConfirmationCode()
	return fanOut(ctx,
		func(ctx context.Context) error {
			return s.codes.SetEmailUpdate(ctx, cache.EmailUpdate{
				UserID:           userID,
				NewEmail:         newEmail,
				ConfirmationCode: code,
			})
		},
		func(ctx context.Context) error {
			return s.mailer.SendVerificationCode(newEmail, code)
		},
	)
}

// EmailUpdateFinish verifies the code and applies the parked address.
func (s *AuthService) EmailUpdateFinish(ctx context.Context, userID uint, code int) (*models.User, error) {
	pending, err := s.codes.GetEmailUpdate(ctx, userID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if pending == nil || pending.ConfirmationCode != code {
		return nil, models.NewValidationError("Invalid verification code")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Email = pending.NewEmail
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) issueTokens(userID uint) (*TokenPair, error) {
	access, err := s.signToken(userID, "access", AccessTokenTTL)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	refresh, err := s.signToken(userID, "refresh", RefreshTokenTTL)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) signToken(userID uint, typ string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"typ": typ,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *AuthService) parseRefreshToken(tokenString string) (uint, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, models.NewUnauthorizedError("Invalid refresh token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["typ"] != "refresh" {
		return 0, models.NewUnauthorizedError("Invalid refresh token")
	}
	sub, _ := claims["sub"].(string)
	userID, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || userID == 0 {
		return 0, models.NewUnauthorizedError("Invalid refresh token")
	}
	return uint(userID), nil
}

// newConfirmationCode returns a 5-digit code in [10000, 99999].
func newConfirmationCode() int {
	return 10000 + rand.Intn(90000)
}

// defaultAvatar points at a deterministic generated identicon; no object of
// ours backs it, so Key stays empty.
func defaultAvatar(username string) models.ImageData {
	return models.ImageData{
		URL: "https://api.dicebear.com/7.x/identicon/svg?seed=" + url.QueryEscape(username),
	}
}

// googleUsername derives a username from the Google profile, suffixed to
// dodge collisions with existing accounts.
func googleUsername(profile *googleProfile) string {
	base := strings.ReplaceAll(strings.TrimSpace(profile.Name), " ", "_")
	if base == "" {
		base = strings.SplitN(profile.Email, "@", 2)[0]
	}
	return fmt.Sprintf("%s_%04d", base, rand.Intn(10000))
}
