package server

import (
	"time"

	"scribio/internal/middleware"
	"scribio/internal/models"
	"scribio/internal/service"

	"github.com/gofiber/fiber/v2"
)

const refreshCookieName = "refresh_token"

// setRefreshCookie stores the refresh token in an http-only cookie scoped to
// the auth endpoints. The token is never part of a JSON response body.
func (s *Server) setRefreshCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/api/auth",
		Expires:  time.Now().Add(service.RefreshTokenTTL),
		HTTPOnly: true,
		Secure:   s.config.Env == "production",
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *Server) clearRefreshCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/api/auth",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   s.config.Env == "production",
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *Server) respondWithSession(c *fiber.Ctx, status int, user *models.User, pair *service.TokenPair) error {
	s.setRefreshCookie(c, pair.RefreshToken)
	return c.Status(status).JSON(fiber.Map{
		"token": pair.AccessToken,
		"user":  user,
	})
}

// SignupInit handles POST /api/auth/signup/init
func (s *Server) SignupInit(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	if err := s.authService.SignupInit(c.UserContext(), req.Username, req.Email, req.Password); err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Verification code sent"})
}

// SignupFinish handles POST /api/auth/signup/finish
func (s *Server) SignupFinish(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
		Code  int    `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	user, pair, err := s.authService.SignupFinish(c.UserContext(), req.Email, req.Code)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return s.respondWithSession(c, fiber.StatusCreated, user, pair)
}

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	user, pair, err := s.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return s.respondWithSession(c, fiber.StatusOK, user, pair)
}

// Refresh handles GET /api/auth/refresh. The refresh token is only accepted
// from the cookie, never from the Authorization header.
func (s *Server) Refresh(c *fiber.Ctx) error {
	token := c.Cookies(refreshCookieName)
	if token == "" {
		return models.RespondWithError(c, models.NewUnauthorizedError("Refresh token required"))
	}

	user, pair, err := s.authService.Refresh(c.UserContext(), token)
	if err != nil {
		s.clearRefreshCookie(c)
		return models.RespondWithError(c, err)
	}

	return s.respondWithSession(c, fiber.StatusOK, user, pair)
}

// Logout handles POST /api/auth/logout
func (s *Server) Logout(c *fiber.Ctx) error {
	s.clearRefreshCookie(c)
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// GoogleLogin handles POST /api/auth/google
func (s *Server) GoogleLogin(c *fiber.Ctx) error {
	var req struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}
	if req.AccessToken == "" {
		return models.RespondWithError(c, models.NewValidationError("Access token is required"))
	}

	user, pair, err := s.authService.GoogleLogin(c.UserContext(), req.AccessToken)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return s.respondWithSession(c, fiber.StatusOK, user, pair)
}

// PasswordResetInit handles POST /api/auth/password-reset/init
func (s *Server) PasswordResetInit(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	if err := s.authService.PasswordResetInit(c.UserContext(), req.Email); err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Reset code sent"})
}

// PasswordResetCheck handles POST /api/auth/password-reset/check
func (s *Server) PasswordResetCheck(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
		Code  int    `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	if err := s.authService.PasswordResetCheck(c.UserContext(), req.Email, req.Code); err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Code valid"})
}

// PasswordResetFinish handles POST /api/auth/password-reset/finish
func (s *Server) PasswordResetFinish(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Code     int    `json:"code"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	user, pair, err := s.authService.PasswordResetFinish(c.UserContext(), req.Email, req.Code, req.Password)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return s.respondWithSession(c, fiber.StatusOK, user, pair)
}

// currentUserID returns the authenticated user ID set by the auth middleware.
func (s *Server) currentUserID(c *fiber.Ctx) uint {
	return middleware.CurrentUserID(c)
}
