package server

import (
	"scribio/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetProfile handles GET /api/profile
func (s *Server) GetProfile(c *fiber.Ctx) error {
	user, err := s.profileService.Get(c.UserContext(), s.currentUserID(c))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(user)
}

// UpdateAvatar handles PATCH /api/profile/avatar. The request is multipart
// with an "avatar" file field.
func (s *Server) UpdateAvatar(c *fiber.Ctx) error {
	fh, err := c.FormFile("avatar")
	if err != nil {
		return models.RespondWithError(c, models.NewValidationError("Avatar file is required"))
	}
	raw, err := readMultipartFile(fh)
	if err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid avatar upload"))
	}

	user, err := s.profileService.UpdateAvatar(c.UserContext(), s.currentUserID(c), raw)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(user)
}

// UpdateUsername handles PATCH /api/profile/username
func (s *Server) UpdateUsername(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	user, err := s.profileService.UpdateUsername(c.UserContext(), s.currentUserID(c), req.Username)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(user)
}

// UpdateDescription handles PATCH /api/profile/description
func (s *Server) UpdateDescription(c *fiber.Ctx) error {
	var req struct {
		Description string `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	user, err := s.profileService.UpdateDescription(c.UserContext(), s.currentUserID(c), req.Description)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(user)
}

// EmailUpdateInit handles PATCH /api/profile/email/init
func (s *Server) EmailUpdateInit(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	if err := s.authService.EmailUpdateInit(c.UserContext(), s.currentUserID(c), req.Email); err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Verification code sent"})
}

// EmailUpdateFinish handles PATCH /api/profile/email/finish
func (s *Server) EmailUpdateFinish(c *fiber.Ctx) error {
	var req struct {
		Code int `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	user, err := s.authService.EmailUpdateFinish(c.UserContext(), s.currentUserID(c), req.Code)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(user)
}

// GetHistory handles GET /api/profile/history?page=0
func (s *Server) GetHistory(c *fiber.Ctx) error {
	page, err := s.profileService.History(c.UserContext(), s.currentUserID(c), pageParam(c))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(page)
}

// DeleteHistoryItem handles DELETE /api/profile/history/:id
func (s *Server) DeleteHistoryItem(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.profileService.DeleteHistoryItem(c.UserContext(), s.currentUserID(c), id); err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{"message": "History item removed"})
}

// ClearHistory handles DELETE /api/profile/history
func (s *Server) ClearHistory(c *fiber.Ctx) error {
	if err := s.profileService.ClearHistory(c.UserContext(), s.currentUserID(c)); err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{"message": "History cleared"})
}

// GetSavedPosts handles GET /api/profile/saves?page=0
func (s *Server) GetSavedPosts(c *fiber.Ctx) error {
	page, err := s.profileService.SavedPosts(c.UserContext(), s.currentUserID(c), pageParam(c))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(page)
}

// GetMyFollowers handles GET /api/profile/followers?page=0
func (s *Server) GetMyFollowers(c *fiber.Ctx) error {
	page, err := s.followService.Followers(c.UserContext(), s.currentUserID(c), pageParam(c))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(page)
}

// GetMyFollowings handles GET /api/profile/followings?page=0
func (s *Server) GetMyFollowings(c *fiber.Ctx) error {
	page, err := s.followService.Followings(c.UserContext(), s.currentUserID(c), pageParam(c))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(page)
}
