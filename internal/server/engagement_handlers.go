package server

import (
	"scribio/internal/models"

	"github.com/gofiber/fiber/v2"
)

// LikePost handles POST /api/posts/:id/like
func (s *Server) LikePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.engagementService.LikePost(c.UserContext(), s.currentUserID(c), id); err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post liked"})
}

// DislikePost handles POST /api/posts/:id/dislike
func (s *Server) DislikePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.engagementService.DislikePost(c.UserContext(), s.currentUserID(c), id); err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post disliked"})
}

// RemoveAppreciation handles DELETE /api/posts/:id/appreciation
func (s *Server) RemoveAppreciation(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.engagementService.RemoveAppreciation(c.UserContext(), s.currentUserID(c), id); err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Appreciation removed"})
}

// SavePost handles POST /api/posts/:id/save
func (s *Server) SavePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.engagementService.SavePost(c.UserContext(), s.currentUserID(c), id); err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post saved"})
}

// UnsavePost handles DELETE /api/posts/:id/save
func (s *Server) UnsavePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.engagementService.UnsavePost(c.UserContext(), s.currentUserID(c), id); err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post unsaved"})
}

// RegisterView handles POST /api/posts/:id/view. Anonymous views count
// towards the post; signed-in views additionally land in reading history.
func (s *Server) RegisterView(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.engagementService.RegisterView(c.UserContext(), s.currentUserID(c), id); err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{"message": "View registered"})
}

// GetPostMetrics handles GET /api/posts/:id/metrics. With a valid token the
// response includes the viewer's own appreciation and save state.
func (s *Server) GetPostMetrics(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	metrics, err := s.engagementService.Metrics(c.UserContext(), s.currentUserID(c), id)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(metrics)
}
