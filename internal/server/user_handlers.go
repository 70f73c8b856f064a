package server

import (
	"scribio/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetUserIDs handles GET /api/users/ids
func (s *Server) GetUserIDs(c *fiber.Ctx) error {
	ids, err := s.userService.IDs(c.UserContext())
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(ids)
}

// GetUserProfile handles GET /api/users/:id
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	profile, err := s.userService.PublicProfile(c.UserContext(), id)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(profile)
}

// GetUserDescription handles GET /api/users/:id/description
func (s *Server) GetUserDescription(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	description, err := s.userService.Description(c.UserContext(), id)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{"description": description})
}

// GetUserViews handles GET /api/users/:id/views
func (s *Server) GetUserViews(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	views, err := s.userService.TotalViews(c.UserContext(), id)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{"total_views": views})
}

// GetUserPosts handles GET /api/users/:id/posts?page=0&sort=newer
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	page, err := s.postService.ListByAuthor(c.UserContext(), id, pageParam(c), c.Query("sort"))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(page)
}

// GetUserPostIDs handles GET /api/users/:id/posts/ids
func (s *Server) GetUserPostIDs(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	ids, err := s.postService.IDsByAuthor(c.UserContext(), id)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(ids)
}

// GetUserFollowers handles GET /api/users/:id/followers?page=0
func (s *Server) GetUserFollowers(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	page, err := s.followService.Followers(c.UserContext(), id, pageParam(c))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(page)
}

// GetFollowStatus handles GET /api/users/:id/follow
func (s *Server) GetFollowStatus(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	following, err := s.followService.IsFollowing(c.UserContext(), s.currentUserID(c), id)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{"following": following})
}

// FollowUser handles POST /api/users/:id/follow
func (s *Server) FollowUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.followService.Follow(c.UserContext(), s.currentUserID(c), id); err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Followed"})
}

// UnfollowUser handles DELETE /api/users/:id/follow
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.followService.Unfollow(c.UserContext(), s.currentUserID(c), id); err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Unfollowed"})
}
