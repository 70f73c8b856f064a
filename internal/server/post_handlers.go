package server

import (
	"encoding/json"

	"scribio/internal/models"
	"scribio/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetPosts handles GET /api/posts?page=0&search=...
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page, err := s.postService.List(c.UserContext(), pageParam(c), c.Query("search"))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(page)
}

// GetPostIDs handles GET /api/posts/ids
func (s *Server) GetPostIDs(c *fiber.Ctx) error {
	ids, err := s.postService.IDs(c.UserContext())
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(ids)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.Get(c.UserContext(), id)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(post)
}

// CreatePost handles POST /api/posts. The request is multipart: a "title"
// field, a "content" field holding the editor block JSON and an optional
// "thumbnail" file.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID := s.currentUserID(c)

	content, err := parseContentField(c.FormValue("content"))
	if err != nil {
		return models.RespondWithError(c, err)
	}

	thumbnail, err := formFileBytes(c, "thumbnail")
	if err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid thumbnail upload"))
	}

	post, err := s.postService.Create(c.UserContext(), userID, service.CreatePostInput{
		Title:     c.FormValue("title"),
		Content:   *content,
		Thumbnail: thumbnail,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PATCH /api/posts/:id. Fields absent from the form keep
// their current values.
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	userID := s.currentUserID(c)

	in := service.UpdatePostInput{Title: c.FormValue("title")}

	if raw := c.FormValue("content"); raw != "" {
		content, err := parseContentField(raw)
		if err != nil {
			return models.RespondWithError(c, err)
		}
		in.Content = content
	}

	thumbnail, err := formFileBytes(c, "thumbnail")
	if err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid thumbnail upload"))
	}
	in.Thumbnail = thumbnail

	post, err := s.postService.Update(c.UserContext(), userID, id, in)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	userID := s.currentUserID(c)

	if err := s.postService.Delete(c.UserContext(), userID, id); err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Post deleted"})
}

// UploadEditorImage handles POST /api/posts/upload
func (s *Server) UploadEditorImage(c *fiber.Ctx) error {
	fh, err := c.FormFile("image")
	if err != nil {
		return models.RespondWithError(c, models.NewValidationError("Image file is required"))
	}
	raw, err := readMultipartFile(fh)
	if err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid image upload"))
	}

	img, err := s.postService.UploadEditorImage(c.UserContext(), raw)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	// Editor.js image tool response shape
	return c.JSON(fiber.Map{
		"success": 1,
		"file":    img,
	})
}

// UploadEditorImageByURL handles POST /api/posts/upload-by-url
func (s *Server) UploadEditorImageByURL(c *fiber.Ctx) error {
	var req struct {
		URL string `json:"url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}
	if req.URL == "" {
		return models.RespondWithError(c, models.NewValidationError("Image URL is required"))
	}

	img, err := s.postService.UploadEditorImageByURL(c.UserContext(), req.URL)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": 1,
		"file":    img,
	})
}

func parseContentField(raw string) (*models.PostContent, error) {
	if raw == "" {
		return nil, models.NewValidationError("Content is required")
	}
	var content models.PostContent
	if err := json.Unmarshal([]byte(raw), &content); err != nil {
		return nil, models.NewValidationError("Invalid content JSON")
	}
	return &content, nil
}
