package server

import (
	"errors"
	"io"
	"mime/multipart"

	"scribio/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, models.NewValidationError("Invalid ID"))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// pageParam extracts the 0-based page query parameter.
func pageParam(c *fiber.Ctx) int {
	page := c.QueryInt("page", 0)
	if page < 0 {
		page = 0
	}
	return page
}

// formFileBytes reads an optional multipart file field. A missing field
// yields nil bytes and no error.
func formFileBytes(c *fiber.Ctx, field string) ([]byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, nil
	}
	return readMultipartFile(fh)
}

func readMultipartFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
