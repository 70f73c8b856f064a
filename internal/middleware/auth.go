package middleware

import (
	"context"
	"strconv"
	"strings"

	"scribio/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var cfg *config.Config

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

// userIDFromToken validates the bearer token and returns the user ID from
// the "sub" claim.
func userIDFromToken(tokenString string) (uint, bool) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, false
	}

	// Refresh tokens only travel through the refresh cookie, never the
	// Authorization header.
	if typ, ok := claims["typ"].(string); !ok || typ != "access" {
		return 0, false
	}

	subStr, ok := claims["sub"].(string)
	if !ok {
		return 0, false
	}

	userID, err := strconv.ParseUint(subStr, 10, 32)
	if err != nil {
		return 0, false
	}

	return uint(userID), true
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// AuthRequired is a middleware that enforces authentication for protected routes.
func AuthRequired(c *fiber.Ctx) error {
	token, ok := bearerToken(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authorization header required",
		})
	}

	userID, ok := userIDFromToken(token)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or expired token",
		})
	}

	c.Locals("userID", userID)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))
	return c.Next()
}

// AuthOptional resolves the user when a valid bearer token is present but
// lets anonymous requests through. Used by view registration and metrics
// endpoints, which behave differently for authenticated readers.
func AuthOptional(c *fiber.Ctx) error {
	if token, ok := bearerToken(c); ok {
		if userID, valid := userIDFromToken(token); valid {
			c.Locals("userID", userID)
			c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))
		}
	}
	return c.Next()
}

// CurrentUserID returns the authenticated user's ID from locals, or 0 for
// anonymous requests.
func CurrentUserID(c *fiber.Ctx) uint {
	if uid, ok := c.Locals("userID").(uint); ok {
		return uid
	}
	return 0
}
