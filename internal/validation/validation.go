// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// ValidateUsername checks if a username meets requirements
func ValidateUsername(username string) error {
	if len(username) < 4 {
		return fmt.Errorf("username must be at least 4 characters long")
	}

	if len(username) > 30 {
		return fmt.Errorf("username must not exceed 30 characters")
	}

	// Only allow alphanumeric, underscores and hyphens
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers, underscores, and hyphens")
	}

	return nil
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if len(password) < 5 {
		return fmt.Errorf("password must be at least 5 characters long")
	}

	// Check maximum length (prevent unreasonable inputs)
	if len(password) > 128 {
		return fmt.Errorf("password must not exceed 128 characters")
	}

	return nil
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if len(email) > 254 {
		return fmt.Errorf("email must not exceed 254 characters")
	}

	if !emailRegex.MatchString(strings.ToLower(email)) {
		return fmt.Errorf("invalid email format")
	}

	return nil
}
