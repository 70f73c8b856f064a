// Package repository provides data access layer implementations for the application.
package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// isDuplicateKey reports whether err is a unique constraint violation. GORM
// translates this for postgres; the string checks cover sqlite in tests.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}
