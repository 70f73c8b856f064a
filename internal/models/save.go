package models

import (
	"time"
)

// Save records that a user bookmarked a post. The (user, post) pair is
// unique; saving twice is a conflict, not a second row.
type Save struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_post_save" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_user_post_save" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}
