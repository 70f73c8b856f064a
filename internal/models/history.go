package models

import (
	"time"
)

// HistoryItem is one entry of a user's reading history. History is a log,
// not a set: every registered view of a post appends a new entry. The post
// title and author are snapshotted at view time so history still renders
// after the post changes; entries deliberately outlive deleted posts.
type HistoryItem struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	PostID         uint      `gorm:"not null" json:"post_id"`
	PostTitle      string    `gorm:"not null" json:"post_title"`
	AuthorID       uint      `gorm:"not null;index" json:"author_id"`
	AuthorUsername string    `gorm:"not null" json:"author_username"`
	ViewedAt       time.Time `gorm:"index" json:"viewed_at"`
}
