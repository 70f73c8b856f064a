// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a user account in Scribio.
//
// Followers, Posts and TotalViews are denormalized counters maintained by
// the engagement and follow services; the authoritative values are derivable
// from the follows table and the posts table respectively.
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Username     string         `gorm:"unique;not null" json:"username"`
	Email        string         `gorm:"unique;not null" json:"email"`
	Password     string         `json:"-"`
	Description  string         `gorm:"type:text" json:"description"`
	Avatar       ImageData      `gorm:"embedded;embeddedPrefix:avatar_" json:"avatar"`
	Followers    int64          `gorm:"not null;default:0" json:"followers"`
	Posts        int64          `gorm:"not null;default:0" json:"posts"`
	TotalViews   int64          `gorm:"not null;default:0" json:"total_views"`
	RegisterDate time.Time      `json:"register_date"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// PublicProfile is the subset of User safe to return for other users.
type PublicProfile struct {
	ID           uint      `json:"id"`
	Username     string    `json:"username"`
	Avatar       ImageData `json:"avatar"`
	Description  string    `json:"description"`
	Followers    int64     `json:"followers"`
	Posts        int64     `json:"posts"`
	RegisterDate time.Time `json:"register_date"`
}

// PublicProfile returns the public view of the user.
func (u *User) PublicProfile() PublicProfile {
	return PublicProfile{
		ID:           u.ID,
		Username:     u.Username,
		Avatar:       u.Avatar,
		Description:  u.Description,
		Followers:    u.Followers,
		Posts:        u.Posts,
		RegisterDate: u.RegisterDate,
	}
}

// UserSnapshot is the denormalized (id, username, avatar) triple embedded in
// posts and follows. Snapshots are repaired in bulk when the user renames
// themselves or changes their avatar.
type UserSnapshot struct {
	UserID   uint      `json:"id"`
	Username string    `json:"username"`
	Avatar   ImageData `gorm:"embedded;embeddedPrefix:avatar_" json:"avatar"`
}

// Snapshot returns the denormalized author/follow representation of the user.
func (u *User) Snapshot() UserSnapshot {
	return UserSnapshot{UserID: u.ID, Username: u.Username, Avatar: u.Avatar}
}
