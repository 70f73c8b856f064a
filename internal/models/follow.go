package models

import (
	"time"
)

// Follow records that one user follows another. Both sides are snapshotted
// (id, username, avatar) so follower/following listings need no join; the
// snapshots are bulk-repaired when either user edits their profile.
// The snapshots also carry the edge keys: follower_user_id and
// following_user_id form the unique index.
type Follow struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	Follower  UserSnapshot `gorm:"embedded;embeddedPrefix:follower_" json:"follower"`
	Following UserSnapshot `gorm:"embedded;embeddedPrefix:following_" json:"following"`
	CreatedAt time.Time    `json:"created_at"`
}
