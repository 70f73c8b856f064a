package models

import (
	"time"
)

// AppreciationTarget is the kind of entity an appreciation points at.
type AppreciationTarget string

const (
	// TargetPost marks an appreciation of a post.
	TargetPost AppreciationTarget = "post"
	// TargetComment marks an appreciation of a comment.
	TargetComment AppreciationTarget = "comment"
)

// AppreciationKind is the polarity of an appreciation.
type AppreciationKind string

const (
	// KindLike is a positive appreciation.
	KindLike AppreciationKind = "like"
	// KindDislike is a negative appreciation.
	KindDislike AppreciationKind = "dislike"
)

// Opposite returns the flipped polarity.
func (k AppreciationKind) Opposite() AppreciationKind {
	if k == KindLike {
		return KindDislike
	}
	return KindLike
}

// Appreciation records a user's like or dislike of a target. At most one
// record exists per (user, target, target type); switching polarity flips
// Kind in place rather than inserting a second row.
type Appreciation struct {
	ID         uint               `gorm:"primaryKey" json:"id"`
	UserID     uint               `gorm:"not null;uniqueIndex:idx_user_target" json:"user_id"`
	TargetID   uint               `gorm:"not null;uniqueIndex:idx_user_target" json:"target_id"`
	TargetType AppreciationTarget `gorm:"type:varchar(10);not null;uniqueIndex:idx_user_target" json:"target_type"`
	Kind       AppreciationKind   `gorm:"type:varchar(10);not null" json:"kind"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}
