package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// ContentBlock is a single editor block of a post body (paragraph, header,
// quote, code, image, ...). Data is the tool-specific payload.
type ContentBlock struct {
	ID    string                 `json:"id,omitempty"`
	Type  string                 `json:"type"`
	Data  map[string]interface{} `json:"data"`
	Tunes map[string]interface{} `json:"tunes,omitempty"`
}

// Block types the backend inspects for preview, narration and read-time
// estimation. Unknown types are stored verbatim and otherwise ignored.
const (
	BlockTypeParagraph = "paragraph"
	BlockTypeHeader    = "header"
	BlockTypeQuote     = "quote"
	BlockTypeCode      = "code"
)

// PostContent is the full block-structured post body, stored as a single
// JSONB column.
type PostContent struct {
	Time    int64          `json:"time,omitempty"`
	Version string         `json:"version,omitempty"`
	Blocks  []ContentBlock `json:"blocks"`
}

// Value implements driver.Valuer so gorm can persist the content as JSONB.
func (c PostContent) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner.
func (c *PostContent) Scan(value interface{}) error {
	if value == nil {
		*c = PostContent{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return errors.New("unsupported type for PostContent")
	}
}

// Text returns the block's primary text payload, if any.
func (b ContentBlock) Text() string {
	if s, ok := b.Data["text"].(string); ok {
		return s
	}
	return ""
}

// Caption returns the block's caption payload (quote blocks), if any.
func (b ContentBlock) Caption() string {
	if s, ok := b.Data["caption"].(string); ok {
		return s
	}
	return ""
}

// Code returns the block's code payload (code blocks), if any.
func (b ContentBlock) Code() string {
	if s, ok := b.Data["code"].(string); ok {
		return s
	}
	return ""
}

// Post is a published article.
//
// Likes, Dislikes, Saves and Views are denormalized counters projected from
// the appreciations and saves tables (and from view registrations, which are
// not deduplicated). The engagement service is the sole writer of these
// fields. Author is a snapshot taken at publish time and bulk-repaired on
// profile edits.
type Post struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Title          string         `gorm:"not null" json:"title"`
	Content        PostContent    `gorm:"type:jsonb;not null" json:"content,omitempty"`
	PreviewContent string         `gorm:"type:text" json:"preview_content"`
	TimeToRead     string         `json:"time_to_read"`
	Thumbnail      ImageData      `gorm:"embedded;embeddedPrefix:thumbnail_" json:"thumbnail"`
	Audio          AudioData      `gorm:"embedded;embeddedPrefix:audio_" json:"audio"`
	Author         UserSnapshot   `gorm:"embedded;embeddedPrefix:author_" json:"author"`
	Likes          int64          `gorm:"not null;default:0" json:"likes"`
	Dislikes       int64          `gorm:"not null;default:0" json:"dislikes"`
	Saves          int64          `gorm:"not null;default:0" json:"saves"`
	Views          int64          `gorm:"not null;default:0" json:"views"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// PostMetrics is the counter projection of a post, optionally enriched with
// the requesting user's own appreciation and saved state.
type PostMetrics struct {
	Likes            int64  `json:"likes"`
	Dislikes         int64  `json:"dislikes"`
	Saves            int64  `json:"saves"`
	Views            int64  `json:"views"`
	UserAppreciation string `json:"user_appreciation,omitempty"`
	IsSaved          bool   `json:"is_saved"`
}
