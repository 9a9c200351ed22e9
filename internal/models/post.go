package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Post lifecycle states. "removed" is terminal: a removed post is excluded
// from every read path and cannot be restored through the API.
const (
	PostStatusDraft     = "draft"
	PostStatusPublished = "published"
	PostStatusRemoved   = "removed"
)

// Post represents an authored content unit. The slug is derived from the
// title at creation time and never regenerated afterwards, so shared links
// keep resolving across title edits.
type Post struct {
	ID         uint                        `gorm:"primaryKey" json:"id"`
	Title      string                      `gorm:"not null" json:"title"`
	Slug       string                      `gorm:"uniqueIndex;not null" json:"slug"`
	Content    string                      `gorm:"type:text;not null" json:"content"`
	CoverImage string                      `json:"cover_image"`
	Categories datatypes.JSONSlice[string] `json:"categories"`
	Tags       datatypes.JSONSlice[string] `json:"tags"`
	AuthorID   uint                        `gorm:"not null;index" json:"author_id"`
	Author     User                        `gorm:"foreignKey:AuthorID" json:"author"`
	Status     string                      `gorm:"not null;default:published;index" json:"status"`
	ViewCount  int64                       `gorm:"not null;default:0" json:"view_count"`
	ShareCount int64                       `gorm:"not null;default:0" json:"share_count"`
	// LikesCount is not persisted; computed at query time
	LikesCount int `gorm:"->" json:"likes_count"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int `gorm:"->" json:"comments_count"`
	// Liked indicates whether the current requesting user liked this post (computed)
	Liked     bool           `gorm:"->" json:"liked"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// PostAnalytics summarizes a post's engagement counters.
type PostAnalytics struct {
	Views    int64 `json:"views"`
	Likes    int64 `json:"likes"`
	Shares   int64 `json:"shares"`
	Comments int64 `json:"comments"`
}

// PostPage is the paginated listing envelope.
type PostPage struct {
	Posts      []Post `json:"posts"`
	Total      int64  `json:"total"`
	Page       int    `json:"page"`
	TotalPages int    `json:"total_pages"`
}
