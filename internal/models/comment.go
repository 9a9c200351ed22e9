package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment is a reply to a post. Comments live only in this table; post-level
// comment counts are computed at query time, never duplicated onto the post.
type Comment struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Content string `gorm:"not null" json:"content"`
	// Context is an optional free-form tag supplied by the client
	// (e.g. "question", "feedback"), stored lowercase.
	Context   string         `json:"context,omitempty"`
	UserID    uint           `gorm:"not null" json:"user_id"`
	PostID    uint           `gorm:"not null;index" json:"post_id"`
	User      User           `gorm:"foreignKey:UserID" json:"user"`
	Post      Post           `gorm:"foreignKey:PostID" json:"post,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
