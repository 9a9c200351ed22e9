package models

import (
	"time"

	"gorm.io/gorm"
)

// Subscription records a user's follow relationship to either an author or a
// category, exactly one of the two. Categories are
// stored lowercase so the (user, category) uniqueness check cannot be dodged
// by casing. Duplicate subscribes fail; they never upsert.
type Subscription struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"not null;uniqueIndex:idx_sub_user_author;uniqueIndex:idx_sub_user_category" json:"user_id"`
	AuthorID  *uint          `gorm:"uniqueIndex:idx_sub_user_author" json:"author_id,omitempty"`
	Category  *string        `gorm:"uniqueIndex:idx_sub_user_category" json:"category,omitempty"`
	User      User           `gorm:"foreignKey:UserID" json:"-"`
	Author    *User          `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
