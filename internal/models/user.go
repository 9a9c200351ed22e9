// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Roles a user can hold. Admin satisfies every role check; author satisfies
// author-or-admin checks.
const (
	RoleUser   = "user"
	RoleAuthor = "author"
	RoleAdmin  = "admin"
)

// User represents an account on the platform. Email is stored lowercase and
// unique. Deactivation (IsActive=false) is the delete contract; rows are never
// physically erased.
type User struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	Name        string            `gorm:"not null" json:"name"`
	Username    string            `gorm:"uniqueIndex" json:"username"`
	Email       string            `gorm:"uniqueIndex;not null" json:"email"`
	Password    string            `gorm:"not null" json:"-"`
	Bio         string            `json:"bio"`
	ProfilePic  string            `json:"profile_pic"`
	SocialLinks datatypes.JSONMap `json:"social_links"`
	Role        string            `gorm:"not null;default:user" json:"role"`
	IsActive    bool              `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	DeletedAt   gorm.DeletedAt    `gorm:"index" json:"-"`
	Posts       []Post            `gorm:"foreignKey:AuthorID" json:"posts,omitempty"`
}

// CanAuthor reports whether the user may create posts.
func (u *User) CanAuthor() bool {
	return u.Role == RoleAuthor || u.Role == RoleAdmin
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// PublicProfile is the projection exposed on public author pages.
type PublicProfile struct {
	ID          uint              `json:"id"`
	Name        string            `json:"name"`
	Username    string            `json:"username"`
	Bio         string            `json:"bio"`
	ProfilePic  string            `json:"profile_pic"`
	SocialLinks datatypes.JSONMap `json:"social_links"`
}

// Public returns the user's public projection.
func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:          u.ID,
		Name:        u.Name,
		Username:    u.Username,
		Bio:         u.Bio,
		ProfilePic:  u.ProfilePic,
		SocialLinks: u.SocialLinks,
	}
}
