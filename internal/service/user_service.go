package service

import (
	"context"
	"strings"

	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// UserService owns profile and account management logic.
type UserService struct {
	userRepo repository.UserRepository
	postRepo repository.PostRepository
}

type UpdateProfileInput struct {
	UserID      uint
	Name        string
	Username    string
	Bio         *string
	ProfilePic  *string
	SocialLinks map[string]interface{}
	Password    string
}

// AuthorPage is the public view of an author: profile plus their published
// posts.
type AuthorPage struct {
	Author models.PublicProfile `json:"author"`
	Posts  models.PostPage      `json:"posts"`
}

// NewUserService constructs a UserService.
func NewUserService(userRepo repository.UserRepository, postRepo repository.PostRepository) *UserService {
	return &UserService{userRepo: userRepo, postRepo: postRepo}
}

func (s *UserService) GetProfile(ctx context.Context, userID uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(in.Name) != "" {
		user.Name = strings.TrimSpace(in.Name)
	}
	if in.Username != "" && in.Username != user.Username {
		if err := validation.ValidateUsername(in.Username); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		existing, err := s.userRepo.GetByUsername(ctx, in.Username)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != user.ID {
			return nil, models.NewConflictError("Username already taken")
		}
		user.Username = in.Username
	}
	if in.Bio != nil {
		user.Bio = *in.Bio
	}
	if in.ProfilePic != nil {
		user.ProfilePic = *in.ProfilePic
	}
	if in.SocialLinks != nil {
		user.SocialLinks = in.SocialLinks
	}
	if in.Password != "" {
		if err := validation.ValidatePassword(in.Password); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		user.Password = string(hashed)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Deactivate disables an account. Callers deactivate themselves; admins may
// deactivate anyone. Deactivated users fail authentication on their next
// request.
func (s *UserService) Deactivate(ctx context.Context, actor *models.User, targetID uint) error {
	if actor.ID != targetID && !actor.IsAdmin() {
		return models.NewForbiddenError("You can only deactivate your own account")
	}
	return s.userRepo.Deactivate(ctx, targetID)
}

// GetAuthorPage returns an author's public profile with a page of their
// published posts. viewerID widens the page to drafts when the viewer is the
// author themselves.
func (s *UserService) GetAuthorPage(ctx context.Context, username string, page, limit int, viewerID uint) (*AuthorPage, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, models.NewNotFoundError("Author")
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	includeDrafts := viewerID == user.ID

	var result *AuthorPage
	build := func() error {
		posts, total, err := s.postRepo.ListByAuthor(ctx, user.ID, includeDrafts, limit, (page-1)*limit, viewerID)
		if err != nil {
			return err
		}
		totalPages := int((total + int64(limit) - 1) / int64(limit))
		result = &AuthorPage{
			Author: user.Public(),
			Posts: models.PostPage{
				Posts:      posts,
				Total:      total,
				Page:       page,
				TotalPages: totalPages,
			},
		}
		return nil
	}

	// Only the anonymous first page is cached; personalized views go straight
	// to the database.
	if viewerID == 0 && page == 1 {
		err = cache.Aside(ctx, cache.AuthorPageKey(user.ID), &result, cache.AuthorPageTTL, build)
	} else {
		err = build()
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListUsers returns a page of accounts for the admin console.
func (s *UserService) ListUsers(ctx context.Context, page, limit int) ([]models.User, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.userRepo.List(ctx, limit, (page-1)*limit)
}
