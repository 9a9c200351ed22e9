// Package service implements the application's business logic on top of the
// repository layer.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"inkwell/internal/cache"
	"inkwell/internal/featureflags"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/validation"
)

const maxSlugAttempts = 50

// PostService owns post lifecycle, listing and engagement logic.
type PostService struct {
	postRepo repository.PostRepository
	flags    *featureflags.Manager
	isAdmin  func(ctx context.Context, userID uint) (bool, error)
}

type CreatePostInput struct {
	AuthorID   uint
	Title      string
	Content    string
	CoverImage string
	Categories []string
	Tags       []string
	Status     string
}

type UpdatePostInput struct {
	UserID     uint
	PostID     uint
	Title      string
	Content    string
	CoverImage *string
	Categories []string
	Tags       []string
	Status     string
}

type ListPostsInput struct {
	Page          int
	Limit         int
	Search        string
	CurrentUserID uint
}

// NewPostService constructs a PostService. flags may be nil; isAdmin may be
// nil, in which case only owners pass the ownership checks.
func NewPostService(
	postRepo repository.PostRepository,
	flags *featureflags.Manager,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *PostService {
	return &PostService{postRepo: postRepo, flags: flags, isAdmin: isAdmin}
}

// generateSlug derives a unique slug from the title. Collisions get a
// numeric suffix: base, base-1, base-2.
func (s *PostService) generateSlug(ctx context.Context, title string) (string, error) {
	base := validation.Slugify(title)
	candidate := base
	for i := 1; i <= maxSlugAttempts; i++ {
		exists, err := s.postRepo.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", models.NewConflictError("Could not allocate a unique slug")
}

func normalizeLabels(labels []string) []string {
	cleaned := lo.FilterMap(labels, func(l string, _ int) (string, bool) {
		n := validation.NormalizeLabel(l)
		return n, n != ""
	})
	return lo.Uniq(cleaned)
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, models.NewValidationError("Content is required")
	}

	status := in.Status
	switch status {
	case "":
		status = models.PostStatusPublished
	case models.PostStatusPublished:
	case models.PostStatusDraft:
		if !s.flags.Enabled(featureflags.FlagDraftPosts, in.AuthorID) {
			return nil, models.NewValidationError("Draft posts are not enabled")
		}
	default:
		return nil, models.NewValidationError("Invalid status")
	}

	slug, err := s.generateSlug(ctx, in.Title)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:      strings.TrimSpace(in.Title),
		Slug:       slug,
		Content:    in.Content,
		CoverImage: in.CoverImage,
		Categories: normalizeLabels(in.Categories),
		Tags:       normalizeLabels(in.Tags),
		AuthorID:   in.AuthorID,
		Status:     status,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	cache.Invalidate(ctx, cache.AuthorPageKey(in.AuthorID))
	return s.postRepo.GetByID(ctx, post.ID, in.AuthorID)
}

func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) (*models.PostPage, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	limit := in.Limit
	if limit < 1 || limit > 100 {
		limit = 10
	}
	offset := (page - 1) * limit

	posts, total, err := s.postRepo.List(ctx, limit, offset, strings.TrimSpace(in.Search), in.CurrentUserID)
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &models.PostPage{
		Posts:      posts,
		Total:      total,
		Page:       page,
		TotalPages: totalPages,
	}, nil
}

// GetPostBySlug resolves a post by slug and records the view. The counter
// bump is fire-and-forget relative to the returned snapshot: the response
// reflects the view being counted.
func (s *PostService) GetPostBySlug(ctx context.Context, slug string, currentUserID uint) (*models.Post, error) {
	post, err := s.postRepo.GetBySlug(ctx, slug, currentUserID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureReadable(ctx, post, currentUserID); err != nil {
		return nil, err
	}

	// Only published reads move the view counter; an author previewing
	// their own draft is not a public read.
	if post.Status == models.PostStatusDraft {
		return post, nil
	}
	if err := s.postRepo.IncrementViews(ctx, post.ID); err != nil {
		return nil, err
	}
	post.ViewCount++
	return post, nil
}

func (s *PostService) GetPost(ctx context.Context, id uint, currentUserID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id, currentUserID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureReadable(ctx, post, currentUserID); err != nil {
		return nil, err
	}
	return post, nil
}

// ensureReadable hides drafts from everyone but their author and admins.
// Outsiders get the same not-found as a missing post, so draft ids and slugs
// leak nothing.
func (s *PostService) ensureReadable(ctx context.Context, post *models.Post, userID uint) error {
	if post.Status != models.PostStatusDraft {
		return nil
	}
	allowed, err := s.canModify(ctx, userID, post.AuthorID)
	if err != nil {
		return err
	}
	if !allowed {
		return models.NewNotFoundError("Post")
	}
	return nil
}

// ListOwnPosts returns the author's own posts, drafts included.
func (s *PostService) ListOwnPosts(ctx context.Context, authorID uint, page, limit int) (*models.PostPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	posts, total, err := s.postRepo.ListByAuthor(ctx, authorID, true, limit, (page-1)*limit, authorID)
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &models.PostPage{
		Posts:      posts,
		Total:      total,
		Page:       page,
		TotalPages: totalPages,
	}, nil
}

// canModify reports whether userID may modify a post owned by authorID.
func (s *PostService) canModify(ctx context.Context, userID, authorID uint) (bool, error) {
	if userID == authorID {
		return true, nil
	}
	if s.isAdmin == nil {
		return false, nil
	}
	return s.isAdmin(ctx, userID)
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID, in.UserID)
	if err != nil {
		return nil, err
	}

	allowed, err := s.canModify(ctx, in.UserID, post.AuthorID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, models.NewForbiddenError("You can only update your own posts")
	}

	// The slug is never regenerated; links keep resolving after title edits.
	if strings.TrimSpace(in.Title) != "" {
		post.Title = strings.TrimSpace(in.Title)
	}
	if in.Content != "" {
		post.Content = in.Content
	}
	if in.CoverImage != nil {
		post.CoverImage = *in.CoverImage
	}
	if in.Categories != nil {
		post.Categories = normalizeLabels(in.Categories)
	}
	if in.Tags != nil {
		post.Tags = normalizeLabels(in.Tags)
	}
	if in.Status != "" {
		switch in.Status {
		case models.PostStatusDraft, models.PostStatusPublished:
			post.Status = in.Status
		default:
			return nil, models.NewValidationError("Invalid status")
		}
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}

	cache.Invalidate(ctx, cache.AuthorPageKey(post.AuthorID))
	return post, nil
}

// DeletePost marks the post removed. Removal is terminal.
func (s *PostService) DeletePost(ctx context.Context, userID, postID uint) error {
	post, err := s.postRepo.GetByID(ctx, postID, userID)
	if err != nil {
		return err
	}

	allowed, err := s.canModify(ctx, userID, post.AuthorID)
	if err != nil {
		return err
	}
	if !allowed {
		return models.NewForbiddenError("You can only delete your own posts")
	}

	if err := s.postRepo.Remove(ctx, postID); err != nil {
		return err
	}
	cache.Invalidate(ctx, cache.AuthorPageKey(post.AuthorID))
	return nil
}

// ToggleLike flips the caller's like on the post and returns the fresh state.
func (s *PostService) ToggleLike(ctx context.Context, userID, postID uint) (*models.Post, error) {
	// Resolving the post first guarantees removed posts cannot be liked.
	if _, err := s.postRepo.GetByID(ctx, postID, userID); err != nil {
		return nil, err
	}
	if _, err := s.postRepo.ToggleLike(ctx, userID, postID); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, postID, userID)
}

// SharePost records a share and returns the updated counter.
func (s *PostService) SharePost(ctx context.Context, postID uint) (int64, error) {
	if err := s.postRepo.IncrementShares(ctx, postID); err != nil {
		return 0, err
	}
	post, err := s.postRepo.GetByID(ctx, postID, 0)
	if err != nil {
		return 0, err
	}
	return post.ShareCount, nil
}

// Analytics returns engagement counters for a post. Any authenticated caller
// may read them; missing, removed and unreadable-draft posts are not found.
func (s *PostService) Analytics(ctx context.Context, userID, postID uint) (*models.PostAnalytics, error) {
	post, err := s.postRepo.GetByID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureReadable(ctx, post, userID); err != nil {
		return nil, err
	}

	return s.postRepo.Analytics(ctx, postID)
}
