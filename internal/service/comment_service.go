package service

import (
	"context"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/repository"
)

const maxCommentLen = 500

// CommentService owns comment lifecycle logic.
type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	isAdmin     func(ctx context.Context, userID uint) (bool, error)
}

type CreateCommentInput struct {
	UserID  uint
	PostID  uint
	Content string
	Context string
}

type UpdateCommentInput struct {
	UserID    uint
	CommentID uint
	Content   string
}

// NewCommentService constructs a CommentService.
func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *CommentService {
	return &CommentService{commentRepo: commentRepo, postRepo: postRepo, isAdmin: isAdmin}
}

func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Comment content is required")
	}
	if len(content) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 500 characters)")
	}

	// The post must exist and not be removed.
	if _, err := s.postRepo.GetByID(ctx, in.PostID, 0); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		Content: content,
		Context: strings.ToLower(strings.TrimSpace(in.Context)),
		UserID:  in.UserID,
		PostID:  in.PostID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	return s.commentRepo.GetByID(ctx, comment.ID)
}

func (s *CommentService) ListComments(ctx context.Context, postID uint, page, limit int) ([]models.Comment, int64, error) {
	if _, err := s.postRepo.GetByID(ctx, postID, 0); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.commentRepo.ListByPost(ctx, postID, limit, (page-1)*limit)
}

func (s *CommentService) UpdateComment(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != in.UserID {
		return nil, models.NewForbiddenError("You can only edit your own comments")
	}

	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Comment content is required")
	}
	if len(content) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 500 characters)")
	}

	comment.Content = content
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// DeleteComment removes a comment. Allowed for the comment author, the post
// author, or an admin.
func (s *CommentService) DeleteComment(ctx context.Context, userID, commentID uint) error {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return err
	}

	allowed := comment.UserID == userID
	if !allowed {
		if post, err := s.postRepo.GetByID(ctx, comment.PostID, 0); err == nil && post.AuthorID == userID {
			allowed = true
		}
	}
	if !allowed && s.isAdmin != nil {
		admin, err := s.isAdmin(ctx, userID)
		if err != nil {
			return err
		}
		allowed = admin
	}
	if !allowed {
		return models.NewForbiddenError("You can only delete your own comments")
	}

	return s.commentRepo.Delete(ctx, commentID)
}
