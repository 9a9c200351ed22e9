package repository

import (
	"context"
	"errors"
	"fmt"

	"inkwell/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines persistence operations for posts and their
// engagement counters.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Post, error)
	GetBySlug(ctx context.Context, slug string, currentUserID uint) (*models.Post, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context, limit, offset int, search string, currentUserID uint) ([]models.Post, int64, error)
	ListByAuthor(ctx context.Context, authorID uint, includeDrafts bool, limit, offset int, currentUserID uint) ([]models.Post, int64, error)
	Update(ctx context.Context, post *models.Post) error
	Remove(ctx context.Context, id uint) error
	IncrementViews(ctx context.Context, id uint) error
	IncrementShares(ctx context.Context, id uint) error
	ToggleLike(ctx context.Context, userID, postID uint) (bool, error)
	Analytics(ctx context.Context, id uint) (*models.PostAnalytics, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// applyPostDetails selects the post columns plus computed engagement
// counters. When currentUserID is non-zero the `liked` column reflects
// whether that user has liked each post.
func (r *postRepository) applyPostDetails(db *gorm.DB, currentUserID uint) *gorm.DB {
	likedExpr := "FALSE AS liked"
	args := []interface{}{}
	if currentUserID != 0 {
		likedExpr = "EXISTS(SELECT 1 FROM likes l WHERE l.post_id = posts.id AND l.user_id = ?) AS liked"
		args = append(args, currentUserID)
	}

	return db.Model(&models.Post{}).
		Select(fmt.Sprintf(`posts.*,
			(SELECT COUNT(*) FROM comments c WHERE c.post_id = posts.id AND c.deleted_at IS NULL) AS comments_count,
			(SELECT COUNT(*) FROM likes l WHERE l.post_id = posts.id) AS likes_count,
			%s`, likedExpr), args...)
}

// visible filters out removed posts. Removed is terminal: such posts never
// appear in any read path.
func visible(db *gorm.DB) *gorm.DB {
	return db.Where("posts.status <> ?", models.PostStatusRemoved)
}

// published filters to publicly listable posts.
func published(db *gorm.DB) *gorm.DB {
	return db.Where("posts.status = ?", models.PostStatusPublished)
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("A post with this slug already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Post, error) {
	var post models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx), currentUserID).
		Scopes(visible).
		Preload("Author").
		Where("posts.id = ?", id).
		First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post")
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) GetBySlug(ctx context.Context, slug string, currentUserID uint) (*models.Post, error) {
	var post models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx), currentUserID).
		Scopes(visible).
		Preload("Author").
		Where("posts.slug = ?", slug).
		First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post")
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Unscoped().
		Where("slug = ?", slug).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *postRepository) List(ctx context.Context, limit, offset int, search string, currentUserID uint) ([]models.Post, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Post{}).Scopes(published)
	if search != "" {
		pattern := "%" + search + "%"
		base = base.Where(
			"posts.title ILIKE ? OR posts.content ILIKE ? OR posts.categories::text ILIKE ? OR posts.tags::text ILIKE ?",
			pattern, pattern, pattern, pattern,
		)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var posts []models.Post
	err := r.applyPostDetails(base.Session(&gorm.Session{}), currentUserID).
		Preload("Author").
		Order("posts.created_at DESC, posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return posts, total, nil
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID uint, includeDrafts bool, limit, offset int, currentUserID uint) ([]models.Post, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("posts.author_id = ?", authorID)
	if includeDrafts {
		base = base.Scopes(visible)
	} else {
		base = base.Scopes(published)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var posts []models.Post
	err := r.applyPostDetails(base.Session(&gorm.Session{}), currentUserID).
		Preload("Author").
		Order("posts.created_at DESC, posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return posts, total, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Save(post).Error; err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("A post with this slug already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// Remove marks a post removed. The row stays for audit; every read path
// filters it out.
func (r *postRepository) Remove(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ? AND status <> ?", id, models.PostStatusRemoved).
		Update("status", models.PostStatusRemoved)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post")
	}
	return nil
}

// IncrementViews bumps the view counter with a single atomic UPDATE so
// concurrent readers never lose increments.
func (r *postRepository) IncrementViews(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) IncrementShares(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ? AND status <> ?", id, models.PostStatusRemoved).
		UpdateColumn("share_count", gorm.Expr("share_count + ?", 1))
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post")
	}
	return nil
}

// ToggleLike flips the like membership for (userID, postID) and reports the
// resulting state. The insert relies on the unique index plus ON CONFLICT DO
// NOTHING, so two concurrent toggles cannot both insert.
func (r *postRepository) ToggleLike(ctx context.Context, userID, postID uint) (bool, error) {
	like := models.Like{UserID: userID, PostID: postID}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&like)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	// Already liked: remove the row.
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Like{}).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return false, nil
}

func (r *postRepository) Analytics(ctx context.Context, id uint) (*models.PostAnalytics, error) {
	post, err := r.GetByID(ctx, id, 0)
	if err != nil {
		return nil, err
	}
	return &models.PostAnalytics{
		Views:    post.ViewCount,
		Likes:    int64(post.LikesCount),
		Shares:   post.ShareCount,
		Comments: int64(post.CommentsCount),
	}, nil
}
