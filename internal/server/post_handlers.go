package server

import (
	"github.com/gofiber/fiber/v2"

	"inkwell/internal/models"
	"inkwell/internal/service"
	"inkwell/internal/validation"
)

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		Title      string   `json:"title" validate:"required,max=200"`
		Content    string   `json:"content" validate:"required"`
		CoverImage string   `json:"cover_image" validate:"max=500"`
		Categories []string `json:"categories"`
		Tags       []string `json:"tags"`
		Status     string   `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if err := validation.ValidateStruct(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		AuthorID:   userID,
		Title:      req.Title,
		Content:    req.Content,
		CoverImage: req.CoverImage,
		Categories: req.Categories,
		Tags:       req.Tags,
		Status:     req.Status,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPosts handles GET /api/posts. Supports page, limit and search query
// parameters and returns the paginated envelope.
func (s *Server) GetPosts(c *fiber.Ctx) error {
	p := parsePagination(c, 10)
	currentUserID, _ := s.optionalUserID(c)

	page, err := s.postService.ListPosts(c.UserContext(), service.ListPostsInput{
		Page:          p.Page,
		Limit:         p.Limit,
		Search:        c.Query("search"),
		CurrentUserID: currentUserID,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(page)
}

// GetMyPosts handles GET /api/users/me/posts. Returns the caller's own
// posts, drafts included.
func (s *Server) GetMyPosts(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	p := parsePagination(c, 10)

	page, err := s.postService.ListOwnPosts(c.UserContext(), userID, p.Page, p.Limit)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(page)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	currentUserID, _ := s.optionalUserID(c)

	post, err := s.postService.GetPost(c.UserContext(), id, currentUserID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(post)
}

// GetPostBySlug handles GET /api/posts/slug/:slug. Resolving by slug is the
// canonical public read path and is the only operation that counts a view.
func (s *Server) GetPostBySlug(c *fiber.Ctx) error {
	slug := c.Params("slug")
	if slug == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid slug"))
	}
	currentUserID, _ := s.optionalUserID(c)

	post, err := s.postService.GetPostBySlug(c.UserContext(), slug, currentUserID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(post)
}

// UpdatePost handles PUT /api/posts/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Title      string   `json:"title"`
		Content    string   `json:"content"`
		CoverImage *string  `json:"cover_image"`
		Categories []string `json:"categories"`
		Tags       []string `json:"tags"`
		Status     string   `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		UserID:     userID,
		PostID:     id,
		Title:      req.Title,
		Content:    req.Content,
		CoverImage: req.CoverImage,
		Categories: req.Categories,
		Tags:       req.Tags,
		Status:     req.Status,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.UserContext(), userID, id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Post removed"})
}

// ToggleLike handles PUT and PATCH /api/posts/:id/like
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.ToggleLike(c.UserContext(), userID, id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"liked":       post.Liked,
		"likes_count": post.LikesCount,
	})
}

// SharePost handles POST /api/posts/:id/share
func (s *Server) SharePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	shares, err := s.postService.SharePost(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"share_count": shares})
}

// GetPostAnalytics handles GET /api/posts/:id/analytics
func (s *Server) GetPostAnalytics(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	analytics, err := s.postService.Analytics(c.UserContext(), userID, id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(analytics)
}
