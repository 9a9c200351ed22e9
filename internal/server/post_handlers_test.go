package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"inkwell/internal/config"
	"inkwell/internal/featureflags"
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPostRepo struct {
	mock.Mock
}

func (m *mockPostRepo) Create(ctx context.Context, post *models.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *mockPostRepo) GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Post, error) {
	args := m.Called(ctx, id, currentUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *mockPostRepo) GetBySlug(ctx context.Context, slug string, currentUserID uint) (*models.Post, error) {
	args := m.Called(ctx, slug, currentUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *mockPostRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	args := m.Called(ctx, slug)
	return args.Bool(0), args.Error(1)
}

func (m *mockPostRepo) List(ctx context.Context, limit, offset int, search string, currentUserID uint) ([]models.Post, int64, error) {
	args := m.Called(ctx, limit, offset, search, currentUserID)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Post), args.Get(1).(int64), args.Error(2)
}

func (m *mockPostRepo) ListByAuthor(ctx context.Context, authorID uint, includeDrafts bool, limit, offset int, currentUserID uint) ([]models.Post, int64, error) {
	args := m.Called(ctx, authorID, includeDrafts, limit, offset, currentUserID)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Post), args.Get(1).(int64), args.Error(2)
}

func (m *mockPostRepo) Update(ctx context.Context, post *models.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *mockPostRepo) Remove(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockPostRepo) IncrementViews(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockPostRepo) IncrementShares(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockPostRepo) ToggleLike(ctx context.Context, userID, postID uint) (bool, error) {
	args := m.Called(ctx, userID, postID)
	return args.Bool(0), args.Error(1)
}

func (m *mockPostRepo) Analytics(ctx context.Context, id uint) (*models.PostAnalytics, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PostAnalytics), args.Error(1)
}

// newPostTestApp wires the post handlers onto a bare fiber app with the
// caller's identity injected, bypassing the auth middleware.
func newPostTestApp(repo *mockPostRepo, userID uint) *fiber.App {
	s := &Server{config: &config.Config{JWTSecret: "test-secret", JWTRefreshSecret: "test-refresh"}}
	s.postService = service.NewPostService(repo, featureflags.NewManager(""), nil)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if userID != 0 {
			c.Locals("userID", userID)
		}
		return c.Next()
	})
	app.Post("/api/posts", s.CreatePost)
	app.Get("/api/posts", s.GetPosts)
	app.Put("/api/posts/:id/like", s.ToggleLike)
	app.Post("/api/posts/:id/share", s.SharePost)
	app.Get("/api/posts/:id/analytics", s.GetPostAnalytics)
	app.Delete("/api/posts/:id", s.DeletePost)
	return app
}

func TestCreatePostHandler(t *testing.T) {
	repo := new(mockPostRepo)
	app := newPostTestApp(repo, 7)

	repo.On("SlugExists", mock.Anything, "hello-world").Return(false, nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(p *models.Post) bool {
		return p.Slug == "hello-world" && p.AuthorID == 7
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Post).ID = 42
	}).Return(nil)
	repo.On("GetByID", mock.Anything, uint(42), uint(7)).Return(&models.Post{
		ID: 42, Title: "Hello World", Slug: "hello-world", AuthorID: 7,
		Status: models.PostStatusPublished,
	}, nil)

	body := `{"title":"Hello World","content":"First!"}`
	req := httptest.NewRequest("POST", "/api/posts", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var got models.Post
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "hello-world", got.Slug)
	repo.AssertExpectations(t)
}

func TestCreatePostHandlerMissingTitle(t *testing.T) {
	repo := new(mockPostRepo)
	app := newPostTestApp(repo, 7)

	body := `{"title":"","content":"no title"}`
	req := httptest.NewRequest("POST", "/api/posts", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var errResp models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Equal(t, "VALIDATION_ERROR", errResp.Code)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestGetPostsHandlerEnvelope(t *testing.T) {
	repo := new(mockPostRepo)
	app := newPostTestApp(repo, 0)

	repo.On("List", mock.Anything, 10, 10, "", uint(0)).Return([]models.Post{
		{ID: 3, Slug: "third"},
	}, int64(11), nil)

	req := httptest.NewRequest("GET", "/api/posts?page=2", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var page models.PostPage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Equal(t, int64(11), page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, "third", page.Posts[0].Slug)
}

func TestToggleLikeHandler(t *testing.T) {
	repo := new(mockPostRepo)
	app := newPostTestApp(repo, 7)

	repo.On("GetByID", mock.Anything, uint(5), uint(7)).Return(&models.Post{
		ID: 5, Slug: "likeable", AuthorID: 2, LikesCount: 0, Liked: false,
	}, nil).Once()
	repo.On("ToggleLike", mock.Anything, uint(7), uint(5)).Return(true, nil).Once()
	repo.On("GetByID", mock.Anything, uint(5), uint(7)).Return(&models.Post{
		ID: 5, Slug: "likeable", AuthorID: 2, LikesCount: 1, Liked: true,
	}, nil).Once()

	req := httptest.NewRequest("PUT", "/api/posts/5/like", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got struct {
		Liked      bool `json:"liked"`
		LikesCount int  `json:"likes_count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.True(t, got.Liked)
	assert.Equal(t, 1, got.LikesCount)
	repo.AssertExpectations(t)
}

func TestSharePostHandler(t *testing.T) {
	repo := new(mockPostRepo)
	app := newPostTestApp(repo, 7)

	repo.On("IncrementShares", mock.Anything, uint(9)).Return(nil)
	repo.On("GetByID", mock.Anything, uint(9), uint(0)).Return(&models.Post{
		ID: 9, ShareCount: 4,
	}, nil)

	req := httptest.NewRequest("POST", "/api/posts/9/share", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got struct {
		ShareCount int64 `json:"share_count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, int64(4), got.ShareCount)
}

func TestGetPostAnalyticsHandlerOpenToNonOwners(t *testing.T) {
	repo := new(mockPostRepo)
	app := newPostTestApp(repo, 7)

	repo.On("GetByID", mock.Anything, uint(12), uint(7)).Return(&models.Post{
		ID: 12, AuthorID: 99, Status: models.PostStatusPublished,
	}, nil)
	repo.On("Analytics", mock.Anything, uint(12)).Return(&models.PostAnalytics{
		Views: 30, Likes: 4, Shares: 2, Comments: 6,
	}, nil)

	req := httptest.NewRequest("GET", "/api/posts/12/analytics", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got models.PostAnalytics
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, int64(30), got.Views)
	assert.Equal(t, int64(6), got.Comments)
}

func TestDeletePostHandlerNotFound(t *testing.T) {
	repo := new(mockPostRepo)
	app := newPostTestApp(repo, 7)

	repo.On("GetByID", mock.Anything, uint(404), uint(7)).
		Return(nil, models.NewNotFoundError("Post"))

	req := httptest.NewRequest("DELETE", "/api/posts/404", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestParseIDRejectsGarbage(t *testing.T) {
	repo := new(mockPostRepo)
	app := newPostTestApp(repo, 7)

	req := httptest.NewRequest("PUT", "/api/posts/not-a-number/like", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
