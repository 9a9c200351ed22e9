package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"sync"
	"testing"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	integrationOnce sync.Once
	integrationApp  *fiber.App
	integrationErr  error
)

// integrationTestApp builds the full route tree once, backed by an in-memory
// database and redis. Metrics collectors register globally, so the server is
// constructed a single time per test binary.
func integrationTestApp(t *testing.T) *fiber.App {
	t.Helper()
	os.Setenv("APP_ENV", "test")

	integrationOnce.Do(func() {
		db, err := gorm.Open(sqlite.Open("file:inkwell_itest?mode=memory&cache=shared"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			integrationErr = err
			return
		}
		if err := database.Migrate(db); err != nil {
			integrationErr = err
			return
		}

		mr, err := miniredis.Run()
		if err != nil {
			integrationErr = err
			return
		}
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		// Route the cache layer through the same miniredis so cached reads
		// (user lookups in the auth middleware) are part of the flow under test.
		cache.SetClient(rdb)

		cfg := &config.Config{
			Port:             "0",
			Env:              "test",
			JWTSecret:        "integration-access-secret",
			JWTRefreshSecret: "integration-refresh-secret",
		}

		srv, err := NewServerWithDeps(cfg, db, rdb)
		if err != nil {
			integrationErr = err
			return
		}

		app := fiber.New()
		srv.SetupRoutes(app)
		integrationApp = app
	})

	require.NoError(t, integrationErr)
	return integrationApp
}

func doJSON(t *testing.T, app *fiber.App, method, path, body, token string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	resp.Body.Close()
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, ck := range resp.Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

type authResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func TestAuthFlow(t *testing.T) {
	app := integrationTestApp(t)

	register := `{"name":"Flow User","username":"flowuser","email":"flow@example.com","password":"secret123"}`
	resp := doJSON(t, app, "POST", "/api/auth/register", register, "")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created authResponse
	decodeBody(t, resp, &created)
	assert.NotEmpty(t, created.Token)
	assert.Equal(t, "flowuser", created.User.Username)
	assert.Equal(t, models.RoleUser, created.User.Role)

	// Same email again conflicts.
	dup := `{"name":"Flow User","username":"flowuser2","email":"flow@example.com","password":"secret123"}`
	resp = doJSON(t, app, "POST", "/api/auth/register", dup, "")
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	// Wrong password and unknown email render the same message.
	resp = doJSON(t, app, "POST", "/api/auth/login", `{"email":"flow@example.com","password":"wrong1234"}`, "")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	var errResp models.ErrorResponse
	decodeBody(t, resp, &errResp)
	assert.Equal(t, "Invalid email or password", errResp.Message)

	resp = doJSON(t, app, "POST", "/api/auth/login", `{"email":"ghost@example.com","password":"secret123"}`, "")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	decodeBody(t, resp, &errResp)
	assert.Equal(t, "Invalid email or password", errResp.Message)

	resp = doJSON(t, app, "POST", "/api/auth/login", `{"email":"flow@example.com","password":"secret123"}`, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	refreshCookie := findCookie(resp, "refresh_token")
	require.NotNil(t, refreshCookie)

	var loggedIn authResponse
	decodeBody(t, resp, &loggedIn)
	require.NotEmpty(t, loggedIn.Token)

	// The access token works against a protected route.
	resp = doJSON(t, app, "GET", "/api/users/me", "", loggedIn.Token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var me models.User
	decodeBody(t, resp, &me)
	assert.Equal(t, "flowuser", me.Username)

	// No token, no entry.
	resp = doJSON(t, app, "GET", "/api/users/me", "", "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// Refresh rotates: the presented token is revoked once used.
	resp = doJSON(t, app, "POST", "/api/auth/refresh", "", "", refreshCookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var refreshed authResponse
	decodeBody(t, resp, &refreshed)
	assert.NotEmpty(t, refreshed.Token)

	resp = doJSON(t, app, "POST", "/api/auth/refresh", "", "", refreshCookie)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// Deactivation is the delete contract; the account stops authenticating.
	resp = doJSON(t, app, "DELETE", "/api/users/me", "", refreshed.Token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, "GET", "/api/users/me", "", refreshed.Token)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	decodeBody(t, resp, &errResp)
	assert.Equal(t, "Account is deactivated", errResp.Message)

	resp = doJSON(t, app, "POST", "/api/auth/login", `{"email":"flow@example.com","password":"secret123"}`, "")
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRegisterWithoutUsername(t *testing.T) {
	app := integrationTestApp(t)

	body := `{"name":"Handle Free","email":"handle.free@example.com","password":"secret123"}`
	resp := doJSON(t, app, "POST", "/api/auth/register", body, "")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var created authResponse
	decodeBody(t, resp, &created)
	assert.Equal(t, "handlefree", created.User.Username)

	// Same local part on a different domain gets a suffixed handle.
	body = `{"name":"Handle Free","email":"handle.free@other.example","password":"secret123"}`
	resp = doJSON(t, app, "POST", "/api/auth/register", body, "")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	decodeBody(t, resp, &created)
	assert.Equal(t, "handlefree-1", created.User.Username)
}

func TestProfileUpdateKeepsPassword(t *testing.T) {
	app := integrationTestApp(t)

	register := `{"name":"Stable Hash","username":"stablehash","email":"stable@example.com","password":"secret123"}`
	resp := doJSON(t, app, "POST", "/api/auth/register", register, "")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var created authResponse
	decodeBody(t, resp, &created)

	// Warm the user cache through the auth middleware, then edit the profile
	// without touching the password.
	resp = doJSON(t, app, "GET", "/api/users/me", "", created.Token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, "PUT", "/api/users/me", `{"bio":"still me"}`, created.Token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var updated models.User
	decodeBody(t, resp, &updated)
	assert.Equal(t, "still me", updated.Bio)

	// The original credentials still work after the round trip.
	resp = doJSON(t, app, "POST", "/api/auth/login", `{"email":"stable@example.com","password":"secret123"}`, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestPostFlow(t *testing.T) {
	app := integrationTestApp(t)

	register := `{"name":"Flow Author","username":"flowauthor","email":"author@example.com","password":"secret123","role":"author"}`
	resp := doJSON(t, app, "POST", "/api/auth/register", register, "")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var author authResponse
	decodeBody(t, resp, &author)

	createBody := `{"title":"Flow Post","content":"Body text","categories":["Tech"," tech ","Go"],"tags":["testing"]}`
	resp = doJSON(t, app, "POST", "/api/posts", createBody, author.Token)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var post models.Post
	decodeBody(t, resp, &post)
	assert.Equal(t, "flow-post", post.Slug)
	assert.ElementsMatch(t, []string{"tech", "go"}, []string(post.Categories))

	// Reads by slug count views; each response reflects its own view.
	resp = doJSON(t, app, "GET", "/api/posts/slug/flow-post", "", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var viewed models.Post
	decodeBody(t, resp, &viewed)
	assert.Equal(t, int64(1), viewed.ViewCount)

	resp = doJSON(t, app, "GET", "/api/posts/slug/flow-post", "", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &viewed)
	assert.Equal(t, int64(2), viewed.ViewCount)

	// Duplicate titles get suffixed slugs.
	resp = doJSON(t, app, "POST", "/api/posts", createBody, author.Token)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var second models.Post
	decodeBody(t, resp, &second)
	assert.Equal(t, "flow-post-1", second.Slug)

	// Like toggles on and off.
	var likeState struct {
		Liked      bool `json:"liked"`
		LikesCount int  `json:"likes_count"`
	}
	resp = doJSON(t, app, "PUT", postPath(post.ID, "like"), "", author.Token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &likeState)
	assert.True(t, likeState.Liked)
	assert.Equal(t, 1, likeState.LikesCount)

	resp = doJSON(t, app, "PUT", postPath(post.ID, "like"), "", author.Token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &likeState)
	assert.False(t, likeState.Liked)
	assert.Equal(t, 0, likeState.LikesCount)

	// Comments.
	resp = doJSON(t, app, "POST", postPath(post.ID, "comments"), `{"content":"Nice one"}`, author.Token)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = doJSON(t, app, "GET", postPath(post.ID, "comments"), "", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var commentPage struct {
		Total int64 `json:"total"`
	}
	decodeBody(t, resp, &commentPage)
	assert.Equal(t, int64(1), commentPage.Total)

	// Title edits never change the slug.
	resp = doJSON(t, app, "PUT", postPath(post.ID, ""), `{"title":"Renamed Flow Post"}`, author.Token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var updated models.Post
	decodeBody(t, resp, &updated)
	assert.Equal(t, "Renamed Flow Post", updated.Title)
	assert.Equal(t, "flow-post", updated.Slug)

	// Removal is terminal.
	resp = doJSON(t, app, "DELETE", postPath(post.ID, ""), "", author.Token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, "GET", "/api/posts/slug/flow-post", "", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func postPath(id uint, suffix string) string {
	p := "/api/posts/" + strconv.FormatUint(uint64(id), 10)
	if suffix != "" {
		p += "/" + suffix
	}
	return p
}
