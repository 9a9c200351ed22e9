// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/featureflags"
	"inkwell/internal/mailer"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	mailer         *mailer.Mailer

	userRepo     repository.UserRepository
	postRepo     repository.PostRepository
	commentRepo  repository.CommentRepository
	categoryRepo repository.CategoryRepository
	tagRepo      repository.TagRepository
	subRepo      repository.SubscriptionRepository

	featureFlags *featureflags.Manager

	postService    *service.PostService
	commentService *service.CommentService
	userService    *service.UserService
	subService     *service.SubscriptionService
	labelService   *service.LabelService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis and
// optionally performs explicit seeding.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("inkwell-api"),
		mailer:         mailer.New(cfg.EmailAPIKey, cfg.EmailAPIURL, cfg.EmailSender),
		userRepo:       repository.NewUserRepository(db),
		postRepo:       repository.NewPostRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		categoryRepo:   repository.NewCategoryRepository(db),
		tagRepo:        repository.NewTagRepository(db),
		subRepo:        repository.NewSubscriptionRepository(db),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}

	server.postService = service.NewPostService(server.postRepo, server.featureFlags, server.isAdminByUserID)
	server.commentService = service.NewCommentService(server.commentRepo, server.postRepo, server.isAdminByUserID)
	server.userService = service.NewUserService(server.userRepo, server.postRepo)
	server.subService = service.NewSubscriptionService(server.subRepo, server.userRepo)
	server.labelService = service.NewLabelService(server.categoryRepo, server.tagRepo)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context middleware to propagate request ID and user ID
	app.Use(middleware.ContextMiddleware())

	// Distributed tracing
	app.Use(middleware.TracingMiddleware())

	// Prometheus metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured logging (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS must run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they are handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Uploaded profile pictures
	if s.config.UploadDir != "" {
		app.Static("/uploads", s.config.UploadDir)
	}

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/refresh", s.Refresh)
	auth.Post("/logout", s.Logout)

	// Public post routes
	publicPosts := api.Group("/posts")
	publicPosts.Get("/", s.GetPosts)
	publicPosts.Get("/slug/:slug", s.GetPostBySlug)
	publicPosts.Get("/:id/comments", s.GetComments)
	publicPosts.Get("/:id", s.GetPost)

	// Public author pages
	api.Get("/authors/:username", s.GetAuthorPage)

	// Public label vocabularies
	api.Get("/categories", s.GetCategories)
	api.Get("/tags", s.GetTags)

	// Protected routes
	protected := api.Group("", s.AuthRequired())

	// User routes
	users := protected.Group("/users")
	users.Get("/me", s.GetMyProfile)
	users.Put("/me", s.UpdateMyProfile)
	users.Delete("/me", s.DeactivateMyAccount)
	users.Get("/me/posts", s.GetMyPosts)
	users.Get("/", s.AdminRequired(), s.GetAllUsers)
	users.Post("/:id/deactivate", s.AdminRequired(), s.DeactivateUser)

	// Protected post routes
	posts := protected.Group("/posts")
	posts.Post("/", s.AuthorRequired(), middleware.RateLimit(
		s.redis, 5, 5*time.Minute, "create_post"), s.CreatePost)
	// Specific /:id/:resource routes BEFORE generic /:id routes
	posts.Put("/:id/like", s.ToggleLike)
	posts.Patch("/:id/like", s.ToggleLike)
	posts.Post("/:id/share", s.SharePost)
	posts.Get("/:id/analytics", s.GetPostAnalytics)
	posts.Post("/:id/comments", middleware.RateLimit(
		s.redis, 10, time.Minute, "create_comment"), s.CreateComment)
	posts.Put("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	// Comment routes
	comments := protected.Group("/comments")
	comments.Put("/:id", s.UpdateComment)
	comments.Delete("/:id", s.DeleteComment)

	// Subscription routes
	subs := protected.Group("/subscriptions")
	subs.Post("/", s.Subscribe)
	subs.Get("/", s.GetSubscriptions)
	subs.Get("/status/author/:authorId", s.GetAuthorSubscriptionStatus)
	subs.Get("/status/category/:category", s.GetCategorySubscriptionStatus)
	subs.Post("/authors/:authorId", s.SubscribeToAuthor)
	subs.Delete("/authors/:authorId", s.UnsubscribeFromAuthor)
	subs.Delete("/:id", s.Unsubscribe)

	// Admin label management
	adminCategories := protected.Group("/categories", s.AdminRequired())
	adminCategories.Post("/", s.CreateCategory)
	adminCategories.Put("/:id", s.UpdateCategory)
	adminCategories.Delete("/:id", s.DeleteCategory)

	adminTags := protected.Group("/tags", s.AdminRequired())
	adminTags.Post("/", s.CreateTag)
	adminTags.Put("/:id", s.UpdateTag)
	adminTags.Delete("/:id", s.DeleteTag)

	// Admin routes
	admin := protected.Group("/admin", s.AdminRequired())
	admin.Get("/feature-flags", s.GetFeatureFlags)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// GetFeatureFlags handles GET /api/admin/feature-flags
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	return c.JSON(fiber.Map{
		"flags":    s.featureFlags.Raw(),
		"snapshot": s.featureFlags.Snapshot(userID),
	})
}

// AuthRequired returns the authentication middleware. It validates the
// access token, checks revocation, and loads the account so deactivated
// users are rejected on their next request.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		tokenString := ""
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewAuthError("Authorization required"))
		}

		claims, err := s.parseAccessToken(tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewAuthError("Invalid or expired token"))
		}

		sub, ok := claims["sub"].(string)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewAuthError("Invalid subject claim"))
		}
		userID64, err := strconv.ParseUint(sub, 10, 32)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewAuthError("Invalid user ID in token"))
		}
		userID := uint(userID64)

		// Check JTI for revocation
		if jti, exists := claims["jti"].(string); exists && jti != "" && s.redis != nil {
			blacklisted, err := s.redis.Exists(c.Context(), "blacklist:"+jti).Result()
			if err == nil && blacklisted > 0 {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewAuthError("Token has been revoked"))
			}
		}

		user, err := s.userRepo.GetByID(c.UserContext(), userID)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewAuthError("Account no longer exists"))
		}
		if !user.IsActive {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Account is deactivated"))
		}

		c.Locals("userID", userID)
		c.Locals("user", user)
		ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, userID)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so the principal is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := c.Locals("user").(*models.User)
		if !user.IsAdmin() {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// AuthorRequired returns middleware that rejects users who may not publish.
func (s *Server) AuthorRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := c.Locals("user").(*models.User)
		if !user.CanAuthor() {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Author access required"))
		}
		return c.Next()
	}
}

// parseAccessToken validates an access token against the primary secret and
// returns its claims.
func (s *Server) parseAccessToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("invalid signing method")
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims")
	}
	if issuer, ok := claims["iss"].(string); !ok || issuer != tokenIssuer {
		return nil, fmt.Errorf("invalid issuer")
	}
	if audience, ok := claims["aud"].(string); !ok || audience != tokenAudience {
		return nil, fmt.Errorf("invalid audience")
	}
	return claims, nil
}

// optionalUserID attempts to extract userID from the Authorization header
// but does not enforce it. Used by public read endpoints so responses can be
// personalized (e.g. the liked flag).
func (s *Server) optionalUserID(c *fiber.Ctx) (uint, bool) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return 0, false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return 0, false
	}

	claims, err := s.parseAccessToken(parts[1])
	if err != nil {
		return 0, false
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return 0, false
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(userID), true
}

// Start starts the server
func (s *Server) Start() error {
	app := fiber.New(fiber.Config{
		AppName: "Inkwell API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
