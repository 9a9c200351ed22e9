package server

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"inkwell/internal/featureflags"
	"inkwell/internal/models"
	"inkwell/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenIssuer   = "inkwell-api"
	tokenAudience = "inkwell-client"

	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour

	refreshCookieName = "refresh_token"
)

// Register handles POST /api/auth/register
func (s *Server) Register(c *fiber.Ctx) error {
	var req struct {
		Name     string `json:"name"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if req.Name == "" || req.Email == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Name, email, and password are required"))
	}
	if req.Username != "" {
		if err := validation.ValidateUsername(req.Username); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError(err.Error()))
		}
	}
	if err := validation.ValidateEmail(req.Email); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	// Accounts self-select reader or author; admin is only assigned out of band.
	role := req.Role
	switch role {
	case "":
		role = models.RoleUser
	case models.RoleUser, models.RoleAuthor:
	default:
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid role"))
	}

	// A handle is optional at signup; absent one, derive it from the email.
	if req.Username == "" {
		derived, err := s.deriveUsername(c.Context(), req.Email)
		if err != nil {
			return models.RespondWithAppError(c, err)
		}
		req.Username = derived
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	user := &models.User{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashedPassword),
		Role:     role,
		IsActive: true,
	}
	if createErr := s.userRepo.Create(c.Context(), user); createErr != nil {
		return models.RespondWithAppError(c, createErr)
	}

	if s.featureFlags.Enabled(featureflags.FlagWelcomeEmail, user.ID) {
		s.mailer.SendWelcome(user.Email, user.Name)
	}

	accessToken, err := s.issueTokenPair(c, user)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": accessToken,
		"user":  user,
	})
}

var handleStrip = regexp.MustCompile(`[^a-z0-9_-]+`)

// deriveUsername builds a unique handle from the email local part.
// Collisions get a numeric suffix, same scheme as post slugs.
func (s *Server) deriveUsername(ctx context.Context, email string) (string, error) {
	base := strings.ToLower(strings.TrimSpace(email))
	if at := strings.Index(base, "@"); at > 0 {
		base = base[:at]
	}
	base = handleStrip.ReplaceAllString(base, "")
	if len(base) > 15 {
		base = base[:15]
	}
	if len(base) < 3 {
		base = "reader" + base
	}

	candidate := base
	for i := 1; i <= 50; i++ {
		existing, err := s.userRepo.GetByUsername(ctx, candidate)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", models.NewConflictError("Could not allocate a username")
}

// Login handles POST /api/auth/login. The error message never reveals
// whether the email exists.
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userRepo.GetByEmail(c.Context(), req.Email)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	if user == nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewAuthError("Invalid email or password"))
	}

	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); cmpErr != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewAuthError("Invalid email or password"))
	}

	if !user.IsActive {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Account is deactivated"))
	}

	accessToken, err := s.issueTokenPair(c, user)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token": accessToken,
		"user":  user,
	})
}

// Refresh handles POST /api/auth/refresh. It rotates the refresh token: the
// presented token's JTI is blacklisted and a fresh pair is issued, so a
// stolen refresh token stops working after its first reuse.
func (s *Server) Refresh(c *fiber.Ctx) error {
	tokenString := c.Cookies(refreshCookieName)
	if tokenString == "" {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewAuthError("Refresh token required"))
	}

	claims, err := s.parseRefreshToken(tokenString)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewAuthError("Invalid or expired refresh token"))
	}

	jti, _ := claims["jti"].(string)
	if jti != "" && s.redis != nil {
		blacklisted, err := s.redis.Exists(c.Context(), "blacklist:"+jti).Result()
		if err == nil && blacklisted > 0 {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewAuthError("Refresh token has been revoked"))
		}
	}

	sub, _ := claims["sub"].(string)
	userID64, err := strconv.ParseUint(sub, 10, 32)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewAuthError("Invalid refresh token"))
	}

	user, err := s.userRepo.GetByID(c.Context(), uint(userID64))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewAuthError("Account no longer exists"))
	}
	if !user.IsActive {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Account is deactivated"))
	}

	s.blacklistClaims(c, claims)

	accessToken, err := s.issueTokenPair(c, user)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token": accessToken,
		"user":  user,
	})
}

// Logout handles POST /api/auth/logout. Both the presented access token and
// the refresh cookie are revoked, then the cookie is cleared.
func (s *Server) Logout(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		if claims, err := s.parseAccessToken(authHeader[7:]); err == nil {
			s.blacklistClaims(c, claims)
		}
	}

	if tokenString := c.Cookies(refreshCookieName); tokenString != "" {
		if claims, err := s.parseRefreshToken(tokenString); err == nil {
			s.blacklistClaims(c, claims)
		}
	}

	s.clearRefreshCookie(c)
	return c.JSON(fiber.Map{"success": true, "message": "Logged out"})
}

// issueTokenPair generates an access token and sets the refresh cookie.
func (s *Server) issueTokenPair(c *fiber.Ctx, user *models.User) (string, error) {
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return "", err
	}
	refreshToken, err := s.generateRefreshToken(user.ID)
	if err != nil {
		return "", err
	}

	c.Cookie(&fiber.Cookie{
		Name:     refreshCookieName,
		Value:    refreshToken,
		Path:     "/api/auth",
		MaxAge:   int(refreshTokenTTL.Seconds()),
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteStrictMode,
	})
	return accessToken, nil
}

func (s *Server) clearRefreshCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/api/auth",
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

// generateAccessToken creates a short-lived JWT for API requests.
func (s *Server) generateAccessToken(user *models.User) (string, error) {
	if s.config.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(user.ID), 10),
		"username": user.Username,
		"role":     user.Role,
		"iss":      tokenIssuer,
		"aud":      tokenAudience,
		"exp":      now.Add(accessTokenTTL).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      generateJTI(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// generateRefreshToken creates a long-lived JWT signed with the dedicated
// refresh secret so access and refresh tokens are never interchangeable.
func (s *Server) generateRefreshToken(userID uint) (string, error) {
	if s.config.JWTRefreshSecret == "" {
		return "", fmt.Errorf("JWT refresh secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"typ": "refresh",
		"iss": tokenIssuer,
		"aud": tokenAudience,
		"exp": now.Add(refreshTokenTTL).Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": generateJTI(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTRefreshSecret))
}

// parseRefreshToken validates a refresh token against the refresh secret.
func (s *Server) parseRefreshToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("invalid signing method")
		}
		return []byte(s.config.JWTRefreshSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims")
	}
	if typ, ok := claims["typ"].(string); !ok || typ != "refresh" {
		return nil, fmt.Errorf("not a refresh token")
	}
	if issuer, ok := claims["iss"].(string); !ok || issuer != tokenIssuer {
		return nil, fmt.Errorf("invalid issuer")
	}
	return claims, nil
}

// blacklistClaims revokes a token by JTI for the remainder of its lifetime.
func (s *Server) blacklistClaims(c *fiber.Ctx, claims jwt.MapClaims) {
	if s.redis == nil {
		return
	}
	jti, _ := claims["jti"].(string)
	if jti == "" {
		return
	}
	ttl := refreshTokenTTL
	if exp, ok := claims["exp"].(float64); ok {
		if remaining := time.Until(time.Unix(int64(exp), 0)); remaining > 0 {
			ttl = remaining
		}
	}
	s.redis.Set(c.Context(), "blacklist:"+jti, "1", ttl)
}

// generateJTI creates a unique JWT ID to prevent replay attacks.
func generateJTI() string {
	return fmt.Sprintf("%d-%s", time.Now().Unix(), uuid.New().String()[:8])
}
