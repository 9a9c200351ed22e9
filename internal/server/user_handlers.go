package server

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"inkwell/internal/models"
	"inkwell/internal/service"
)

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	return c.JSON(currentUser(c))
}

// UpdateMyProfile handles PUT /api/users/me. Accepts JSON, or multipart
// form-data when a profile picture is uploaded alongside the fields.
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	in := service.UpdateProfileInput{UserID: userID}

	if strings.HasPrefix(c.Get("Content-Type"), "multipart/form-data") {
		in.Name = c.FormValue("name")
		in.Username = c.FormValue("username")
		if bio := c.FormValue("bio"); bio != "" {
			in.Bio = &bio
		}

		if file, err := c.FormFile("profile_pic"); err == nil {
			ext := strings.ToLower(filepath.Ext(file.Filename))
			switch ext {
			case ".jpg", ".jpeg", ".png", ".gif", ".webp":
			default:
				return models.RespondWithError(c, fiber.StatusBadRequest,
					models.NewValidationError("Unsupported image format"))
			}
			name := uuid.New().String() + ext
			if err := c.SaveFile(file, filepath.Join(s.config.UploadDir, name)); err != nil {
				return models.RespondWithError(c, fiber.StatusInternalServerError,
					models.NewInternalError(err))
			}
			pic := "/uploads/" + name
			in.ProfilePic = &pic
		}
	} else {
		var req struct {
			Name        string                 `json:"name"`
			Username    string                 `json:"username"`
			Bio         *string                `json:"bio"`
			ProfilePic  *string                `json:"profile_pic"`
			SocialLinks map[string]interface{} `json:"social_links"`
			Password    string                 `json:"password"`
		}
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
		in.Name = req.Name
		in.Username = req.Username
		in.Bio = req.Bio
		in.ProfilePic = req.ProfilePic
		in.SocialLinks = req.SocialLinks
		in.Password = req.Password
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), in)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user)
}

// DeactivateMyAccount handles DELETE /api/users/me. Deactivation is the
// delete contract; the row is kept and the account stops authenticating.
func (s *Server) DeactivateMyAccount(c *fiber.Ctx) error {
	user := currentUser(c)
	if err := s.userService.Deactivate(c.UserContext(), user, user.ID); err != nil {
		return models.RespondWithAppError(c, err)
	}
	s.clearRefreshCookie(c)
	return c.JSON(fiber.Map{"success": true, "message": "Account deactivated"})
}

// DeactivateUser handles POST /api/users/:id/deactivate (admin only)
func (s *Server) DeactivateUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.userService.Deactivate(c.UserContext(), currentUser(c), id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": fmt.Sprintf("User %d deactivated", id)})
}

// GetAllUsers handles GET /api/users (admin only)
func (s *Server) GetAllUsers(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	users, err := s.userService.ListUsers(c.UserContext(), p.Page, p.Limit)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"users": users, "page": p.Page})
}

// GetAuthorPage handles GET /api/authors/:username. Public; an authenticated
// author viewing their own page also sees drafts.
func (s *Server) GetAuthorPage(c *fiber.Ctx) error {
	username := c.Params("username")
	if username == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid username"))
	}
	p := parsePagination(c, 10)
	viewerID, _ := s.optionalUserID(c)

	page, err := s.userService.GetAuthorPage(c.UserContext(), username, p.Page, p.Limit, viewerID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(page)
}
