package server

import (
	"github.com/gofiber/fiber/v2"

	"inkwell/internal/models"
)

type labelRequest struct {
	Name string `json:"name"`
}

// GetCategories handles GET /api/categories
func (s *Server) GetCategories(c *fiber.Ctx) error {
	categories, err := s.labelService.ListCategories(c.UserContext())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"categories": categories})
}

// CreateCategory handles POST /api/categories (admin only)
func (s *Server) CreateCategory(c *fiber.Ctx) error {
	var req labelRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	category, err := s.labelService.CreateCategory(c.UserContext(), req.Name)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

// UpdateCategory handles PUT /api/categories/:id (admin only)
func (s *Server) UpdateCategory(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req labelRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	category, err := s.labelService.UpdateCategory(c.UserContext(), id, req.Name)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(category)
}

// DeleteCategory handles DELETE /api/categories/:id (admin only)
func (s *Server) DeleteCategory(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.labelService.DeleteCategory(c.UserContext(), id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Category deleted"})
}

// GetTags handles GET /api/tags
func (s *Server) GetTags(c *fiber.Ctx) error {
	tags, err := s.labelService.ListTags(c.UserContext())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"tags": tags})
}

// CreateTag handles POST /api/tags (admin only)
func (s *Server) CreateTag(c *fiber.Ctx) error {
	var req labelRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	tag, err := s.labelService.CreateTag(c.UserContext(), req.Name)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(tag)
}

// UpdateTag handles PUT /api/tags/:id (admin only)
func (s *Server) UpdateTag(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req labelRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	tag, err := s.labelService.UpdateTag(c.UserContext(), id, req.Name)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(tag)
}

// DeleteTag handles DELETE /api/tags/:id (admin only)
func (s *Server) DeleteTag(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.labelService.DeleteTag(c.UserContext(), id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Tag deleted"})
}
