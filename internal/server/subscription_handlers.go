package server

import (
	"github.com/gofiber/fiber/v2"

	"inkwell/internal/models"
	"inkwell/internal/service"
)

// Subscribe handles POST /api/subscriptions. The payload must name exactly
// one target: an author ID or a category.
func (s *Server) Subscribe(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		AuthorID *uint  `json:"author_id"`
		Category string `json:"category"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	sub, err := s.subService.Subscribe(c.UserContext(), service.SubscribeInput{
		UserID:   userID,
		AuthorID: req.AuthorID,
		Category: req.Category,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sub)
}

// GetSubscriptions handles GET /api/subscriptions
func (s *Server) GetSubscriptions(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	subs, err := s.subService.ListSubscriptions(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"subscriptions": subs})
}

// SubscribeToAuthor handles POST /api/subscriptions/authors/:authorId
func (s *Server) SubscribeToAuthor(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	authorID, err := s.parseID(c, "authorId")
	if err != nil {
		return nil
	}

	sub, err := s.subService.Subscribe(c.UserContext(), service.SubscribeInput{
		UserID:   userID,
		AuthorID: &authorID,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sub)
}

// UnsubscribeFromAuthor handles DELETE /api/subscriptions/authors/:authorId
func (s *Server) UnsubscribeFromAuthor(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	authorID, err := s.parseID(c, "authorId")
	if err != nil {
		return nil
	}

	if err := s.subService.UnsubscribeFromAuthor(c.UserContext(), userID, authorID); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Unsubscribed"})
}

// Unsubscribe handles DELETE /api/subscriptions/:id
func (s *Server) Unsubscribe(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.subService.Unsubscribe(c.UserContext(), userID, id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Unsubscribed"})
}

// GetAuthorSubscriptionStatus handles GET /api/subscriptions/status/author/:authorId
func (s *Server) GetAuthorSubscriptionStatus(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	authorID, err := s.parseID(c, "authorId")
	if err != nil {
		return nil
	}

	status, err := s.subService.AuthorStatus(c.UserContext(), userID, authorID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(status)
}

// GetCategorySubscriptionStatus handles GET /api/subscriptions/status/category/:category
func (s *Server) GetCategorySubscriptionStatus(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	category := c.Params("category")
	if category == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid category"))
	}

	status, err := s.subService.CategoryStatus(c.UserContext(), userID, category)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(status)
}
