package service

import (
	"context"

	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/validation"
)

// SubscriptionService owns follow relationships to authors and categories.
type SubscriptionService struct {
	subRepo  repository.SubscriptionRepository
	userRepo repository.UserRepository
}

type SubscribeInput struct {
	UserID   uint
	AuthorID *uint
	Category string
}

// SubscriptionStatus reports whether the caller follows a given target.
type SubscriptionStatus struct {
	Subscribed bool  `json:"subscribed"`
	ID         *uint `json:"id,omitempty"`
}

// NewSubscriptionService constructs a SubscriptionService.
func NewSubscriptionService(subRepo repository.SubscriptionRepository, userRepo repository.UserRepository) *SubscriptionService {
	return &SubscriptionService{subRepo: subRepo, userRepo: userRepo}
}

// Subscribe creates a follow to exactly one of an author or a category.
// Supplying both or neither is a validation error. Duplicate subscriptions
// conflict; they never silently upsert.
func (s *SubscriptionService) Subscribe(ctx context.Context, in SubscribeInput) (*models.Subscription, error) {
	hasAuthor := in.AuthorID != nil
	category := validation.NormalizeLabel(in.Category)
	hasCategory := category != ""

	if hasAuthor == hasCategory {
		return nil, models.NewValidationError("Provide exactly one of author_id or category")
	}

	sub := &models.Subscription{UserID: in.UserID}
	if hasAuthor {
		if *in.AuthorID == in.UserID {
			return nil, models.NewValidationError("You cannot subscribe to yourself")
		}
		author, err := s.userRepo.GetByID(ctx, *in.AuthorID)
		if err != nil {
			return nil, err
		}
		if !author.IsActive {
			return nil, models.NewNotFoundError("Author")
		}
		sub.AuthorID = in.AuthorID
	} else {
		sub.Category = &category
	}

	if err := s.subRepo.Create(ctx, sub); err != nil {
		return nil, err
	}
	return s.subRepo.GetByID(ctx, sub.ID)
}

// Unsubscribe deletes a subscription owned by the caller.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, userID, subID uint) error {
	sub, err := s.subRepo.GetByID(ctx, subID)
	if err != nil {
		return err
	}
	if sub.UserID != userID {
		return models.NewForbiddenError("You can only remove your own subscriptions")
	}
	return s.subRepo.Delete(ctx, subID)
}

// UnsubscribeFromAuthor removes the caller's follow on an author, addressed
// by author rather than by subscription ID.
func (s *SubscriptionService) UnsubscribeFromAuthor(ctx context.Context, userID, authorID uint) error {
	sub, err := s.subRepo.FindByUserAuthor(ctx, userID, authorID)
	if err != nil {
		return err
	}
	if sub == nil {
		return models.NewNotFoundError("Subscription")
	}
	return s.subRepo.Delete(ctx, sub.ID)
}

func (s *SubscriptionService) ListSubscriptions(ctx context.Context, userID uint) ([]models.Subscription, error) {
	return s.subRepo.ListByUser(ctx, userID)
}

// AuthorStatus reports whether userID follows the given author.
func (s *SubscriptionService) AuthorStatus(ctx context.Context, userID, authorID uint) (*SubscriptionStatus, error) {
	sub, err := s.subRepo.FindByUserAuthor(ctx, userID, authorID)
	if err != nil {
		return nil, err
	}
	return statusOf(sub), nil
}

// CategoryStatus reports whether userID follows the given category.
func (s *SubscriptionService) CategoryStatus(ctx context.Context, userID uint, category string) (*SubscriptionStatus, error) {
	sub, err := s.subRepo.FindByUserCategory(ctx, userID, validation.NormalizeLabel(category))
	if err != nil {
		return nil, err
	}
	return statusOf(sub), nil
}

func statusOf(sub *models.Subscription) *SubscriptionStatus {
	if sub == nil {
		return &SubscriptionStatus{Subscribed: false}
	}
	return &SubscriptionStatus{Subscribed: true, ID: &sub.ID}
}
