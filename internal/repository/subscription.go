package repository

import (
	"context"
	"errors"

	"inkwell/internal/models"

	"gorm.io/gorm"
)

// SubscriptionRepository defines persistence operations for subscriptions.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *models.Subscription) error
	GetByID(ctx context.Context, id uint) (*models.Subscription, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Subscription, error)
	FindByUserAuthor(ctx context.Context, userID, authorID uint) (*models.Subscription, error)
	FindByUserCategory(ctx context.Context, userID uint, category string) (*models.Subscription, error)
	Delete(ctx context.Context, id uint) error
}

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository returns a new SubscriptionRepository implementation.
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *models.Subscription) error {
	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("Already subscribed")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *subscriptionRepository) GetByID(ctx context.Context, id uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Preload("Author").
		First(&sub, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Subscription")
		}
		return nil, models.NewInternalError(err)
	}
	return &sub, nil
}

func (r *subscriptionRepository) ListByUser(ctx context.Context, userID uint) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&subs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return subs, nil
}

func (r *subscriptionRepository) FindByUserAuthor(ctx context.Context, userID, authorID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &sub, nil
}

func (r *subscriptionRepository) FindByUserCategory(ctx context.Context, userID uint, category string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND category = ?", userID, category).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &sub, nil
}

// Delete removes the row outright. A soft-deleted subscription would keep
// the (user, author) unique index occupied and block re-subscribing.
func (r *subscriptionRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Unscoped().Delete(&models.Subscription{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Subscription")
	}
	return nil
}
