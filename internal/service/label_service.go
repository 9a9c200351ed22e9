package service

import (
	"context"

	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/validation"
)

// LabelService owns the admin-managed category and tag vocabularies.
type LabelService struct {
	categoryRepo repository.CategoryRepository
	tagRepo      repository.TagRepository
}

// NewLabelService constructs a LabelService.
func NewLabelService(categoryRepo repository.CategoryRepository, tagRepo repository.TagRepository) *LabelService {
	return &LabelService{categoryRepo: categoryRepo, tagRepo: tagRepo}
}

func (s *LabelService) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	normalized, err := normalizeLabelName(name)
	if err != nil {
		return nil, err
	}
	category := &models.Category{Name: normalized}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *LabelService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.categoryRepo.List(ctx)
}

func (s *LabelService) UpdateCategory(ctx context.Context, id uint, name string) (*models.Category, error) {
	normalized, err := normalizeLabelName(name)
	if err != nil {
		return nil, err
	}
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	category.Name = normalized
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *LabelService) DeleteCategory(ctx context.Context, id uint) error {
	return s.categoryRepo.Delete(ctx, id)
}

func (s *LabelService) CreateTag(ctx context.Context, name string) (*models.Tag, error) {
	normalized, err := normalizeLabelName(name)
	if err != nil {
		return nil, err
	}
	tag := &models.Tag{Name: normalized}
	if err := s.tagRepo.Create(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

func (s *LabelService) ListTags(ctx context.Context) ([]models.Tag, error) {
	return s.tagRepo.List(ctx)
}

func (s *LabelService) UpdateTag(ctx context.Context, id uint, name string) (*models.Tag, error) {
	normalized, err := normalizeLabelName(name)
	if err != nil {
		return nil, err
	}
	tag, err := s.tagRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	tag.Name = normalized
	if err := s.tagRepo.Update(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

func (s *LabelService) DeleteTag(ctx context.Context, id uint) error {
	return s.tagRepo.Delete(ctx, id)
}

func normalizeLabelName(name string) (string, error) {
	normalized := validation.NormalizeLabel(name)
	if err := validation.ValidateLabelName(normalized); err != nil {
		return "", models.NewValidationError(err.Error())
	}
	return normalized, nil
}
