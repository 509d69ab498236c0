package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Tomlord1122/task-tracker/internal/domain"
	"github.com/Tomlord1122/task-tracker/internal/repository"
)

// CategoryService manages the shared category list.
type CategoryService interface {
	List(ctx context.Context, page int) (*CategoryPage, error)
	Create(ctx context.Context, in CategoryInput) (*CategoryResponse, error)
	Update(ctx context.Context, id uint, in CategoryInput) (*CategoryResponse, error)
	Delete(ctx context.Context, id uint) error
}

type categoryService struct {
	categories repository.CategoryRepository
	validator  *inputValidator
	log        logrus.FieldLogger
}

func NewCategoryService(categories repository.CategoryRepository, log logrus.FieldLogger) CategoryService {
	return &categoryService{
		categories: categories,
		validator:  newInputValidator(nil, categories),
		log:        log.WithField("component", "category_service"),
	}
}

func (s *categoryService) List(ctx context.Context, pageNumber int) (*CategoryPage, error) {
	page := repository.NewPage(pageNumber, repository.DefaultPageSize)
	categories, total, err := s.categories.List(ctx, page)
	if err != nil {
		s.log.WithError(err).Error("list categories")
		return nil, ErrInternal
	}
	return &CategoryPage{
		Data: toCategoryResponses(categories),
		Meta: newPageMeta(page, total, len(categories)),
	}, nil
}

func (s *categoryService) Create(ctx context.Context, in CategoryInput) (*CategoryResponse, error) {
	name, err := s.validator.Category(ctx, in, 0)
	if err != nil {
		return nil, s.validationFailure(err)
	}

	category := &domain.Category{Name: name}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, s.writeFailure(err, "create category")
	}
	resp := toCategoryResponse(category)
	return &resp, nil
}

func (s *categoryService) Update(ctx context.Context, id uint, in CategoryInput) (*CategoryResponse, error) {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		s.log.WithError(err).WithField("category_id", id).Error("load category")
		return nil, ErrInternal
	}

	name, err := s.validator.Category(ctx, in, id)
	if err != nil {
		return nil, s.validationFailure(err)
	}

	category.Name = name
	if err := s.categories.Update(ctx, category); err != nil {
		return nil, s.writeFailure(err, "update category")
	}
	resp := toCategoryResponse(category)
	return &resp, nil
}

func (s *categoryService) Delete(ctx context.Context, id uint) error {
	if err := s.categories.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		s.log.WithError(err).WithField("category_id", id).Error("delete category")
		return ErrInternal
	}
	return nil
}

func (s *categoryService) validationFailure(err error) error {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr
	}
	s.log.WithError(err).Error("validate category input")
	return ErrInternal
}

// writeFailure maps a unique-index violation that slipped past NameTaken
// (a concurrent insert) to the same validation error.
func (s *categoryService) writeFailure(err error, op string) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		verr := &ValidationError{}
		verr.Add("name", nameTakenMessage)
		return verr
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	}
	s.log.WithError(err).Error(op)
	return fmt.Errorf("%w: failed to %s", ErrInternal, op)
}
