package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Tomlord1122/task-tracker/internal/domain"
)

// CategoryRepository manages task categories.
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	Update(ctx context.Context, category *domain.Category) error
	SoftDelete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*domain.Category, error)
	List(ctx context.Context, page Page) ([]domain.Category, int64, error)
	All(ctx context.Context) ([]domain.Category, error)
	NameTaken(ctx context.Context, name string, exceptID uint) (bool, error)
	Missing(ctx context.Context, ids []uint) ([]uint, error)
}

type gormCategoryRepository struct {
	db *gorm.DB
}

func NewGormCategoryRepository(db *gorm.DB) CategoryRepository {
	return &gormCategoryRepository{db: db}
}

func (r *gormCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (r *gormCategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	result := r.db.WithContext(ctx).Model(category).Select("name").Updates(category)
	if result.Error != nil {
		return fmt.Errorf("update category %d: %w", category.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *gormCategoryRepository) SoftDelete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&domain.Category{}, id)
	if result.Error != nil {
		return fmt.Errorf("soft delete category %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *gormCategoryRepository) FindByID(ctx context.Context, id uint) (*domain.Category, error) {
	var category domain.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *gormCategoryRepository) List(ctx context.Context, page Page) ([]domain.Category, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.Category{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count categories: %w", err)
	}

	categories := []domain.Category{}
	err := r.db.WithContext(ctx).
		Select("id", "name").
		Order("id ASC").
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&categories).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list categories: %w", err)
	}
	return categories, total, nil
}

// All returns every live category ordered by name.
func (r *gormCategoryRepository) All(ctx context.Context) ([]domain.Category, error) {
	categories := []domain.Category{}
	if err := r.db.WithContext(ctx).Select("id", "name").Order("name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list all categories: %w", err)
	}
	return categories, nil
}

// NameTaken checks live and soft-deleted rows, matching the unique index on name.
func (r *gormCategoryRepository) NameTaken(ctx context.Context, name string, exceptID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Unscoped().Model(&domain.Category{}).Where("name = ?", name)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("check category name: %w", err)
	}
	return count > 0, nil
}

// Missing returns the ids that do not reference a live category.
func (r *gormCategoryRepository) Missing(ctx context.Context, ids []uint) ([]uint, error) {
	return missingIDs(ctx, r.db, &domain.Category{}, ids)
}

func missingIDs(ctx context.Context, db *gorm.DB, model interface{}, ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []uint
	if err := db.WithContext(ctx).Model(model).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, fmt.Errorf("lookup ids: %w", err)
	}
	present := make(map[uint]struct{}, len(found))
	for _, id := range found {
		present[id] = struct{}{}
	}
	var missing []uint
	for _, id := range ids {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}
