package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Tomlord1122/task-tracker/internal/domain"
)

// TaskRepository persists tasks and their category associations.
//
// For Create and Update a nil categoryIDs slice leaves the associations
// untouched; a non-nil slice (even empty) replaces them exactly.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task, categoryIDs []uint) error
	Update(ctx context.Context, task *domain.Task, categoryIDs []uint) error
	SoftDelete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*domain.Task, error)
	FindWithTrashed(ctx context.Context, id uint) (*domain.Task, error)
	List(ctx context.Context, filters TaskFilters, page Page) ([]domain.Task, int64, error)
	CategoryIDs(ctx context.Context, taskID uint) ([]uint, error)
}

type gormTaskRepository struct {
	db *gorm.DB
}

func NewGormTaskRepository(db *gorm.DB) TaskRepository {
	return &gormTaskRepository{db: db}
}

// updatableColumns never includes owner_id: ownership is fixed at creation.
var updatableColumns = []string{"assigned_to_id", "title", "description", "priority", "status", "due_date"}

func (r *gormTaskRepository) Create(ctx context.Context, task *domain.Task, categoryIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(task).Error; err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		if categoryIDs == nil {
			return nil
		}
		return syncCategories(tx, task.ID, categoryIDs)
	})
}

func (r *gormTaskRepository) Update(ctx context.Context, task *domain.Task, categoryIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(task).Select(updatableColumns).Updates(task)
		if result.Error != nil {
			return fmt.Errorf("update task %d: %w", task.ID, result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if categoryIDs == nil {
			return nil
		}
		return syncCategories(tx, task.ID, categoryIDs)
	})
}

// SoftDelete marks the task deleted. Category links are kept for history.
func (r *gormTaskRepository) SoftDelete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&domain.Task{}, id)
	if result.Error != nil {
		return fmt.Errorf("soft delete task %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *gormTaskRepository) FindByID(ctx context.Context, id uint) (*domain.Task, error) {
	var task domain.Task
	err := r.db.WithContext(ctx).
		Scopes(withTaskRelations).
		First(&task, id).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// FindWithTrashed also returns soft-deleted tasks.
func (r *gormTaskRepository) FindWithTrashed(ctx context.Context, id uint) (*domain.Task, error) {
	var task domain.Task
	if err := r.db.WithContext(ctx).Unscoped().First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *gormTaskRepository) List(ctx context.Context, filters TaskFilters, page Page) ([]domain.Task, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&domain.Task{}).
		Scopes(ApplyTaskFilters(filters)).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	tasks := []domain.Task{}
	if total == 0 {
		return tasks, 0, nil
	}

	err := r.db.WithContext(ctx).
		Scopes(ApplyTaskFilters(filters), withTaskRelations).
		Order("tasks.id ASC").
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, total, nil
}

// CategoryIDs returns every category id linked to the task, sorted.
func (r *gormTaskRepository) CategoryIDs(ctx context.Context, taskID uint) ([]uint, error) {
	ids := []uint{}
	err := r.db.WithContext(ctx).
		Model(&domain.CategoryTask{}).
		Where("task_id = ?", taskID).
		Order("category_id").
		Pluck("category_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("load categories of task %d: %w", taskID, err)
	}
	return ids, nil
}

func withTaskRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Owner", selectIDName).
		Preload("Assignee", selectIDName).
		Preload("Categories", func(db *gorm.DB) *gorm.DB {
			return db.Select("categories.id", "categories.name").Order("categories.id")
		})
}

func selectIDName(db *gorm.DB) *gorm.DB {
	return db.Select("id", "name")
}

// syncCategories makes the task's category links equal to desired:
// missing links are inserted, extra links removed, unchanged ones left alone.
func syncCategories(tx *gorm.DB, taskID uint, desired []uint) error {
	var current []uint
	if err := tx.Model(&domain.CategoryTask{}).
		Where("task_id = ?", taskID).
		Pluck("category_id", &current).Error; err != nil {
		return fmt.Errorf("load category links: %w", err)
	}

	add, remove := diffIDs(current, desired)

	if len(remove) > 0 {
		if err := tx.Where("task_id = ? AND category_id IN ?", taskID, remove).
			Delete(&domain.CategoryTask{}).Error; err != nil {
			return fmt.Errorf("detach categories: %w", err)
		}
	}
	if len(add) > 0 {
		now := time.Now()
		rows := make([]domain.CategoryTask, 0, len(add))
		for _, id := range add {
			rows = append(rows, domain.CategoryTask{CategoryID: id, TaskID: taskID, CreatedAt: now})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("attach categories: %w", err)
		}
	}
	return nil
}

// diffIDs returns the ids to insert and to delete to turn current into desired.
// Duplicates in desired are ignored; output preserves first-seen order.
func diffIDs(current, desired []uint) (add, remove []uint) {
	have := make(map[uint]struct{}, len(current))
	for _, id := range current {
		have[id] = struct{}{}
	}
	want := make(map[uint]struct{}, len(desired))
	for _, id := range desired {
		if _, dup := want[id]; dup {
			continue
		}
		want[id] = struct{}{}
		if _, ok := have[id]; !ok {
			add = append(add, id)
		}
	}
	for _, id := range current {
		if _, ok := want[id]; !ok {
			remove = append(remove, id)
		}
	}
	return add, remove
}
