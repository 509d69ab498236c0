package domain

import (
	"time"

	"gorm.io/gorm"
)

// Category labels tasks. Names are unique across live and soft-deleted rows.
type Category struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:255;not null;uniqueIndex"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// CategoryTask is the join row between categories and tasks.
// The (category_id, task_id) pair is the primary key, so a pair is stored at most once.
type CategoryTask struct {
	CategoryID uint `gorm:"primaryKey;index"`
	TaskID     uint `gorm:"primaryKey;index"`
	CreatedAt  time.Time
}

func (CategoryTask) TableName() string {
	return "category_task"
}
