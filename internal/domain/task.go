package domain

import (
	"time"

	"gorm.io/gorm"
)

// Priority is the urgency level of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Priorities lists every valid priority in display order.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityNormal, PriorityHigh}
}

// Status is the progress state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Statuses lists every valid status in workflow order.
func Statuses() []Status {
	return []Status{StatusPending, StatusInProgress, StatusDone}
}

// Task is a unit of work owned by one user and optionally delegated to another.
type Task struct {
	ID           uint       `gorm:"primaryKey"`
	OwnerID      uint       `gorm:"not null;index"`
	AssignedToID *uint      `gorm:"index"`
	Title        string     `gorm:"size:255;not null"`
	Description  *string    `gorm:"type:text"`
	Priority     Priority   `gorm:"size:20;not null;default:normal;index:idx_tasks_status_priority,priority:2"`
	Status       Status     `gorm:"size:20;not null;default:pending;index:idx_tasks_status_priority,priority:1"`
	DueDate      *time.Time `gorm:"index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    gorm.DeletedAt `gorm:"index"`

	Owner      *User      `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
	Assignee   *User      `gorm:"foreignKey:AssignedToID;constraint:OnDelete:SET NULL"`
	Categories []Category `gorm:"many2many:category_task;constraint:OnDelete:CASCADE"`
}

// Recipients returns the distinct, non-null user ids involved in the task:
// the owner first, then the assignee when it is a different user.
func (t *Task) Recipients() []uint {
	ids := []uint{}
	if t.OwnerID != 0 {
		ids = append(ids, t.OwnerID)
	}
	if t.AssignedToID != nil && *t.AssignedToID != 0 && *t.AssignedToID != t.OwnerID {
		ids = append(ids, *t.AssignedToID)
	}
	return ids
}

// TaskAction tags a committed task mutation.
type TaskAction string

const (
	ActionCreated TaskAction = "created"
	ActionUpdated TaskAction = "updated"
	ActionDeleted TaskAction = "deleted"
)
