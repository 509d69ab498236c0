package domain

import "time"

// Reminder is a queued due-date notification for a task assignee.
// Title and DueDate are captured when the reminder is scheduled.
type Reminder struct {
	ID        string    `gorm:"primaryKey;size:36"`
	TaskID    uint      `gorm:"not null;index"`
	UserID    uint      `gorm:"not null;index"`
	TaskTitle string    `gorm:"size:255;not null"`
	DueDate   time.Time `gorm:"not null"`
	DeliverAt time.Time `gorm:"not null;index"`
	Attempts  int       `gorm:"not null;default:0"`
	LastError string    `gorm:"type:text"`
	SentAt    *time.Time
	CreatedAt time.Time
}

func (Reminder) TableName() string {
	return "task_reminders"
}
