package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Tomlord1122/task-tracker/internal/domain"
)

// ReminderRepository is the durable delayed queue behind reminder scheduling.
type ReminderRepository interface {
	Create(ctx context.Context, reminder *domain.Reminder) error
	ListDue(ctx context.Context, now time.Time, limit, maxAttempts int) ([]domain.Reminder, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, cause error) error
}

type gormReminderRepository struct {
	db *gorm.DB
}

func NewGormReminderRepository(db *gorm.DB) ReminderRepository {
	return &gormReminderRepository{db: db}
}

func (r *gormReminderRepository) Create(ctx context.Context, reminder *domain.Reminder) error {
	if err := r.db.WithContext(ctx).Create(reminder).Error; err != nil {
		return fmt.Errorf("create reminder: %w", err)
	}
	return nil
}

// ListDue returns unsent reminders whose delivery time has passed, oldest first.
// Reminders that already failed maxAttempts times are skipped.
func (r *gormReminderRepository) ListDue(ctx context.Context, now time.Time, limit, maxAttempts int) ([]domain.Reminder, error) {
	reminders := []domain.Reminder{}
	q := r.db.WithContext(ctx).
		Where("sent_at IS NULL AND deliver_at <= ?", now)
	if maxAttempts > 0 {
		q = q.Where("attempts < ?", maxAttempts)
	}
	if err := q.Order("deliver_at ASC").Limit(limit).Find(&reminders).Error; err != nil {
		return nil, fmt.Errorf("list due reminders: %w", err)
	}
	return reminders, nil
}

func (r *gormReminderRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&domain.Reminder{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"sent_at": at, "attempts": gorm.Expr("attempts + 1"), "last_error": ""}).Error
	if err != nil {
		return fmt.Errorf("mark reminder %s sent: %w", id, err)
	}
	return nil
}

func (r *gormReminderRepository) MarkFailed(ctx context.Context, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	err := r.db.WithContext(ctx).
		Model(&domain.Reminder{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"attempts": gorm.Expr("attempts + 1"), "last_error": msg}).Error
	if err != nil {
		return fmt.Errorf("mark reminder %s failed: %w", id, err)
	}
	return nil
}
