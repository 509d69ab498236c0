package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Tomlord1122/task-tracker/internal/domain"
	"github.com/Tomlord1122/task-tracker/internal/repository"
)

// ReminderPayload is the data a reminder needs at delivery time.
type ReminderPayload struct {
	TaskID    uint
	UserID    uint
	TaskTitle string
	DueDate   time.Time
}

// Scheduler queues a payload for delivery at or after deliverAt.
type Scheduler interface {
	Schedule(ctx context.Context, deliverAt time.Time, payload ReminderPayload) error
}

// StoreScheduler persists reminders so they survive restarts. The Dispatcher
// drains them.
type StoreScheduler struct {
	reminders repository.ReminderRepository
}

func NewStoreScheduler(reminders repository.ReminderRepository) *StoreScheduler {
	return &StoreScheduler{reminders: reminders}
}

func (s *StoreScheduler) Schedule(ctx context.Context, deliverAt time.Time, payload ReminderPayload) error {
	reminder := &domain.Reminder{
		ID:        uuid.NewString(),
		TaskID:    payload.TaskID,
		UserID:    payload.UserID,
		TaskTitle: payload.TaskTitle,
		DueDate:   payload.DueDate.UTC(),
		DeliverAt: deliverAt.UTC(),
	}
	if err := s.reminders.Create(ctx, reminder); err != nil {
		return fmt.Errorf("queue reminder for task %d: %w", payload.TaskID, err)
	}
	return nil
}
