package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Tomlord1122/task-tracker/internal/domain"
)

const (
	EventTaskUpdated = "TaskUpdated"
	userTopicPrefix  = "tasks.user."
)

// TaskEvent is broadcast after every committed task mutation.
type TaskEvent struct {
	ID     uint              `json:"id"`
	Title  string            `json:"title"`
	Status domain.Status     `json:"status"`
	Action domain.TaskAction `json:"action"`
}

func (TaskEvent) EventName() string {
	return EventTaskUpdated
}

// UserTopic is the private channel of a user.
func UserTopic(userID uint) string {
	return fmt.Sprintf("%s%d", userTopicPrefix, userID)
}

// AuthorizeChannel reports whether userID may listen on channel.
// Only a user's own tasks.user.{id} channel is allowed.
func AuthorizeChannel(userID uint, channel string) bool {
	rest, ok := strings.CutPrefix(channel, userTopicPrefix)
	if !ok {
		return false
	}
	id, err := strconv.ParseUint(rest, 10, 64)
	if err != nil {
		return false
	}
	return userID != 0 && uint(id) == userID
}

// TaskNotifier publishes task events to the users involved and queues a
// reminder for the assignee when the task has a due date.
type TaskNotifier struct {
	publisher Publisher
	scheduler Scheduler
	log       logrus.FieldLogger
}

func NewTaskNotifier(publisher Publisher, scheduler Scheduler, log logrus.FieldLogger) *TaskNotifier {
	return &TaskNotifier{
		publisher: publisher,
		scheduler: scheduler,
		log:       log.WithField("component", "task_notifier"),
	}
}

func (n *TaskNotifier) TaskChanged(ctx context.Context, task domain.Task, action domain.TaskAction) {
	event := TaskEvent{ID: task.ID, Title: task.Title, Status: task.Status, Action: action}
	for _, userID := range task.Recipients() {
		if err := n.publisher.Publish(ctx, UserTopic(userID), event); err != nil {
			n.log.WithError(err).WithFields(logrus.Fields{
				"task_id": task.ID,
				"user_id": userID,
			}).Warn("publish task event")
		}
	}

	if action == domain.ActionDeleted || n.scheduler == nil {
		return
	}
	if task.DueDate == nil || task.AssignedToID == nil {
		return
	}

	payload := ReminderPayload{
		TaskID:    task.ID,
		UserID:    *task.AssignedToID,
		TaskTitle: task.Title,
		DueDate:   *task.DueDate,
	}
	deliverAt := task.DueDate.AddDate(0, 0, -1)
	if err := n.scheduler.Schedule(ctx, deliverAt, payload); err != nil {
		n.log.WithError(err).WithField("task_id", task.ID).Error("schedule due date reminder")
	}
}
