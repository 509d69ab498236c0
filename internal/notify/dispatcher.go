package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/Tomlord1122/task-tracker/internal/config"
	"github.com/Tomlord1122/task-tracker/internal/domain"
	"github.com/Tomlord1122/task-tracker/internal/repository"
)

const reminderSubject = "Task Due Reminder"

// Dispatcher periodically sends reminders whose delivery time has passed.
type Dispatcher struct {
	reminders repository.ReminderRepository
	users     repository.UserRepository
	mailer    Mailer
	cfg       config.RemindersConfig
	appURL    string
	log       logrus.FieldLogger
	now       func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

func NewDispatcher(
	reminders repository.ReminderRepository,
	users repository.UserRepository,
	mailer Mailer,
	cfg config.RemindersConfig,
	appURL string,
	log logrus.FieldLogger,
) *Dispatcher {
	return &Dispatcher{
		reminders: reminders,
		users:     users,
		mailer:    mailer,
		cfg:       cfg,
		appURL:    appURL,
		log:       log.WithField("component", "reminder_dispatcher"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start registers the polling job and starts the cron runner. Runs never overlap.
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cron != nil {
		return errors.New("dispatcher already started")
	}

	logger := cron.PrintfLogger(d.log)
	c := cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	_, err := c.AddFunc(d.cfg.Schedule, func() {
		if _, err := d.RunOnce(context.Background()); err != nil {
			d.log.WithError(err).Error("reminder run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule reminder dispatcher %q: %w", d.cfg.Schedule, err)
	}
	c.Start()
	d.cron = c
	d.log.WithField("schedule", d.cfg.Schedule).Info("reminder dispatcher started")
	return nil
}

// Stop halts the runner and waits for a running job, or until ctx is done.
func (d *Dispatcher) Stop(ctx context.Context) {
	d.mu.Lock()
	c := d.cron
	d.cron = nil
	d.mu.Unlock()
	if c == nil {
		return
	}

	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		d.log.Warn("reminder dispatcher stop timed out")
	}
}

// RunOnce sends one batch of due reminders and returns how many were sent.
// A failed delivery is recorded on the reminder and retried on a later run.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	due, err := d.reminders.ListDue(ctx, d.now(), d.cfg.BatchSize, d.cfg.MaxAttempts)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range due {
		reminder := &due[i]
		entry := d.log.WithFields(logrus.Fields{"reminder_id": reminder.ID, "task_id": reminder.TaskID})

		if err := d.deliver(ctx, reminder); err != nil {
			entry.WithError(err).Warn("reminder delivery failed")
			if markErr := d.reminders.MarkFailed(ctx, reminder.ID, err); markErr != nil {
				entry.WithError(markErr).Error("record reminder failure")
			}
			continue
		}
		if err := d.reminders.MarkSent(ctx, reminder.ID, d.now()); err != nil {
			entry.WithError(err).Error("mark reminder sent")
			continue
		}
		sent++
	}
	return sent, nil
}

func (d *Dispatcher) deliver(ctx context.Context, reminder *domain.Reminder) error {
	user, err := d.users.FindByID(ctx, reminder.UserID)
	if err != nil {
		return fmt.Errorf("load recipient %d: %w", reminder.UserID, err)
	}
	return d.mailer.Send(ctx, reminderMail(user, reminder, d.appURL))
}

func reminderMail(user *domain.User, reminder *domain.Reminder, appURL string) Mail {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", user.Name)
	fmt.Fprintf(&b, "The task %q is due on %s.\n", reminder.TaskTitle, reminder.DueDate.Format("2006-01-02"))
	if appURL != "" {
		fmt.Fprintf(&b, "\nView your tasks: %s/tasks\n", strings.TrimRight(appURL, "/"))
	}
	return Mail{To: user.Email, Subject: reminderSubject, Body: b.String()}
}
