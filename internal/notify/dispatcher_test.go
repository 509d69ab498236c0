package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tomlord1122/task-tracker/internal/config"
	"github.com/Tomlord1122/task-tracker/internal/domain"
	"github.com/Tomlord1122/task-tracker/internal/repository"
	"github.com/Tomlord1122/task-tracker/internal/testutil"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []Mail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, mail Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, mail)
	return nil
}

func TestDispatcherRunOnce(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.SeedUser(t, db, "Ada")
	reminders := repository.NewGormReminderRepository(db)
	scheduler := NewStoreScheduler(reminders)

	now := time.Date(2030, 1, 10, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	due := time.Date(2030, 1, 11, 0, 0, 0, 0, time.UTC)
	require.NoError(t, scheduler.Schedule(ctx, due.AddDate(0, 0, -1), ReminderPayload{TaskID: 1, UserID: user.ID, TaskTitle: "ship it", DueDate: due}))
	require.NoError(t, scheduler.Schedule(ctx, now.Add(time.Hour), ReminderPayload{TaskID: 2, UserID: user.ID, TaskTitle: "later", DueDate: due}))

	mailer := &fakeMailer{}
	d := NewDispatcher(reminders, repository.NewGormUserRepository(db), mailer,
		config.RemindersConfig{BatchSize: 10, MaxAttempts: 3}, "http://tasks.local/", testutil.Logger())
	d.now = func() time.Time { return now }

	sent, err := d.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, user.Email, mailer.sent[0].To)
	assert.Equal(t, "Task Due Reminder", mailer.sent[0].Subject)
	assert.Contains(t, mailer.sent[0].Body, `The task "ship it" is due on 2030-01-11.`)
	assert.Contains(t, mailer.sent[0].Body, "http://tasks.local/tasks")

	sent, err = d.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent, "a sent reminder is not sent again")
}

func TestDispatcherRecordsFailures(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.SeedUser(t, db, "Ada")
	reminders := repository.NewGormReminderRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, NewStoreScheduler(reminders).Schedule(ctx, now.Add(-time.Minute), ReminderPayload{TaskID: 1, UserID: user.ID, TaskTitle: "t", DueDate: now}))

	mailer := &fakeMailer{err: errors.New("smtp unavailable")}
	d := NewDispatcher(reminders, repository.NewGormUserRepository(db), mailer,
		config.RemindersConfig{BatchSize: 10, MaxAttempts: 2}, "", testutil.Logger())
	d.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		sent, err := d.RunOnce(ctx)
		require.NoError(t, err)
		assert.Zero(t, sent)
	}

	var stored []domain.Reminder
	require.NoError(t, db.Find(&stored).Error)
	require.Len(t, stored, 1)
	assert.Equal(t, 2, stored[0].Attempts, "attempts stop at the configured maximum")
	assert.Equal(t, "smtp unavailable", stored[0].LastError)
	assert.Nil(t, stored[0].SentAt)
}

func TestDispatcherStartStop(t *testing.T) {
	db := testutil.NewDB(t)
	reminders := repository.NewGormReminderRepository(db)
	d := NewDispatcher(reminders, repository.NewGormUserRepository(db), &fakeMailer{},
		config.RemindersConfig{Schedule: "@every 1h", BatchSize: 1}, "", testutil.Logger())

	require.NoError(t, d.Start())
	assert.Error(t, d.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	d.Stop(ctx)
	d.Stop(ctx)

	bad := NewDispatcher(reminders, repository.NewGormUserRepository(db), &fakeMailer{},
		config.RemindersConfig{Schedule: "whenever", BatchSize: 1}, "", testutil.Logger())
	assert.Error(t, bad.Start())
}

func TestReminderMailWithoutAppURL(t *testing.T) {
	mail := reminderMail(&domain.User{Name: "Bo", Email: "bo@example.com"},
		&domain.Reminder{TaskTitle: "x", DueDate: time.Date(2031, 7, 4, 0, 0, 0, 0, time.UTC)}, "")
	assert.Equal(t, "bo@example.com", mail.To)
	assert.NotContains(t, mail.Body, "View your tasks")
	assert.Contains(t, mail.Body, "2031-07-04")
}

func TestNewMailerFallsBackToLog(t *testing.T) {
	_, isLog := NewMailer(config.MailConfig{}, testutil.Logger()).(*LogMailer)
	assert.True(t, isLog)
	_, isSMTP := NewMailer(config.MailConfig{SMTPHost: "smtp.local", SMTPPort: 25}, testutil.Logger()).(*SMTPMailer)
	assert.True(t, isSMTP)
}
