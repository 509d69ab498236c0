// Package testutil provides database fixtures shared by package tests.
package testutil

import (
	"fmt"
	"io"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Tomlord1122/task-tracker/internal/config"
	"github.com/Tomlord1122/task-tracker/internal/database"
	"github.com/Tomlord1122/task-tracker/internal/domain"
)

var seq atomic.Uint64

// Logger returns a logger that discards output.
func Logger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// NewDB opens a migrated SQLite database in a temp dir that is removed with the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	svc, err := database.New(config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      filepath.Join(t.TempDir(), "test.db"),
		LogLevel: "silent",
	}, Logger())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })

	if err := svc.Migrate(); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return svc.GetDB()
}

// SeedUser inserts a user with a unique email.
func SeedUser(t *testing.T, db *gorm.DB, name string) domain.User {
	t.Helper()
	n := seq.Add(1)
	user := domain.User{Name: name, Email: fmt.Sprintf("user%d@example.com", n)}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user %s: %v", name, err)
	}
	return user
}

// SeedCategory inserts a category.
func SeedCategory(t *testing.T, db *gorm.DB, name string) domain.Category {
	t.Helper()
	category := domain.Category{Name: name}
	if err := db.Create(&category).Error; err != nil {
		t.Fatalf("seed category %s: %v", name, err)
	}
	return category
}

// TaskOption customizes a seeded task.
type TaskOption func(*domain.Task)

func WithAssignee(id uint) TaskOption {
	return func(t *domain.Task) { t.AssignedToID = &id }
}

func WithStatus(s domain.Status) TaskOption {
	return func(t *domain.Task) { t.Status = s }
}

func WithPriority(p domain.Priority) TaskOption {
	return func(t *domain.Task) { t.Priority = p }
}

func WithDescription(d string) TaskOption {
	return func(t *domain.Task) { t.Description = &d }
}

func WithDueDate(due time.Time) TaskOption {
	return func(t *domain.Task) { t.DueDate = &due }
}

// SeedTask inserts a pending, normal-priority task owned by ownerID.
func SeedTask(t *testing.T, db *gorm.DB, ownerID uint, title string, opts ...TaskOption) domain.Task {
	t.Helper()
	task := domain.Task{
		OwnerID:  ownerID,
		Title:    title,
		Priority: domain.PriorityNormal,
		Status:   domain.StatusPending,
	}
	for _, opt := range opts {
		opt(&task)
	}
	if err := db.Omit("Categories").Create(&task).Error; err != nil {
		t.Fatalf("seed task %s: %v", title, err)
	}
	return task
}

// AttachCategories links categories to a task directly in the join table.
func AttachCategories(t *testing.T, db *gorm.DB, taskID uint, categoryIDs ...uint) {
	t.Helper()
	for _, id := range categoryIDs {
		row := domain.CategoryTask{CategoryID: id, TaskID: taskID}
		if err := db.Create(&row).Error; err != nil {
			t.Fatalf("attach category %d to task %d: %v", id, taskID, err)
		}
	}
}
