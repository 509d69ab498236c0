//go:build integration

package database_test

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"github.com/Tomlord1122/task-tracker/internal/config"
	"github.com/Tomlord1122/task-tracker/internal/database"
	"github.com/Tomlord1122/task-tracker/internal/domain"
	"github.com/Tomlord1122/task-tracker/internal/repository"
	"github.com/Tomlord1122/task-tracker/internal/testutil"
)

var pgConfig config.DatabaseConfig

func mustStartPostgresContainer() (func(context.Context, ...testcontainers.TerminateOption) error, error) {
	var (
		dbName = "tasks"
		dbPwd  = "password"
		dbUser = "user"
	)

	dbContainer, err := postgres.Run(
		context.Background(),
		"postgres:16-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, err
	}

	host, err := dbContainer.Host(context.Background())
	if err != nil {
		return dbContainer.Terminate, err
	}
	port, err := dbContainer.MappedPort(context.Background(), "5432/tcp")
	if err != nil {
		return dbContainer.Terminate, err
	}

	pgConfig = config.DatabaseConfig{
		Driver:          "postgres",
		Host:            host,
		Port:            port.Port(),
		Username:        dbUser,
		Password:        dbPwd,
		Name:            dbName,
		SSLMode:         "disable",
		MaxIdleConns:    2,
		MaxOpenConns:    5,
		ConnMaxLifetime: time.Minute,
		LogLevel:        "silent",
	}
	return dbContainer.Terminate, nil
}

func TestMain(m *testing.M) {
	teardown, err := mustStartPostgresContainer()
	if err != nil {
		log.Fatalf("could not start postgres container: %v", err)
	}

	code := m.Run()

	if teardown != nil {
		if err := teardown(context.Background()); err != nil {
			log.Printf("could not teardown postgres container: %v", err)
		}
	}
	os.Exit(code)
}

func openPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	svc, err := database.New(pgConfig, testutil.Logger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	require.NoError(t, svc.Migrate())

	db := svc.GetDB()
	require.NoError(t, db.Exec("TRUNCATE category_task, task_reminders, tasks, categories, users RESTART IDENTITY CASCADE").Error)
	return db
}

func TestPostgresHealth(t *testing.T) {
	svc, err := database.New(pgConfig, testutil.Logger())
	require.NoError(t, err)
	defer svc.Close()

	assert.Equal(t, "up", svc.Health()["status"])
}

func TestPostgresTaskQueries(t *testing.T) {
	db := openPostgres(t)
	ctx := context.Background()
	tasks := repository.NewGormTaskRepository(db)
	owner := testutil.SeedUser(t, db, "owner")
	work := testutil.SeedCategory(t, db, "Work")

	percent := &domain.Task{OwnerID: owner.ID, Title: "Done 100%", Priority: domain.PriorityHigh, Status: domain.StatusDone}
	require.NoError(t, tasks.Create(ctx, percent, []uint{work.ID, work.ID}))
	testutil.SeedTask(t, db, owner.ID, "Done 100X")

	list, total, err := tasks.List(ctx, repository.TaskFilters{Q: "100%"}, repository.NewPage(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, "Done 100%", list[0].Title)
	require.Len(t, list[0].Categories, 1)

	list, _, err = tasks.List(ctx, repository.TaskFilters{Category: "Work"}, repository.NewPage(1, 10))
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, tasks.SoftDelete(ctx, percent.ID))
	list, _, err = tasks.List(ctx, repository.TaskFilters{Status: "done"}, repository.NewPage(1, 10))
	require.NoError(t, err)
	assert.Empty(t, list)

	trashed, err := tasks.FindWithTrashed(ctx, percent.ID)
	require.NoError(t, err)
	assert.True(t, trashed.DeletedAt.Valid)
}

func TestPostgresTranslatesDuplicateCategory(t *testing.T) {
	db := openPostgres(t)
	categories := repository.NewGormCategoryRepository(db)
	ctx := context.Background()

	require.NoError(t, categories.Create(ctx, &domain.Category{Name: "Home"}))
	err := categories.Create(ctx, &domain.Category{Name: "Home"})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
