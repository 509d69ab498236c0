package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Tomlord1122/task-tracker/internal/domain"
	"github.com/Tomlord1122/task-tracker/internal/repository"
	"github.com/Tomlord1122/task-tracker/internal/testutil"
)

type recordedChange struct {
	TaskID uint
	Action domain.TaskAction
	Status domain.Status
}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []recordedChange
}

func (n *recordingNotifier) TaskChanged(_ context.Context, task domain.Task, action domain.TaskAction) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, recordedChange{TaskID: task.ID, Action: action, Status: task.Status})
}

func (n *recordingNotifier) Changes() []recordedChange {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]recordedChange(nil), n.changes...)
}

type taskFixture struct {
	db       *gorm.DB
	svc      TaskService
	notifier *recordingNotifier
}

func newTaskFixture(t *testing.T) *taskFixture {
	t.Helper()
	db := testutil.NewDB(t)
	notifier := &recordingNotifier{}
	svc := NewTaskService(
		repository.NewGormTaskRepository(db),
		repository.NewGormUserRepository(db),
		repository.NewGormCategoryRepository(db),
		notifier,
		testutil.Logger(),
	)
	return &taskFixture{db: db, svc: svc, notifier: notifier}
}

func (f *taskFixture) stored(t *testing.T, id uint) domain.Task {
	t.Helper()
	var task domain.Task
	require.NoError(t, f.db.Unscoped().First(&task, id).Error)
	return task
}

func validInput(title string) TaskInput {
	return TaskInput{Title: title, Priority: "normal", Status: "pending"}
}

func requireValidationFields(t *testing.T, err error, fields ...string) {
	t.Helper()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	for _, f := range fields {
		assert.Contains(t, verr.Fields, f)
	}
}

func TestCreateTaskScenario(t *testing.T) {
	f := newTaskFixture(t)
	u := testutil.SeedUser(t, f.db, "U")
	tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02")

	in := validInput("My Task")
	in.DueDate = Some(tomorrow)
	resp, err := f.svc.Create(context.Background(), u.ID, in)
	require.NoError(t, err)

	assert.Equal(t, u.ID, resp.OwnerID)
	require.NotNil(t, resp.Owner)
	assert.Equal(t, "U", resp.Owner.Name)
	require.NotNil(t, resp.DueDate)

	stored := f.stored(t, resp.ID)
	assert.Equal(t, u.ID, stored.OwnerID)
	assert.Equal(t, domain.StatusPending, stored.Status)
	assert.Equal(t, []recordedChange{{TaskID: resp.ID, Action: domain.ActionCreated, Status: domain.StatusPending}}, f.notifier.Changes())
}

func TestCreateForcesOwnerToRequester(t *testing.T) {
	f := newTaskFixture(t)
	u := testutil.SeedUser(t, f.db, "U")
	other := testutil.SeedUser(t, f.db, "other")

	in := validInput("mine")
	in.OwnerID = &other.ID
	resp, err := f.svc.Create(context.Background(), u.ID, in)
	require.NoError(t, err)
	assert.Equal(t, u.ID, f.stored(t, resp.ID).OwnerID)

	ghost := uint(9999)
	in.OwnerID = &ghost
	_, err = f.svc.Create(context.Background(), u.ID, in)
	requireValidationFields(t, err, "owner_id")
}

func TestCreateWithCategoriesAndAssignee(t *testing.T) {
	f := newTaskFixture(t)
	owner := testutil.SeedUser(t, f.db, "owner")
	assignee := testutil.SeedUser(t, f.db, "assignee")
	work := testutil.SeedCategory(t, f.db, "Work")

	in := validInput("tagged")
	in.AssignedToID = Some(assignee.ID)
	in.Description = Some("details")
	in.Categories = []uint{work.ID, work.ID}
	resp, err := f.svc.Create(context.Background(), owner.ID, in)
	require.NoError(t, err)

	require.Len(t, resp.Categories, 1)
	assert.Equal(t, "Work", resp.Categories[0].Name)
	require.NotNil(t, resp.Assignee)
	assert.Equal(t, "assignee", resp.Assignee.Name)
	require.NotNil(t, resp.Description)
	assert.Equal(t, "details", *resp.Description)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	f := newTaskFixture(t)
	u := testutil.SeedUser(t, f.db, "U")
	gone := testutil.SeedCategory(t, f.db, "gone")
	require.NoError(t, f.db.Delete(&domain.Category{}, gone.ID).Error)

	long := make([]byte, 256)
	for i := range long {
		long[i] = 'a'
	}

	tests := []struct {
		name   string
		input  TaskInput
		fields []string
	}{
		{"missing title", TaskInput{Priority: "low", Status: "done"}, []string{"title"}},
		{"title too long", TaskInput{Title: string(long), Priority: "low", Status: "done"}, []string{"title"}},
		{"bad enums", TaskInput{Title: "t", Priority: "urgent", Status: "archived"}, []string{"priority", "status"}},
		{"bad due date", TaskInput{Title: "t", Priority: "low", Status: "done", DueDate: Some("next tuesday")}, []string{"due_date"}},
		{"unknown assignee", TaskInput{Title: "t", Priority: "low", Status: "done", AssignedToID: Some(uint(4242))}, []string{"assigned_to_id"}},
		{"deleted category", TaskInput{Title: "t", Priority: "low", Status: "done", Categories: []uint{gone.ID}}, []string{"categories.0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), u.ID, tt.input)
			requireValidationFields(t, err, tt.fields...)
		})
	}

	var count int64
	require.NoError(t, f.db.Unscoped().Model(&domain.Task{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, f.notifier.Changes())
}

func TestUpdateByStrangerLeavesTaskUnchanged(t *testing.T) {
	f := newTaskFixture(t)
	b := testutil.SeedUser(t, f.db, "B")
	a := testutil.SeedUser(t, f.db, "A")
	task := testutil.SeedTask(t, f.db, b.ID, "B's task")

	_, err := f.svc.Update(context.Background(), a.ID, task.ID, validInput("hijacked"))
	require.ErrorIs(t, err, ErrForbidden)

	assert.Equal(t, "B's task", f.stored(t, task.ID).Title)
	assert.Empty(t, f.notifier.Changes())
}

func TestUpdateChecksExistenceBeforeValidation(t *testing.T) {
	f := newTaskFixture(t)
	u := testutil.SeedUser(t, f.db, "U")

	_, err := f.svc.Update(context.Background(), u.ID, 777, TaskInput{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateValidatesBeforeAuthorizing(t *testing.T) {
	f := newTaskFixture(t)
	owner := testutil.SeedUser(t, f.db, "owner")
	stranger := testutil.SeedUser(t, f.db, "stranger")
	task := testutil.SeedTask(t, f.db, owner.ID, "t")

	_, err := f.svc.Update(context.Background(), stranger.ID, task.ID, TaskInput{})
	requireValidationFields(t, err, "title")
}

func TestReassignment(t *testing.T) {
	ctx := context.Background()
	f := newTaskFixture(t)
	owner := testutil.SeedUser(t, f.db, "owner")
	assignee := testutil.SeedUser(t, f.db, "assignee")
	third := testutil.SeedUser(t, f.db, "third")
	task := testutil.SeedTask(t, f.db, owner.ID, "shared", testutil.WithAssignee(assignee.ID))

	t.Run("assignee may edit without touching the assignee", func(t *testing.T) {
		in := validInput("edited by assignee")
		in.Status = "in_progress"
		_, err := f.svc.Update(ctx, assignee.ID, task.ID, in)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusInProgress, f.stored(t, task.ID).Status)
	})

	t.Run("assignee may resend the current assignee", func(t *testing.T) {
		in := validInput("still assignee")
		in.AssignedToID = Some(assignee.ID)
		_, err := f.svc.Update(ctx, assignee.ID, task.ID, in)
		require.NoError(t, err)
	})

	t.Run("assignee may not reassign", func(t *testing.T) {
		in := validInput("reassigned by assignee")
		in.AssignedToID = Some(third.ID)
		_, err := f.svc.Update(ctx, assignee.ID, task.ID, in)
		require.ErrorIs(t, err, ErrForbidden)

		stored := f.stored(t, task.ID)
		assert.Equal(t, "still assignee", stored.Title)
		require.NotNil(t, stored.AssignedToID)
		assert.Equal(t, assignee.ID, *stored.AssignedToID)
	})

	t.Run("assignee may not unassign", func(t *testing.T) {
		in := validInput("drop it")
		in.AssignedToID = Null[uint]()
		_, err := f.svc.Update(ctx, assignee.ID, task.ID, in)
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("owner may reassign", func(t *testing.T) {
		in := validInput("reassigned by owner")
		in.AssignedToID = Some(third.ID)
		resp, err := f.svc.Update(ctx, owner.ID, task.ID, in)
		require.NoError(t, err)
		require.NotNil(t, resp.Assignee)
		assert.Equal(t, "third", resp.Assignee.Name)
	})

	t.Run("owner may clear the assignee", func(t *testing.T) {
		in := validInput("unassigned")
		in.AssignedToID = Null[uint]()
		resp, err := f.svc.Update(ctx, owner.ID, task.ID, in)
		require.NoError(t, err)
		assert.Nil(t, resp.AssignedToID)
		assert.Nil(t, f.stored(t, task.ID).AssignedToID)
	})
}

func TestUpdateLeavesAbsentOptionalsAlone(t *testing.T) {
	ctx := context.Background()
	f := newTaskFixture(t)
	owner := testutil.SeedUser(t, f.db, "owner")
	assignee := testutil.SeedUser(t, f.db, "assignee")
	cat := testutil.SeedCategory(t, f.db, "cat")
	due := time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC)
	task := testutil.SeedTask(t, f.db, owner.ID, "full",
		testutil.WithAssignee(assignee.ID),
		testutil.WithDescription("keep me"),
		testutil.WithDueDate(due),
	)
	testutil.AttachCategories(t, f.db, task.ID, cat.ID)

	var in TaskInput
	require.NoError(t, json.Unmarshal([]byte(`{"title":"renamed","priority":"high","status":"done"}`), &in))
	resp, err := f.svc.Update(ctx, owner.ID, task.ID, in)
	require.NoError(t, err)

	assert.Equal(t, "renamed", resp.Title)
	require.NotNil(t, resp.Description)
	assert.Equal(t, "keep me", *resp.Description)
	require.NotNil(t, resp.AssignedToID)
	assert.Equal(t, assignee.ID, *resp.AssignedToID)
	require.NotNil(t, resp.DueDate)
	assert.Len(t, resp.Categories, 1)

	require.NoError(t, json.Unmarshal([]byte(`{"title":"renamed","priority":"high","status":"done","description":null,"due_date":null,"categories":[]}`), &in))
	resp, err = f.svc.Update(ctx, owner.ID, task.ID, in)
	require.NoError(t, err)
	assert.Nil(t, resp.Description)
	assert.Nil(t, resp.DueDate)
	assert.Empty(t, resp.Categories)

	changes := f.notifier.Changes()
	require.Len(t, changes, 2)
	assert.Equal(t, domain.ActionUpdated, changes[1].Action)
	assert.Equal(t, domain.StatusDone, changes[1].Status)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	f := newTaskFixture(t)
	owner := testutil.SeedUser(t, f.db, "owner")
	assignee := testutil.SeedUser(t, f.db, "assignee")
	task := testutil.SeedTask(t, f.db, owner.ID, "doomed", testutil.WithAssignee(assignee.ID))

	require.ErrorIs(t, f.svc.Delete(ctx, assignee.ID, task.ID), ErrForbidden)
	assert.False(t, f.stored(t, task.ID).DeletedAt.Valid)

	require.NoError(t, f.svc.Delete(ctx, owner.ID, task.ID))
	assert.True(t, f.stored(t, task.ID).DeletedAt.Valid)

	_, err := f.svc.Get(ctx, owner.ID, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, owner.ID, task.ID), ErrNotFound)

	assert.Equal(t, []recordedChange{{TaskID: task.ID, Action: domain.ActionDeleted, Status: domain.StatusPending}}, f.notifier.Changes())
}

func TestListIncludesFilterData(t *testing.T) {
	f := newTaskFixture(t)
	owner := testutil.SeedUser(t, f.db, "owner")
	testutil.SeedCategory(t, f.db, "Zeta")
	testutil.SeedCategory(t, f.db, "Alpha")
	for i := 0; i < 12; i++ {
		testutil.SeedTask(t, f.db, owner.ID, "task", testutil.WithStatus(domain.StatusDone))
	}
	testutil.SeedTask(t, f.db, owner.ID, "other")

	filters := repository.TaskFilters{Status: "done"}
	page, err := f.svc.List(context.Background(), owner.ID, filters, 2)
	require.NoError(t, err)

	assert.Len(t, page.Data, 2)
	assert.Equal(t, filters, page.Filters)
	assert.EqualValues(t, 12, page.Meta.Total)
	assert.Equal(t, 2, page.Meta.LastPage)
	require.NotNil(t, page.Meta.From)
	assert.Equal(t, 11, *page.Meta.From)
	assert.Equal(t, 12, *page.Meta.To)
	require.Len(t, page.Categories, 2)
	assert.Equal(t, "Alpha", page.Categories[0].Name)
}

func TestOptionalUnmarshal(t *testing.T) {
	var in TaskInput
	require.NoError(t, json.Unmarshal([]byte(`{"assigned_to_id":null,"description":"x"}`), &in))
	assert.True(t, in.AssignedToID.Set)
	assert.Nil(t, in.AssignedToID.Value)
	assert.True(t, in.Description.Set)
	require.NotNil(t, in.Description.Value)
	assert.Equal(t, "x", *in.Description.Value)
	assert.False(t, in.DueDate.Set)
	assert.Nil(t, in.Categories)
}

func TestParseDueDate(t *testing.T) {
	for _, raw := range []string{"2030-01-02", "2030-01-02 15:04:05", "2030-01-02T15:04:05Z", "2030-01-02T15:04:05+02:00"} {
		_, err := parseDueDate(raw)
		assert.NoError(t, err, raw)
	}
	_, err := parseDueDate("02/01/2030")
	assert.Error(t, err)
}
