package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Tomlord1122/task-tracker/internal/domain"
	"github.com/Tomlord1122/task-tracker/internal/policy"
	"github.com/Tomlord1122/task-tracker/internal/repository"
)

// ChangeNotifier is told about every committed task mutation. Implementations
// must not fail the caller; delivery problems are theirs to log. The context
// passed in is detached from the request's cancellation.
type ChangeNotifier interface {
	TaskChanged(ctx context.Context, task domain.Task, action domain.TaskAction)
}

type nopNotifier struct{}

func (nopNotifier) TaskChanged(context.Context, domain.Task, domain.TaskAction) {}

// TaskService holds the task business rules: authorization, validation,
// transactional writes and change notification.
type TaskService interface {
	List(ctx context.Context, requesterID uint, filters repository.TaskFilters, page int) (*TaskPage, error)
	Get(ctx context.Context, requesterID, id uint) (*TaskResponse, error)
	Create(ctx context.Context, requesterID uint, in TaskInput) (*TaskResponse, error)
	Update(ctx context.Context, requesterID, id uint, in TaskInput) (*TaskResponse, error)
	Delete(ctx context.Context, requesterID, id uint) error
}

type taskService struct {
	tasks      repository.TaskRepository
	categories repository.CategoryRepository
	validator  *inputValidator
	notifier   ChangeNotifier
	log        logrus.FieldLogger
}

// NewTaskService wires the task service. A nil notifier disables change events.
func NewTaskService(
	tasks repository.TaskRepository,
	users repository.UserRepository,
	categories repository.CategoryRepository,
	notifier ChangeNotifier,
	log logrus.FieldLogger,
) TaskService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &taskService{
		tasks:      tasks,
		categories: categories,
		validator:  newInputValidator(users, categories),
		notifier:   notifier,
		log:        log.WithField("component", "task_service"),
	}
}

func (s *taskService) List(ctx context.Context, requesterID uint, filters repository.TaskFilters, pageNumber int) (*TaskPage, error) {
	if !policy.CanViewAny(requesterID) {
		return nil, fmt.Errorf("%w: you are not authorized to view the task list", ErrForbidden)
	}

	page := repository.NewPage(pageNumber, repository.DefaultPageSize)
	tasks, total, err := s.tasks.List(ctx, filters, page)
	if err != nil {
		s.log.WithError(err).Error("list tasks")
		return nil, ErrInternal
	}
	categories, err := s.categories.All(ctx)
	if err != nil {
		s.log.WithError(err).Error("list categories for task filters")
		return nil, ErrInternal
	}

	data := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		data = append(data, toTaskResponse(&tasks[i]))
	}
	return &TaskPage{
		Data:       data,
		Meta:       newPageMeta(page, total, len(tasks)),
		Categories: toCategoryResponses(categories),
		Filters:    filters,
	}, nil
}

func (s *taskService) Get(ctx context.Context, requesterID, id uint) (*TaskResponse, error) {
	if !policy.CanViewAny(requesterID) {
		return nil, fmt.Errorf("%w: you are not authorized to view this task", ErrForbidden)
	}
	task, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toTaskResponse(task)
	return &resp, nil
}

func (s *taskService) Create(ctx context.Context, requesterID uint, in TaskInput) (*TaskResponse, error) {
	if !policy.CanCreate(requesterID) {
		return nil, fmt.Errorf("%w: you are not authorized to create tasks", ErrForbidden)
	}

	valid, err := s.validator.Task(ctx, in)
	if err != nil {
		return nil, s.validationFailure(err)
	}

	task := &domain.Task{
		OwnerID:  requesterID,
		Title:    valid.Title,
		Priority: valid.Priority,
		Status:   valid.Status,
	}
	applyOptionals(task, valid)

	if err := s.tasks.Create(ctx, task, valid.Categories); err != nil {
		s.log.WithError(err).WithField("owner_id", requesterID).Error("create task transaction failed")
		return nil, fmt.Errorf("%w: failed to create task, please try again later", ErrInternal)
	}

	committed := context.WithoutCancel(ctx)
	stored := s.reload(committed, task)
	s.notifier.TaskChanged(committed, *stored, domain.ActionCreated)

	resp := toTaskResponse(stored)
	return &resp, nil
}

func (s *taskService) Update(ctx context.Context, requesterID, id uint, in TaskInput) (*TaskResponse, error) {
	task, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	valid, err := s.validator.Task(ctx, in)
	if err != nil {
		return nil, s.validationFailure(err)
	}

	if !policy.CanUpdate(requesterID, task) {
		return nil, fmt.Errorf("%w: you are not authorized to update this task", ErrForbidden)
	}
	if valid.Assignee.Set && policy.AssigneeChanged(task, valid.Assignee.Value) && !policy.CanAssign(requesterID, task) {
		return nil, fmt.Errorf("%w: only the owner can (re)assign this task to another user", ErrForbidden)
	}

	changes := *task
	changes.Owner, changes.Assignee, changes.Categories = nil, nil, nil
	changes.Title = valid.Title
	changes.Priority = valid.Priority
	changes.Status = valid.Status
	applyOptionals(&changes, valid)

	if err := s.tasks.Update(ctx, &changes, valid.Categories); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		s.log.WithError(err).WithField("task_id", id).Error("update task transaction failed")
		return nil, fmt.Errorf("%w: failed to update task", ErrInternal)
	}

	committed := context.WithoutCancel(ctx)
	stored := s.reload(committed, &changes)
	s.notifier.TaskChanged(committed, *stored, domain.ActionUpdated)

	resp := toTaskResponse(stored)
	return &resp, nil
}

func (s *taskService) Delete(ctx context.Context, requesterID, id uint) error {
	task, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanDelete(requesterID, task) {
		return fmt.Errorf("%w: you are not authorized to delete this task", ErrForbidden)
	}

	if err := s.tasks.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		s.log.WithError(err).WithField("task_id", id).Error("delete task")
		return fmt.Errorf("%w: failed to delete task", ErrInternal)
	}

	s.notifier.TaskChanged(context.WithoutCancel(ctx), *task, domain.ActionDeleted)
	return nil
}

func (s *taskService) find(ctx context.Context, id uint) (*domain.Task, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		s.log.WithError(err).WithField("task_id", id).Error("load task")
		return nil, ErrInternal
	}
	return task, nil
}

// reload fetches the committed row with its relations. The write already
// succeeded, so a failed read falls back to the in-memory copy.
func (s *taskService) reload(ctx context.Context, task *domain.Task) *domain.Task {
	stored, err := s.tasks.FindByID(ctx, task.ID)
	if err != nil {
		s.log.WithError(err).WithField("task_id", task.ID).Warn("reload task after write")
		return task
	}
	return stored
}

func (s *taskService) validationFailure(err error) error {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr
	}
	s.log.WithError(err).Error("validate task input")
	return ErrInternal
}

// applyOptionals copies the optional fields that were present in the request.
func applyOptionals(task *domain.Task, valid *validatedTask) {
	if valid.Description.Set {
		task.Description = valid.Description.Value
	}
	if valid.DueDate.Set {
		task.DueDate = valid.DueDate.Value
	}
	if valid.Assignee.Set {
		task.AssignedToID = valid.Assignee.Value
	}
}
