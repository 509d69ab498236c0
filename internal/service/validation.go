package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Tomlord1122/task-tracker/internal/domain"
	"github.com/Tomlord1122/task-tracker/internal/repository"
)

// taskRules is the validation table for task input, keyed by JSON field name.
// Existence checks against storage are applied separately.
var taskRules = map[string]string{
	"title":    "required,max=255",
	"priority": "required,oneof=low normal high",
	"status":   "required,oneof=pending in_progress done",
}

var categoryRules = map[string]string{
	"name": "required,max=255",
}

// dueDateLayouts are tried in order when parsing due_date.
var dueDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// validatedTask is a TaskInput after validation, with normalized values.
type validatedTask struct {
	Title       string
	Priority    domain.Priority
	Status      domain.Status
	Description Optional[string]
	Assignee    Optional[uint]
	DueDate     Optional[time.Time]
	Categories  []uint
}

type inputValidator struct {
	validate   *validator.Validate
	users      repository.UserRepository
	categories repository.CategoryRepository
}

func newInputValidator(users repository.UserRepository, categories repository.CategoryRepository) *inputValidator {
	return &inputValidator{
		validate:   validator.New(),
		users:      users,
		categories: categories,
	}
}

// checkRules runs each rule of the table against the value found under the same key.
func (v *inputValidator) checkRules(rules map[string]string, values map[string]interface{}, verr *ValidationError) {
	for field, rule := range rules {
		err := v.validate.Var(values[field], rule)
		if err == nil {
			continue
		}
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			verr.Add(field, fmt.Sprintf("The %s field is invalid.", humanize(field)))
			continue
		}
		for _, fe := range fieldErrs {
			verr.Add(field, ruleMessage(field, fe))
		}
	}
}

// Task validates a task body. It returns a *ValidationError for bad input and
// a wrapped storage error when an existence check could not run.
func (v *inputValidator) Task(ctx context.Context, in TaskInput) (*validatedTask, error) {
	verr := &ValidationError{}
	out := &validatedTask{
		Title:       strings.TrimSpace(in.Title),
		Priority:    domain.Priority(strings.TrimSpace(in.Priority)),
		Status:      domain.Status(strings.TrimSpace(in.Status)),
		Description: in.Description,
		Assignee:    in.AssignedToID,
		Categories:  in.Categories,
	}

	v.checkRules(taskRules, map[string]interface{}{
		"title":    out.Title,
		"priority": string(out.Priority),
		"status":   string(out.Status),
	}, verr)

	if out.Description.Value != nil && strings.TrimSpace(*out.Description.Value) == "" {
		out.Description.Value = nil
	}

	if in.DueDate.Set {
		out.DueDate = Optional[time.Time]{Set: true}
		if in.DueDate.Value != nil && strings.TrimSpace(*in.DueDate.Value) != "" {
			due, err := parseDueDate(*in.DueDate.Value)
			if err != nil {
				verr.Add("due_date", "The due date field must be a valid date.")
			} else {
				out.DueDate.Value = &due
			}
		}
	}

	if in.OwnerID != nil {
		if err := v.userExists(ctx, "owner_id", *in.OwnerID, verr); err != nil {
			return nil, err
		}
	}
	if in.AssignedToID.Set && in.AssignedToID.Value != nil {
		if err := v.userExists(ctx, "assigned_to_id", *in.AssignedToID.Value, verr); err != nil {
			return nil, err
		}
	}

	if len(in.Categories) > 0 {
		missing, err := v.categories.Missing(ctx, in.Categories)
		if err != nil {
			return nil, fmt.Errorf("check categories: %w", err)
		}
		bad := make(map[uint]bool, len(missing))
		for _, id := range missing {
			bad[id] = true
		}
		for i, id := range in.Categories {
			if bad[id] {
				field := fmt.Sprintf("categories.%d", i)
				verr.Add(field, fmt.Sprintf("The selected %s is invalid.", field))
			}
		}
	}

	if err := verr.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (v *inputValidator) userExists(ctx context.Context, field string, id uint, verr *ValidationError) error {
	missing, err := v.users.Missing(ctx, []uint{id})
	if err != nil {
		return fmt.Errorf("check %s: %w", field, err)
	}
	if len(missing) > 0 {
		verr.Add(field, fmt.Sprintf("The selected %s is invalid.", humanize(field)))
	}
	return nil
}

// Category validates a category name. exceptID excludes the category being renamed
// from the uniqueness check.
func (v *inputValidator) Category(ctx context.Context, in CategoryInput, exceptID uint) (string, error) {
	verr := &ValidationError{}
	name := strings.TrimSpace(in.Name)
	v.checkRules(categoryRules, map[string]interface{}{"name": name}, verr)

	if name != "" {
		taken, err := v.categories.NameTaken(ctx, name, exceptID)
		if err != nil {
			return "", fmt.Errorf("check category name: %w", err)
		}
		if taken {
			verr.Add("name", nameTakenMessage)
		}
	}

	if err := verr.Err(); err != nil {
		return "", err
	}
	return name, nil
}

const nameTakenMessage = "The name has already been taken."

func parseDueDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

func ruleMessage(field string, fe validator.FieldError) string {
	name := humanize(field)
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", name)
	case "max":
		return fmt.Sprintf("The %s field must not be greater than %s characters.", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", name)
	default:
		return fmt.Sprintf("The %s field is invalid.", name)
	}
}

func humanize(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}
