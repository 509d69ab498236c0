package service

import (
	"encoding/json"
	"time"

	"github.com/Tomlord1122/task-tracker/internal/domain"
	"github.com/Tomlord1122/task-tracker/internal/repository"
)

// Optional distinguishes an absent JSON key (Set == false) from an explicit
// null (Set == true, Value == nil).
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null returns an Optional that clears the stored value.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

// TaskInput is the body accepted by task create and update.
//
// OwnerID is only checked for existence; the owner is always the requester.
// A nil Categories leaves the task's categories alone, a non-nil one replaces them.
type TaskInput struct {
	OwnerID      *uint            `json:"owner_id"`
	AssignedToID Optional[uint]   `json:"assigned_to_id"`
	Title        string           `json:"title"`
	Description  Optional[string] `json:"description"`
	Priority     string           `json:"priority"`
	Status       string           `json:"status"`
	DueDate      Optional[string] `json:"due_date"`
	Categories   []uint           `json:"categories"`
}

// CategoryInput is the body accepted by category create and update.
type CategoryInput struct {
	Name string `json:"name"`
}

type UserSummary struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type CategoryResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// TaskResponse is the representation of a task returned to callers.
type TaskResponse struct {
	ID           uint               `json:"id"`
	OwnerID      uint               `json:"owner_id"`
	AssignedToID *uint              `json:"assigned_to_id"`
	Title        string             `json:"title"`
	Description  *string            `json:"description"`
	Priority     domain.Priority    `json:"priority"`
	Status       domain.Status      `json:"status"`
	DueDate      *string            `json:"due_date"`
	Owner        *UserSummary       `json:"owner"`
	Assignee     *UserSummary       `json:"assignee"`
	Categories   []CategoryResponse `json:"categories"`
	CreatedAt    string             `json:"created_at"`
	UpdatedAt    string             `json:"updated_at"`
}

// PageMeta describes where a page sits in the full result set.
// From and To are null on an empty page.
type PageMeta struct {
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	LastPage    int   `json:"last_page"`
	From        *int  `json:"from"`
	To          *int  `json:"to"`
}

// TaskPage is one page of the filtered task list together with the data a
// client needs to render the filter controls.
type TaskPage struct {
	Data       []TaskResponse         `json:"data"`
	Meta       PageMeta               `json:"meta"`
	Categories []CategoryResponse     `json:"categories"`
	Filters    repository.TaskFilters `json:"filters"`
}

type CategoryPage struct {
	Data []CategoryResponse `json:"data"`
	Meta PageMeta           `json:"meta"`
}

func newPageMeta(page repository.Page, total int64, count int) PageMeta {
	meta := PageMeta{
		CurrentPage: page.Number,
		PerPage:     page.Size,
		Total:       total,
		LastPage:    1,
	}
	if total > 0 {
		meta.LastPage = int((total + int64(page.Size) - 1) / int64(page.Size))
	}
	if count > 0 {
		from := page.Offset() + 1
		to := page.Offset() + count
		meta.From, meta.To = &from, &to
	}
	return meta
}

func toTaskResponse(t *domain.Task) TaskResponse {
	resp := TaskResponse{
		ID:           t.ID,
		OwnerID:      t.OwnerID,
		AssignedToID: t.AssignedToID,
		Title:        t.Title,
		Description:  t.Description,
		Priority:     t.Priority,
		Status:       t.Status,
		Categories:   make([]CategoryResponse, 0, len(t.Categories)),
		CreatedAt:    t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    t.UpdatedAt.Format(time.RFC3339),
	}
	if t.DueDate != nil {
		due := t.DueDate.Format(time.RFC3339)
		resp.DueDate = &due
	}
	if t.Owner != nil {
		resp.Owner = &UserSummary{ID: t.Owner.ID, Name: t.Owner.Name}
	}
	if t.Assignee != nil {
		resp.Assignee = &UserSummary{ID: t.Assignee.ID, Name: t.Assignee.Name}
	}
	for _, c := range t.Categories {
		resp.Categories = append(resp.Categories, toCategoryResponse(&c))
	}
	return resp
}

func toCategoryResponse(c *domain.Category) CategoryResponse {
	return CategoryResponse{ID: c.ID, Name: c.Name}
}

func toCategoryResponses(categories []domain.Category) []CategoryResponse {
	out := make([]CategoryResponse, 0, len(categories))
	for i := range categories {
		out = append(out, toCategoryResponse(&categories[i]))
	}
	return out
}
