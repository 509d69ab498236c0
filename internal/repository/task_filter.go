package repository

import (
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// TaskFilters holds the optional list filters as received from the caller.
// Empty values disable the corresponding filter.
type TaskFilters struct {
	Status   string `json:"status,omitempty"`
	Priority string `json:"priority,omitempty"`
	Category string `json:"category,omitempty"`
	Q        string `json:"q,omitempty"`
}

// ApplyTaskFilters combines every filter with AND.
func ApplyTaskFilters(f TaskFilters) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Scopes(
			SearchTasks(f.Q),
			TaskStatus(f.Status),
			TaskPriority(f.Priority),
			TaskCategory(f.Category),
		)
	}
}

// SearchTasks matches term case-insensitively inside title or description.
// LIKE wildcards in term are matched literally.
func SearchTasks(term string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		term = strings.TrimSpace(term)
		if term == "" {
			return db
		}
		like := "%" + EscapeLike(strings.ToLower(term)) + "%"
		return db.Where(
			`(LOWER(tasks.title) LIKE ? ESCAPE '\' OR LOWER(tasks.description) LIKE ? ESCAPE '\')`,
			like, like,
		)
	}
}

func TaskStatus(status string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if status == "" {
			return db
		}
		return db.Where("tasks.status = ?", status)
	}
}

func TaskPriority(priority string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if priority == "" {
			return db
		}
		return db.Where("tasks.priority = ?", priority)
	}
}

// TaskCategory keeps tasks linked to the given live category. An empty value
// or "0" means no filter; any other value that is not a category id matches
// nothing.
func TaskCategory(category string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		category = strings.TrimSpace(category)
		if category == "" || category == "0" {
			return db
		}
		id, err := strconv.ParseUint(category, 10, 64)
		if err != nil {
			return db.Where("1 = 0")
		}
		return db.Where(`EXISTS (
			SELECT 1 FROM category_task
			JOIN categories ON categories.id = category_task.category_id
			WHERE category_task.task_id = tasks.id
			  AND category_task.category_id = ?
			  AND categories.deleted_at IS NULL)`, id)
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes the LIKE metacharacters using backslash as escape character.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}
