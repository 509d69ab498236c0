// Package policy holds the task authorization rules as pure predicates.
package policy

import "github.com/Tomlord1122/task-tracker/internal/domain"

// CanViewAny reports whether the user may list tasks. Any authenticated user may.
func CanViewAny(userID uint) bool {
	return true
}

// CanCreate reports whether the user may create tasks. Any authenticated user may.
func CanCreate(userID uint) bool {
	return true
}

// CanUpdate holds for the task owner and the current assignee.
func CanUpdate(userID uint, task *domain.Task) bool {
	if task == nil {
		return false
	}
	return userID == task.OwnerID || isAssignee(userID, task)
}

// CanDelete holds only for the task owner.
func CanDelete(userID uint, task *domain.Task) bool {
	return task != nil && userID == task.OwnerID
}

// CanAssign holds only for the task owner. Callers check it only when an
// update actually changes the assignee.
func CanAssign(userID uint, task *domain.Task) bool {
	return task != nil && userID == task.OwnerID
}

// AssigneeChanged reports whether next differs from the task's stored assignee.
// Moving between null and a user id counts as a change.
func AssigneeChanged(task *domain.Task, next *uint) bool {
	current := task.AssignedToID
	switch {
	case current == nil && next == nil:
		return false
	case current == nil || next == nil:
		return true
	default:
		return *current != *next
	}
}

func isAssignee(userID uint, task *domain.Task) bool {
	return task.AssignedToID != nil && *task.AssignedToID == userID
}
