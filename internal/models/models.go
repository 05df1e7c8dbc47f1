// Package models defines the core domain types for nextask.
package models

import (
	"fmt"
	"strings"
	"time"
)

// DefaultTag is the tag used when none is given.
const DefaultTag = "master"

// TaskStatus represents the current state of a task or subtask.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusCancelled  TaskStatus = "cancelled"
	TaskStatusDeferred   TaskStatus = "deferred"
)

// Statuses lists every valid status.
func Statuses() []TaskStatus {
	return []TaskStatus{
		TaskStatusPending,
		TaskStatusInProgress,
		TaskStatusDone,
		TaskStatusCancelled,
		TaskStatusDeferred,
	}
}

// IsValid reports whether s is a known status.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusDone, TaskStatusCancelled, TaskStatusDeferred:
		return true
	default:
		return false
	}
}

// ParseStatus normalizes and validates a status string.
func ParseStatus(raw string) (TaskStatus, error) {
	s := TaskStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return s, nil
}

// Priority represents the importance level of a task.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// DefaultPriority is assigned to tasks created without one.
const DefaultPriority = PriorityMedium

// Priorities lists every valid priority from most to least important.
func Priorities() []Priority {
	return []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}
}

// PriorityRank returns the rank of p (higher = more important) and false for
// unknown values. This is the single definition of the priority order.
func PriorityRank(p Priority) (int, bool) {
	switch p {
	case PriorityCritical:
		return 4, true
	case PriorityHigh:
		return 3, true
	case PriorityMedium:
		return 2, true
	case PriorityLow:
		return 1, true
	default:
		return 0, false
	}
}

// IsValid reports whether p is a known priority.
func (p Priority) IsValid() bool {
	_, ok := PriorityRank(p)
	return ok
}

// ParsePriority normalizes and validates a priority string.
func ParsePriority(raw string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(raw)))
	if !p.IsValid() {
		return "", fmt.Errorf("unknown priority %q", raw)
	}
	return p, nil
}

// Task represents a unit of top-level work.
type Task struct {
	ID           string     `json:"id"`
	Tag          string     `json:"tag,omitempty"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Status       TaskStatus `json:"status"`
	Priority     Priority   `json:"priority"`
	Dependencies []string   `json:"dependencies"`
	Subtasks     []Subtask  `json:"subtasks"`
	CreatedAt    time.Time  `json:"created_at,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at,omitempty"`
}

// Subtask is a unit of work owned by exactly one Task.
type Subtask struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Status       TaskStatus `json:"status"`
	Priority     Priority   `json:"priority"`
	Dependencies []string   `json:"dependencies"`
}

// SubtaskRef returns the external address of a subtask of parentID.
func SubtaskRef(parentID, subtaskID string) string {
	return parentID + "." + subtaskID
}

// ParseRef splits "p" or "p.s" into its parent and subtask parts.
// The subtask part is empty for top-level references.
func ParseRef(ref string) (parentID, subtaskID string, err error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", "", fmt.Errorf("empty task reference")
	}
	i := strings.LastIndex(ref, ".")
	if i < 0 {
		return ref, "", nil
	}
	parentID, subtaskID = ref[:i], ref[i+1:]
	if parentID == "" || subtaskID == "" {
		return "", "", fmt.Errorf("malformed task reference %q", ref)
	}
	return parentID, subtaskID, nil
}

// PDREntry represents a Process Decision Record for audit.
type PDREntry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	InputsHash string    `json:"inputs_hash"`
	Outcome    string    `json:"outcome"`
	TaskID     string    `json:"task_id,omitempty"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
