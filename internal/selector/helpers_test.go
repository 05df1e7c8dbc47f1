package selector

import "github.com/fentz26/nextask/internal/models"

// task builds a top-level task for tests.
func task(id string, status models.TaskStatus, priority models.Priority, deps ...string) models.Task {
	return models.Task{
		ID:           id,
		Title:        "Task " + id,
		Status:       status,
		Priority:     priority,
		Dependencies: deps,
	}
}

func sub(id string, status models.TaskStatus, priority models.Priority, deps ...string) models.Subtask {
	return models.Subtask{
		ID:           id,
		Title:        "Subtask " + id,
		Status:       status,
		Priority:     priority,
		Dependencies: deps,
	}
}

func withSubtasks(t models.Task, subs ...models.Subtask) models.Task {
	t.Subtasks = subs
	return t
}

func ids(seq Sequence) []string {
	out := make([]string, len(seq))
	for i, u := range seq {
		out[i] = u.ID
	}
	return out
}

const (
	pending    = models.TaskStatusPending
	inProgress = models.TaskStatusInProgress
	done       = models.TaskStatusDone
	cancelled  = models.TaskStatusCancelled
	deferred   = models.TaskStatusDeferred

	critical = models.PriorityCritical
	high     = models.PriorityHigh
	medium   = models.PriorityMedium
	low      = models.PriorityLow
)
