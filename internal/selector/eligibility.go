package selector

import (
	"strings"

	"github.com/fentz26/nextask/internal/models"
)

// statusIndex resolves dependency ids to the status of the unit they name.
type statusIndex struct {
	tasks    map[string]models.TaskStatus
	subtasks map[string]models.TaskStatus // keyed by "parent.sub"
}

func newStatusIndex(snapshot []models.Task) *statusIndex {
	idx := &statusIndex{
		tasks:    make(map[string]models.TaskStatus, len(snapshot)),
		subtasks: make(map[string]models.TaskStatus),
	}
	for i := range snapshot {
		t := &snapshot[i]
		idx.tasks[t.ID] = t.Status
		for j := range t.Subtasks {
			st := &t.Subtasks[j]
			idx.subtasks[models.SubtaskRef(t.ID, st.ID)] = st.Status
		}
	}
	return idx
}

// resolveForTask looks up a dependency of a top-level task.
func (idx *statusIndex) resolveForTask(dep string) (models.TaskStatus, bool) {
	if s, ok := idx.tasks[dep]; ok {
		return s, true
	}
	s, ok := idx.subtasks[dep]
	return s, ok
}

// resolveForSubtask looks up a dependency of a subtask of parentID: a
// qualified "p.s" id, then a sibling subtask, then a top-level task.
func (idx *statusIndex) resolveForSubtask(parentID, dep string) (models.TaskStatus, bool) {
	if strings.Contains(dep, ".") {
		if s, ok := idx.subtasks[dep]; ok {
			return s, true
		}
	}
	if s, ok := idx.subtasks[models.SubtaskRef(parentID, dep)]; ok {
		return s, true
	}
	s, ok := idx.tasks[dep]
	return s, ok
}

// taskDepsSatisfied is true when every dependency resolves to a done unit.
// Unresolved ids count as unsatisfied.
func (idx *statusIndex) taskDepsSatisfied(t *models.Task) bool {
	for _, dep := range t.Dependencies {
		s, ok := idx.resolveForTask(dep)
		if !ok || s != models.TaskStatusDone {
			return false
		}
	}
	return true
}

func (idx *statusIndex) subtaskDepsSatisfied(parent *models.Task, st *models.Subtask) bool {
	for _, dep := range st.Dependencies {
		s, ok := idx.resolveForSubtask(parent.ID, dep)
		if !ok || s != models.TaskStatusDone {
			return false
		}
	}
	return true
}

// subtaskGroup holds the eligible subtasks of one in-progress parent.
type subtaskGroup struct {
	parent   Unit
	subtasks []Unit
}

// eligibility is the output of the filter: eligible top-level tasks and,
// per in-progress parent, its eligible subtasks. Groups with no eligible
// subtasks are omitted.
type eligibility struct {
	tasks  []Unit
	groups []subtaskGroup
}

// isTopLevelSelectable reports whether a top-level status can be selected
// directly. In-progress tasks are only reachable through their subtasks.
func isTopLevelSelectable(s models.TaskStatus) bool {
	return s == models.TaskStatusPending || s == models.TaskStatusDeferred
}

// filterEligible classifies every task and subtask of the snapshot.
func filterEligible(snapshot []models.Task) eligibility {
	idx := newStatusIndex(snapshot)

	var out eligibility
	for i := range snapshot {
		t := &snapshot[i]

		if t.Status == models.TaskStatusInProgress {
			group := subtaskGroup{parent: taskUnit(t)}
			for j := range t.Subtasks {
				st := &t.Subtasks[j]
				if st.Status != models.TaskStatusPending {
					continue
				}
				if !idx.subtaskDepsSatisfied(t, st) {
					continue
				}
				group.subtasks = append(group.subtasks, subtaskUnit(t, st))
			}
			if len(group.subtasks) > 0 {
				out.groups = append(out.groups, group)
			}
			continue
		}

		if isTopLevelSelectable(t.Status) && idx.taskDepsSatisfied(t) {
			out.tasks = append(out.tasks, taskUnit(t))
		}
	}
	return out
}
