package selector

import "github.com/fentz26/nextask/internal/models"

// Kind tells tasks and subtasks apart.
type Kind string

const (
	KindTask    Kind = "task"
	KindSubtask Kind = "subtask"
)

// Unit is the selectable shape shared by tasks and subtasks. The sorter and
// the indexer only ever see Units.
type Unit struct {
	Kind         Kind              `json:"kind"`
	ID           string            `json:"id"`
	LocalID      string            `json:"local_id"`
	ParentID     string            `json:"parent_id,omitempty"`
	ParentTitle  string            `json:"parent_title,omitempty"`
	Title        string            `json:"title"`
	Description  string            `json:"description,omitempty"`
	Status       models.TaskStatus `json:"status"`
	Priority     models.Priority   `json:"priority"`
	Dependencies []string          `json:"dependencies"`
}

// IsSubtask reports whether u came from a subtask.
func (u Unit) IsSubtask() bool {
	return u.Kind == KindSubtask
}

func taskUnit(t *models.Task) Unit {
	return Unit{
		Kind:         KindTask,
		ID:           t.ID,
		LocalID:      t.ID,
		Title:        t.Title,
		Description:  t.Description,
		Status:       t.Status,
		Priority:     t.Priority,
		Dependencies: uniqueDeps(t.Dependencies),
	}
}

func subtaskUnit(parent *models.Task, st *models.Subtask) Unit {
	return Unit{
		Kind:         KindSubtask,
		ID:           models.SubtaskRef(parent.ID, st.ID),
		LocalID:      st.ID,
		ParentID:     parent.ID,
		ParentTitle:  parent.Title,
		Title:        st.Title,
		Description:  st.Description,
		Status:       st.Status,
		Priority:     st.Priority,
		Dependencies: uniqueDeps(st.Dependencies),
	}
}

// uniqueDeps drops repeated ids, keeping first-seen order. Dependencies are a
// set, so duplicates must not inflate the dependency count.
func uniqueDeps(deps []string) []string {
	out := make([]string, 0, len(deps))
	seen := make(map[string]bool, len(deps))
	for _, d := range deps {
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}
