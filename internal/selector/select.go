package selector

import (
	"strconv"

	"github.com/fentz26/nextask/internal/models"
)

// Outcome is the result of one selection.
type Outcome struct {
	// Unit is the selected unit, nil when nothing was found.
	Unit *Unit `json:"task"`
	// Found is true when a unit exists at the requested offset.
	Found bool `json:"found"`
	// AvailableTaskCount is the length of the eligible sequence.
	AvailableTaskCount int `json:"available_task_count"`
	// Skip echoes the requested offset.
	Skip int `json:"skip"`
	// HasAnyTasks is true when the snapshot holds at least one task,
	// eligible or not.
	HasAnyTasks bool `json:"has_any_tasks"`
}

// MaxSkip returns the largest offset that selects a unit, or -1 when the
// sequence is empty.
func (o *Outcome) MaxSkip() int {
	return o.AvailableTaskCount - 1
}

// SelectNext returns the unit at offset skip in the eligible sequence of
// snapshot. An out-of-range offset is not an error: it yields an Outcome with
// Found=false. Only invalid input (negative skip, malformed snapshot) fails,
// and skip is checked before the snapshot is looked at.
func SelectNext(snapshot []models.Task, skip int) (*Outcome, error) {
	if err := ValidateSkip(skip); err != nil {
		return nil, err
	}

	seq, err := Plan(snapshot)
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		AvailableTaskCount: seq.Len(),
		Skip:               skip,
		HasAnyTasks:        len(snapshot) > 0,
	}
	if u, ok := seq.At(skip); ok {
		out.Unit = &u
		out.Found = true
	}
	return out, nil
}

// Plan computes the full ordered eligible sequence of snapshot. The snapshot
// is only read.
func Plan(snapshot []models.Task) (Sequence, error) {
	if err := ValidateSnapshot(snapshot); err != nil {
		return nil, err
	}

	e := filterEligible(snapshot)
	e = resolveHierarchy(e)
	sortGroups(e.groups)
	sortUnits(e.tasks)
	return buildSequence(e), nil
}

// ValidateSnapshot rejects snapshots the core cannot order: unknown statuses
// or priorities, and duplicate ids within a scope. Loaders are expected to
// normalize and default values before calling the selector.
func ValidateSnapshot(snapshot []models.Task) error {
	seen := make(map[string]bool, len(snapshot))
	for i := range snapshot {
		t := &snapshot[i]
		if t.ID == "" {
			return newValidationError("task id", t.ID, "must not be empty").
				WithContext("index", strconv.Itoa(i))
		}
		if seen[t.ID] {
			return newValidationError("task id", t.ID, "is not unique")
		}
		seen[t.ID] = true

		if !t.Status.IsValid() {
			return newValidationError("status", string(t.Status), "is not a known status").
				WithContext("task", t.ID)
		}
		if !t.Priority.IsValid() {
			return newValidationError("priority", string(t.Priority), "is not a known priority").
				WithContext("task", t.ID)
		}

		subSeen := make(map[string]bool, len(t.Subtasks))
		for j := range t.Subtasks {
			st := &t.Subtasks[j]
			ref := models.SubtaskRef(t.ID, st.ID)
			if st.ID == "" {
				return newValidationError("subtask id", st.ID, "must not be empty").
					WithContext("task", t.ID)
			}
			if subSeen[st.ID] {
				return newValidationError("subtask id", ref, "is not unique")
			}
			subSeen[st.ID] = true

			if !st.Status.IsValid() {
				return newValidationError("status", string(st.Status), "is not a known status").
					WithContext("task", ref)
			}
			if !st.Priority.IsValid() {
				return newValidationError("priority", string(st.Priority), "is not a known priority").
					WithContext("task", ref)
			}
		}
	}
	return nil
}
