package selector

// resolveHierarchy drops every top-level task that is already represented by
// its own eligible subtasks, so a parent with k eligible subtasks occupies k
// offsets and not k+1.
func resolveHierarchy(e eligibility) eligibility {
	if len(e.groups) == 0 {
		return e
	}

	represented := make(map[string]bool, len(e.groups))
	for _, g := range e.groups {
		if len(g.subtasks) > 0 {
			represented[g.parent.ID] = true
		}
	}

	tasks := make([]Unit, 0, len(e.tasks))
	for _, u := range e.tasks {
		if represented[u.ID] {
			continue
		}
		tasks = append(tasks, u)
	}

	return eligibility{tasks: tasks, groups: e.groups}
}
