// Package selector picks the next actionable unit of work from a task
// snapshot.
//
// Selection runs in four steps over an immutable snapshot:
//
//   - eligibility: pending or deferred top-level tasks whose dependencies are
//     all done, plus pending subtasks (with done dependencies) of in-progress
//     parents;
//   - hierarchy: a parent represented by eligible subtasks is removed from
//     the top-level list;
//   - ordering: Compare sorts each subtask group, the parents, and the
//     top-level tasks;
//   - indexing: subtask groups come first, then top-level tasks, and the
//     caller's skip picks one position.
//
// The package does no I/O and keeps no state between calls, so concurrent
// callers are safe. Each caller passes the offset it wants; nothing here
// keeps two callers from receiving the same unit.
package selector
