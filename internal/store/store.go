// Package store provides SQLite-backed persistence for nextask.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fentz26/nextask/internal/models"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound indicates the tag, task or subtask does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidDependency indicates a dependency target that is missing or
	// refers to the task itself.
	ErrInvalidDependency = errors.New("invalid dependency")
	// ErrInvalidInput indicates a malformed field such as an empty title.
	ErrInvalidInput = errors.New("invalid input")
)

// NewTask holds the fields supplied when creating a top-level task.
type NewTask struct {
	Tag          string
	Title        string
	Description  string
	Priority     models.Priority
	Dependencies []string
}

// NewSubtask holds the fields supplied when adding a subtask.
type NewSubtask struct {
	Title        string
	Description  string
	Priority     models.Priority
	Dependencies []string
}

// Store provides access to the nextask SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		tag TEXT NOT NULL,
		id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		priority TEXT NOT NULL DEFAULT 'medium',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (tag, id)
	);

	CREATE TABLE IF NOT EXISTS subtasks (
		tag TEXT NOT NULL,
		parent_id TEXT NOT NULL,
		id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		priority TEXT NOT NULL DEFAULT 'medium',
		PRIMARY KEY (tag, parent_id, id)
	);

	CREATE TABLE IF NOT EXISTS dependencies (
		tag TEXT NOT NULL,
		ref TEXT NOT NULL,
		depends_on TEXT NOT NULL,
		PRIMARY KEY (tag, ref, depends_on)
	);

	CREATE TABLE IF NOT EXISTS pdr (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		inputs_hash TEXT NOT NULL,
		outcome TEXT NOT NULL,
		task_id TEXT,
		details TEXT,
		timestamp DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_tag_status ON tasks(tag, status);
	CREATE INDEX IF NOT EXISTS idx_subtasks_parent ON subtasks(tag, parent_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func normalizeTag(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return models.DefaultTag
	}
	return tag
}

// --- Task Operations ---

// CreateTask inserts a new top-level task with the next numeric id in its tag.
func (s *Store) CreateTask(ctx context.Context, in NewTask) (*models.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	priority, err := resolvePriority(in.Priority, models.DefaultPriority)
	if err != nil {
		return nil, err
	}
	tag := normalizeTag(in.Tag)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	id, err := nextID(ctx, tx, `SELECT id FROM tasks WHERE tag = ?`, tag)
	if err != nil {
		return nil, err
	}

	now := s.now()
	task := &models.Task{
		ID:           id,
		Tag:          tag,
		Title:        title,
		Description:  in.Description,
		Status:       models.TaskStatusPending,
		Priority:     priority,
		Dependencies: []string{},
		Subtasks:     []models.Subtask{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO tasks (tag, id, title, description, status, priority, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tag, task.ID, task.Title, task.Description, task.Status, task.Priority, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}

	for _, dep := range in.Dependencies {
		dep = strings.TrimSpace(dep)
		if err := addDependency(ctx, tx, tag, task.ID, dep); err != nil {
			return nil, err
		}
		task.Dependencies = appendUnique(task.Dependencies, dep)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return task, nil
}

// AddSubtask appends a subtask to parentID. An empty priority inherits the
// parent's.
func (s *Store) AddSubtask(ctx context.Context, tag, parentID string, in NewSubtask) (*models.Subtask, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	tag = normalizeTag(tag)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var parentPriority models.Priority
	err = tx.QueryRowContext(ctx, `SELECT priority FROM tasks WHERE tag = ? AND id = ?`, tag, parentID).Scan(&parentPriority)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task %s in tag %s: %w", parentID, tag, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query parent: %w", err)
	}

	priority, err := resolvePriority(in.Priority, parentPriority)
	if err != nil {
		return nil, err
	}

	id, err := nextID(ctx, tx, `SELECT id FROM subtasks WHERE tag = ? AND parent_id = ?`, tag, parentID)
	if err != nil {
		return nil, err
	}

	st := &models.Subtask{
		ID:           id,
		Title:        title,
		Description:  in.Description,
		Status:       models.TaskStatusPending,
		Priority:     priority,
		Dependencies: []string{},
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO subtasks (tag, parent_id, id, title, description, status, priority) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tag, parentID, st.ID, st.Title, st.Description, st.Status, st.Priority,
	)
	if err != nil {
		return nil, fmt.Errorf("insert subtask: %w", err)
	}

	ref := models.SubtaskRef(parentID, st.ID)
	for _, dep := range in.Dependencies {
		dep = strings.TrimSpace(dep)
		if err := addDependency(ctx, tx, tag, ref, dep); err != nil {
			return nil, err
		}
		st.Dependencies = appendUnique(st.Dependencies, dep)
	}

	if err := touchTask(ctx, tx, tag, parentID, s.now()); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return st, nil
}

// GetTask retrieves a top-level task with its subtasks and dependencies.
func (s *Store) GetTask(ctx context.Context, tag, id string) (*models.Task, error) {
	tag = normalizeTag(tag)
	tasks, err := loadTasks(ctx, s.db, tag, `AND id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("task %s in tag %s: %w", id, tag, ErrNotFound)
	}
	return &tasks[0], nil
}

// ListTasks returns the tasks of a tag in insertion order, optionally
// filtered by status.
func (s *Store) ListTasks(ctx context.Context, tag string, status models.TaskStatus) ([]models.Task, error) {
	tag = normalizeTag(tag)
	if status == "" {
		return loadTasks(ctx, s.db, tag, "")
	}
	return loadTasks(ctx, s.db, tag, `AND status = ?`, string(status))
}

// TagSummary counts the tasks stored under a tag.
type TagSummary struct {
	Tag   string `json:"tag"`
	Tasks int    `json:"tasks"`
}

// ListTags returns every tag with at least one task, sorted by name.
func (s *Store) ListTags(ctx context.Context) ([]TagSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tag, COUNT(*) FROM tasks GROUP BY tag ORDER BY tag`)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	tags := []TagSummary{}
	for rows.Next() {
		var ts TagSummary
		if err := rows.Scan(&ts.Tag, &ts.Tasks); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, ts)
	}
	return tags, rows.Err()
}

// SetStatus updates the status of a task ("p") or subtask ("p.s").
func (s *Store) SetStatus(ctx context.Context, tag, ref string, status models.TaskStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	parentID, subtaskID, err := models.ParseRef(ref)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	tag = normalizeTag(tag)
	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var res sql.Result
	if subtaskID == "" {
		res, err = tx.ExecContext(ctx,
			`UPDATE tasks SET status = ?, updated_at = ? WHERE tag = ? AND id = ?`,
			status, now, tag, parentID,
		)
	} else {
		res, err = tx.ExecContext(ctx,
			`UPDATE subtasks SET status = ? WHERE tag = ? AND parent_id = ? AND id = ?`,
			status, tag, parentID, subtaskID,
		)
	}
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s in tag %s: %w", ref, tag, ErrNotFound)
	}
	if subtaskID != "" {
		if err := touchTask(ctx, tx, tag, parentID, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// AddDependency records that ref depends on dependsOn.
func (s *Store) AddDependency(ctx context.Context, tag, ref, dependsOn string) error {
	tag = normalizeTag(tag)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := requireRef(ctx, tx, tag, ref); err != nil {
		return err
	}
	if err := addDependency(ctx, tx, tag, ref, strings.TrimSpace(dependsOn)); err != nil {
		return err
	}
	return tx.Commit()
}

// RemoveDependency deletes the ref -> dependsOn edge.
func (s *Store) RemoveDependency(ctx context.Context, tag, ref, dependsOn string) error {
	tag = normalizeTag(tag)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM dependencies WHERE tag = ? AND ref = ? AND depends_on = ?`,
		tag, ref, strings.TrimSpace(dependsOn),
	)
	if err != nil {
		return fmt.Errorf("delete dependency: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("dependency %s -> %s: %w", ref, dependsOn, ErrNotFound)
	}
	return nil
}

// DeleteTask removes a task or subtask. Deleting a task removes its subtasks
// and every dependency row they own.
func (s *Store) DeleteTask(ctx context.Context, tag, ref string) error {
	parentID, subtaskID, err := models.ParseRef(ref)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	tag = normalizeTag(tag)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var res sql.Result
	if subtaskID == "" {
		res, err = tx.ExecContext(ctx, `DELETE FROM tasks WHERE tag = ? AND id = ?`, tag, parentID)
		if err == nil {
			_, err = tx.ExecContext(ctx, `DELETE FROM subtasks WHERE tag = ? AND parent_id = ?`, tag, parentID)
		}
		if err == nil {
			_, err = tx.ExecContext(ctx,
				`DELETE FROM dependencies WHERE tag = ? AND (ref = ? OR substr(ref, 1, length(?) + 1) = ? || '.')`,
				tag, parentID, parentID, parentID,
			)
		}
	} else {
		res, err = tx.ExecContext(ctx,
			`DELETE FROM subtasks WHERE tag = ? AND parent_id = ? AND id = ?`,
			tag, parentID, subtaskID,
		)
		if err == nil {
			_, err = tx.ExecContext(ctx, `DELETE FROM dependencies WHERE tag = ? AND ref = ?`, tag, ref)
		}
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", ref, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s in tag %s: %w", ref, tag, ErrNotFound)
	}
	return tx.Commit()
}

// --- Snapshot Operations ---

// LoadSnapshot reads every task of a tag inside a single read transaction so
// callers never observe a partially written state.
func (s *Store) LoadSnapshot(ctx context.Context, tag string) ([]models.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	tasks, err := loadTasks(ctx, tx, normalizeTag(tag), "")
	if err != nil {
		return nil, err
	}
	return tasks, tx.Commit()
}

// ReplaceSnapshot swaps the contents of a tag for tasks, keeping their ids,
// statuses and order.
func (s *Store) ReplaceSnapshot(ctx context.Context, tag string, tasks []models.Task) error {
	tag = normalizeTag(tag)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"tasks", "subtasks", "dependencies"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE tag = ?`, tag); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	now := s.now()
	for _, t := range tasks {
		created, updated := t.CreatedAt, t.UpdatedAt
		if created.IsZero() {
			created = now
		}
		if updated.IsZero() {
			updated = now
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO tasks (tag, id, title, description, status, priority, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			tag, t.ID, t.Title, t.Description, t.Status, t.Priority, created, updated,
		)
		if err != nil {
			return fmt.Errorf("insert task %s: %w", t.ID, err)
		}
		if err := insertDeps(ctx, tx, tag, t.ID, t.Dependencies); err != nil {
			return err
		}

		for _, st := range t.Subtasks {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO subtasks (tag, parent_id, id, title, description, status, priority) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				tag, t.ID, st.ID, st.Title, st.Description, st.Status, st.Priority,
			)
			if err != nil {
				return fmt.Errorf("insert subtask %s: %w", models.SubtaskRef(t.ID, st.ID), err)
			}
			if err := insertDeps(ctx, tx, tag, models.SubtaskRef(t.ID, st.ID), st.Dependencies); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// --- PDR Operations ---

// WritePDR writes a Process Decision Record.
func (s *Store) WritePDR(ctx context.Context, action, inputsHash, outcome, taskID, details string) (*models.PDREntry, error) {
	pdr := &models.PDREntry{
		ID:         uuid.New().String(),
		Action:     action,
		InputsHash: inputsHash,
		Outcome:    outcome,
		TaskID:     taskID,
		Details:    details,
		Timestamp:  s.now(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pdr (id, action, inputs_hash, outcome, task_id, details, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		pdr.ID, pdr.Action, pdr.InputsHash, pdr.Outcome, pdr.TaskID, pdr.Details, pdr.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert pdr: %w", err)
	}
	return pdr, nil
}

// ListPDRs returns the most recent decision records, newest first.
func (s *Store) ListPDRs(ctx context.Context, limit int) ([]models.PDREntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, action, inputs_hash, outcome, task_id, details, timestamp FROM pdr ORDER BY timestamp DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query pdrs: %w", err)
	}
	defer rows.Close()

	var entries []models.PDREntry
	for rows.Next() {
		var e models.PDREntry
		var taskID, details sql.NullString
		if err := rows.Scan(&e.ID, &e.Action, &e.InputsHash, &e.Outcome, &taskID, &details, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan pdr: %w", err)
		}
		e.TaskID = taskID.String
		e.Details = details.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// --- helpers ---

func loadTasks(ctx context.Context, q querier, tag, where string, args ...interface{}) ([]models.Task, error) {
	query := `SELECT id, title, description, status, priority, created_at, updated_at FROM tasks WHERE tag = ? ` + where + ` ORDER BY rowid`
	rows, err := q.QueryContext(ctx, query, append([]interface{}{tag}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}

	tasks := []models.Task{}
	index := map[string]int{}
	for rows.Next() {
		t := models.Task{Tag: tag, Dependencies: []string{}, Subtasks: []models.Subtask{}}
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.CreatedAt, &t.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan task: %w", err)
		}
		index[t.ID] = len(tasks)
		tasks = append(tasks, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return tasks, nil
	}

	rows, err = q.QueryContext(ctx,
		`SELECT parent_id, id, title, description, status, priority FROM subtasks WHERE tag = ? ORDER BY rowid`,
		tag,
	)
	if err != nil {
		return nil, fmt.Errorf("query subtasks: %w", err)
	}
	for rows.Next() {
		var parentID string
		st := models.Subtask{Dependencies: []string{}}
		if err := rows.Scan(&parentID, &st.ID, &st.Title, &st.Description, &st.Status, &st.Priority); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan subtask: %w", err)
		}
		if i, ok := index[parentID]; ok {
			tasks[i].Subtasks = append(tasks[i].Subtasks, st)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = q.QueryContext(ctx, `SELECT ref, depends_on FROM dependencies WHERE tag = ? ORDER BY rowid`, tag)
	if err != nil {
		return nil, fmt.Errorf("query dependencies: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ref, dep string
		if err := rows.Scan(&ref, &dep); err != nil {
			return nil, fmt.Errorf("scan dependency: %w", err)
		}
		parentID, subtaskID, err := models.ParseRef(ref)
		if err != nil {
			continue
		}
		i, ok := index[parentID]
		if !ok {
			continue
		}
		if subtaskID == "" {
			tasks[i].Dependencies = append(tasks[i].Dependencies, dep)
			continue
		}
		for j := range tasks[i].Subtasks {
			if tasks[i].Subtasks[j].ID == subtaskID {
				tasks[i].Subtasks[j].Dependencies = append(tasks[i].Subtasks[j].Dependencies, dep)
				break
			}
		}
	}
	return tasks, rows.Err()
}

// nextID returns one more than the largest numeric id the query yields.
func nextID(ctx context.Context, q querier, query string, args ...interface{}) (string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return "", fmt.Errorf("query ids: %w", err)
	}
	defer rows.Close()

	var max uint64
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scan id: %w", err)
		}
		if n, err := strconv.ParseUint(id, 10, 64); err == nil && n > max {
			max = n
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return strconv.FormatUint(max+1, 10), nil
}

func resolvePriority(p, fallback models.Priority) (models.Priority, error) {
	if strings.TrimSpace(string(p)) == "" {
		return fallback, nil
	}
	parsed, err := models.ParsePriority(string(p))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return parsed, nil
}

// requireRef checks that a task or subtask reference exists.
func requireRef(ctx context.Context, q querier, tag, ref string) error {
	ok, err := refExists(ctx, q, tag, ref)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s in tag %s: %w", ref, tag, ErrNotFound)
	}
	return nil
}

func refExists(ctx context.Context, q querier, tag, ref string) (bool, error) {
	parentID, subtaskID, err := models.ParseRef(ref)
	if err != nil {
		return false, nil
	}
	var n int
	if subtaskID == "" {
		err = q.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE tag = ? AND id = ?`, tag, parentID).Scan(&n)
	} else {
		err = q.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM subtasks WHERE tag = ? AND parent_id = ? AND id = ?`,
			tag, parentID, subtaskID,
		).Scan(&n)
	}
	if err != nil {
		return false, fmt.Errorf("query %s: %w", ref, err)
	}
	return n > 0, nil
}

// addDependency validates and inserts one edge. Subtask references may name
// a sibling by its local id.
func addDependency(ctx context.Context, q querier, tag, ref, dep string) error {
	if dep == "" {
		return fmt.Errorf("%w: empty dependency for %s", ErrInvalidDependency, ref)
	}
	if dep == ref {
		return fmt.Errorf("%w: %s cannot depend on itself", ErrInvalidDependency, ref)
	}

	ok, err := refExists(ctx, q, tag, dep)
	if err != nil {
		return err
	}
	if !ok {
		if parentID, subtaskID, perr := models.ParseRef(ref); perr == nil && subtaskID != "" && !strings.Contains(dep, ".") {
			sibling := models.SubtaskRef(parentID, dep)
			if sibling == ref {
				return fmt.Errorf("%w: %s cannot depend on itself", ErrInvalidDependency, ref)
			}
			ok, err = refExists(ctx, q, tag, sibling)
			if err != nil {
				return err
			}
		}
	}
	if !ok {
		return fmt.Errorf("%w: %s depends on unknown task %s", ErrInvalidDependency, ref, dep)
	}

	_, err = q.ExecContext(ctx,
		`INSERT OR IGNORE INTO dependencies (tag, ref, depends_on) VALUES (?, ?, ?)`,
		tag, ref, dep,
	)
	if err != nil {
		return fmt.Errorf("insert dependency: %w", err)
	}
	return nil
}

func insertDeps(ctx context.Context, q querier, tag, ref string, deps []string) error {
	for _, dep := range deps {
		_, err := q.ExecContext(ctx,
			`INSERT OR IGNORE INTO dependencies (tag, ref, depends_on) VALUES (?, ?, ?)`,
			tag, ref, dep,
		)
		if err != nil {
			return fmt.Errorf("insert dependency %s -> %s: %w", ref, dep, err)
		}
	}
	return nil
}

func touchTask(ctx context.Context, q querier, tag, id string, now time.Time) error {
	_, err := q.ExecContext(ctx, `UPDATE tasks SET updated_at = ? WHERE tag = ? AND id = ?`, now, tag, id)
	if err != nil {
		return fmt.Errorf("touch task: %w", err)
	}
	return nil
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
