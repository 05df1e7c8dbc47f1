package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/fentz26/nextask/internal/models"
)

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestTaskCRUD(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	task, err := s.CreateTask(ctx, NewTask{Title: "Write parser", Description: "tokens first"})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if task.ID != "1" {
		t.Errorf("Expected first id 1, got %s", task.ID)
	}
	if task.Tag != models.DefaultTag {
		t.Errorf("Expected default tag, got %s", task.Tag)
	}
	if task.Status != models.TaskStatusPending {
		t.Errorf("Expected status pending, got %s", task.Status)
	}
	if task.Priority != models.PriorityMedium {
		t.Errorf("Expected priority medium, got %s", task.Priority)
	}

	second, err := s.CreateTask(ctx, NewTask{Title: "Ship", Priority: "HIGH", Dependencies: []string{"1", "1"}})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if second.ID != "2" {
		t.Errorf("Expected id 2, got %s", second.ID)
	}
	if second.Priority != models.PriorityHigh {
		t.Errorf("Expected priority high, got %s", second.Priority)
	}
	if !reflect.DeepEqual(second.Dependencies, []string{"1"}) {
		t.Errorf("Expected deduplicated deps [1], got %v", second.Dependencies)
	}

	got, err := s.GetTask(ctx, "", "2")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.Title != "Ship" {
		t.Errorf("Expected title 'Ship', got %s", got.Title)
	}
	if !reflect.DeepEqual(got.Dependencies, []string{"1"}) {
		t.Errorf("Expected stored deps [1], got %v", got.Dependencies)
	}

	tasks, err := s.ListTasks(ctx, "", "")
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 2 || tasks[0].ID != "1" || tasks[1].ID != "2" {
		t.Errorf("Expected tasks [1 2] in insertion order, got %v", tasks)
	}

	if err := s.SetStatus(ctx, "", "1", models.TaskStatusDone); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	done, err := s.ListTasks(ctx, "", models.TaskStatusDone)
	if err != nil {
		t.Fatalf("ListTasks with filter failed: %v", err)
	}
	if len(done) != 1 || done[0].ID != "1" {
		t.Errorf("Expected only task 1 done, got %v", done)
	}

	if err := s.DeleteTask(ctx, "", "2"); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if _, err := s.GetTask(ctx, "", "2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	tests := []struct {
		name string
		in   NewTask
		want error
	}{
		{name: "empty title", in: NewTask{Title: "  "}, want: ErrInvalidInput},
		{name: "unknown priority", in: NewTask{Title: "x", Priority: "urgent"}, want: ErrInvalidInput},
		{name: "missing dependency", in: NewTask{Title: "x", Dependencies: []string{"99"}}, want: ErrInvalidDependency},
		{name: "self dependency", in: NewTask{Title: "x", Dependencies: []string{"1"}}, want: ErrInvalidDependency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateTask(ctx, tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}

	// Failed creations must not leave rows behind.
	tasks, err := s.ListTasks(ctx, "", "")
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("Expected no tasks after failed creates, got %d", len(tasks))
	}
}

func TestSubtasks(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	parent, _ := s.CreateTask(ctx, NewTask{Title: "Parent", Priority: models.PriorityHigh})
	other, _ := s.CreateTask(ctx, NewTask{Title: "Other"})

	first, err := s.AddSubtask(ctx, "", parent.ID, NewSubtask{Title: "First"})
	if err != nil {
		t.Fatalf("AddSubtask failed: %v", err)
	}
	if first.ID != "1" {
		t.Errorf("Expected subtask id 1, got %s", first.ID)
	}
	if first.Priority != models.PriorityHigh {
		t.Errorf("Expected inherited priority high, got %s", first.Priority)
	}

	// Sibling by local id, then a top-level task by id.
	second, err := s.AddSubtask(ctx, "", parent.ID, NewSubtask{Title: "Second", Priority: models.PriorityLow, Dependencies: []string{"1"}})
	if err != nil {
		t.Fatalf("AddSubtask with sibling dep failed: %v", err)
	}
	if err := s.AddDependency(ctx, "", models.SubtaskRef(parent.ID, second.ID), other.ID); err != nil {
		t.Fatalf("AddDependency failed: %v", err)
	}

	if _, err := s.AddSubtask(ctx, "", "42", NewSubtask{Title: "Orphan"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing parent, got %v", err)
	}
	if _, err := s.AddSubtask(ctx, "", parent.ID, NewSubtask{Title: "Bad", Dependencies: []string{"7"}}); !errors.Is(err, ErrInvalidDependency) {
		t.Errorf("Expected ErrInvalidDependency, got %v", err)
	}

	if err := s.SetStatus(ctx, "", "1.1", models.TaskStatusDone); err != nil {
		t.Fatalf("SetStatus on subtask failed: %v", err)
	}

	got, err := s.GetTask(ctx, "", parent.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if len(got.Subtasks) != 2 {
		t.Fatalf("Expected 2 subtasks, got %d", len(got.Subtasks))
	}
	if got.Subtasks[0].Status != models.TaskStatusDone {
		t.Errorf("Expected subtask 1 done, got %s", got.Subtasks[0].Status)
	}
	if !reflect.DeepEqual(got.Subtasks[1].Dependencies, []string{"1", "2"}) {
		t.Errorf("Expected subtask deps [1 2], got %v", got.Subtasks[1].Dependencies)
	}

	if err := s.RemoveDependency(ctx, "", "1.2", "2"); err != nil {
		t.Fatalf("RemoveDependency failed: %v", err)
	}
	if err := s.RemoveDependency(ctx, "", "1.2", "2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound removing twice, got %v", err)
	}

	if err := s.DeleteTask(ctx, "", "1.1"); err != nil {
		t.Fatalf("DeleteTask on subtask failed: %v", err)
	}
	got, _ = s.GetTask(ctx, "", parent.ID)
	if len(got.Subtasks) != 1 || got.Subtasks[0].ID != "2" {
		t.Errorf("Expected only subtask 2 left, got %v", got.Subtasks)
	}

	// Deleting the parent cascades.
	if err := s.DeleteTask(ctx, "", parent.ID); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if err := s.SetStatus(ctx, "", "1.2", models.TaskStatusDone); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected subtask gone with parent, got %v", err)
	}
}

func TestSetStatusErrors(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	s.CreateTask(ctx, NewTask{Title: "Only"})

	if err := s.SetStatus(ctx, "", "1", "finished"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for unknown status, got %v", err)
	}
	if err := s.SetStatus(ctx, "", "1.", models.TaskStatusDone); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for malformed ref, got %v", err)
	}
	if err := s.SetStatus(ctx, "", "9", models.TaskStatusDone); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := s.SetStatus(ctx, "other", "1", models.TaskStatusDone); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound in another tag, got %v", err)
	}
}

func TestTagsAreIsolated(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	s.CreateTask(ctx, NewTask{Title: "Master work"})
	a, _ := s.CreateTask(ctx, NewTask{Tag: "feature", Title: "Feature work"})
	if a.ID != "1" {
		t.Errorf("Expected ids to restart per tag, got %s", a.ID)
	}
	s.CreateTask(ctx, NewTask{Tag: "feature", Title: "More feature work"})

	tags, err := s.ListTags(ctx)
	if err != nil {
		t.Fatalf("ListTags failed: %v", err)
	}
	want := []TagSummary{{Tag: "feature", Tasks: 2}, {Tag: "master", Tasks: 1}}
	if !reflect.DeepEqual(tags, want) {
		t.Errorf("Expected %v, got %v", want, tags)
	}

	snap, err := s.LoadSnapshot(ctx, "feature")
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if len(snap) != 2 {
		t.Errorf("Expected 2 feature tasks, got %d", len(snap))
	}

	empty, err := s.LoadSnapshot(ctx, "nothing-here")
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("Expected empty snapshot, got %v", empty)
	}
}

func TestReplaceSnapshot(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	s.CreateTask(ctx, NewTask{Title: "Old"})

	tasks := []models.Task{
		{
			ID: "10", Title: "Ten", Status: models.TaskStatusInProgress, Priority: models.PriorityHigh,
			Dependencies: []string{},
			Subtasks: []models.Subtask{
				{ID: "1", Title: "Ten one", Status: models.TaskStatusDone, Priority: models.PriorityHigh, Dependencies: []string{}},
				{ID: "2", Title: "Ten two", Status: models.TaskStatusPending, Priority: models.PriorityLow, Dependencies: []string{"1", "3"}},
			},
		},
		{ID: "3", Title: "Three", Status: models.TaskStatusPending, Priority: models.PriorityLow, Dependencies: []string{"10"}, Subtasks: []models.Subtask{}},
	}

	if err := s.ReplaceSnapshot(ctx, "", tasks); err != nil {
		t.Fatalf("ReplaceSnapshot failed: %v", err)
	}

	snap, err := s.LoadSnapshot(ctx, "")
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if len(snap) != 2 {
		t.Fatalf("Expected 2 tasks, got %d", len(snap))
	}
	if snap[0].ID != "10" || snap[1].ID != "3" {
		t.Errorf("Expected import order [10 3], got [%s %s]", snap[0].ID, snap[1].ID)
	}
	if snap[0].Status != models.TaskStatusInProgress {
		t.Errorf("Expected status kept, got %s", snap[0].Status)
	}
	if !reflect.DeepEqual(snap[0].Subtasks[1].Dependencies, []string{"1", "3"}) {
		t.Errorf("Expected subtask deps kept, got %v", snap[0].Subtasks[1].Dependencies)
	}
	if !reflect.DeepEqual(snap[1].Dependencies, []string{"10"}) {
		t.Errorf("Expected task deps kept, got %v", snap[1].Dependencies)
	}

	// New ids continue after the largest imported id.
	next, err := s.CreateTask(ctx, NewTask{Title: "After import"})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if next.ID != "11" {
		t.Errorf("Expected id 11, got %s", next.ID)
	}
}

func TestDeleteTaskKeepsLookalikeDependencies(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	none := []string{}
	tasks := []models.Task{
		{
			ID: "a_b", Title: "Underscore", Status: models.TaskStatusInProgress, Priority: models.PriorityMedium, Dependencies: none,
			Subtasks: []models.Subtask{
				{ID: "1", Title: "Own", Status: models.TaskStatusPending, Priority: models.PriorityMedium, Dependencies: []string{"A_B"}},
			},
		},
		{
			ID: "axb", Title: "Wildcard match", Status: models.TaskStatusInProgress, Priority: models.PriorityMedium, Dependencies: none,
			Subtasks: []models.Subtask{
				{ID: "1", Title: "Keeps edge", Status: models.TaskStatusPending, Priority: models.PriorityMedium, Dependencies: []string{"A_B"}},
			},
		},
		{
			ID: "A_B", Title: "Case variant", Status: models.TaskStatusInProgress, Priority: models.PriorityMedium, Dependencies: none,
			Subtasks: []models.Subtask{
				{ID: "1", Title: "Keeps edge too", Status: models.TaskStatusPending, Priority: models.PriorityMedium, Dependencies: []string{"axb"}},
			},
		},
	}
	if err := s.ReplaceSnapshot(ctx, "", tasks); err != nil {
		t.Fatalf("ReplaceSnapshot failed: %v", err)
	}

	if err := s.DeleteTask(ctx, "", "a_b"); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}

	snap, err := s.LoadSnapshot(ctx, "")
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if len(snap) != 2 {
		t.Fatalf("Expected 2 tasks left, got %d", len(snap))
	}
	want := map[string][]string{"axb": {"A_B"}, "A_B": {"axb"}}
	for _, task := range snap {
		if len(task.Subtasks) != 1 {
			t.Fatalf("Expected subtask kept on %s, got %d", task.ID, len(task.Subtasks))
		}
		if got := task.Subtasks[0].Dependencies; !reflect.DeepEqual(got, want[task.ID]) {
			t.Errorf("Expected %s.1 deps %v, got %v", task.ID, want[task.ID], got)
		}
	}
}

func TestLoadSnapshotConcurrentWithWrites(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	parent, _ := s.CreateTask(ctx, NewTask{Title: "Parent"})

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := s.AddSubtask(ctx, "", parent.ID, NewSubtask{Title: "step"})
			errs <- err
		}()
		go func() {
			defer wg.Done()
			snap, err := s.LoadSnapshot(ctx, "")
			if err == nil && len(snap) != 1 {
				err = errors.New("snapshot lost the parent task")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent access failed: %v", err)
		}
	}

	got, _ := s.GetTask(ctx, "", parent.ID)
	if len(got.Subtasks) != 20 {
		t.Errorf("Expected 20 subtasks, got %d", len(got.Subtasks))
	}
}

func TestWritePDR(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	pdr, err := s.WritePDR(ctx, "task.create", "abc123", "success", "1", "created task")
	if err != nil {
		t.Fatalf("WritePDR failed: %v", err)
	}
	if pdr.ID == "" {
		t.Error("PDR ID should not be empty")
	}
	if pdr.Action != "task.create" {
		t.Errorf("Expected action task.create, got %s", pdr.Action)
	}

	s.WritePDR(ctx, "task.next", "def456", "found", "", "")

	entries, err := s.ListPDRs(ctx, 10)
	if err != nil {
		t.Fatalf("ListPDRs failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 PDRs, got %d", len(entries))
	}
	if entries[0].Action != "task.next" {
		t.Errorf("Expected newest first, got %s", entries[0].Action)
	}
}

func newTestStore(t *testing.T) *Store {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return s
}
