package controlplane

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/fentz26/nextask/internal/audit"
	"github.com/fentz26/nextask/internal/models"
	"github.com/fentz26/nextask/internal/selector"
	"github.com/fentz26/nextask/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func newTestService(t *testing.T) (*Service, *store.Store, *test.Hook) {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return NewService(st, audit.NewPDRWriter(st), log, "work"), st, hook
}

func TestNextTask_RecordsDecision(t *testing.T) {
	svc, st, hook := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateTask(ctx, store.NewTask{Title: "Only"}); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	out, err := svc.NextTask(ctx, "", 0)
	if err != nil {
		t.Fatalf("NextTask failed: %v", err)
	}
	if !out.Found || out.Unit.ID != "1" {
		t.Fatalf("Expected task 1, got %+v", out)
	}

	out, err = svc.NextTask(ctx, "", 4)
	if err != nil {
		t.Fatalf("NextTask failed: %v", err)
	}
	if out.Found {
		t.Errorf("Expected nothing at offset 4, got %+v", out.Unit)
	}

	entries, err := st.ListPDRs(ctx, 10)
	if err != nil {
		t.Fatalf("ListPDRs failed: %v", err)
	}
	var outcomes []string
	for _, e := range entries {
		if e.Action == audit.ActionTaskNext {
			outcomes = append(outcomes, e.Outcome)
		}
	}
	if len(outcomes) != 2 {
		t.Fatalf("Expected 2 task.next records, got %v", outcomes)
	}
	if outcomes[0] != audit.OutcomeNoneAvailable || outcomes[1] != audit.OutcomeFound {
		t.Errorf("Unexpected outcomes %v", outcomes)
	}

	if last := hook.LastEntry(); last == nil || last.Data["tag"] != "work" {
		t.Errorf("Expected selection logged with default tag, got %+v", last)
	}
}

func TestNextTask_ValidatesSkipBeforeLoading(t *testing.T) {
	svc, st, _ := newTestService(t)
	st.Close()

	_, err := svc.NextTask(context.Background(), "", -1)
	if !errors.Is(err, selector.ErrValidation) {
		t.Fatalf("Expected validation error even with a closed store, got %v", err)
	}

	_, err = svc.NextTask(context.Background(), "", 0)
	if err == nil || errors.Is(err, selector.ErrValidation) {
		t.Errorf("Expected a store error for a valid skip, got %v", err)
	}
}

func TestService_DefaultTag(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, store.NewTask{Title: "Tagged"})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if task.Tag != "work" {
		t.Errorf("Expected default tag 'work', got %s", task.Tag)
	}

	master, _ := st.ListTasks(ctx, models.DefaultTag, "")
	if len(master) != 0 {
		t.Errorf("Expected nothing in master, got %v", master)
	}
}

func TestService_StatusAndQueue(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	svc.CreateTask(ctx, store.NewTask{Title: "Parent", Priority: models.PriorityLow})
	svc.CreateTask(ctx, store.NewTask{Title: "Urgent", Priority: models.PriorityCritical})
	if _, err := svc.AddSubtask(ctx, "", "1", store.NewSubtask{Title: "Step"}); err != nil {
		t.Fatalf("AddSubtask failed: %v", err)
	}

	if err := svc.SetStatus(ctx, "", "1", "In-Progress"); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	if err := svc.SetStatus(ctx, "", "1", "finished"); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("Expected ErrInvalidRequest, got %v", err)
	}

	seq, err := svc.Queue(ctx, "")
	if err != nil {
		t.Fatalf("Queue failed: %v", err)
	}
	if seq.Len() != 2 || seq[0].ID != "1.1" || seq[1].ID != "2" {
		t.Errorf("Expected subtask before the critical task, got %v", seq)
	}
}

func TestService_Import(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	bad := []models.Task{
		{ID: "1", Title: "A", Status: models.TaskStatusPending, Priority: models.PriorityMedium},
		{ID: "1", Title: "B", Status: models.TaskStatusPending, Priority: models.PriorityMedium},
	}
	if _, err := svc.Import(ctx, "", bad); !errors.Is(err, selector.ErrValidation) {
		t.Fatalf("Expected validation error for duplicate ids, got %v", err)
	}

	good := []models.Task{
		{ID: "5", Title: "Five", Status: models.TaskStatusPending, Priority: models.PriorityHigh},
	}
	n, err := svc.Import(ctx, "", good)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 imported, got %d", n)
	}

	tasks, _ := svc.ListTasks(ctx, "", "")
	if len(tasks) != 1 || tasks[0].ID != "5" {
		t.Errorf("Expected imported task 5, got %v", tasks)
	}
}

type failingSink struct{}

func (failingSink) WritePDR(context.Context, string, string, string, string, string) (*models.PDREntry, error) {
	return nil, errors.New("disk full")
}

func TestService_AuditFailureIsLogged(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer st.Close()

	log, hook := test.NewNullLogger()
	log.SetOutput(io.Discard)
	svc := NewService(st, audit.NewPDRWriter(failingSink{}), log, "")

	if _, err := svc.CreateTask(context.Background(), store.NewTask{Title: "Still created"}); err != nil {
		t.Fatalf("CreateTask should not fail on audit errors: %v", err)
	}

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warned = true
		}
	}
	if !warned {
		t.Error("Expected a warning for the failed decision record")
	}
}

func TestService_RecordsFailedMutations(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateTask(ctx, store.NewTask{Title: "Only"}); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if err := svc.SetStatus(ctx, "", "7", "done"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if err := svc.AddDependency(ctx, "", "1", "1"); err == nil {
		t.Fatal("Expected self dependency to fail")
	}
	if err := svc.DeleteTask(ctx, "", "7.1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	entries, err := svc.Decisions(ctx, 0)
	if err != nil {
		t.Fatalf("Decisions failed: %v", err)
	}
	failures := map[string]string{}
	for _, e := range entries {
		if e.Outcome == audit.OutcomeFailure {
			failures[e.Action] = e.TaskID
			if e.Details == "" {
				t.Errorf("Expected failure details on %s", e.Action)
			}
		}
	}
	want := map[string]string{
		audit.ActionTaskStatus: "7",
		audit.ActionTaskDepend: "1",
		audit.ActionTaskDelete: "7.1",
	}
	for action, ref := range want {
		if failures[action] != ref {
			t.Errorf("Expected %s failure on %s, got %q", action, ref, failures[action])
		}
	}
	if _, ok := failures[audit.ActionTaskCreate]; ok {
		t.Error("Expected create to be recorded as a success")
	}

	if _, err := svc.Decisions(ctx, -1); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("Expected ErrInvalidRequest for a negative limit, got %v", err)
	}
}
