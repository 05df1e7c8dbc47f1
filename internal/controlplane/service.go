// Package controlplane provides the HTTP API and service layer for nextask.
package controlplane

import (
	"context"
	"fmt"
	"strings"

	"github.com/fentz26/nextask/internal/audit"
	"github.com/fentz26/nextask/internal/models"
	"github.com/fentz26/nextask/internal/selector"
	"github.com/fentz26/nextask/internal/store"
	"github.com/sirupsen/logrus"
)

// Service provides the control plane business logic.
type Service struct {
	store      *store.Store
	pdr        *audit.PDRWriter
	log        logrus.FieldLogger
	defaultTag string
}

// NewService creates a new control plane service. Requests without a tag use
// defaultTag.
func NewService(s *store.Store, pdr *audit.PDRWriter, log logrus.FieldLogger, defaultTag string) *Service {
	if defaultTag == "" {
		defaultTag = models.DefaultTag
	}
	return &Service{
		store:      s,
		pdr:        pdr,
		log:        log,
		defaultTag: defaultTag,
	}
}

func (s *Service) tag(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return s.defaultTag
	}
	return tag
}

// record writes a decision record. Audit failures are logged, never returned.
func (s *Service) record(ctx context.Context, action string, inputs interface{}, outcome, taskID, details string) {
	if _, err := s.pdr.Record(ctx, action, inputs, outcome, taskID, details); err != nil {
		s.log.WithError(err).WithField("action", action).Warn("failed to write decision record")
	}
}

// recordFailure writes a failure record for a mutation that was rejected.
func (s *Service) recordFailure(ctx context.Context, action string, inputs interface{}, ref string, err error) {
	s.record(ctx, action, inputs, audit.OutcomeFailure, ref, err.Error())
}

// --- Selection ---

// NextTask selects the unit at offset skip in tag's eligible sequence. skip
// is validated before the store is read.
func (s *Service) NextTask(ctx context.Context, tag string, skip int) (*selector.Outcome, error) {
	if err := selector.ValidateSkip(skip); err != nil {
		return nil, err
	}
	tag = s.tag(tag)

	snapshot, err := s.store.LoadSnapshot(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}

	out, err := selector.SelectNext(snapshot, skip)
	if err != nil {
		return nil, err
	}

	inputs := map[string]interface{}{"tag": tag, "skip": skip}
	fields := logrus.Fields{"tag": tag, "skip": skip, "available": out.AvailableTaskCount}
	if out.Found {
		s.record(ctx, audit.ActionTaskNext, inputs, audit.OutcomeFound, out.Unit.ID, "")
		s.log.WithFields(fields).WithField("task", out.Unit.ID).Debug("selected next task")
	} else {
		s.record(ctx, audit.ActionTaskNext, inputs, audit.OutcomeNoneAvailable, "", "")
		s.log.WithFields(fields).Debug("no eligible task at offset")
	}
	return out, nil
}

// Queue returns the full eligible sequence of tag.
func (s *Service) Queue(ctx context.Context, tag string) (selector.Sequence, error) {
	snapshot, err := s.store.LoadSnapshot(ctx, s.tag(tag))
	if err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}
	return selector.Plan(snapshot)
}

// --- Task Operations ---

// CreateTask creates a new top-level task.
func (s *Service) CreateTask(ctx context.Context, in store.NewTask) (*models.Task, error) {
	in.Tag = s.tag(in.Tag)
	task, err := s.store.CreateTask(ctx, in)
	if err != nil {
		return nil, err
	}

	s.record(ctx, audit.ActionTaskCreate, in, audit.OutcomeSuccess, task.ID, "")
	s.log.WithFields(logrus.Fields{"tag": task.Tag, "task": task.ID}).Info("task created")
	return task, nil
}

// AddSubtask appends a subtask to a task.
func (s *Service) AddSubtask(ctx context.Context, tag, parentID string, in store.NewSubtask) (*models.Subtask, error) {
	tag = s.tag(tag)
	st, err := s.store.AddSubtask(ctx, tag, parentID, in)
	if err != nil {
		return nil, err
	}

	ref := models.SubtaskRef(parentID, st.ID)
	s.record(ctx, audit.ActionSubtaskCreate, in, audit.OutcomeSuccess, ref, "")
	s.log.WithFields(logrus.Fields{"tag": tag, "task": ref}).Info("subtask created")
	return st, nil
}

// GetTask retrieves a task by ID.
func (s *Service) GetTask(ctx context.Context, tag, id string) (*models.Task, error) {
	return s.store.GetTask(ctx, s.tag(tag), id)
}

// ListTasks returns the tasks of tag, optionally filtered by status.
func (s *Service) ListTasks(ctx context.Context, tag, status string) ([]models.Task, error) {
	var filter models.TaskStatus
	if strings.TrimSpace(status) != "" {
		parsed, err := models.ParseStatus(status)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		filter = parsed
	}
	return s.store.ListTasks(ctx, s.tag(tag), filter)
}

// ListTags returns every tag holding tasks.
func (s *Service) ListTags(ctx context.Context) ([]store.TagSummary, error) {
	return s.store.ListTags(ctx)
}

// SetStatus changes the status of a task or subtask reference.
func (s *Service) SetStatus(ctx context.Context, tag, ref, status string) error {
	parsed, err := models.ParseStatus(status)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	tag = s.tag(tag)
	inputs := map[string]string{"tag": tag, "ref": ref, "status": string(parsed)}
	if err := s.store.SetStatus(ctx, tag, ref, parsed); err != nil {
		s.recordFailure(ctx, audit.ActionTaskStatus, inputs, ref, err)
		return err
	}

	s.record(ctx, audit.ActionTaskStatus, inputs, audit.OutcomeSuccess, ref, "")
	s.log.WithFields(logrus.Fields{"tag": tag, "task": ref, "status": parsed}).Info("status changed")
	return nil
}

// AddDependency records that ref waits for dependsOn.
func (s *Service) AddDependency(ctx context.Context, tag, ref, dependsOn string) error {
	tag = s.tag(tag)
	inputs := map[string]string{"tag": tag, "ref": ref, "depends_on": dependsOn}
	if err := s.store.AddDependency(ctx, tag, ref, dependsOn); err != nil {
		s.recordFailure(ctx, audit.ActionTaskDepend, inputs, ref, err)
		return err
	}
	s.record(ctx, audit.ActionTaskDepend, inputs, audit.OutcomeSuccess, ref, "")
	return nil
}

// RemoveDependency deletes a dependency edge.
func (s *Service) RemoveDependency(ctx context.Context, tag, ref, dependsOn string) error {
	tag = s.tag(tag)
	inputs := map[string]string{"tag": tag, "ref": ref, "depends_on": dependsOn}
	if err := s.store.RemoveDependency(ctx, tag, ref, dependsOn); err != nil {
		s.recordFailure(ctx, audit.ActionTaskUndepend, inputs, ref, err)
		return err
	}
	s.record(ctx, audit.ActionTaskUndepend, inputs, audit.OutcomeSuccess, ref, "")
	return nil
}

// DeleteTask removes a task or subtask.
func (s *Service) DeleteTask(ctx context.Context, tag, ref string) error {
	tag = s.tag(tag)
	inputs := map[string]string{"tag": tag, "ref": ref}
	if err := s.store.DeleteTask(ctx, tag, ref); err != nil {
		s.recordFailure(ctx, audit.ActionTaskDelete, inputs, ref, err)
		return err
	}
	s.record(ctx, audit.ActionTaskDelete, inputs, audit.OutcomeSuccess, ref, "")
	s.log.WithFields(logrus.Fields{"tag": tag, "task": ref}).Info("task deleted")
	return nil
}

// Import replaces the contents of tag with tasks. The list is validated as a
// snapshot first so a bad file never reaches the store.
func (s *Service) Import(ctx context.Context, tag string, tasks []models.Task) (int, error) {
	if err := selector.ValidateSnapshot(tasks); err != nil {
		return 0, err
	}
	tag = s.tag(tag)
	inputs := map[string]interface{}{"tag": tag, "tasks": tasks}
	if err := s.store.ReplaceSnapshot(ctx, tag, tasks); err != nil {
		s.recordFailure(ctx, audit.ActionTaskImport, inputs, "", err)
		return 0, err
	}

	s.record(ctx, audit.ActionTaskImport, inputs, audit.OutcomeSuccess, "", fmt.Sprintf("%d tasks", len(tasks)))
	s.log.WithFields(logrus.Fields{"tag": tag, "tasks": len(tasks)}).Info("tasks imported")
	return len(tasks), nil
}

// --- Decision Records ---

// Decisions returns the most recent decision records, newest first.
func (s *Service) Decisions(ctx context.Context, limit int) ([]models.PDREntry, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", ErrInvalidRequest)
	}
	return s.store.ListPDRs(ctx, limit)
}
