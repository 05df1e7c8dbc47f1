package tui

import (
	"context"

	"github.com/fentz26/nextask/internal/models"
	"github.com/fentz26/nextask/internal/selector"
	"github.com/fentz26/nextask/internal/store"
)

// API is the daemon surface the TUI uses. *controlplane.Client satisfies it.
type API interface {
	Queue(ctx context.Context, tag string) ([]selector.Entry, error)
	Next(ctx context.Context, tag string, skip int) (*selector.Outcome, error)
	GetTask(ctx context.Context, tag, id string) (*models.Task, error)
	CreateTask(ctx context.Context, in store.NewTask) (*models.Task, error)
	AddSubtask(ctx context.Context, tag, parentID string, in store.NewSubtask) (*models.Subtask, error)
	SetStatus(ctx context.Context, tag, ref, status string) error
	ListTags(ctx context.Context) ([]store.TagSummary, error)
}

// QueueItem is one row of the eligible queue.
type QueueItem struct {
	selector.Entry
}

type queueLoadedMsg struct {
	tag     string
	entries []selector.Entry
}

type taskDetailLoadedMsg struct {
	task *models.Task
	unit *selector.Unit
}

type tagsLoadedMsg struct {
	tags []string
}

type commandResultMsg struct {
	message string
}

type errMsg struct {
	err error
}
