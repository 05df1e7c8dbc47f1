package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/nextask/internal/models"
	"github.com/fentz26/nextask/internal/selector"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("240"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			MarginTop(1)
)

// TaskDetailModel shows one task with its subtasks.
type TaskDetailModel struct {
	api      API
	tag      string
	ref      string
	unit     *selector.Unit
	task     *models.Task
	viewport viewport.Model
	loading  bool
}

// NewTaskDetailModel creates a new task detail model
func NewTaskDetailModel(api API) *TaskDetailModel {
	return &TaskDetailModel{
		api:      api,
		viewport: viewport.New(80, 20),
	}
}

// SetUnit selects the unit to display. Subtasks show their parent task.
func (m *TaskDetailModel) SetUnit(tag string, u selector.Unit) {
	m.tag = tag
	m.ref = u.ID
	m.unit = &u
	m.task = nil
	m.viewport.GotoTop()
}

// Ref returns the reference of the unit on display.
func (m *TaskDetailModel) Ref() string {
	return m.ref
}

// SetSize sets the dimensions
func (m *TaskDetailModel) SetSize(w, h int) {
	m.viewport.Width = w
	m.viewport.Height = h
	m.render()
}

// Refresh fetches the task holding the unit.
func (m *TaskDetailModel) Refresh() tea.Cmd {
	if m.unit == nil {
		return nil
	}
	m.loading = true
	tag, unit := m.tag, *m.unit
	taskID := unit.ID
	if unit.IsSubtask() {
		taskID = unit.ParentID
	}
	return func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		task, err := m.api.GetTask(ctx, tag, taskID)
		if err != nil {
			return errMsg{err}
		}
		return taskDetailLoadedMsg{task: task, unit: &unit}
	}
}

// Update handles messages
func (m *TaskDetailModel) Update(msg tea.Msg) (*TaskDetailModel, tea.Cmd) {
	switch msg := msg.(type) {
	case taskDetailLoadedMsg:
		if msg.unit == nil || msg.unit.ID != m.ref {
			return m, nil
		}
		m.loading = false
		m.task = msg.task
		m.render()
		return m, nil

	case errMsg:
		m.loading = false
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *TaskDetailModel) render() {
	if m.task == nil || m.unit == nil {
		m.viewport.SetContent("")
		return
	}
	u := m.unit
	t := m.task

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s %s", u.ID, u.Title)))
	b.WriteString("\n\n")

	b.WriteString(renderField("Kind", string(u.Kind)))
	if u.IsSubtask() {
		b.WriteString(renderField("Parent", fmt.Sprintf("%s %s", t.ID, t.Title)))
	}
	b.WriteString(renderField("Status", formatStatus(u.Status)))
	b.WriteString(renderField("Priority", formatPriority(u.Priority)))
	deps := "none"
	if len(u.Dependencies) > 0 {
		deps = strings.Join(u.Dependencies, ", ")
	}
	b.WriteString(renderField("Dependencies", deps))
	if u.Description != "" {
		b.WriteString(renderField("Description", u.Description))
	}
	if !t.UpdatedAt.IsZero() {
		b.WriteString(renderField("Updated", t.UpdatedAt.Local().Format("2006-01-02 15:04")))
	}

	if len(t.Subtasks) > 0 {
		b.WriteString(sectionStyle.Render("Subtasks"))
		b.WriteString("\n")
		for _, st := range t.Subtasks {
			marker := "  "
			if models.SubtaskRef(t.ID, st.ID) == u.ID {
				marker = "▶ "
			}
			b.WriteString(fmt.Sprintf("%s%s %s  %s\n", marker,
				models.SubtaskRef(t.ID, st.ID), truncate(st.Title, 60), formatStatus(st.Status)))
		}
	}

	m.viewport.SetContent(b.String())
}

// View renders the task detail
func (m *TaskDetailModel) View() string {
	if m.loading || m.task == nil {
		return "Loading task details..."
	}
	return m.viewport.View()
}

func renderField(label, value string) string {
	return fmt.Sprintf("%s %s\n", labelStyle.Render(label+":"), valueStyle.Render(value))
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
