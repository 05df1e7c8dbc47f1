package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/nextask/internal/models"
)

var (
	listTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	statusPending    = lipgloss.NewStyle().Foreground(lipgloss.Color("3")) // Yellow
	statusInProgress = lipgloss.NewStyle().Foreground(lipgloss.Color("6")) // Cyan
	statusDone       = lipgloss.NewStyle().Foreground(lipgloss.Color("2")) // Green
	statusCancelled  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // Red
	statusDeferred   = lipgloss.NewStyle().Foreground(lipgloss.Color("4")) // Blue

	priorityStyles = map[models.Priority]lipgloss.Style{
		models.PriorityCritical: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		models.PriorityHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		models.PriorityMedium:   lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		models.PriorityLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
)

func (i QueueItem) FilterValue() string { return i.Entry.Title }
func (i QueueItem) Title() string {
	return fmt.Sprintf("[%d] %s %s", i.Offset, i.ID, i.Entry.Title)
}
func (i QueueItem) Description() string {
	desc := formatPriority(i.Priority) + " • " + formatStatus(i.Status)
	if i.IsSubtask() {
		desc += fmt.Sprintf(" • subtask of %s", i.ParentID)
	}
	if n := len(i.Dependencies); n > 0 {
		desc += fmt.Sprintf(" • %d deps", n)
	}
	return desc
}

func formatStatus(status models.TaskStatus) string {
	switch status {
	case models.TaskStatusPending:
		return statusPending.Render("● pending")
	case models.TaskStatusInProgress:
		return statusInProgress.Render("● in-progress")
	case models.TaskStatusDone:
		return statusDone.Render("● done")
	case models.TaskStatusCancelled:
		return statusCancelled.Render("● cancelled")
	case models.TaskStatusDeferred:
		return statusDeferred.Render("● deferred")
	default:
		return string(status)
	}
}

func formatPriority(p models.Priority) string {
	if style, ok := priorityStyles[p]; ok {
		return style.Render(string(p))
	}
	return string(p)
}

// QueueListModel shows the eligible queue of one tag in selection order.
type QueueListModel struct {
	api     API
	list    list.Model
	items   []QueueItem
	tag     string
	width   int
	height  int
	loading bool
}

// NewQueueListModel creates a queue list for tag.
func NewQueueListModel(api API, tag string) *QueueListModel {
	delegate := list.NewDefaultDelegate()
	l := list.New([]list.Item{}, delegate, 80, 20)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()
	l.Styles.Title = listTitleStyle

	m := &QueueListModel{
		api:  api,
		list: l,
	}
	m.SetTag(tag)
	return m
}

// Init loads the queue.
func (m *QueueListModel) Init() tea.Cmd {
	return m.Refresh()
}

// SetSize sets the list dimensions
func (m *QueueListModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.list.SetSize(w, h)
}

// SetTag switches the tag shown. Call Refresh afterwards.
func (m *QueueListModel) SetTag(tag string) {
	m.tag = tag
	label := tag
	if label == "" {
		label = "default"
	}
	m.list.Title = fmt.Sprintf("Queue [%s]", label)
}

// Tag returns the tag being shown.
func (m *QueueListModel) Tag() string {
	return m.tag
}

// Len returns the number of eligible units.
func (m *QueueListModel) Len() int {
	return len(m.items)
}

// Filtering reports whether the list is consuming keys for its filter.
func (m *QueueListModel) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

// Selected returns the highlighted entry.
func (m *QueueListModel) Selected() *QueueItem {
	if item := m.list.SelectedItem(); item != nil {
		qi := item.(QueueItem)
		return &qi
	}
	return nil
}

// Select moves the cursor to the entry at offset.
func (m *QueueListModel) Select(offset int) bool {
	if offset < 0 || offset >= len(m.items) {
		return false
	}
	m.list.ResetFilter()
	m.list.Select(offset)
	return true
}

// Refresh fetches the queue from the API
func (m *QueueListModel) Refresh() tea.Cmd {
	m.loading = true
	tag := m.tag
	return func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		entries, err := m.api.Queue(ctx, tag)
		if err != nil {
			return errMsg{err}
		}
		return queueLoadedMsg{tag: tag, entries: entries}
	}
}

// Update handles messages
func (m *QueueListModel) Update(msg tea.Msg) (*QueueListModel, tea.Cmd) {
	switch msg := msg.(type) {
	case queueLoadedMsg:
		if msg.tag != m.tag {
			return m, nil
		}
		m.loading = false
		m.items = make([]QueueItem, len(msg.entries))
		items := make([]list.Item, len(msg.entries))
		for i, e := range msg.entries {
			m.items[i] = QueueItem{Entry: e}
			items[i] = m.items[i]
		}
		cmd := m.list.SetItems(items)
		return m, cmd

	case errMsg:
		m.loading = false
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the queue
func (m *QueueListModel) View() string {
	if m.loading && len(m.items) == 0 {
		return "Loading queue..."
	}
	if len(m.items) == 0 {
		return listTitleStyle.Render(m.list.Title) + "\n\n  No eligible tasks. Type /add <title> to create one.\n"
	}
	return m.list.View()
}
