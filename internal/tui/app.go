// Package tui provides the interactive terminal UI for nextask.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/nextask/internal/selector"
)

var (
	// Colors
	primaryColor   = lipgloss.Color("#7C3AED")
	secondaryColor = lipgloss.Color("#6366F1")
	successColor   = lipgloss.Color("#10B981")
	errorColor     = lipgloss.Color("#EF4444")
	mutedColor     = lipgloss.Color("#6B7280")
	fgColor        = lipgloss.Color("#F9FAFB")
	cyanColor      = lipgloss.Color("#06B6D4")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	onlineStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	offlineStyle = lipgloss.NewStyle().
			Foreground(errorColor)
)

const requestTimeout = 10 * time.Second

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

type mode int

const (
	modeQueue mode = iota
	modeDetail
)

// App is the main TUI application model.
type App struct {
	api          API
	queue        *QueueListModel
	detail       *TaskDetailModel
	cmdbar       *CmdBarModel
	suggestions  *Suggestions
	mode         mode
	tags         []string
	width        int
	height       int
	message      string
	daemonOnline bool
}

// New creates a new TUI application showing tag.
func New(api API, tag string) *App {
	return &App{
		api:         api,
		queue:       NewQueueListModel(api, tag),
		detail:      NewTaskDetailModel(api),
		cmdbar:      NewCmdBarModel(),
		suggestions: NewSuggestions(),
		mode:        modeQueue,
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.queue.Init(),
		a.fetchTags(),
	)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.cmdbar.Focused() {
			return a, a.updateCommandBar(msg)
		}
		if a.mode == modeQueue && a.queue.Filtering() {
			break
		}

		switch msg.String() {
		case "q":
			return a, tea.Quit

		case "/", ":":
			a.message = ""
			return a, a.cmdbar.Focus()

		case "esc":
			if a.mode == modeDetail {
				a.mode = modeQueue
				return a, a.queue.Refresh()
			}

		case "enter":
			if a.mode == modeQueue {
				if sel := a.queue.Selected(); sel != nil {
					a.mode = modeDetail
					a.detail.SetUnit(a.queue.Tag(), sel.Unit)
					return a, a.detail.Refresh()
				}
				return a, nil
			}

		case "r":
			if a.mode == modeDetail {
				return a, a.detail.Refresh()
			}
			return a, a.queue.Refresh()

		case "n":
			return a, Execute(a.api, a.queue.Tag(), "skip 0", nil)

		case "s":
			return a, a.setSelected("start")

		case "d":
			return a, a.setSelected("done")

		case "tab":
			if a.mode == modeQueue && len(a.tags) > 0 {
				a.queue.SetTag(a.nextTag())
				return a, a.queue.Refresh()
			}
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.cmdbar.SetWidth(msg.Width)
		contentHeight := max(msg.Height-8, 5)
		a.queue.SetSize(msg.Width, contentHeight)
		a.detail.SetSize(msg.Width, contentHeight)
		return a, nil

	case queueLoadedMsg:
		a.daemonOnline = true
		var cmd tea.Cmd
		a.queue, cmd = a.queue.Update(msg)
		a.suggestions.SetTasks(a.queue.items)
		return a, cmd

	case taskDetailLoadedMsg:
		var cmd tea.Cmd
		a.detail, cmd = a.detail.Update(msg)
		return a, cmd

	case tagsLoadedMsg:
		a.tags = msg.tags
		return a, nil

	case selectOffsetMsg:
		a.mode = modeQueue
		if !a.queue.Select(msg.offset) {
			a.message = fmt.Sprintf("Next: %s %s", msg.unit.ID, msg.unit.Title)
			return a, a.queue.Refresh()
		}
		a.message = fmt.Sprintf("Offset %d: %s %s", msg.offset, msg.unit.ID, msg.unit.Title)
		return a, nil

	case tagSwitchMsg:
		a.mode = modeQueue
		a.queue.SetTag(msg.tag)
		a.message = "Switched to tag " + msg.tag
		return a, tea.Batch(a.queue.Refresh(), a.fetchTags())

	case commandResultMsg:
		a.message = msg.message
		cmds = append(cmds, a.queue.Refresh())
		if a.mode == modeDetail {
			cmds = append(cmds, a.detail.Refresh())
		}
		return a, tea.Batch(cmds...)

	case errMsg:
		a.message = "Error: " + msg.err.Error()
		// Transport failures mean the daemon is gone; API errors mean it answered.
		if strings.Contains(msg.err.Error(), "request failed") {
			a.daemonOnline = false
		}
		a.queue.Update(msg)
		a.detail.Update(msg)
		return a, nil
	}

	var cmd tea.Cmd
	switch a.mode {
	case modeQueue:
		a.queue, cmd = a.queue.Update(msg)
	case modeDetail:
		a.detail, cmd = a.detail.Update(msg)
	}
	cmds = append(cmds, cmd)
	return a, tea.Batch(cmds...)
}

func (a *App) updateCommandBar(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		a.cmdbar.Blur()
		a.suggestions.Update("")
		return nil

	case "up":
		a.suggestions.Prev()
		return nil

	case "down":
		a.suggestions.Next()
		return nil

	case "tab":
		if a.suggestions.IsVisible() {
			a.cmdbar.SetValue(a.suggestions.Accept(a.cmdbar.Value()))
			a.suggestions.Update(a.cmdbar.Value())
		}
		return nil

	case "enter":
		if a.suggestions.IsVisible() {
			accepted := a.suggestions.Accept(a.cmdbar.Value())
			if strings.TrimSpace(accepted) != strings.TrimSpace(a.cmdbar.Value()) {
				a.cmdbar.SetValue(accepted)
				a.suggestions.Update(accepted)
				return nil
			}
		}
		input := a.cmdbar.Submit()
		a.suggestions.Update("")
		return Execute(a.api, a.queue.Tag(), input, a.selectedUnit())
	}

	var cmd tea.Cmd
	a.cmdbar, cmd = a.cmdbar.Update(msg)
	a.suggestions.Update(a.cmdbar.Value())
	return cmd
}

func (a *App) selectedUnit() *selector.Unit {
	if a.mode == modeDetail && a.detail.unit != nil {
		u := *a.detail.unit
		return &u
	}
	if sel := a.queue.Selected(); sel != nil {
		u := sel.Unit
		return &u
	}
	return nil
}

func (a *App) setSelected(command string) tea.Cmd {
	u := a.selectedUnit()
	if u == nil {
		a.message = "No task selected"
		return nil
	}
	return Execute(a.api, a.queue.Tag(), command, u)
}

func (a *App) nextTag() string {
	current := a.queue.Tag()
	for i, t := range a.tags {
		if t == current {
			return a.tags[(i+1)%len(a.tags)]
		}
	}
	return a.tags[0]
}

func (a *App) fetchTags() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		tags, err := a.api.ListTags(ctx)
		if err != nil {
			return errMsg{err}
		}
		names := make([]string, len(tags))
		for i, t := range tags {
			names[i] = t.Tag
		}
		return tagsLoadedMsg{tags: names}
	}
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	daemonStatus := onlineStyle.Render("● DAEMON")
	if !a.daemonOnline {
		daemonStatus = offlineStyle.Render("○ DAEMON")
	}
	tag := a.queue.Tag()
	if tag == "" {
		tag = "default"
	}

	header := titleStyle.Render("NEXTASK")
	header += "  " + daemonStatus
	header += "  " + lipgloss.NewStyle().Foreground(cyanColor).Render(fmt.Sprintf("[tag: %s]", tag))
	header += "  " + lipgloss.NewStyle().Foreground(mutedColor).Render(fmt.Sprintf("%d eligible", a.queue.Len()))

	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("─", max(a.width, 1)) + "\n")

	switch a.mode {
	case modeQueue:
		b.WriteString(a.queue.View())
	case modeDetail:
		b.WriteString(a.detail.View())
	}

	if a.message != "" {
		msgStyle := lipgloss.NewStyle().Foreground(successColor)
		if strings.HasPrefix(a.message, "Error") {
			msgStyle = lipgloss.NewStyle().Foreground(errorColor)
		}
		b.WriteString("\n" + msgStyle.Render(a.message))
	}

	b.WriteString("\n")
	b.WriteString(a.cmdbar.View())
	if a.suggestions.IsVisible() {
		b.WriteString("\n")
		b.WriteString(a.suggestions.Render(a.width))
	}
	b.WriteString("\n")

	var status string
	switch a.mode {
	case modeQueue:
		status = " ↑↓:nav | Enter:detail | n:next | s:start | d:done | Tab:tag | /:command | r:refresh | q:quit"
	case modeDetail:
		status = " ↑↓:scroll | s:start | d:done | r:refresh | Esc:back | q:quit"
	}
	b.WriteString(statusBarStyle.Width(max(a.width, 1)).Render(status))

	return b.String()
}
