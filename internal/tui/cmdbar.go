package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/nextask/internal/models"
	"github.com/fentz26/nextask/internal/render"
	"github.com/fentz26/nextask/internal/selector"
	"github.com/fentz26/nextask/internal/store"
)

var (
	cmdBarStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)
)

// CmdBarModel manages the command input bar
type CmdBarModel struct {
	input   textinput.Model
	focused bool
}

// NewCmdBarModel creates a new command bar
func NewCmdBarModel() *CmdBarModel {
	ti := textinput.New()
	ti.Placeholder = "/add <title> | /start | /done | /skip <n> | /tag <name>"
	ti.Prompt = ""
	ti.CharLimit = 256
	return &CmdBarModel{
		input: ti,
	}
}

// Focus focuses the command bar
func (m *CmdBarModel) Focus() tea.Cmd {
	m.focused = true
	return m.input.Focus()
}

// Blur unfocuses the command bar
func (m *CmdBarModel) Blur() {
	m.focused = false
	m.input.Blur()
	m.input.SetValue("")
}

// Focused reports whether keys go to the command bar.
func (m *CmdBarModel) Focused() bool {
	return m.focused
}

// Value returns the current input.
func (m *CmdBarModel) Value() string {
	return m.input.Value()
}

// SetValue replaces the input and moves the cursor to the end.
func (m *CmdBarModel) SetValue(v string) {
	m.input.SetValue(v)
	m.input.CursorEnd()
}

// SetWidth sets the input width.
func (m *CmdBarModel) SetWidth(w int) {
	m.input.Width = max(w-6, 10)
}

// Submit returns the current input and blurs
func (m *CmdBarModel) Submit() string {
	val := strings.TrimSpace(m.input.Value())
	m.Blur()
	return val
}

// Update handles messages
func (m *CmdBarModel) Update(msg tea.Msg) (*CmdBarModel, tea.Cmd) {
	if !m.focused {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command bar
func (m *CmdBarModel) View() string {
	if m.focused {
		return cmdBarStyle.Render(promptStyle.Render("/ ") + m.input.View())
	}
	return cmdBarStyle.Render(helpStyle.Render("Press / to enter a command"))
}

// parseCommand splits "/name args..." into its parts. The leading slash is
// optional and "@" is stripped from references.
func parseCommand(input string) (string, []string) {
	parts := strings.Fields(strings.TrimPrefix(strings.TrimSpace(input), "/"))
	if len(parts) == 0 {
		return "", nil
	}
	return strings.ToLower(parts[0]), parts[1:]
}

func refArg(args []string, selected *selector.Unit) string {
	if len(args) > 0 {
		return strings.TrimPrefix(args[0], "@")
	}
	if selected != nil {
		return selected.ID
	}
	return ""
}

var statusCommands = map[string]models.TaskStatus{
	"start":  models.TaskStatusInProgress,
	"done":   models.TaskStatusDone,
	"defer":  models.TaskStatusDeferred,
	"cancel": models.TaskStatusCancelled,
}

// Execute runs a command against the API. selected is the highlighted unit
// and may be nil.
func Execute(api API, tag, input string, selected *selector.Unit) tea.Cmd {
	name, args := parseCommand(input)
	if name == "" {
		return nil
	}

	return func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()

		if status, ok := statusCommands[name]; ok {
			ref := refArg(args, selected)
			if ref == "" {
				return commandResultMsg{"No task selected"}
			}
			if err := api.SetStatus(ctx, tag, ref, string(status)); err != nil {
				return errMsg{err}
			}
			return commandResultMsg{fmt.Sprintf("✓ %s is now %s", ref, status)}
		}

		switch name {
		case "add":
			if len(args) < 1 {
				return commandResultMsg{"Usage: /add <title>"}
			}
			task, err := api.CreateTask(ctx, store.NewTask{Tag: tag, Title: strings.Join(args, " ")})
			if err != nil {
				return errMsg{err}
			}
			return commandResultMsg{fmt.Sprintf("✓ Created task %s", task.ID)}

		case "sub":
			if len(args) < 1 {
				return commandResultMsg{"Usage: /sub <title>"}
			}
			if selected == nil {
				return commandResultMsg{"No task selected"}
			}
			parentID := selected.ID
			if selected.IsSubtask() {
				parentID = selected.ParentID
			}
			st, err := api.AddSubtask(ctx, tag, parentID, store.NewSubtask{Title: strings.Join(args, " ")})
			if err != nil {
				return errMsg{err}
			}
			return commandResultMsg{fmt.Sprintf("✓ Created subtask %s", models.SubtaskRef(parentID, st.ID))}

		case "skip":
			raw := ""
			if len(args) > 0 {
				raw = args[0]
			}
			skip, err := selector.ParseSkip(raw)
			if err != nil {
				return errMsg{err}
			}
			out, err := api.Next(ctx, tag, skip)
			if err != nil {
				return errMsg{err}
			}
			if !out.Found {
				return commandResultMsg{render.NotFoundMessage(out)}
			}
			return selectOffsetMsg{offset: skip, unit: *out.Unit}

		case "tag":
			if len(args) != 1 {
				return commandResultMsg{"Usage: /tag <name>"}
			}
			return tagSwitchMsg{tag: args[0]}

		case "tags":
			tags, err := api.ListTags(ctx)
			if err != nil {
				return errMsg{err}
			}
			if len(tags) == 0 {
				return commandResultMsg{"No tags yet"}
			}
			names := make([]string, len(tags))
			for i, t := range tags {
				names[i] = fmt.Sprintf("%s (%d)", t.Tag, t.Tasks)
			}
			return commandResultMsg{"Tags: " + strings.Join(names, ", ")}

		case "q", "quit", "exit":
			return tea.Quit()

		default:
			return commandResultMsg{fmt.Sprintf("Unknown: %s (try /add, /start, /done, /skip, /tag)", name)}
		}
	}
}

type selectOffsetMsg struct {
	offset int
	unit   selector.Unit
}

type tagSwitchMsg struct {
	tag string
}
