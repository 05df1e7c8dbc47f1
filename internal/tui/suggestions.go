package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Suggestions provides autocomplete for the command bar
type Suggestions struct {
	items       []SuggestionItem
	filtered    []SuggestionItem
	tasks       []SuggestionItem
	selectedIdx int
	visible     bool
	prefix      string // "/" or "@"
}

// SuggestionItem represents a single autocomplete suggestion
type SuggestionItem struct {
	Text        string
	Description string
	Type        string // "command" or "task"
}

var commandSuggestions = []SuggestionItem{
	{Text: "/add", Description: "Create a task: /add <title>", Type: "command"},
	{Text: "/sub", Description: "Add a subtask to the selected task: /sub <title>", Type: "command"},
	{Text: "/start", Description: "Mark a unit in-progress: /start [@ref]", Type: "command"},
	{Text: "/done", Description: "Mark a unit done: /done [@ref]", Type: "command"},
	{Text: "/defer", Description: "Defer a unit: /defer [@ref]", Type: "command"},
	{Text: "/cancel", Description: "Cancel a unit: /cancel [@ref]", Type: "command"},
	{Text: "/skip", Description: "Jump to the unit at an offset: /skip <n>", Type: "command"},
	{Text: "/tag", Description: "Switch tag: /tag <name>", Type: "command"},
	{Text: "/tags", Description: "List tags", Type: "command"},
}

// NewSuggestions creates a new suggestions handler
func NewSuggestions() *Suggestions {
	return &Suggestions{
		items: commandSuggestions,
	}
}

// SetTasks replaces the references offered after "@".
func (s *Suggestions) SetTasks(entries []QueueItem) {
	s.tasks = make([]SuggestionItem, len(entries))
	for i, e := range entries {
		s.tasks[i] = SuggestionItem{
			Text:        "@" + e.ID,
			Description: e.Entry.Title,
			Type:        "task",
		}
	}
}

// Update recomputes suggestions for the current input. Commands are offered
// while the first word is typed, task references for a trailing "@" word.
func (s *Suggestions) Update(input string) {
	word := currentWord(input)
	switch {
	case strings.HasPrefix(input, "/") && !strings.ContainsAny(input, " \t"):
		s.prefix = "/"
		s.items = commandSuggestions
	case strings.HasPrefix(word, "@"):
		s.prefix = "@"
		s.items = s.tasks
	default:
		s.visible = false
		s.filtered = nil
		s.prefix = ""
		return
	}
	s.visible = true
	s.filter(strings.ToLower(word))
}

// Accept returns input with the current word replaced by the selection.
func (s *Suggestions) Accept(input string) string {
	selected := s.Selected()
	if selected == nil {
		return input
	}
	word := currentWord(input)
	return input[:len(input)-len(word)] + selected.Text + " "
}

func currentWord(input string) string {
	if input == "" || strings.HasSuffix(input, " ") {
		return ""
	}
	fields := strings.Fields(input)
	return fields[len(fields)-1]
}

func (s *Suggestions) filter(query string) {
	s.selectedIdx = 0
	if query == "" || query == s.prefix {
		s.filtered = s.items
		return
	}

	s.filtered = []SuggestionItem{}
	for _, item := range s.items {
		if strings.HasPrefix(strings.ToLower(item.Text), query) {
			s.filtered = append(s.filtered, item)
		}
	}
}

// Next moves to the next suggestion
func (s *Suggestions) Next() {
	if len(s.filtered) == 0 {
		return
	}
	s.selectedIdx = (s.selectedIdx + 1) % len(s.filtered)
}

// Prev moves to the previous suggestion
func (s *Suggestions) Prev() {
	if len(s.filtered) == 0 {
		return
	}
	s.selectedIdx--
	if s.selectedIdx < 0 {
		s.selectedIdx = len(s.filtered) - 1
	}
}

// Selected returns the currently selected suggestion
func (s *Suggestions) Selected() *SuggestionItem {
	if !s.visible || len(s.filtered) == 0 || s.selectedIdx >= len(s.filtered) {
		return nil
	}
	return &s.filtered[s.selectedIdx]
}

// IsVisible returns whether suggestions are currently visible
func (s *Suggestions) IsVisible() bool {
	return s.visible && len(s.filtered) > 0
}

// Render renders the suggestions dropdown
func (s *Suggestions) Render(width int) string {
	if !s.IsVisible() {
		return ""
	}

	var b strings.Builder

	suggestionStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(secondaryColor).
		Padding(0, 1).
		Width(max(width-4, 20))

	selectedStyle := lipgloss.NewStyle().
		Background(primaryColor).
		Foreground(fgColor).
		Bold(true)

	itemStyle := lipgloss.NewStyle().
		Foreground(fgColor)

	descStyle := lipgloss.NewStyle().
		Foreground(mutedColor).
		Italic(true)

	header := "Commands"
	if s.prefix == "@" {
		header = "Queue"
	}
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(primaryColor).Render(header))
	b.WriteString("\n")

	maxVisible := 5
	for i, item := range s.filtered {
		if i >= maxVisible {
			more := len(s.filtered) - maxVisible
			b.WriteString(descStyle.Render(fmt.Sprintf("  ... and %d more", more)))
			break
		}

		var line string
		if i == s.selectedIdx {
			line = selectedStyle.Render("▶ " + item.Text)
			if item.Description != "" {
				line += " " + selectedStyle.Render(item.Description)
			}
		} else {
			line = itemStyle.Render("  " + item.Text)
			if item.Description != "" {
				line += " " + descStyle.Render(item.Description)
			}
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	return suggestionStyle.Render(b.String())
}
