// Package render formats selection results for the terminal.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/nextask/internal/models"
	"github.com/fentz26/nextask/internal/selector"
)

var (
	accentColor  = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	cyanColor    = lipgloss.Color("#06B6D4")
)

// styles are bound to a renderer so colours follow the destination writer,
// not os.Stdout.
type styles struct {
	title    lipgloss.Style
	label    lipgloss.Style
	muted    lipgloss.Style
	warning  lipgloss.Style
	offset   lipgloss.Style
	priority map[models.Priority]lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(accentColor),
		label:   r.NewStyle().Foreground(mutedColor),
		muted:   r.NewStyle().Foreground(mutedColor),
		warning: r.NewStyle().Foreground(warningColor),
		offset:  r.NewStyle().Foreground(cyanColor),
		priority: map[models.Priority]lipgloss.Style{
			models.PriorityCritical: r.NewStyle().Bold(true).Foreground(errorColor),
			models.PriorityHigh:     r.NewStyle().Foreground(warningColor),
			models.PriorityMedium:   r.NewStyle().Foreground(successColor),
			models.PriorityLow:      r.NewStyle().Foreground(mutedColor),
		},
	}
}

func (s styles) renderPriority(p models.Priority) string {
	if st, ok := s.priority[p]; ok {
		return st.Render(string(p))
	}
	return string(p)
}

// NotFoundMessage is the one-line explanation for an Outcome with no unit.
func NotFoundMessage(o *selector.Outcome) string {
	if !o.HasAnyTasks {
		return "No tasks found"
	}
	msg := fmt.Sprintf("No eligible task at offset %d. %d available", o.Skip, o.AvailableTaskCount)
	switch o.AvailableTaskCount {
	case 0:
		return msg + ": all tasks are done or blocked"
	case 1:
		return msg + " (use --skip 0)"
	default:
		return msg + fmt.Sprintf(" (use --skip 0 to %d)", o.MaxSkip())
	}
}

// Text writes a human-readable rendering of o.
func Text(w io.Writer, o *selector.Outcome) error {
	s := newStyles(w)
	if !o.Found || o.Unit == nil {
		_, err := fmt.Fprintln(w, s.warning.Render(NotFoundMessage(o)))
		return err
	}

	u := o.Unit
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", s.title.Render("Next "+string(u.Kind)+" "+u.ID+":"), u.Title)
	if u.IsSubtask() {
		parent := u.ParentID
		if u.ParentTitle != "" {
			parent += " (" + u.ParentTitle + ")"
		}
		writeField(&b, s, "Parent", parent)
	}
	writeField(&b, s, "Status", string(u.Status))
	writeField(&b, s, "Priority", s.renderPriority(u.Priority))
	writeField(&b, s, "Dependencies", joinOr(u.Dependencies, "none"))
	if u.Description != "" {
		writeField(&b, s, "Description", u.Description)
	}
	writeField(&b, s, "Offset", fmt.Sprintf("%d of %d available", o.Skip, o.AvailableTaskCount))

	_, err := io.WriteString(w, b.String())
	return err
}

// JSON writes o as indented JSON.
func JSON(w io.Writer, o *selector.Outcome) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(o)
}

// Queue writes the eligible sequence, one unit per line, with the offset that
// selects each.
func Queue(w io.Writer, seq selector.Sequence) error {
	s := newStyles(w)
	if seq.Len() == 0 {
		_, err := fmt.Fprintln(w, s.warning.Render("No eligible tasks"))
		return err
	}

	width := len(fmt.Sprint(seq.Len() - 1))
	var b strings.Builder
	for i, u := range seq {
		offset := s.offset.Render(fmt.Sprintf("[%*d]", width, i))
		line := fmt.Sprintf("%s %-8s %s  %s", offset, u.ID, s.renderPriority(u.Priority), u.Title)
		if u.IsSubtask() {
			line += s.muted.Render("  (subtask of " + u.ParentID + ")")
		}
		b.WriteString(line + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// QueueJSON writes the sequence entries as indented JSON.
func QueueJSON(w io.Writer, seq selector.Sequence) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(seq.Entries())
}

func writeField(b *strings.Builder, s styles, label, value string) {
	fmt.Fprintf(b, "  %s %s\n", s.label.Render(fmt.Sprintf("%-13s", label+":")), value)
}

func joinOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}
