// Package taskfile reads task lists from JSON or YAML files.
//
// Two layouts are accepted. The tagged layout maps tag names to task lists:
//
//	{"master": {"tasks": [...]}, "feature-x": {"tasks": [...]}}
//
// The legacy layout is a bare {"tasks": [...]} and is read as tag "master".
package taskfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fentz26/nextask/internal/models"
	"gopkg.in/yaml.v3"
)

// ErrTagNotFound is returned when a file has no tasks under the requested tag.
var ErrTagNotFound = errors.New("tag not found")

// Format selects the decoder.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks a format from a file extension. Unknown extensions are
// read as JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// File is a parsed task file.
type File struct {
	tags map[string][]models.Task
}

// Load reads and validates the task file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading task file: %w", err)
	}
	f, err := Parse(data, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// LoadTag reads path and returns the tasks of one tag.
func LoadTag(path, tag string) ([]models.Task, error) {
	f, err := Load(path)
	if err != nil {
		return nil, err
	}
	return f.Tasks(tag)
}

// Parse decodes data in the given format.
func Parse(data []byte, format Format) (*File, error) {
	var blocks map[string]taskList
	var err error
	switch format {
	case FormatYAML:
		blocks, err = decodeYAML(data)
	default:
		blocks, err = decodeJSON(data)
	}
	if err != nil {
		return nil, err
	}

	f := &File{tags: make(map[string][]models.Task, len(blocks))}
	for tag, list := range blocks {
		tasks, err := list.normalize()
		if err != nil {
			return nil, fmt.Errorf("tag %s: %w", tag, err)
		}
		for i := range tasks {
			tasks[i].Tag = tag
		}
		f.tags[tag] = tasks
	}
	return f, nil
}

// ParseList decodes a single {"tasks": [...]} list, as sent to the import
// endpoint.
func ParseList(data []byte, format Format) ([]models.Task, error) {
	var list taskList
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &list)
	default:
		err = json.Unmarshal(data, &list)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing task list: %w", err)
	}
	return list.normalize()
}

// Tasks returns the tasks stored under tag. An empty tag means "master".
func (f *File) Tasks(tag string) ([]models.Task, error) {
	if tag == "" {
		tag = models.DefaultTag
	}
	tasks, ok := f.tags[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrTagNotFound, tag, strings.Join(f.TagNames(), ", "))
	}
	return tasks, nil
}

// TagNames lists the tags in the file, sorted.
func (f *File) TagNames() []string {
	names := make([]string, 0, len(f.tags))
	for name := range f.tags {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type taskList struct {
	Tasks []rawTask `json:"tasks" yaml:"tasks"`
}

type rawTask struct {
	ID           flexID       `json:"id" yaml:"id"`
	Title        string       `json:"title" yaml:"title"`
	Description  string       `json:"description" yaml:"description"`
	Status       string       `json:"status" yaml:"status"`
	Priority     string       `json:"priority" yaml:"priority"`
	Dependencies []flexID     `json:"dependencies" yaml:"dependencies"`
	Subtasks     []rawSubtask `json:"subtasks" yaml:"subtasks"`
}

type rawSubtask struct {
	ID           flexID   `json:"id" yaml:"id"`
	Title        string   `json:"title" yaml:"title"`
	Description  string   `json:"description" yaml:"description"`
	Status       string   `json:"status" yaml:"status"`
	Priority     string   `json:"priority" yaml:"priority"`
	Dependencies []flexID `json:"dependencies" yaml:"dependencies"`
}

// flexID accepts ids written as numbers or strings.
type flexID string

func (id *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = flexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a number or string, got %s", data)
	}
	*id = flexID(n.String())
	return nil
}

func (id *flexID) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode || node.ShortTag() == "!!null" || node.ShortTag() == "!!bool" {
		return fmt.Errorf("line %d: id must be a number or string", node.Line)
	}
	*id = flexID(strings.TrimSpace(node.Value))
	return nil
}

func decodeJSON(data []byte) (map[string]taskList, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	if raw, ok := top["tasks"]; ok && isJSONArray(raw) {
		var legacy taskList
		if err := json.Unmarshal(data, &legacy); err != nil {
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}
		return map[string]taskList{models.DefaultTag: legacy}, nil
	}

	blocks := make(map[string]taskList, len(top))
	for tag, raw := range top {
		var list taskList
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("parsing tag %s: %w", tag, err)
		}
		blocks[tag] = list
	}
	return blocks, nil
}

func isJSONArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

func decodeYAML(data []byte) (map[string]taskList, error) {
	var top map[string]yaml.Node
	if err := yaml.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	if node, ok := top["tasks"]; ok && node.Kind == yaml.SequenceNode {
		var legacy taskList
		if err := yaml.Unmarshal(data, &legacy); err != nil {
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
		return map[string]taskList{models.DefaultTag: legacy}, nil
	}

	blocks := make(map[string]taskList, len(top))
	for tag, node := range top {
		var list taskList
		if err := node.Decode(&list); err != nil {
			return nil, fmt.Errorf("parsing tag %s: %w", tag, err)
		}
		blocks[tag] = list
	}
	return blocks, nil
}

func (l taskList) normalize() ([]models.Task, error) {
	tasks := make([]models.Task, 0, len(l.Tasks))
	for i, rt := range l.Tasks {
		t, err := rt.normalize()
		if err != nil {
			return nil, fmt.Errorf("task #%d: %w", i, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (rt rawTask) normalize() (models.Task, error) {
	if rt.ID == "" {
		return models.Task{}, fmt.Errorf("missing id")
	}
	status, err := statusOrDefault(rt.Status)
	if err != nil {
		return models.Task{}, fmt.Errorf("task %s: %w", rt.ID, err)
	}
	priority, err := priorityOrDefault(rt.Priority, models.DefaultPriority)
	if err != nil {
		return models.Task{}, fmt.Errorf("task %s: %w", rt.ID, err)
	}

	t := models.Task{
		ID:           string(rt.ID),
		Title:        rt.Title,
		Description:  rt.Description,
		Status:       status,
		Priority:     priority,
		Dependencies: dedupe(rt.Dependencies),
		Subtasks:     make([]models.Subtask, 0, len(rt.Subtasks)),
	}

	for _, rs := range rt.Subtasks {
		if rs.ID == "" {
			return models.Task{}, fmt.Errorf("task %s: subtask missing id", rt.ID)
		}
		ref := models.SubtaskRef(t.ID, string(rs.ID))
		status, err := statusOrDefault(rs.Status)
		if err != nil {
			return models.Task{}, fmt.Errorf("subtask %s: %w", ref, err)
		}
		priority, err := priorityOrDefault(rs.Priority, t.Priority)
		if err != nil {
			return models.Task{}, fmt.Errorf("subtask %s: %w", ref, err)
		}
		t.Subtasks = append(t.Subtasks, models.Subtask{
			ID:           string(rs.ID),
			Title:        rs.Title,
			Description:  rs.Description,
			Status:       status,
			Priority:     priority,
			Dependencies: dedupe(rs.Dependencies),
		})
	}
	return t, nil
}

func statusOrDefault(raw string) (models.TaskStatus, error) {
	if strings.TrimSpace(raw) == "" {
		return models.TaskStatusPending, nil
	}
	return models.ParseStatus(raw)
}

func priorityOrDefault(raw string, fallback models.Priority) (models.Priority, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	return models.ParsePriority(raw)
}

func dedupe(ids []flexID) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		s := string(id)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
