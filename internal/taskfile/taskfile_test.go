package taskfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fentz26/nextask/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const taggedJSON = `{
  "master": {
    "tasks": [
      {"id": 1, "title": "Setup", "status": "DONE", "priority": "High"},
      {"id": 2, "title": "Build", "status": "in-progress", "dependencies": [1, "1"],
       "subtasks": [
         {"id": 1, "title": "Parser"},
         {"id": "2", "title": "Lexer", "priority": "low", "dependencies": [1]}
       ]}
    ]
  },
  "feature-x": {"tasks": [{"id": "7", "title": "Explore"}]}
}`

const legacyYAML = `
tasks:
  - id: 1
    title: Setup
    priority: critical
    subtasks:
      - id: 1
        title: Child
  - id: "2"
    title: Docs
    dependencies: [1]
`

func TestParseTaggedJSON(t *testing.T) {
	f, err := Parse([]byte(taggedJSON), FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, []string{"feature-x", "master"}, f.TagNames())

	tasks, err := f.Tasks("master")
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, "1", tasks[0].ID)
	assert.Equal(t, "master", tasks[0].Tag)
	assert.Equal(t, models.TaskStatusDone, tasks[0].Status)
	assert.Equal(t, models.PriorityHigh, tasks[0].Priority)

	build := tasks[1]
	assert.Equal(t, models.PriorityMedium, build.Priority, "task priority defaults to medium")
	assert.Equal(t, []string{"1"}, build.Dependencies, "numeric and string duplicates collapse")
	require.Len(t, build.Subtasks, 2)
	assert.Equal(t, models.TaskStatusPending, build.Subtasks[0].Status)
	assert.Equal(t, models.PriorityMedium, build.Subtasks[0].Priority, "subtask inherits parent priority")
	assert.Equal(t, models.PriorityLow, build.Subtasks[1].Priority)
	assert.Equal(t, []string{"1"}, build.Subtasks[1].Dependencies)

	feature, err := f.Tasks("feature-x")
	require.NoError(t, err)
	require.Len(t, feature, 1)
	assert.Equal(t, "7", feature[0].ID)
}

func TestParseLegacyYAML(t *testing.T) {
	f, err := Parse([]byte(legacyYAML), FormatYAML)
	require.NoError(t, err)

	tasks, err := f.Tasks("")
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, models.PriorityCritical, tasks[0].Priority)
	require.Len(t, tasks[0].Subtasks, 1)
	assert.Equal(t, models.PriorityCritical, tasks[0].Subtasks[0].Priority)
	assert.Equal(t, "2", tasks[1].ID)
	assert.Equal(t, []string{"1"}, tasks[1].Dependencies)
}

func TestParseLegacyJSON(t *testing.T) {
	f, err := Parse([]byte(`{"tasks": [{"id": 3, "title": "Only"}]}`), FormatJSON)
	require.NoError(t, err)

	tasks, err := f.Tasks(models.DefaultTag)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "3", tasks[0].ID)
	assert.Empty(t, tasks[0].Dependencies)
	assert.Empty(t, tasks[0].Subtasks)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		input  string
	}{
		{name: "not json", format: FormatJSON, input: `{"tasks": [`},
		{name: "unknown status", format: FormatJSON, input: `{"tasks": [{"id": 1, "status": "finished"}]}`},
		{name: "unknown priority", format: FormatJSON, input: `{"tasks": [{"id": 1, "priority": "urgent"}]}`},
		{name: "unknown subtask status", format: FormatJSON, input: `{"tasks": [{"id": 1, "subtasks": [{"id": 1, "status": "nope"}]}]}`},
		{name: "missing id", format: FormatJSON, input: `{"tasks": [{"title": "anonymous"}]}`},
		{name: "boolean id", format: FormatJSON, input: `{"tasks": [{"id": true}]}`},
		{name: "yaml null id", format: FormatYAML, input: "tasks:\n  - id: ~\n"},
		{name: "yaml bad priority", format: FormatYAML, input: "tasks:\n  - id: 1\n    priority: someday\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input), tt.format)
			assert.Error(t, err)
		})
	}
}

func TestMissingTag(t *testing.T) {
	f, err := Parse([]byte(taggedJSON), FormatJSON)
	require.NoError(t, err)

	_, err = f.Tasks("release")
	assert.ErrorIs(t, err, ErrTagNotFound)
	assert.Contains(t, err.Error(), "feature-x, master")
}

func TestLoadByExtension(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "tasks.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(legacyYAML), 0o600))
	tasks, err := LoadTag(yamlPath, "master")
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	jsonPath := filepath.Join(dir, "tasks.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(taggedJSON), 0o600))
	tasks, err = LoadTag(jsonPath, "feature-x")
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestFormatFor(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFor("a/b/tasks.YAML"))
	assert.Equal(t, FormatYAML, FormatFor("tasks.yml"))
	assert.Equal(t, FormatJSON, FormatFor("tasks.json"))
	assert.Equal(t, FormatJSON, FormatFor("tasks"))
}

func TestParseList(t *testing.T) {
	tasks, err := ParseList([]byte(`{"tasks": [{"id": "1", "title": "A", "status": "pending", "priority": "high", "created_at": "2024-01-01T00:00:00Z"}]}`), FormatJSON)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, models.PriorityHigh, tasks[0].Priority)

	_, err = ParseList([]byte(`{"tasks": [{"id": 1, "status": "bogus"}]}`), FormatJSON)
	assert.Error(t, err)
}
