package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/fentz26/nextask/internal/models"
	"github.com/fentz26/nextask/internal/selector"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSelector runs the real selection over a fixed snapshot.
type fakeSelector struct {
	snapshot []models.Task
	calls    []int
	err      error
}

func (f *fakeSelector) NextTask(_ context.Context, _ string, skip int) (*selector.Outcome, error) {
	f.calls = append(f.calls, skip)
	if f.err != nil {
		return nil, f.err
	}
	return selector.SelectNext(f.snapshot, skip)
}

func (f *fakeSelector) Queue(_ context.Context, _ string) (selector.Sequence, error) {
	if f.err != nil {
		return nil, f.err
	}
	return selector.Plan(f.snapshot)
}

func sampleSnapshot() []models.Task {
	return []models.Task{
		{ID: "1", Title: "Alpha", Status: models.TaskStatusPending, Priority: models.PriorityLow},
		{ID: "2", Title: "Beta", Status: models.TaskStatusPending, Priority: models.PriorityHigh},
	}
}

func newTestServer(t *testing.T, sel Selector) *Server {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, RegisterTaskTools(reg, sel))

	log, _ := test.NewNullLogger()
	return NewServer(reg, log, "test")
}

// roundTrip feeds lines to the server and decodes every response line.
func roundTrip(t *testing.T, s *Server, lines ...string) []map[string]interface{} {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, s.Serve(context.Background(), strings.NewReader(strings.Join(lines, "\n")+"\n"), &out))

	var responses []map[string]interface{}
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp))
		responses = append(responses, resp)
	}
	return responses
}

func callLine(id int, tool string, args string) string {
	return fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"method":"tools/call","params":{"name":%q,"arguments":%s}}`, id, tool, args)
}

func toolText(t *testing.T, resp map[string]interface{}) (string, bool) {
	t.Helper()
	result, ok := resp["result"].(map[string]interface{})
	require.True(t, ok, "expected a result, got %v", resp)
	content := result["content"].([]interface{})
	require.NotEmpty(t, content)
	first := content[0].(map[string]interface{})
	isErr, _ := result["isError"].(bool)
	return first["text"].(string), isErr
}

func TestInitializeAndList(t *testing.T) {
	s := newTestServer(t, &fakeSelector{})

	responses := roundTrip(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"ping"}`,
	)
	require.Len(t, responses, 3, "notifications get no response")

	initRes := responses[0]["result"].(map[string]interface{})
	assert.Equal(t, ProtocolVersion, initRes["protocolVersion"])
	assert.Equal(t, "nextask", initRes["serverInfo"].(map[string]interface{})["name"])

	tools := responses[1]["result"].(map[string]interface{})["tools"].([]interface{})
	require.Len(t, tools, 2)
	assert.Equal(t, "list_queue", tools[0].(map[string]interface{})["name"])
	assert.Equal(t, "next_task", tools[1].(map[string]interface{})["name"])

	assert.Equal(t, float64(3), responses[2]["id"])
	assert.NotNil(t, responses[2]["result"])
}

func TestInitializedWithIDGetsResult(t *testing.T) {
	s := newTestServer(t, &fakeSelector{})

	responses := roundTrip(t, s, `{"jsonrpc":"2.0","id":7,"method":"notifications/initialized"}`)
	require.Len(t, responses, 1)

	result, ok := responses[0]["result"].(map[string]interface{})
	require.True(t, ok, "expected a result object, got %v", responses[0])
	assert.Empty(t, result)
	assert.NotContains(t, responses[0], "error")
	assert.Equal(t, float64(7), responses[0]["id"])
}

func TestNextTaskTool(t *testing.T) {
	sel := &fakeSelector{snapshot: sampleSnapshot()}
	s := newTestServer(t, sel)

	responses := roundTrip(t, s,
		callLine(1, "next_task", `{}`),
		callLine(2, "next_task", `{"skip": 1}`),
		callLine(3, "next_task", `{"skip": "1"}`),
		callLine(4, "next_task", `{"skip": 5}`),
	)
	require.Len(t, responses, 4)

	text, isErr := toolText(t, responses[0])
	assert.False(t, isErr)
	assert.Contains(t, text, "Beta")

	text, _ = toolText(t, responses[1])
	assert.Contains(t, text, "Alpha")

	text, _ = toolText(t, responses[2])
	assert.Contains(t, text, "Alpha", "string and number skips are equivalent")

	text, isErr = toolText(t, responses[3])
	assert.False(t, isErr, "an offset past the end is not an error")
	assert.Contains(t, text, "No eligible task at offset 5. 2 available")

	assert.Equal(t, []int{0, 1, 1, 5}, sel.calls)
}

func TestNextTaskTool_InvalidSkip(t *testing.T) {
	sel := &fakeSelector{snapshot: sampleSnapshot()}
	s := newTestServer(t, sel)

	responses := roundTrip(t, s,
		callLine(1, "next_task", `{"skip": -1}`),
		callLine(2, "next_task", `{"skip": 1.5}`),
		callLine(3, "next_task", `{"skip": "two"}`),
		callLine(4, "next_task", `{"skip": true}`),
		callLine(5, "next_task", `{"tag": 7}`),
	)
	require.Len(t, responses, 5)

	for i, resp := range responses {
		text, isErr := toolText(t, resp)
		assert.True(t, isErr, "response %d should be a tool error", i)
		assert.NotEmpty(t, text)
	}
	assert.Empty(t, sel.calls, "invalid arguments never reach the selector")
}

func TestListQueueTool(t *testing.T) {
	s := newTestServer(t, &fakeSelector{snapshot: sampleSnapshot()})

	responses := roundTrip(t, s, callLine(1, "list_queue", `{"tag": "master"}`))
	require.Len(t, responses, 1)

	text, isErr := toolText(t, responses[0])
	require.False(t, isErr)

	var entries []selector.Entry
	require.NoError(t, json.Unmarshal([]byte(text), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "2", entries[0].ID)
	assert.Equal(t, 1, entries[1].Offset)
}

func TestToolFailureBecomesErrorResult(t *testing.T) {
	log, hook := test.NewNullLogger()
	reg := NewRegistry()
	require.NoError(t, RegisterTaskTools(reg, &fakeSelector{err: errors.New("database is locked")}))
	s := NewServer(reg, log, "test")

	responses := roundTrip(t, s, callLine(1, "list_queue", `{}`))
	text, isErr := toolText(t, responses[0])
	assert.True(t, isErr)
	assert.Equal(t, "database is locked", text)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestProtocolErrors(t *testing.T) {
	s := newTestServer(t, &fakeSelector{})

	responses := roundTrip(t, s,
		`not json`,
		`{"jsonrpc":"2.0","id":2,"method":"resources/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"rm_rf"}}`,
		`{"jsonrpc":"1.0","id":4,"method":"ping"}`,
		`{"jsonrpc":"2.0","id":5,"method":"tools/call"}`,
	)
	require.Len(t, responses, 5)

	codes := make([]float64, len(responses))
	for i, resp := range responses {
		rpcErr, ok := resp["error"].(map[string]interface{})
		require.True(t, ok, "response %d should carry an error: %v", i, resp)
		codes[i] = rpcErr["code"].(float64)
	}
	assert.Equal(t, []float64{codeParseError, codeMethodNotFound, codeInvalidParams, codeInvalidRequest, codeInvalidParams}, codes)
	assert.Nil(t, responses[0]["id"])
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	noop := func(context.Context, map[string]interface{}) (*ToolResult, error) { return TextResult("ok"), nil }

	require.NoError(t, reg.Register(Tool{Name: "b"}, noop))
	require.NoError(t, reg.Register(Tool{Name: "a"}, noop))
	assert.Error(t, reg.Register(Tool{Name: "a"}, noop))
	assert.Error(t, reg.Register(Tool{Name: ""}, noop))
	assert.Error(t, reg.Register(Tool{Name: "c"}, nil))

	assert.Equal(t, 2, reg.Count())
	list := reg.List()
	assert.Equal(t, "a", list[0].Name)
	assert.Equal(t, "object", list[0].InputSchema["type"])

	// Callers get copies.
	list[0].InputSchema["type"] = "mutated"
	tool, _, ok := reg.Get("a")
	require.True(t, ok)
	assert.Equal(t, "object", tool.InputSchema["type"])

	_, _, ok = reg.Get("missing")
	assert.False(t, ok)
}
