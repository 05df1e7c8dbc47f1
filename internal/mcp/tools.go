package mcp

import (
	"bytes"
	"context"
	"fmt"

	"github.com/fentz26/nextask/internal/render"
	"github.com/fentz26/nextask/internal/selector"
)

// Selector is the selection surface the task tools call into.
// *controlplane.Service satisfies it.
type Selector interface {
	NextTask(ctx context.Context, tag string, skip int) (*selector.Outcome, error)
	Queue(ctx context.Context, tag string) (selector.Sequence, error)
}

var tagProperty = map[string]interface{}{
	"type":        "string",
	"description": "Task tag (context) to select from. Defaults to the configured tag.",
}

// RegisterTaskTools adds next_task and list_queue to reg.
func RegisterTaskTools(reg *Registry, sel Selector) error {
	nextTask := Tool{
		Name: "next_task",
		Description: "Return the next eligible task or subtask. Use skip to look past the first " +
			"candidates: skip=0 is the best pick, skip=1 the one after it.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"tag": tagProperty,
				"skip": map[string]interface{}{
					"type":        []string{"integer", "string"},
					"description": "Zero-based offset into the eligible sequence. Defaults to 0.",
					"minimum":     0,
				},
			},
		},
	}
	if err := reg.Register(nextTask, nextTaskHandler(sel)); err != nil {
		return err
	}

	listQueue := Tool{
		Name:        "list_queue",
		Description: "List every eligible task in selection order with the skip value that selects it.",
		InputSchema: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{"tag": tagProperty},
		},
	}
	return reg.Register(listQueue, listQueueHandler(sel))
}

func nextTaskHandler(sel Selector) Handler {
	return func(ctx context.Context, args map[string]interface{}) (*ToolResult, error) {
		tag, err := stringArg(args, "tag")
		if err != nil {
			return ErrorResult(err.Error()), nil
		}
		skip, err := skipArg(args)
		if err != nil {
			return ErrorResult(err.Error()), nil
		}

		out, err := sel.NextTask(ctx, tag, skip)
		if err != nil {
			if _, ok := selector.IsValidationError(err); ok {
				return ErrorResult(err.Error()), nil
			}
			return nil, err
		}

		var text, data bytes.Buffer
		if err := render.Text(&text, out); err != nil {
			return nil, err
		}
		if err := render.JSON(&data, out); err != nil {
			return nil, err
		}
		return TextResult(text.String(), data.String()), nil
	}
}

func listQueueHandler(sel Selector) Handler {
	return func(ctx context.Context, args map[string]interface{}) (*ToolResult, error) {
		tag, err := stringArg(args, "tag")
		if err != nil {
			return ErrorResult(err.Error()), nil
		}

		seq, err := sel.Queue(ctx, tag)
		if err != nil {
			return nil, err
		}

		var data bytes.Buffer
		if err := render.QueueJSON(&data, seq); err != nil {
			return nil, err
		}
		return TextResult(data.String()), nil
	}
}

func stringArg(args map[string]interface{}, key string) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string, got %T", key, v)
	}
	return s, nil
}

// skipArg accepts skip as a JSON number or a numeric string.
func skipArg(args map[string]interface{}) (int, error) {
	v, ok := args["skip"]
	if !ok || v == nil {
		return 0, nil
	}
	switch n := v.(type) {
	case float64:
		return selector.SkipFromNumber(n)
	case string:
		return selector.ParseSkip(n)
	default:
		return selector.ParseSkip(fmt.Sprint(v))
	}
}
