package mcp

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Handler executes a tool call.
type Handler func(ctx context.Context, args map[string]interface{}) (*ToolResult, error)

type registeredTool struct {
	tool    Tool
	handler Handler
}

func cloneTool(t Tool) Tool {
	c := t
	if t.InputSchema != nil {
		c.InputSchema = make(map[string]interface{}, len(t.InputSchema))
		for k, v := range t.InputSchema {
			c.InputSchema[k] = v
		}
	}
	return c
}

// Registry manages the tools a Server exposes.
type Registry struct {
	tools map[string]*registeredTool
	mu    sync.RWMutex
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*registeredTool),
	}
}

// Register adds a tool. Names must be unique.
func (r *Registry) Register(tool Tool, handler Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tool.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("tool %q has no handler", tool.Name)
	}
	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("tool %q already registered", tool.Name)
	}

	if tool.InputSchema == nil {
		tool.InputSchema = map[string]interface{}{"type": "object"}
	}
	r.tools[tool.Name] = &registeredTool{tool: tool, handler: handler}
	return nil
}

// Get retrieves a tool and its handler by name.
func (r *Registry) Get(name string) (Tool, Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rt, ok := r.tools[name]
	if !ok {
		return Tool{}, nil, false
	}
	return cloneTool(rt.tool), rt.handler, true
}

// List returns all registered tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.tools))
	for _, rt := range r.tools {
		tools = append(tools, cloneTool(rt.tool))
	}

	sort.Slice(tools, func(i, j int) bool {
		return tools[i].Name < tools[j].Name
	})
	return tools
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
