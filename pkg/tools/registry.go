package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sipeed/picosearch/pkg/logger"
	"github.com/sipeed/picosearch/pkg/providers"
)

type ToolRegistry struct {
	tools map[string]Tool
	mu    sync.RWMutex
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]Tool)}
}

// Register adds tool, replacing any tool with the same name.
func (r *ToolRegistry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Execute runs the named tool. An unknown name yields an error result whose
// Err wraps ErrUnknownTool.
func (r *ToolRegistry) Execute(ctx context.Context, name string, args map[string]any) *ToolResult {
	logger.InfoCF("tool", "Tool execution started", map[string]any{"tool": name, "args": args})

	tool, ok := r.Get(name)
	if !ok {
		logger.ErrorCF("tool", "Tool not found", map[string]any{"tool": name})
		return ErrorResult(fmt.Sprintf("tool %q not found", name)).
			WithError(fmt.Errorf("%w: %s", ErrUnknownTool, name))
	}

	start := time.Now()
	result := tool.Execute(ctx, args)
	duration := time.Since(start)
	if result == nil {
		result = ErrorResult(fmt.Sprintf("tool %q returned no result", name))
	}

	if result.IsError {
		logger.ErrorCF("tool", "Tool execution failed", map[string]any{
			"tool":        name,
			"duration_ms": duration.Milliseconds(),
			"error":       result.ForLLM,
		})
	} else {
		logger.InfoCF("tool", "Tool execution completed", map[string]any{
			"tool":        name,
			"duration_ms": duration.Milliseconds(),
		})
	}
	return result
}

// sortedToolNames keeps definitions in a stable order so identical
// registries produce identical requests.
func (r *ToolRegistry) sortedToolNames() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ToProviderDefs converts the registered tools to the definitions sent with
// every model call.
func (r *ToolRegistry) ToProviderDefs() []providers.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sorted := r.sortedToolNames()
	definitions := make([]providers.ToolDefinition, 0, len(sorted))
	for _, name := range sorted {
		tool := r.tools[name]
		definitions = append(definitions, providers.ToolDefinition{
			Type: "function",
			Function: providers.ToolFunctionDefinition{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  tool.Parameters(),
			},
		})
	}
	return definitions
}

func (r *ToolRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedToolNames()
}

func (r *ToolRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
