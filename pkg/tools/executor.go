package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sipeed/picosearch/pkg/logger"
	"github.com/sipeed/picosearch/pkg/providers"
	"github.com/sipeed/picosearch/pkg/utils"
)

var (
	ErrUnknownTool = errors.New("unknown tool")
	ErrToolFailed  = errors.New("tool failed")
)

// FailurePolicy decides what a failing tool invocation does to the turn.
type FailurePolicy int

const (
	// FailurePolicyReport turns the failure into a tool-result message with
	// an {"error": ...} body so the model can react to it.
	FailurePolicyReport FailurePolicy = iota
	// FailurePolicyAbort stops the turn with ErrToolFailed.
	FailurePolicyAbort
)

// ParseFailurePolicy maps the config values "report" and "abort".
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "", "report":
		return FailurePolicyReport, nil
	case "abort":
		return FailurePolicyAbort, nil
	default:
		return FailurePolicyReport, fmt.Errorf("unknown tool failure policy %q", s)
	}
}

func (p FailurePolicy) String() string {
	if p == FailurePolicyAbort {
		return "abort"
	}
	return "report"
}

// Executor runs the tool calls of one assistant message against a registry.
type Executor struct {
	registry *ToolRegistry
	policy   FailurePolicy
}

func NewExecutor(registry *ToolRegistry, policy FailurePolicy) *Executor {
	return &Executor{registry: registry, policy: policy}
}

func (e *Executor) Policy() FailurePolicy {
	return e.policy
}

// Execute invokes every tool call on last, in order, and returns one tool
// message per call carrying the call id and tool name. Unknown tools fail
// the whole step before any tool runs and no messages are returned.
func (e *Executor) Execute(ctx context.Context, last providers.Message) ([]providers.Message, error) {
	calls := make([]providers.ToolCall, 0, len(last.ToolCalls))
	for _, raw := range last.ToolCalls {
		tc := providers.NormalizeToolCall(raw)
		if _, ok := e.registry.Get(tc.Name); !ok {
			logger.ErrorCF("tool", "Model requested an unregistered tool",
				map[string]any{"tool": tc.Name, "tool_call_id": tc.ID})
			return nil, fmt.Errorf("%w: %s", ErrUnknownTool, tc.Name)
		}
		calls = append(calls, tc)
	}

	out := make([]providers.Message, 0, len(calls))
	for _, tc := range calls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		argsJSON, _ := json.Marshal(tc.Arguments)
		logger.InfoCF("tool", fmt.Sprintf("Tool call: %s(%s)", tc.Name, utils.Truncate(string(argsJSON), 200)),
			map[string]any{"tool": tc.Name, "tool_call_id": tc.ID})

		result := e.registry.Execute(ctx, tc.Name, tc.Arguments)

		content, err := e.render(tc.Name, result)
		if err != nil {
			return nil, err
		}
		out = append(out, providers.Message{
			Role:       providers.RoleTool,
			Content:    content,
			Name:       tc.Name,
			ToolCallID: tc.ID,
		})
	}
	return out, nil
}

func (e *Executor) render(name string, result *ToolResult) (string, error) {
	if cause := result.Failure(); cause != nil {
		if e.policy == FailurePolicyAbort {
			return "", fmt.Errorf("%w: %s: %w", ErrToolFailed, name, cause)
		}
		msg := result.ForLLM
		if msg == "" {
			msg = cause.Error()
		}
		b, _ := json.Marshal(map[string]string{"error": msg})
		return string(b), nil
	}

	content, err := result.Content()
	if err != nil {
		if e.policy == FailurePolicyAbort {
			return "", fmt.Errorf("%w: %s: %w", ErrToolFailed, name, err)
		}
		b, _ := json.Marshal(map[string]string{"error": err.Error()})
		return string(b), nil
	}
	return content, nil
}
