package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// Tool is a named capability the model can invoke.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Execute(ctx context.Context, args map[string]any) *ToolResult
}

// ToolResult is the outcome of one invocation. Data, when set, is serialized
// as JSON for the model; otherwise ForLLM is sent verbatim.
type ToolResult struct {
	ForLLM  string
	Data    any
	IsError bool
	Err     error
}

func NewToolResult(forLLM string) *ToolResult {
	return &ToolResult{ForLLM: forLLM}
}

func DataResult(data any) *ToolResult {
	return &ToolResult{Data: data}
}

func ErrorResult(message string) *ToolResult {
	return &ToolResult{ForLLM: message, IsError: true}
}

func (r *ToolResult) WithError(err error) *ToolResult {
	r.Err = err
	return r
}

// Content renders the text placed in the tool-result message.
func (r *ToolResult) Content() (string, error) {
	if r.Data == nil {
		return r.ForLLM, nil
	}
	b, err := json.Marshal(r.Data)
	if err != nil {
		return "", fmt.Errorf("serialize tool result: %w", err)
	}
	return string(b), nil
}

// Failure returns the error carried by a failed result, or nil.
func (r *ToolResult) Failure() error {
	if !r.IsError {
		return nil
	}
	if r.Err != nil {
		return r.Err
	}
	return fmt.Errorf("%s", r.ForLLM)
}
